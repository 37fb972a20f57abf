// Package config provides configuration loading and structs for postscout.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoKeywords is returned by Validate when the keyword list is empty.
var ErrNoKeywords = errors.New("no keywords configured")

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Source     SourceConfig     `yaml:"source"`
	Search     SearchConfig     `yaml:"search"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Relevance  RelevanceConfig  `yaml:"relevance"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Reply      ReplyConfig      `yaml:"reply"`
	Notify     NotifyConfig     `yaml:"notify"`
	Output     OutputConfig     `yaml:"output"`
}

// SourceConfig selects and configures the post source.
type SourceConfig struct {
	// Provider is "reddit" or "archive".
	Provider string        `yaml:"provider"`
	Reddit   RedditConfig  `yaml:"reddit"`
	Archive  ArchiveConfig `yaml:"archive"`
	// Timeout bounds each keyword search.
	Timeout time.Duration `yaml:"timeout"`
}

// RedditConfig holds Reddit API credentials and query settings.
type RedditConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
	Subreddit    string `yaml:"subreddit"`
	AuthURL      string `yaml:"auth_url"`
	APIURL       string `yaml:"api_url"`
}

// ArchiveConfig points at a JSON-lines dump of posts.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig holds the keyword list and per-run search settings.
type SearchConfig struct {
	Keywords     []string `yaml:"keywords"`
	LookbackDays int      `yaml:"lookback_days"`
	Limit        int      `yaml:"limit"`
	Sort         string   `yaml:"sort"`
	// TimeFilter overrides the upstream time window; derived from LookbackDays when empty.
	TimeFilter  string `yaml:"time_filter"`
	Parallelism int    `yaml:"parallelism"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider is "onnx", "http" or "mock".
	Provider      string `yaml:"provider"`
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	// OutputName is the ONNX output read: "output" (pooled, the default) or
	// "last_hidden_state" (mean-pooled here).
	OutputName string `yaml:"output_name"`
	// BatchSize caps the texts per ONNX inference; 32 when unset.
	BatchSize  int           `yaml:"batch_size"`
	URL        string        `yaml:"url"`
	Dimensions int           `yaml:"dimensions"`
	MaxTokens  int           `yaml:"max_tokens"`
	CacheSize  int           `yaml:"cache_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// RelevanceConfig holds the similarity threshold.
type RelevanceConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// ClassifierConfig holds context classifier settings.
type ClassifierConfig struct {
	// Provider is "huggingface", "openai" or "none".
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	URL      string        `yaml:"url"`
	APIKey   string        `yaml:"api_key"`
	Labels   []string      `yaml:"labels"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ReplyConfig holds reply drafting settings.
type ReplyConfig struct {
	Enabled bool `yaml:"enabled"`
	// Provider is "ollama" or "openai".
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	URL      string        `yaml:"url"`
	APIKey   string        `yaml:"api_key"`
	Width    int           `yaml:"width"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NotifyConfig holds optional forwarding of results.
type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig configures the Telegram notifier.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// OutputConfig holds console output settings.
type OutputConfig struct {
	// Format is "text", "compact" or "json".
	Format         string `yaml:"format"`
	Color          *bool  `yaml:"color"`
	ContentPreview int    `yaml:"content_preview"`
}

// ColorOrDefault returns whether to colorize output; defaults to true when unset.
func (o *OutputConfig) ColorOrDefault() bool {
	if o.Color != nil {
		return *o.Color
	}
	return true
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg, os.Getenv)

	configDir := filepath.Dir(path)
	cfg.Source.Archive.Path = expandPath(cfg.Source.Archive.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.TokenizerPath = expandPath(cfg.Embedding.TokenizerPath, configDir)

	return &cfg, nil
}

// Default returns a configuration built purely from defaults and the environment.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplyEnv(&cfg, os.Getenv)
	return &cfg
}

// ApplyEnv overrides credentials and endpoints from environment variables.
// getenv is injected so tests need not touch the process environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Source.Reddit.ClientID, "REDDIT_CLIENT_ID")
	set(&cfg.Source.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	set(&cfg.Source.Reddit.UserAgent, "REDDIT_USER_AGENT")
	if cfg.Classifier.Provider == "openai" {
		set(&cfg.Classifier.APIKey, "OPENAI_API_KEY")
	} else {
		set(&cfg.Classifier.APIKey, "HF_API_TOKEN")
	}
	switch cfg.Reply.Provider {
	case "openai":
		set(&cfg.Reply.APIKey, "OPENAI_API_KEY")
	case "ollama":
		set(&cfg.Reply.URL, "OLLAMA_HOST")
	}
	set(&cfg.Notify.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	var chat string
	set(&chat, "TELEGRAM_CHAT_ID")
	if chat != "" {
		var id int64
		if _, err := fmt.Sscan(chat, &id); err == nil {
			cfg.Notify.Telegram.ChatID = id
		}
	}
}

// Validate reports the first configuration problem that would make a run meaningless.
func (c *Config) Validate() error {
	if len(c.Search.Keywords) == 0 {
		return ErrNoKeywords
	}
	for i, k := range c.Search.Keywords {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("keyword %d is empty", i)
		}
	}
	if c.Search.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be positive, got %d", c.Search.LookbackDays)
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Search.Limit)
	}
	if math.IsNaN(c.Relevance.Threshold) || c.Relevance.Threshold < -1 || c.Relevance.Threshold > 1 {
		return fmt.Errorf("threshold must be within [-1, 1], got %g", c.Relevance.Threshold)
	}
	switch c.Source.Provider {
	case "reddit":
		if c.Source.Reddit.ClientID == "" || c.Source.Reddit.ClientSecret == "" {
			return fmt.Errorf("reddit source requires client_id and client_secret (or REDDIT_CLIENT_ID / REDDIT_CLIENT_SECRET)")
		}
	case "archive":
		if c.Source.Archive.Path == "" {
			return fmt.Errorf("archive source requires source.archive.path")
		}
	default:
		return fmt.Errorf("unknown source provider: %s (supported: reddit, archive)", c.Source.Provider)
	}
	switch c.Embedding.Provider {
	case "onnx", "mock":
	case "http":
		if c.Embedding.URL == "" {
			return fmt.Errorf("http embedding provider requires embedding.url")
		}
	default:
		return fmt.Errorf("unknown embedding provider: %s (supported: onnx, http, mock)", c.Embedding.Provider)
	}
	switch c.Classifier.Provider {
	case "huggingface", "openai", "none":
	default:
		return fmt.Errorf("unknown classifier provider: %s (supported: huggingface, openai, none)", c.Classifier.Provider)
	}
	if c.Reply.Enabled {
		switch c.Reply.Provider {
		case "ollama", "openai":
		default:
			return fmt.Errorf("unknown reply provider: %s (supported: ollama, openai)", c.Reply.Provider)
		}
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.Token == "" || c.Notify.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram notify requires token and chat_id")
	}
	switch c.Output.Format {
	case "text", "compact", "json":
	default:
		return fmt.Errorf("unknown output format %q; use text, compact, or json", c.Output.Format)
	}
	return nil
}

// TimeFilterOrDefault returns the upstream time window hint: the configured value,
// or the narrowest window that still covers the lookback period.
func (s *SearchConfig) TimeFilterOrDefault() string {
	if s.TimeFilter != "" {
		return s.TimeFilter
	}
	switch {
	case s.LookbackDays <= 1:
		return "day"
	case s.LookbackDays <= 7:
		return "week"
	case s.LookbackDays <= 31:
		return "month"
	case s.LookbackDays <= 365:
		return "year"
	default:
		return "all"
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
