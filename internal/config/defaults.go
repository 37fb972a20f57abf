package config

import (
	"time"

	"github.com/hyperjump/postscout/internal/models"
)

// DefaultKeywords is the keyword list used when none is configured.
var DefaultKeywords = []string{
	"esim", "international roaming", "travel connectivity",
	"bnesim", "airalo", "gigsky", "holafly", "ubigi", "flexiroam",
	"travel SIM recommendations", "roaming charges", "connectivity issue",
	"sim not working", "bad mobile service abroad",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Source.Provider == "" {
		cfg.Source.Provider = "reddit"
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30 * time.Second
	}
	if cfg.Source.Reddit.Subreddit == "" {
		cfg.Source.Reddit.Subreddit = "all"
	}
	if cfg.Source.Reddit.UserAgent == "" {
		cfg.Source.Reddit.UserAgent = "postscout/1.0"
	}
	if cfg.Source.Reddit.AuthURL == "" {
		cfg.Source.Reddit.AuthURL = "https://www.reddit.com"
	}
	if cfg.Source.Reddit.APIURL == "" {
		cfg.Source.Reddit.APIURL = "https://oauth.reddit.com"
	}
	if cfg.Search.Keywords == nil {
		cfg.Search.Keywords = append([]string(nil), DefaultKeywords...)
	}
	if cfg.Search.LookbackDays == 0 {
		cfg.Search.LookbackDays = 7
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = 100
	}
	if cfg.Search.Sort == "" {
		cfg.Search.Sort = "new"
	}
	if cfg.Search.Parallelism == 0 {
		cfg.Search.Parallelism = 1
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/postscout/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 2 * time.Minute
	}
	if cfg.Relevance.Threshold == 0 {
		cfg.Relevance.Threshold = 0.6
	}
	if cfg.Classifier.Provider == "" {
		cfg.Classifier.Provider = "huggingface"
	}
	if cfg.Classifier.Model == "" {
		switch cfg.Classifier.Provider {
		case "openai":
			cfg.Classifier.Model = "gpt-4o-mini"
		default:
			cfg.Classifier.Model = "facebook/bart-large-mnli"
		}
	}
	if cfg.Classifier.Labels == nil {
		cfg.Classifier.Labels = models.Categories()
	}
	if cfg.Classifier.Timeout == 0 {
		cfg.Classifier.Timeout = 30 * time.Second
	}
	if cfg.Reply.Provider == "" {
		cfg.Reply.Provider = "ollama"
	}
	if cfg.Reply.Model == "" {
		switch cfg.Reply.Provider {
		case "openai":
			cfg.Reply.Model = "gpt-4o-mini"
		default:
			cfg.Reply.Model = "redditor"
		}
	}
	if cfg.Reply.URL == "" && cfg.Reply.Provider == "ollama" {
		cfg.Reply.URL = "http://localhost:11434"
	}
	if cfg.Reply.Width == 0 {
		cfg.Reply.Width = 150
	}
	if cfg.Reply.Timeout == 0 {
		cfg.Reply.Timeout = 2 * time.Minute
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "text"
	}
	if cfg.Output.ContentPreview == 0 {
		cfg.Output.ContentPreview = 200
	}
}
