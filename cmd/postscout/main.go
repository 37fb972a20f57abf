// Package main is the postscout CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hyperjump/postscout/internal/cli"
	"github.com/hyperjump/postscout/internal/config"
	"github.com/hyperjump/postscout/internal/pipeline"
	"github.com/hyperjump/postscout/internal/vector"
	"github.com/hyperjump/postscout/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/postscout/config.yaml"

// app carries process-wide state shared by all commands.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	debug      bool
	newLogger  func(debug bool) (*zap.Logger, error)
}

// runFlags override config values for a single run.
type runFlags struct {
	keywords  []string
	days      int
	limit     int
	threshold float64
	parallel  int
	output    string
	archive   string
	reply     bool
	notify    bool
	noColor   bool
}

// loadConfig loads config from path. When path is the default, ./config.yaml takes
// precedence if present, and a missing default file yields pure defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		newLogger: utils.NewLogger,
	}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	flags := &runFlags{}
	root := &cobra.Command{
		Use:          "postscout",
		Short:        "Find recent Reddit posts about travel connectivity and classify them",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, flags)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	addRunFlags(root, flags)

	root.AddCommand(runCmd(a))
	root.AddCommand(scoreCmd(a))
	root.AddCommand(classifyCmd(a))
	root.AddCommand(keywordsCmd(a))
	root.AddCommand(versionCmd(a))
	return root
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringArrayVarP(&f.keywords, "keyword", "k", nil, "search keyword (repeatable; replaces configured keywords)")
	cmd.Flags().IntVar(&f.days, "days", 7, "only keep posts created within this many days")
	cmd.Flags().IntVar(&f.limit, "limit", 100, "maximum results per keyword")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0.6, "relevance threshold; a post passes when any keyword scores above it")
	cmd.Flags().IntVar(&f.parallel, "parallel", 1, "number of keyword searches run concurrently")
	cmd.Flags().StringVarP(&f.output, "output", "o", "text", "output format: text, compact, or json")
	cmd.Flags().StringVar(&f.archive, "archive", "", "search a JSON-lines post archive instead of Reddit")
	cmd.Flags().BoolVar(&f.reply, "reply", false, "draft a reply for each relevant post")
	cmd.Flags().BoolVar(&f.notify, "notify", false, "forward relevant posts to Telegram")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "disable coloured output")
}

// apply copies every flag the user set explicitly onto cfg.
func (f *runFlags) apply(cfg *config.Config, changed func(name string) bool) {
	if changed("keyword") {
		cfg.Search.Keywords = append([]string(nil), f.keywords...)
	}
	if changed("days") {
		cfg.Search.LookbackDays = f.days
	}
	if changed("limit") {
		cfg.Search.Limit = f.limit
	}
	if changed("threshold") {
		cfg.Relevance.Threshold = f.threshold
	}
	if changed("parallel") {
		cfg.Search.Parallelism = f.parallel
	}
	if changed("output") {
		cfg.Output.Format = f.output
	}
	if changed("archive") {
		cfg.Source.Provider = "archive"
		cfg.Source.Archive.Path = f.archive
	}
	if changed("reply") {
		cfg.Reply.Enabled = f.reply
	}
	if changed("notify") {
		cfg.Notify.Telegram.Enabled = f.notify
	}
	if changed("no-color") && f.noColor {
		color := false
		cfg.Output.Color = &color
	}
}

// setup loads config and builds the logger shared by every command.
func (a *app) setup() (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(a.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	debug := a.debug || cfg.Debug
	logger, err := a.newLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	if resolved == "" {
		resolved = "(defaults)"
	}
	logger.Info("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", debug),
	)
	return cfg, logger, nil
}

func runCmd(a *app) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search, filter, score, and classify posts (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, flags)
		},
	}
	addRunFlags(cmd, flags)
	return cmd
}

func (a *app) run(cmd *cobra.Command, flags *runFlags) error {
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	flags.apply(cfg, cmd.Flags().Changed)
	if err := cfg.Validate(); err != nil {
		return err
	}
	for i, k := range cfg.Search.Keywords {
		cfg.Search.Keywords[i] = strings.TrimSpace(k)
	}
	format, err := cli.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	prepCtx, cancel := withTimeout(ctx, cfg.Embedding.Timeout)
	index, err := pipeline.PrepareKeywords(prepCtx, components.embedder, cfg.Search.Keywords)
	cancel()
	if err != nil {
		return fmt.Errorf("embed keywords: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithKeywordIndex(index),
		pipeline.WithParallelism(cfg.Search.Parallelism),
		pipeline.WithTimeouts(pipeline.Timeouts{
			Search: cfg.Source.Timeout,
			Embed:  cfg.Embedding.Timeout,
		}),
	}
	if components.drafter != nil {
		opts = append(opts, pipeline.WithDrafter(components.drafter))
	}
	p := pipeline.New(components.source, components.embedder, components.scorer, components.classifier, opts...)

	result, err := p.Run(ctx, pipeline.Params{
		Keywords:     cfg.Search.Keywords,
		LookbackDays: cfg.Search.LookbackDays,
		Limit:        cfg.Search.Limit,
		Sort:         cfg.Search.Sort,
		TimeFilter:   cfg.Search.TimeFilter,
	})
	if err != nil {
		return err
	}

	if err := cli.WriteRunResult(a.stdout, result, format, cli.Options{
		Color:          cfg.Output.ColorOrDefault(),
		ContentPreview: cfg.Output.ContentPreview,
	}); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if format != cli.OutputJSON {
		if err := cli.WriteSummary(a.stderr, result); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if components.notifier != nil {
		sent, failed := components.notifier.Notify(ctx, result)
		logger.Info("telegram notifications", zap.Int("sent", sent), zap.Int("failed", failed))
	}
	return nil
}

func scoreCmd(a *app) *cobra.Command {
	var keywords []string
	cmd := &cobra.Command{
		Use:   "score [text]",
		Short: "Print the similarity of a text against every keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cmd.Flags().Changed("keyword") {
				cfg.Search.Keywords = keywords
			}

			embedder, err := newEmbedder(cfg, logger)
			if err != nil {
				return err
			}
			defer embedder.Close()
			scorer, err := newScorer(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context(), cfg.Embedding.Timeout)
			defer cancel()
			index, err := pipeline.PrepareKeywords(ctx, embedder, cfg.Search.Keywords)
			if err != nil {
				return fmt.Errorf("embed keywords: %w", err)
			}
			vec, err := embedder.Embed(ctx, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("embed text: %w", err)
			}
			return writeScores(a.stdout, index, vec, scorer.Threshold())
		},
	}
	cmd.Flags().StringArrayVarP(&keywords, "keyword", "k", nil, "keyword to score against (repeatable)")
	return cmd
}

func writeScores(w io.Writer, index *vector.KeywordIndex, vec []float32, threshold float64) error {
	scores, ok, err := index.Scores(vec)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(w, "text has a zero-magnitude embedding; every score is 0")
	}
	best := 0.0
	for i, phrase := range index.Phrases() {
		if _, err := fmt.Fprintf(w, "%-32s %.4f\n", phrase, scores[i]); err != nil {
			return err
		}
		if i == 0 || scores[i] > best {
			best = scores[i]
		}
	}
	verdict := "not relevant"
	if best > threshold {
		verdict = "relevant"
	}
	_, err = fmt.Fprintf(w, "\nbest %.4f, threshold %.2f: %s\n", best, threshold, verdict)
	return err
}

func classifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text]",
		Short: "Assign a context label to a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			c, err := newClassifier(cfg, logger)
			if err != nil {
				return err
			}
			label := c.Classify(cmd.Context(), strings.Join(args, " "))
			_, err = fmt.Fprintln(a.stdout, label)
			return err
		},
	}
}

func keywordsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keywords",
		Short: "List the configured search keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(a.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			for _, k := range cfg.Search.Keywords {
				if _, err := fmt.Fprintln(a.stdout, k); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "postscout %s\n", version)
		},
	}
}
