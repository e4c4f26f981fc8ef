package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheuskafuri/devcontext/internal/assembler"
	"github.com/matheuskafuri/devcontext/internal/browser"
	"github.com/matheuskafuri/devcontext/internal/cache"
	"github.com/matheuskafuri/devcontext/internal/config"
	"github.com/matheuskafuri/devcontext/internal/correlate"
	"github.com/matheuskafuri/devcontext/internal/feed"
	"github.com/matheuskafuri/devcontext/internal/intent"
	"github.com/matheuskafuri/devcontext/internal/item"
	"github.com/matheuskafuri/devcontext/internal/render"
	"github.com/matheuskafuri/devcontext/internal/signal"
)

var errNoSources = errors.New("no sources configured")

// pipeline is everything one invocation needs to assemble context.
type pipeline struct {
	cache     *cache.Cache[[]item.Item]
	fetchers  *feed.Registry
	ranker    *signal.Ranker
	assembler *assembler.Assembler
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel())
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if version == "dev" && cfg.Log.Level == "" {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = level
	loggerConfig.OutputPaths = []string{"stderr"}
	if cfg.Log.File != "" {
		loggerConfig.OutputPaths = []string{cfg.Log.File}
	}
	return loggerConfig.Build()
}

// newRegistry wires fixture and release-feed fetchers from config and flags.
func newRegistry(cfg *config.Config, fixtures string, now time.Time, logger *zap.Logger) (*feed.Registry, error) {
	if fixtures == "" {
		fixtures = cfg.Sources.Fixtures
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := feed.NewRegistry()
	if fixtures != "" {
		items, err := feed.LoadFixtures(fixtures, now)
		if err != nil {
			return nil, err
		}
		reg = feed.FixtureRegistry(items)
	}
	if repos := cfg.Sources.GitHub.Repos; len(repos) > 0 {
		reg.Register(item.GitHub, feed.NewAtomFetcher(repos, logger.Named("github")))
	}
	if len(reg.Sources()) == 0 {
		return nil, fmt.Errorf("%w: set sources.fixtures or sources.github.repos in %s, or pass --fixtures", errNoSources, configPath())
	}
	return reg, nil
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultConfigPath()
}

func newPipeline(cfg *config.Config, logger *zap.Logger, fixtures string, now func() time.Time) (*pipeline, error) {
	fetchers, err := newRegistry(cfg, fixtures, now(), logger)
	if err != nil {
		return nil, err
	}

	c := cache.New[[]item.Item](cache.Options{
		TTLs:       cfg.CacheTTLs(),
		DefaultTTL: cfg.DefaultTTL(),
		Now:        now,
		Logger:     logger.Named("cache"),
	})
	ranker := signal.New(cfg.RankerConfig(), now)

	return &pipeline{
		cache:    c,
		fetchers: fetchers,
		ranker:   ranker,
		assembler: assembler.New(assembler.Options{
			Cache:              c,
			Fetchers:           fetchers,
			Ranker:             ranker,
			Correlator:         correlate.New(cfg.CorrelatorConfig(), nil),
			CorrelationSources: cfg.CorrelationSources(),
			FetchTimeout:       cfg.FetchTimeout(),
			RunTimeout:         cfg.RunTimeout(),
			Concurrency:        cfg.Concurrency(),
			Logger:             logger.Named("assembler"),
		}),
	}, nil
}

// buildIntent analyzes the query and applies flag overrides on top.
func buildIntent(cfg *config.Config, query string, now time.Time) (item.Intent, error) {
	budget := intent.Budget{MaxChars: cfg.MaxChars(), MaxItems: cfg.MaxItems(), Horizon: cfg.Horizon()}
	if flagMaxChars != 0 {
		budget.MaxChars = flagMaxChars
	}
	if flagMaxItems >= 0 {
		budget.MaxItems = flagMaxItems
	}
	in := intent.Analyze(query, now, budget)

	if len(flagDomains) > 0 {
		in.Domains = nil
		for _, name := range flagDomains {
			src, err := item.ParseSource(name)
			if err != nil {
				return item.Intent{}, fmt.Errorf("invalid --domains value: %w", err)
			}
			in.Domains = append(in.Domains, src)
		}
	}
	for _, kw := range flagKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			in.Keywords = append(in.Keywords, strings.ToLower(kw))
		}
	}
	if flagSince != "" {
		d, err := parseSince(flagSince)
		if err != nil {
			return item.Intent{}, fmt.Errorf("invalid --since value: %w", err)
		}
		in.TimeRange = item.Between(now.Add(-d), now)
	}
	return in, in.Validate()
}

func runAssemble(cmd *cobra.Command, args []string, plain bool) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := newPipeline(cfg, logger, flagFixtures, time.Now)
	if err != nil {
		return err
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go p.cache.RunSweeper(sweepCtx, cfg.SweepInterval())

	now := time.Now()
	in, err := buildIntent(cfg, strings.Join(args, " "), now)
	if err != nil {
		return err
	}
	logger.Debug("intent",
		zap.Strings("domains", lo.Map(in.Domains, func(s item.Source, _ int) string { return string(s) })),
		zap.Strings("keywords", in.Keywords),
		zap.Stringer("range", in.TimeRange),
	)

	runs := max(flagRuns, 1)
	for run := 1; run <= runs; run++ {
		b, err := p.assembler.Assemble(ctx, in)
		if err != nil {
			return fmt.Errorf("assembling context: %w", err)
		}
		if runs > 1 {
			fmt.Fprintf(cmd.ErrOrStderr(), "run %d: %d cached, %d fetched\n", run, b.Stats.TotalHits(), b.Stats.TotalMisses())
		}
		if run == runs {
			write(cmd.OutOrStdout(), p, b, in, time.Now(), plain)
			return openItem(b, flagOpen)
		}
	}
	return nil
}

// openItem opens the link of the n-th item (1-based); zero opens nothing.
func openItem(b item.Bundle, n int) error {
	if n <= 0 {
		return nil
	}
	if n > len(b.Items) {
		return fmt.Errorf("--open %d: only %d items assembled", n, len(b.Items))
	}
	if err := browser.OpenItem(b.Items[n-1]); err != nil {
		return fmt.Errorf("opening item %d: %w", n, err)
	}
	return nil
}

func write(w io.Writer, p *pipeline, b item.Bundle, in item.Intent, now time.Time, plain bool) {
	if plain {
		fmt.Fprint(w, render.Prompt(b, now))
	} else {
		fmt.Fprint(w, render.Terminal(b, now))
	}
	if flagExplain {
		for _, it := range b.Items {
			fmt.Fprintln(w)
			fmt.Fprintln(w, render.Breakdown(it, p.ranker.ScoreWithBreakdown(it, in)))
		}
	}
}

// parseSince accepts the same durations as the config file, and only
// positive ones.
func parseSince(s string) (time.Duration, error) {
	d, err := config.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
