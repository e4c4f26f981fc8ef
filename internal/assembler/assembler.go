package assembler

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matheuskafuri/devcontext/internal/cache"
	"github.com/matheuskafuri/devcontext/internal/correlate"
	"github.com/matheuskafuri/devcontext/internal/feed"
	"github.com/matheuskafuri/devcontext/internal/item"
	"github.com/matheuskafuri/devcontext/internal/signal"
	"github.com/matheuskafuri/devcontext/internal/summary"
)

// ErrNoFetcher is recorded for a requested source nothing can fetch.
var ErrNoFetcher = errors.New("no fetcher registered")

type Stage int32

const (
	Idle Stage = iota
	FetchingPerSource
	Correlating
	Ranking
	Summarizing
	Done
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingPerSource:
		return "fetching"
	case Correlating:
		return "correlating"
	case Ranking:
		return "ranking"
	case Summarizing:
		return "summarizing"
	case Done:
		return "done"
	}
	return "unknown"
}

type Options struct {
	Cache      *cache.Cache[[]item.Item]
	Fetchers   *feed.Registry
	Ranker     *signal.Ranker
	Correlator *correlate.Correlator
	Summarizer *summary.Summarizer

	// CorrelationSources are fetched on every run, whatever the intent's
	// domains, so heuristics have something to pair with.
	CorrelationSources []item.Source

	FetchTimeout time.Duration
	RunTimeout   time.Duration
	Concurrency  int
	Logger       *zap.Logger

	// OnStage, when set, is called on every stage transition of every run.
	// Concurrent runs call it concurrently, each with its own run ID.
	OnStage func(runID string, s Stage)
}

type Assembler struct {
	opts Options
}

func New(opts Options) *Assembler {
	if opts.Cache == nil {
		opts.Cache = cache.New[[]item.Item](cache.Options{})
	}
	if opts.Fetchers == nil {
		opts.Fetchers = feed.NewRegistry()
	}
	if opts.Ranker == nil {
		opts.Ranker = signal.New(signal.DefaultConfig(), nil)
	}
	if opts.Correlator == nil {
		opts.Correlator = correlate.New(correlate.DefaultConfig(), nil)
	}
	if opts.Summarizer == nil {
		opts.Summarizer = summary.New()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Assembler{opts: opts}
}

// run is the state of one Assemble call. Concurrent calls never share it.
type run struct {
	id      string
	log     *zap.Logger
	onStage func(runID string, s Stage)
}

func (r *run) enter(s Stage) {
	r.log.Debug("stage", zap.Stringer("stage", s))
	if r.onStage != nil {
		r.onStage(r.id, s)
	}
}

type fetchResult struct {
	items []item.Item
	hit   bool
	err   error
}

// Assemble builds the context bundle for an intent. Only an invalid intent is
// an error; source failures are reported in the bundle's stats.
func (a *Assembler) Assemble(ctx context.Context, in item.Intent) (item.Bundle, error) {
	if err := in.Validate(); err != nil {
		return item.Bundle{}, err
	}

	id := uuid.NewString()
	log := a.opts.Logger.With(zap.String("run", id))
	r := &run{id: id, log: log, onStage: a.opts.OnStage}
	start := time.Now()

	if a.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.RunTimeout)
		defer cancel()
	}

	sources, missing := a.sources(in)
	params := in.Params()
	args := params.Args()

	r.enter(FetchingPerSource)
	results := make([]fetchResult, len(sources))
	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = a.fetch(ctx, src, params, args)
			return nil
		})
	}
	_ = g.Wait()

	stats := item.NewStats()
	for _, src := range missing {
		stats.Fail(src, ErrNoFetcher)
		log.Warn("source has no fetcher", zap.String("source", string(src)))
	}

	var merged []item.Item
	seen := map[string]bool{}
	for i, src := range sources {
		res := results[i]
		switch {
		case res.err != nil:
			stats.Fail(src, res.err)
			log.Warn("fetch failed", zap.String("source", string(src)), zap.Error(res.err))
			continue
		case res.hit:
			stats.Hit(src, len(res.items))
		default:
			stats.Miss(src, len(res.items))
		}
		for _, it := range res.items {
			if k := it.Key(); !seen[k] {
				seen[k] = true
				merged = append(merged, it)
			}
		}
	}

	r.enter(Correlating)
	derived := a.opts.Correlator.Correlate(merged)

	r.enter(Ranking)
	ranked := a.opts.Ranker.Rank(append(slices.Clip(merged), derived...), in)

	r.enter(Summarizing)
	kept, truncated := a.opts.Summarizer.Summarize(ranked, in.MaxChars, in.MaxItems)

	bundle := item.Bundle{
		Items: kept,
		Correlations: lo.Filter(kept, func(it item.Item, _ int) bool {
			return it.Source == item.Derived
		}),
		Truncated: truncated,
		Stats:     stats,
	}

	log.Info("context assembled",
		zap.Int("candidates", len(ranked)),
		zap.Int("items", len(bundle.Items)),
		zap.Int("correlations", len(bundle.Correlations)),
		zap.Bool("truncated", truncated),
		zap.Int("hits", stats.TotalHits()),
		zap.Int("misses", stats.TotalMisses()),
		zap.Duration("took", time.Since(start)),
	)
	r.enter(Done)
	return bundle, nil
}

// sources returns the sources to fetch in canonical order, and the requested
// ones without a fetcher.
func (a *Assembler) sources(in item.Intent) (fetch, missing []item.Source) {
	want := lo.Uniq(append(slices.Clone(in.Domains), a.opts.CorrelationSources...))
	for _, src := range want {
		if _, ok := a.opts.Fetchers.Get(src); ok {
			fetch = append(fetch, src)
		} else if in.Wants(src) {
			missing = append(missing, src)
		}
	}
	item.SortSources(fetch)
	item.SortSources(missing)
	return fetch, missing
}

func (a *Assembler) fetch(ctx context.Context, src item.Source, params item.FetchParams, args map[string]string) fetchResult {
	key := cache.Key(string(src), "fetch", args)
	if items, ok := a.opts.Cache.Get(key); ok {
		a.opts.Logger.Debug("cache hit", zap.String("source", string(src)), zap.Int("items", len(items)))
		return fetchResult{items: cloneItems(items), hit: true}
	}

	f, _ := a.opts.Fetchers.Get(src)
	items, err := a.call(ctx, f, src, params)
	if err != nil {
		return fetchResult{err: err}
	}
	a.opts.Cache.Set(key, cloneItems(items), 0)
	return fetchResult{items: items}
}

// cloneItems keeps cache entries and bundles from sharing tags and attrs.
func cloneItems(items []item.Item) []item.Item {
	return lo.Map(items, func(it item.Item, _ int) item.Item { return it.Clone() })
}

// call runs one fetch under the per-source timeout. A fetcher that ignores
// its context is abandoned and whatever it returns later is dropped.
func (a *Assembler) call(ctx context.Context, f feed.Fetcher, src item.Source, params item.FetchParams) ([]item.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.FetchTimeout)
	defer cancel()

	type reply struct {
		items []item.Item
		err   error
	}
	ch := make(chan reply, 1)
	go func() {
		items, err := f.Fetch(ctx, params)
		ch <- reply{items, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			var fe *item.FetchError
			if errors.As(r.err, &fe) {
				return nil, r.err
			}
			return nil, &item.FetchError{Source: src, Err: r.err}
		}
		items := cloneItems(r.items)
		for i := range items {
			if items[i].Source == "" {
				items[i].Source = src
			}
		}
		return items, nil
	case <-ctx.Done():
		return nil, &item.FetchError{Source: src, Err: ctx.Err()}
	}
}
