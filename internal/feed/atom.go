package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/matheuskafuri/devcontext/internal/item"
	"github.com/matheuskafuri/devcontext/internal/summary"
)

const DefaultGitHubURL = "https://github.com"

// AtomFetcher reads the releases feed of GitHub repositories and turns each
// entry into a release item.
type AtomFetcher struct {
	Repos   []string
	BaseURL string
	Weight  float64
	Logger  *zap.Logger

	parser *gofeed.Parser
}

func NewAtomFetcher(repos []string, logger *zap.Logger) *AtomFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AtomFetcher{
		Repos:   repos,
		BaseURL: DefaultGitHubURL,
		Weight:  0.5,
		Logger:  logger,
		parser:  gofeed.NewParser(),
	}
}

// Fetch returns releases of all repos in the requested range. It fails only
// when no repository could be read.
func (f *AtomFetcher) Fetch(ctx context.Context, params item.FetchParams) ([]item.Item, error) {
	var (
		items []item.Item
		errs  []error
	)
	for _, repo := range f.Repos {
		got, err := f.fetchRepo(ctx, repo, params)
		if err != nil {
			f.Logger.Warn("reading releases feed", zap.String("repo", repo), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		items = append(items, got...)
	}
	if len(errs) > 0 && len(errs) == len(f.Repos) {
		return nil, &item.FetchError{Source: item.GitHub, Err: errors.Join(errs...)}
	}
	return items, nil
}

func (f *AtomFetcher) fetchRepo(ctx context.Context, repo string, params item.FetchParams) ([]item.Item, error) {
	url := strings.TrimRight(f.BaseURL, "/") + "/" + repo + "/releases.atom"
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", repo, err)
	}

	items := make([]item.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		// Undated entries keep a zero interval and rank as stale.
		var when item.Interval
		if entry.UpdatedParsed != nil {
			when = item.At(*entry.UpdatedParsed)
		} else if entry.PublishedParsed != nil {
			when = item.At(*entry.PublishedParsed)
		}

		desc := entry.Content
		if desc == "" {
			desc = entry.Description
		}

		it := item.Item{
			ID:     itemID(entry.Link),
			Source: item.GitHub,
			Kind:   item.KindRelease,
			When:   when,
			Title:  repo + " " + entry.Title,
			Body:   truncate(summary.Condense(desc), 300),
			Raw:    entry,
			Weight: f.Weight,
			Attrs:  map[string]string{"repo": repo, "link": entry.Link},
		}
		if inRange(it, params.TimeRange) {
			items = append(items, it)
		}
	}
	return items, nil
}
