package feed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/matheuskafuri/devcontext/internal/item"
)

// Fetcher is the capability every source collaborator provides. Failures are
// reported as *item.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, params item.FetchParams) ([]item.Item, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, params item.FetchParams) ([]item.Item, error)

func (f FetcherFunc) Fetch(ctx context.Context, params item.FetchParams) ([]item.Item, error) {
	return f(ctx, params)
}

// Registry maps sources to their fetch collaborators.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[item.Source]Fetcher
}

func NewRegistry() *Registry {
	return &Registry{fetchers: map[item.Source]Fetcher{}}
}

// Register sets the fetcher of a source, replacing any previous one.
func (r *Registry) Register(src item.Source, f Fetcher) {
	r.mu.Lock()
	r.fetchers[src] = f
	r.mu.Unlock()
}

func (r *Registry) Get(src item.Source) (Fetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[src]
	return f, ok
}

// Sources returns the registered sources in canonical order.
func (r *Registry) Sources() []item.Source {
	r.mu.RLock()
	srcs := lo.Keys(r.fetchers)
	r.mu.RUnlock()
	item.SortSources(srcs)
	return srcs
}

// inRange reports whether it falls in the requested range. Undated items and
// open ranges always match.
func inRange(it item.Item, tr item.Interval) bool {
	if tr.IsZero() || it.When.IsZero() {
		return true
	}
	return it.When.Gap(tr) == 0
}

func itemID(link string) string {
	h := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%x", h[:16])
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
