package item

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Bundle is the output of one pipeline run.
type Bundle struct {
	// Items are ordered highest score first, after truncation. Derived items
	// that survived the budget are included.
	Items []Item

	// Correlations are the derived items among Items, in the same order.
	Correlations []Item

	Truncated bool
	Stats     Stats
}

// SourceStats records what happened to one source during a run.
type SourceStats struct {
	Hits   int
	Misses int
	Items  int
	Err    string
}

// Stats holds per-source cache and fetch outcomes.
type Stats struct {
	Sources map[Source]*SourceStats
}

func NewStats() Stats {
	return Stats{Sources: map[Source]*SourceStats{}}
}

func (s *Stats) entry(src Source) *SourceStats {
	if s.Sources == nil {
		s.Sources = map[Source]*SourceStats{}
	}
	e, ok := s.Sources[src]
	if !ok {
		e = &SourceStats{}
		s.Sources[src] = e
	}
	return e
}

func (s *Stats) Hit(src Source, items int) {
	e := s.entry(src)
	e.Hits++
	e.Items = items
}

func (s *Stats) Miss(src Source, items int) {
	e := s.entry(src)
	e.Misses++
	e.Items = items
}

// Fail records a miss whose fetch failed.
func (s *Stats) Fail(src Source, err error) {
	e := s.entry(src)
	e.Misses++
	e.Items = 0
	e.Err = err.Error()
}

func (s Stats) TotalHits() int {
	return lo.SumBy(lo.Values(s.Sources), func(e *SourceStats) int { return e.Hits })
}

func (s Stats) TotalMisses() int {
	return lo.SumBy(lo.Values(s.Sources), func(e *SourceStats) int { return e.Misses })
}

// AllHits reports whether every source was served from the cache.
func (s Stats) AllHits() bool {
	return len(s.Sources) > 0 && s.TotalMisses() == 0
}

// Errored returns the sources whose fetch failed, in canonical order.
func (s Stats) Errored() []Source {
	var out []Source
	for src, e := range s.Sources {
		if e.Err != "" {
			out = append(out, src)
		}
	}
	SortSources(out)
	return out
}

// Ordered returns the sources present in the stats, in canonical order.
func (s Stats) Ordered() []Source {
	out := lo.Keys(s.Sources)
	SortSources(out)
	return out
}

func SortSources(srcs []Source) {
	slices.SortFunc(srcs, func(a, b Source) int {
		return SourceIndex(a) - SourceIndex(b)
	})
}

// FetchError wraps a failure of a source's fetch collaborator.
type FetchError struct {
	Source Source
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
