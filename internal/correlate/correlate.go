package correlate

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/matheuskafuri/devcontext/internal/item"
)

// namespace seeds the deterministic IDs of derived items.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/matheuskafuri/devcontext/correlation"))

type Config struct {
	// Window is the largest gap between two items that still counts as
	// adjacent. Zero means only overlapping items are paired.
	Window time.Duration

	// ScoreFloor is the initial score and static weight of derived items.
	ScoreFloor float64
}

func DefaultConfig() Config {
	return Config{Window: time.Hour, ScoreFloor: 0.9}
}

// Link is the Raw payload of a derived item.
type Link struct {
	Heuristic string
	Members   []string
}

type Correlator struct {
	cfg      Config
	registry *Registry
}

// New creates a Correlator. A nil registry uses the built-in heuristics.
func New(cfg Config, registry *Registry) *Correlator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Correlator{cfg: cfg, registry: registry}
}

// Correlate returns one derived item per (pair, heuristic) match across
// different sources, then one per group heuristic that fires on the whole
// set. Inputs are not modified and their scores are not read.
func (c *Correlator) Correlate(items []item.Item) []item.Item {
	candidates := lo.Filter(items, func(it item.Item, _ int) bool {
		return !it.When.IsZero() && it.Source != item.Derived
	})
	slices.SortStableFunc(candidates, func(a, b item.Item) int {
		if n := a.When.Start.Compare(b.When.Start); n != 0 {
			return n
		}
		return cmp.Compare(a.Key(), b.Key())
	})

	var derived []item.Item
	for i, a := range candidates {
		for _, b := range candidates[i+1:] {
			// Sorted by start: once b starts past a's reach, so do the rest.
			if b.When.Start.Sub(a.When.Last()) > c.cfg.Window {
				break
			}
			if a.Source == b.Source || a.When.Gap(b.When) > c.cfg.Window {
				continue
			}
			for _, h := range c.registry.Heuristics() {
				switch {
				case h.Match(a, b):
					derived = append(derived, c.derive(h, a, b))
				case h.Match(b, a):
					derived = append(derived, c.derive(h, b, a))
				}
			}
		}
	}

	group := lo.Filter(items, func(it item.Item, _ int) bool { return it.Source != item.Derived })
	slices.SortStableFunc(group, func(a, b item.Item) int { return cmp.Compare(a.Key(), b.Key()) })
	for _, h := range c.registry.Groups() {
		if members, insight, ok := h.Match(slices.Clone(group)); ok && len(members) > 0 {
			derived = append(derived, c.deriveGroup(h, members, insight))
		}
	}
	return derived
}

func (c *Correlator) derive(h Heuristic, first, second item.Item) item.Item {
	members := []string{first.Key(), second.Key()}
	id := uuid.NewSHA1(namespace, []byte(h.Name+"|"+strings.Join(members, "|")))

	return item.Item{
		ID:     id.String(),
		Source: item.Derived,
		Kind:   item.KindCorrelation,
		When:   first.When.Window(second.When),
		Title:  h.Describe(first, second),
		Body: fmt.Sprintf("%q (%s) and %q (%s) happen within the same window.",
			first.Title, first.Source, second.Title, second.Source),
		Raw:    Link{Heuristic: h.Name, Members: members},
		Score:  c.cfg.ScoreFloor,
		Weight: c.cfg.ScoreFloor,
		Tags:   []string{h.Name},
		Attrs: map[string]string{
			"heuristic": h.Name,
			"members":   strings.Join(members, ","),
		},
	}
}

func (c *Correlator) deriveGroup(h GroupHeuristic, members []item.Item, insight string) item.Item {
	keys := lo.Map(members, func(it item.Item, _ int) string { return it.Key() })
	slices.Sort(keys)
	keys = slices.Compact(keys)
	id := uuid.NewSHA1(namespace, []byte(h.Name+"|"+strings.Join(keys, "|")))

	return item.Item{
		ID:     id.String(),
		Source: item.Derived,
		Kind:   item.KindCorrelation,
		When:   span(members),
		Title:  h.title(),
		Body:   insight,
		Raw:    Link{Heuristic: h.Name, Members: keys},
		Score:  c.cfg.ScoreFloor,
		Weight: c.cfg.ScoreFloor,
		Tags:   []string{h.Name},
		Attrs: map[string]string{
			"heuristic": h.Name,
			"members":   strings.Join(keys, ","),
		},
	}
}

// span covers the timestamps of the dated members; zero when none is dated.
func span(members []item.Item) item.Interval {
	var iv item.Interval
	for _, m := range members {
		if m.When.IsZero() {
			continue
		}
		if iv.IsZero() {
			iv = item.Interval{Start: m.When.Start, End: m.When.Last()}
			continue
		}
		if m.When.Start.Before(iv.Start) {
			iv.Start = m.When.Start
		}
		if m.When.Last().After(iv.End) {
			iv.End = m.When.Last()
		}
	}
	if iv.End.Equal(iv.Start) {
		iv.End = time.Time{}
	}
	return iv
}
