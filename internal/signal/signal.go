package signal

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/matheuskafuri/devcontext/internal/item"
)

// Weights scale each scoring term (0.0–1.0).
type Weights struct {
	Keyword float64
	Recency float64
	Domain  float64
	Static  float64
}

type Config struct {
	Weights Weights

	// HalfLives sets how fast an item's recency decays, per source.
	HalfLives       map[item.Source]time.Duration
	DefaultHalfLife time.Duration

	// DomainFloor is the domain term for items outside the intent's domains.
	DomainFloor float64
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{Keyword: 0.40, Recency: 0.25, Domain: 0.20, Static: 0.15},
		HalfLives: map[item.Source]time.Duration{
			item.Calendar: 72 * time.Hour,
			item.GitHub:   24 * time.Hour,
			item.Slack:    4 * time.Hour,
			item.Jira:     48 * time.Hour,
			item.Derived:  24 * time.Hour,
		},
		DefaultHalfLife: 24 * time.Hour,
		DomainFloor:     0.1,
	}
}

// Breakdown shows how each component contributed to the final score.
type Breakdown struct {
	Keyword float64
	Recency float64
	Domain  float64
	Static  float64
	Final   float64
}

type Ranker struct {
	cfg Config
	now func() time.Time
}

// New creates a Ranker. A nil now uses the wall clock.
func New(cfg Config, now func() time.Time) *Ranker {
	if now == nil {
		now = time.Now
	}
	if cfg.DefaultHalfLife <= 0 {
		cfg.DefaultHalfLife = 24 * time.Hour
	}
	return &Ranker{cfg: cfg, now: now}
}

// Rank scores copies of items against the intent and orders them by score,
// most recent first on ties. The input slice is left untouched.
func (r *Ranker) Rank(items []item.Item, intent item.Intent) []item.Item {
	if len(items) == 0 {
		return []item.Item{}
	}
	now := r.now()
	keywords := normalizeKeywords(intent.Keywords)

	ranked := slices.Clone(items)
	for i := range ranked {
		ranked[i].Score = r.score(ranked[i], intent, keywords, now).Final
	}
	slices.SortStableFunc(ranked, compareRanked)
	return ranked
}

// ScoreWithBreakdown scores a single item with component details.
func (r *Ranker) ScoreWithBreakdown(it item.Item, intent item.Intent) Breakdown {
	return r.score(it, intent, normalizeKeywords(intent.Keywords), r.now())
}

func (r *Ranker) score(it item.Item, intent item.Intent, keywords []string, now time.Time) Breakdown {
	b := Breakdown{
		Keyword: keywordScore(it.Title, it.Body, keywords),
		Recency: recencyScore(it.When, now, r.halfLife(it.Source)),
		Domain:  r.domainScore(it.Source, intent),
		Static:  clamp01(it.Weight),
	}
	w := r.cfg.Weights
	b.Final = b.Keyword*w.Keyword +
		b.Recency*w.Recency +
		b.Domain*w.Domain +
		b.Static*w.Static
	return b
}

func compareRanked(a, b item.Item) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	// Items without a timestamp are treated as oldest.
	switch {
	case a.When.IsZero() && !b.When.IsZero():
		return 1
	case !a.When.IsZero() && b.When.IsZero():
		return -1
	}
	if c := b.When.Start.Compare(a.When.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(item.SourceIndex(a.Source), item.SourceIndex(b.Source)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func (r *Ranker) halfLife(src item.Source) time.Duration {
	if hl, ok := r.cfg.HalfLives[src]; ok && hl > 0 {
		return hl
	}
	return r.cfg.DefaultHalfLife
}

// recencyScore decays exponentially with the distance from now: 1.0 inside
// the interval, 0.5 one half-life away. Missing timestamps score 0.
func recencyScore(when item.Interval, now time.Time, halfLife time.Duration) float64 {
	if when.IsZero() {
		return 0.0
	}
	d := when.Distance(now)
	return math.Exp(-math.Ln2 * d.Hours() / halfLife.Hours())
}

// domainScore is 1.0 for requested sources. Correlations always count as
// requested since they only link fetched items.
func (r *Ranker) domainScore(src item.Source, intent item.Intent) float64 {
	if src == item.Derived || intent.Wants(src) {
		return 1.0
	}
	return r.cfg.DomainFloor
}

// keywordScore returns the fraction of keywords found in the item text.
func keywordScore(title, body string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0.0
	}
	text := strings.ToLower(title + " " + body)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && !slices.Contains(out, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
