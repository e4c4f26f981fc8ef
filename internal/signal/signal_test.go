package signal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheuskafuri/devcontext/internal/item"
)

var now = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func testRanker() *Ranker {
	return New(DefaultConfig(), func() time.Time { return now })
}

func TestRankEmpty(t *testing.T) {
	got := testRanker().Rank(nil, item.Intent{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecentSortsFirst(t *testing.T) {
	old := item.Item{ID: "a", Source: item.GitHub, Kind: item.KindCommit, Title: "Fix flaky test", When: item.At(now.Add(-48 * time.Hour))}
	recent := old
	recent.ID = "b"
	recent.When = item.At(now.Add(-time.Hour))

	for _, in := range [][]item.Item{{old, recent}, {recent, old}} {
		got := testRanker().Rank(in, item.Intent{Domains: []item.Source{item.GitHub}})
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].ID)
		assert.Greater(t, got[0].Score, got[1].Score)
	}
}

func TestKeywordMatchSortsFirst(t *testing.T) {
	when := item.At(now.Add(-time.Hour))
	plain := item.Item{ID: "a", Source: item.Jira, Kind: item.KindIssue, Title: "Update docs", When: when}
	match := item.Item{ID: "b", Source: item.Jira, Kind: item.KindIssue, Title: "Update docs", Body: "blocks the DEPLOY", When: when}

	intent := item.Intent{Keywords: []string{"deploy"}}
	got := testRanker().Rank([]item.Item{plain, match}, intent)
	assert.Equal(t, "b", got[0].ID)
}

func TestRankDeterministic(t *testing.T) {
	items := []item.Item{
		{ID: "1", Source: item.Slack, Kind: item.KindMessage, Title: "lunch?", When: item.At(now)},
		{ID: "2", Source: item.Calendar, Kind: item.KindEvent, Title: "lunch", When: item.At(now)},
		{ID: "3", Source: item.GitHub, Kind: item.KindCommit, Title: "lunch"},
		{ID: "4", Source: item.Jira, Kind: item.KindIssue, Title: "lunch"},
	}
	intent := item.Intent{}
	r := testRanker()
	first := r.Rank(items, intent)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Rank(items, intent))
	}
	// Equal scores fall back to source order, undated items last.
	assert.Equal(t, []string{"2", "1", "3", "4"}, ids(first))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	items := []item.Item{{ID: "x", Source: item.GitHub, Title: "deploy", When: item.At(now)}}
	testRanker().Rank(items, item.Intent{Keywords: []string{"deploy"}})
	assert.Zero(t, items[0].Score)
}

func TestMissingTimestampOnlyAffectsRecency(t *testing.T) {
	r := testRanker()
	intent := item.Intent{Domains: []item.Source{item.Jira}, Keywords: []string{"outage"}}
	b := r.ScoreWithBreakdown(item.Item{Source: item.Jira, Title: "Outage follow-up", Weight: 0.8}, intent)

	assert.Zero(t, b.Recency)
	assert.Equal(t, 1.0, b.Keyword)
	assert.Equal(t, 1.0, b.Domain)
	assert.Equal(t, 0.8, b.Static)
}

func TestDomainFloor(t *testing.T) {
	r := testRanker()
	intent := item.Intent{Domains: []item.Source{item.Calendar}}

	in := r.ScoreWithBreakdown(item.Item{Source: item.Calendar}, intent)
	out := r.ScoreWithBreakdown(item.Item{Source: item.Slack}, intent)
	derived := r.ScoreWithBreakdown(item.Item{Source: item.Derived}, intent)

	assert.Equal(t, 1.0, in.Domain)
	assert.Equal(t, 0.1, out.Domain)
	assert.Greater(t, out.Domain, 0.0)
	assert.Equal(t, 1.0, derived.Domain)
}

func TestStaticWeightBonus(t *testing.T) {
	when := item.At(now)
	routine := item.Item{ID: "a", Source: item.Jira, Title: "Triage", When: when, Weight: 0.2}
	urgent := item.Item{ID: "b", Source: item.Jira, Title: "Triage", When: when, Weight: 0.9}

	got := testRanker().Rank([]item.Item{routine, urgent}, item.Intent{})
	assert.Equal(t, "b", got[0].ID)
}

func TestRecencyDecay(t *testing.T) {
	hl := 24 * time.Hour
	assert.Equal(t, 1.0, recencyScore(item.At(now), now, hl))
	assert.InDelta(t, 0.5, recencyScore(item.At(now.Add(-24*time.Hour)), now, hl), 1e-9)
	assert.InDelta(t, 0.5, recencyScore(item.At(now.Add(24*time.Hour)), now, hl), 1e-9)
	assert.InDelta(t, 0.25, recencyScore(item.At(now.Add(-48*time.Hour)), now, hl), 1e-9)
	assert.Equal(t, 1.0, recencyScore(item.Between(now.Add(-time.Hour), now.Add(time.Hour)), now, hl))
	assert.Zero(t, recencyScore(item.Interval{}, now, hl))
}

func TestHalfLifePerSource(t *testing.T) {
	r := testRanker()
	when := item.At(now.Add(-4 * time.Hour))
	slack := r.ScoreWithBreakdown(item.Item{Source: item.Slack, When: when}, item.Intent{})
	cal := r.ScoreWithBreakdown(item.Item{Source: item.Calendar, When: when}, item.Intent{})

	assert.InDelta(t, 0.5, slack.Recency, 1e-9)
	assert.Greater(t, cal.Recency, slack.Recency)
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		title, body string
		keywords    []string
		want        float64
	}{
		{"Deploy api", "", []string{"deploy"}, 1.0},
		{"Deploy api", "rollback plan", []string{"deploy", "rollback"}, 1.0},
		{"Deploy api", "", []string{"deploy", "review"}, 0.5},
		{"Standup", "", []string{"deploy"}, 0.0},
		{"Anything", "", nil, 0.0},
	}
	for _, tt := range tests {
		got := keywordScore(tt.title, tt.body, normalizeKeywords(tt.keywords))
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("keywordScore(%q, %q, %v) = %v, want %v", tt.title, tt.body, tt.keywords, got, tt.want)
		}
	}
}

func ids(items []item.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
