package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheuskafuri/devcontext/internal/item"
)

// Tuesday.
var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func day(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDomains(t *testing.T) {
	tests := []struct {
		query string
		want  []item.Source
	}{
		{"any deployments for acme/api today?", []item.Source{item.GitHub}},
		{"what meetings do I have", []item.Source{item.Calendar}},
		{"prep for my 1:1", item.AllSources()},
		{"jira issues and slack mentions before the release", []item.Source{item.GitHub, item.Slack, item.Jira}},
		{"open pull request reviews", []item.Source{item.GitHub}},
		{"", item.AllSources()},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Domains(tt.query), tt.query)
	}
}

func TestDomainsDoesNotMatchInsideWords(t *testing.T) {
	// "pr" must not match "project" and "ci" must not match "decision".
	assert.Equal(t, item.AllSources(), Domains("project decision"))
}

func TestTimeRange(t *testing.T) {
	tests := []struct {
		query      string
		start, end time.Time
	}{
		{"what's on today", day(3, 10), day(3, 11)},
		{"anything tomorrow?", day(3, 11), day(3, 12)},
		{"what happened yesterday", day(3, 9), day(3, 10)},
		{"meetings this week", day(3, 10), day(3, 16)},
		{"plan for next week", day(3, 16), day(3, 23)},
		{"the next 3 days", day(3, 10), day(3, 13)},
		{"release status", day(3, 8), day(3, 13)},
	}
	for _, tt := range tests {
		got := TimeRange(tt.query, now, 48*time.Hour)
		assert.Equal(t, item.Between(tt.start, tt.end), got, tt.query)
	}
}

func TestDaysToMonday(t *testing.T) {
	assert.Equal(t, 6, daysToMonday(now))
	assert.Equal(t, 7, daysToMonday(day(3, 9)))
	assert.Equal(t, 1, daysToMonday(day(3, 15)))
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"status", "acme/api", "release"},
		Keywords("What's the status of the acme/api release today?"))
	assert.Equal(t, []string{"deploy", "api"}, Keywords("deploy Deploy api"))
	assert.Empty(t, Keywords("is it on at 10"))
}

func TestAnalyze(t *testing.T) {
	in := Analyze("top 5 items about billing tomorrow", now, Budget{MaxChars: 2000, MaxItems: 20, Horizon: 24 * time.Hour})
	require.NoError(t, in.Validate())

	assert.Equal(t, 5, in.MaxItems)
	assert.Equal(t, 2000, in.MaxChars)
	assert.Equal(t, []string{"billing"}, in.Keywords)
	assert.Equal(t, item.AllSources(), in.Domains)
	assert.Equal(t, item.Between(day(3, 11), day(3, 12)), in.TimeRange)
}

func TestAnalyzeKeepsBudget(t *testing.T) {
	in := Analyze("release review", now, Budget{MaxChars: 500, MaxItems: 3, Horizon: time.Hour})
	assert.Equal(t, 3, in.MaxItems)
	assert.Equal(t, 500, in.MaxChars)
	assert.Equal(t, []item.Source{item.GitHub}, in.Domains)
}
