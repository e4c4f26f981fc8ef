package render

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/matheuskafuri/devcontext/internal/item"
	"github.com/matheuskafuri/devcontext/internal/signal"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func sampleBundle() item.Bundle {
	corr := item.Item{
		ID: "c1", Source: item.Derived, Kind: item.KindCorrelation,
		Title: "Deployment during meeting: Release Review / Deploy acme/api v2.3",
		Body:  `"Release Review" (calendar) and "Deploy acme/api v2.3" (github) happen within the same window.`,
		When:  item.At(now.Add(-10 * time.Minute)),
	}
	evt := item.Item{
		ID: "evt-1", Source: item.Calendar, Kind: item.KindEvent, Title: "Release Review",
		When: item.Between(now.Add(-30*time.Minute), now.Add(30*time.Minute)),
	}
	dep := item.Item{
		ID: "dep-1", Source: item.GitHub, Kind: item.KindDeployment, Title: "Deploy acme/api v2.3",
		Body: "rolling   out\n to prod", When: item.At(now.Add(-10 * time.Minute)),
	}
	msg := item.Item{
		ID: "m1", Source: item.Slack, Kind: item.KindMessage, Title: "@you can you look?",
		When: item.At(now.Add(-2 * time.Hour)), Tags: []string{item.TagUnread, item.TagMention},
	}

	stats := item.NewStats()
	stats.Miss(item.Calendar, 1)
	stats.Hit(item.GitHub, 2)
	stats.Miss(item.Slack, 1)
	stats.Fail(item.Jira, &item.FetchError{Source: item.Jira, Err: errors.New("boom")})

	return item.Bundle{
		Items:        []item.Item{corr, evt, msg, dep},
		Correlations: []item.Item{corr},
		Truncated:    true,
		Stats:        stats,
	}
}

func TestPrompt(t *testing.T) {
	out := Prompt(sampleBundle(), now)

	assert.Contains(t, out, "## Correlations\n- Deployment during meeting")
	assert.Contains(t, out, "- Release Review (happening now, until 30 minutes from now)")
	assert.Contains(t, out, "- Deploy acme/api v2.3 (10 minutes ago)\n  rolling out to prod\n")
	assert.Contains(t, out, "- @you can you look? (2 hours ago, #unread, #mention)")
	assert.Contains(t, out, "Some items were left out")
	assert.Contains(t, out, "(4 items, ~")

	order := []string{"## Correlations", "## Calendar", "## GitHub", "## Slack"}
	last := -1
	for _, h := range order {
		i := strings.Index(out, h)
		assert.Greater(t, i, last, h)
		last = i
	}
}

func TestPromptEmpty(t *testing.T) {
	out := Prompt(item.Bundle{}, now)
	assert.Contains(t, out, "Nothing relevant found.")
	assert.Contains(t, out, "(0 items, ~0 tokens)")
	assert.NotContains(t, out, "left out")
}

func TestWhen(t *testing.T) {
	assert.Equal(t, "", When(item.Interval{}, now))
	assert.Equal(t, "2 hours from now", When(item.At(now.Add(2*time.Hour)), now))
	assert.Equal(t, "3 days ago", When(item.Between(now.Add(-72*time.Hour), now.Add(-71*time.Hour)), now))
	assert.Equal(t, "now", When(item.At(now), now))
}

func TestFooter(t *testing.T) {
	assert.Equal(t, []string{
		"calendar: 1 item, fetched",
		"github: 2 items, cached",
		"slack: 1 item, fetched",
		"jira: failed (fetching jira: boom)",
	}, Footer(sampleBundle().Stats))
}

func TestTerminal(t *testing.T) {
	out := Terminal(sampleBundle(), now)
	for _, want := range []string{
		"devcontext", "Correlations", "Release Review", "rolling out to prod",
		"github: 2 items, cached", "truncated to fit the budget",
	} {
		assert.Contains(t, out, want)
	}
}

func TestBreakdown(t *testing.T) {
	out := Breakdown(item.Item{Title: "Release Review"}, signal.Breakdown{Keyword: 1, Recency: 1, Domain: 1, Final: 0.85})
	assert.Contains(t, out, "Score breakdown: Release Review")
	assert.Contains(t, out, "Final: 0.850")
}
