package item

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Source identifies the service an item came from.
type Source string

const (
	Calendar Source = "calendar"
	GitHub   Source = "github"
	Slack    Source = "slack"
	Jira     Source = "jira"
	Derived  Source = "derived"
)

// AllSources returns the fetchable sources in canonical order.
func AllSources() []Source {
	return []Source{Calendar, GitHub, Slack, Jira}
}

// ParseSource maps a case-insensitive name to a Source.
func ParseSource(name string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(name)))
	switch s {
	case Calendar, GitHub, Slack, Jira, Derived:
		return s, nil
	}
	return "", fmt.Errorf("unknown source %q (valid: calendar, github, slack, jira)", name)
}

// SourceIndex orders sources canonically; unknown sources sort last.
func SourceIndex(s Source) int {
	if i := slices.Index(AllSources(), s); i >= 0 {
		return i
	}
	if s == Derived {
		return len(AllSources())
	}
	return len(AllSources()) + 1
}

const (
	KindEvent       = "event"
	KindIssue       = "issue"
	KindPullRequest = "pull_request"
	KindDeployment  = "deployment"
	KindRelease     = "release"
	KindCommit      = "commit"
	KindMessage     = "message"
	KindCorrelation = "correlation"
)

// Common tags set by fetchers.
const (
	TagUnread  = "unread"
	TagMention = "mention"
	TagUrgent  = "urgent"
)

// Item is the unit flowing through the pipeline. ID is stable across fetches
// of the same entity and unique within Source+Kind.
type Item struct {
	ID     string
	Source Source
	Kind   string
	When   Interval
	Title  string
	Body   string
	Raw    any

	// Score is zero until the ranker runs.
	Score  float64
	Weight float64

	Tags  []string
	Attrs map[string]string
}

// Key is the dedup key of the item.
func (it Item) Key() string {
	return string(it.Source) + "/" + it.Kind + "/" + it.ID
}

// Clone returns a copy that shares no tags or attrs with it. Raw is shared.
func (it Item) Clone() Item {
	it.Tags = slices.Clone(it.Tags)
	it.Attrs = maps.Clone(it.Attrs)
	return it
}

func (it Item) HasTag(tag string) bool {
	return slices.Contains(it.Tags, tag)
}

func (it Item) Attr(name string) string {
	return it.Attrs[name]
}

// Interval is a point in time when End is zero or equal to Start.
type Interval struct {
	Start time.Time
	End   time.Time
}

func At(t time.Time) Interval {
	return Interval{Start: t}
}

// Between returns the interval [a, b], swapping the bounds if needed.
func Between(a, b time.Time) Interval {
	if b.Before(a) {
		a, b = b, a
	}
	return Interval{Start: a, End: b}
}

func (iv Interval) IsZero() bool {
	return iv.Start.IsZero()
}

func (iv Interval) IsPoint() bool {
	return iv.End.IsZero() || iv.End.Equal(iv.Start)
}

// Last returns the end of the interval, or Start for a point.
func (iv Interval) Last() time.Time {
	if iv.IsPoint() {
		return iv.Start
	}
	return iv.End
}

func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.Last())
}

// Distance returns how far t lies outside the interval (zero inside).
func (iv Interval) Distance(t time.Time) time.Duration {
	switch {
	case t.Before(iv.Start):
		return iv.Start.Sub(t)
	case t.After(iv.Last()):
		return t.Sub(iv.Last())
	}
	return 0
}

// Gap returns the time between two intervals, zero when they overlap.
func (iv Interval) Gap(other Interval) time.Duration {
	if other.Start.After(iv.Last()) {
		return other.Start.Sub(iv.Last())
	}
	if iv.Start.After(other.Last()) {
		return iv.Start.Sub(other.Last())
	}
	return 0
}

// Window returns the overlap of two intervals, or the gap between them when
// they do not overlap.
func (iv Interval) Window(other Interval) Interval {
	start := maxTime(iv.Start, other.Start)
	end := minTime(iv.Last(), other.Last())
	if end.Before(start) {
		start, end = end, start
	}
	if start.Equal(end) {
		return At(start)
	}
	return Interval{Start: start, End: end}
}

func (iv Interval) String() string {
	if iv.IsZero() {
		return "-"
	}
	if iv.IsPoint() {
		return iv.Start.Format(time.RFC3339)
	}
	return iv.Start.Format(time.RFC3339) + "/" + iv.End.Format(time.RFC3339)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
