package intent

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"

	"github.com/matheuskafuri/devcontext/internal/item"
)

// Budget carries the limits a query inherits unless it names its own.
type Budget struct {
	MaxChars int
	MaxItems int
	Horizon  time.Duration
}

var domainKeywords = map[item.Source][]string{
	item.Calendar: {
		"meeting", "schedule", "calendar", "event", "appointment", "available",
		"free", "busy", "conflict", "standup", "agenda", "invite",
	},
	item.GitHub: {
		"github", "repo", "repository", "pull request", "pr", "commit", "deploy",
		"deployment", "release", "merge", "build", "ci",
	},
	item.Slack: {
		"slack", "message", "channel", "thread", "mention", "dm", "unread",
	},
	item.Jira: {
		"jira", "ticket", "issue", "sprint", "epic", "story", "backlog", "bug",
	},
}

// Domains returns the sources a query refers to, in canonical order. A query
// that names none refers to all of them.
func Domains(query string) []item.Source {
	tokens := tokenize(query)
	lower := strings.ToLower(query)

	var out []item.Source
	for _, src := range item.AllSources() {
		for _, kw := range domainKeywords[src] {
			if matchKeyword(kw, tokens, lower) {
				out = append(out, src)
				break
			}
		}
	}
	if len(out) == 0 {
		return item.AllSources()
	}
	return out
}

func matchKeyword(kw string, tokens []string, lower string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(lower, kw)
	}
	return slices.ContainsFunc(tokens, func(t string) bool {
		return t == kw || t == kw+"s"
	})
}

var (
	daysPattern  = regexp.MustCompile(`(?:next\s+)?(\d+)\s+days?`)
	countPattern = regexp.MustCompile(`(?:next|first|top|upcoming)\s+(\d+)\s+(?:items?|events?|meetings?|things?)`)
)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysToMonday counts days until the following Monday; on a Monday it is 7.
func daysToMonday(t time.Time) int {
	if d := (8 - int(t.Weekday())) % 7; d > 0 {
		return d
	}
	return 7
}

// TimeRange resolves the period a query talks about. Queries without a time
// reference get today widened by horizon on both sides.
func TimeRange(query string, now time.Time, horizon time.Duration) item.Interval {
	lower := strings.ToLower(query)
	today := startOfDay(now)
	day := func(offset int) item.Interval {
		start := today.AddDate(0, 0, offset)
		return item.Between(start, start.AddDate(0, 0, 1))
	}

	switch {
	case strings.Contains(lower, "next week"):
		toMonday := daysToMonday(now)
		start := today.AddDate(0, 0, toMonday)
		return item.Between(start, start.AddDate(0, 0, 7))
	case strings.Contains(lower, "this week"):
		toMonday := daysToMonday(now)
		return item.Between(today, today.AddDate(0, 0, toMonday))
	case strings.Contains(lower, "yesterday"):
		return day(-1)
	case strings.Contains(lower, "tomorrow"):
		return day(1)
	case strings.Contains(lower, "today"), strings.Contains(lower, "tonight"):
		return day(0)
	}

	if m := daysPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return item.Between(today, today.AddDate(0, 0, n))
		}
	}

	return item.Between(today.Add(-horizon), today.AddDate(0, 0, 1).Add(horizon))
}

// Keywords extracts the distinctive words of a query in order of appearance.
func Keywords(query string) []string {
	var out []string
	for _, t := range tokenize(query) {
		t = strings.TrimSuffix(strings.TrimSuffix(t, "'s"), "’s")
		if len([]rune(t)) < 3 || stopWords[t] || isNumber(t) {
			continue
		}
		out = append(out, t)
	}
	return lo.Uniq(out)
}

// Analyze builds the intent of a query.
func Analyze(query string, now time.Time, budget Budget) item.Intent {
	maxItems := budget.MaxItems
	if m := countPattern.FindStringSubmatch(strings.ToLower(query)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			maxItems = n
		}
	}
	return item.NewIntent(
		Domains(query),
		TimeRange(query, now, budget.Horizon),
		Keywords(query),
		maxItems,
		budget.MaxChars,
	)
}

func isNumber(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

var stopWords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true, "from": true,
	"its": true, "this": true, "that": true, "are": true, "was": true, "were": true,
	"been": true, "being": true, "have": true, "has": true, "had": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "not": true, "nor": true, "how": true, "what": true,
	"when": true, "where": true, "who": true, "which": true, "why": true, "all": true,
	"each": true, "every": true, "both": true, "few": true, "more": true, "most": true,
	"other": true, "some": true, "such": true, "than": true, "too": true, "very": true,
	"just": true, "about": true, "into": true, "over": true, "after": true, "before": true,
	"between": true, "under": true, "above": true, "out": true, "off": true, "our": true,
	"your": true, "you": true, "they": true, "them": true, "their": true, "any": true,
	"show": true, "tell": true, "give": true, "get": true, "need": true, "know": true,
	"there": true, "going": true, "happening": true, "anything": true, "else": true,
	"today": true, "tonight": true, "tomorrow": true, "yesterday": true, "week": true,
	"next": true, "last": true, "days": true, "day": true, "upcoming": true,
	"first": true, "top": true, "items": true, "things": true,
}
