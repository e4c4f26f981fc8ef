package summary

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/matheuskafuri/devcontext/internal/item"
)

const (
	// DefaultMarker is appended to bodies cut to fit the budget.
	DefaultMarker = " […]"

	// Separator joins title and body in the rendered form.
	Separator = ": "

	// TagTruncated marks items whose body was shortened.
	TagTruncated = "truncated"

	charsPerToken = 4
)

// Summarizer fits ranked items into a character and item budget.
type Summarizer struct {
	Marker string
}

func New() *Summarizer {
	return &Summarizer{Marker: DefaultMarker}
}

// Summarize walks items in order and keeps the longest prefix that fits.
// The first item that does not fit whole is shortened when its title still
// fits, and ends the walk either way. maxItems <= 0 means no item cap.
func (s *Summarizer) Summarize(items []item.Item, maxChars, maxItems int) ([]item.Item, bool) {
	out := []item.Item{}
	used := 0
	for _, it := range items {
		if maxItems > 0 && len(out) >= maxItems {
			return out, true
		}
		n := RenderedLen(it)
		if used+n <= maxChars {
			out = append(out, it)
			used += n
			continue
		}
		if short, ok := s.shorten(it, maxChars-used); ok {
			out = append(out, short)
		}
		return out, true
	}
	return out, false
}

// shorten cuts the body of it so its rendered form fits in room.
func (s *Summarizer) shorten(it item.Item, room int) (item.Item, bool) {
	titleLen := utf8.RuneCountInString(it.Title)
	if titleLen > room {
		return item.Item{}, false
	}

	short := it
	short.Tags = append(slices.Clone(it.Tags), TagTruncated)
	short.Body = ""

	budget := room - titleLen - utf8.RuneCountInString(Separator) - utf8.RuneCountInString(s.Marker)
	if budget > 0 {
		if prefix := cutWords(Condense(it.Body), budget); prefix != "" {
			short.Body = prefix + s.Marker
		}
	}
	return short, true
}

// RenderedLen is the length in runes of the item as it would be rendered:
// the title, plus separator and condensed body when there is one.
func RenderedLen(it item.Item) int {
	n := utf8.RuneCountInString(it.Title)
	if body := Condense(it.Body); body != "" {
		n += utf8.RuneCountInString(Separator) + utf8.RuneCountInString(body)
	}
	return n
}

// Render returns the rendered form counted by RenderedLen.
func Render(it item.Item) string {
	if body := Condense(it.Body); body != "" {
		return it.Title + Separator + body
	}
	return it.Title
}

// markupTag matches an opening or closing tag with well-formed attributes.
// Comparisons in plain text such as "p99 < 200ms" or "a<b; x >= 3" are not tags.
var markupTag = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9-]*(?:\s+[A-Za-z_:][-A-Za-z0-9_:.]*(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'<>=]+))?)*\s*/?>`)

// Condense strips markup tags and collapses whitespace.
func Condense(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(markupTag.ReplaceAllString(s, " ")), " ")
}

// cutWords returns at most n runes of s, preferring to end on a word boundary.
func cutWords(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := runes[:n]
	for i := len(cut) - 1; i > n/2; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

// Excerpt returns the first sentence of s, or its first n runes.
func Excerpt(s string, n int) string {
	s = Condense(s)
	if s == "" {
		return ""
	}
	for i, c := range s {
		if c == '.' && i > 20 && i < n {
			return s[:i+1]
		}
	}
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}

// CharsForTokens converts a token budget into a character budget, assuming
// roughly four characters per token.
func CharsForTokens(tokens int) int {
	return tokens * charsPerToken
}

// EstimateTokens approximates the token count of a rendered length.
func EstimateTokens(chars int) int {
	return (chars + charsPerToken - 1) / charsPerToken
}
