package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/matheuskafuri/devcontext/internal/item"
	"github.com/matheuskafuri/devcontext/internal/signal"
	"github.com/matheuskafuri/devcontext/internal/summary"
)

type group struct {
	source item.Source
	items  []item.Item
}

// groups splits the bundle's items by source, correlations first and the
// rest in canonical order. Rank order is kept inside each group.
func groups(b item.Bundle) []group {
	bySource := map[item.Source][]item.Item{}
	for _, it := range b.Items {
		bySource[it.Source] = append(bySource[it.Source], it)
	}
	var out []group
	for _, src := range append([]item.Source{item.Derived}, item.AllSources()...) {
		if items := bySource[src]; len(items) > 0 {
			out = append(out, group{source: src, items: items})
			delete(bySource, src)
		}
	}
	// Sources outside the canonical set still show up, last.
	rest := make([]item.Source, 0, len(bySource))
	for src := range bySource {
		rest = append(rest, src)
	}
	item.SortSources(rest)
	for _, src := range rest {
		out = append(out, group{source: src, items: bySource[src]})
	}
	return out
}

func heading(src item.Source) string {
	switch src {
	case item.Derived:
		return "Correlations"
	case item.GitHub:
		return "GitHub"
	}
	s := string(src)
	if s == "" {
		return "Other"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// When describes an item's time relative to now.
func When(iv item.Interval, now time.Time) string {
	switch {
	case iv.IsZero():
		return ""
	case !iv.IsPoint() && iv.Contains(now):
		return "happening now, until " + humanize.RelTime(iv.End, now, "ago", "from now")
	}
	return humanize.RelTime(iv.Start, now, "ago", "from now")
}

func meta(it item.Item, now time.Time) string {
	var parts []string
	if w := When(it.When, now); w != "" {
		parts = append(parts, w)
	}
	for _, tag := range it.Tags {
		parts = append(parts, "#"+tag)
	}
	return strings.Join(parts, ", ")
}

// Footer summarizes what each source contributed.
func Footer(s item.Stats) []string {
	var lines []string
	for _, src := range s.Ordered() {
		e := s.Sources[src]
		switch {
		case e.Err != "":
			lines = append(lines, fmt.Sprintf("%s: failed (%s)", src, e.Err))
		case e.Hits > 0:
			lines = append(lines, fmt.Sprintf("%s: %s, cached", src, english.Plural(e.Items, "item", "")))
		default:
			lines = append(lines, fmt.Sprintf("%s: %s, fetched", src, english.Plural(e.Items, "item", "")))
		}
	}
	return lines
}

// Prompt renders the bundle as plain text to paste into a model's context.
func Prompt(b item.Bundle, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Context as of %s\n", now.Format("Mon Jan 2 15:04 MST"))
	if len(b.Items) == 0 {
		sb.WriteString("\nNothing relevant found.\n")
	}

	chars := 0
	for _, g := range groups(b) {
		fmt.Fprintf(&sb, "\n## %s\n", heading(g.source))
		for _, it := range g.items {
			chars += summary.RenderedLen(it)
			fmt.Fprintf(&sb, "- %s", it.Title)
			if m := meta(it, now); m != "" {
				fmt.Fprintf(&sb, " (%s)", m)
			}
			sb.WriteString("\n")
			if body := summary.Condense(it.Body); body != "" {
				fmt.Fprintf(&sb, "  %s\n", body)
			}
		}
	}

	if b.Truncated {
		sb.WriteString("\nSome items were left out to fit the budget.\n")
	}
	fmt.Fprintf(&sb, "\n(%s, ~%s tokens)\n",
		english.Plural(len(b.Items), "item", ""), humanize.Comma(int64(summary.EstimateTokens(chars))))
	return sb.String()
}

// Terminal renders the bundle with styles for an interactive shell.
func Terminal(b item.Bundle, now time.Time) string {
	var lines []string
	lines = append(lines, "", "  "+titleStyle.Render("devcontext")+"  "+dimStyle.Render(now.Format("Jan 2 15:04")), "")

	if len(b.Items) == 0 {
		lines = append(lines, "  "+bodyStyle.Render("Nothing relevant found."))
	}

	for _, g := range groups(b) {
		lines = append(lines, "  "+sourceStyle(g.source).Render(heading(g.source)))
		for _, it := range g.items {
			line := "   " + itemTitleStyle.Render(it.Title)
			if m := meta(it, now); m != "" {
				line += "  " + dimStyle.Render(m)
			}
			lines = append(lines, line)
			if body := summary.Condense(it.Body); body != "" {
				lines = append(lines, "     "+bodyStyle.Render(body))
			}
		}
		lines = append(lines, "")
	}

	footer := Footer(b.Stats)
	if b.Truncated {
		footer = append(footer, "truncated to fit the budget")
	}
	if len(footer) > 0 {
		lines = append(lines, statusBarStyle.Render(strings.Join(footer, "  ·  ")))
	}
	return strings.Join(lines, "\n") + "\n"
}

// Breakdown shows how an item's score was put together.
func Breakdown(it item.Item, b signal.Breakdown) string {
	lines := []string{
		"  " + titleStyle.Render("Score breakdown: "+it.Title),
		"",
		fmt.Sprintf("  Keyword match: %.2f", b.Keyword),
		fmt.Sprintf("  Recency:       %.2f", b.Recency),
		fmt.Sprintf("  Domain:        %.2f", b.Domain),
		fmt.Sprintf("  Static weight: %.2f", b.Static),
		"",
		fmt.Sprintf("  Final: %.3f", b.Final),
	}
	styled := make([]string, len(lines))
	for i, l := range lines {
		styled[i] = bodyStyle.Render(l)
	}
	return strings.Join(styled, "\n")
}
