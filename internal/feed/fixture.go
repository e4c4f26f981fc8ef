package feed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matheuskafuri/devcontext/internal/config"
	"github.com/matheuskafuri/devcontext/internal/item"
)

// StaticFetcher serves a fixed set of items, filtered by the requested range.
type StaticFetcher struct {
	Source item.Source
	Items  []item.Item
}

func (f *StaticFetcher) Fetch(ctx context.Context, params item.FetchParams) ([]item.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, &item.FetchError{Source: f.Source, Err: err}
	}
	var out []item.Item
	for _, it := range f.Items {
		if inRange(it, params.TimeRange) {
			out = append(out, it)
		}
	}
	return out, nil
}

type fixtureFile struct {
	Items []fixtureItem `yaml:"items"`
}

// fixtureItem times accept RFC 3339 or an offset from load time such as
// "-2h", "+30m" or "+1d".
type fixtureItem struct {
	ID     string            `yaml:"id"`
	Source string            `yaml:"source"`
	Kind   string            `yaml:"kind"`
	Title  string            `yaml:"title"`
	Body   string            `yaml:"body"`
	Start  string            `yaml:"start"`
	End    string            `yaml:"end"`
	Weight float64           `yaml:"weight"`
	Tags   []string          `yaml:"tags"`
	Attrs  map[string]string `yaml:"attrs"`
}

// LoadFixtures reads a YAML fixture file and groups its items by source.
func LoadFixtures(path string, now time.Time) (map[item.Source][]item.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}
	return ParseFixtures(data, now)
}

func ParseFixtures(data []byte, now time.Time) (map[item.Source][]item.Item, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures: %w", err)
	}

	out := map[item.Source][]item.Item{}
	for i, fi := range f.Items {
		src, err := item.ParseSource(fi.Source)
		if err != nil || src == item.Derived {
			return nil, fmt.Errorf("fixture %d: unknown source %q", i, fi.Source)
		}
		if fi.ID == "" || fi.Title == "" {
			return nil, fmt.Errorf("fixture %d: id and title are required", i)
		}
		start, err := parseTime(fi.Start, now)
		if err != nil {
			return nil, fmt.Errorf("fixture %q: start: %w", fi.ID, err)
		}
		end, err := parseTime(fi.End, now)
		if err != nil {
			return nil, fmt.Errorf("fixture %q: end: %w", fi.ID, err)
		}
		when := item.At(start)
		if !end.IsZero() && !start.IsZero() {
			when = item.Between(start, end)
		}

		out[src] = append(out[src], item.Item{
			ID:     fi.ID,
			Source: src,
			Kind:   fi.Kind,
			When:   when,
			Title:  fi.Title,
			Body:   fi.Body,
			Raw:    fi,
			Weight: fi.Weight,
			Tags:   fi.Tags,
			Attrs:  fi.Attrs,
		})
	}
	return out, nil
}

// FixtureRegistry registers one StaticFetcher per source found in fixtures.
func FixtureRegistry(fixtures map[item.Source][]item.Item) *Registry {
	r := NewRegistry()
	for src, items := range fixtures {
		r.Register(src, &StaticFetcher{Source: src, Items: items})
	}
	return r
}

func parseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if s[0] == '+' || s[0] == '-' {
		d, err := config.ParseDuration(s[1:])
		if err != nil {
			return time.Time{}, err
		}
		if s[0] == '-' {
			d = -d
		}
		return now.Add(d), nil
	}
	return time.Parse(time.RFC3339, s)
}
