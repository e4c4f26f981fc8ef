package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheuskafuri/devcontext/internal/item"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestItemID(t *testing.T) {
	id1 := itemID("https://example.com/post-1")
	id2 := itemID("https://example.com/post-2")
	id1again := itemID("https://example.com/post-1")

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, id1, id1again)
	assert.Len(t, id1, 32)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a long string", 10, "this is..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"こんにちは世界です", 5, "こん..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(item.Slack, &StaticFetcher{Source: item.Slack})
	r.Register(item.Calendar, &StaticFetcher{Source: item.Calendar})

	assert.Equal(t, []item.Source{item.Calendar, item.Slack}, r.Sources())
	_, ok := r.Get(item.Jira)
	assert.False(t, ok)
	_, ok = r.Get(item.Slack)
	assert.True(t, ok)
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(ctx context.Context, p item.FetchParams) ([]item.Item, error) {
		return []item.Item{{ID: "x"}}, nil
	})
	got, err := f.Fetch(context.Background(), item.FetchParams{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStaticFetcherFiltersRange(t *testing.T) {
	f := &StaticFetcher{Source: item.Calendar, Items: []item.Item{
		{ID: "in", When: item.Between(now, now.Add(time.Hour))},
		{ID: "out", When: item.At(now.Add(48 * time.Hour))},
		{ID: "undated"},
	}}
	got, err := f.Fetch(context.Background(), item.FetchParams{TimeRange: item.Between(now.Add(-time.Hour), now.Add(2*time.Hour))})
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "undated"}, []string{got[0].ID, got[1].ID})

	got, err = f.Fetch(context.Background(), item.FetchParams{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestStaticFetcherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&StaticFetcher{Source: item.Jira}).Fetch(ctx, item.FetchParams{})

	var fe *item.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, item.Jira, fe.Source)
}

const fixtureYAML = `
items:
  - id: evt-1
    source: calendar
    kind: event
    title: Release Review
    start: "-30m"
    end: "+30m"
    weight: 0.5
  - id: dep-1
    source: GitHub
    kind: deployment
    title: Deploy api v2.3
    start: "2026-03-10T11:50:00Z"
    attrs:
      repo: acme/api
  - id: msg-1
    source: slack
    kind: message
    title: "@you can you look?"
    start: "-1d"
    tags: [unread, mention]
`

func TestParseFixtures(t *testing.T) {
	got, err := ParseFixtures([]byte(fixtureYAML), now)
	require.NoError(t, err)

	require.Len(t, got[item.Calendar], 1)
	evt := got[item.Calendar][0]
	assert.Equal(t, item.Between(now.Add(-30*time.Minute), now.Add(30*time.Minute)), evt.When)
	assert.Equal(t, 0.5, evt.Weight)

	dep := got[item.GitHub][0]
	assert.Equal(t, item.At(time.Date(2026, 3, 10, 11, 50, 0, 0, time.UTC)), dep.When)
	assert.Equal(t, "acme/api", dep.Attr("repo"))

	msg := got[item.Slack][0]
	assert.Equal(t, item.At(now.Add(-24*time.Hour)), msg.When)
	assert.True(t, msg.HasTag(item.TagMention))
}

func TestParseFixturesErrors(t *testing.T) {
	tests := []string{
		"items: [{id: a, source: email, title: x}]",
		"items: [{id: a, source: derived, title: x}]",
		"items: [{source: slack, title: x}]",
		"items: [{id: a, source: slack, title: x, start: yesterday}]",
		"items: {",
	}
	for _, in := range tests {
		_, err := ParseFixtures([]byte(in), now)
		assert.Error(t, err, in)
	}
}

func TestFixtureRegistry(t *testing.T) {
	fixtures, err := ParseFixtures([]byte(fixtureYAML), now)
	require.NoError(t, err)
	r := FixtureRegistry(fixtures)
	assert.Equal(t, []item.Source{item.Calendar, item.GitHub, item.Slack}, r.Sources())
}

const releasesAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Release notes from api</title>
  <entry>
    <id>tag:github.com,2008:Repository/1/v2.3.0</id>
    <updated>2026-03-10T11:00:00Z</updated>
    <link rel="alternate" type="text/html" href="https://github.com/acme/api/releases/tag/v2.3.0"/>
    <title>v2.3.0</title>
    <content type="html">&lt;p&gt;Faster   deploys&lt;/p&gt;</content>
  </entry>
  <entry>
    <id>tag:github.com,2008:Repository/1/v2.2.0</id>
    <updated>2026-01-01T10:00:00Z</updated>
    <link rel="alternate" type="text/html" href="https://github.com/acme/api/releases/tag/v2.2.0"/>
    <title>v2.2.0</title>
    <content type="html">old</content>
  </entry>
  <entry>
    <id>tag:github.com,2008:Repository/1/nightly</id>
    <link rel="alternate" type="text/html" href="https://github.com/acme/api/releases/tag/nightly"/>
    <title>nightly</title>
  </entry>
</feed>`

func TestAtomFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acme/api/releases.atom" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(releasesAtom))
	}))
	defer srv.Close()

	f := NewAtomFetcher([]string{"acme/api", "acme/missing"}, nil)
	f.BaseURL = srv.URL

	got, err := f.Fetch(context.Background(), item.FetchParams{TimeRange: item.Between(now.Add(-24*time.Hour), now)})
	require.NoError(t, err)
	require.Len(t, got, 2)

	rel := got[0]
	assert.Equal(t, item.GitHub, rel.Source)
	assert.Equal(t, item.KindRelease, rel.Kind)
	assert.Equal(t, "acme/api v2.3.0", rel.Title)
	assert.Equal(t, "Faster deploys", rel.Body)
	assert.Equal(t, "acme/api", rel.Attr("repo"))
	assert.Equal(t, itemID("https://github.com/acme/api/releases/tag/v2.3.0"), rel.ID)
	assert.True(t, rel.When.Start.Equal(time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)), "got %v", rel.When)

	undated := got[1]
	assert.Equal(t, "acme/api nightly", undated.Title)
	assert.True(t, undated.When.IsZero(), "undated entries must not be stamped with the fetch time")
}

func TestAtomFetcherAllReposFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewAtomFetcher([]string{"acme/api"}, nil)
	f.BaseURL = srv.URL

	_, err := f.Fetch(context.Background(), item.FetchParams{})
	var fe *item.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, item.GitHub, fe.Source)
}
