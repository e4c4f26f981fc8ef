package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releases = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Release notes from devcontext</title>
  <entry>
    <id>tag:github.com,2008:Repository/1/v0.4.0</id>
    <updated>2026-03-01T10:00:00Z</updated>
    <link rel="alternate" type="text/html" href="https://github.com/matheuskafuri/devcontext/releases/tag/v0.4.0"/>
    <title>Faster correlation</title>
  </entry>
  <entry>
    <id>tag:github.com,2008:Repository/1/v0.3.0</id>
    <updated>2026-02-01T10:00:00Z</updated>
    <link rel="alternate" type="text/html" href="https://github.com/matheuskafuri/devcontext/releases/tag/v0.3.0"/>
    <title>v0.3.0</title>
  </entry>
</feed>`

func serve(t *testing.T, body string, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCheckFindsNewerRelease(t *testing.T) {
	c := &Checker{FeedURL: serve(t, releases, http.StatusOK)}
	res := c.Check(context.Background(), "v0.3.0")
	require.NotNil(t, res)
	assert.Equal(t, "0.4.0", res.LatestVersion)
	assert.Equal(t, "https://github.com/matheuskafuri/devcontext/releases/tag/v0.4.0", res.URL)
}

func TestCheckUpToDate(t *testing.T) {
	c := &Checker{FeedURL: serve(t, releases, http.StatusOK)}
	assert.Nil(t, c.Check(context.Background(), "0.4.0"))
}

func TestCheckFailuresAreSilent(t *testing.T) {
	assert.Nil(t, (&Checker{FeedURL: serve(t, "nope", http.StatusInternalServerError)}).Check(context.Background(), "0.1.0"))
	assert.Nil(t, (&Checker{FeedURL: serve(t, "not a feed", http.StatusOK)}).Check(context.Background(), "0.1.0"))
}

func TestCheckIgnoresOlderRelease(t *testing.T) {
	c := &Checker{FeedURL: serve(t, releases, http.StatusOK)}
	assert.Nil(t, c.Check(context.Background(), "v0.5.1"))
}

func TestCheckSkipsDevBuilds(t *testing.T) {
	c := &Checker{FeedURL: serve(t, releases, http.StatusOK)}
	assert.Nil(t, c.Check(context.Background(), "dev"))
	assert.Nil(t, c.Check(context.Background(), ""))
}
