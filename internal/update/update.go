package update

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/mmcdole/gofeed"
)

const DefaultFeedURL = "https://github.com/matheuskafuri/devcontext/releases.atom"

// Result holds the outcome of a version check.
type Result struct {
	LatestVersion string
	URL           string
}

// Checker reads a releases feed to find the newest published version.
type Checker struct {
	FeedURL string
	Timeout time.Duration
}

// Check reads the project's releases feed to see if a newer version is
// available. Returns nil on any error (non-fatal) and for builds without a
// semantic version, such as "dev".
func Check(ctx context.Context, currentVersion string) *Result {
	return (&Checker{FeedURL: DefaultFeedURL}).Check(ctx, currentVersion)
}

func (c *Checker) Check(ctx context.Context, currentVersion string) *Result {
	current, err := semver.NewVersion(currentVersion)
	if err != nil {
		return nil
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	feed, err := gofeed.NewParser().ParseURLWithContext(c.FeedURL, ctx)
	if err != nil || len(feed.Items) == 0 {
		return nil
	}

	// Entries are newest first.
	entry := feed.Items[0]
	latest, err := semver.NewVersion(tagOf(entry))
	if err != nil || latest.LessThanEqual(current) {
		return nil
	}

	return &Result{LatestVersion: latest.String(), URL: entry.Link}
}

// tagOf prefers the tag in a release link over the free-form entry title.
func tagOf(entry *gofeed.Item) string {
	if strings.Contains(entry.Link, "/releases/tag/") {
		return path.Base(entry.Link)
	}
	return strings.TrimSpace(entry.Title)
}
