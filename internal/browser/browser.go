package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/matheuskafuri/devcontext/internal/item"
)

var ErrNoLink = errors.New("item has no link")

// launch starts the platform opener. Tests replace it.
var launch = func(rawURL string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL).Start()
	case "windows":
		// rundll32 rather than cmd /c start, which would interpret the URL.
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	default:
		return exec.Command("xdg-open", rawURL).Start()
	}
}

// Validate accepts absolute http and https URLs only.
func Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open URL with scheme %q (only http/https allowed)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: no host", rawURL)
	}
	return nil
}

func Open(rawURL string) error {
	if err := Validate(rawURL); err != nil {
		return err
	}
	return launch(rawURL)
}

// Link returns the URL an item points at. Correlations have none of their own.
func Link(it item.Item) (string, error) {
	if l := it.Attr("link"); l != "" {
		return l, nil
	}
	if l := it.Attr("url"); l != "" {
		return l, nil
	}
	return "", fmt.Errorf("%s: %w", it.Key(), ErrNoLink)
}

// OpenItem opens the link of an item.
func OpenItem(it item.Item) error {
	l, err := Link(it)
	if err != nil {
		return err
	}
	return Open(l)
}
