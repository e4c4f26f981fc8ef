package item

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrInvalidIntent is returned for intents that cannot yield a meaningful bundle.
var ErrInvalidIntent = errors.New("invalid intent")

// Intent describes what a query asks about. Build it with NewIntent and treat
// it as read-only afterwards.
type Intent struct {
	Domains   []Source
	TimeRange Interval
	Keywords  []string
	MaxItems  int
	MaxChars  int
}

// NewIntent copies its slices so later changes by the caller are not observed.
func NewIntent(domains []Source, timeRange Interval, keywords []string, maxItems, maxChars int) Intent {
	return Intent{
		Domains:   slices.Clone(domains),
		TimeRange: timeRange,
		Keywords:  slices.Clone(keywords),
		MaxItems:  maxItems,
		MaxChars:  maxChars,
	}
}

// Validate reports whether the intent is well formed. maxItems of zero means
// no item cap.
func (in Intent) Validate() error {
	if in.MaxChars <= 0 {
		return fmt.Errorf("%w: max chars must be positive, got %d", ErrInvalidIntent, in.MaxChars)
	}
	if in.MaxItems < 0 {
		return fmt.Errorf("%w: max items must not be negative, got %d", ErrInvalidIntent, in.MaxItems)
	}
	for _, d := range in.Domains {
		if d == Derived {
			return fmt.Errorf("%w: %q is not a fetchable domain", ErrInvalidIntent, d)
		}
		if _, err := ParseSource(string(d)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidIntent, err)
		}
	}
	tr := in.TimeRange
	if !tr.End.IsZero() && tr.End.Before(tr.Start) {
		return fmt.Errorf("%w: time range ends before it starts", ErrInvalidIntent)
	}
	return nil
}

func (in Intent) Wants(s Source) bool {
	return slices.Contains(in.Domains, s)
}

// Params returns what fetch collaborators receive for this intent.
func (in Intent) Params() FetchParams {
	return FetchParams{TimeRange: in.TimeRange, Keywords: slices.Clone(in.Keywords)}
}

// FetchParams is the input of a fetch collaborator.
type FetchParams struct {
	TimeRange Interval
	Keywords  []string
}

// Args renders the params as a canonical argument map for cache keys.
// Keyword order and case do not matter.
func (p FetchParams) Args() map[string]string {
	args := map[string]string{}
	if !p.TimeRange.Start.IsZero() {
		args["from"] = p.TimeRange.Start.UTC().Format(time.RFC3339)
	}
	if !p.TimeRange.End.IsZero() {
		args["to"] = p.TimeRange.End.UTC().Format(time.RFC3339)
	}
	if len(p.Keywords) > 0 {
		kws := make([]string, 0, len(p.Keywords))
		for _, k := range p.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		slices.Sort(kws)
		args["keywords"] = strings.Join(slices.Compact(kws), ",")
	}
	return args
}
