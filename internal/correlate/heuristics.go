package correlate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/dustin/go-humanize/english"
	"github.com/samber/lo"

	"github.com/matheuskafuri/devcontext/internal/item"
)

// Heuristic decides whether an ordered pair of time-adjacent items from
// different sources is worth a derived insight.
type Heuristic struct {
	Name  string
	Label string
	Match func(first, second item.Item) bool
}

func (h Heuristic) Describe(first, second item.Item) string {
	label := h.Label
	if label == "" {
		label = h.Name
	}
	return fmt.Sprintf("%s: %s / %s", label, first.Title, second.Title)
}

// GroupHeuristic looks at the whole fetched set at once. Match returns the
// members an insight is about and its text, or ok = false when there is
// nothing to report.
type GroupHeuristic struct {
	Name  string
	Label string
	Match func(group []item.Item) (members []item.Item, insight string, ok bool)
}

func (h GroupHeuristic) title() string {
	if h.Label == "" {
		return h.Name
	}
	return h.Label
}

// Registry is an ordered set of heuristics. New heuristics are added with
// Register or RegisterGroup without touching existing ones.
type Registry struct {
	mu         sync.RWMutex
	heuristics []Heuristic
	groups     []GroupHeuristic
}

func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry returns a registry holding the built-in heuristics.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, h := range Builtins() {
		_ = r.Register(h)
	}
	for _, h := range GroupBuiltins() {
		_ = r.RegisterGroup(h)
	}
	return r
}

func (r *Registry) Register(h Heuristic) error {
	if h.Name == "" || h.Match == nil {
		return fmt.Errorf("heuristic needs a name and a match func")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.has(h.Name) {
		return fmt.Errorf("heuristic %q already registered", h.Name)
	}
	r.heuristics = append(r.heuristics, h)
	return nil
}

func (r *Registry) RegisterGroup(h GroupHeuristic) error {
	if h.Name == "" || h.Match == nil {
		return fmt.Errorf("heuristic needs a name and a match func")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.has(h.Name) {
		return fmt.Errorf("heuristic %q already registered", h.Name)
	}
	r.groups = append(r.groups, h)
	return nil
}

// has must be called with r.mu held.
func (r *Registry) has(name string) bool {
	return slices.ContainsFunc(r.heuristics, func(x Heuristic) bool { return x.Name == name }) ||
		slices.ContainsFunc(r.groups, func(x GroupHeuristic) bool { return x.Name == name })
}

// Heuristics returns the registered heuristics in registration order.
func (r *Registry) Heuristics() []Heuristic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.heuristics)
}

// Groups returns the registered group heuristics in registration order.
func (r *Registry) Groups() []GroupHeuristic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.groups)
}

// Names lists pair heuristics first, then group heuristics.
func (r *Registry) Names() []string {
	var names []string
	for _, h := range r.Heuristics() {
		names = append(names, h.Name)
	}
	for _, h := range r.Groups() {
		names = append(names, h.Name)
	}
	return names
}

const (
	MeetingOverlapsDeployment    = "meeting-overlaps-deployment"
	MeetingOverlapsUnreadMention = "meeting-overlaps-unread-mention"
	IssueDueOverlapsMeeting      = "issue-due-overlaps-meeting"
	MeetingMentionsRepository    = "meeting-mentions-repository"
	OpenWorkload                 = "open-workload"
)

// WorkloadThreshold is how many open issues and pull requests a set may hold
// before the workload is reported.
const WorkloadThreshold = 10

func Builtins() []Heuristic {
	return []Heuristic{
		{
			Name:  MeetingOverlapsDeployment,
			Label: "Deployment during meeting",
			Match: func(a, b item.Item) bool {
				return isMeeting(a) && isDeployment(b)
			},
		},
		{
			Name:  MeetingOverlapsUnreadMention,
			Label: "Unread mention during meeting",
			Match: func(a, b item.Item) bool {
				return isMeeting(a) && b.Source == item.Slack &&
					b.HasTag(item.TagUnread) && b.HasTag(item.TagMention)
			},
		},
		{
			Name:  IssueDueOverlapsMeeting,
			Label: "Issue due around meeting",
			Match: func(a, b item.Item) bool {
				return isIssue(a) && isMeeting(b)
			},
		},
		{
			Name:  MeetingMentionsRepository,
			Label: "Meeting mentions repository",
			Match: func(a, b item.Item) bool {
				repo := b.Attr("repo")
				return isMeeting(a) && b.Source == item.GitHub && repo != "" &&
					mentionsRepo(a.Title+" "+a.Body, repo)
			},
		},
	}
}

func GroupBuiltins() []GroupHeuristic {
	return []GroupHeuristic{
		{
			Name:  OpenWorkload,
			Label: "Open workload",
			Match: func(group []item.Item) ([]item.Item, string, bool) {
				issues := lo.Filter(group, func(it item.Item, _ int) bool { return isIssue(it) && isOpen(it) })
				prs := lo.Filter(group, func(it item.Item, _ int) bool { return isPullRequest(it) && isOpen(it) })
				if len(issues)+len(prs) <= WorkloadThreshold {
					return nil, "", false
				}
				insight := fmt.Sprintf("You have %s and %s. Consider prioritizing them against upcoming meetings.",
					english.Plural(len(issues), "open issue", ""),
					english.Plural(len(prs), "open pull request", ""))
				return append(issues, prs...), insight, true
			},
		},
	}
}

func isMeeting(it item.Item) bool {
	return it.Source == item.Calendar && it.Kind == item.KindEvent
}

func isDeployment(it item.Item) bool {
	return it.Source == item.GitHub && (it.Kind == item.KindDeployment || it.Kind == item.KindRelease)
}

func isIssue(it item.Item) bool {
	return (it.Source == item.Jira || it.Source == item.GitHub) && it.Kind == item.KindIssue
}

func isPullRequest(it item.Item) bool {
	return it.Source == item.GitHub && it.Kind == item.KindPullRequest
}

// isOpen treats items without a state as open.
func isOpen(it item.Item) bool {
	switch strings.ToLower(it.Attr("state")) {
	case "closed", "merged", "done", "resolved":
		return false
	}
	return true
}

var repoPattern = regexp.MustCompile(`[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+`)

// mentionsRepo reports whether text contains owner/repo, case-insensitively.
func mentionsRepo(text, repo string) bool {
	for _, m := range repoPattern.FindAllString(text, -1) {
		if strings.EqualFold(strings.TrimRight(m, "."), repo) {
			return true
		}
	}
	return false
}
