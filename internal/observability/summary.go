package observability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// ChangeSummary lists the versions that entered the snapshot in a window.
type ChangeSummary struct {
	Since      time.Time
	Until      time.Time
	PlanRuns   int
	Bundles    []string
	Components []string
	Platforms  []string
}

// Summarize collects the new values of plan.version_changed events in
// [since, until) and groups them by snapshot section.
func Summarize(log EventLog, layout models.SnapshotLayout, since, until time.Time) (*ChangeSummary, error) {
	events, err := log.Read(EventFilter{Since: &since, Until: &until, TypePrefix: "plan."})
	if err != nil {
		return nil, fmt.Errorf("reading plan events: %w", err)
	}

	sets := map[string]map[string]bool{
		layout.BundleKey:    {},
		layout.ComponentKey: {},
		layout.PlatformKey:  {},
	}
	s := &ChangeSummary{Since: since, Until: until}
	for _, event := range events {
		switch event.Type {
		case "plan.completed":
			s.PlanRuns++
		case "plan.version_changed":
			category, _ := event.Data["category"].(string)
			value, _ := event.Data["new_value"].(string)
			if set, ok := sets[category]; ok && value != "" {
				set[value] = true
			}
		}
	}
	s.Bundles = sortedSet(sets[layout.BundleKey])
	s.Components = sortedSet(sets[layout.ComponentKey])
	s.Platforms = sortedSet(sets[layout.PlatformKey])
	return s, nil
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	if len(out) > 0 && !core.IsExactVersion(out[0]) {
		sort.Strings(out)
		return out
	}
	return core.SortVersions(out)
}

// Markdown renders the summary. The window end is exclusive, so the last
// day shown is the day before Until.
func (s *ChangeSummary) Markdown() string {
	start := s.Since.Format("2006-01-02")
	end := s.Until.Add(-24 * time.Hour).Format("2006-01-02")

	var b strings.Builder
	fmt.Fprintf(&b, "# Test summary: %s to %s\n\n", start, end)
	sections := []struct {
		title    string
		versions []string
	}{
		{"Development Bundles", s.Bundles},
		{"Component Releases", s.Components},
		{"Platform Releases", s.Platforms},
	}
	for _, sec := range sections {
		fmt.Fprintf(&b, "## %s\n", sec.title)
		if len(sec.versions) == 0 {
			b.WriteString("- (none)\n")
		}
		for _, v := range sec.versions {
			fmt.Fprintf(&b, "- %s\n", v)
		}
		b.WriteString("\n")
	}

	var parts []string
	if n := len(s.Bundles); n > 0 {
		parts = append(parts, plural(n, "development bundle"))
	}
	if n := len(s.Components); n > 0 {
		parts = append(parts, plural(n, "component release"))
	}
	if n := len(s.Platforms); n > 0 {
		parts = append(parts, plural(n, "platform release"))
	}
	if len(parts) == 0 {
		fmt.Fprintf(&b, "No new versions were tested across %s.\n", plural(s.PlanRuns, "plan run"))
	} else {
		fmt.Fprintf(&b, "Tested %s across %s.\n", strings.Join(parts, ", "), plural(s.PlanRuns, "plan run"))
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
