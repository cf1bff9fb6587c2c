package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// DefaultShortlistSize is how many of the newest component minors an active
// platform is tested against.
const DefaultShortlistSize = 2

// PlanInput carries everything the planner needs for one run.
type PlanInput struct {
	Diff   models.Node
	Layout models.SnapshotLayout
	// PlatformReleases are the platform minors of the current snapshot.
	PlatformReleases []string
	// ComponentReleases are the component minors of the current snapshot.
	ComponentReleases []string
	// ShortlistSize defaults to DefaultShortlistSize when zero.
	ShortlistSize int
	Policy        models.SupportPolicy
	// Catalog is optional. When set, component tests on platforms the version
	// is not yet published for carry a warning comment.
	Catalog *CatalogResult
}

// TestMatrixPlanner turns a snapshot diff into test instructions.
type TestMatrixPlanner interface {
	Plan(ctx context.Context, in PlanInput) (models.InstructionSet, error)
}

type testMatrixPlanner struct {
	events EventLogger
}

// NewTestMatrixPlanner creates a planner. events may be nil.
func NewTestMatrixPlanner(events EventLogger) TestMatrixPlanner {
	return &testMatrixPlanner{events: events}
}

// Plan applies the bundle, platform and component rules and returns their union.
func (p *testMatrixPlanner) Plan(ctx context.Context, in PlanInput) (models.InstructionSet, error) {
	size := in.ShortlistSize
	if size == 0 {
		size = DefaultShortlistSize
	}
	shortlist, err := LatestVersions(in.ComponentReleases, size)
	if err != nil {
		return nil, fmt.Errorf("selecting component shortlist: %w", err)
	}
	active := ActivePlatformVersions(in.Policy, in.PlatformReleases)

	result := models.InstructionSet{}
	if _, ok := in.Diff[in.Layout.BundleKey]; ok {
		result.Union(p.bundleRule(ctx, active))
	}
	if platforms, ok := in.Diff.NodeAt(in.Layout.PlatformKey); ok {
		result.Union(p.platformRule(ctx, in, platforms, shortlist))
	}
	if components, ok := in.Diff.NodeAt(in.Layout.ComponentKey); ok {
		result.Union(p.componentRule(ctx, in, components, shortlist, active))
	}
	return result, nil
}

// bundleRule tests the development bundle on the newest and oldest active platforms.
func (p *testMatrixPlanner) bundleRule(ctx context.Context, active []string) models.InstructionSet {
	out := models.InstructionSet{}
	if len(active) == 0 {
		slogcontext.FromCtx(ctx).Warn("bundle changed but no platform is active, skipping bundle tests")
		return out
	}
	newest, _ := LatestVersions(active, 1)
	oldest, _ := EarliestVersions(active, 1)
	for _, platform := range append(newest, oldest...) {
		out.Add(models.TestInstruction{Platform: platform, Component: models.BundleComponent})
	}
	return out
}

// platformRule tests a changed platform against its pins when in maintenance
// and against the component shortlist when active.
func (p *testMatrixPlanner) platformRule(ctx context.Context, in PlanInput, changed models.Node, shortlist []string) models.InstructionSet {
	logger := slogcontext.FromCtx(ctx)
	known := toSet(in.PlatformReleases)
	listed := toSet(shortlist)

	out := models.InstructionSet{}
	for _, platform := range changed.Keys() {
		if !known[platform] {
			p.violation(ctx, "platform", platform, fmt.Sprintf("platform %s is not in the list of releases %v", platform, SortVersions(in.PlatformReleases)))
			continue
		}
		entry := in.Policy.For(platform)
		if entry.IsActive() {
			for _, component := range shortlist {
				out.Add(models.TestInstruction{Platform: platform, Component: component})
			}
			continue
		}
		if len(entry.Pinned) == 0 {
			logger.Warn("maintenance platform has no pinned component versions", "platform", platform)
			continue
		}
		for _, pin := range entry.Pinned {
			if !listed[pin] {
				p.violation(ctx, "pin", pin, fmt.Sprintf("pinned component %s of platform %s is not in the list of releases %v", pin, platform, shortlist))
				continue
			}
			out.Add(models.TestInstruction{Platform: platform, Component: pin})
		}
	}
	return out
}

// componentRule tests a changed component minor on every active platform.
func (p *testMatrixPlanner) componentRule(ctx context.Context, in PlanInput, changed models.Node, shortlist, active []string) models.InstructionSet {
	listed := toSet(shortlist)

	out := models.InstructionSet{}
	for _, component := range changed.Keys() {
		if !listed[component] {
			p.violation(ctx, "component", component, fmt.Sprintf("component %s is not in the list of releases %v", component, shortlist))
			continue
		}
		version, _ := changed.LeafAt(component)
		for _, platform := range active {
			instr := models.TestInstruction{Platform: platform, Component: component}
			if in.Catalog != nil && version != "" && in.Catalog.Checked(version) && !in.Catalog.Available(version, platform) {
				instr.Comment = fmt.Sprintf("WARNING: %s is not yet published in the catalog for %s", version, platform)
			}
			out.Add(instr)
		}
	}
	return out
}

func (p *testMatrixPlanner) violation(ctx context.Context, kind, version, msg string) {
	err := fmt.Errorf("%s: %w", msg, ErrPolicyViolation)
	slogcontext.FromCtx(ctx).Warn("skipping test instruction", "kind", kind, "version", version, "error", err)
	if p.events != nil {
		_ = p.events.LogEvent("plan.policy_violation", map[string]any{
			"kind":    kind,
			"version": version,
			"message": msg,
		})
	}
}

// JobSuffix maps a component minor to the job-name suffix: dots become
// hyphens and "-x" is appended. The bundle component keeps its name.
func JobSuffix(component string) string {
	if component == models.BundleComponent {
		return component
	}
	return strings.ReplaceAll(component, ".", "-") + "-x"
}

// TestCommand renders the trigger command for one instruction.
func TestCommand(componentName string, instr models.TestInstruction) string {
	return fmt.Sprintf("/test %s-stable-%s-e2e-%s", instr.Platform, componentName, JobSuffix(instr.Component))
}

// RenderTestCommands renders an instruction set as sorted trigger-file lines.
// Instructions with a comment also produce a "# comment" line.
func RenderTestCommands(componentName string, set models.InstructionSet) []string {
	seen := make(map[string]bool)
	var lines []string
	add := func(line string) {
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	for instr := range set {
		if instr.Comment != "" {
			add("# " + instr.Comment)
		}
		add(TestCommand(componentName, instr))
	}
	sort.Strings(lines)
	return lines
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}
