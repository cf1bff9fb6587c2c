package core

import (
	"context"
	"reflect"
	"testing"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

func testPolicy(entries map[string]models.SupportEntry) models.SupportPolicy {
	p := models.NewSupportPolicy()
	for k, v := range entries {
		p.Platforms[k] = v
	}
	return p
}

func maintenance(pins ...string) models.SupportEntry {
	pinned, _ := models.NormalizePinned(pins)
	return models.SupportEntry{Status: models.SupportMaintenance, Pinned: pinned}
}

func planFor(t *testing.T, events EventLogger, in PlanInput) []models.TestInstruction {
	t.Helper()
	if in.Layout == (models.SnapshotLayout{}) {
		in.Layout = models.DefaultSnapshotLayout()
	}
	set, err := NewTestMatrixPlanner(events).Plan(context.Background(), in)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	return set.Sorted()
}

func instr(platform, component string) models.TestInstruction {
	return models.TestInstruction{Platform: platform, Component: component}
}

func TestPlan_MaintenancePlatformUsesPins(t *testing.T) {
	got := planFor(t, nil, PlanInput{
		Diff:              models.Node{"ocp": models.Node{"4.12": models.Leaf("4.12.2")}},
		PlatformReleases:  []string{"4.12"},
		ComponentReleases: []string{"24.4", "25.3"},
		Policy:            testPolicy(map[string]models.SupportEntry{"4.12": maintenance("25.3")}),
	})

	want := []models.TestInstruction{instr("4.12", "25.3")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
}

func TestPlan_MaintenancePinsOutsideShortlistAreSkipped(t *testing.T) {
	events := &recordingEvents{}
	got := planFor(t, events, PlanInput{
		Diff:              models.Node{"ocp": models.Node{"4.12": models.Leaf("4.12.70")}},
		PlatformReleases:  []string{"4.12", "4.18"},
		ComponentReleases: []string{"23.9", "24.9", "25.3", "25.10"},
		Policy:            testPolicy(map[string]models.SupportEntry{"4.12": maintenance("23.9", "25.3")}),
	})

	want := []models.TestInstruction{instr("4.12", "25.3")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
	violations := events.ofType("plan.policy_violation")
	if len(violations) != 1 {
		t.Fatalf("policy violation events = %d, want 1", len(violations))
	}
	if violations[0].Data["version"] != "23.9" {
		t.Errorf("violation version = %v, want 23.9", violations[0].Data["version"])
	}
}

func TestPlan_UnknownPinIsSkipped(t *testing.T) {
	events := &recordingEvents{}
	got := planFor(t, events, PlanInput{
		Diff:              models.Node{"ocp": models.Node{"4.12": models.Leaf("4.12.2")}},
		PlatformReleases:  []string{"4.12"},
		ComponentReleases: []string{"25.3"},
		Policy:            testPolicy(map[string]models.SupportEntry{"4.12": maintenance("22.9", "25.3")}),
	})

	want := []models.TestInstruction{instr("4.12", "25.3")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
	if n := len(events.ofType("plan.policy_violation")); n != 1 {
		t.Errorf("policy violation events = %d, want 1", n)
	}
}

func TestPlan_ActivePlatformUsesShortlist(t *testing.T) {
	got := planFor(t, nil, PlanInput{
		Diff:              models.Node{"ocp": models.Node{"4.18": models.Leaf("4.18.9")}},
		PlatformReleases:  []string{"4.17", "4.18"},
		ComponentReleases: []string{"24.9", "25.3", "25.10"},
		Policy:            models.NewSupportPolicy(),
	})

	want := []models.TestInstruction{instr("4.18", "25.10"), instr("4.18", "25.3")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
}

func TestPlan_ShortlistSizeIsConfigurable(t *testing.T) {
	got := planFor(t, nil, PlanInput{
		Diff:              models.Node{"ocp": models.Node{"4.18": models.Leaf("4.18.9")}},
		PlatformReleases:  []string{"4.18"},
		ComponentReleases: []string{"24.9", "25.3", "25.10"},
		ShortlistSize:     1,
		Policy:            models.NewSupportPolicy(),
	})

	want := []models.TestInstruction{instr("4.18", "25.10")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
}

func TestPlan_UnknownPlatformIsSkipped(t *testing.T) {
	events := &recordingEvents{}
	got := planFor(t, events, PlanInput{
		Diff:              models.Node{"ocp": models.Node{"4.99": models.Leaf("4.99.0")}},
		PlatformReleases:  []string{"4.18"},
		ComponentReleases: []string{"25.3"},
		Policy:            models.NewSupportPolicy(),
	})

	if len(got) != 0 {
		t.Errorf("Plan() = %v, want empty", got)
	}
	violations := events.ofType("plan.policy_violation")
	if len(violations) != 1 {
		t.Fatalf("policy violation events = %d, want 1", len(violations))
	}
	if violations[0].Data["kind"] != "platform" {
		t.Errorf("violation kind = %v, want %q", violations[0].Data["kind"], "platform")
	}
}

func TestPlan_BundleTestsNewestAndOldestActive(t *testing.T) {
	got := planFor(t, nil, PlanInput{
		Diff:              models.Node{"gpu-main-latest": models.Leaf("sha256:new")},
		PlatformReleases:  []string{"4.12", "4.9", "4.16", "4.14"},
		ComponentReleases: []string{"25.3"},
		Policy:            testPolicy(map[string]models.SupportEntry{"4.9": maintenance("23.9")}),
	})

	want := []models.TestInstruction{
		instr("4.12", models.BundleComponent),
		instr("4.16", models.BundleComponent),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
}

func TestPlan_BundleWithSingleActivePlatform(t *testing.T) {
	got := planFor(t, nil, PlanInput{
		Diff:             models.Node{"gpu-main-latest": models.Leaf("sha256:new")},
		PlatformReleases: []string{"4.18"},
		Policy:           models.NewSupportPolicy(),
	})

	want := []models.TestInstruction{instr("4.18", models.BundleComponent)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
}

func TestPlan_BundleWithoutActivePlatforms(t *testing.T) {
	got := planFor(t, nil, PlanInput{
		Diff:             models.Node{"gpu-main-latest": models.Leaf("sha256:new")},
		PlatformReleases: []string{"4.12"},
		Policy:           testPolicy(map[string]models.SupportEntry{"4.12": maintenance("24.9")}),
	})
	if len(got) != 0 {
		t.Errorf("Plan() = %v, want empty", got)
	}
}

func TestPlan_ComponentTestedOnEveryActivePlatform(t *testing.T) {
	got := planFor(t, nil, PlanInput{
		Diff:              models.Node{"gpu-operator": models.Node{"25.10": models.Leaf("25.10.1")}},
		PlatformReleases:  []string{"4.12", "4.17", "4.18"},
		ComponentReleases: []string{"25.3", "25.10"},
		Policy:            testPolicy(map[string]models.SupportEntry{"4.12": maintenance("24.9")}),
	})

	want := []models.TestInstruction{instr("4.17", "25.10"), instr("4.18", "25.10")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
}

func TestPlan_ComponentOutsideShortlistIsSkipped(t *testing.T) {
	events := &recordingEvents{}
	got := planFor(t, events, PlanInput{
		Diff:              models.Node{"gpu-operator": models.Node{"24.9": models.Leaf("24.9.3")}},
		PlatformReleases:  []string{"4.18"},
		ComponentReleases: []string{"24.9", "25.3", "25.10"},
		Policy:            models.NewSupportPolicy(),
	})

	if len(got) != 0 {
		t.Errorf("Plan() = %v, want empty", got)
	}
	if n := len(events.ofType("plan.policy_violation")); n != 1 {
		t.Errorf("policy violation events = %d, want 1", n)
	}
}

func TestPlan_CatalogGapAddsWarningComment(t *testing.T) {
	catalog := newCatalogResult([]string{"25.10.1"})
	catalog.record("25.10.1", "4.18")

	got := planFor(t, nil, PlanInput{
		Diff:              models.Node{"gpu-operator": models.Node{"25.10": models.Leaf("25.10.1")}},
		PlatformReleases:  []string{"4.17", "4.18"},
		ComponentReleases: []string{"25.3", "25.10"},
		Policy:            models.NewSupportPolicy(),
		Catalog:           catalog,
	})

	want := []models.TestInstruction{
		{Platform: "4.17", Component: "25.10", Comment: "WARNING: 25.10.1 is not yet published in the catalog for 4.17"},
		instr("4.18", "25.10"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
}

func TestPlan_RulesAreUnioned(t *testing.T) {
	got := planFor(t, nil, PlanInput{
		Diff: models.Node{
			"ocp":          models.Node{"4.18": models.Leaf("4.18.9")},
			"gpu-operator": models.Node{"25.10": models.Leaf("25.10.1")},
		},
		PlatformReleases:  []string{"4.18"},
		ComponentReleases: []string{"25.3", "25.10"},
		Policy:            models.NewSupportPolicy(),
	})

	want := []models.TestInstruction{instr("4.18", "25.10"), instr("4.18", "25.3")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
}

func TestPlan_EmptyDiff(t *testing.T) {
	got := planFor(t, nil, PlanInput{
		Diff:              models.Node{},
		PlatformReleases:  []string{"4.18"},
		ComponentReleases: []string{"25.3"},
		Policy:            models.NewSupportPolicy(),
	})
	if len(got) != 0 {
		t.Errorf("Plan() = %v, want empty", got)
	}
}

func TestPlan_NegativeShortlistIsAnError(t *testing.T) {
	_, err := NewTestMatrixPlanner(nil).Plan(context.Background(), PlanInput{
		Diff:          models.Node{},
		Layout:        models.DefaultSnapshotLayout(),
		ShortlistSize: -1,
	})
	if err == nil {
		t.Error("expected error for negative shortlist size")
	}
}

func TestJobSuffix(t *testing.T) {
	tests := map[string]string{
		"25.3":                 "25-3-x",
		"24.10":                "24-10-x",
		models.BundleComponent: "master",
	}
	for in, want := range tests {
		if got := JobSuffix(in); got != want {
			t.Errorf("JobSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderTestCommands(t *testing.T) {
	set := models.InstructionSet{}
	set.Add(instr("4.18", "25.3"))
	set.Add(instr("4.12", models.BundleComponent))
	set.Add(models.TestInstruction{Platform: "4.17", Component: "25.10", Comment: "WARNING: 25.10.1 is not yet published in the catalog for 4.17"})
	set.Add(instr("4.17", "25.10"))

	got := RenderTestCommands("nvidia-gpu-operator", set)
	want := []string{
		"# WARNING: 25.10.1 is not yet published in the catalog for 4.17",
		"/test 4.12-stable-nvidia-gpu-operator-e2e-master",
		"/test 4.17-stable-nvidia-gpu-operator-e2e-25-10-x",
		"/test 4.18-stable-nvidia-gpu-operator-e2e-25-3-x",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RenderTestCommands() = %v, want %v", got, want)
	}
}
