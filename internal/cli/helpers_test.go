package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/observability"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/storage"
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// setupCLI points every package-level service at stores in a temporary
// directory and restores the previous values when the test ends.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	origCfg, origLogger := Cfg, Logger
	origSnapshots, origHistory := Snapshots, History
	origPlan, origCollect, origReconciler := PlanSvc, CollectSvc, Reconciler
	origSource, origFilter, origBlobs := SnapshotSource, CatalogFilter, Blobs
	origEventLog, origAlerts, origMetrics, origNotifier := EventLog, AlertEngine, MetricsCalc, Notifier
	origPolicy, origTrigger, origIgnored, origCollectorCfg := SupportPolicyPath, TriggerFilePath, IgnoredPlatforms, CollectorCfg
	t.Cleanup(func() {
		Cfg, Logger = origCfg, origLogger
		Snapshots, History = origSnapshots, origHistory
		PlanSvc, CollectSvc, Reconciler = origPlan, origCollect, origReconciler
		SnapshotSource, CatalogFilter, Blobs = origSource, origFilter, origBlobs
		EventLog, AlertEngine, MetricsCalc, Notifier = origEventLog, origAlerts, origMetrics, origNotifier
		SupportPolicyPath, TriggerFilePath, IgnoredPlatforms, CollectorCfg = origPolicy, origTrigger, origIgnored, origCollectorCfg
	})

	eventLog, err := observability.NewJSONLEventLog(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("opening event log: %v", err)
	}
	t.Cleanup(func() { _ = eventLog.Close() })
	recorder := observability.NewRecorder(eventLog)

	Cfg = core.DefaultConfig()
	Logger = nil
	Snapshots = storage.NewSnapshotStore(filepath.Join(dir, "versions.json"))
	History = storage.NewHistoryStore(filepath.Join(dir, "history.json"))
	SupportPolicyPath = filepath.Join(dir, "support.yaml")
	TriggerFilePath = filepath.Join(dir, "tests_to_trigger.txt")
	IgnoredPlatforms = nil
	CollectorCfg = core.DefaultCollectorConfig()
	PlanSvc = core.NewPlanService(nil, core.NewTestMatrixPlanner(recorder), recorder)
	Reconciler = core.NewResultReconciler(0)
	CollectSvc = nil
	SnapshotSource = nil
	CatalogFilter = nil
	Blobs = nil
	EventLog = eventLog
	AlertEngine = observability.NewAlertEngine(observability.DefaultAlertThresholds())
	MetricsCalc = observability.NewMetricsCalculator(eventLog)
	Notifier = nil
	return dir
}

// runCmd invokes a command's RunE with its output captured.
func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	t.Cleanup(func() { cmd.SetOut(nil) })
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func writeSnapshot(t *testing.T, path string, snapshot models.Node) {
	t.Helper()
	if err := storage.NewSnapshotStore(path).Save(snapshot); err != nil {
		t.Fatalf("writing snapshot: %v", err)
	}
}

func writeHistory(t *testing.T, path string, history models.History) {
	t.Helper()
	if err := storage.NewHistoryStore(path).Save(history); err != nil {
		t.Fatalf("writing history: %v", err)
	}
}

func releaseObs(platform, component string, outcome models.Outcome, build string) models.Observation {
	return models.Observation{
		PlatformVersion:  platform,
		ComponentVersion: component,
		Outcome:          outcome,
		ObservedAt:       time.Now().Add(-time.Hour).Unix(),
		Build:            models.BuildKey{PRNumber: "42", JobName: "job", BuildID: build},
	}
}

func bundleObs(platform string, outcome models.Outcome, age time.Duration, build string) models.Observation {
	return models.Observation{
		PlatformVersion:  platform,
		ComponentVersion: "master",
		Outcome:          outcome,
		ObservedAt:       time.Now().Add(-age).Unix(),
		Build:            models.BuildKey{PRNumber: "43", JobName: "bundle-job", BuildID: build},
	}
}

type fakeSnapshotSource struct {
	snapshot models.Node
	err      error
}

func (f *fakeSnapshotSource) Build(_ context.Context) (models.Node, error) {
	return f.snapshot, f.err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
