package cli

import (
	"log/slog"
	"regexp"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/observability"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/storage"
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// Configuration, set during app initialization in app.go.
var (
	Cfg               *models.Config
	Logger            *slog.Logger
	IgnoredPlatforms  *regexp.Regexp
	SupportPolicyPath string
	TriggerFilePath   string
	CollectorCfg      core.CollectorConfig
)

// Core services and stores, set during app initialization in app.go.
var (
	Snapshots      storage.SnapshotStore
	History        storage.HistoryStore
	SnapshotSource core.SnapshotBuilder
	PlanSvc        core.PlanService
	CollectSvc     core.CollectService
	Reconciler     core.ResultReconciler
	CatalogFilter  core.CatalogAvailabilityFilter
	Blobs          core.BlobStore
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)
