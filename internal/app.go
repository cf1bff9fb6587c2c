// Package internal provides the App struct that wires all components of
// cimatrix together and initializes the CLI layer.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/cli"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/integration"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/observability"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/storage"
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// App holds all service dependencies of cimatrix.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr        core.ConfigurationManager
	Config           *models.Config
	Logger           *slog.Logger
	IgnoredPlatforms *regexp.Regexp

	// Storage layer
	Snapshots storage.SnapshotStore
	History   storage.HistoryStore

	// Upstream clients
	Registry      *integration.RegistryReleaseSource
	ReleaseStream *integration.ReleaseStreamSource
	Catalog       *integration.CatalogHTTPClient
	PullRequests  *integration.GitHubPullRequestLister
	Blobs         core.BlobStore

	// Core services
	SnapshotSource core.SnapshotBuilder
	CatalogFilter  core.CatalogAvailabilityFilter
	Planner        core.TestMatrixPlanner
	PlanSvc        core.PlanService
	Collector      core.ObservationCollector
	Reconciler     core.ResultReconciler
	CollectSvc     core.CollectService

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier

	closers []io.Closer
}

// NewApp creates and wires all components of cimatrix. basePath is the
// directory holding .cimatrix.yaml; relative file paths in the configuration
// are resolved against it. logOutput receives the structured log.
func NewApp(ctx context.Context, basePath string, logOutput io.Writer) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	app.Logger, err = observability.NewLogger(logOutput, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	app.IgnoredPlatforms, err = core.CompileIgnoredPlatforms(cfg.Platform.IgnoredVersionsRegex)
	if err != nil {
		return nil, err
	}

	// --- Storage layer ---
	app.Snapshots = storage.NewSnapshotStore(app.resolve(cfg.Files.Versions))
	app.History = storage.NewHistoryStore(app.resolve(cfg.Files.History))

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(app.resolve(cfg.Files.EventLog))
	if err != nil {
		// Non-fatal: run without an event log.
		app.Logger.Warn("event log disabled", "error", err)
		app.EventLog = nil
	}
	var events core.EventLogger
	if app.EventLog != nil {
		events = observability.NewRecorder(app.EventLog)
	}
	app.AlertEngine = observability.NewAlertEngine(observability.AlertThresholds{
		BundleFailureStreak: cfg.Alerts.BundleFailureStreak,
		StaleBundleDays:     cfg.Alerts.StaleBundleDays,
	})
	app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	if cfg.SlackWebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.SlackWebhookURL, cfg.RequestTimeout)
	}

	// --- Upstream clients ---
	httpOpts := integration.HTTPOptions{
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
	app.Registry = integration.NewRegistryReleaseSource(integration.RegistryEndpoints{
		TagsURL:           cfg.Component.TagsURL,
		AuthURL:           cfg.Component.AuthURL,
		BundleManifestURL: cfg.Component.BundleManifestURL,
		BundleAuthURL:     cfg.Component.BundleAuthURL,
	}, httpOpts)
	app.ReleaseStream = integration.NewReleaseStreamSource(cfg.Platform.ReleaseStreamURL, cfg.Platform.ReleaseStream, httpOpts)
	app.Catalog = integration.NewCatalogHTTPClient(cfg.Catalog.BaseURL, httpOpts)
	app.PullRequests = integration.NewGitHubPullRequestLister(cfg.GitHub.APIURL, cfg.GitHub.Repo, cfg.GitHub.Head, cfg.GitHub.Token, httpOpts)

	blobs, err := app.newBlobStore(ctx, cfg.Blob)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if cfg.Blob.CacheSize > 0 {
		blobs = integration.NewCachingBlobStore(blobs, cfg.Blob.CacheSize, cfg.Blob.CacheTTL)
	}
	app.Blobs = blobs

	// --- Core services ---
	collectorCfg := core.CollectorConfigFrom(cfg)
	app.SnapshotSource = core.NewSnapshotBuilder(app.Registry, app.ReleaseStream, cfg.Snapshot, app.IgnoredPlatforms)
	app.CatalogFilter = core.NewCatalogAvailabilityFilter(app.Catalog, cfg.Component.Package, cfg.Catalog.PageSize)
	app.Planner = core.NewTestMatrixPlanner(events)
	app.PlanSvc = core.NewPlanService(app.CatalogFilter, app.Planner, events)
	app.Collector = core.NewObservationCollector(app.Blobs, collectorCfg, events)
	app.Reconciler = core.NewResultReconciler(cfg.Collect.BundleLimit)
	app.CollectSvc = core.NewCollectService(app.PullRequests, app.Collector, app.Reconciler, events)

	// --- Wire CLI package-level variables ---
	cli.Cfg = cfg
	cli.Logger = app.Logger
	cli.IgnoredPlatforms = app.IgnoredPlatforms
	cli.SupportPolicyPath = app.resolve(cfg.Files.SupportPolicy)
	cli.TriggerFilePath = app.resolve(cfg.Files.TestsToTrigger)
	cli.CollectorCfg = collectorCfg

	cli.Snapshots = app.Snapshots
	cli.History = app.History
	cli.SnapshotSource = app.SnapshotSource
	cli.PlanSvc = app.PlanSvc
	cli.CollectSvc = app.CollectSvc
	cli.Reconciler = app.Reconciler
	cli.CatalogFilter = app.CatalogFilter
	cli.Blobs = app.Blobs

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

func (a *App) newBlobStore(ctx context.Context, cfg models.BlobConfig) (core.BlobStore, error) {
	switch cfg.Backend {
	case "local":
		return integration.NewLocalBlobStore(a.resolve(cfg.LocalDir)), nil
	case "gcs":
		credentials := cfg.CredentialsFile
		if credentials != "" {
			credentials = a.resolve(credentials)
		}
		store, err := integration.NewGCSBlobStore(ctx, cfg.Bucket, credentials)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// resolve makes a configured path absolute relative to the base path.
func (a *App) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.BasePath, path)
}

// Close releases resources held by the App.
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ResolveBasePath determines the base directory. It checks the CIMATRIX_HOME
// environment variable first, then searches upward from the current
// directory for a .cimatrix.yaml file, falling back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("CIMATRIX_HOME"); home != "" {
		return home
	}

	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	cwd, _ := os.Getwd()
	return cwd
}
