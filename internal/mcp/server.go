// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the test history, alerts, snapshot diffs and CI build listings as tools.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/observability"
	"github.com/rh-ecosystem-edge/ci-matrix/internal/storage"
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// HistoryReader loads the persisted test history.
type HistoryReader interface {
	Load() (models.History, error)
}

// Server wraps cimatrix services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	history     HistoryReader
	alertEngine observability.AlertEngine
	blobs       core.BlobStore
	collectCfg  core.CollectorConfig
	parser      *core.JobPathParser
}

// NewServer creates a new MCP server. alertEngine and blobs may be nil, in
// which case the tools depending on them report an error.
func NewServer(history HistoryReader, alertEngine observability.AlertEngine, blobs core.BlobStore, collectCfg core.CollectorConfig, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		history:     history,
		alertEngine: alertEngine,
		blobs:       blobs,
		collectCfg:  collectCfg,
		parser:      core.NewJobPathParser(collectCfg),
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "cimatrix", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type listPlatformsInput struct{}

type platformOutput struct {
	Platform          string   `json:"platform"`
	ReleaseRuns       int      `json:"release_runs"`
	ReleasePasses     int      `json:"release_passes"`
	PassingComponents []string `json:"passing_components"`
	BundleRuns        int      `json:"bundle_runs"`
	BundlePassRate    float64  `json:"bundle_pass_rate"`
	LastBundleOutcome string   `json:"last_bundle_outcome,omitempty"`
	LastBundleAt      string   `json:"last_bundle_at,omitempty"`
}

type listPlatformsOutput struct {
	Platforms []platformOutput `json:"platforms"`
	Count     int              `json:"count"`
}

type getPlatformHistoryInput struct {
	Platform string `json:"platform" jsonschema:"required,the platform minor version (e.g. 4.18)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of observations per list, newest first. Zero returns all."`
}

type observationOutput struct {
	PlatformVersion  string `json:"platform_version"`
	ComponentVersion string `json:"component_version"`
	Outcome          string `json:"outcome"`
	URL              string `json:"url"`
	ObservedAt       string `json:"observed_at"`
	Variant          string `json:"variant,omitempty"`
}

type getPlatformHistoryOutput struct {
	Platform string              `json:"platform"`
	Notes    []string            `json:"notes"`
	Releases []observationOutput `json:"releases"`
	Bundles  []observationOutput `json:"bundles"`
	Links    []string            `json:"links"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Platform    string `json:"platform"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

type diffSnapshotsInput struct {
	Previous string `json:"previous,omitempty" jsonschema:"the previous version snapshot as a JSON document. Empty means no previous snapshot."`
	Current  string `json:"current" jsonschema:"required,the current version snapshot as a JSON document"`
}

type changeOutput struct {
	Path     string `json:"path"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

type diffSnapshotsOutput struct {
	Changes []changeOutput `json:"changes"`
	Count   int            `json:"count"`
}

type listJobBuildsInput struct {
	PRNumber int `json:"pr_number" jsonschema:"required,the pull request number"`
}

type buildOutput struct {
	Repo     string `json:"repo"`
	Job      string `json:"job"`
	BuildID  string `json:"build_id"`
	Platform string `json:"platform"`
	Bundle   bool   `json:"bundle"`
	URL      string `json:"url"`
}

type listJobBuildsOutput struct {
	Builds []buildOutput `json:"builds"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_platforms",
		Description: "List the platform versions in the test history with release and bundle pass counts, newest first.",
	}, s.handleListPlatforms)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_platform_history",
		Description: "Get the recorded release and bundle test runs of one platform minor version.",
	}, s.handleGetPlatformHistory)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (bundle failure streaks, platforms without a passing release, stale bundle runs).",
	}, s.handleGetAlerts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "diff_snapshots",
		Description: "Compare two version snapshots and list the versions that are new or changed in the current one.",
	}, s.handleDiffSnapshots)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_job_builds",
		Description: "List the CI builds of the component's e2e jobs recorded for a pull request.",
	}, s.handleListJobBuilds)
}

// --- Tool handlers ---

func (s *Server) handleListPlatforms(_ context.Context, _ *gomcp.CallToolRequest, _ listPlatformsInput) (*gomcp.CallToolResult, listPlatformsOutput, error) {
	history, err := s.history.Load()
	if err != nil {
		return errorResult(fmt.Sprintf("loading history: %s", err)), listPlatformsOutput{Platforms: []platformOutput{}}, nil
	}

	out := listPlatformsOutput{Platforms: []platformOutput{}}
	for _, platform := range observability.SortedPlatforms(history) {
		pm := observability.SummarizePlatform(platform, history[platform])
		po := platformOutput{
			Platform:          pm.Platform,
			ReleaseRuns:       pm.ReleaseRuns,
			ReleasePasses:     pm.ReleasePasses,
			PassingComponents: pm.PassingComponents,
			BundleRuns:        pm.BundleRuns,
			BundlePassRate:    pm.BundlePassRate,
			LastBundleOutcome: string(pm.LastBundleOutcome),
		}
		if pm.LastBundleAt != nil {
			po.LastBundleAt = pm.LastBundleAt.Format(time.RFC3339)
		}
		out.Platforms = append(out.Platforms, po)
	}
	out.Count = len(out.Platforms)
	return nil, out, nil
}

func (s *Server) handleGetPlatformHistory(_ context.Context, _ *gomcp.CallToolRequest, input getPlatformHistoryInput) (*gomcp.CallToolResult, getPlatformHistoryOutput, error) {
	if input.Platform == "" {
		return errorResult("platform is required"), getPlatformHistoryOutput{}, nil
	}
	history, err := s.history.Load()
	if err != nil {
		return errorResult(fmt.Sprintf("loading history: %s", err)), getPlatformHistoryOutput{}, nil
	}
	bucket, ok := history[input.Platform]
	if !ok || bucket == nil {
		return errorResult(fmt.Sprintf("platform %s has no recorded history", input.Platform)), getPlatformHistoryOutput{}, nil
	}

	out := getPlatformHistoryOutput{
		Platform: input.Platform,
		Notes:    append([]string{}, bucket.Notes...),
		Releases: observationsToOutput(bucket.ReleaseObservations, input.Limit),
		Bundles:  observationsToOutput(bucket.BundleObservations, input.Limit),
		Links:    append([]string{}, bucket.SourceLinks...),
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}
	history, err := s.history.Load()
	if err != nil {
		return errorResult(fmt.Sprintf("loading history: %s", err)), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	alerts := s.alertEngine.Evaluate(history)
	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Platform:    a.Platform,
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleDiffSnapshots(_ context.Context, _ *gomcp.CallToolRequest, input diffSnapshotsInput) (*gomcp.CallToolResult, diffSnapshotsOutput, error) {
	empty := diffSnapshotsOutput{Changes: []changeOutput{}}
	previous := models.Node{}
	if strings.TrimSpace(input.Previous) != "" {
		var err error
		previous, err = storage.DecodeSnapshot([]byte(input.Previous))
		if err != nil {
			return errorResult(fmt.Sprintf("parsing previous snapshot: %s", err)), empty, nil
		}
	}
	current, err := storage.DecodeSnapshot([]byte(input.Current))
	if err != nil {
		return errorResult(fmt.Sprintf("parsing current snapshot: %s", err)), empty, nil
	}

	changes := core.Changes(previous, core.Diff(previous, current))
	out := diffSnapshotsOutput{
		Changes: make([]changeOutput, len(changes)),
		Count:   len(changes),
	}
	for i, c := range changes {
		out.Changes[i] = changeOutput{
			Path:     strings.Join(c.Path, "/"),
			OldValue: c.OldValue,
			NewValue: c.NewValue,
		}
	}
	return nil, out, nil
}

func (s *Server) handleListJobBuilds(ctx context.Context, _ *gomcp.CallToolRequest, input listJobBuildsInput) (*gomcp.CallToolResult, listJobBuildsOutput, error) {
	empty := listJobBuildsOutput{Builds: []buildOutput{}}
	if s.blobs == nil {
		return errorResult("blob store not available"), empty, nil
	}
	if input.PRNumber <= 0 {
		return errorResult("pr_number must be positive"), empty, nil
	}

	out := listJobBuildsOutput{Builds: []buildOutput{}}
	for _, repo := range s.collectCfg.PRRepos {
		prefix := fmt.Sprintf("pr-logs/pull/%s/%d/", repo, input.PRNumber)
		jobs, err := s.blobs.ListDirectories(ctx, prefix)
		if err != nil {
			return errorResult(fmt.Sprintf("listing jobs under %s: %s", prefix, err)), empty, nil
		}
		for _, job := range jobs {
			builds, err := s.blobs.ListDirectories(ctx, job)
			if err != nil {
				return errorResult(fmt.Sprintf("listing builds under %s: %s", job, err)), empty, nil
			}
			for _, build := range builds {
				jp, ok := s.parser.Parse(build)
				if !ok {
					continue
				}
				out.Builds = append(out.Builds, buildOutput{
					Repo:     jp.Repo,
					Job:      jp.Key.JobName,
					BuildID:  jp.Key.BuildID,
					Platform: jp.Platform,
					Bundle:   jp.IsBundle(),
					URL:      s.collectCfg.URLPrefix + "/" + strings.TrimSuffix(build, "/"),
				})
			}
		}
	}
	out.Count = len(out.Builds)
	return nil, out, nil
}

// --- Helpers ---

// observationsToOutput converts observations newest first, keeping at most
// limit of them when limit is positive.
func observationsToOutput(observations []models.Observation, limit int) []observationOutput {
	sorted := append([]models.Observation(nil), observations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ObservedAt > sorted[j].ObservedAt
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]observationOutput, len(sorted))
	for i, o := range sorted {
		out[i] = observationOutput{
			PlatformVersion:  o.PlatformVersion,
			ComponentVersion: o.ComponentVersion,
			Outcome:          string(o.Outcome),
			URL:              o.SourceURL,
			ObservedAt:       time.Unix(o.ObservedAt, 0).UTC().Format(time.RFC3339),
			Variant:          o.Variant,
		}
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
