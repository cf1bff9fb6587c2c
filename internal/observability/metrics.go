package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// PlatformMetrics summarizes the history bucket of one platform minor.
type PlatformMetrics struct {
	Platform          string         `json:"platform"`
	ReleaseRuns       int            `json:"release_runs"`
	ReleasePasses     int            `json:"release_passes"`
	PassingComponents []string       `json:"passing_components"`
	BundleRuns        int            `json:"bundle_runs"`
	BundlePasses      int            `json:"bundle_passes"`
	BundlePassRate    float64        `json:"bundle_pass_rate"`
	LastBundleOutcome models.Outcome `json:"last_bundle_outcome,omitempty"`
	LastBundleAt      *time.Time     `json:"last_bundle_at,omitempty"`
}

// RunMetrics counts run events from the event log.
type RunMetrics struct {
	PlanRuns         int        `json:"plan_runs"`
	VersionChanges   int        `json:"version_changes"`
	CatalogRejected  int        `json:"catalog_rejected"`
	PolicyViolations int        `json:"policy_violations"`
	CollectRuns      int        `json:"collect_runs"`
	BuildsSkipped    int        `json:"builds_skipped"`
	EventCount       int        `json:"event_count"`
	OldestEvent      *time.Time `json:"oldest_event,omitempty"`
	NewestEvent      *time.Time `json:"newest_event,omitempty"`
}

// Metrics holds metrics derived from the history and the event log.
type Metrics struct {
	Platforms []PlatformMetrics `json:"platforms"`
	Runs      RunMetrics        `json:"runs"`
}

// MetricsCalculator derives metrics from the history and the event log.
type MetricsCalculator interface {
	Calculate(history models.History, since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator. eventLog may be nil, in
// which case run metrics stay zero.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate summarizes every platform of history, newest platform first,
// and counts the run events recorded since the given time.
func (mc *metricsCalculator) Calculate(history models.History, since time.Time) (*Metrics, error) {
	m := &Metrics{Platforms: []PlatformMetrics{}}
	for _, platform := range SortedPlatforms(history) {
		m.Platforms = append(m.Platforms, SummarizePlatform(platform, history[platform]))
	}

	if mc.eventLog == nil {
		return m, nil
	}
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}
	m.Runs.EventCount = len(events)
	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.Runs.OldestEvent = &t
		}
		t := event.Time
		m.Runs.NewestEvent = &t

		switch event.Type {
		case "plan.completed":
			m.Runs.PlanRuns++
		case "plan.version_changed":
			m.Runs.VersionChanges++
		case "plan.catalog_rejected":
			m.Runs.CatalogRejected++
		case "plan.policy_violation":
			m.Runs.PolicyViolations++
		case "collect.completed":
			m.Runs.CollectRuns++
		case "collect.build_skipped":
			m.Runs.BuildsSkipped++
		}
	}
	return m, nil
}

// SummarizePlatform computes the metrics of one history bucket. A nil
// bucket yields zero counts.
func SummarizePlatform(platform string, bucket *models.HistoryBucket) PlatformMetrics {
	pm := PlatformMetrics{Platform: platform, PassingComponents: []string{}}
	if bucket == nil {
		return pm
	}

	passing := make(map[string]bool)
	for _, obs := range bucket.ReleaseObservations {
		pm.ReleaseRuns++
		if obs.Outcome == models.OutcomeSuccess {
			pm.ReleasePasses++
			passing[obs.ComponentVersion] = true
		}
	}
	for v := range passing {
		pm.PassingComponents = append(pm.PassingComponents, v)
	}
	pm.PassingComponents = core.SortVersions(pm.PassingComponents)

	var latest *models.Observation
	for i, obs := range bucket.BundleObservations {
		pm.BundleRuns++
		if obs.Outcome == models.OutcomeSuccess {
			pm.BundlePasses++
		}
		if latest == nil || obs.ObservedAt > latest.ObservedAt {
			latest = &bucket.BundleObservations[i]
		}
	}
	if pm.BundleRuns > 0 {
		pm.BundlePassRate = float64(pm.BundlePasses) / float64(pm.BundleRuns)
	}
	if latest != nil {
		at := time.Unix(latest.ObservedAt, 0).UTC()
		pm.LastBundleOutcome = latest.Outcome
		pm.LastBundleAt = &at
	}
	return pm
}

// SortedPlatforms returns the platform minors of history, newest first.
func SortedPlatforms(history models.History) []string {
	platforms := make([]string, 0, len(history))
	for p := range history {
		platforms = append(platforms, p)
	}
	sort.SliceStable(platforms, func(i, j int) bool {
		return core.CompareVersions(platforms[i], platforms[j]) > 0
	})
	return platforms
}
