package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

func (s AlertSeverity) rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Platform    string        `json:"platform"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire. A non-positive
// threshold disables its condition.
type AlertThresholds struct {
	BundleFailureStreak int `yaml:"bundle_failure_streak" json:"bundle_failure_streak"`
	StaleBundleDays     int `yaml:"stale_bundle_days" json:"stale_bundle_days"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		BundleFailureStreak: 3,
		StaleBundleDays:     7,
	}
}

// AlertEngine evaluates alert conditions against the test history.
type AlertEngine interface {
	Evaluate(history models.History) []Alert
}

type alertEngine struct {
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given thresholds.
func NewAlertEngine(thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate checks every platform bucket and returns the triggered alerts,
// most severe first, then by ID.
func (ae *alertEngine) Evaluate(history models.History) []Alert {
	now := ae.now()
	var alerts []Alert
	for _, platform := range SortedPlatforms(history) {
		bucket := history[platform]
		if bucket == nil {
			continue
		}
		if a, ok := ae.checkBundleFailureStreak(platform, bucket, now); ok {
			alerts = append(alerts, a)
		}
		if a, ok := ae.checkNoReleaseSuccess(platform, bucket, now); ok {
			alerts = append(alerts, a)
		}
		if a, ok := ae.checkStaleBundle(platform, bucket, now); ok {
			alerts = append(alerts, a)
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity != alerts[j].Severity {
			return alerts[i].Severity.rank() < alerts[j].Severity.rank()
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts
}

// FailureStreak counts the consecutive FAILURE outcomes at the newest end
// of observations.
func FailureStreak(observations []models.Observation) int {
	sorted := append([]models.Observation(nil), observations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ObservedAt > sorted[j].ObservedAt
	})
	streak := 0
	for _, obs := range sorted {
		if obs.Outcome != models.OutcomeFailure {
			break
		}
		streak++
	}
	return streak
}

func (ae *alertEngine) checkBundleFailureStreak(platform string, bucket *models.HistoryBucket, now time.Time) (Alert, bool) {
	limit := ae.thresholds.BundleFailureStreak
	if limit <= 0 {
		return Alert{}, false
	}
	streak := FailureStreak(bucket.BundleObservations)
	if streak < limit {
		return Alert{}, false
	}
	return Alert{
		ID:          "bundle-failure-" + platform,
		Condition:   "bundle_failure_streak",
		Severity:    SeverityHigh,
		Platform:    platform,
		Message:     fmt.Sprintf("the last %d bundle runs on %s failed", streak, platform),
		TriggeredAt: now,
	}, true
}

func (ae *alertEngine) checkNoReleaseSuccess(platform string, bucket *models.HistoryBucket, now time.Time) (Alert, bool) {
	if len(bucket.ReleaseObservations) == 0 && len(bucket.BundleObservations) == 0 {
		return Alert{}, false
	}
	for _, obs := range bucket.ReleaseObservations {
		if obs.Outcome == models.OutcomeSuccess {
			return Alert{}, false
		}
	}
	return Alert{
		ID:          "no-release-success-" + platform,
		Condition:   "no_release_success",
		Severity:    SeverityMedium,
		Platform:    platform,
		Message:     fmt.Sprintf("%s has no successful run against a released component", platform),
		TriggeredAt: now,
	}, true
}

func (ae *alertEngine) checkStaleBundle(platform string, bucket *models.HistoryBucket, now time.Time) (Alert, bool) {
	days := ae.thresholds.StaleBundleDays
	if days <= 0 || len(bucket.BundleObservations) == 0 {
		return Alert{}, false
	}
	var newest int64
	for _, obs := range bucket.BundleObservations {
		if obs.ObservedAt > newest {
			newest = obs.ObservedAt
		}
	}
	threshold := time.Duration(days) * 24 * time.Hour
	if now.Sub(time.Unix(newest, 0)) <= threshold {
		return Alert{}, false
	}
	return Alert{
		ID:          "stale-bundle-" + platform,
		Condition:   "stale_bundle",
		Severity:    SeverityLow,
		Platform:    platform,
		Message:     fmt.Sprintf("no bundle run on %s for more than %d days", platform, days),
		TriggeredAt: now,
	}, true
}
