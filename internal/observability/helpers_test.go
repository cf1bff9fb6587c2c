package observability

import (
	"time"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

var refTime = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func obs(component string, outcome models.Outcome, daysAgo int) models.Observation {
	return models.Observation{
		PlatformVersion:  "4.18.9",
		ComponentVersion: component,
		Outcome:          outcome,
		ObservedAt:       refTime.Add(-time.Duration(daysAgo) * 24 * time.Hour).Unix(),
	}
}

func bucket(release, bundle []models.Observation) *models.HistoryBucket {
	b := models.NewHistoryBucket()
	b.ReleaseObservations = append(b.ReleaseObservations, release...)
	b.BundleObservations = append(b.BundleObservations, bundle...)
	return b
}

func fixedEngine(th AlertThresholds) *alertEngine {
	return &alertEngine{thresholds: th, now: func() time.Time { return refTime }}
}
