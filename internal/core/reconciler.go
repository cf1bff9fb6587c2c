package core

import (
	"context"
	"sort"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// ResultReconciler folds freshly collected observations into persisted history.
type ResultReconciler interface {
	Merge(ctx context.Context, batches map[string]models.PlatformBatch, history models.History) models.History
}

type resultReconciler struct {
	bundleLimit int
}

// NewResultReconciler creates a reconciler. bundleLimit caps bundle
// observations per platform; zero or negative keeps all of them.
func NewResultReconciler(bundleLimit int) ResultReconciler {
	return &resultReconciler{bundleLimit: bundleLimit}
}

// Merge returns a new history. Every bucket, including those without new
// observations, is re-normalized so stale entries are cleaned up on each run.
// The input history is not modified.
func (r *resultReconciler) Merge(ctx context.Context, batches map[string]models.PlatformBatch, history models.History) models.History {
	logger := slogcontext.FromCtx(ctx)
	out := make(models.History, len(history)+len(batches))

	platforms := make(map[string]bool, len(history)+len(batches))
	for p := range history {
		platforms[p] = true
	}
	for p := range batches {
		platforms[p] = true
	}

	for platform := range platforms {
		old := history[platform]
		if old == nil {
			old = models.NewHistoryBucket()
		}
		batch := batches[platform]

		merged := &models.HistoryBucket{
			Notes:               append([]string{}, old.Notes...),
			SourceLinks:         unionSorted(old.SourceLinks, batch.SourceLinks),
			BundleObservations:  r.mergeBundles(old.BundleObservations, batch.Bundle),
			ReleaseObservations: mergeReleases(old.ReleaseObservations, batch.Release),
		}
		if dropped := len(old.ReleaseObservations) + len(batch.Release) - len(merged.ReleaseObservations); dropped > 0 {
			logger.Debug("release observations collapsed", "platform", platform, "dropped", dropped)
		}
		out[platform] = merged
	}
	return out
}

// mergeBundles keeps the most recent observation per build, newest first,
// truncated to the configured limit.
func (r *resultReconciler) mergeBundles(persisted, fresh []models.Observation) []models.Observation {
	byKey := make(map[models.BuildKey]models.Observation, len(persisted)+len(fresh))
	var unkeyed []models.Observation
	for _, list := range [][]models.Observation{persisted, fresh} {
		for _, obs := range list {
			obs = withBuildKey(obs)
			if obs.Build.IsZero() {
				unkeyed = append(unkeyed, obs)
				continue
			}
			byKey[obs.Build] = obs
		}
	}

	out := make([]models.Observation, 0, len(byKey)+len(unkeyed))
	for _, obs := range byKey {
		out = append(out, obs)
	}
	out = append(out, dedupeUnkeyed(unkeyed)...)
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i], out[j])
	})
	if r.bundleLimit > 0 && len(out) > r.bundleLimit {
		out = out[:r.bundleLimit]
	}
	return out
}

// mergeReleases keeps one representative per exact version pair. Unresolved
// versions and aborted builds are discarded.
func mergeReleases(persisted, fresh []models.Observation) []models.Observation {
	type pair struct{ platform, component string }
	best := make(map[pair]models.Observation)
	for _, list := range [][]models.Observation{persisted, fresh} {
		for _, obs := range list {
			if obs.Outcome == models.OutcomeAborted {
				continue
			}
			if !IsExactVersion(obs.PlatformVersion) || !IsExactVersion(obs.ComponentVersion) {
				continue
			}
			obs = withBuildKey(obs)
			key := pair{obs.PlatformVersion, obs.ComponentVersion}
			cur, ok := best[key]
			if !ok || preferRelease(obs, cur) {
				best[key] = obs
			}
		}
	}

	out := make([]models.Observation, 0, len(best))
	for _, obs := range best {
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i], out[j])
	})
	return out
}

// preferRelease reports whether a should replace b as the representative of
// a version pair: success beats anything else, then the later build, then a
// fixed order over outcome, source URL and build key.
func preferRelease(a, b models.Observation) bool {
	aSuccess := a.Outcome == models.OutcomeSuccess
	bSuccess := b.Outcome == models.OutcomeSuccess
	if aSuccess != bSuccess {
		return aSuccess
	}
	if a.ObservedAt != b.ObservedAt {
		return a.ObservedAt > b.ObservedAt
	}
	if a.Outcome.Rank() != b.Outcome.Rank() {
		return a.Outcome.Rank() < b.Outcome.Rank()
	}
	if a.SourceURL != b.SourceURL {
		return a.SourceURL < b.SourceURL
	}
	if a.Build != b.Build {
		return a.Build.Less(b.Build)
	}
	return a.Variant < b.Variant
}

// newerFirst orders observations by descending timestamp with a total
// tie-break so the output does not depend on input order.
func newerFirst(a, b models.Observation) bool {
	if a.ObservedAt != b.ObservedAt {
		return a.ObservedAt > b.ObservedAt
	}
	if a.Build != b.Build {
		return a.Build.Less(b.Build)
	}
	if a.SourceURL != b.SourceURL {
		return a.SourceURL < b.SourceURL
	}
	if a.PlatformVersion != b.PlatformVersion {
		return a.PlatformVersion < b.PlatformVersion
	}
	if a.ComponentVersion != b.ComponentVersion {
		return a.ComponentVersion < b.ComponentVersion
	}
	if a.Outcome != b.Outcome {
		return a.Outcome.Rank() < b.Outcome.Rank()
	}
	return a.Variant < b.Variant
}

// withBuildKey fills the build key of observations persisted before keys
// were stored, using the job URL they were recorded with.
func withBuildKey(obs models.Observation) models.Observation {
	if obs.Build.IsZero() {
		if key, ok := BuildKeyFromURL(obs.SourceURL); ok {
			obs.Build = key
		}
	}
	return obs
}

// dedupeUnkeyed collapses identical observations that carry no build key.
func dedupeUnkeyed(list []models.Observation) []models.Observation {
	seen := make(map[models.Observation]bool, len(list))
	var out []models.Observation
	for _, obs := range list {
		if seen[obs] {
			continue
		}
		seen[obs] = true
		out = append(out, obs)
	}
	return out
}

func unionSorted(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
