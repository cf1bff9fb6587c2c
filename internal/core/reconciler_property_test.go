package core

import (
	"context"
	"reflect"
	"sort"
	"strconv"
	"testing"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
	"pgregory.net/rapid"
)

// =============================================================================
// Generators
// =============================================================================

var (
	genPlatformVersion  = rapid.SampledFrom([]string{"4.14.1", "4.14.2", "4.14"})
	genComponentVersion = rapid.SampledFrom([]string{"23.9.0", "23.9.1", "23-9-x"})
	genOutcome          = rapid.SampledFrom([]models.Outcome{
		models.OutcomeSuccess, models.OutcomeFailure, models.OutcomeAborted, models.OutcomeUnknown,
	})
	genSourceURL = rapid.SampledFrom([]string{"", "https://prow/a", "https://prow/b"})
	genVariant   = rapid.SampledFrom([]string{"", "infra"})
)

func genReleaseObservation(t *rapid.T, label string) models.Observation {
	return models.Observation{
		PlatformVersion:  genPlatformVersion.Draw(t, label+"_platform"),
		ComponentVersion: genComponentVersion.Draw(t, label+"_component"),
		Outcome:          genOutcome.Draw(t, label+"_outcome"),
		SourceURL:        genSourceURL.Draw(t, label+"_url"),
		ObservedAt:       rapid.Int64Range(0, 20).Draw(t, label+"_ts"),
		Variant:          genVariant.Draw(t, label+"_variant"),
	}
}

// genBundlePool draws bundle observations with distinct build keys, so a
// build key always identifies the same observation.
func genBundlePool(t *rapid.T) []models.Observation {
	n := rapid.IntRange(0, 12).Draw(t, "pool_size")
	pool := make([]models.Observation, n)
	for i := range pool {
		pool[i] = models.Observation{
			PlatformVersion:  "4.18.9",
			ComponentVersion: "25.10.0",
			Outcome:          genOutcome.Draw(t, "bundle_outcome"),
			ObservedAt:       rapid.Int64Range(0, 20).Draw(t, "bundle_ts"),
			Build:            models.BuildKey{PRNumber: "1", JobName: "e2e-master", BuildID: strconv.Itoa(i)},
		}
	}
	return pool
}

func genSubset(t *rapid.T, pool []models.Observation, label string) []models.Observation {
	var out []models.Observation
	for i := range pool {
		if rapid.Bool().Draw(t, label+"_"+strconv.Itoa(i)) {
			out = append(out, pool[i])
		}
	}
	return out
}

func genBatch(t *rapid.T, pool []models.Observation, label string) map[string]models.PlatformBatch {
	releases := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) models.Observation {
		return genReleaseObservation(t, label)
	}), 0, 8).Draw(t, label+"_releases")
	return map[string]models.PlatformBatch{"4.14": {
		Bundle:      genSubset(t, pool, label+"_bundle"),
		Release:     releases,
		SourceLinks: rapid.SliceOfN(genSourceURL, 0, 2).Draw(t, label+"_links"),
	}}
}

func genHistory(t *rapid.T, pool []models.Observation) models.History {
	bucket := models.NewHistoryBucket()
	bucket.Notes = []string{"note"}
	bucket.BundleObservations = genSubset(t, pool, "history_bundle")
	bucket.ReleaseObservations = rapid.SliceOfN(rapid.Custom(func(t *rapid.T) models.Observation {
		return genReleaseObservation(t, "history")
	}), 0, 8).Draw(t, "history_releases")
	return models.History{"4.14": bucket}
}

func sortedCopy(obs []models.Observation) []models.Observation {
	out := append([]models.Observation(nil), obs...)
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i], out[j]) })
	return out
}

// =============================================================================
// Properties
// =============================================================================

// Merging the same batch twice yields the same history as merging it once.
func TestProperty1_MergeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pool := genBundlePool(t)
		history := genHistory(t, pool)
		batch := genBatch(t, pool, "x")
		limit := rapid.IntRange(0, 6).Draw(t, "limit")
		r := NewResultReconciler(limit)

		once := r.Merge(context.Background(), batch, history)
		twice := r.Merge(context.Background(), batch, once)

		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("merge is not idempotent:\nonce:  %+v\ntwice: %+v", once["4.14"], twice["4.14"])
		}
	})
}

// Merging A then B yields the same observations as merging B then A.
func TestProperty2_MergeIsOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pool := genBundlePool(t)
		history := genHistory(t, pool)
		a := genBatch(t, pool, "a")
		b := genBatch(t, pool, "b")
		limit := rapid.IntRange(0, 6).Draw(t, "limit")
		r := NewResultReconciler(limit)
		ctx := context.Background()

		ab := r.Merge(ctx, b, r.Merge(ctx, a, history))
		ba := r.Merge(ctx, a, r.Merge(ctx, b, history))

		if !reflect.DeepEqual(sortedCopy(ab["4.14"].ReleaseObservations), sortedCopy(ba["4.14"].ReleaseObservations)) {
			t.Fatalf("release observations differ:\nab: %+v\nba: %+v", ab["4.14"].ReleaseObservations, ba["4.14"].ReleaseObservations)
		}
		if !reflect.DeepEqual(sortedCopy(ab["4.14"].BundleObservations), sortedCopy(ba["4.14"].BundleObservations)) {
			t.Fatalf("bundle observations differ:\nab: %+v\nba: %+v", ab["4.14"].BundleObservations, ba["4.14"].BundleObservations)
		}
		if !reflect.DeepEqual(ab["4.14"].SourceLinks, ba["4.14"].SourceLinks) {
			t.Fatalf("links differ: %v vs %v", ab["4.14"].SourceLinks, ba["4.14"].SourceLinks)
		}
	})
}

// Each surviving release entry is a SUCCESS when any candidate of its pair
// succeeded, and otherwise the latest candidate.
func TestProperty4_ReleaseDeduplication(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pool := genBundlePool(t)
		history := genHistory(t, pool)
		batch := genBatch(t, pool, "x")

		got := NewResultReconciler(0).Merge(context.Background(), batch, history)

		type pair struct{ platform, component string }
		type summary struct {
			success bool
			maxTS   int64
		}
		candidates := make(map[pair]*summary)
		all := append(append([]models.Observation(nil), history["4.14"].ReleaseObservations...), batch["4.14"].Release...)
		for _, obs := range all {
			if obs.Outcome == models.OutcomeAborted || !IsExactVersion(obs.PlatformVersion) || !IsExactVersion(obs.ComponentVersion) {
				continue
			}
			k := pair{obs.PlatformVersion, obs.ComponentVersion}
			s, ok := candidates[k]
			if !ok {
				s = &summary{maxTS: obs.ObservedAt}
				candidates[k] = s
			}
			if obs.Outcome == models.OutcomeSuccess {
				s.success = true
			}
			if obs.ObservedAt > s.maxTS {
				s.maxTS = obs.ObservedAt
			}
		}

		rel := got["4.14"].ReleaseObservations
		if len(rel) != len(candidates) {
			t.Fatalf("release observations = %d, want one per pair (%d)", len(rel), len(candidates))
		}
		seen := make(map[pair]bool)
		for _, obs := range rel {
			k := pair{obs.PlatformVersion, obs.ComponentVersion}
			if seen[k] {
				t.Fatalf("pair %v appears twice", k)
			}
			seen[k] = true
			s := candidates[k]
			if s == nil {
				t.Fatalf("pair %v has no valid candidate", k)
			}
			if s.success && obs.Outcome != models.OutcomeSuccess {
				t.Fatalf("pair %v: survivor %s, want SUCCESS", k, obs.Outcome)
			}
			if !s.success && obs.ObservedAt != s.maxTS {
				t.Fatalf("pair %v: survivor ts %d, want %d", k, obs.ObservedAt, s.maxTS)
			}
		}
	})
}

// Bundle observations are bounded by the limit and hold the most recent builds.
func TestProperty5_BundlePruning(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pool := genBundlePool(t)
		history := genHistory(t, pool)
		batch := genBatch(t, pool, "x")
		limit := rapid.IntRange(1, 6).Draw(t, "limit")

		got := NewResultReconciler(limit).Merge(context.Background(), batch, history)

		byKey := make(map[models.BuildKey]int64)
		for _, obs := range append(append([]models.Observation(nil), history["4.14"].BundleObservations...), batch["4.14"].Bundle...) {
			byKey[obs.Build] = obs.ObservedAt
		}
		var want []int64
		for _, ts := range byKey {
			want = append(want, ts)
		}
		sort.Slice(want, func(i, j int) bool { return want[i] > want[j] })
		if len(want) > limit {
			want = want[:limit]
		}

		b := got["4.14"].BundleObservations
		if len(b) > limit {
			t.Fatalf("bundle observations = %d, exceeds limit %d", len(b), limit)
		}
		if gotTS := timestamps(b); !reflect.DeepEqual(gotTS, want) && !(len(gotTS) == 0 && len(want) == 0) {
			t.Fatalf("bundle timestamps = %v, want %v", gotTS, want)
		}
	})
}
