package core

import (
	"context"
	"fmt"
	"regexp"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

var releaseTagPattern = regexp.MustCompile(`^v?(\d+\.\d+)\.(\d+)$`)

// SnapshotBuilder assembles the current version snapshot from upstream sources.
type SnapshotBuilder interface {
	Build(ctx context.Context) (models.Node, error)
}

type snapshotBuilder struct {
	components ComponentReleaseSource
	platforms  PlatformReleaseSource
	layout     models.SnapshotLayout
	ignored    *regexp.Regexp
}

// NewSnapshotBuilder creates a builder. Platform minors matching ignored are
// left out of the snapshot; ignored may be nil.
func NewSnapshotBuilder(components ComponentReleaseSource, platforms PlatformReleaseSource, layout models.SnapshotLayout, ignored *regexp.Regexp) SnapshotBuilder {
	return &snapshotBuilder{
		components: components,
		platforms:  platforms,
		layout:     layout,
		ignored:    ignored,
	}
}

func (b *snapshotBuilder) Build(ctx context.Context) (models.Node, error) {
	logger := slogcontext.FromCtx(ctx)

	digest, err := b.components.BundleDigest(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading bundle digest: %w", err)
	}
	tags, err := b.components.ListReleaseTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing component releases: %w", err)
	}
	releases, err := b.platforms.ListPlatformReleases(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing platform releases: %w", err)
	}

	components := LatestPatchPerMinor(tags)
	platforms := LatestPatchPerMinor(releases)
	if b.ignored != nil {
		for minor := range platforms {
			if b.ignored.MatchString(minor) {
				logger.Info("ignoring platform version", "minor", minor)
				delete(platforms, minor)
			}
		}
	}
	logger.Info("built version snapshot", "components", len(components), "platforms", len(platforms))
	return b.layout.NewSnapshot(digest, components, platforms), nil
}

// LatestPatchPerMinor groups X.Y.Z versions (optionally "v"-prefixed) by
// X.Y and keeps the highest patch of each. Other strings are ignored.
func LatestPatchPerMinor(versions []string) map[string]string {
	out := make(map[string]string)
	for _, v := range versions {
		m := releaseTagPattern.FindStringSubmatch(v)
		if m == nil {
			continue
		}
		full := m[1] + "." + m[2]
		if cur, ok := out[m[1]]; ok {
			out[m[1]] = MaxVersion(cur, full)
		} else {
			out[m[1]] = full
		}
	}
	return out
}

// SnapshotReleases lists the component and platform minors of a snapshot.
func SnapshotReleases(snapshot models.Node, layout models.SnapshotLayout) (components, platforms []string) {
	if n, ok := snapshot.NodeAt(layout.ComponentKey); ok {
		components = n.Keys()
	}
	if n, ok := snapshot.NodeAt(layout.PlatformKey); ok {
		platforms = n.Keys()
	}
	return components, platforms
}

// FilterPlatforms drops platform minors matching ignored from a snapshot.
func FilterPlatforms(snapshot models.Node, layout models.SnapshotLayout, ignored *regexp.Regexp) models.Node {
	if ignored == nil {
		return snapshot
	}
	out := snapshot.Clone()
	if n, ok := out.NodeAt(layout.PlatformKey); ok {
		for minor := range n {
			if ignored.MatchString(minor) {
				delete(n, minor)
			}
		}
	}
	return out
}

// RetainRejected returns next with the component minors in rejected reset to
// their value in prev, or removed when prev had none. A rejected version is
// then seen as new again on the following run.
func RetainRejected(prev, next models.Node, layout models.SnapshotLayout, rejected []string) models.Node {
	if len(rejected) == 0 {
		return next
	}
	out := next.Clone()
	comps, ok := out.NodeAt(layout.ComponentKey)
	if !ok {
		return out
	}
	prevComps, _ := prev.NodeAt(layout.ComponentKey)
	for _, minor := range rejected {
		if old, ok := prevComps.LeafAt(minor); ok {
			comps[minor] = models.Leaf(old)
		} else {
			delete(comps, minor)
		}
	}
	return out
}
