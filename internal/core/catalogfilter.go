package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

const (
	// DefaultCatalogPackage is the catalog package of the certified GPU operator.
	DefaultCatalogPackage = "gpu-operator-certified"
	// DefaultCatalogPageSize is the page size of bundle queries.
	DefaultCatalogPageSize = 100
)

// CatalogResult records which (version, platform) pairs a catalog query found.
type CatalogResult struct {
	checked   map[string]bool
	available map[string]map[string]bool
	entries   int
}

func newCatalogResult(versions []string) *CatalogResult {
	r := &CatalogResult{
		checked:   make(map[string]bool, len(versions)),
		available: make(map[string]map[string]bool),
	}
	for _, v := range versions {
		r.checked[NormalizeCatalogVersion(v)] = true
	}
	return r
}

func (r *CatalogResult) record(version, platform string) {
	version = NormalizeCatalogVersion(version)
	if r.available[version] == nil {
		r.available[version] = make(map[string]bool)
	}
	r.available[version][platform] = true
}

// Checked reports whether version was part of the query.
func (r *CatalogResult) Checked(version string) bool {
	return r != nil && r.checked[NormalizeCatalogVersion(version)]
}

// Available reports whether version is published for platform.
func (r *CatalogResult) Available(version, platform string) bool {
	if r == nil {
		return false
	}
	return r.available[NormalizeCatalogVersion(version)][platform]
}

// AvailableAnywhere reports whether version is published for any of platforms.
func (r *CatalogResult) AvailableAnywhere(version string, platforms []string) bool {
	for _, p := range platforms {
		if r.Available(version, p) {
			return true
		}
	}
	return false
}

// EntryCount is the number of catalog entries fetched.
func (r *CatalogResult) EntryCount() int {
	if r == nil {
		return 0
	}
	return r.entries
}

// NormalizeCatalogVersion strips a leading "v".
func NormalizeCatalogVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// CatalogChannel derives the operator channel of a version, e.g. v25.10 for 25.10.1.
func CatalogChannel(version string) string {
	v := NormalizeCatalogVersion(version)
	parts := strings.Split(v, ".")
	if len(parts) >= 2 {
		return "v" + parts[0] + "." + parts[1]
	}
	return "v" + v
}

// BuildCatalogFilter renders the catalog query language filter. Each value
// set is sorted; a single value is written bare and a larger set is
// parenthesized. Empty sets are omitted.
func BuildCatalogFilter(pkg string, versions, channels, platforms []string) string {
	exprs := []string{fmt.Sprintf("package==%q", pkg)}
	for _, field := range []struct {
		name   string
		values []string
	}{
		{"version", versions},
		{"channel_name", channels},
		{"ocp_version", platforms},
	} {
		values := uniqueSorted(field.values)
		switch len(values) {
		case 0:
		case 1:
			exprs = append(exprs, fmt.Sprintf("%s==%q", field.name, values[0]))
		default:
			ors := make([]string, len(values))
			for i, v := range values {
				ors[i] = fmt.Sprintf("%s==%q", field.name, v)
			}
			exprs = append(exprs, "("+strings.Join(ors, " or ")+")")
		}
	}
	return strings.Join(exprs, " and ")
}

// CatalogAvailabilityFilter admits only component versions that the catalog
// publishes for at least one active platform.
type CatalogAvailabilityFilter interface {
	// Filter returns the admitted subset of proposed (minor -> exact version).
	Filter(ctx context.Context, proposed map[string]string, platformReleases []string, policy models.SupportPolicy) (map[string]string, *CatalogResult, error)
	// Check queries availability of versions on platforms.
	Check(ctx context.Context, versions, platforms []string) (*CatalogResult, error)
}

type catalogAvailabilityFilter struct {
	client   CatalogClient
	pkg      string
	pageSize int
}

// NewCatalogAvailabilityFilter creates a filter over client. Empty pkg and
// non-positive pageSize fall back to the defaults.
func NewCatalogAvailabilityFilter(client CatalogClient, pkg string, pageSize int) CatalogAvailabilityFilter {
	if pkg == "" {
		pkg = DefaultCatalogPackage
	}
	if pageSize <= 0 {
		pageSize = DefaultCatalogPageSize
	}
	return &catalogAvailabilityFilter{client: client, pkg: pkg, pageSize: pageSize}
}

func (f *catalogAvailabilityFilter) Filter(ctx context.Context, proposed map[string]string, platformReleases []string, policy models.SupportPolicy) (map[string]string, *CatalogResult, error) {
	logger := slogcontext.FromCtx(ctx)
	if len(proposed) == 0 {
		return proposed, nil, nil
	}
	active := ActivePlatformVersions(policy, platformReleases)
	if len(active) == 0 {
		logger.Info("no active platform versions, accepting all component versions without a catalog check")
		return proposed, nil, nil
	}

	versions := make([]string, 0, len(proposed))
	for _, v := range proposed {
		versions = append(versions, v)
	}
	result, err := f.Check(ctx, versions, active)
	if err != nil {
		return nil, nil, err
	}

	admitted := make(map[string]string, len(proposed))
	for minor, version := range proposed {
		if result.AvailableAnywhere(version, active) {
			admitted[minor] = version
			continue
		}
		logger.Warn("component version not published in the catalog for any active platform, deferring to a later run",
			"minor", minor, "version", version, "platforms", active)
	}
	return admitted, result, nil
}

func (f *catalogAvailabilityFilter) Check(ctx context.Context, versions, platforms []string) (*CatalogResult, error) {
	normalized := make([]string, 0, len(versions))
	channels := make([]string, 0, len(versions))
	for _, v := range versions {
		normalized = append(normalized, NormalizeCatalogVersion(v))
		channels = append(channels, CatalogChannel(v))
	}
	normalized = uniqueSorted(normalized)
	platforms = uniqueSorted(platforms)

	filter := BuildCatalogFilter(f.pkg, normalized, channels, platforms)
	slogcontext.FromCtx(ctx).Info("querying catalog", "package", f.pkg, "versions", normalized, "platforms", platforms)

	result := newCatalogResult(normalized)
	wantVersions := toSet(normalized)
	wantPlatforms := toSet(platforms)
	expected := len(normalized) * len(platforms)
	found := make(map[[2]string]bool)

	for page := 0; ; page++ {
		resp, err := f.client.QueryBundles(ctx, filter, page, f.pageSize)
		if err != nil {
			return nil, fmt.Errorf("querying catalog page %d: %w", page, err)
		}
		if len(resp.Entries) == 0 {
			break
		}
		result.entries += len(resp.Entries)
		for _, e := range resp.Entries {
			v := NormalizeCatalogVersion(e.Version)
			result.record(v, e.PlatformVersion)
			if wantVersions[v] && wantPlatforms[e.PlatformVersion] {
				found[[2]string{v, e.PlatformVersion}] = true
			}
		}
		if len(found) == expected || result.entries >= resp.Total {
			break
		}
	}
	return result, nil
}

func uniqueSorted(items []string) []string {
	set := toSet(items)
	out := make([]string, 0, len(set))
	for s := range set {
		if s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
