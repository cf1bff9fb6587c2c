package models

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// SupportStatus controls how much testing a platform minor receives.
type SupportStatus string

const (
	SupportActive      SupportStatus = "active"
	SupportMaintenance SupportStatus = "maintenance"
)

// PinnedVersions is a sorted, duplicate-free set of component minors.
// It decodes from null, a single string, or a list of strings.
type PinnedVersions []string

// NormalizePinned turns nil, a string, or a collection of strings into a
// PinnedVersions set. Unsupported element types are rejected.
func NormalizePinned(v any) (PinnedVersions, error) {
	switch val := v.(type) {
	case nil:
		return PinnedVersions{}, nil
	case string:
		return newPinnedVersions([]string{val}), nil
	case []string:
		return newPinnedVersions(val), nil
	case PinnedVersions:
		return newPinnedVersions(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, pinnedTypeError(item)
			}
			items = append(items, s)
		}
		return newPinnedVersions(items), nil
	case int, int64, float64:
		return nil, pinnedTypeError(val)
	default:
		return nil, fmt.Errorf("pinned versions: unsupported type %T", v)
	}
}

// pinnedTypeError rejects non-string pins. Numbers are never converted:
// 25.10 read as a float is 25.1.
func pinnedTypeError(item any) error {
	switch item.(type) {
	case int, int64, float64:
		return fmt.Errorf("pinned version %v is a number; quote it, e.g. \"%v\"", item, item)
	}
	return fmt.Errorf("pinned version %v: want string, got %T", item, item)
}

func newPinnedVersions(items []string) PinnedVersions {
	seen := make(map[string]bool, len(items))
	out := make(PinnedVersions, 0, len(items))
	for _, s := range items {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether minor is pinned.
func (p PinnedVersions) Contains(minor string) bool {
	i := sort.SearchStrings(p, minor)
	return i < len(p) && p[i] == minor
}

// UnmarshalYAML accepts a scalar, a sequence, or null.
func (p *PinnedVersions) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decoding pinned versions: %w", err)
	}
	pinned, err := NormalizePinned(raw)
	if err != nil {
		return err
	}
	*p = pinned
	return nil
}

// UnmarshalJSON accepts a string, an array, or null.
func (p *PinnedVersions) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding pinned versions: %w", err)
	}
	pinned, err := NormalizePinned(raw)
	if err != nil {
		return err
	}
	*p = pinned
	return nil
}

// SupportEntry describes the support level of one platform minor.
type SupportEntry struct {
	Status SupportStatus  `yaml:"status" json:"status"`
	Pinned PinnedVersions `yaml:"pinned_component_versions,omitempty" json:"pinned_component_versions,omitempty"`
}

// IsActive reports whether the entry receives full testing.
func (e SupportEntry) IsActive() bool {
	return e.Status == SupportActive
}

// DefaultSupportEntry is applied to platform minors missing from a policy
// that does not declare its own default.
func DefaultSupportEntry() SupportEntry {
	return SupportEntry{Status: SupportActive}
}

// SupportPolicy maps platform minors to their support entry.
type SupportPolicy struct {
	Platforms map[string]SupportEntry
	Default   SupportEntry
}

// NewSupportPolicy returns an empty policy where every platform is active.
func NewSupportPolicy() SupportPolicy {
	return SupportPolicy{
		Platforms: make(map[string]SupportEntry),
		Default:   DefaultSupportEntry(),
	}
}

// For returns the entry for platformMinor, falling back to the default.
func (p SupportPolicy) For(platformMinor string) SupportEntry {
	if e, ok := p.Platforms[platformMinor]; ok {
		return e
	}
	if p.Default.Status == "" {
		return DefaultSupportEntry()
	}
	return p.Default
}
