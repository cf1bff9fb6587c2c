package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// supportEntryFile is one platform entry as written by operators.
// pinned_gpu_operator is the older name of pinned_component_versions.
type supportEntryFile struct {
	Status       models.SupportStatus  `yaml:"status"`
	Pinned       models.PinnedVersions `yaml:"pinned_component_versions"`
	LegacyPinned models.PinnedVersions `yaml:"pinned_gpu_operator"`
}

type supportDefaultsFile struct {
	UnlistedVersions *supportEntryFile `yaml:"unlisted_versions"`
}

// supportPolicyFile is the top-level structure of the support matrix file.
// openshift_support is accepted as an alias of platform_support.
type supportPolicyFile struct {
	PlatformSupport  map[string]supportEntryFile `yaml:"platform_support"`
	OpenShiftSupport map[string]supportEntryFile `yaml:"openshift_support"`
	Defaults         supportDefaultsFile         `yaml:"defaults"`
}

// LoadSupportPolicy reads a YAML or JSON support matrix. A missing file
// yields a policy where every platform is active.
func LoadSupportPolicy(path string) (models.SupportPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewSupportPolicy(), nil
		}
		return models.SupportPolicy{}, fmt.Errorf("loading support policy: %w", err)
	}
	return ParseSupportPolicy(data)
}

// ParseSupportPolicy decodes a support matrix document.
func ParseSupportPolicy(data []byte) (models.SupportPolicy, error) {
	var f supportPolicyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return models.SupportPolicy{}, fmt.Errorf("loading support policy: parsing: %w", err)
	}

	policy := models.NewSupportPolicy()
	for _, section := range []map[string]supportEntryFile{f.OpenShiftSupport, f.PlatformSupport} {
		for minor, raw := range section {
			entry, err := raw.toEntry()
			if err != nil {
				return models.SupportPolicy{}, fmt.Errorf("loading support policy: platform %s: %w", minor, err)
			}
			policy.Platforms[minor] = entry
		}
	}
	if f.Defaults.UnlistedVersions != nil {
		entry, err := f.Defaults.UnlistedVersions.toEntry()
		if err != nil {
			return models.SupportPolicy{}, fmt.Errorf("loading support policy: defaults: %w", err)
		}
		policy.Default = entry
	}
	return policy, nil
}

func (e supportEntryFile) toEntry() (models.SupportEntry, error) {
	switch e.Status {
	case models.SupportActive, models.SupportMaintenance:
	case "":
		return models.SupportEntry{}, fmt.Errorf("status is required")
	default:
		return models.SupportEntry{}, fmt.Errorf("unknown status %q, must be one of: active, maintenance", e.Status)
	}
	pinned, err := models.NormalizePinned(append(append([]string{}, e.Pinned...), e.LegacyPinned...))
	if err != nil {
		return models.SupportEntry{}, err
	}
	return models.SupportEntry{Status: e.Status, Pinned: pinned}, nil
}
