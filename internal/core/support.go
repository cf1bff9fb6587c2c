package core

import (
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// ActivePlatformVersions filters known platform minors down to the active
// ones and returns them in ascending version order.
func ActivePlatformVersions(policy models.SupportPolicy, known []string) []string {
	var active []string
	for _, minor := range known {
		if policy.For(minor).IsActive() {
			active = append(active, minor)
		}
	}
	return SortVersions(active)
}

// MaintenancePins returns the pinned component minors of a maintenance
// platform, or nil when the platform is active.
func MaintenancePins(policy models.SupportPolicy, platformMinor string) models.PinnedVersions {
	entry := policy.For(platformMinor)
	if entry.IsActive() {
		return nil
	}
	return entry.Pinned
}
