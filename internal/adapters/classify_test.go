package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyEmptyInputFallsBackToDefaults(t *testing.T) {
	// GIVEN
	var ids []string

	// WHEN
	result := Classify(ids)

	// THEN
	assert.True(t, result.UsedDefaults)
	assert.Equal(t, defaultWhitelist, result.Whitelist)
	assert.Equal(t, defaultRoleAdapters[RoleCpu], result.RoleAdapters[RoleCpu])
	assert.Equal(t, defaultRoleAdapters[RoleCase], result.RoleAdapters[RoleCase])
	assert.ElementsMatch(t, []Role{RoleCpu, RoleCase}, result.DefaultedRoles)
}

func TestClassifyCpuAdapter(t *testing.T) {
	// GIVEN
	ids := []string{"k10temp-pci-00c3"}

	// WHEN
	result := Classify(ids)

	// THEN
	assert.False(t, result.UsedDefaults)
	assert.Equal(t, []string{"k10temp-pci-"}, result.Whitelist)
	assert.Equal(t, []string{"k10temp-pci-"}, result.RoleAdapters[RoleCpu])
	assert.NotContains(t, result.RoleAdapters[RoleCase], "k10temp-pci-")
	// the case role found no match and fell back to its defaults
	assert.Contains(t, result.DefaultedRoles, RoleCase)
	assert.NotContains(t, result.DefaultedRoles, RoleCpu)
}

func TestClassifyCaseAdaptersWithCpuFallback(t *testing.T) {
	// GIVEN
	ids := []string{"nvme-pci-0500", "acpitz-acpi-0"}

	// WHEN
	result := Classify(ids)

	// THEN
	assert.False(t, result.UsedDefaults)
	assert.Equal(t, []string{"acpitz-acpi-", "nvme-pci-"}, result.Whitelist)
	assert.Equal(t, []string{"acpitz-acpi-", "nvme-pci-"}, result.RoleAdapters[RoleCase])
	assert.Equal(t, defaultRoleAdapters[RoleCpu], result.RoleAdapters[RoleCpu])
	assert.Contains(t, result.DefaultedRoles, RoleCpu)
}

func TestClassifySharedGraphicsFragmentGovernsBothRoles(t *testing.T) {
	// GIVEN
	ids := []string{"amdgpu-pci-0400"}

	// WHEN
	result := Classify(ids)

	// THEN
	assert.Contains(t, result.RoleAdapters[RoleCpu], "amdgpu-pci-")
	assert.Contains(t, result.RoleAdapters[RoleCase], "amdgpu-pci-")
}

func TestClassifyMatchingIsCaseInsensitive(t *testing.T) {
	// GIVEN
	ids := []string{"K10Temp-PCI-00c3"}

	// WHEN
	result := Classify(ids)

	// THEN
	assert.Contains(t, result.RoleAdapters[RoleCpu], "K10Temp-PCI-")
}

func TestClassifyDeduplicatesPrefixes(t *testing.T) {
	// GIVEN two nvme drives on different pci addresses
	ids := []string{"nvme-pci-0500", "nvme-pci-0600"}

	// WHEN
	result := Classify(ids)

	// THEN they collapse into one canonical prefix
	assert.Equal(t, []string{"nvme-pci-"}, result.Whitelist)
	assert.Equal(t, []string{"nvme-pci-"}, result.RoleAdapters[RoleCase])
}
