package adapters

import (
	"strings"

	"github.com/fancal/fancal/internal/util"
)

type Role string

const (
	RoleCpu  Role = "cpu"
	RoleCase Role = "case"
)

// SensorRoles are the roles a temperature adapter can govern. An adapter
// may govern both roles at once.
var SensorRoles = []Role{RoleCpu, RoleCase}

// rolePatterns maps each role to the (lower-case) identifier fragments
// that mark an adapter as relevant for it. The amdgpu fragment appears in
// both lists: the GPU die sits in the case airflow path but tracks CPU
// package load on APU systems.
var rolePatterns = map[Role][]string{
	RoleCpu: {
		"k10temp",
		"coretemp",
		"zenpower",
		"amdgpu",
	},
	RoleCase: {
		"nvme",
		"drivetemp",
		"nct",
		"it86",
		"it87",
		"acpitz",
		"spd5118",
		"jc42",
		"amdgpu",
	},
}

// defaultWhitelist covers the chips present on the machines this tool was
// written for. Used when adapter enumeration is unavailable.
var defaultWhitelist = []string{
	"acpitz-acpi-",
	"amdgpu-pci-",
	"k10temp-pci-",
	"nvme-pci-",
	"spd5118-i2c-",
}

var defaultRoleAdapters = map[Role][]string{
	RoleCpu: {
		"amdgpu-pci-",
		"k10temp-pci-",
	},
	RoleCase: {
		"acpitz-acpi-",
		"nvme-pci-",
		"spd5118-i2c-",
	},
}

// Classification is the result of mapping raw adapter identifiers to
// canonical prefixes and functional roles.
type Classification struct {
	// Whitelist contains the canonical prefix of every known adapter,
	// sorted.
	Whitelist []string
	// RoleAdapters maps each sensor role to the sorted canonical prefixes
	// of the adapters that govern it.
	RoleAdapters map[Role][]string
	// UsedDefaults is set when the whitelist had to be populated from the
	// built-in default set because no adapters were supplied.
	UsedDefaults bool
	// DefaultedRoles lists roles whose adapter set fell back to the
	// built-in default because no supplied adapter matched its patterns.
	DefaultedRoles []Role
}

// Classify derives the sensor whitelist and the per-role adapter sets from
// the raw adapter identifiers. It never fails: an empty input falls back to
// the built-in defaults, and so does every role that ends up without a
// match, so the emitted configuration is usable even when the sensor
// subsystem is unreachable at calibration time.
func Classify(ids []string) Classification {
	result := Classification{
		RoleAdapters: map[Role][]string{},
	}

	if len(ids) <= 0 {
		result.UsedDefaults = true
		result.Whitelist = append([]string{}, defaultWhitelist...)
	} else {
		var whitelist []string
		for _, id := range ids {
			whitelist = append(whitelist, Canonicalize(id))
		}
		result.Whitelist = util.SortedDistinct(whitelist)
	}

	for _, role := range SensorRoles {
		var matches []string
		for _, id := range ids {
			if matchesRole(id, role) {
				matches = append(matches, Canonicalize(id))
			}
		}
		if len(matches) <= 0 {
			result.DefaultedRoles = append(result.DefaultedRoles, role)
			result.RoleAdapters[role] = append([]string{}, defaultRoleAdapters[role]...)
			continue
		}
		result.RoleAdapters[role] = util.SortedDistinct(matches)
	}

	return result
}

func matchesRole(id string, role Role) bool {
	lowered := strings.ToLower(id)
	for _, pattern := range rolePatterns[role] {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}
