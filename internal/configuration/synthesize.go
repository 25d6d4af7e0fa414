package configuration

import (
	"fmt"
	"sort"

	"github.com/fancal/fancal/internal/adapters"
	"github.com/qdm12/reprint"
)

// Synthesize merges the classifier output and the calibration fan records
// into a configuration record. Whitelist and role entries are emitted in
// sorted order so repeated runs with identical inputs produce byte-identical
// record bodies; the fan list keeps discovery order.
//
// When an existing record is given, its scalar tuning parameters are deep
// copied into the result unmodified; otherwise the built-in defaults apply.
//
// A fan record without a name, role or duty path is a programming error in
// the caller and rejected.
func Synthesize(classification adapters.Classification, fans []FanConfig, existing *Configuration) (Configuration, error) {
	config := Defaults()
	if existing != nil {
		if err := reprint.FromTo(existing, &config); err != nil {
			return Configuration{}, err
		}
	}

	for _, fan := range fans {
		if len(fan.Name) <= 0 {
			return Configuration{}, fmt.Errorf("fan record without a name: %+v", fan)
		}
		if len(fan.Role) <= 0 {
			return Configuration{}, fmt.Errorf("fan record %s has an empty role", fan.Name)
		}
		if len(fan.PwmPath) <= 0 {
			return Configuration{}, fmt.Errorf("fan record %s has no pwm path", fan.Name)
		}
	}

	config.SensorWhitelist = sortedCopy(classification.Whitelist)
	config.CriticalSensorsByRole = RoleAdapters{
		Cpu:  sortedCopy(classification.RoleAdapters[adapters.RoleCpu]),
		Case: sortedCopy(classification.RoleAdapters[adapters.RoleCase]),
	}
	config.Fans = append([]FanConfig{}, fans...)

	return config, nil
}

func sortedCopy(values []string) []string {
	result := append([]string{}, values...)
	sort.Strings(result)
	return result
}
