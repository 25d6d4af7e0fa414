package configuration

import (
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/pelletier/go-toml/v2"
)

// FanConfig is the durable projection of one identified fan: the attribute
// paths the daemon drives, plus the diagnostic hints it uses to re-resolve
// those paths when hwmon enumeration order changes between boots.
type FanConfig struct {
	Name string `toml:"name" mapstructure:"name"`
	Role string `toml:"role" mapstructure:"role"`

	PwmPath    string `toml:"pwm_path" mapstructure:"pwm_path"`
	EnablePath string `toml:"enable_path,omitempty" mapstructure:"enable_path"`
	RpmPath    string `toml:"rpm_path,omitempty" mapstructure:"rpm_path"`

	PwmAttr    string `toml:"pwm_attr,omitempty" mapstructure:"pwm_attr"`
	EnableAttr string `toml:"enable_attr,omitempty" mapstructure:"enable_attr"`
	RpmAttr    string `toml:"rpm_attr,omitempty" mapstructure:"rpm_attr"`

	HwmonPathHint string `toml:"hwmon_path_hint,omitempty" mapstructure:"hwmon_path_hint"`
	HwmonName     string `toml:"hwmon_name,omitempty" mapstructure:"hwmon_name"`
	DevicePath    string `toml:"device_path,omitempty" mapstructure:"device_path"`
}

// RoleAdapters holds the canonical adapter prefixes governing each role.
type RoleAdapters struct {
	Cpu  []string `toml:"cpu" mapstructure:"cpu"`
	Case []string `toml:"case" mapstructure:"case"`
}

// Configuration is the record consumed by the fan-controller daemon. The
// calibrator owns sensor_whitelist, critical_sensors_by_role and fans; the
// scalar tuning parameters belong to the daemon and are carried through
// unmodified when an existing record is regenerated.
type Configuration struct {
	CheckInterval     int `toml:"check_interval" mapstructure:"check_interval"`
	AveragingSamples  int `toml:"averaging_samples" mapstructure:"averaging_samples"`
	MinChangeInterval int `toml:"min_change_interval" mapstructure:"min_change_interval"`
	MinSpeedChange    int `toml:"min_speed_change" mapstructure:"min_speed_change"`

	MaxFanSpeed   int     `toml:"max_fan_speed" mapstructure:"max_fan_speed"`
	Hysteresis    int     `toml:"hysteresis" mapstructure:"hysteresis"`
	EmergencyTemp float64 `toml:"emergency_temp" mapstructure:"emergency_temp"`
	CriticalTemp  float64 `toml:"critical_temp" mapstructure:"critical_temp"`

	RampStart      float64 `toml:"ramp_start" mapstructure:"ramp_start"`
	RampRange      float64 `toml:"ramp_range" mapstructure:"ramp_range"`
	CurveMinSpeed  int     `toml:"curve_min_speed" mapstructure:"curve_min_speed"`
	RpmIgnoreFloor int     `toml:"rpm_ignore_floor" mapstructure:"rpm_ignore_floor"`

	CpuAuto bool `toml:"cpu_auto" mapstructure:"cpu_auto"`

	AdaptiveEnabled        bool    `toml:"adaptive_enabled" mapstructure:"adaptive_enabled"`
	AdaptiveDropStep       int     `toml:"adaptive_drop_step" mapstructure:"adaptive_drop_step"`
	AdaptiveRaiseStep      int     `toml:"adaptive_raise_step" mapstructure:"adaptive_raise_step"`
	AdaptiveStableCycles   int     `toml:"adaptive_stable_cycles" mapstructure:"adaptive_stable_cycles"`
	AdaptiveTempWindow     float64 `toml:"adaptive_temp_window" mapstructure:"adaptive_temp_window"`
	AdaptiveTempAggressive float64 `toml:"adaptive_temp_aggressive" mapstructure:"adaptive_temp_aggressive"`

	SensorWhitelist       []string     `toml:"sensor_whitelist" mapstructure:"sensor_whitelist"`
	CriticalSensorsByRole RoleAdapters `toml:"critical_sensors_by_role" mapstructure:"critical_sensors_by_role"`

	Fans []FanConfig `toml:"fans" mapstructure:"fans"`
}

// Defaults returns a record populated with the daemon's default tuning
// parameters. Used when no existing record is available to carry them from.
func Defaults() Configuration {
	return Configuration{
		CheckInterval:     10,
		AveragingSamples:  3,
		MinChangeInterval: 30,
		MinSpeedChange:    3,

		MaxFanSpeed:   100,
		Hysteresis:    3,
		EmergencyTemp: 80,
		CriticalTemp:  90,

		RampStart:      50,
		RampRange:      20,
		CurveMinSpeed:  20,
		RpmIgnoreFloor: 800,

		CpuAuto: false,

		AdaptiveEnabled:        true,
		AdaptiveDropStep:       5,
		AdaptiveRaiseStep:      15,
		AdaptiveStableCycles:   5,
		AdaptiveTempWindow:     1.5,
		AdaptiveTempAggressive: 3.0,
	}
}

// LoadRecord reads an existing configuration record. Returns nil without an
// error when no record exists at the given path.
func LoadRecord(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var config Configuration
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// WriteRecord marshals the record as TOML and writes it atomically, so the
// daemon never observes a half-written file.
func WriteRecord(config Configuration, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, strings.NewReader(string(data)))
}
