package configuration

import (
	"os"
	"time"

	"github.com/fancal/fancal/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Settings are the calibrator's own knobs. They are not part of the
// configuration record handed to the fan-controller daemon.
type Settings struct {
	// OutputPath is where the configuration record is written and where an
	// existing record is read from to preserve its tuning parameters.
	OutputPath string `mapstructure:"output_path"`

	// SettleDelay is how long to wait after actuating a fan to full duty
	// before re-reading the tachometer.
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	// PromptTimeout bounds the wait for operator input per fan.
	PromptTimeout time.Duration `mapstructure:"prompt_timeout"`
	// TestPwm is the duty value written during identification.
	TestPwm int `mapstructure:"test_pwm"`
	// RpmSamples is the number of tachometer readings taken across the
	// settle delay.
	RpmSamples int `mapstructure:"rpm_samples"`
}

var CurrentSettings Settings

// InitConfig reads in the optional settings file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("fancal")

	if cfgFile != "" {
		// Use settings file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/fancal/")
	}

	viper.SetEnvPrefix("fancal")
	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("output_path", "/etc/fan-controller/config.toml")
	viper.SetDefault("settle_delay", 2*time.Second)
	viper.SetDefault("prompt_timeout", 5*time.Minute)
	viper.SetDefault("test_pwm", 255)
	viper.SetDefault("rpm_samples", 4)
}

// LoadSettings populates CurrentSettings from the settings file (if any),
// environment variables and defaults. A missing settings file is fine, the
// defaults cover everything.
func LoadSettings() {
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			ui.Warning("Error reading settings file: %s", err)
		}
	} else {
		ui.Debug("Using settings file at: %s", viper.ConfigFileUsed())
	}

	err := viper.Unmarshal(&CurrentSettings, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	))
	if err != nil {
		ui.Fatal("unable to decode settings into struct, %v", err)
	}
}
