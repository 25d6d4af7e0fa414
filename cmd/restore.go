package cmd

import (
	"github.com/fancal/fancal/internal/configuration"
	"github.com/fancal/fancal/internal/hwmon"
	"github.com/fancal/fancal/internal/ui"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Return all fans to automatic control",
	Long: `Writes the automatic mode value to every reachable pwm enable
attribute: first the fans listed in the configuration record, then a full
sweep of the hwmon tree. Safe to run at any time, also used by the
uninstaller.`,
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		configuration.LoadSettings()

		record, err := configuration.LoadRecord(configuration.CurrentSettings.OutputPath)
		if err != nil {
			ui.Warning("Could not read configuration record: %v", err)
		}
		if record != nil {
			hwmon.ResolveAllFanPaths(record.Fans, hwmon.DefaultSysfsPath)
			hwmon.RestoreAutomatic(record.Fans)
		}

		restored := hwmon.SetAllPwmAuto(hwmon.DefaultSysfsPath)
		ui.Success("Restored %d enable attribute(s) to automatic mode", restored)
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
