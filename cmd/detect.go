package cmd

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/fancal/fancal/cmd/global"
	"github.com/fancal/fancal/internal/hwmon"
	"github.com/fancal/fancal/internal/ui"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect devices",
	Long:  `Detects all pwm fan outputs and temperature sensors and prints them as a list`,
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()

		controllers, err := hwmon.Controllers(hwmon.DefaultSysfsPath)
		if err != nil {
			ui.Fatal("Scanning hwmon devices failed: %v", err)
		}

		// === Print detected devices ===
		tableConfig := defaultTableConfig()

		for _, controller := range controllers {
			if len(controller.Name) <= 0 {
				continue
			}

			ui.Printfln("> %s (%s)", controller.Name, controller.Path)

			var fanRows [][]string
			for _, control := range controller.Controls {
				pwmText := "N/A"
				if pwm, err := control.GetPwm(); err == nil {
					pwmText = strconv.Itoa(pwm)
				}

				rpmText := "N/A"
				if len(control.RpmPath) > 0 {
					if rpm, err := control.GetRpm(); err == nil {
						rpmText = strconv.Itoa(rpm)
					}
				}

				modeText := "N/A"
				if len(control.EnablePath) > 0 {
					if mode, err := control.GetPwmEnabled(); err == nil {
						modeText = strconv.Itoa(mode)
					}
				}

				fanRows = append(fanRows, []string{
					"", control.PwmAttr, pwmText, rpmText, modeText, fmt.Sprintf("%v", control.Writable),
				})
			}
			fanHeaders := []string{"Fans   ", "Attr", "PWM", "RPM", "Mode", "Writable"}

			fanTable := table.Table{
				Headers: fanHeaders,
				Rows:    fanRows,
			}

			var sensorRows [][]string
			for _, sensor := range controller.Temps {
				valueText := "N/A"
				if value, err := sensor.GetValue(); err == nil {
					valueText = strconv.Itoa(value)
				}

				sensorRows = append(sensorRows, []string{
					"", strconv.Itoa(sensor.Index), sensor.Label, valueText,
				})
			}
			sensorHeaders := []string{"Sensors", "Index", "Label", "Value"}

			sensorTable := table.Table{
				Headers: sensorHeaders,
				Rows:    sensorRows,
			}

			tables := []table.Table{fanTable, sensorTable}

			for idx, t := range tables {
				if t.Rows == nil {
					continue
				}
				var buf bytes.Buffer
				if tableErr := t.WriteTable(&buf, tableConfig); tableErr != nil {
					ui.Fatal("Error printing table: %v", tableErr)
				}
				tableString := buf.String()
				if idx < (len(tables) - 1) {
					ui.Printf(tableString)
				} else {
					ui.Printfln(tableString)
				}
			}
		}
	},
}

func defaultTableConfig() *table.Config {
	return &table.Config{
		ShowIndex:       false,
		Color:           !global.NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	}
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
