package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fancal/fancal/cmd/global"
	"github.com/fancal/fancal/internal/adapters"
	"github.com/fancal/fancal/internal/calibration"
	"github.com/fancal/fancal/internal/configuration"
	"github.com/fancal/fancal/internal/hwmon"
	"github.com/fancal/fancal/internal/ui"
	"github.com/oklog/run"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fancal",
	Short: "Discover and calibrate the fans of a computer.",
	Long: `fancal discovers the PWM fan outputs and temperature sensors of
a machine, lets you assign each fan a functional role, and writes the
configuration record consumed by the fan-controller daemon.`,
	// this is the default command to run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		printHeader()

		configuration.LoadSettings()
		runCalibration()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&global.CfgFile, "config", "c", "", "settings file (default is $HOME/fancal.toml)")
	rootCmd.PersistentFlags().BoolVarP(&global.NoColor, "no-color", "", false, "Disable all terminal output coloration")
	rootCmd.PersistentFlags().BoolVarP(&global.NoStyle, "no-style", "", false, "Disable all terminal output styling")
	rootCmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "More verbose output")
}

func runCalibration() {
	ids, err := adapters.Enumerate()
	if err != nil {
		ui.Warning("Sensor adapter enumeration failed: %v", err)
		ui.Warning("Install lm-sensors, run 'sensors-detect' and reboot for better results")
	}

	classification := adapters.Classify(ids)
	reportClassification(classification)

	controls, err := hwmon.Scan(hwmon.DefaultSysfsPath)
	if err != nil {
		reportScanFailure(controls, err)
		os.Exit(1)
	}
	ui.Info("Found %d pwm output(s)", len(controls))

	prompter := calibration.NewLinePrompter(os.Stdin)
	session := calibration.NewSession(controls, prompter, configuration.CurrentSettings, hwmon.DefaultSysfsPath)

	var fans []configuration.FanConfig
	aborted := false

	ctx, cancel := context.WithCancel(context.Background())
	var g run.Group
	{
		g.Add(func() error {
			fans, aborted = session.Run()
			cancel()
			return nil
		}, func(err error) {
			session.Interrupt()
		})
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received termination signal, aborting calibration...")
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			defer close(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		ui.Fatal("Calibration failed: %v", err)
	}

	printResultSummary(session.Results())

	if aborted {
		ui.Info("Calibration aborted; all fans were restored to automatic control")
		return
	}

	outputPath := configuration.CurrentSettings.OutputPath
	existing, err := configuration.LoadRecord(outputPath)
	if err != nil {
		ui.Warning("Could not read existing record at %s: %v", outputPath, err)
	}
	if existing != nil {
		ui.Info("Preserving tuning parameters of the existing record at %s", outputPath)
	}

	config, err := configuration.Synthesize(classification, fans, existing)
	if err != nil {
		ui.Fatal("Failed to synthesize configuration record: %v", err)
	}

	if err := configuration.WriteRecord(config, outputPath); err != nil {
		ui.Fatal("Failed to write configuration record to %s: %v", outputPath, err)
	}
	ui.Success("Wrote configuration record to %s", outputPath)
}

func reportClassification(classification adapters.Classification) {
	if classification.UsedDefaults {
		ui.Warning("No sensor adapters found, using the built-in default whitelist")
	}
	ui.Info("Sensor whitelist: %s", strings.Join(classification.Whitelist, ", "))

	for _, role := range adapters.SensorRoles {
		ui.Info("Sensors governing the %s role: %s", role, strings.Join(classification.RoleAdapters[role], ", "))
	}
	for _, role := range classification.DefaultedRoles {
		ui.Warning("No adapter matched the %s role, its built-in defaults were used", role)
	}
}

func reportScanFailure(controls []*hwmon.PwmControl, err error) {
	switch {
	case errors.Is(err, hwmon.ErrSysfsMissing):
		ui.Error("Hardware monitoring tree not found under %s", hwmon.DefaultSysfsPath)
		ui.Error("Make sure /sys is mounted and the sensor kernel modules are loaded, then reboot")
	case errors.Is(err, hwmon.ErrNoWritablePwm):
		for _, control := range controls {
			ui.Warning("Found read-only pwm output: %s", control.Name)
		}
		ui.Error("No writable pwm attribute found, nothing can be calibrated")
		ui.Error("Run 'sensors-detect', load the suggested motherboard sensor module and reboot")
	default:
		ui.Error("Scanning pwm outputs failed: %v", err)
	}
}

func printResultSummary(results []calibration.Result) {
	if len(results) <= 0 {
		return
	}

	var rows [][]string
	for _, result := range results {
		role := ""
		if result.Outcome == calibration.OutcomeAssigned {
			role = string(result.Role)
		}
		rows = append(rows, []string{result.Control.Name, result.Outcome.String(), role})
	}

	resultTable := table.Table{
		Headers: []string{"Fan", "Outcome", "Role"},
		Rows:    rows,
	}

	var buf bytes.Buffer
	if err := resultTable.WriteTable(&buf, defaultTableConfig()); err != nil {
		ui.Fatal("Error printing table: %v", err)
	}
	ui.Printfln("")
	ui.Printfln(buf.String())
}

func setupUi() {
	ui.SetDebugEnabled(global.Verbose)

	if global.NoColor {
		pterm.DisableColor()
	}
	if global.NoStyle {
		pterm.DisableStyling()
	}
}

// Print a large text with the LetterStyle from the standard theme.
func printHeader() {
	err := pterm.DefaultBigText.WithLetters(
		pterm.NewLettersFromStringWithStyle("fan", pterm.NewStyle(pterm.FgLightBlue)),
		pterm.NewLettersFromStringWithStyle("cal", pterm.NewStyle(pterm.FgWhite)),
	).Render()
	if err != nil {
		fmt.Println("fancal")
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.OnInitialize(func() {
		configuration.InitConfig(global.CfgFile)
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
