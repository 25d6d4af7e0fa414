package calibration

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asecurityteam/rolling"
	"github.com/fancal/fancal/internal/adapters"
	"github.com/fancal/fancal/internal/configuration"
	"github.com/fancal/fancal/internal/hwmon"
	"github.com/fancal/fancal/internal/ui"
	"github.com/guptarohit/asciigraph"
)

type Outcome int

const (
	OutcomeAssigned Outcome = iota
	OutcomeSkipped
	OutcomeTimeout
	OutcomeDead
	OutcomeQuit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAssigned:
		return "assigned"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeTimeout:
		return "timed out"
	case OutcomeDead:
		return "not functional"
	case OutcomeQuit:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the per-control-point outcome of the identification cycle.
type Result struct {
	Control *hwmon.PwmControl
	Outcome Outcome
	Role    adapters.Role
}

var errAborted = errors.New("calibration aborted")

// Session drives the fan identification protocol over the discovered
// control points, one at a time. It owns the single-assignment guard for
// the cpu role and the list of recorded fans; there is exactly one thread
// of execution, so neither needs locking.
type Session struct {
	controls  []*hwmon.PwmControl
	prompter  Prompter
	settings  configuration.Settings
	sysfsPath string

	sleep func(time.Duration)

	abort     chan struct{}
	abortOnce sync.Once

	cpuAssigned bool
	fans        []configuration.FanConfig
	results     []Result
}

func NewSession(
	controls []*hwmon.PwmControl,
	prompter Prompter,
	settings configuration.Settings,
	sysfsPath string,
) *Session {
	return &Session{
		controls:  controls,
		prompter:  prompter,
		settings:  settings,
		sysfsPath: sysfsPath,
		sleep:     time.Sleep,
		abort:     make(chan struct{}),
	}
}

// Interrupt requests a cooperative abort. It is observed at the next
// classification prompt, never in the middle of a hardware write, and then
// follows the same path as an operator quit.
func (s *Session) Interrupt() {
	s.abortOnce.Do(func() {
		close(s.abort)
	})
}

// Results returns the per-control outcomes in discovery order.
func (s *Session) Results() []Result {
	return s.results
}

// Run identifies every writable control point in turn. Returns the
// recorded fans and whether the run ended through an operator quit. On
// quit the current control point is restored first, then every writable
// enable attribute on the system is forced back to automatic mode, so no
// fan is ever left in a manual or test state.
func (s *Session) Run() ([]configuration.FanConfig, bool) {
	for index, control := range s.controls {
		if !control.Writable {
			ui.Warning("Skipping %s: duty attribute is not writable", control.Name)
			continue
		}

		result := s.identify(index, control)
		s.results = append(s.results, result)

		if result.Outcome == OutcomeQuit {
			ui.Info("Restoring all fans to automatic mode...")
			restored := hwmon.SetAllPwmAuto(s.sysfsPath)
			ui.Success("Restored %d enable attribute(s) to automatic mode", restored)
			return s.fans, true
		}
	}

	return s.fans, false
}

type controlBaseline struct {
	pwm   int
	pwmOk bool

	enable   int
	enableOk bool

	rpm   int
	rpmOk bool
}

// identify runs one capture -> actuate -> classify -> restore cycle. The
// restore step is unconditional: whatever the outcome, the control point
// leaves the cycle holding its pre-calibration values.
func (s *Session) identify(index int, control *hwmon.PwmControl) Result {
	ui.Printfln("")
	ui.Info("Testing fan output %d/%d: %s", index+1, len(s.controls), control.Name)

	baseline := s.captureBaseline(control)
	defer s.restore(control, baseline)

	s.forceManualMode(control)
	samples := s.actuate(control)

	if isDead(baseline, samples) {
		ui.Warning("%s shows no rotation before or after actuation, marking as non-functional", control.Name)
		return Result{Control: control, Outcome: OutcomeDead}
	}

	outcome, role := s.classify(control, baseline, samples)
	if outcome == OutcomeAssigned {
		s.record(control, role)
	}
	return Result{Control: control, Outcome: outcome, Role: role}
}

func (s *Session) captureBaseline(control *hwmon.PwmControl) controlBaseline {
	var baseline controlBaseline
	var err error

	baseline.pwm, err = control.GetPwm()
	baseline.pwmOk = err == nil

	if len(control.EnablePath) > 0 {
		baseline.enable, err = control.GetPwmEnabled()
		baseline.enableOk = err == nil
	}

	if len(control.RpmPath) > 0 {
		baseline.rpm, err = control.GetRpm()
		baseline.rpmOk = err == nil
	}

	return baseline
}

// forceManualMode is best-effort: some hardware has no enable attribute or
// a mode fixed by firmware.
func (s *Session) forceManualMode(control *hwmon.PwmControl) {
	if !control.EnableWritable {
		return
	}
	if err := control.SetPwmEnabled(hwmon.ControlModeManual); err != nil {
		ui.Debug("Cannot force manual mode on %s: %v", control.Name, err)
	}
}

// actuate drives the control point to the test duty value and samples the
// tachometer across the settle interval. Returns the collected readings.
func (s *Session) actuate(control *hwmon.PwmControl) []float64 {
	if err := control.SetPwm(s.settings.TestPwm); err != nil {
		ui.Debug("Cannot actuate %s: %v", control.Name, err)
	}

	sampleCount := s.settings.RpmSamples
	if sampleCount <= 0 || len(control.RpmPath) <= 0 {
		s.sleep(s.settings.SettleDelay)
		return nil
	}

	window := rolling.NewPointPolicy(rolling.NewWindow(sampleCount))
	var samples []float64
	interval := s.settings.SettleDelay / time.Duration(sampleCount)
	for i := 0; i < sampleCount; i++ {
		s.sleep(interval)
		rpm, err := control.GetRpm()
		if err != nil {
			continue
		}
		window.Append(float64(rpm))
		samples = append(samples, float64(rpm))
	}

	if len(samples) > 0 {
		ui.Debug("Peak tachometer reading for %s: %.0f rpm", control.Name, window.Reduce(rolling.Max))
	}
	return samples
}

// isDead applies the dead-output heuristic: a tachometer that reads zero
// both at baseline and after max-duty actuation. A fan stalled at baseline
// with a spin-up latency longer than the settle interval can be
// misclassified by this; operators can re-run calibration in that case.
func isDead(baseline controlBaseline, samples []float64) bool {
	if !baseline.rpmOk || baseline.rpm != 0 {
		return false
	}
	if len(samples) <= 0 {
		return false
	}
	for _, sample := range samples {
		if sample != 0 {
			return false
		}
	}
	return true
}

func (s *Session) classify(control *hwmon.PwmControl, baseline controlBaseline, samples []float64) (Outcome, adapters.Role) {
	s.printControlSummary(control, baseline, samples)

	for {
		ui.Printf("Which fan changed speed? [c]pu / [k] case / [s]kip / [q]uit: ")

		choice, err := s.readChoice()
		if errors.Is(err, ErrPromptTimeout) {
			ui.Printfln("")
			ui.Warning("No input within %s for %s, leaving it unassigned", s.settings.PromptTimeout, control.Name)
			return OutcomeTimeout, ""
		}
		if err != nil {
			// Aborted or input exhausted; both end the run safely.
			ui.Printfln("")
			return OutcomeQuit, ""
		}

		switch choice {
		case "c":
			if s.cpuAssigned {
				ui.Warning("The cpu role is already assigned, only one fan may hold it")
				continue
			}
			s.cpuAssigned = true
			return OutcomeAssigned, adapters.RoleCpu
		case "k":
			return OutcomeAssigned, adapters.RoleCase
		case "s":
			return OutcomeSkipped, ""
		case "q":
			return OutcomeQuit, ""
		default:
			ui.Warning("Unknown input %q", choice)
		}
	}
}

// readChoice blocks on the prompter while staying receptive to a
// cooperative abort. The prompt wait is the only cancellation point of the
// whole cycle.
func (s *Session) readChoice() (string, error) {
	type answer struct {
		line string
		err  error
	}

	result := make(chan answer, 1)
	go func() {
		line, err := s.prompter.ReadChoice(s.settings.PromptTimeout)
		result <- answer{line, err}
	}()

	select {
	case <-s.abort:
		return "", errAborted
	case a := <-result:
		return a.line, a.err
	}
}

func (s *Session) record(control *hwmon.PwmControl, role adapters.Role) {
	fan := configuration.FanConfig{
		Name: fmt.Sprintf("%s_%s", control.HwmonName, control.PwmAttr),
		Role: string(role),

		PwmPath:    control.PwmPath,
		EnablePath: control.EnablePath,
		RpmPath:    control.RpmPath,

		PwmAttr:    control.PwmAttr,
		EnableAttr: control.EnableAttr,
		RpmAttr:    control.RpmAttr,

		HwmonPathHint: control.HwmonPath,
		HwmonName:     control.HwmonName,
		DevicePath:    control.DevicePath,
	}
	s.fans = append(s.fans, fan)
	ui.Success("Recorded %s with role '%s'", fan.Name, fan.Role)
}

// restore writes back the captured baseline values. Failures are logged
// and discarded: the safety guarantee depends on the attempt being made,
// not on any single write succeeding.
func (s *Session) restore(control *hwmon.PwmControl, baseline controlBaseline) {
	if baseline.pwmOk && control.Writable {
		if err := control.SetPwm(baseline.pwm); err != nil {
			ui.Debug("Cannot restore duty value of %s: %v", control.Name, err)
		}
	}
	if baseline.enableOk && control.EnableWritable {
		if err := control.SetPwmEnabled(baseline.enable); err != nil {
			ui.Debug("Cannot restore enable mode of %s: %v", control.Name, err)
		}
	}
}

func (s *Session) printControlSummary(control *hwmon.PwmControl, baseline controlBaseline, samples []float64) {
	ui.Printfln("  device:  %s (%s)", control.HwmonName, control.HwmonPath)
	if len(control.DevicePath) > 0 {
		ui.Printfln("  physical: %s", control.DevicePath)
	}
	if baseline.rpmOk {
		ui.Printfln("  baseline: %d rpm", baseline.rpm)
	}
	if len(samples) > 1 {
		graph := asciigraph.Plot(samples, asciigraph.Height(8), asciigraph.Caption("tachometer during spin-up"))
		ui.Printfln("%s", graph)
	}
}
