package calibration

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/fancal/fancal/internal/adapters"
	"github.com/fancal/fancal/internal/configuration"
	"github.com/fancal/fancal/internal/hwmon"
	"github.com/fancal/fancal/internal/util"
	"github.com/stretchr/testify/assert"
)

// scriptedPrompter replays a fixed sequence of operator inputs. The
// "<timeout>" marker simulates an expired input wait.
type scriptedPrompter struct {
	responses []string
}

func (p *scriptedPrompter) ReadChoice(timeout time.Duration) (string, error) {
	if len(p.responses) <= 0 {
		return "", ErrPromptTimeout
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	if next == "<timeout>" {
		return "", ErrPromptTimeout
	}
	return next, nil
}

func testSettings() configuration.Settings {
	return configuration.Settings{
		SettleDelay:   0,
		PromptTimeout: time.Second,
		TestPwm:       255,
		RpmSamples:    2,
	}
}

func createFanDevice(t *testing.T, base string, dir string, name string, pwm int, enable int, rpm int) string {
	t.Helper()

	devicePath := filepath.Join(base, dir)
	err := os.MkdirAll(devicePath, 0755)
	assert.NoError(t, err)

	writeAttr := func(attr string, value string) {
		assert.NoError(t, os.WriteFile(filepath.Join(devicePath, attr), []byte(value+"\n"), 0644))
	}
	writeAttr("name", name)
	writeAttr("pwm1", strconv.Itoa(pwm))
	writeAttr("pwm1_enable", strconv.Itoa(enable))
	writeAttr("fan1_input", strconv.Itoa(rpm))

	return devicePath
}

func newTestSession(t *testing.T, base string, prompter Prompter) *Session {
	t.Helper()

	controls, err := hwmon.Scan(base)
	assert.NoError(t, err)

	session := NewSession(controls, prompter, testSettings(), base)
	session.sleep = func(time.Duration) {}
	return session
}

func readAttr(t *testing.T, devicePath string, attr string) int {
	t.Helper()
	value, err := util.ReadIntFromFile(filepath.Join(devicePath, attr))
	assert.NoError(t, err)
	return value
}

func TestDeadFanIsSkippedWithoutPrompting(t *testing.T) {
	// GIVEN a fan whose tachometer reads zero before and after actuation
	base := t.TempDir()
	devicePath := createFanDevice(t, base, "hwmon0", "nct6775", 100, 2, 0)
	prompter := &scriptedPrompter{responses: []string{"c"}}
	session := newTestSession(t, base, prompter)

	// WHEN
	fans, aborted := session.Run()

	// THEN it is classified dead, no prompt is consumed, and the baseline
	// is restored
	assert.False(t, aborted)
	assert.Empty(t, fans)
	assert.Len(t, session.Results(), 1)
	assert.Equal(t, OutcomeDead, session.Results()[0].Outcome)
	assert.Len(t, prompter.responses, 1)
	assert.Equal(t, 100, readAttr(t, devicePath, "pwm1"))
	assert.Equal(t, 2, readAttr(t, devicePath, "pwm1_enable"))
}

func TestSpinningFanIsRecordedWithChosenRole(t *testing.T) {
	// GIVEN
	base := t.TempDir()
	devicePath := createFanDevice(t, base, "hwmon0", "nct6775", 100, 2, 1200)
	prompter := &scriptedPrompter{responses: []string{"k"}}
	session := newTestSession(t, base, prompter)

	// WHEN
	fans, aborted := session.Run()

	// THEN
	assert.False(t, aborted)
	assert.Len(t, fans, 1)
	fan := fans[0]
	assert.Equal(t, "nct6775_pwm1", fan.Name)
	assert.Equal(t, "case", fan.Role)
	assert.Equal(t, filepath.Join(devicePath, "pwm1"), fan.PwmPath)
	assert.Equal(t, filepath.Join(devicePath, "pwm1_enable"), fan.EnablePath)
	assert.Equal(t, filepath.Join(devicePath, "fan1_input"), fan.RpmPath)
	assert.Equal(t, "pwm1", fan.PwmAttr)
	assert.Equal(t, "nct6775", fan.HwmonName)

	// AND the baseline was restored after the test actuation
	assert.Equal(t, 100, readAttr(t, devicePath, "pwm1"))
	assert.Equal(t, 2, readAttr(t, devicePath, "pwm1_enable"))
}

func TestCpuRoleIsAssignedAtMostOnce(t *testing.T) {
	// GIVEN two spinning fans and an operator trying to assign cpu twice
	base := t.TempDir()
	createFanDevice(t, base, "hwmon0", "nct6775", 100, 2, 1200)
	createFanDevice(t, base, "hwmon1", "amdgpu", 90, 2, 900)
	prompter := &scriptedPrompter{responses: []string{"c", "c", "k"}}
	session := newTestSession(t, base, prompter)

	// WHEN
	fans, aborted := session.Run()

	// THEN the second attempt is rejected and re-prompted
	assert.False(t, aborted)
	assert.Len(t, fans, 2)
	assert.Equal(t, "cpu", fans[0].Role)
	assert.Equal(t, "case", fans[1].Role)
	assert.Empty(t, prompter.responses)
}

func TestInvalidInputReprompts(t *testing.T) {
	// GIVEN
	base := t.TempDir()
	createFanDevice(t, base, "hwmon0", "nct6775", 100, 2, 1200)
	prompter := &scriptedPrompter{responses: []string{"x", "banana", "k"}}
	session := newTestSession(t, base, prompter)

	// WHEN
	fans, _ := session.Run()

	// THEN
	assert.Len(t, fans, 1)
	assert.Equal(t, "case", fans[0].Role)
}

func TestPromptTimeoutLeavesFanUnassigned(t *testing.T) {
	// GIVEN
	base := t.TempDir()
	devicePath := createFanDevice(t, base, "hwmon0", "nct6775", 100, 2, 1200)
	prompter := &scriptedPrompter{responses: []string{"<timeout>"}}
	session := newTestSession(t, base, prompter)

	// WHEN
	fans, aborted := session.Run()

	// THEN the timeout is reported distinctly but acts like a skip
	assert.False(t, aborted)
	assert.Empty(t, fans)
	assert.Equal(t, OutcomeTimeout, session.Results()[0].Outcome)
	assert.Equal(t, 100, readAttr(t, devicePath, "pwm1"))
	assert.Equal(t, 2, readAttr(t, devicePath, "pwm1_enable"))
}

func TestExplicitSkipLeavesFanUnassigned(t *testing.T) {
	// GIVEN
	base := t.TempDir()
	devicePath := createFanDevice(t, base, "hwmon0", "nct6775", 77, 1, 1500)
	prompter := &scriptedPrompter{responses: []string{"s"}}
	session := newTestSession(t, base, prompter)

	// WHEN
	fans, aborted := session.Run()

	// THEN
	assert.False(t, aborted)
	assert.Empty(t, fans)
	assert.Equal(t, OutcomeSkipped, session.Results()[0].Outcome)
	assert.Equal(t, 77, readAttr(t, devicePath, "pwm1"))
	assert.Equal(t, 1, readAttr(t, devicePath, "pwm1_enable"))
}

func TestQuitRestoresCurrentFanAndSweepsAllToAutomatic(t *testing.T) {
	// GIVEN two fans, the operator quits on the first
	base := t.TempDir()
	first := createFanDevice(t, base, "hwmon0", "nct6775", 100, 1, 1200)
	second := createFanDevice(t, base, "hwmon1", "amdgpu", 90, 1, 900)
	prompter := &scriptedPrompter{responses: []string{"q"}}
	session := newTestSession(t, base, prompter)

	// WHEN
	fans, aborted := session.Run()

	// THEN the run ends, the current fan's duty is back at baseline, and
	// every enable attribute on the system is in automatic mode
	assert.True(t, aborted)
	assert.Empty(t, fans)
	assert.Len(t, session.Results(), 1)
	assert.Equal(t, OutcomeQuit, session.Results()[0].Outcome)

	assert.Equal(t, 100, readAttr(t, first, "pwm1"))
	assert.Equal(t, hwmon.ControlModeAutomatic, readAttr(t, first, "pwm1_enable"))
	// the second fan was never touched, but the sweep still covers it
	assert.Equal(t, 90, readAttr(t, second, "pwm1"))
	assert.Equal(t, hwmon.ControlModeAutomatic, readAttr(t, second, "pwm1_enable"))
}

func TestInterruptActsLikeQuit(t *testing.T) {
	// GIVEN a session that is interrupted before the prompt is answered
	base := t.TempDir()
	devicePath := createFanDevice(t, base, "hwmon0", "nct6775", 100, 1, 1200)
	// a prompter that blocks until the timeout would expire
	prompter := NewLinePrompter(blockedReader{})
	session := newTestSession(t, base, prompter)
	session.Interrupt()

	// WHEN
	fans, aborted := session.Run()

	// THEN
	assert.True(t, aborted)
	assert.Empty(t, fans)
	assert.Equal(t, 100, readAttr(t, devicePath, "pwm1"))
	assert.Equal(t, hwmon.ControlModeAutomatic, readAttr(t, devicePath, "pwm1_enable"))
}

func TestEndToEndCalibration(t *testing.T) {
	// GIVEN two adapters without a cpu match, one dead fan and one
	// spinning fan the operator assigns to the case role
	classification := adapters.Classify([]string{"nvme-pci-0500", "acpitz-acpi-0"})

	base := t.TempDir()
	createFanDevice(t, base, "hwmon0", "nct6775", 100, 2, 0)
	createFanDevice(t, base, "hwmon1", "amdgpu", 90, 2, 1500)
	prompter := &scriptedPrompter{responses: []string{"k"}}
	session := newTestSession(t, base, prompter)

	// WHEN
	fans, aborted := session.Run()
	config, err := configuration.Synthesize(classification, fans, nil)

	// THEN
	assert.False(t, aborted)
	assert.NoError(t, err)

	assert.Len(t, config.Fans, 1)
	assert.Equal(t, "case", config.Fans[0].Role)
	assert.Equal(t, "amdgpu_pwm1", config.Fans[0].Name)

	// the case role carries both canonical prefixes, the cpu role fell
	// back to its built-in defaults
	assert.Equal(t, []string{"acpitz-acpi-", "nvme-pci-"}, config.CriticalSensorsByRole.Case)
	assert.NotEmpty(t, config.CriticalSensorsByRole.Cpu)
	assert.NotContains(t, config.CriticalSensorsByRole.Cpu, "nvme-pci-")
	assert.Equal(t, []string{"acpitz-acpi-", "nvme-pci-"}, config.SensorWhitelist)

	// tuning parameters came from the defaults
	assert.Equal(t, 10, config.CheckInterval)
	assert.Equal(t, 800, config.RpmIgnoreFloor)
}

type blockedReader struct{}

func (blockedReader) Read(p []byte) (int, error) {
	time.Sleep(10 * time.Second)
	return 0, nil
}
