package hwmon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/fancal/fancal/internal/util"
)

const (
	// DefaultSysfsPath is where the kernel exposes hardware monitoring
	// devices.
	DefaultSysfsPath = "/sys/class/hwmon"

	MinPwmValue = 0
	MaxPwmValue = 255

	// pwmN_enable values. 0 means "no control" (full speed) on most
	// drivers, higher values select vendor specific automatic modes.
	ControlModeManual    = 1
	ControlModeAutomatic = 2
)

var (
	ErrSysfsMissing  = errors.New("hwmon sysfs tree not found")
	ErrNoWritablePwm = errors.New("no writable pwm attribute found")

	hwmonDirRegex  = regexp.MustCompile("^hwmon[0-9]+$")
	pwmAttrRegex   = regexp.MustCompile("^pwm[0-9]+$")
	tempInputRegex = regexp.MustCompile("^temp[0-9]+_input$")
	attrIndexRegex = regexp.MustCompile("[0-9]+$")
)

// PwmControl is one physical fan actuator: the pwmN duty attribute plus
// its optional pwmN_enable and fanN_input siblings, together with the
// diagnostic fields needed to find the attributes again when hwmon
// enumeration order changes between boots.
type PwmControl struct {
	Name string

	PwmPath    string
	EnablePath string
	RpmPath    string

	PwmAttr    string
	EnableAttr string
	RpmAttr    string

	HwmonPath  string
	HwmonName  string
	DevicePath string

	Writable       bool
	EnableWritable bool
}

func (c *PwmControl) GetPwm() (int, error) {
	return util.ReadIntFromFile(c.PwmPath)
}

func (c *PwmControl) SetPwm(value int) error {
	return util.WriteIntToFile(value, c.PwmPath)
}

func (c *PwmControl) GetPwmEnabled() (int, error) {
	if len(c.EnablePath) <= 0 {
		return -1, fmt.Errorf("%s has no enable attribute", c.Name)
	}
	return util.ReadIntFromFile(c.EnablePath)
}

func (c *PwmControl) SetPwmEnabled(value int) error {
	if len(c.EnablePath) <= 0 {
		return fmt.Errorf("%s has no enable attribute", c.Name)
	}
	return util.WriteIntToFile(value, c.EnablePath)
}

func (c *PwmControl) GetRpm() (int, error) {
	if len(c.RpmPath) <= 0 {
		return -1, fmt.Errorf("%s has no tachometer attribute", c.Name)
	}
	return util.ReadIntFromFile(c.RpmPath)
}

// TempSensor is a read-only temperature input of a hwmon device, listed
// for diagnostic display only.
type TempSensor struct {
	Label string
	Index int
	Input string
}

func (s TempSensor) GetValue() (int, error) {
	return util.ReadIntFromFile(s.Input)
}

// Controller groups the PWM outputs and temperature inputs of one hwmon
// device.
type Controller struct {
	Name       string
	Path       string
	DevicePath string

	Controls []*PwmControl
	Temps    []TempSensor
}

// Controllers enumerates all hwmon devices below basePath. Read-only
// probing, no attribute is written.
func Controllers(basePath string) ([]*Controller, error) {
	dirs, err := util.FindFilesMatching(basePath, hwmonDirRegex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSysfsMissing, basePath)
	}

	var list []*Controller
	for _, dir := range dirs {
		c := &Controller{
			Name:       util.GetDeviceName(dir),
			Path:       dir,
			DevicePath: resolveDevicePath(dir),
		}
		c.Controls = scanControls(c)
		c.Temps = scanTemps(dir)

		if len(c.Controls) <= 0 && len(c.Temps) <= 0 {
			continue
		}
		list = append(list, c)
	}

	return list, nil
}

// Scan flattens the PWM outputs of all hwmon devices into one list, in
// enumeration order. Returns ErrNoWritablePwm alongside the (possibly
// non-empty) list when none of the discovered duty attributes is writable;
// read-only outputs are still reported so the caller can name them.
func Scan(basePath string) ([]*PwmControl, error) {
	controllers, err := Controllers(basePath)
	if err != nil {
		return nil, err
	}

	var controls []*PwmControl
	writable := 0
	for _, controller := range controllers {
		for _, control := range controller.Controls {
			controls = append(controls, control)
			if control.Writable {
				writable++
			}
		}
	}

	if writable <= 0 {
		return controls, ErrNoWritablePwm
	}
	return controls, nil
}

func scanControls(controller *Controller) []*PwmControl {
	attrs, err := util.FindFilesMatching(controller.Path, pwmAttrRegex)
	if err != nil {
		return nil
	}

	var controls []*PwmControl
	for _, pwmPath := range attrs {
		pwmAttr := filepath.Base(pwmPath)

		control := &PwmControl{
			Name:       fmt.Sprintf("%s/%s", controller.Name, pwmAttr),
			PwmPath:    pwmPath,
			PwmAttr:    pwmAttr,
			HwmonPath:  controller.Path,
			HwmonName:  controller.Name,
			DevicePath: controller.DevicePath,
			Writable:   util.IsWritable(pwmPath),
		}

		enablePath := pwmPath + "_enable"
		if util.IsWritable(enablePath) || exists(enablePath) {
			control.EnablePath = enablePath
			control.EnableAttr = pwmAttr + "_enable"
			control.EnableWritable = util.IsWritable(enablePath)
		}

		rpmAttr := fmt.Sprintf("fan%s_input", attrIndex(pwmAttr))
		rpmPath := filepath.Join(controller.Path, rpmAttr)
		if exists(rpmPath) {
			control.RpmPath = rpmPath
			control.RpmAttr = rpmAttr
		}

		controls = append(controls, control)
	}

	return controls
}

func scanTemps(dir string) []TempSensor {
	attrs, err := util.FindFilesMatching(dir, tempInputRegex)
	if err != nil {
		return nil
	}

	var temps []TempSensor
	for _, input := range attrs {
		temps = append(temps, TempSensor{
			Label: util.GetLabel(dir, filepath.Base(input)),
			Index: len(temps) + 1,
			Input: input,
		})
	}
	return temps
}

// attrIndex extracts the channel number from an attribute name ("pwm2" ->
// "2"), defaulting to channel 1.
func attrIndex(attr string) string {
	index := attrIndexRegex.FindString(attr)
	if len(index) <= 0 {
		return "1"
	}
	return index
}

func resolveDevicePath(hwmonDir string) string {
	devicePath := filepath.Join(hwmonDir, "device")
	resolved, err := filepath.EvalSymlinks(devicePath)
	if err != nil {
		return ""
	}
	return resolved
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
