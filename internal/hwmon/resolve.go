package hwmon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fancal/fancal/internal/configuration"
	"github.com/fancal/fancal/internal/ui"
	"github.com/fancal/fancal/internal/util"
)

// EnsureAttrNames fills in the attribute base names of a fan record from
// its paths, deriving the conventional siblings when only the duty
// attribute is known ("pwm2" -> "pwm2_enable", "fan2_input").
func EnsureAttrNames(fan *configuration.FanConfig) {
	if len(fan.PwmAttr) <= 0 && len(fan.PwmPath) > 0 {
		fan.PwmAttr = filepath.Base(fan.PwmPath)
	}

	if len(fan.EnableAttr) <= 0 {
		if len(fan.EnablePath) > 0 {
			fan.EnableAttr = filepath.Base(fan.EnablePath)
		} else if len(fan.PwmAttr) > 0 {
			fan.EnableAttr = fan.PwmAttr + "_enable"
		}
	}

	if len(fan.RpmAttr) <= 0 {
		if len(fan.RpmPath) > 0 {
			fan.RpmAttr = filepath.Base(fan.RpmPath)
		} else if strings.HasPrefix(fan.PwmAttr, "pwm") {
			fan.RpmAttr = fmt.Sprintf("fan%s_input", attrIndex(fan.PwmAttr))
		}
	}
}

// ResolveFanPaths makes sure the fan record points at existing sysfs paths,
// re-resolving them from the record's diagnostic hints when the cached
// paths have gone stale. Hwmon device numbering is not stable across boots,
// so the hints (hwmon name, physical device path) are authoritative, never
// the cached path. Returns false when no duty attribute can be located.
func ResolveFanPaths(fan *configuration.FanConfig, basePath string) bool {
	EnsureAttrNames(fan)

	if len(fan.PwmPath) > 0 && exists(fan.PwmPath) {
		hwmonDir := filepath.Dir(fan.PwmPath)
		fan.HwmonPathHint = hwmonDir
		populateRelatedPaths(fan, hwmonDir)
		return true
	}

	if len(fan.PwmAttr) <= 0 {
		ui.Error("Unable to determine pwm attribute for fan %s", fan.Name)
		return false
	}

	original := fan.PwmPath
	for _, dir := range candidateDirectories(fan, basePath) {
		candidate := filepath.Join(dir, fan.PwmAttr)
		if !exists(candidate) {
			continue
		}
		fan.PwmPath = candidate
		fan.HwmonPathHint = dir
		populateRelatedPaths(fan, dir)
		if len(original) > 0 && original != candidate {
			ui.Info("Resolved fan %s pwm path from %s to %s", fan.Name, original, candidate)
		}
		return true
	}

	ui.Error("Unable to resolve pwm path for fan %s (attr=%s)", fan.Name, fan.PwmAttr)
	return false
}

// ResolveAllFanPaths resolves every fan of the record; returns true only
// when all of them could be located.
func ResolveAllFanPaths(fans []configuration.FanConfig, basePath string) bool {
	success := true
	for i := range fans {
		if !ResolveFanPaths(&fans[i], basePath) {
			success = false
		}
	}
	return success
}

// candidateDirectories yields hwmon directories to probe for the fan's
// attributes, most specific hint first, full sweep last.
func candidateDirectories(fan *configuration.FanConfig, basePath string) []string {
	seen := map[string]bool{}
	var candidates []string

	add := func(path string) {
		if len(path) <= 0 {
			return
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return
		}
		info, err := os.Stat(real)
		if err != nil || !info.IsDir() || seen[real] {
			return
		}
		seen[real] = true
		candidates = append(candidates, real)
	}

	add(fan.HwmonPathHint)
	if len(fan.PwmPath) > 0 {
		add(filepath.Dir(fan.PwmPath))
	}

	if len(fan.DevicePath) > 0 {
		dirs, err := util.FindFilesMatching(filepath.Join(fan.DevicePath, "hwmon"), hwmonDirRegex)
		if err == nil {
			for _, dir := range dirs {
				add(dir)
			}
		}
	}

	allDirs, err := util.FindFilesMatching(basePath, hwmonDirRegex)
	if err != nil {
		return candidates
	}

	if len(fan.HwmonName) > 0 {
		for _, dir := range allDirs {
			if util.GetDeviceName(dir) == fan.HwmonName {
				add(dir)
			}
		}
	}
	for _, dir := range allDirs {
		add(dir)
	}

	return candidates
}

func populateRelatedPaths(fan *configuration.FanConfig, hwmonDir string) {
	if len(fan.HwmonPathHint) <= 0 {
		fan.HwmonPathHint = hwmonDir
	}
	if len(fan.HwmonName) <= 0 {
		fan.HwmonName = util.GetDeviceName(hwmonDir)
	}
	if len(fan.DevicePath) <= 0 {
		fan.DevicePath = resolveDevicePath(hwmonDir)
	}

	if len(fan.EnableAttr) > 0 {
		candidate := filepath.Join(hwmonDir, fan.EnableAttr)
		if exists(candidate) {
			fan.EnablePath = candidate
		}
	}
	if len(fan.RpmAttr) > 0 {
		candidate := filepath.Join(hwmonDir, fan.RpmAttr)
		if exists(candidate) {
			fan.RpmPath = candidate
		}
	}
}

// SetAllPwmAuto sweeps every hwmon device below basePath and writes the
// automatic mode value to every writable enable attribute. Unwritable or
// absent attributes are skipped silently; the sweep is idempotent. Returns
// the number of attributes written.
func SetAllPwmAuto(basePath string) int {
	dirs, err := util.FindFilesMatching(basePath, hwmonDirRegex)
	if err != nil {
		return 0
	}

	restored := 0
	for _, dir := range dirs {
		attrs, err := util.FindFilesMatching(dir, pwmAttrRegex)
		if err != nil {
			continue
		}
		for _, pwmPath := range attrs {
			enablePath := pwmPath + "_enable"
			if !util.IsWritable(enablePath) {
				continue
			}
			if err := util.WriteIntToFile(ControlModeAutomatic, enablePath); err != nil {
				ui.Debug("Failed to restore %s to automatic: %v", enablePath, err)
				continue
			}
			restored++
		}
	}
	return restored
}

// RestoreAutomatic writes the automatic mode value to the enable attribute
// of every fan in the record. Best-effort and idempotent.
func RestoreAutomatic(fans []configuration.FanConfig) {
	for _, fan := range fans {
		if len(fan.EnablePath) <= 0 {
			continue
		}
		if err := util.WriteIntToFile(ControlModeAutomatic, fan.EnablePath); err != nil {
			ui.Debug("Failed to restore %s to automatic: %v", fan.EnablePath, err)
		}
	}
}
