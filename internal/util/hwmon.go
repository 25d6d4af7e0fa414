package util

import (
	"os"
	"path/filepath"
	"strings"
)

// GetDeviceName reads the name attribute of a hwmon device
func GetDeviceName(devicePath string) string {
	namePath := filepath.Join(devicePath, "name")
	content, _ := os.ReadFile(namePath)
	name := string(content)
	return strings.TrimSpace(name)
}

// GetLabel reads the label of an in/output of a device, falling back to
// the directory name when no label attribute exists
func GetLabel(devicePath string, input string) string {
	labelPath := strings.TrimSuffix(filepath.Join(devicePath, input), "input") + "label"

	content, _ := os.ReadFile(labelPath)
	label := strings.TrimSpace(string(content))
	if len(label) <= 0 {
		_, label = filepath.Split(devicePath)
	}
	return label
}
