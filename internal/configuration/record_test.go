package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadRecordReturnsNilWhenMissing(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "config.toml")

	// WHEN
	record, err := LoadRecord(path)

	// THEN
	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestLoadRecordFailsOnInvalidToml(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte("fans = ["), 0644))

	// WHEN
	_, err := LoadRecord(path)

	// THEN
	assert.Error(t, err)
}

func TestWriteAndLoadRecord(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "config.toml")
	config := Defaults()
	config.SensorWhitelist = []string{"k10temp-pci-", "nvme-pci-"}
	config.CriticalSensorsByRole = RoleAdapters{
		Cpu:  []string{"k10temp-pci-"},
		Case: []string{"nvme-pci-"},
	}
	config.Fans = []FanConfig{{
		Name:    "nct6775_pwm2",
		Role:    "case",
		PwmPath: "/sys/class/hwmon/hwmon1/pwm2",
	}}

	// WHEN
	writeErr := WriteRecord(config, path)
	loaded, loadErr := LoadRecord(path)

	// THEN
	assert.NoError(t, writeErr)
	assert.NoError(t, loadErr)
	assert.NotNil(t, loaded)
	assert.Equal(t, config, *loaded)
}

func TestWriteRecordIsByteStable(t *testing.T) {
	// GIVEN the same record written twice
	dir := t.TempDir()
	firstPath := filepath.Join(dir, "a.toml")
	secondPath := filepath.Join(dir, "b.toml")
	config := Defaults()
	config.SensorWhitelist = []string{"acpitz-acpi-", "nvme-pci-"}

	// WHEN
	assert.NoError(t, WriteRecord(config, firstPath))
	assert.NoError(t, WriteRecord(config, secondPath))

	// THEN the bodies are byte-identical
	first, err := os.ReadFile(firstPath)
	assert.NoError(t, err)
	second, err := os.ReadFile(secondPath)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}
