package adapters

import (
	"fmt"
	"path/filepath"

	"github.com/fancal/fancal/internal/util"
	"github.com/md14454/gosensors"
)

const (
	BusTypeIsa  = 1
	BusTypePci  = 2
	BusTypeAcpi = 5
)

// Enumerate lists the adapter identifiers of all detected sensor chips in
// the lm-sensors naming scheme ("k10temp-pci-00c3"). Returns an error when
// libsensors cannot be initialized; the caller is expected to fall back to
// the classifier defaults in that case.
func Enumerate() (ids []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			ids = nil
			err = fmt.Errorf("sensor enumeration failed: %v", r)
		}
	}()

	gosensors.Init()
	defer gosensors.Cleanup()

	chips := gosensors.GetDetectedChips()
	for i := 0; i < len(chips); i++ {
		ids = append(ids, identifier(chips[i]))
	}
	return ids, nil
}

// identifier mirrors the name libsensors prints for a chip: the chip
// prefix followed by the bus type and the bus address.
func identifier(chip gosensors.Chip) string {
	name := chip.Prefix
	if len(name) <= 0 {
		name = util.GetDeviceName(chip.Path)
	}
	if len(name) <= 0 {
		_, name = filepath.Split(chip.Path)
	}

	switch chip.Bus.Type {
	case BusTypeIsa:
		return fmt.Sprintf("%s-isa-%04x", name, chip.Addr)
	case BusTypePci:
		return fmt.Sprintf("%s-pci-%04x", name, chip.Addr)
	case BusTypeAcpi:
		return fmt.Sprintf("%s-acpi-%d", name, chip.Bus.Nr)
	default:
		return fmt.Sprintf("%s-%d-%x", name, chip.Bus.Nr, chip.Addr)
	}
}
