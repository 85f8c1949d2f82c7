package gateways

import (
	"debug/macho"
	"fmt"
	"path/filepath"
	"strings"
)

// MachOInspector checks that a plugin binary is actually loadable on
// the target CPU architecture before it lands in the plugins folder.
type MachOInspector struct{}

// NewMachOInspector creates an inspector.
func NewMachOInspector() *MachOInspector {
	return &MachOInspector{}
}

// CheckArch verifies that the Mach-O file at path contains code for
// arch. Universal binaries pass if any slice matches.
func (i *MachOInspector) CheckArch(path, arch string) error {
	cpu, ok := cpuForArch(arch)
	if !ok {
		return fmt.Errorf("unknown architecture %q", arch)
	}

	if fat, err := macho.OpenFat(path); err == nil {
		defer fat.Close() //nolint:errcheck // read-only handle
		for _, a := range fat.Arches {
			if a.Cpu == cpu {
				return nil
			}
		}
		return fmt.Errorf("%s: universal binary has no %s slice", filepath.Base(path), arch)
	}

	f, err := macho.Open(path)
	if err != nil {
		return fmt.Errorf("%s is not a Mach-O binary: %w", filepath.Base(path), err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	if f.Cpu != cpu {
		return fmt.Errorf("%s is built for %v, not %s", filepath.Base(path), f.Cpu, arch)
	}
	return nil
}

func cpuForArch(arch string) (macho.Cpu, bool) {
	switch strings.ToLower(arch) {
	case "arm64", "aarch64":
		return macho.CpuArm64, true
	case "x86_64", "amd64":
		return macho.CpuAmd64, true
	case "i386", "386":
		return macho.Cpu386, true
	}
	return 0, false
}
