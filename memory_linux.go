//go:build linux

package mutprox

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeMemory returns free plus buffer memory from sysinfo(2).
func (SystemMemory) FreeMemory() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("mutprox: sysinfo: %w", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return (uint64(info.Freeram) + uint64(info.Bufferram)) * unit, nil
}
