//go:build linux

package mmio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Open maps size bytes of physical memory starting at phys. The file is
// opened O_SYNC so the kernel maps the range uncached.
func Open(phys int64, size int) (*Window, error) {
	aligned := phys &^ pageMask
	delta := int(phys - aligned)
	length := (delta + size + pageMask) &^ pageMask

	f, err := os.OpenFile(DevMem, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("mmio: open %s: %w", DevMem, err)
	}
	// The mapping stays valid after the descriptor is closed.
	defer f.Close()

	mem, err := unix.Mmap(int(f.Fd()), aligned, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmio: mmap 0x%x+0x%x: %w", aligned, length, err)
	}
	return &Window{
		mem:   mem,
		delta: delta,
		size:  size,
		unmap: func() error { return unix.Munmap(mem) },
	}, nil
}
