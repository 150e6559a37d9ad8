package dma

import (
	"fmt"

	"vcmailbox/internal/mmio"
)

// Map builds an arena over size bytes of physical RAM at phys. The range
// must be reserved from the kernel (for example with a memmap= or
// reserved-memory entry) and is mapped uncached through /dev/mem. The
// bus address of the arena equals its physical address; the caller adds
// the uncached alias when talking to the firmware.
func Map(phys uint32, size int) (*Arena, error) {
	if phys%Alignment != 0 {
		return nil, fmt.Errorf("%w: physical base 0x%08x not %d-byte aligned", ErrBadArena, phys, Alignment)
	}
	w, err := mmio.Open(int64(phys), size)
	if err != nil {
		return nil, err
	}
	a, err := newArena(w.Bytes(), phys, w.Close)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return a, nil
}
