// Package mmio maps physical address ranges through /dev/mem and gives
// 32-bit register access to them.
package mmio

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// DevMem is the device node used for physical mappings.
const DevMem = "/dev/mem"

const pageMask = 0xFFF

var (
	ErrUnsupported = errors.New("mmio: physical mappings are not supported on this platform")
	ErrBounds      = errors.New("mmio: register offset outside window")
)

// Window is a mapped physical range. Offsets passed to Read32 and Write32
// are relative to the physical address given to Open, not to the page the
// mapping had to start at.
type Window struct {
	mem   []byte // whole mapping, page aligned
	delta int    // phys - page aligned phys
	size  int
	unmap func() error
}

// Read32 loads the register at off.
func (w *Window) Read32(off uintptr) uint32 {
	return atomic.LoadUint32(w.word(off))
}

// Write32 stores v into the register at off.
func (w *Window) Write32(off uintptr, v uint32) {
	atomic.StoreUint32(w.word(off), v)
}

func (w *Window) word(off uintptr) *uint32 {
	i := w.delta + int(off)
	if off%4 != 0 || int(off)+4 > w.size {
		panic(fmt.Sprintf("%v: 0x%x (size 0x%x)", ErrBounds, off, w.size))
	}
	return (*uint32)(unsafe.Pointer(&w.mem[i]))
}

// Bytes returns the mapped range starting at the physical address passed
// to Open.
func (w *Window) Bytes() []byte {
	return w.mem[w.delta : w.delta+w.size : w.delta+w.size]
}

// Close unmaps the window.
func (w *Window) Close() error {
	if w.unmap == nil {
		return nil
	}
	err := w.unmap()
	w.unmap = nil
	return err
}
