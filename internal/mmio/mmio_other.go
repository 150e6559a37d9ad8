//go:build !linux

package mmio

// Open is only implemented on Linux.
func Open(phys int64, size int) (*Window, error) {
	return nil, ErrUnsupported
}
