//go:build linux

package vcio

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"vcmailbox/mailbox"
)

// ioctlProperty is IOCTL_MBOX_PROPERTY, _IOWR(100, 0, char *). The size
// field is the width of a pointer, so the number differs between 32 and
// 64-bit userlands (0xC0046400 and 0xC0086400).
const ioctlProperty = 3<<30 | uintptr(unsafe.Sizeof(uintptr(0)))<<16 | 100<<8 | 0

// Transport implements mailbox.Transport on top of /dev/vcio.
type Transport struct {
	mu sync.Mutex
	f  *os.File
}

// Open opens path, normally Device.
func Open(path string) (*Transport, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("vcio: open %s: %w", path, err)
	}
	return &Transport{f: f}, nil
}

// Exchange hands envelope to the driver, which blocks until the firmware
// answered and the response is copied back in place. bus is returned
// unchanged; the driver does its own address translation.
func (t *Transport) Exchange(ch mailbox.Channel, bus uint32, envelope []byte) (uint32, error) {
	if ch != mailbox.ChannelPropertyTagsArmToVC {
		return 0, fmt.Errorf("%w: %v", ErrChannel, ch)
	}
	if len(envelope) < 12 {
		return 0, fmt.Errorf("vcio: envelope of %d bytes", len(envelope))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return 0, ErrClosed
	}
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		t.f.Fd(),
		ioctlProperty,
		uintptr(unsafe.Pointer(&envelope[0])),
	)
	if errno != 0 {
		return 0, fmt.Errorf("vcio: property ioctl: %w", errno)
	}
	return bus, nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return nil
	}
	err := t.f.Close()
	t.f = nil
	return err
}
