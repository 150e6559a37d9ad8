// Package vcio is a mailbox transport through the Raspberry Pi firmware
// driver (/dev/vcio). The driver copies the envelope into its own DMA
// buffer and back, so envelopes can live in ordinary memory.
package vcio

import "errors"

// Device is the firmware driver's character device.
const Device = "/dev/vcio"

var (
	ErrUnsupported = errors.New("vcio: /dev/vcio is only available on Linux")
	ErrChannel     = errors.New("vcio: driver only carries the property channel")
	ErrClosed      = errors.New("vcio: device closed")
)
