package mailbox

import (
	"fmt"

	"github.com/rs/zerolog"

	"vcmailbox/bitfield"
)

// Transport moves one envelope to the firmware and waits for the answer.
// bus is the address to hand over (alias bits included); envelope is the
// same memory seen from the CPU. It returns the bus address the firmware
// answered with.
type Transport interface {
	Exchange(ch Channel, bus uint32, envelope []byte) (uint32, error)
}

// FIFO is the register-level handshake over the two hardware mailboxes.
// Both waits spin without a timeout: a firmware that never answers hangs
// the exchange.
type FIFO struct {
	regs Registers
	log  zerolog.Logger
}

// FIFOOption configures a FIFO.
type FIFOOption func(*FIFO)

// WithFIFOLogger logs words dropped for other channels at trace level.
func WithFIFOLogger(l zerolog.Logger) FIFOOption {
	return func(f *FIFO) { f.log = l }
}

func NewFIFO(regs Registers, opts ...FIFOOption) *FIFO {
	f := &FIFO{regs: regs, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Exchange writes bus tagged with ch and returns the first word read back
// on ch. Words for other channels are discarded.
func (f *FIFO) Exchange(ch Channel, bus uint32, _ []byte) (uint32, error) {
	if bus&0xF != 0 {
		return 0, fmt.Errorf("%w: 0x%08x", ErrMisaligned, bus)
	}
	word, err := bitfield.PackMailboxWord(bitfield.NewMailboxWord(uint32(ch), bus))
	if err != nil {
		return 0, fmt.Errorf("mailbox: encode word: %w", err)
	}

	for f.regs.Read32(RegStatus1)&StatusFull != 0 {
	}
	f.regs.Write32(RegWrite, word)

	for {
		for f.regs.Read32(RegStatus0)&StatusEmpty != 0 {
		}
		got := bitfield.UnpackMailboxWord(f.regs.Read32(RegRead))
		if Channel(got.Channel) == ch {
			return got.BusAddress(), nil
		}
		f.log.Trace().
			Stringer("want", ch).
			Stringer("got", Channel(got.Channel)).
			Uint32("bus", got.BusAddress()).
			Msg("skipping mailbox word for another channel")
	}
}
