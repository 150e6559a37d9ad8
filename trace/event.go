// Package trace records mailbox exchanges as a stream of CBOR events.
//
// A Tracer plugs into mailbox.WithTracer and writes one Event for the
// envelope going out and one for the envelope coming back. Reader streams
// them back, optionally filtered.
package trace

import (
	"encoding/binary"
	"fmt"
	"time"

	"vcmailbox/mailbox"
	"vcmailbox/propertytag"
)

// Event is one side of an exchange. CBOR keys are integers.
type Event struct {
	Timestamp time.Time         `cbor:"1,keyasint"`
	Session   string            `cbor:"2,keyasint"`
	Seq       uint64            `cbor:"3,keyasint"`
	Direction mailbox.Direction `cbor:"4,keyasint"`
	Channel   mailbox.Channel   `cbor:"5,keyasint"`
	Bus       uint32            `cbor:"6,keyasint"`
	Envelope  []byte            `cbor:"7,keyasint,omitempty"`
	Error     string            `cbor:"8,keyasint,omitempty"`
}

// TagRecord is one tag found in an envelope.
type TagRecord struct {
	ID    propertytag.ID
	Size  uint32
	State uint32
	Value []byte
}

// Size returns the envelope's total_size word, or 0 without an envelope.
func (e Event) Size() uint32 {
	if len(e.Envelope) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(e.Envelope)
}

// State returns the envelope's state word.
func (e Event) State() uint32 {
	if len(e.Envelope) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint32(e.Envelope[4:])
}

// Tags walks the envelope the way the firmware does and stops at the end
// tag or at the first record that does not fit.
func (e Event) Tags() []TagRecord {
	var out []TagRecord
	end := min(int(e.Size()), len(e.Envelope)) - 4
	for off := 8; off+propertytag.HeaderSize <= end; {
		id := propertytag.ID(binary.LittleEndian.Uint32(e.Envelope[off:]))
		if id == propertytag.IDEnd {
			break
		}
		size := binary.LittleEndian.Uint32(e.Envelope[off+4:])
		value := off + propertytag.HeaderSize
		if value+int(size) > end {
			break
		}
		out = append(out, TagRecord{
			ID:    id,
			Size:  size,
			State: binary.LittleEndian.Uint32(e.Envelope[off+8:]),
			Value: e.Envelope[value : value+int(size)],
		})
		off = value + int(size+3)&^3
	}
	return out
}

func (e Event) String() string {
	s := fmt.Sprintf("%s #%d %-3v %v bus=0x%08x size=%d state=0x%08x",
		e.Timestamp.Format(time.RFC3339Nano), e.Seq, e.Direction, e.Channel, e.Bus, e.Size(), e.State())
	if e.Error != "" {
		s += " error=" + e.Error
	}
	return s
}
