// Package message wraps property tags in the mailbox envelope.
//
// Both envelope kinds share one layout:
//
//	+0   total size in bytes (header + tags + terminator)
//	+4   message state
//	+8   tags, back to back
//	end  terminator word (0)
//
// Envelopes live in DMA memory from a dma.Arena. After an exchange the
// firmware has rewritten that memory in place; Reclaim and ReclaimBatch
// build the post-exchange value over the same block while forgetting the
// pre-exchange one, so the block is released exactly once.
package message

import (
	"encoding/binary"
	"errors"
	"fmt"

	"vcmailbox/dma"
	"vcmailbox/propertytag"
)

// EnvelopeSize is the header (size, state) plus the terminator.
const EnvelopeSize = 12

const tagsOffset = 8

var (
	ErrDuplicateTag = errors.New("message: duplicate property tag in batch")
	ErrTagNotFound  = errors.New("message: property tag not in batch")
	ErrReleased     = errors.New("message: envelope already released")
	ErrShape        = errors.New("message: block does not match envelope shape")
)

// State is the envelope request/response code.
type State uint32

const (
	Request       State = 0x00000000
	ResponseOk    State = 0x80000000
	ResponseError State = 0x80000001
)

func (s State) String() string {
	switch s {
	case Request:
		return "request"
	case ResponseOk:
		return "response-ok"
	case ResponseError:
		return "response-error"
	default:
		return fmt.Sprintf("state(0x%08x)", uint32(s))
	}
}

// Envelope is what the transport needs from a message or batch.
type Envelope interface {
	Block() dma.Block
	Size() uint32
	State() State
}

// Message is an envelope around exactly one tag.
type Message[T propertytag.Tag] struct {
	blk dma.Block
	tag T
}

// New places tag in a fresh envelope allocated from arena. tag becomes a
// view into the envelope's memory and belongs to it from then on; a tag
// already placed in another envelope is rejected with
// propertytag.ErrAttached.
func New[T propertytag.Tag](arena *dma.Arena, tag T) (*Message[T], error) {
	if err := propertytag.Check(tag); err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	total := EnvelopeSize + tag.Len()
	blk, err := arena.Alloc(total)
	if err != nil {
		return nil, fmt.Errorf("message: allocate %v envelope: %w", tag.ID(), err)
	}
	buf := blk.Bytes()
	binary.LittleEndian.PutUint32(buf[0:], uint32(total))
	binary.LittleEndian.PutUint32(buf[4:], uint32(Request))
	end := tagsOffset + tag.Len()
	copy(buf[tagsOffset:end], tag.Bytes())
	binary.LittleEndian.PutUint32(buf[end:], 0)

	if err := tag.Bind(buf[tagsOffset:end]); err != nil {
		_ = arena.Free(blk)
		return nil, err
	}
	return &Message[T]{blk: blk, tag: tag}, nil
}

// Block returns the DMA block holding the envelope.
func (m *Message[T]) Block() dma.Block { return m.blk }

// Size returns the total_size word.
func (m *Message[T]) Size() uint32 { return sizeOf(m.blk) }

// State returns the message state word.
func (m *Message[T]) State() State { return stateOf(m.blk) }

// Tag returns the embedded tag; after a successful exchange its Response
// view holds the firmware's answer.
func (m *Message[T]) Tag() T { return m.tag }

// Bytes returns the raw envelope.
func (m *Message[T]) Bytes() []byte { return m.blk.Bytes() }

// Words returns the envelope as u32 words, as the firmware walks it.
func (m *Message[T]) Words() []uint32 { return words(m.blk) }

// Release returns the envelope memory to its arena. Releasing a message
// that was handed to Reclaim is a no-op.
func (m *Message[T]) Release() error {
	if m.blk.IsZero() {
		return nil
	}
	blk := m.blk
	m.blk = dma.Block{}
	return blk.Arena().Free(blk)
}

// Reclaim reinterprets blk as the envelope old was built as. blk must be
// the same memory old was sent from; old is forgotten, not released, so
// the returned message is the block's only owner.
func Reclaim[T propertytag.Tag](old *Message[T], blk dma.Block) (*Message[T], error) {
	if old.blk.IsZero() {
		return nil, ErrReleased
	}
	if err := sameMemory(old.blk, blk); err != nil {
		return nil, err
	}
	end := tagsOffset + old.tag.Len()
	if err := old.tag.Bind(blk.Bytes()[tagsOffset:end]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	m := &Message[T]{blk: blk, tag: old.tag}
	old.blk = dma.Block{}
	var zero T
	old.tag = zero
	return m, nil
}

func sameMemory(sent, back dma.Block) error {
	if back.Arena() != sent.Arena() || back.Bus() != sent.Bus() || back.Len() != sent.Len() {
		return fmt.Errorf("%w: got %d bytes at 0x%08x, sent %d at 0x%08x",
			ErrShape, back.Len(), back.Bus(), sent.Len(), sent.Bus())
	}
	return nil
}

func sizeOf(blk dma.Block) uint32 {
	if blk.IsZero() {
		return 0
	}
	return binary.LittleEndian.Uint32(blk.Bytes()[0:])
}

func stateOf(blk dma.Block) State {
	if blk.IsZero() {
		return Request
	}
	return State(binary.LittleEndian.Uint32(blk.Bytes()[4:]))
}

func words(blk dma.Block) []uint32 {
	n := min(int(sizeOf(blk)), blk.Len()) / 4
	raw := blk.Bytes()
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return out
}
