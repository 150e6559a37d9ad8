// Package propertytag defines the byte layout of VideoCore property tags.
//
// A tag is three little-endian u32 words (id, value buffer size, state)
// followed by a value buffer that holds the request before the exchange
// and the response after it, plus zero padding up to the next 4-byte
// boundary:
//
//	+0  id
//	+4  size   bytes in the value buffer, max(request, response)
//	+8  state  0 on request; bit 31 | response length on reply
//	+12 value  request fields, overwritten by response fields
//	... pad    0..3 zero bytes
//
// Tag values are views: the encoded bytes live in a slice that a message
// or batch may rebind into shared DMA memory.
package propertytag

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"vcmailbox/bitfield"
)

// HeaderSize is the id + size + state prefix of every tag.
const HeaderSize = 12

// ResponseBit is set in the tag state once the firmware has answered.
const ResponseBit = 1 << 31

// Tag is what envelopes need to know about a property tag.
type Tag interface {
	// ID is the operation selector.
	ID() ID
	// Size is the value buffer size written into the tag header.
	Size() uint32
	// State is the raw tag state word.
	State() uint32
	// Len is the encoded length including header and padding. Always a
	// multiple of 4.
	Len() int
	// Bytes is the encoded tag.
	Bytes() []byte
	// Bind moves the view onto raw, which must already hold an encoded
	// tag of the same kind.
	Bind(raw []byte) error
	// Attached reports whether the tag has been bound into an envelope.
	Attached() bool
}

var (
	ErrUninitialised = errors.New("propertytag: tag was not built with its constructor")
	ErrAttached      = errors.New("propertytag: tag already belongs to an envelope")
)

// Codec is the overlay of request Q and response R. Catalog tags embed
// it, which gives each tag its own Go type even when two tags share a
// layout.
//
// Q and R must have a fixed binary size (encoding/binary rules): structs
// of fixed-size integers and byte arrays.
type Codec[Q, R any] struct {
	raw      []byte
	attached bool
}

// Init encodes a fresh request for tag id into c's own buffer.
func (c *Codec[Q, R]) Init(id ID, req Q) {
	var resp R
	reqSize := binary.Size(req)
	respSize := binary.Size(resp)
	if reqSize < 0 || respSize < 0 {
		panic(fmt.Sprintf("propertytag: %v: request %T or response %T has no fixed size", id, req, resp))
	}
	size := max(reqSize, respSize)

	c.raw = make([]byte, HeaderSize+size+padding(size))
	c.attached = false
	binary.LittleEndian.PutUint32(c.raw[0:], uint32(id))
	binary.LittleEndian.PutUint32(c.raw[4:], uint32(size))
	binary.LittleEndian.PutUint32(c.raw[8:], 0)
	if reqSize > 0 {
		if _, err := binary.Encode(c.raw[HeaderSize:], binary.LittleEndian, req); err != nil {
			panic(fmt.Sprintf("propertytag: encode %v request: %v", id, err))
		}
	}
}

// padding returns the zero bytes needed after a value buffer of n bytes.
func padding(n int) int {
	return (4 - n%4) % 4
}

func (c *Codec[Q, R]) ID() ID { return ID(binary.LittleEndian.Uint32(c.raw[0:])) }

func (c *Codec[Q, R]) Size() uint32 { return binary.LittleEndian.Uint32(c.raw[4:]) }

func (c *Codec[Q, R]) State() uint32 { return binary.LittleEndian.Uint32(c.raw[8:]) }

func (c *Codec[Q, R]) Len() int { return len(c.raw) }

func (c *Codec[Q, R]) Bytes() []byte { return c.raw }

// Padding is the number of zero bytes after the value buffer.
func (c *Codec[Q, R]) Padding() int { return padding(int(c.Size())) }

// Bind rebinds the view. raw must carry the same id and size.
func (c *Codec[Q, R]) Bind(raw []byte) error {
	if len(c.raw) < HeaderSize {
		return ErrUninitialised
	}
	if len(raw) != len(c.raw) {
		return fmt.Errorf("propertytag: bind %v: %d bytes, want %d", c.ID(), len(raw), len(c.raw))
	}
	if id := ID(binary.LittleEndian.Uint32(raw)); id != c.ID() {
		return fmt.Errorf("propertytag: bind %v: buffer holds %v", c.ID(), id)
	}
	c.raw = raw
	c.attached = true
	return nil
}

func (c *Codec[Q, R]) Attached() bool { return c.attached }

// Check reports why tag cannot be placed in a new envelope: nil, built
// without its constructor, or already bound into another envelope.
func Check(tag Tag) error {
	if tag == nil {
		return fmt.Errorf("%w: nil", ErrUninitialised)
	}
	if v := reflect.ValueOf(tag); v.Kind() == reflect.Pointer && v.IsNil() {
		return fmt.Errorf("%w: nil %T", ErrUninitialised, tag)
	}
	if tag.Len() < HeaderSize {
		return fmt.Errorf("%w: %T", ErrUninitialised, tag)
	}
	if tag.Attached() {
		return fmt.Errorf("%w: %v", ErrAttached, tag.ID())
	}
	return nil
}

// Request decodes the request view of the value buffer.
func (c *Codec[Q, R]) Request() Q {
	var q Q
	c.decode(&q)
	return q
}

// Response decodes the response view of the value buffer. Only
// meaningful after a successful exchange.
func (c *Codec[Q, R]) Response() R {
	var r R
	c.decode(&r)
	return r
}

func (c *Codec[Q, R]) decode(v any) {
	if binary.Size(v) == 0 {
		return
	}
	// Init sized the value buffer for both views.
	if _, err := binary.Decode(c.raw[HeaderSize:], binary.LittleEndian, v); err != nil {
		panic(fmt.Sprintf("propertytag: decode %v: %v", c.ID(), err))
	}
}

// Answered reports whether the firmware marked the tag as processed.
func (c *Codec[Q, R]) Answered() bool {
	return bitfield.UnpackTagState(c.State()).Response
}

// ResponseLen is the length the firmware wanted to write.
func (c *Codec[Q, R]) ResponseLen() uint32 {
	return bitfield.UnpackTagState(c.State()).Length
}

// Truncated reports whether the response did not fit the value buffer.
func (c *Codec[Q, R]) Truncated() bool {
	return c.Answered() && c.ResponseLen() > c.Size()
}

func (c *Codec[Q, R]) String() string {
	return fmt.Sprintf("%v{size:%d state:0x%08x}", c.ID(), c.Size(), c.State())
}
