// Package mailbox exchanges property-tag envelopes with the VideoCore
// firmware.
//
// One exchange runs strictly in order: clean the envelope's cache lines,
// hand its bus address (with the uncached alias bits) to the transport,
// wait for the answer on the same channel, invalidate the cache lines, then
// rebuild the envelope over the same memory. The pre-exchange value is
// forgotten, never released.
package mailbox

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"vcmailbox/dma"
	"vcmailbox/message"
	"vcmailbox/propertytag"
)

// DefaultAlias makes the firmware bypass the ARM L2 cache when it
// accesses the envelope.
const DefaultAlias = 0xC0000000

var (
	ErrTransport    = errors.New("mailbox: firmware did not answer the request")
	ErrMisaligned   = errors.New("mailbox: envelope is not 16-byte aligned")
	ErrAddressRange = errors.New("mailbox: envelope outside the addressable bus range")
)

// Cache keeps the envelope coherent with what the firmware sees.
type Cache interface {
	// Clean writes back dirty lines covering b.
	Clean(b []byte)
	// Invalidate drops lines covering b.
	Invalidate(b []byte)
}

// Coherent is the Cache for memory the CPU maps uncached (/dev/mem with
// O_SYNC, the vcio driver's bounce buffer, the simulator).
type Coherent struct{}

func (Coherent) Clean([]byte)      {}
func (Coherent) Invalidate([]byte) {}

// Direction tells a Tracer which side of the exchange it is seeing.
type Direction uint8

const (
	Outbound Direction = iota + 1
	Inbound
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "out"
	case Inbound:
		return "in"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Tracer observes envelopes as they cross the mailbox. envelope is only
// valid for the duration of the call.
type Tracer interface {
	Trace(dir Direction, ch Channel, bus uint32, envelope []byte, err error)
}

// Mailbox is the one handle to the hardware mailbox. Exchanges are
// serialised; only one is in flight at a time.
type Mailbox struct {
	mu        sync.Mutex
	transport Transport
	arena     *dma.Arena
	cache     Cache
	alias     uint32
	log       zerolog.Logger
	tracer    Tracer
}

// Option configures a Mailbox.
type Option func(*Mailbox)

func WithCache(c Cache) Option {
	return func(m *Mailbox) { m.cache = c }
}

// WithAlias replaces DefaultAlias. Zero hands over plain bus addresses.
func WithAlias(alias uint32) Option {
	return func(m *Mailbox) { m.alias = alias }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Mailbox) { m.log = l }
}

func WithTracer(t Tracer) Option {
	return func(m *Mailbox) { m.tracer = t }
}

// New returns a mailbox that sends envelopes allocated from arena.
func New(transport Transport, arena *dma.Arena, opts ...Option) *Mailbox {
	m := &Mailbox{
		transport: transport,
		arena:     arena,
		cache:     Coherent{},
		alias:     DefaultAlias,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Arena is where envelopes for this mailbox must be allocated.
func (m *Mailbox) Arena() *dma.Arena { return m.arena }

// Send exchanges msg on ch. On success msg is consumed and the returned
// message, built over the same memory, holds the firmware's answer. If the
// transport fails before the firmware answered, msg is untouched and still
// owned by the caller. If the firmware answered with anything but
// ResponseOk, the envelope is released and ErrTransport is returned.
func Send[T propertytag.Tag](m *Mailbox, ch Channel, msg *message.Message[T]) (*message.Message[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blk, err := m.exchange(ch, msg)
	if err != nil {
		return nil, err
	}
	back, err := message.Reclaim(msg, blk)
	if err != nil {
		return nil, err
	}
	if err := m.classify(ch, back); err != nil {
		_ = back.Release()
		return nil, err
	}
	return back, nil
}

// SendBatch is Send for a batch.
func (m *Mailbox) SendBatch(ch Channel, b *message.Batch) (*message.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blk, err := m.exchange(ch, b)
	if err != nil {
		return nil, err
	}
	back, err := message.ReclaimBatch(b, blk)
	if err != nil {
		return nil, err
	}
	if err := m.classify(ch, back); err != nil {
		_ = back.Release()
		return nil, err
	}
	return back, nil
}

// exchange runs the handshake and returns the envelope's block resolved
// from the address it was sent at.
func (m *Mailbox) exchange(ch Channel, env message.Envelope) (dma.Block, error) {
	blk := env.Block()
	if blk.IsZero() {
		return dma.Block{}, message.ErrReleased
	}
	if blk.Arena() != m.arena {
		return dma.Block{}, fmt.Errorf("%w: envelope from another arena", ErrAddressRange)
	}
	bus := blk.Bus()
	if bus%dma.Alignment != 0 {
		return dma.Block{}, fmt.Errorf("%w: 0x%08x", ErrMisaligned, bus)
	}
	if bus&m.alias != 0 || (blk.Len() > 0 && (bus+uint32(blk.Len()-1))&m.alias != 0) {
		return dma.Block{}, fmt.Errorf("%w: 0x%08x overlaps alias 0x%08x", ErrAddressRange, bus, m.alias)
	}
	buf := blk.Bytes()
	sent := bus | m.alias

	m.cache.Clean(buf)
	if m.tracer != nil {
		m.tracer.Trace(Outbound, ch, sent, buf, nil)
	}
	got, err := m.transport.Exchange(ch, sent, buf)
	if err != nil {
		if m.tracer != nil {
			m.tracer.Trace(Inbound, ch, sent, nil, err)
		}
		return dma.Block{}, fmt.Errorf("mailbox: exchange on %v: %w", ch, err)
	}
	m.cache.Invalidate(buf)

	if got != sent {
		m.log.Warn().
			Stringer("channel", ch).
			Uint32("sent", sent).
			Uint32("got", got).
			Msg("firmware answered with a different address")
	}
	back, err := m.arena.Resolve(sent&^m.alias, blk.Len())
	if err != nil {
		return dma.Block{}, fmt.Errorf("mailbox: rebuild envelope: %w", err)
	}
	return back, nil
}

func (m *Mailbox) classify(ch Channel, env message.Envelope) error {
	blk := env.Block()
	state := env.State()

	var err error
	if state != message.ResponseOk {
		err = fmt.Errorf("%w: state %v", ErrTransport, state)
	}
	m.log.Debug().
		Stringer("channel", ch).
		Uint32("bus", blk.Bus()).
		Uint32("size", env.Size()).
		Stringer("state", state).
		Msg("mailbox exchange")
	if m.tracer != nil {
		m.tracer.Trace(Inbound, ch, blk.Bus()|m.alias, blk.Bytes(), err)
	}
	return err
}
