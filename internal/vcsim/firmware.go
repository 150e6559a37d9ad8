// Package vcsim simulates the VideoCore side of the mailbox.
//
// Firmware implements mailbox.Registers over a dma.Arena: a word written to
// the ARM to VC mailbox is decoded, the property envelope at that bus
// address is answered in place, and the word comes back on the VC to ARM
// mailbox. Test hooks let callers inject words for other channels, stall
// the write FIFO and force an error response.
package vcsim

import (
	"encoding/binary"
	"sync"

	"github.com/rs/zerolog"

	"vcmailbox/bitfield"
	"vcmailbox/dma"
	"vcmailbox/mailbox"
	"vcmailbox/message"
	"vcmailbox/propertytag"
)

// busMask strips the cache alias bits the ARM side adds.
const busMask = 0x3FFFFFFF

type clock struct {
	rate, min, max uint32
	on             bool
}

type device struct {
	on     bool
	timing uint32
}

type display struct {
	physical, virtual propertytag.Dimensions
	offset            propertytag.Offset
	depth             uint32
	order             uint32
	blank             uint32
	fb                dma.Block
}

// Firmware is the simulated VideoCore.
type Firmware struct {
	mu      sync.Mutex
	arena   *dma.Arena
	profile Profile
	log     zerolog.Logger

	clocks   map[propertytag.ClockID]*clock
	devices  map[propertytag.DeviceID]*device
	turbo    uint32
	display  display
	handlers map[propertytag.ID]handler

	inbox     []uint32 // words waiting on the VC to ARM mailbox
	submitted []uint32
	stall     int
	failNext  bool
}

type Option func(*Firmware)

func WithLogger(l zerolog.Logger) Option {
	return func(f *Firmware) { f.log = l }
}

// New returns firmware answering for profile. Envelopes and the
// framebuffer live in arena.
func New(arena *dma.Arena, profile Profile, opts ...Option) *Firmware {
	f := &Firmware{
		arena:   arena,
		profile: profile,
		log:     zerolog.Nop(),
		clocks:  make(map[propertytag.ClockID]*clock),
		devices: make(map[propertytag.DeviceID]*device),
		turbo:   profile.Turbo,
	}
	for name, c := range profile.Clocks {
		id, err := propertytag.ParseClockID(name)
		if err != nil {
			continue
		}
		f.clocks[id] = &clock{rate: c.Rate, min: c.Min, max: c.Max, on: c.On}
	}
	for name, d := range profile.Devices {
		id, err := propertytag.ParseDeviceID(name)
		if err != nil {
			continue
		}
		f.devices[id] = &device{on: d.On, timing: d.TimingUs}
	}
	dims := propertytag.Dimensions{Width: profile.Display.Width, Height: profile.Display.Height}
	f.display = display{physical: dims, virtual: dims, depth: profile.Display.Depth, order: propertytag.PixelOrderRGB}
	f.handlers = f.catalog()
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Read32 implements mailbox.Registers.
func (f *Firmware) Read32(off uintptr) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch off {
	case mailbox.RegStatus0:
		if len(f.inbox) == 0 {
			return mailbox.StatusEmpty
		}
		return 0
	case mailbox.RegStatus1:
		if f.stall > 0 {
			f.stall--
			return mailbox.StatusFull
		}
		return 0
	case mailbox.RegRead:
		if len(f.inbox) == 0 {
			return 0
		}
		w := f.inbox[0]
		f.inbox = f.inbox[1:]
		return w
	default:
		return 0
	}
}

// Write32 implements mailbox.Registers. A write to the ARM to VC mailbox
// is processed before it returns.
func (f *Firmware) Write32(off uintptr, v uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if off != mailbox.RegWrite {
		return
	}
	f.submitted = append(f.submitted, v)
	w := bitfield.UnpackMailboxWord(v)
	switch mailbox.Channel(w.Channel) {
	case mailbox.ChannelPropertyTagsArmToVC:
		f.property(w.BusAddress() & busMask)
	default:
		f.log.Debug().Uint32("word", v).Msg("vcsim: echoing word on unhandled channel")
	}
	f.inbox = append(f.inbox, v)
}

// Inject queues a word on the VC to ARM mailbox ahead of any answer.
func (f *Firmware) Inject(ch mailbox.Channel, bus uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = append(f.inbox, bus&^0xF|uint32(ch)&0xF)
}

// StallWrites makes the next n polls of the write status report full.
func (f *Firmware) StallWrites(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stall = n
}

// FailNext answers the next property envelope with ResponseError.
func (f *Firmware) FailNext() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = true
}

// Submitted returns every word written to the ARM to VC mailbox.
func (f *Firmware) Submitted() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.submitted...)
}

// Framebuffer returns the block handed out by FramebufferAllocate.
func (f *Firmware) Framebuffer() dma.Block {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.display.fb
}

// property answers the envelope at bus in place.
func (f *Firmware) property(bus uint32) {
	head, err := f.arena.Resolve(bus, message.EnvelopeSize)
	if err != nil {
		f.log.Warn().Err(err).Uint32("bus", bus).Msg("vcsim: envelope outside arena")
		return
	}
	total := int(binary.LittleEndian.Uint32(head.Bytes()))
	if total < message.EnvelopeSize || total%4 != 0 {
		f.log.Warn().Int("size", total).Msg("vcsim: bad envelope size")
		binary.LittleEndian.PutUint32(head.Bytes()[4:], uint32(message.ResponseError))
		return
	}
	blk, err := f.arena.Resolve(bus, total)
	if err != nil {
		f.log.Warn().Err(err).Uint32("bus", bus).Int("size", total).Msg("vcsim: envelope overruns arena")
		binary.LittleEndian.PutUint32(head.Bytes()[4:], uint32(message.ResponseError))
		return
	}
	buf := blk.Bytes()

	state := message.ResponseOk
	end := total - 4
	off := 8
	for off < end {
		if off+propertytag.HeaderSize > end {
			state = message.ResponseError
			break
		}
		id := propertytag.ID(binary.LittleEndian.Uint32(buf[off:]))
		if id == propertytag.IDEnd {
			break
		}
		size := int(binary.LittleEndian.Uint32(buf[off+4:]))
		value := off + propertytag.HeaderSize
		if value+size > end {
			state = message.ResponseError
			break
		}
		f.answer(id, buf[off+8:off+12], buf[value:value+size])
		off = value + (size+3)&^3
	}
	if f.failNext {
		f.failNext = false
		state = message.ResponseError
	}
	binary.LittleEndian.PutUint32(buf[4:], uint32(state))
	f.log.Debug().Uint32("bus", bus).Int("size", total).Stringer("state", state).Msg("vcsim: answered envelope")
}

// answer runs one tag. Unknown tags are left unanswered.
func (f *Firmware) answer(id propertytag.ID, stateWord, value []byte) {
	h, ok := f.handlers[id]
	if !ok {
		f.log.Debug().Stringer("tag", id).Msg("vcsim: unknown tag")
		return
	}
	resp := h(value)
	n := copy(value, resp)
	clear(value[n:])
	st, _ := bitfield.PackTagState(bitfield.TagState{Length: uint32(len(resp)), Response: true})
	binary.LittleEndian.PutUint32(stateWord, st)
}
