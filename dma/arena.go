// Package dma hands out memory the VideoCore can address.
//
// An Arena is one contiguous region with a known bus address. Blocks are
// carved from it with a best-fit free list and are always 16-byte aligned,
// both in CPU memory and on the bus, which is what the mailbox needs: the
// low 4 bits of a submitted address carry the channel number.
//
// A Block is a plain (offset, length) handle into its arena, so any number
// of typed views may be built over the same bytes without any of them
// owning the memory. Exactly one Free per Alloc returns it to the arena.
package dma

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// Alignment of every block, in bytes.
const Alignment = 16

var (
	ErrOutOfMemory  = errors.New("dma: arena exhausted")
	ErrNotAllocated = errors.New("dma: block is not allocated")
	ErrOutOfRange   = errors.New("dma: bus address outside arena")
	ErrBadArena     = errors.New("dma: invalid arena geometry")
)

// segment is one node of the arena's doubly-linked segment list.
// Unlike the kernel heap the bookkeeping lives outside the managed
// memory, so the bytes the firmware sees are never overwritten by it.
type segment struct {
	next      *segment
	prev      *segment
	allocated bool
	off       int
	size      int
}

// Arena is a bus-addressable memory region.
type Arena struct {
	mu      sync.Mutex
	mem     []byte
	busBase uint32
	head    *segment
	inUse   map[int]*segment
	closer  func() error
}

// NewArena allocates size bytes of Go memory and exposes them at busBase.
// busBase must be 16-byte aligned and the region must fit below 4GiB.
func NewArena(size int, busBase uint32) (*Arena, error) {
	raw := make([]byte, size+Alignment)
	// Slide the start so the first byte sits on a 16-byte boundary.
	shift := 0
	if rem := uintptr(unsafe.Pointer(&raw[0])) % Alignment; rem != 0 {
		shift = int(Alignment - rem)
	}
	return newArena(raw[shift:shift+size:shift+size], busBase, nil)
}

func newArena(mem []byte, busBase uint32, closer func() error) (*Arena, error) {
	size := len(mem)
	if size <= 0 || size%Alignment != 0 {
		return nil, fmt.Errorf("%w: size %d", ErrBadArena, size)
	}
	if busBase%Alignment != 0 {
		return nil, fmt.Errorf("%w: bus base 0x%08x not %d-byte aligned", ErrBadArena, busBase, Alignment)
	}
	if uint64(busBase)+uint64(size) > 1<<32 {
		return nil, fmt.Errorf("%w: 0x%08x+0x%x overflows 32 bits", ErrBadArena, busBase, size)
	}
	return &Arena{
		mem:     mem,
		busBase: busBase,
		head:    &segment{off: 0, size: size},
		inUse:   make(map[int]*segment),
		closer:  closer,
	}, nil
}

// BusBase returns the bus address of the first arena byte.
func (a *Arena) BusBase() uint32 { return a.busBase }

// Size returns the arena size in bytes.
func (a *Arena) Size() int { return len(a.mem) }

// Alloc returns a zeroed block of at least n bytes. The block's Len is n;
// the reservation is rounded up to Alignment.
func (a *Arena) Alloc(n int) (Block, error) {
	if n <= 0 {
		return Block{}, fmt.Errorf("dma: invalid allocation size %d", n)
	}
	total := (n + Alignment - 1) &^ (Alignment - 1)

	a.mu.Lock()
	defer a.mu.Unlock()

	// Find the best-fit free segment
	var best *segment
	bestDiff := int(^uint(0) >> 1)
	for curr := a.head; curr != nil; curr = curr.next {
		if curr.allocated {
			continue
		}
		diff := curr.size - total
		if diff >= 0 && diff < bestDiff {
			best = curr
			bestDiff = diff
		}
	}
	if best == nil {
		return Block{}, fmt.Errorf("%w: need %d bytes", ErrOutOfMemory, total)
	}

	// Split if the remainder is worth keeping
	if bestDiff >= 2*Alignment {
		rest := &segment{
			next: best.next,
			prev: best,
			off:  best.off + total,
			size: best.size - total,
		}
		best.next = rest
		if rest.next != nil {
			rest.next.prev = rest
		}
		best.size = total
	}

	best.allocated = true
	a.inUse[best.off] = best
	clear(a.mem[best.off : best.off+best.size])
	return Block{arena: a, off: best.off, n: n}, nil
}

// Free returns b to the arena. Freeing a block twice, or a block that was
// never allocated, reports ErrNotAllocated and leaves the arena untouched.
func (a *Arena) Free(b Block) error {
	if b.arena != a {
		return fmt.Errorf("%w: block belongs to another arena", ErrNotAllocated)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	seg, ok := a.inUse[b.off]
	if !ok {
		return fmt.Errorf("%w: offset 0x%x", ErrNotAllocated, b.off)
	}
	delete(a.inUse, b.off)
	seg.allocated = false

	// Coalesce with previous segments that are free
	for seg.prev != nil && !seg.prev.allocated {
		prev := seg.prev
		prev.next = seg.next
		prev.size += seg.size
		if seg.next != nil {
			seg.next.prev = prev
		}
		seg = prev
	}

	// Coalesce with following segments that are free
	for seg.next != nil && !seg.next.allocated {
		next := seg.next
		seg.size += next.size
		seg.next = next.next
		if next.next != nil {
			next.next.prev = seg
		}
	}
	return nil
}

// Resolve maps a bus address back to a block of n bytes. It is the
// device-side view: it does not check that the range is allocated.
func (a *Arena) Resolve(bus uint32, n int) (Block, error) {
	if n < 0 || bus < a.busBase {
		return Block{}, fmt.Errorf("%w: 0x%08x", ErrOutOfRange, bus)
	}
	off := int(bus - a.busBase)
	if off+n > len(a.mem) {
		return Block{}, fmt.Errorf("%w: 0x%08x+%d", ErrOutOfRange, bus, n)
	}
	return Block{arena: a, off: off, n: n}, nil
}

// Allocated reports the number of live blocks.
func (a *Arena) Allocated() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inUse)
}

// Close releases the backing mapping, if any.
func (a *Arena) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// Block is a window into an arena.
type Block struct {
	arena *Arena
	off   int
	n     int
}

// IsZero reports whether b refers to no memory.
func (b Block) IsZero() bool { return b.arena == nil }

// Arena returns the owning arena.
func (b Block) Arena() *Arena { return b.arena }

// Len is the usable length of the block.
func (b Block) Len() int { return b.n }

// Bus returns the bus address of the first byte.
func (b Block) Bus() uint32 {
	return b.arena.busBase + uint32(b.off)
}

// Bytes returns the block's memory. The slice aliases the arena.
func (b Block) Bytes() []byte {
	if b.arena == nil {
		return nil
	}
	return b.arena.mem[b.off : b.off+b.n : b.off+b.n]
}
