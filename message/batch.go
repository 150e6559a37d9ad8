package message

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"vcmailbox/dma"
	"vcmailbox/propertytag"
)

// Batch is one envelope holding several tags of distinct Go types, laid
// out back to back in insertion order.
type Batch struct {
	arena   *dma.Arena
	blk     dma.Block
	tags    []propertytag.Tag
	offsets []int // from the start of the tag list
	index   map[reflect.Type]int
}

// NewBatch returns an empty batch (total size 12) in arena.
func NewBatch(arena *dma.Arena) (*Batch, error) {
	blk, err := arena.Alloc(EnvelopeSize)
	if err != nil {
		return nil, fmt.Errorf("message: allocate batch envelope: %w", err)
	}
	b := &Batch{arena: arena, blk: blk, index: make(map[reflect.Type]int)}
	b.writeHeader(blk.Bytes(), EnvelopeSize)
	return b, nil
}

func (b *Batch) writeHeader(buf []byte, total int) {
	binary.LittleEndian.PutUint32(buf[0:], uint32(total))
	binary.LittleEndian.PutUint32(buf[4:], uint32(Request))
	binary.LittleEndian.PutUint32(buf[total-4:], 0)
}

// Add appends tag after every tag already in the batch. A second tag of
// the same Go type is rejected with ErrDuplicateTag and leaves the batch
// unchanged. On success tag becomes a view into the batch memory and
// belongs to the batch; a tag already placed in another envelope is
// rejected with propertytag.ErrAttached.
func (b *Batch) Add(tag propertytag.Tag) error {
	if b.blk.IsZero() {
		return ErrReleased
	}
	if err := propertytag.Check(tag); err != nil {
		return fmt.Errorf("message: %w", err)
	}
	kind := reflect.TypeOf(tag)
	if _, ok := b.index[kind]; ok {
		return fmt.Errorf("%w: %v (%v)", ErrDuplicateTag, tag.ID(), kind)
	}

	used := b.tagBytes()
	total := EnvelopeSize + used + tag.Len()
	blk, err := b.arena.Alloc(total)
	if err != nil {
		return fmt.Errorf("message: grow batch for %v: %w", tag.ID(), err)
	}
	buf := blk.Bytes()
	copy(buf[tagsOffset:], b.blk.Bytes()[tagsOffset:tagsOffset+used])
	start := tagsOffset + used
	copy(buf[start:], tag.Bytes())
	b.writeHeader(buf, total)

	tags := append(b.tags, tag)
	offsets := append(b.offsets, used)
	if err := bindAll(buf, tags, offsets); err != nil {
		// Rebind the existing tags onto the old block before giving up.
		_ = bindAll(b.blk.Bytes(), b.tags, b.offsets)
		_ = b.arena.Free(blk)
		return err
	}
	old := b.blk
	b.blk = blk
	b.tags = tags
	b.offsets = offsets
	b.index[kind] = len(tags) - 1
	// The tag is in; a failed free of the old block only leaks it.
	_ = b.arena.Free(old)
	return nil
}

func (b *Batch) tagBytes() int {
	if len(b.tags) == 0 {
		return 0
	}
	last := len(b.tags) - 1
	return b.offsets[last] + b.tags[last].Len()
}

func bindAll(buf []byte, tags []propertytag.Tag, offsets []int) error {
	for i, tag := range tags {
		start := tagsOffset + offsets[i]
		if err := tag.Bind(buf[start : start+tag.Len()]); err != nil {
			return err
		}
	}
	return nil
}

// Len is the number of tags.
func (b *Batch) Len() int { return len(b.tags) }

// Tags returns the tags in insertion order.
func (b *Batch) Tags() []propertytag.Tag {
	return append([]propertytag.Tag(nil), b.tags...)
}

func (b *Batch) Block() dma.Block { return b.blk }

// Size returns the total_size word.
func (b *Batch) Size() uint32 { return sizeOf(b.blk) }

func (b *Batch) State() State { return stateOf(b.blk) }

func (b *Batch) Bytes() []byte { return b.blk.Bytes() }

func (b *Batch) Words() []uint32 { return words(b.blk) }

// Release returns the batch memory to its arena. Releasing a batch that
// was handed to ReclaimBatch is a no-op.
func (b *Batch) Release() error {
	if b.blk.IsZero() {
		return nil
	}
	blk := b.blk
	b.blk = dma.Block{}
	return b.arena.Free(blk)
}

// Get returns the tag of type T. The tag is a view into the batch, so
// after an exchange its Response holds the firmware's answer.
func Get[T propertytag.Tag](b *Batch) (T, error) {
	var zero T
	i, ok := b.index[reflect.TypeFor[T]()]
	if !ok {
		return zero, fmt.Errorf("%w: %v", ErrTagNotFound, reflect.TypeFor[T]())
	}
	return b.tags[i].(T), nil
}

// Offset returns the byte offset of the tag of type T from the start of
// the tag list: the encoded length of every tag added before it.
func Offset[T propertytag.Tag](b *Batch) (int, error) {
	i, ok := b.index[reflect.TypeFor[T]()]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrTagNotFound, reflect.TypeFor[T]())
	}
	return b.offsets[i], nil
}

// ReclaimBatch reinterprets blk as the batch old was built as. Like
// Reclaim, old is forgotten rather than released.
func ReclaimBatch(old *Batch, blk dma.Block) (*Batch, error) {
	if old.blk.IsZero() {
		return nil, ErrReleased
	}
	if err := sameMemory(old.blk, blk); err != nil {
		return nil, err
	}
	if err := bindAll(blk.Bytes(), old.tags, old.offsets); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	b := &Batch{
		arena:   old.arena,
		blk:     blk,
		tags:    old.tags,
		offsets: old.offsets,
		index:   old.index,
	}
	*old = Batch{}
	return b, nil
}
