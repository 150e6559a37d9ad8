// Package framebuffer sets up the VideoCore framebuffer through one
// property batch and draws into it.
package framebuffer

import (
	"errors"
	"fmt"

	"vcmailbox/mailbox"
	"vcmailbox/message"
	pt "vcmailbox/propertytag"
)

// busMask strips the cache alias bits from addresses the firmware returns.
const busMask = 0x3FFFFFFF

// Alignment is what the allocate tag asks for.
const Alignment = 16

var (
	ErrDepth      = errors.New("framebuffer: unsupported depth")
	ErrNoBuffer   = errors.New("framebuffer: firmware returned no buffer")
	ErrNotApplied = errors.New("framebuffer: firmware did not apply the mode")
)

// Config is the mode to request.
type Config struct {
	Width  uint32
	Height uint32
	Depth  uint32
	// Order is pt.PixelOrderRGB or pt.PixelOrderBGR.
	Order uint32
}

// Info is the mode the firmware set up.
type Info struct {
	Width         uint32
	Height        uint32
	VirtualWidth  uint32
	VirtualHeight uint32
	Depth         uint32
	Order         uint32
	Pitch         uint32
	Bus           uint32 // alias bits cleared
	Size          uint32
}

// Negotiate asks for cfg and allocates the buffer in a single exchange:
// physical size, virtual size, depth, pixel order, allocate, pitch.
func Negotiate(mb *mailbox.Mailbox, cfg Config) (Info, error) {
	switch cfg.Depth {
	case 16, 24, 32:
	default:
		return Info{}, fmt.Errorf("%w: %d", ErrDepth, cfg.Depth)
	}

	b, err := message.NewBatch(mb.Arena())
	if err != nil {
		return Info{}, err
	}
	for _, tag := range []pt.Tag{
		pt.NewPhysicalSizeSet(cfg.Width, cfg.Height),
		pt.NewVirtualSizeSet(cfg.Width, cfg.Height),
		pt.NewDepthSet(cfg.Depth),
		pt.NewPixelOrderSet(cfg.Order),
		pt.NewFramebufferAllocate(Alignment),
		pt.NewPitchGet(),
	} {
		if err := b.Add(tag); err != nil {
			_ = b.Release()
			return Info{}, err
		}
	}

	back, err := mb.SendBatch(mailbox.ChannelPropertyTagsArmToVC, b)
	if err != nil {
		_ = b.Release()
		return Info{}, fmt.Errorf("framebuffer: negotiate: %w", err)
	}
	defer back.Release()

	phys, err := message.Get[*pt.PhysicalSizeSet](back)
	if err != nil {
		return Info{}, err
	}
	virt, err := message.Get[*pt.VirtualSizeSet](back)
	if err != nil {
		return Info{}, err
	}
	depth, err := message.Get[*pt.DepthSet](back)
	if err != nil {
		return Info{}, err
	}
	order, err := message.Get[*pt.PixelOrderSet](back)
	if err != nil {
		return Info{}, err
	}
	alloc, err := message.Get[*pt.FramebufferAllocate](back)
	if err != nil {
		return Info{}, err
	}
	pitch, err := message.Get[*pt.PitchGet](back)
	if err != nil {
		return Info{}, err
	}
	for _, tag := range back.Tags() {
		if !tag.(interface{ Answered() bool }).Answered() {
			return Info{}, fmt.Errorf("%w: %v unanswered", ErrNotApplied, tag.ID())
		}
	}

	region := alloc.Response()
	if region.Base == 0 || region.Size == 0 {
		return Info{}, ErrNoBuffer
	}
	info := Info{
		Width:         phys.Response().Width,
		Height:        phys.Response().Height,
		VirtualWidth:  virt.Response().Width,
		VirtualHeight: virt.Response().Height,
		Depth:         depth.Response().Value,
		Order:         order.Response().Value,
		Pitch:         pitch.Response().Value,
		Bus:           region.Base & busMask,
		Size:          region.Size,
	}
	if info.Depth != cfg.Depth {
		return info, fmt.Errorf("%w: depth %d, asked for %d", ErrNotApplied, info.Depth, cfg.Depth)
	}
	if info.Pitch == 0 {
		// Older firmware leaves the pitch tag empty.
		info.Pitch = info.VirtualWidth * info.Depth / 8
	}
	return info, nil
}

// Release hands the buffer back to the firmware.
func Release(mb *mailbox.Mailbox) error {
	msg, err := message.New(mb.Arena(), pt.NewFramebufferRelease())
	if err != nil {
		return err
	}
	back, err := mailbox.Send(mb, mailbox.ChannelPropertyTagsArmToVC, msg)
	if err != nil {
		_ = msg.Release()
		return fmt.Errorf("framebuffer: release: %w", err)
	}
	return back.Release()
}
