package firmware

import (
	"fmt"
	"net"

	"vcmailbox/mailbox"
	"vcmailbox/message"
	pt "vcmailbox/propertytag"
)

// BoardInfo is everything the firmware reports about the board.
type BoardInfo struct {
	FirmwareRevision uint32
	Model            uint32
	Revision         uint32
	MAC              net.HardwareAddr
	Serial           uint64
	ArmMemory        pt.MemoryRegion
	VcMemory         pt.MemoryRegion
}

// BoardInfo fetches the board description in a single batch.
func (c *Client) BoardInfo() (BoardInfo, error) {
	b, err := message.NewBatch(c.mb.Arena())
	if err != nil {
		return BoardInfo{}, err
	}
	for _, tag := range []pt.Tag{
		pt.NewFirmwareRevisionGet(),
		pt.NewBoardModelGet(),
		pt.NewBoardRevisionGet(),
		pt.NewBoardMACAddressGet(),
		pt.NewBoardSerialGet(),
		pt.NewArmMemoryGet(),
		pt.NewVcMemoryGet(),
	} {
		if err := b.Add(tag); err != nil {
			_ = b.Release()
			return BoardInfo{}, err
		}
	}

	back, err := c.mb.SendBatch(mailbox.ChannelPropertyTagsArmToVC, b)
	if err != nil {
		_ = b.Release()
		return BoardInfo{}, fmt.Errorf("firmware: board info: %w", err)
	}
	defer back.Release()

	var info BoardInfo
	if err := collect(back, &info.FirmwareRevision, func(t *pt.FirmwareRevisionGet) uint32 { return t.Response().Value }); err != nil {
		return BoardInfo{}, err
	}
	if err := collect(back, &info.Model, func(t *pt.BoardModelGet) uint32 { return t.Response().Value }); err != nil {
		return BoardInfo{}, err
	}
	if err := collect(back, &info.Revision, func(t *pt.BoardRevisionGet) uint32 { return t.Response().Value }); err != nil {
		return BoardInfo{}, err
	}
	if err := collect(back, &info.MAC, func(t *pt.BoardMACAddressGet) net.HardwareAddr {
		addr := t.Response().Address
		return net.HardwareAddr(addr[:])
	}); err != nil {
		return BoardInfo{}, err
	}
	if err := collect(back, &info.Serial, func(t *pt.BoardSerialGet) uint64 { return t.Response().Serial }); err != nil {
		return BoardInfo{}, err
	}
	if err := collect(back, &info.ArmMemory, func(t *pt.ArmMemoryGet) pt.MemoryRegion { return t.Response() }); err != nil {
		return BoardInfo{}, err
	}
	if err := collect(back, &info.VcMemory, func(t *pt.VcMemoryGet) pt.MemoryRegion { return t.Response() }); err != nil {
		return BoardInfo{}, err
	}
	return info, nil
}

type answered interface {
	pt.Tag
	Answered() bool
}

// collect looks up the tag of type T in b and stores read(tag) in dst.
func collect[T answered, V any](b *message.Batch, dst *V, read func(T) V) error {
	tag, err := message.Get[T](b)
	if err != nil {
		return err
	}
	if !tag.Answered() {
		return fmt.Errorf("%w: %v", ErrNotAnswered, tag.ID())
	}
	*dst = read(tag)
	return nil
}
