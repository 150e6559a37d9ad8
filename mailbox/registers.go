package mailbox

import "fmt"

// MailboxOffset is the mailbox block's offset from the peripheral base
// (0xFE00B880 on the Pi 4, 0x3F00B880 on the Pi 2/3).
const MailboxOffset = 0xB880

// Register offsets within the mailbox block. Mailbox 0 carries VC to ARM
// traffic, mailbox 1 ARM to VC.
const (
	RegRead    = 0x00
	RegStatus0 = 0x18
	RegWrite   = 0x20
	RegStatus1 = 0x38
)

// Status register flags
const (
	StatusFull  = 1 << 31
	StatusEmpty = 1 << 30
)

// Registers is 32-bit access to the mailbox block. Offsets are relative
// to MailboxOffset.
type Registers interface {
	Read32(off uintptr) uint32
	Write32(off uintptr, v uint32)
}

// Channel selects the logical FIFO a word belongs to.
type Channel uint32

const (
	ChannelPowerManagement     Channel = 0
	ChannelFramebuffer         Channel = 1
	ChannelVirtualUART         Channel = 2
	ChannelVCHIQ               Channel = 3
	ChannelLEDs                Channel = 4
	ChannelButtons             Channel = 5
	ChannelTouchScreen         Channel = 6
	ChannelPropertyTagsArmToVC Channel = 8
	ChannelPropertyTagsVCToArm Channel = 9
)

var channelNames = map[Channel]string{
	ChannelPowerManagement:     "power",
	ChannelFramebuffer:         "framebuffer",
	ChannelVirtualUART:         "vuart",
	ChannelVCHIQ:               "vchiq",
	ChannelLEDs:                "leds",
	ChannelButtons:             "buttons",
	ChannelTouchScreen:         "touchscreen",
	ChannelPropertyTagsArmToVC: "property-arm-to-vc",
	ChannelPropertyTagsVCToArm: "property-vc-to-arm",
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("channel(%d)", uint32(c))
}
