package bitfield

// MailboxWord is the 32-bit value that travels through the mailbox FIFOs.
// The low 4 bits select the channel; the upper 28 bits carry a 16-byte
// aligned bus address shifted right by 4.
type MailboxWord struct {
	// Channel is the logical FIFO channel (0..15)
	Channel uint32 `bitfield:",4"`

	// Address holds bits 31..4 of the buffer's bus address
	Address uint32 `bitfield:",28"`
}

// PackMailboxWord packs w into the raw register value.
func PackMailboxWord(w MailboxWord) (uint32, error) {
	packed, err := Pack(w, &Config{NumBits: 32})
	if err != nil {
		return 0, err
	}
	return uint32(packed), nil
}

// UnpackMailboxWord splits a raw register value into channel and address.
func UnpackMailboxWord(raw uint32) MailboxWord {
	var w MailboxWord
	// MailboxWord only has uint32 fields, Unpack cannot fail.
	_ = Unpack(uint64(raw), &w)
	return w
}

// BusAddress returns the full bus address encoded in w.
func (w MailboxWord) BusAddress() uint32 {
	return w.Address << 4
}

// NewMailboxWord builds the word for a 16-byte aligned bus address.
func NewMailboxWord(channel uint32, busAddr uint32) MailboxWord {
	return MailboxWord{Channel: channel & 0xF, Address: busAddr >> 4}
}

// TagState is the third word of every property tag. Zero on request; on
// response the top bit is set and the low 31 bits report the length of
// the value the firmware wanted to write.
type TagState struct {
	Length   uint32 `bitfield:",31"`
	Response bool   `bitfield:",1"`
}

// PackTagState packs s into its wire word.
func PackTagState(s TagState) (uint32, error) {
	packed, err := Pack(s, &Config{NumBits: 32})
	if err != nil {
		return 0, err
	}
	return uint32(packed), nil
}

// UnpackTagState decodes a tag state word.
func UnpackTagState(raw uint32) TagState {
	var s TagState
	_ = Unpack(uint64(raw), &s)
	return s
}
