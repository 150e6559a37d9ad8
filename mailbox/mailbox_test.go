package mailbox_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmailbox/dma"
	"vcmailbox/internal/vcsim"
	"vcmailbox/mailbox"
	"vcmailbox/message"
	"vcmailbox/propertytag"
)

const prop = mailbox.ChannelPropertyTagsArmToVC

func newArena(t *testing.T) *dma.Arena {
	t.Helper()
	a, err := dma.NewArena(64<<10, 0x0010_0000)
	require.NoError(t, err)
	return a
}

func newSim(t *testing.T) (*mailbox.Mailbox, *vcsim.Firmware, *dma.Arena) {
	t.Helper()
	a := newArena(t)
	fw := vcsim.New(a, vcsim.DefaultProfile())
	return mailbox.New(mailbox.NewFIFO(fw), a), fw, a
}

// echo answers every envelope in place without changing any value.
type echo struct {
	log   *[]string
	state message.State
	err   error
}

func (e echo) Exchange(_ mailbox.Channel, bus uint32, env []byte) (uint32, error) {
	if e.log != nil {
		*e.log = append(*e.log, "exchange")
	}
	if e.err != nil {
		return 0, e.err
	}
	binary.LittleEndian.PutUint32(env[4:], uint32(e.state))
	total := int(binary.LittleEndian.Uint32(env))
	for off := 8; off < total-4; {
		size := binary.LittleEndian.Uint32(env[off+4:])
		binary.LittleEndian.PutUint32(env[off+8:], propertytag.ResponseBit|size)
		off += propertytag.HeaderSize + int(size+3)&^3
	}
	return bus, nil
}

type recordingCache struct{ log *[]string }

func (c recordingCache) Clean([]byte)      { *c.log = append(*c.log, "clean") }
func (c recordingCache) Invalidate([]byte) { *c.log = append(*c.log, "invalidate") }

func TestSendClockRate(t *testing.T) {
	mb, fw, a := newSim(t)

	msg, err := message.New(a, propertytag.NewClockRateGet(propertytag.ClockArm))
	require.NoError(t, err)
	bus := msg.Block().Bus()

	back, err := mailbox.Send(mb, prop, msg)
	require.NoError(t, err)
	defer back.Release()

	assert.Equal(t, message.ResponseOk, back.State())
	assert.Equal(t, bus, back.Block().Bus())
	assert.True(t, back.Tag().Answered())
	assert.False(t, back.Tag().Truncated())
	assert.Equal(t, propertytag.ClockRate{Clock: propertytag.ClockArm, Rate: 600_000_000}, back.Tag().Response())

	// One word: uncached alias | bus address | channel 8.
	assert.Equal(t, []uint32{mailbox.DefaultAlias | bus | 8}, fw.Submitted())
}

func TestSendResponseError(t *testing.T) {
	mb, fw, a := newSim(t)
	fw.FailNext()

	msg, err := message.New(a, propertytag.NewTemperatureGet())
	require.NoError(t, err)

	back, err := mailbox.Send(mb, prop, msg)
	assert.ErrorIs(t, err, mailbox.ErrTransport)
	assert.Nil(t, back)
	assert.Equal(t, 0, a.Allocated(), "failed envelope is released once")
	assert.NoError(t, msg.Release())
}

func TestSendSkipsOtherChannels(t *testing.T) {
	mb, fw, a := newSim(t)

	for range 2 {
		fw.Inject(mailbox.ChannelFramebuffer, 0x0000_1230)
		msg, err := message.New(a, propertytag.NewBoardRevisionGet())
		require.NoError(t, err)

		back, err := mailbox.Send(mb, prop, msg)
		require.NoError(t, err)
		assert.Equal(t, propertytag.Word{Value: 0xc03111}, back.Tag().Response())
		require.NoError(t, back.Release())
	}
	assert.Len(t, fw.Submitted(), 2)
	assert.Equal(t, uint32(mailbox.StatusEmpty), fw.Read32(mailbox.RegStatus0))
}

func TestSendWaitsForRoom(t *testing.T) {
	mb, fw, a := newSim(t)
	fw.StallWrites(5)

	msg, err := message.New(a, propertytag.NewFirmwareRevisionGet())
	require.NoError(t, err)
	back, err := mailbox.Send(mb, prop, msg)
	require.NoError(t, err)
	assert.Equal(t, vcsim.DefaultProfile().FirmwareRevision, back.Tag().Response().Value)
}

func TestSendEchoRoundTrip(t *testing.T) {
	a := newArena(t)
	var calls []string
	mb := mailbox.New(echo{log: &calls, state: message.ResponseOk}, a,
		mailbox.WithCache(recordingCache{log: &calls}))

	msg, err := message.New(a, propertytag.NewClockStateSet(propertytag.ClockUart, propertytag.StateOn))
	require.NoError(t, err)
	back, err := mailbox.Send(mb, prop, msg)
	require.NoError(t, err)

	assert.Equal(t, []string{"clean", "exchange", "invalidate"}, calls)
	assert.Equal(t, propertytag.ClockState{Clock: propertytag.ClockUart, State: propertytag.StateOn},
		back.Tag().Response())
	assert.Equal(t, uint32(8), back.Tag().ResponseLen())
}

func TestSendMalformedState(t *testing.T) {
	a := newArena(t)
	mb := mailbox.New(echo{state: message.Request}, a)

	msg, err := message.New(a, propertytag.NewPitchGet())
	require.NoError(t, err)
	_, err = mailbox.Send(mb, prop, msg)
	assert.ErrorIs(t, err, mailbox.ErrTransport)
}

func TestSendTransportErrorKeepsMessage(t *testing.T) {
	a := newArena(t)
	boom := errors.New("device gone")
	mb := mailbox.New(echo{err: boom}, a)

	msg, err := message.New(a, propertytag.NewPitchGet())
	require.NoError(t, err)
	_, err = mailbox.Send(mb, prop, msg)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, message.Request, msg.State())
	require.NoError(t, msg.Release())
	assert.Equal(t, 0, a.Allocated())
}

func TestSendRejectsForeignArena(t *testing.T) {
	mb, _, _ := newSim(t)

	msg, err := message.New(newArena(t), propertytag.NewPitchGet())
	require.NoError(t, err)
	_, err = mailbox.Send(mb, prop, msg)
	assert.ErrorIs(t, err, mailbox.ErrAddressRange)
}

func TestSendBatch(t *testing.T) {
	mb, _, a := newSim(t)

	b, err := message.NewBatch(a)
	require.NoError(t, err)
	require.NoError(t, b.Add(propertytag.NewClockRateGet(propertytag.ClockCore)))
	require.NoError(t, b.Add(propertytag.NewMaxClockRateGet(propertytag.ClockArm)))
	require.NoError(t, b.Add(propertytag.NewBoardMACAddressGet()))

	back, err := mb.SendBatch(prop, b)
	require.NoError(t, err)
	defer back.Release()

	core, err := message.Get[*propertytag.ClockRateGet](back)
	require.NoError(t, err)
	assert.Equal(t, uint32(200_000_000), core.Response().Rate)

	arm, err := message.Get[*propertytag.MaxClockRateGet](back)
	require.NoError(t, err)
	assert.Equal(t, uint32(1_500_000_000), arm.Response().Rate)

	mac, err := message.Get[*propertytag.BoardMACAddressGet](back)
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0xdc, 0xa6, 0x32, 0x01, 0x02, 0x03}, mac.Response().Address)
}

func TestChannelString(t *testing.T) {
	assert.Equal(t, "property-arm-to-vc", prop.String())
	assert.Equal(t, "channel(12)", mailbox.Channel(12).String())
}
