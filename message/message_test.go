package message

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmailbox/dma"
	"vcmailbox/propertytag"
)

func newArena(t *testing.T) *dma.Arena {
	t.Helper()
	a, err := dma.NewArena(4096, 0x0010_0000)
	require.NoError(t, err)
	return a
}

// answer does what the firmware does to a buffer it accepts.
func answer(buf []byte, state State) {
	binary.LittleEndian.PutUint32(buf[4:], uint32(state))
	total := int(binary.LittleEndian.Uint32(buf))
	for off := tagsOffset; off < total-4; {
		size := binary.LittleEndian.Uint32(buf[off+4:])
		binary.LittleEndian.PutUint32(buf[off+8:], propertytag.ResponseBit|size)
		off += propertytag.HeaderSize + int(size+3)&^3
	}
}

func TestMessageLayout(t *testing.T) {
	a := newArena(t)
	msg, err := New(a, propertytag.NewClockRateGet(propertytag.ClockCore))
	require.NoError(t, err)

	assert.Equal(t, uint32(32), msg.Size())
	assert.Equal(t, Request, msg.State())
	assert.Zero(t, msg.Block().Bus()%dma.Alignment)
	assert.Equal(t, []uint32{
		32, 0,
		uint32(propertytag.IDClockRateGet), 8, 0,
		uint32(propertytag.ClockCore), 0,
		0,
	}, msg.Words())
}

func TestMessageTagIsView(t *testing.T) {
	a := newArena(t)
	msg, err := New(a, propertytag.NewClockRateGet(propertytag.ClockArm))
	require.NoError(t, err)

	binary.LittleEndian.PutUint32(msg.Bytes()[24:], 700_000_000)
	assert.Equal(t, uint32(700_000_000), msg.Tag().Response().Rate)
}

func TestReclaimEcho(t *testing.T) {
	a := newArena(t)
	msg, err := New(a, propertytag.NewClockStateSet(propertytag.ClockPwm, propertytag.StateOn))
	require.NoError(t, err)

	answer(msg.Bytes(), ResponseOk)
	blk, err := a.Resolve(msg.Block().Bus(), msg.Block().Len())
	require.NoError(t, err)

	back, err := Reclaim(msg, blk)
	require.NoError(t, err)
	assert.Equal(t, ResponseOk, back.State())
	assert.True(t, back.Tag().Answered())
	assert.Equal(t, propertytag.ClockState{Clock: propertytag.ClockPwm, State: propertytag.StateOn},
		back.Tag().Response())

	// The old value is forgotten: releasing it touches nothing.
	require.NoError(t, msg.Release())
	assert.Equal(t, 1, a.Allocated())
	require.NoError(t, back.Release())
	assert.Equal(t, 0, a.Allocated())

	_, err = Reclaim(msg, blk)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestReclaimRejectsOtherMemory(t *testing.T) {
	a := newArena(t)
	msg, err := New(a, propertytag.NewTemperatureGet())
	require.NoError(t, err)

	other, err := a.Alloc(msg.Block().Len())
	require.NoError(t, err)
	_, err = Reclaim(msg, other)
	assert.ErrorIs(t, err, ErrShape)

	// msg still owns its block.
	require.NoError(t, msg.Release())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "response-error", ResponseError.String())
	assert.Equal(t, "state(0x00000007)", State(7).String())
}

func TestNewRejectsUnbuiltTag(t *testing.T) {
	a := newArena(t)

	_, err := New(a, &propertytag.PitchGet{})
	assert.ErrorIs(t, err, propertytag.ErrUninitialised)
	_, err = New(a, (*propertytag.PitchGet)(nil))
	assert.ErrorIs(t, err, propertytag.ErrUninitialised)
	assert.Equal(t, 0, a.Allocated())
}
