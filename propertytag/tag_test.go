package propertytag

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() []Tag {
	return []Tag{
		NewFirmwareRevisionGet(),
		NewBoardModelGet(),
		NewBoardRevisionGet(),
		NewBoardMACAddressGet(),
		NewBoardSerialGet(),
		NewArmMemoryGet(),
		NewVcMemoryGet(),
		NewPowerStateGet(DeviceUsbHcd),
		NewPowerStateSet(DeviceUsbHcd, StateOn|StateWait),
		NewTimingGet(DeviceSdCard),
		NewClockStateGet(ClockPwm),
		NewClockStateSet(ClockPwm, StateOn),
		NewClockRateGet(ClockCore),
		NewClockRateSet(ClockArm, 600_000_000, 0),
		NewMaxClockRateGet(ClockArm),
		NewMinClockRateGet(ClockArm),
		NewTurboGet(),
		NewTurboSet(1),
		NewVoltageGet(VoltageCore),
		NewTemperatureGet(),
		NewMaxTemperatureGet(),
		NewFramebufferAllocate(16),
		NewFramebufferRelease(),
		NewBlankScreen(true),
		NewPhysicalSizeGet(),
		NewPhysicalSizeSet(640, 480),
		NewVirtualSizeGet(),
		NewVirtualSizeSet(640, 480),
		NewDepthGet(),
		NewDepthSet(32),
		NewPixelOrderGet(),
		NewPixelOrderSet(PixelOrderRGB),
		NewPitchGet(),
		NewVirtualOffsetGet(),
		NewVirtualOffsetSet(0, 0),
	}
}

func TestCatalogLayout(t *testing.T) {
	for _, tag := range catalog() {
		t.Run(tag.ID().String(), func(t *testing.T) {
			assert.Zero(t, tag.Len()%4, "encoded length %d", tag.Len())
			assert.Equal(t, tag.Len(), len(tag.Bytes()))
			assert.GreaterOrEqual(t, tag.Len(), HeaderSize+int(tag.Size()))
			assert.Less(t, tag.Len()-HeaderSize-int(tag.Size()), 4, "padding")
			assert.Zero(t, tag.State())

			raw := tag.Bytes()
			assert.Equal(t, uint32(tag.ID()), binary.LittleEndian.Uint32(raw[0:]))
			assert.Equal(t, tag.Size(), binary.LittleEndian.Uint32(raw[4:]))
			assert.Zero(t, binary.LittleEndian.Uint32(raw[8:]))
			assert.NotContains(t, tag.ID().String(), "ID(")
		})
	}
}

func TestClockRateGetEncoding(t *testing.T) {
	tag := NewClockRateGet(ClockCore)

	// Request is one word, response two: the overlay takes the larger.
	assert.Equal(t, uint32(8), tag.Size())
	assert.Equal(t, 20, tag.Len())
	assert.Equal(t, []byte{
		0x02, 0x00, 0x03, 0x00,
		0x08, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}, tag.Bytes())
	assert.Equal(t, ClockRequest{Clock: ClockCore}, tag.Request())
}

func TestMACAddressPadding(t *testing.T) {
	tag := NewBoardMACAddressGet()

	assert.Equal(t, uint32(6), tag.Size())
	assert.Equal(t, 2, tag.Padding())
	assert.Equal(t, HeaderSize+6+2, tag.Len())
}

func TestEmptyOverlay(t *testing.T) {
	tag := NewFramebufferRelease()

	assert.Equal(t, uint32(0), tag.Size())
	assert.Equal(t, HeaderSize, tag.Len())
	assert.Equal(t, Empty{}, tag.Response())
}

func TestResponseOverlaysRequest(t *testing.T) {
	tag := NewClockRateGet(ClockArm)

	// Simulate the firmware answering in place.
	raw := tag.Bytes()
	binary.LittleEndian.PutUint32(raw[8:], ResponseBit|8)
	binary.LittleEndian.PutUint32(raw[16:], 1_200_000_000)

	assert.True(t, tag.Answered())
	assert.False(t, tag.Truncated())
	assert.Equal(t, uint32(8), tag.ResponseLen())
	assert.Equal(t, ClockRate{Clock: ClockArm, Rate: 1_200_000_000}, tag.Response())
}

func TestTruncatedResponse(t *testing.T) {
	tag := NewBoardMACAddressGet()
	binary.LittleEndian.PutUint32(tag.Bytes()[8:], ResponseBit|12)

	assert.True(t, tag.Truncated())
	assert.Equal(t, uint32(12), tag.ResponseLen())
}

func TestBind(t *testing.T) {
	tag := NewClockRateGet(ClockCore)

	shared := make([]byte, tag.Len())
	copy(shared, tag.Bytes())
	require.NoError(t, tag.Bind(shared))

	binary.LittleEndian.PutUint32(shared[16:], 250_000_000)
	assert.Equal(t, uint32(250_000_000), tag.Response().Rate)

	assert.Error(t, tag.Bind(shared[:12]), "short buffer")

	other := NewMaxClockRateGet(ClockCore)
	assert.Error(t, tag.Bind(other.Bytes()), "foreign id")
}

func TestBindUnbuiltTag(t *testing.T) {
	var zero ClockRateGet
	assert.ErrorIs(t, zero.Bind(make([]byte, 20)), ErrUninitialised)
	assert.False(t, zero.Attached())

	tag := NewClockRateGet(ClockCore)
	assert.NoError(t, Check(tag))
	require.NoError(t, tag.Bind(append([]byte(nil), tag.Bytes()...)))
	assert.True(t, tag.Attached())
	assert.ErrorIs(t, Check(tag), ErrAttached)
}

func TestParseNames(t *testing.T) {
	for _, c := range Clocks() {
		got, err := ParseClockID(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseClockID("nope")
	assert.Error(t, err)

	d, err := ParseDeviceID("usbhcd")
	require.NoError(t, err)
	assert.Equal(t, DeviceUsbHcd, d)
	_, err = ParseDeviceID("nope")
	assert.Error(t, err)

	assert.Equal(t, "ID(0x12345678)", ID(0x12345678).String())
}
