package firmware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmailbox/dma"
	"vcmailbox/internal/vcsim"
	"vcmailbox/mailbox"
	pt "vcmailbox/propertytag"
)

func newClient(t *testing.T) (*Client, *vcsim.Firmware, *dma.Arena) {
	t.Helper()
	a, err := dma.NewArena(64<<10, 0x0010_0000)
	require.NoError(t, err)
	fw := vcsim.New(a, vcsim.DefaultProfile())
	return New(mailbox.New(mailbox.NewFIFO(fw), a)), fw, a
}

func TestMemorySplit(t *testing.T) {
	c, _, a := newClient(t)

	arm, err := c.ArmMemory()
	require.NoError(t, err)
	assert.Equal(t, pt.MemoryRegion{Base: 0, Size: 0x3b400000}, arm)

	vc, err := c.VcMemory()
	require.NoError(t, err)
	assert.Equal(t, arm.Base+arm.Size, vc.Base)

	assert.Equal(t, 0, a.Allocated(), "every envelope is released")
}

func TestClocks(t *testing.T) {
	c, _, _ := newClient(t)

	tests := []struct {
		clock        pt.ClockID
		rate, lo, hi uint32
		running      bool
	}{
		{clock: pt.ClockArm, rate: 600_000_000, lo: 600_000_000, hi: 1_500_000_000, running: true},
		{clock: pt.ClockCore, rate: 200_000_000, lo: 200_000_000, hi: 500_000_000, running: true},
		{clock: pt.ClockPwm, rate: 0, lo: 0, hi: 100_000_000, running: false},
	}
	for _, tt := range tests {
		t.Run(tt.clock.String(), func(t *testing.T) {
			rate, err := c.ClockRate(tt.clock)
			require.NoError(t, err)
			assert.Equal(t, tt.rate, rate)

			lo, err := c.MinClockRate(tt.clock)
			require.NoError(t, err)
			assert.Equal(t, tt.lo, lo)

			hi, err := c.MaxClockRate(tt.clock)
			require.NoError(t, err)
			assert.Equal(t, tt.hi, hi)

			running, err := c.ClockState(tt.clock)
			require.NoError(t, err)
			assert.Equal(t, tt.running, running)
		})
	}
}

func TestSetClock(t *testing.T) {
	c, _, _ := newClient(t)

	got, err := c.SetClockRate(pt.ClockArm, 1_200_000_000, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(1_200_000_000), got)

	running, err := c.SetClockState(pt.ClockPwm, true)
	require.NoError(t, err)
	assert.True(t, running)

	_, err = c.ClockState(pt.ClockID(0x77))
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestPower(t *testing.T) {
	c, _, _ := newClient(t)

	on, err := c.PowerState(pt.DeviceUsbHcd)
	require.NoError(t, err)
	assert.False(t, on)

	on, err = c.SetPowerState(pt.DeviceUsbHcd, true, true)
	require.NoError(t, err)
	assert.True(t, on)

	us, err := c.Timing(pt.DeviceUsbHcd)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), us)

	_, err = c.PowerState(pt.DeviceID(0x40))
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestSensors(t *testing.T) {
	c, _, _ := newClient(t)

	temp, err := c.Temperature()
	require.NoError(t, err)
	assert.Equal(t, uint32(47200), temp)

	limit, err := c.MaxTemperature()
	require.NoError(t, err)
	assert.Equal(t, uint32(85000), limit)

	uv, err := c.Voltage(pt.VoltageCore)
	require.NoError(t, err)
	assert.Equal(t, uint32(1_200_000), uv)

	turbo, err := c.SetTurbo(true)
	require.NoError(t, err)
	assert.True(t, turbo)
	turbo, err = c.Turbo()
	require.NoError(t, err)
	assert.True(t, turbo)
}

func TestResponseErrorSurfaces(t *testing.T) {
	c, fw, a := newClient(t)
	fw.FailNext()

	_, err := c.FirmwareRevision()
	assert.ErrorIs(t, err, mailbox.ErrTransport)
	assert.Equal(t, 0, a.Allocated())
}

func TestBoardInfo(t *testing.T) {
	c, fw, a := newClient(t)
	p := vcsim.DefaultProfile()

	info, err := c.BoardInfo()
	require.NoError(t, err)
	assert.Equal(t, p.FirmwareRevision, info.FirmwareRevision)
	assert.Equal(t, p.BoardModel, info.Model)
	assert.Equal(t, p.BoardRevision, info.Revision)
	assert.Equal(t, p.MAC, info.MAC.String())
	assert.Equal(t, p.Serial, info.Serial)
	assert.Equal(t, p.VcMemory.Size, info.VcMemory.Size)

	// One batch, one mailbox word.
	assert.Len(t, fw.Submitted(), 1)
	assert.Equal(t, 0, a.Allocated())

	single, err := c.MACAddress()
	require.NoError(t, err)
	assert.Equal(t, info.MAC, single)

	serial, err := c.Serial()
	require.NoError(t, err)
	assert.Equal(t, info.Serial, serial)

	model, err := c.BoardModel()
	require.NoError(t, err)
	assert.Equal(t, info.Model, model)

	rev, err := c.BoardRevision()
	require.NoError(t, err)
	assert.Equal(t, info.Revision, rev)
}
