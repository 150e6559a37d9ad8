// Package firmware is the convenience layer over the property mailbox:
// one method per operation, each building a single-tag message, sending
// it and decoding the answer.
package firmware

import (
	"errors"
	"fmt"
	"net"

	"vcmailbox/mailbox"
	"vcmailbox/message"
	pt "vcmailbox/propertytag"
)

var (
	ErrNotAnswered = errors.New("firmware: tag was not answered")
	ErrNoDevice    = errors.New("firmware: no such clock or device")
)

// Client sends property tags on the ARM to VC property channel.
type Client struct {
	mb *mailbox.Mailbox
}

func New(mb *mailbox.Mailbox) *Client {
	return &Client{mb: mb}
}

// Mailbox returns the underlying handle.
func (c *Client) Mailbox() *mailbox.Mailbox { return c.mb }

type responder[R any] interface {
	pt.Tag
	Response() R
	Answered() bool
}

// query sends tag alone and returns its decoded response. The envelope is
// released before query returns.
func query[R any, T responder[R]](c *Client, tag T) (R, error) {
	var zero R
	msg, err := message.New(c.mb.Arena(), tag)
	if err != nil {
		return zero, err
	}
	back, err := mailbox.Send(c.mb, mailbox.ChannelPropertyTagsArmToVC, msg)
	if err != nil {
		_ = msg.Release()
		return zero, fmt.Errorf("firmware: %v: %w", tag.ID(), err)
	}
	defer back.Release()

	if !back.Tag().Answered() {
		return zero, fmt.Errorf("%w: %v", ErrNotAnswered, tag.ID())
	}
	return back.Tag().Response(), nil
}

func (c *Client) FirmwareRevision() (uint32, error) {
	r, err := query[pt.Word](c, pt.NewFirmwareRevisionGet())
	return r.Value, err
}

func (c *Client) BoardModel() (uint32, error) {
	r, err := query[pt.Word](c, pt.NewBoardModelGet())
	return r.Value, err
}

func (c *Client) BoardRevision() (uint32, error) {
	r, err := query[pt.Word](c, pt.NewBoardRevisionGet())
	return r.Value, err
}

// MACAddress returns the on-board ethernet address.
func (c *Client) MACAddress() (net.HardwareAddr, error) {
	r, err := query[pt.MACAddress](c, pt.NewBoardMACAddressGet())
	if err != nil {
		return nil, err
	}
	return net.HardwareAddr(r.Address[:]), nil
}

func (c *Client) Serial() (uint64, error) {
	r, err := query[pt.Serial](c, pt.NewBoardSerialGet())
	return r.Serial, err
}

// ArmMemory returns the memory split reserved for the ARM cores.
func (c *Client) ArmMemory() (pt.MemoryRegion, error) {
	return query[pt.MemoryRegion](c, pt.NewArmMemoryGet())
}

// VcMemory returns the memory split reserved for the VideoCore.
func (c *Client) VcMemory() (pt.MemoryRegion, error) {
	return query[pt.MemoryRegion](c, pt.NewVcMemoryGet())
}

// ClockState reports whether clock is running.
func (c *Client) ClockState(clock pt.ClockID) (bool, error) {
	r, err := query[pt.ClockState](c, pt.NewClockStateGet(clock))
	return on(r.State, err, clock)
}

func (c *Client) SetClockState(clock pt.ClockID, enable bool) (bool, error) {
	r, err := query[pt.ClockState](c, pt.NewClockStateSet(clock, bit(enable)))
	return on(r.State, err, clock)
}

// ClockRate returns the current rate of clock in Hz.
func (c *Client) ClockRate(clock pt.ClockID) (uint32, error) {
	r, err := query[pt.ClockRate](c, pt.NewClockRateGet(clock))
	return r.Rate, err
}

// SetClockRate asks for rate Hz and returns what the firmware settled on.
// skipTurbo leaves the turbo settings alone when the ARM clock changes.
func (c *Client) SetClockRate(clock pt.ClockID, rate uint32, skipTurbo bool) (uint32, error) {
	r, err := query[pt.ClockRate](c, pt.NewClockRateSet(clock, rate, bit(skipTurbo)))
	return r.Rate, err
}

func (c *Client) MaxClockRate(clock pt.ClockID) (uint32, error) {
	r, err := query[pt.ClockRate](c, pt.NewMaxClockRateGet(clock))
	return r.Rate, err
}

func (c *Client) MinClockRate(clock pt.ClockID) (uint32, error) {
	r, err := query[pt.ClockRate](c, pt.NewMinClockRateGet(clock))
	return r.Rate, err
}

// PowerState reports whether the power domain of device is on.
func (c *Client) PowerState(device pt.DeviceID) (bool, error) {
	r, err := query[pt.DeviceState](c, pt.NewPowerStateGet(device))
	return on(r.State, err, device)
}

// SetPowerState switches device on or off. With wait the firmware only
// answers once the domain is stable.
func (c *Client) SetPowerState(device pt.DeviceID, enable, wait bool) (bool, error) {
	state := bit(enable)
	if wait {
		state |= pt.StateWait
	}
	r, err := query[pt.DeviceState](c, pt.NewPowerStateSet(device, state))
	return on(r.State, err, device)
}

// Timing returns how long device takes to power up, in microseconds.
func (c *Client) Timing(device pt.DeviceID) (uint32, error) {
	r, err := query[pt.DeviceTiming](c, pt.NewTimingGet(device))
	return r.WaitUs, err
}

// Temperature returns the SoC temperature in millidegrees Celsius.
func (c *Client) Temperature() (uint32, error) {
	r, err := query[pt.SensorValue](c, pt.NewTemperatureGet())
	return r.Value, err
}

func (c *Client) MaxTemperature() (uint32, error) {
	r, err := query[pt.SensorValue](c, pt.NewMaxTemperatureGet())
	return r.Value, err
}

func (c *Client) Voltage(rail pt.VoltageID) (uint32, error) {
	r, err := query[pt.SensorValue](c, pt.NewVoltageGet(rail))
	return r.Value, err
}

func (c *Client) Turbo() (bool, error) {
	r, err := query[pt.SensorValue](c, pt.NewTurboGet())
	return r.Value != 0, err
}

func (c *Client) SetTurbo(enable bool) (bool, error) {
	r, err := query[pt.SensorValue](c, pt.NewTurboSet(bit(enable)))
	return r.Value != 0, err
}

func bit(b bool) uint32 {
	if b {
		return pt.StateOn
	}
	return 0
}

func on(state uint32, err error, what fmt.Stringer) (bool, error) {
	if err != nil {
		return false, err
	}
	if state&pt.StateMissing != 0 {
		return false, fmt.Errorf("%w: %v", ErrNoDevice, what)
	}
	return state&pt.StateOn != 0, nil
}
