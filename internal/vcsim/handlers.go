package vcsim

import (
	"encoding/binary"

	"vcmailbox/dma"
	pt "vcmailbox/propertytag"
)

// handler turns a tag's value buffer into the response bytes. A response
// longer than the buffer is truncated by the caller.
type handler func(value []byte) []byte

// decode reads T from the start of value, zero-filling a short buffer.
func decode[T any](value []byte) T {
	var v T
	n := binary.Size(v)
	if n <= 0 {
		return v
	}
	buf := make([]byte, n)
	copy(buf, value)
	_, _ = binary.Decode(buf, binary.LittleEndian, &v)
	return v
}

func encode(v any) []byte {
	out, _ := binary.Append(nil, binary.LittleEndian, v)
	return out
}

func (f *Firmware) catalog() map[pt.ID]handler {
	word := func(v uint32) handler {
		return func([]byte) []byte { return encode(pt.Word{Value: v}) }
	}
	region := func(r Region) handler {
		return func([]byte) []byte { return encode(pt.MemoryRegion{Base: r.Base, Size: r.Size}) }
	}
	return map[pt.ID]handler{
		pt.IDFirmwareRevisionGet: word(f.profile.FirmwareRevision),
		pt.IDBoardModelGet:       word(f.profile.BoardModel),
		pt.IDBoardRevisionGet:    word(f.profile.BoardRevision),
		pt.IDBoardMACAddressGet: func([]byte) []byte {
			return encode(pt.MACAddress{Address: f.profile.mac()})
		},
		pt.IDBoardSerialGet: func([]byte) []byte {
			return encode(pt.Serial{Serial: f.profile.Serial})
		},
		pt.IDArmMemoryGet: region(f.profile.ArmMemory),
		pt.IDVcMemoryGet:  region(f.profile.VcMemory),

		pt.IDPowerStateGet: f.powerStateGet,
		pt.IDPowerStateSet: f.powerStateSet,
		pt.IDTimingGet:     f.timingGet,

		pt.IDClockStateGet:   f.clockStateGet,
		pt.IDClockStateSet:   f.clockStateSet,
		pt.IDClockRateGet:    f.clockRate(func(c *clock) uint32 { return c.rate }),
		pt.IDMaxClockRateGet: f.clockRate(func(c *clock) uint32 { return c.max }),
		pt.IDMinClockRateGet: f.clockRate(func(c *clock) uint32 { return c.min }),
		pt.IDClockRateSet:    f.clockRateSet,

		pt.IDTurboGet: func([]byte) []byte {
			return encode(pt.SensorValue{ID: 0, Value: f.turbo})
		},
		pt.IDTurboSet: func(value []byte) []byte {
			req := decode[pt.SensorValue](value)
			f.turbo = min(req.Value, 1)
			return encode(pt.SensorValue{ID: req.ID, Value: f.turbo})
		},
		pt.IDVoltageGet: func(value []byte) []byte {
			req := decode[pt.SensorRequest](value)
			return encode(pt.SensorValue{ID: req.ID, Value: f.profile.Voltages[pt.VoltageID(req.ID).String()]})
		},
		pt.IDTemperatureGet: func(value []byte) []byte {
			req := decode[pt.SensorRequest](value)
			return encode(pt.SensorValue{ID: req.ID, Value: f.profile.Temperature})
		},
		pt.IDMaxTemperatureGet: func(value []byte) []byte {
			req := decode[pt.SensorRequest](value)
			return encode(pt.SensorValue{ID: req.ID, Value: f.profile.MaxTemperature})
		},

		pt.IDFramebufferAllocate: f.framebufferAllocate,
		pt.IDFramebufferRelease:  f.framebufferRelease,
		pt.IDBlankScreen: func(value []byte) []byte {
			f.display.blank = decode[pt.Word](value).Value & 1
			return encode(pt.Word{Value: f.display.blank})
		},
		pt.IDPhysicalSizeGet: func([]byte) []byte { return encode(f.display.physical) },
		pt.IDPhysicalSizeSet: func(value []byte) []byte {
			if d := decode[pt.Dimensions](value); d.Width > 0 && d.Height > 0 {
				f.display.physical = d
			}
			return encode(f.display.physical)
		},
		pt.IDVirtualSizeGet: func([]byte) []byte { return encode(f.display.virtual) },
		pt.IDVirtualSizeSet: func(value []byte) []byte {
			if d := decode[pt.Dimensions](value); d.Width > 0 && d.Height > 0 {
				f.display.virtual = d
			}
			return encode(f.display.virtual)
		},
		pt.IDDepthGet: func([]byte) []byte { return encode(pt.Word{Value: f.display.depth}) },
		pt.IDDepthSet: func(value []byte) []byte {
			switch d := decode[pt.Word](value).Value; d {
			case 8, 16, 24, 32:
				f.display.depth = d
			}
			return encode(pt.Word{Value: f.display.depth})
		},
		pt.IDPixelOrderGet: func([]byte) []byte { return encode(pt.Word{Value: f.display.order}) },
		pt.IDPixelOrderSet: func(value []byte) []byte {
			f.display.order = decode[pt.Word](value).Value & 1
			return encode(pt.Word{Value: f.display.order})
		},
		pt.IDPitchGet:         func([]byte) []byte { return encode(pt.Word{Value: f.pitch()}) },
		pt.IDVirtualOffsetGet: func([]byte) []byte { return encode(f.display.offset) },
		pt.IDVirtualOffsetSet: func(value []byte) []byte {
			o := decode[pt.Offset](value)
			if o.X < f.display.virtual.Width && o.Y < f.display.virtual.Height {
				f.display.offset = o
			}
			return encode(f.display.offset)
		},
	}
}

func (f *Firmware) powerStateGet(value []byte) []byte {
	req := decode[pt.DeviceRequest](value)
	d, ok := f.devices[req.Device]
	if !ok {
		return encode(pt.DeviceState{Device: req.Device, State: pt.StateMissing})
	}
	return encode(pt.DeviceState{Device: req.Device, State: onBit(d.on)})
}

func (f *Firmware) powerStateSet(value []byte) []byte {
	req := decode[pt.DeviceState](value)
	d, ok := f.devices[req.Device]
	if !ok {
		return encode(pt.DeviceState{Device: req.Device, State: pt.StateMissing})
	}
	d.on = req.State&pt.StateOn != 0
	return encode(pt.DeviceState{Device: req.Device, State: onBit(d.on)})
}

func (f *Firmware) timingGet(value []byte) []byte {
	req := decode[pt.DeviceRequest](value)
	var wait uint32
	if d, ok := f.devices[req.Device]; ok {
		wait = d.timing
	}
	return encode(pt.DeviceTiming{Device: req.Device, WaitUs: wait})
}

func (f *Firmware) clockStateGet(value []byte) []byte {
	req := decode[pt.ClockRequest](value)
	c, ok := f.clocks[req.Clock]
	if !ok {
		return encode(pt.ClockState{Clock: req.Clock, State: pt.StateMissing})
	}
	return encode(pt.ClockState{Clock: req.Clock, State: onBit(c.on)})
}

func (f *Firmware) clockStateSet(value []byte) []byte {
	req := decode[pt.ClockState](value)
	c, ok := f.clocks[req.Clock]
	if !ok {
		return encode(pt.ClockState{Clock: req.Clock, State: pt.StateMissing})
	}
	c.on = req.State&pt.StateOn != 0
	return encode(pt.ClockState{Clock: req.Clock, State: onBit(c.on)})
}

// clockRate reports 0 for clocks the board does not have.
func (f *Firmware) clockRate(pick func(*clock) uint32) handler {
	return func(value []byte) []byte {
		req := decode[pt.ClockRequest](value)
		var rate uint32
		if c, ok := f.clocks[req.Clock]; ok {
			rate = pick(c)
		}
		return encode(pt.ClockRate{Clock: req.Clock, Rate: rate})
	}
}

// clockRateSet clamps the request to the clock's range.
func (f *Firmware) clockRateSet(value []byte) []byte {
	req := decode[pt.ClockRateSetRequest](value)
	c, ok := f.clocks[req.Clock]
	if !ok {
		return encode(pt.ClockRate{Clock: req.Clock})
	}
	c.rate = min(max(req.Rate, c.min), c.max)
	return encode(pt.ClockRate{Clock: req.Clock, Rate: c.rate})
}

func (f *Firmware) pitch() uint32 {
	return f.display.virtual.Width * f.display.depth / 8
}

// framebufferAllocate carves the framebuffer out of the arena and answers
// with its alias-tagged bus address, as the real firmware does.
func (f *Firmware) framebufferAllocate(value []byte) []byte {
	if f.display.fb.IsZero() {
		size := int(f.pitch() * f.display.virtual.Height)
		blk, err := f.arena.Alloc(size)
		if err != nil {
			f.log.Warn().Err(err).Int("size", size).Msg("vcsim: framebuffer allocation failed")
			return encode(pt.MemoryRegion{})
		}
		f.display.fb = blk
	}
	fb := f.display.fb
	return encode(pt.MemoryRegion{Base: fb.Bus() | 0xC0000000, Size: uint32(fb.Len())})
}

func (f *Firmware) framebufferRelease([]byte) []byte {
	if !f.display.fb.IsZero() {
		_ = f.arena.Free(f.display.fb)
		f.display.fb = dma.Block{}
	}
	return nil
}

func onBit(on bool) uint32 {
	if on {
		return pt.StateOn
	}
	return 0
}
