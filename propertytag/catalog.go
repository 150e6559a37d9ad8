package propertytag

// Value buffer layouts shared by several tags.
type (
	Empty struct{}

	Word struct{ Value uint32 }

	MemoryRegion struct {
		Base uint32
		Size uint32
	}

	ClockRequest struct{ Clock ClockID }

	ClockRate struct {
		Clock ClockID
		Rate  uint32
	}

	ClockState struct {
		Clock ClockID
		State uint32
	}

	DeviceRequest struct{ Device DeviceID }

	DeviceState struct {
		Device DeviceID
		State  uint32
	}

	DeviceTiming struct {
		Device DeviceID
		WaitUs uint32
	}

	SensorRequest struct{ ID uint32 }

	SensorValue struct {
		ID    uint32
		Value uint32
	}

	Dimensions struct {
		Width  uint32
		Height uint32
	}

	Offset struct {
		X uint32
		Y uint32
	}

	ClockRateSetRequest struct {
		Clock     ClockID
		Rate      uint32
		SkipTurbo uint32
	}

	MACAddress struct{ Address [6]byte }

	Serial struct{ Serial uint64 }
)

// FirmwareRevisionGet reads the firmware revision.
type FirmwareRevisionGet struct{ Codec[Empty, Word] }

func NewFirmwareRevisionGet() *FirmwareRevisionGet {
	t := &FirmwareRevisionGet{}
	t.Init(IDFirmwareRevisionGet, Empty{})
	return t
}

// BoardModelGet reads the board model.
type BoardModelGet struct{ Codec[Empty, Word] }

func NewBoardModelGet() *BoardModelGet {
	t := &BoardModelGet{}
	t.Init(IDBoardModelGet, Empty{})
	return t
}

// BoardRevisionGet reads the board revision code.
type BoardRevisionGet struct{ Codec[Empty, Word] }

func NewBoardRevisionGet() *BoardRevisionGet {
	t := &BoardRevisionGet{}
	t.Init(IDBoardRevisionGet, Empty{})
	return t
}

// BoardMACAddressGet reads the MAC address in network byte order. The
// 6-byte value buffer gets 2 bytes of padding.
type BoardMACAddressGet struct{ Codec[Empty, MACAddress] }

func NewBoardMACAddressGet() *BoardMACAddressGet {
	t := &BoardMACAddressGet{}
	t.Init(IDBoardMACAddressGet, Empty{})
	return t
}

// BoardSerialGet reads the 64-bit board serial.
type BoardSerialGet struct{ Codec[Empty, Serial] }

func NewBoardSerialGet() *BoardSerialGet {
	t := &BoardSerialGet{}
	t.Init(IDBoardSerialGet, Empty{})
	return t
}

// ArmMemoryGet reads the base and size of memory given to the ARM. The
// split is configured in config.txt on the boot partition.
type ArmMemoryGet struct{ Codec[Empty, MemoryRegion] }

func NewArmMemoryGet() *ArmMemoryGet {
	t := &ArmMemoryGet{}
	t.Init(IDArmMemoryGet, Empty{})
	return t
}

// VcMemoryGet reads the base and size of memory reserved for the GPU.
type VcMemoryGet struct{ Codec[Empty, MemoryRegion] }

func NewVcMemoryGet() *VcMemoryGet {
	t := &VcMemoryGet{}
	t.Init(IDVcMemoryGet, Empty{})
	return t
}

// PowerStateGet reads the power state of a device.
// Response state: bit 0 on, bit 1 device missing.
type PowerStateGet struct{ Codec[DeviceRequest, DeviceState] }

func NewPowerStateGet(device DeviceID) *PowerStateGet {
	t := &PowerStateGet{}
	t.Init(IDPowerStateGet, DeviceRequest{Device: device})
	return t
}

// PowerStateSet switches a device on or off.
// Request state: bit 0 on, bit 1 wait for the change to settle.
type PowerStateSet struct{ Codec[DeviceState, DeviceState] }

func NewPowerStateSet(device DeviceID, state uint32) *PowerStateSet {
	t := &PowerStateSet{}
	t.Init(IDPowerStateSet, DeviceState{Device: device, State: state})
	return t
}

// TimingGet reads how long a device takes to power up, in microseconds.
type TimingGet struct{ Codec[DeviceRequest, DeviceTiming] }

func NewTimingGet(device DeviceID) *TimingGet {
	t := &TimingGet{}
	t.Init(IDTimingGet, DeviceRequest{Device: device})
	return t
}

// ClockStateGet reads whether a clock is running.
type ClockStateGet struct{ Codec[ClockRequest, ClockState] }

func NewClockStateGet(clock ClockID) *ClockStateGet {
	t := &ClockStateGet{}
	t.Init(IDClockStateGet, ClockRequest{Clock: clock})
	return t
}

// ClockStateSet starts or stops a clock.
type ClockStateSet struct{ Codec[ClockState, ClockState] }

func NewClockStateSet(clock ClockID, state uint32) *ClockStateSet {
	t := &ClockStateSet{}
	t.Init(IDClockStateSet, ClockState{Clock: clock, State: state})
	return t
}

// ClockRateGet reads the current rate of a clock in Hz. A rate of 0 means
// the clock does not exist; the rate is reported even when the clock is
// stopped.
type ClockRateGet struct{ Codec[ClockRequest, ClockRate] }

func NewClockRateGet(clock ClockID) *ClockRateGet {
	t := &ClockRateGet{}
	t.Init(IDClockRateGet, ClockRequest{Clock: clock})
	return t
}

// ClockRateSet sets a clock to the nearest supported rate. Setting the ARM
// clock also applies turbo settings to other blocks unless skipTurbo is 1.
type ClockRateSet struct{ Codec[ClockRateSetRequest, ClockRate] }

func NewClockRateSet(clock ClockID, rate, skipTurbo uint32) *ClockRateSet {
	t := &ClockRateSet{}
	t.Init(IDClockRateSet, ClockRateSetRequest{Clock: clock, Rate: rate, SkipTurbo: skipTurbo})
	return t
}

// MaxClockRateGet reads the highest rate a clock supports.
type MaxClockRateGet struct{ Codec[ClockRequest, ClockRate] }

func NewMaxClockRateGet(clock ClockID) *MaxClockRateGet {
	t := &MaxClockRateGet{}
	t.Init(IDMaxClockRateGet, ClockRequest{Clock: clock})
	return t
}

// MinClockRateGet reads the lowest rate a clock supports.
type MinClockRateGet struct{ Codec[ClockRequest, ClockRate] }

func NewMinClockRateGet(clock ClockID) *MinClockRateGet {
	t := &MinClockRateGet{}
	t.Init(IDMinClockRateGet, ClockRequest{Clock: clock})
	return t
}

// TurboGet reads the turbo level (0 or 1).
type TurboGet struct{ Codec[SensorRequest, SensorValue] }

func NewTurboGet() *TurboGet {
	t := &TurboGet{}
	t.Init(IDTurboGet, SensorRequest{ID: 0})
	return t
}

// TurboSet sets the turbo level.
type TurboSet struct{ Codec[SensorValue, SensorValue] }

func NewTurboSet(level uint32) *TurboSet {
	t := &TurboSet{}
	t.Init(IDTurboSet, SensorValue{ID: 0, Value: level})
	return t
}

// VoltageGet reads a rail voltage in microvolts.
type VoltageGet struct{ Codec[SensorRequest, SensorValue] }

func NewVoltageGet(rail VoltageID) *VoltageGet {
	t := &VoltageGet{}
	t.Init(IDVoltageGet, SensorRequest{ID: uint32(rail)})
	return t
}

// TemperatureGet reads the SoC temperature in thousandths of a degree C.
type TemperatureGet struct{ Codec[SensorRequest, SensorValue] }

func NewTemperatureGet() *TemperatureGet {
	t := &TemperatureGet{}
	t.Init(IDTemperatureGet, SensorRequest{ID: 0})
	return t
}

// MaxTemperatureGet reads the throttling limit in thousandths of a degree C.
type MaxTemperatureGet struct{ Codec[SensorRequest, SensorValue] }

func NewMaxTemperatureGet() *MaxTemperatureGet {
	t := &MaxTemperatureGet{}
	t.Init(IDMaxTemperatureGet, SensorRequest{ID: 0})
	return t
}

// FramebufferAllocate asks the GPU for a framebuffer. The response base is
// a bus address.
type FramebufferAllocate struct{ Codec[Word, MemoryRegion] }

func NewFramebufferAllocate(alignment uint32) *FramebufferAllocate {
	t := &FramebufferAllocate{}
	t.Init(IDFramebufferAllocate, Word{Value: alignment})
	return t
}

// FramebufferRelease frees the framebuffer.
type FramebufferRelease struct{ Codec[Empty, Empty] }

func NewFramebufferRelease() *FramebufferRelease {
	t := &FramebufferRelease{}
	t.Init(IDFramebufferRelease, Empty{})
	return t
}

// BlankScreen blanks (bit 0 set) or unblanks the display.
type BlankScreen struct{ Codec[Word, Word] }

func NewBlankScreen(on bool) *BlankScreen {
	t := &BlankScreen{}
	var v uint32
	if on {
		v = 1
	}
	t.Init(IDBlankScreen, Word{Value: v})
	return t
}

// PhysicalSizeGet reads the display size in pixels.
type PhysicalSizeGet struct{ Codec[Empty, Dimensions] }

func NewPhysicalSizeGet() *PhysicalSizeGet {
	t := &PhysicalSizeGet{}
	t.Init(IDPhysicalSizeGet, Empty{})
	return t
}

// PhysicalSizeSet sets the display size; the response is what was applied.
type PhysicalSizeSet struct{ Codec[Dimensions, Dimensions] }

func NewPhysicalSizeSet(width, height uint32) *PhysicalSizeSet {
	t := &PhysicalSizeSet{}
	t.Init(IDPhysicalSizeSet, Dimensions{Width: width, Height: height})
	return t
}

// VirtualSizeGet reads the size of the buffer the display scans out of.
type VirtualSizeGet struct{ Codec[Empty, Dimensions] }

func NewVirtualSizeGet() *VirtualSizeGet {
	t := &VirtualSizeGet{}
	t.Init(IDVirtualSizeGet, Empty{})
	return t
}

// VirtualSizeSet sets the virtual buffer size.
type VirtualSizeSet struct{ Codec[Dimensions, Dimensions] }

func NewVirtualSizeSet(width, height uint32) *VirtualSizeSet {
	t := &VirtualSizeSet{}
	t.Init(IDVirtualSizeSet, Dimensions{Width: width, Height: height})
	return t
}

// DepthGet reads the bits per pixel.
type DepthGet struct{ Codec[Empty, Word] }

func NewDepthGet() *DepthGet {
	t := &DepthGet{}
	t.Init(IDDepthGet, Empty{})
	return t
}

// DepthSet sets the bits per pixel.
type DepthSet struct{ Codec[Word, Word] }

func NewDepthSet(bpp uint32) *DepthSet {
	t := &DepthSet{}
	t.Init(IDDepthSet, Word{Value: bpp})
	return t
}

// Pixel orders.
const (
	PixelOrderBGR = 0
	PixelOrderRGB = 1
)

// PixelOrderGet reads the pixel order.
type PixelOrderGet struct{ Codec[Empty, Word] }

func NewPixelOrderGet() *PixelOrderGet {
	t := &PixelOrderGet{}
	t.Init(IDPixelOrderGet, Empty{})
	return t
}

// PixelOrderSet sets the pixel order.
type PixelOrderSet struct{ Codec[Word, Word] }

func NewPixelOrderSet(order uint32) *PixelOrderSet {
	t := &PixelOrderSet{}
	t.Init(IDPixelOrderSet, Word{Value: order})
	return t
}

// PitchGet reads the bytes per framebuffer row.
type PitchGet struct{ Codec[Empty, Word] }

func NewPitchGet() *PitchGet {
	t := &PitchGet{}
	t.Init(IDPitchGet, Empty{})
	return t
}

// VirtualOffsetGet reads the scan-out offset inside the virtual buffer.
type VirtualOffsetGet struct{ Codec[Empty, Offset] }

func NewVirtualOffsetGet() *VirtualOffsetGet {
	t := &VirtualOffsetGet{}
	t.Init(IDVirtualOffsetGet, Empty{})
	return t
}

// VirtualOffsetSet moves the scan-out offset.
type VirtualOffsetSet struct{ Codec[Offset, Offset] }

func NewVirtualOffsetSet(x, y uint32) *VirtualOffsetSet {
	t := &VirtualOffsetSet{}
	t.Init(IDVirtualOffsetSet, Offset{X: x, Y: y})
	return t
}
