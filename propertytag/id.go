package propertytag

import "fmt"

// ID selects the firmware operation of a tag.
type ID uint32

// Property tag IDs (Raspberry Pi firmware mailbox property interface)
const (
	IDEnd ID = 0x00000000

	IDFirmwareRevisionGet ID = 0x00000001

	IDBoardModelGet      ID = 0x00010001
	IDBoardRevisionGet   ID = 0x00010002
	IDBoardMACAddressGet ID = 0x00010003
	IDBoardSerialGet     ID = 0x00010004
	IDArmMemoryGet       ID = 0x00010005
	IDVcMemoryGet        ID = 0x00010006

	IDPowerStateGet ID = 0x00020001
	IDTimingGet     ID = 0x00020002
	IDPowerStateSet ID = 0x00028001

	IDClockStateGet     ID = 0x00030001
	IDClockRateGet      ID = 0x00030002
	IDVoltageGet        ID = 0x00030003
	IDMaxClockRateGet   ID = 0x00030004
	IDTemperatureGet    ID = 0x00030006
	IDMinClockRateGet   ID = 0x00030007
	IDTurboGet          ID = 0x00030009
	IDMaxTemperatureGet ID = 0x0003000A
	IDClockStateSet     ID = 0x00038001
	IDClockRateSet      ID = 0x00038002
	IDTurboSet          ID = 0x00038009

	IDFramebufferAllocate ID = 0x00040001
	IDBlankScreen         ID = 0x00040002
	IDPhysicalSizeGet     ID = 0x00040003
	IDVirtualSizeGet      ID = 0x00040004
	IDDepthGet            ID = 0x00040005
	IDPixelOrderGet       ID = 0x00040006
	IDPitchGet            ID = 0x00040008
	IDVirtualOffsetGet    ID = 0x00040009
	IDFramebufferRelease  ID = 0x00048001
	IDPhysicalSizeSet     ID = 0x00048003
	IDVirtualSizeSet      ID = 0x00048004
	IDDepthSet            ID = 0x00048005
	IDPixelOrderSet       ID = 0x00048006
	IDVirtualOffsetSet    ID = 0x00048009
)

var idNames = map[ID]string{
	IDEnd:                 "End",
	IDFirmwareRevisionGet: "FirmwareRevisionGet",
	IDBoardModelGet:       "BoardModelGet",
	IDBoardRevisionGet:    "BoardRevisionGet",
	IDBoardMACAddressGet:  "BoardMACAddressGet",
	IDBoardSerialGet:      "BoardSerialGet",
	IDArmMemoryGet:        "ArmMemoryGet",
	IDVcMemoryGet:         "VcMemoryGet",
	IDPowerStateGet:       "PowerStateGet",
	IDTimingGet:           "TimingGet",
	IDPowerStateSet:       "PowerStateSet",
	IDClockStateGet:       "ClockStateGet",
	IDClockRateGet:        "ClockRateGet",
	IDVoltageGet:          "VoltageGet",
	IDMaxClockRateGet:     "MaxClockRateGet",
	IDTemperatureGet:      "TemperatureGet",
	IDMinClockRateGet:     "MinClockRateGet",
	IDTurboGet:            "TurboGet",
	IDMaxTemperatureGet:   "MaxTemperatureGet",
	IDClockStateSet:       "ClockStateSet",
	IDClockRateSet:        "ClockRateSet",
	IDTurboSet:            "TurboSet",
	IDFramebufferAllocate: "FramebufferAllocate",
	IDBlankScreen:         "BlankScreen",
	IDPhysicalSizeGet:     "PhysicalSizeGet",
	IDVirtualSizeGet:      "VirtualSizeGet",
	IDDepthGet:            "DepthGet",
	IDPixelOrderGet:       "PixelOrderGet",
	IDPitchGet:            "PitchGet",
	IDVirtualOffsetGet:    "VirtualOffsetGet",
	IDFramebufferRelease:  "FramebufferRelease",
	IDPhysicalSizeSet:     "PhysicalSizeSet",
	IDVirtualSizeSet:      "VirtualSizeSet",
	IDDepthSet:            "DepthSet",
	IDPixelOrderSet:       "PixelOrderSet",
	IDVirtualOffsetSet:    "VirtualOffsetSet",
}

func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return fmt.Sprintf("ID(0x%08x)", uint32(id))
}

// ClockID names a clock known to the firmware.
type ClockID uint32

const (
	ClockEmmc  ClockID = 0x1
	ClockUart  ClockID = 0x2
	ClockArm   ClockID = 0x3
	ClockCore  ClockID = 0x4
	ClockV3D   ClockID = 0x5
	ClockH264  ClockID = 0x6
	ClockIsp   ClockID = 0x7
	ClockSdram ClockID = 0x8
	ClockPixel ClockID = 0x9
	ClockPwm   ClockID = 0xa
	ClockEmmc2 ClockID = 0xc
)

var clockNames = map[ClockID]string{
	ClockEmmc:  "emmc",
	ClockUart:  "uart",
	ClockArm:   "arm",
	ClockCore:  "core",
	ClockV3D:   "v3d",
	ClockH264:  "h264",
	ClockIsp:   "isp",
	ClockSdram: "sdram",
	ClockPixel: "pixel",
	ClockPwm:   "pwm",
	ClockEmmc2: "emmc2",
}

func (c ClockID) String() string {
	if name, ok := clockNames[c]; ok {
		return name
	}
	return fmt.Sprintf("clock(%d)", uint32(c))
}

// ParseClockID accepts the lower-case names printed by String.
func ParseClockID(name string) (ClockID, error) {
	for id, n := range clockNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("propertytag: unknown clock %q", name)
}

// Clocks lists every named clock in id order.
func Clocks() []ClockID {
	return []ClockID{ClockEmmc, ClockUart, ClockArm, ClockCore, ClockV3D, ClockH264,
		ClockIsp, ClockSdram, ClockPixel, ClockPwm, ClockEmmc2}
}

// DeviceID names a power domain.
type DeviceID uint32

const (
	DeviceSdCard DeviceID = 0x0
	DeviceUart0  DeviceID = 0x1
	DeviceUart1  DeviceID = 0x2
	DeviceUsbHcd DeviceID = 0x3
	DeviceI2C0   DeviceID = 0x4
	DeviceI2C1   DeviceID = 0x5
	DeviceI2C2   DeviceID = 0x6
	DeviceSpi    DeviceID = 0x7
	DeviceCcp2Tx DeviceID = 0x8
)

var deviceNames = map[DeviceID]string{
	DeviceSdCard: "sdcard",
	DeviceUart0:  "uart0",
	DeviceUart1:  "uart1",
	DeviceUsbHcd: "usbhcd",
	DeviceI2C0:   "i2c0",
	DeviceI2C1:   "i2c1",
	DeviceI2C2:   "i2c2",
	DeviceSpi:    "spi",
	DeviceCcp2Tx: "ccp2tx",
}

func (d DeviceID) String() string {
	if name, ok := deviceNames[d]; ok {
		return name
	}
	return fmt.Sprintf("device(%d)", uint32(d))
}

// ParseDeviceID accepts the lower-case names printed by String.
func ParseDeviceID(name string) (DeviceID, error) {
	for id, n := range deviceNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("propertytag: unknown device %q", name)
}

// VoltageID names a supply rail.
type VoltageID uint32

const (
	VoltageCore   VoltageID = 0x1
	VoltageSdramC VoltageID = 0x2
	VoltageSdramP VoltageID = 0x3
	VoltageSdramI VoltageID = 0x4
)

var voltageNames = map[VoltageID]string{
	VoltageCore:   "core",
	VoltageSdramC: "sdram_c",
	VoltageSdramP: "sdram_p",
	VoltageSdramI: "sdram_i",
}

func (v VoltageID) String() string {
	if name, ok := voltageNames[v]; ok {
		return name
	}
	return fmt.Sprintf("voltage(%d)", uint32(v))
}

func ParseVoltageID(name string) (VoltageID, error) {
	for id, n := range voltageNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("propertytag: unknown voltage %q", name)
}

// Power and clock state bits.
const (
	StateOn      = 1 << 0 // on request and response
	StateWait    = 1 << 1 // power set request: wait for the domain to settle
	StateMissing = 1 << 1 // on response: no such clock or device
)
