package vcsim

import (
	_ "embed"
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"vcmailbox/propertytag"
)

//go:embed pi4.yaml
var pi4Profile []byte

// Profile describes the board the simulator answers for.
type Profile struct {
	FirmwareRevision uint32                   `yaml:"firmware_revision"`
	BoardModel       uint32                   `yaml:"board_model"`
	BoardRevision    uint32                   `yaml:"board_revision"`
	Serial           uint64                   `yaml:"serial"`
	MAC              string                   `yaml:"mac"`
	ArmMemory        Region                   `yaml:"arm_memory"`
	VcMemory         Region                   `yaml:"vc_memory"`
	Temperature      uint32                   `yaml:"temperature"`
	MaxTemperature   uint32                   `yaml:"max_temperature"`
	Turbo            uint32                   `yaml:"turbo"`
	Voltages         map[string]uint32        `yaml:"voltages"`
	Clocks           map[string]ClockProfile  `yaml:"clocks"`
	Devices          map[string]DeviceProfile `yaml:"devices"`
	Display          Display                  `yaml:"display"`
}

type Region struct {
	Base uint32 `yaml:"base"`
	Size uint32 `yaml:"size"`
}

type ClockProfile struct {
	Rate uint32 `yaml:"rate"`
	Min  uint32 `yaml:"min"`
	Max  uint32 `yaml:"max"`
	On   bool   `yaml:"on"`
}

type DeviceProfile struct {
	On       bool   `yaml:"on"`
	TimingUs uint32 `yaml:"timing_us"`
}

type Display struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
	Depth  uint32 `yaml:"depth"`
}

// DefaultProfile is a Raspberry Pi 4 Model B.
func DefaultProfile() Profile {
	p, err := ParseProfile(pi4Profile)
	if err != nil {
		panic(fmt.Sprintf("vcsim: built-in profile: %v", err))
	}
	return p
}

// LoadProfile reads a YAML board profile. Fields it leaves out keep the
// values of DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("vcsim: read profile: %w", err)
	}
	p := DefaultProfile()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("vcsim: parse profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("vcsim: profile %s: %w", path, err)
	}
	return p, nil
}

// ParseProfile decodes a complete profile from YAML.
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, err
	}
	return p, p.Validate()
}

// Validate checks that every name in the profile is one the firmware knows.
func (p *Profile) Validate() error {
	if _, err := net.ParseMAC(p.MAC); err != nil {
		return fmt.Errorf("mac: %w", err)
	}
	for name, c := range p.Clocks {
		if _, err := propertytag.ParseClockID(name); err != nil {
			return err
		}
		if c.Min > c.Max {
			return fmt.Errorf("clock %s: min %d above max %d", name, c.Min, c.Max)
		}
	}
	for name := range p.Devices {
		if _, err := propertytag.ParseDeviceID(name); err != nil {
			return err
		}
	}
	for name := range p.Voltages {
		if _, err := propertytag.ParseVoltageID(name); err != nil {
			return err
		}
	}
	switch p.Display.Depth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("display depth %d", p.Display.Depth)
	}
	return nil
}

func (p *Profile) mac() [6]byte {
	var out [6]byte
	hw, _ := net.ParseMAC(p.MAC)
	copy(out[:], hw)
	return out
}
