// Package config loads the mboxctl configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the config file when no --config flag is given.
const EnvConfig = "VCMAILBOX_CONFIG"

// Backends
const (
	BackendSim  = "sim"
	BackendMMIO = "mmio"
	BackendVCIO = "vcio"
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	// Backend is one of sim, mmio or vcio.
	Backend string `yaml:"backend"`

	// PeripheralBase is the ARM physical address of the peripheral block
	// (0xFE000000 on the Pi 4, 0x3F000000 on the Pi 2/3). mmio only.
	PeripheralBase uint32 `yaml:"peripheral_base"`

	// UncachedAlias is ORed into envelope addresses handed to the firmware.
	UncachedAlias uint32 `yaml:"uncached_alias"`

	Arena ArenaConfig `yaml:"arena"`

	// Device is the firmware driver node. vcio only.
	Device string `yaml:"device"`

	// Trace, when set, appends a CBOR record of every exchange to this file.
	Trace string `yaml:"trace"`

	LogLevel string `yaml:"log_level"`

	Sim SimConfig `yaml:"sim"`
}

// ArenaConfig places the DMA arena envelopes are built in.
type ArenaConfig struct {
	Size int `yaml:"size"`
	// BusBase is the bus address of the first byte for heap arenas.
	BusBase uint32 `yaml:"bus_base"`
	// PhysBase is the reserved physical RAM mapped through /dev/mem. mmio only.
	PhysBase uint32 `yaml:"phys_base"`
}

type SimConfig struct {
	// Profile is a board profile YAML; empty means the built-in Pi 4.
	Profile string `yaml:"profile"`
}

// Default is a simulator setup that needs no hardware.
func Default() *Config {
	return &Config{
		Backend:        BackendSim,
		PeripheralBase: 0xFE000000,
		UncachedAlias:  0xC0000000,
		Arena: ArenaConfig{
			Size:    16 << 20,
			BusBase: 0x00100000,
		},
		Device:   "/dev/vcio",
		LogLevel: "info",
	}
}

// Load reads path over Default. An empty path falls back to EnvConfig,
// and to Default alone when that is unset too.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSim, BackendVCIO:
	case BackendMMIO:
		if c.PeripheralBase == 0 {
			return fmt.Errorf("%w: mmio needs peripheral_base", ErrInvalid)
		}
		if c.Arena.PhysBase == 0 || c.Arena.PhysBase%16 != 0 {
			return fmt.Errorf("%w: mmio needs a 16-byte aligned arena.phys_base, got 0x%08x", ErrInvalid, c.Arena.PhysBase)
		}
		if c.Arena.PhysBase&c.UncachedAlias != 0 {
			return fmt.Errorf("%w: arena.phys_base 0x%08x overlaps uncached_alias 0x%08x", ErrInvalid, c.Arena.PhysBase, c.UncachedAlias)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	if c.Arena.Size <= 0 || c.Arena.Size%16 != 0 {
		return fmt.Errorf("%w: arena.size %d", ErrInvalid, c.Arena.Size)
	}
	if c.Arena.BusBase%16 != 0 {
		return fmt.Errorf("%w: arena.bus_base 0x%08x not 16-byte aligned", ErrInvalid, c.Arena.BusBase)
	}
	if c.Backend == BackendVCIO && c.Device == "" {
		return fmt.Errorf("%w: vcio needs device", ErrInvalid)
	}
	return nil
}
