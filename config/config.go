// Package config holds the build-time configuration of test programs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/xyproto/env/v2"
)

// HaltIdiom selects the instruction pattern that marks the terminal state.
type HaltIdiom string

// Halt idioms.
const (
	// HaltSelfLoop is a jump to itself: halt: j halt.
	HaltSelfLoop HaltIdiom = "self-loop"
	// HaltNopLoop spins over a nop: halt: nop; j halt.
	HaltNopLoop HaltIdiom = "nop-loop"
)

// Environment variables that override file and default values.
const (
	EnvLoadAddress    = "RVHAZARD_LOAD_ADDRESS"
	EnvMemorySize     = "RVHAZARD_MEMORY_SIZE"
	EnvStackTop       = "RVHAZARD_STACK_TOP"
	EnvResultRegister = "RVHAZARD_RESULT_REGISTER"
	EnvHaltIdiom      = "RVHAZARD_HALT_IDIOM"
)

// stackPointer is the register the boot sequence initializes (x2).
const stackPointer = 2

// Config describes the memory map and signaling conventions shared by every
// program in a test suite.
type Config struct {
	// LoadAddress is where the first instruction of a program is placed.
	// Default: 0x0.
	LoadAddress uint64 `json:"load_address"`

	// MemorySize is the size of the memory the program runs in, starting
	// at LoadAddress. Default: 8 KiB.
	MemorySize uint64 `json:"memory_size"`

	// StackTop is the initial stack pointer. Default: 0x2000, the end of
	// the default memory.
	StackTop uint64 `json:"stack_top"`

	// ResultRegister is the register a program writes its status to before
	// halting. Default: 31.
	ResultRegister uint8 `json:"result_register"`

	// PassCode is the status value that means PASS. Default: 0x7FF.
	PassCode uint64 `json:"pass_code"`

	// HaltIdiom selects the terminal instruction pattern.
	// Default: self-loop.
	HaltIdiom HaltIdiom `json:"halt_idiom"`

	// EntryLabel is the label the boot sequence jumps to. Default: main.
	EntryLabel string `json:"entry_label"`

	// MaxSteps bounds execution on the golden model. Default: 100000.
	MaxSteps uint64 `json:"max_steps"`
}

// DefaultConfig returns the configuration of the reference test bench:
// 8 KiB of memory at address 0 and the stack at its top.
func DefaultConfig() *Config {
	return &Config{
		LoadAddress:    0x0,
		MemorySize:     0x2000,
		StackTop:       0x2000,
		ResultRegister: 31,
		PassCode:       0x7FF,
		HaltIdiom:      HaltSelfLoop,
		EntryLabel:     "main",
		MaxSteps:       100000,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from RVHAZARD_* environment variables. Numeric
// values accept any strconv base prefix (0x, 0o, 0b). The environment is
// re-read on every call.
func (c *Config) ApplyEnv() error {
	env.Load()

	for _, v := range []struct {
		name string
		dst  *uint64
	}{
		{EnvLoadAddress, &c.LoadAddress},
		{EnvMemorySize, &c.MemorySize},
		{EnvStackTop, &c.StackTop},
	} {
		s := env.Str(v.name)
		if s == "" {
			continue
		}
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", v.name, err)
		}
		*v.dst = n
	}

	if s := env.Str(EnvResultRegister); s != "" {
		n, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvResultRegister, err)
		}
		c.ResultRegister = uint8(n)
	}

	if s := env.Str(EnvHaltIdiom); s != "" {
		c.HaltIdiom = HaltIdiom(s)
	}

	return nil
}

// Validate checks that the configuration describes a usable memory map and
// signaling convention.
func (c *Config) Validate() error {
	if c.MemorySize == 0 {
		return fmt.Errorf("memory_size must be > 0")
	}
	if c.LoadAddress+c.MemorySize < c.LoadAddress {
		return fmt.Errorf("memory region overflows the address space")
	}
	if c.LoadAddress%4 != 0 {
		return fmt.Errorf("load_address must be 4-byte aligned")
	}
	if c.StackTop <= c.LoadAddress || c.StackTop > c.LoadAddress+c.MemorySize {
		return fmt.Errorf("stack_top 0x%X must be inside (0x%X, 0x%X]",
			c.StackTop, c.LoadAddress, c.LoadAddress+c.MemorySize)
	}
	if c.StackTop%16 != 0 {
		return fmt.Errorf("stack_top must be 16-byte aligned")
	}
	if c.ResultRegister == 0 || c.ResultRegister > 31 {
		return fmt.Errorf("result_register must be in [1, 31]")
	}
	if c.ResultRegister == stackPointer {
		return fmt.Errorf("result_register must not be the stack pointer")
	}
	if c.HaltIdiom != HaltSelfLoop && c.HaltIdiom != HaltNopLoop {
		return fmt.Errorf("unknown halt_idiom %q", c.HaltIdiom)
	}
	if c.EntryLabel == "" {
		return fmt.Errorf("entry_label must not be empty")
	}
	if c.MaxSteps == 0 {
		return fmt.Errorf("max_steps must be > 0")
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
