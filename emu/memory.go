package emu

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// MemoryError reports an access outside the modeled memory.
type MemoryError struct {
	Addr uint64
	Size uint64
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory access of %d bytes at 0x%X is out of range", e.Size, e.Addr)
}

// Memory is a little-endian byte-addressable memory of a fixed size
// starting at Base, backed by an akita storage.
type Memory struct {
	base    uint64
	size    uint64
	storage *mem.Storage
}

// NewMemory creates a zero-filled memory covering [base, base+size).
func NewMemory(base, size uint64) *Memory {
	return &Memory{
		base:    base,
		size:    size,
		storage: mem.NewStorage(size),
	}
}

// Base returns the lowest address.
func (m *Memory) Base() uint64 {
	return m.base
}

// Size returns the size in bytes.
func (m *Memory) Size() uint64 {
	return m.size
}

func (m *Memory) offset(addr, n uint64) (uint64, error) {
	if addr < m.base || addr-m.base > m.size || n > m.size-(addr-m.base) {
		return 0, &MemoryError{Addr: addr, Size: n}
	}
	return addr - m.base, nil
}

// Read returns n bytes starting at addr.
func (m *Memory) Read(addr, n uint64) ([]byte, error) {
	off, err := m.offset(addr, n)
	if err != nil {
		return nil, err
	}
	return m.storage.Read(off, n)
}

// Write stores data starting at addr.
func (m *Memory) Write(addr uint64, data []byte) error {
	off, err := m.offset(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	return m.storage.Write(off, data)
}

// LoadImage copies a program image into memory at addr.
func (m *Memory) LoadImage(addr uint64, image []byte) error {
	if err := m.Write(addr, image); err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	return nil
}

// ReadUint reads a little-endian value of size 1, 2, 4 or 8 bytes.
func (m *Memory) ReadUint(addr uint64, size int) (uint64, error) {
	data, err := m.Read(addr, uint64(size))
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(data[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(data)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(data)), nil
	case 8:
		return binary.LittleEndian.Uint64(data), nil
	}
	return 0, fmt.Errorf("unsupported access size %d", size)
}

// WriteUint writes the low size bytes of value, little-endian.
func (m *Memory) WriteUint(addr uint64, size int, value uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	switch size {
	case 1, 2, 4, 8:
		return m.Write(addr, buf[:size])
	}
	return fmt.Errorf("unsupported access size %d", size)
}

// Read32 reads a 32-bit word, as instruction fetch does.
func (m *Memory) Read32(addr uint64) (uint32, error) {
	v, err := m.ReadUint(addr, 4)
	return uint32(v), err
}

// Read64 reads a 64-bit doubleword.
func (m *Memory) Read64(addr uint64) (uint64, error) {
	return m.ReadUint(addr, 8)
}

// Write64 writes a 64-bit doubleword.
func (m *Memory) Write64(addr uint64, value uint64) error {
	return m.WriteUint(addr, 8, value)
}
