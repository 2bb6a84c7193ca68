package loader

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sarchlab/rvhazard/emu"
)

// Image is a loaded program.
type Image struct {
	// Entry is the address execution starts at.
	Entry    uint64
	Segments []Segment
}

// Bounds returns the lowest and one-past-highest address covered by the
// segments.
func (img *Image) Bounds() (lo, hi uint64) {
	for i, s := range img.Segments {
		if i == 0 || s.VirtAddr < lo {
			lo = s.VirtAddr
		}
		if s.End() > hi {
			hi = s.End()
		}
	}
	return lo, hi
}

// Flatten lays every segment out in one contiguous buffer starting at the
// lowest segment address. Gaps and BSS are zero.
func (img *Image) Flatten() (base uint64, data []byte, err error) {
	lo, hi := img.Bounds()

	segs := append([]Segment(nil), img.Segments...)
	sort.Slice(segs, func(i, j int) bool { return segs[i].VirtAddr < segs[j].VirtAddr })
	for i := 1; i < len(segs); i++ {
		if segs[i].VirtAddr < segs[i-1].End() {
			return 0, nil, fmt.Errorf("segments at 0x%x and 0x%x overlap",
				segs[i-1].VirtAddr, segs[i].VirtAddr)
		}
	}

	data = make([]byte, hi-lo)
	for _, s := range segs {
		copy(data[s.VirtAddr-lo:], s.Data)
	}
	return lo, data, nil
}

// Words returns the flattened image as 32-bit little-endian words. A
// trailing partial word is zero-padded.
func (img *Image) Words() (base uint64, words []uint32, err error) {
	base, data, err := img.Flatten()
	if err != nil {
		return 0, nil, err
	}

	for len(data)%4 != 0 {
		data = append(data, 0)
	}
	words = make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return base, words, nil
}

// LoadInto copies every segment into m.
func (img *Image) LoadInto(m *emu.Memory) error {
	for _, s := range img.Segments {
		buf := make([]byte, s.MemSize)
		copy(buf, s.Data)
		if err := m.LoadImage(s.VirtAddr, buf); err != nil {
			return fmt.Errorf("failed to load segment at 0x%x: %w", s.VirtAddr, err)
		}
	}
	return nil
}

// LoadBinary reads a raw little-endian image placed at base. Execution
// starts at base.
func LoadBinary(path string, base uint64) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read binary: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("binary %s is empty", path)
	}

	return &Image{
		Entry: base,
		Segments: []Segment{{
			VirtAddr: base,
			Data:     data,
			MemSize:  uint64(len(data)),
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}, nil
}

// Load picks a loader by file extension: .hex for $readmemh, .elf for ELF
// and anything else as a raw binary. base is ignored for ELF files.
func Load(path string, base uint64) (*Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex":
		return LoadHex(path, base)
	case ".elf":
		return LoadELF(path)
	default:
		return LoadBinary(path, base)
	}
}
