package asm

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sarchlab/rvhazard/insts"
)

// Line is one assembled instruction with its provenance.
type Line struct {
	// Index is the item index the instruction came from.
	Index int
	Addr  uint64
	Word  uint32

	// Inst is the instruction with its target resolved into Imm. Target
	// is kept for the listing.
	Inst insts.Instruction

	// Labels are the labels that name Addr.
	Labels []string
	Note   string
}

// Image is an assembled program: a linear run of instruction words starting
// at Base, entry point first.
type Image struct {
	Base    uint64
	Words   []uint32
	Lines   []Line
	Symbols map[string]uint64
}

// Size returns the image size in bytes.
func (img *Image) Size() uint64 {
	return uint64(len(img.Words)) * InstSize
}

// Symbol returns the address of a label.
func (img *Image) Symbol(name string) (uint64, bool) {
	addr, ok := img.Symbols[name]
	return addr, ok
}

// LineAt returns the line at addr.
func (img *Image) LineAt(addr uint64) (Line, bool) {
	if addr < img.Base || (addr-img.Base)%InstSize != 0 {
		return Line{}, false
	}
	i := (addr - img.Base) / InstSize
	if i >= uint64(len(img.Lines)) {
		return Line{}, false
	}
	return img.Lines[i], true
}

// Bytes returns the image as little-endian bytes.
func (img *Image) Bytes() []byte {
	buf := make([]byte, len(img.Words)*InstSize)
	for i, w := range img.Words {
		binary.LittleEndian.PutUint32(buf[i*InstSize:], w)
	}
	return buf
}

// WriteBinary writes the raw little-endian image.
func (img *Image) WriteBinary(w io.Writer) error {
	_, err := w.Write(img.Bytes())
	return err
}

// WriteHex writes the image in $readmemh format, one 32-bit word per line.
// The first line is the word at Base.
func (img *Image) WriteHex(w io.Writer) error {
	for _, word := range img.Words {
		if _, err := fmt.Fprintf(w, "%08x\n", word); err != nil {
			return err
		}
	}
	return nil
}

// WriteListing writes a human-readable listing: address, word, assembler
// text and author notes, with labels on their own lines.
func (img *Image) WriteListing(w io.Writer) error {
	var sb strings.Builder

	for _, line := range img.Lines {
		for _, label := range line.Labels {
			fmt.Fprintf(&sb, "%18s%s:\n", "", label)
		}

		text := line.Inst.String()
		if line.Note != "" {
			fmt.Fprintf(&sb, "%08x  %08x    %-34s # %s\n", line.Addr, line.Word, text, line.Note)
		} else {
			fmt.Fprintf(&sb, "%08x  %08x    %s\n", line.Addr, line.Word, text)
		}
	}

	end := img.Base + img.Size()
	for _, name := range img.sortedSymbols() {
		if img.Symbols[name] == end {
			fmt.Fprintf(&sb, "%18s%s:\n", "", name)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (img *Image) sortedSymbols() []string {
	names := make([]string, 0, len(img.Symbols))
	for name := range img.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
