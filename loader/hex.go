package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseHex reads a $readmemh file of 32-bit words. The first word is
// placed at base. "@addr" moves to word address addr (counted in words
// from base) and "//" starts a comment.
func ParseHex(r io.Reader, base uint64) (*Image, error) {
	img := &Image{Entry: base}

	var cur *Segment
	next := base

	startSegment := func(addr uint64) {
		img.Segments = append(img.Segments, Segment{
			VirtAddr: addr,
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		})
		cur = &img.Segments[len(img.Segments)-1]
		next = addr
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}

		for _, tok := range strings.Fields(line) {
			if strings.HasPrefix(tok, "@") {
				wordAddr, err := strconv.ParseUint(tok[1:], 16, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad address %q", lineNo, tok)
				}
				startSegment(base + wordAddr*4)
				continue
			}

			word, err := strconv.ParseUint(strings.ReplaceAll(tok, "_", ""), 16, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad word %q", lineNo, tok)
			}
			if cur == nil {
				startSegment(next)
			}
			cur.Data = binary.LittleEndian.AppendUint32(cur.Data, uint32(word))
			cur.MemSize += 4
			next += 4
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hex: %w", err)
	}

	segs := img.Segments[:0]
	for _, s := range img.Segments {
		if s.MemSize > 0 {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("hex file has no words")
	}
	img.Segments = segs
	return img, nil
}

// LoadHex reads a $readmemh file.
func LoadHex(path string, base uint64) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hex file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseHex(f, base)
}
