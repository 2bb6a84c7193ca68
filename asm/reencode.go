package asm

import (
	"fmt"

	"github.com/sarchlab/rvhazard/insts"
)

// Reencode decodes every word and encodes it again. For any input the
// result is identical to the input; a difference is reported as an error.
func Reencode(words []uint32) ([]uint32, error) {
	decoder := insts.NewDecoder()
	encoder := insts.NewEncoder()

	out := make([]uint32, len(words))
	for i, word := range words {
		inst := decoder.Decode(word)

		again, err := encoder.Encode(*inst)
		if err != nil {
			return nil, fmt.Errorf("word %d (0x%08x): %w", i, word, err)
		}
		if again != word {
			return nil, fmt.Errorf("word %d: 0x%08x re-encodes as 0x%08x", i, word, again)
		}
		out[i] = again
	}
	return out, nil
}

// Disassemble decodes words placed at base into a listing-ready image.
// Branch and jump offsets stay numeric since labels are not recoverable.
func Disassemble(base uint64, words []uint32) *Image {
	decoder := insts.NewDecoder()

	img := &Image{
		Base:    base,
		Words:   append([]uint32(nil), words...),
		Symbols: map[string]uint64{},
	}
	for i, word := range words {
		img.Lines = append(img.Lines, Line{
			Index: i,
			Addr:  base + uint64(i)*InstSize,
			Word:  word,
			Inst:  *decoder.Decode(word),
		})
	}
	return img
}
