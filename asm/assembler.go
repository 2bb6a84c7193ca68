package asm

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvhazard/insts"
)

// InstSize is the size of every instruction in bytes.
const InstSize = 4

// Assembler lays out a sequence at a base address and encodes it.
type Assembler struct {
	base    uint64
	encoder *insts.Encoder
}

// NewAssembler creates an assembler that places the first instruction at
// base.
func NewAssembler(base uint64) *Assembler {
	return &Assembler{
		base:    base,
		encoder: insts.NewEncoder(),
	}
}

// Assemble encodes items into an image.
//
// Pass 1 assigns addresses and collects labels; pass 2 resolves branch and
// jump targets into PC-relative offsets and encodes each instruction. Any
// error aborts assembly; no partial image is returned.
func (a *Assembler) Assemble(items []Item) (*Image, error) {
	symbols, err := a.layout(items)
	if err != nil {
		return nil, err
	}

	img := &Image{
		Base:    a.base,
		Symbols: symbols,
	}

	pc := a.base
	var labels []string

	for i, it := range items {
		if it.IsLabel() {
			labels = append(labels, it.Label)
			continue
		}

		inst, err := a.resolve(i, it.Inst, pc, symbols)
		if err != nil {
			return nil, err
		}

		encodable := inst
		encodable.Target = ""

		word, err := a.encoder.Encode(encodable)
		if err != nil {
			var encErr *insts.EncodingError
			if errors.As(err, &encErr) {
				return nil, encErr.AtIndex(i)
			}
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		img.Words = append(img.Words, word)
		img.Lines = append(img.Lines, Line{
			Index:  i,
			Addr:   pc,
			Word:   word,
			Inst:   inst,
			Labels: labels,
			Note:   it.Note,
		})

		labels = nil
		pc += InstSize
	}

	return img, nil
}

// layout is pass 1: it assigns each label the address of the instruction
// that follows it.
func (a *Assembler) layout(items []Item) (map[string]uint64, error) {
	symbols := make(map[string]uint64)
	addr := a.base

	for i, it := range items {
		if !it.IsLabel() {
			addr += InstSize
			continue
		}

		if _, dup := symbols[it.Label]; dup {
			return nil, &SequenceError{Kind: DuplicateLabel, Index: i, Label: it.Label}
		}
		symbols[it.Label] = addr
	}

	return symbols, nil
}

// resolve is pass 2's target lookup. Only branches and jumps take labels;
// a target on any other instruction is left for the encoder to reject.
func (a *Assembler) resolve(
	index int,
	inst insts.Instruction,
	pc uint64,
	symbols map[string]uint64,
) (insts.Instruction, error) {
	if inst.Target == "" {
		return inst, nil
	}

	format := inst.Format()
	if format != insts.FormatB && format != insts.FormatJ {
		return inst, nil
	}

	addr, ok := symbols[inst.Target]
	if !ok {
		return inst, &insts.EncodingError{
			Kind:  insts.UnresolvedLabel,
			Index: index,
			Op:    inst.Op,
			Label: inst.Target,
		}
	}

	inst.Imm = int64(addr) - int64(pc)
	return inst, nil
}

// Assemble is a convenience wrapper around NewAssembler(base).Assemble.
func Assemble(base uint64, items []Item) (*Image, error) {
	return NewAssembler(base).Assemble(items)
}
