// Package asm assembles ordered instruction sequences into program images.
//
// A sequence is a list of Items: instructions interleaved with labels.
// Assembly runs in two passes: the first assigns an address to every
// instruction and label, the second resolves branch and jump targets into
// PC-relative offsets and encodes each instruction. Nothing is patched in
// place after the fact.
package asm

import "github.com/sarchlab/rvhazard/insts"

// Item is one element of an instruction sequence: either a label (a named
// program point with no runtime effect) or an instruction.
type Item struct {
	// Label is set for label items.
	Label string

	// Inst is the instruction for instruction items.
	Inst insts.Instruction

	// Note records author intent, e.g. the hazard this instruction exercises.
	// It is carried into the listing.
	Note string
}

// L returns a label item.
func L(name string) Item {
	return Item{Label: name}
}

// In returns an instruction item.
func In(inst insts.Instruction) Item {
	return Item{Inst: inst}
}

// Noted returns an instruction item annotated with author intent.
func Noted(inst insts.Instruction, note string) Item {
	return Item{Inst: inst, Note: note}
}

// IsLabel reports whether the item is a label.
func (it Item) IsLabel() bool {
	return it.Label != ""
}

// Items wraps instructions into items, attaching note to the first one.
func Items(note string, list ...insts.Instruction) []Item {
	items := make([]Item, len(list))
	for i, inst := range list {
		items[i] = In(inst)
	}
	if len(items) > 0 {
		items[0].Note = note
	}
	return items
}

// Instructions returns the instructions of a sequence, dropping labels.
func Instructions(items []Item) []insts.Instruction {
	out := make([]insts.Instruction, 0, len(items))
	for _, it := range items {
		if !it.IsLabel() {
			out = append(out, it.Inst)
		}
	}
	return out
}
