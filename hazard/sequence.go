package hazard

import (
	"sort"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/insts"
)

// Expectation is the value a register must hold once the sequence reaches
// its terminal instruction.
type Expectation struct {
	Reg      insts.Reg
	Value    uint64
	Kind     ExpectKind
	Category Category
	Note     string
}

// Sequence is a validated hazard test: the instructions that run after the
// boot preamble jumps to Entry, and the expected final register state.
type Sequence struct {
	Name        string
	Description string
	Category    Category

	// Entry is the label of the first item.
	Entry string

	Items  []asm.Item
	Expect map[insts.Reg]Expectation

	// Terminal is the item index of the terminal instruction.
	Terminal int

	// Scratch lists the data addresses the sequence stores to.
	Scratch []uint64
}

// Expectations returns the expectations ordered by register.
func (s *Sequence) Expectations() []Expectation {
	out := make([]Expectation, 0, len(s.Expect))
	for _, e := range s.Expect {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reg < out[j].Reg })
	return out
}

// ExpectationsOf returns the expectations of one kind ordered by register.
func (s *Sequence) ExpectationsOf(kind ExpectKind) []Expectation {
	var out []Expectation
	for _, e := range s.Expectations() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Values returns the expected register values as a plain map.
func (s *Sequence) Values() map[insts.Reg]uint64 {
	out := make(map[insts.Reg]uint64, len(s.Expect))
	for r, e := range s.Expect {
		out[r] = e.Value
	}
	return out
}

// Instructions returns the sequence's instructions without labels.
func (s *Sequence) Instructions() []insts.Instruction {
	return asm.Instructions(s.Items)
}
