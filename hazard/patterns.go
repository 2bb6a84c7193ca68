package hazard

import (
	"fmt"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/config"
	"github.com/sarchlab/rvhazard/insts"
)

// LoadUseSpec describes a load-use test: Value is stored at Addr, loaded
// back into Loaded and consumed by the very next instruction, which adds
// the base address into Result.
type LoadUseSpec struct {
	Name  string
	Addr  uint64
	Value int64

	// Registers. Zero values select x1 (base), x4 (value), x2 (loaded)
	// and x3 (result).
	Base, Seed, Loaded, Result insts.Reg
}

func (s *LoadUseSpec) defaults() {
	if s.Base == 0 {
		s.Base = 1
	}
	if s.Seed == 0 {
		s.Seed = 4
	}
	if s.Loaded == 0 {
		s.Loaded = 2
	}
	if s.Result == 0 {
		s.Result = 3
	}
}

// NewLoadUse builds a load-use sequence. A core that fails to stall the
// consumer reads a stale Loaded register and produces a wrong Result.
func NewLoadUse(cfg *config.Config, spec LoadUseSpec) (*Sequence, error) {
	spec.defaults()
	if spec.Addr%8 != 0 {
		return nil, fmt.Errorf("load-use %q: address 0x%x is not 8-byte aligned", spec.Name, spec.Addr)
	}

	b := NewBuilder(cfg, spec.Name, LoadUse).
		Describe(fmt.Sprintf("ld %s from 0x%x, then use it immediately", spec.Loaded, spec.Addr)).
		Scratch(spec.Addr).
		LI(spec.Base, int64(spec.Addr)).
		LI(spec.Seed, spec.Value).
		Inst(insts.Store(insts.OpSD, spec.Seed, spec.Base, 0)).
		Note("seed memory").
		Inst(insts.Load(insts.OpLD, spec.Loaded, spec.Base, 0)).
		Note("producer").
		Inst(insts.R(insts.OpADD, spec.Result, spec.Loaded, spec.Base)).
		Note("consumer: needs the loaded value one cycle later").
		Expect(spec.Result, uint64(spec.Value)+spec.Addr, "loaded value + base").
		ExpectIn(General, spec.Loaded, uint64(spec.Value), "loaded value").
		Pass().
		Halt()

	return b.Build()
}

// ShadowWrite is a register written in the shadow of a taken branch.
type ShadowWrite struct {
	Reg insts.Reg

	// Before is the value set ahead of the branch; Shadow is the value the
	// squashed instruction would write.
	Before, Shadow int64

	// Leak makes the expectation assert the Shadow value instead of
	// Before.
	Leak bool
}

// ControlFlushSpec describes a control flush test.
type ControlFlushSpec struct {
	Name string

	// Jump uses an unconditional jal instead of an always-taken beq.
	Jump bool

	Writes []ShadowWrite
}

// NewControlFlush builds a sequence that takes a branch over shadow writes.
// Each shadow register expects either its pre-branch value (a correct
// flush) or, for Leak writes, the shadow value.
func NewControlFlush(cfg *config.Config, spec ControlFlushSpec) (*Sequence, error) {
	if len(spec.Writes) == 0 {
		return nil, fmt.Errorf("control flush %q: no shadow writes", spec.Name)
	}
	for _, w := range spec.Writes {
		if w.Before == w.Shadow {
			return nil, fmt.Errorf("control flush %q: %s shadow value equals its value before the branch",
				spec.Name, w.Reg)
		}
	}

	const target = "flush_target"

	b := NewBuilder(cfg, spec.Name, ControlFlush).
		Describe("taken branch over register writes that must be squashed")

	for _, w := range spec.Writes {
		b.LI(w.Reg, w.Before)
	}

	if spec.Jump {
		b.Inst(asm.J(target))
	} else {
		b.Inst(insts.Branch(insts.OpBEQ, insts.X0, insts.X0, target))
	}
	b.Note("always taken")

	for _, w := range spec.Writes {
		b.Items(asm.Items(
			fmt.Sprintf("shadow: li %s, %d", w.Reg, w.Shadow),
			asm.LI(w.Reg, w.Shadow)...,
		)...)
	}

	b.Label(target)

	for _, w := range spec.Writes {
		if w.Leak {
			b.ExpectLeak(w.Reg, uint64(w.Shadow), "shadow write leaked")
		} else {
			b.Expect(w.Reg, uint64(w.Before), "shadow write squashed")
		}
	}

	return b.Pass().Halt().Build()
}

// ForwardingSpec describes a forwarding priority test: Values are written
// back to back into Reg, then Reader copies Reg after Gap nops.
type ForwardingSpec struct {
	Name   string
	Reg    insts.Reg
	Reader insts.Reg
	Values []int64

	// Gap is the number of nops between the last write and the read. 0
	// forwards from EX/MEM, 1 from MEM/WB.
	Gap int
}

// NewForwardingPriority builds a sequence in which the youngest write must
// win over older in-flight writes to the same register.
func NewForwardingPriority(cfg *config.Config, spec ForwardingSpec) (*Sequence, error) {
	if len(spec.Values) < 2 {
		return nil, fmt.Errorf("forwarding %q: need at least two writes", spec.Name)
	}
	if spec.Gap < 0 || spec.Gap > 1 {
		return nil, fmt.Errorf("forwarding %q: gap %d out of forwarding range", spec.Name, spec.Gap)
	}
	last := spec.Values[len(spec.Values)-1]
	if last == spec.Values[len(spec.Values)-2] {
		return nil, fmt.Errorf("forwarding %q: last two writes both hold %d, so the youngest cannot be told apart",
			spec.Name, last)
	}

	b := NewBuilder(cfg, spec.Name, Forwarding).
		Describe(fmt.Sprintf("%d writes to %s, read after %d nops", len(spec.Values), spec.Reg, spec.Gap))

	for i, v := range spec.Values {
		if v < -2048 || v > 2047 {
			return nil, fmt.Errorf("forwarding %q: value %d needs more than one instruction", spec.Name, v)
		}
		b.Inst(insts.I(insts.OpADDI, spec.Reg, insts.X0, v)).Note(fmt.Sprintf("write %d", i+1))
	}
	for i := 0; i < spec.Gap; i++ {
		b.Inst(insts.NOP())
	}

	b.Inst(insts.R(insts.OpADD, spec.Reader, spec.Reg, insts.X0)).
		Note("read: youngest write wins").
		Expect(spec.Reader, uint64(last), "youngest write")
	if spec.Reader != spec.Reg {
		b.ExpectIn(General, spec.Reg, uint64(last), "final write")
	}

	return b.Pass().Halt().Build()
}

// RegValue is an initial register value.
type RegValue struct {
	Reg   insts.Reg
	Value int64
}

// ExtensionInst is one raw-form instruction and the value its destination
// must hold afterwards.
type ExtensionInst struct {
	Opcode, Funct3, Funct7 uint8
	Rd, Rs1, Rs2           insts.Reg
	Want                   uint64
	Note                   string
}

// ExtensionSpec describes an extension opcode test.
type ExtensionSpec struct {
	Name   string
	Inputs []RegValue
	Insts  []ExtensionInst
}

// NewExtensionOp builds a sequence that runs raw-form instructions on the
// given inputs and checks each destination.
func NewExtensionOp(cfg *config.Config, spec ExtensionSpec) (*Sequence, error) {
	if len(spec.Insts) == 0 {
		return nil, fmt.Errorf("extension %q: no instructions", spec.Name)
	}

	b := NewBuilder(cfg, spec.Name, Extension).
		Describe("raw-form instructions checked by destination value")

	for _, in := range spec.Inputs {
		b.LI(in.Reg, in.Value)
	}
	for _, x := range spec.Insts {
		b.Raw(x.Opcode, x.Funct3, x.Funct7, x.Rd, x.Rs1, x.Rs2)
		if x.Note != "" {
			b.Note(x.Note)
		}
		b.Expect(x.Rd, x.Want, x.Note)
	}

	return b.Pass().Halt().Build()
}
