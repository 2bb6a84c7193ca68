package hazard

import (
	"fmt"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/insts"
)

// ForwardSource indicates where a forwarded operand comes from in a classic
// five-stage pipeline when the consumer is in EX.
type ForwardSource int

const (
	// ForwardNone means the register file value is current.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM forwards from the instruction one ahead.
	ForwardFromEXMEM
	// ForwardFromMEMWB forwards from the instruction two ahead.
	ForwardFromMEMWB
)

func (s ForwardSource) String() string {
	switch s {
	case ForwardFromEXMEM:
		return "EX/MEM"
	case ForwardFromMEMWB:
		return "MEM/WB"
	default:
		return "none"
	}
}

// FindingKind classifies a Finding.
type FindingKind int

// Finding kinds.
const (
	// FindingForward is a consumer reading a register produced one or two
	// instructions earlier.
	FindingForward FindingKind = iota
	// FindingLoadUse is a consumer reading a load result in the very next
	// instruction.
	FindingLoadUse
	// FindingShadow is a register write in the shadow of a branch or jump.
	FindingShadow
	// FindingExtension is an instruction outside the base ISA.
	FindingExtension
)

func (k FindingKind) String() string {
	switch k {
	case FindingForward:
		return "forward"
	case FindingLoadUse:
		return "load-use"
	case FindingShadow:
		return "shadow"
	case FindingExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// Finding is one hazard the analyzer located.
type Finding struct {
	Kind FindingKind

	// Index is the item index of the consumer, shadow instruction or
	// extension instruction.
	Index int
	// Producer is the item index of the producing load, ALU op or
	// branch, or -1.
	Producer int

	Reg    insts.Reg
	Source ForwardSource

	// Overrides is set when both EX/MEM and MEM/WB hold a value for Reg
	// and the younger one must win.
	Overrides bool
}

// Category returns the hazard category the finding exercises.
func (f Finding) Category() Category {
	switch f.Kind {
	case FindingForward:
		return Forwarding
	case FindingLoadUse:
		return LoadUse
	case FindingShadow:
		return ControlFlush
	default:
		return Extension
	}
}

func (f Finding) String() string {
	switch f.Kind {
	case FindingForward:
		s := fmt.Sprintf("item %d: %s forwarded from %s (item %d)", f.Index, f.Reg, f.Source, f.Producer)
		if f.Overrides {
			s += ", overriding MEM/WB"
		}
		return s
	case FindingLoadUse:
		return fmt.Sprintf("item %d: %s used right after load (item %d)", f.Index, f.Reg, f.Producer)
	case FindingShadow:
		return fmt.Sprintf("item %d: %s written in shadow of item %d", f.Index, f.Reg, f.Producer)
	default:
		return fmt.Sprintf("item %d: extension instruction", f.Index)
	}
}

// Analysis is the result of analyzing a sequence.
type Analysis struct {
	Findings []Finding
}

// Exercises reports whether the analysis found a hazard of category c.
// Every sequence exercises General.
func (a *Analysis) Exercises(c Category) bool {
	if c == General {
		return true
	}
	for _, f := range a.Findings {
		if f.Category() == c {
			return true
		}
	}
	return false
}

// Count returns the number of findings of a kind.
func (a *Analysis) Count(kind FindingKind) int {
	n := 0
	for _, f := range a.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Analyzer locates hazards in the linear instruction stream of a sequence,
// as a five-stage in-order pipeline would see them. It does not simulate
// anything: taken branches are not followed, only their shadows marked.
type Analyzer struct {
	// ShadowDepth is the number of instructions fetched behind a branch
	// or jump before it resolves.
	ShadowDepth int
}

// NewAnalyzer creates an analyzer for a pipeline that resolves branches in
// EX, leaving two instructions in the shadow.
func NewAnalyzer() *Analyzer {
	return &Analyzer{ShadowDepth: 2}
}

type slot struct {
	index int
	inst  insts.Instruction
}

// Analyze returns the hazards found in items.
func (a *Analyzer) Analyze(items []asm.Item) *Analysis {
	var stream []slot
	labels := make(map[string]int)
	for i, it := range items {
		if it.IsLabel() {
			labels[it.Label] = len(stream)
			continue
		}
		stream = append(stream, slot{index: i, inst: it.Inst})
	}

	analysis := &Analysis{}
	for i, s := range stream {
		if s.inst.IsExtension() {
			analysis.Findings = append(analysis.Findings, Finding{
				Kind:     FindingExtension,
				Index:    s.index,
				Producer: -1,
			})
		}

		for _, r := range s.inst.Sources() {
			if f, ok := a.detectForwarding(stream, i, r); ok {
				analysis.Findings = append(analysis.Findings, f)
			}
		}

		if s.inst.IsControl() {
			analysis.Findings = append(analysis.Findings, a.shadow(stream, labels, i)...)
		}
	}

	return analysis
}

// detectForwarding checks whether operand r of stream[i] is produced by one
// of the two preceding instructions. EX/MEM has precedence over MEM/WB
// since it holds the more recent value.
func (a *Analyzer) detectForwarding(stream []slot, i int, r insts.Reg) (Finding, bool) {
	writes := func(j int) bool {
		if j < 0 {
			return false
		}
		rd, ok := stream[j].inst.Dest()
		return ok && rd == r
	}

	switch {
	case writes(i - 1):
		producer := stream[i-1]
		if producer.inst.IsLoad() {
			return Finding{
				Kind:     FindingLoadUse,
				Index:    stream[i].index,
				Producer: producer.index,
				Reg:      r,
				Source:   ForwardFromMEMWB,
			}, true
		}
		return Finding{
			Kind:      FindingForward,
			Index:     stream[i].index,
			Producer:  producer.index,
			Reg:       r,
			Source:    ForwardFromEXMEM,
			Overrides: writes(i - 2),
		}, true

	case writes(i - 2):
		return Finding{
			Kind:     FindingForward,
			Index:    stream[i].index,
			Producer: stream[i-2].index,
			Reg:      r,
			Source:   ForwardFromMEMWB,
		}, true
	}

	return Finding{}, false
}

// shadow marks register writes fetched behind the control instruction at
// stream[i] that do not lie on its taken path.
func (a *Analyzer) shadow(stream []slot, labels map[string]int, i int) []Finding {
	branch := stream[i].inst

	end := i + a.ShadowDepth
	if target, ok := a.target(labels, i, branch); ok {
		if target <= i && branch.Op == insts.OpJAL && branch.Rd == insts.X0 {
			// Backward unconditional jumps are loops or the terminal.
			return nil
		}
		if target > i && target-1 < end {
			end = target - 1
		}
	}

	var findings []Finding
	for j := i + 1; j <= end && j < len(stream); j++ {
		rd, ok := stream[j].inst.Dest()
		if !ok {
			continue
		}
		findings = append(findings, Finding{
			Kind:     FindingShadow,
			Index:    stream[j].index,
			Producer: stream[i].index,
			Reg:      rd,
		})
	}
	return findings
}

func (a *Analyzer) target(labels map[string]int, i int, inst insts.Instruction) (int, bool) {
	if inst.Op == insts.OpJALR {
		return 0, false
	}
	if inst.Target != "" {
		t, ok := labels[inst.Target]
		return t, ok
	}
	if inst.Imm%asm.InstSize != 0 {
		return 0, false
	}
	return i + int(inst.Imm/asm.InstSize), true
}
