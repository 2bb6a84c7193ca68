package asm

import (
	"fmt"

	"github.com/sarchlab/rvhazard/insts"
)

// flow is the control-flow view of a sequence: instructions only, with
// labels turned into instruction indices.
type flow struct {
	insts  []insts.Instruction
	origin []int // item index of each instruction
	labels map[string]int
}

func newFlow(items []Item) (*flow, error) {
	f := &flow{labels: make(map[string]int)}

	for i, it := range items {
		if it.IsLabel() {
			if _, dup := f.labels[it.Label]; dup {
				return nil, &SequenceError{Kind: DuplicateLabel, Index: i, Label: it.Label}
			}
			f.labels[it.Label] = len(f.insts)
			continue
		}
		f.insts = append(f.insts, it.Inst)
		f.origin = append(f.origin, i)
	}

	return f, nil
}

// target returns the instruction index a branch or jump at i transfers
// to. ok is false if the target is not an instruction boundary.
func (f *flow) target(i int) (int, bool, error) {
	inst := f.insts[i]

	if inst.Target != "" {
		t, found := f.labels[inst.Target]
		if !found {
			return 0, false, &insts.EncodingError{
				Kind:  insts.UnresolvedLabel,
				Index: f.origin[i],
				Op:    inst.Op,
				Label: inst.Target,
			}
		}
		return t, true, nil
	}

	if inst.Imm%InstSize != 0 {
		return 0, false, nil
	}
	return i + int(inst.Imm/InstSize), true, nil
}

// isTerminal reports whether the instruction at i is a halt: a jal x0 back
// to itself, possibly over a run of nops.
func (f *flow) isTerminal(i int) bool {
	inst := f.insts[i]
	if inst.Op != insts.OpJAL || inst.Rd != insts.X0 {
		return false
	}

	t, ok, err := f.target(i)
	if err != nil || !ok || t > i || t < 0 {
		return false
	}

	for j := t; j < i; j++ {
		if !f.insts[j].IsNOP() {
			return false
		}
	}
	return true
}

// successors returns the instruction indices control may reach from i.
// An index equal to len(insts) or outside the sequence means control
// leaves it. escapes is set for indirect jumps that are not returns.
func (f *flow) successors(i int, returnSites []int) (succ []int, escapes bool, err error) {
	inst := f.insts[i]

	switch {
	case inst.IsBranch():
		t, ok, err := f.target(i)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, true, nil
		}
		return []int{i + 1, t}, false, nil

	case inst.Op == insts.OpJAL:
		t, ok, err := f.target(i)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, true, nil
		}
		return []int{t}, false, nil

	case inst.Op == insts.OpJALR:
		if inst.Rd == insts.X0 && inst.Rs1 == insts.RA && inst.Imm == 0 {
			return returnSites, false, nil
		}
		return nil, true, nil
	}

	return []int{i + 1}, false, nil
}

// CheckTermination verifies that the sequence has exactly one terminal
// instruction and that every control path from the first instruction
// reaches it. It returns the item index of the terminal.
//
// Calls (jal with a link register) are assumed to return to the
// instruction after the call through "ret" (jalr x0, 0(ra)); any other
// indirect jump is treated as leaving the sequence.
func CheckTermination(items []Item) (int, error) {
	f, err := newFlow(items)
	if err != nil {
		return -1, err
	}

	n := len(f.insts)
	terminal := -1
	var returnSites []int

	for i := range f.insts {
		if f.isTerminal(i) {
			if terminal >= 0 {
				return -1, &SequenceError{
					Kind:   MultipleTerminals,
					Index:  f.origin[i],
					Detail: fmt.Sprintf("first terminal at item %d", f.origin[terminal]),
				}
			}
			terminal = i
			continue
		}
		if f.insts[i].Op == insts.OpJAL && f.insts[i].Rd != insts.X0 {
			returnSites = append(returnSites, i+1)
		}
	}

	if terminal < 0 {
		return -1, &SequenceError{
			Kind:   UnreachableTerminal,
			Index:  -1,
			Detail: "no terminal instruction",
		}
	}

	reached, edges, err := f.explore(terminal, returnSites)
	if err != nil {
		return -1, err
	}

	if !reached[terminal] {
		return -1, &SequenceError{
			Kind:   UnreachableTerminal,
			Index:  f.origin[terminal],
			Detail: "terminal is not reachable from the entry",
		}
	}

	// Every reachable instruction must be able to reach the terminal.
	canFinish := make([]bool, n)
	canFinish[terminal] = true
	work := []int{terminal}
	for len(work) > 0 {
		j := work[len(work)-1]
		work = work[:len(work)-1]
		for _, p := range edges[j] {
			if !canFinish[p] {
				canFinish[p] = true
				work = append(work, p)
			}
		}
	}

	for i := 0; i < n; i++ {
		if reached[i] && !canFinish[i] {
			return -1, &SequenceError{
				Kind:   UnreachableTerminal,
				Index:  f.origin[i],
				Detail: fmt.Sprintf("%s never reaches the terminal", f.insts[i]),
			}
		}
	}

	return f.origin[terminal], nil
}

// explore walks forward from the first instruction. It returns the set of
// reachable instructions and the reverse edges between them.
func (f *flow) explore(terminal int, returnSites []int) ([]bool, [][]int, error) {
	n := len(f.insts)
	reached := make([]bool, n)
	preds := make([][]int, n)

	reached[0] = true
	work := []int{0}

	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]

		if i == terminal {
			continue
		}

		succ, escapes, err := f.successors(i, returnSites)
		if err != nil {
			return nil, nil, err
		}
		if escapes {
			return nil, nil, &SequenceError{
				Kind:   UnreachableTerminal,
				Index:  f.origin[i],
				Detail: fmt.Sprintf("%s leaves the sequence", f.insts[i]),
			}
		}

		for _, s := range succ {
			if s < 0 || s >= n {
				detail := "falls off the end of the sequence"
				if s != n {
					detail = "jumps outside the sequence"
				}
				return nil, nil, &SequenceError{
					Kind:   UnreachableTerminal,
					Index:  f.origin[i],
					Detail: detail,
				}
			}
			preds[s] = append(preds[s], i)
			if !reached[s] {
				reached[s] = true
				work = append(work, s)
			}
		}
	}

	return reached, preds, nil
}
