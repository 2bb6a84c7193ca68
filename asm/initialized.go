package asm

import (
	"fmt"

	"github.com/sarchlab/rvhazard/insts"
)

// regSet is a bitmask of registers, bit n for xn.
type regSet uint32

func (s regSet) has(r insts.Reg) bool { return s&(1<<r) != 0 }

// CheckInitialized verifies that every register an instruction reads has
// been written on every control path from the first instruction. Registers
// in initial, and x0, count as written before the sequence starts.
//
// Control flow follows the same rules as CheckTermination; run that first
// so that escaping paths are already rejected.
func CheckInitialized(items []Item, initial ...insts.Reg) error {
	f, err := newFlow(items)
	if err != nil {
		return err
	}

	n := len(f.insts)
	if n == 0 {
		return nil
	}

	var returnSites []int
	for i, inst := range f.insts {
		if inst.Op == insts.OpJAL && inst.Rd != insts.X0 {
			returnSites = append(returnSites, i+1)
		}
	}

	entry := regSet(1)
	for _, r := range initial {
		if r.Valid() {
			entry |= 1 << r
		}
	}

	// written[i] is the set written on every path reaching i. Unvisited
	// instructions start at the full set so the intersection only narrows.
	written := make([]regSet, n)
	reached := make([]bool, n)
	written[0] = entry
	reached[0] = true
	work := []int{0}

	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]

		out := written[i]
		if rd, ok := f.insts[i].Dest(); ok {
			out |= 1 << rd
		}

		succ, escapes, err := f.successors(i, returnSites)
		if err != nil {
			return err
		}
		if escapes {
			continue
		}

		for _, s := range succ {
			if s < 0 || s >= n {
				continue
			}
			next := out
			if reached[s] {
				next &= written[s]
				if next == written[s] {
					continue
				}
			}
			written[s] = next
			reached[s] = true
			work = append(work, s)
		}
	}

	for i, inst := range f.insts {
		if !reached[i] {
			continue
		}
		for _, r := range inst.Sources() {
			if !written[i].has(r) {
				return &SequenceError{
					Kind:   UninitializedRead,
					Index:  f.origin[i],
					Detail: fmt.Sprintf("%s reads %s before every path writes it", inst, r),
				}
			}
		}
	}

	return nil
}
