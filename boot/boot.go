// Package boot emits the startup sequence that runs before a test.
//
// The preamble is deliberately minimal: it sets the stack pointer to the top
// of memory and jumps to the test's entry label. No other register is
// initialized, so a test that relies on a register it never wrote is
// observing reset state.
package boot

import (
	"fmt"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/config"
	"github.com/sarchlab/rvhazard/insts"
)

// StartLabel is the label of the first instruction of every program.
const StartLabel = "_start"

// Preamble returns the boot items: _start, li sp, <stack top>, j entry.
func Preamble(cfg *config.Config, entry string) []asm.Item {
	items := []asm.Item{asm.L(StartLabel)}
	items = append(items, asm.Items(
		fmt.Sprintf("li sp, 0x%x", cfg.StackTop),
		asm.LI(insts.SP, int64(cfg.StackTop))...,
	)...)
	items = append(items, asm.Noted(asm.J(entry), "enter "+entry))
	return items
}

// Writes returns the registers the preamble writes.
func Writes(items []asm.Item) []insts.Reg {
	seen := make(map[insts.Reg]bool)
	var regs []insts.Reg
	for _, inst := range asm.Instructions(items) {
		if rd, ok := inst.Dest(); ok && !seen[rd] {
			seen[rd] = true
			regs = append(regs, rd)
		}
	}
	return regs
}
