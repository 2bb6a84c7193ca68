package asm

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/sarchlab/rvhazard/insts"
)

// LI expands "li rd, value" into the shortest sequence this package knows
// for an arbitrary 64-bit constant.
//
// 32-bit values use addi, or lui followed by addiw. Wider values load the
// upper bits recursively, shift them into place and add the low 12 bits.
func LI(rd insts.Reg, value int64) []insts.Instruction {
	return genLI(rd, value, nil)
}

func genLI(rd insts.Reg, value int64, out []insts.Instruction) []insts.Instruction {
	lo12 := signExtend(value&0xFFF, 12)

	if value >= math.MinInt32 && value <= math.MaxInt32 {
		hi20 := signExtend(((value+0x800)>>12)&0xFFFFF, 20)
		if hi20 == 0 {
			return append(out, insts.I(insts.OpADDI, rd, insts.X0, lo12))
		}
		out = append(out, insts.LUI(rd, hi20))
		if lo12 != 0 {
			out = append(out, insts.I(insts.OpADDIW, rd, rd, lo12))
		}
		return out
	}

	hi52 := (value - lo12) >> 12
	shift := 12 + bits.TrailingZeros64(uint64(hi52))
	hi52 >>= shift - 12

	out = genLI(rd, hi52, out)
	out = append(out, insts.I(insts.OpSLLI, rd, rd, int64(shift)))
	if lo12 != 0 {
		out = append(out, insts.I(insts.OpADDI, rd, rd, lo12))
	}
	return out
}

func signExtend(v int64, width uint) int64 {
	shift := 64 - width
	return v << shift >> shift
}

// LIItems is LI wrapped as items, annotated with the pseudo-instruction.
func LIItems(rd insts.Reg, value int64) []Item {
	return Items(fmt.Sprintf("li %s, %d", rd, value), LI(rd, value)...)
}

// MV returns "mv rd, rs" (addi rd, rs, 0).
func MV(rd, rs insts.Reg) insts.Instruction {
	return insts.I(insts.OpADDI, rd, rs, 0)
}

// J returns "j target" (jal x0, target).
func J(target string) insts.Instruction {
	return insts.JAL(insts.X0, target)
}
