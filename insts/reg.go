package insts

import (
	"strconv"
	"strings"
)

// Reg identifies one of the 32 general-purpose registers.
// Values >= NumRegs are representable so that bad input can be reported
// instead of silently wrapped.
type Reg uint8

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// Frequently used registers.
const (
	X0 Reg = 0 // hard-wired zero
	RA Reg = 1 // return address
	SP Reg = 2 // stack pointer
)

var abiNames = [NumRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// Valid reports whether r names an existing register.
func (r Reg) Valid() bool {
	return r < NumRegs
}

// String returns the numeric register name (x0..x31).
func (r Reg) String() string {
	return "x" + strconv.Itoa(int(r))
}

// ABIName returns the calling-convention name of the register, or the
// numeric name if r is out of range.
func (r Reg) ABIName() string {
	if !r.Valid() {
		return r.String()
	}
	return abiNames[r]
}

// ParseReg parses a register name. Both numeric (x5) and ABI (t0) names are
// accepted; "fp" is an alias for s0.
func ParseReg(name string) (Reg, bool) {
	name = strings.ToLower(strings.TrimSpace(name))

	if strings.HasPrefix(name, "x") {
		n, err := strconv.Atoi(name[1:])
		if err == nil && n >= 0 && n < NumRegs {
			return Reg(n), true
		}
		return 0, false
	}

	if name == "fp" {
		return 8, true
	}

	for i, abi := range abiNames {
		if abi == name {
			return Reg(i), true
		}
	}

	return 0, false
}
