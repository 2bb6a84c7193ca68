// Package emu provides an architectural RV64I + Zba golden model.
//
// The model executes one instruction at a time with no notion of a
// pipeline: every instruction sees the results of all earlier ones. It is
// the reference a pipelined core is compared against.
package emu

import "github.com/sarchlab/rvhazard/insts"

// RegFile represents the RV64 integer register file and program counter.
type RegFile struct {
	// X holds registers x0-x31. X[0] is kept at zero.
	X [insts.NumRegs]uint64

	// PC is the program counter.
	PC uint64
}

// ReadReg reads a register value. x0 and invalid registers read as 0.
func (r *RegFile) ReadReg(reg insts.Reg) uint64 {
	if reg == insts.X0 || !reg.Valid() {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to x0 are ignored.
func (r *RegFile) WriteReg(reg insts.Reg, value uint64) {
	if reg == insts.X0 || !reg.Valid() {
		return
	}
	r.X[reg] = value
}

// WriteReg32 writes a 32-bit result sign-extended to 64 bits, as the RV64
// word instructions do.
func (r *RegFile) WriteReg32(reg insts.Reg, value uint32) {
	r.WriteReg(reg, uint64(int64(int32(value))))
}

// Snapshot returns a copy of the registers.
func (r *RegFile) Snapshot() [insts.NumRegs]uint64 {
	return r.X
}
