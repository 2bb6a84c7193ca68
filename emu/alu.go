package emu

import (
	"fmt"

	"github.com/sarchlab/rvhazard/insts"
)

// ALU implements the RV64I and Zba arithmetic and logic operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Execute runs a register-register or register-immediate operation and
// writes rd.
func (a *ALU) Execute(inst *insts.Instruction) error {
	op1 := a.regFile.ReadReg(inst.Rs1)

	var op2 uint64
	switch inst.Format() {
	case insts.FormatR:
		op2 = a.regFile.ReadReg(inst.Rs2)
	case insts.FormatI, insts.FormatShift:
		op2 = uint64(inst.Imm)
	default:
		return fmt.Errorf("%s is not an ALU operation", inst.Op)
	}

	if isWordOp(inst.Op) {
		result, ok := aluWord(inst.Op, uint32(op1), uint32(op2))
		if !ok {
			return fmt.Errorf("unimplemented ALU operation %s", inst.Op)
		}
		a.regFile.WriteReg32(inst.Rd, result)
		return nil
	}

	result, ok := alu64(inst.Op, op1, op2)
	if !ok {
		return fmt.Errorf("unimplemented ALU operation %s", inst.Op)
	}
	a.regFile.WriteReg(inst.Rd, result)
	return nil
}

func isWordOp(op insts.Op) bool {
	switch op {
	case insts.OpADDW, insts.OpSUBW, insts.OpSLLW, insts.OpSRLW, insts.OpSRAW,
		insts.OpADDIW, insts.OpSLLIW, insts.OpSRLIW, insts.OpSRAIW:
		return true
	}
	return false
}

func alu64(op insts.Op, a, b uint64) (uint64, bool) {
	switch op {
	case insts.OpADD, insts.OpADDI:
		return a + b, true
	case insts.OpSUB:
		return a - b, true
	case insts.OpSLL, insts.OpSLLI:
		return a << (b & 0x3F), true
	case insts.OpSRL, insts.OpSRLI:
		return a >> (b & 0x3F), true
	case insts.OpSRA, insts.OpSRAI:
		return uint64(int64(a) >> (b & 0x3F)), true
	case insts.OpSLT, insts.OpSLTI:
		return boolToUint(int64(a) < int64(b)), true
	case insts.OpSLTU, insts.OpSLTIU:
		return boolToUint(a < b), true
	case insts.OpXOR, insts.OpXORI:
		return a ^ b, true
	case insts.OpOR, insts.OpORI:
		return a | b, true
	case insts.OpAND, insts.OpANDI:
		return a & b, true

	// Zba: rd = rs2 + (rs1 << n), with rs1 zero-extended from 32 bits for
	// the .uw forms.
	case insts.OpSH1ADD:
		return b + a<<1, true
	case insts.OpSH2ADD:
		return b + a<<2, true
	case insts.OpSH3ADD:
		return b + a<<3, true
	case insts.OpADDUW:
		return b + uint64(uint32(a)), true
	case insts.OpSH1ADDUW:
		return b + uint64(uint32(a))<<1, true
	case insts.OpSH2ADDUW:
		return b + uint64(uint32(a))<<2, true
	case insts.OpSH3ADDUW:
		return b + uint64(uint32(a))<<3, true
	}
	return 0, false
}

func aluWord(op insts.Op, a, b uint32) (uint32, bool) {
	switch op {
	case insts.OpADDW, insts.OpADDIW:
		return a + b, true
	case insts.OpSUBW:
		return a - b, true
	case insts.OpSLLW, insts.OpSLLIW:
		return a << (b & 0x1F), true
	case insts.OpSRLW, insts.OpSRLIW:
		return a >> (b & 0x1F), true
	case insts.OpSRAW, insts.OpSRAIW:
		return uint32(int32(a) >> (b & 0x1F)), true
	}
	return 0, false
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
