package emu

import (
	"fmt"

	"github.com/sarchlab/rvhazard/insts"
)

// BranchUnit implements conditional branches and jumps.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// Taken evaluates the condition of a conditional branch.
func (b *BranchUnit) Taken(inst *insts.Instruction) (bool, error) {
	x := b.regFile.ReadReg(inst.Rs1)
	y := b.regFile.ReadReg(inst.Rs2)

	switch inst.Op {
	case insts.OpBEQ:
		return x == y, nil
	case insts.OpBNE:
		return x != y, nil
	case insts.OpBLT:
		return int64(x) < int64(y), nil
	case insts.OpBGE:
		return int64(x) >= int64(y), nil
	case insts.OpBLTU:
		return x < y, nil
	case insts.OpBGEU:
		return x >= y, nil
	}
	return false, fmt.Errorf("%s is not a branch", inst.Op)
}

// Branch executes a conditional branch and updates the PC.
func (b *BranchUnit) Branch(inst *insts.Instruction) error {
	taken, err := b.Taken(inst)
	if err != nil {
		return err
	}
	if taken {
		b.regFile.PC = uint64(int64(b.regFile.PC) + inst.Imm)
	} else {
		b.regFile.PC += 4
	}
	return nil
}

// JAL saves the return address in rd and jumps PC-relative.
func (b *BranchUnit) JAL(inst *insts.Instruction) {
	link := b.regFile.PC + 4
	b.regFile.PC = uint64(int64(b.regFile.PC) + inst.Imm)
	b.regFile.WriteReg(inst.Rd, link)
}

// JALR saves the return address in rd and jumps to rs1 + imm with the low
// bit cleared. rs1 is read before rd is written.
func (b *BranchUnit) JALR(inst *insts.Instruction) {
	link := b.regFile.PC + 4
	target := (b.regFile.ReadReg(inst.Rs1) + uint64(inst.Imm)) &^ 1
	b.regFile.PC = target
	b.regFile.WriteReg(inst.Rd, link)
}
