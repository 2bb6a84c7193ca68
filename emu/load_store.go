package emu

import (
	"fmt"

	"github.com/sarchlab/rvhazard/insts"
)

// LoadStoreUnit implements RV64I loads and stores.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		memory:  memory,
	}
}

type access struct {
	size   int
	signed bool
}

var accesses = map[insts.Op]access{
	insts.OpLB:  {1, true},
	insts.OpLH:  {2, true},
	insts.OpLW:  {4, true},
	insts.OpLD:  {8, true},
	insts.OpLBU: {1, false},
	insts.OpLHU: {2, false},
	insts.OpLWU: {4, false},
	insts.OpSB:  {1, false},
	insts.OpSH:  {2, false},
	insts.OpSW:  {4, false},
	insts.OpSD:  {8, false},
}

func (lsu *LoadStoreUnit) address(inst *insts.Instruction) uint64 {
	return lsu.regFile.ReadReg(inst.Rs1) + uint64(inst.Imm)
}

// Load executes rd = mem[rs1 + imm], sign- or zero-extended.
func (lsu *LoadStoreUnit) Load(inst *insts.Instruction) error {
	acc, ok := accesses[inst.Op]
	if !ok || !inst.IsLoad() {
		return fmt.Errorf("%s is not a load", inst.Op)
	}

	value, err := lsu.memory.ReadUint(lsu.address(inst), acc.size)
	if err != nil {
		return err
	}

	if acc.signed && acc.size < 8 {
		shift := 64 - 8*uint(acc.size)
		value = uint64(int64(value<<shift) >> shift)
	}

	lsu.regFile.WriteReg(inst.Rd, value)
	return nil
}

// Store executes mem[rs1 + imm] = rs2, truncated to the access size.
func (lsu *LoadStoreUnit) Store(inst *insts.Instruction) error {
	acc, ok := accesses[inst.Op]
	if !ok || !inst.IsStore() {
		return fmt.Errorf("%s is not a store", inst.Op)
	}

	return lsu.memory.WriteUint(lsu.address(inst), acc.size, lsu.regFile.ReadReg(inst.Rs2))
}
