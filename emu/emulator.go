package emu

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarchlab/rvhazard/insts"
)

// ErrStepLimit is returned by Run when the step bound is reached before
// the program halts.
var ErrStepLimit = errors.New("step limit reached")

// IllegalInstructionError reports a word the model cannot execute.
type IllegalInstructionError struct {
	PC   uint64
	Word uint32
}

func (e *IllegalInstructionError) Error() string {
	return fmt.Sprintf("illegal instruction 0x%08x at PC=0x%X", e.Word, e.PC)
}

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if the instruction at PC is the terminal loop. The
	// terminal instruction itself is not executed.
	Halted bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes RV64I + Zba instructions functionally.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	// Execution state
	steps    uint64
	maxSteps uint64 // 0 means no limit

	terminal    uint64
	hasTerminal bool
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemory replaces the default memory.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// WithMaxSteps sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxSteps(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxSteps = max
	}
}

// WithTerminal sets the address of the terminal instruction. Execution
// halts when the PC reaches it. Without it, halting relies on recognizing
// a jump back to itself over nops.
func WithTerminal(addr uint64) EmulatorOption {
	return func(e *Emulator) {
		e.terminal = addr
		e.hasTerminal = true
	}
}

// DefaultMemorySize is the memory size used when no memory is given.
const DefaultMemorySize = 0x2000

// NewEmulator creates a new emulator. All registers start at zero.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.memory == nil {
		e.memory = NewMemory(0, DefaultMemorySize)
	}

	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.memory)
	e.branchUnit = NewBranchUnit(e.regFile)

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Steps returns the number of instructions executed.
func (e *Emulator) Steps() uint64 {
	return e.steps
}

// LoadProgram copies image into memory at entry and points the PC at it.
func (e *Emulator) LoadProgram(entry uint64, image []byte) error {
	if err := e.memory.LoadImage(entry, image); err != nil {
		return err
	}
	e.regFile.PC = entry
	return nil
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	pc := e.regFile.PC

	if e.hasTerminal && pc == e.terminal {
		return StepResult{Halted: true}
	}

	if e.maxSteps > 0 && e.steps >= e.maxSteps {
		return StepResult{Err: ErrStepLimit}
	}

	// 1. Fetch
	word, err := e.memory.Read32(pc)
	if err != nil {
		return StepResult{Err: fmt.Errorf("fetch at PC=0x%X: %w", pc, err)}
	}

	// 2. Decode
	inst := e.decoder.Decode(word)

	if !e.hasTerminal && e.isSelfLoop(pc, inst) {
		return StepResult{Halted: true}
	}

	// 3. Execute
	if err := e.execute(pc, word, inst); err != nil {
		return StepResult{Err: err}
	}

	e.steps++
	return StepResult{}
}

// Run executes instructions until the program halts, an error occurs or
// ctx is cancelled.
func (e *Emulator) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted {
			return nil
		}
	}
}

// isSelfLoop recognizes the halt idioms: a jal x0 whose target is at or
// before it with only nops in between.
func (e *Emulator) isSelfLoop(pc uint64, inst *insts.Instruction) bool {
	if inst.Op != insts.OpJAL || inst.Rd != insts.X0 || inst.Imm > 0 {
		return false
	}

	for addr := uint64(int64(pc) + inst.Imm); addr < pc; addr += 4 {
		word, err := e.memory.Read32(addr)
		if err != nil || !e.decoder.Decode(word).IsNOP() {
			return false
		}
	}
	return true
}

// execute dispatches and executes a decoded instruction.
func (e *Emulator) execute(pc uint64, word uint32, inst *insts.Instruction) error {
	var err error

	switch {
	case inst.Op == insts.OpRaw:
		return &IllegalInstructionError{PC: pc, Word: word}

	case inst.IsBranch():
		return e.branchUnit.Branch(inst)

	case inst.Op == insts.OpJAL:
		e.branchUnit.JAL(inst)
		return nil

	case inst.Op == insts.OpJALR:
		e.branchUnit.JALR(inst)
		return nil

	case inst.IsLoad():
		err = e.lsu.Load(inst)

	case inst.IsStore():
		err = e.lsu.Store(inst)

	case inst.Op == insts.OpLUI:
		e.regFile.WriteReg(inst.Rd, upper(inst.Imm))

	case inst.Op == insts.OpAUIPC:
		e.regFile.WriteReg(inst.Rd, pc+upper(inst.Imm))

	default:
		err = e.alu.Execute(inst)
	}

	if err != nil {
		return fmt.Errorf("%s at PC=0x%X: %w", inst, pc, err)
	}

	// Advance PC by 4 (for non-branch instructions)
	e.regFile.PC += 4
	return nil
}

// upper places a 20-bit immediate in bits 31:12, sign-extended to 64 bits.
func upper(imm20 int64) uint64 {
	return uint64(int64(int32(uint32(imm20) << 12)))
}
