// Package verify runs hazard programs on an execution engine and checks the
// final register state against the program's expectations.
package verify

import (
	"context"
	"fmt"

	"github.com/sarchlab/rvhazard/emu"
	"github.com/sarchlab/rvhazard/insts"
	"github.com/sarchlab/rvhazard/program"
)

// State is the architectural state an engine reports once a program halts.
type State struct {
	Regs [insts.NumRegs]uint64
	PC   uint64

	// Steps is the number of instructions retired, if the engine knows.
	Steps uint64
}

// Reg returns the value of r. x0 and invalid registers read as zero.
func (s State) Reg(r insts.Reg) uint64 {
	if r == insts.X0 || !r.Valid() {
		return 0
	}
	return s.Regs[r]
}

// Executor runs a program to its terminal instruction.
//
// A pipelined core under test is wrapped in an Executor; GoldenExecutor is
// the architectural reference.
type Executor interface {
	Execute(ctx context.Context, p *program.Program) (State, error)
}

// GoldenExecutor runs programs on the emu golden model.
type GoldenExecutor struct {
	// MaxSteps overrides the program's configured step bound when non-zero.
	MaxSteps uint64
}

// NewGoldenExecutor creates a golden executor.
func NewGoldenExecutor() *GoldenExecutor {
	return &GoldenExecutor{}
}

// Execute loads the program image at its load address and runs it until
// the PC reaches the terminal instruction.
func (g *GoldenExecutor) Execute(ctx context.Context, p *program.Program) (State, error) {
	cfg := p.Config

	maxSteps := cfg.MaxSteps
	if g.MaxSteps != 0 {
		maxSteps = g.MaxSteps
	}

	e := emu.NewEmulator(
		emu.WithMemory(emu.NewMemory(cfg.LoadAddress, cfg.MemorySize)),
		emu.WithMaxSteps(maxSteps),
		emu.WithTerminal(p.Terminal),
	)

	if err := e.LoadProgram(p.Entry, p.Image.Bytes()); err != nil {
		return State{}, fmt.Errorf("failed to load %s: %w", p.Name(), err)
	}

	runErr := e.Run(ctx)

	rf := e.RegFile()
	state := State{Regs: rf.X, PC: rf.PC, Steps: e.Steps()}
	if runErr != nil {
		return state, fmt.Errorf("%s: %w", p.Name(), runErr)
	}
	return state, nil
}
