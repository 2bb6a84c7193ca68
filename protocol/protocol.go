// Package protocol implements the result signaling convention shared by a
// test program and the testbench that samples it.
//
// Before halting, a program writes a status into the result register. The
// pass code means PASS; any other value is a test-specific failure code.
// The program then enters its terminal state, an infinite loop the
// testbench recognizes.
package protocol

import (
	"fmt"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/config"
	"github.com/sarchlab/rvhazard/insts"
)

// HaltLabel is the label of the terminal loop.
const HaltLabel = "halt"

// Protocol is the signaling convention of one configuration.
type Protocol struct {
	Result   insts.Reg
	PassCode uint64
	Halt     config.HaltIdiom
}

// New returns the protocol described by cfg.
func New(cfg *config.Config) Protocol {
	return Protocol{
		Result:   insts.Reg(cfg.ResultRegister),
		PassCode: cfg.PassCode,
		Halt:     cfg.HaltIdiom,
	}
}

// Pass returns the items that signal PASS.
func (p Protocol) Pass() []asm.Item {
	return asm.Items(
		fmt.Sprintf("pass: li %s, 0x%x", p.Result, p.PassCode),
		asm.LI(p.Result, int64(p.PassCode))...,
	)
}

// Fail returns the items that signal failure with code. The pass code is
// not a valid failure code.
func (p Protocol) Fail(code uint64) ([]asm.Item, error) {
	if code == p.PassCode {
		return nil, fmt.Errorf("failure code 0x%x is the pass code", code)
	}
	return asm.Items(
		fmt.Sprintf("fail: li %s, 0x%x", p.Result, code),
		asm.LI(p.Result, int64(code))...,
	), nil
}

// Terminal returns the halt idiom: "halt: j halt" or "halt: nop; j halt".
func (p Protocol) Terminal() []asm.Item {
	items := []asm.Item{asm.L(HaltLabel)}
	if p.Halt == config.HaltNopLoop {
		items = append(items, asm.In(insts.NOP()))
	}
	return append(items, asm.Noted(asm.J(HaltLabel), "terminal"))
}

// Outcome is the interpretation of a sampled result register.
type Outcome struct {
	Passed bool
	Code   uint64
}

func (o Outcome) String() string {
	if o.Passed {
		return "PASS"
	}
	return fmt.Sprintf("FAIL(0x%x)", o.Code)
}

// Interpret classifies a result register value.
func (p Protocol) Interpret(value uint64) Outcome {
	return Outcome{Passed: value == p.PassCode, Code: value}
}
