package hazard

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sarchlab/rvhazard/config"
	"github.com/sarchlab/rvhazard/insts"
)

// Zba sh1add in raw form: opcode OP, funct3 2, funct7 0x10.
const (
	sh1addOpcode = 0x33
	sh1addFunct3 = 0x2
	sh1addFunct7 = 0x10
)

type entry struct {
	summary string
	build   func(cfg *config.Config) (*Sequence, error)
}

var catalog = map[string]entry{
	"arith-add": {
		summary: "x7 = x5 + x6 with 10 and 20",
		build: func(cfg *config.Config) (*Sequence, error) {
			return NewBuilder(cfg, "arith-add", General).
				Describe("x7 = x5 + x6 with 10 and 20").
				LI(5, 10).
				LI(6, 20).
				Inst(insts.R(insts.OpADD, 7, 5, 6)).
				Expect(7, 30, "10 + 20").
				Pass().
				Halt().
				Build()
		},
	},
	"zba-sh1add": {
		summary: "raw-form sh1add x9, x5, x6 with 10 and 20",
		build: func(cfg *config.Config) (*Sequence, error) {
			return NewExtensionOp(cfg, ExtensionSpec{
				Name:   "zba-sh1add",
				Inputs: []RegValue{{Reg: 5, Value: 10}, {Reg: 6, Value: 20}},
				Insts: []ExtensionInst{{
					Opcode: sh1addOpcode, Funct3: sh1addFunct3, Funct7: sh1addFunct7,
					Rd: 9, Rs1: 5, Rs2: 6,
					Want: 40,
					Note: "sh1add: (10 << 1) + 20",
				}},
			})
		},
	},
	"load-use": {
		summary: "ld followed by an immediate consumer",
		build: func(cfg *config.Config) (*Sequence, error) {
			return NewLoadUse(cfg, LoadUseSpec{
				Name:  "load-use",
				Addr:  scratchAddr(cfg),
				Value: 0x1234_5678_9ABC,
			})
		},
	},
	"control-flush": {
		summary: "taken branch whose shadow writes must be squashed",
		build: func(cfg *config.Config) (*Sequence, error) {
			return NewControlFlush(cfg, ControlFlushSpec{
				Name: "control-flush",
				Writes: []ShadowWrite{
					{Reg: 10, Before: 1, Shadow: 0x55},
					{Reg: 11, Before: 2, Shadow: 0x66},
				},
			})
		},
	},
	"control-flush-leak": {
		summary: "taken jump with one shadow write expected to leak",
		build: func(cfg *config.Config) (*Sequence, error) {
			return NewControlFlush(cfg, ControlFlushSpec{
				Name: "control-flush-leak",
				Jump: true,
				Writes: []ShadowWrite{
					{Reg: 10, Before: 1, Shadow: 0x55},
					{Reg: 11, Before: 2, Shadow: 0x66, Leak: true},
				},
			})
		},
	},
	"forwarding-priority": {
		summary: "three writes then a read: EX/MEM beats MEM/WB",
		build: func(cfg *config.Config) (*Sequence, error) {
			return NewForwardingPriority(cfg, ForwardingSpec{
				Name:   "forwarding-priority",
				Reg:    5,
				Reader: 6,
				Values: []int64{1, 2, 3},
			})
		},
	},
	"forwarding-memwb": {
		summary: "two writes, a nop, then a read from MEM/WB",
		build: func(cfg *config.Config) (*Sequence, error) {
			return NewForwardingPriority(cfg, ForwardingSpec{
				Name:   "forwarding-memwb",
				Reg:    5,
				Reader: 6,
				Values: []int64{7, 9},
				Gap:    1,
			})
		},
	},
}

// scratchAddr is a doubleword halfway into memory, clear of the program
// image and below the stack.
func scratchAddr(cfg *config.Config) uint64 {
	return (cfg.LoadAddress + cfg.MemorySize/2) &^ 7
}

// Names returns the names of the built-in sequences in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary returns the one-line summary of a built-in sequence.
func Summary(name string) string {
	return catalog[name].summary
}

// Lookup builds one built-in sequence.
func Lookup(cfg *config.Config, name string) (*Sequence, error) {
	e, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("no built-in sequence named %q", name)
	}
	return e.build(cfg)
}

// Catalog builds every built-in sequence in name order. Sequences that fail
// to build are left out and their errors joined.
func Catalog(cfg *config.Config) ([]*Sequence, error) {
	var (
		seqs []*Sequence
		errs []error
	)
	for _, name := range Names() {
		seq, err := Lookup(cfg, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seqs = append(seqs, seq)
	}
	return seqs, errors.Join(errs...)
}
