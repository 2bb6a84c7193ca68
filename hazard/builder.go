package hazard

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/boot"
	"github.com/sarchlab/rvhazard/config"
	"github.com/sarchlab/rvhazard/insts"
	"github.com/sarchlab/rvhazard/protocol"
)

// Builder assembles a Sequence step by step. Methods record any problem
// they hit instead of returning it, and Build reports every recorded
// problem together.
//
//	seq, err := hazard.NewBuilder(cfg, "arith-add", hazard.General).
//		LI(5, 10).
//		LI(6, 20).
//		Inst(insts.R(insts.OpADD, 7, 5, 6)).
//		Expect(7, 30, "10 + 20").
//		Pass().
//		Halt().
//		Build()
type Builder struct {
	cfg   *config.Config
	proto protocol.Protocol
	seq   *Sequence
	errs  []error
}

// NewBuilder starts a sequence named name that targets category. The entry
// label from cfg is placed first.
func NewBuilder(cfg *config.Config, name string, category Category) *Builder {
	return &Builder{
		cfg:   cfg,
		proto: protocol.New(cfg),
		seq: &Sequence{
			Name:     name,
			Category: category,
			Entry:    cfg.EntryLabel,
			Items:    []asm.Item{asm.L(cfg.EntryLabel)},
			Expect:   make(map[insts.Reg]Expectation),
			Terminal: -1,
		},
	}
}

// Describe sets the human-readable description.
func (b *Builder) Describe(text string) *Builder {
	b.seq.Description = text
	return b
}

// Label places a label before the next instruction.
func (b *Builder) Label(name string) *Builder {
	b.seq.Items = append(b.seq.Items, asm.L(name))
	return b
}

// Inst appends an instruction.
func (b *Builder) Inst(inst insts.Instruction) *Builder {
	b.seq.Items = append(b.seq.Items, asm.In(inst))
	return b
}

// Items appends prepared items.
func (b *Builder) Items(items ...asm.Item) *Builder {
	b.seq.Items = append(b.seq.Items, items...)
	return b
}

// Note annotates the most recent instruction.
func (b *Builder) Note(text string) *Builder {
	for i := len(b.seq.Items) - 1; i >= 0; i-- {
		if !b.seq.Items[i].IsLabel() {
			b.seq.Items[i].Note = text
			return b
		}
	}
	b.errs = append(b.errs, fmt.Errorf("note %q has no instruction to annotate", text))
	return b
}

// LI appends the expansion of "li rd, value".
func (b *Builder) LI(rd insts.Reg, value int64) *Builder {
	return b.Items(asm.LIItems(rd, value)...)
}

// Raw appends a raw-form instruction.
func (b *Builder) Raw(opcode, funct3, funct7 uint8, rd, rs1, rs2 insts.Reg) *Builder {
	return b.Inst(insts.Raw(opcode, funct3, funct7, rd, rs1, rs2))
}

// Expect records the correct final value of reg, attributed to the
// sequence's category.
func (b *Builder) Expect(reg insts.Reg, value uint64, note string) *Builder {
	return b.ExpectIn(b.seq.Category, reg, value, note)
}

// ExpectIn records the correct final value of reg, attributed to category.
func (b *Builder) ExpectIn(category Category, reg insts.Reg, value uint64, note string) *Builder {
	return b.expect(Expectation{
		Reg:      reg,
		Value:    value,
		Kind:     ExpectCorrect,
		Category: category,
		Note:     note,
	})
}

// ExpectLeak records the value reg holds if a squashed instruction leaks
// its write.
func (b *Builder) ExpectLeak(reg insts.Reg, value uint64, note string) *Builder {
	return b.ExpectLeakIn(b.seq.Category, reg, value, note)
}

// ExpectLeakIn is ExpectLeak attributed to category.
func (b *Builder) ExpectLeakIn(category Category, reg insts.Reg, value uint64, note string) *Builder {
	return b.expect(Expectation{
		Reg:      reg,
		Value:    value,
		Kind:     ExpectLeak,
		Category: category,
		Note:     note,
	})
}

func (b *Builder) expect(e Expectation) *Builder {
	if !e.Reg.Valid() || e.Reg == insts.X0 {
		b.errs = append(b.errs, fmt.Errorf("expectation on %s: %w", e.Reg, insts.ErrInvalidRegister))
		return b
	}
	if prev, dup := b.seq.Expect[e.Reg]; dup && prev != e {
		b.errs = append(b.errs, fmt.Errorf("conflicting expectations on %s: 0x%x and 0x%x",
			e.Reg, prev.Value, e.Value))
		return b
	}
	b.seq.Expect[e.Reg] = e
	return b
}

// Pass signals PASS and expects the pass code in the result register.
func (b *Builder) Pass() *Builder {
	b.Items(b.proto.Pass()...)
	return b.ExpectIn(General, b.proto.Result, b.proto.PassCode, "pass code")
}

// Fail signals failure with code and expects it in the result register.
func (b *Builder) Fail(code uint64) *Builder {
	items, err := b.proto.Fail(code)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.Items(items...)
	return b.ExpectIn(General, b.proto.Result, code, "failure code")
}

// Halt appends the terminal idiom.
func (b *Builder) Halt() *Builder {
	return b.Items(b.proto.Terminal()...)
}

// Scratch records a data address the sequence stores to.
func (b *Builder) Scratch(addr uint64) *Builder {
	b.seq.Scratch = append(b.seq.Scratch, addr)
	return b
}

// Build validates and returns the sequence.
//
// Every instruction must encode when placed at the load address, every
// control path must reach exactly one terminal instruction, no register
// may be read before it is written, the result register must be expected,
// and the sequence must exercise its declared category.
func (b *Builder) Build() (*Sequence, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("sequence %q: %w", b.seq.Name, errors.Join(b.errs...))
	}

	seq := b.seq
	if err := Validate(b.cfg, seq); err != nil {
		return nil, err
	}

	b.seq = nil
	return seq, nil
}

// Validate checks a sequence and records its terminal index. It is run by
// Build and by anything that constructs a Sequence directly.
func Validate(cfg *config.Config, seq *Sequence) error {
	if seq.Name == "" {
		return fmt.Errorf("sequence has no name")
	}
	if len(seq.Items) == 0 || !seq.Items[0].IsLabel() || seq.Items[0].Label != seq.Entry {
		return fmt.Errorf("sequence %q: must start with its entry label %q", seq.Name, seq.Entry)
	}

	if _, err := asm.Assemble(cfg.LoadAddress, seq.Items); err != nil {
		return fmt.Errorf("sequence %q: %w", seq.Name, err)
	}

	terminal, err := asm.CheckTermination(seq.Items)
	if err != nil {
		return fmt.Errorf("sequence %q: %w", seq.Name, err)
	}
	seq.Terminal = terminal

	// Only what the boot preamble writes is defined before the entry.
	written := boot.Writes(boot.Preamble(cfg, seq.Entry))
	if err := asm.CheckInitialized(seq.Items, written...); err != nil {
		return fmt.Errorf("sequence %q: %w", seq.Name, err)
	}

	if _, ok := seq.Expect[insts.Reg(cfg.ResultRegister)]; !ok {
		return fmt.Errorf("sequence %q: %w", seq.Name, ErrNoSignal)
	}

	for r := range seq.Expect {
		if !r.Valid() || r == insts.X0 {
			return fmt.Errorf("sequence %q: expectation on %s: %w", seq.Name, r, insts.ErrInvalidRegister)
		}
	}

	for _, addr := range seq.Scratch {
		if addr < cfg.LoadAddress || addr+8 > cfg.LoadAddress+cfg.MemorySize {
			return fmt.Errorf("sequence %q: scratch address 0x%x outside memory", seq.Name, addr)
		}
	}

	analysis := NewAnalyzer().Analyze(seq.Items)
	if !analysis.Exercises(seq.Category) {
		return &PatternError{
			Sequence: seq.Name,
			Category: seq.Category,
			Detail:   "no matching hazard in the instruction stream",
		}
	}

	return nil
}
