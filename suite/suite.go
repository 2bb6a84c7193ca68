// Package suite loads hazard sequences described as structured YAML data.
//
// A suite file lists sequences; each sequence body is a list of steps, one
// instruction, pseudo-instruction or label per step:
//
//	sequences:
//	  - name: arith-add
//	    category: general
//	    body:
//	      - {op: li, rd: x5, imm: 10}
//	      - {op: li, rd: x6, imm: 20}
//	      - {op: add, rd: x7, rs1: x5, rs2: x6, note: "10 + 20"}
//	    expect:
//	      - {reg: x7, value: 30}
//
// Every sequence ends by signaling PASS (or the failure code given in
// "fail") and entering the terminal loop; the body must not do either.
package suite

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/config"
	"github.com/sarchlab/rvhazard/hazard"
	"github.com/sarchlab/rvhazard/insts"
)

// File is a parsed suite file.
type File struct {
	Sequences []SequenceDoc `yaml:"sequences"`
}

// SequenceDoc describes one sequence.
type SequenceDoc struct {
	Name        string      `yaml:"name"`
	Category    string      `yaml:"category"`
	Description string      `yaml:"description"`
	Body        []Step      `yaml:"body"`
	Expect      []ExpectDoc `yaml:"expect"`

	// Fail makes the sequence signal this failure code instead of PASS.
	Fail *Value `yaml:"fail"`
}

// Step is one body element.
type Step struct {
	Label  string     `yaml:"label"`
	Op     string     `yaml:"op"`
	Rd     Reg        `yaml:"rd"`
	Rs1    Reg        `yaml:"rs1"`
	Rs2    Reg        `yaml:"rs2"`
	Imm    Value      `yaml:"imm"`
	Target string     `yaml:"target"`
	Raw    *RawFields `yaml:"raw"`
	Note   string     `yaml:"note"`
}

// RawFields are the fixed fields of a raw-form instruction.
type RawFields struct {
	Opcode Value `yaml:"opcode"`
	Funct3 Value `yaml:"funct3"`
	Funct7 Value `yaml:"funct7"`
}

// ExpectDoc is one expected register value.
type ExpectDoc struct {
	Reg      Reg    `yaml:"reg"`
	Value    Value  `yaml:"value"`
	Kind     string `yaml:"kind"`
	Category string `yaml:"category"`
	Note     string `yaml:"note"`
}

// Reg is a register given by name (x5, t0) or number.
type Reg insts.Reg

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Reg) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: register must be a scalar", node.Line)
	}

	if n, err := strconv.ParseUint(node.Value, 0, 8); err == nil {
		*r = Reg(n)
		return nil
	}

	reg, ok := insts.ParseReg(node.Value)
	if !ok {
		return fmt.Errorf("line %d: register %q: %w", node.Line, node.Value, insts.ErrInvalidRegister)
	}
	*r = Reg(reg)
	return nil
}

// Value is a 64-bit integer in any strconv base. Values above the signed
// range are kept as their two's complement bit pattern.
type Value int64

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: value must be a scalar", node.Line)
	}

	s := strings.ReplaceAll(node.Value, "_", "")
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		*v = Value(n)
		return nil
	}
	u, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return fmt.Errorf("line %d: invalid value %q", node.Line, node.Value)
	}
	*v = Value(int64(u))
	return nil
}

// Parse decodes a suite file. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	f := &File{}
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}
	return f, nil
}

// Load reads and parses a suite file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	return Parse(data)
}

// Build builds every sequence. Sequences that fail are left out and their
// errors joined.
func (f *File) Build(cfg *config.Config) ([]*hazard.Sequence, error) {
	var (
		seqs []*hazard.Sequence
		errs []error
	)
	seen := make(map[string]bool)

	for i := range f.Sequences {
		doc := &f.Sequences[i]
		if seen[doc.Name] {
			errs = append(errs, fmt.Errorf("sequence %q defined twice", doc.Name))
			continue
		}
		seen[doc.Name] = true

		seq, err := doc.Build(cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seqs = append(seqs, seq)
	}

	return seqs, errors.Join(errs...)
}

// Build turns the description into a validated sequence.
func (d *SequenceDoc) Build(cfg *config.Config) (*hazard.Sequence, error) {
	category, err := hazard.ParseCategory(d.Category)
	if err != nil {
		return nil, fmt.Errorf("sequence %q: %w", d.Name, err)
	}

	b := hazard.NewBuilder(cfg, d.Name, category).Describe(d.Description)

	for i, step := range d.Body {
		items, err := step.Items()
		if err != nil {
			return nil, fmt.Errorf("sequence %q: step %d: %w", d.Name, i, err)
		}
		b.Items(items...)
	}

	for _, e := range d.Expect {
		kind, err := hazard.ParseExpectKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("sequence %q: %w", d.Name, err)
		}

		expCategory := category
		if e.Category != "" {
			if expCategory, err = hazard.ParseCategory(e.Category); err != nil {
				return nil, fmt.Errorf("sequence %q: %w", d.Name, err)
			}
		}

		if kind == hazard.ExpectLeak {
			b.ExpectLeakIn(expCategory, insts.Reg(e.Reg), uint64(e.Value), e.Note)
		} else {
			b.ExpectIn(expCategory, insts.Reg(e.Reg), uint64(e.Value), e.Note)
		}
	}

	if d.Fail != nil {
		b.Fail(uint64(*d.Fail))
	} else {
		b.Pass()
	}

	return b.Halt().Build()
}

// Items converts a step into sequence items.
func (s Step) Items() ([]asm.Item, error) {
	if s.Label != "" {
		if s.Op != "" {
			return nil, fmt.Errorf("label %q must be a step of its own", s.Label)
		}
		return []asm.Item{asm.L(s.Label)}, nil
	}

	rd, rs1, rs2 := insts.Reg(s.Rd), insts.Reg(s.Rs1), insts.Reg(s.Rs2)
	imm := int64(s.Imm)

	note := func(items []asm.Item) []asm.Item {
		if s.Note != "" && len(items) > 0 {
			items[0].Note = s.Note
		}
		return items
	}
	one := func(inst insts.Instruction) ([]asm.Item, error) {
		return note([]asm.Item{asm.In(inst)}), nil
	}

	switch strings.ToLower(s.Op) {
	case "":
		return nil, fmt.Errorf("step has neither op nor label")
	case "li":
		return note(asm.LIItems(rd, imm)), nil
	case "nop":
		return one(insts.NOP())
	case "mv":
		return one(asm.MV(rd, rs1))
	case "j":
		return one(asm.J(s.Target))
	case "ret":
		return one(insts.JALR(insts.X0, insts.RA, 0))
	case "raw":
		if s.Raw == nil {
			return nil, fmt.Errorf("raw step needs opcode, funct3 and funct7")
		}
		inst, err := s.raw(rd, rs1, rs2)
		if err != nil {
			return nil, err
		}
		return one(inst)
	}

	op, ok := insts.LookupOp(strings.ToLower(s.Op))
	if !ok || op == insts.OpRaw {
		return nil, fmt.Errorf("unknown operation %q", s.Op)
	}

	switch op.Format() {
	case insts.FormatR:
		return one(insts.R(op, rd, rs1, rs2))
	case insts.FormatI, insts.FormatShift:
		return one(insts.I(op, rd, rs1, imm))
	case insts.FormatS:
		return one(insts.Store(op, rs2, rs1, imm))
	case insts.FormatB:
		if s.Target != "" {
			return one(insts.Branch(op, rs1, rs2, s.Target))
		}
		return one(insts.BranchOffset(op, rs1, rs2, imm))
	case insts.FormatU:
		return one(insts.Instruction{Op: op, Rd: rd, Imm: imm})
	case insts.FormatJ:
		if s.Target != "" {
			return one(insts.JAL(rd, s.Target))
		}
		return one(insts.JALOffset(rd, imm))
	}

	return nil, fmt.Errorf("unsupported operation %q", s.Op)
}

// raw builds the raw-form instruction, rejecting fields wider than their
// encoding with the value as written.
func (s Step) raw(rd, rs1, rs2 insts.Reg) (insts.Instruction, error) {
	fields := []struct {
		name  string
		value Value
		max   Value
	}{
		{"opcode", s.Raw.Opcode, 0x7F},
		{"funct3", s.Raw.Funct3, 0x7},
		{"funct7", s.Raw.Funct7, 0x7F},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > f.max {
			return insts.Instruction{}, &insts.EncodingError{
				Kind:  insts.FieldOverflow,
				Index: -1,
				Op:    insts.OpRaw,
				Field: f.name,
				Value: int64(f.value),
			}
		}
	}
	return insts.Raw(uint8(s.Raw.Opcode), uint8(s.Raw.Funct3), uint8(s.Raw.Funct7), rd, rs1, rs2), nil
}
