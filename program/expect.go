package program

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/sarchlab/rvhazard/hazard"
	"github.com/sarchlab/rvhazard/insts"
)

// ExpectFile is the expectation artifact a testbench reads next to the
// image. Addresses and values are hex strings so that 64-bit values
// survive JSON readers that use floating point.
type ExpectFile struct {
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	Category        string        `json:"category"`
	LoadAddress     string        `json:"load_address"`
	TerminalAddress string        `json:"terminal_address"`
	ResultRegister  string        `json:"result_register"`
	PassCode        string        `json:"pass_code"`
	Words           int           `json:"words"`
	Expectations    []ExpectEntry `json:"expectations"`
}

// ExpectEntry is one register expectation.
type ExpectEntry struct {
	Register string `json:"register"`
	Value    string `json:"value"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Note     string `json:"note,omitempty"`
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

// ExpectFile returns the expectation artifact of the program.
func (p *Program) ExpectFile() *ExpectFile {
	f := &ExpectFile{
		Name:            p.Name(),
		Description:     p.Sequence.Description,
		Category:        p.Sequence.Category.String(),
		LoadAddress:     hex(p.Entry),
		TerminalAddress: hex(p.Terminal),
		ResultRegister:  p.Protocol.Result.String(),
		PassCode:        hex(p.Protocol.PassCode),
		Words:           len(p.Image.Words),
	}

	for _, e := range p.Sequence.Expectations() {
		f.Expectations = append(f.Expectations, ExpectEntry{
			Register: e.Reg.String(),
			Value:    hex(e.Value),
			Kind:     e.Kind.String(),
			Category: e.Category.String(),
			Note:     e.Note,
		})
	}

	return f
}

// Marshal encodes the file as indented JSON.
func (f *ExpectFile) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize expectations: %w", err)
	}
	return append(data, '\n'), nil
}

// ReadExpectFile reads an expectation artifact.
func ReadExpectFile(path string) (*ExpectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read expectation file: %w", err)
	}

	f := &ExpectFile{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse expectation file: %w", err)
	}
	return f, nil
}

// Typed converts the entries back into typed expectations.
func (f *ExpectFile) Typed() ([]hazard.Expectation, error) {
	out := make([]hazard.Expectation, 0, len(f.Expectations))
	for _, e := range f.Expectations {
		reg, ok := insts.ParseReg(e.Register)
		if !ok {
			return nil, fmt.Errorf("expectation register %q: %w", e.Register, insts.ErrInvalidRegister)
		}
		value, err := strconv.ParseUint(e.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("expectation value %q: %w", e.Value, err)
		}
		kind, err := hazard.ParseExpectKind(e.Kind)
		if err != nil {
			return nil, err
		}
		category, err := hazard.ParseCategory(e.Category)
		if err != nil {
			return nil, err
		}
		out = append(out, hazard.Expectation{
			Reg:      reg,
			Value:    value,
			Kind:     kind,
			Category: category,
			Note:     e.Note,
		})
	}
	return out, nil
}
