// Package program combines the boot preamble and one hazard sequence into
// a loadable program and writes its artifacts.
package program

import (
	"fmt"
	"regexp"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/boot"
	"github.com/sarchlab/rvhazard/config"
	"github.com/sarchlab/rvhazard/hazard"
	"github.com/sarchlab/rvhazard/protocol"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Program is a boot preamble plus one sequence, assembled at the load
// address. It is not modified after Build returns.
type Program struct {
	Config   *config.Config
	Sequence *hazard.Sequence
	Protocol protocol.Protocol

	// Items is the preamble followed by the sequence items.
	Items []asm.Item
	Image *asm.Image

	// Entry is the address of the first instruction.
	Entry uint64
	// Terminal is the address of the terminal instruction.
	Terminal uint64
}

// Name returns the sequence name.
func (p *Program) Name() string {
	return p.Sequence.Name
}

// Build validates cfg and seq and assembles them into a program.
func Build(cfg *config.Config, seq *hazard.Sequence) (*Program, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if !validName.MatchString(seq.Name) {
		return nil, fmt.Errorf("sequence name %q is not usable as a file name", seq.Name)
	}

	cfg = cfg.Clone()
	proto := protocol.New(cfg)

	preamble := boot.Preamble(cfg, seq.Entry)
	for _, r := range boot.Writes(preamble) {
		if r == proto.Result {
			return nil, fmt.Errorf("boot sequence writes the result register %s", r)
		}
	}

	items := make([]asm.Item, 0, len(preamble)+len(seq.Items))
	items = append(items, preamble...)
	items = append(items, seq.Items...)

	img, err := asm.Assemble(cfg.LoadAddress, items)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", seq.Name, err)
	}

	terminalIndex, err := asm.CheckTermination(items)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", seq.Name, err)
	}

	p := &Program{
		Config:   cfg,
		Sequence: seq,
		Protocol: proto,
		Items:    items,
		Image:    img,
		Entry:    cfg.LoadAddress,
	}

	for _, line := range img.Lines {
		if line.Index == terminalIndex {
			p.Terminal = line.Addr
		}
	}

	if err := p.checkLayout(); err != nil {
		return nil, err
	}

	return p, nil
}

// checkLayout verifies that the image fits below the stack top and that no
// data store lands on code.
func (p *Program) checkLayout() error {
	cfg := p.Config
	end := cfg.LoadAddress + p.Image.Size()

	if end > cfg.StackTop {
		return fmt.Errorf("program %q: image ends at 0x%x, above the stack top 0x%x",
			p.Name(), end, cfg.StackTop)
	}

	for _, addr := range p.Sequence.Scratch {
		if addr+8 > cfg.LoadAddress && addr < end {
			return fmt.Errorf("program %q: scratch address 0x%x overlaps the image", p.Name(), addr)
		}
	}

	return nil
}
