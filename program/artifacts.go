package program

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file extensions.
const (
	ExtHex     = ".hex"
	ExtBin     = ".bin"
	ExtListing = ".lst"
	ExtExpect  = ".expect.json"
)

// Render returns the contents of every artifact keyed by extension.
func (p *Program) Render() (map[string][]byte, error) {
	var hexBuf, binBuf, lstBuf bytes.Buffer

	if err := p.Image.WriteHex(&hexBuf); err != nil {
		return nil, err
	}
	if err := p.Image.WriteBinary(&binBuf); err != nil {
		return nil, err
	}
	if err := p.writeListing(&lstBuf); err != nil {
		return nil, err
	}
	expect, err := p.ExpectFile().Marshal()
	if err != nil {
		return nil, err
	}

	return map[string][]byte{
		ExtHex:     hexBuf.Bytes(),
		ExtBin:     binBuf.Bytes(),
		ExtListing: lstBuf.Bytes(),
		ExtExpect:  expect,
	}, nil
}

func (p *Program) writeListing(buf *bytes.Buffer) error {
	fmt.Fprintf(buf, "# %s (%s)\n", p.Name(), p.Sequence.Category)
	if p.Sequence.Description != "" {
		fmt.Fprintf(buf, "# %s\n", p.Sequence.Description)
	}
	fmt.Fprintf(buf, "# result %s, pass 0x%x, terminal 0x%08x\n\n",
		p.Protocol.Result, p.Protocol.PassCode, p.Terminal)
	return p.Image.WriteListing(buf)
}

// WriteArtifacts writes <name>.hex, .bin, .lst and .expect.json into dir
// and returns the paths written. Nothing is left behind if a write fails.
func (p *Program) WriteArtifacts(dir string) ([]string, error) {
	files, err := p.Render()
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", p.Name(), err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for _, ext := range []string{ExtHex, ExtBin, ExtListing, ExtExpect} {
		path := filepath.Join(dir, p.Name()+ext)
		if err := os.WriteFile(path, files[ext], 0644); err != nil {
			for _, w := range written {
				_ = os.Remove(w)
			}
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}

	return written, nil
}
