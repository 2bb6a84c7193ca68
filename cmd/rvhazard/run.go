package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/config"
	"github.com/sarchlab/rvhazard/emu"
	"github.com/sarchlab/rvhazard/hazard"
	"github.com/sarchlab/rvhazard/loader"
	"github.com/sarchlab/rvhazard/program"
	"github.com/sarchlab/rvhazard/protocol"
	"github.com/sarchlab/rvhazard/suite"
	"github.com/sarchlab/rvhazard/verify"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitBadArgs = 2
)

type options struct {
	ConfigPath string
	SuitePaths []string
	OutDir     string
	Check      bool
	Only       []string
	NoCatalog  bool
	List       bool
	Disasm     string
	Run        string
	Style      table.Style
}

// run executes one invocation and returns the process exit code. Problems
// with individual sequences are logged and make the exit code non-zero;
// the remaining sequences are still built.
func run(ctx context.Context, opts options, w io.Writer) int {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return exitBadArgs
	}

	switch {
	case opts.List:
		return listCatalog(w, opts.Style)
	case opts.Disasm != "":
		return disassemble(cfg, opts.Disasm, w)
	case opts.Run != "":
		return runArtifact(ctx, cfg, opts.Run, w, opts.Style)
	}

	seqs, failed := collect(cfg, opts)

	seqs, err = filter(seqs, opts.Only)
	if err != nil {
		slog.Error("cannot select sequences", "error", err)
		return exitBadArgs
	}
	if len(seqs) == 0 {
		slog.Error("no sequences to build")
		return exitFailed
	}

	var programs []*program.Program
	for _, seq := range seqs {
		p, err := program.Build(cfg, seq)
		if err != nil {
			slog.Error("failed to build program", "sequence", seq.Name, "error", err)
			failed = true
			continue
		}

		paths, err := p.WriteArtifacts(opts.OutDir)
		if err != nil {
			slog.Error("failed to write artifacts", "sequence", seq.Name, "error", err)
			failed = true
			continue
		}

		slog.Info("built program",
			"sequence", seq.Name,
			"category", seq.Category,
			"words", len(p.Image.Words),
			"terminal", fmt.Sprintf("0x%x", p.Terminal),
			"path", opts.OutDir)
		for _, path := range paths {
			slog.Debug("wrote artifact", "sequence", seq.Name, "path", path)
		}

		programs = append(programs, p)
	}

	if opts.Check && len(programs) > 0 {
		if !selfCheck(ctx, programs, w, opts.Style) {
			failed = true
		}
	}

	if failed {
		return exitFailed
	}
	return exitOK
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// collect gathers the built-in sequences and those of every suite file.
// Names must be unique across all sources since they name the artifacts.
func collect(cfg *config.Config, opts options) ([]*hazard.Sequence, bool) {
	var (
		seqs   []*hazard.Sequence
		failed bool
	)
	seen := make(map[string]string)

	add := func(source string, list []*hazard.Sequence, err error) {
		if err != nil {
			for _, e := range unwrapJoined(err) {
				slog.Error("invalid sequence", "source", source, "error", e)
			}
			failed = true
		}
		for _, seq := range list {
			if prev, dup := seen[seq.Name]; dup {
				slog.Error("duplicate sequence name", "sequence", seq.Name, "source", source, "first", prev)
				failed = true
				continue
			}
			seen[seq.Name] = source
			seqs = append(seqs, seq)
		}
	}

	if !opts.NoCatalog {
		list, err := hazard.Catalog(cfg)
		add("catalog", list, err)
	}

	for _, path := range opts.SuitePaths {
		f, err := suite.Load(path)
		if err != nil {
			slog.Error("failed to load suite", "path", path, "error", err)
			failed = true
			continue
		}
		list, err := f.Build(cfg)
		add(path, list, err)
	}

	return seqs, failed
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func filter(seqs []*hazard.Sequence, names []string) ([]*hazard.Sequence, error) {
	if len(names) == 0 {
		return seqs, nil
	}

	byName := make(map[string]*hazard.Sequence, len(seqs))
	for _, seq := range seqs {
		byName[seq.Name] = seq
	}

	var (
		out  []*hazard.Sequence
		errs []error
	)
	for _, name := range names {
		seq, ok := byName[name]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown sequence %q", name))
			continue
		}
		out = append(out, seq)
	}
	return out, errors.Join(errs...)
}

func selfCheck(ctx context.Context, programs []*program.Program, w io.Writer, style table.Style) bool {
	reports, err := verify.RunAll(ctx, verify.NewGoldenExecutor(), programs, verify.CheckOptions{Architectural: true})
	ok := err == nil
	if err != nil {
		for _, e := range unwrapJoined(err) {
			slog.Error("golden model run failed", "error", e)
		}
	}

	for _, r := range reports {
		if !r.OK() {
			ok = false
			for _, f := range r.Failures() {
				slog.Error("expectation failed",
					"sequence", r.Program,
					"reg", f.Expectation.Reg,
					"want", fmt.Sprintf("0x%x", f.Expectation.Value),
					"got", fmt.Sprintf("0x%x", f.Got))
			}
		}
	}

	if err := verify.WriteReport(w, reports, style); err != nil {
		slog.Error("failed to write report", "error", err)
		return false
	}
	return ok
}

func listCatalog(w io.Writer, style table.Style) int {
	t := table.NewWriter()
	t.SetStyle(style)
	t.AppendHeader(table.Row{"Name", "Summary"})
	for _, name := range hazard.Names() {
		t.AppendRow(table.Row{name, hazard.Summary(name)})
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return exitFailed
	}
	return exitOK
}

func disassemble(cfg *config.Config, path string, w io.Writer) int {
	img, err := loader.Load(path, cfg.LoadAddress)
	if err != nil {
		slog.Error("failed to load artifact", "path", path, "error", err)
		return exitFailed
	}

	base, words, err := img.Words()
	if err != nil {
		slog.Error("failed to flatten artifact", "path", path, "error", err)
		return exitFailed
	}

	if _, err := asm.Reencode(words); err != nil {
		slog.Warn("artifact does not re-encode identically", "path", path, "error", err)
	}

	if err := asm.Disassemble(base, words).WriteListing(w); err != nil {
		slog.Error("failed to write listing", "error", err)
		return exitFailed
	}
	return exitOK
}

func runArtifact(ctx context.Context, cfg *config.Config, path string, w io.Writer, style table.Style) int {
	img, err := loader.Load(path, cfg.LoadAddress)
	if err != nil {
		slog.Error("failed to load artifact", "path", path, "error", err)
		return exitFailed
	}

	mem := emu.NewMemory(cfg.LoadAddress, cfg.MemorySize)
	if err := img.LoadInto(mem); err != nil {
		slog.Error("artifact does not fit in memory", "path", path, "error", err)
		return exitFailed
	}

	e := emu.NewEmulator(emu.WithMemory(mem), emu.WithMaxSteps(cfg.MaxSteps))
	e.RegFile().PC = img.Entry

	code := exitOK
	if err := e.Run(ctx); err != nil {
		slog.Error("execution stopped", "path", path, "error", err)
		code = exitFailed
	}

	rf := e.RegFile()
	state := verify.State{Regs: rf.X, PC: rf.PC, Steps: e.Steps()}
	if err := verify.WriteRegisters(w, path, state, style); err != nil {
		return exitFailed
	}

	proto := protocol.New(cfg)
	slog.Info("halted",
		"path", path,
		"pc", fmt.Sprintf("0x%x", rf.PC),
		"steps", e.Steps(),
		"outcome", proto.Interpret(state.Reg(proto.Result)))

	return code
}
