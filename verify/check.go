package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarchlab/rvhazard/hazard"
	"github.com/sarchlab/rvhazard/program"
	"github.com/sarchlab/rvhazard/protocol"
)

// Status is the verdict on one expectation.
type Status uint8

// Statuses.
const (
	StatusPass Status = iota
	StatusFail
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "FAIL"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// CheckOptions controls how expectations are judged.
type CheckOptions struct {
	// Architectural marks the engine as one that executes each instruction
	// to completion before the next, such as the golden model. Such an
	// engine cannot leak shadow writes, so leak expectations are skipped.
	Architectural bool
}

// Result is the verdict on one expectation.
type Result struct {
	Expectation hazard.Expectation
	Got         uint64
	Status      Status
}

// Report is the outcome of checking one program.
type Report struct {
	Program  string
	Category hazard.Category
	State    State

	// Outcome is the status the program signaled in the result register.
	Outcome protocol.Outcome

	Results []Result
}

// OK reports whether no expectation failed.
func (r *Report) OK() bool {
	return r.Count(StatusFail) == 0
}

// Count returns the number of results with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Failures returns the failed results.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == StatusFail {
			out = append(out, res)
		}
	}
	return out
}

// Check compares the final state with the program's expectations.
func Check(p *program.Program, state State, opts CheckOptions) *Report {
	report := &Report{
		Program:  p.Name(),
		Category: p.Sequence.Category,
		State:    state,
		Outcome:  p.Protocol.Interpret(state.Reg(p.Protocol.Result)),
	}

	for _, e := range p.Sequence.Expectations() {
		got := state.Reg(e.Reg)

		res := Result{Expectation: e, Got: got, Status: StatusPass}
		switch {
		case e.Kind == hazard.ExpectLeak && opts.Architectural:
			res.Status = StatusSkipped
		case got != e.Value:
			res.Status = StatusFail
		}
		report.Results = append(report.Results, res)
	}

	return report
}

// Run executes p and checks the result.
func Run(ctx context.Context, exec Executor, p *program.Program, opts CheckOptions) (*Report, error) {
	state, err := exec.Execute(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", p.Name(), err)
	}
	return Check(p, state, opts), nil
}

// RunAll runs every program in order. Programs that fail to execute are
// left out of the reports and their errors joined. It stops early if ctx
// is cancelled.
func RunAll(ctx context.Context, exec Executor, programs []*program.Program, opts CheckOptions) ([]*Report, error) {
	var (
		reports []*Report
		errs    []error
	)

	for _, p := range programs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		report, err := Run(ctx, exec, p, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, report)
	}

	return reports, errors.Join(errs...)
}
