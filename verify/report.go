package verify

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/rvhazard/insts"
)

// WriteReport writes one row per expectation and a summary footer.
func WriteReport(w io.Writer, reports []*Report, style table.Style) error {
	t := table.NewWriter()
	t.SetStyle(style)
	t.AppendHeader(table.Row{"Program", "Category", "Reg", "Kind", "Expected", "Got", "Status", "Note"})

	passed, failed, skipped := 0, 0, 0
	for _, r := range reports {
		for _, res := range r.Results {
			e := res.Expectation
			t.AppendRow(table.Row{
				r.Program,
				e.Category,
				e.Reg.ABIName(),
				e.Kind,
				fmt.Sprintf("0x%x", e.Value),
				fmt.Sprintf("0x%x", res.Got),
				res.Status,
				e.Note,
			})
		}
		passed += r.Count(StatusPass)
		failed += r.Count(StatusFail)
		skipped += r.Count(StatusSkipped)
		t.AppendSeparator()
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d programs", len(reports)), "", "", "", "", "",
		fmt.Sprintf("%d pass / %d fail / %d skipped", passed, failed, skipped),
	})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// WriteRegisters writes the register file of a state, four registers per
// row.
func WriteRegisters(w io.Writer, title string, state State, style table.Style) error {
	t := table.NewWriter()
	t.SetStyle(style)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Reg", "Value", "Reg", "Value", "Reg", "Value", "Reg", "Value"})

	const perRow = 4
	for i := 0; i < insts.NumRegs; i += perRow {
		row := make(table.Row, 0, 2*perRow)
		for j := i; j < i+perRow; j++ {
			r := insts.Reg(j)
			row = append(row,
				fmt.Sprintf("%s/%s", r, r.ABIName()),
				fmt.Sprintf("0x%016x", state.Regs[j]),
			)
		}
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{"pc", fmt.Sprintf("0x%x", state.PC), "steps", state.Steps})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
