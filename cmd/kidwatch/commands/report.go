package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/internal/app"
	"github.com/marmos91/kidwatch/internal/cli/output"
	"github.com/marmos91/kidwatch/pkg/dispatch"
)

// showProgress redraws a one-line counter on stderr after every batch when
// stderr is a terminal. The dispatcher logs progress itself, so nothing is
// printed otherwise.
func showProgress(cmd *cobra.Command, a *app.App, command string) {
	if fi, err := os.Stderr.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return
	}
	w := cmd.ErrOrStderr()
	a.OnProgress(func(p dispatch.Progress) {
		fmt.Fprintf(w, "\r%s: %d/%d (%.0f%%) failed %d", command, p.Processed, p.Total, p.Percent(), p.Failed)
		if p.Processed == p.Total {
			fmt.Fprintln(w)
		}
	})
}

// printReport writes a run summary. A nil report prints nothing.
func printReport(p *output.Printer, r *app.Report) error {
	if r == nil {
		return nil
	}
	s := newRunSummary(r)
	if p.Structured() {
		return p.Print(s)
	}
	if err := output.PrintKeyValues(p.Writer(), s.pairs()); err != nil {
		return err
	}
	if len(s.Failures) > 0 {
		p.Printf("\n")
		p.Warning("Failed items:")
		return output.PrintTable(p.Writer(), failureTable(s.Failures))
	}
	return nil
}
