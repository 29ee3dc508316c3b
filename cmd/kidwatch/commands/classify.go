package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/internal/app"
	"github.com/marmos91/kidwatch/internal/cli/output"
	"github.com/marmos91/kidwatch/internal/cli/timeutil"
	"github.com/marmos91/kidwatch/pkg/results"
)

var (
	classifySel    selectionFlags
	classifyReport string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Detect children in recordings",
	Long: `Run person detection on sampled frames of each video and record whether
a child appears, using the thresholds of the camera whose folder is in the
video path.

Outcomes are saved to the results database and written as a CSV report
(default: <output_dir>/classification_<today>.csv). Per-camera totals are
printed at the end.

Examples:
  # Classify a sample list
  kidwatch classify -l sample_list.csv

  # Classify one day and write the report elsewhere
  kidwatch classify -c garden -d 20240819 --report garden.csv`,
	RunE: runClassify,
}

func init() {
	classifySel.register(classifyCmd)
	classifyCmd.Flags().StringVar(&classifyReport, "report", "", "CSV report path")
}

// classifyOutput is the structured form of a classification run.
type classifyOutput struct {
	runSummary `yaml:",inline"`
	Report     string                `json:"report" yaml:"report"`
	Stats      []results.CameraStats `json:"stats" yaml:"stats"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	sel, err := classifySel.selection()
	if err != nil {
		return err
	}
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	ctx, rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if _, err := rt.openResults(); err != nil {
		return err
	}
	rt.useClassifier()

	a := rt.newApp()
	paths, err := a.Select(ctx, sel)
	if err != nil {
		return err
	}
	showProgress(cmd, a, app.CommandClassify)

	report, runErr := a.Classify(ctx, paths)
	if report == nil {
		return runErr
	}

	reportPath := classifyReport
	if reportPath == "" {
		reportPath = filepath.Join(rt.cfg.OutputDir, fmt.Sprintf("classification_%s.csv", timeutil.Today()))
	}
	if err := writeFile(reportPath, func(f *os.File) error {
		return results.WriteReport(f, report.Records)
	}); err != nil {
		return fmt.Errorf("write report %s: %w", reportPath, err)
	}

	if p.Structured() {
		if err := p.Print(classifyOutput{
			runSummary: newRunSummary(report.Report),
			Report:     reportPath,
			Stats:      report.Stats,
		}); err != nil {
			return err
		}
		return runErr
	}

	if err := printReport(p, report.Report); err != nil {
		return err
	}
	p.Printf("\nReport: %s\n\n", reportPath)
	if len(report.Stats) > 0 {
		if err := output.PrintTable(p.Writer(), statsTable(report.Stats)); err != nil {
			return err
		}
	}
	return runErr
}
