package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/internal/app"
	"github.com/marmos91/kidwatch/internal/cli/prompt"
)

var (
	extractSel     selectionFlags
	extractClean   bool
	extractForce   bool
	extractYes     bool
	extractQuality int
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract sampled frames as JPEG",
	Long: `Decode videos and store one frame per camera sample_interval as JPEG
under frames/<video>/frame_<n>.jpg in the sink.

--clean deletes every previously extracted frame first and asks for
confirmation unless --yes is given.

Examples:
  # Extract frames from a day of the garden camera
  kidwatch extract -c garden -d 20240819

  # Start over from an empty frames folder
  kidwatch extract -l sample_list.csv --clean --yes`,
	RunE: runExtract,
}

func init() {
	extractSel.register(extractCmd)
	extractCmd.Flags().BoolVar(&extractClean, "clean", false, "delete previously extracted frames first")
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "re-extract videos already processed")
	extractCmd.Flags().BoolVarP(&extractYes, "yes", "y", false, "do not ask before --clean")
	extractCmd.Flags().IntVar(&extractQuality, "quality", 0, "JPEG quality 1-100 (default 90)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractQuality < 0 || extractQuality > 100 {
		return fmt.Errorf("--quality must be between 1 and 100")
	}
	sel, err := extractSel.selection()
	if err != nil {
		return err
	}
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	if extractClean {
		ok, err := prompt.ConfirmWithForce("Delete all previously extracted frames", extractYes)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if !ok {
			p.Printf("Aborted.\n")
			return nil
		}
	}

	ctx, rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if err := rt.openSink(ctx); err != nil {
		return err
	}
	if err := rt.openLedger(); err != nil {
		return err
	}
	rt.useDecoder()

	a := rt.newApp()
	paths, err := a.Select(ctx, sel)
	if err != nil {
		return err
	}
	showProgress(cmd, a, app.CommandExtract)

	report, runErr := a.Extract(ctx, paths, app.ExtractOptions{
		Clean:   extractClean,
		Force:   extractForce,
		Quality: extractQuality,
	})
	if err := printReport(p, report); err != nil {
		return err
	}
	return runErr
}
