package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/internal/app"
)

var (
	downloadSel   selectionFlags
	downloadForce bool
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Copy recordings into the sink",
	Long: `Download videos from the share into the configured sink (local
directory or S3 bucket), keeping their share paths as keys.

Videos already recorded in the ledger or present in the sink are skipped
unless --force is given.

Examples:
  # Download one day of a camera
  kidwatch download -c front -d 20240819

  # Download a saved list with 3 workers
  kidwatch download -l sample_list.csv --workers 3`,
	RunE: runDownload,
}

func init() {
	downloadSel.register(downloadCmd)
	downloadCmd.Flags().BoolVar(&downloadForce, "force", false, "download videos even if already stored")
}

func runDownload(cmd *cobra.Command, args []string) error {
	sel, err := downloadSel.selection()
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

	if err := rt.openSink(ctx); err != nil {
		return err
	}
	if err := rt.openLedger(); err != nil {
		return err
	}

	a := rt.newApp()
	paths, err := a.Select(ctx, sel)
	if err != nil {
		return err
	}
	showProgress(cmd, a, app.CommandDownload)

	report, runErr := a.Download(ctx, paths, app.DownloadOptions{Force: downloadForce})
	if err := printReport(p, report); err != nil {
		return err
	}
	return runErr
}
