package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listSel selectionFlags
	listCSV string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recordings on the share",
	Long: `List the video files of one or more cameras.

With --date only that day's recording folders are listed; without it the
whole camera folder is walked. --csv also writes the paths as a
video_path CSV usable with --list.

Examples:
  # List today's front door videos
  kidwatch list -c front -d 20240819

  # Save every garden video to a list
  kidwatch list -c garden --csv garden.csv`,
	RunE: runList,
}

func init() {
	listSel.register(listCmd)
	listCmd.Flags().StringVar(&listCSV, "csv", "", "also write the paths to this CSV file")
}

func runList(cmd *cobra.Command, args []string) error {
	sel, err := listSel.selection()
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

	paths, err := rt.newApp().Select(ctx, sel)
	if err != nil {
		return err
	}

	if listCSV != "" {
		if err := writeVideoList(listCSV, paths); err != nil {
			return fmt.Errorf("write %s: %w", listCSV, err)
		}
	}

	if len(paths) == 0 {
		p.Warning("No videos found")
		return nil
	}
	if err := p.Print(videoList(paths)); err != nil {
		return err
	}
	p.Printf("\n%d videos\n", len(paths))
	return nil
}
