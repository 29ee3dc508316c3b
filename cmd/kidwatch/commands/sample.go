package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/internal/app"
)

var (
	sampleCameras []string
	sampleDate    string
	sampleSeed    uint64
	sampleOut     string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw a random video sample per camera",
	Long: `Pick up to sample_size random videos from each camera and write them
as a video_path CSV (default: <output_dir>/sample_list.csv).

The draw is reproducible: the same seed over the same listing picks the
same videos.

Examples:
  # Sample every camera
  kidwatch sample

  # Sample one day of two cameras with another seed
  kidwatch sample -c front,garden -d 20240819 --seed 7`,
	RunE: runSample,
}

func init() {
	sampleCmd.Flags().StringSliceVarP(&sampleCameras, "camera", "c", nil, "camera name(s) from the config (default: all)")
	sampleCmd.Flags().StringVarP(&sampleDate, "date", "d", "", "only sample this recording date (YYYYMMDD)")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", app.DefaultSampleSeed, "random seed")
	sampleCmd.Flags().StringVar(&sampleOut, "out", "", "output CSV path")
}

func runSample(cmd *cobra.Command, args []string) error {
	sel := selectionFlags{cameras: sampleCameras, date: sampleDate}
	if _, err := sel.selection(); err != nil {
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

	groups, err := rt.newApp().Sample(ctx, app.SampleOptions{
		Cameras: sampleCameras,
		Date:    sampleDate,
		Seed:    sampleSeed,
	})
	if err != nil {
		return err
	}

	out := sampleOut
	if out == "" {
		out = filepath.Join(rt.cfg.OutputDir, "sample_list.csv")
	}
	paths := app.SamplePaths(groups)
	if err := writeVideoList(out, paths); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	if err := p.Print(sampleTable(groups)); err != nil {
		return err
	}
	p.Success(fmt.Sprintf("\n%d videos written to %s", len(paths), out))
	return nil
}
