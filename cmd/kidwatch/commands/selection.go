package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/internal/app"
	"github.com/marmos91/kidwatch/internal/cli/timeutil"
	"github.com/marmos91/kidwatch/pkg/results"
)

// selectionFlags are the video selection flags shared by batch commands.
type selectionFlags struct {
	cameras  []string
	date     string
	listFile string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.cameras, "camera", "c", nil, "camera name(s) from the config (default: all)")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "recording date as YYYYMMDD")
	cmd.Flags().StringVarP(&f.listFile, "list", "l", "", "CSV file with a video_path column (overrides --camera/--date)")
}

// selection validates the flags and reads the video list if one was given.
func (f *selectionFlags) selection() (app.Selection, error) {
	sel := app.Selection{Cameras: f.cameras, Date: f.date}

	if f.date != "" {
		if _, err := timeutil.ParseDate(f.date); err != nil {
			return sel, err
		}
	}

	if f.listFile != "" {
		paths, err := readVideoList(f.listFile)
		if err != nil {
			return sel, err
		}
		if len(paths) == 0 {
			return sel, fmt.Errorf("%s lists no videos", f.listFile)
		}
		sel.Paths = paths
	}
	return sel, nil
}

func readVideoList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	paths, err := results.ReadVideoList(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return paths, nil
}

func writeVideoList(path string, paths []string) error {
	return writeFile(path, func(f *os.File) error { return results.WriteVideoList(f, paths) })
}

// writeFile creates path and its parent directory and fills it with write.
func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
