package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ColumnVideoPath is the column holding share-relative video paths in every
// CSV this package reads or writes.
const ColumnVideoPath = "video_path"

// TimeLayout formats processed_time in reports.
const TimeLayout = "2006-01-02 15:04:05"

var reportHeader = []string{ColumnVideoPath, "camera_type", "camera_name", "has_child", "processed_time"}

// WriteReport writes classifications as CSV with a header row.
func WriteReport(w io.Writer, rows []Classification) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.VideoPath,
			r.CameraType,
			r.CameraName,
			strconv.FormatBool(r.HasChild),
			r.ProcessedAt.Local().Format(TimeLayout),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVideoList writes paths as a single-column CSV.
func WriteVideoList(w io.Writer, paths []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnVideoPath}); err != nil {
		return err
	}
	for _, p := range paths {
		if err := cw.Write([]string{p}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadVideoList reads the video_path column of a CSV with a header row.
// Extra columns are ignored, so a classification report is also a valid
// video list. Blank paths are skipped.
func ReadVideoList(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("video list is empty")
	}
	if err != nil {
		return nil, err
	}

	col := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == ColumnVideoPath {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("video list has no %s column", ColumnVideoPath)
	}

	var paths []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return paths, nil
		}
		if err != nil {
			return nil, err
		}
		if col >= len(rec) {
			continue
		}
		if p := strings.TrimSpace(rec[col]); p != "" {
			paths = append(paths, p)
		}
	}
}
