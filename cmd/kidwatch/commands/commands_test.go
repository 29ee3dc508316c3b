package commands

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/kidwatch/internal/app"
	"github.com/marmos91/kidwatch/pkg/dispatch"
	"github.com/marmos91/kidwatch/pkg/results"
)

func TestCheckDay(t *testing.T) {
	now := time.Date(2024, 8, 20, 7, 30, 0, 0, time.Local)

	day, err := checkDay("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 8, 19, 0, 0, 0, 0, time.Local), day)

	day, err = checkDay("20240101", now)
	require.NoError(t, err)
	assert.Equal(t, 2024, day.Year())
	assert.Equal(t, time.January, day.Month())

	_, err = checkDay("2024-01-01", now)
	assert.Error(t, err)
}

func TestSelectionFlags(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.csv")
	require.NoError(t, writeVideoList(list, []string{`Front\20240819AM\a.mp4`, `Front\20240819AM\b.mp4`}))

	t.Run("date only", func(t *testing.T) {
		f := selectionFlags{cameras: []string{"front"}, date: "20240819"}
		sel, err := f.selection()
		require.NoError(t, err)
		assert.Equal(t, []string{"front"}, sel.Cameras)
		assert.Empty(t, sel.Paths)
	})

	t.Run("bad date", func(t *testing.T) {
		f := selectionFlags{date: "19/08/2024"}
		_, err := f.selection()
		assert.Error(t, err)
	})

	t.Run("list", func(t *testing.T) {
		f := selectionFlags{listFile: list}
		sel, err := f.selection()
		require.NoError(t, err)
		assert.Len(t, sel.Paths, 2)
	})

	t.Run("empty list", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.csv")
		require.NoError(t, writeVideoList(empty, nil))
		f := selectionFlags{listFile: empty}
		_, err := f.selection()
		assert.ErrorContains(t, err, "lists no videos")
	})

	t.Run("missing list", func(t *testing.T) {
		f := selectionFlags{listFile: filepath.Join(dir, "nope.csv")}
		_, err := f.selection()
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestWriteFile_CreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.csv")
	require.NoError(t, writeVideoList(path, []string{"x.mp4"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), results.ColumnVideoPath)
}

func TestRunSummary(t *testing.T) {
	boom := errors.New("boom")
	r := &app.Report{
		RunID: "run-1",
		Summary: &dispatch.Summary{
			Total: 3, Succeeded: 2, Failed: 1, Workers: 2, Elapsed: 1500 * time.Millisecond,
			Results: []dispatch.Result{{Path: "a"}, {Path: "b", Err: boom}, {Path: "c"}},
		},
		Skipped: 1,
		Bytes:   2048,
	}

	s := newRunSummary(r)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, "1.5s", s.Elapsed)
	require.Len(t, s.Failures, 1)
	assert.Equal(t, failureRecord{Path: "b", Error: "boom"}, s.Failures[0])

	pairs := s.pairs()
	assert.Equal(t, [2]string{"Run", "run-1"}, pairs[0])
	for _, p := range pairs {
		assert.NotEqual(t, "Frames", p[0])
	}

	rows := failureTable(s.Failures).Rows()
	assert.Equal(t, [][]string{{"b", "boom"}}, rows)
}

func TestStatsTable(t *testing.T) {
	rows := statsTable{
		{CameraType: "front", CameraName: "Front door", Total: 4, WithChild: 1},
		{CameraType: "garden", Total: 0},
	}.Rows()

	assert.Equal(t, []string{"front", "Front door", "4", "1", "25.0%"}, rows[0])
	assert.Equal(t, "0.0%", rows[1][4])
}

func TestCheckTable(t *testing.T) {
	rows := checkTable{
		{Camera: "Front", Date: "20240819", Count: 12, Status: app.StatusOK},
		{Camera: "Garden", Date: "20240819", Status: app.StatusRecovered, NextDayCount: 3},
		{Camera: "Hall", Date: "20240819", Status: app.StatusMissing, LastDate: "20240810", LastCount: 5, Notified: true},
		{Camera: "Yard", Date: "20240819", Status: app.StatusMissing, NotifyError: "timeout"},
	}.Rows()

	assert.Equal(t, []string{"Front", "20240819", "12", "ok", "", "", ""}, rows[0])
	assert.Equal(t, []string{"Garden", "20240819", "0", "recovered", "next day", "3", ""}, rows[1])
	assert.Equal(t, []string{"Hall", "20240819", "0", "missing", "20240810", "5", "true"}, rows[2])
	assert.Equal(t, "not found", rows[3][4])
	assert.Equal(t, "failed", rows[3][6])
}

func TestSampleTable(t *testing.T) {
	rows := sampleTable{{Camera: "front", Available: 10, Videos: []string{"a", "b"}}}.Rows()
	assert.Equal(t, [][]string{{"front", "10", "2"}}, rows)
}
