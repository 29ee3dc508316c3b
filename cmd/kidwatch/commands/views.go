package commands

import (
	"fmt"
	"strconv"

	"github.com/marmos91/kidwatch/internal/app"
	"github.com/marmos91/kidwatch/internal/bytesize"
	"github.com/marmos91/kidwatch/internal/cli/timeutil"
	"github.com/marmos91/kidwatch/pkg/results"
)

// videoList renders share paths.
type videoList []string

func (v videoList) Headers() []string { return []string{"VIDEO_PATH"} }

func (v videoList) Rows() [][]string {
	rows := make([][]string, len(v))
	for i, p := range v {
		rows[i] = []string{p}
	}
	return rows
}

// runSummary is the structured form of an app.Report.
type runSummary struct {
	RunID     string          `json:"run_id" yaml:"run_id"`
	Total     int             `json:"total" yaml:"total"`
	Succeeded int             `json:"succeeded" yaml:"succeeded"`
	Failed    int             `json:"failed" yaml:"failed"`
	Skipped   int             `json:"skipped" yaml:"skipped"`
	Workers   int             `json:"workers" yaml:"workers"`
	Bytes     int64           `json:"bytes" yaml:"bytes"`
	Frames    int             `json:"frames,omitempty" yaml:"frames,omitempty"`
	Elapsed   string          `json:"elapsed" yaml:"elapsed"`
	Failures  []failureRecord `json:"failures,omitempty" yaml:"failures,omitempty"`
}

type failureRecord struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

func newRunSummary(r *app.Report) runSummary {
	s := runSummary{
		RunID:     r.RunID,
		Total:     r.Summary.Total,
		Succeeded: r.Summary.Succeeded,
		Failed:    r.Summary.Failed,
		Skipped:   r.Skipped,
		Workers:   r.Summary.Workers,
		Bytes:     r.Bytes,
		Frames:    r.Frames,
		Elapsed:   timeutil.FormatElapsed(r.Summary.Elapsed),
	}
	for _, f := range r.Summary.Failures() {
		s.Failures = append(s.Failures, failureRecord{Path: f.Path, Error: f.Err.Error()})
	}
	return s
}

// pairs returns the summary as key/value lines for text output.
func (s runSummary) pairs() [][2]string {
	out := [][2]string{
		{"Run", s.RunID},
		{"Total", strconv.Itoa(s.Total)},
		{"Succeeded", strconv.Itoa(s.Succeeded)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Skipped", strconv.Itoa(s.Skipped)},
		{"Workers", strconv.Itoa(s.Workers)},
		{"Transferred", bytesize.ByteSize(s.Bytes).String()},
	}
	if s.Frames > 0 {
		out = append(out, [2]string{"Frames", strconv.Itoa(s.Frames)})
	}
	return append(out, [2]string{"Elapsed", s.Elapsed})
}

// failureTable renders the failed items.
type failureTable []failureRecord

func (f failureTable) Headers() []string { return []string{"PATH", "ERROR"} }

func (f failureTable) Rows() [][]string {
	rows := make([][]string, len(f))
	for i, r := range f {
		rows[i] = []string{r.Path, r.Error}
	}
	return rows
}

// statsTable renders per-camera classification counts.
type statsTable []results.CameraStats

func (s statsTable) Headers() []string {
	return []string{"CAMERA", "NAME", "TOTAL", "WITH CHILD", "RATIO"}
}

func (s statsTable) Rows() [][]string {
	rows := make([][]string, len(s))
	for i, st := range s {
		ratio := 0.0
		if st.Total > 0 {
			ratio = float64(st.WithChild) * 100 / float64(st.Total)
		}
		rows[i] = []string{st.CameraType, st.CameraName, strconv.Itoa(st.Total),
			strconv.Itoa(st.WithChild), fmt.Sprintf("%.1f%%", ratio)}
	}
	return rows
}

// sampleTable renders drawn samples.
type sampleTable []app.SampleGroup

func (s sampleTable) Headers() []string { return []string{"CAMERA", "AVAILABLE", "PICKED"} }

func (s sampleTable) Rows() [][]string {
	rows := make([][]string, len(s))
	for i, g := range s {
		rows[i] = []string{g.Camera, strconv.Itoa(g.Available), strconv.Itoa(len(g.Videos))}
	}
	return rows
}

// checkTable renders camera check outcomes.
type checkTable []app.CameraCheck

func (c checkTable) Headers() []string {
	return []string{"CAMERA", "DATE", "COUNT", "STATUS", "LAST DATE", "LAST COUNT", "NOTIFIED"}
}

func (c checkTable) Rows() [][]string {
	rows := make([][]string, len(c))
	for i, r := range c {
		last, lastCount := r.LastDate, ""
		switch r.Status {
		case app.StatusRecovered:
			last = "next day"
			lastCount = strconv.Itoa(r.NextDayCount)
		case app.StatusMissing:
			if last == "" {
				last = "not found"
			}
			lastCount = strconv.Itoa(r.LastCount)
		}
		notified := ""
		if r.Status == app.StatusMissing {
			notified = strconv.FormatBool(r.Notified)
			if r.NotifyError != "" {
				notified = "failed"
			}
		}
		rows[i] = []string{r.Camera, r.Date, strconv.Itoa(r.Count), string(r.Status), last, lastCount, notified}
	}
	return rows
}
