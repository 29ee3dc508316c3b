package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/kidwatch/pkg/codec"
)

func person(conf, height float64) Detection {
	return Detection{ClassID: PersonClassID, Confidence: conf, BBox: [4]float64{10, 100, 50, 100 + height}}
}

func TestHasChild(t *testing.T) {
	tests := []struct {
		name string
		dets []Detection
		want bool
	}{
		{"no detections", nil, false},
		{"short person", []Detection{person(0.9, 200)}, true},
		{"tall person", []Detection{person(0.9, 600)}, false},
		{"exactly at limit", []Detection{person(0.9, 500)}, false},
		{"low confidence", []Detection{person(0.3, 100)}, false},
		{"not a person", []Detection{{ClassID: 16, Confidence: 0.9, BBox: [4]float64{0, 0, 10, 10}}}, false},
		{"one of many", []Detection{person(0.9, 700), person(0.6, 100)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasChild(tt.dets, 1000, 0.5, 0.5))
		})
	}
}

type fakeDecoder struct {
	frames []codec.Frame
	err    error
	seen   time.Duration
}

func (d *fakeDecoder) Decode(_ context.Context, _ []byte, interval time.Duration, fn codec.FrameFunc) error {
	d.seen = interval
	for _, f := range d.frames {
		if err := fn(f); err != nil {
			return err
		}
	}
	return d.err
}

type scriptedDetector struct {
	perFrame map[int][]Detection
	calls    int
	err      error
}

func (s *scriptedDetector) Detect(_ context.Context, f codec.Frame, _ float64) ([]Detection, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.perFrame[f.Index], nil
}

func frames(n int) []codec.Frame {
	out := make([]codec.Frame, n)
	for i := range out {
		out[i] = codec.Frame{Index: i, Width: 4, Height: 1000, Stride: 12, RGB: make([]byte, 12000)}
	}
	return out
}

func TestClassify_StopsAtFirstChild(t *testing.T) {
	dec := &fakeDecoder{frames: frames(5)}
	det := &scriptedDetector{perFrame: map[int][]Detection{
		2: {person(0.8, 300)},
	}}

	params := Params{SampleInterval: 5 * time.Second, ConfThreshold: 0.5, HeightRatio: 0.5}
	v, err := New(dec, det).Classify(context.Background(), []byte("video"), params)
	require.NoError(t, err)

	assert.True(t, v.HasChild)
	assert.Equal(t, 3, v.Frames)
	assert.Equal(t, 3, det.calls)
	assert.Equal(t, 5*time.Second, dec.seen)
}

func TestClassify_NoChild(t *testing.T) {
	dec := &fakeDecoder{frames: frames(4)}
	det := &scriptedDetector{perFrame: map[int][]Detection{1: {person(0.9, 900)}}}

	v, err := New(dec, det).Classify(context.Background(), nil, Params{ConfThreshold: 0.5, HeightRatio: 0.5})
	require.NoError(t, err)
	assert.False(t, v.HasChild)
	assert.Equal(t, 4, v.Frames)
}

func TestClassify_Errors(t *testing.T) {
	boom := errors.New("boom")

	_, err := New(&fakeDecoder{frames: frames(1)}, &scriptedDetector{err: boom}).
		Classify(context.Background(), nil, Params{})
	assert.ErrorIs(t, err, boom)

	_, err = New(&fakeDecoder{err: boom}, &scriptedDetector{}).
		Classify(context.Background(), nil, Params{})
	assert.ErrorIs(t, err, boom)
}

func TestHTTPDetector_Detect(t *testing.T) {
	var gotModel, gotConf, gotFile string
	var fileSize int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		gotConf = r.FormValue("conf")

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		gotFile = hdr.Filename
		fileSize = len(data)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"detections": []map[string]any{
				{"class_id": 0, "confidence": 0.87, "bbox": []float64{1, 2, 3, 40}},
			},
		})
	}))
	defer srv.Close()

	det := NewHTTPDetector(srv.URL, "yolov8n", time.Second)
	frame := codec.Frame{Index: 7, Width: 2, Height: 2, Stride: 6, RGB: make([]byte, 12)}

	dets, err := det.Detect(context.Background(), frame, 0.25)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, 0.87, dets[0].Confidence)
	assert.Equal(t, 38.0, dets[0].Height())

	assert.Equal(t, "yolov8n", gotModel)
	assert.Equal(t, "0.25", gotConf)
	assert.Equal(t, "frame_7.jpg", gotFile)
	assert.Positive(t, fileSize)
}

func TestHTTPDetector_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	frame := codec.Frame{Width: 1, Height: 1, Stride: 3, RGB: make([]byte, 3)}
	_, err := NewHTTPDetector(srv.URL, "", 0).Detect(context.Background(), frame, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")
}
