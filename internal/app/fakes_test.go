package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/kidwatch/pkg/classifier"
	"github.com/marmos91/kidwatch/pkg/codec"
	"github.com/marmos91/kidwatch/pkg/config"
	"github.com/marmos91/kidwatch/pkg/ledger"
	"github.com/marmos91/kidwatch/pkg/notify"
	"github.com/marmos91/kidwatch/pkg/sink"
	"github.com/marmos91/kidwatch/pkg/smb"
)

// fakeRemote derives a share tree from a flat list of file paths.
type fakeRemote struct {
	mu      sync.Mutex
	files   []string
	failDir map[string]error
}

func newFakeRemote(files ...string) *fakeRemote {
	return &fakeRemote{files: files, failDir: map[string]error{}}
}

func under(dir, p string) (string, bool) {
	if dir == "" {
		return p, true
	}
	if strings.HasPrefix(p, dir+"/") {
		return strings.TrimPrefix(p, dir+"/"), true
	}
	return "", false
}

func (f *fakeRemote) ListVideoFiles(_ context.Context, root string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDir[root]; err != nil {
		return nil, err
	}
	var out []string
	for _, p := range f.files {
		if _, ok := under(root, p); ok && strings.HasSuffix(p, ".mp4") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeRemote) ListFiles(_ context.Context, dir string, excludes map[string]struct{}) ([]smb.FileEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDir[dir]; err != nil {
		return nil, &smb.ListError{Path: dir, Err: err}
	}

	seen := map[string]bool{}
	var out []smb.FileEntry
	for _, p := range f.files {
		rest, ok := under(dir, p)
		if !ok {
			continue
		}
		name, _, isDir := strings.Cut(rest, "/")
		if _, skip := excludes[name]; skip || seen[name] {
			continue
		}
		seen[name] = true
		remote := name
		if dir != "" {
			remote = dir + "/" + name
		}
		out = append(out, smb.FileEntry{Name: name, IsDir: isDir, RemotePath: remote})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRemote) Exists(_ context.Context, p string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDir[p]; err != nil {
		return false, err
	}
	for _, file := range f.files {
		if file == p || strings.HasPrefix(file, p+"/") {
			return true, nil
		}
	}
	return false, nil
}

// fakeReader returns the path as content unless told to fail.
type fakeReader struct {
	mu    sync.Mutex
	fail  map[string]error
	reads map[string]int
}

func newFakeReader() *fakeReader {
	return &fakeReader{fail: map[string]error{}, reads: map[string]int{}}
}

func (r *fakeReader) Read(_ context.Context, path string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads[path]++
	if err := r.fail[path]; err != nil {
		return nil, &smb.ReadError{Path: path, Attempts: 3, Err: err}
	}
	return []byte("video:" + path), nil
}

func (r *fakeReader) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads[path]
}

// memSink is an in-memory sink.Sink.
type memSink struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemSink() *memSink { return &memSink{objects: map[string][]byte{}} }

func (s *memSink) Put(_ context.Context, key string, data []byte) error {
	k, err := sink.CleanKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[k] = append([]byte(nil), data...)
	return nil
}

func (s *memSink) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memSink) DeleteByPrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.objects {
		if strings.HasPrefix(k, prefix+"/") {
			delete(s.objects, k)
		}
	}
	return nil
}

func (s *memSink) Describe() string { return "mem" }
func (s *memSink) Close() error     { return nil }

func (s *memSink) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// frameDecoder yields n tiny frames per video and records the interval.
type frameDecoder struct {
	n int

	mu        sync.Mutex
	intervals map[int]time.Duration
}

func (d *frameDecoder) Decode(_ context.Context, video []byte, interval time.Duration, fn codec.FrameFunc) error {
	d.mu.Lock()
	if d.intervals == nil {
		d.intervals = map[int]time.Duration{}
	}
	d.intervals[len(video)] = interval
	d.mu.Unlock()

	for i := range d.n {
		f := codec.Frame{Index: i, Width: 2, Height: 2, Stride: 6, RGB: make([]byte, 12)}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// pathClassifier finds a child when the video content contains "kid".
type pathClassifier struct {
	mu     sync.Mutex
	params map[string]classifier.Params
	fail   string
}

func (c *pathClassifier) Classify(_ context.Context, video []byte, p classifier.Params) (classifier.Verdict, error) {
	content := string(video)
	c.mu.Lock()
	if c.params == nil {
		c.params = map[string]classifier.Params{}
	}
	c.params[strings.TrimPrefix(content, "video:")] = p
	c.mu.Unlock()

	if c.fail != "" && strings.Contains(content, c.fail) {
		return classifier.Verdict{}, errors.New("detector unavailable")
	}
	return classifier.Verdict{HasChild: strings.Contains(content, "kid"), Frames: 3}, nil
}

// recordingNotifier captures alerts.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, a notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return n.err
}

func testConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Cameras["front"] = config.CameraConfig{Folder: "Front", Name: "Front door", SampleInterval: 2 * time.Second, SampleSize: 2}
	cfg.Cameras["garden"] = config.CameraConfig{Folder: "Garden", HeightRatio: 0.7, SampleSize: 3}
	cfg.Cameras["frontyard"] = config.CameraConfig{Folder: "FrontYard", SampleSize: 1}
	return cfg
}

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func videos(dir string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s/%02d.mp4", dir, i)
	}
	return out
}
