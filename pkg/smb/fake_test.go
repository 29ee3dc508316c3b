package smb

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// fakeServer is an in-memory share shared by every fakeConn it dials.
type fakeServer struct {
	mu      sync.Mutex
	dirs    map[string][]FileInfo
	files   map[string][]byte
	listErr map[string]error

	// readFile overrides file reads when set.
	readFile func(ctx context.Context, c *fakeConn, path string) ([]byte, error)

	dialErrs []error // consumed one per Dial
	dials    atomic.Int32
	open     atomic.Int32
	maxOpen  atomic.Int32
	conns    []*fakeConn
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		dirs:    map[string][]FileInfo{"": {}},
		files:   map[string][]byte{},
		listErr: map[string]error{},
	}
}

func (f *fakeServer) addDir(dir string, entries ...FileInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[dir] = entries
}

func (f *fakeServer) addFile(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
}

func (f *fakeServer) failDial(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialErrs = append(f.dialErrs, errs...)
}

func (f *fakeServer) Dial(ctx context.Context, ep Endpoint) (Conn, error) {
	f.dials.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	if len(f.dialErrs) > 0 {
		err := f.dialErrs[0]
		f.dialErrs = f.dialErrs[1:]
		f.mu.Unlock()
		return nil, err
	}
	c := &fakeConn{srv: f, id: len(f.conns) + 1}
	f.conns = append(f.conns, c)
	f.mu.Unlock()

	n := f.open.Add(1)
	for {
		m := f.maxOpen.Load()
		if n <= m || f.maxOpen.CompareAndSwap(m, n) {
			break
		}
	}
	return c, nil
}

func (f *fakeServer) conn(i int) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[i]
}

type fakeConn struct {
	srv    *fakeServer
	id     int
	probes atomic.Int32
	closed atomic.Bool

	mu       sync.Mutex
	probeErr error
}

func (c *fakeConn) setProbeErr(err error) {
	c.mu.Lock()
	c.probeErr = err
	c.mu.Unlock()
}

func (c *fakeConn) ReadDir(ctx context.Context, path string) ([]FileInfo, error) {
	if c.closed.Load() {
		return nil, errors.New("use of closed network connection")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		c.probes.Add(1)
		c.mu.Lock()
		err := c.probeErr
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	if err := c.srv.listErr[path]; err != nil {
		return nil, err
	}
	entries, ok := c.srv.dirs[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return append([]FileInfo(nil), entries...), nil
}

func (c *fakeConn) Stat(_ context.Context, path string) (FileInfo, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	name := path[strings.LastIndex(path, "/")+1:]
	if _, ok := c.srv.dirs[path]; ok {
		return FileInfo{Name: name, IsDir: true}, nil
	}
	if data, ok := c.srv.files[path]; ok {
		return FileInfo{Name: name, Size: int64(len(data))}, nil
	}
	return FileInfo{}, fs.ErrNotExist
}

func (c *fakeConn) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if c.closed.Load() {
		return nil, errors.New("use of closed network connection")
	}
	if c.srv.readFile != nil {
		return c.srv.readFile(ctx, c, path)
	}

	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	data, ok := c.srv.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

func (c *fakeConn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.srv.open.Add(-1)
	}
	return errors.New("logoff failed")
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 8, 19, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func dir(name string) FileInfo  { return FileInfo{Name: name, IsDir: true} }
func file(name string) FileInfo { return FileInfo{Name: name} }

var testEndpoint = Endpoint{Host: "nas.local", Port: 445, Share: "surveillance", Username: "kid", Password: "watch"}

func newTestPool(srv *fakeServer, max int) *Pool {
	return NewPool(srv, testEndpoint, PoolConfig{MaxSessions: max}, nil)
}
