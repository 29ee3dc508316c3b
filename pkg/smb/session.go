package smb

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marmos91/kidwatch/internal/logger"
)

// DefaultFreshnessWindow is how long a verified session is trusted without a probe.
const DefaultFreshnessWindow = 60 * time.Second

// defaultProbeTimeout bounds a liveness probe when the endpoint sets no dial timeout.
const defaultProbeTimeout = 30 * time.Second

// Session wraps one authenticated connection and its liveness state.
//
// A Session is owned by the Pool that created it; callers borrow it between
// Acquire and Release. Liveness state is guarded by a mutex; protocol
// operations run outside it and rely on the one-borrower-at-a-time loan.
type Session struct {
	id        uint64
	ep        Endpoint
	dialer    Dialer
	freshness time.Duration
	now       func() time.Time

	mu           sync.Mutex
	conn         Conn
	createdAt    time.Time
	lastVerified time.Time
	alive        bool
}

// openSession authenticates a new session against ep.
func openSession(ctx context.Context, id uint64, dialer Dialer, ep Endpoint, freshness time.Duration, now func() time.Time) (*Session, error) {
	if now == nil {
		now = time.Now
	}
	if freshness <= 0 {
		freshness = DefaultFreshnessWindow
	}

	conn, err := dial(ctx, dialer, ep)
	if err != nil {
		return nil, err
	}

	t := now()
	logger.Debug("smb session opened", logger.KeyHost, ep.Host, logger.KeyShare, ep.Share, logger.KeySessionID, id)

	return &Session{
		id:           id,
		ep:           ep,
		dialer:       dialer,
		freshness:    freshness,
		now:          now,
		conn:         conn,
		createdAt:    t,
		lastVerified: t,
		alive:        true,
	}, nil
}

// dial calls the dialer and normalizes untyped errors into *ConnectError.
func dial(ctx context.Context, dialer Dialer, ep Endpoint) (Conn, error) {
	if ep.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ep.DialTimeout)
		defer cancel()
	}

	conn, err := dialer.Dial(ctx, ep)
	if err == nil {
		return conn, nil
	}

	var authErr *AuthError
	var connErr *ConnectError
	if errors.As(err, &authErr) || errors.As(err, &connErr) {
		return nil, err
	}
	return nil, &ConnectError{Host: ep.Host, Port: ep.Port, Err: err}
}

// ID returns the pool-assigned session identifier.
func (s *Session) ID() uint64 { return s.id }

// CreatedAt returns when the session was first authenticated.
func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

// LastVerified returns the time of the last successful verification.
func (s *Session) LastVerified() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastVerified
}

// Alive reports the last known liveness state without any I/O.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// MarkDead flags the session so the pool evicts it on release.
func (s *Session) MarkDead() {
	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()
}

// Verify checks liveness.
//
// Within the freshness window it returns nil without I/O. Otherwise it lists the
// share root; if that fails it re-authenticates once. When both fail the
// session is marked dead and a *SessionDeadError is returned.
//
// The probe and the re-authentication ignore cancellation of ctx and are
// bounded by the endpoint's dial timeout instead. A cancelled caller never
// evicts a healthy session.
func (s *Session) Verify(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return &SessionDeadError{SessionID: s.id, Err: errors.New("previously marked dead")}
	}
	if s.now().Sub(s.lastVerified) < s.freshness {
		return nil
	}

	timeout := s.ep.DialTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	_, probeErr := s.conn.ReadDir(ctx, "")
	if probeErr == nil {
		s.lastVerified = s.now()
		return nil
	}

	logger.Debug("smb session probe failed, re-authenticating",
		logger.KeySessionID, s.id, logger.KeyError, probeErr)

	_ = s.conn.Close()
	conn, err := dial(ctx, s.dialer, s.ep)
	if err != nil {
		s.alive = false
		return &SessionDeadError{SessionID: s.id, Err: errors.Join(probeErr, err)}
	}

	s.conn = conn
	s.lastVerified = s.now()
	logger.Info("smb session re-authenticated", logger.KeySessionID, s.id, logger.KeyHost, s.ep.Host)
	return nil
}

// Close logs the session off. Errors are swallowed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alive = false
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		logger.Debug("smb session close failed", logger.KeySessionID, s.id, logger.KeyError, err)
	}
	s.conn = nil
}

// ============================================================================
// Protocol operations
// ============================================================================

// ReadDir lists a directory relative to the share root.
func (s *Session) ReadDir(ctx context.Context, path string) ([]FileInfo, error) {
	conn, err := s.connection()
	if err != nil {
		return nil, err
	}
	entries, err := conn.ReadDir(ctx, path)
	s.noteFailure(err)
	return entries, err
}

// Stat returns information about a path relative to the share root.
func (s *Session) Stat(ctx context.Context, path string) (FileInfo, error) {
	conn, err := s.connection()
	if err != nil {
		return FileInfo{}, err
	}
	fi, err := conn.Stat(ctx, path)
	s.noteFailure(err)
	return fi, err
}

// ReadFile reads a whole remote file.
func (s *Session) ReadFile(ctx context.Context, path string) ([]byte, error) {
	conn, err := s.connection()
	if err != nil {
		return nil, err
	}
	data, err := conn.ReadFile(ctx, path)
	s.noteFailure(err)
	return data, err
}

func (s *Session) connection() (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || s.conn == nil {
		return nil, &SessionDeadError{SessionID: s.id, Err: errors.New("session closed")}
	}
	return s.conn, nil
}

// noteFailure marks the session dead when err indicates the transport is gone.
func (s *Session) noteFailure(err error) {
	if err != nil && IsSessionFailure(err) {
		s.MarkDead()
	}
}
