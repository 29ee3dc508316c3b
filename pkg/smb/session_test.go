package smb

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSession(t *testing.T, srv *fakeServer, clock *fakeClock) *Session {
	t.Helper()
	s, err := openSession(context.Background(), 1, srv, testEndpoint, time.Minute, clock.Now)
	require.NoError(t, err)
	return s
}

func TestSession_Open(t *testing.T) {
	clock := newFakeClock()
	s := openTestSession(t, newFakeServer(), clock)

	assert.Equal(t, uint64(1), s.ID())
	assert.True(t, s.Alive())
	assert.Equal(t, clock.Now(), s.CreatedAt())
	assert.Equal(t, clock.Now(), s.LastVerified())
}

func TestSession_OpenWrapsUntypedErrors(t *testing.T) {
	srv := newFakeServer()
	srv.failDial(errors.New("dial tcp: i/o timeout"))

	_, err := openSession(context.Background(), 1, srv, testEndpoint, 0, nil)
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 445, connErr.Port)
}

func TestSession_VerifyWithinWindowDoesNoIO(t *testing.T) {
	srv := newFakeServer()
	clock := newFakeClock()
	s := openTestSession(t, srv, clock)

	srv.conn(0).setProbeErr(errors.New("would fail"))
	clock.Advance(59 * time.Second)

	require.NoError(t, s.Verify(context.Background()))
	assert.Equal(t, int32(0), srv.conn(0).probes.Load())
}

func TestSession_VerifyFailsAfterReauthFails(t *testing.T) {
	srv := newFakeServer()
	clock := newFakeClock()
	s := openTestSession(t, srv, clock)

	clock.Advance(time.Minute)
	srv.conn(0).setProbeErr(io.EOF)
	srv.failDial(&AuthError{Host: "nas.local", Username: "kid", Err: errors.New("password expired")})

	err := s.Verify(context.Background())
	var deadErr *SessionDeadError
	require.ErrorAs(t, err, &deadErr)
	assert.ErrorIs(t, err, ErrSessionDead)
	assert.False(t, s.Alive())

	// once dead, always dead
	assert.ErrorIs(t, s.Verify(context.Background()), ErrSessionDead)
	assert.Equal(t, int32(2), srv.dials.Load())
}

func TestSession_VerifyIgnoresCallerCancellation(t *testing.T) {
	srv := newFakeServer()
	clock := newFakeClock()
	s := openTestSession(t, srv, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	clock.Advance(time.Minute)
	require.NoError(t, s.Verify(ctx))
	assert.True(t, s.Alive())
	assert.Equal(t, int32(1), srv.conn(0).probes.Load())
	assert.Equal(t, int32(1), srv.dials.Load(), "no re-authentication")
}

func TestSession_IOFailureMarksDead(t *testing.T) {
	srv := newFakeServer()
	s := openTestSession(t, srv, newFakeClock())
	srv.readFile = func(context.Context, *fakeConn, string) ([]byte, error) {
		return nil, io.ErrUnexpectedEOF
	}

	_, err := s.ReadFile(context.Background(), "a.mp4")
	require.Error(t, err)
	assert.False(t, s.Alive())
}

func TestSession_PathFailureKeepsSessionAlive(t *testing.T) {
	srv := newFakeServer()
	s := openTestSession(t, srv, newFakeClock())

	_, err := s.ReadFile(context.Background(), "missing.mp4")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.True(t, s.Alive())
}

func TestSession_CloseSwallowsErrors(t *testing.T) {
	srv := newFakeServer()
	s := openTestSession(t, srv, newFakeClock())

	assert.NotPanics(t, s.Close)
	assert.NotPanics(t, s.Close)
	assert.False(t, s.Alive())

	_, err := s.ReadDir(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionDead)
	_, err = s.Stat(context.Background(), "x")
	assert.ErrorIs(t, err, ErrSessionDead)
}

func TestIsSessionFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"not exist", fs.ErrNotExist, false},
		{"permission", fs.ErrPermission, false},
		{"dead", &SessionDeadError{SessionID: 1}, true},
		{"connect", &ConnectError{Host: "h", Err: errors.New("refused")}, true},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"other", errors.New("STATUS_SHARING_VIOLATION"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSessionFailure(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(fs.ErrNotExist))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(ErrFileTooLarge))
	assert.True(t, IsRetryable(io.EOF))
	assert.True(t, IsRetryable(errors.New("STATUS_SHARING_VIOLATION")))
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&ReadError{Path: "a.mp4", Attempts: 3, Err: io.EOF}).Error(), "after 3 attempt(s)")
	assert.Contains(t, (&ListError{Path: "cam1", Err: io.EOF}).Error(), "list cam1")
	assert.Contains(t, (&PoolClosedError{Host: "nas", Share: "s"}).Error(), "//nas/s")
	assert.Contains(t, (&AuthError{Host: "nas", Username: "kid", Err: io.EOF}).Error(), "kid@nas")
	assert.Equal(t, "nas:445", Endpoint{Host: "nas"}.Addr())
	assert.Equal(t, "//nas/video", Endpoint{Host: "nas", Share: "video"}.String())
}
