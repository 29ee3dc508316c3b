package smb

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrPoolClosed is returned by Acquire once the pool has been closed.
	ErrPoolClosed = errors.New("session pool closed")

	// ErrSessionDead reports a session that failed its liveness check.
	ErrSessionDead = errors.New("session dead")

	// ErrFileTooLarge is returned when a remote file exceeds the reader's size limit.
	ErrFileTooLarge = errors.New("remote file too large")
)

// ConnectError reports that the remote host could not be reached.
type ConnectError struct {
	Host string
	Port int
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s:%d: %v", e.Host, e.Port, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// AuthError reports that the remote host rejected the credentials.
type AuthError struct {
	Host     string
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authenticate %s@%s: %v", e.Username, e.Host, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SessionDeadError reports that a session failed verification and one
// re-authentication attempt.
type SessionDeadError struct {
	SessionID uint64
	Err       error
}

func (e *SessionDeadError) Error() string {
	return fmt.Sprintf("session %d dead: %v", e.SessionID, e.Err)
}

func (e *SessionDeadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSessionDead) match.
func (e *SessionDeadError) Is(target error) bool { return target == ErrSessionDead }

// ReadError reports that every read attempt for Path failed.
type ReadError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s failed after %d attempt(s): %v", e.Path, e.Attempts, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ListError reports a directory that could not be listed. The walker logs it and
// skips the subtree.
type ListError struct {
	Path string
	Err  error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list %s: %v", e.Path, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// PoolClosedError is returned by Acquire after Close.
type PoolClosedError struct {
	Host  string
	Share string
}

func (e *PoolClosedError) Error() string {
	return fmt.Sprintf("session pool for //%s/%s: %v", e.Host, e.Share, ErrPoolClosed)
}

// Is makes errors.Is(err, ErrPoolClosed) match.
func (e *PoolClosedError) Is(target error) bool { return target == ErrPoolClosed }
