package smb

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net"
	"strings"
	"syscall"
)

// IsSessionFailure reports whether err means the session's transport is no
// longer usable, as opposed to a per-path failure like a missing file.
func IsSessionFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionDead) {
		return true
	}
	if isPathError(err) {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "STATUS_NETWORK_SESSION_EXPIRED") ||
		strings.Contains(msg, "STATUS_USER_SESSION_DELETED")
}

// IsRetryable reports whether a failed read is worth another attempt.
// Missing files and permission failures are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrPoolClosed) {
		return false
	}
	return !isPathError(err)
}

func isPathError(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrInvalid)
}
