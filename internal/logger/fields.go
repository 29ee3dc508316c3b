package logger

import "log/slog"

// Standard field keys. Use them consistently so log lines can be queried by field.
const (
	// Run identification
	KeyRunID   = "run_id"
	KeyCommand = "command"
	KeyTraceID = "trace_id"

	// Remote filesystem
	KeyHost      = "host"
	KeyShare     = "share"
	KeyPath      = "path"
	KeyRoot      = "root"
	KeyCamera    = "camera"
	KeyDate      = "date"
	KeySize      = "size"
	KeySessionID = "session_id"

	// Pool and retries
	KeyActive   = "active"
	KeyIdle     = "idle"
	KeyMax      = "max_sessions"
	KeyAttempt  = "attempt"
	KeyAttempts = "attempts"
	KeyBackoff  = "backoff"
	KeyWait     = "wait"

	// Dispatch
	KeyWorkers   = "workers"
	KeyTotal     = "total"
	KeyProcessed = "processed"
	KeySucceeded = "succeeded"
	KeyFailed    = "failed"
	KeyPercent   = "percent"
	KeyFrames    = "frames"

	// Generic
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyReason     = "reason"
	KeyCount      = "count"
)

// Err returns an error attribute. A nil error yields an empty attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Path returns a remote path attribute.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Camera returns a camera attribute.
func Camera(name string) slog.Attr {
	return slog.String(KeyCamera, name)
}

// SessionID returns a session identifier attribute.
func SessionID(id uint64) slog.Attr {
	return slog.Uint64(KeySessionID, id)
}

// Attempt returns an attribute for the current retry attempt.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// DurationMs returns a duration attribute in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
