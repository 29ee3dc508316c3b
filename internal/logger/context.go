package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext carries the fields that identify one unit of batch work.
type LogContext struct {
	RunID     string // batch run identifier
	Command   string // list, download, extract, classify, check, sample
	TraceID   string // OpenTelemetry trace ID
	Camera    string // camera name
	Path      string // remote path being processed
	StartTime time.Time
}

// NewLogContext creates a LogContext for a run.
func NewLogContext(runID, command string) *LogContext {
	return &LogContext{
		RunID:     runID,
		Command:   command,
		StartTime: time.Now(),
	}
}

// WithContext returns a new context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the LogContext stored in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// Clone creates a copy of the LogContext.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithCamera returns a copy with the camera set.
func (lc *LogContext) WithCamera(camera string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Camera = camera
	}
	return c
}

// WithPath returns a copy with the remote path set.
func (lc *LogContext) WithPath(path string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Path = path
	}
	return c
}

// WithTrace returns a copy with the trace ID set.
func (lc *LogContext) WithTrace(traceID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID = traceID
	}
	return c
}

// DurationMs returns the time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
