package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys.
const (
	AttrHost      = "smb.host"
	AttrShare     = "smb.share"
	AttrSessionID = "smb.session_id"
	AttrPath      = "fs.path"
	AttrSize      = "fs.size"
	AttrAttempts  = "read.attempts"

	AttrRunID     = "run.id"
	AttrCommand   = "run.command"
	AttrCamera    = "camera.name"
	AttrItems     = "dispatch.items"
	AttrWorkers   = "dispatch.workers"
	AttrSucceeded = "dispatch.succeeded"
	AttrFailed    = "dispatch.failed"
	AttrFrames    = "video.frames"
	AttrStoreType = "store.type"
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"
)

// Span names. Format: <component>.<operation>
const (
	SpanRun      = "kidwatch.run"
	SpanRead     = "smb.read"
	SpanWalk     = "smb.walk"
	SpanDispatch = "dispatch.run"
	SpanItem     = "dispatch.item"
	SpanDecode   = "codec.decode"
	SpanClassify = "classifier.detect"
	SpanSinkPut  = "sink.put"
	SpanNotify   = "notify.send"
)

// Path returns the remote path attribute.
func Path(p string) attribute.KeyValue { return attribute.String(AttrPath, p) }

// Size returns a byte size attribute.
func Size(n int) attribute.KeyValue { return attribute.Int(AttrSize, n) }

// Attempts returns the read attempt count attribute.
func Attempts(n int) attribute.KeyValue { return attribute.Int(AttrAttempts, n) }

// SessionID returns the pool session identifier attribute.
func SessionID(id uint64) attribute.KeyValue { return attribute.Int64(AttrSessionID, int64(id)) }

// Camera returns the camera name attribute.
func Camera(name string) attribute.KeyValue { return attribute.String(AttrCamera, name) }

// RunID returns the batch run identifier attribute.
func RunID(id string) attribute.KeyValue { return attribute.String(AttrRunID, id) }

// Command returns the CLI command attribute.
func Command(name string) attribute.KeyValue { return attribute.String(AttrCommand, name) }

// Items returns the dispatched item count attribute.
func Items(n int) attribute.KeyValue { return attribute.Int(AttrItems, n) }

// Workers returns the worker count attribute.
func Workers(n int) attribute.KeyValue { return attribute.Int(AttrWorkers, n) }

// Succeeded returns the succeeded item count attribute.
func Succeeded(n int) attribute.KeyValue { return attribute.Int(AttrSucceeded, n) }

// Failed returns the failed item count attribute.
func Failed(n int) attribute.KeyValue { return attribute.Int(AttrFailed, n) }

// Frames returns the decoded frame count attribute.
func Frames(n int) attribute.KeyValue { return attribute.Int(AttrFrames, n) }

// StoreType returns the sink or store backend attribute.
func StoreType(t string) attribute.KeyValue { return attribute.String(AttrStoreType, t) }

// Bucket returns the object storage bucket attribute.
func Bucket(name string) attribute.KeyValue { return attribute.String(AttrBucket, name) }

// StorageKey returns the object key attribute.
func StorageKey(key string) attribute.KeyValue { return attribute.String(AttrKey, key) }

// StartRemoteSpan starts a client span for an operation on one remote path.
func StartRemoteSpan(ctx context.Context, name, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Path(path)}, attrs...)
	return StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(all...))
}

// StartInternalSpan starts an internal span with the given attributes.
func StartInternalSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
}
