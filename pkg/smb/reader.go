package smb

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/internal/telemetry"
	"github.com/marmos91/kidwatch/pkg/metrics"
)

// ReaderConfig configures retries for a Reader.
type ReaderConfig struct {
	// Attempts is the number of read attempts before giving up.
	Attempts int

	// PreDelayMin and PreDelayMax bound the random pause before the first attempt.
	PreDelayMin time.Duration
	PreDelayMax time.Duration

	// BackoffMin and BackoffMax bound the random pause between attempts.
	BackoffMin time.Duration
	BackoffMax time.Duration

	// MaxFileSize rejects larger files without reading them. Zero disables the check.
	MaxFileSize int64
}

// DefaultReaderConfig returns 3 attempts, a 100-500ms pre-read delay and 1-2s backoff.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Attempts:    3,
		PreDelayMin: 100 * time.Millisecond,
		PreDelayMax: 500 * time.Millisecond,
		BackoffMin:  time.Second,
		BackoffMax:  2 * time.Second,
	}
}

// Reader reads whole remote files with retries. Concurrent reads of the same
// path are serialized; reads of different paths run in parallel.
type Reader struct {
	source  SessionSource
	cfg     ReaderConfig
	locks   *PathLocks
	metrics *metrics.Metrics

	sleep func(ctx context.Context, d time.Duration) error

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewReader creates a Reader drawing sessions from source.
func NewReader(source SessionSource, cfg ReaderConfig, m *metrics.Metrics) *Reader {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	return &Reader{
		source:  source,
		cfg:     cfg,
		locks:   NewPathLocks(),
		metrics: m,
		sleep:   sleepCtx,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6b6964)),
	}
}

// Read returns the contents of path.
//
// It takes the path's lock, borrows a session, waits a random pre-read delay
// and makes up to Attempts attempts with a random backoff in between. When an
// attempt kills the session, the session is released and a fresh one is
// borrowed for the next attempt. Exhausted retries yield *ReadError; pool
// failures are returned as they are.
//
// Errors that another attempt cannot fix (a missing file, denied access,
// ErrFileTooLarge) end the loop at once, so the *ReadError may report fewer
// than Attempts attempts.
func (r *Reader) Read(ctx context.Context, path string) ([]byte, error) {
	path = cleanRemote(path)

	ctx, span := telemetry.StartRemoteSpan(ctx, telemetry.SpanRead, path)
	defer span.End()

	unlock := r.locks.Lock(path)
	defer unlock()

	start := time.Now()

	s, err := r.source.Acquire(ctx)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer func() { r.source.Release(s) }()

	if err := r.sleep(ctx, r.jitter(r.cfg.PreDelayMin, r.cfg.PreDelayMax)); err != nil {
		return nil, &ReadError{Path: path, Attempts: 0, Err: err}
	}

	var lastErr error
	attempt := 0
	for attempt < r.cfg.Attempts {
		attempt++
		if attempt > 1 {
			backoff := r.jitter(r.cfg.BackoffMin, r.cfg.BackoffMax)
			logger.DebugCtx(ctx, "read: retrying", logger.KeyPath, path, logger.KeyAttempt, attempt,
				logger.KeyAttempts, r.cfg.Attempts, logger.KeyBackoff, backoff)
			if err := r.sleep(ctx, backoff); err != nil {
				lastErr = err
				break
			}

			if !s.Alive() {
				r.source.Release(s)
				s, err = r.source.Acquire(ctx)
				if err != nil {
					telemetry.RecordError(ctx, err)
					return nil, fmt.Errorf("read %s: %w", path, err)
				}
			}
		}

		data, err := r.readOnce(ctx, s, path)
		r.metrics.ReadAttempt(err == nil)
		if err == nil {
			r.metrics.ObserveRead(len(data), time.Since(start))
			telemetry.SetAttributes(ctx, telemetry.Attempts(attempt), telemetry.Size(len(data)), telemetry.SessionID(s.ID()))
			return data, nil
		}

		lastErr = err
		logger.DebugCtx(ctx, "read: attempt failed", logger.KeyPath, path, logger.KeyAttempt, attempt,
			logger.KeySessionID, s.ID(), logger.KeyError, err)

		if !IsRetryable(err) {
			break
		}
	}

	rerr := &ReadError{Path: path, Attempts: attempt, Err: lastErr}
	telemetry.RecordError(ctx, rerr)
	logger.WarnCtx(ctx, "read failed", logger.KeyPath, path, logger.KeyAttempts, attempt, logger.KeyError, lastErr)
	return nil, rerr
}

func (r *Reader) readOnce(ctx context.Context, s *Session, path string) ([]byte, error) {
	if r.cfg.MaxFileSize > 0 {
		fi, err := s.Stat(ctx, path)
		if err != nil {
			return nil, err
		}
		if fi.Size > r.cfg.MaxFileSize {
			return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, fi.Size, r.cfg.MaxFileSize)
		}
	}
	return s.ReadFile(ctx, path)
}

// jitter returns a uniform duration in [lo, hi).
func (r *Reader) jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return lo + time.Duration(r.rng.Int64N(int64(hi-lo)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
