// Package dispatch runs one operation over many remote paths on a bounded
// number of workers, tracking progress and the batch failure rate.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/internal/telemetry"
	"github.com/marmos91/kidwatch/pkg/metrics"
)

// Defaults for Config fields left at zero.
const (
	DefaultBatchSize            = 10
	DefaultFailureRateThreshold = 0.30
)

// ErrExcessiveFailureRate is matched by *ExcessiveFailureRateError.
var ErrExcessiveFailureRate = errors.New("excessive failure rate")

// ExcessiveFailureRateError reports a batch whose failure ratio exceeded the
// threshold. It is returned only after every item was attempted.
type ExcessiveFailureRateError struct {
	Failed    int
	Total     int
	Threshold float64
}

func (e *ExcessiveFailureRateError) Error() string {
	return fmt.Sprintf("%v: %d of %d items failed (%.1f%% > %.1f%%)",
		ErrExcessiveFailureRate, e.Failed, e.Total, e.Rate()*100, e.Threshold*100)
}

// Is makes errors.Is(err, ErrExcessiveFailureRate) match.
func (e *ExcessiveFailureRateError) Is(target error) bool { return target == ErrExcessiveFailureRate }

// Rate returns Failed/Total.
func (e *ExcessiveFailureRateError) Rate() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Failed) / float64(e.Total)
}

// Limiter caps concurrency. *smb.Pool implements it.
type Limiter interface {
	SafeConcurrencyLimit() int
}

// Operation processes one remote path. The returned value is stored in the
// item's Result.
type Operation func(ctx context.Context, path string) (any, error)

// Config configures a Dispatcher.
type Config struct {
	// Name labels metrics and logs (e.g. "download").
	Name string

	MaxWorkers           int
	BatchSize            int
	FailureRateThreshold float64
}

// Result is the outcome of one item. Exactly one is produced per input path.
type Result struct {
	Path    string
	Value   any
	Err     error
	Elapsed time.Duration
}

// Succeeded reports whether the item completed without error.
func (r Result) Succeeded() bool { return r.Err == nil }

// Summary aggregates a run. Results are in input order.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Workers   int
	Elapsed   time.Duration
	Results   []Result
}

// Failures returns the failed results in input order.
func (s *Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// Progress is reported after every batch.
type Progress struct {
	Processed int
	Succeeded int
	Failed    int
	Total     int
}

// Percent returns the completed share in [0, 100].
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Processed) * 100 / float64(p.Total)
}

// ProgressFunc observes progress. It is called with the dispatcher's counter
// lock held, so it must not block.
type ProgressFunc func(Progress)

// Dispatcher fans an Operation out over a bounded worker pool.
type Dispatcher struct {
	limiter    Limiter
	cfg        Config
	onProgress ProgressFunc
	metrics    *metrics.Metrics
}

// New creates a Dispatcher. limiter may be nil when no session pool is involved.
func New(limiter Limiter, cfg Config, onProgress ProgressFunc, m *metrics.Metrics) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.Name == "" {
		cfg.Name = "batch"
	}
	return &Dispatcher{
		limiter:    limiter,
		cfg:        cfg,
		onProgress: onProgress,
		metrics:    m,
	}
}

// Workers returns min(MaxWorkers, SafeConcurrencyLimit, items), at least 1.
func (d *Dispatcher) Workers(items int) int {
	n := d.cfg.MaxWorkers
	if d.limiter != nil {
		n = min(n, d.limiter.SafeConcurrencyLimit())
	}
	n = min(n, items)
	return max(1, n)
}

// tally holds the shared counters. All updates go through mu.
type tally struct {
	mu       sync.Mutex
	progress Progress
}

// Run executes op for every path and returns when all have finished.
//
// Item failures are recorded, not propagated. Once all items are done, a
// failure ratio above FailureRateThreshold yields *ExcessiveFailureRateError
// together with the full summary. Run does not stop early; ctx is only passed
// through to op.
func (d *Dispatcher) Run(ctx context.Context, paths []string, op Operation) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Total: len(paths), Results: make([]Result, len(paths))}
	if len(paths) == 0 {
		return summary, nil
	}

	workers := d.Workers(len(paths))
	summary.Workers = workers

	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanDispatch,
		telemetry.Command(d.cfg.Name), telemetry.Items(len(paths)), telemetry.Workers(workers))
	defer span.End()

	logger.InfoCtx(ctx, "dispatch started", logger.KeyTotal, len(paths), logger.KeyWorkers, workers,
		"batch_size", d.cfg.BatchSize)

	batches := make(chan []int)
	go func() {
		defer close(batches)
		for lo := 0; lo < len(paths); lo += d.cfg.BatchSize {
			hi := min(lo+d.cfg.BatchSize, len(paths))
			idx := make([]int, 0, hi-lo)
			for i := lo; i < hi; i++ {
				idx = append(idx, i)
			}
			batches <- idx
		}
	}()

	t := &tally{progress: Progress{Total: len(paths)}}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				d.runBatch(ctx, paths, batch, op, summary.Results, t)
			}
		}()
	}
	wg.Wait()

	summary.Succeeded = t.progress.Succeeded
	summary.Failed = t.progress.Failed
	summary.Elapsed = time.Since(start)

	telemetry.SetAttributes(ctx, telemetry.Succeeded(summary.Succeeded), telemetry.Failed(summary.Failed))
	logger.InfoCtx(ctx, "dispatch finished", logger.KeyTotal, summary.Total,
		logger.KeySucceeded, summary.Succeeded, logger.KeyFailed, summary.Failed,
		logger.KeyDurationMs, logger.Duration(start))

	if float64(summary.Failed)/float64(summary.Total) > d.cfg.FailureRateThreshold {
		err := &ExcessiveFailureRateError{Failed: summary.Failed, Total: summary.Total, Threshold: d.cfg.FailureRateThreshold}
		telemetry.RecordError(ctx, err)
		return summary, err
	}
	return summary, nil
}

// runBatch processes one batch sequentially, then reports progress.
func (d *Dispatcher) runBatch(ctx context.Context, paths []string, batch []int, op Operation, results []Result, t *tally) {
	batchStart := time.Now()
	succeeded, failed := 0, 0

	for _, i := range batch {
		r := d.runItem(ctx, paths[i], op)
		results[i] = r
		if r.Succeeded() {
			succeeded++
		} else {
			failed++
			logger.WarnCtx(ctx, "item failed", logger.KeyPath, r.Path, logger.KeyError, r.Err)
		}
	}
	d.metrics.ObserveBatch(time.Since(batchStart))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress.Processed += len(batch)
	t.progress.Succeeded += succeeded
	t.progress.Failed += failed

	p := t.progress
	logger.InfoCtx(ctx, "dispatch progress", logger.KeyProcessed, p.Processed, logger.KeyTotal, p.Total,
		logger.KeyPercent, p.Percent(), logger.KeyFailed, p.Failed)
	if d.onProgress != nil {
		d.onProgress(p)
	}
}

// runItem executes op for one path. A panic counts as a failure.
func (d *Dispatcher) runItem(ctx context.Context, path string, op Operation) (r Result) {
	start := time.Now()
	r.Path = path

	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanItem,
		telemetry.Command(d.cfg.Name), telemetry.Path(path))
	if lc := logger.FromContext(ctx); lc != nil {
		ctx = logger.WithContext(ctx, lc.WithPath(path))
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.Err = fmt.Errorf("panic processing %s: %v", path, rec)
		}
		if r.Err != nil {
			span.RecordError(r.Err)
		}
		span.End()
		r.Elapsed = time.Since(start)
		d.metrics.ObserveItem(d.cfg.Name, r.Err == nil, r.Elapsed)
	}()

	r.Value, r.Err = op(ctx, path)
	return r
}
