// Package app implements the kidwatch commands on top of the session pool,
// walker, reader and dispatcher. Collaborators are passed in through Deps so
// every command can be exercised without a NAS.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/internal/telemetry"
	"github.com/marmos91/kidwatch/pkg/classifier"
	"github.com/marmos91/kidwatch/pkg/codec"
	"github.com/marmos91/kidwatch/pkg/config"
	"github.com/marmos91/kidwatch/pkg/dispatch"
	"github.com/marmos91/kidwatch/pkg/ledger"
	"github.com/marmos91/kidwatch/pkg/metrics"
	"github.com/marmos91/kidwatch/pkg/notify"
	"github.com/marmos91/kidwatch/pkg/results"
	"github.com/marmos91/kidwatch/pkg/sink"
	"github.com/marmos91/kidwatch/pkg/smb"
)

// ErrMissingDependency is returned when a command runs without one of the
// collaborators it needs.
var ErrMissingDependency = errors.New("missing dependency")

// RemoteFS lists and probes the share. *smb.Walker implements it.
type RemoteFS interface {
	ListVideoFiles(ctx context.Context, root string) ([]string, error)
	ListFiles(ctx context.Context, dir string, excludes map[string]struct{}) ([]smb.FileEntry, error)
	Exists(ctx context.Context, p string) (bool, error)
}

// FileReader reads whole files from the share. *smb.Reader implements it.
type FileReader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// VideoClassifier decides whether a video shows a child.
// *classifier.Classifier implements it.
type VideoClassifier interface {
	Classify(ctx context.Context, video []byte, p classifier.Params) (classifier.Verdict, error)
}

// ResultStore persists classifications. *results.GORMStore implements it.
type ResultStore interface {
	Save(ctx context.Context, c *results.Classification) error
	Stats(ctx context.Context, f results.Filter) ([]results.CameraStats, error)
}

// Deps are the collaborators a command may use. Only Remote is needed by
// every command; the others are checked by the commands that use them.
type Deps struct {
	Remote     RemoteFS
	Reader     FileReader
	Limiter    dispatch.Limiter
	Metrics    *metrics.Metrics
	Sink       sink.Sink
	Ledger     *ledger.Ledger
	Decoder    codec.Decoder
	Classifier VideoClassifier
	Results    ResultStore
	Notifier   notify.Notifier
}

// App runs commands for one process invocation.
type App struct {
	cfg        *config.Config
	deps       Deps
	runID      string
	now        func() time.Time
	onProgress dispatch.ProgressFunc
}

// New creates an App with a fresh run id.
func New(cfg *config.Config, deps Deps) *App {
	return &App{
		cfg:   cfg,
		deps:  deps,
		runID: uuid.NewString(),
		now:   time.Now,
	}
}

// RunID identifies this invocation in logs, traces, ledger entries and
// stored results.
func (a *App) RunID() string { return a.runID }

// OnProgress registers a callback for dispatcher progress.
func (a *App) OnProgress(fn dispatch.ProgressFunc) { a.onProgress = fn }

// begin tags ctx with the run for logging and opens the run span.
func (a *App) begin(ctx context.Context, command string) (context.Context, trace.Span) {
	lc := logger.NewLogContext(a.runID, command)
	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanRun,
		telemetry.RunID(a.runID), telemetry.Command(command))
	if tid := telemetry.TraceID(ctx); tid != "" {
		lc = lc.WithTrace(tid)
	}
	return logger.WithContext(ctx, lc), span
}

func (a *App) dispatcher(name string) *dispatch.Dispatcher {
	return dispatch.New(a.deps.Limiter, a.cfg.DispatchConfig(name), a.onProgress, a.deps.Metrics)
}

func missing(command, what string) error {
	return fmt.Errorf("%s: %w: %s", command, ErrMissingDependency, what)
}

// finish records err on span and ends it.
func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
