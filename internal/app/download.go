package app

import (
	"context"
	"fmt"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/pkg/dispatch"
	"github.com/marmos91/kidwatch/pkg/ledger"
)

const (
	CommandDownload = "download"
	CommandExtract  = "extract"
	CommandClassify = "classify"
)

// itemOutcome is the per-item value stored in dispatch results.
type itemOutcome struct {
	Bytes   int
	Frames  int
	Skipped bool
}

// Report summarizes a dispatched command.
type Report struct {
	RunID   string
	Summary *dispatch.Summary
	Skipped int
	Bytes   int64
	Frames  int
}

func newReport(runID string, s *dispatch.Summary) *Report {
	r := &Report{RunID: runID, Summary: s}
	for _, res := range s.Results {
		out, ok := res.Value.(itemOutcome)
		if !ok {
			continue
		}
		if out.Skipped {
			r.Skipped++
		}
		r.Bytes += int64(out.Bytes)
		r.Frames += out.Frames
	}
	return r
}

// DownloadOptions tune Download.
type DownloadOptions struct {
	// Force downloads items even when the ledger or sink already has them.
	Force bool
}

// Download copies every path from the share into the sink under the same
// key. A non-nil Report is returned together with
// *dispatch.ExcessiveFailureRateError.
func (a *App) Download(ctx context.Context, paths []string, opts DownloadOptions) (_ *Report, err error) {
	if a.deps.Reader == nil {
		return nil, missing(CommandDownload, "reader")
	}
	if a.deps.Sink == nil {
		return nil, missing(CommandDownload, "sink")
	}

	ctx, span := a.begin(ctx, CommandDownload)
	defer func() { finish(span, err) }()

	logger.InfoCtx(ctx, "download started", logger.KeyTotal, len(paths), "sink", a.deps.Sink.Describe())

	op := func(ctx context.Context, path string) (any, error) {
		if !opts.Force {
			done, err := a.alreadyDone(ctx, CommandDownload, path)
			if err != nil {
				return nil, err
			}
			if done {
				return itemOutcome{Skipped: true}, nil
			}
		}

		data, err := a.deps.Reader.Read(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := a.deps.Sink.Put(ctx, path, data); err != nil {
			return nil, fmt.Errorf("store %s: %w", path, err)
		}
		if err := a.markDone(ctx, CommandDownload, path, fmt.Sprintf("%d bytes", len(data))); err != nil {
			return nil, err
		}
		return itemOutcome{Bytes: len(data)}, nil
	}

	summary, err := a.dispatcher(CommandDownload).Run(ctx, paths, op)
	return newReport(a.runID, summary), err
}

// alreadyDone consults the ledger and, for downloads, the sink itself.
func (a *App) alreadyDone(ctx context.Context, command, item string) (bool, error) {
	if a.deps.Ledger != nil {
		done, err := a.deps.Ledger.IsDone(ctx, command, item)
		if err != nil || done {
			return done, err
		}
	}
	if command == CommandDownload {
		return a.deps.Sink.Exists(ctx, item)
	}
	return false, nil
}

func (a *App) markDone(ctx context.Context, command, item, detail string) error {
	if a.deps.Ledger == nil {
		return nil
	}
	return a.deps.Ledger.MarkDone(ctx, ledger.Entry{
		Command: command,
		Item:    item,
		RunID:   a.runID,
		Detail:  detail,
	})
}
