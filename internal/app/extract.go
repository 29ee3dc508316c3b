package app

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/pkg/codec"
)

// FramesPrefix is the sink prefix extracted frames are stored under.
const FramesPrefix = "frames"

// FrameKey returns the sink key of frame index of videoPath:
// frames/<video base name>/frame_<index>.jpg.
func FrameKey(videoPath string, index int) string {
	base := path.Base(strings.ReplaceAll(videoPath, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	return path.Join(FramesPrefix, base, codec.FrameName(index))
}

// ExtractOptions tune Extract.
type ExtractOptions struct {
	// Clean removes previously extracted frames and forgets the extract
	// ledger before starting.
	Clean bool

	// Force re-extracts videos the ledger marks as done.
	Force bool

	// Quality is the JPEG quality. Zero selects codec.DefaultJPEGQuality.
	Quality int
}

// Extract samples frames from every video at its camera's sample interval
// and stores them as JPEG in the sink.
func (a *App) Extract(ctx context.Context, paths []string, opts ExtractOptions) (_ *Report, err error) {
	switch {
	case a.deps.Reader == nil:
		return nil, missing(CommandExtract, "reader")
	case a.deps.Sink == nil:
		return nil, missing(CommandExtract, "sink")
	case a.deps.Decoder == nil:
		return nil, missing(CommandExtract, "decoder")
	}
	quality := opts.Quality
	if quality == 0 {
		quality = codec.DefaultJPEGQuality
	}

	ctx, span := a.begin(ctx, CommandExtract)
	defer func() { finish(span, err) }()

	if opts.Clean {
		if err := a.deps.Sink.DeleteByPrefix(ctx, FramesPrefix); err != nil {
			return nil, fmt.Errorf("clean frames: %w", err)
		}
		if a.deps.Ledger != nil {
			n, err := a.deps.Ledger.Reset(ctx, CommandExtract)
			if err != nil {
				return nil, fmt.Errorf("reset extract ledger: %w", err)
			}
			logger.InfoCtx(ctx, "extract ledger reset", logger.KeyCount, n)
		}
	}

	op := func(ctx context.Context, videoPath string) (any, error) {
		if !opts.Force {
			done, err := a.alreadyDone(ctx, CommandExtract, videoPath)
			if err != nil {
				return nil, err
			}
			if done {
				return itemOutcome{Skipped: true}, nil
			}
		}

		camType, cam, err := a.cameraParams(videoPath)
		if err != nil {
			return nil, err
		}

		data, err := a.deps.Reader.Read(ctx, videoPath)
		if err != nil {
			return nil, err
		}

		frames := 0
		err = a.deps.Decoder.Decode(ctx, data, cam.SampleInterval, func(f codec.Frame) error {
			img, err := codec.EncodeJPEG(f, quality)
			if err != nil {
				return err
			}
			if err := a.deps.Sink.Put(ctx, FrameKey(videoPath, f.Index), img); err != nil {
				return fmt.Errorf("store frame %d: %w", f.Index, err)
			}
			frames++
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("extract frames after %d: %w", frames, err)
		}

		logger.DebugCtx(ctx, "frames extracted", logger.KeyCamera, camType, logger.KeyFrames, frames)
		if err := a.markDone(ctx, CommandExtract, videoPath, fmt.Sprintf("%d frames", frames)); err != nil {
			return nil, err
		}
		return itemOutcome{Bytes: len(data), Frames: frames}, nil
	}

	summary, err := a.dispatcher(CommandExtract).Run(ctx, paths, op)
	return newReport(a.runID, summary), err
}
