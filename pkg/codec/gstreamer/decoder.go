// Package gstreamer decodes videos through a GStreamer pipeline ending in an
// appsink. It needs cgo and the GStreamer runtime with the base and good
// plugin sets.
package gstreamer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/internal/telemetry"
	"github.com/marmos91/kidwatch/pkg/codec"
)

var initOnce sync.Once

// Decoder implements codec.Decoder.
type Decoder struct {
	// TempDir holds the video while GStreamer reads it. Empty uses os.TempDir.
	TempDir string
}

// New returns a Decoder spooling videos under tempDir.
func New(tempDir string) *Decoder {
	return &Decoder{TempDir: tempDir}
}

// PipelineDescription returns the gst-launch pipeline that samples one RGB
// frame per interval from the file at location.
func PipelineDescription(location string, interval time.Duration) string {
	ms := interval.Milliseconds()
	if ms <= 0 {
		ms = 1000
	}
	return fmt.Sprintf(
		"filesrc location=%q ! decodebin ! videoconvert ! videorate drop-only=true ! "+
			"video/x-raw,format=RGB,framerate=1000/%d ! appsink name=sink sync=false",
		location, ms,
	)
}

// Decode calls fn for each sampled frame in order. Context cancellation is
// checked between frames.
func (d *Decoder) Decode(ctx context.Context, video []byte, interval time.Duration, fn codec.FrameFunc) error {
	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanDecode, telemetry.Size(len(video)))
	defer span.End()

	initOnce.Do(func() { gst.Init(nil) })

	location, cleanup, err := d.spool(video)
	if err != nil {
		return err
	}
	defer cleanup()

	pipeline, err := gst.NewPipelineFromString(PipelineDescription(location, interval))
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer func() {
		if stopErr := pipeline.SetState(gst.StateNull); stopErr != nil {
			logger.DebugCtx(ctx, "Pipeline stop failed", logger.Err(stopErr))
		}
	}()

	elem, err := pipeline.GetElementByName("sink")
	if err != nil {
		return fmt.Errorf("find appsink: %w", err)
	}
	sink := app.SinkFromElement(elem)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	frames := 0
	defer func() { span.SetAttributes(telemetry.Frames(frames)) }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sample := sink.PullSample()
		if sample == nil {
			if sink.IsEOS() {
				logger.DebugCtx(ctx, "Video decoded", logger.KeyFrames, frames)
				return nil
			}
			return fmt.Errorf("decode stopped after %d frames before end of stream", frames)
		}

		frame, err := frameFromSample(sample, frames, interval)
		if err != nil {
			return err
		}
		if err := fn(frame); err != nil {
			return err
		}
		frames++
	}
}

func (d *Decoder) spool(video []byte) (string, func(), error) {
	f, err := os.CreateTemp(d.TempDir, "kidwatch-*.video")
	if err != nil {
		return "", nil, fmt.Errorf("spool video: %w", err)
	}
	name := f.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := f.Write(video); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("spool video: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("spool video: %w", err)
	}
	return name, cleanup, nil
}

func frameFromSample(sample *gst.Sample, index int, interval time.Duration) (codec.Frame, error) {
	caps := sample.GetCaps()
	if caps == nil || caps.GetSize() == 0 {
		return codec.Frame{}, fmt.Errorf("frame %d: sample has no caps", index)
	}
	structure := caps.GetStructureAt(0)

	width, err := intField(structure, "width")
	if err != nil {
		return codec.Frame{}, fmt.Errorf("frame %d: %w", index, err)
	}
	height, err := intField(structure, "height")
	if err != nil {
		return codec.Frame{}, fmt.Errorf("frame %d: %w", index, err)
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return codec.Frame{}, fmt.Errorf("frame %d: sample has no buffer", index)
	}

	// The buffer is reused by GStreamer once unmapped.
	data := buffer.Map(gst.MapRead).Bytes()
	pix := make([]byte, len(data))
	copy(pix, data)
	buffer.Unmap()

	frame := codec.Frame{
		Index:  index,
		Offset: time.Duration(index) * interval,
		Width:  width,
		Height: height,
		Stride: len(pix) / height,
		RGB:    pix,
	}
	if err := frame.Validate(); err != nil {
		return codec.Frame{}, err
	}
	return frame, nil
}

func intField(s *gst.Structure, name string) (int, error) {
	v, err := s.GetValue(name)
	if err != nil {
		return 0, fmt.Errorf("caps field %s: %w", name, err)
	}
	n, ok := v.(int)
	if !ok || n <= 0 {
		return 0, fmt.Errorf("caps field %s: unexpected value %v", name, v)
	}
	return n, nil
}
