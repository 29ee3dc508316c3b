// Package classifier decides whether a recording shows a child by running
// person detection on sampled frames.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/internal/telemetry"
	"github.com/marmos91/kidwatch/pkg/codec"
)

// PersonClassID is the COCO class id for "person".
const PersonClassID = 0

// Detection is one bounding box returned by the detector. BBox is
// [x1, y1, x2, y2] in pixels.
type Detection struct {
	ClassID    int        `json:"class_id"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// Height returns the box height in pixels.
func (d Detection) Height() float64 {
	return d.BBox[3] - d.BBox[1]
}

// Detector finds objects in one frame. Detections below minConfidence may
// be dropped by the detector itself.
type Detector interface {
	Detect(ctx context.Context, frame codec.Frame, minConfidence float64) ([]Detection, error)
}

// Params are the per-camera classification thresholds.
type Params struct {
	SampleInterval time.Duration
	ConfThreshold  float64
	HeightRatio    float64
}

// Verdict is the outcome for one video.
type Verdict struct {
	HasChild bool
	Frames   int
}

// HasChild reports whether any confident person detection is shorter than
// frameHeight*heightRatio.
func HasChild(detections []Detection, frameHeight int, heightRatio, confThreshold float64) bool {
	limit := float64(frameHeight) * heightRatio
	for _, d := range detections {
		if d.ClassID != PersonClassID || d.Confidence < confThreshold {
			continue
		}
		if d.Height() < limit {
			return true
		}
	}
	return false
}

// errFound stops decoding once a child has been seen.
var errFound = errors.New("child found")

// Classifier combines a frame decoder with a detector.
type Classifier struct {
	decoder  codec.Decoder
	detector Detector
}

// New creates a Classifier.
func New(decoder codec.Decoder, detector Detector) *Classifier {
	return &Classifier{decoder: decoder, detector: detector}
}

// Classify samples frames every p.SampleInterval and stops at the first
// frame that contains a child.
func (c *Classifier) Classify(ctx context.Context, video []byte, p Params) (Verdict, error) {
	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanClassify, telemetry.Size(len(video)))
	defer span.End()

	var v Verdict
	err := c.decoder.Decode(ctx, video, p.SampleInterval, func(f codec.Frame) error {
		v.Frames++
		dets, err := c.detector.Detect(ctx, f, p.ConfThreshold)
		if err != nil {
			return fmt.Errorf("detect frame %d: %w", f.Index, err)
		}
		if HasChild(dets, f.Height, p.HeightRatio, p.ConfThreshold) {
			logger.DebugCtx(ctx, "Child detected", "frame", f.Index, "offset", f.Offset)
			return errFound
		}
		return nil
	})

	span.SetAttributes(telemetry.Frames(v.Frames))

	if errors.Is(err, errFound) {
		v.HasChild = true
		return v, nil
	}
	if err != nil {
		span.RecordError(err)
		return v, err
	}
	return v, nil
}
