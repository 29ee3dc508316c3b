package app

import (
	"context"
	"fmt"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/pkg/classifier"
	"github.com/marmos91/kidwatch/pkg/results"
)

// ClassifyReport is the outcome of Classify.
type ClassifyReport struct {
	*Report

	// Records holds one row per classified video, in input order.
	Records []results.Classification

	// Stats counts videos and videos with a child per camera.
	Stats []results.CameraStats
}

// Classify runs child detection over every video using the thresholds of
// the camera whose folder appears in the path. Outcomes are saved to the
// results store when one is configured.
func (a *App) Classify(ctx context.Context, paths []string) (_ *ClassifyReport, err error) {
	if a.deps.Reader == nil {
		return nil, missing(CommandClassify, "reader")
	}
	if a.deps.Classifier == nil {
		return nil, missing(CommandClassify, "classifier")
	}

	ctx, span := a.begin(ctx, CommandClassify)
	defer func() { finish(span, err) }()

	op := func(ctx context.Context, videoPath string) (any, error) {
		camType, cam, err := a.cameraParams(videoPath)
		if err != nil {
			return nil, err
		}

		data, err := a.deps.Reader.Read(ctx, videoPath)
		if err != nil {
			return nil, err
		}

		verdict, err := a.deps.Classifier.Classify(ctx, data, classifier.Params{
			SampleInterval: cam.SampleInterval,
			ConfThreshold:  cam.ConfThreshold,
			HeightRatio:    cam.HeightRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("classify: %w", err)
		}

		rec := results.Classification{
			VideoPath:   videoPath,
			RunID:       a.runID,
			CameraType:  camType,
			CameraName:  cam.Name,
			HasChild:    verdict.HasChild,
			Frames:      verdict.Frames,
			ProcessedAt: a.now(),
		}
		if a.deps.Results != nil {
			if err := a.deps.Results.Save(ctx, &rec); err != nil {
				return nil, fmt.Errorf("save result: %w", err)
			}
		}

		logger.DebugCtx(ctx, "video classified", logger.KeyCamera, camType,
			"has_child", verdict.HasChild, logger.KeyFrames, verdict.Frames)
		return rec, nil
	}

	summary, runErr := a.dispatcher(CommandClassify).Run(ctx, paths, op)

	report := &ClassifyReport{Report: newReport(a.runID, summary)}
	for _, r := range summary.Results {
		if rec, ok := r.Value.(results.Classification); ok && r.Succeeded() {
			report.Records = append(report.Records, rec)
		}
	}

	report.Stats = tallyStats(report.Records)
	if a.deps.Results != nil {
		stats, err := a.deps.Results.Stats(ctx, results.Filter{RunID: a.runID})
		if err != nil {
			logger.WarnCtx(ctx, "could not read stats from results store", logger.KeyError, err)
		} else {
			report.Stats = stats
		}
	}

	for _, s := range report.Stats {
		logger.InfoCtx(ctx, "camera stats", logger.KeyCamera, s.CameraType,
			logger.KeyTotal, s.Total, "with_child", s.WithChild)
	}
	return report, runErr
}

// tallyStats aggregates records per camera in order of first appearance.
func tallyStats(records []results.Classification) []results.CameraStats {
	var out []results.CameraStats
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.CameraType]
		if !ok {
			i = len(out)
			index[r.CameraType] = i
			out = append(out, results.CameraStats{CameraType: r.CameraType, CameraName: r.CameraName})
		}
		out[i].Total++
		if r.HasChild {
			out[i].WithChild++
		}
	}
	return out
}
