package app

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/marmos91/kidwatch/internal/logger"
)

// DefaultSampleSeed makes samples reproducible across runs.
const DefaultSampleSeed = 20240819

// SampleOptions tune Sample.
type SampleOptions struct {
	// Cameras to sample. Empty selects every configured camera.
	Cameras []string

	// Date restricts the pool to that day's recording folders. Empty samples
	// from everything under the camera folder.
	Date string

	Seed uint64
}

// SampleGroup is the sample drawn for one camera.
type SampleGroup struct {
	Camera    string   `json:"camera" yaml:"camera"`
	Available int      `json:"available" yaml:"available"`
	Videos    []string `json:"videos" yaml:"videos"`
}

// Sample draws up to sample_size videos per camera. Cameras without
// recordings are skipped.
func (a *App) Sample(ctx context.Context, opts SampleOptions) ([]SampleGroup, error) {
	if a.deps.Remote == nil {
		return nil, missing("sample", "remote share")
	}
	ctx, span := a.begin(ctx, "sample")
	defer span.End()

	seed := opts.Seed
	if seed == 0 {
		seed = DefaultSampleSeed
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	cameras := opts.Cameras
	if len(cameras) == 0 {
		cameras = a.cfg.CameraNames()
	}

	var groups []SampleGroup
	for _, name := range cameras {
		cam, err := a.cfg.Camera(name)
		if err != nil {
			return nil, err
		}
		if cam.SampleSize <= 0 {
			continue
		}

		var videos []string
		if opts.Date != "" {
			videos, err = a.CameraVideos(ctx, name, opts.Date)
		} else {
			videos, err = a.deps.Remote.ListVideoFiles(ctx, cam.Folder)
		}
		if errors.Is(err, ErrNoRecordings) {
			logger.WarnCtx(ctx, "no recordings to sample", logger.KeyCamera, name)
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(videos) == 0 {
			continue
		}

		n := min(cam.SampleSize, len(videos))
		picked := make([]string, 0, n)
		for _, i := range rng.Perm(len(videos))[:n] {
			picked = append(picked, videos[i])
		}

		logger.InfoCtx(ctx, "camera sampled", logger.KeyCamera, name, logger.KeyCount, n, "available", len(videos))
		groups = append(groups, SampleGroup{Camera: name, Available: len(videos), Videos: picked})
	}
	return groups, nil
}

// SamplePaths flattens groups into one list.
func SamplePaths(groups []SampleGroup) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g.Videos...)
	}
	return out
}
