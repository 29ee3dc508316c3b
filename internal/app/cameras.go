package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/pkg/config"
	"github.com/marmos91/kidwatch/pkg/smb"
)

// ErrNoRecordings is returned when a selection matches no recording folder.
var ErrNoRecordings = errors.New("no recordings found")

// listingExcludes are names dropped from shallow listings.
var listingExcludes = map[string]struct{}{".DS_Store": {}}

// Selection picks the videos a command works on. Explicit Paths win over a
// camera/date selection.
type Selection struct {
	Paths   []string
	Cameras []string // empty selects every configured camera
	Date    string   // YYYYMMDD prefix of the recording folders; empty selects every day
}

// CameraVideos returns the videos of camera recorded on date. Recording
// folders are the direct children of the camera folder whose name starts
// with date (e.g. 20240819AM and 20240819PM).
func (a *App) CameraVideos(ctx context.Context, camera, date string) ([]string, error) {
	if a.deps.Remote == nil {
		return nil, missing("list", "remote share")
	}
	cam, err := a.cfg.Camera(camera)
	if err != nil {
		return nil, err
	}

	entries, err := a.deps.Remote.ListFiles(ctx, cam.Folder, listingExcludes)
	if err != nil {
		return nil, err
	}

	var dirs []smb.FileEntry
	for _, e := range entries {
		if e.IsDir && strings.HasPrefix(e.Name, date) {
			dirs = append(dirs, e)
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: camera %s on %s", ErrNoRecordings, camera, date)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })

	var videos []string
	for _, d := range dirs {
		files, err := a.deps.Remote.ListVideoFiles(ctx, d.RemotePath)
		if err != nil {
			return nil, err
		}
		videos = append(videos, files...)
	}

	logger.DebugCtx(ctx, "camera videos listed", logger.KeyCamera, camera, logger.KeyDate, date,
		logger.KeyCount, len(videos))
	return videos, nil
}

// Select resolves sel to a list of share-relative video paths. A camera
// without recordings is skipped with a warning unless it was the only one
// asked for.
func (a *App) Select(ctx context.Context, sel Selection) ([]string, error) {
	if len(sel.Paths) > 0 {
		return sel.Paths, nil
	}
	if sel.Date == "" && len(sel.Cameras) == 0 {
		return nil, errors.New("a date, a camera or a video list is required")
	}

	cameras := sel.Cameras
	if len(cameras) == 0 {
		cameras = a.cfg.CameraNames()
	}
	if len(cameras) == 0 {
		return nil, errors.New("no cameras configured")
	}

	var all []string
	for _, cam := range cameras {
		videos, err := a.cameraSelection(ctx, cam, sel.Date)
		if errors.Is(err, ErrNoRecordings) && len(cameras) > 1 {
			logger.WarnCtx(ctx, "no recordings for camera", logger.KeyCamera, cam, logger.KeyDate, sel.Date)
			continue
		}
		if err != nil {
			return nil, err
		}
		all = append(all, videos...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w for %v %s", ErrNoRecordings, cameras, sel.Date)
	}
	return all, nil
}

// cameraSelection returns the camera's videos on date, or every video under
// the camera folder when date is empty.
func (a *App) cameraSelection(ctx context.Context, camera, date string) ([]string, error) {
	if date != "" {
		return a.CameraVideos(ctx, camera, date)
	}
	if a.deps.Remote == nil {
		return nil, missing("list", "remote share")
	}
	cam, err := a.cfg.Camera(camera)
	if err != nil {
		return nil, err
	}
	videos, err := a.deps.Remote.ListVideoFiles(ctx, cam.Folder)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: camera %s", ErrNoRecordings, camera)
	}
	return videos, nil
}

// CameraTypeFor returns the camera whose folder occurs in videoPath, or
// "default". The longest matching folder wins.
func (a *App) CameraTypeFor(videoPath string) string {
	best, bestLen := config.DefaultCamera, 0
	for _, name := range a.cfg.CameraNames() {
		cam, err := a.cfg.Camera(name)
		if err != nil || cam.Folder == "" {
			continue
		}
		if strings.Contains(videoPath, cam.Folder) && len(cam.Folder) > bestLen {
			best, bestLen = name, len(cam.Folder)
		}
	}
	return best
}

// cameraParams returns the camera config used for videoPath.
func (a *App) cameraParams(videoPath string) (string, config.CameraConfig, error) {
	camType := a.CameraTypeFor(videoPath)
	cam, err := a.cfg.Camera(camType)
	return camType, cam, err
}
