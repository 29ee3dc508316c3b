package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marmos91/kidwatch/internal/cli/timeutil"
	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/pkg/notify"
)

// LookbackDays bounds the search for the last day with recordings.
const LookbackDays = 30

// recordingSuffixes are the half-day folder suffixes of a recording date.
var recordingSuffixes = []string{"AM", "PM"}

// CameraStatus classifies a camera after a check.
type CameraStatus string

const (
	StatusOK        CameraStatus = "ok"
	StatusRecovered CameraStatus = "recovered"
	StatusMissing   CameraStatus = "missing"
)

// CameraCheck is the check outcome for one camera folder.
type CameraCheck struct {
	Camera       string       `json:"camera"`
	Date         string       `json:"date"`
	Count        int          `json:"count"`
	Status       CameraStatus `json:"status"`
	NextDayCount int          `json:"next_day_count,omitempty"`
	LastDate     string       `json:"last_date,omitempty"`
	LastCount    int          `json:"last_count,omitempty"`
	Notified     bool         `json:"notified"`
	NotifyError  string       `json:"notify_error,omitempty"`
}

// Check counts the recordings of every camera folder at the share root on
// date. A camera with none that day but some the next is reported as
// recovered. Otherwise the last day with recordings within LookbackDays
// before date is looked up and an alert is sent.
//
// Notification failures are recorded on the CameraCheck, not returned.
func (a *App) Check(ctx context.Context, date time.Time) (_ []CameraCheck, err error) {
	if a.deps.Remote == nil {
		return nil, missing("check", "remote share")
	}
	ctx, span := a.begin(ctx, "check")
	defer func() { finish(span, err) }()

	entries, err := a.deps.Remote.ListFiles(ctx, "", listingExcludes)
	if err != nil {
		return nil, err
	}

	var cameras []string
	for _, e := range entries {
		if e.IsDir && !strings.HasPrefix(e.Name, ".") && !strings.HasPrefix(e.Name, "@") {
			cameras = append(cameras, e.Name)
		}
	}
	sort.Strings(cameras)

	out := make([]CameraCheck, 0, len(cameras))
	for _, cam := range cameras {
		c, err := a.checkCamera(ctx, cam, date)
		if err != nil {
			return out, fmt.Errorf("check %s: %w", cam, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (a *App) checkCamera(ctx context.Context, camera string, date time.Time) (CameraCheck, error) {
	if lc := logger.FromContext(ctx); lc != nil {
		ctx = logger.WithContext(ctx, lc.WithCamera(camera))
	}

	c := CameraCheck{Camera: camera, Date: timeutil.FormatDate(date)}

	count, err := a.countDay(ctx, camera, date)
	if err != nil {
		return c, err
	}
	c.Count = count
	if count > 0 {
		c.Status = StatusOK
		logger.InfoCtx(ctx, "camera recorded", logger.KeyDate, c.Date, logger.KeyCount, count)
		return c, nil
	}

	next, err := a.countDay(ctx, camera, date.AddDate(0, 0, 1))
	if err != nil {
		return c, err
	}
	if next > 0 {
		c.Status = StatusRecovered
		c.NextDayCount = next
		logger.InfoCtx(ctx, "camera recovered next day", logger.KeyDate, c.Date, logger.KeyCount, next)
		return c, nil
	}

	c.Status = StatusMissing
	lastDate, lastCount, err := a.findLastRecording(ctx, camera, date.AddDate(0, 0, -1))
	if err != nil {
		return c, err
	}
	c.LastDate, c.LastCount = lastDate, lastCount

	logger.WarnCtx(ctx, "camera recordings missing", logger.KeyDate, c.Date,
		"last_date", lastDate, "last_count", lastCount)

	if a.deps.Notifier == nil {
		return c, nil
	}
	alert := notify.Alert{
		Camera:    camera,
		Date:      c.Date,
		Count:     c.Count,
		LastDate:  lastDate,
		LastCount: lastCount,
	}
	if err := a.deps.Notifier.Notify(ctx, alert); err != nil {
		c.NotifyError = err.Error()
		logger.ErrorCtx(ctx, "notification failed", logger.KeyError, err)
		return c, nil
	}
	c.Notified = true
	return c, nil
}

// countDay counts videos in the AM and PM folders of day. Missing folders
// count as zero.
func (a *App) countDay(ctx context.Context, camera string, day time.Time) (int, error) {
	prefix := timeutil.FormatDate(day)
	total := 0
	for _, suffix := range recordingSuffixes {
		dir := camera + "/" + prefix + suffix
		ok, err := a.deps.Remote.Exists(ctx, dir)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		videos, err := a.deps.Remote.ListVideoFiles(ctx, dir)
		if err != nil {
			return 0, err
		}
		total += len(videos)
	}
	return total, nil
}

// findLastRecording walks back from start for up to LookbackDays days and
// returns the first day with recordings, or "" when there is none.
func (a *App) findLastRecording(ctx context.Context, camera string, start time.Time) (string, int, error) {
	for i := range LookbackDays {
		day := start.AddDate(0, 0, -i)
		n, err := a.countDay(ctx, camera, day)
		if err != nil {
			return "", 0, err
		}
		if n > 0 {
			return timeutil.FormatDate(day), n, nil
		}
	}
	return "", 0, nil
}
