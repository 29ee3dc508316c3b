// Package notify delivers missing-recording alerts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Summary is the alert headline.
const Summary = "Camera recordings missing on NAS"

// Alert describes a camera that stopped syncing recordings.
type Alert struct {
	Camera string `json:"camera"`
	Date   string `json:"date"`
	Count  int    `json:"count"`

	// LastDate is the most recent day with recordings, empty if none was
	// found in the lookback window.
	LastDate  string `json:"last_date,omitempty"`
	LastCount int    `json:"last_count"`
}

// Content renders the alert body.
func (a Alert) Content() string {
	last := a.LastDate
	if last == "" {
		last = "not found"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Summary)
	fmt.Fprintf(&b, "Camera: %s\n", a.Camera)
	fmt.Fprintf(&b, "Date: %s\n", a.Date)
	fmt.Fprintf(&b, "Recordings that day: %d\n", a.Count)
	fmt.Fprintf(&b, "Last day with recordings: %s\n", last)
	fmt.Fprintf(&b, "Recordings on last day: %d", a.LastCount)
	return b.String()
}

// Notifier sends an alert somewhere.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Multi fans an alert out to several notifiers and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
