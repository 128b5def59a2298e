package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"parkgo/driver"
)

// Dialog describes one interstitial that may or may not show up.
type Dialog struct {
	Name    string
	Dismiss driver.Query
	// Delay is waited before looking for the dialog.
	Delay time.Duration
}

// DialogResolver dismisses optional dialogs. It never fails its caller.
type DialogResolver struct {
	logger *slog.Logger
}

// NewDialogResolver creates a resolver logging to logger.
func NewDialogResolver(logger *slog.Logger) *DialogResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DialogResolver{logger: logger}
}

// Resolve looks for each dialog in order, waiting at most timeout for each,
// and clicks its dismiss control when found. It returns how many dialogs
// were dismissed.
func (r *DialogResolver) Resolve(ctx context.Context, d driver.Driver, dialogs []Dialog, timeout time.Duration) int {
	dismissed := 0
	for _, dialog := range dialogs {
		if dialog.Delay > 0 && !sleep(ctx, dialog.Delay) {
			return dismissed
		}

		el, err := d.WaitFor(ctx, dialog.Dismiss, driver.Clickable, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return dismissed
			}
			if errors.Is(err, driver.ErrTimeout) {
				r.logger.Info("dialog absent", "dialog", dialog.Name)
			} else {
				r.logger.Warn("dialog lookup failed", "dialog", dialog.Name, "error", err)
			}
			continue
		}

		if err := d.Click(ctx, el); err != nil {
			r.logger.Warn("dialog dismiss failed", "dialog", dialog.Name, "error", err)
			continue
		}
		dismissed++
		r.logger.Info("dialog dismissed", "dialog", dialog.Name)
	}
	return dismissed
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
