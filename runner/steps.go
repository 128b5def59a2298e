package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parkgo/driver"
)

// diagnosticButtons is how many button labels are logged when applying the
// discount fails.
const diagnosticButtons = 10

// Executor performs one workflow step against a live session. Implementations
// must report every failure through the returned outcome.
type Executor interface {
	Execute(ctx context.Context, step StepName, d driver.Driver, lookupKey string) StepOutcome
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, step StepName, d driver.Driver, lookupKey string) StepOutcome

func (f ExecutorFunc) Execute(ctx context.Context, step StepName, d driver.Driver, lookupKey string) StepOutcome {
	return f(ctx, step, d, lookupKey)
}

// SiteExecutor drives the member site one step at a time.
type SiteExecutor struct {
	cfg     SiteConfig
	dialogs *DialogResolver
	logger  *slog.Logger
	now     func() time.Time
}

// NewSiteExecutor creates an executor for the configured site
func NewSiteExecutor(cfg SiteConfig, logger *slog.Logger) *SiteExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteExecutor{
		cfg:     cfg,
		dialogs: NewDialogResolver(logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Execute runs step and converts any driver error into a failed outcome.
func (e *SiteExecutor) Execute(ctx context.Context, step StepName, d driver.Driver, lookupKey string) StepOutcome {
	var (
		msg string
		err error
	)

	switch step {
	case StepSiteAccess:
		msg, err = e.siteAccess(ctx, d)
	case StepLogin:
		msg, err = e.login(ctx, d)
	case StepVehicleSearch:
		msg, err = e.vehicleSearch(ctx, d, lookupKey)
	case StepVehicleSelection:
		msg, err = e.vehicleSelection(ctx, d)
	case StepDiscountApplication:
		msg, err = e.discountApplication(ctx, d)
	default:
		err = fmt.Errorf("unknown step %q", step)
	}

	outcome := StepOutcome{Step: step, Succeeded: err == nil, Message: msg, OccurredAt: e.now()}
	if err != nil {
		outcome.Message = err.Error()
		e.logger.Warn("step failed", "step", step, "error", err)
	} else {
		e.logger.Info("step succeeded", "step", step, "message", msg)
	}
	return outcome
}

func (e *SiteExecutor) siteAccess(ctx context.Context, d driver.Driver) (string, error) {
	if err := d.Navigate(ctx, e.cfg.EntryURL); err != nil {
		return "", err
	}
	e.dialogs.Resolve(ctx, d, dialogsFrom(e.cfg.UI.InitialDialogs, 0), e.cfg.Timeouts.Dialog)
	return "opened " + e.cfg.EntryURL, nil
}

func (e *SiteExecutor) login(ctx context.Context, d driver.Driver) (string, error) {
	ui, wait := e.cfg.UI, e.cfg.Timeouts.Element

	if err := e.fill(ctx, d, driver.Input(ui.UsernamePlaceholder), e.cfg.Credentials.Username); err != nil {
		return "", err
	}
	if err := e.fill(ctx, d, driver.Input(ui.PasswordPlaceholder), e.cfg.Credentials.Password); err != nil {
		return "", err
	}
	if err := e.click(ctx, d, driver.Button(ui.LoginButton...), driver.Present); err != nil {
		return "", err
	}

	e.dialogs.Resolve(ctx, d, dialogsFrom(ui.LoginDialogs, 0), e.cfg.Timeouts.Dialog)

	if _, err := d.WaitFor(ctx, driver.Input(ui.SearchPlaceholder), driver.Present, wait); err != nil {
		return "", fmt.Errorf("sign-in not confirmed: %w", err)
	}

	if cookies, err := d.Cookies(ctx); err == nil {
		e.logger.Debug("session cookies", "count", len(cookies))
	}
	return "signed in as " + e.cfg.Credentials.Username, nil
}

func (e *SiteExecutor) vehicleSearch(ctx context.Context, d driver.Driver, lookupKey string) (string, error) {
	ui := e.cfg.UI

	if err := e.fill(ctx, d, driver.Input(ui.SearchPlaceholder), lookupKey); err != nil {
		return "", err
	}
	if err := e.click(ctx, d, driver.Button(ui.SearchButton...), driver.Present); err != nil {
		return "", err
	}

	if _, err := d.WaitFor(ctx, driver.Button(ui.SelectButton...), driver.Clickable, e.cfg.Timeouts.Element); err != nil {
		return "", fmt.Errorf("vehicle %s not found: %w", lookupKey, err)
	}
	return "found vehicle " + lookupKey, nil
}

func (e *SiteExecutor) vehicleSelection(ctx context.Context, d driver.Driver) (string, error) {
	ui := e.cfg.UI

	if err := e.click(ctx, d, driver.Button(ui.SelectButton...), driver.Clickable); err != nil {
		return "", err
	}
	if _, err := d.WaitFor(ctx, driver.Button(ui.ApplyButton...), driver.Present, e.cfg.Timeouts.Element); err != nil {
		return "", fmt.Errorf("discount page not reached: %w", err)
	}
	return "vehicle selected", nil
}

func (e *SiteExecutor) discountApplication(ctx context.Context, d driver.Driver) (string, error) {
	ui := e.cfg.UI

	if err := e.click(ctx, d, driver.Button(ui.ApplyButton...), driver.Clickable); err != nil {
		e.logButtons(ctx, d)
		return "", err
	}

	dialogs := dialogsFrom(ui.ConfirmDialogs, e.cfg.Timeouts.ConfirmPause)
	dismissed := e.dialogs.Resolve(ctx, d, dialogs, e.cfg.Timeouts.Element)
	if dismissed < len(dialogs) {
		e.logger.Info("confirmation dialogs missing", "expected", len(dialogs), "dismissed", dismissed)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("discount applied (%d confirmations)", dismissed), nil
}

func (e *SiteExecutor) fill(ctx context.Context, d driver.Driver, q driver.Query, text string) error {
	el, err := d.WaitFor(ctx, q, driver.Present, e.cfg.Timeouts.Element)
	if err != nil {
		return err
	}
	return d.Fill(ctx, el, text)
}

func (e *SiteExecutor) click(ctx context.Context, d driver.Driver, q driver.Query, cond driver.Condition) error {
	el, err := d.WaitFor(ctx, q, cond, e.cfg.Timeouts.Element)
	if err != nil {
		return err
	}
	return d.Click(ctx, el)
}

// logButtons records the first button labels on the page for debugging.
func (e *SiteExecutor) logButtons(ctx context.Context, d driver.Driver) {
	labels, err := d.Labels(ctx, driver.Query{Tag: "button"}, diagnosticButtons)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.logger.Warn("failed to collect button labels", "error", err)
		}
		return
	}
	e.logger.Info("buttons on page", "count", len(labels), "labels", labels)
}
