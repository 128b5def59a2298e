package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"parkgo/driver"
)

const (
	attrRunID     = "parkgo.run.id"
	attrLookupKey = "parkgo.run.lookup_key"
	attrStep      = "parkgo.step.name"
	attrSucceeded = "parkgo.step.succeeded"
)

// TracerName is the instrumentation scope of run and step spans.
const TracerName = "parkgo/runner"

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, result RunResult) error
}

// Controller runs the fixed step sequence, one browser session per run.
type Controller struct {
	launcher driver.Launcher
	executor Executor
	store    RunStore
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithStore records every finished run in store.
func WithStore(store RunStore) Option {
	return func(c *Controller) { c.store = store }
}

// WithClock replaces time.Now for elapsed time measurement.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) { c.tracer = tracer }
}

// NewController creates a controller that launches sessions from launcher
// and performs steps with executor.
func NewController(launcher driver.Launcher, executor Executor, logger *slog.Logger, options ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		launcher: launcher,
		executor: executor,
		logger:   logger,
		tracer:   otel.Tracer(TracerName),
		now:      time.Now,
	}
	for _, apply := range options {
		apply(c)
	}
	return c
}

// Run executes every step in order for lookupKey and stops at the first
// failure. The error is non-nil only when no browser session could be
// started; the returned result describes the run in every case.
func (c *Controller) Run(ctx context.Context, lookupKey string) (RunResult, error) {
	start := c.now()
	result := RunResult{
		ID:        uuid.NewString(),
		LookupKey: lookupKey,
		Outcomes:  make([]StepOutcome, 0, len(Steps)),
		StartedAt: start,
	}
	logger := c.logger.With("run_id", result.ID, "lookup_key", lookupKey)

	ctx, span := c.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String(attrRunID, result.ID),
		attribute.String(attrLookupKey, lookupKey),
	))
	defer span.End()

	logger.Info("run started")

	if err := c.runSteps(ctx, logger, &result); err != nil {
		result.Error = err.Error()
		result.Elapsed = c.now().Sub(start)
		setError(span, err)
		logger.Error("run could not start", "error", err)
		c.persist(ctx, logger, result)
		return result, err
	}

	result.Succeeded = len(result.Outcomes) == len(Steps) && result.Successes() == len(Steps)
	result.Elapsed = c.now().Sub(start)

	if result.Succeeded {
		logger.Info("run finished", "elapsed", result.Elapsed)
	} else {
		span.SetStatus(codes.Error, result.Error)
		logger.Warn("run failed", "error", result.Error, "steps", len(result.Outcomes), "elapsed", result.Elapsed)
	}

	c.persist(ctx, logger, result)
	return result, nil
}

// runSteps owns the browser session for the whole sequence.
func (c *Controller) runSteps(ctx context.Context, logger *slog.Logger, result *RunResult) error {
	session, err := c.launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close browser session", "error", err)
		}
	}()

	for _, step := range Steps {
		outcome := c.runStep(ctx, step, session, result.LookupKey)
		result.Outcomes = append(result.Outcomes, outcome)
		if !outcome.Succeeded {
			result.Error = outcome.Message
			break
		}
	}

	if entries, err := session.Logs(ctx, driver.LogNetwork); err == nil {
		logger.Debug("network responses captured", "count", len(entries))
	}
	return nil
}

// runStep executes one step, turning a panicking executor into a failure.
func (c *Controller) runStep(ctx context.Context, step StepName, session driver.Driver, lookupKey string) (outcome StepOutcome) {
	ctx, span := c.tracer.Start(ctx, "workflow.step", trace.WithAttributes(
		attribute.String(attrStep, string(step)),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			outcome = StepOutcome{
				Step:       step,
				Message:    fmt.Sprintf("step %s panicked: %v", step, r),
				OccurredAt: time.Now(),
			}
		}
		if outcome.OccurredAt.IsZero() {
			outcome.OccurredAt = time.Now()
		}
		span.SetAttributes(attribute.Bool(attrSucceeded, outcome.Succeeded))
		if !outcome.Succeeded {
			span.SetStatus(codes.Error, outcome.Message)
		}
	}()

	outcome = c.executor.Execute(ctx, step, session, lookupKey)
	outcome.Step = step
	return outcome
}

func (c *Controller) persist(ctx context.Context, logger *slog.Logger, result RunResult) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveRun(ctx, result); err != nil {
		logger.Error("failed to save run", "error", err)
	}
}

func setError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
