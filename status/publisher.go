package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"parkgo/runner"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultFallback = 10 * time.Second
)

// EventStatus is the event type broadcast after every publish.
const EventStatus = "status"

// Runner executes one workflow run.
type Runner interface {
	Run(ctx context.Context, lookupKey string) (runner.RunResult, error)
}

// Notifier receives every newly published record.
type Notifier interface {
	Broadcast(eventType string, data any)
}

// Publisher owns the most recent Record and refreshes it in the background.
type Publisher struct {
	runner    Runner
	lookupKey string
	interval  time.Duration
	fallback  time.Duration
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	current *Record
	started time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithIntervals sets the regular refresh interval and the shorter interval
// used after a failed cycle.
func WithIntervals(interval, fallback time.Duration) PublisherOption {
	return func(p *Publisher) {
		if interval > 0 {
			p.interval = interval
		}
		if fallback > 0 {
			p.fallback = fallback
		}
	}
}

// WithNotifier broadcasts every published record through n.
func WithNotifier(n Notifier) PublisherOption {
	return func(p *Publisher) { p.notifier = n }
}

// WithPublisherClock replaces time.Now for placeholder and error records.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

// NewPublisher creates a publisher that runs r for lookupKey on every cycle
func NewPublisher(r Runner, lookupKey string, logger *slog.Logger, options ...PublisherOption) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		runner:    r,
		lookupKey: lookupKey,
		interval:  DefaultInterval,
		fallback:  DefaultFallback,
		logger:    logger,
		now:       time.Now,
	}
	for _, apply := range options {
		apply(p)
	}
	p.started = p.now()
	return p
}

// LookupKey returns the key used by scheduled cycles.
func (p *Publisher) LookupKey() string {
	return p.lookupKey
}

// Current returns the published record, or a loading placeholder before the
// first cycle completes.
func (p *Publisher) Current() Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return Placeholder(p.started)
	}
	return *p.current
}

// History returns the outcomes of the published record.
func (p *Publisher) History() []Outcome {
	return p.Current().Outcomes
}

// Ready reports whether at least one cycle has been published.
func (p *Publisher) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current != nil
}

// ForceRefresh runs one cycle immediately and returns the record it
// published. An empty lookupKey uses the scheduled key. The error is non-nil
// only when ctx ended before anything was published.
func (p *Publisher) ForceRefresh(ctx context.Context, lookupKey string) (Record, error) {
	if lookupKey == "" {
		lookupKey = p.lookupKey
	}
	p.logger.Info("forced refresh requested", "lookup_key", lookupKey)

	rec, err := p.refresh(ctx, lookupKey)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Record{}, ctxErr
	}
	if err != nil {
		p.logger.Warn("forced refresh failed", "lookup_key", lookupKey, "error", err)
	}
	return rec, nil
}

// Start runs refresh cycles until ctx is cancelled. The first cycle starts
// immediately. A failed cycle is retried after the fallback interval.
func (p *Publisher) Start(ctx context.Context) {
	p.logger.Info("status publisher started", "interval", p.interval, "fallback", p.fallback, "lookup_key", p.lookupKey)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("status publisher stopped")
			return
		case <-timer.C:
		}

		wait := p.interval
		if _, err := p.refresh(ctx, p.lookupKey); err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait = p.fallback
			p.logger.Warn("refresh cycle failed", "error", err, "retry_in", wait)
		}
		timer.Reset(wait)
	}
}

// refresh is the only path that replaces the published record.
func (p *Publisher) refresh(ctx context.Context, lookupKey string) (rec Record, err error) {
	result, err := p.run(ctx, lookupKey)
	if ctx.Err() != nil {
		return Record{}, errors.Join(ctx.Err(), err)
	}

	if err != nil {
		rec = SummarizeError(err, p.now())
		rec.RunID = result.ID
		rec.LookupKey = lookupKey
	} else {
		rec = Summarize(result)
	}

	p.publish(rec)
	return rec, err
}

func (p *Publisher) run(ctx context.Context, lookupKey string) (result runner.RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh cycle panicked: %v", r)
		}
	}()
	return p.runner.Run(ctx, lookupKey)
}

func (p *Publisher) publish(rec Record) {
	p.mu.Lock()
	p.current = &rec
	p.mu.Unlock()

	p.logger.Info("status published",
		"run_id", rec.RunID,
		"succeeded", rec.Succeeded,
		"progress", rec.ProgressPercent,
		"message", rec.CurrentMessage,
	)
	if p.notifier != nil {
		p.notifier.Broadcast(EventStatus, rec)
	}
}
