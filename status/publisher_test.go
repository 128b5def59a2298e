package status_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkgo/runner"
	"parkgo/status"
)

// scriptedRunner replays results in order and repeats the last one.
type scriptedRunner struct {
	mu      sync.Mutex
	script  []scripted
	calls   []string
	callsAt []time.Time
}

type scripted struct {
	result runner.RunResult
	err    error
	panic  bool
}

func (s *scriptedRunner) Run(_ context.Context, lookupKey string) (runner.RunResult, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, lookupKey)
	s.callsAt = append(s.callsAt, time.Now())
	step := s.script[min(n, len(s.script)-1)]
	s.mu.Unlock()

	if step.panic {
		panic("driver exploded")
	}
	return step.result, step.err
}

func (s *scriptedRunner) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *scriptedRunner) CallTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.callsAt...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Broadcast(eventType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recordingNotifier) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestPublisher_PlaceholderBeforeFirstCycle(t *testing.T) {
	p := status.NewPublisher(&scriptedRunner{}, "1255", nil)

	rec := p.Current()
	assert.False(t, rec.Succeeded)
	assert.Empty(t, rec.Outcomes)
	assert.NotEmpty(t, rec.CurrentMessage)
	assert.False(t, p.Ready())
	assert.Empty(t, p.History())
}

func TestPublisher_ForceRefreshReadAfterWrite(t *testing.T) {
	r := &scriptedRunner{script: []scripted{{result: resultFailingOn("", 2*time.Second)}}}
	n := &recordingNotifier{}
	p := status.NewPublisher(r, "9999", nil, status.WithNotifier(n))

	rec, err := p.ForceRefresh(context.Background(), "1255")
	require.NoError(t, err)

	assert.Equal(t, rec, p.Current())
	assert.True(t, p.Ready())
	assert.Equal(t, 100, rec.ProgressPercent)
	assert.Equal(t, []string{"1255"}, r.Calls())
	assert.Len(t, p.History(), 5)
	assert.Equal(t, 1, n.Count())
}

func TestPublisher_ForceRefreshDefaultsToScheduledKey(t *testing.T) {
	r := &scriptedRunner{script: []scripted{{result: resultFailingOn("", time.Second)}}}
	p := status.NewPublisher(r, "1255", nil)

	_, err := p.ForceRefresh(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1255"}, r.Calls())
	assert.Equal(t, "1255", p.LookupKey())
}

func TestPublisher_RunErrorPublishesErrorRecord(t *testing.T) {
	r := &scriptedRunner{script: []scripted{{
		result: runner.RunResult{ID: "run-9", Error: "failed to start browser session: no chrome"},
		err:    errors.New("failed to start browser session: no chrome"),
	}}}
	at := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	p := status.NewPublisher(r, "1255", nil, status.WithPublisherClock(func() time.Time { return at }))

	rec, err := p.ForceRefresh(context.Background(), "1255")
	require.NoError(t, err)

	assert.False(t, rec.Succeeded)
	assert.Empty(t, rec.Outcomes)
	require.NotNil(t, rec.ErrorMessage)
	assert.Equal(t, "failed to start browser session: no chrome", *rec.ErrorMessage)
	assert.Equal(t, "run-9", rec.RunID)
	assert.Equal(t, at, rec.GeneratedAt)
	assert.Equal(t, rec, p.Current())
}

func TestPublisher_PanicBecomesErrorRecord(t *testing.T) {
	r := &scriptedRunner{script: []scripted{{panic: true}}}
	p := status.NewPublisher(r, "1255", nil)

	rec, err := p.ForceRefresh(context.Background(), "1255")
	require.NoError(t, err)
	require.NotNil(t, rec.ErrorMessage)
	assert.Contains(t, *rec.ErrorMessage, "driver exploded")
}

func TestPublisher_ForceRefreshCancelled(t *testing.T) {
	r := &scriptedRunner{script: []scripted{{result: resultFailingOn("", time.Second)}}}
	p := status.NewPublisher(r, "1255", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ForceRefresh(ctx, "1255")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, p.Ready())
}

func TestPublisher_StartRefreshesOnInterval(t *testing.T) {
	r := &scriptedRunner{script: []scripted{{result: resultFailingOn("", time.Second)}}}
	n := &recordingNotifier{}
	p := status.NewPublisher(r, "1255", nil,
		status.WithIntervals(20*time.Millisecond, time.Hour),
		status.WithNotifier(n),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(r.Calls()) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.True(t, p.Current().Succeeded)
	assert.GreaterOrEqual(t, n.Count(), 3)
	for _, key := range r.Calls() {
		assert.Equal(t, "1255", key)
	}
}

func TestPublisher_StartRetriesFailedCycleSooner(t *testing.T) {
	r := &scriptedRunner{script: []scripted{
		{err: errors.New("session lost")},
		{result: resultFailingOn("", time.Second)},
	}}
	p := status.NewPublisher(r, "1255", nil, status.WithIntervals(time.Hour, 10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	require.Eventually(t, func() bool { return len(r.Calls()) >= 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return p.Current().Succeeded }, time.Second, 5*time.Millisecond)

	// Only the fallback interval separates the two cycles.
	times := r.CallTimes()
	assert.Less(t, times[1].Sub(times[0]), time.Minute)
}

func TestPublisher_ConcurrentReadersDuringRefresh(t *testing.T) {
	r := &scriptedRunner{script: []scripted{{result: resultFailingOn(runner.StepLogin, time.Second)}}}
	p := status.NewPublisher(r, "1255", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = p.ForceRefresh(context.Background(), "1255")
		}()
		go func() {
			defer wg.Done()
			rec := p.Current()
			// Either the placeholder or a complete record, never a mix.
			if len(rec.Outcomes) > 0 {
				assert.Len(t, rec.Outcomes, 2)
				assert.Equal(t, 50, rec.ProgressPercent)
			}
		}()
	}
	wg.Wait()

	rec := p.Current()
	assert.Equal(t, 50, rec.ProgressPercent)
	assert.Len(t, rec.Outcomes, 2)
}
