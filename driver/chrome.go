package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// LogNetwork is the log kind holding captured network responses.
const LogNetwork = "network"

// ChromeOptions configures browser sessions started by ChromeLauncher.
type ChromeOptions struct {
	Headless        bool
	ExecPath        string
	PageLoadTimeout time.Duration
	WindowWidth     int
	WindowHeight    int
}

// ChromeLauncher starts one headless Chrome process per session.
type ChromeLauncher struct {
	opts   ChromeOptions
	logger *slog.Logger
}

// NewChromeLauncher creates a launcher with the given options
func NewChromeLauncher(opts ChromeOptions, logger *slog.Logger) *ChromeLauncher {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 30 * time.Second
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1920, 1080
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeLauncher{opts: opts, logger: logger}
}

// Launch starts a fresh browser and returns a session bound to its only tab.
func (l *ChromeLauncher) Launch(ctx context.Context) (Driver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight),
	)
	if l.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		pageTimeout: l.opts.PageLoadTimeout,
		logger:      l.logger,
	}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	// The first Run allocates the browser, so it must use the tab context itself.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	l.logger.Debug("browser session started", "headless", l.opts.Headless)
	return s, nil
}

type chromeSession struct {
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	pageTimeout time.Duration
	logger      *slog.Logger

	mu   sync.Mutex
	logs []LogEntry

	closeOnce sync.Once
}

func (s *chromeSession) onEvent(ev any) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if e.Response == nil {
			return
		}
		s.mu.Lock()
		s.logs = append(s.logs, LogEntry{
			Kind:      LogNetwork,
			URL:       e.Response.URL,
			Status:    int(e.Response.Status),
			Message:   e.Response.MimeType,
			Timestamp: time.Now(),
		})
		s.mu.Unlock()
	}
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.pageTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *chromeSession) WaitFor(ctx context.Context, q Query, cond Condition, timeout time.Duration) (Element, error) {
	xpath := q.XPath()

	var actions []chromedp.Action
	if cond == Clickable {
		actions = append(actions,
			chromedp.WaitVisible(xpath, chromedp.BySearch),
			chromedp.WaitEnabled(xpath, chromedp.BySearch),
		)
	} else {
		actions = append(actions, chromedp.WaitReady(xpath, chromedp.BySearch))
	}

	var text string
	actions = append(actions, chromedp.Evaluate(textScript(xpath), &text))

	err := s.run(ctx, timeout, actions...)
	switch {
	case err == nil:
		return Element{Query: q, Text: text, Handle: xpath}, nil
	case errors.Is(err, context.DeadlineExceeded):
		return Element{}, fmt.Errorf("%w: %s (%s after %s)", ErrTimeout, q, cond, timeout)
	default:
		return Element{}, fmt.Errorf("failed to wait for %s: %w", q, err)
	}
}

func (s *chromeSession) Click(ctx context.Context, el Element) error {
	xpath, err := handleXPath(el)
	if err != nil {
		return err
	}

	// Script click: overlays on the target site intercept synthetic mouse events.
	var clicked bool
	if err := s.run(ctx, s.pageTimeout, chromedp.Evaluate(clickScript(xpath), &clicked)); err != nil {
		return fmt.Errorf("failed to click %s: %w", el.Query, err)
	}
	if !clicked {
		return fmt.Errorf("failed to click %s: element detached", el.Query)
	}
	return nil
}

func (s *chromeSession) Fill(ctx context.Context, el Element, text string) error {
	xpath, err := handleXPath(el)
	if err != nil {
		return err
	}

	err = s.run(ctx, s.pageTimeout,
		chromedp.Clear(xpath, chromedp.BySearch),
		chromedp.SendKeys(xpath, text, chromedp.BySearch),
	)
	if err != nil {
		return fmt.Errorf("failed to fill %s: %w", el.Query, err)
	}
	return nil
}

func (s *chromeSession) Labels(ctx context.Context, q Query, limit int) ([]string, error) {
	var labels []string
	if err := s.run(ctx, s.pageTimeout, chromedp.Evaluate(labelsScript(q.XPath(), limit), &labels)); err != nil {
		return nil, fmt.Errorf("failed to read labels of %s: %w", q, err)
	}
	return labels, nil
}

func (s *chromeSession) Logs(_ context.Context, kind string) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]LogEntry, 0, len(s.logs))
	for _, entry := range s.logs {
		if kind == "" || entry.Kind == kind {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *chromeSession) Cookies(ctx context.Context) ([]Cookie, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, s.pageTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}
	return out, nil
}

func (s *chromeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = chromedp.Cancel(s.ctx)
		s.tabCancel()
		s.allocCancel()
		s.logger.Debug("browser session closed")
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func handleXPath(el Element) (string, error) {
	xpath, ok := el.Handle.(string)
	if !ok || xpath == "" {
		return "", fmt.Errorf("element %s was not located by this session", el.Query)
	}
	return xpath, nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

const firstNodeJS = `document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`

func textScript(xpath string) string {
	node := fmt.Sprintf(firstNodeJS, jsString(xpath))
	return fmt.Sprintf(`(function(){var n=%s; return n ? (n.innerText || n.value || "").trim() : "";})()`, node)
}

func clickScript(xpath string) string {
	node := fmt.Sprintf(firstNodeJS, jsString(xpath))
	return fmt.Sprintf(`(function(){var n=%s; if (!n) { return false; } n.click(); return true;})()`, node)
}

func labelsScript(xpath string, limit int) string {
	return fmt.Sprintf(`(function(xp, limit){
	var r = document.evaluate(xp, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	var out = [];
	for (var i = 0; i < r.snapshotLength && out.length < limit; i++) {
		out.push((r.snapshotItem(i).innerText || "").trim());
	}
	return out;
})(%s, %d)`, jsString(xpath), limit)
}
