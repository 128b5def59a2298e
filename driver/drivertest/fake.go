// Package drivertest provides a scripted in-memory driver.Driver for tests.
package drivertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"parkgo/driver"
)

// Element is a node on the fake page.
type Element struct {
	Tag         string
	Text        string
	Placeholder string

	// Disabled elements are present but never clickable.
	Disabled bool
	// Dismiss removes the element from the page once clicked.
	Dismiss bool
	// ClickErr is returned when the element is clicked.
	ClickErr error
	// OnClick runs after a successful click, typically to reveal the next screen.
	OnClick func(p *Page)

	removed bool
}

// LabelRequest is one recorded Labels call.
type LabelRequest struct {
	Query driver.Query
	Limit int
}

// Page is a fake browser session. The zero value is an empty page.
type Page struct {
	mu sync.Mutex

	elements []*Element
	visited  []string
	clicks   []string
	filled   map[string]string
	waits    []driver.Query
	labels   []LabelRequest
	closed   bool

	// NavigateErr is returned by Navigate when set.
	NavigateErr error
	// OnNavigate runs after a successful Navigate.
	OnNavigate func(p *Page)
	// LabelsErr is returned by Labels when set.
	LabelsErr error

	LogEntries []driver.LogEntry
	CookieJar  []driver.Cookie
}

// NewPage returns a page holding the given elements.
func NewPage(elements ...*Element) *Page {
	p := &Page{}
	p.Add(elements...)
	return p
}

// Add appends elements to the page.
func (p *Page) Add(elements ...*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements = append(p.elements, elements...)
}

// Remove detaches every element matching q.
func (p *Page) Remove(q driver.Query) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range p.elements {
		if q.Matches(el.Tag, el.Text, el.Placeholder) {
			el.removed = true
		}
	}
}

func (p *Page) find(q driver.Query, cond driver.Condition) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, q)
	for _, el := range p.elements {
		if el.removed || !q.Matches(el.Tag, el.Text, el.Placeholder) {
			continue
		}
		if cond == driver.Clickable && el.Disabled {
			continue
		}
		return el
	}
	return nil
}

func (p *Page) Navigate(_ context.Context, url string) error {
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.mu.Lock()
	p.visited = append(p.visited, url)
	hook := p.OnNavigate
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

// WaitFor returns the first matching element, or blocks for the whole
// timeout when none exists.
func (p *Page) WaitFor(ctx context.Context, q driver.Query, cond driver.Condition, timeout time.Duration) (driver.Element, error) {
	if el := p.find(q, cond); el != nil {
		return driver.Element{Query: q, Text: el.Text, Handle: el}, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
		return driver.Element{}, fmt.Errorf("%w: %s (%s after %s)", driver.ErrTimeout, q, cond, timeout)
	case <-ctx.Done():
		return driver.Element{}, ctx.Err()
	}
}

func (p *Page) Click(_ context.Context, handle driver.Element) error {
	el, ok := handle.Handle.(*Element)
	if !ok {
		return errors.New("element was not located by this page")
	}

	p.mu.Lock()
	if el.removed {
		p.mu.Unlock()
		return fmt.Errorf("failed to click %s: element detached", handle.Query)
	}
	if el.ClickErr != nil {
		p.mu.Unlock()
		return el.ClickErr
	}
	p.clicks = append(p.clicks, el.Text)
	if el.Dismiss {
		el.removed = true
	}
	hook := el.OnClick
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

func (p *Page) Fill(_ context.Context, handle driver.Element, text string) error {
	el, ok := handle.Handle.(*Element)
	if !ok {
		return errors.New("element was not located by this page")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.filled == nil {
		p.filled = make(map[string]string)
	}
	p.filled[el.Placeholder] = text
	return nil
}

func (p *Page) Labels(_ context.Context, q driver.Query, limit int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.labels = append(p.labels, LabelRequest{Query: q, Limit: limit})
	if p.LabelsErr != nil {
		return nil, p.LabelsErr
	}

	var labels []string
	for _, el := range p.elements {
		if len(labels) >= limit {
			break
		}
		if !el.removed && q.Matches(el.Tag, el.Text, el.Placeholder) {
			labels = append(labels, el.Text)
		}
	}
	return labels, nil
}

func (p *Page) Logs(_ context.Context, kind string) ([]driver.LogEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var entries []driver.LogEntry
	for _, entry := range p.LogEntries {
		if kind == "" || entry.Kind == kind {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (p *Page) Cookies(context.Context) ([]driver.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]driver.Cookie(nil), p.CookieJar...), nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Visited returns every URL passed to Navigate.
func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

// Clicks returns the text of every clicked element, in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Filled returns the text typed into the input with the given placeholder.
func (p *Page) Filled(placeholder string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filled[placeholder]
}

// Waits returns every query passed to WaitFor.
func (p *Page) Waits() []driver.Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]driver.Query(nil), p.waits...)
}

// LabelRequests returns every Labels call in order.
func (p *Page) LabelRequests() []LabelRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]LabelRequest(nil), p.labels...)
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Launcher hands out sessions built by newPage and remembers them.
type Launcher struct {
	mu      sync.Mutex
	newPage func() *Page
	pages   []*Page

	// Err makes every Launch fail.
	Err error
}

// NewLauncher returns a launcher that builds a fresh page per session.
func NewLauncher(newPage func() *Page) *Launcher {
	return &Launcher{newPage: newPage}
}

func (l *Launcher) Launch(context.Context) (driver.Driver, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	page := l.newPage()
	l.mu.Lock()
	l.pages = append(l.pages, page)
	l.mu.Unlock()
	return page, nil
}

// Pages returns every session handed out so far.
func (l *Launcher) Pages() []*Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Page(nil), l.pages...)
}
