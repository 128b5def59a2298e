// Package driver defines the browser capability surface the workflow runs
// against, plus a chromedp-backed implementation of it.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTimeout is returned by WaitFor when no matching element shows up in time.
var ErrTimeout = errors.New("timed out waiting for element")

// Condition is the state an element must reach before WaitFor returns it.
type Condition int

const (
	// Present only requires the element to be attached to the document.
	Present Condition = iota
	// Clickable requires the element to be visible and enabled.
	Clickable
)

func (c Condition) String() string {
	if c == Clickable {
		return "clickable"
	}
	return "present"
}

// Query is a predicate over page elements. A zero Tag matches any element.
// Texts matches when the element text contains any of the labels.
type Query struct {
	Tag         string   `yaml:"tag" json:"tag"`
	Texts       []string `yaml:"texts,omitempty" json:"texts,omitempty"`
	Placeholder string   `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
}

// Button matches a button whose text contains any of the labels.
func Button(labels ...string) Query {
	return Query{Tag: "button", Texts: labels}
}

// Input matches an input field by its placeholder text.
func Input(placeholder string) Query {
	return Query{Tag: "input", Placeholder: placeholder}
}

// XPath renders the query as an XPath expression.
func (q Query) XPath() string {
	tag := q.Tag
	if tag == "" {
		tag = "*"
	}

	var preds []string
	if q.Placeholder != "" {
		preds = append(preds, "@placeholder="+xpathLiteral(q.Placeholder))
	}
	if len(q.Texts) > 0 {
		alts := make([]string, 0, len(q.Texts))
		for _, text := range q.Texts {
			alts = append(alts, "contains(normalize-space(.), "+xpathLiteral(text)+")")
		}
		preds = append(preds, strings.Join(alts, " or "))
	}

	if len(preds) == 0 {
		return "//" + tag
	}
	for i, p := range preds {
		preds[i] = "(" + p + ")"
	}
	return "//" + tag + "[" + strings.Join(preds, " and ") + "]"
}

// Matches reports whether an element with the given tag, text and
// placeholder satisfies the query.
func (q Query) Matches(tag, text, placeholder string) bool {
	if q.Tag != "" && q.Tag != tag {
		return false
	}
	if q.Placeholder != "" && q.Placeholder != placeholder {
		return false
	}
	if len(q.Texts) == 0 {
		return true
	}
	normalized := strings.Join(strings.Fields(text), " ")
	for _, label := range q.Texts {
		if strings.Contains(normalized, label) {
			return true
		}
	}
	return false
}

func (q Query) String() string {
	switch {
	case q.Placeholder != "":
		return fmt.Sprintf("%s[placeholder=%q]", q.Tag, q.Placeholder)
	case len(q.Texts) > 0:
		return fmt.Sprintf("%s%q", q.Tag, q.Texts)
	default:
		return q.Tag
	}
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// Element is a located node. Handle belongs to the Driver that returned it.
type Element struct {
	Query  Query
	Text   string
	Handle any
}

// LogEntry is one captured browser log record.
type LogEntry struct {
	Kind      string    `json:"kind"`
	URL       string    `json:"url,omitempty"`
	Status    int       `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Cookie is a browser cookie visible to the current page.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
}

// Driver is one live browser session.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, q Query, cond Condition, timeout time.Duration) (Element, error)
	Click(ctx context.Context, el Element) error
	Fill(ctx context.Context, el Element, text string) error
	Labels(ctx context.Context, q Query, limit int) ([]string, error)
	Logs(ctx context.Context, kind string) ([]LogEntry, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	Close() error
}

// Launcher opens independent browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Driver, error)

func (f LauncherFunc) Launch(ctx context.Context) (Driver, error) {
	return f(ctx)
}
