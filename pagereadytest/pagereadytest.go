// Package pagereadytest provides a scripted, in-memory pageready.Session and
// Driver for testing scenarios and conditions without a browser.
package pagereadytest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/cboone/pageready"
)

// ErrNotStubbed is returned by a Session method that has no stub.
var ErrNotStubbed = errors.New("pagereadytest: not stubbed")

// Session is a fake pageready.Session. Each method uses its Func field when
// set, then the matching static field, and fails with ErrNotStubbed
// otherwise. Every call is counted, including calls after Close, which fail
// with pageready.ErrSessionClosed.
type Session struct {
	NavigateFunc   func(url string) error
	PageSourceFunc func() (string, error)
	TitleFunc      func() (string, error)
	FindFunc       func(by pageready.By, selector string) ([]pageready.Element, error)
	ScriptFunc     func(script string) (any, error)
	LogsFunc       func() ([]pageready.LogEntry, error)

	// Source and PageTitle answer PageSource and Title when set.
	Source    *string
	PageTitle *string

	// Elements maps a CSS selector (see By.CSS) to its matches. A selector
	// missing from a non-nil map has no matches.
	Elements map[string][]pageready.Element

	// Scripts maps an exact script to its result.
	Scripts map[string]any

	LogEntries []pageready.LogEntry

	// CloseErr is returned by the first Close.
	CloseErr error

	mu        sync.Mutex
	calls     map[string]int
	navigated []string
	closes    int
}

// String returns a pointer to s, for the Source and PageTitle fields.
func String(s string) *string {
	return &s
}

func (s *Session) enter(ctx context.Context, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[method]++
	if s.closes > 0 {
		return fmt.Errorf("pagereadytest: %s: %w", method, pageready.ErrSessionClosed)
	}
	return ctx.Err()
}

// Navigate records url.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.enter(ctx, "Navigate"); err != nil {
		return err
	}
	s.mu.Lock()
	s.navigated = append(s.navigated, url)
	s.mu.Unlock()
	if s.NavigateFunc != nil {
		return s.NavigateFunc(url)
	}
	return nil
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	if err := s.enter(ctx, "PageSource"); err != nil {
		return "", err
	}
	switch {
	case s.PageSourceFunc != nil:
		return s.PageSourceFunc()
	case s.Source != nil:
		return *s.Source, nil
	}
	return "", ErrNotStubbed
}

func (s *Session) Title(ctx context.Context) (string, error) {
	if err := s.enter(ctx, "Title"); err != nil {
		return "", err
	}
	switch {
	case s.TitleFunc != nil:
		return s.TitleFunc()
	case s.PageTitle != nil:
		return *s.PageTitle, nil
	}
	return "", ErrNotStubbed
}

func (s *Session) FindElements(ctx context.Context, by pageready.By, selector string) ([]pageready.Element, error) {
	if err := s.enter(ctx, "FindElements"); err != nil {
		return nil, err
	}
	switch {
	case s.FindFunc != nil:
		return s.FindFunc(by, selector)
	case s.Elements != nil:
		return slices.Clone(s.Elements[by.CSS(selector)]), nil
	}
	return nil, ErrNotStubbed
}

func (s *Session) ExecuteScript(ctx context.Context, script string) (any, error) {
	if err := s.enter(ctx, "ExecuteScript"); err != nil {
		return nil, err
	}
	if s.ScriptFunc != nil {
		return s.ScriptFunc(script)
	}
	if v, ok := s.Scripts[script]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: script %q", ErrNotStubbed, script)
}

// Logs returns LogEntries at or above min.
func (s *Session) Logs(ctx context.Context, min pageready.Level) ([]pageready.LogEntry, error) {
	if err := s.enter(ctx, "Logs"); err != nil {
		return nil, err
	}
	entries := s.LogEntries
	if s.LogsFunc != nil {
		var err error
		if entries, err = s.LogsFunc(); err != nil {
			return nil, err
		}
	}
	var out []pageready.LogEntry
	for _, e := range entries {
		if e.Level >= min {
			out = append(out, e)
		}
	}
	return out, nil
}

// Close marks the session closed. Only the first call returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if s.closes == 1 {
		return s.CloseErr
	}
	return nil
}

// Calls returns how many times method (for example "FindElements") was
// called.
func (s *Session) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Closes returns how many times Close was called.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Navigated returns every URL passed to Navigate, in order.
func (s *Session) Navigated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.navigated)
}

// Driver is a fake pageready.Driver that hands out Session.
type Driver struct {
	Session *Session
	OpenErr error

	mu    sync.Mutex
	opens []pageready.Capabilities
}

// NewDriver returns a Driver that opens s.
func NewDriver(s *Session) *Driver {
	return &Driver{Session: s}
}

func (d *Driver) Open(ctx context.Context, caps pageready.Capabilities) (pageready.Session, error) {
	d.mu.Lock()
	d.opens = append(d.opens, caps)
	d.mu.Unlock()
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Session == nil {
		return nil, fmt.Errorf("%w: no session", ErrNotStubbed)
	}
	return d.Session, nil
}

// Opens returns the capabilities of every Open call, in order.
func (d *Driver) Opens() []pageready.Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.opens)
}

// Elements returns n elements with the given tag.
func Elements(tag string, n int) []pageready.Element {
	elems := make([]pageready.Element, n)
	for i := range elems {
		elems[i] = pageready.Element{Tag: tag}
	}
	return elems
}
