package pageready

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Playwright is the playwright-go Driver. Open starts a driver process per
// session and connects to RemoteURL (ws:// with Connect, http:// with
// ConnectOverCDP) or launches Chromium when RemoteURL is empty or
// RemoteLocal.
type Playwright struct {
	RemoteURL string

	// Install downloads the driver and Chromium before the first run.
	Install bool

	// Output receives driver install and run output. Nil discards it.
	Output io.Writer
}

func (d Playwright) local() bool {
	return d.RemoteURL == "" || d.RemoteURL == RemoteLocal
}

func (d Playwright) runOptions() *playwright.RunOptions {
	out := d.Output
	if out == nil {
		out = io.Discard
	}
	return &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   out,
		Stderr:   out,
	}
}

// Open launches or connects a browser, then creates a context and page with
// caps applied. Partially created resources are released on failure.
func (d Playwright) Open(ctx context.Context, caps Capabilities) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := d.runOptions()
	if d.Install {
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("pageready: playwright: install: %w", err)
		}
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("pageready: playwright: start: %w", err)
	}

	browser, err := d.browser(pw, caps)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  caps.Width,
			Height: caps.Height,
		},
		JavaScriptEnabled: playwright.Bool(!caps.DisableJavaScript),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("pageready: playwright: create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("pageready: playwright: create page: %w", err)
	}
	page.SetDefaultTimeout(float64(caps.implicitWait().Milliseconds()))

	s := &playwrightSession{pw: pw, browser: browser, context: bctx, page: page}
	page.OnConsole(func(msg playwright.ConsoleMessage) {
		s.record(ParseLevel(msg.Type()), msg.Text(), "console-api")
	})
	page.OnPageError(func(err error) {
		s.record(LevelError, err.Error(), "javascript")
	})
	return s, nil
}

func (d Playwright) browser(pw *playwright.Playwright, caps Capabilities) (playwright.Browser, error) {
	switch {
	case d.local():
		b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(caps.Headless),
			Args:     launchArgs(caps),
		})
		if err != nil {
			return nil, fmt.Errorf("pageready: playwright: launch: %w", err)
		}
		return b, nil
	case strings.HasPrefix(d.RemoteURL, "ws://"), strings.HasPrefix(d.RemoteURL, "wss://"):
		b, err := pw.Chromium.Connect(d.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("pageready: playwright: connect %s: %w", d.RemoteURL, err)
		}
		return b, nil
	default:
		b, err := pw.Chromium.ConnectOverCDP(d.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("pageready: playwright: connect %s: %w", d.RemoteURL, err)
		}
		return b, nil
	}
}

// launchArgs drops the switches Playwright sets itself.
func launchArgs(caps Capabilities) []string {
	var args []string
	for _, a := range caps.ChromeArgs() {
		if strings.HasPrefix(a, "--headless") || strings.HasPrefix(a, "--window-size") {
			continue
		}
		args = append(args, a)
	}
	return args
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	mu     sync.Mutex
	logs   []LogEntry
	closed bool
}

func (s *playwrightSession) record(lvl Level, msg, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, LogEntry{Level: lvl, Message: msg, Source: source, Time: time.Now()})
}

func (s *playwrightSession) check(ctx context.Context, op string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("pageready: %s: %w", op, ErrSessionClosed)
	}
	return ctx.Err()
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := s.check(ctx, "navigate"); err != nil {
		return err
	}
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("pageready: navigate: %w", err)
	}
	return nil
}

func (s *playwrightSession) PageSource(ctx context.Context) (string, error) {
	if err := s.check(ctx, "page source"); err != nil {
		return "", err
	}
	src, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("pageready: page source: %w", err)
	}
	return src, nil
}

func (s *playwrightSession) Title(ctx context.Context) (string, error) {
	if err := s.check(ctx, "title"); err != nil {
		return "", err
	}
	title, err := s.page.Title()
	if err != nil {
		return "", fmt.Errorf("pageready: title: %w", err)
	}
	return title, nil
}

func (s *playwrightSession) FindElements(ctx context.Context, by By, selector string) ([]Element, error) {
	if err := s.check(ctx, "find elements"); err != nil {
		return nil, err
	}
	handles, err := s.page.QuerySelectorAll(by.CSS(selector))
	if err != nil {
		return nil, fmt.Errorf("pageready: find elements: %w", err)
	}
	elems := make([]Element, 0, len(handles))
	for _, h := range handles {
		tag, err := h.Evaluate("e => e.localName")
		_ = h.Dispose()
		if err != nil {
			return nil, fmt.Errorf("pageready: find elements: %w", err)
		}
		name, _ := tag.(string)
		elems = append(elems, Element{Tag: name})
	}
	return elems, nil
}

func (s *playwrightSession) ExecuteScript(ctx context.Context, script string) (any, error) {
	if err := s.check(ctx, "execute script"); err != nil {
		return nil, err
	}
	v, err := s.page.Evaluate(scriptFunc(script))
	if err != nil {
		return nil, fmt.Errorf("pageready: execute script: %w", err)
	}
	return v, nil
}

func (s *playwrightSession) Logs(ctx context.Context, min Level) ([]LogEntry, error) {
	if err := s.check(ctx, "logs"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []LogEntry
	for _, e := range s.logs {
		if e.Level >= min {
			out = append(out, e)
		}
	}
	return out, nil
}

// Close releases page, context, browser and driver in that order, continuing
// past failures. Later calls return nil.
func (s *playwrightSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}
	if err := s.context.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close context: %w", err))
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("pageready: close: %w", err)
	}
	return nil
}
