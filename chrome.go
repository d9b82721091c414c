package pageready

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	cdpnode "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/cboone/pageready/internal/cdp"
)

// RemoteLocal as a remote URL means "launch a local browser".
const RemoteLocal = "local"

// Chrome is the chromedp Driver. It connects to a DevTools endpoint, or
// launches a local browser when RemoteURL is empty or RemoteLocal.
type Chrome struct {
	RemoteURL string

	// ExecPath overrides the local browser binary.
	ExecPath string

	// Logf receives chromedp diagnostics. Nil discards them.
	Logf func(format string, args ...any)
}

// Local reports whether Open launches a browser instead of connecting.
func (d Chrome) Local() bool {
	return d.RemoteURL == "" || d.RemoteURL == RemoteLocal
}

// Open starts a tab with caps applied.
func (d Chrome) Open(ctx context.Context, caps Capabilities) (Session, error) {
	r, err := cdp.Open(ctx, d.options(caps))
	if err != nil {
		return nil, err
	}
	return &chromeSession{runner: r}, nil
}

// options maps caps onto the runner. Switches only reach a local browser;
// the viewport is applied to remote tabs as well.
func (d Chrome) options(caps Capabilities) cdp.Options {
	opts := cdp.Options{
		Timeout:           caps.implicitWait(),
		DisableJavaScript: caps.DisableJavaScript,
		Width:             caps.Width,
		Height:            caps.Height,
		Logf:              d.Logf,
	}
	if d.Local() {
		opts.Args = caps.ChromeArgs()
		opts.ExecPath = d.ExecPath
	} else {
		opts.RemoteURL = d.RemoteURL
	}
	return opts
}

type chromeSession struct {
	runner *cdp.Runner
	closed atomic.Bool
}

func (s *chromeSession) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	if s.closed.Load() {
		return fmt.Errorf("pageready: %s: %w", op, ErrSessionClosed)
	}
	return s.runner.Run(ctx, op, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, "navigate", chromedp.Navigate(url))
}

func (s *chromeSession) PageSource(ctx context.Context) (string, error) {
	var src string
	err := s.run(ctx, "page source", chromedp.Evaluate(
		`document.documentElement ? document.documentElement.outerHTML : ""`, &src))
	return src, err
}

func (s *chromeSession) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, "title", chromedp.Title(&title))
	return title, err
}

func (s *chromeSession) FindElements(ctx context.Context, by By, selector string) ([]Element, error) {
	var nodes []*cdpnode.Node
	err := s.run(ctx, "find elements",
		chromedp.Nodes(by.CSS(selector), &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	elems := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		tag := n.LocalName
		if tag == "" {
			tag = strings.ToLower(n.NodeName)
		}
		elems = append(elems, Element{Tag: tag})
	}
	return elems, nil
}

func (s *chromeSession) ExecuteScript(ctx context.Context, script string) (any, error) {
	// undefined has no JSON form; report it as nil.
	expr := "(() => { const v = " + wrapScript(script) + "; return v === undefined ? null : v; })()"
	var v any
	if err := s.run(ctx, "execute script", chromedp.Evaluate(expr, &v)); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *chromeSession) Logs(ctx context.Context, min Level) ([]LogEntry, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("pageready: logs: %w", ErrSessionClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []LogEntry
	for _, e := range s.runner.Console().Entries() {
		lvl := ParseLevel(e.Level)
		if lvl < min {
			continue
		}
		out = append(out, LogEntry{Level: lvl, Message: e.Text, Source: e.Source, Time: e.Time})
	}
	return out, nil
}

func (s *chromeSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.runner.Close()
}

// requireChrome skips t when a local browser is wanted and none is installed.
// An explicitly configured binary must exist, so a missing one fails t.
func requireChrome(t testing.TB, d *Chrome) {
	t.Helper()
	if !d.Local() {
		return
	}
	if d.ExecPath != "" {
		if _, err := os.Stat(d.ExecPath); err != nil {
			t.Fatalf("pageready: open: %v", err)
		}
		return
	}
	path, err := cdp.LookChrome()
	if err != nil {
		t.Skip("pageready: open: chrome not found")
	}
	d.ExecPath = path
}
