// Package cdp runs chromedp actions against one browser tab and collects the
// tab's console output. It is internal to the pageready package.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/chromedp"
)

// Options configures Open.
type Options struct {
	// RemoteURL is a DevTools endpoint (ws:// or http://). Empty launches a
	// local browser.
	RemoteURL string

	// Args are Chrome switches ("--name" or "--name=value") for a local
	// browser. They are ignored for remote endpoints.
	Args []string

	// ExecPath overrides the local browser binary.
	ExecPath string

	// Width and Height fix the tab's viewport in CSS pixels, for local and
	// remote browsers alike. Zero leaves the browser's own size.
	Width  int
	Height int

	// Timeout caps each Run call.
	Timeout time.Duration

	DisableJavaScript bool

	// Logf receives chromedp's own diagnostics. Nil discards them.
	Logf func(format string, args ...any)
}

// Runner executes actions in a single tab. It is created with Open and must
// be closed with Close.
type Runner struct {
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	console     *Console
	closeOnce   sync.Once
	closeErr    error
}

// Open allocates a browser (remote or local), opens a tab, and enables log
// collection. ctx bounds only the opening itself.
func Open(ctx context.Context, opts Options) (*Runner, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), ExecOptions(opts.Args, opts.ExecPath)...)
	}

	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logf),
		chromedp.WithErrorf(logf),
	)

	r := &Runner{
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		timeout:     opts.Timeout,
		console:     NewConsole(),
	}
	chromedp.ListenTarget(tabCtx, r.console.Handle)

	// The first Run allocates the browser and must use the tab context
	// itself; a derived context would take the browser down with it.
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := cdplog.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable log domain: %w", err)
		}
		if vp := viewport(opts); vp != nil {
			if err := vp.Do(ctx); err != nil {
				return fmt.Errorf("set viewport: %w", err)
			}
		}
		if opts.DisableJavaScript {
			if err := emulation.SetScriptExecutionDisabled(true).Do(ctx); err != nil {
				return fmt.Errorf("disable scripts: %w", err)
			}
		}
		return nil
	}))
	stop()
	if err != nil {
		_ = r.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}
		return nil, &Error{Op: "open", Endpoint: opts.RemoteURL, Err: err}
	}

	return r, nil
}

// viewport is the metrics override for opts, or nil when no size is set.
func viewport(opts Options) *emulation.SetDeviceMetricsOverrideParams {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil
	}
	return emulation.SetDeviceMetricsOverride(int64(opts.Width), int64(opts.Height), 1, false)
}

// Run executes actions in the tab, bounded by both ctx and the runner's
// timeout.
func (r *Runner) Run(ctx context.Context, op string, actions ...chromedp.Action) error {
	var runCtx context.Context
	var cancel context.CancelFunc
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(r.ctx, r.timeout)
	} else {
		runCtx, cancel = context.WithCancel(r.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return &Error{Op: op, Err: err}
	}
	return nil
}

// Console returns the tab's log collector.
func (r *Runner) Console() *Console {
	return r.console
}

// Close closes the tab (and a locally launched browser) and releases the
// allocator. It is safe to call more than once; later calls return the first
// result.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		if err := chromedp.Cancel(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.closeErr = &Error{Op: "close", Err: err}
		}
		r.tabCancel()
		r.allocCancel()
	})
	return r.closeErr
}

// ExecOptions builds allocator options from Chrome switches, starting from
// chromedp's defaults. Headless mode is taken from args only.
func ExecOptions(args []string, execPath string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", false))
	for _, a := range args {
		name, value := ParseSwitch(a)
		if name == "" {
			continue
		}
		if size, ok := value.(string); ok && name == "window-size" {
			var w, h int
			if _, err := fmt.Sscanf(size, "%d,%d", &w, &h); err == nil {
				opts = append(opts, chromedp.WindowSize(w, h))
				continue
			}
		}
		opts = append(opts, chromedp.Flag(name, value))
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return opts
}

// ParseSwitch splits "--name=value" into its parts. A switch without a value
// has value true.
func ParseSwitch(arg string) (name string, value any) {
	arg = strings.TrimLeft(arg, "-")
	if arg == "" {
		return "", nil
	}
	if k, v, ok := strings.Cut(arg, "="); ok {
		return k, v
	}
	return arg, true
}

// LookChrome finds a local Chrome or Chromium binary on $PATH.
func LookChrome() (string, error) {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no chrome or chromium binary found in PATH")
}

// Error represents a failed chromedp operation.
type Error struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("chromedp %s failed: %v", e.Op, e.Err)
	if e.Endpoint != "" {
		msg += "\nendpoint: " + e.Endpoint
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
