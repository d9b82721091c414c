package pageready

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSessionClosed is returned by every Session method called after Close.
var ErrSessionClosed = errors.New("pageready: session closed")

// Session is a handle to one remote browser context. A Session is owned by
// exactly one scenario and must not be used after Close.
type Session interface {
	// Navigate loads url and returns once the browser reports a response.
	Navigate(ctx context.Context, url string) error

	// PageSource returns the serialized document.
	PageSource(ctx context.Context) (string, error)

	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// FindElements returns the elements matching selector. It does not wait
	// for elements to appear; an empty result is not an error.
	FindElements(ctx context.Context, by By, selector string) ([]Element, error)

	// ExecuteScript runs a function body (for example "return 1;") in the
	// page and returns its JSON-decoded result.
	ExecuteScript(ctx context.Context, script string) (any, error)

	// Logs returns the browser log entries at or above min, oldest first.
	Logs(ctx context.Context, min Level) ([]LogEntry, error)

	// Close releases the browser context.
	Close() error
}

// Driver opens Sessions against a browser endpoint.
type Driver interface {
	Open(ctx context.Context, caps Capabilities) (Session, error)
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(ctx context.Context, caps Capabilities) (Session, error)

// Open calls f.
func (f DriverFunc) Open(ctx context.Context, caps Capabilities) (Session, error) {
	return f(ctx, caps)
}

// Element is a DOM element found by FindElements.
type Element struct {
	Tag string
}

// LogEntry is a single browser console or runtime log line.
type LogEntry struct {
	Level   Level     `yaml:"level"`
	Message string    `yaml:"message"`
	Source  string    `yaml:"source,omitempty"`
	Time    time.Time `yaml:"time"`
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Level, e.Message)
}

// Capabilities are the browser flags passed when a Session is opened.
type Capabilities struct {
	Headless          bool
	NoSandbox         bool
	DisableDevShm     bool
	WebGL             bool
	GL                string
	Accelerated2D     bool
	Width             int
	Height            int
	HideAutomation    bool
	CaptureAllLogs    bool
	DisableJavaScript bool

	// ImplicitWait caps every element lookup and script call.
	ImplicitWait time.Duration
}

const (
	defaultWindowWidth  = 1920
	defaultWindowHeight = 1080
	defaultImplicitWait = 10 * time.Second
)

// DefaultCapabilities returns the capability set used for canvas-heavy
// single-page applications in a headless container: software GL, WebGL and
// accelerated 2D canvas on, a full-HD viewport, and every log level kept.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Headless:       true,
		NoSandbox:      true,
		DisableDevShm:  true,
		WebGL:          true,
		GL:             "swiftshader",
		Accelerated2D:  true,
		Width:          defaultWindowWidth,
		Height:         defaultWindowHeight,
		HideAutomation: true,
		CaptureAllLogs: true,
		ImplicitWait:   defaultImplicitWait,
	}
}

// ChromeArgs renders the capabilities as Chrome command-line switches.
func (c Capabilities) ChromeArgs() []string {
	var args []string
	if c.Headless {
		args = append(args, "--headless=new")
	}
	if c.NoSandbox {
		args = append(args, "--no-sandbox")
	}
	if c.DisableDevShm {
		args = append(args, "--disable-dev-shm-usage")
	}
	if c.WebGL {
		args = append(args, "--enable-webgl")
	}
	if c.GL != "" {
		args = append(args, "--use-gl="+c.GL)
	}
	if c.Accelerated2D {
		args = append(args, "--enable-accelerated-2d-canvas")
	}
	if c.Width > 0 && c.Height > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", c.Width, c.Height))
	}
	if c.HideAutomation {
		args = append(args, "--disable-blink-features=AutomationControlled")
	}
	return args
}

func (c Capabilities) implicitWait() time.Duration {
	if c.ImplicitWait <= 0 {
		return defaultImplicitWait
	}
	return c.ImplicitWait
}

// scriptFunc turns a function body into an arrow function.
func scriptFunc(body string) string {
	return "() => {" + body + "\n}"
}

// wrapScript turns a function body into an immediately invoked expression.
func wrapScript(body string) string {
	return "(" + scriptFunc(body) + ")()"
}
