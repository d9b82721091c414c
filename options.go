package pageready

import (
	"time"

	"github.com/charmbracelet/log"
)

type options struct {
	driver       Driver
	overrides    map[string]any
	caps         Capabilities
	capsSet      bool
	width        int
	height       int
	sleep        Sleeper
	logger       *log.Logger
	pollInterval time.Duration
	attempts     int
}

// Option configures a Page created by Open.
type Option func(*options)

// WithDriver sets the backend directly, bypassing the driver and
// remote_url configuration.
func WithDriver(d Driver) Option {
	return func(o *options) {
		o.driver = d
	}
}

// WithBaseURL sets the application URL, overriding base_url.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.set("base_url", url)
	}
}

// WithRemoteURL sets the browser endpoint, overriding remote_url. Use
// RemoteLocal to launch a local browser.
func WithRemoteURL(url string) Option {
	return func(o *options) {
		o.set("remote_url", url)
	}
}

// WithArtifactsDir sets where diagnostics are written on fail or skip,
// overriding artifacts_dir.
func WithArtifactsDir(dir string) Option {
	return func(o *options) {
		o.set("artifacts_dir", dir)
	}
}

// WithCapabilities replaces the capability set. Headless and ImplicitWait
// from configuration no longer apply once this is given.
func WithCapabilities(caps Capabilities) Option {
	return func(o *options) {
		o.caps = caps
		o.capsSet = true
	}
}

// WithWindowSize sets the browser viewport in CSS pixels.
func WithWindowSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithHeadless overrides headless.
func WithHeadless(headless bool) Option {
	return func(o *options) {
		o.set("headless", headless)
	}
}

// WithImplicitWait overrides implicit_wait, the cap on each element lookup
// and script call.
func WithImplicitWait(d time.Duration) Option {
	return func(o *options) {
		o.set("implicit_wait", d)
	}
}

// WithSleeper replaces the clock used for settle delays and poll intervals.
func WithSleeper(s Sleeper) Option {
	return func(o *options) {
		o.sleep = s
	}
}

// WithLogger replaces the logger. By default lines go to t.Log.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithPollInterval sets the default interval for WaitFor and
// WaitForOptional.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithAttempts sets the default attempt count for WaitFor and
// WaitForOptional.
func WithAttempts(n int) Option {
	return func(o *options) {
		o.attempts = n
	}
}

func (o *options) set(key string, v any) {
	if o.overrides == nil {
		o.overrides = make(map[string]any)
	}
	o.overrides[key] = v
}

// WaitOption configures a single WaitFor or WaitForOptional call.
type WaitOption func(*waitOptions)

type waitOptions struct {
	attempts      int
	pollInterval  time.Duration
	progressEvery int
}

// WithinAttempts overrides the attempt count for a single wait call.
// A value of 0 means "use defaults". Negative values cause t.Fatal.
func WithinAttempts(n int) WaitOption {
	return func(o *waitOptions) {
		o.attempts = n
	}
}

// WithWaitPollInterval overrides the polling interval for a single wait call.
// A value of 0 means "use defaults". Negative values cause t.Fatal.
// Positive values under 10ms are clamped to 10ms.
func WithWaitPollInterval(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.pollInterval = d
	}
}

// WithProgressEvery logs the current observation every n unsuccessful
// attempts. 0 disables progress lines.
func WithProgressEvery(n int) WaitOption {
	return func(o *waitOptions) {
		o.progressEvery = n
	}
}

const minPollInterval = 10 * time.Millisecond

func defaultOptions() options {
	p := DefaultPoller()
	return options{
		pollInterval: p.Interval,
		attempts:     p.Attempts,
	}
}
