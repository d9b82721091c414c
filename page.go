package pageready

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cboone/pageready/internal/config"
)

// Page is a handle to one browser session owned by a test. It is created
// with Open and closed automatically via t.Cleanup.
type Page struct {
	t      testing.TB
	sess   Session
	cfg    config.Config
	opts   options
	logger *log.Logger

	closeOnce sync.Once
}

// harness is everything Open and Run resolve before a session exists.
type harness struct {
	cfg    config.Config
	opts   options
	caps   Capabilities
	driver Driver
	logger *log.Logger
}

func newHarness(t testing.TB, userOpts []Option) harness {
	t.Helper()

	opts := defaultOptions()
	for _, o := range userOpts {
		o(&opts)
	}
	if opts.attempts < 0 {
		t.Fatalf("pageready: open: negative attempts: %d", opts.attempts)
	}
	if opts.pollInterval < 0 {
		t.Fatalf("pageready: open: negative poll interval: %v", opts.pollInterval)
	}

	cfg, err := config.Load(opts.overrides)
	if err != nil {
		t.Fatalf("pageready: open: config: %v", err)
	}

	logger := opts.logger
	if logger == nil {
		logger = testLogger(t, cfg.LogLevel)
	}

	h := harness{cfg: cfg, opts: opts, logger: logger}
	h.caps = h.capabilities()
	h.driver = opts.driver
	if h.driver == nil {
		h.driver = h.defaultDriver(t)
	}
	return h
}

func (h harness) capabilities() Capabilities {
	caps := h.opts.caps
	if !h.opts.capsSet {
		caps = DefaultCapabilities()
		caps.Headless = h.cfg.Headless
		caps.ImplicitWait = h.cfg.ImplicitWait
	}
	if h.opts.width > 0 && h.opts.height > 0 {
		caps.Width = h.opts.width
		caps.Height = h.opts.height
	}
	return caps
}

func (h harness) defaultDriver(t testing.TB) Driver {
	t.Helper()
	switch h.cfg.Driver {
	case config.DriverPlaywright:
		return Playwright{
			RemoteURL: h.cfg.RemoteURL,
			Install:   h.cfg.PlaywrightInstall,
		}
	default:
		d := Chrome{
			RemoteURL: h.cfg.RemoteURL,
			ExecPath:  h.cfg.ChromePath,
			Logf:      h.logger.Debugf,
		}
		requireChrome(t, &d)
		return d
	}
}

func (h harness) sleeper() Sleeper {
	if h.opts.sleep != nil {
		return h.opts.sleep
	}
	return Sleep
}

// Open connects a browser session. Cleanup is automatic via t.Cleanup.
func Open(t testing.TB, userOpts ...Option) *Page {
	t.Helper()

	h := newHarness(t, userOpts)
	h.logger.Debug("opening session", "base_url", h.cfg.BaseURL, "remote_url", h.cfg.RemoteURL, "local", h.cfg.Local())
	sess, err := h.driver.Open(t.Context(), h.caps)
	if err != nil {
		t.Fatalf("pageready: open: %v", err)
	}

	p := &Page{
		t:      t,
		sess:   sess,
		cfg:    h.cfg,
		opts:   h.opts,
		logger: h.logger,
	}
	t.Cleanup(p.close)
	return p
}

// Run runs sc in its own session and reports the result on t. Fail and
// Error end the test, Skip skips it. Diagnostics are saved when an
// artifacts directory is configured.
func Run(t testing.TB, sc Scenario, userOpts ...Option) Result {
	t.Helper()

	h := newHarness(t, userOpts)
	r := Runner{
		Driver:       h.driver,
		Capabilities: h.caps,
		BaseURL:      h.cfg.BaseURL,
		Sleep:        h.sleeper(),
		Logger:       h.logger,
		ArtifactsDir: h.cfg.ArtifactsDir,
	}
	res := r.Run(t.Context(), sc)
	Report(t, res)
	return res
}

func (p *Page) close() {
	p.closeOnce.Do(func() {
		if err := p.sess.Close(); err != nil {
			p.t.Errorf("pageready: close: %v", err)
		}
	})
}

// Session returns the underlying Session. It must not be closed by the
// caller.
func (p *Page) Session() Session {
	return p.sess
}

// Logger returns the page's logger.
func (p *Page) Logger() *log.Logger {
	return p.logger
}

// BaseURL returns the configured application URL.
func (p *Page) BaseURL() string {
	return p.cfg.BaseURL
}

// Navigate loads ref resolved against the base URL, so "" is the base URL
// itself and "/about" a path on it.
func (p *Page) Navigate(ref string) {
	p.t.Helper()

	target, err := p.resolve(ref)
	if err != nil {
		p.t.Fatalf("pageready: navigate: %v", err)
	}
	p.logger.Debug("navigating", "url", target)
	if err := p.sess.Navigate(p.t.Context(), target); err != nil {
		p.t.Fatalf("pageready: navigate: %v", err)
	}
}

func (p *Page) resolve(ref string) (string, error) {
	base, err := url.Parse(p.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

// WaitFor polls c until it holds. If it never does, it calls t.Fatal with
// what was expected, the recent observations and a diagnostic snapshot.
func (p *Page) WaitFor(c Condition, wopts ...WaitOption) PollResult {
	p.t.Helper()
	res, poller := p.wait("wait-for", c, wopts)
	if !res.Ready {
		p.t.Fatal(p.notReady("wait-for", Fail, poller, res))
	}
	return res
}

// WaitForOptional is WaitFor for conditions whose absence is tolerable: it
// skips the test instead of failing it.
func (p *Page) WaitForOptional(c Condition, wopts ...WaitOption) PollResult {
	p.t.Helper()
	res, poller := p.wait("wait-for-optional", c, wopts)
	if !res.Ready {
		p.t.Skip(p.notReady("wait-for-optional", Skip, poller, res))
	}
	return res
}

func (p *Page) poller(op string, wopts []WaitOption) Poller {
	p.t.Helper()

	wo := waitOptions{}
	for _, o := range wopts {
		o(&wo)
	}

	poller := Poller{
		Interval: p.opts.pollInterval,
		Attempts: p.opts.attempts,
		Sleep:    p.opts.sleep,
	}
	if wo.attempts > 0 {
		poller.Attempts = wo.attempts
	} else if wo.attempts < 0 {
		p.t.Fatalf("pageready: %s: negative attempts: %d", op, wo.attempts)
	}
	if wo.pollInterval > 0 {
		poller.Interval = max(wo.pollInterval, minPollInterval)
	} else if wo.pollInterval < 0 {
		p.t.Fatalf("pageready: %s: negative poll interval: %v", op, wo.pollInterval)
	}
	if wo.progressEvery > 0 {
		poller.ProgressEvery = wo.progressEvery
		poller.Progress = func(attempt int, obs Observation) {
			p.logger.Info("still waiting", "attempt", attempt, "observed", obs.Description)
		}
	}
	return poller
}

func (p *Page) wait(op string, c Condition, wopts []WaitOption) (PollResult, Poller) {
	p.t.Helper()
	poller := p.poller(op, wopts)
	res, err := poller.Poll(p.t.Context(), p.sess, c)
	if err != nil {
		p.t.Fatalf("pageready: %s: %v", op, err)
	}
	return res, poller
}

func (p *Page) notReady(op string, outcome Outcome, poller Poller, res PollResult) string {
	msg := fmt.Sprintf("pageready: %s: condition not met after %d attempts (%v)\n    waiting for: %s\n    recent observations (oldest to newest):\n%s\n    diagnostics:\n%s",
		op, res.Attempt, poller.Elapsed(res), res.Last.Description, formatRecent(res.Recent), res.Snapshot)
	if dir := p.saveArtifacts(op, Result{
		Scenario: p.t.Name(),
		Outcome:  outcome,
		Reason:   res.Last.Description,
		Attempt:  res.Attempt,
		Elapsed:  poller.Elapsed(res),
		Snapshot: res.Snapshot,
	}); dir != "" {
		msg += "\n    artifacts: " + dir
	}
	return msg
}

// Check runs sc against this page's session, which stays open afterwards,
// and reports the result on t like Run.
func (p *Page) Check(sc Scenario) Result {
	p.t.Helper()

	start := time.Now()
	env := Env{
		Session: p.sess,
		Sleep:   p.sleeper(),
		Logger:  p.logger.With("scenario", sc.Name),
	}
	res := observe(p.t.Context(), env, p.cfg.BaseURL, sc)
	res.Scenario = sc.Name
	res.Elapsed = time.Since(start)
	if needsArtifacts(res.Outcome) {
		res.Artifacts = p.saveArtifacts(sc.Name, res)
	}
	Report(p.t, res)
	return res
}

// Diagnose captures the current console output, DOM counts and features.
func (p *Page) Diagnose() *Snapshot {
	return Capture(p.t.Context(), p.sess, DefaultFeatures)
}

func (p *Page) sleeper() Sleeper {
	if p.opts.sleep != nil {
		return p.opts.sleep
	}
	return Sleep
}

// saveArtifacts writes res under the artifacts directory, keyed by test
// name, and returns the directory or "" when disabled or failed.
func (p *Page) saveArtifacts(name string, res Result) string {
	if p.cfg.ArtifactsDir == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.t.Context()), p.cfg.ImplicitWait)
	defer cancel()
	dir, err := SaveArtifacts(ctx, p.cfg.ArtifactsDir, p.t.Name()+"-"+name, testID(p.t.Name()), p.sess, res)
	if err != nil {
		p.logger.Warn("saving artifacts", "err", err)
	}
	return dir
}
