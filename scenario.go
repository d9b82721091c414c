package pageready

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Outcome is the terminal state of a scenario.
type Outcome int

// Scenario outcomes. Error is an environment problem (no session, no
// navigation response) and is distinct from a logical Fail.
const (
	Pass Outcome = iota
	Fail
	Skip
	Error
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Skip:
		return "skip"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is what a scenario resolved to.
type Result struct {
	Scenario string
	Outcome  Outcome
	Reason   string

	// Attempt is the poll attempt that resolved the scenario, 0 for
	// single-shot checks.
	Attempt int
	Elapsed time.Duration

	Snapshot *Snapshot
	Err      error

	// Artifacts is the directory diagnostics were saved to, if any.
	Artifacts string
}

func passf(format string, args ...any) Result {
	return Result{Outcome: Pass, Reason: fmt.Sprintf(format, args...)}
}

func failf(snap *Snapshot, format string, args ...any) Result {
	return Result{Outcome: Fail, Reason: fmt.Sprintf(format, args...), Snapshot: snap}
}

func errorResult(op string, err error) Result {
	return Result{Outcome: Error, Reason: op, Err: fmt.Errorf("%s: %w", op, err)}
}

// Env is what a scenario observes through.
type Env struct {
	Session Session
	Sleep   Sleeper
	Logger  *log.Logger
}

// Scenario is one end-to-end check: navigate, wait Settle, then Observe.
type Scenario struct {
	Name        string
	Description string

	// Settle is a flat wait after navigation, before Observe.
	Settle time.Duration

	// Observe inspects the navigated session and resolves the scenario.
	Observe func(ctx context.Context, env Env) Result
}

// Runner runs scenarios, each in its own Session.
type Runner struct {
	Driver       Driver
	Capabilities Capabilities
	BaseURL      string

	// Sleep is used for settle delays and poll intervals. Nil means Sleep.
	Sleep Sleeper

	// Logger receives progress. Nil discards it.
	Logger *log.Logger

	// ArtifactsDir, if set, receives diagnostics and the page source of
	// every scenario that fails or skips.
	ArtifactsDir string
}

// Run opens a session, navigates to BaseURL, settles, observes, and closes
// the session. The session is closed exactly once on every path after a
// successful open. A failed close turns an otherwise passing scenario into
// an Error.
func (r *Runner) Run(ctx context.Context, sc Scenario) (res Result) {
	start := time.Now()
	id := uuid.NewString()[:8]
	logger := r.logger().With("scenario", sc.Name, "session", id)
	defer func() {
		res.Scenario = sc.Name
		res.Elapsed = time.Since(start)
		logger.Info("resolved", "outcome", res.Outcome, "elapsed", res.Elapsed.Round(time.Millisecond))
	}()

	logger.Debug("connecting")
	sess, err := r.Driver.Open(ctx, r.Capabilities)
	if err != nil {
		return errorResult("connect", err)
	}
	defer func() {
		if r.ArtifactsDir != "" && needsArtifacts(res.Outcome) {
			res.Scenario = sc.Name
			res.Elapsed = time.Since(start)
			dir, err := SaveArtifacts(ctx, r.ArtifactsDir, sc.Name, id, sess, res)
			if err != nil {
				logger.Warn("saving artifacts", "err", err)
			}
			res.Artifacts = dir
		}
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("close failed", "err", cerr)
			if res.Outcome == Pass {
				res = errorResult("close", cerr)
			}
		}
	}()

	env := Env{Session: sess, Sleep: r.sleeper(), Logger: logger}
	return observe(ctx, env, r.BaseURL, sc)
}

// observe runs the navigate, settle and observe steps on an open session.
func observe(ctx context.Context, env Env, url string, sc Scenario) Result {
	env.Logger.Debug("navigating", "url", url)
	if err := env.Session.Navigate(ctx, url); err != nil {
		return errorResult("navigate", err)
	}
	if sc.Settle > 0 {
		if err := env.Sleep(ctx, sc.Settle); err != nil {
			return errorResult("settle", err)
		}
	}
	return sc.Observe(ctx, env)
}

func (r *Runner) sleeper() Sleeper {
	if r.Sleep != nil {
		return r.Sleep
	}
	return Sleep
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return discardLogger()
}
