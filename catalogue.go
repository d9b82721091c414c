package pageready

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	connectSettle = 3 * time.Second
	loadSettle    = 5 * time.Second
	mountLogTail  = 10
)

// ServerResponds checks that navigation produced any document at all.
func ServerResponds() Scenario {
	return Scenario{
		Name:        "server-responds",
		Description: "the server answers with a non-empty page",
		Settle:      connectSettle,
		Observe: func(ctx context.Context, env Env) Result {
			src, err := env.Session.PageSource(ctx)
			if err != nil {
				return errorResult("page source", err)
			}
			env.Logger.Info("page source", "bytes", len(src))
			if len(src) == 0 {
				return failf(nil, "page source should not be empty")
			}
			return passf("got %d bytes of page content", len(src))
		},
	}
}

// HomepageLoads checks that the document has a title.
func HomepageLoads() Scenario {
	return Scenario{
		Name:        "homepage-loads",
		Description: "the homepage loads with a title",
		Settle:      loadSettle,
		Observe: func(ctx context.Context, env Env) Result {
			title, err := env.Session.Title(ctx)
			if err != nil {
				return errorResult("title", err)
			}
			env.Logger.Info("page title", "title", title)
			if len(title) == 0 {
				return failf(nil, "page title should not be empty, got %q", title)
			}
			return passf("homepage loaded with title %q", title)
		},
	}
}

// BodyAndRoot checks for the body element and the framework root element.
func BodyAndRoot() Scenario {
	return Scenario{
		Name:        "body-and-root",
		Description: "the page has a body and a #root element",
		Settle:      loadSettle,
		Observe: func(ctx context.Context, env Env) Result {
			body, err := env.Session.FindElements(ctx, ByTagName, "body")
			if err != nil {
				return errorResult("find body", err)
			}
			if len(body) == 0 {
				return failf(nil, "body element should exist")
			}
			root, err := env.Session.FindElements(ctx, ByID, "root")
			if err != nil {
				return errorResult("find root", err)
			}
			if len(root) == 0 {
				return failf(nil, "root element should exist")
			}
			return passf("body and root elements found")
		},
	}
}

// FrameworkMounted checks that scripts run and that the client framework
// rendered into #root. A script failure means JavaScript is unavailable and
// is a Fail, not an Error.
func FrameworkMounted() Scenario {
	return Scenario{
		Name:        "framework-mounted",
		Description: "JavaScript runs and the framework renders into #root",
		Settle:      loadSettle,
		Observe: func(ctx context.Context, env Env) Result {
			s := env.Session
			for _, check := range []struct {
				script string
				what   string
			}{
				{ScriptJavaScriptEnabled, "JavaScript should be enabled"},
				{ScriptWindowDefined, "window object should be available"},
			} {
				v, err := s.ExecuteScript(ctx, check.script)
				if err != nil {
					return failf(nil, "%s: %v", check.what, err)
				}
				if !truthy(v) {
					return failf(nil, "%s: script returned %v", check.what, v)
				}
			}

			v, err := s.ExecuteScript(ctx, ScriptRootContentLength)
			if err != nil {
				return failf(Capture(ctx, s, DefaultFeatures), "root content unavailable: %v", err)
			}
			n, ok := asInt(v)
			if !ok {
				return failf(nil, "root innerHTML length is not a number: %v", v)
			}
			env.Logger.Info("root content", "length", n)
			if n > 0 {
				return passf("framework rendered %d characters into root", n)
			}

			snap := Capture(ctx, s, DefaultFeatures)
			env.Logger.Warn("root is empty, framework may not have mounted",
				"divs", snap.Count("divs"), "buttons", snap.Count("buttons"), "canvases", snap.Count("canvases"))
			return failf(snap, "framework should have rendered content into the root element\n"+
				"    last browser log entries:\n%s\n    expected framework-created elements: divs=%d buttons=%d canvases=%d",
				formatLogTail(snap.Tail(mountLogTail)), snap.Count("divs"), snap.Count("buttons"), snap.Count("canvases"))
		},
	}
}

// CanvasCondition holds when a canvas element exists, found either by
// element lookup or by a script count (which also sees canvases the lookup
// misses).
func CanvasCondition() Condition {
	return Any(
		ElementPresent(ByTagName, "canvas"),
		ScriptCountAbove(ScriptCanvasCount, 0),
	)
}

// CanvasPresent polls for the drawing canvas. A canvas that never appears is
// a Skip: the application loaded, and the missing surface usually reflects
// the automation environment (no software rendering) rather than a defect.
// Once the canvas is found, a Snapshot is captured for the pass report, which
// costs a few more session calls after the poll stops.
func CanvasPresent(p Poller) Scenario {
	return Scenario{
		Name:        "canvas-present",
		Description: "a drawing canvas is rendered",
		Observe: func(ctx context.Context, env Env) Result {
			p := p
			if p.Sleep == nil {
				p.Sleep = env.Sleep
			}
			if p.Progress == nil {
				p.Progress = func(attempt int, obs Observation) {
					divs := -1
					if v, err := env.Session.ExecuteScript(ctx, ScriptDivCount); err == nil {
						divs, _ = asInt(v)
					}
					env.Logger.Info("still waiting for canvas", "elapsed", p.Elapsed(PollResult{Attempt: attempt}), "divs", divs)
				}
			}

			env.Logger.Info("waiting for canvas element", "attempts", p.Attempts, "interval", p.Interval)
			pr, err := p.Poll(ctx, env.Session, CanvasCondition())
			if err != nil {
				return errorResult("poll canvas", err)
			}

			if pr.Ready {
				snap := Capture(ctx, env.Session, p.features())
				env.Logger.Info("canvas found", "attempt", pr.Attempt, "observed", pr.Last.Description)
				return Result{
					Outcome:  Pass,
					Reason:   fmt.Sprintf("canvas element found after %v (%s)", p.Elapsed(pr), pr.Last.Description),
					Attempt:  pr.Attempt,
					Snapshot: snap,
				}
			}

			snap := pr.Snapshot
			env.Logger.Warn("canvas not found",
				"errors", len(snap.Errors()), "warnings", len(snap.Warnings()), "canvases", snap.Count("canvases"))
			return Result{
				Outcome: Skip,
				Reason: strings.Join([]string{
					fmt.Sprintf("canvas not rendered after %d attempts (%v); not a critical failure", pr.Attempt, p.Elapsed(pr)),
					"    possible causes: the canvas library may not initialize in headless Chrome,",
					"    the canvas may require user interaction, or WebGL/canvas rendering may be disabled",
					"    recent observations (oldest to newest):",
					formatRecent(pr.Recent),
				}, "\n"),
				Attempt:  pr.Attempt,
				Snapshot: snap,
			}
		},
	}
}

// Scenarios returns the built-in checks in the order they are usually run.
func Scenarios() []Scenario {
	return []Scenario{
		ServerResponds(),
		HomepageLoads(),
		BodyAndRoot(),
		FrameworkMounted(),
		CanvasPresent(DefaultPoller()),
	}
}

// Lookup returns the built-in scenario with the given name.
func Lookup(name string) (Scenario, bool) {
	for _, sc := range Scenarios() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}
