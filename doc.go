// Package pageready checks that a browser-rendered single-page application
// actually comes up: the server answers, the document has a title and a
// root element, the client framework mounts, and its drawing canvas appears.
//
// Each check runs in its own browser session through the standard
// [testing.TB] interface, or outside tests through a [Runner].
//
// # Quick Start
//
//	func TestHomepage(t *testing.T) {
//		page := pageready.Open(t)
//		page.Navigate("/")
//		page.WaitFor(pageready.ElementPresent(pageready.ByID, "root"))
//		page.WaitForOptional(pageready.CanvasCondition())
//	}
//
// Cleanup is automatic through t.Cleanup; there is no Close method.
//
// # Scenarios and Outcomes
//
// A [Scenario] navigates to the base URL, waits a fixed settle delay and
// observes the page. It resolves to exactly one [Outcome]:
//
//   - Pass: the condition held
//   - Fail: a required condition did not hold
//   - Skip: an optional condition never held (the canvas case)
//   - Error: the environment failed (no session, no navigation, no close)
//
// [Run] and [Page.Check] map outcomes onto the test: Pass logs, Skip calls
// t.Skip, Fail and Error call t.Fatal. The built-in checks are listed by
// [Scenarios].
//
// # Waiting and Conditions
//
// [Page.WaitFor] and [Page.WaitForOptional] poll a [Condition] with a
// [Poller]: sleep one interval, evaluate once, repeat up to the attempt
// limit. The condition is never evaluated again after it first holds.
//
// Wait behavior:
//
//   - Defaults: 1s interval, 30 attempts
//   - Per-page overrides: [WithPollInterval], [WithAttempts]
//   - Per-call overrides: [WithinAttempts], [WithWaitPollInterval], [WithProgressEvery]
//   - Poll intervals under 10ms are clamped to 10ms
//   - Negative attempt or poll values fail the test immediately
//
// Built-in conditions include [ElementPresent], [ScriptTrue],
// [ScriptCountAbove], [TitleNotEmpty], [SourceNotEmpty], [Not], [All] and
// [Any].
//
// # Diagnostics
//
// When a wait runs out, a [Snapshot] is captured: browser log entries split
// by severity, counts of divs, canvases, buttons and svgs, and whether
// known globals exist. Capture is best effort and never fails the test on
// its own. With an artifacts directory configured, the snapshot and the
// page HTML are also written to disk.
//
// # Backends
//
// [Chrome] drives the browser with chromedp, connecting to a DevTools
// endpoint or launching a local Chrome when the remote URL is
// [RemoteLocal]. [Playwright] does the same through playwright-go. Both
// apply [Capabilities], by default a headless, full-HD, software-GL
// profile suited to canvas-heavy pages in containers.
//
// # Configuration
//
// Settings come from defaults, a YAML file named by PAGEREADY_CONFIG,
// PAGEREADY_* environment variables, and finally options, in increasing
// precedence. FOSSFLOW_TEST_URL and WEBDRIVER_URL are honoured for the base
// and remote URLs.
package pageready
