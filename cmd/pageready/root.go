package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cboone/pageready"
	"github.com/cboone/pageready/internal/config"
)

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// exitCode maps the worst outcome to the process status.
func exitCode(results []pageready.Result) int {
	code := 0
	for _, r := range results {
		switch r.Outcome {
		case pageready.Error:
			return 2
		case pageready.Fail:
			code = 1
		}
	}
	return code
}

// sleep paces settle delays and canvas polling. Tests replace it.
var sleep pageready.Sleeper = pageready.Sleep

// newDriver builds the backend for cfg. Tests replace it.
var newDriver = func(cfg config.Config, logger *log.Logger, stderr io.Writer) pageready.Driver {
	switch cfg.Driver {
	case config.DriverPlaywright:
		return pageready.Playwright{RemoteURL: cfg.RemoteURL, Install: cfg.PlaywrightInstall, Output: stderr}
	default:
		return pageready.Chrome{RemoteURL: cfg.RemoteURL, ExecPath: cfg.ChromePath, Logf: logger.Debugf}
	}
}

type runFlags struct {
	baseURL      string
	remoteURL    string
	driver       string
	logLevel     string
	artifactsDir string
	implicitWait time.Duration
	headed       bool
	attempts     int
	interval     time.Duration
}

func (f runFlags) overrides(cmd *cobra.Command) map[string]any {
	o := map[string]any{}
	set := func(flag, key string, v any) {
		if cmd.Flags().Changed(flag) {
			o[key] = v
		}
	}
	set("base-url", "base_url", f.baseURL)
	set("remote-url", "remote_url", f.remoteURL)
	set("driver", "driver", f.driver)
	set("log-level", "log_level", f.logLevel)
	set("artifacts-dir", "artifacts_dir", f.artifactsDir)
	set("implicit-wait", "implicit_wait", f.implicitWait)
	if cmd.Flags().Changed("headed") {
		o["headless"] = !f.headed
	}
	return o
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pageready",
		Short:         "Check that a browser-rendered application comes up",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.AddCommand(newRunCmd(stdout, stderr))
	cmd.AddCommand(newListCmd(stdout))
	return cmd
}

func newListCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSETTLE\tDESCRIPTION")
			for _, sc := range pageready.Scenarios() {
				settle := "-"
				if sc.Settle > 0 {
					settle = sc.Settle.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", sc.Name, settle, sc.Description)
			}
			return w.Flush()
		},
	}
}

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios (all of them by default)",
		Long: `Run built-in scenarios, each in its own browser session, and print one
line per scenario.

Settings come from PAGEREADY_CONFIG (a YAML file), PAGEREADY_* environment
variables and these flags, in increasing precedence.

Examples:
  pageready run
  pageready run homepage-loads canvas-present --base-url http://localhost:8080
  pageready run --remote-url local --headed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := selectScenarios(args, f)
			if err != nil {
				return err
			}

			cfg, err := config.Load(f.overrides(cmd))
			if err != nil {
				return err
			}
			logger := pageready.NewLogger(stderr, cfg.LogLevel)

			caps := pageready.DefaultCapabilities()
			caps.Headless = cfg.Headless
			caps.ImplicitWait = cfg.ImplicitWait

			r := pageready.Runner{
				Driver:       newDriver(cfg, logger, stderr),
				Capabilities: caps,
				BaseURL:      cfg.BaseURL,
				Sleep:        sleep,
				Logger:       logger,
				ArtifactsDir: cfg.ArtifactsDir,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			results := runAll(ctx, &r, scenarios)
			for _, res := range results {
				fmt.Fprintln(stdout, res.Message())
			}
			fmt.Fprintln(stdout, summary(results))

			if code := exitCode(results); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "application URL (base_url)")
	cmd.Flags().StringVar(&f.remoteURL, "remote-url", "", `browser endpoint, or "local" to launch one (remote_url)`)
	cmd.Flags().StringVar(&f.driver, "driver", "", "backend: chromedp or playwright (driver)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (log_level)")
	cmd.Flags().StringVar(&f.artifactsDir, "artifacts-dir", "", "write diagnostics for failed and skipped scenarios here (artifacts_dir)")
	cmd.Flags().DurationVar(&f.implicitWait, "implicit-wait", 0, "cap on each element lookup and script call (implicit_wait)")
	cmd.Flags().BoolVar(&f.headed, "headed", false, "show the browser window")
	cmd.Flags().IntVar(&f.attempts, "canvas-attempts", 0, "canvas poll attempts (default 30)")
	cmd.Flags().DurationVar(&f.interval, "canvas-interval", 0, "canvas poll interval (default 1s)")
	return cmd
}

// selectScenarios resolves names to scenarios, all of them when names is
// empty, applying the canvas poll flags.
func selectScenarios(names []string, f runFlags) ([]pageready.Scenario, error) {
	if f.attempts < 0 || f.interval < 0 {
		return nil, fmt.Errorf("canvas attempts and interval must not be negative")
	}
	p := pageready.DefaultPoller()
	if f.attempts > 0 {
		p.Attempts = f.attempts
	}
	if f.interval > 0 {
		p.Interval = f.interval
	}

	all := pageready.Scenarios()
	for i, sc := range all {
		if sc.Name == "canvas-present" {
			all[i] = pageready.CanvasPresent(p)
		}
	}
	if len(names) == 0 {
		return all, nil
	}

	var out []pageready.Scenario
	var unknown []string
	for _, name := range names {
		found := false
		for _, sc := range all {
			if sc.Name == name {
				out = append(out, sc)
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown scenario(s): %s (see pageready list)", strings.Join(unknown, ", "))
	}
	return out, nil
}

func runAll(ctx context.Context, r *pageready.Runner, scenarios []pageready.Scenario) []pageready.Result {
	results := make([]pageready.Result, 0, len(scenarios))
	for _, sc := range scenarios {
		results = append(results, r.Run(ctx, sc))
	}
	return results
}

func summary(results []pageready.Result) string {
	counts := map[pageready.Outcome]int{}
	for _, r := range results {
		counts[r.Outcome]++
	}
	return fmt.Sprintf("%d passed, %d failed, %d skipped, %d errors",
		counts[pageready.Pass], counts[pageready.Fail], counts[pageready.Skip], counts[pageready.Error])
}
