package pageready

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	reportErrorLines  = 5
	reportMessageWrap = 100
)

// Snapshot is an immutable record of browser state taken for reporting:
// log entries, counts of DOM element categories, and feature flags.
type Snapshot struct {
	CapturedAt time.Time       `yaml:"captured_at"`
	Logs       []LogEntry      `yaml:"logs"`
	DOM        map[string]int  `yaml:"dom"`
	Features   map[string]bool `yaml:"features"`

	// Problems lists the queries that failed while capturing.
	Problems []string `yaml:"problems,omitempty"`
}

// Capture queries s for diagnostics. It is best-effort: a failed query is
// recorded in Problems and capture continues. DOM counts come from script
// evaluation and fall back to parsing the page source when scripts fail.
func Capture(ctx context.Context, s Session, features []Feature) *Snapshot {
	snap := &Snapshot{
		CapturedAt: time.Now(),
		DOM:        make(map[string]int, len(domCategories)),
		Features:   make(map[string]bool, len(features)),
	}

	logs, err := s.Logs(ctx, LevelAll)
	if err != nil {
		snap.problem("logs: %v", err)
	}
	snap.Logs = logs

	if err := snap.countFromScript(ctx, s); err != nil {
		snap.problem("dom counts: %v", err)
		if err := snap.countFromSource(ctx, s); err != nil {
			snap.problem("dom counts from source: %v", err)
		}
	}

	for _, f := range features {
		v, err := s.ExecuteScript(ctx, f.Script)
		if err != nil {
			snap.problem("feature %s: %v", f.Name, err)
			continue
		}
		snap.Features[f.Name] = truthy(v)
	}

	return snap
}

func (s *Snapshot) problem(format string, args ...any) {
	s.Problems = append(s.Problems, fmt.Sprintf(format, args...))
}

func (s *Snapshot) countFromScript(ctx context.Context, sess Session) error {
	v, err := sess.ExecuteScript(ctx, ScriptDOMCounts)
	if err != nil {
		return err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected result %T", v)
	}
	for _, c := range domCategories {
		n, ok := asInt(m[c.key])
		if !ok {
			return fmt.Errorf("missing count for %s", c.key)
		}
		s.DOM[c.key] = n
	}
	return nil
}

func (s *Snapshot) countFromSource(ctx context.Context, sess Session) error {
	src, err := sess.PageSource(ctx)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("parse page source: %w", err)
	}
	for _, c := range domCategories {
		s.DOM[c.key] = doc.Find(c.selector).Length()
	}
	return nil
}

// Errors returns the SEVERE entries.
func (s *Snapshot) Errors() []LogEntry {
	return s.filter(func(l Level) bool { return l == LevelError })
}

// Warnings returns the WARNING entries.
func (s *Snapshot) Warnings() []LogEntry {
	return s.filter(func(l Level) bool { return l == LevelWarning })
}

// Others returns the entries below WARNING.
func (s *Snapshot) Others() []LogEntry {
	return s.filter(func(l Level) bool { return l < LevelWarning })
}

func (s *Snapshot) filter(keep func(Level) bool) []LogEntry {
	var out []LogEntry
	for _, e := range s.Logs {
		if keep(e.Level) {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of elements recorded for a DOM category
// ("divs", "canvases", "buttons", "svgs"), or -1 if it was not measured.
func (s *Snapshot) Count(category string) int {
	n, ok := s.DOM[category]
	if !ok {
		return -1
	}
	return n
}

// Tail returns the last n log entries. It returns nil for n <= 0.
func (s *Snapshot) Tail(n int) []LogEntry {
	if n <= 0 {
		return nil
	}
	if n >= len(s.Logs) {
		return slices.Clone(s.Logs)
	}
	return slices.Clone(s.Logs[len(s.Logs)-n:])
}

// Empty reports whether nothing at all was recorded.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Logs) == 0 && len(s.DOM) == 0 && len(s.Features) == 0 && len(s.Problems) == 0)
}

// String formats the snapshot for failure and skip messages.
func (s *Snapshot) String() string {
	if s == nil {
		return "    (no diagnostics captured)"
	}

	var b strings.Builder
	errs := s.Errors()
	fmt.Fprintf(&b, "    console: %d error(s), %d warning(s), %d other\n", len(errs), len(s.Warnings()), len(s.Others()))
	for i, e := range errs {
		if i == reportErrorLines {
			fmt.Fprintf(&b, "      ... %d more\n", len(errs)-reportErrorLines)
			break
		}
		fmt.Fprintf(&b, "      %s\n", truncate(e.Message, reportMessageWrap))
	}

	b.WriteString("    dom:")
	for _, k := range slices.Sorted(maps.Keys(s.DOM)) {
		fmt.Fprintf(&b, " %s=%d", k, s.DOM[k])
	}
	b.WriteByte('\n')

	b.WriteString("    features:")
	for _, k := range slices.Sorted(maps.Keys(s.Features)) {
		fmt.Fprintf(&b, " %s=%t", k, s.Features[k])
	}

	for _, p := range s.Problems {
		fmt.Fprintf(&b, "\n    problem: %s", p)
	}
	return b.String()
}

// formatLogTail formats the last n entries, one per line.
func formatLogTail(entries []LogEntry) string {
	if len(entries) == 0 {
		return "    (no browser log entries)"
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = "    " + e.String()
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to its first n runes.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}
