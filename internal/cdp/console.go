package cdp

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/runtime"
)

// Entry is one collected log line. Level is the CDP level or console API
// type name ("error", "warning", "log", ...).
type Entry struct {
	Level  string
	Text   string
	Source string
	Time   time.Time
}

// Console collects console API calls, uncaught exceptions, and browser log
// entries for one tab. Handle is called from chromedp's event goroutine.
type Console struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// NewConsole returns an empty collector.
func NewConsole() *Console {
	return &Console{now: time.Now}
}

// Handle records ev if it is a log-bearing event and ignores it otherwise.
func (c *Console) Handle(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		parts := make([]string, 0, len(ev.Args))
		for _, arg := range ev.Args {
			parts = append(parts, remoteText(arg))
		}
		c.add(Entry{Level: string(ev.Type), Text: strings.Join(parts, " "), Source: "console-api"})

	case *runtime.EventExceptionThrown:
		d := ev.ExceptionDetails
		if d == nil {
			return
		}
		text := d.Text
		if d.Exception != nil && d.Exception.Description != "" {
			text += " " + d.Exception.Description
		}
		c.add(Entry{Level: "error", Text: text, Source: "javascript"})

	case *cdplog.EventEntryAdded:
		if ev.Entry == nil {
			return
		}
		c.add(Entry{Level: string(ev.Entry.Level), Text: ev.Entry.Text, Source: string(ev.Entry.Source)})
	}
}

func (c *Console) add(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.Time = c.now()
	c.entries = append(c.entries, e)
}

// Entries returns a copy of everything collected so far, oldest first.
func (c *Console) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.entries)
}

// remoteText renders a console argument: primitive values by value
// (strings unquoted), objects by description.
func remoteText(arg *runtime.RemoteObject) string {
	if arg == nil {
		return ""
	}
	if len(arg.Value) > 0 {
		raw := string(arg.Value)
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
		return raw
	}
	if arg.Description != "" {
		return arg.Description
	}
	return string(arg.Type)
}
