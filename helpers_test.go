package pageready_test

import (
	"context"
	"sync"
	"time"

	"github.com/cboone/pageready"
	"github.com/cboone/pageready/pagereadytest"
)

// clock is a Sleeper that returns immediately and records every wait.
type clock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (c *clock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *clock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

func (c *clock) Total() time.Duration {
	var total time.Duration
	for _, d := range c.Waits() {
		total += d
	}
	return total
}

// domCounts is a ScriptDOMCounts result.
func domCounts(divs, canvases, buttons, svgs int) map[string]any {
	return map[string]any{
		"divs":     float64(divs),
		"canvases": float64(canvases),
		"buttons":  float64(buttons),
		"svgs":     float64(svgs),
	}
}

// loadedApp is a session for an application that mounted with no canvas.
func loadedApp() *pagereadytest.Session {
	return &pagereadytest.Session{
		Source:    pagereadytest.String(`<html><head><title>FossFLOW</title></head><body><div id="root"><div></div></div></body></html>`),
		PageTitle: pagereadytest.String("FossFLOW"),
		Elements: map[string][]pageready.Element{
			"body":  pagereadytest.Elements("body", 1),
			"#root": pagereadytest.Elements("div", 1),
		},
		Scripts: map[string]any{
			pageready.ScriptJavaScriptEnabled: true,
			pageready.ScriptWindowDefined:     true,
			pageready.ScriptRootContentLength: float64(1234),
			pageready.ScriptCanvasCount:       float64(0),
			pageready.ScriptDivCount:          float64(2),
			pageready.ScriptDOMCounts:         domCounts(2, 0, 0, 0),
			pageready.ScriptPaperDefined:      false,
		},
		LogEntries: []pageready.LogEntry{
			{Level: pageready.LevelInfo, Message: "app booted"},
			{Level: pageready.LevelWarning, Message: "deprecated API"},
			{Level: pageready.LevelError, Message: "WebGL context lost"},
		},
	}
}
