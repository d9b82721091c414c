package pageready

import (
	"encoding/json"
	"math"
)

// Scripts evaluated by the built-in scenarios and diagnostics. They are
// function bodies; backends wrap them before evaluation.
const (
	ScriptJavaScriptEnabled = "return true;"
	ScriptWindowDefined     = "return typeof window !== 'undefined';"
	ScriptPaperDefined      = "return typeof paper !== 'undefined';"
	ScriptRootContentLength = "return document.getElementById('root').innerHTML.length;"
	ScriptCanvasCount       = "return document.querySelectorAll('canvas').length;"
	ScriptDivCount          = "return document.querySelectorAll('div').length;"
	ScriptDOMCounts         = `return {
	divs: document.querySelectorAll('div').length,
	canvases: document.querySelectorAll('canvas').length,
	buttons: document.querySelectorAll('button').length,
	svgs: document.querySelectorAll('svg').length
};`
)

// DOM categories reported in a Snapshot, keyed as ScriptDOMCounts returns
// them, with the CSS selector used when counting from page source.
var domCategories = []struct {
	key      string
	selector string
}{
	{"buttons", "button"},
	{"canvases", "canvas"},
	{"divs", "div"},
	{"svgs", "svg"},
}

// Feature is a named global probed by diagnostics.
type Feature struct {
	Name   string
	Script string
}

// DefaultFeatures are the globals reported in every Snapshot.
var DefaultFeatures = []Feature{
	{Name: "window", Script: ScriptWindowDefined},
	{Name: "paper", Script: ScriptPaperDefined},
}

// asInt converts a decoded script result to an int.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case float32:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// truthy follows JavaScript truthiness for decoded script results.
func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	case float64:
		return b != 0 && !math.IsNaN(b)
	default:
		if n, ok := asInt(v); ok {
			return n != 0
		}
		return true
	}
}
