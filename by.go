package pageready

import "strings"

// By selects how FindElements interprets its selector.
type By string

// Selector kinds accepted by Session.FindElements.
const (
	ByTagName By = "tag name"
	ByID      By = "id"
	ByCSS     By = "css selector"
)

// CSS returns the selector as a CSS query understood by every backend.
func (b By) CSS(selector string) string {
	switch b {
	case ByID:
		return "#" + strings.TrimPrefix(selector, "#")
	default:
		return selector
	}
}

// Level is the severity of a browser log entry. Levels are ordered, so a
// filter of LevelWarning admits warnings and errors.
type Level int

// Log levels, named after the WebDriver browser log levels.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// LevelAll admits every entry when passed to Session.Logs.
const LevelAll = LevelDebug

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "SEVERE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a console or CDP level name to a Level. Unknown names map
// to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "verbose", "debug", "trace":
		return LevelDebug
	case "warning", "warn":
		return LevelWarning
	case "error", "severe", "assert":
		return LevelError
	default:
		return LevelInfo
	}
}

// MarshalYAML writes the level by name.
func (l Level) MarshalYAML() (any, error) {
	return l.String(), nil
}
