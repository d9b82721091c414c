package pageready

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	diagnosticsFile = "diagnostics.yaml"
	pageFile        = "page.html"
)

// artifactReport is the YAML form of a resolved scenario.
type artifactReport struct {
	Scenario    string    `yaml:"scenario"`
	Outcome     string    `yaml:"outcome"`
	Reason      string    `yaml:"reason"`
	Error       string    `yaml:"error,omitempty"`
	Attempt     int       `yaml:"attempt,omitempty"`
	Elapsed     string    `yaml:"elapsed"`
	SavedAt     time.Time `yaml:"saved_at"`
	Diagnostics *Snapshot `yaml:"diagnostics,omitempty"`
}

// SaveArtifacts writes res as diagnostics.yaml, and the current document of
// s (when s is non-nil) as page.html, into dir/<name>-<id>/. It returns the
// directory written.
func SaveArtifacts(ctx context.Context, dir, name, id string, s Session, res Result) (string, error) {
	out := filepath.Join(dir, sanitizeName(name)+"-"+sanitizeName(id))
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", fmt.Errorf("pageready: artifacts: failed to create directory: %w", err)
	}

	rep := artifactReport{
		Scenario:    res.Scenario,
		Outcome:     res.Outcome.String(),
		Reason:      res.Reason,
		Attempt:     res.Attempt,
		Elapsed:     res.Elapsed.Round(time.Millisecond).String(),
		SavedAt:     time.Now(),
		Diagnostics: res.Snapshot,
	}
	if res.Err != nil {
		rep.Error = res.Err.Error()
	}
	data, err := yaml.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("pageready: artifacts: encode diagnostics: %w", err)
	}
	if err := os.WriteFile(filepath.Join(out, diagnosticsFile), data, 0o644); err != nil {
		return "", fmt.Errorf("pageready: artifacts: failed to write diagnostics: %w", err)
	}

	if s == nil {
		return out, nil
	}
	src, err := s.PageSource(ctx)
	if err != nil {
		return out, fmt.Errorf("pageready: artifacts: page source: %w", err)
	}
	if err := os.WriteFile(filepath.Join(out, pageFile), []byte(src), 0o644); err != nil {
		return out, fmt.Errorf("pageready: artifacts: failed to write page: %w", err)
	}
	return out, nil
}

// testID is a short stable hash of a test name, so subtests whose sanitized
// names collide still get distinct directories.
func testID(name string) string {
	h := sha256.Sum256([]byte(name))
	return hex.EncodeToString(h[:4])
}

// sanitizeName replaces characters that are not filesystem-safe.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}

// needsArtifacts reports whether an outcome is worth dumping.
func needsArtifacts(o Outcome) bool {
	return o == Fail || o == Skip
}
