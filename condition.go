package pageready

import (
	"context"
	"fmt"
	"strings"
)

// Observation is what a Condition measured on one evaluation.
type Observation struct {
	Count       int
	Description string
}

func (o Observation) String() string {
	return o.Description
}

// A Condition reports whether the session currently satisfies a readiness
// predicate. Conditions only read session state. An error means the session
// could not be queried at all.
type Condition func(ctx context.Context, s Session) (ok bool, obs Observation, err error)

// ElementPresent holds when at least one element matches selector.
func ElementPresent(by By, selector string) Condition {
	return func(ctx context.Context, s Session) (bool, Observation, error) {
		els, err := s.FindElements(ctx, by, selector)
		if err != nil {
			return false, Observation{}, fmt.Errorf("find %s %q: %w", by, selector, err)
		}
		obs := Observation{
			Count:       len(els),
			Description: fmt.Sprintf("%d element(s) by %s %q", len(els), by, selector),
		}
		return len(els) > 0, obs, nil
	}
}

// ScriptTrue holds when script returns a truthy value.
func ScriptTrue(script string) Condition {
	return func(ctx context.Context, s Session) (bool, Observation, error) {
		v, err := s.ExecuteScript(ctx, script)
		if err != nil {
			return false, Observation{}, fmt.Errorf("script %q: %w", compactScript(script), err)
		}
		ok := truthy(v)
		obs := Observation{Description: fmt.Sprintf("script %q returned %v", compactScript(script), v)}
		if ok {
			obs.Count = 1
		}
		return ok, obs, nil
	}
}

// ScriptCountAbove holds when script returns a number greater than n.
func ScriptCountAbove(script string, n int) Condition {
	return func(ctx context.Context, s Session) (bool, Observation, error) {
		v, err := s.ExecuteScript(ctx, script)
		if err != nil {
			return false, Observation{}, fmt.Errorf("script %q: %w", compactScript(script), err)
		}
		count, ok := asInt(v)
		if !ok {
			return false, Observation{Description: fmt.Sprintf("script %q returned non-number %v", compactScript(script), v)}, nil
		}
		obs := Observation{
			Count:       count,
			Description: fmt.Sprintf("script %q returned %d", compactScript(script), count),
		}
		return count > n, obs, nil
	}
}

// TitleNotEmpty holds when the document title is non-empty.
func TitleNotEmpty() Condition {
	return func(ctx context.Context, s Session) (bool, Observation, error) {
		title, err := s.Title(ctx)
		if err != nil {
			return false, Observation{}, fmt.Errorf("title: %w", err)
		}
		return len(title) > 0, Observation{Count: len(title), Description: fmt.Sprintf("title %q", title)}, nil
	}
}

// SourceNotEmpty holds when the page source is non-empty.
func SourceNotEmpty() Condition {
	return func(ctx context.Context, s Session) (bool, Observation, error) {
		src, err := s.PageSource(ctx)
		if err != nil {
			return false, Observation{}, fmt.Errorf("page source: %w", err)
		}
		return len(src) > 0, Observation{Count: len(src), Description: fmt.Sprintf("page source of %d bytes", len(src))}, nil
	}
}

// Not inverts a condition. Errors pass through unchanged.
func Not(c Condition) Condition {
	return func(ctx context.Context, s Session) (bool, Observation, error) {
		ok, obs, err := c(ctx, s)
		if err != nil {
			return false, obs, err
		}
		obs.Description = "NOT(" + obs.Description + ")"
		return !ok, obs, nil
	}
}

// All holds when every condition holds. Evaluation stops at the first miss.
func All(conds ...Condition) Condition {
	return func(ctx context.Context, s Session) (bool, Observation, error) {
		descs := make([]string, 0, len(conds))
		var last Observation
		for _, c := range conds {
			ok, obs, err := c(ctx, s)
			if err != nil {
				return false, obs, err
			}
			last = obs
			descs = append(descs, obs.Description)
			if !ok {
				return false, Observation{Count: last.Count, Description: "all of: " + strings.Join(descs, ", ")}, nil
			}
		}
		return true, Observation{Count: last.Count, Description: "all of: " + strings.Join(descs, ", ")}, nil
	}
}

// Any holds when at least one condition holds. Evaluation stops at the
// first hit.
func Any(conds ...Condition) Condition {
	return func(ctx context.Context, s Session) (bool, Observation, error) {
		descs := make([]string, 0, len(conds))
		best := 0
		for _, c := range conds {
			ok, obs, err := c(ctx, s)
			if err != nil {
				return false, obs, err
			}
			descs = append(descs, obs.Description)
			if obs.Count > best {
				best = obs.Count
			}
			if ok {
				return true, Observation{Count: best, Description: "any of: " + strings.Join(descs, ", ")}, nil
			}
		}
		return false, Observation{Count: best, Description: "any of: " + strings.Join(descs, ", ")}, nil
	}
}

// compactScript collapses whitespace so scripts read on one line in reports.
func compactScript(script string) string {
	return strings.Join(strings.Fields(script), " ")
}
