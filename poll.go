package pageready

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPoll is returned by Poll when the interval or attempt count is
// not positive.
var ErrInvalidPoll = errors.New("pageready: poll: interval and attempts must be positive")

// A Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

const (
	defaultCanvasInterval = time.Second
	defaultCanvasAttempts = 30
	defaultProgressEvery  = 5
	recentObservations    = 3
)

// Poller evaluates a Condition repeatedly with a fixed interval between
// attempts, up to a fixed number of attempts.
type Poller struct {
	Interval time.Duration
	Attempts int

	// Sleep waits between attempts. Nil means the wall-clock Sleep.
	Sleep Sleeper

	// Features are probed into the Snapshot taken on exhaustion. Nil means
	// DefaultFeatures.
	Features []Feature

	// Progress, if set, is called every ProgressEvery unsuccessful attempts.
	ProgressEvery int
	Progress      func(attempt int, obs Observation)
}

// DefaultPoller is the canvas wait: one-second steps, thirty attempts,
// progress every five.
func DefaultPoller() Poller {
	return Poller{
		Interval:      defaultCanvasInterval,
		Attempts:      defaultCanvasAttempts,
		ProgressEvery: defaultProgressEvery,
	}
}

// PollResult is the outcome of Poll.
type PollResult struct {
	Ready bool

	// Attempt is the 1-based attempt at which the condition first held, or
	// the number of attempts made when it never did.
	Attempt int

	// Last is the final observation; Recent holds the last few, oldest first.
	Last   Observation
	Recent []Observation

	// Snapshot is captured only when the condition never held.
	Snapshot *Snapshot
}

// Poll sleeps one interval and evaluates c, repeating until c holds or the
// attempts are used up. It makes exactly one evaluation per attempt and no
// evaluation after the first success. When the attempts run out it captures
// a Snapshot from s.
//
// An evaluation error or a cancelled context stops polling and is returned
// with the partial result.
func (p Poller) Poll(ctx context.Context, s Session, c Condition) (PollResult, error) {
	if p.Interval <= 0 || p.Attempts <= 0 {
		return PollResult{}, fmt.Errorf("%w (interval %v, attempts %d)", ErrInvalidPoll, p.Interval, p.Attempts)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var res PollResult
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := sleep(ctx, p.Interval); err != nil {
			return res, fmt.Errorf("pageready: poll: attempt %d: %w", attempt, err)
		}

		ok, obs, err := c(ctx, s)
		res.Attempt = attempt
		if err != nil {
			return res, fmt.Errorf("pageready: poll: attempt %d: %w", attempt, err)
		}
		res.Last = obs
		res.Recent = appendRecent(res.Recent, obs, recentObservations)
		if ok {
			res.Ready = true
			return res, nil
		}

		if p.Progress != nil && p.ProgressEvery > 0 && attempt%p.ProgressEvery == 0 && attempt < p.Attempts {
			p.Progress(attempt, obs)
		}
	}

	res.Snapshot = Capture(ctx, s, p.features())
	return res, nil
}

func (p Poller) features() []Feature {
	if p.Features == nil {
		return DefaultFeatures
	}
	return p.Features
}

// Elapsed is the nominal wait time covered by the attempts made.
func (p Poller) Elapsed(r PollResult) time.Duration {
	return time.Duration(r.Attempt) * p.Interval
}

func appendRecent(obs []Observation, o Observation, max int) []Observation {
	obs = append(obs, o)
	if len(obs) > max {
		obs = obs[len(obs)-max:]
	}
	return obs
}

func formatRecent(obs []Observation) string {
	if len(obs) == 0 {
		return "    (no observations)"
	}
	var b strings.Builder
	for i, o := range obs {
		fmt.Fprintf(&b, "    observation %d/%d: %s", i+1, len(obs), o.Description)
		if i < len(obs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
