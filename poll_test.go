package pageready_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/pageready"
	"github.com/cboone/pageready/pagereadytest"
)

// canvasAfter returns a session whose canvas appears on the k-th lookup.
func canvasAfter(k int) *pagereadytest.Session {
	s := loadedApp()
	var lookups atomic.Int32
	s.FindFunc = func(by pageready.By, selector string) ([]pageready.Element, error) {
		if int(lookups.Add(1)) >= k {
			return pagereadytest.Elements("canvas", 1), nil
		}
		return nil, nil
	}
	return s
}

func TestPollSucceedsAtAttempt(t *testing.T) {
	for _, k := range []int{1, 2, 7, 30} {
		s := canvasAfter(k)
		c := &clock{}
		p := pageready.Poller{Interval: time.Second, Attempts: 30, Sleep: c.Sleep}

		res, err := p.Poll(context.Background(), s, pageready.ElementPresent(pageready.ByTagName, "canvas"))
		require.NoError(t, err)
		assert.True(t, res.Ready)
		assert.Equal(t, k, res.Attempt)
		assert.Equal(t, k, s.Calls("FindElements"), "one evaluation per attempt, none after success")
		assert.Len(t, c.Waits(), k)
		assert.Equal(t, time.Duration(k)*time.Second, p.Elapsed(res))
		assert.Nil(t, res.Snapshot)
		assert.Equal(t, 0, s.Calls("Logs"))
	}
}

func TestPollExhaustion(t *testing.T) {
	s := loadedApp()
	s.Elements = map[string][]pageready.Element{}
	c := &clock{}
	p := pageready.Poller{Interval: time.Second, Attempts: 30, Sleep: c.Sleep}

	res, err := p.Poll(context.Background(), s, pageready.CanvasCondition())
	require.NoError(t, err)
	assert.False(t, res.Ready)
	assert.Equal(t, 30, res.Attempt)
	assert.Equal(t, 30, s.Calls("FindElements"))
	assert.Equal(t, 30*time.Second, c.Total())

	require.NotNil(t, res.Snapshot)
	assert.False(t, res.Snapshot.Empty())
	assert.Len(t, res.Snapshot.Errors(), 1)
	assert.Len(t, res.Snapshot.Warnings(), 1)
	assert.Len(t, res.Snapshot.Others(), 1)
	assert.Equal(t, 0, res.Snapshot.Count("canvases"))
	assert.Equal(t, 2, res.Snapshot.Count("divs"))
	assert.Equal(t, map[string]bool{"window": true, "paper": false}, res.Snapshot.Features)

	require.Len(t, res.Recent, 3)
	assert.Equal(t, res.Last, res.Recent[2])
}

func TestPollInvalidArguments(t *testing.T) {
	s := loadedApp()
	cond := pageready.TitleNotEmpty()

	for _, p := range []pageready.Poller{
		{Interval: time.Second, Attempts: 0},
		{Interval: time.Second, Attempts: -1},
		{Interval: 0, Attempts: 5},
		{Interval: -time.Second, Attempts: 5},
	} {
		_, err := p.Poll(context.Background(), s, cond)
		assert.ErrorIs(t, err, pageready.ErrInvalidPoll)
	}
	assert.Equal(t, 0, s.Calls("Title"))
}

func TestPollConditionError(t *testing.T) {
	s := &pagereadytest.Session{}
	c := &clock{}
	p := pageready.Poller{Interval: time.Second, Attempts: 5, Sleep: c.Sleep}

	res, err := p.Poll(context.Background(), s, pageready.TitleNotEmpty())
	require.Error(t, err)
	assert.ErrorIs(t, err, pagereadytest.ErrNotStubbed)
	assert.Contains(t, err.Error(), "pageready: poll: attempt 1")
	assert.Equal(t, 1, res.Attempt)
	assert.Equal(t, 1, s.Calls("Title"))
}

func TestPollCancelled(t *testing.T) {
	s := loadedApp()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := pageready.Poller{Interval: time.Hour, Attempts: 5}
	_, err := p.Poll(ctx, s, pageready.TitleNotEmpty())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Calls("Title"))
}

func TestPollCancelledMidway(t *testing.T) {
	s := loadedApp()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeps := 0
	sleep := func(ctx context.Context, d time.Duration) error {
		sleeps++
		if sleeps == 3 {
			cancel()
		}
		return ctx.Err()
	}
	s.Elements = map[string][]pageready.Element{}
	p := pageready.Poller{Interval: time.Second, Attempts: 30, Sleep: sleep}

	res, err := p.Poll(ctx, s, pageready.ElementPresent(pageready.ByTagName, "canvas"))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, res.Attempt)
	assert.Equal(t, 2, s.Calls("FindElements"))
}

func TestPollProgress(t *testing.T) {
	s := loadedApp()
	s.Elements = map[string][]pageready.Element{}
	c := &clock{}

	var reported []int
	p := pageready.Poller{
		Interval:      time.Second,
		Attempts:      10,
		Sleep:         c.Sleep,
		ProgressEvery: 5,
		Progress: func(attempt int, obs pageready.Observation) {
			reported = append(reported, attempt)
			assert.Contains(t, obs.Description, "canvas")
		},
	}

	_, err := p.Poll(context.Background(), s, pageready.ElementPresent(pageready.ByTagName, "canvas"))
	require.NoError(t, err)
	assert.Equal(t, []int{5}, reported, "no progress on the final attempt")

	p.Attempts = 12
	reported = nil
	_, err = p.Poll(context.Background(), s, pageready.ElementPresent(pageready.ByTagName, "canvas"))
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10}, reported)
}

func TestDefaultPoller(t *testing.T) {
	p := pageready.DefaultPoller()
	assert.Equal(t, time.Second, p.Interval)
	assert.Equal(t, 30, p.Attempts)
	assert.Equal(t, 5, p.ProgressEvery)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := pageready.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, pageready.Sleep(context.Background(), time.Millisecond))
}
