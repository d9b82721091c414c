package pageready_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/pageready"
	"github.com/cboone/pageready/pagereadytest"
)

func eval(t *testing.T, c pageready.Condition, s pageready.Session) (bool, pageready.Observation) {
	t.Helper()
	ok, obs, err := c(context.Background(), s)
	require.NoError(t, err)
	return ok, obs
}

func TestElementPresent(t *testing.T) {
	s := loadedApp()

	ok, obs := eval(t, pageready.ElementPresent(pageready.ByID, "root"), s)
	assert.True(t, ok)
	assert.Equal(t, 1, obs.Count)
	assert.Equal(t, `1 element(s) by id "root"`, obs.Description)

	ok, obs = eval(t, pageready.ElementPresent(pageready.ByTagName, "canvas"), s)
	assert.False(t, ok)
	assert.Equal(t, 0, obs.Count)
}

func TestScriptConditions(t *testing.T) {
	s := loadedApp()

	ok, _ := eval(t, pageready.ScriptTrue(pageready.ScriptWindowDefined), s)
	assert.True(t, ok)

	ok, obs := eval(t, pageready.ScriptCountAbove(pageready.ScriptRootContentLength, 0), s)
	assert.True(t, ok)
	assert.Equal(t, 1234, obs.Count)

	ok, obs = eval(t, pageready.ScriptCountAbove(pageready.ScriptCanvasCount, 0), s)
	assert.False(t, ok)
	assert.Contains(t, obs.Description, "returned 0")

	s.Scripts["return 'x';"] = "x"
	ok, obs = eval(t, pageready.ScriptCountAbove("return 'x';", 0), s)
	assert.False(t, ok)
	assert.Contains(t, obs.Description, "non-number")
}

func TestTitleAndSourceConditions(t *testing.T) {
	ok, obs := eval(t, pageready.TitleNotEmpty(), loadedApp())
	assert.True(t, ok)
	assert.Equal(t, `title "FossFLOW"`, obs.Description)

	empty := &pagereadytest.Session{Source: pagereadytest.String(""), PageTitle: pagereadytest.String("")}
	ok, _ = eval(t, pageready.TitleNotEmpty(), empty)
	assert.False(t, ok)
	ok, obs = eval(t, pageready.SourceNotEmpty(), empty)
	assert.False(t, ok)
	assert.Equal(t, "page source of 0 bytes", obs.Description)
}

func TestCombinators(t *testing.T) {
	s := loadedApp()
	root := pageready.ElementPresent(pageready.ByID, "root")
	canvas := pageready.ElementPresent(pageready.ByTagName, "canvas")

	ok, obs := eval(t, pageready.Not(canvas), s)
	assert.True(t, ok)
	assert.Contains(t, obs.Description, "NOT(")

	ok, obs = eval(t, pageready.All(root, canvas), s)
	assert.False(t, ok)
	assert.Contains(t, obs.Description, "all of: ")

	ok, _ = eval(t, pageready.All(root, pageready.Not(canvas)), s)
	assert.True(t, ok)

	ok, obs = eval(t, pageready.Any(canvas, root), s)
	assert.True(t, ok)
	assert.Contains(t, obs.Description, "any of: ")
	assert.Equal(t, 1, obs.Count)
}

func TestAllStopsAtFirstMiss(t *testing.T) {
	s := loadedApp()
	canvas := pageready.ElementPresent(pageready.ByTagName, "canvas")
	_, _ = eval(t, pageready.All(canvas, pageready.TitleNotEmpty()), s)
	assert.Equal(t, 0, s.Calls("Title"))
}

func TestAnyStopsAtFirstHit(t *testing.T) {
	s := loadedApp()
	_, _ = eval(t, pageready.Any(pageready.TitleNotEmpty(), pageready.SourceNotEmpty()), s)
	assert.Equal(t, 0, s.Calls("PageSource"))
}

func TestConditionErrors(t *testing.T) {
	s := &pagereadytest.Session{}
	for _, c := range []pageready.Condition{
		pageready.ElementPresent(pageready.ByCSS, "div.x"),
		pageready.ScriptTrue("return 1;"),
		pageready.Not(pageready.TitleNotEmpty()),
		pageready.All(pageready.SourceNotEmpty()),
		pageready.Any(pageready.TitleNotEmpty()),
	} {
		_, _, err := c(context.Background(), s)
		assert.True(t, errors.Is(err, pagereadytest.ErrNotStubbed), "got %v", err)
	}
}
