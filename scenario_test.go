package pageready_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cboone/pageready"
	"github.com/cboone/pageready/pagereadytest"
)

const testBaseURL = "http://localhost:3000"

func runScenario(t *testing.T, s *pagereadytest.Session, sc pageready.Scenario) (pageready.Result, *clock) {
	t.Helper()
	c := &clock{}
	r := pageready.Runner{
		Driver:       pagereadytest.NewDriver(s),
		Capabilities: pageready.DefaultCapabilities(),
		BaseURL:      testBaseURL,
		Sleep:        c.Sleep,
	}
	return r.Run(context.Background(), sc), c
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "pass", pageready.Pass.String())
	assert.Equal(t, "fail", pageready.Fail.String())
	assert.Equal(t, "skip", pageready.Skip.String())
	assert.Equal(t, "error", pageready.Error.String())
	assert.Equal(t, "outcome(9)", pageready.Outcome(9).String())
}

func TestRunClosesSessionOnEveryPath(t *testing.T) {
	failNavigate := loadedApp()
	failNavigate.NavigateFunc = func(string) error { return errors.New("connection refused") }

	emptyPage := loadedApp()
	emptyPage.Source = pagereadytest.String("")

	noCanvas := loadedApp()

	tests := []struct {
		name    string
		session *pagereadytest.Session
		sc      pageready.Scenario
		want    pageready.Outcome
	}{
		{"pass", loadedApp(), pageready.HomepageLoads(), pageready.Pass},
		{"fail", emptyPage, pageready.ServerResponds(), pageready.Fail},
		{"skip", noCanvas, pageready.CanvasPresent(pageready.DefaultPoller()), pageready.Skip},
		{"navigate error", failNavigate, pageready.HomepageLoads(), pageready.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := runScenario(t, tt.session, tt.sc)
			assert.Equal(t, tt.want, res.Outcome, res.Message())
			assert.Equal(t, 1, tt.session.Closes())
			assert.Equal(t, tt.sc.Name, res.Scenario)
		})
	}
}

func TestRunNavigateFailureIsError(t *testing.T) {
	s := loadedApp()
	s.NavigateFunc = func(string) error { return errors.New("connection refused") }

	res, c := runScenario(t, s, pageready.HomepageLoads())
	assert.Equal(t, pageready.Error, res.Outcome)
	assert.ErrorContains(t, res.Err, "navigate: connection refused")
	assert.Empty(t, c.Waits(), "no settle after failed navigation")
	assert.Equal(t, 0, s.Calls("Title"))
	assert.Equal(t, 1, s.Closes())
}

func TestRunOpenFailureIsError(t *testing.T) {
	d := &pagereadytest.Driver{OpenErr: errors.New("no browser at endpoint")}
	r := pageready.Runner{Driver: d, BaseURL: testBaseURL, Sleep: (&clock{}).Sleep}

	res := r.Run(context.Background(), pageready.ServerResponds())
	assert.Equal(t, pageready.Error, res.Outcome)
	assert.Equal(t, "connect", res.Reason)
	assert.ErrorContains(t, res.Err, "no browser at endpoint")
	assert.Len(t, d.Opens(), 1)
}

func TestRunCloseFailure(t *testing.T) {
	s := loadedApp()
	s.CloseErr = errors.New("session already gone")

	res, _ := runScenario(t, s, pageready.HomepageLoads())
	assert.Equal(t, pageready.Error, res.Outcome)
	assert.Equal(t, "close", res.Reason)

	s = loadedApp()
	s.Source = pagereadytest.String("")
	s.CloseErr = errors.New("session already gone")
	res, _ = runScenario(t, s, pageready.ServerResponds())
	assert.Equal(t, pageready.Fail, res.Outcome, "close errors do not mask a failure")
}

func TestRunNavigatesAndSettles(t *testing.T) {
	s := loadedApp()
	res, c := runScenario(t, s, pageready.HomepageLoads())

	assert.Equal(t, pageready.Pass, res.Outcome)
	assert.Equal(t, []string{testBaseURL}, s.Navigated())
	assert.Equal(t, []time.Duration{5 * time.Second}, c.Waits())
}

func TestRunPassesCapabilities(t *testing.T) {
	s := loadedApp()
	d := pagereadytest.NewDriver(s)
	caps := pageready.DefaultCapabilities()
	caps.Width, caps.Height = 800, 600
	r := pageready.Runner{Driver: d, Capabilities: caps, BaseURL: testBaseURL, Sleep: (&clock{}).Sleep}

	r.Run(context.Background(), pageready.ServerResponds())
	require.Len(t, d.Opens(), 1)
	assert.Equal(t, caps, d.Opens()[0])
}

func TestRunSavesArtifacts(t *testing.T) {
	dir := t.TempDir()
	s := loadedApp()
	r := pageready.Runner{
		Driver:       pagereadytest.NewDriver(s),
		BaseURL:      testBaseURL,
		Sleep:        (&clock{}).Sleep,
		ArtifactsDir: dir,
	}

	res := r.Run(context.Background(), pageready.CanvasPresent(pageready.DefaultPoller()))
	require.Equal(t, pageready.Skip, res.Outcome)
	require.NotEmpty(t, res.Artifacts)
	assert.Equal(t, dir, filepath.Dir(res.Artifacts))

	page, err := os.ReadFile(filepath.Join(res.Artifacts, "page.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `<div id="root">`)

	data, err := os.ReadFile(filepath.Join(res.Artifacts, "diagnostics.yaml"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "canvas-present", doc["scenario"])
	assert.Equal(t, "skip", doc["outcome"])
	assert.Contains(t, doc, "diagnostics")
	assert.Contains(t, string(data), "level: SEVERE")
	assert.Equal(t, 1, s.Closes())
}

func TestRunSkipsArtifactsOnPass(t *testing.T) {
	dir := t.TempDir()
	r := pageready.Runner{
		Driver:       pagereadytest.NewDriver(loadedApp()),
		BaseURL:      testBaseURL,
		Sleep:        (&clock{}).Sleep,
		ArtifactsDir: dir,
	}

	res := r.Run(context.Background(), pageready.HomepageLoads())
	require.Equal(t, pageready.Pass, res.Outcome)
	assert.Empty(t, res.Artifacts)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResultMessage(t *testing.T) {
	res, _ := runScenario(t, loadedApp(), pageready.HomepageLoads())
	assert.Equal(t, `pageready: homepage-loads: pass: homepage loaded with title "FossFLOW"`, res.Message())

	s := loadedApp()
	s.NavigateFunc = func(string) error { return errors.New("refused") }
	res, _ = runScenario(t, s, pageready.HomepageLoads())
	assert.Equal(t, "pageready: homepage-loads: error: navigate: refused", res.Message())
}
