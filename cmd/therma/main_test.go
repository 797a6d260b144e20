package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermabackend/internal/dashboard"
	"github.com/thermabackend/internal/wellness"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

const export = `{
  "plant": {"health": 50, "growth_stage": 2},
  "moods": [
    {"mood": "happy", "created_at": "2026-03-07T12:00:00Z"},
    {"mood": "happy", "created_at": "2026-03-08T12:00:00Z"},
    {"mood": "sad",   "created_at": "2026-03-09T12:00:00Z"},
    {"mood": "happy", "created_at": "2026-03-10T12:00:00Z"}
  ],
  "journals": [{"created_at": "2026-03-10T16:00:00Z"}],
  "activities": [
    {"activity_type": "meditation", "completed": true, "created_at": "2026-03-10T12:00:00Z"}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAnalyze(t *testing.T) {
	path := writeFile(t, "export.json", export)

	out, err := run(t, "", "analyze", "--file", path, "--now", "2026-03-10T18:00:00Z",
		"--tz", "America/New_York", "--activities", "meditation,exercise")
	require.NoError(t, err, out)

	var s dashboard.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s), out)
	assert.Equal(t, "2026-03-10", s.Date)
	assert.Equal(t, 4, s.Streaks.Mood)
	assert.Equal(t, 1, s.Streaks.Meditation)
	assert.Equal(t, wellness.Declining, s.Trend.Direction)
	assert.InDelta(t, 7.25, s.AverageMood, 1e-9)
	assert.Equal(t, 2, s.Completion.TotalActivities)
	assert.InDelta(t, 0.75, s.Completion.Ratio, 1e-9)
	assert.InDelta(t, 35.0, s.GrowthPercent, 1e-9)
}

func TestAnalyze_StdinWithConfigDefaults(t *testing.T) {
	cfg := writeFile(t, "therma.yaml", "timezone: Asia/Tokyo\nactivities:\n  - meditation\n")

	// 18:00 UTC on the 10th is already the 11th in Tokyo, so nothing is logged today.
	out, err := run(t, export, "analyze", "--config", cfg, "--file", "-", "--now", "2026-03-10T18:00:00Z")
	require.NoError(t, err, out)

	var s dashboard.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s), out)
	assert.Equal(t, "2026-03-11", s.Date)
	assert.Equal(t, 0, s.Streaks.Mood)
	assert.Equal(t, 1, s.Completion.TotalActivities)
	assert.False(t, s.Completion.MoodLogged)
}

func TestAnalyze_DaysLimitsTrend(t *testing.T) {
	path := writeFile(t, "export.json", export)

	out, err := run(t, "", "analyze", "--file", path, "--now", "2026-03-10T18:00:00Z", "--tz", "UTC", "--days", "2")
	require.NoError(t, err, out)

	var s dashboard.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s), out)
	assert.Equal(t, 2, s.CheckIns)
	assert.Equal(t, wellness.Improving, s.Trend.Direction)
	assert.Equal(t, 4, s.Streaks.Mood, "current streaks ignore the window")
}

func TestAnalyze_Errors(t *testing.T) {
	path := writeFile(t, "export.json", export)

	_, err := run(t, "", "analyze")
	assert.Error(t, err)

	_, err = run(t, "", "analyze", "--file", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to open export")

	_, err = run(t, "{not json", "analyze", "--file", "-")
	assert.ErrorContains(t, err, "failed to decode export")

	_, err = run(t, "", "analyze", "--file", path, "--tz", "Mars/Base")
	assert.ErrorContains(t, err, "unknown timezone")

	_, err = run(t, "", "analyze", "--file", path, "--now", "yesterday")
	assert.ErrorContains(t, err, "invalid --now")
}

func TestScore(t *testing.T) {
	out, err := run(t, "", "score", "happy", "Happy", "poor")
	require.NoError(t, err)
	assert.Equal(t, "happy\t9\nHappy\t6\npoor\t1\n", out)
}

func TestTrend(t *testing.T) {
	out, err := run(t, "", "trend", "9", "2", "9", "9")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "declining\t-38.89%\n"), out)
	assert.Contains(t, out, "dipped 39%")

	_, err = run(t, "", "trend", "9", "x")
	assert.ErrorContains(t, err, `invalid score "x"`)
}

func TestGrowth(t *testing.T) {
	out, err := run(t, "", "growth", "--health", "80", "--stage", "3", "--ratio", "0.5")
	require.NoError(t, err)
	assert.Equal(t, "58.00\n", out)

	out, err = run(t, "", "growth", "--health", "100", "--stage", "5", "--ratio", "3")
	require.NoError(t, err)
	assert.Equal(t, "100.00\n", out)
}
