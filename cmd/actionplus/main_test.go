package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EwwwzhI/ActionPlus/internal/export"
	"github.com/EwwwzhI/ActionPlus/internal/reminders"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ACTIONPLUS_DATA_DIR", dir)
	t.Setenv("ACTIONPLUS_LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", filepath.Join(dir, "missing.yaml")}, args...))
	require.NoError(t, root.ExecuteContext(context.Background()))
	return out.String()
}

func TestExportWithoutRecords(t *testing.T) {
	out := runCLI(t, "export", "--out", "-")
	assert.Contains(t, out, export.EmptyMessage)
}

func TestMaintainOpensCycleAndSaves(t *testing.T) {
	db := filepath.Join(t.TempDir(), "actionplus.db")
	out := runCLI(t, "--db", db, "maintain")
	assert.Contains(t, out, "actions")
	assert.Contains(t, out, "0 archives")

	_, err := os.Stat(db)
	require.NoError(t, err)
}

func TestRemindersListEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "actionplus.db")
	out := runCLI(t, "--db", db, "reminders", "list")
	assert.Equal(t, "no reminders scheduled\n", out)
}

func TestRemindersListRejectsUnknownCategory(t *testing.T) {
	t.Setenv("ACTIONPLUS_DATA_DIR", t.TempDir())
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "reminders", "list", "-c", "weekly"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}

func TestInvalidLogLevelFailsValidation(t *testing.T) {
	t.Setenv("ACTIONPLUS_DATA_DIR", t.TempDir())
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "loud", "export"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LogLevel")
}

func TestWriteScheduled(t *testing.T) {
	at := time.Date(2024, 1, 12, 8, 0, 0, 0, time.Local)
	var buf bytes.Buffer
	require.NoError(t, writeScheduled(&buf, []reminders.Scheduled{
		{Handle: "a", Category: reminders.CategoryTask, Repeating: true, Hour: 8, Minute: 30, Payload: reminders.Payload{Kind: "periodic", Title: "任务提醒", Body: "• 读书\n共 1 项"}},
		{Handle: "b", Category: reminders.CategoryLongterm, At: at, Payload: reminders.Payload{Kind: "deadline", Title: "长期任务提醒", Body: "「论文」今天截止"}},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "WHEN"))
	assert.Contains(t, lines[1], "daily 08:30")
	assert.Contains(t, lines[1], "• 读书 / 共 1 项")
	assert.Contains(t, lines[2], "2024-01-12 08:00")
}

func TestDescribeOutcome(t *testing.T) {
	assert.Equal(t, "task_reminder: applied, 3 scheduled, 1 failed",
		describeOutcome(reminders.SyncOutcome{Category: reminders.CategoryTask, Kind: reminders.OutcomeApplied, Scheduled: 3, Failed: 1}))
	assert.Equal(t, "longterm_reminder: skipped (permission_denied)",
		describeOutcome(reminders.SyncOutcome{Category: reminders.CategoryLongterm, Kind: reminders.OutcomeSkipped, Reason: reminders.ReasonPermissionDenied}))
}

func TestNextDailyRun(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 1, 12, 0, 0, 30, 0, loc)
	assert.Equal(t, time.Date(2024, 1, 12, 0, 1, 0, 0, loc), nextDailyRun(now, 0, 1))

	now = time.Date(2024, 1, 12, 0, 1, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 1, 13, 0, 1, 0, 0, loc), nextDailyRun(now, 0, 1))
}
