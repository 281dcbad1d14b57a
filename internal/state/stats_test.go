package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EwwwzhI/ActionPlus/internal/model"
)

func TestScoresAndTodayPoints(t *testing.T) {
	now := time.Date(2024, 1, 8, 21, 0, 0, 0, time.Local)
	stampedToday := dailyTask("a", "2024-01-07", 10)
	stampedToday.EarnedPoints = ptr(4)
	stampedToday.SettledAt = ptr(now.Add(-time.Hour))
	unstamped := dailyTask("b", "2024-01-08", 10)
	unstamped.EarnedPoints = ptr(3)
	yesterday := longtermTask("c", 10)
	yesterday.EarnedPoints = ptr(7)
	yesterday.SettledAt = ptr(now.AddDate(0, 0, -1))
	pending := dailyTask("d", "2024-01-08", 10)

	s := withTasks(stampedToday, unstamped, yesterday, pending)

	assert.Equal(t, 7, TodayPoints(s, now))
	assert.Equal(t, map[string]int{"2024-01-08": 7, "2024-01-07": 7}, DailyScores(s))

	recent := RecentScores(s, now, 3)
	require.Len(t, recent, 3)
	assert.Equal(t, DayScore{Key: "2024-01-06", Points: 0}, recent[0])
	assert.Equal(t, DayScore{Key: "2024-01-08", Points: 7}, recent[2])

	assert.Len(t, SettledOn(s, "2024-01-08"), 2)
}

func TestTaskListings(t *testing.T) {
	older := dailyTask("old", "2024-01-08", 1)
	older.CreatedAt = testNow.Add(-time.Hour)
	newer := dailyTask("new", "2024-01-08", 1)
	other := dailyTask("other", "2024-01-09", 1)
	settledLong := longtermTask("l1", 5)
	settledLong.EarnedPoints = ptr(5)
	settledLong.CreatedAt = testNow.Add(time.Hour)
	openLong := longtermTask("l2", 5)

	s := withTasks(older, newer, other, settledLong, openLong)
	ids := func(tasks []model.Task) []string {
		out := make([]string, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, t.ID)
		}
		return out
	}
	assert.Equal(t, []string{"new", "old"}, ids(DailyTasksOn(s, "2024-01-08")))
	assert.Equal(t, []string{"l2", "l1"}, ids(LongtermTasks(s)))
	assert.Equal(t, []string{"other", "l1"}, ids(TasksByID(s, []string{"other", "missing", "l1"})))
}
