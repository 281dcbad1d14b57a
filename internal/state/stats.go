package state

import (
	"sort"
	"time"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/model"
)

type DayScore struct {
	Key    string
	Points int
}

// DailyScores sums settled points per effective date-key.
func DailyScores(s State) map[string]int {
	out := make(map[string]int)
	for _, t := range s.Tasks {
		if !t.IsSettled() {
			continue
		}
		key, ok := t.EffectiveDateKey()
		if !ok {
			continue
		}
		out[key] += t.Earned()
	}
	return out
}

// RecentScores lists the last days days ending today, oldest first.
func RecentScores(s State, today time.Time, days int) []DayScore {
	scores := DailyScores(s)
	out := make([]DayScore, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := datekey.Format(datekey.AddDays(today, -i))
		out = append(out, DayScore{Key: key, Points: scores[key]})
	}
	return out
}

// TodayPoints sums points settled during now's calendar day, counting
// unstamped daily settlements by their target date.
func TodayPoints(s State, now time.Time) int {
	start := datekey.StartOfDay(now)
	end := datekey.AddDays(start, 1)
	todayKey := datekey.Format(now)
	total := 0
	for _, t := range s.Tasks {
		if !t.IsSettled() {
			continue
		}
		if t.SettledAt != nil {
			if !t.SettledAt.Before(start) && t.SettledAt.Before(end) {
				total += t.Earned()
			}
			continue
		}
		if t.PlanType == model.PlanDaily && t.TargetDate == todayKey {
			total += t.Earned()
		}
	}
	return total
}

// SettledOn lists the settled tasks whose effective day is key.
func SettledOn(s State, key string) []model.Task {
	out := make([]model.Task, 0)
	for _, t := range s.Tasks {
		if !t.IsSettled() {
			continue
		}
		if k, ok := t.EffectiveDateKey(); ok && k == key {
			out = append(out, t)
		}
	}
	return out
}

// DailyTasksOn lists daily tasks due on key, newest first.
func DailyTasksOn(s State, key string) []model.Task {
	out := make([]model.Task, 0)
	for _, t := range s.Tasks {
		if t.PlanType == model.PlanDaily && t.TargetDate == key {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// LongtermTasks lists longterm tasks, unsettled first, newest first within
// each half.
func LongtermTasks(s State) []model.Task {
	out := make([]model.Task, 0)
	for _, t := range s.Tasks {
		if t.PlanType == model.PlanLongterm {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsSettled() != out[j].IsSettled() {
			return !out[i].IsSettled()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// TasksByID resolves ids against s, skipping unknown ids and keeping order.
func TasksByID(s State, ids []string) []model.Task {
	out := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.Task(id); ok {
			out = append(out, t)
		}
	}
	return out
}
