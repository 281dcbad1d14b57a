package state

import (
	"time"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/model"
)

const DefaultRetentionDays = 120

// GenerateAutoTasks builds the tasks auto templates should spawn for days.
// A template yields nothing for a day when its rule does not match or a daily
// task with the same target date, group, title and max points already exists
// in s or earlier in the batch. Running it twice produces nothing new.
func GenerateAutoTasks(s State, days []time.Time, now time.Time, newID func(prefix string) string) []model.Task {
	if newID == nil {
		newID = NewID
	}
	type contentKey struct {
		targetDate string
		groupID    string
		title      string
		maxPoints  int
	}
	existing := make(map[contentKey]struct{}, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.PlanType != model.PlanDaily {
			continue
		}
		existing[contentKey{t.TargetDate, t.GroupID, t.Title, t.MaxPoints}] = struct{}{}
	}

	out := make([]model.Task, 0)
	for _, day := range days {
		key := datekey.Format(day)
		for _, tpl := range s.Templates {
			if tpl.PlanType != model.PlanDaily || !tpl.AutoDaily {
				continue
			}
			if !model.IsRuleMatch(tpl.AutoRule, day) {
				continue
			}
			ck := contentKey{key, tpl.GroupID, tpl.Title, tpl.MaxPoints}
			if _, ok := existing[ck]; ok {
				continue
			}
			existing[ck] = struct{}{}
			out = append(out, model.Task{
				ID:         newID("task"),
				Title:      tpl.Title,
				GroupID:    tpl.GroupID,
				PlanType:   model.PlanDaily,
				Origin:     model.FromTemplate(tpl.ID),
				MaxPoints:  tpl.MaxPoints,
				TargetDate: key,
				CreatedAt:  now,
			})
		}
	}
	return out
}

// GenerationDays turns day offsets (0 = today) into dates relative to now.
func GenerationDays(now time.Time, offsets []int) []time.Time {
	out := make([]time.Time, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, datekey.AddDays(datekey.StartOfDay(now), off))
	}
	return out
}

// EvaluateArchive decides the archive-cycle action due on today, if any. A
// missing or unreadable period start restarts the cycle today; a cycle that
// has run its full length rolls over with an end date of its last day.
func EvaluateArchive(s State, today time.Time, newID func(prefix string) string) (Action, bool) {
	cycle := s.ArchiveSettings.CycleDays
	if cycle <= 0 {
		cycle = model.DefaultCycleDays
	}
	todayKey := datekey.Format(today)
	if s.ArchiveSettings.PeriodStart == "" {
		return SetArchiveCycle{CycleDays: cycle, PeriodStart: todayKey}, true
	}
	start, ok := datekey.ParseIn(s.ArchiveSettings.PeriodStart, today.Location())
	if !ok {
		return SetArchiveCycle{CycleDays: cycle, PeriodStart: todayKey}, true
	}
	if datekey.DaysBetween(start, today) < cycle {
		return nil, false
	}
	action := AutoArchive{
		CycleDays: cycle,
		NextStart: todayKey,
		EndDate:   datekey.Format(datekey.AddDays(start, cycle-1)),
		At:        today,
	}
	if newID != nil {
		action.ArchiveID = newID("arch")
	}
	return action, true
}

// RetentionCutoff is the oldest date-key kept by retention cleanup: the
// window of retentionDays ends today, inclusive.
func RetentionCutoff(today time.Time, retentionDays int) string {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return datekey.Format(datekey.AddDays(today, -(retentionDays - 1)))
}

// Maintenance returns the actions a day change triggers, in dispatch order:
// archive evaluation, retention cleanup, then auto generation. Generation is
// computed against the state after the first two so ids stay stable.
func Maintenance(s State, now time.Time, retentionDays int, genOffsets []int, newID func(prefix string) string) []Action {
	actions := make([]Action, 0, 4)
	if a, ok := EvaluateArchive(s, now, newID); ok {
		actions = append(actions, a)
		s = Reduce(s, a)
	}
	cleanup := CleanupOldRecords{CutoffDate: RetentionCutoff(now, retentionDays)}
	actions = append(actions, cleanup)
	s = Reduce(s, cleanup)
	for _, t := range GenerateAutoTasks(s, GenerationDays(now, genOffsets), now, newID) {
		actions = append(actions, AddTask{Task: t})
	}
	return actions
}
