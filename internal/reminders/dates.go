// Package reminders turns reminder settings and tasks into concrete trigger
// instants and keeps a delivery backend in step with them.
package reminders

import (
	"sort"
	"time"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/model"
)

const (
	ShortHorizonDays = 30
	LongHorizonDays  = 90
)

func atClock(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

// firstSlot is hour:minute today when that has not passed, else tomorrow.
func firstSlot(now time.Time, hour, minute int) time.Time {
	slot := atClock(now, hour, minute)
	if slot.Before(now) {
		y, m, d := now.Date()
		slot = time.Date(y, m, d+1, hour, minute, 0, 0, now.Location())
	}
	return slot
}

func addCalendarDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, t.Hour(), t.Minute(), 0, 0, t.Location())
}

// UpcomingDates returns one instant per day over horizonDays days starting at
// the first hour:minute at or after now. RepeatWeekday drops Saturdays and
// Sundays, so it may return fewer than horizonDays instants.
func UpcomingDates(now time.Time, hour, minute, horizonDays int, rule model.RepeatRule) []time.Time {
	hour, minute = model.ClampHour(hour), model.ClampMinute(minute)
	if horizonDays <= 0 {
		return nil
	}
	first := firstSlot(now, hour, minute)
	out := make([]time.Time, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		at := addCalendarDays(first, i)
		if rule == model.RepeatWeekday {
			if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
		}
		out = append(out, at)
	}
	return out
}

// SingleDate is the one instant a "once" reminder fires at. Callers must
// drop it unless IsFuture.
func SingleDate(now time.Time, mode model.DateMode, hour, minute int) time.Time {
	day := now
	if mode.Normalize() == model.DateTomorrow {
		day = datekey.AddDays(now, 1)
	}
	return atClock(day, model.ClampHour(hour), model.ClampMinute(minute))
}

func IsFuture(now, t time.Time) bool {
	return t.After(now)
}

// DeadlineTrigger is one deadline-relative reminder for one task.
type DeadlineTrigger struct {
	At     time.Time
	TaskID string
	Offset int
}

// DeadlineDates computes deadline-minus-offset instants for every task with
// a readable deadline. Offsets outside the allowed set are ignored, and
// instants that are not in the future or lie beyond the horizon are dropped.
func DeadlineDates(now time.Time, tasks []model.Task, hour, minute int, offsets []int, horizonDays int) []DeadlineTrigger {
	hour, minute = model.ClampHour(hour), model.ClampMinute(minute)
	limit := addCalendarDays(now, horizonDays)
	seen := make(map[string]struct{})
	out := make([]DeadlineTrigger, 0)
	for _, task := range tasks {
		deadline, ok := datekey.ParseIn(task.DeadlineDate, now.Location())
		if !ok {
			continue
		}
		for _, offset := range offsets {
			if !model.IsAllowedDeadlineOffset(offset) {
				continue
			}
			at := atClock(datekey.AddDays(deadline, -offset), hour, minute)
			if !IsFuture(now, at) || at.After(limit) {
				continue
			}
			key := task.ID + "|" + datekey.Format(at) + "|" + at.Format("15:04")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, DeadlineTrigger{At: at, TaskID: task.ID, Offset: offset})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// IntervalDates enumerates review instants every rule.Days() days from the
// first future slot up to the horizon. IntervalNone yields nothing.
func IntervalDates(now time.Time, hour, minute int, rule model.IntervalRule, horizonDays int) []time.Time {
	step := rule.Normalize().Days()
	if step <= 0 || horizonDays <= 0 {
		return nil
	}
	hour, minute = model.ClampHour(hour), model.ClampMinute(minute)
	first := firstSlot(now, hour, minute)
	if !IsFuture(now, first) {
		first = addCalendarDays(first, 1)
	}
	limit := addCalendarDays(now, horizonDays)
	out := make([]time.Time, 0, horizonDays/step+1)
	for at := first; !at.After(limit); at = addCalendarDays(at, step) {
		out = append(out, at)
	}
	return out
}
