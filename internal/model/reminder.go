package model

import (
	"sort"
	"strings"
)

type NotificationMode string

const (
	ModeGlobalRule NotificationMode = "global_rule"
	ModeFollowTask NotificationMode = "follow_task"
)

func (m NotificationMode) Normalize() NotificationMode {
	if m == ModeFollowTask {
		return ModeFollowTask
	}
	return ModeGlobalRule
}

type DateMode string

const (
	DateToday    DateMode = "today"
	DateTomorrow DateMode = "tomorrow"
)

func (d DateMode) Normalize() DateMode {
	if d == DateToday {
		return DateToday
	}
	return DateTomorrow
}

type RepeatRule string

const (
	RepeatOnce    RepeatRule = "once"
	RepeatDaily   RepeatRule = "daily"
	RepeatWeekday RepeatRule = "weekday"
)

func (r RepeatRule) Normalize() RepeatRule {
	switch r {
	case RepeatOnce, RepeatWeekday:
		return r
	default:
		return RepeatDaily
	}
}

type IntervalRule string

const (
	IntervalNone        IntervalRule = "none"
	IntervalWeekly      IntervalRule = "weekly"
	IntervalEvery14Days IntervalRule = "every14Days"
	IntervalEvery30Days IntervalRule = "every30Days"
)

func (r IntervalRule) Normalize() IntervalRule {
	switch r {
	case IntervalWeekly, IntervalEvery14Days, IntervalEvery30Days:
		return r
	default:
		return IntervalNone
	}
}

// Days is the review step, 0 for none.
func (r IntervalRule) Days() int {
	switch r {
	case IntervalWeekly:
		return 7
	case IntervalEvery14Days:
		return 14
	case IntervalEvery30Days:
		return 30
	default:
		return 0
	}
}

type NotificationSettings struct {
	Enabled        bool
	PeriodicHour   int
	PeriodicMinute int
	SingleHour     int
	SingleMinute   int
	TaskIDs        []string
	Mode           NotificationMode
	DateMode       DateMode
	RepeatRule     RepeatRule
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Enabled:        true,
		PeriodicHour:   8,
		PeriodicMinute: 0,
		SingleHour:     8,
		SingleMinute:   0,
		TaskIDs:        []string{},
		Mode:           ModeGlobalRule,
		DateMode:       DateTomorrow,
		RepeatRule:     RepeatDaily,
	}
}

// Normalize clamps times, de-duplicates ids and maps unknown enums to their
// defaults.
func (s NotificationSettings) Normalize() NotificationSettings {
	return NotificationSettings{
		Enabled:        s.Enabled,
		PeriodicHour:   ClampHour(s.PeriodicHour),
		PeriodicMinute: ClampMinute(s.PeriodicMinute),
		SingleHour:     ClampHour(s.SingleHour),
		SingleMinute:   ClampMinute(s.SingleMinute),
		TaskIDs:        NormalizeTaskIDs(s.TaskIDs),
		Mode:           s.Mode.Normalize(),
		DateMode:       s.DateMode.Normalize(),
		RepeatRule:     s.RepeatRule.Normalize(),
	}
}

type LongtermNotificationSettings struct {
	Enabled         bool
	Hour            int
	Minute          int
	TaskIDs         []string
	DeadlineOffsets []int
	IntervalRule    IntervalRule
}

func DefaultLongtermNotificationSettings() LongtermNotificationSettings {
	return LongtermNotificationSettings{
		Enabled:         false,
		Hour:            20,
		Minute:          0,
		TaskIDs:         []string{},
		DeadlineOffsets: []int{7, 3, 1, 0},
		IntervalRule:    IntervalWeekly,
	}
}

func (s LongtermNotificationSettings) Normalize() LongtermNotificationSettings {
	return LongtermNotificationSettings{
		Enabled:         s.Enabled,
		Hour:            ClampHour(s.Hour),
		Minute:          ClampMinute(s.Minute),
		TaskIDs:         NormalizeTaskIDs(s.TaskIDs),
		DeadlineOffsets: NormalizeDeadlineOffsets(s.DeadlineOffsets),
		IntervalRule:    s.IntervalRule.Normalize(),
	}
}

// AllowedDeadlineOffsets are the days-before-deadline a reminder may use.
var AllowedDeadlineOffsets = []int{7, 3, 1, 0}

func IsAllowedDeadlineOffset(n int) bool {
	for _, v := range AllowedDeadlineOffsets {
		if v == n {
			return true
		}
	}
	return false
}

func ClampHour(h int) int   { return clamp(h, 0, 23) }
func ClampMinute(m int) int { return clamp(m, 0, 59) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeTaskIDs drops empty ids and duplicates, keeping first-seen order.
func NormalizeTaskIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// NormalizeDeadlineOffsets keeps allowed offsets once each, largest first.
func NormalizeDeadlineOffsets(offsets []int) []int {
	out := make([]int, 0, len(AllowedDeadlineOffsets))
	seen := map[int]bool{}
	for _, o := range offsets {
		if o < 0 {
			o = 0
		}
		if !IsAllowedDeadlineOffset(o) || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// ContainsID reports whether id is in ids.
func ContainsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ToggleID adds id when absent and removes it when present.
func ToggleID(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	found := false
	for _, v := range ids {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, id)
	}
	return out
}
