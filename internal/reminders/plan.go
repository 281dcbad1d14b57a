package reminders

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/model"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

const (
	ReminderTitle       = "任务提醒"
	LongtermTitle       = "长期任务提醒"
	LongtermReviewTitle = "长期任务回顾"
	emptySelectionBody  = "暂无已选择的提醒任务"

	KindPeriodic = "periodic"
	KindSingle   = "single"
	KindFollow   = "follow_task"
	KindDeadline = "deadline"
	KindReview   = "review"
)

// Trigger is one reminder to hand to the backend. Repeating triggers fire
// daily at Hour:Minute and leave At zero.
type Trigger struct {
	At        time.Time
	Repeating bool
	Hour      int
	Minute    int
	Payload   Payload
}

// Plan is everything a Syncer needs for one category: the fingerprint of its
// inputs and the triggers those inputs produce at a given instant.
type Plan struct {
	Category    Category
	Fingerprint string
	Enabled     bool
	Tasks       []model.Task
	Triggers    []Trigger
}

// BuildReminderMessage previews up to three selected titles.
func BuildReminderMessage(tasks []model.Task) (title, body string) {
	if len(tasks) == 0 {
		return ReminderTitle, emptySelectionBody
	}
	return ReminderTitle, taskListBody(tasks)
}

func taskListBody(tasks []model.Task) string {
	lines := make([]string, 0, 3)
	for i, t := range tasks {
		if i == 3 {
			break
		}
		lines = append(lines, "• "+t.Title)
	}
	preview := strings.Join(lines, "\n")
	if len(tasks) > 3 {
		return fmt.Sprintf("%s\n等 %d 项", preview, len(tasks))
	}
	return fmt.Sprintf("%s\n共 %d 项", preview, len(tasks))
}

func deadlineBody(t model.Task, offset int) string {
	if offset == 0 {
		return fmt.Sprintf("「%s」今天截止", t.Title)
	}
	return fmt.Sprintf("「%s」距离截止还有 %d 天（%s）", t.Title, offset, t.DeadlineDate)
}

func taskIDs(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

// PeriodicTasks are the selected tasks that still exist.
func PeriodicTasks(s state.State) []model.Task {
	return state.TasksByID(s, s.NotificationSettings.TaskIDs)
}

// LongtermTasks are the selected longterm tasks that are not settled yet.
func LongtermTasks(s state.State) []model.Task {
	selected := state.TasksByID(s, s.LongtermNotificationSettings.TaskIDs)
	out := make([]model.Task, 0, len(selected))
	for _, t := range selected {
		if t.PlanType == model.PlanLongterm && !t.IsSettled() {
			out = append(out, t)
		}
	}
	return out
}

// PlanPeriodic builds the short-term reminder plan. With repeating set a
// global daily rule becomes one repeating trigger instead of horizonDays
// one-shot triggers.
func PlanPeriodic(s state.State, now time.Time, horizonDays int, repeating bool) Plan {
	settings := s.NotificationSettings.Normalize()
	tasks := PeriodicTasks(s)
	plan := Plan{
		Category:    CategoryTask,
		Fingerprint: PeriodicFingerprint(settings, tasks, repeating),
		Enabled:     settings.Enabled,
		Tasks:       tasks,
	}
	if !settings.Enabled || len(tasks) == 0 {
		return plan
	}
	title, body := BuildReminderMessage(tasks)
	payload := Payload{Category: CategoryTask, Kind: KindPeriodic, Title: title, Body: body, TaskIDs: taskIDs(tasks)}

	if settings.Mode == model.ModeFollowTask {
		plan.Triggers = followTaskTriggers(tasks, now, settings.PeriodicHour, settings.PeriodicMinute, horizonDays)
		return plan
	}

	switch settings.RepeatRule {
	case model.RepeatOnce:
		at := SingleDate(now, settings.DateMode, settings.SingleHour, settings.SingleMinute)
		if IsFuture(now, at) {
			p := payload
			p.Kind = KindSingle
			plan.Triggers = []Trigger{{At: at, Payload: p}}
		}
	case model.RepeatDaily:
		if repeating {
			plan.Triggers = []Trigger{{Repeating: true, Hour: settings.PeriodicHour, Minute: settings.PeriodicMinute, Payload: payload}}
			return plan
		}
		fallthrough
	default:
		for _, at := range UpcomingDates(now, settings.PeriodicHour, settings.PeriodicMinute, horizonDays, settings.RepeatRule) {
			plan.Triggers = append(plan.Triggers, Trigger{At: at, Payload: payload})
		}
	}
	return plan
}

// followTaskTriggers fires once per distinct future target date of the
// selected daily tasks, listing the tasks due that day.
func followTaskTriggers(tasks []model.Task, now time.Time, hour, minute, horizonDays int) []Trigger {
	byDate := make(map[string][]model.Task)
	for _, t := range tasks {
		if t.PlanType != model.PlanDaily {
			continue
		}
		byDate[t.TargetDate] = append(byDate[t.TargetDate], t)
	}
	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	limit := addCalendarDays(now, horizonDays)
	out := make([]Trigger, 0, len(keys))
	for _, key := range keys {
		day, ok := datekey.ParseIn(key, now.Location())
		if !ok {
			continue
		}
		at := atClock(day, hour, minute)
		if !IsFuture(now, at) || at.After(limit) {
			continue
		}
		due := byDate[key]
		title, body := BuildReminderMessage(due)
		out = append(out, Trigger{At: at, Payload: Payload{
			Category: CategoryTask, Kind: KindFollow, Title: title, Body: body, TaskIDs: taskIDs(due),
		}})
	}
	return out
}

// PlanLongterm builds deadline-relative triggers per task plus interval
// review triggers covering all selected tasks.
func PlanLongterm(s state.State, now time.Time, horizonDays int) Plan {
	settings := s.LongtermNotificationSettings.Normalize()
	tasks := LongtermTasks(s)
	plan := Plan{
		Category:    CategoryLongterm,
		Fingerprint: LongtermFingerprint(settings, tasks),
		Enabled:     settings.Enabled,
		Tasks:       tasks,
	}
	if !settings.Enabled || len(tasks) == 0 {
		return plan
	}
	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for _, d := range DeadlineDates(now, tasks, settings.Hour, settings.Minute, settings.DeadlineOffsets, horizonDays) {
		task := byID[d.TaskID]
		plan.Triggers = append(plan.Triggers, Trigger{At: d.At, Payload: Payload{
			Category: CategoryLongterm,
			Kind:     KindDeadline,
			Title:    LongtermTitle,
			Body:     deadlineBody(task, d.Offset),
			TaskIDs:  []string{task.ID},
		}})
	}
	review := Payload{
		Category: CategoryLongterm,
		Kind:     KindReview,
		Title:    LongtermReviewTitle,
		Body:     taskListBody(tasks),
		TaskIDs:  taskIDs(tasks),
	}
	for _, at := range IntervalDates(now, settings.Hour, settings.Minute, settings.IntervalRule, horizonDays) {
		plan.Triggers = append(plan.Triggers, Trigger{At: at, Payload: review})
	}
	return plan
}
