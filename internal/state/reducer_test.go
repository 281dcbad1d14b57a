package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EwwwzhI/ActionPlus/internal/model"
)

var testNow = time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func dailyTask(id, target string, maxPoints int) model.Task {
	return model.Task{
		ID:         id,
		Title:      "task " + id,
		GroupID:    model.DefaultGroupID,
		PlanType:   model.PlanDaily,
		Origin:     model.AdhocOrigin(),
		MaxPoints:  maxPoints,
		TargetDate: target,
		CreatedAt:  testNow,
	}
}

func longtermTask(id string, maxPoints int) model.Task {
	return model.Task{
		ID:        id,
		Title:     "project " + id,
		GroupID:   model.DefaultGroupID,
		PlanType:  model.PlanLongterm,
		Origin:    model.AdhocOrigin(),
		MaxPoints: maxPoints,
		CreatedAt: testNow,
	}
}

func withTasks(tasks ...model.Task) State {
	s := Initial()
	s.Tasks = tasks
	return s
}

func TestSettlementScenario(t *testing.T) {
	s := withTasks(dailyTask("t1", "2024-01-08", 10))
	s.Points = 5

	s = Reduce(s, SetTaskEarned{TaskID: "t1", EarnedPoints: 7, At: testNow})
	task, _ := s.Task("t1")
	require.NotNil(t, task.EarnedPoints)
	assert.Equal(t, 7, *task.EarnedPoints)
	assert.Equal(t, 12, s.Points)

	s = Reduce(s, SetTaskEarned{TaskID: "t1", EarnedPoints: 3, At: testNow})
	task, _ = s.Task("t1")
	assert.Equal(t, 3, *task.EarnedPoints)
	assert.Equal(t, 8, s.Points)
	require.NotNil(t, task.SettledAt)
	assert.True(t, task.SettledAt.Equal(testNow))
}

func TestSetTaskEarnedClamps(t *testing.T) {
	s := withTasks(dailyTask("t1", "2024-01-08", 10))

	s = Reduce(s, SetTaskEarned{TaskID: "t1", EarnedPoints: -5})
	task, _ := s.Task("t1")
	assert.Equal(t, 0, *task.EarnedPoints)
	assert.Equal(t, 0, s.Points)

	s = Reduce(s, SetTaskEarned{TaskID: "t1", EarnedPoints: 110})
	task, _ = s.Task("t1")
	assert.Equal(t, 10, *task.EarnedPoints)
	assert.Equal(t, 10, s.Points)
}

func TestPointConservation(t *testing.T) {
	s := withTasks(dailyTask("a", "2024-01-08", 10), dailyTask("b", "2024-01-08", 4), longtermTask("c", 50))
	steps := []SetTaskEarned{
		{TaskID: "a", EarnedPoints: 6},
		{TaskID: "b", EarnedPoints: 9},
		{TaskID: "c", EarnedPoints: 20},
		{TaskID: "a", EarnedPoints: 2},
		{TaskID: "c", EarnedPoints: 45},
		{TaskID: "b", EarnedPoints: -1},
	}
	for _, step := range steps {
		s = Reduce(s, step)
		require.GreaterOrEqual(t, s.Points, 0)
	}
	sum := 0
	for _, task := range s.Tasks {
		sum += task.Earned()
	}
	assert.Equal(t, sum, s.Points)
	assert.Equal(t, 47, s.Points)
}

func TestSetTaskEarnedNoteHandling(t *testing.T) {
	s := withTasks(dailyTask("t1", "2024-01-08", 10))
	s = Reduce(s, SetTaskEarned{TaskID: "t1", EarnedPoints: 1, Note: ptr("  good run ")})
	task, _ := s.Task("t1")
	assert.Equal(t, "good run", task.Note)

	s = Reduce(s, SetTaskEarned{TaskID: "t1", EarnedPoints: 2})
	task, _ = s.Task("t1")
	assert.Equal(t, "good run", task.Note, "nil note keeps the previous one")

	s = Reduce(s, SetTaskEarned{TaskID: "t1", EarnedPoints: 2, Note: ptr("   ")})
	task, _ = s.Task("t1")
	assert.Empty(t, task.Note)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := withTasks(dailyTask("t1", "2024-01-08", 10), longtermTask("t2", 5))
	before.NotificationSettings.TaskIDs = []string{"t1", "t2"}
	snapshot := before.Clone()

	_ = Reduce(before, SetTaskEarned{TaskID: "t1", EarnedPoints: 4})
	_ = Reduce(before, DeleteTask{TaskID: "t2"})
	_ = Reduce(before, ToggleTask{TaskID: "t2"})
	_ = Reduce(before, AddTask{Task: dailyTask("t3", "2024-01-09", 1)})

	assert.Equal(t, snapshot, before)
}

func TestUnknownActionIsNoop(t *testing.T) {
	type bogus struct{ Action }
	s := withTasks(dailyTask("t1", "2024-01-08", 10))
	assert.Equal(t, s, Reduce(s, bogus{}))
	assert.Equal(t, s, Reduce(s, nil))
}

func TestGroupLifecycle(t *testing.T) {
	s := Initial()
	s = Reduce(s, AddGroup{Group: model.TaskGroup{ID: "g1", Name: "  学习 ", CreatedAt: testNow}})
	require.Len(t, s.Groups, 2)
	assert.Equal(t, "学习", s.Groups[1].Name)
	assert.Equal(t, model.DefaultGroupColor, s.Groups[1].Color)

	assert.Len(t, Reduce(s, AddGroup{Group: model.TaskGroup{ID: "g2", Name: "学习"}}).Groups, 2, "duplicate name")
	assert.Len(t, Reduce(s, AddGroup{Group: model.TaskGroup{ID: "g2", Name: "  "}}).Groups, 2, "blank name")

	renamed := Reduce(s, RenameGroup{GroupID: "g1", Name: "默认"})
	assert.Equal(t, s, renamed, "rename onto another group's name is rejected")

	renamed = Reduce(s, RenameGroup{GroupID: "g1", Name: "运动", Color: "#16A34A"})
	g, _ := renamed.Group("g1")
	assert.Equal(t, "运动", g.Name)
	assert.Equal(t, "#16A34A", g.Color)
}

func TestDeleteGroupReassigns(t *testing.T) {
	s := Initial()
	s = Reduce(s, AddGroup{Group: model.TaskGroup{ID: "g1", Name: "学习"}})
	for i, id := range []string{"a", "b", "c"} {
		task := dailyTask(id, "2024-01-08", i+1)
		task.GroupID = "g1"
		s = Reduce(s, AddTask{Task: task})
	}
	s = Reduce(s, AddTemplate{Template: model.TaskTemplate{ID: "tpl1", Title: "x", GroupID: "g1", PlanType: model.PlanDaily, MaxPoints: 3}})
	s = Reduce(s, AddTemplate{Template: model.TaskTemplate{ID: "tpl2", Title: "y", GroupID: "g1", PlanType: model.PlanDaily, MaxPoints: 3}})

	s = Reduce(s, DeleteGroup{GroupID: "g1"})
	_, exists := s.Group("g1")
	assert.False(t, exists)
	for _, task := range s.Tasks {
		assert.Equal(t, model.DefaultGroupID, task.GroupID)
	}
	for _, tpl := range s.Templates {
		assert.Equal(t, model.DefaultGroupID, tpl.GroupID)
	}

	assert.Equal(t, s, Reduce(s, DeleteGroup{GroupID: model.DefaultGroupID}))
}

func TestDeleteGroupKeepsOneGroup(t *testing.T) {
	s := Initial()
	s.Groups = []model.TaskGroup{{ID: "only", Name: "唯一"}}
	s = Reduce(s, DeleteGroup{GroupID: "only"})
	require.Len(t, s.Groups, 1)
	assert.Equal(t, model.DefaultGroupID, s.Groups[0].ID)
}

func TestArchiveCycleAndRollover(t *testing.T) {
	s := Initial()
	assert.Equal(t, s, Reduce(s, SetArchiveCycle{CycleDays: 7, PeriodStart: "  "}))

	s = Reduce(s, SetArchiveCycle{CycleDays: 0, PeriodStart: "2024-01-01"})
	assert.Equal(t, model.ArchiveSettings{CycleDays: 1, PeriodStart: "2024-01-01"}, s.ArchiveSettings)

	s.ArchiveSettings.CycleDays = 7
	s.Points = 50
	s = Reduce(s, AutoArchive{CycleDays: 7, NextStart: "2024-01-08", EndDate: "2024-01-07", At: testNow})
	require.Len(t, s.Archives, 1)
	assert.Equal(t, 50, s.Archives[0].TotalPoints)
	assert.Equal(t, "2024-01-07", s.Archives[0].EndDate)
	assert.Equal(t, "arch_2024-01-07", s.Archives[0].ID)
	assert.Equal(t, 0, s.Points)
	assert.Equal(t, "2024-01-08", s.ArchiveSettings.PeriodStart)

	s = Reduce(s, AutoArchive{CycleDays: 7, NextStart: "2024-01-15", EndDate: "2024-01-14"})
	assert.Len(t, s.Archives, 1, "zero points only advance the cycle")
	assert.Equal(t, "2024-01-15", s.ArchiveSettings.PeriodStart)

	assert.Equal(t, s, Reduce(s, AutoArchive{CycleDays: 7, NextStart: ""}))
}

func TestEvaluateArchiveScenario(t *testing.T) {
	s := Initial()
	s.ArchiveSettings = model.ArchiveSettings{CycleDays: 7, PeriodStart: "2024-01-01"}
	s.Points = 50

	a, ok := EvaluateArchive(s, testNow, nil)
	require.True(t, ok)
	archive, isArchive := a.(AutoArchive)
	require.True(t, isArchive)
	assert.Equal(t, "2024-01-08", archive.NextStart)
	assert.Equal(t, "2024-01-07", archive.EndDate)

	s = Reduce(s, a)
	assert.Equal(t, 0, s.Points)
	assert.Equal(t, 50, s.Archives[0].TotalPoints)

	_, ok = EvaluateArchive(s, testNow, nil)
	assert.False(t, ok, "a fresh cycle is not due")
}

func TestEvaluateArchiveRepairsPeriodStart(t *testing.T) {
	s := Initial()
	a, ok := EvaluateArchive(s, testNow, nil)
	require.True(t, ok)
	assert.Equal(t, SetArchiveCycle{CycleDays: 30, PeriodStart: "2024-01-08"}, a)

	s.ArchiveSettings.PeriodStart = "2024-13-40"
	a, ok = EvaluateArchive(s, testNow, nil)
	require.True(t, ok)
	assert.Equal(t, "2024-01-08", a.(SetArchiveCycle).PeriodStart)
}

func TestNotificationSettingsActionsNormalize(t *testing.T) {
	s := Initial()
	s = Reduce(s, SetNotificationSettings{Settings: model.NotificationSettings{
		Enabled: true, PeriodicHour: 30, PeriodicMinute: 61, TaskIDs: []string{"a", "a", ""}, RepeatRule: "weekday",
	}})
	assert.Equal(t, 23, s.NotificationSettings.PeriodicHour)
	assert.Equal(t, 59, s.NotificationSettings.PeriodicMinute)
	assert.Equal(t, []string{"a"}, s.NotificationSettings.TaskIDs)
	assert.Equal(t, model.RepeatWeekday, s.NotificationSettings.RepeatRule)

	s = Reduce(s, SetLongtermNotificationSettings{Settings: model.LongtermNotificationSettings{
		Enabled: true, Hour: -3, DeadlineOffsets: []int{1, 2, 7}, IntervalRule: "every14Days",
	}})
	assert.Equal(t, 0, s.LongtermNotificationSettings.Hour)
	assert.Equal(t, []int{7, 1}, s.LongtermNotificationSettings.DeadlineOffsets)
	assert.Equal(t, model.IntervalEvery14Days, s.LongtermNotificationSettings.IntervalRule)
}

func TestToggleTaskOnlyLongterm(t *testing.T) {
	s := withTasks(dailyTask("d", "2024-01-08", 1), longtermTask("l", 5))
	s = Reduce(s, ToggleTask{TaskID: "d"})
	s = Reduce(s, ToggleTask{TaskID: "l"})
	d, _ := s.Task("d")
	l, _ := s.Task("l")
	assert.False(t, d.Completed)
	assert.True(t, l.Completed)
}

func TestSetTaskDeadline(t *testing.T) {
	s := withTasks(dailyTask("d", "2024-01-08", 1), longtermTask("l", 5))
	s = Reduce(s, SetTaskDeadline{TaskID: "d", DeadlineDate: "2024-02-01"})
	s = Reduce(s, SetTaskDeadline{TaskID: "l", DeadlineDate: " 2024-02-01 "})
	d, _ := s.Task("d")
	l, _ := s.Task("l")
	assert.Empty(t, d.DeadlineDate)
	assert.Equal(t, "2024-02-01", l.DeadlineDate)

	s = Reduce(s, SetTaskDeadline{TaskID: "l"})
	l, _ = s.Task("l")
	assert.Empty(t, l.DeadlineDate)
}

func TestTemplateLifecycle(t *testing.T) {
	tpl := model.TaskTemplate{ID: "tpl1", Title: "背单词", GroupID: model.DefaultGroupID, PlanType: model.PlanDaily, MaxPoints: 5}
	s := Initial()
	s = Reduce(s, AddTemplate{Template: tpl})
	dup := tpl
	dup.ID = "tpl2"
	s = Reduce(s, AddTemplate{Template: dup})
	require.Len(t, s.Templates, 1)

	s = Reduce(s, SetTemplateAutoRule{TemplateID: "tpl1", Rule: model.AutoRuleWeekend})
	got, _ := s.Template("tpl1")
	assert.Empty(t, got.AutoRule, "rule needs auto enabled")

	s = Reduce(s, ToggleTemplateAuto{TemplateID: "tpl1", Enabled: true})
	got, _ = s.Template("tpl1")
	assert.True(t, got.AutoDaily)
	assert.Equal(t, model.AutoRuleDaily, got.AutoRule)

	s = Reduce(s, SetTemplateAutoRule{TemplateID: "tpl1", Rule: model.AutoRuleWeekend})
	got, _ = s.Template("tpl1")
	assert.Equal(t, model.AutoRuleWeekend, got.AutoRule)

	task := dailyTask("t1", "2024-01-08", 5)
	task.Origin = model.FromTemplate("tpl1")
	s = Reduce(s, AddTask{Task: task})
	s = Reduce(s, ToggleTemplateAuto{TemplateID: "tpl1", Enabled: false})
	linked, _ := s.Task("t1")
	_, ok := linked.SourceTemplateID()
	assert.False(t, ok, "disabling auto severs generated tasks")

	s = Reduce(s, LinkTaskToTemplate{TaskID: "t1", TemplateID: "tpl1"})
	linked, _ = s.Task("t1")
	id, ok := linked.SourceTemplateID()
	require.True(t, ok)
	assert.Equal(t, "tpl1", id)

	s = Reduce(s, DeleteTemplate{TemplateID: "tpl1"})
	assert.Empty(t, s.Templates)
	linked, _ = s.Task("t1")
	_, ok = linked.SourceTemplateID()
	assert.False(t, ok)
}

func TestLongtermTemplateIgnoresAutoToggle(t *testing.T) {
	s := Initial()
	s = Reduce(s, AddTemplate{Template: model.TaskTemplate{ID: "tpl", Title: "论文", PlanType: model.PlanLongterm, MaxPoints: 50}})
	s = Reduce(s, ToggleTemplateAuto{TemplateID: "tpl", Enabled: true})
	got, _ := s.Template("tpl")
	assert.False(t, got.AutoDaily)
}

func TestDeleteTaskReversesPoints(t *testing.T) {
	settled := dailyTask("a", "2024-01-08", 10)
	settled.EarnedPoints = ptr(6)
	completed := longtermTask("b", 20)
	completed.Completed = true
	s := withTasks(settled, completed, dailyTask("c", "2024-01-08", 3))
	s.Points = 30
	s.NotificationSettings.TaskIDs = []string{"a", "c"}
	s.LongtermNotificationSettings.TaskIDs = []string{"b"}

	s = Reduce(s, DeleteTask{TaskID: "a"})
	assert.Equal(t, 24, s.Points)
	assert.Equal(t, []string{"c"}, s.NotificationSettings.TaskIDs)

	s = Reduce(s, DeleteTask{TaskID: "b"})
	assert.Equal(t, 4, s.Points, "completed unsettled task reverses max points")
	assert.Empty(t, s.LongtermNotificationSettings.TaskIDs)

	s = Reduce(s, DeleteTask{TaskID: "c"})
	assert.Equal(t, 4, s.Points)
	assert.Empty(t, s.Tasks)

	s.Points = 1
	big := dailyTask("d", "2024-01-08", 10)
	big.EarnedPoints = ptr(10)
	s.Tasks = []model.Task{big}
	s = Reduce(s, DeleteTask{TaskID: "d"})
	assert.Equal(t, 0, s.Points, "points never go negative")
}

func TestDeleteMissingTaskPrunesSelections(t *testing.T) {
	s := withTasks(dailyTask("keep", "2024-01-08", 5))
	s.Points = 7
	s.NotificationSettings.TaskIDs = []string{"gone", "keep"}
	s.LongtermNotificationSettings.TaskIDs = []string{"gone"}

	s = Reduce(s, DeleteTask{TaskID: "gone"})
	assert.Equal(t, []string{"keep"}, s.NotificationSettings.TaskIDs)
	assert.Empty(t, s.LongtermNotificationSettings.TaskIDs)
	assert.Equal(t, 7, s.Points)
	assert.Len(t, s.Tasks, 1)
}

func TestRetentionCleanupScenario(t *testing.T) {
	old := dailyTask("old", "2022-12-30", 5)
	old.EarnedPoints = ptr(3)
	old.SettledAt = ptr(time.Date(2023, 1, 1, 12, 0, 0, 0, time.Local))
	recent := dailyTask("recent", "2023-09-30", 5)
	recent.EarnedPoints = ptr(3)
	recent.SettledAt = ptr(time.Date(2023, 10, 1, 12, 0, 0, 0, time.Local))
	pending := dailyTask("pending", "2020-01-01", 5)
	byTarget := dailyTask("target", "2023-08-01", 5)
	byTarget.EarnedPoints = ptr(1)
	undated := longtermTask("undated", 5)
	undated.EarnedPoints = ptr(2)

	s := withTasks(old, recent, pending, byTarget, undated)
	s = Reduce(s, CleanupOldRecords{CutoffDate: "2023-09-01"})

	ids := make([]string, 0, len(s.Tasks))
	for _, task := range s.Tasks {
		ids = append(ids, task.ID)
	}
	assert.ElementsMatch(t, []string{"recent", "pending", "undated"}, ids)
	assert.Equal(t, s, Reduce(s, CleanupOldRecords{CutoffDate: ""}))
}

func TestRetentionCutoff(t *testing.T) {
	assert.Equal(t, "2023-09-12", RetentionCutoff(time.Date(2024, 1, 9, 8, 0, 0, 0, time.UTC), 120))
	assert.Equal(t, RetentionCutoff(testNow, DefaultRetentionDays), RetentionCutoff(testNow, 0))
}
