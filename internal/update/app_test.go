package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/EwwwzhI/ActionPlus/internal/clock"
	"github.com/EwwwzhI/ActionPlus/internal/commands"
	"github.com/EwwwzhI/ActionPlus/internal/export"
	"github.com/EwwwzhI/ActionPlus/internal/model"
	"github.com/EwwwzhI/ActionPlus/internal/reminders"
	"github.com/EwwwzhI/ActionPlus/internal/scheduler"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

// Friday.
var testNow = time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)

type recordingSaver struct {
	mu    sync.Mutex
	saved []state.State
}

func (r *recordingSaver) Save(_ context.Context, st state.State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, st)
	return true
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

type recordingNotifier struct {
	sent []Notification
}

func (r *recordingNotifier) Send(n Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

type closedSource struct {
	delivered []string
}

func (s *closedSource) C() <-chan scheduler.ReminderEvent {
	ch := make(chan scheduler.ReminderEvent)
	close(ch)
	return ch
}

func (s *closedSource) Delivered(_ context.Context, ev scheduler.ReminderEvent) error {
	s.delivered = append(s.delivered, ev.ID)
	return nil
}

func sequentialIDs() func(string) string {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	}
}

func newTestModel(initial state.State, deps Deps) Model {
	if deps.Clock == nil {
		deps.Clock = clock.Fixed{T: testNow}
	}
	if deps.NewID == nil {
		deps.NewID = sequentialIDs()
	}
	return NewModel(initial, deps)
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var updated tea.Model
		updated, cmd = m.Update(msg)
		m = updated.(Model)
	}
	return m, cmd
}

func runCommand(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	return press(t, m, "/", line, "enter")
}

// drain runs cmd and every command batched inside it, returning the
// messages they produce.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	if m.CurrentView != ViewToday {
		t.Fatalf("expected default view %q, got %q", ViewToday, m.CurrentView)
	}
	if m.TodayKey != "2024-01-12" {
		t.Fatalf("expected today key from clock, got %q", m.TodayKey)
	}
	if m.CurrentGroupID != model.DefaultGroupID {
		t.Fatalf("expected default group, got %q", m.CurrentGroupID)
	}
	if m.Keys.Quit != "q" {
		t.Fatalf("expected quit key q, got %q", m.Keys.Quit)
	}
}

func TestNumberKeysSwitchTabs(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, _ = press(t, m, "3")
	if m.CurrentView != ViewLongterm {
		t.Fatalf("expected longterm view, got %q", m.CurrentView)
	}
	m, _ = press(t, m, "tab")
	if m.CurrentView != ViewTemplates {
		t.Fatalf("expected templates view after tab, got %q", m.CurrentView)
	}

	updated, _ := m.Update(SwitchViewMsg{View: View("Unknown")})
	m = updated.(Model)
	if m.CurrentView != ViewTemplates {
		t.Fatalf("expected view unchanged for unknown view, got %q", m.CurrentView)
	}
	updated, _ = m.Update(SwitchViewMsg{View: ViewHistory})
	if updated.(Model).CurrentView != ViewHistory {
		t.Fatalf("expected history view")
	}
}

func TestUpdateQuitKey(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, cmd := press(t, m, "q")
	if !m.Quitting || cmd == nil {
		t.Fatalf("expected quit command")
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	updated, _ := m.Update(SetStatusMsg{Text: "ready"})
	m = updated.(Model)
	if m.Status.Text != "ready" || m.Status.IsError {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	updated, _ = m.Update(AppErrorMsg{Err: errors.New("boom")})
	m = updated.(Model)
	if m.LastError == nil || !m.Status.IsError || m.Status.Text != "boom" {
		t.Fatalf("unexpected error status: %+v", m.Status)
	}
	updated, _ = m.Update(ClearStatusMsg{})
	if updated.(Model).Status.Text != "" {
		t.Fatalf("expected cleared status")
	}
}

func TestPaletteAddDailyTaskPersists(t *testing.T) {
	saver := &recordingSaver{}
	m := newTestModel(state.Initial(), Deps{Store: saver})

	m, cmd := runCommand(t, m, "add daily 5 读书")
	if m.Palette.Active {
		t.Fatalf("palette should close after enter")
	}
	if m.Status.IsError {
		t.Fatalf("unexpected error: %s", m.Status.Text)
	}
	if len(m.State.Tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(m.State.Tasks))
	}
	task := m.State.Tasks[0]
	if task.ID != "task_1" || task.TargetDate != "2024-01-12" || task.GroupID != model.DefaultGroupID || task.MaxPoints != 5 {
		t.Fatalf("unexpected task: %+v", task)
	}
	drain(cmd)
	if saver.count() != 1 {
		t.Fatalf("expected one save, got %d", saver.count())
	}
}

func TestPaletteAddTomorrowAndLongterm(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, _ = runCommand(t, m, "add tomorrow 3 早起")
	if m.CurrentView != ViewTomorrow || m.State.Tasks[0].TargetDate != "2024-01-13" {
		t.Fatalf("expected tomorrow task, got view %q task %+v", m.CurrentView, m.State.Tasks[0])
	}
	m, _ = runCommand(t, m, "add longterm 20 写论文")
	if m.CurrentView != ViewLongterm || m.State.Tasks[0].PlanType != model.PlanLongterm || m.State.Tasks[0].TargetDate != "" {
		t.Fatalf("expected longterm task, got %+v", m.State.Tasks[0])
	}
}

func TestPaletteParseErrorShowsStatus(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, cmd := runCommand(t, m, "launch rockets")
	if cmd != nil || !m.Status.IsError || !strings.Contains(m.Status.Text, string(commands.ErrCodeUnknownCommand)) {
		t.Fatalf("expected unknown command error, got %+v", m.Status)
	}
}

func TestSettleShortcutAwardsFullPoints(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, _ = runCommand(t, m, "add daily 5 读书")
	m, _ = press(t, m, "f")
	task := m.State.Tasks[0]
	if task.Earned() != 5 || m.State.Points != 5 {
		t.Fatalf("expected full settlement, got earned %d points %d", task.Earned(), m.State.Points)
	}
	if task.SettledAt == nil || !task.SettledAt.Equal(testNow) {
		t.Fatalf("expected settlement stamped with clock, got %v", task.SettledAt)
	}

	m, _ = runCommand(t, m, "settle 1 2 状态一般")
	if m.State.Points != 2 || m.State.Tasks[0].Note != "状态一般" {
		t.Fatalf("expected resettlement to adjust points, got %d %+v", m.State.Points, m.State.Tasks[0])
	}
}

func TestSettleRejectsUnknownTaskAndOverMax(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, _ = runCommand(t, m, "add daily 5 读书")

	m, _ = runCommand(t, m, "settle 3 1")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, string(commands.ErrCodeNotFound)) {
		t.Fatalf("expected not found, got %+v", m.Status)
	}
	m, _ = runCommand(t, m, "settle 1 9")
	if !m.Status.IsError || m.State.Tasks[0].IsSettled() {
		t.Fatalf("expected over-max settlement to be rejected, got %+v", m.Status)
	}

	m, _ = press(t, m, "4")
	m, _ = runCommand(t, m, "settle 1 1")
	if !m.Status.IsError {
		t.Fatalf("expected task command outside a task tab to fail")
	}
}

func TestRemindShortcutTogglesSelection(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, _ = runCommand(t, m, "add daily 5 读书")
	m, _ = press(t, m, "r")
	if ids := m.State.NotificationSettings.TaskIDs; len(ids) != 1 || ids[0] != "task_1" {
		t.Fatalf("expected task to be selected for reminders, got %v", ids)
	}
	m, _ = press(t, m, "r")
	if ids := m.State.NotificationSettings.TaskIDs; len(ids) != 0 {
		t.Fatalf("expected selection cleared, got %v", ids)
	}

	m, _ = runCommand(t, m, "add longterm 10 写论文")
	m, _ = press(t, m, "r")
	if ids := m.State.LongtermNotificationSettings.TaskIDs; len(ids) != 1 {
		t.Fatalf("expected longterm selection, got %v", ids)
	}
}

func TestTemplateSaveAndAutoGeneratesTomorrow(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, _ = runCommand(t, m, "add daily 5 读书")
	m, _ = press(t, m, "s")
	if len(m.State.Templates) != 1 {
		t.Fatalf("expected a template, got %d", len(m.State.Templates))
	}
	tplID := m.State.Templates[0].ID
	if id, ok := m.State.Tasks[0].SourceTemplateID(); !ok || id != tplID {
		t.Fatalf("expected task linked to template, got %+v", m.State.Tasks[0].Origin)
	}
	m, _ = press(t, m, "s")
	if !m.Status.IsError || len(m.State.Templates) != 1 {
		t.Fatalf("expected duplicate template to be rejected")
	}

	m, _ = press(t, m, "4", "a")
	if !m.State.Templates[0].AutoDaily {
		t.Fatalf("expected auto generation enabled")
	}
	if n := len(m.tasksFor(ViewToday)); n != 1 {
		t.Fatalf("today already has the task, got %d", n)
	}
	tomorrow := m.tasksFor(ViewTomorrow)
	if len(tomorrow) != 1 || tomorrow[0].Title != "读书" {
		t.Fatalf("expected generated task for tomorrow, got %+v", tomorrow)
	}

	m, _ = press(t, m, "t")
	if m.State.Templates[0].AutoRule != model.AutoRuleWeekday {
		t.Fatalf("expected rule to cycle to weekday, got %q", m.State.Templates[0].AutoRule)
	}
}

func TestGroupCommands(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, _ = runCommand(t, m, "group add 运动 color:green")
	if len(m.State.Groups) != 2 || m.CurrentGroupID != m.State.Groups[1].ID {
		t.Fatalf("expected new group to become current, got %+v", m.State.Groups)
	}
	if m.State.Groups[1].Color != "#16A34A" {
		t.Fatalf("expected palette color, got %q", m.State.Groups[1].Color)
	}
	m, _ = runCommand(t, m, "add daily 3 跑步")
	if m.State.Tasks[0].GroupID != m.State.Groups[1].ID {
		t.Fatalf("expected task in current group")
	}

	m, _ = runCommand(t, m, "group add 运动")
	if !m.Status.IsError {
		t.Fatalf("expected duplicate group name to be rejected")
	}
	m, _ = runCommand(t, m, "group delete 1")
	if !m.Status.IsError {
		t.Fatalf("expected default group deletion to be rejected")
	}
	m, _ = runCommand(t, m, "group delete 2")
	if len(m.State.Groups) != 1 || m.State.Tasks[0].GroupID != model.DefaultGroupID || m.CurrentGroupID != model.DefaultGroupID {
		t.Fatalf("expected tasks and selection to fall back to default group")
	}
}

func TestLongtermToggleAndDeadline(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, _ = runCommand(t, m, "add longterm 10 写论文")
	m, _ = press(t, m, "x")
	if !m.State.Tasks[0].Completed {
		t.Fatalf("expected longterm task marked done")
	}
	m, _ = runCommand(t, m, "deadline 1 2024-02-01")
	if m.State.Tasks[0].DeadlineDate != "2024-02-01" {
		t.Fatalf("expected deadline set, got %q", m.State.Tasks[0].DeadlineDate)
	}
	m, _ = runCommand(t, m, "deadline 1 clear")
	if m.State.Tasks[0].DeadlineDate != "" {
		t.Fatalf("expected deadline cleared")
	}

	m, _ = runCommand(t, m, "add daily 1 喝水")
	m, _ = runCommand(t, m, "deadline 1 2024-02-01")
	if !m.Status.IsError {
		t.Fatalf("expected deadline on daily task to be rejected")
	}
}

func TestNotifyCommandUpdatesSettings(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, _ = runCommand(t, m, "notify time 21:30")
	if s := m.State.NotificationSettings; s.PeriodicHour != 21 || s.PeriodicMinute != 30 {
		t.Fatalf("unexpected periodic time: %+v", s)
	}
	m, _ = runCommand(t, m, "notify mode follow_task")
	if m.State.NotificationSettings.Mode != model.ModeFollowTask {
		t.Fatalf("expected follow_task mode")
	}
	m, _ = runCommand(t, m, "notify long offsets 7,2")
	if !m.Status.IsError {
		t.Fatalf("expected invalid offset to be rejected")
	}
	m, _ = runCommand(t, m, "notify long on")
	if !m.State.LongtermNotificationSettings.Enabled {
		t.Fatalf("expected longterm reminders enabled")
	}
	m, _ = runCommand(t, m, "notify long offsets 1,7")
	if got := m.State.LongtermNotificationSettings.DeadlineOffsets; len(got) != 2 || got[0] != 7 {
		t.Fatalf("expected offsets sorted descending, got %v", got)
	}
}

func TestArchiveCommandKeepsPeriodStart(t *testing.T) {
	s := state.Initial()
	s.ArchiveSettings = model.ArchiveSettings{CycleDays: 30, PeriodStart: "2024-01-01"}
	m := newTestModel(s, Deps{})
	m, _ = runCommand(t, m, "archive 7")
	if got := m.State.ArchiveSettings; got.CycleDays != 7 || got.PeriodStart != "2024-01-01" {
		t.Fatalf("unexpected archive settings: %+v", got)
	}
}

func TestDayRolloverArchivesAndGenerates(t *testing.T) {
	s := state.Initial()
	s.Points = 50
	s.ArchiveSettings = model.ArchiveSettings{CycleDays: 30, PeriodStart: "2023-12-01"}
	s.Templates = []model.TaskTemplate{{ID: "tpl_a", Title: "读书", GroupID: model.DefaultGroupID, PlanType: model.PlanDaily, MaxPoints: 5, AutoDaily: true, AutoRule: model.AutoRuleDaily}}
	saver := &recordingSaver{}
	m := newTestModel(s, Deps{Store: saver})

	updated, cmd := m.Update(DayRolloverMsg{At: testNow})
	m = updated.(Model)
	if len(m.State.Archives) != 1 || m.State.Archives[0].EndDate != "2023-12-30" || m.State.Archives[0].TotalPoints != 50 {
		t.Fatalf("unexpected archives: %+v", m.State.Archives)
	}
	if m.State.Points != 0 || m.State.ArchiveSettings.PeriodStart != "2024-01-12" {
		t.Fatalf("expected new cycle, got points %d settings %+v", m.State.Points, m.State.ArchiveSettings)
	}
	if len(m.tasksFor(ViewToday)) != 1 || len(m.tasksFor(ViewTomorrow)) != 1 {
		t.Fatalf("expected generated tasks for today and tomorrow, got %+v", m.State.Tasks)
	}
	drain(cmd)
	if saver.count() != 1 {
		t.Fatalf("expected one save after rollover, got %d", saver.count())
	}

	updated, _ = m.Update(DayRolloverMsg{At: testNow})
	if n := len(updated.(Model).State.Tasks); n != 2 {
		t.Fatalf("second rollover on the same day should not add tasks, got %d", n)
	}
}

func TestSyncResultRecordsOutcome(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m.Syncing = true
	updated, _ := m.Update(SyncResultMsg{Outcomes: []reminders.SyncOutcome{
		{Category: reminders.CategoryTask, Kind: reminders.OutcomeApplied, Scheduled: 3, Message: "已安排 3 条提醒"},
		{Category: reminders.CategoryLongterm, Kind: reminders.OutcomeSuperseded},
	}})
	m = updated.(Model)
	if m.Syncing {
		t.Fatalf("expected syncing flag cleared")
	}
	if out, ok := m.LastSync[reminders.CategoryTask]; !ok || out.Scheduled != 3 {
		t.Fatalf("expected task outcome recorded, got %+v", m.LastSync)
	}
	if _, ok := m.LastSync[reminders.CategoryLongterm]; ok {
		t.Fatalf("superseded outcomes should not be recorded")
	}
	if m.Status.Text != "已安排 3 条提醒" {
		t.Fatalf("expected sync message in status, got %q", m.Status.Text)
	}
}

func TestRemindSyncsThroughLocalDelivery(t *testing.T) {
	delivery := scheduler.NewLocalDelivery(scheduler.DeliveryOptions{Location: time.UTC, Clock: clock.Fixed{T: testNow}})
	syncer := reminders.NewPeriodicSyncer(delivery, reminders.Options{Clock: clock.Fixed{T: testNow}, ShortHorizonDays: 7})
	m := newTestModel(state.Initial(), Deps{Syncers: []*reminders.Syncer{syncer}})

	m, cmd := runCommand(t, m, "add daily 5 读书")
	for _, msg := range drain(cmd) {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	m, cmd = press(t, m, "r")
	var got []reminders.SyncOutcome
	for _, msg := range drain(cmd) {
		if res, ok := msg.(SyncResultMsg); ok {
			got = append(got, res.Outcomes...)
		}
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	if len(got) != 1 || got[0].Kind != reminders.OutcomeApplied || got[0].Scheduled == 0 {
		t.Fatalf("expected applied sync, got %+v", got)
	}
	items, err := delivery.ListScheduled(context.Background(), reminders.CategoryTask)
	if err != nil {
		t.Fatalf("list scheduled: %v", err)
	}
	if len(items) != got[0].Scheduled {
		t.Fatalf("expected %d scheduled reminders, got %d", got[0].Scheduled, len(items))
	}
	if m.LastSync[reminders.CategoryTask].Kind != reminders.OutcomeApplied {
		t.Fatalf("expected model to record applied outcome")
	}
}

func TestReminderFiredUpdatesLogAndNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	src := &closedSource{}
	m := newTestModel(state.Initial(), Deps{Notifier: notifier, Reminders: src})
	m, _ = runCommand(t, m, "add daily 5 读书")

	ev := scheduler.ReminderEvent{ID: "rem_1", Title: "任务提醒", Body: "• 读书\n共 1 项", TaskIDs: []string{"task_1"}, TriggerAt: testNow}
	updated, cmd := m.Update(ReminderFiredMsg{Event: ev})
	m = updated.(Model)
	if len(m.ReminderLog) != 1 || m.ReminderLog[0].ID != "rem_1" {
		t.Fatalf("expected reminder logged, got %+v", m.ReminderLog)
	}
	if m.Status.Text != "任务提醒 (1 open)" {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Body != ev.Body {
		t.Fatalf("expected desktop notification, got %+v", notifier.sent)
	}
	drain(cmd)
	if len(src.delivered) != 1 || src.delivered[0] != "rem_1" {
		t.Fatalf("expected reminder acknowledged, got %v", src.delivered)
	}
}

func TestExportCommandWritesFile(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel(state.Initial(), Deps{ExportDir: dir})
	m, _ = runCommand(t, m, "export")
	if m.Status.Text != export.EmptyMessage {
		t.Fatalf("expected empty export message, got %q", m.Status.Text)
	}

	m, _ = runCommand(t, m, "add daily 5 读书")
	m, _ = press(t, m, "f", "E")
	if m.Status.IsError {
		t.Fatalf("export failed: %s", m.Status.Text)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "ActionPlus_2024-01-12.csv"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(raw), "\uFEFF日期,") || !strings.Contains(string(raw), "读书,5,5") {
		t.Fatalf("unexpected export:\n%s", raw)
	}
}

func TestPersisterDropsStaleSaves(t *testing.T) {
	saver := &recordingSaver{}
	p := newPersister(saver)
	first := state.Initial()
	second := state.Initial()
	second.Points = 7

	older := p.saveCmd(first)
	newer := p.saveCmd(second)
	newer()
	older()
	if saver.count() != 1 || saver.saved[0].Points != 7 {
		t.Fatalf("expected only the newer state to be written, got %+v", saver.saved)
	}
	if newPersister(nil).saveCmd(first) != nil {
		t.Fatalf("expected no command without a store")
	}
}

func TestViewRendersTabsAndTasks(t *testing.T) {
	m := newTestModel(state.Initial(), Deps{})
	m, _ = runCommand(t, m, "add daily 5 读书")
	out := m.View()
	for _, want := range []string{"ActionPlus | 2024-01-12", "1 Today", "读书", "reminders:", "status: added today task"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}

	m, _ = press(t, m, "?")
	if !m.HelpVisible || !strings.Contains(m.View(), "help:") {
		t.Fatalf("expected help panel")
	}
	m, _ = press(t, m, "5")
	if !strings.Contains(m.View(), "history:") {
		t.Fatalf("expected history panel")
	}
}
