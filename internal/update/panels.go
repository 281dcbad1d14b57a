package update

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/model"
	"github.com/EwwwzhI/ActionPlus/internal/reminders"
	"github.com/EwwwzhI/ActionPlus/internal/state"
	"github.com/EwwwzhI/ActionPlus/internal/views"
)

const historyDays = 14

// syncBubbleData copies state into the bubble components that keep their
// own rows.
func (m *Model) syncBubbleData() {
	rows := make([]table.Row, 0, len(m.State.Archives))
	for _, a := range m.State.Archives {
		rows = append(rows, table.Row{a.EndDate, strconv.Itoa(a.TotalPoints)})
	}
	m.archiveTable.SetRows(rows)
}

func (m Model) renderTaskView() string {
	tasks := m.tasksFor(m.CurrentView)
	reminded := m.State.NotificationSettings.TaskIDs
	if m.CurrentView == ViewLongterm {
		reminded = m.State.LongtermNotificationSettings.TaskIDs
	}
	rows := make([]views.TaskRowData, 0, len(tasks))
	for _, t := range tasks {
		group, _ := m.State.Group(t.GroupID)
		rows = append(rows, views.TaskRowData{
			Title:      t.Title,
			Group:      m.State.GroupName(t.GroupID),
			GroupColor: group.Color,
			MaxPoints:  t.MaxPoints,
			Earned:     t.EarnedPoints,
			Note:       t.Note,
			Deadline:   t.DeadlineDate,
			Completed:  t.Completed,
			Reminded:   model.ContainsID(reminded, t.ID),
			Template:   t.Origin.IsTemplate(),
		})
	}
	dateKey := ""
	switch m.CurrentView {
	case ViewToday:
		dateKey = m.TodayKey
	case ViewTomorrow:
		dateKey = m.tomorrowKey()
	}
	return views.RenderTaskPanel(views.TaskPanelData{
		Title:        string(m.CurrentView),
		DateKey:      dateKey,
		Rows:         rows,
		Cursor:       m.Cursors[m.CurrentView],
		CurrentGroup: m.State.GroupName(m.CurrentGroupID),
		Points:       m.State.Points,
		TodayPoints:  state.TodayPoints(m.State, m.clock.Now()),
	})
}

func (m Model) renderTemplateView() string {
	rows := make([]views.TemplateRowData, 0, len(m.State.Templates))
	for _, tpl := range m.State.Templates {
		rows = append(rows, views.TemplateRowData{
			Title:    tpl.Title,
			Group:    m.State.GroupName(tpl.GroupID),
			Plan:     tpl.PlanType.Label(),
			Max:      tpl.MaxPoints,
			Auto:     tpl.AutoDaily,
			AutoRule: tpl.AutoRule.Label(),
		})
	}
	return views.RenderTemplatePanel(views.TemplatePanelData{Rows: rows, Cursor: m.Cursors[ViewTemplates]})
}

func (m Model) renderHistoryView() string {
	today, ok := datekey.Parse(m.TodayKey)
	if !ok {
		today = m.clock.Now()
	}
	recent := state.RecentScores(m.State, today, historyDays)
	scores := make([]views.DayScoreData, 0, len(recent))
	for _, s := range recent {
		scores = append(scores, views.DayScoreData{Key: s.Key, Points: s.Points})
	}
	archives := make([]views.ArchiveData, 0, len(m.State.Archives))
	for _, a := range m.State.Archives {
		archives = append(archives, views.ArchiveData{EndDate: a.EndDate, Points: a.TotalPoints})
	}
	tableView := ""
	if len(archives) > 0 {
		tableView = m.archiveTable.View()
	}
	return views.RenderHistoryPanel(views.HistoryPanelData{
		Scores:      scores,
		Archives:    archives,
		TableView:   tableView,
		CycleDays:   m.State.ArchiveSettings.CycleDays,
		PeriodStart: m.State.ArchiveSettings.PeriodStart,
	})
}

func (m Model) renderReminderView() string {
	n := m.State.NotificationSettings
	l := m.State.LongtermNotificationSettings
	var lastSync []string
	for _, c := range []reminders.Category{reminders.CategoryTask, reminders.CategoryLongterm} {
		if out, ok := m.LastSync[c]; ok {
			lastSync = append(lastSync, syncLine(out))
		}
	}
	return views.RenderReminderPanel(views.ReminderPanelData{
		Enabled:      n.Enabled,
		Mode:         string(n.Mode),
		DateMode:     string(n.DateMode),
		RepeatRule:   string(n.RepeatRule),
		PeriodicTime: formatClock(n.PeriodicHour, n.PeriodicMinute),
		SingleTime:   formatClock(n.SingleHour, n.SingleMinute),
		Selected:     taskTitles(m.State, n.TaskIDs),
		LongEnabled:  l.Enabled,
		LongTime:     formatClock(l.Hour, l.Minute),
		Offsets:      l.DeadlineOffsets,
		IntervalRule: string(l.IntervalRule),
		LongSelected: taskTitles(m.State, l.TaskIDs),
		LastSync:     lastSync,
	})
}

func (m Model) renderCommandPalette() string {
	if !m.Palette.Active {
		return ""
	}
	return views.RenderCommandPalette(true, m.commandInput.View())
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(n.Title, n.Body)
}

func taskTitles(s state.State, ids []string) []string {
	tasks := state.TasksByID(s, ids)
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}
