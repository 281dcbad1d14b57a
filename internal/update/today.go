package update

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/EwwwzhI/ActionPlus/internal/commands"
	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/model"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

func isTaskView(v View) bool {
	return v == ViewToday || v == ViewTomorrow || v == ViewLongterm
}

func (m Model) tomorrowKey() string {
	return datekey.Shift(m.TodayKey, 1)
}

// tasksFor lists the tasks a tab shows, in display order.
func (m Model) tasksFor(v View) []model.Task {
	switch v {
	case ViewToday:
		return state.DailyTasksOn(m.State, m.TodayKey)
	case ViewTomorrow:
		return state.DailyTasksOn(m.State, m.tomorrowKey())
	case ViewLongterm:
		return state.LongtermTasks(m.State)
	default:
		return nil
	}
}

// taskAt resolves a 1-based task number in the current tab.
func (m Model) taskAt(index int) (model.Task, error) {
	if !isTaskView(m.CurrentView) {
		return model.Task{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "switch to a task tab first"}
	}
	tasks := m.tasksFor(m.CurrentView)
	if index < 1 || index > len(tasks) {
		return model.Task{}, &commands.CommandError{Code: commands.ErrCodeNotFound, Message: fmt.Sprintf("no task #%d in %s", index, m.CurrentView)}
	}
	return tasks[index-1], nil
}

func (m Model) templateAt(index int) (model.TaskTemplate, error) {
	if index < 1 || index > len(m.State.Templates) {
		return model.TaskTemplate{}, &commands.CommandError{Code: commands.ErrCodeNotFound, Message: fmt.Sprintf("no template #%d", index)}
	}
	return m.State.Templates[index-1], nil
}

func (m Model) groupAt(index int) (model.TaskGroup, error) {
	if index < 1 || index > len(m.State.Groups) {
		return model.TaskGroup{}, &commands.CommandError{Code: commands.ErrCodeNotFound, Message: fmt.Sprintf("no group #%d", index)}
	}
	return m.State.Groups[index-1], nil
}

func (m Model) listLen(v View) int {
	switch {
	case isTaskView(v):
		return len(m.tasksFor(v))
	case v == ViewTemplates:
		return len(m.State.Templates)
	default:
		return 0
	}
}

func (m *Model) clampCursors() {
	for _, v := range Views {
		n := m.listLen(v)
		c := m.Cursors[v]
		if c >= n {
			c = n - 1
		}
		if c < 0 {
			c = 0
		}
		m.Cursors[v] = c
	}
}

// handleListKey moves the cursor and turns single-key shortcuts into
// palette commands on the selected row.
func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	n := m.listLen(m.CurrentView)
	cursor := m.Cursors[m.CurrentView]
	switch msg.String() {
	case "up", "k":
		if cursor > 0 {
			m.Cursors[m.CurrentView] = cursor - 1
		}
		return m, nil
	case "down", "j":
		if cursor < n-1 {
			m.Cursors[m.CurrentView] = cursor + 1
		}
		return m, nil
	}
	if n == 0 {
		return m, nil
	}
	index := cursor + 1

	if m.CurrentView == ViewTemplates {
		switch msg.String() {
		case "a":
			tpl := m.State.Templates[cursor]
			return m.run(commands.Command{Type: commands.TypeTemplate, Template: &commands.TemplateArgs{Op: commands.TemplateAuto, Index: index, Enabled: !tpl.AutoDaily}})
		case "t":
			return m.run(commands.Command{Type: commands.TypeTemplate, Template: &commands.TemplateArgs{Op: commands.TemplateRule, Index: index}})
		}
		return m, nil
	}
	if !isTaskView(m.CurrentView) {
		return m, nil
	}

	task := m.tasksFor(m.CurrentView)[cursor]
	switch msg.String() {
	case "f":
		return m.run(commands.Command{Type: commands.TypeSettle, Settle: &commands.SettleArgs{Index: index, Points: task.MaxPoints}})
	case "x", "enter":
		if task.PlanType == model.PlanLongterm {
			return m.run(commands.Command{Type: commands.TypeToggle, Index: &commands.IndexArgs{Index: index}})
		}
	case "r":
		return m.run(commands.Command{Type: commands.TypeRemind, Index: &commands.IndexArgs{Index: index}})
	case "s":
		return m.run(commands.Command{Type: commands.TypeTemplate, Template: &commands.TemplateArgs{Op: commands.TemplateSave, Index: index}})
	}
	return m, nil
}
