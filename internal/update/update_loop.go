package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/EwwwzhI/ActionPlus/internal/commands"
	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/model"
	"github.com/EwwwzhI/ActionPlus/internal/reminders"
	"github.com/EwwwzhI/ActionPlus/internal/views"
)

// Init runs day maintenance for the current day, then waits for reminders
// and day changes.
func (m Model) Init() tea.Cmd {
	now := m.clock.Now()
	return tea.Batch(
		func() tea.Msg { return DayRolloverMsg{At: now} },
		waitForReminderCmd(m.source),
		dayTickCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if typed.String() == "ctrl+c" {
			m.Quitting = true
			return m, tea.Quit
		}
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		return m.handleKey(typed)
	case spinner.TickMsg:
		if m.Syncing {
			var cmd tea.Cmd
			m.syncSpinner, cmd = m.syncSpinner.Update(typed)
			return m, cmd
		}
	case DispatchMsg:
		if typed.Action == nil {
			return m, nil
		}
		return m, m.apply(false, typed.Action)
	case SwitchViewMsg:
		for _, v := range Views {
			if v == typed.View {
				m.CurrentView = v
			}
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	case SyncResultMsg:
		return m.onSyncResult(typed), nil
	case DayRolloverMsg:
		at := typed.At
		if at.IsZero() {
			at = m.clock.Now()
		}
		return m, m.rollover(at)
	case dayTickMsg:
		now := m.clock.Now()
		if datekey.Format(now) != m.TodayKey {
			return m, tea.Batch(func() tea.Msg { return DayRolloverMsg{At: now} }, dayTickCmd())
		}
		return m, dayTickCmd()
	case ReminderFiredMsg:
		m.onReminderFired(typed.Event)
		return m, tea.Batch(m.deliveredCmd(typed.Event), waitForReminderCmd(m.source))
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()
	if len(keyStr) == 1 && keyStr[0] >= '1' && int(keyStr[0]-'1') < len(Views) {
		m.CurrentView = Views[keyStr[0]-'1']
		return m, nil
	}
	switch keyStr {
	case m.Keys.Palette:
		m.Palette.Active = true
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		m.Status = StatusBar{Text: "command palette active", IsError: false}
		return m, nil
	case m.Keys.NextTab:
		m.CurrentView = nextView(m.CurrentView)
		return m, nil
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case m.Keys.Group:
		m.CurrentGroupID = m.nextGroupID()
		m.Status = StatusBar{Text: "new tasks go to " + m.State.GroupName(m.CurrentGroupID), IsError: false}
		return m, nil
	case m.Keys.Sync:
		return m.run(commands.Command{Type: commands.TypeSync})
	case m.Keys.Export:
		return m.run(commands.Command{Type: commands.TypeExport})
	case "ctrl+c", m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	}
	return m.handleListKey(msg)
}

func (m Model) nextGroupID() string {
	groups := m.State.Groups
	for i, g := range groups {
		if g.ID == m.CurrentGroupID {
			return groups[(i+1)%len(groups)].ID
		}
	}
	return model.DefaultGroupID
}

func (m Model) onSyncResult(msg SyncResultMsg) Model {
	m.Syncing = false
	if msg.Err != nil {
		m.logger.Warn("reminder sync interrupted", "err", msg.Err)
		m.Status = StatusBar{Text: "reminder sync interrupted: " + msg.Err.Error(), IsError: true}
	}
	var messages []string
	for _, out := range msg.Outcomes {
		if out.Kind == reminders.OutcomeSuperseded {
			continue
		}
		m.LastSync[out.Category] = out
		if out.Message != "" {
			messages = append(messages, out.Message)
		}
	}
	if len(messages) > 0 {
		m.Status = StatusBar{Text: strings.Join(messages, "; "), IsError: false}
	}
	return m
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewToday, ViewTomorrow, ViewLongterm:
		leftPane = m.renderTaskView()
		rightPane = m.renderReminderView()
	case ViewTemplates:
		leftPane = m.renderTemplateView()
	case ViewHistory:
		leftPane = m.renderHistoryView()
	}
	extra := strings.TrimSpace(strings.Join([]string{m.renderCommandPalette(), m.renderHelpIfVisible()}, "\n"))
	if extra != "" {
		rightPane = strings.TrimSpace(rightPane + "\n\n" + extra)
	}

	notificationView := m.renderNotificationsView()
	if m.Syncing {
		notificationView = strings.TrimSpace(notificationView + "\nsync: " + m.syncSpinner.View() + " running")
	}

	return views.RenderApp(views.AppData{
		Header:        fmt.Sprintf("ActionPlus | %s | points: %d", m.TodayKey, m.State.Points),
		Tabs:          views.RenderTabs(viewNames(), string(m.CurrentView)),
		LeftPane:      leftPane,
		RightPane:     rightPane,
		StatusLine:    status,
		StatusIsError: m.Status.IsError,
		Notification:  notificationView,
		Footer: fmt.Sprintf("keys: 1-5 tabs | %s cmd | %s group | %s sync | %s export | %s help | %s quit",
			m.Keys.Palette, m.Keys.Group, m.Keys.Sync, m.Keys.Export, m.Keys.Help, m.Keys.Quit),
	})
}
