package update

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/EwwwzhI/ActionPlus/internal/scheduler"
)

const (
	reminderLogSize   = 20
	notificationsSize = 40
)

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

// ExecDesktopNotifier shows reminders through the platform notification
// tool. Unsupported platforms are a no-op.
type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

func waitForReminderCmd(src ReminderSource) tea.Cmd {
	if src == nil {
		return nil
	}
	ch := src.C()
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ReminderFiredMsg{Event: ev}
	}
}

func (m Model) deliveredCmd(ev scheduler.ReminderEvent) tea.Cmd {
	if m.source == nil {
		return nil
	}
	src, logger := m.source, m.logger
	return func() tea.Msg {
		if err := src.Delivered(context.Background(), ev); err != nil {
			logger.Warn("acknowledge reminder failed", "id", ev.ID, "err", err)
		}
		return nil
	}
}

// onReminderFired shows a due reminder. The listed tasks are looked up in
// the current state so settled ones are called out.
func (m *Model) onReminderFired(ev scheduler.ReminderEvent) {
	m.ReminderLog = append(m.ReminderLog, ev)
	if len(m.ReminderLog) > reminderLogSize {
		m.ReminderLog = m.ReminderLog[len(m.ReminderLog)-reminderLogSize:]
	}
	pending := 0
	for _, id := range ev.TaskIDs {
		if t, ok := m.State.Task(id); ok && !t.IsSettled() && !t.Completed {
			pending++
		}
	}
	text := ev.Title
	if len(ev.TaskIDs) > 0 {
		text = fmt.Sprintf("%s (%d open)", ev.Title, pending)
	}
	m.Status = StatusBar{Text: text, IsError: false}
	m.notify(ev.Title, ev.Body, "reminder")
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	n := Notification{
		Title: title,
		Body:  body,
		Level: level,
		At:    m.clock.Now(),
	}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > notificationsSize {
		m.Notifications = m.Notifications[len(m.Notifications)-notificationsSize:]
	}
	if level != "reminder" || m.notifier == nil {
		return
	}
	if err := m.notifier.Send(n); err != nil {
		m.logger.Debug("desktop notification failed", "err", err)
	}
}
