package views

import (
	"fmt"
	"strings"
)

type TaskRowData struct {
	Title      string
	Group      string
	GroupColor string
	MaxPoints  int
	Earned     *int
	Note       string
	Deadline   string
	Completed  bool
	Reminded   bool
	Template   bool
}

type TaskPanelData struct {
	Title        string
	DateKey      string
	Rows         []TaskRowData
	Cursor       int
	CurrentGroup string
	Points       int
	TodayPoints  int
}

type TemplateRowData struct {
	Title    string
	Group    string
	Plan     string
	Max      int
	Auto     bool
	AutoRule string
}

type TemplatePanelData struct {
	Rows   []TemplateRowData
	Cursor int
}

type DayScoreData struct {
	Key    string
	Points int
}

type ArchiveData struct {
	EndDate string
	Points  int
}

type HistoryPanelData struct {
	Scores      []DayScoreData
	Archives    []ArchiveData
	TableView   string
	CycleDays   int
	PeriodStart string
}

type ReminderPanelData struct {
	Enabled      bool
	Mode         string
	DateMode     string
	RepeatRule   string
	PeriodicTime string
	SingleTime   string
	Selected     []string

	LongEnabled  bool
	LongTime     string
	Offsets      []int
	IntervalRule string
	LongSelected []string

	LastSync []string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
	Commands    string
}

func RenderTaskPanel(data TaskPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s:", strings.ToLower(data.Title)))
	if data.DateKey != "" {
		b.WriteString(" " + data.DateKey)
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("points: %d | today: +%d | group: %s\n", data.Points, data.TodayPoints, data.CurrentGroup))
	if len(data.Rows) == 0 {
		b.WriteString("\n  (no tasks)")
		return b.String()
	}
	b.WriteString("\n")
	for i, row := range data.Rows {
		cursor := " "
		if i == data.Cursor {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %2d. %s %s %s", cursor, i+1, taskMark(row), GroupBadge(row.Group, row.GroupColor), row.Title))
		b.WriteString(" " + scoreLabel(row))
		if row.Deadline != "" {
			b.WriteString(" due:" + row.Deadline)
		}
		if row.Reminded {
			b.WriteString(" 🔔")
		}
		if row.Template {
			b.WriteString(muted(" tpl"))
		}
		b.WriteString("\n")
		if row.Note != "" {
			b.WriteString(muted("      "+row.Note) + "\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func taskMark(row TaskRowData) string {
	switch {
	case row.Earned != nil:
		return "[x]"
	case row.Completed:
		return "[~]"
	default:
		return "[ ]"
	}
}

func scoreLabel(row TaskRowData) string {
	if row.Earned == nil {
		return fmt.Sprintf("(%d)", row.MaxPoints)
	}
	return fmt.Sprintf("(%d/%d)", *row.Earned, row.MaxPoints)
}

func RenderTemplatePanel(data TemplatePanelData) string {
	var b strings.Builder
	b.WriteString("templates:\n")
	b.WriteString("actions: [a]auto on/off [t]cycle rule [/]template delete <n>\n")
	if len(data.Rows) == 0 {
		b.WriteString("\n  (no templates)")
		return b.String()
	}
	b.WriteString("\n")
	for i, row := range data.Rows {
		cursor := " "
		if i == data.Cursor {
			cursor = ">"
		}
		auto := "manual"
		if row.Auto {
			auto = "auto:" + row.AutoRule
		}
		b.WriteString(fmt.Sprintf("%s %2d. %s [%s] %s (%d) %s\n", cursor, i+1, row.Plan, row.Group, row.Title, row.Max, auto))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderHistoryPanel(data HistoryPanelData) string {
	var b strings.Builder
	b.WriteString("history:\n")
	b.WriteString(fmt.Sprintf("archive cycle: %d days from %s\n\n", data.CycleDays, orDash(data.PeriodStart)))

	peak := 0
	for _, s := range data.Scores {
		peak = max(peak, s.Points)
	}
	for _, s := range data.Scores {
		b.WriteString(fmt.Sprintf("%s %4d %s\n", shortKey(s.Key), s.Points, Bar(s.Points, peak, 30)))
	}
	if data.TableView != "" {
		b.WriteString("\narchives:\n")
		b.WriteString(data.TableView)
	} else if len(data.Archives) == 0 {
		b.WriteString("\narchives: (none)")
	} else {
		b.WriteString("\narchives:\n")
		for _, a := range data.Archives {
			b.WriteString(fmt.Sprintf("  %s  %d\n", a.EndDate, a.Points))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderReminderPanel(data ReminderPanelData) string {
	var b strings.Builder
	b.WriteString("reminders:\n")
	b.WriteString(fmt.Sprintf("daily: %s | mode: %s\n", onOff(data.Enabled), data.Mode))
	b.WriteString(fmt.Sprintf("  repeat: %s at %s | single: %s %s\n", data.RepeatRule, data.PeriodicTime, data.DateMode, data.SingleTime))
	b.WriteString(fmt.Sprintf("  tasks: %s\n", listOrNone(data.Selected)))
	b.WriteString(fmt.Sprintf("longterm: %s at %s | review: %s\n", onOff(data.LongEnabled), data.LongTime, data.IntervalRule))
	offsets := make([]string, 0, len(data.Offsets))
	for _, o := range data.Offsets {
		offsets = append(offsets, fmt.Sprintf("D-%d", o))
	}
	b.WriteString(fmt.Sprintf("  deadlines: %s\n", listOrNone(offsets)))
	b.WriteString(fmt.Sprintf("  tasks: %s", listOrNone(data.LongSelected)))
	if len(data.LastSync) > 0 {
		b.WriteString("\nlast sync:\n")
		for _, line := range data.LastSync {
			b.WriteString("  " + line + "\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: %s", input)
}

func RenderNotification(title, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("%s\n%s", title, body)
}

func RenderHelpPanel(data HelpPanelData) string {
	out := fmt.Sprintf("help:\nglobal:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
	if data.Commands != "" {
		out += "\n" + data.Commands
	}
	return out
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// shortKey drops the year from a date key.
func shortKey(key string) string {
	if len(key) == len("2006-01-02") {
		return key[5:]
	}
	return key
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
