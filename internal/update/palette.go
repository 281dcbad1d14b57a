package update

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/EwwwzhI/ActionPlus/internal/commands"
	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/export"
	"github.com/EwwwzhI/ActionPlus/internal/model"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed", IsError: false}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
		return m, cmd
	}
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	return m.run(cmd)
}

// run executes a parsed command against the current state.
func (m Model) run(cmd commands.Command) (Model, tea.Cmd) {
	var follow []tea.Cmd
	res, err := commands.Execute(cmd, m.handlers(&follow))
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command Failed", err.Error(), "error")
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message, IsError: false}
	return m, tea.Batch(follow...)
}

func (m *Model) handlers(follow *[]tea.Cmd) commands.Handlers {
	dispatch := func(notify bool, actions ...state.Action) {
		*follow = append(*follow, m.apply(notify, actions...))
	}
	now := m.clock.Now()

	return commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			task := model.Task{
				ID:        m.newID("task"),
				Title:     a.Title,
				GroupID:   m.CurrentGroupID,
				PlanType:  model.PlanDaily,
				Origin:    model.AdhocOrigin(),
				MaxPoints: a.Points,
				CreatedAt: now,
			}
			view := ViewToday
			switch a.Plan {
			case commands.PlanLongterm:
				task.PlanType = model.PlanLongterm
				view = ViewLongterm
			case commands.PlanTomorrow:
				task.TargetDate = m.tomorrowKey()
				view = ViewTomorrow
			default:
				task.TargetDate = m.TodayKey
			}
			if err := task.Validate(); err != nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
			}
			dispatch(false, state.AddTask{Task: task})
			m.CurrentView = view
			m.Cursors[view] = 0
			return commands.Result{Message: fmt.Sprintf("added %s task: %s", strings.ToLower(string(view)), a.Title)}, nil
		},
		Settle: func(a commands.SettleArgs) (commands.Result, error) {
			task, err := m.taskAt(a.Index)
			if err != nil {
				return commands.Result{}, err
			}
			if a.Points > task.MaxPoints {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("%s is worth at most %d points", task.Title, task.MaxPoints)}
			}
			dispatch(false, state.SetTaskEarned{TaskID: task.ID, EarnedPoints: a.Points, Note: a.Note, At: now})
			return commands.Result{Message: fmt.Sprintf("settled %s: %d/%d", task.Title, a.Points, task.MaxPoints)}, nil
		},
		Toggle: func(a commands.IndexArgs) (commands.Result, error) {
			task, err := m.taskAt(a.Index)
			if err != nil {
				return commands.Result{}, err
			}
			if task.PlanType != model.PlanLongterm {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "only longterm tasks can be marked done"}
			}
			dispatch(false, state.ToggleTask{TaskID: task.ID})
			if task.Completed {
				return commands.Result{Message: "reopened " + task.Title}, nil
			}
			return commands.Result{Message: "completed " + task.Title}, nil
		},
		Delete: func(a commands.IndexArgs) (commands.Result, error) {
			task, err := m.taskAt(a.Index)
			if err != nil {
				return commands.Result{}, err
			}
			dispatch(false, state.DeleteTask{TaskID: task.ID})
			return commands.Result{Message: "deleted " + task.Title}, nil
		},
		Deadline: func(a commands.DeadlineArgs) (commands.Result, error) {
			task, err := m.taskAt(a.Index)
			if err != nil {
				return commands.Result{}, err
			}
			if task.PlanType != model.PlanLongterm {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "deadlines apply to longterm tasks"}
			}
			dispatch(false, state.SetTaskDeadline{TaskID: task.ID, DeadlineDate: a.Date})
			if a.Date == "" {
				return commands.Result{Message: "cleared deadline of " + task.Title}, nil
			}
			return commands.Result{Message: fmt.Sprintf("%s due %s", task.Title, a.Date)}, nil
		},
		Remind: func(a commands.IndexArgs) (commands.Result, error) {
			task, err := m.taskAt(a.Index)
			if err != nil {
				return commands.Result{}, err
			}
			var on bool
			if task.PlanType == model.PlanLongterm {
				settings := m.State.LongtermNotificationSettings
				settings.TaskIDs = model.ToggleID(settings.TaskIDs, task.ID)
				on = model.ContainsID(settings.TaskIDs, task.ID)
				dispatch(true, state.SetLongtermNotificationSettings{Settings: settings})
			} else {
				settings := m.State.NotificationSettings
				settings.TaskIDs = model.ToggleID(settings.TaskIDs, task.ID)
				on = model.ContainsID(settings.TaskIDs, task.ID)
				dispatch(true, state.SetNotificationSettings{Settings: settings})
			}
			if on {
				return commands.Result{Message: "reminding about " + task.Title}, nil
			}
			return commands.Result{Message: "no longer reminding about " + task.Title}, nil
		},
		Template: func(a commands.TemplateArgs) (commands.Result, error) {
			return m.runTemplate(a, now, dispatch)
		},
		Group: func(a commands.GroupArgs) (commands.Result, error) {
			return m.runGroup(a, now, dispatch)
		},
		Archive: func(a commands.ArchiveArgs) (commands.Result, error) {
			start := m.State.ArchiveSettings.PeriodStart
			if start == "" {
				start = m.TodayKey
			}
			dispatch(false, state.SetArchiveCycle{CycleDays: a.Days, PeriodStart: start})
			return commands.Result{Message: fmt.Sprintf("archive cycle set to %d days", a.Days)}, nil
		},
		Notify: func(a commands.NotifyArgs) (commands.Result, error) {
			action, err := m.notifyAction(a)
			if err != nil {
				return commands.Result{}, err
			}
			dispatch(true, action)
			return commands.Result{Message: fmt.Sprintf("%s reminder %s updated", a.Scope, a.Field)}, nil
		},
		Export: func() (commands.Result, error) {
			return m.exportCSV()
		},
		Sync: func() (commands.Result, error) {
			if len(m.syncers) == 0 {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeHandlerMissing, Message: "reminders are not configured"}
			}
			m.Syncing = true
			*follow = append(*follow, m.syncSpinner.Tick, m.syncCmd(true, true))
			return commands.Result{Message: "reminder sync started"}, nil
		},
	}
}

func (m *Model) runTemplate(a commands.TemplateArgs, now time.Time, dispatch func(bool, ...state.Action)) (commands.Result, error) {
	if a.Op == commands.TemplateSave {
		task, err := m.taskAt(a.Index)
		if err != nil {
			return commands.Result{}, err
		}
		if m.State.HasTemplateFor(task) {
			return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: task.Title + " is already a template"}
		}
		tpl := model.TaskTemplate{
			ID:        m.newID("tpl"),
			Title:     task.Title,
			GroupID:   task.GroupID,
			PlanType:  task.PlanType,
			MaxPoints: task.MaxPoints,
			AutoRule:  model.AutoRuleDaily,
			CreatedAt: now,
		}
		dispatch(false, state.AddTemplate{Template: tpl}, state.LinkTaskToTemplate{TaskID: task.ID, TemplateID: tpl.ID})
		return commands.Result{Message: "saved template " + tpl.Title}, nil
	}

	tpl, err := m.templateAt(a.Index)
	if err != nil {
		return commands.Result{}, err
	}
	switch a.Op {
	case commands.TemplateAuto:
		if tpl.PlanType != model.PlanDaily {
			return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "only daily templates can auto-generate"}
		}
		next := state.Reduce(m.State, state.ToggleTemplateAuto{TemplateID: tpl.ID, Enabled: a.Enabled})
		actions := append([]state.Action{state.ToggleTemplateAuto{TemplateID: tpl.ID, Enabled: a.Enabled}}, m.autoGenerate(next)...)
		dispatch(false, actions...)
		if a.Enabled {
			return commands.Result{Message: fmt.Sprintf("%s now generates %s", tpl.Title, tpl.AutoRule.Label())}, nil
		}
		return commands.Result{Message: tpl.Title + " no longer generates tasks"}, nil
	case commands.TemplateRule:
		if !tpl.AutoDaily {
			return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "enable auto generation first"}
		}
		rule := model.NextAutoRule(tpl.AutoRule)
		next := state.Reduce(m.State, state.SetTemplateAutoRule{TemplateID: tpl.ID, Rule: rule})
		actions := append([]state.Action{state.SetTemplateAutoRule{TemplateID: tpl.ID, Rule: rule}}, m.autoGenerate(next)...)
		dispatch(false, actions...)
		return commands.Result{Message: fmt.Sprintf("%s rule: %s", tpl.Title, rule.Label())}, nil
	case commands.TemplateDelete:
		dispatch(false, state.DeleteTemplate{TemplateID: tpl.ID})
		return commands.Result{Message: "deleted template " + tpl.Title}, nil
	default:
		return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown template action %q", a.Op)}
	}
}

func (m *Model) runGroup(a commands.GroupArgs, now time.Time, dispatch func(bool, ...state.Action)) (commands.Result, error) {
	if a.Op == commands.GroupAdd {
		if _, exists := m.State.GroupByName(a.Name); exists {
			return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "group " + a.Name + " already exists"}
		}
		group := model.TaskGroup{ID: m.newID("group"), Name: a.Name, Color: model.ResolveColor(a.Color), CreatedAt: now}
		dispatch(false, state.AddGroup{Group: group})
		m.CurrentGroupID = group.ID
		return commands.Result{Message: "added group " + a.Name}, nil
	}

	group, err := m.groupAt(a.Index)
	if err != nil {
		return commands.Result{}, err
	}
	switch a.Op {
	case commands.GroupRename:
		if other, exists := m.State.GroupByName(a.Name); exists && other.ID != group.ID {
			return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "group " + a.Name + " already exists"}
		}
		dispatch(false, state.RenameGroup{GroupID: group.ID, Name: a.Name, Color: model.ResolveColor(a.Color)})
		return commands.Result{Message: fmt.Sprintf("renamed %s to %s", group.Name, a.Name)}, nil
	case commands.GroupDelete:
		if group.ID == model.DefaultGroupID {
			return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "the default group cannot be deleted"}
		}
		dispatch(false, state.DeleteGroup{GroupID: group.ID})
		return commands.Result{Message: "deleted group " + group.Name}, nil
	case commands.GroupUse:
		m.CurrentGroupID = group.ID
		return commands.Result{Message: "new tasks go to " + group.Name}, nil
	default:
		return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown group action %q", a.Op)}
	}
}

func (m Model) notifyAction(a commands.NotifyArgs) (state.Action, error) {
	bad := func(format string, args ...any) error {
		return &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
	}
	if a.Scope == commands.ScopeLongterm {
		s := m.State.LongtermNotificationSettings
		switch a.Field {
		case "enabled":
			s.Enabled = a.Enabled
		case "time":
			s.Hour, s.Minute = a.Hour, a.Minute
		case "interval":
			rule := model.IntervalRule(a.Value)
			if rule.Normalize() != rule {
				return nil, bad("unknown review interval %q", a.Value)
			}
			s.IntervalRule = rule
		case "offsets":
			for _, o := range a.Offsets {
				if !model.IsAllowedDeadlineOffset(o) {
					return nil, bad("deadline offset %d is not one of 7, 3, 1, 0", o)
				}
			}
			s.DeadlineOffsets = a.Offsets
		default:
			return nil, bad("unknown longterm setting %q", a.Field)
		}
		return state.SetLongtermNotificationSettings{Settings: s}, nil
	}

	s := m.State.NotificationSettings
	switch a.Field {
	case "enabled":
		s.Enabled = a.Enabled
	case "time":
		s.PeriodicHour, s.PeriodicMinute = a.Hour, a.Minute
	case "single":
		s.SingleHour, s.SingleMinute = a.Hour, a.Minute
	case "rule":
		rule := model.RepeatRule(a.Value)
		if rule.Normalize() != rule {
			return nil, bad("unknown repeat rule %q", a.Value)
		}
		s.RepeatRule = rule
	case "mode":
		mode := model.NotificationMode(a.Value)
		if mode.Normalize() != mode {
			return nil, bad("unknown reminder mode %q", a.Value)
		}
		s.Mode = mode
	case "date":
		d := model.DateMode(a.Value)
		if d.Normalize() != d {
			return nil, bad("unknown date mode %q", a.Value)
		}
		s.DateMode = d
	default:
		return nil, bad("unknown reminder setting %q", a.Field)
	}
	return state.SetNotificationSettings{Settings: s}, nil
}

func (m Model) exportCSV() (commands.Result, error) {
	now := m.clock.Now()
	dir := m.exportDir
	if dir == "" {
		dir = "."
	}
	var buf strings.Builder
	n, err := export.WriteCSV(&buf, m.State, datekey.StartOfDay(now), m.retentionDays)
	if errors.Is(err, export.ErrNoRecords) {
		return commands.Result{Message: export.EmptyMessage}, nil
	}
	if err != nil {
		return commands.Result{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return commands.Result{}, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, export.FileName(now))
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return commands.Result{}, fmt.Errorf("write export: %w", err)
	}
	return commands.Result{Message: fmt.Sprintf("exported %d rows to %s", n, path)}, nil
}
