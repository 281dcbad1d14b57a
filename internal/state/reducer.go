package state

import (
	"strings"

	"github.com/EwwwzhI/ActionPlus/internal/model"
)

// Reduce applies a to s and returns the next state. It never mutates s,
// never panics on bad input and returns s unchanged for unknown actions or
// rejected inputs. Numeric inputs are clamped rather than refused.
func Reduce(s State, a Action) State {
	switch typed := a.(type) {
	case LoadState:
		return typed.State
	case AddGroup:
		return addGroup(s, typed)
	case RenameGroup:
		return renameGroup(s, typed)
	case DeleteGroup:
		return deleteGroup(s, typed)
	case SetArchiveCycle:
		periodStart := strings.TrimSpace(typed.PeriodStart)
		if periodStart == "" {
			return s
		}
		s.ArchiveSettings = model.ArchiveSettings{CycleDays: atLeastOne(typed.CycleDays), PeriodStart: periodStart}
		return s
	case SetNotificationSettings:
		s.NotificationSettings = typed.Settings.Normalize()
		return s
	case SetLongtermNotificationSettings:
		s.LongtermNotificationSettings = typed.Settings.Normalize()
		return s
	case AutoArchive:
		return autoArchive(s, typed)
	case AddTask:
		s.Tasks = prepend(s.Tasks, typed.Task)
		return s
	case ToggleTask:
		return mapTask(s, typed.TaskID, func(t model.Task) model.Task {
			if t.PlanType != model.PlanLongterm {
				return t
			}
			t.Completed = !t.Completed
			return t
		})
	case SetTaskEarned:
		return setTaskEarned(s, typed)
	case SetTaskDeadline:
		return mapTask(s, typed.TaskID, func(t model.Task) model.Task {
			if t.PlanType != model.PlanLongterm {
				return t
			}
			t.DeadlineDate = strings.TrimSpace(typed.DeadlineDate)
			return t
		})
	case AddTemplate:
		key := typed.Template.Key()
		for _, tpl := range s.Templates {
			if tpl.Key() == key {
				return s
			}
		}
		s.Templates = prepend(s.Templates, typed.Template)
		return s
	case ToggleTemplateAuto:
		return toggleTemplateAuto(s, typed)
	case SetTemplateAutoRule:
		return mapTemplate(s, typed.TemplateID, func(t model.TaskTemplate) model.TaskTemplate {
			if t.PlanType != model.PlanDaily || !t.AutoDaily {
				return t
			}
			t.AutoRule = typed.Rule
			return t
		})
	case DeleteTemplate:
		templates := make([]model.TaskTemplate, 0, len(s.Templates))
		for _, tpl := range s.Templates {
			if tpl.ID != typed.TemplateID {
				templates = append(templates, tpl)
			}
		}
		s.Templates = templates
		s.Tasks = unlinkTemplate(s.Tasks, typed.TemplateID)
		return s
	case LinkTaskToTemplate:
		return mapTask(s, typed.TaskID, func(t model.Task) model.Task {
			t.Origin = model.FromTemplate(typed.TemplateID)
			return t
		})
	case DeleteTask:
		return deleteTask(s, typed)
	case CleanupOldRecords:
		return cleanupOldRecords(s, typed)
	default:
		return s
	}
}

func addGroup(s State, a AddGroup) State {
	name := strings.TrimSpace(a.Group.Name)
	if name == "" {
		return s
	}
	if _, exists := s.GroupByName(name); exists {
		return s
	}
	if _, exists := s.Group(a.Group.ID); exists || strings.TrimSpace(a.Group.ID) == "" {
		return s
	}
	group := a.Group
	group.Name = name
	group.Color = strings.TrimSpace(group.Color)
	if group.Color == "" {
		group.Color = model.DefaultGroupColor
	}
	s.Groups = append(append([]model.TaskGroup(nil), s.Groups...), group)
	return s
}

func renameGroup(s State, a RenameGroup) State {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return s
	}
	if g, exists := s.GroupByName(name); exists && g.ID != a.GroupID {
		return s
	}
	groups := make([]model.TaskGroup, len(s.Groups))
	for i, g := range s.Groups {
		if g.ID == a.GroupID {
			g.Name = name
			if color := strings.TrimSpace(a.Color); color != "" {
				g.Color = color
			}
		}
		groups[i] = g
	}
	s.Groups = groups
	return s
}

func deleteGroup(s State, a DeleteGroup) State {
	if a.GroupID == model.DefaultGroupID {
		return s
	}
	groups := make([]model.TaskGroup, 0, len(s.Groups))
	for _, g := range s.Groups {
		if g.ID != a.GroupID {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		groups = []model.TaskGroup{model.DefaultGroup()}
	}
	tasks := make([]model.Task, len(s.Tasks))
	for i, t := range s.Tasks {
		if t.GroupID == a.GroupID {
			t.GroupID = model.DefaultGroupID
		}
		tasks[i] = t
	}
	templates := make([]model.TaskTemplate, len(s.Templates))
	for i, t := range s.Templates {
		if t.GroupID == a.GroupID {
			t.GroupID = model.DefaultGroupID
		}
		templates[i] = t
	}
	s.Groups = groups
	s.Tasks = tasks
	s.Templates = templates
	return s
}

func autoArchive(s State, a AutoArchive) State {
	nextStart := strings.TrimSpace(a.NextStart)
	if nextStart == "" {
		return s
	}
	endDate := strings.TrimSpace(a.EndDate)
	settings := model.ArchiveSettings{CycleDays: atLeastOne(a.CycleDays), PeriodStart: nextStart}
	if s.Points <= 0 || endDate == "" {
		s.ArchiveSettings = settings
		return s
	}
	id := a.ArchiveID
	if id == "" {
		id = "arch_" + endDate
	}
	archive := model.ScoreArchive{ID: id, TotalPoints: s.Points, EndDate: endDate, CreatedAt: a.At}
	s.Archives = prepend(s.Archives, archive)
	s.Points = 0
	s.ArchiveSettings = settings
	return s
}

func setTaskEarned(s State, a SetTaskEarned) State {
	idx := taskIndex(s.Tasks, a.TaskID)
	if idx < 0 {
		return s
	}
	tasks := append([]model.Task(nil), s.Tasks...)
	task := tasks[idx]
	maxPoints := max(0, task.MaxPoints)
	next := min(maxPoints, max(0, a.EarnedPoints))
	delta := next - task.Earned()

	task.EarnedPoints = &next
	if a.At.IsZero() {
		task.SettledAt = nil
	} else {
		at := a.At
		task.SettledAt = &at
	}
	if a.Note != nil {
		task.Note = strings.TrimSpace(*a.Note)
	}
	tasks[idx] = task

	s.Tasks = tasks
	s.Points = clampPoints(s.Points + delta)
	return s
}

func toggleTemplateAuto(s State, a ToggleTemplateAuto) State {
	s = mapTemplate(s, a.TemplateID, func(t model.TaskTemplate) model.TaskTemplate {
		if t.PlanType != model.PlanDaily {
			return t
		}
		t.AutoDaily = a.Enabled
		if a.Enabled && !t.AutoRule.IsValid() {
			t.AutoRule = model.AutoRuleDaily
		}
		return t
	})
	if !a.Enabled {
		s.Tasks = unlinkTemplate(s.Tasks, a.TemplateID)
	}
	return s
}

func deleteTask(s State, a DeleteTask) State {
	// Selections are pruned even when the task itself is already gone.
	s.NotificationSettings.TaskIDs = withoutID(s.NotificationSettings.TaskIDs, a.TaskID)
	s.LongtermNotificationSettings.TaskIDs = withoutID(s.LongtermNotificationSettings.TaskIDs, a.TaskID)
	idx := taskIndex(s.Tasks, a.TaskID)
	if idx < 0 {
		return s
	}
	target := s.Tasks[idx]
	earned := 0
	switch {
	case target.EarnedPoints != nil:
		earned = *target.EarnedPoints
	case target.Completed:
		earned = target.MaxPoints
	}
	tasks := make([]model.Task, 0, len(s.Tasks)-1)
	tasks = append(tasks, s.Tasks[:idx]...)
	tasks = append(tasks, s.Tasks[idx+1:]...)

	s.Tasks = tasks
	s.Points = clampPoints(s.Points - earned)
	return s
}

func cleanupOldRecords(s State, a CleanupOldRecords) State {
	cutoff := strings.TrimSpace(a.CutoffDate)
	if cutoff == "" {
		return s
	}
	tasks := make([]model.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if !t.IsSettled() {
			tasks = append(tasks, t)
			continue
		}
		key, ok := t.EffectiveDateKey()
		if !ok || key >= cutoff {
			tasks = append(tasks, t)
		}
	}
	if len(tasks) == len(s.Tasks) {
		return s
	}
	s.Tasks = tasks
	return s
}

func mapTask(s State, id string, fn func(model.Task) model.Task) State {
	idx := taskIndex(s.Tasks, id)
	if idx < 0 {
		return s
	}
	tasks := append([]model.Task(nil), s.Tasks...)
	tasks[idx] = fn(tasks[idx])
	s.Tasks = tasks
	return s
}

func mapTemplate(s State, id string, fn func(model.TaskTemplate) model.TaskTemplate) State {
	for i, t := range s.Templates {
		if t.ID != id {
			continue
		}
		templates := append([]model.TaskTemplate(nil), s.Templates...)
		templates[i] = fn(t)
		s.Templates = templates
		return s
	}
	return s
}

func unlinkTemplate(tasks []model.Task, templateID string) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		if id, ok := t.SourceTemplateID(); ok && id == templateID {
			t.Origin = model.AdhocOrigin()
		}
		out[i] = t
	}
	return out
}

func taskIndex(tasks []model.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func withoutID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func prepend[T any](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

func clampPoints(v int) int { return max(0, v) }

func atLeastOne(v int) int { return max(1, v) }
