// Package state holds the ActionPlus aggregate and the pure reducer that is
// the only way to change it.
package state

import (
	"slices"

	"github.com/EwwwzhI/ActionPlus/internal/model"
)

// State is the whole persisted aggregate.
type State struct {
	Points                       int
	Tasks                        []model.Task
	Templates                    []model.TaskTemplate
	Groups                       []model.TaskGroup
	Archives                     []model.ScoreArchive
	ArchiveSettings              model.ArchiveSettings
	NotificationSettings         model.NotificationSettings
	LongtermNotificationSettings model.LongtermNotificationSettings
}

// Initial is the state of a fresh install.
func Initial() State {
	return State{
		Points:                       0,
		Tasks:                        []model.Task{},
		Templates:                    []model.TaskTemplate{},
		Groups:                       []model.TaskGroup{model.DefaultGroup()},
		Archives:                     []model.ScoreArchive{},
		ArchiveSettings:              model.ArchiveSettings{CycleDays: model.DefaultCycleDays},
		NotificationSettings:         model.DefaultNotificationSettings(),
		LongtermNotificationSettings: model.DefaultLongtermNotificationSettings(),
	}
}

func (s State) Task(id string) (model.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (s State) Template(id string) (model.TaskTemplate, bool) {
	for _, t := range s.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return model.TaskTemplate{}, false
}

func (s State) Group(id string) (model.TaskGroup, bool) {
	for _, g := range s.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return model.TaskGroup{}, false
}

// GroupByName finds a group by its exact name.
func (s State) GroupByName(name string) (model.TaskGroup, bool) {
	for _, g := range s.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return model.TaskGroup{}, false
}

// GroupName returns the display name, falling back to the default group's.
func (s State) GroupName(id string) string {
	if g, ok := s.Group(id); ok {
		return g.Name
	}
	return model.DefaultGroup().Name
}

// HasTemplateFor reports whether a template with task's key exists.
func (s State) HasTemplateFor(task model.Task) bool {
	key := model.TemplateKeyOf(task)
	for _, t := range s.Templates {
		if t.Key() == key {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	out := s
	out.Tasks = slices.Clone(s.Tasks)
	for i := range out.Tasks {
		if p := out.Tasks[i].EarnedPoints; p != nil {
			v := *p
			out.Tasks[i].EarnedPoints = &v
		}
		if p := out.Tasks[i].SettledAt; p != nil {
			v := *p
			out.Tasks[i].SettledAt = &v
		}
	}
	out.Templates = slices.Clone(s.Templates)
	out.Groups = slices.Clone(s.Groups)
	out.Archives = slices.Clone(s.Archives)
	out.NotificationSettings.TaskIDs = slices.Clone(s.NotificationSettings.TaskIDs)
	out.LongtermNotificationSettings.TaskIDs = slices.Clone(s.LongtermNotificationSettings.TaskIDs)
	out.LongtermNotificationSettings.DeadlineOffsets = slices.Clone(s.LongtermNotificationSettings.DeadlineOffsets)
	return out
}
