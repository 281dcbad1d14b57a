package state

import (
	"time"

	"github.com/EwwwzhI/ActionPlus/internal/model"
)

// Action is a reducer input. Anything the reducer does not recognise is
// ignored.
type Action interface {
	ActionType() string
}

type LoadState struct{ State State }

type AddGroup struct{ Group model.TaskGroup }

type RenameGroup struct {
	GroupID string
	Name    string
	Color   string
}

type DeleteGroup struct{ GroupID string }

type SetArchiveCycle struct {
	CycleDays   int
	PeriodStart string
}

type SetNotificationSettings struct {
	Settings model.NotificationSettings
}

type SetLongtermNotificationSettings struct {
	Settings model.LongtermNotificationSettings
}

// AutoArchive rolls points into a ScoreArchive. ArchiveID and At stamp the
// new entry; an empty ArchiveID falls back to "arch_<EndDate>".
type AutoArchive struct {
	CycleDays int
	NextStart string
	EndDate   string
	ArchiveID string
	At        time.Time
}

type AddTask struct{ Task model.Task }

// ToggleTask flips completion of a longterm task.
type ToggleTask struct{ TaskID string }

// SetTaskEarned settles a task. A nil Note keeps the previous note; At is
// recorded as the settlement time.
type SetTaskEarned struct {
	TaskID       string
	EarnedPoints int
	Note         *string
	At           time.Time
}

type SetTaskDeadline struct {
	TaskID       string
	DeadlineDate string
}

type AddTemplate struct{ Template model.TaskTemplate }

type ToggleTemplateAuto struct {
	TemplateID string
	Enabled    bool
}

type SetTemplateAutoRule struct {
	TemplateID string
	Rule       model.AutoRule
}

type DeleteTemplate struct{ TemplateID string }

type LinkTaskToTemplate struct {
	TaskID     string
	TemplateID string
}

type DeleteTask struct{ TaskID string }

type CleanupOldRecords struct{ CutoffDate string }

func (LoadState) ActionType() string                       { return "LOAD_STATE" }
func (AddGroup) ActionType() string                        { return "ADD_GROUP" }
func (RenameGroup) ActionType() string                     { return "RENAME_GROUP" }
func (DeleteGroup) ActionType() string                     { return "DELETE_GROUP" }
func (SetArchiveCycle) ActionType() string                 { return "SET_ARCHIVE_CYCLE" }
func (SetNotificationSettings) ActionType() string         { return "SET_NOTIFICATION_SETTINGS" }
func (SetLongtermNotificationSettings) ActionType() string { return "SET_LONGTERM_NOTIFICATION_SETTINGS" }
func (AutoArchive) ActionType() string                     { return "AUTO_ARCHIVE" }
func (AddTask) ActionType() string                         { return "ADD_TASK" }
func (ToggleTask) ActionType() string                      { return "TOGGLE_TASK" }
func (SetTaskEarned) ActionType() string                   { return "SET_TASK_EARNED" }
func (SetTaskDeadline) ActionType() string                 { return "SET_TASK_DEADLINE" }
func (AddTemplate) ActionType() string                     { return "ADD_TEMPLATE" }
func (ToggleTemplateAuto) ActionType() string              { return "TOGGLE_TEMPLATE_AUTO" }
func (SetTemplateAutoRule) ActionType() string             { return "SET_TEMPLATE_AUTO_RULE" }
func (DeleteTemplate) ActionType() string                  { return "DELETE_TEMPLATE" }
func (LinkTaskToTemplate) ActionType() string              { return "LINK_TASK_TO_TEMPLATE" }
func (DeleteTask) ActionType() string                      { return "DELETE_TASK" }
func (CleanupOldRecords) ActionType() string               { return "CLEANUP_OLD_RECORDS" }
