package update

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/EwwwzhI/ActionPlus/internal/clock"
	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/model"
	"github.com/EwwwzhI/ActionPlus/internal/reminders"
	"github.com/EwwwzhI/ActionPlus/internal/scheduler"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

type View string

const (
	ViewToday     View = "Today"
	ViewTomorrow  View = "Tomorrow"
	ViewLongterm  View = "Longterm"
	ViewTemplates View = "Templates"
	ViewHistory   View = "History"
)

// Views is the tab order; tab n is selected with key n.
var Views = []View{ViewToday, ViewTomorrow, ViewLongterm, ViewTemplates, ViewHistory}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	NextTab string
	Palette string
	Sync    string
	Export  string
	Group   string
	Help    string
	Quit    string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

// StateSaver persists the aggregate. Failures are the saver's to log.
type StateSaver interface {
	Save(ctx context.Context, st state.State) bool
}

// ReminderSource yields fired reminders and takes acknowledgements.
type ReminderSource interface {
	C() <-chan scheduler.ReminderEvent
	Delivered(ctx context.Context, ev scheduler.ReminderEvent) error
}

// Deps are the side-effecting collaborators of the program. Every field is
// optional.
type Deps struct {
	Store             StateSaver
	Syncers           []*reminders.Syncer
	Reminders         ReminderSource
	Notifier          DesktopNotifier
	Clock             clock.Clock
	Logger            *slog.Logger
	NewID             func(prefix string) string
	RetentionDays     int
	GenerationOffsets []int
	ExportDir         string
}

type Model struct {
	CurrentView    View
	State          state.State
	TodayKey       string
	Cursors        map[View]int
	CurrentGroupID string
	Palette        CommandPaletteState
	HelpVisible    bool
	Status         StatusBar
	Keys           GlobalKeyMap
	ReminderLog    []scheduler.ReminderEvent
	Notifications  []Notification
	LastSync       map[reminders.Category]reminders.SyncOutcome
	Syncing        bool
	Quitting       bool
	LastError      error

	persister         *persister
	syncers           []*reminders.Syncer
	source            ReminderSource
	notifier          DesktopNotifier
	clock             clock.Clock
	logger            *slog.Logger
	newID             func(prefix string) string
	retentionDays     int
	generationOffsets []int
	exportDir         string

	commandInput textinput.Model
	helpModel    help.Model
	syncSpinner  spinner.Model
	archiveTable table.Model
}

// DispatchMsg runs one action through the reducer, then persists and
// resyncs reminders.
type DispatchMsg struct {
	Action state.Action
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// SyncResultMsg carries the outcomes of one reminder sync round.
type SyncResultMsg struct {
	Outcomes []reminders.SyncOutcome
	Err      error
}

// DayRolloverMsg runs day-change maintenance: archive evaluation, retention
// cleanup and auto generation, followed by a forced resync.
type DayRolloverMsg struct {
	At time.Time
}

type ReminderFiredMsg struct {
	Event scheduler.ReminderEvent
}

type dayTickMsg struct{}

func NewModel(initial state.State, deps Deps) Model {
	c := clock.OrSystem(deps.Clock)
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := deps.NewID
	if newID == nil {
		newID = state.NewID
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NoopDesktopNotifier{}
	}
	retention := deps.RetentionDays
	if retention <= 0 {
		retention = state.DefaultRetentionDays
	}
	offsets := deps.GenerationOffsets
	if offsets == nil {
		offsets = []int{0, 1}
	}

	m := Model{
		CurrentView:       ViewToday,
		State:             initial,
		TodayKey:          datekey.Format(c.Now()),
		Cursors:           make(map[View]int),
		CurrentGroupID:    model.DefaultGroupID,
		LastSync:          make(map[reminders.Category]reminders.SyncOutcome),
		persister:         newPersister(deps.Store),
		syncers:           deps.Syncers,
		source:            deps.Reminders,
		notifier:          notifier,
		clock:             c,
		logger:            logger,
		newID:             newID,
		retentionDays:     retention,
		generationOffsets: offsets,
		exportDir:         deps.ExportDir,
		Keys: GlobalKeyMap{
			NextTab: "tab",
			Palette: "/",
			Sync:    "S",
			Export:  "E",
			Group:   "g",
			Help:    "?",
			Quit:    "q",
		},
	}
	m.initBubbleComponents()
	m.syncBubbleData()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.syncSpinner = spinner.New()
	m.syncSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()

	cols := []table.Column{
		{Title: "结束日期", Width: 12},
		{Title: "积分", Width: 8},
	}
	m.archiveTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithHeight(6))
}
