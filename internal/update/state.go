package update

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/model"
	"github.com/EwwwzhI/ActionPlus/internal/reminders"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

const syncTimeout = 30 * time.Second

// persister serialises saves. Save commands run concurrently, so a save
// that starts after a newer one has been written is dropped.
type persister struct {
	store   StateSaver
	next    atomic.Uint64
	mu      sync.Mutex
	written uint64
}

func newPersister(store StateSaver) *persister {
	return &persister{store: store}
}

func (p *persister) saveCmd(st state.State) tea.Cmd {
	if p == nil || p.store == nil {
		return nil
	}
	version := p.next.Add(1)
	return func() tea.Msg {
		p.mu.Lock()
		defer p.mu.Unlock()
		if version < p.written {
			return nil
		}
		p.written = version
		p.store.Save(context.Background(), st)
		return nil
	}
}

// apply reduces actions into the model state and returns the follow-up
// persistence and reminder sync.
func (m *Model) apply(notify bool, actions ...state.Action) tea.Cmd {
	if len(actions) == 0 {
		return nil
	}
	for _, a := range actions {
		m.State = state.Reduce(m.State, a)
	}
	if _, ok := m.State.Group(m.CurrentGroupID); !ok {
		m.CurrentGroupID = model.DefaultGroupID
	}
	m.clampCursors()
	m.syncBubbleData()
	return tea.Batch(m.persister.saveCmd(m.State), m.syncCmd(false, notify))
}

func (m Model) syncCmd(force, notify bool) tea.Cmd {
	if len(m.syncers) == 0 {
		return nil
	}
	syncers := m.syncers
	req := reminders.SyncRequest{State: m.State, Force: force, Notify: notify}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		outcomes, err := reminders.SyncAll(ctx, syncers, req)
		return SyncResultMsg{Outcomes: outcomes, Err: err}
	}
}

// rollover runs day-change maintenance for now.
func (m *Model) rollover(now time.Time) tea.Cmd {
	m.TodayKey = datekey.Format(now)
	actions := state.Maintenance(m.State, now, m.retentionDays, m.generationOffsets, m.newID)
	for _, a := range actions {
		m.State = state.Reduce(m.State, a)
	}
	m.clampCursors()
	m.syncBubbleData()
	m.logger.Info("day maintenance", "today", m.TodayKey, "actions", len(actions))
	return tea.Batch(m.persister.saveCmd(m.State), m.syncCmd(true, false))
}

// autoGenerate spawns tasks for auto templates after a template change, so
// a newly enabled template shows up without waiting for the next day.
func (m Model) autoGenerate(st state.State) []state.Action {
	now := m.clock.Now()
	tasks := state.GenerateAutoTasks(st, state.GenerationDays(now, m.generationOffsets), now, m.newID)
	out := make([]state.Action, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, state.AddTask{Task: t})
	}
	return out
}

func dayTickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(time.Time) tea.Msg { return dayTickMsg{} })
}
