package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/EwwwzhI/ActionPlus/internal/clock"
	"github.com/EwwwzhI/ActionPlus/internal/reminders"
	"github.com/EwwwzhI/ActionPlus/internal/state"
	"github.com/EwwwzhI/ActionPlus/internal/storage"
)

// Ledger persists scheduled reminders so other processes can list them and
// a restarted process can restore them.
type Ledger interface {
	CreateReminder(ctx context.Context, in storage.Reminder) error
	MarkReminderFired(ctx context.Context, id string, at time.Time) error
	DeleteReminder(ctx context.Context, id string) error
	ListReminders(ctx context.Context, filter storage.ReminderListFilter) ([]storage.Reminder, error)
}

type PermissionFunc func(ctx context.Context) (reminders.PermissionStatus, error)

type DeliveryOptions struct {
	Ledger     Ledger
	Location   *time.Location
	Permission PermissionFunc
	Clock      clock.Clock
	Logger     *slog.Logger
	NewID      func() string
	BufferSize int
}

// LocalDelivery is the in-process notification backend. One-shot reminders
// wait in the Engine heap; repeating ones are cron entries that emit through
// the same Engine channel.
type LocalDelivery struct {
	engine     *Engine
	cron       *Cron
	ledger     Ledger
	permission PermissionFunc
	clock      clock.Clock
	logger     *slog.Logger
	newID      func() string

	// ledgerMu orders ledger writes of this process against Reconcile.
	ledgerMu sync.Mutex

	mu        sync.Mutex
	channels  map[string]string
	scheduled map[string]reminders.Scheduled
	entries   map[string]cron.EntryID
}

func NewLocalDelivery(opts DeliveryOptions) *LocalDelivery {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	permission := opts.Permission
	if permission == nil {
		permission = func(context.Context) (reminders.PermissionStatus, error) {
			return reminders.PermissionGranted, nil
		}
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return state.NewID("rem") }
	}
	return &LocalDelivery{
		engine:     NewEngine(opts.BufferSize),
		cron:       NewCron(opts.Location),
		ledger:     opts.Ledger,
		permission: permission,
		clock:      clock.OrSystem(opts.Clock),
		logger:     logger,
		newID:      newID,
		channels:   make(map[string]string),
		scheduled:  make(map[string]reminders.Scheduled),
		entries:    make(map[string]cron.EntryID),
	}
}

// C yields reminders as they come due.
func (d *LocalDelivery) C() <-chan ReminderEvent {
	return d.engine.C()
}

func (d *LocalDelivery) Start() {
	d.engine.Start()
	d.cron.Start()
}

func (d *LocalDelivery) Stop() {
	d.cron.Stop()
	d.engine.Stop()
}

func (d *LocalDelivery) Dropped() uint64 {
	return d.engine.Dropped()
}

func (d *LocalDelivery) PermissionStatus(ctx context.Context) (reminders.PermissionStatus, error) {
	return d.permission(ctx)
}

// RequestPermission re-reads the status; a local backend has nobody to ask.
func (d *LocalDelivery) RequestPermission(ctx context.Context) (reminders.PermissionStatus, error) {
	return d.permission(ctx)
}

func (d *LocalDelivery) EnsureChannel(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.channels[id] = name
	d.mu.Unlock()
	return nil
}

// Channels returns the registered channel names by id.
func (d *LocalDelivery) Channels() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.channels))
	for k, v := range d.channels {
		out[k] = v
	}
	return out
}

// ListScheduled merges the ledger, which includes reminders scheduled by
// other processes, with what this process holds itself.
func (d *LocalDelivery) ListScheduled(ctx context.Context, category reminders.Category) ([]reminders.Scheduled, error) {
	byHandle := make(map[string]reminders.Scheduled)
	if d.ledger != nil {
		rows, err := d.ledger.ListReminders(ctx, storage.ReminderListFilter{Category: string(category)})
		if err != nil {
			return nil, fmt.Errorf("list ledger: %w", err)
		}
		for _, row := range rows {
			item := scheduledFromRow(row)
			byHandle[item.Handle] = item
		}
	}

	d.mu.Lock()
	for handle, item := range d.scheduled {
		if category == "" || item.Category == category {
			byHandle[handle] = item
		}
	}
	d.mu.Unlock()

	out := make([]reminders.Scheduled, 0, len(byHandle))
	for _, item := range byHandle {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Repeating != out[j].Repeating {
			return out[i].Repeating
		}
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].Handle < out[j].Handle
	})
	return out, nil
}

// Cancel removes a reminder from every place it may live. Unknown handles
// are not an error.
func (d *LocalDelivery) Cancel(ctx context.Context, handle string) error {
	d.engine.Cancel(handle)
	d.mu.Lock()
	if entry, ok := d.entries[handle]; ok {
		d.cron.Remove(entry)
		delete(d.entries, handle)
	}
	delete(d.scheduled, handle)
	d.mu.Unlock()

	if d.ledger == nil {
		return nil
	}
	if err := d.ledger.DeleteReminder(ctx, handle); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete ledger row: %w", err)
	}
	return nil
}

func (d *LocalDelivery) ScheduleAt(ctx context.Context, at time.Time, payload reminders.Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if at.IsZero() || !at.After(d.clock.Now()) {
		return "", fmt.Errorf("%w: %s is not in the future", ErrInvalidTriggerTime, at)
	}
	item := reminders.Scheduled{
		Handle:   d.newID(),
		Category: payload.Category,
		At:       at,
		Payload:  clonePayload(payload),
	}
	if err := d.engine.Schedule(eventFor(item, at)); err != nil {
		return "", err
	}
	if err := d.record(ctx, item); err != nil {
		d.engine.Cancel(item.Handle)
		return "", err
	}
	return item.Handle, nil
}

func (d *LocalDelivery) ScheduleRepeating(ctx context.Context, payload reminders.Payload, hour, minute int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	item := reminders.Scheduled{
		Handle:    d.newID(),
		Category:  payload.Category,
		Repeating: true,
		Hour:      hour,
		Minute:    minute,
		Payload:   clonePayload(payload),
	}
	entry, err := d.cron.ScheduleDaily(hour, minute, func() { d.fire(item) })
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	d.entries[item.Handle] = entry
	d.mu.Unlock()
	if err := d.record(ctx, item); err != nil {
		d.mu.Lock()
		d.cron.Remove(entry)
		delete(d.entries, item.Handle)
		d.mu.Unlock()
		return "", err
	}
	return item.Handle, nil
}

// Delivered acknowledges a fired reminder: one-shots leave the ledger,
// repeating ones record when they last fired.
func (d *LocalDelivery) Delivered(ctx context.Context, ev ReminderEvent) error {
	if ev.Repeating {
		if d.ledger == nil {
			return nil
		}
		if err := d.ledger.MarkReminderFired(ctx, ev.ID, ev.TriggerAt); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return nil
	}
	d.mu.Lock()
	delete(d.scheduled, ev.ID)
	d.mu.Unlock()
	if d.ledger == nil {
		return nil
	}
	if err := d.ledger.DeleteReminder(ctx, ev.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// Restore loads the ledger into this process: future one-shots are queued,
// past ones are discarded and repeating ones get cron entries again. Rows
// already known to this process are left alone.
func (d *LocalDelivery) Restore(ctx context.Context) (int, error) {
	if d.ledger == nil {
		return 0, nil
	}
	rows, err := d.ledger.ListReminders(ctx, storage.ReminderListFilter{})
	if err != nil {
		return 0, fmt.Errorf("list ledger: %w", err)
	}
	now := d.clock.Now()
	restored := 0
	for _, row := range rows {
		item := scheduledFromRow(row)
		d.mu.Lock()
		_, known := d.scheduled[item.Handle]
		d.mu.Unlock()
		if known {
			continue
		}
		if item.Repeating {
			entry, err := d.cron.ScheduleDaily(item.Hour, item.Minute, func() { d.fire(item) })
			if err != nil {
				d.logger.Warn("restore repeating reminder failed", "id", item.Handle, "err", err)
				continue
			}
			d.mu.Lock()
			d.entries[item.Handle] = entry
			d.scheduled[item.Handle] = item
			d.mu.Unlock()
			restored++
			continue
		}
		if !item.At.After(now) {
			if err := d.ledger.DeleteReminder(ctx, item.Handle); err != nil && !errors.Is(err, storage.ErrNotFound) {
				d.logger.Warn("drop expired reminder failed", "id", item.Handle, "err", err)
			}
			continue
		}
		if err := d.engine.Schedule(eventFor(item, item.At)); err != nil {
			return restored, err
		}
		d.mu.Lock()
		d.scheduled[item.Handle] = item
		d.mu.Unlock()
		restored++
	}
	return restored, nil
}

// Reconcile makes this process agree with the ledger after another process
// rewrote it: reminders whose rows are gone are dropped from the engine and
// cron, new rows are restored.
func (d *LocalDelivery) Reconcile(ctx context.Context) (dropped, restored int, err error) {
	if d.ledger == nil {
		return 0, 0, nil
	}
	d.ledgerMu.Lock()
	rows, err := d.ledger.ListReminders(ctx, storage.ReminderListFilter{})
	if err != nil {
		d.ledgerMu.Unlock()
		return 0, 0, fmt.Errorf("list ledger: %w", err)
	}
	live := make(map[string]bool, len(rows))
	for _, row := range rows {
		live[row.ID] = true
	}
	d.mu.Lock()
	for handle := range d.scheduled {
		if live[handle] {
			continue
		}
		d.engine.Cancel(handle)
		if entry, ok := d.entries[handle]; ok {
			d.cron.Remove(entry)
			delete(d.entries, handle)
		}
		delete(d.scheduled, handle)
		dropped++
	}
	d.mu.Unlock()
	d.ledgerMu.Unlock()

	restored, err = d.Restore(ctx)
	if dropped > 0 || restored > 0 {
		d.logger.Info("reminders reconciled with ledger", "dropped", dropped, "restored", restored)
	}
	return dropped, restored, err
}

func (d *LocalDelivery) record(ctx context.Context, item reminders.Scheduled) error {
	d.ledgerMu.Lock()
	defer d.ledgerMu.Unlock()
	d.mu.Lock()
	d.scheduled[item.Handle] = item
	d.mu.Unlock()
	if d.ledger == nil {
		return nil
	}
	row := storage.Reminder{
		ID:        item.Handle,
		Category:  string(item.Category),
		Kind:      item.Payload.Kind,
		Title:     item.Payload.Title,
		Body:      item.Payload.Body,
		TaskIDs:   item.Payload.TaskIDs,
		Repeating: item.Repeating,
		Hour:      item.Hour,
		Minute:    item.Minute,
		CreatedAt: d.clock.Now(),
	}
	if !item.Repeating {
		at := item.At
		row.TriggerAt = &at
	}
	if err := d.ledger.CreateReminder(ctx, row); err != nil {
		d.mu.Lock()
		delete(d.scheduled, item.Handle)
		d.mu.Unlock()
		return fmt.Errorf("write ledger row: %w", err)
	}
	return nil
}

func (d *LocalDelivery) fire(item reminders.Scheduled) {
	if err := d.engine.Emit(eventFor(item, d.clock.Now())); err != nil {
		d.logger.Debug("repeating reminder not emitted", "id", item.Handle, "err", err)
	}
}

func eventFor(item reminders.Scheduled, at time.Time) ReminderEvent {
	return ReminderEvent{
		ID:        item.Handle,
		Category:  string(item.Category),
		Kind:      item.Payload.Kind,
		Title:     item.Payload.Title,
		Body:      item.Payload.Body,
		TaskIDs:   slices.Clone(item.Payload.TaskIDs),
		TriggerAt: at,
		Repeating: item.Repeating,
	}
}

func scheduledFromRow(row storage.Reminder) reminders.Scheduled {
	out := reminders.Scheduled{
		Handle:    row.ID,
		Category:  reminders.Category(row.Category),
		Repeating: row.Repeating,
		Hour:      row.Hour,
		Minute:    row.Minute,
		Payload: reminders.Payload{
			Category: reminders.Category(row.Category),
			Kind:     row.Kind,
			Title:    row.Title,
			Body:     row.Body,
			TaskIDs:  row.TaskIDs,
		},
	}
	if row.TriggerAt != nil {
		out.At = *row.TriggerAt
	}
	return out
}

func clonePayload(p reminders.Payload) reminders.Payload {
	p.TaskIDs = slices.Clone(p.TaskIDs)
	return p
}
