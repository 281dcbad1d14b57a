package scheduler

import (
	"fmt"
	"testing"
	"time"
)

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	if err := engine.Schedule(ReminderEvent{ID: "later", TriggerAt: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if err := engine.Schedule(ReminderEvent{ID: "sooner", TriggerAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitEvent(t, engine.C(), time.Second)
	second := waitEvent(t, engine.C(), time.Second)
	if first.ID != "sooner" || second.ID != "later" {
		t.Fatalf("unexpected order: first=%s second=%s", first.ID, second.ID)
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		if err := engine.Schedule(ReminderEvent{
			ID:        fmt.Sprintf("evt-%d", i),
			TriggerAt: now,
		}); err != nil {
			t.Fatalf("schedule event: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped events > 0, got %d", engine.Dropped())
	}
}

func TestScheduleValidatesTriggerTime(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Schedule(ReminderEvent{ID: "bad"}); err != ErrInvalidTriggerTime {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
}

func TestEngineCancelRemovesQueuedEvent(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	for _, ev := range []ReminderEvent{
		{ID: "keep", TriggerAt: now.Add(60 * time.Millisecond)},
		{ID: "drop", TriggerAt: now.Add(20 * time.Millisecond)},
		{ID: "far", TriggerAt: now.Add(time.Hour)},
	} {
		if err := engine.Schedule(ev); err != nil {
			t.Fatalf("schedule %s: %v", ev.ID, err)
		}
	}
	if !engine.Cancel("drop") {
		t.Fatal("expected drop to be queued")
	}
	if engine.Cancel("missing") {
		t.Fatal("cancel of unknown id should report false")
	}
	pending := engine.Pending()
	if len(pending) != 2 || pending[0].ID != "keep" || pending[1].ID != "far" {
		t.Fatalf("unexpected pending: %+v", pending)
	}

	first := waitEvent(t, engine.C(), time.Second)
	if first.ID != "keep" {
		t.Fatalf("cancelled event fired: %s", first.ID)
	}
}

func TestEngineEmitDeliversImmediately(t *testing.T) {
	engine := NewEngine(2)
	engine.Start()
	if err := engine.Emit(ReminderEvent{ID: "now", Repeating: true, TriggerAt: time.Now()}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	ev := waitEvent(t, engine.C(), time.Second)
	if ev.ID != "now" || !ev.Repeating {
		t.Fatalf("unexpected event: %+v", ev)
	}
	engine.Stop()
	if err := engine.Emit(ReminderEvent{ID: "late"}); err != ErrEngineStopped {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}
	if err := engine.Schedule(ReminderEvent{ID: "late", TriggerAt: time.Now()}); err != ErrEngineStopped {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}
}

func TestEngineRescheduleMovesQueuedEvent(t *testing.T) {
	engine := NewEngine(4)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	for _, ev := range []ReminderEvent{
		{ID: "a", TriggerAt: now.Add(time.Hour)},
		{ID: "b", TriggerAt: now.Add(2 * time.Hour)},
	} {
		if err := engine.Schedule(ev); err != nil {
			t.Fatalf("schedule %s: %v", ev.ID, err)
		}
	}
	if err := engine.Schedule(ReminderEvent{ID: "b", Title: "moved", TriggerAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("reschedule b: %v", err)
	}
	pending := engine.Pending()
	if len(pending) != 2 || pending[0].ID != "b" || pending[0].Title != "moved" {
		t.Fatalf("expected b moved to the front, got %+v", pending)
	}
	if ev := waitEvent(t, engine.C(), time.Second); ev.ID != "b" {
		t.Fatalf("unexpected event: %s", ev.ID)
	}
	if pending := engine.Pending(); len(pending) != 1 || pending[0].ID != "a" {
		t.Fatalf("expected only a queued, got %+v", pending)
	}
}

func TestEngineSameInstantKeepsScheduleOrder(t *testing.T) {
	engine := NewEngine(8)
	at := time.Now().Add(time.Hour)
	for _, id := range []string{"first", "second", "third"} {
		if err := engine.Schedule(ReminderEvent{ID: id, TriggerAt: at}); err != nil {
			t.Fatalf("schedule %s: %v", id, err)
		}
	}
	pending := engine.Pending()
	if len(pending) != 3 || pending[0].ID != "first" || pending[2].ID != "third" {
		t.Fatalf("unexpected order: %+v", pending)
	}
	engine.Stop()
	if _, open := <-engine.C(); open {
		t.Fatal("expected channel closed after stop")
	}
}

func waitEvent(t *testing.T, ch <-chan ReminderEvent, timeout time.Duration) ReminderEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
		return ReminderEvent{}
	}
}
