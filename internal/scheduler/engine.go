package scheduler

import (
	"container/heap"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrEngineStopped      = errors.New("scheduler: engine stopped")
)

// ReminderEvent is one due reminder as handed to the consumer.
type ReminderEvent struct {
	ID        string
	Category  string
	Kind      string
	Title     string
	Body      string
	TaskIDs   []string
	TriggerAt time.Time
	Repeating bool
}

// pending is a queued event plus its heap position. seq breaks ties so
// reminders sharing a trigger time fire in the order they were scheduled.
type pending struct {
	event ReminderEvent
	seq   uint64
	index int
}

type timeline []*pending

func (tl timeline) Len() int { return len(tl) }

func (tl timeline) Less(i, j int) bool {
	a, b := tl[i].event.TriggerAt, tl[j].event.TriggerAt
	if a.Equal(b) {
		return tl[i].seq < tl[j].seq
	}
	return a.Before(b)
}

func (tl timeline) Swap(i, j int) {
	tl[i], tl[j] = tl[j], tl[i]
	tl[i].index = i
	tl[j].index = j
}

func (tl *timeline) Push(x any) {
	p := x.(*pending)
	p.index = len(*tl)
	*tl = append(*tl, p)
}

func (tl *timeline) Pop() any {
	old := *tl
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	p.index = -1
	*tl = old[:n-1]
	return p
}

// Engine fires one-shot reminders at their trigger time on a buffered
// channel. Event ids are unique: scheduling an id that is already queued
// moves it. A full channel drops the event and counts it.
type Engine struct {
	mu      sync.Mutex
	queue   timeline
	byID    map[string]*pending
	seq     uint64
	out     chan ReminderEvent
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped atomic.Uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		byID:   make(map[string]*pending),
		out:    make(chan ReminderEvent, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// C is closed once the engine has stopped.
func (e *Engine) C() <-chan ReminderEvent {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	go e.run()
}

// Stop halts the engine and waits for its goroutine. Queued events are
// discarded.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	started := e.started
	e.mu.Unlock()
	if started {
		<-e.doneCh
	} else {
		close(e.out)
	}
}

// Schedule queues ev, replacing any queued event with the same id.
func (e *Engine) Schedule(ev ReminderEvent) error {
	if ev.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}
	e.seq++
	if p, ok := e.byID[ev.ID]; ok && ev.ID != "" {
		p.event = ev
		p.seq = e.seq
		heap.Fix(&e.queue, p.index)
	} else {
		p := &pending{event: ev, seq: e.seq}
		heap.Push(&e.queue, p)
		if ev.ID != "" {
			e.byID[ev.ID] = p
		}
	}
	e.poke()
	return nil
}

// Cancel removes a queued event by id. It reports whether one was queued.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&e.queue, p.index)
	delete(e.byID, id)
	e.poke()
	return true
}

// Pending returns the queued events in firing order.
func (e *Engine) Pending() []ReminderEvent {
	e.mu.Lock()
	ordered := make([]pending, 0, len(e.queue))
	for _, p := range e.queue {
		ordered = append(ordered, *p)
	}
	e.mu.Unlock()

	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].event.TriggerAt, ordered[j].event.TriggerAt
		if a.Equal(b) {
			return ordered[i].seq < ordered[j].seq
		}
		return a.Before(b)
	})
	out := make([]ReminderEvent, len(ordered))
	for i, p := range ordered {
		out[i] = p.event
	}
	return out
}

// Emit delivers ev immediately, bypassing the queue. Repeating reminders
// driven by cron use it.
func (e *Engine) Emit(ev ReminderEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}
	e.send(ev)
	return nil
}

func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// send never blocks; callers hold e.mu so send cannot race the close of out.
func (e *Engine) send(ev ReminderEvent) {
	select {
	case e.out <- ev:
	default:
		e.dropped.Add(1)
	}
}

func (e *Engine) run() {
	defer close(e.doneCh)
	defer close(e.out)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		var fire <-chan time.Time
		if wait, ok := e.untilNext(); ok {
			drainTimer(timer)
			timer.Reset(wait)
			fire = timer.C
		}

		select {
		case <-fire:
			e.fireDue(time.Now())
		case <-e.wakeup:
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) untilNext() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return 0, false
	}
	return max(time.Until(e.queue[0].event.TriggerAt), 0), true
}

func (e *Engine) fireDue(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	for len(e.queue) > 0 && !e.queue[0].event.TriggerAt.After(now) {
		p := heap.Pop(&e.queue).(*pending)
		delete(e.byID, p.event.ID)
		e.send(p.event)
	}
}

func (e *Engine) poke() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func drainTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
