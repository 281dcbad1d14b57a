package state

import (
	"sync"

	"github.com/google/uuid"
)

// NewID returns prefix_<uuid>.
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Subscriber observes every committed transition.
type Subscriber func(prev, next State, a Action)

// Dispatcher serialises dispatches against one current state. Subscribers
// run after the new state is committed, in registration order. They may read
// State() but must not Dispatch.
type Dispatcher struct {
	dispatchMu sync.Mutex
	mu         sync.Mutex
	state      State
	subs       []Subscriber
}

func NewDispatcher(initial State) *Dispatcher {
	return &Dispatcher{state: initial}
}

func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dispatcher) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.subs = append(d.subs, fn)
	d.mu.Unlock()
}

// Dispatch applies actions in order and notifies subscribers once per
// action.
func (d *Dispatcher) Dispatch(actions ...Action) State {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()
	var next State
	for _, a := range actions {
		d.mu.Lock()
		prev := d.state
		next = Reduce(prev, a)
		d.state = next
		subs := d.subs
		d.mu.Unlock()
		for _, fn := range subs {
			fn(prev, next, a)
		}
	}
	if len(actions) == 0 {
		return d.State()
	}
	return next
}
