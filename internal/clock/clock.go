// Package clock is the single source of "now" for builders and effects.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// System reads the wall clock in time.Local.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns T.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// Func adapts a plain function.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// OrSystem returns c, or System when c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return System{}
	}
	return c
}
