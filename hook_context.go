package instrument

import (
	"time"

	"github.com/google/uuid"
)

// HookContext carries the identity and timing of one invocation through its
// lifecycle. A fresh HookContext is created for every call and handed to each
// hook of that call; it is never reused.
//
// Duration and Err are set once the call settles. Err is non-nil iff the call
// ultimately failed.
type HookContext struct {
	// ID correlates the log lines and hook calls of one invocation.
	ID uuid.UUID

	// Name identifies the call site, e.g. "Add" or "static Parse".
	Name string

	StartTime time.Time
	Duration  time.Duration
	Err       error

	settled bool
}

func newHookContext(name string, now time.Time) *HookContext {
	return &HookContext{
		ID:        uuid.New(),
		Name:      name,
		StartTime: now,
	}
}

// Settled reports whether the call has completed, successfully or not.
func (hc *HookContext) Settled() bool {
	return hc.settled
}

func (hc *HookContext) settle(now time.Time, err error) {
	hc.Duration = now.Sub(hc.StartTime)
	hc.Err = err
	hc.settled = true
}
