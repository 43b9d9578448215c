package modules

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/nyx/internal/brain"
)

// Timekeeper is the time module: it acknowledges timers and tells the time.
// It does not schedule anything itself.
type Timekeeper struct {
	now func() time.Time
}

// NewTimekeeper creates the time module. A nil clock uses time.Now.
func NewTimekeeper(now func() time.Time) *Timekeeper {
	if now == nil {
		now = time.Now
	}
	return &Timekeeper{now: now}
}

// Name returns "time".
func (*Timekeeper) Name() string { return "time" }

// Execute handles time.timer using the duration entity, or the first number
// as minutes. Other intents get the current time.
func (t *Timekeeper) Execute(_ context.Context, _ string, d brain.Decision) (Result, error) {
	if d.Intent.Name != "time.timer" {
		return Info("It's %s", t.now().Format("15:04 on Monday, January 2")), nil
	}

	if dur := d.Entities.Duration; dur != nil {
		return Success("Timer set for %d %s", dur.Value, dur.Unit), nil
	}
	if n, ok := d.Entities.FirstNumber(); ok {
		return Success("Timer set for %d minutes", n), nil
	}
	return Failure("Could not understand timer duration"), nil
}
