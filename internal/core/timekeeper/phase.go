package timekeeper

import "time"

// Phase represents the current position in the work/break cycle.
type Phase string

const (
	PhaseWorking              Phase = "Working"
	PhaseLockedAwaitingAction Phase = "LockedAwaitingAction"
	PhaseOnBreak              Phase = "OnBreak"
	PhaseBreakFinished        Phase = "BreakFinished"
	PhaseSnoozing             Phase = "Snoozing"
)

// ParsePhase maps a persisted phase name back to a Phase.
func ParsePhase(value string) (Phase, bool) {
	switch phase := Phase(value); phase {
	case PhaseWorking, PhaseLockedAwaitingAction, PhaseOnBreak, PhaseBreakFinished, PhaseSnoozing:
		return phase, true
	}
	return "", false
}

// HasDeadline reports whether the phase ends on its own after a deadline.
func (phase Phase) HasDeadline() bool {
	return phase == PhaseWorking || phase == PhaseOnBreak || phase == PhaseSnoozing
}

// NeedsOverlay reports whether the overlay must be shown in this phase.
func (phase Phase) NeedsOverlay() bool {
	return phase == PhaseLockedAwaitingAction || phase == PhaseOnBreak || phase == PhaseBreakFinished
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Snapshot is the persistable part of a TimeKeeper.
type Snapshot struct {
	Phase Phase
	// Remaining is meaningful only when HasRemaining is set.
	Remaining    time.Duration
	HasRemaining bool
	SnoozeCount  uint32
}
