package timekeeper

import (
	"math"
	"time"

	"interlude/internal/core/model"
)

// TimeKeeper is a deadline driven state machine for the work/break cycle.
// It performs no I/O and is owned by a single goroutine.
type TimeKeeper struct {
	config      model.SchedulerConfig
	clock       Clock
	phase       Phase
	deadline    time.Time
	hasDeadline bool
	snoozeCount uint32
	breaksTaken int
}

// New creates a TimeKeeper in the Working phase.
func New(config model.SchedulerConfig, clock Clock) *TimeKeeper {
	if clock == nil {
		clock = SystemClock{}
	}
	keeper := &TimeKeeper{
		config: config,
		clock:  clock,
		phase:  PhaseWorking,
	}
	keeper.setDeadline(config.FirstInterval())
	return keeper
}

// Restore rebuilds a TimeKeeper from a snapshot whose Remaining has already
// been reduced by the time spent offline. A remaining time of zero advances
// the phase the same way Tick would.
func Restore(config model.SchedulerConfig, clock Clock, snapshot Snapshot) *TimeKeeper {
	keeper := New(config, clock)
	keeper.phase = snapshot.Phase
	keeper.snoozeCount = snapshot.SnoozeCount
	keeper.clearDeadline()

	if !snapshot.Phase.HasDeadline() {
		return keeper
	}
	remaining := snapshot.Remaining
	if !snapshot.HasRemaining || remaining < 0 {
		remaining = 0
	}
	keeper.setDeadline(remaining)
	if remaining == 0 {
		keeper.advance()
	}
	return keeper
}

// Phase returns the current phase.
func (keeper *TimeKeeper) Phase() Phase {
	return keeper.phase
}

// SnoozeCount returns the number of snoozes taken in this cycle.
func (keeper *TimeKeeper) SnoozeCount() uint32 {
	return keeper.snoozeCount
}

// Config returns the active configuration.
func (keeper *TimeKeeper) Config() model.SchedulerConfig {
	return keeper.config
}

// UpdateConfig adopts a new configuration for future deadlines.
func (keeper *TimeKeeper) UpdateConfig(config model.SchedulerConfig) {
	keeper.config = config
}

// Tick advances the phase when the current deadline has passed.
func (keeper *TimeKeeper) Tick() {
	if !keeper.hasDeadline || keeper.clock.Now().Before(keeper.deadline) {
		return
	}
	keeper.advance()
}

func (keeper *TimeKeeper) advance() {
	switch keeper.phase {
	case PhaseWorking, PhaseSnoozing:
		keeper.phase = PhaseLockedAwaitingAction
		keeper.clearDeadline()
	case PhaseOnBreak:
		keeper.phase = PhaseBreakFinished
		keeper.clearDeadline()
	}
}

// TimeLeft returns the time until the deadline, saturating at zero.
// The boolean is false when the phase has no deadline.
func (keeper *TimeKeeper) TimeLeft() (time.Duration, bool) {
	if !keeper.hasDeadline {
		return 0, false
	}
	left := keeper.deadline.Sub(keeper.clock.Now())
	if left < 0 {
		left = 0
	}
	return left, true
}

// SnoozeDuration returns the snooze length granted for the next snooze.
func (keeper *TimeKeeper) SnoozeDuration() time.Duration {
	return SnoozeDuration(keeper.config, keeper.snoozeCount)
}

// SnoozeDuration computes base * decay^count in whole seconds, floored at
// the configured minimum.
func SnoozeDuration(config model.SchedulerConfig, count uint32) time.Duration {
	decay := math.Min(math.Max(config.SnoozeDecay, 0.01), 0.999)
	seconds := math.Round(config.SnoozeBase.Seconds() * math.Pow(decay, float64(count)))
	seconds = math.Max(seconds, config.SnoozeMin.Seconds())
	return time.Duration(uint64(seconds)) * time.Second
}

// CanSnooze reports whether another snooze is allowed in this cycle.
func (keeper *TimeKeeper) CanSnooze() bool {
	return keeper.config.MaxSnoozes == 0 || keeper.snoozeCount < keeper.config.MaxSnoozes
}

// StartBreak enters OnBreak. Callers only invoke it from LockedAwaitingAction.
func (keeper *TimeKeeper) StartBreak() {
	length := keeper.config.BreakLength
	if keeper.breaksTaken == 0 {
		length = keeper.config.FirstBreak()
	}
	keeper.breaksTaken++
	keeper.phase = PhaseOnBreak
	keeper.setDeadline(length)
}

// Snooze postpones the break and returns the granted duration.
func (keeper *TimeKeeper) Snooze() time.Duration {
	duration := keeper.SnoozeDuration()
	if keeper.snoozeCount < math.MaxUint32 {
		keeper.snoozeCount++
	}
	keeper.phase = PhaseSnoozing
	keeper.setDeadline(duration)
	return duration
}

// FinishAndRestart begins a fresh work interval.
func (keeper *TimeKeeper) FinishAndRestart() {
	keeper.restartWork()
}

// HandleSessionLocked pauses the cycle while the session is locked elsewhere.
func (keeper *TimeKeeper) HandleSessionLocked() {
	keeper.phase = PhaseWorking
	keeper.snoozeCount = 0
	keeper.clearDeadline()
}

// HandleSessionUnlocked restarts the cycle from a fresh interval.
func (keeper *TimeKeeper) HandleSessionUnlocked() {
	keeper.restartWork()
}

// BreakNow makes a break due immediately. It only applies while working or
// snoozing.
func (keeper *TimeKeeper) BreakNow() {
	if keeper.phase != PhaseWorking && keeper.phase != PhaseSnoozing {
		return
	}
	keeper.phase = PhaseLockedAwaitingAction
	keeper.clearDeadline()
}

// Postpone pushes a Working deadline out by the given duration without
// touching the snooze count.
func (keeper *TimeKeeper) Postpone(duration time.Duration) {
	if keeper.phase != PhaseWorking {
		return
	}
	keeper.setDeadline(duration)
}

// Snapshot captures the phase, snooze count and remaining time.
func (keeper *TimeKeeper) Snapshot() Snapshot {
	left, ok := keeper.TimeLeft()
	return Snapshot{
		Phase:        keeper.phase,
		Remaining:    left,
		HasRemaining: ok,
		SnoozeCount:  keeper.snoozeCount,
	}
}

func (keeper *TimeKeeper) restartWork() {
	keeper.phase = PhaseWorking
	keeper.snoozeCount = 0
	keeper.setDeadline(keeper.config.Interval)
}

func (keeper *TimeKeeper) setDeadline(after time.Duration) {
	keeper.deadline = keeper.clock.Now().Add(after)
	keeper.hasDeadline = true
}

func (keeper *TimeKeeper) clearDeadline() {
	keeper.deadline = time.Time{}
	keeper.hasDeadline = false
}
