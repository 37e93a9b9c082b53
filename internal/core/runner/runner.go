// Package runner binds the scheduler to the overlay, the cue player and the
// background collaborators. A Runner is driven from a single goroutine.
package runner

import (
	"context"
	"fmt"
	"time"

	"interlude/internal/audio"
	"interlude/internal/core/mailbox"
	"interlude/internal/core/model"
	"interlude/internal/core/timekeeper"
	"interlude/internal/journal"
	"interlude/internal/logger"
	"interlude/internal/platform"
	"interlude/internal/ui/input"
	"interlude/internal/ui/render"
)

// Overlay is the part of overlay.Client the loop drives.
type Overlay interface {
	IsLocked() bool
	Lock() error
	Unlock()
	Pump() error
	SetMode(mode render.Mode)
	SetColors(colors model.Colors)
	StartFadeIn()
	StartFadeOut()
	IsFading() bool
	TakeFadeInComplete() bool
	EnsureInputCapture()
	UpdateFade() bool
	DrainIntents() []input.Intent
}

// StateSaver persists scheduler snapshots.
type StateSaver interface {
	Save(snapshot timekeeper.Snapshot) error
}

// Journal receives activity entries. Record must not block.
type Journal interface {
	Record(entry journal.Entry) bool
}

// Status is published to observers such as the tray.
type Status struct {
	Phase       timekeeper.Phase
	Left        time.Duration
	HasDeadline bool
	SnoozeCount uint32
}

// Config holds loop timings.
type Config struct {
	// FrameInterval is the sleep between steps while a fade runs.
	FrameInterval time.Duration
	// IdleInterval is the sleep between steps otherwise.
	IdleInterval time.Duration
	SaveInterval time.Duration
	// InhibitRecheck is how far a due break moves while an inhibitor holds.
	InhibitRecheck time.Duration
	// StatusInterval bounds how often OnStatus fires within one phase.
	StatusInterval time.Duration
}

// DefaultConfig returns the timings used by the daemon.
func DefaultConfig() Config {
	return Config{
		FrameInterval:  time.Second / 60,
		IdleInterval:   150 * time.Millisecond,
		SaveInterval:   time.Second,
		InhibitRecheck: platform.InhibitorCheckInterval,
		StatusInterval: time.Second,
	}
}

// Deps are the collaborators of a Runner. Keeper, Overlay and Events are
// required; the rest may be nil.
type Deps struct {
	Keeper     *timekeeper.TimeKeeper
	Overlay    Overlay
	Events     *mailbox.Mailbox[model.Event]
	Clock      timekeeper.Clock
	Cues       audio.Cues
	State      StateSaver
	Journal    Journal
	Inhibitors platform.InhibitorProvider
	OnStatus   func(Status)
	Log        *logger.Logger
}

// Runner is the orchestration loop.
type Runner struct {
	config     Config
	keeper     *timekeeper.TimeKeeper
	overlay    Overlay
	events     *mailbox.Mailbox[model.Event]
	clock      timekeeper.Clock
	cues       audio.Cues
	state      StateSaver
	journal    Journal
	inhibitors platform.InhibitorProvider
	onStatus   func(Status)
	log        *logger.Logger

	lastPhase   timekeeper.Phase
	mode        render.Mode
	hasMode     bool
	lastSave    time.Time
	lastStatus  time.Time
	statusPhase timekeeper.Phase
	statusSent  bool
	quit        bool
}

// New creates a Runner.
func New(config Config, deps Deps) *Runner {
	if deps.Clock == nil {
		deps.Clock = timekeeper.SystemClock{}
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	if deps.Cues == nil {
		deps.Cues = audio.NewNoOp(deps.Log)
	}
	if deps.Inhibitors == nil {
		deps.Inhibitors = platform.NoInhibitors{}
	}
	defaults := DefaultConfig()
	if config.FrameInterval <= 0 {
		config.FrameInterval = defaults.FrameInterval
	}
	if config.IdleInterval <= 0 {
		config.IdleInterval = defaults.IdleInterval
	}
	if config.SaveInterval <= 0 {
		config.SaveInterval = defaults.SaveInterval
	}
	if config.InhibitRecheck <= 0 {
		config.InhibitRecheck = defaults.InhibitRecheck
	}
	if config.StatusInterval <= 0 {
		config.StatusInterval = defaults.StatusInterval
	}
	return &Runner{
		config:     config,
		keeper:     deps.Keeper,
		overlay:    deps.Overlay,
		events:     deps.Events,
		clock:      deps.Clock,
		cues:       deps.Cues,
		state:      deps.State,
		journal:    deps.Journal,
		inhibitors: deps.Inhibitors,
		onStatus:   deps.OnStatus,
		log:        deps.Log,
		lastPhase:  deps.Keeper.Phase(),
	}
}

// Done reports whether a Quit event was received.
func (runner *Runner) Done() bool {
	return runner.quit
}

// Run steps until ctx is cancelled or a Quit event arrives. The final
// scheduler state is saved before returning.
func (runner *Runner) Run(ctx context.Context) error {
	defer runner.save()
	for {
		sleep := runner.Step()
		if runner.quit {
			return nil
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-runner.events.Ready():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Step runs one loop iteration and returns how long to sleep before the
// next one.
func (runner *Runner) Step() time.Duration {
	runner.drainEvents()
	if runner.quit {
		return 0
	}

	runner.postponeIfInhibited()
	runner.keeper.Tick()

	runner.handleIntents()

	phase := runner.keeper.Phase()
	relocked := false
	if phase.NeedsOverlay() && !runner.overlay.IsLocked() {
		if err := runner.overlay.Lock(); err != nil {
			runner.log.Error("lock overlay: %v", err)
		} else {
			runner.hasMode = false
			relocked = true
		}
	}

	// A compositor-closed overlay loses its fade, so a due break that is
	// locked again has to fade in again.
	if runner.overlay.IsLocked() && phase == timekeeper.PhaseLockedAwaitingAction &&
		(runner.lastPhase != timekeeper.PhaseLockedAwaitingAction || relocked) {
		runner.overlay.StartFadeIn()
	}

	if runner.overlay.IsLocked() {
		runner.updateMode()

		if runner.keeper.Phase() == timekeeper.PhaseLockedAwaitingAction && runner.overlay.TakeFadeInComplete() {
			runner.keeper.StartBreak()
		}
		// A restored or relocked BreakFinished never saw a fade-in, so it
		// needs capture here too or it could not be dismissed.
		phase = runner.keeper.Phase()
		if phase != timekeeper.PhaseWorking && phase != timekeeper.PhaseSnoozing && !runner.overlay.IsFading() {
			runner.overlay.EnsureInputCapture()
		}
		if runner.overlay.UpdateFade() {
			runner.overlay.Unlock()
			if runner.keeper.Phase() == timekeeper.PhaseBreakFinished {
				runner.keeper.FinishAndRestart()
				runner.record(journal.KindDismissed, runner.keeper.Config().Interval)
				runner.log.Info("Break Dismissed (next in %s)", formatDuration(runner.keeper.Config().Interval))
			}
		}
	}

	phase = runner.keeper.Phase()
	if runner.overlay.IsLocked() && (phase == timekeeper.PhaseWorking || phase == timekeeper.PhaseSnoozing) && !runner.overlay.IsFading() {
		runner.overlay.Unlock()
	}

	// Pumping while unlocked keeps output hotplug events from piling up in
	// the socket.
	if err := runner.overlay.Pump(); err != nil {
		runner.log.Error("pump overlay: %v", err)
	}

	runner.reportTransition()
	runner.lastPhase = runner.keeper.Phase()
	runner.maybeSave()
	runner.publishStatus()

	if runner.overlay.IsFading() {
		return runner.config.FrameInterval
	}
	return runner.config.IdleInterval
}

func (runner *Runner) drainEvents() {
	for _, event := range runner.events.Drain() {
		switch event.Kind {
		case model.EventSessionLocked:
			runner.keeper.HandleSessionLocked()
			runner.record(journal.KindSessionLocked, 0)
			runner.log.Info("Timer Paused (session locked)")
		case model.EventSessionUnlocked:
			runner.keeper.HandleSessionUnlocked()
			interval := runner.keeper.Config().Interval
			runner.record(journal.KindSessionUnlocked, interval)
			runner.log.Info("Timer Reset (session unlocked, next in %s)", formatDuration(interval))
		case model.EventConfigReloaded:
			if event.Scheduler != nil {
				runner.keeper.UpdateConfig(*event.Scheduler)
			}
			if event.Colors != nil {
				runner.overlay.SetColors(*event.Colors)
			}
			runner.hasMode = false
			runner.log.Info("Settings reloaded")
		case model.EventBreakNow:
			runner.keeper.BreakNow()
		case model.EventQuit:
			runner.quit = true
		default:
			runner.log.Debug("ignoring event %q", event.Kind)
		}
	}
}

func (runner *Runner) postponeIfInhibited() {
	if runner.keeper.Phase() != timekeeper.PhaseWorking {
		return
	}
	left, ok := runner.keeper.TimeLeft()
	if !ok || left > 0 || !runner.inhibitors.Inhibited() {
		return
	}
	runner.keeper.Postpone(runner.config.InhibitRecheck)
	runner.log.Info("Break Postponed (inhibitor active, recheck in %s)", formatDuration(runner.config.InhibitRecheck))
}

// handleIntents applies pending intents. Intents that arrive while a fade is
// running are discarded.
func (runner *Runner) handleIntents() {
	intents := runner.overlay.DrainIntents()
	if runner.overlay.IsFading() {
		return
	}
	for _, intent := range intents {
		phase := runner.keeper.Phase()
		switch intent {
		case input.IntentSnooze:
			if phase != timekeeper.PhaseLockedAwaitingAction && phase != timekeeper.PhaseOnBreak {
				continue
			}
			if !runner.keeper.CanSnooze() {
				continue
			}
			runner.keeper.Snooze()
			if runner.overlay.IsLocked() {
				runner.overlay.StartFadeOut()
			}
		case input.IntentConfirm, input.IntentPointerClick, input.IntentAnyKey:
			if phase == timekeeper.PhaseBreakFinished && runner.overlay.IsLocked() {
				runner.overlay.StartFadeOut()
			}
		}
	}
}

// updateMode pushes the mode for the current phase, redrawing only when it
// differs from the mode already shown.
func (runner *Runner) updateMode() {
	var mode render.Mode
	switch runner.keeper.Phase() {
	case timekeeper.PhaseLockedAwaitingAction:
		mode = render.BreakDue(uint64(runner.keeper.SnoozeDuration()/time.Second), runner.keeper.CanSnooze())
	case timekeeper.PhaseOnBreak:
		left, _ := runner.keeper.TimeLeft()
		mode = render.OnBreak(uint64(left / time.Second))
	case timekeeper.PhaseBreakFinished:
		mode = render.BreakFinished()
	default:
		return
	}
	if runner.hasMode && mode == runner.mode {
		return
	}
	runner.mode = mode
	runner.hasMode = true
	runner.overlay.SetMode(mode)
}

func (runner *Runner) reportTransition() {
	phase := runner.keeper.Phase()
	if phase == runner.lastPhase {
		return
	}
	config := runner.keeper.Config()
	switch phase {
	case timekeeper.PhaseLockedAwaitingAction:
		runner.record(journal.KindBreakDue, config.BreakLength)
		runner.log.Info("Break Starting (duration %s)", formatDuration(config.BreakLength))
	case timekeeper.PhaseOnBreak:
		left, _ := runner.keeper.TimeLeft()
		runner.record(journal.KindBreakStarted, left)
		runner.cues.PlayStart()
	case timekeeper.PhaseSnoozing:
		left, ok := runner.keeper.TimeLeft()
		if !ok {
			left = config.SnoozeMin
		}
		runner.record(journal.KindSnoozed, left)
		runner.log.Info("Snoozed (break in %s)", formatDuration(left))
	case timekeeper.PhaseBreakFinished:
		runner.record(journal.KindBreakCompleted, config.Interval)
		runner.cues.PlayEnd()
		runner.log.Info("Break Complete (next in %s)", formatDuration(config.Interval))
	}
}

func (runner *Runner) record(kind journal.Kind, seconds time.Duration) {
	if runner.journal == nil {
		return
	}
	runner.journal.Record(journal.Entry{
		At:          runner.clock.Now(),
		Kind:        kind,
		SnoozeCount: runner.keeper.SnoozeCount(),
		Seconds:     int64(seconds / time.Second),
	})
}

func (runner *Runner) maybeSave() {
	now := runner.clock.Now()
	if !runner.lastSave.IsZero() && now.Sub(runner.lastSave) < runner.config.SaveInterval {
		return
	}
	runner.lastSave = now
	runner.save()
}

func (runner *Runner) save() {
	if runner.state == nil {
		return
	}
	if err := runner.state.Save(runner.keeper.Snapshot()); err != nil {
		runner.log.WarnOnce("state-save", "save scheduler state: %v", err)
	}
}

func (runner *Runner) publishStatus() {
	if runner.onStatus == nil {
		return
	}
	now := runner.clock.Now()
	phase := runner.keeper.Phase()
	if runner.statusSent && phase == runner.statusPhase && now.Sub(runner.lastStatus) < runner.config.StatusInterval {
		return
	}
	left, ok := runner.keeper.TimeLeft()
	runner.lastStatus = now
	runner.statusPhase = phase
	runner.statusSent = true
	runner.onStatus(Status{
		Phase:       phase,
		Left:        left,
		HasDeadline: ok,
		SnoozeCount: runner.keeper.SnoozeCount(),
	})
}

func formatDuration(duration time.Duration) string {
	if duration < 0 {
		duration = 0
	}
	seconds := int64(duration / time.Second)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
