package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interlude/internal/core/mailbox"
	"interlude/internal/core/model"
	"interlude/internal/core/timekeeper"
	"interlude/internal/journal"
	"interlude/internal/ui/animation"
	"interlude/internal/ui/input"
	"interlude/internal/ui/render"
)

type manualClock struct {
	now time.Time
}

func (clock *manualClock) Now() time.Time { return clock.now }

func (clock *manualClock) Advance(d time.Duration) { clock.now = clock.now.Add(d) }

// fakeOverlay follows the Client contract on top of a real Fade.
type fakeOverlay struct {
	clock          *manualClock
	fade           *animation.Fade
	locked         bool
	captured       bool
	fadeInComplete bool
	lockErr        error

	modes   []render.Mode
	colors  []model.Colors
	intents []input.Intent
	locks   int
	unlocks int
	pumps   int
}

func newFakeOverlay(clock *manualClock) *fakeOverlay {
	return &fakeOverlay{clock: clock, fade: animation.New(animation.DefaultConfig(), 0xCC, 0xDD)}
}

func (fake *fakeOverlay) IsLocked() bool { return fake.locked }

func (fake *fakeOverlay) Lock() error {
	if fake.lockErr != nil {
		return fake.lockErr
	}
	if !fake.locked {
		fake.locks++
	}
	fake.locked = true
	return nil
}

func (fake *fakeOverlay) Unlock() {
	fake.unlocks++
	fake.locked = false
	fake.captured = false
}

func (fake *fakeOverlay) Pump() error {
	fake.pumps++
	return nil
}

func (fake *fakeOverlay) SetMode(mode render.Mode) { fake.modes = append(fake.modes, mode) }

func (fake *fakeOverlay) SetColors(colors model.Colors) { fake.colors = append(fake.colors, colors) }

func (fake *fakeOverlay) IsFading() bool { return fake.fade.Active() }

func (fake *fakeOverlay) DrainIntents() []input.Intent {
	intents := fake.intents
	fake.intents = nil
	return intents
}

func (fake *fakeOverlay) push(intents ...input.Intent) { fake.intents = append(fake.intents, intents...) }

func (fake *fakeOverlay) lastMode() render.Mode { return fake.modes[len(fake.modes)-1] }

func (fake *fakeOverlay) StartFadeIn() { fake.start(fake.fade.StartIn) }

func (fake *fakeOverlay) StartFadeOut() { fake.start(fake.fade.StartOut) }

func (fake *fakeOverlay) start(begin func(time.Time) (animation.Levels, bool)) {
	if _, started := begin(fake.clock.Now()); started {
		fake.fadeInComplete = false
		fake.captured = false
	}
}

func (fake *fakeOverlay) TakeFadeInComplete() bool {
	done := fake.fadeInComplete
	fake.fadeInComplete = false
	return done
}

func (fake *fakeOverlay) EnsureInputCapture() {
	if fake.locked && !fake.fade.Active() {
		fake.captured = true
	}
}

func (fake *fakeOverlay) UpdateFade() bool {
	if !fake.fade.Active() {
		return false
	}
	frame := fake.fade.Sample(fake.clock.Now())
	if frame.Done && frame.Kind == animation.KindIn {
		fake.fadeInComplete = true
		fake.captured = true
	}
	return frame.Done && frame.Kind == animation.KindOut
}

type fakeCues struct {
	start, end int
}

func (cues *fakeCues) PlayStart() { cues.start++ }
func (cues *fakeCues) PlayEnd()   { cues.end++ }

type fakeJournal struct {
	entries []journal.Entry
}

func (fake *fakeJournal) Record(entry journal.Entry) bool {
	fake.entries = append(fake.entries, entry)
	return true
}

func (fake *fakeJournal) kinds() []journal.Kind {
	kinds := make([]journal.Kind, 0, len(fake.entries))
	for _, entry := range fake.entries {
		kinds = append(kinds, entry.Kind)
	}
	return kinds
}

type fakeSaver struct {
	saves []timekeeper.Snapshot
	err   error
}

func (fake *fakeSaver) Save(snapshot timekeeper.Snapshot) error {
	fake.saves = append(fake.saves, snapshot)
	return fake.err
}

type fakeInhibitors struct {
	active bool
	calls  int
}

func (fake *fakeInhibitors) Inhibited() bool {
	fake.calls++
	return fake.active
}

type harness struct {
	clock      *manualClock
	keeper     *timekeeper.TimeKeeper
	overlay    *fakeOverlay
	events     *mailbox.Mailbox[model.Event]
	cues       *fakeCues
	journal    *fakeJournal
	saver      *fakeSaver
	inhibitors *fakeInhibitors
	statuses   []Status
	runner     *Runner
}

func testSchedulerConfig() model.SchedulerConfig {
	return model.SchedulerConfig{
		Interval:    30 * time.Minute,
		BreakLength: 60 * time.Second,
		SnoozeBase:  300 * time.Second,
		SnoozeMin:   30 * time.Second,
		SnoozeDecay: 0.6,
	}
}

func newHarness(t *testing.T, config model.SchedulerConfig) *harness {
	t.Helper()
	return newHarnessWith(t, func(clock timekeeper.Clock) *timekeeper.TimeKeeper {
		return timekeeper.New(config, clock)
	})
}

// newRestoredHarness starts the loop from a saved snapshot.
func newRestoredHarness(t *testing.T, snapshot timekeeper.Snapshot) *harness {
	t.Helper()
	return newHarnessWith(t, func(clock timekeeper.Clock) *timekeeper.TimeKeeper {
		return timekeeper.Restore(testSchedulerConfig(), clock, snapshot)
	})
}

func newHarnessWith(t *testing.T, keeper func(timekeeper.Clock) *timekeeper.TimeKeeper) *harness {
	t.Helper()
	clock := &manualClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	h := &harness{
		clock:      clock,
		keeper:     keeper(clock),
		overlay:    newFakeOverlay(clock),
		events:     mailbox.New[model.Event](),
		cues:       &fakeCues{},
		journal:    &fakeJournal{},
		saver:      &fakeSaver{},
		inhibitors: &fakeInhibitors{},
	}
	h.runner = New(DefaultConfig(), Deps{
		Keeper:     h.keeper,
		Overlay:    h.overlay,
		Events:     h.events,
		Clock:      clock,
		Cues:       h.cues,
		State:      h.saver,
		Journal:    h.journal,
		Inhibitors: h.inhibitors,
		OnStatus:   func(status Status) { h.statuses = append(h.statuses, status) },
	})
	return h
}

func (h *harness) stepAfter(d time.Duration) time.Duration {
	h.clock.Advance(d)
	return h.runner.Step()
}

// reachOnBreak drives the harness from Working through a complete fade-in.
func (h *harness) reachOnBreak(t *testing.T) {
	t.Helper()
	h.stepAfter(30 * time.Minute)
	require.Equal(t, timekeeper.PhaseLockedAwaitingAction, h.keeper.Phase())
	h.stepAfter(15 * time.Second)
	h.stepAfter(150 * time.Millisecond)
	require.Equal(t, timekeeper.PhaseOnBreak, h.keeper.Phase())
}

func TestFullBreakCycle(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())

	sleep := h.runner.Step()
	assert.Equal(t, DefaultConfig().IdleInterval, sleep)
	assert.False(t, h.overlay.locked)

	sleep = h.stepAfter(30 * time.Minute)
	assert.Equal(t, timekeeper.PhaseLockedAwaitingAction, h.keeper.Phase())
	assert.True(t, h.overlay.locked)
	assert.True(t, h.overlay.IsFading())
	assert.False(t, h.overlay.captured, "no capture while fading in")
	assert.Equal(t, render.BreakDue(300, true), h.overlay.lastMode())
	assert.Equal(t, DefaultConfig().FrameInterval, sleep)

	h.stepAfter(15 * time.Second)
	assert.Equal(t, timekeeper.PhaseLockedAwaitingAction, h.keeper.Phase())
	assert.True(t, h.overlay.captured)

	h.stepAfter(150 * time.Millisecond)
	assert.Equal(t, timekeeper.PhaseOnBreak, h.keeper.Phase())
	assert.Equal(t, 1, h.cues.start)

	h.stepAfter(150 * time.Millisecond)
	assert.Equal(t, render.OnBreak(59), h.overlay.lastMode())
	assert.True(t, h.overlay.captured)

	h.stepAfter(60 * time.Second)
	assert.Equal(t, timekeeper.PhaseBreakFinished, h.keeper.Phase())
	assert.Equal(t, render.BreakFinished(), h.overlay.lastMode())
	assert.Equal(t, 1, h.cues.end)

	h.overlay.push(input.IntentAnyKey)
	h.stepAfter(150 * time.Millisecond)
	assert.True(t, h.overlay.IsFading())
	assert.False(t, h.overlay.captured)
	assert.True(t, h.overlay.locked)

	h.stepAfter(500 * time.Millisecond)
	assert.False(t, h.overlay.locked)
	assert.Equal(t, timekeeper.PhaseWorking, h.keeper.Phase())
	left, ok := h.keeper.TimeLeft()
	require.True(t, ok)
	assert.Equal(t, 30*time.Minute, left)

	assert.Equal(t, []journal.Kind{
		journal.KindBreakDue,
		journal.KindBreakStarted,
		journal.KindBreakCompleted,
		journal.KindDismissed,
	}, h.journal.kinds())
	assert.Equal(t, 1, h.overlay.locks)
}

func TestModeIsPushedOnlyOnChange(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.stepAfter(30 * time.Minute)
	h.stepAfter(time.Second)
	h.stepAfter(time.Second)
	assert.Len(t, h.overlay.modes, 1)
}

func TestSnoozeFromBreakDue(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.stepAfter(30 * time.Minute)
	h.stepAfter(15 * time.Second)

	h.overlay.push(input.IntentSnooze)
	h.stepAfter(100 * time.Millisecond)
	assert.Equal(t, timekeeper.PhaseSnoozing, h.keeper.Phase())
	assert.Equal(t, uint32(1), h.keeper.SnoozeCount())
	assert.True(t, h.overlay.IsFading())
	assert.True(t, h.overlay.locked, "overlay stays up until the fade-out ends")

	h.stepAfter(500 * time.Millisecond)
	assert.False(t, h.overlay.locked)

	entry := h.journal.entries[len(h.journal.entries)-1]
	assert.Equal(t, journal.KindSnoozed, entry.Kind)
	assert.Equal(t, uint32(1), entry.SnoozeCount)
	assert.Equal(t, int64(300), entry.Seconds)

	h.stepAfter(300 * time.Second)
	assert.Equal(t, timekeeper.PhaseLockedAwaitingAction, h.keeper.Phase())
	assert.Equal(t, render.BreakDue(180, true), h.overlay.lastMode())
	assert.Equal(t, 2, h.overlay.locks)
}

func TestSnoozeDuringBreak(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.reachOnBreak(t)

	h.overlay.push(input.IntentSnooze)
	h.stepAfter(100 * time.Millisecond)
	assert.Equal(t, timekeeper.PhaseSnoozing, h.keeper.Phase())
	h.stepAfter(500 * time.Millisecond)
	assert.False(t, h.overlay.locked)
	assert.Equal(t, timekeeper.PhaseSnoozing, h.keeper.Phase(), "a snoozed break does not restart the cycle")
}

func TestSnoozeLimit(t *testing.T) {
	config := testSchedulerConfig()
	config.MaxSnoozes = 1
	h := newHarness(t, config)

	h.stepAfter(30 * time.Minute)
	h.stepAfter(15 * time.Second)
	h.overlay.push(input.IntentSnooze)
	h.stepAfter(100 * time.Millisecond)
	h.stepAfter(500 * time.Millisecond)
	require.Equal(t, timekeeper.PhaseSnoozing, h.keeper.Phase())

	h.stepAfter(300 * time.Second)
	assert.Equal(t, render.BreakDue(180, false), h.overlay.lastMode())
	h.stepAfter(15 * time.Second)
	h.overlay.push(input.IntentSnooze)
	h.stepAfter(100 * time.Millisecond)
	assert.Equal(t, timekeeper.PhaseOnBreak, h.keeper.Phase())
	assert.Equal(t, uint32(1), h.keeper.SnoozeCount())
}

func TestIntentsIgnoredWhileFading(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.stepAfter(30 * time.Minute)

	h.overlay.push(input.IntentSnooze)
	h.stepAfter(time.Second)
	assert.Equal(t, timekeeper.PhaseLockedAwaitingAction, h.keeper.Phase())
	assert.Empty(t, h.overlay.intents, "intents are drained and dropped")

	h.stepAfter(14 * time.Second)
	h.stepAfter(100 * time.Millisecond)
	assert.Equal(t, timekeeper.PhaseOnBreak, h.keeper.Phase())
}

func TestConfirmOnlyDismissesFinishedBreak(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.reachOnBreak(t)

	h.overlay.push(input.IntentConfirm, input.IntentPointerClick, input.IntentAnyKey)
	h.stepAfter(100 * time.Millisecond)
	assert.False(t, h.overlay.IsFading())
	assert.Equal(t, timekeeper.PhaseOnBreak, h.keeper.Phase())

	h.stepAfter(60 * time.Second)
	h.overlay.push(input.IntentPointerClick)
	h.stepAfter(100 * time.Millisecond)
	assert.True(t, h.overlay.IsFading())
}

func TestSessionLockDuringBreak(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.reachOnBreak(t)

	h.events.Send(model.Event{Kind: model.EventSessionLocked})
	h.stepAfter(100 * time.Millisecond)
	assert.Equal(t, timekeeper.PhaseWorking, h.keeper.Phase())
	_, ok := h.keeper.TimeLeft()
	assert.False(t, ok)
	assert.False(t, h.overlay.locked)

	h.stepAfter(2 * time.Hour)
	assert.Equal(t, timekeeper.PhaseWorking, h.keeper.Phase(), "paused while the session is locked")

	h.events.Send(model.Event{Kind: model.EventSessionUnlocked})
	h.stepAfter(time.Second)
	left, ok := h.keeper.TimeLeft()
	require.True(t, ok)
	assert.Equal(t, 30*time.Minute, left)

	kinds := h.journal.kinds()
	assert.Equal(t, []journal.Kind{journal.KindSessionLocked, journal.KindSessionUnlocked}, kinds[len(kinds)-2:])
}

func TestInhibitorPostponesDueBreak(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.inhibitors.active = true

	h.runner.Step()
	assert.Zero(t, h.inhibitors.calls, "no query before the deadline")

	h.stepAfter(30 * time.Minute)
	assert.Equal(t, timekeeper.PhaseWorking, h.keeper.Phase())
	assert.False(t, h.overlay.locked)
	left, ok := h.keeper.TimeLeft()
	require.True(t, ok)
	assert.Equal(t, DefaultConfig().InhibitRecheck, left)

	h.inhibitors.active = false
	h.stepAfter(DefaultConfig().InhibitRecheck)
	assert.Equal(t, timekeeper.PhaseLockedAwaitingAction, h.keeper.Phase())
}

func TestBreakNowAndReload(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	colors := model.DefaultColors()
	reloaded := testSchedulerConfig()
	reloaded.BreakLength = 2 * time.Minute

	h.events.Send(model.Event{Kind: model.EventConfigReloaded, Scheduler: &reloaded, Colors: &colors})
	h.events.Send(model.Event{Kind: model.EventBreakNow})
	h.runner.Step()

	assert.Equal(t, timekeeper.PhaseLockedAwaitingAction, h.keeper.Phase())
	assert.True(t, h.overlay.locked)
	assert.Equal(t, []model.Colors{colors}, h.overlay.colors)
	assert.Equal(t, 2*time.Minute, h.keeper.Config().BreakLength)
}

func TestLockFailureRetries(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.overlay.lockErr = errors.New("compositor gone")

	h.stepAfter(30 * time.Minute)
	assert.False(t, h.overlay.locked)
	assert.Equal(t, timekeeper.PhaseLockedAwaitingAction, h.keeper.Phase())

	h.overlay.lockErr = nil
	h.stepAfter(time.Second)
	assert.True(t, h.overlay.locked)
	assert.True(t, h.overlay.IsFading(), "fade-in starts once the overlay is up")
	assert.NotEmpty(t, h.overlay.modes)
}

func TestStateSaveCadence(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	for i := 0; i < 10; i++ {
		h.stepAfter(150 * time.Millisecond)
	}
	// Saves at 0.15s, 1.2s.
	assert.Len(t, h.saver.saves, 2)

	h.saver.err = errors.New("disk full")
	h.stepAfter(time.Second)
	assert.Len(t, h.saver.saves, 3)
}

func TestStatusPublishing(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.runner.Step()
	h.stepAfter(150 * time.Millisecond)
	require.Len(t, h.statuses, 1)
	assert.Equal(t, timekeeper.PhaseWorking, h.statuses[0].Phase)
	assert.True(t, h.statuses[0].HasDeadline)

	h.stepAfter(30 * time.Minute)
	require.Len(t, h.statuses, 2)
	assert.Equal(t, timekeeper.PhaseLockedAwaitingAction, h.statuses[1].Phase)
	assert.False(t, h.statuses[1].HasDeadline)
}

func TestQuitStopsRun(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.events.Send(model.Event{Kind: model.EventQuit})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.runner.Run(ctx))
	assert.True(t, h.runner.Done())
	assert.NotEmpty(t, h.saver.saves, "final state is saved")
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.runner.Run(ctx))
	assert.False(t, h.runner.Done())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "30:00", formatDuration(30*time.Minute))
	assert.Equal(t, "01:05", formatDuration(65*time.Second))
	assert.Equal(t, "00:00", formatDuration(-time.Second))
}

func TestPumpsEveryStep(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.runner.Step()
	h.stepAfter(time.Second)
	assert.Equal(t, 2, h.overlay.pumps)
}

func TestRestoredFinishedBreakCapturesInput(t *testing.T) {
	h := newRestoredHarness(t, timekeeper.Snapshot{Phase: timekeeper.PhaseBreakFinished})

	h.runner.Step()
	require.True(t, h.overlay.locked)
	assert.False(t, h.overlay.IsFading())
	assert.True(t, h.overlay.captured)
	assert.Equal(t, render.BreakFinished(), h.overlay.lastMode())

	h.overlay.push(input.IntentConfirm)
	h.stepAfter(150 * time.Millisecond)
	assert.True(t, h.overlay.IsFading())
	assert.False(t, h.overlay.captured)

	h.stepAfter(500 * time.Millisecond)
	assert.False(t, h.overlay.locked)
	assert.Equal(t, timekeeper.PhaseWorking, h.keeper.Phase())
	assert.Contains(t, h.journal.kinds(), journal.KindDismissed)
}

func TestRelockedFinishedBreakCapturesInput(t *testing.T) {
	h := newHarness(t, testSchedulerConfig())
	h.reachOnBreak(t)
	h.stepAfter(60 * time.Second)
	require.Equal(t, timekeeper.PhaseBreakFinished, h.keeper.Phase())

	// The compositor closed the surfaces.
	h.overlay.locked = false
	h.overlay.captured = false

	h.stepAfter(150 * time.Millisecond)
	assert.True(t, h.overlay.locked)
	assert.True(t, h.overlay.captured)
}
