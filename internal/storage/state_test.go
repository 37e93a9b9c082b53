package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interlude/internal/core/model"
	"interlude/internal/core/timekeeper"
)

type fixedClock struct{ now time.Time }

func (clock *fixedClock) Now() time.Time { return clock.now }

func newStore(t *testing.T, wall *time.Time) *StateStore {
	t.Helper()
	store := NewStateStore(t.TempDir())
	store.Now = func() time.Time { return *wall }
	return store
}

func TestStateRoundTripZeroElapsed(t *testing.T) {
	wall := time.Unix(1_700_000_000, 0)
	store := newStore(t, &wall)
	clock := &fixedClock{now: wall}

	cfg := model.DefaultSchedulerConfig()
	keeper := timekeeper.New(cfg, clock)
	keeper.Snooze()
	keeper.Snooze()
	clock.now = clock.now.Add(20 * time.Second)

	require.NoError(t, store.Save(keeper.Snapshot()))

	snapshot, err := store.Load()
	require.NoError(t, err)
	restored := timekeeper.Restore(cfg, clock, snapshot)

	assert.Equal(t, keeper.Phase(), restored.Phase())
	assert.Equal(t, keeper.SnoozeCount(), restored.SnoozeCount())
	want, _ := keeper.TimeLeft()
	got, ok := restored.TimeLeft()
	require.True(t, ok)
	assert.InDelta(t, want.Seconds(), got.Seconds(), 1)
}

func TestStateElapsedAdvancesPhase(t *testing.T) {
	wall := time.Unix(1_700_000_000, 0)
	store := newStore(t, &wall)

	require.NoError(t, store.Save(timekeeper.Snapshot{
		Phase:        timekeeper.PhaseWorking,
		Remaining:    5 * time.Second,
		HasRemaining: true,
	}))
	wall = wall.Add(10 * time.Second)

	snapshot, err := store.Load()
	require.NoError(t, err)
	assert.Zero(t, snapshot.Remaining)

	keeper := timekeeper.Restore(model.DefaultSchedulerConfig(), &fixedClock{now: wall}, snapshot)
	assert.Equal(t, timekeeper.PhaseLockedAwaitingAction, keeper.Phase())
	_, ok := keeper.TimeLeft()
	assert.False(t, ok)
}

func TestStateFileFormat(t *testing.T) {
	wall := time.Unix(1_700_000_123, 0)
	store := newStore(t, &wall)

	require.NoError(t, store.Save(timekeeper.Snapshot{Phase: timekeeper.PhaseBreakFinished, SnoozeCount: 2}))
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "phase=BreakFinished\nremaining=none\nsnooze_count=2\nsaved_at=1700000123\n", string(data))

	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStateLoadRejectsBadFiles(t *testing.T) {
	wall := time.Unix(1_700_000_000, 0)
	cases := map[string]string{
		"missing equals": "phase=Working\ngarbage\n",
		"unknown phase":  "phase=Paused\nremaining=10\n",
		"no phase":       "remaining=10\n",
		"no remaining":   "phase=OnBreak\nremaining=none\n",
	}
	for name, body := range cases {
		store := newStore(t, &wall)
		require.NoError(t, os.WriteFile(store.Path(), []byte(body), 0o644))
		_, err := store.Load()
		assert.ErrorIs(t, err, ErrNoState, name)
	}

	store := newStore(t, &wall)
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoState)
}

func TestStateLoadToleratesMissingSavedAt(t *testing.T) {
	wall := time.Unix(1_700_000_000, 0)
	store := newStore(t, &wall)
	require.NoError(t, os.WriteFile(store.Path(), []byte("phase=Snoozing\nremaining=40\nsnooze_count=1\nextra=1\n"), 0o644))

	snapshot, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, timekeeper.PhaseSnoozing, snapshot.Phase)
	assert.Equal(t, 40*time.Second, snapshot.Remaining)
	assert.EqualValues(t, 1, snapshot.SnoozeCount)
}

func TestStateClear(t *testing.T) {
	wall := time.Unix(1_700_000_000, 0)
	store := newStore(t, &wall)
	require.NoError(t, store.Clear())
	require.NoError(t, store.Save(timekeeper.Snapshot{Phase: timekeeper.PhaseLockedAwaitingAction}))
	require.NoError(t, store.Clear())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoState)
}

func TestDefaultStateDir(t *testing.T) {
	t.Setenv("INTERLUDE_STATE_DIR", "")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")
	dir, err := DefaultStateDir("interlude")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg-state", "interlude"), dir)

	t.Setenv("INTERLUDE_STATE_DIR", "/srv/state")
	dir, err = DefaultStateDir("interlude")
	require.NoError(t, err)
	assert.Equal(t, "/srv/state", dir)

	t.Setenv("INTERLUDE_STATE_DIR", "")
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/home/tester")
	dir, err = DefaultStateDir("interlude")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.local/state/interlude", dir)
}
