package tray

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"interlude/internal/core/runner"
	"interlude/internal/core/timekeeper"
)

func TestStatusText(t *testing.T) {
	tests := []struct {
		name   string
		status runner.Status
		want   string
	}{
		{"working", runner.Status{Phase: timekeeper.PhaseWorking, Left: 12*time.Minute + 34*time.Second, HasDeadline: true}, "next break in 12:34"},
		{"paused", runner.Status{Phase: timekeeper.PhaseWorking}, "paused (session locked)"},
		{"snoozing", runner.Status{Phase: timekeeper.PhaseSnoozing, Left: 3 * time.Minute, HasDeadline: true, SnoozeCount: 2}, "snoozed (2), break in 03:00"},
		{"due", runner.Status{Phase: timekeeper.PhaseLockedAwaitingAction}, "break due"},
		{"on break", runner.Status{Phase: timekeeper.PhaseOnBreak, Left: 42 * time.Second, HasDeadline: true}, "on break, 00:42 left"},
		{"finished", runner.Status{Phase: timekeeper.PhaseBreakFinished}, "break finished"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusText(tt.status))
		})
	}
}

func TestCanBreakNow(t *testing.T) {
	assert.True(t, CanBreakNow(timekeeper.PhaseWorking))
	assert.True(t, CanBreakNow(timekeeper.PhaseSnoozing))
	assert.False(t, CanBreakNow(timekeeper.PhaseOnBreak))
	assert.False(t, CanBreakNow(timekeeper.PhaseBreakFinished))
}

func TestSetStatusBeforeReady(t *testing.T) {
	manager := New("Interlude", nil, Callbacks{})
	manager.SetStatus(runner.Status{Phase: timekeeper.PhaseOnBreak})
	assert.True(t, manager.hasStatus)
	assert.False(t, manager.ready)
}
