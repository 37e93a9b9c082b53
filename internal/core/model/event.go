package model

// EventKind identifies a notification posted to the orchestration loop.
type EventKind string

const (
	EventSessionLocked   EventKind = "session_locked"
	EventSessionUnlocked EventKind = "session_unlocked"
	EventConfigReloaded  EventKind = "config_reloaded"
	EventBreakNow        EventKind = "break_now"
	EventQuit            EventKind = "quit"
)

// Event is produced by background collaborators and drained once per tick.
type Event struct {
	Kind EventKind
	// Scheduler and Colors are set for EventConfigReloaded.
	Scheduler *SchedulerConfig
	Colors    *Colors
}
