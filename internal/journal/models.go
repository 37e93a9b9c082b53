package journal

import "time"

// Kind names a journal entry type.
type Kind string

const (
	KindBreakDue        Kind = "break_due"
	KindBreakStarted    Kind = "break_started"
	KindBreakCompleted  Kind = "break_completed"
	KindSnoozed         Kind = "snoozed"
	KindDismissed       Kind = "dismissed"
	KindSessionLocked   Kind = "session_locked"
	KindSessionUnlocked Kind = "session_unlocked"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{
	KindBreakDue,
	KindBreakStarted,
	KindBreakCompleted,
	KindSnoozed,
	KindDismissed,
	KindSessionLocked,
	KindSessionUnlocked,
}

// Entry is one recorded scheduler event.
type Entry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	At          time.Time `gorm:"not null;index" json:"at"`
	Kind        Kind      `gorm:"not null;index" json:"kind"`
	SnoozeCount uint32    `gorm:"not null;default:0" json:"snooze_count"`
	// Seconds is the break length, snooze length or next interval that the
	// event announced.
	Seconds   int64     `gorm:"not null;default:0" json:"seconds"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Summary aggregates entries of one kind.
type Summary struct {
	Kind         Kind  `json:"kind"`
	Count        int64 `json:"count"`
	TotalSeconds int64 `json:"total_seconds"`
}

// Period is a reporting window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"`
}
