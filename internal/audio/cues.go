// Package audio plays the short chimes that bracket a break.
package audio

import "interlude/internal/logger"

// Cues are fire-and-forget notification sounds.
type Cues interface {
	PlayStart()
	PlayEnd()
}

// Compile-time interface checks.
var (
	_ Cues = (*Player)(nil)
	_ Cues = (*NoOp)(nil)
)

// NoOp plays nothing. Used when audio is disabled or no device exists.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a silent cue player.
func NewNoOp(log *logger.Logger) *NoOp {
	if log == nil {
		log = logger.Discard()
	}
	return &NoOp{log: log}
}

func (n *NoOp) PlayStart() { n.log.Debug("audio no-op: break start cue") }

func (n *NoOp) PlayEnd() { n.log.Debug("audio no-op: break end cue") }

// New returns a device-backed player, or NoOp with a warning when the
// device cannot be opened.
func New(log *logger.Logger) Cues {
	player, err := NewPlayer(log)
	if err != nil {
		log.Warn("audio unavailable, cues disabled: %v", err)
		return NewNoOp(log)
	}
	return player
}
