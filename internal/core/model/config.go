package model

import "time"

// SchedulerConfig contains the fully resolved settings for the break cycle.
type SchedulerConfig struct {
	Interval        time.Duration
	InitialInterval time.Duration
	BreakLength     time.Duration
	InitialBreak    time.Duration

	SnoozeBase  time.Duration
	SnoozeMin   time.Duration
	SnoozeDecay float64
	// MaxSnoozes limits snoozes per cycle. Zero means unlimited.
	MaxSnoozes uint32
}

// DefaultSchedulerConfig returns the stock 30 minute / 60 second cycle.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:    30 * time.Minute,
		BreakLength: 60 * time.Second,
		SnoozeBase:  300 * time.Second,
		SnoozeMin:   30 * time.Second,
		SnoozeDecay: 0.6,
	}
}

// FirstInterval is the work interval used once at process start.
func (config SchedulerConfig) FirstInterval() time.Duration {
	if config.InitialInterval > 0 {
		return config.InitialInterval
	}
	return config.Interval
}

// FirstBreak is the break length used for the first break of the process.
func (config SchedulerConfig) FirstBreak() time.Duration {
	if config.InitialBreak > 0 {
		return config.InitialBreak
	}
	return config.BreakLength
}

// Colors holds the overlay background and foreground colors.
type Colors struct {
	Background RGBA
	Foreground RGBA
}

// DefaultColors returns a translucent black background with off-white text.
func DefaultColors() Colors {
	return Colors{
		Background: RGBA{0x00, 0x00, 0x00, 0xCC},
		Foreground: RGBA{0xFF, 0xFF, 0xFD, 0xDD},
	}
}
