package preferences

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv applies INTERLUDE_* environment overrides on top of settings.
// Values that do not parse are ignored.
func LoadFromEnv(settings *Settings) {
	applyEnv(settings, os.LookupEnv)
}

func applyEnv(settings *Settings, lookup func(string) (string, bool)) {
	if value, ok := lookup("INTERLUDE_INTERVAL_MINUTES"); ok {
		if minutes, err := strconv.Atoi(value); err == nil && minutes > 0 {
			settings.Interval = time.Duration(minutes) * time.Minute
		}
	}
	if value, ok := lookup("INTERLUDE_BREAK_SECONDS"); ok {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			settings.BreakLength = time.Duration(seconds) * time.Second
		}
	}
	if value, ok := lookup("INTERLUDE_BACKGROUND"); ok && value != "" {
		settings.Background = value
	}
	if value, ok := lookup("INTERLUDE_FOREGROUND"); ok && value != "" {
		settings.Foreground = value
	}
	if value, ok := lookup("INTERLUDE_AUDIO"); ok {
		if enabled, err := strconv.ParseBool(value); err == nil {
			settings.Audio = enabled
		}
	}
}
