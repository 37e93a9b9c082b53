package animation

import "time"

// DefaultConfig returns a slow darkening fade-in and a quick fade-out.
func DefaultConfig() Config {
	return Config{
		FadeIn:     15 * time.Second,
		FadeOut:    500 * time.Millisecond,
		TextWindow: 3 * time.Second,
	}
}

func (config Config) normalized() Config {
	defaults := DefaultConfig()
	if config.FadeIn <= 0 {
		config.FadeIn = defaults.FadeIn
	}
	if config.FadeOut <= 0 {
		config.FadeOut = defaults.FadeOut
	}
	if config.TextWindow <= 0 || config.TextWindow > config.FadeIn {
		config.TextWindow = min(defaults.TextWindow, config.FadeIn)
	}
	return config
}
