package preferences

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interlude/internal/core/model"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	settings := DefaultSettings()
	require.NoError(t, settings.Validate())

	cfg := settings.SchedulerConfig()
	assert.Equal(t, 30*time.Minute, cfg.Interval)
	assert.Equal(t, time.Minute, cfg.BreakLength)
	assert.Equal(t, 0.6, cfg.SnoozeDecay)
	assert.Zero(t, cfg.MaxSnoozes)

	colors, err := settings.Colors()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultColors(), colors)
	assert.Equal(t, time.Second/60, settings.FrameInterval())
}

func TestValidateRejects(t *testing.T) {
	mutations := map[string]func(*Settings){
		"zero interval":   func(s *Settings) { s.Interval = 0 },
		"zero break":      func(s *Settings) { s.BreakLength = 0 },
		"decay one":       func(s *Settings) { s.SnoozeDecay = 1 },
		"decay zero":      func(s *Settings) { s.SnoozeDecay = 0 },
		"fps zero":        func(s *Settings) { s.FadeFPS = 0 },
		"negative snooze": func(s *Settings) { s.SnoozeMin = -time.Second },
	}
	for name, mutate := range mutations {
		settings := DefaultSettings()
		mutate(&settings)
		assert.Error(t, settings.Validate(), name)
	}
}

func TestColorsFallBackPerField(t *testing.T) {
	settings := DefaultSettings()
	settings.Background = "#102030"
	settings.Foreground = "white"

	colors, err := settings.Colors()
	assert.Error(t, err)
	assert.Equal(t, model.RGBA{0x10, 0x20, 0x30, 0xFF}, colors.Background)
	assert.Equal(t, model.DefaultColors().Foreground, colors.Foreground)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"INTERLUDE_INTERVAL_MINUTES": "45",
		"INTERLUDE_BREAK_SECONDS":    "nope",
		"INTERLUDE_BACKGROUND":       "#222",
		"INTERLUDE_AUDIO":            "false",
	}
	settings := DefaultSettings()
	applyEnv(&settings, func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	})

	assert.Equal(t, 45*time.Minute, settings.Interval)
	assert.Equal(t, time.Minute, settings.BreakLength)
	assert.Equal(t, "#222", settings.Background)
	assert.False(t, settings.Audio)
}

func TestFadeConfig(t *testing.T) {
	settings := DefaultSettings()
	settings.FadeIn = 4 * time.Second
	settings.FadeOut = 0
	cfg := settings.FadeConfig()
	assert.Equal(t, 4*time.Second, cfg.FadeIn)
	assert.Equal(t, 500*time.Millisecond, cfg.FadeOut)
}
