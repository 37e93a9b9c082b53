package preferences

import (
	"errors"
	"fmt"
	"time"

	"interlude/internal/core/model"
	"interlude/internal/ui/animation"
)

// Settings defines editable user preferences.
type Settings struct {
	Interval        time.Duration
	InitialInterval time.Duration
	BreakLength     time.Duration
	InitialBreak    time.Duration
	SnoozeBase      time.Duration
	SnoozeMin       time.Duration
	SnoozeDecay     float64
	MaxSnoozes      uint32

	Background string
	Foreground string
	FadeFPS    int
	FadeIn     time.Duration
	FadeOut    time.Duration

	Audio             bool
	Tray              bool
	Journal           bool
	RespectInhibitors bool
}

// DefaultSettings returns default settings for interlude.
func DefaultSettings() Settings {
	scheduler := model.DefaultSchedulerConfig()
	colors := model.DefaultColors()
	fade := animation.DefaultConfig()
	return Settings{
		Interval:    scheduler.Interval,
		BreakLength: scheduler.BreakLength,
		SnoozeBase:  scheduler.SnoozeBase,
		SnoozeMin:   scheduler.SnoozeMin,
		SnoozeDecay: scheduler.SnoozeDecay,

		Background: colors.Background.Hex(),
		Foreground: colors.Foreground.Hex(),
		FadeFPS:    60,
		FadeIn:     fade.FadeIn,
		FadeOut:    fade.FadeOut,

		Audio:             true,
		RespectInhibitors: true,
	}
}

// Validate reports the first setting that cannot drive the scheduler.
func (settings Settings) Validate() error {
	if settings.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", settings.Interval)
	}
	if settings.BreakLength <= 0 {
		return fmt.Errorf("break length must be positive, got %v", settings.BreakLength)
	}
	if settings.InitialInterval < 0 || settings.InitialBreak < 0 {
		return errors.New("initial interval and initial break cannot be negative")
	}
	if settings.SnoozeBase < 0 || settings.SnoozeMin < 0 {
		return errors.New("snooze durations cannot be negative")
	}
	if settings.SnoozeDecay <= 0 || settings.SnoozeDecay >= 1 {
		return fmt.Errorf("snooze decay must be between 0 and 1, got %v", settings.SnoozeDecay)
	}
	if settings.FadeFPS < 1 {
		return fmt.Errorf("fade fps must be at least 1, got %d", settings.FadeFPS)
	}
	return nil
}

// SchedulerConfig converts settings to the scheduler configuration.
func (settings Settings) SchedulerConfig() model.SchedulerConfig {
	return model.SchedulerConfig{
		Interval:        settings.Interval,
		InitialInterval: settings.InitialInterval,
		BreakLength:     settings.BreakLength,
		InitialBreak:    settings.InitialBreak,
		SnoozeBase:      settings.SnoozeBase,
		SnoozeMin:       settings.SnoozeMin,
		SnoozeDecay:     settings.SnoozeDecay,
		MaxSnoozes:      settings.MaxSnoozes,
	}
}

// Colors parses the configured colors. A color that fails to parse is
// replaced by its default and reported in the returned error.
func (settings Settings) Colors() (model.Colors, error) {
	colors := model.DefaultColors()
	var errs []error
	if background, err := model.ParseColor(settings.Background); err == nil {
		colors.Background = background
	} else {
		errs = append(errs, fmt.Errorf("background: %w", err))
	}
	if foreground, err := model.ParseColor(settings.Foreground); err == nil {
		colors.Foreground = foreground
	} else {
		errs = append(errs, fmt.Errorf("foreground: %w", err))
	}
	return colors, errors.Join(errs...)
}

// FadeConfig converts settings to fade timings.
func (settings Settings) FadeConfig() animation.Config {
	config := animation.DefaultConfig()
	if settings.FadeIn > 0 {
		config.FadeIn = settings.FadeIn
	}
	if settings.FadeOut > 0 {
		config.FadeOut = settings.FadeOut
	}
	return config
}

// FrameInterval is the loop sleep while a fade is running.
func (settings Settings) FrameInterval() time.Duration {
	fps := max(settings.FadeFPS, 1)
	return time.Second / time.Duration(fps)
}
