package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"interlude/internal/ui/preferences"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	IntervalMinutes        int     `yaml:"interval_minutes"`
	InitialIntervalMinutes int     `yaml:"initial_interval_minutes,omitempty"`
	BreakSeconds           int     `yaml:"break_seconds"`
	InitialBreakSeconds    int     `yaml:"initial_break_seconds,omitempty"`
	SnoozeBaseSeconds      int     `yaml:"snooze_base_seconds"`
	SnoozeMinSeconds       int     `yaml:"snooze_min_seconds"`
	SnoozeDecay            float64 `yaml:"snooze_decay"`
	MaxSnoozes             int     `yaml:"max_snoozes"`

	Background    string `yaml:"background"`
	Foreground    string `yaml:"foreground"`
	FadeFPS       int    `yaml:"fade_fps"`
	FadeInSeconds int    `yaml:"fade_in_seconds"`
	FadeOutMillis int    `yaml:"fade_out_millis"`

	Audio             *bool `yaml:"audio"`
	Tray              *bool `yaml:"tray"`
	Journal           *bool `yaml:"journal"`
	RespectInhibitors *bool `yaml:"respect_inhibitors"`
}

// DefaultSettingsPath returns the settings file location for appName.
func DefaultSettingsPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

// LoadSettings reads user preferences from YAML.
// If the file does not exist, default settings are returned.
func LoadSettings(path string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func SaveSettings(path string, settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		IntervalMinutes:        int(settings.Interval / time.Minute),
		InitialIntervalMinutes: int(settings.InitialInterval / time.Minute),
		BreakSeconds:           int(settings.BreakLength / time.Second),
		InitialBreakSeconds:    int(settings.InitialBreak / time.Second),
		SnoozeBaseSeconds:      int(settings.SnoozeBase / time.Second),
		SnoozeMinSeconds:       int(settings.SnoozeMin / time.Second),
		SnoozeDecay:            settings.SnoozeDecay,
		MaxSnoozes:             int(settings.MaxSnoozes),

		Background:    settings.Background,
		Foreground:    settings.Foreground,
		FadeFPS:       settings.FadeFPS,
		FadeInSeconds: int(settings.FadeIn / time.Second),
		FadeOutMillis: int(settings.FadeOut / time.Millisecond),

		Audio:             &settings.Audio,
		Tray:              &settings.Tray,
		Journal:           &settings.Journal,
		RespectInhibitors: &settings.RespectInhibitors,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	return writeFileAtomic(path, serialized, 0o644)
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if fileData.IntervalMinutes > 0 {
		settings.Interval = time.Duration(fileData.IntervalMinutes) * time.Minute
	}
	if fileData.InitialIntervalMinutes > 0 {
		settings.InitialInterval = time.Duration(fileData.InitialIntervalMinutes) * time.Minute
	}
	if fileData.BreakSeconds > 0 {
		settings.BreakLength = time.Duration(fileData.BreakSeconds) * time.Second
	}
	if fileData.InitialBreakSeconds > 0 {
		settings.InitialBreak = time.Duration(fileData.InitialBreakSeconds) * time.Second
	}
	if fileData.SnoozeBaseSeconds > 0 {
		settings.SnoozeBase = time.Duration(fileData.SnoozeBaseSeconds) * time.Second
	}
	if fileData.SnoozeMinSeconds > 0 {
		settings.SnoozeMin = time.Duration(fileData.SnoozeMinSeconds) * time.Second
	}
	if fileData.SnoozeDecay > 0 && fileData.SnoozeDecay < 1 {
		settings.SnoozeDecay = fileData.SnoozeDecay
	}
	if fileData.MaxSnoozes >= 0 {
		settings.MaxSnoozes = uint32(fileData.MaxSnoozes)
	}

	if fileData.Background != "" {
		settings.Background = fileData.Background
	}
	if fileData.Foreground != "" {
		settings.Foreground = fileData.Foreground
	}
	if fileData.FadeFPS >= 1 {
		settings.FadeFPS = fileData.FadeFPS
	}
	if fileData.FadeInSeconds > 0 {
		settings.FadeIn = time.Duration(fileData.FadeInSeconds) * time.Second
	}
	if fileData.FadeOutMillis > 0 {
		settings.FadeOut = time.Duration(fileData.FadeOutMillis) * time.Millisecond
	}

	if fileData.Audio != nil {
		settings.Audio = *fileData.Audio
	}
	if fileData.Tray != nil {
		settings.Tray = *fileData.Tray
	}
	if fileData.Journal != nil {
		settings.Journal = *fileData.Journal
	}
	if fileData.RespectInhibitors != nil {
		settings.RespectInhibitors = *fileData.RespectInhibitors
	}
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
