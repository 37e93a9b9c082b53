package platform

import (
	"fmt"
	"os"
)

// Service defines the session integration needed by the daemon.
type Service interface {
	GetConfigDir() (string, error)
	// AutostartPath is where the autostart entry for appName lives.
	AutostartPath(appName string) (string, error)
	// EnableAutostart installs an entry that runs command, executable first,
	// when the desktop session starts.
	EnableAutostart(appName string, command []string) error
	DisableAutostart(appName string) error
	// AutostartEnabled reports whether an entry exists and is not hidden or
	// switched off.
	AutostartEnabled(appName string) (bool, error)
}

type platformService struct{}

// NewService returns a platform-specific implementation.
func NewService() Service {
	return &platformService{}
}

// GetConfigDir returns $XDG_CONFIG_HOME, falling back to ~/.config.
func (service *platformService) GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(homeDir), nil
}
