//go:build linux

package platform

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const autostartDirName = "autostart"

// ErrEmptyAppName is returned when no application name is given.
var ErrEmptyAppName = errors.New("app name is empty")

// execReserved are the characters that force quoting of an Exec argument.
const execReserved = " \t\n\"'\\><~|&;$*?#()`"

// AutostartPath returns $XDG_CONFIG_HOME/autostart/<app>.desktop.
func (service *platformService) AutostartPath(appName string) (string, error) {
	name, err := desktopFileName(appName)
	if err != nil {
		return "", err
	}
	configDir, err := service.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, autostartDirName, name), nil
}

// EnableAutostart writes the desktop entry through a temporary file so a
// session starting concurrently never reads half an entry.
func (service *platformService) EnableAutostart(appName string, command []string) error {
	if len(command) == 0 || command[0] == "" {
		return errors.New("enable autostart: command is empty")
	}
	path, err := service.AutostartPath(appName)
	if err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("enable autostart: create autostart dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(buildDesktopEntry(appName, command)), 0o644); err != nil {
		return fmt.Errorf("enable autostart: write desktop entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("enable autostart: install desktop entry: %w", err)
	}
	return nil
}

func (service *platformService) DisableAutostart(appName string) error {
	path, err := service.AutostartPath(appName)
	if err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disable autostart: remove desktop entry: %w", err)
	}
	return nil
}

func (service *platformService) AutostartEnabled(appName string) (bool, error) {
	path, err := service.AutostartPath(appName)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read desktop entry: %w", err)
	}
	return entryEnabled(data), nil
}

// entryEnabled looks at the [Desktop Entry] group only. Session managers
// skip entries marked Hidden and GNOME honours its own switch.
func entryEnabled(data []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	inMain := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inMain = line == "[Desktop Entry]"
			continue
		}
		if !inMain {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch {
		case key == "Hidden" && value == "true":
			return false
		case key == "X-GNOME-Autostart-enabled" && value == "false":
			return false
		}
	}
	return true
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}

func desktopFileName(appName string) (string, error) {
	name := strings.TrimSpace(appName)
	if name == "" {
		return "", ErrEmptyAppName
	}
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")
	return name + ".desktop", nil
}

func buildDesktopEntry(appName string, command []string) string {
	return fmt.Sprintf(
		`[Desktop Entry]
Type=Application
Name=%s
Comment=Scheduled break reminders for Wayland sessions
Exec=%s
Icon=%s
X-GNOME-Autostart-enabled=true
NoDisplay=true
Terminal=false
`,
		displayName(appName),
		desktopExec(command),
		strings.ToLower(strings.TrimSpace(appName)),
	)
}

// desktopExec joins command into an Exec value. Arguments containing
// reserved characters are double quoted with ", `, $ and \ escaped, and a
// literal % is doubled so it is not read as a field code. The string-level
// backslash escape of the key file format is applied last.
func desktopExec(command []string) string {
	args := make([]string, 0, len(command))
	for _, arg := range command {
		arg = strings.ReplaceAll(arg, "%", "%%")
		if arg == "" || strings.ContainsAny(arg, execReserved) {
			var quoted strings.Builder
			quoted.WriteByte('"')
			for _, r := range arg {
				if strings.ContainsRune("\"`$\\", r) {
					quoted.WriteByte('\\')
				}
				quoted.WriteRune(r)
			}
			quoted.WriteByte('"')
			arg = quoted.String()
		}
		args = append(args, arg)
	}
	return strings.ReplaceAll(strings.Join(args, " "), `\`, `\\`)
}

func displayName(appName string) string {
	name := strings.TrimSpace(appName)
	if name == "" {
		return "Interlude"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
