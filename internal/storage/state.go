package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"interlude/internal/core/timekeeper"
)

const (
	stateFileName = "state.txt"
	// SaveInterval is how often the loop persists scheduler state.
	SaveInterval = time.Second
)

// ErrNoState is returned by Load when there is no usable saved state.
var ErrNoState = errors.New("no saved scheduler state")

// DefaultStateDir resolves the directory holding runtime state.
func DefaultStateDir(appName string) (string, error) {
	if dir := os.Getenv("INTERLUDE_STATE_DIR"); dir != "" {
		return dir, nil
	}
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", appName), nil
}

// StateStore persists a scheduler snapshot as key=value lines.
type StateStore struct {
	path string
	// Now supplies the wall clock; tests replace it.
	Now func() time.Time
}

// NewStateStore creates a store writing state.txt inside dir.
func NewStateStore(dir string) *StateStore {
	return &StateStore{
		path: filepath.Join(dir, stateFileName),
		Now:  time.Now,
	}
}

// Path returns the state file location.
func (store *StateStore) Path() string {
	return store.path
}

// Save writes the snapshot through a temp file and rename.
func (store *StateStore) Save(snapshot timekeeper.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(store.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	remaining := "none"
	if snapshot.HasRemaining {
		remaining = strconv.FormatInt(int64(snapshot.Remaining/time.Second), 10)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "phase=%s\n", snapshot.Phase)
	fmt.Fprintf(&buf, "remaining=%s\n", remaining)
	fmt.Fprintf(&buf, "snooze_count=%d\n", snapshot.SnoozeCount)
	fmt.Fprintf(&buf, "saved_at=%d\n", store.Now().Unix())

	return writeFileAtomic(store.path, buf.Bytes(), 0o644)
}

// Load reads the saved snapshot and subtracts the wall-clock time elapsed
// since it was written. Any read or parse problem yields ErrNoState.
func (store *StateStore) Load() (timekeeper.Snapshot, error) {
	data, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return timekeeper.Snapshot{}, ErrNoState
		}
		return timekeeper.Snapshot{}, fmt.Errorf("%w: read state file: %v", ErrNoState, err)
	}

	snapshot, savedAt, err := parseState(data)
	if err != nil {
		return timekeeper.Snapshot{}, fmt.Errorf("%w: %v", ErrNoState, err)
	}

	now := store.Now().Unix()
	if savedAt < 0 {
		savedAt = now
	}
	if snapshot.HasRemaining {
		elapsed := max(now-savedAt, 0)
		remaining := max(int64(snapshot.Remaining/time.Second)-elapsed, 0)
		snapshot.Remaining = time.Duration(remaining) * time.Second
	}
	return snapshot, nil
}

// Clear removes the state file.
func (store *StateStore) Clear() error {
	if err := os.Remove(store.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}

func parseState(data []byte) (timekeeper.Snapshot, int64, error) {
	var (
		snapshot  timekeeper.Snapshot
		havePhase bool
		savedAt   int64 = -1
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return snapshot, 0, fmt.Errorf("malformed line %q", line)
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "phase":
			snapshot.Phase, havePhase = timekeeper.ParsePhase(value)
		case "remaining":
			if value == "none" {
				snapshot.HasRemaining = false
				continue
			}
			if seconds, err := strconv.ParseUint(value, 10, 63); err == nil {
				snapshot.Remaining = time.Duration(seconds) * time.Second
				snapshot.HasRemaining = true
			}
		case "snooze_count":
			if count, err := strconv.ParseUint(value, 10, 32); err == nil {
				snapshot.SnoozeCount = uint32(count)
			}
		case "saved_at":
			if at, err := strconv.ParseInt(value, 10, 64); err == nil {
				savedAt = at
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return snapshot, 0, err
	}
	if !havePhase {
		return snapshot, 0, errors.New("missing or unknown phase")
	}
	if snapshot.Phase.HasDeadline() && !snapshot.HasRemaining {
		return snapshot, 0, fmt.Errorf("phase %s saved without remaining time", snapshot.Phase)
	}
	return snapshot, savedAt, nil
}
