package tray

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/systray"

	"interlude/internal/core/runner"
	"interlude/internal/core/timekeeper"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnBreakNow    func()
	OnPreferences func()
	OnQuit        func()
}

// Manager handles system tray state.
type Manager struct {
	title     string
	icon      []byte
	callbacks Callbacks

	mu         sync.Mutex
	ready      bool
	status     runner.Status
	hasStatus  bool
	statusItem *systray.MenuItem
	breakItem  *systray.MenuItem
}

// New creates a tray manager. icon is PNG data.
func New(title string, icon []byte, callbacks Callbacks) *Manager {
	return &Manager{
		title:     title,
		icon:      icon,
		callbacks: callbacks,
	}
}

// Run shows the tray icon and blocks until Quit is called.
func (manager *Manager) Run() {
	systray.Run(manager.onReady, nil)
}

// Quit removes the tray icon and makes Run return.
func (manager *Manager) Quit() {
	systray.Quit()
}

// SetStatus updates the status line. It is safe to call from any goroutine,
// including before the tray is ready.
func (manager *Manager) SetStatus(status runner.Status) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.status = status
	manager.hasStatus = true
	if manager.ready {
		manager.refresh()
	}
}

func (manager *Manager) onReady() {
	if len(manager.icon) > 0 {
		systray.SetIcon(manager.icon)
	}
	systray.SetTitle(manager.title)
	systray.SetTooltip(manager.title)

	statusItem := systray.AddMenuItem("Status: starting...", "")
	statusItem.Disable()
	systray.AddSeparator()
	breakItem := systray.AddMenuItem("Take a break now", "Start the next break immediately")
	preferencesItem := systray.AddMenuItem("Preferences", "Edit break settings")
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Stop taking breaks")

	manager.mu.Lock()
	manager.statusItem = statusItem
	manager.breakItem = breakItem
	manager.ready = true
	if manager.hasStatus {
		manager.refresh()
	}
	manager.mu.Unlock()

	go func() {
		for {
			select {
			case <-breakItem.ClickedCh:
				invoke(manager.callbacks.OnBreakNow)
			case <-preferencesItem.ClickedCh:
				invoke(manager.callbacks.OnPreferences)
			case <-quitItem.ClickedCh:
				invoke(manager.callbacks.OnQuit)
				return
			}
		}
	}()
}

func (manager *Manager) refresh() {
	text := StatusText(manager.status)
	manager.statusItem.SetTitle("Status: " + text)
	systray.SetTooltip(fmt.Sprintf("%s: %s", manager.title, text))
	if CanBreakNow(manager.status.Phase) {
		manager.breakItem.Enable()
	} else {
		manager.breakItem.Disable()
	}
}

func invoke(callback func()) {
	if callback != nil {
		callback()
	}
}

// CanBreakNow reports whether "Take a break now" applies in phase.
func CanBreakNow(phase timekeeper.Phase) bool {
	return phase == timekeeper.PhaseWorking || phase == timekeeper.PhaseSnoozing
}

// StatusText renders a status for the tray menu.
func StatusText(status runner.Status) string {
	switch status.Phase {
	case timekeeper.PhaseWorking:
		if !status.HasDeadline {
			return "paused (session locked)"
		}
		return "next break in " + formatRemaining(status.Left)
	case timekeeper.PhaseSnoozing:
		return fmt.Sprintf("snoozed (%d), break in %s", status.SnoozeCount, formatRemaining(status.Left))
	case timekeeper.PhaseLockedAwaitingAction:
		return "break due"
	case timekeeper.PhaseOnBreak:
		return "on break, " + formatRemaining(status.Left) + " left"
	case timekeeper.PhaseBreakFinished:
		return "break finished"
	default:
		return string(status.Phase)
	}
}

func formatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	seconds := int(remaining.Seconds())
	minutes := seconds / 60
	seconds = seconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
