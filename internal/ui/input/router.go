package input

import (
	"bytes"
	"fmt"

	"interlude/internal/wayland"
)

// Intent is a user action recognised on the overlay.
type Intent int

const (
	IntentSnooze Intent = iota + 1
	IntentConfirm
	IntentPointerClick
	IntentAnyKey
)

func (intent Intent) String() string {
	switch intent {
	case IntentSnooze:
		return "Snooze"
	case IntentConfirm:
		return "Confirm"
	case IntentPointerClick:
		return "PointerClick"
	case IntentAnyKey:
		return "AnyKey"
	default:
		return fmt.Sprintf("Intent(%d)", int(intent))
	}
}

// Evdev scan codes used when no keymap is available.
const (
	scanEscape uint32 = 1
	scanEnter  uint32 = 28
	scanZ      uint32 = 44
)

// Router turns raw seat events into queued intents. It is not safe for
// concurrent use; the overlay client drives it from its dispatch loop.
type Router struct {
	keymap  *Keymap
	mods    uint32
	group   uint32
	pending []Intent
}

// NewRouter returns a router that uses raw scan codes until a keymap arrives.
func NewRouter() *Router {
	return &Router{}
}

// HandleKeymap installs a keymap delivered by the compositor. Unsupported
// formats or unparsable text clear the keymap so scan-code fallbacks apply.
func (router *Router) HandleKeymap(format uint32, data []byte) error {
	router.keymap = nil
	if format != wayland.KeymapFormatXKBV1 {
		return fmt.Errorf("keymap format %d unsupported", format)
	}
	if idx := bytes.IndexByte(data, 0); idx >= 0 {
		data = data[:idx]
	}
	keymap, err := ParseKeymap(string(data))
	if err != nil {
		return err
	}
	router.keymap = keymap
	return nil
}

// HasKeymap reports whether a parsed keymap is installed.
func (router *Router) HasKeymap() bool {
	return router.keymap != nil
}

// HandleModifiers records the modifier masks used to pick keysyms.
func (router *Router) HandleModifiers(depressed, latched, locked, group uint32) {
	router.mods = depressed | latched | locked
	router.group = group
}

// HandleKey records a key event. Releases produce nothing; every press
// produces AnyKey after any specific intent.
func (router *Router) HandleKey(scanCode uint32, pressed bool) {
	if !pressed {
		return
	}
	if intent, ok := router.classify(scanCode); ok {
		router.pending = append(router.pending, intent)
	}
	router.pending = append(router.pending, IntentAnyKey)
}

func (router *Router) classify(scanCode uint32) (Intent, bool) {
	if router.keymap == nil {
		switch scanCode {
		case scanEscape, scanZ:
			return IntentSnooze, true
		case scanEnter:
			return IntentConfirm, true
		}
		return 0, false
	}
	switch router.keymap.Keysym(scanCode, router.mods, router.group) {
	case KeysymReturn, KeysymKPEnter:
		return IntentConfirm, true
	case KeysymEscape, KeysymLowerZ, KeysymUpperZ:
		return IntentSnooze, true
	}
	return 0, false
}

// HandlePointerButton queues a click on press.
func (router *Router) HandlePointerButton(pressed bool) {
	if pressed {
		router.pending = append(router.pending, IntentPointerClick)
	}
}

// Drain returns queued intents in arrival order and empties the queue.
func (router *Router) Drain() []Intent {
	if len(router.pending) == 0 {
		return nil
	}
	out := router.pending
	router.pending = nil
	return out
}

// ResetKeyboard forgets keymap and modifier state after the keyboard is
// released.
func (router *Router) ResetKeyboard() {
	router.keymap = nil
	router.mods = 0
	router.group = 0
}
