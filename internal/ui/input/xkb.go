package input

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Modifier bits as assigned to the real XKB modifiers.
const (
	ModShift uint32 = 1 << 0
	ModLock  uint32 = 1 << 1
)

// evdevOffset converts an evdev scan code to an XKB keycode.
const evdevOffset = 8

var ErrNoKeymap = errors.New("keymap has no keycodes or symbols")

var (
	keycodeLine = regexp.MustCompile(`<([^>]+)>\s*=\s*(\d+)\s*;`)
	aliasLine   = regexp.MustCompile(`alias\s+<([^>]+)>\s*=\s*<([^>]+)>\s*;`)
	keyBlock    = regexp.MustCompile(`key\s+<([^>]+)>\s*\{`)
	symbolsList = regexp.MustCompile(`symbols\[[^\]]*\]\s*=\s*\[([^\]]*)\]`)
	bareList    = regexp.MustCompile(`\[([^\]]*)\]`)
)

// Keymap maps XKB keycodes to keysym levels, grouped by layout.
type Keymap struct {
	keys map[uint32][][]Keysym
}

// ParseKeymap reads the keycodes and symbols sections of an XKB v1 text
// keymap. Types, compat and geometry sections are ignored; level selection
// is limited to Shift and Lock.
func ParseKeymap(text string) (*Keymap, error) {
	keycodesBody, ok := section(text, "xkb_keycodes")
	if !ok {
		return nil, fmt.Errorf("parse keymap: %w", ErrNoKeymap)
	}
	symbolsBody, ok := section(text, "xkb_symbols")
	if !ok {
		return nil, fmt.Errorf("parse keymap: %w", ErrNoKeymap)
	}

	codes := make(map[string]uint32)
	for _, match := range keycodeLine.FindAllStringSubmatch(keycodesBody, -1) {
		code, err := strconv.ParseUint(match[2], 10, 32)
		if err != nil {
			continue
		}
		codes[match[1]] = uint32(code)
	}
	for _, match := range aliasLine.FindAllStringSubmatch(keycodesBody, -1) {
		if code, found := codes[match[2]]; found {
			codes[match[1]] = code
		}
	}

	keymap := &Keymap{keys: make(map[uint32][][]Keysym)}
	for _, loc := range keyBlock.FindAllStringSubmatchIndex(symbolsBody, -1) {
		name := symbolsBody[loc[2]:loc[3]]
		end := strings.IndexByte(symbolsBody[loc[1]:], '}')
		if end < 0 {
			break
		}
		code, found := codes[name]
		if !found {
			continue
		}
		if groups := parseGroups(symbolsBody[loc[1] : loc[1]+end]); len(groups) > 0 {
			keymap.keys[code] = groups
		}
	}
	if len(codes) == 0 || len(keymap.keys) == 0 {
		return nil, fmt.Errorf("parse keymap: %w", ErrNoKeymap)
	}
	return keymap, nil
}

// section returns the body between the braces following the named section
// keyword. Nested braces are balanced.
func section(text, keyword string) (string, bool) {
	start := strings.Index(text, keyword)
	if start < 0 {
		return "", false
	}
	open := strings.IndexByte(text[start:], '{')
	if open < 0 {
		return "", false
	}
	open += start
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[open+1 : i], true
			}
		}
	}
	return "", false
}

func parseGroups(body string) [][]Keysym {
	var lists [][]string
	if strings.Contains(body, "symbols[") {
		lists = symbolsList.FindAllStringSubmatch(body, -1)
	} else if !strings.Contains(body, "=") {
		lists = bareList.FindAllStringSubmatch(body, -1)
	}
	groups := make([][]Keysym, 0, len(lists))
	for _, list := range lists {
		var levels []Keysym
		for _, name := range strings.Split(list[1], ",") {
			levels = append(levels, ParseKeysym(name))
		}
		groups = append(groups, levels)
	}
	return groups
}

// Keysym resolves an evdev scan code under the given modifier mask and
// layout group.
func (keymap *Keymap) Keysym(scanCode, mods, group uint32) Keysym {
	if keymap == nil {
		return KeysymNone
	}
	groups := keymap.keys[scanCode+evdevOffset]
	if len(groups) == 0 {
		return KeysymNone
	}
	levels := groups[int(group)%len(groups)]
	if len(levels) == 0 {
		return KeysymNone
	}

	base := levels[0]
	shifted := mods&ModShift != 0
	if mods&ModLock != 0 && base.IsLower() {
		shifted = !shifted
	}
	if shifted && len(levels) > 1 && levels[1] != KeysymNone {
		return levels[1]
	}
	return base
}
