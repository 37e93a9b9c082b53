package input

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Keysym is an X11 keysym value.
type Keysym uint32

const (
	KeysymNone    Keysym = 0
	KeysymReturn  Keysym = 0xff0d
	KeysymEscape  Keysym = 0xff1b
	KeysymKPEnter Keysym = 0xff8d
	KeysymLowerZ  Keysym = 0x007a
	KeysymUpperZ  Keysym = 0x005a

	keysymUnicode  Keysym = 0x01000000
	keysymLatin1Hi rune   = 0xff
)

var namedKeysyms = map[string]Keysym{
	"BackSpace":    0xff08,
	"Tab":          0xff09,
	"ISO_Left_Tab": 0xfe20,
	"Return":       KeysymReturn,
	"Pause":        0xff13,
	"Scroll_Lock":  0xff14,
	"Escape":       KeysymEscape,
	"Delete":       0xffff,
	"Home":         0xff50,
	"Left":         0xff51,
	"Up":           0xff52,
	"Right":        0xff53,
	"Down":         0xff54,
	"Prior":        0xff55,
	"Next":         0xff56,
	"End":          0xff57,
	"Insert":       0xff63,
	"Menu":         0xff67,
	"Num_Lock":     0xff7f,
	"KP_Enter":     KeysymKPEnter,
	"Shift_L":      0xffe1,
	"Shift_R":      0xffe2,
	"Control_L":    0xffe3,
	"Control_R":    0xffe4,
	"Caps_Lock":    0xffe5,
	"Meta_L":       0xffe7,
	"Meta_R":       0xffe8,
	"Alt_L":        0xffe9,
	"Alt_R":        0xffea,
	"Super_L":      0xffeb,
	"Super_R":      0xffec,
	"space":        0x0020,
	"exclam":       0x0021,
	"quotedbl":     0x0022,
	"numbersign":   0x0023,
	"dollar":       0x0024,
	"percent":      0x0025,
	"ampersand":    0x0026,
	"apostrophe":   0x0027,
	"parenleft":    0x0028,
	"parenright":   0x0029,
	"asterisk":     0x002a,
	"plus":         0x002b,
	"comma":        0x002c,
	"minus":        0x002d,
	"period":       0x002e,
	"slash":        0x002f,
	"colon":        0x003a,
	"semicolon":    0x003b,
	"less":         0x003c,
	"equal":        0x003d,
	"greater":      0x003e,
	"question":     0x003f,
	"at":           0x0040,
	"bracketleft":  0x005b,
	"backslash":    0x005c,
	"bracketright": 0x005d,
	"asciicircum":  0x005e,
	"underscore":   0x005f,
	"grave":        0x0060,
	"braceleft":    0x007b,
	"bar":          0x007c,
	"braceright":   0x007d,
	"asciitilde":   0x007e,
}

// ParseKeysym resolves a keysym name as written in an XKB symbols section.
// Unknown names resolve to KeysymNone.
func ParseKeysym(name string) Keysym {
	name = strings.TrimSpace(name)
	if name == "" || name == "NoSymbol" || name == "VoidSymbol" {
		return KeysymNone
	}
	if sym, ok := namedKeysyms[name]; ok {
		return sym
	}
	if len(name) >= 2 && name[0] == 'F' {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 1 && n <= 35 {
			return Keysym(0xffbe + n - 1)
		}
	}
	if strings.HasPrefix(name, "0x") {
		if v, err := strconv.ParseUint(name[2:], 16, 32); err == nil {
			return Keysym(v)
		}
	}
	if strings.HasPrefix(name, "U") && len(name) > 1 {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return fromRune(rune(v))
		}
	}
	if r, size := utf8.DecodeRuneInString(name); size == len(name) && r != utf8.RuneError {
		return fromRune(r)
	}
	return KeysymNone
}

func fromRune(r rune) Keysym {
	if r >= 0x20 && r <= keysymLatin1Hi {
		return Keysym(r)
	}
	return keysymUnicode | Keysym(r)
}

// IsLower reports whether the keysym is a lowercase Latin letter.
func (sym Keysym) IsLower() bool {
	return sym >= 'a' && sym <= 'z'
}
