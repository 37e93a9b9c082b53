package model

import (
	"fmt"
	"strconv"
	"strings"
)

// RGBA is a non-premultiplied color in red, green, blue, alpha order.
type RGBA [4]uint8

// R returns the red channel.
func (c RGBA) R() uint8 { return c[0] }

// G returns the green channel.
func (c RGBA) G() uint8 { return c[1] }

// B returns the blue channel.
func (c RGBA) B() uint8 { return c[2] }

// A returns the alpha channel.
func (c RGBA) A() uint8 { return c[3] }

// Hex formats the color as #RRGGBBAA.
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c[0], c[1], c[2], c[3])
}

// ParseColor parses #RGB, #RRGGBB and #RRGGBBAA. Short forms are opaque.
func ParseColor(value string) (RGBA, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "#") {
		return RGBA{}, fmt.Errorf("parse color %q: missing leading #", value)
	}
	digits := trimmed[1:]
	for _, r := range digits {
		if !isHexDigit(r) {
			return RGBA{}, fmt.Errorf("parse color %q: invalid hex digit %q", value, r)
		}
	}

	switch len(digits) {
	case 3:
		var out RGBA
		for i := 0; i < 3; i++ {
			v := hexByte(digits[i:i+1] + digits[i:i+1])
			out[i] = v
		}
		out[3] = 0xFF
		return out, nil
	case 6, 8:
		out := RGBA{0, 0, 0, 0xFF}
		for i := 0; i < len(digits)/2; i++ {
			out[i] = hexByte(digits[i*2 : i*2+2])
		}
		return out, nil
	default:
		return RGBA{}, fmt.Errorf("parse color %q: expected 3, 6 or 8 hex digits, got %d", value, len(digits))
	}
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func hexByte(pair string) uint8 {
	v, _ := strconv.ParseUint(pair, 16, 8)
	return uint8(v)
}
