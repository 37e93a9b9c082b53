package animation

import "time"

// Kind identifies which fade, if any, is running.
type Kind int

const (
	KindNone Kind = iota
	KindIn
	KindOut
)

func (kind Kind) String() string {
	switch kind {
	case KindIn:
		return "fade-in"
	case KindOut:
		return "fade-out"
	default:
		return "none"
	}
}

// Config contains fade timing values.
type Config struct {
	FadeIn  time.Duration
	FadeOut time.Duration
	// TextWindow is the trailing part of the fade-in during which text
	// becomes visible.
	TextWindow time.Duration
}

// Levels are the overlay and text alpha values on a 0-255 scale.
type Levels struct {
	Overlay uint8
	Text    uint8
}

// Frame is the result of sampling a fade at an instant.
type Frame struct {
	Kind   Kind
	Levels Levels
	// Done is set on the sample that finishes the fade.
	Done bool
}
