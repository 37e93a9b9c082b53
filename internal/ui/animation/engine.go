package animation

import (
	"math"
	"time"
)

// Fade tracks at most one running fade and derives alpha levels from the
// time elapsed since it started. It never counts ticks.
type Fade struct {
	config     Config
	kind       Kind
	start      time.Time
	maxOverlay uint8
	maxText    uint8
}

// New creates an idle fade. maxOverlay is the fully faded-in overlay alpha
// and maxText the fully faded-in text alpha.
func New(config Config, maxOverlay, maxText uint8) *Fade {
	return &Fade{
		config:     config.normalized(),
		maxOverlay: maxOverlay,
		maxText:    maxText,
	}
}

// SetLimits changes the target alpha values, for example after a color change.
func (fade *Fade) SetLimits(maxOverlay, maxText uint8) {
	fade.maxOverlay = maxOverlay
	fade.maxText = maxText
}

// MaxOverlay returns the fully faded-in overlay alpha.
func (fade *Fade) MaxOverlay() uint8 {
	return fade.maxOverlay
}

// Kind returns the running fade kind.
func (fade *Fade) Kind() Kind {
	return fade.kind
}

// Active reports whether a fade is running.
func (fade *Fade) Active() bool {
	return fade.kind != KindNone
}

// StartIn begins a fade-in unless one is already running. It returns the
// starting levels and whether a new fade began.
func (fade *Fade) StartIn(now time.Time) (Levels, bool) {
	if fade.kind == KindIn {
		return Levels{}, false
	}
	fade.kind = KindIn
	fade.start = now
	return Levels{}, true
}

// StartOut begins a fade-out unless one is already running.
func (fade *Fade) StartOut(now time.Time) (Levels, bool) {
	if fade.kind == KindOut {
		return Levels{}, false
	}
	fade.kind = KindOut
	fade.start = now
	return fade.outLevels(fade.maxOverlay), true
}

// Cancel stops the running fade without reporting completion.
func (fade *Fade) Cancel() {
	fade.kind = KindNone
}

// Sample computes the levels at now. The sample that reaches the end of the
// fade reports Done and returns the fade to KindNone.
func (fade *Fade) Sample(now time.Time) Frame {
	switch fade.kind {
	case KindIn:
		progress := fade.progress(now, fade.config.FadeIn)
		frame := Frame{Kind: KindIn, Levels: Levels{
			Overlay: scale(fade.maxOverlay, progress),
			Text:    scale(fade.maxText, fade.textProgress(progress)),
		}}
		if progress >= 1 {
			fade.kind = KindNone
			frame.Done = true
			frame.Levels = Levels{Overlay: fade.maxOverlay, Text: 255}
		}
		return frame
	case KindOut:
		progress := fade.progress(now, fade.config.FadeOut)
		frame := Frame{Kind: KindOut, Levels: fade.outLevels(scale(fade.maxOverlay, 1-progress))}
		if progress >= 1 {
			fade.kind = KindNone
			frame.Done = true
		}
		return frame
	default:
		return Frame{Kind: KindNone}
	}
}

// outLevels keeps fade-out text proportional to the overlay.
func (fade *Fade) outLevels(overlay uint8) Levels {
	var text uint8
	if fade.maxOverlay > 0 {
		text = uint8(uint16(fade.maxText) * uint16(overlay) / uint16(fade.maxOverlay))
	}
	return Levels{Overlay: overlay, Text: text}
}

func (fade *Fade) progress(now time.Time, duration time.Duration) float64 {
	elapsed := now.Sub(fade.start)
	return math.Min(math.Max(float64(elapsed)/float64(duration), 0), 1)
}

// textProgress maps overall fade-in progress onto the trailing text window.
func (fade *Fade) textProgress(progress float64) float64 {
	start := 1 - float64(fade.config.TextWindow)/float64(fade.config.FadeIn)
	if progress <= start {
		return 0
	}
	return math.Min((progress-start)/(1-start), 1)
}

func scale(limit uint8, progress float64) uint8 {
	return uint8(math.Round(float64(limit) * progress))
}
