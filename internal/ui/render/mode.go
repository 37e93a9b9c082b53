package render

import "fmt"

// ModeKind selects what the overlay shows.
type ModeKind int

const (
	ModeBreakDue ModeKind = iota
	ModeOnBreak
	ModeBreakFinished
)

// Mode is the content currently shown on every overlay surface.
type Mode struct {
	Kind          ModeKind
	SnoozeSeconds uint64
	CanSnooze     bool
	SecondsLeft   uint64
}

// BreakDue shows the snooze offer.
func BreakDue(snoozeSeconds uint64, canSnooze bool) Mode {
	return Mode{Kind: ModeBreakDue, SnoozeSeconds: snoozeSeconds, CanSnooze: canSnooze}
}

// OnBreak shows the countdown.
func OnBreak(secondsLeft uint64) Mode {
	return Mode{Kind: ModeOnBreak, SecondsLeft: secondsLeft}
}

// BreakFinished asks the user to confirm the end of the break.
func BreakFinished() Mode {
	return Mode{Kind: ModeBreakFinished}
}

// DefaultMode is shown before the first explicit mode change.
func DefaultMode() Mode {
	return BreakDue(300, true)
}

func (mode Mode) String() string {
	switch mode.Kind {
	case ModeBreakDue:
		return fmt.Sprintf("BreakDue(snooze=%ds, can_snooze=%t)", mode.SnoozeSeconds, mode.CanSnooze)
	case ModeOnBreak:
		return fmt.Sprintf("OnBreak(%ds)", mode.SecondsLeft)
	case ModeBreakFinished:
		return "BreakFinished"
	default:
		return fmt.Sprintf("Mode(%d)", int(mode.Kind))
	}
}

type anchor int

const (
	anchorCenter anchor = iota
	anchorColon
)

type line struct {
	text   string
	size   float64
	weight float64
	anchor anchor
}

const secondaryWeight = 0.65

// FontSizes returns the heading, countdown and hint sizes for a surface.
func FontSizes(width, height int) (base, large, small float64) {
	base = clamp(float64(min(width, height))/16, 42, 110)
	large = clamp(base*1.35, 56, 150)
	small = clamp(base*0.7, 28, 80)
	return base, large, small
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

func (mode Mode) lines(width, height int) []line {
	base, large, small := FontSizes(width, height)
	switch mode.Kind {
	case ModeOnBreak:
		return []line{
			{text: fmt.Sprintf("%02d:%02d", mode.SecondsLeft/60, mode.SecondsLeft%60), size: large, weight: 1, anchor: anchorColon},
			{text: "Snooze: z/Esc", size: small, weight: secondaryWeight},
		}
	case ModeBreakFinished:
		return []line{
			{text: "Break Complete.", size: base, weight: 1},
			{text: "Press any key to continue", size: small, weight: secondaryWeight},
		}
	default:
		hint := "Snooze disabled"
		if mode.CanSnooze {
			hint = fmt.Sprintf("Snooze: z/Esc %d:%02d", mode.SnoozeSeconds/60, mode.SnoozeSeconds%60)
		}
		return []line{
			{text: "BREAK STARTING", size: base, weight: 1},
			{text: hint, size: small, weight: secondaryWeight},
		}
	}
}
