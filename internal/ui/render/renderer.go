package render

import (
	"strings"

	"interlude/internal/core/model"
)

// Scene is everything needed to draw one overlay frame.
type Scene struct {
	Mode         Mode
	Colors       model.Colors
	OverlayAlpha uint8
	TextAlpha    uint8
	// Icon is centered above the text. Nil skips it.
	Icon *Bitmap
	// Badge is drawn fully opaque in the bottom-right corner. Nil skips it.
	Badge *Bitmap
}

// Renderer composes overlay frames. Output depends only on the scene, the
// canvas size and the typeface.
type Renderer struct {
	typeface Typeface
}

// NewRenderer creates a renderer drawing text with typeface.
func NewRenderer(typeface Typeface) *Renderer {
	return &Renderer{typeface: typeface}
}

// Render draws scene into canvas, overwriting every pixel.
func (renderer *Renderer) Render(canvas *Canvas, scene Scene) {
	width, height := canvas.Width, canvas.Height
	if width == 0 || height == 0 {
		return
	}
	bg := scene.Colors.Background
	canvas.fill(bg.R(), bg.G(), bg.B(), 255)

	fg := scene.Colors.Foreground
	tint := [3]uint8{fg.R(), fg.G(), fg.B()}
	lines := scene.Mode.lines(width, height)

	iconHeight, gap := 0, 0
	if scene.Icon != nil {
		iconHeight, gap = scene.Icon.Height, iconGap
	}
	textHeight := 0
	for _, l := range lines {
		textHeight += renderer.typeface.LineHeight(l.size)
	}
	baseY := max((height-(iconHeight+gap+textHeight))/2, 0)

	if scene.Icon != nil && scene.TextAlpha > 0 {
		iconX := max((width-scene.Icon.Width)/2, 0)
		drawIcon(canvas, iconX, baseY, scene.Icon, tint, scene.TextAlpha)
	}

	lineY := baseY + iconHeight + gap
	for _, l := range lines {
		alpha := uint8(float64(scene.TextAlpha)*l.weight + 0.5)
		x := renderer.lineX(l, width)
		renderer.typeface.DrawText(canvas, x, lineY+renderer.typeface.Ascent(l.size), l.text, tint, alpha, l.size)
		lineY += renderer.typeface.LineHeight(l.size)
	}

	if scene.Badge != nil {
		x := width - scene.Badge.Width - badgePad
		y := height - scene.Badge.Height - badgePad
		drawIcon(canvas, x, y, scene.Badge, tint, 255)
	}

	canvas.applyOverlay(scene.OverlayAlpha)
}

func (renderer *Renderer) lineX(l line, width int) int {
	if l.anchor == anchorColon {
		if idx := strings.IndexByte(l.text, ':'); idx >= 0 {
			left := renderer.typeface.TextWidth(l.text[:idx], l.size)
			colon := renderer.typeface.TextWidth(":", l.size)
			return max(width/2-left-colon/2, 0)
		}
	}
	return max((width-renderer.typeface.TextWidth(l.text, l.size))/2, 0)
}
