package render

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Typeface measures and rasterizes text. Implementations must be
// deterministic for a given size and string.
type Typeface interface {
	LineHeight(size float64) int
	Ascent(size float64) int
	TextWidth(text string, size float64) int
	DrawText(canvas *Canvas, x, baseline int, text string, rgb [3]uint8, alpha uint8, size float64)
}

// OpenType is a Typeface backed by a parsed TrueType/OpenType font. Faces
// are built lazily per pixel size and reused. Faces share scratch buffers,
// so every method holds the mutex.
type OpenType struct {
	font  *opentype.Font
	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewOpenType parses a TrueType or OpenType font.
func NewOpenType(data []byte) (*OpenType, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &OpenType{font: parsed, faces: make(map[float64]font.Face)}, nil
}

func (typeface *OpenType) face(size float64) font.Face {
	if face, ok := typeface.faces[size]; ok {
		return face
	}
	face, err := opentype.NewFace(typeface.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		// Only reachable with a non-positive size.
		face = nil
	}
	typeface.faces[size] = face
	return face
}

func (typeface *OpenType) LineHeight(size float64) int {
	typeface.mu.Lock()
	defer typeface.mu.Unlock()
	face := typeface.face(size)
	if face == nil {
		return int(size*1.3 + 0.5)
	}
	return face.Metrics().Height.Round()
}

// Ascent returns the distance from the top of a line box to its baseline,
// including half of the line gap.
func (typeface *OpenType) Ascent(size float64) int {
	typeface.mu.Lock()
	defer typeface.mu.Unlock()
	face := typeface.face(size)
	if face == nil {
		return int(size + 0.5)
	}
	metrics := face.Metrics()
	gap := metrics.Height - metrics.Ascent - metrics.Descent
	return metrics.Ascent.Round() + (gap / 2).Round()
}

func (typeface *OpenType) TextWidth(text string, size float64) int {
	typeface.mu.Lock()
	defer typeface.mu.Unlock()
	face := typeface.face(size)
	if face == nil {
		return 0
	}
	width := 0
	for _, r := range text {
		if r == '\n' {
			break
		}
		advance, _ := face.GlyphAdvance(r)
		width += advance.Round()
	}
	return width
}

func (typeface *OpenType) DrawText(canvas *Canvas, x, baseline int, text string, rgb [3]uint8, alpha uint8, size float64) {
	if alpha == 0 {
		return
	}
	typeface.mu.Lock()
	defer typeface.mu.Unlock()
	face := typeface.face(size)
	if face == nil {
		return
	}

	penX := x
	for _, r := range text {
		if r == '\n' {
			break
		}
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(penX, baseline), r)
		if ok {
			blendMask(canvas, dr, mask, maskp, rgb, alpha)
		}
		penX += advance.Round()
	}
}

func blendMask(canvas *Canvas, dr image.Rectangle, mask image.Image, maskp image.Point, rgb [3]uint8, alpha uint8) {
	for y := dr.Min.Y; y < dr.Max.Y; y++ {
		for x := dr.Min.X; x < dr.Max.X; x++ {
			coverage := maskAlpha(mask, maskp.X+x-dr.Min.X, maskp.Y+y-dr.Min.Y)
			if coverage == 0 {
				continue
			}
			canvas.Blend(x, y, rgb, uint8(uint16(coverage)*uint16(alpha)/255))
		}
	}
}

func maskAlpha(mask image.Image, x, y int) uint8 {
	if alphaMask, ok := mask.(*image.Alpha); ok {
		return alphaMask.AlphaAt(x, y).A
	}
	return color.AlphaModel.Convert(mask.At(x, y)).(color.Alpha).A
}
