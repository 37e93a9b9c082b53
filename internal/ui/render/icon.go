package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	iconBaseSize = 120
	iconGap      = 20
	badgeMinSize = 24
	badgePad     = 20
)

// Bitmap is a square icon coverage mask. Color comes from the tint applied
// at draw time.
type Bitmap struct {
	Width  int
	Height int
	Alpha  []uint8
}

// IconSize returns the pixel size of the centered icon for a surface.
func IconSize(width, height int) int {
	return max(iconBaseSize, min(min(width, height)/6, iconBaseSize*2))
}

// BadgeSize returns the pixel size of the corner badge shown while fading in.
func BadgeSize(iconSize int) int {
	return max(iconSize/3, badgeMinSize)
}

// IconRasterizer renders an SVG document at arbitrary square sizes.
type IconRasterizer struct {
	svg []byte
}

// NewIconRasterizer parses svg once for repeated rasterization.
func NewIconRasterizer(svg []byte) (*IconRasterizer, error) {
	if _, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.WarnErrorMode); err != nil {
		return nil, fmt.Errorf("parse icon: %w", err)
	}
	return &IconRasterizer{svg: svg}, nil
}

func (rasterizer *IconRasterizer) image(size int) (*image.RGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("rasterize icon: invalid size %d", size)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(rasterizer.svg), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse icon: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1)
	return img, nil
}

// Rasterize renders the icon as a size x size coverage mask.
func (rasterizer *IconRasterizer) Rasterize(size int) (*Bitmap, error) {
	img, err := rasterizer.image(size)
	if err != nil {
		return nil, err
	}
	bitmap := &Bitmap{Width: size, Height: size, Alpha: make([]uint8, size*size)}
	for i := range bitmap.Alpha {
		bitmap.Alpha[i] = img.Pix[i*4+3]
	}
	return bitmap, nil
}

// PNG renders the icon in its own colors and encodes it as PNG.
func (rasterizer *IconRasterizer) PNG(size int) ([]byte, error) {
	img, err := rasterizer.image(size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

func drawIcon(canvas *Canvas, x, y int, bitmap *Bitmap, tint [3]uint8, alpha uint8) {
	for iy := 0; iy < bitmap.Height; iy++ {
		for ix := 0; ix < bitmap.Width; ix++ {
			coverage := uint16(bitmap.Alpha[iy*bitmap.Width+ix]) * uint16(alpha) / 255
			canvas.Blend(x+ix, y+iy, tint, uint8(coverage))
		}
	}
}
