package render

// Canvas is an RGBA pixel buffer, four bytes per pixel in R, G, B, A order.
type Canvas struct {
	Width  int
	Height int
	Pix    []byte
}

// NewCanvas allocates an RGBA canvas of the given size.
func NewCanvas(width, height int) *Canvas {
	canvas := &Canvas{}
	canvas.Resize(width, height)
	return canvas
}

// Resize sets the canvas dimensions, reusing the backing array when it is
// large enough.
func (canvas *Canvas) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	size := width * height * 4
	if cap(canvas.Pix) >= size {
		canvas.Pix = canvas.Pix[:size]
	} else {
		canvas.Pix = make([]byte, size)
	}
	canvas.Width, canvas.Height = width, height
}

// Stride is the number of bytes per row.
func (canvas *Canvas) Stride() int {
	return canvas.Width * 4
}

func (canvas *Canvas) fill(r, g, b, a uint8) {
	for i := 0; i+3 < len(canvas.Pix); i += 4 {
		canvas.Pix[i] = r
		canvas.Pix[i+1] = g
		canvas.Pix[i+2] = b
		canvas.Pix[i+3] = a
	}
}

// Blend composites one pixel of the given color at coverage alpha. Pixels
// outside the canvas are ignored.
func (canvas *Canvas) Blend(x, y int, rgb [3]uint8, alpha uint8) {
	if alpha == 0 || x < 0 || y < 0 || x >= canvas.Width || y >= canvas.Height {
		return
	}
	idx := (y*canvas.Width + x) * 4
	a := uint16(alpha)
	inv := 255 - a
	px := canvas.Pix[idx : idx+4 : idx+4]
	px[0] = uint8((uint16(rgb[0])*a + uint16(px[0])*inv) / 255)
	px[1] = uint8((uint16(rgb[1])*a + uint16(px[1])*inv) / 255)
	px[2] = uint8((uint16(rgb[2])*a + uint16(px[2])*inv) / 255)
	px[3] = 255
}

func (canvas *Canvas) applyOverlay(alpha uint8) {
	fade := uint16(alpha)
	for i := 0; i+3 < len(canvas.Pix); i += 4 {
		canvas.Pix[i] = uint8(uint16(canvas.Pix[i]) * fade / 255)
		canvas.Pix[i+1] = uint8(uint16(canvas.Pix[i+1]) * fade / 255)
		canvas.Pix[i+2] = uint8(uint16(canvas.Pix[i+2]) * fade / 255)
		canvas.Pix[i+3] = uint8(uint16(canvas.Pix[i+3]) * fade / 255)
	}
}

// CopyARGB8888 writes the canvas into dst in little-endian ARGB8888 layout
// (B, G, R, A bytes). dst must hold at least len(canvas.Pix) bytes.
func (canvas *Canvas) CopyARGB8888(dst []byte) {
	src := canvas.Pix
	dst = dst[:len(src)]
	for i := 0; i+3 < len(src); i += 4 {
		dst[i] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i]
		dst[i+3] = src[i+3]
	}
}
