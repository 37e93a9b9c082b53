package overlay

import (
	"fmt"

	"golang.org/x/sys/unix"

	"interlude/internal/ui/animation"
	"interlude/internal/ui/render"
	"interlude/internal/wayland"
)

// outputSurface is the overlay shown on one output.
type outputSurface struct {
	outputName uint32
	surface    wayland.Surface
	layer      wayland.LayerSurface
	width      int
	height     int
	// region is the empty input region while input passes through; zero
	// while capturing.
	region wayland.Region

	icon   *render.Bitmap
	badge  *render.Bitmap
	canvas *render.Canvas
	buffer wayland.Buffer
	// dirty marks a configure that has not been drawn yet.
	dirty bool
}

func (entry *outputSurface) destroy() {
	if entry.region.Valid() {
		entry.region.Destroy()
	}
	entry.layer.Destroy()
	entry.surface.Destroy()
	if entry.buffer.Valid() {
		entry.buffer.Destroy()
	}
}

func (overlay *Client) redrawAll() {
	if !overlay.active {
		return
	}
	for _, entry := range overlay.surfaces {
		overlay.redraw(entry)
	}
}

func (overlay *Client) redraw(entry *outputSurface) {
	if err := overlay.drawSurface(entry); err != nil {
		overlay.log.Error("redraw surface %d: %v", entry.layer.ID(), err)
	}
}

func (overlay *Client) drawSurface(entry *outputSurface) error {
	if entry.width == 0 || entry.height == 0 {
		return nil
	}
	entry.dirty = false
	if overlay.assets.Renderer == nil {
		return nil
	}

	if entry.canvas == nil {
		entry.canvas = render.NewCanvas(entry.width, entry.height)
	} else {
		entry.canvas.Resize(entry.width, entry.height)
	}
	overlay.refreshIcons(entry)

	scene := render.Scene{
		Mode:         overlay.mode,
		Colors:       overlay.colors,
		OverlayAlpha: overlay.levels.Overlay,
		TextAlpha:    overlay.levels.Text,
		Icon:         entry.icon,
	}
	if overlay.fade.Kind() == animation.KindIn {
		scene.Badge = entry.badge
	}
	overlay.assets.Renderer.Render(entry.canvas, scene)
	return overlay.publish(entry)
}

// refreshIcons rasterizes icons again when the surface size changed.
func (overlay *Client) refreshIcons(entry *outputSurface) {
	if overlay.assets.Icons == nil {
		return
	}
	size := render.IconSize(entry.width, entry.height)
	if entry.icon == nil || entry.icon.Width != size {
		icon, err := overlay.assets.Icons.Rasterize(size)
		if err != nil {
			overlay.log.WarnOnce("icon", "rasterize icon: %v", err)
		}
		entry.icon = icon
	}
	badgeSize := render.BadgeSize(size)
	if overlay.fade.Kind() == animation.KindIn && (entry.badge == nil || entry.badge.Width != badgeSize) {
		badge, err := overlay.assets.Icons.Rasterize(badgeSize)
		if err != nil {
			overlay.log.WarnOnce("badge", "rasterize badge: %v", err)
		}
		entry.badge = badge
	}
}

// publish copies the canvas into a fresh shared-memory buffer, attaches it
// and releases the buffer of the previous frame.
func (overlay *Client) publish(entry *outputSurface) error {
	canvas := entry.canvas
	stride := canvas.Stride()
	size := stride * canvas.Height

	fd, err := unix.MemfdCreate("interlude-frame", unix.MFD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return fmt.Errorf("ftruncate: %w", err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("mmap: %w", err)
	}
	canvas.CopyARGB8888(data)
	if err := unix.Munmap(data); err != nil {
		unix.Close(fd)
		return fmt.Errorf("munmap: %w", err)
	}

	pool := overlay.shm.CreatePool(fd, int32(size))
	buffer := pool.CreateBuffer(0, int32(canvas.Width), int32(canvas.Height), int32(stride), wayland.ShmFormatARGB8888)
	pool.Destroy()

	entry.surface.Attach(buffer)
	entry.surface.DamageBuffer(0, 0, int32(canvas.Width), int32(canvas.Height))
	entry.surface.Commit()

	if entry.buffer.Valid() {
		entry.buffer.Destroy()
	}
	entry.buffer = buffer
	return nil
}
