// Package overlay draws the break overlay on every output through
// wlr-layer-shell and routes the input it captures.
package overlay

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"interlude/internal/core/model"
	"interlude/internal/logger"
	"interlude/internal/ui/animation"
	"interlude/internal/ui/input"
	"interlude/internal/ui/render"
	"interlude/internal/wayland"
)

// DefaultNamespace is the layer-shell namespace of overlay surfaces.
const DefaultNamespace = "interlude"

// ErrMissingGlobals is returned when the compositor lacks a required global.
var ErrMissingGlobals = errors.New("missing required wayland globals")

// Config defines overlay visuals.
type Config struct {
	Namespace string
	Colors    model.Colors
	Fade      animation.Config
	// Now is the fade clock; nil uses time.Now.
	Now func() time.Time
}

// Assets are the shared rasterization services. Icons may be nil.
type Assets struct {
	Renderer *render.Renderer
	Icons    *render.IconRasterizer
}

type output struct {
	name  uint32
	proxy wayland.Output
}

// Client owns the compositor connection, global bindings and the per-output
// overlay surfaces. It is driven from a single goroutine.
type Client struct {
	conn   *wayland.Conn
	log    *logger.Logger
	config Config
	assets Assets

	registry   wayland.Registry
	compositor wayland.Compositor
	shm        wayland.Shm
	seat       wayland.Seat
	layerShell wayland.LayerShell
	keyboard   wayland.Keyboard
	pointer    wayland.Pointer
	outputs    []output

	surfaces []*outputSurface
	byLayer  map[uint32]*outputSurface

	active         bool
	levels         animation.Levels
	fade           *animation.Fade
	fadeInComplete bool
	inputCaptured  bool
	desiredCapture bool
	colors         model.Colors
	mode           render.Mode
	router         *input.Router
}

// Connect dials the compositor named by the environment and binds globals.
func Connect(config Config, assets Assets, log *logger.Logger) (*Client, error) {
	conn, err := wayland.Dial()
	if err != nil {
		return nil, fmt.Errorf("connect compositor: %w", err)
	}
	overlay, err := New(conn, config, assets, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return overlay, nil
}

// New binds the required globals on conn. It fails with ErrMissingGlobals
// when the compositor lacks wl_compositor, wl_shm, wl_seat or
// zwlr_layer_shell_v1.
func New(conn *wayland.Conn, config Config, assets Assets, log *logger.Logger) (*Client, error) {
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if log == nil {
		log = logger.Discard()
	}
	bg, fg := config.Colors.Background, config.Colors.Foreground
	overlay := &Client{
		conn:    conn,
		log:     log,
		config:  config,
		assets:  assets,
		byLayer: make(map[uint32]*outputSurface),
		levels:  animation.Levels{Overlay: bg.A(), Text: 255},
		fade:    animation.New(config.Fade, bg.A(), fg.A()),
		colors:  config.Colors,
		mode:    render.DefaultMode(),
		router:  input.NewRouter(),
	}
	conn.SetHandler(overlay.handleEvent)
	overlay.registry = conn.Display().GetRegistry()
	if err := conn.Roundtrip(); err != nil {
		return nil, fmt.Errorf("read globals: %w", err)
	}

	var missing []string
	if !overlay.compositor.Valid() {
		missing = append(missing, string(wayland.InterfaceCompositor))
	}
	if !overlay.shm.Valid() {
		missing = append(missing, string(wayland.InterfaceShm))
	}
	if !overlay.seat.Valid() {
		missing = append(missing, string(wayland.InterfaceSeat))
	}
	if !overlay.layerShell.Valid() {
		missing = append(missing, string(wayland.InterfaceLayerShell))
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingGlobals, strings.Join(missing, ", "))
	}

	// Seat capabilities arrive in response to the bind.
	if err := conn.Roundtrip(); err != nil {
		return nil, fmt.Errorf("read seat: %w", err)
	}
	return overlay, nil
}

// Close drops the connection without tearing down server objects.
func (overlay *Client) Close() error {
	return overlay.conn.Close()
}

// IsLocked reports whether overlay surfaces are shown.
func (overlay *Client) IsLocked() bool {
	return overlay.active
}

// InputCaptured reports whether surfaces currently take keyboard and pointer
// input exclusively.
func (overlay *Client) InputCaptured() bool {
	return overlay.inputCaptured
}

// Outputs returns the number of known outputs.
func (overlay *Client) Outputs() int {
	return len(overlay.outputs)
}

// Mode returns the content currently shown.
func (overlay *Client) Mode() render.Mode {
	return overlay.mode
}

// Levels returns the current overlay and text alpha.
func (overlay *Client) Levels() animation.Levels {
	return overlay.levels
}

// Lock creates one overlay surface per output and waits for the initial
// configure. It does nothing when already locked.
func (overlay *Client) Lock() error {
	if overlay.active {
		return nil
	}
	overlay.surfaces = overlay.surfaces[:0]
	clear(overlay.byLayer)
	overlay.inputCaptured = false
	overlay.desiredCapture = false

	for _, out := range overlay.outputs {
		overlay.createSurface(out)
	}
	if err := overlay.conn.Roundtrip(); err != nil {
		for _, entry := range overlay.surfaces {
			entry.destroy()
		}
		overlay.surfaces = overlay.surfaces[:0]
		clear(overlay.byLayer)
		return fmt.Errorf("lock overlay: %w", err)
	}
	overlay.active = true
	overlay.redrawAll()
	return nil
}

func (overlay *Client) createSurface(out output) *outputSurface {
	surface := overlay.compositor.CreateSurface()
	layer := overlay.layerShell.GetLayerSurface(surface, out.proxy, wayland.LayerOverlay, overlay.config.Namespace)
	layer.SetAnchor(wayland.AnchorAll)
	layer.SetKeyboardInteractivity(interactivity(overlay.desiredCapture))
	layer.SetExclusiveZone(-1)
	layer.SetSize(0, 0)

	entry := &outputSurface{outputName: out.name, surface: surface, layer: layer}
	overlay.applyInputRegion(entry)
	surface.Commit()

	overlay.surfaces = append(overlay.surfaces, entry)
	overlay.byLayer[layer.ID()] = entry
	return entry
}

// Unlock destroys every overlay surface.
func (overlay *Client) Unlock() {
	for _, entry := range overlay.surfaces {
		entry.destroy()
	}
	overlay.surfaces = overlay.surfaces[:0]
	clear(overlay.byLayer)
	overlay.active = false
	overlay.inputCaptured = false
	overlay.desiredCapture = false
}

// Pump runs one non-blocking protocol step and redraws surfaces that were
// resized since their last frame.
func (overlay *Client) Pump() error {
	if err := overlay.conn.Pump(); err != nil {
		return fmt.Errorf("pump: %w", err)
	}
	if overlay.active {
		for _, entry := range overlay.surfaces {
			if entry.dirty {
				overlay.redraw(entry)
			}
		}
	}
	return overlay.conn.Flush()
}

// SetMode stores the content to show and redraws every surface.
func (overlay *Client) SetMode(mode render.Mode) {
	overlay.mode = mode
	overlay.redrawAll()
}

// SetColors switches colors and fade limits and redraws.
func (overlay *Client) SetColors(colors model.Colors) {
	overlay.colors = colors
	overlay.fade.SetLimits(colors.Background.A(), colors.Foreground.A())
	if !overlay.fade.Active() {
		overlay.levels.Overlay = colors.Background.A()
	}
	overlay.redrawAll()
}

// StartFadeIn begins the fade-in from transparent and releases input.
func (overlay *Client) StartFadeIn() {
	levels, started := overlay.fade.StartIn(overlay.config.Now())
	if !started {
		return
	}
	overlay.levels = levels
	overlay.fadeInComplete = false
	overlay.setInputCapture(false)
	overlay.redrawAll()
}

// StartFadeOut begins the fade-out and releases input.
func (overlay *Client) StartFadeOut() {
	levels, started := overlay.fade.StartOut(overlay.config.Now())
	if !started {
		return
	}
	overlay.levels = levels
	overlay.setInputCapture(false)
	overlay.redrawAll()
}

// IsFading reports whether a fade is running.
func (overlay *Client) IsFading() bool {
	return overlay.fade.Active()
}

// TakeFadeInComplete reports a finished fade-in once.
func (overlay *Client) TakeFadeInComplete() bool {
	if !overlay.fadeInComplete {
		return false
	}
	overlay.fadeInComplete = false
	return true
}

// EnsureInputCapture captures input on every surface. It is ignored while a
// fade runs or the overlay is hidden.
func (overlay *Client) EnsureInputCapture() {
	if overlay.fade.Active() {
		return
	}
	overlay.setInputCapture(true)
}

// UpdateFade advances the running fade, redrawing when the levels changed.
// It returns true exactly when a fade-out has just finished.
func (overlay *Client) UpdateFade() bool {
	if !overlay.fade.Active() {
		return false
	}
	frame := overlay.fade.Sample(overlay.config.Now())
	changed := frame.Levels != overlay.levels
	overlay.levels = frame.Levels

	if frame.Done && frame.Kind == animation.KindIn {
		overlay.fadeInComplete = true
		overlay.setInputCapture(true)
		// The corner badge disappears with the fade.
		changed = true
	}
	if changed {
		overlay.redrawAll()
	}
	return frame.Done && frame.Kind == animation.KindOut
}

// DrainIntents returns input intents received since the last call.
func (overlay *Client) DrainIntents() []input.Intent {
	return overlay.router.Drain()
}

func (overlay *Client) setInputCapture(enable bool) {
	if overlay.inputCaptured == enable {
		return
	}
	if enable && !overlay.active {
		return
	}
	overlay.inputCaptured = enable
	overlay.desiredCapture = enable
	if !overlay.active {
		return
	}
	for _, entry := range overlay.surfaces {
		entry.layer.SetKeyboardInteractivity(interactivity(enable))
		overlay.applyInputRegion(entry)
		entry.surface.Commit()
	}
}

// applyInputRegion clears the input region when capturing and installs an
// empty one otherwise, so input passes through.
func (overlay *Client) applyInputRegion(entry *outputSurface) {
	if overlay.desiredCapture {
		entry.surface.SetInputRegion(wayland.Region{})
		if entry.region.Valid() {
			entry.region.Destroy()
			entry.region = wayland.Region{}
		}
		return
	}
	if entry.region.Valid() {
		entry.region.Destroy()
	}
	entry.region = overlay.compositor.CreateRegion()
	entry.surface.SetInputRegion(entry.region)
}

func interactivity(capture bool) uint32 {
	if capture {
		return wayland.KeyboardInteractivityExclusive
	}
	return wayland.KeyboardInteractivityNone
}
