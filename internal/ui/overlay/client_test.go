package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interlude/internal/core/model"
	"interlude/internal/logger"
	"interlude/internal/ui/animation"
	"interlude/internal/ui/input"
	"interlude/internal/ui/render"
	"interlude/internal/wayland"
	"interlude/internal/wayland/waylandtest"
	"interlude/resources"
)

const testKeymap = `xkb_keymap {
xkb_keycodes "test" {
	<ESC> = 9;
	<RTRN> = 36;
	<AB01> = 52;
};
xkb_symbols "test" {
	key <ESC> { [ Escape ] };
	key <RTRN> { [ Return ] };
	key <AB01> { [ z, Z ] };
};
};`

type harness struct {
	server  *waylandtest.Server
	conn    *wayland.Conn
	overlay *Client
	now     time.Time
}

func newHarness(t *testing.T, config waylandtest.Config) *harness {
	t.Helper()
	server, fd, err := waylandtest.New(config)
	require.NoError(t, err)
	conn, err := wayland.NewConn(fd)
	require.NoError(t, err)

	typeface, err := render.NewOpenType(resources.OverlayFont())
	require.NoError(t, err)
	icons, err := render.NewIconRasterizer(resources.MustIcon(resources.AppIcon).Content())
	require.NoError(t, err)

	h := &harness{server: server, conn: conn, now: time.Unix(1_700_000_000, 0)}
	overlay, err := New(conn, Config{
		Colors: model.DefaultColors(),
		Fade:   animation.DefaultConfig(),
		Now:    func() time.Time { return h.now },
	}, Assets{Renderer: render.NewRenderer(typeface), Icons: icons}, logger.Discard())
	t.Cleanup(func() {
		conn.Close()
		server.Close()
	})
	require.NoError(t, err)
	h.overlay = overlay
	return h
}

// sync waits until the fake compositor has handled every request sent.
func (h *harness) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, h.conn.Roundtrip())
	require.NoError(t, h.server.Err())
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func TestNewRequiresLayerShell(t *testing.T) {
	server, fd, err := waylandtest.New(waylandtest.Config{Outputs: 1, OmitLayerShell: true})
	require.NoError(t, err)
	conn, err := wayland.NewConn(fd)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		server.Close()
	})

	_, err = New(conn, Config{Colors: model.DefaultColors()}, Assets{}, nil)
	require.ErrorIs(t, err, ErrMissingGlobals)
	assert.Contains(t, err.Error(), string(wayland.InterfaceLayerShell))
}

func TestLockCreatesOneSurfacePerOutput(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 2})
	require.True(t, h.server.HasInput())
	assert.Equal(t, 2, h.overlay.Outputs())

	require.NoError(t, h.overlay.Lock())
	require.NoError(t, h.overlay.Lock())
	h.sync(t)

	assert.True(t, h.overlay.IsLocked())
	layers := h.server.LiveLayerSurfaces()
	require.Len(t, layers, 2)
	assert.NotEqual(t, layers[0].Output, layers[1].Output)
	for _, layer := range layers {
		assert.Equal(t, wayland.LayerOverlay, layer.Layer)
		assert.Equal(t, DefaultNamespace, layer.Namespace)
		assert.Equal(t, wayland.AnchorAll, layer.Anchor)
		assert.Equal(t, int32(-1), layer.ExclusiveZone)
		assert.Equal(t, wayland.KeyboardInteractivityNone, layer.Interactivity)
		assert.True(t, layer.InputRegionEmpty)
		assert.True(t, layer.Configured)
		assert.NotZero(t, layer.AckedSerial)
		assert.Equal(t, 1, layer.Attaches)
	}
}

func TestFadeNeverCapturesInput(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 1})
	require.NoError(t, h.overlay.Lock())

	h.overlay.StartFadeIn()
	assert.True(t, h.overlay.IsFading())
	assert.Equal(t, animation.Levels{}, h.overlay.Levels())

	h.overlay.EnsureInputCapture()
	assert.False(t, h.overlay.InputCaptured())

	h.advance(7 * time.Second)
	assert.False(t, h.overlay.UpdateFade())
	assert.False(t, h.overlay.InputCaptured())
	assert.False(t, h.overlay.TakeFadeInComplete())

	h.advance(8 * time.Second)
	assert.False(t, h.overlay.UpdateFade())
	assert.False(t, h.overlay.IsFading())
	assert.True(t, h.overlay.InputCaptured())
	assert.True(t, h.overlay.TakeFadeInComplete())
	assert.False(t, h.overlay.TakeFadeInComplete())
	assert.Equal(t, animation.Levels{Overlay: 0xCC, Text: 255}, h.overlay.Levels())

	h.sync(t)
	layer := h.server.LiveLayerSurfaces()[0]
	assert.Equal(t, wayland.KeyboardInteractivityExclusive, layer.Interactivity)
	assert.Zero(t, layer.InputRegion)

	h.overlay.StartFadeOut()
	assert.False(t, h.overlay.InputCaptured())
	h.advance(250 * time.Millisecond)
	assert.False(t, h.overlay.UpdateFade())
	assert.False(t, h.overlay.InputCaptured())
	h.advance(250 * time.Millisecond)
	assert.True(t, h.overlay.UpdateFade())
	assert.False(t, h.overlay.UpdateFade())

	h.sync(t)
	layer = h.server.LiveLayerSurfaces()[0]
	assert.Equal(t, wayland.KeyboardInteractivityNone, layer.Interactivity)
	assert.True(t, layer.InputRegionEmpty)
}

func TestEnsureInputCaptureNeedsActiveOverlay(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 1})
	h.overlay.EnsureInputCapture()
	assert.False(t, h.overlay.InputCaptured())

	require.NoError(t, h.overlay.Lock())
	h.overlay.EnsureInputCapture()
	assert.True(t, h.overlay.InputCaptured())
}

func TestUnlockDestroysSurfaces(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 2})
	require.NoError(t, h.overlay.Lock())
	h.overlay.EnsureInputCapture()
	h.overlay.Unlock()
	h.sync(t)

	assert.False(t, h.overlay.IsLocked())
	assert.False(t, h.overlay.InputCaptured())
	assert.Empty(t, h.server.LiveLayerSurfaces())
	assert.Equal(t, 2, h.server.Count(wayland.InterfaceSurface, wayland.RequestSurfaceDestroy))
}

func TestClosedSurfaceUnlocksWithoutRequests(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 2})
	require.NoError(t, h.overlay.Lock())
	h.overlay.EnsureInputCapture()
	h.sync(t)

	layers := h.server.LiveLayerSurfaces()
	require.NoError(t, h.server.SendClosed(layers[0].ID))
	require.NoError(t, h.overlay.Pump())
	h.sync(t)

	assert.False(t, h.overlay.IsLocked())
	assert.False(t, h.overlay.InputCaptured())
	// The sibling on the other output is destroyed, the closed one is left
	// alone.
	assert.Equal(t, 1, h.server.Count(wayland.InterfaceLayerSurface, wayland.RequestLayerSurfaceDestroy))
	live := h.server.LiveLayerSurfaces()
	require.Len(t, live, 1)
	assert.Equal(t, layers[0].ID, live[0].ID)

	require.NoError(t, h.overlay.Lock())
	h.sync(t)
	assert.Len(t, h.server.LiveLayerSurfaces(), 3)

	h.overlay.Unlock()
	h.sync(t)
	live = h.server.LiveLayerSurfaces()
	require.Len(t, live, 1)
	assert.Equal(t, layers[0].ID, live[0].ID)
}

func TestOutputHotplugKeepsOneSurfacePerOutput(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 1})
	require.NoError(t, h.overlay.Lock())
	h.overlay.EnsureInputCapture()
	h.sync(t)
	first := h.server.LiveLayerSurfaces()[0]

	added, err := h.server.AddOutput()
	require.NoError(t, err)
	require.NoError(t, h.overlay.Pump())
	h.sync(t)
	assert.Equal(t, 2, h.overlay.Outputs())
	live := h.server.LiveLayerSurfaces()
	require.Len(t, live, 2)
	assert.True(t, live[1].Configured)
	assert.Equal(t, wayland.KeyboardInteractivityExclusive, live[1].Interactivity)

	require.NoError(t, h.server.RemoveGlobal(added))
	require.NoError(t, h.overlay.Pump())
	h.sync(t)
	assert.Equal(t, 1, h.overlay.Outputs())
	live = h.server.LiveLayerSurfaces()
	require.Len(t, live, 1)
	assert.Equal(t, first.ID, live[0].ID)
	assert.Equal(t, 1, h.server.Count(wayland.InterfaceOutput, wayland.RequestOutputRelease))

	h.overlay.Unlock()
	h.sync(t)
	assert.Empty(t, h.server.LiveLayerSurfaces())

	_, err = h.server.AddOutput()
	require.NoError(t, err)
	require.NoError(t, h.overlay.Pump())
	h.sync(t)
	assert.Equal(t, 2, h.overlay.Outputs())
	assert.Empty(t, h.server.LiveLayerSurfaces())

	require.NoError(t, h.overlay.Lock())
	h.sync(t)
	assert.Len(t, h.server.LiveLayerSurfaces(), 2)
}

func TestFailedLockLeavesNoSurfaces(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 2})
	h.server.Close()

	require.Error(t, h.overlay.Lock())
	assert.False(t, h.overlay.IsLocked())
	assert.Empty(t, h.overlay.surfaces)
	assert.Empty(t, h.overlay.byLayer)
}

func TestConfigureRedrawsAtNewSize(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 1})
	require.NoError(t, h.overlay.Lock())
	h.sync(t)
	layer := h.server.LiveLayerSurfaces()[0]
	buffers := h.server.Count(wayland.InterfaceShmPool, wayland.RequestShmPoolCreateBuffer)

	require.NoError(t, h.server.SendConfigure(layer.ID, 0, 0))
	require.NoError(t, h.overlay.Pump())
	h.sync(t)
	// Zero dimensions keep the old size and still redraw once.
	assert.Equal(t, buffers+1, h.server.Count(wayland.InterfaceShmPool, wayland.RequestShmPoolCreateBuffer))

	require.NoError(t, h.server.SendConfigure(layer.ID, 400, 300))
	require.NoError(t, h.overlay.Pump())
	h.sync(t)
	assert.Equal(t, buffers+2, h.server.Count(wayland.InterfaceShmPool, wayland.RequestShmPoolCreateBuffer))
	assert.Equal(t, 400, h.overlay.surfaces[0].width)
	assert.Equal(t, 300, h.overlay.surfaces[0].height)
	assert.True(t, h.server.LiveLayerSurfaces()[0].InputRegionEmpty)
}

func TestSetModeRedrawsEverySurface(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 2})
	require.NoError(t, h.overlay.Lock())
	h.overlay.SetMode(render.OnBreak(42))
	h.sync(t)

	assert.Equal(t, render.OnBreak(42), h.overlay.Mode())
	for _, layer := range h.server.LiveLayerSurfaces() {
		assert.Equal(t, 2, layer.Attaches)
	}
}

func TestKeysBecomeIntents(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 1})
	require.NoError(t, h.overlay.Lock())

	require.NoError(t, h.server.SendKey(44, true))
	require.NoError(t, h.server.SendKey(44, false))
	require.NoError(t, h.server.SendButton(true))
	require.NoError(t, h.server.SendButton(false))
	require.NoError(t, h.overlay.Pump())
	assert.Equal(t, []input.Intent{input.IntentSnooze, input.IntentAnyKey, input.IntentPointerClick}, h.overlay.DrainIntents())

	require.NoError(t, h.server.SendKeymap(testKeymap))
	require.NoError(t, h.server.SendKey(28, true))
	require.NoError(t, h.server.SendKey(30, true))
	require.NoError(t, h.overlay.Pump())
	assert.True(t, h.overlay.router.HasKeymap())
	assert.Equal(t, []input.Intent{input.IntentConfirm, input.IntentAnyKey, input.IntentAnyKey}, h.overlay.DrainIntents())
}

func TestSetColorsUpdatesFadeLimits(t *testing.T) {
	h := newHarness(t, waylandtest.Config{Outputs: 1})
	require.NoError(t, h.overlay.Lock())

	h.overlay.SetColors(model.Colors{Background: model.RGBA{0, 0, 0, 0x80}, Foreground: model.RGBA{255, 255, 255, 255}})
	assert.Equal(t, uint8(0x80), h.overlay.Levels().Overlay)

	h.overlay.StartFadeIn()
	h.advance(15 * time.Second)
	h.overlay.UpdateFade()
	assert.Equal(t, animation.Levels{Overlay: 0x80, Text: 255}, h.overlay.Levels())
}
