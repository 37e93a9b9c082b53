package animation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFadeInRampsOverlayBeforeText(t *testing.T) {
	fade := New(DefaultConfig(), 200, 220)
	levels, started := fade.StartIn(epoch)
	require.True(t, started)
	assert.Equal(t, Levels{}, levels)

	frame := fade.Sample(epoch.Add(7500 * time.Millisecond))
	assert.Equal(t, KindIn, frame.Kind)
	assert.Equal(t, uint8(100), frame.Levels.Overlay)
	assert.Zero(t, frame.Levels.Text)
	assert.False(t, frame.Done)

	frame = fade.Sample(epoch.Add(12 * time.Second))
	assert.Zero(t, frame.Levels.Text, "text stays hidden until the trailing window")

	frame = fade.Sample(epoch.Add(13500 * time.Millisecond))
	assert.Equal(t, uint8(110), frame.Levels.Text)
	assert.True(t, fade.Active())
}

func TestFadeInCompletes(t *testing.T) {
	fade := New(DefaultConfig(), 200, 220)
	fade.StartIn(epoch)

	frame := fade.Sample(epoch.Add(16 * time.Second))
	assert.True(t, frame.Done)
	assert.Equal(t, Levels{Overlay: 200, Text: 255}, frame.Levels)
	assert.False(t, fade.Active())
	assert.Equal(t, KindNone, fade.Sample(epoch.Add(17*time.Second)).Kind)
}

func TestFadeOutKeepsTextProportional(t *testing.T) {
	fade := New(DefaultConfig(), 200, 100)
	levels, started := fade.StartOut(epoch)
	require.True(t, started)
	assert.Equal(t, Levels{Overlay: 200, Text: 100}, levels)
	assert.Equal(t, levels, fade.Sample(epoch).Levels)

	frame := fade.Sample(epoch.Add(250 * time.Millisecond))
	assert.Equal(t, uint8(100), frame.Levels.Overlay)
	assert.Equal(t, uint8(50), frame.Levels.Text)

	frame = fade.Sample(epoch.Add(time.Second))
	assert.True(t, frame.Done)
	assert.Equal(t, Levels{}, frame.Levels)
	assert.False(t, fade.Active())
}

func TestFadeOutWithTransparentBackground(t *testing.T) {
	fade := New(DefaultConfig(), 0, 255)
	fade.StartOut(epoch)
	frame := fade.Sample(epoch.Add(100 * time.Millisecond))
	assert.Equal(t, Levels{}, frame.Levels)
}

func TestStartIsIdempotentPerKind(t *testing.T) {
	fade := New(DefaultConfig(), 200, 200)
	_, started := fade.StartIn(epoch)
	require.True(t, started)
	_, started = fade.StartIn(epoch.Add(time.Second))
	assert.False(t, started)

	frame := fade.Sample(epoch.Add(7500 * time.Millisecond))
	assert.Equal(t, uint8(100), frame.Levels.Overlay, "restart must not move the start instant")

	_, started = fade.StartOut(epoch.Add(8 * time.Second))
	assert.True(t, started, "fade-out replaces a running fade-in")
	assert.Equal(t, KindOut, fade.Kind())
}

func TestNormalizedConfig(t *testing.T) {
	fade := New(Config{FadeIn: time.Second, TextWindow: 5 * time.Second}, 255, 255)
	assert.Equal(t, time.Second, fade.config.TextWindow)
	assert.Equal(t, 500*time.Millisecond, fade.config.FadeOut)
}

func TestCancelStopsWithoutDone(t *testing.T) {
	fade := New(DefaultConfig(), 200, 200)
	fade.StartOut(epoch)
	fade.Cancel()
	assert.False(t, fade.Active())

	frame := fade.Sample(epoch.Add(time.Second))
	assert.Equal(t, KindNone, frame.Kind)
	assert.False(t, frame.Done)
}
