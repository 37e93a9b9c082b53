package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorForms(t *testing.T) {
	cases := []struct {
		in   string
		want RGBA
	}{
		{"#000", RGBA{0, 0, 0, 0xFF}},
		{"#fff", RGBA{0xFF, 0xFF, 0xFF, 0xFF}},
		{"#1a2B3c", RGBA{0x1A, 0x2B, 0x3C, 0xFF}},
		{"#11223344", RGBA{0x11, 0x22, 0x33, 0x44}},
		{"  #abc  ", RGBA{0xAA, 0xBB, 0xCC, 0xFF}},
	}
	for _, tc := range cases {
		got, err := ParseColor(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseColorRejectsMalformed(t *testing.T) {
	for _, in := range []string{"112233", "", "#", "#12", "#1234", "#12345", "#1234567", "#123456789", "#ggg", "#12345z"} {
		_, err := ParseColor(in)
		assert.Error(t, err, in)
	}
}

func TestHexRoundTrip(t *testing.T) {
	c := RGBA{0x01, 0xAB, 0xCD, 0xEF}
	got, err := ParseColor(c.Hex())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestFirstIntervalAndBreak(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	assert.Equal(t, cfg.Interval, cfg.FirstInterval())
	assert.Equal(t, cfg.BreakLength, cfg.FirstBreak())

	cfg.InitialInterval = 5
	cfg.InitialBreak = 7
	assert.EqualValues(t, 5, cfg.FirstInterval())
	assert.EqualValues(t, 7, cfg.FirstBreak())
}
