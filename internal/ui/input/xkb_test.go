package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeymapResolvesLevels(t *testing.T) {
	keymap, err := ParseKeymap(usKeymap)
	require.NoError(t, err)

	cases := []struct {
		name  string
		scan  uint32
		mods  uint32
		group uint32
		want  Keysym
	}{
		{"escape", 1, 0, 0, KeysymEscape},
		{"return", 28, 0, 0, KeysymReturn},
		{"keypad enter", 96, 0, 0, KeysymKPEnter},
		{"lower a", 30, 0, 0, 'a'},
		{"shift a", 30, ModShift, 0, 'A'},
		{"caps a", 30, ModLock, 0, 'A'},
		{"caps shift a", 30, ModLock | ModShift, 0, 'a'},
		{"alias z", 44, 0, 0, KeysymLowerZ},
		{"shift z", 44, ModShift, 0, KeysymUpperZ},
		{"second group", 44, 0, 1, keysymUnicode | 0x044F},
		{"caps does not shift digits", 2, ModLock, 0, '1'},
		{"shift digit", 2, ModShift, 0, '!'},
		{"one level ignores shift", 57, ModShift, 0, ' '},
		{"unknown key", 200, 0, 0, KeysymNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, keymap.Keysym(tc.scan, tc.mods, tc.group))
		})
	}
}

func TestParseKeymapRejectsGarbage(t *testing.T) {
	_, err := ParseKeymap("not a keymap")
	require.ErrorIs(t, err, ErrNoKeymap)

	_, err = ParseKeymap("xkb_keycodes { <ESC> = 9; }; xkb_symbols { };")
	require.ErrorIs(t, err, ErrNoKeymap)
}

func TestParseKeysymForms(t *testing.T) {
	assert.Equal(t, KeysymReturn, ParseKeysym("Return"))
	assert.Equal(t, Keysym(0xffbe), ParseKeysym("F1"))
	assert.Equal(t, Keysym(0xffc9), ParseKeysym("F12"))
	assert.Equal(t, Keysym(0x1234), ParseKeysym("0x1234"))
	assert.Equal(t, Keysym(0xe9), ParseKeysym("U00E9"))
	assert.Equal(t, Keysym('q'), ParseKeysym("q"))
	assert.Equal(t, KeysymNone, ParseKeysym("NoSymbol"))
	assert.Equal(t, KeysymNone, ParseKeysym("XF86AudioMute"))
}

func TestNilKeymapResolvesNothing(t *testing.T) {
	var keymap *Keymap
	assert.Equal(t, KeysymNone, keymap.Keysym(1, 0, 0))
}
