package player

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gfb107/plex-nmt-bridge/internal/apperrors"
)

func TestNavigationKey(t *testing.T) {
	expected := map[string]string{
		"moveRight": "right",
		"moveLeft":  "left",
		"moveUp":    "up",
		"moveDown":  "down",
		"select":    "enter",
		"back":      "return",
		"home":      "home",
	}
	for verb, key := range expected {
		t.Run(verb, func(t *testing.T) {
			got, err := NavigationKey(verb)
			require.NoError(t, err)
			require.Equal(t, key, got)
		})
	}

	t.Run("unknown verb fails", func(t *testing.T) {
		_, err := NavigationKey("moveDiagonally")
		require.Error(t, err)
		appErr := apperrors.EnsureAppError(err)
		require.Equal(t, apperrors.ErrorCodeUnknownVerb, appErr.Code)
	})

	t.Run("playback verb is not a navigation verb", func(t *testing.T) {
		_, err := NavigationKey("play")
		require.Error(t, err)
	})
}

func TestPlaybackKey(t *testing.T) {
	expected := map[string]string{
		"play":         "play",
		"pause":        "pause",
		"stop":         "stop",
		"skipNext":     "next",
		"skipPrevious": "prev",
		"repeat":       "repeat",
	}
	for verb, key := range expected {
		t.Run(verb, func(t *testing.T) {
			got, err := PlaybackKey(verb)
			require.NoError(t, err)
			require.Equal(t, key, got)
		})
	}

	t.Run("unknown verb fails", func(t *testing.T) {
		_, err := PlaybackKey("rewind")
		require.Error(t, err)
		appErr := apperrors.EnsureAppError(err)
		require.Equal(t, apperrors.ErrorCodeUnknownVerb, appErr.Code)
		require.Equal(t, 501, appErr.StatusCode)
	})
}

func TestFormatSeekOffset(t *testing.T) {
	cases := []struct {
		offset int
		want   string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{60, "00:01:00"},
		{3661, "01:01:01"},
		{7325, "02:02:05"},
		{360000, "100:00:00"}, // hours are unbounded
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatSeekOffset(tc.offset))
	}
}
