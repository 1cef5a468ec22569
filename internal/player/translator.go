package player

import (
	"fmt"

	"github.com/gfb107/plex-nmt-bridge/internal/apperrors"
)

// Device key-injection contexts. Transport keys land in the playback module,
// navigation keys in the on-screen UI.
const (
	contextPlayback   = "playback"
	contextNavigation = "flashlite"
)

// seekCommand is the device's absolute-timestamp seek.
const seekCommand = "set_time_seek_vod"

// navigationKeys maps abstract navigation verbs to device keys.
var navigationKeys = map[string]string{
	"moveRight": "right",
	"moveLeft":  "left",
	"moveUp":    "up",
	"moveDown":  "down",
	"select":    "enter",
	"back":      "return",
	"home":      "home",
}

// playbackKeys maps abstract transport verbs to device keys.
var playbackKeys = map[string]string{
	"play":         "play",
	"pause":        "pause",
	"stop":         "stop",
	"skipNext":     "next",
	"skipPrevious": "prev",
	"repeat":       "repeat",
}

func translate(verb string, table map[string]string) (string, error) {
	key, ok := table[verb]
	if !ok {
		return "", apperrors.NewUnknownVerbError(verb)
	}
	return key, nil
}

// NavigationKey translates a navigation verb, failing with UnknownVerb for
// anything outside the table.
func NavigationKey(verb string) (string, error) {
	return translate(verb, navigationKeys)
}

// PlaybackKey translates a transport verb, failing with UnknownVerb for
// anything outside the table.
func PlaybackKey(verb string) (string, error) {
	return translate(verb, playbackKeys)
}

// FormatSeekOffset renders whole seconds as a zero-padded HH:MM:SS
// timestamp. Hours are unbounded.
func FormatSeekOffset(offset int) string {
	seconds := offset % 60
	offset /= 60
	minutes := offset % 60
	hours := offset / 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
