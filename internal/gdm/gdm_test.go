package gdm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseFields(t *testing.T) {
	payload := "HTTP/1.0 200 OK\r\n" +
		"Name: Media Server\r\n" +
		"Port: 32400\r\n" +
		"Resource-Identifier: abc-123\r\n" +
		"Updated-At: 1700000000\r\n"

	fields := parseFields(payload)
	require.Equal(t, "Media Server", fields["name"])
	require.Equal(t, "32400", fields["port"])
	require.Equal(t, "abc-123", fields["resource-identifier"])
}

func TestParseFieldsSkipsMalformedLines(t *testing.T) {
	fields := parseFields("M-SEARCH * HTTP/1.0\r\nPort: 32400\r\nnocolonhere\r\n")
	require.Equal(t, "32400", fields["port"])
	require.Len(t, fields, 1)
}

func TestAnnouncerPayload(t *testing.T) {
	a := NewAnnouncer(Identity{
		MachineID: "machine-1",
		Name:      "Living Room",
		Port:      32500,
		Product:   "PlexNMTHelper",
		Version:   "0.1",
	}, time.Second, nil)

	payload := a.payload("HELLO * HTTP/1.0")
	require.True(t, strings.HasPrefix(payload, "HELLO * HTTP/1.0\r\n"))

	fields := parseFields(payload)
	require.Equal(t, "plex/media-player", fields["content-type"])
	require.Equal(t, "Living Room", fields["name"])
	require.Equal(t, "32500", fields["port"])
	require.Equal(t, "PlexNMTHelper", fields["product"])
	require.Equal(t, "timeline,playback,navigation", fields["protocol-capabilities"])
	require.Equal(t, "machine-1", fields["resource-identifier"])
	require.Equal(t, "stb", fields["device-class"])
	require.Equal(t, "0.1", fields["version"])
}
