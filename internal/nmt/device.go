// Package nmt speaks the Networked Media Tank's HTTP command interface
// (port 8008, "theDavidBox" protocol): one GET per command, positional
// arg0..argN query parameters, XML response documents.
package nmt

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gfb107/plex-nmt-bridge/internal/plex"
)

// Product identity announced to the media server and to remote clients.
const (
	ProductName    = "PlexNMTHelper"
	ProductVersion = "0.1"
)

const commandPort = 8008

// PlayerState is one observation of the device's actual playback state.
type PlayerState struct {
	Path     string
	Elapsed  int // seconds
	Duration int // seconds
	State    string
}

// Device is a handle on one NMT on the local network.
type Device struct {
	address string
	name    string
	logger  *log.Logger

	httpClient *http.Client
}

// NewDevice creates a device handle with the given command timeout.
func NewDevice(address, name string, timeout time.Duration, logger *log.Logger) *Device {
	if logger == nil {
		logger = log.Default()
	}
	return &Device{
		address: address,
		name:    name,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:     (&net.Dialer{Timeout: timeout}).DialContext,
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// Name returns the device's configured display name.
func (d *Device) Name() string {
	return d.name
}

// SendKey injects a remote-control key into the given module
// (playback for transport keys, flashlite for navigation).
func (d *Device) SendKey(ctx context.Context, key, module string) (string, error) {
	return d.SendCommand(ctx, module, "send_key", key)
}

// SendCommand issues one command against a device module and returns the raw
// response body.
func (d *Device) SendCommand(ctx context.Context, module, command string, args ...string) (string, error) {
	params := url.Values{}
	params.Set("arg0", command)
	for i, arg := range args {
		params.Set(fmt.Sprintf("arg%d", i+1), arg)
	}

	uri := fmt.Sprintf("http://%s:%d/%s?%s", d.address, commandPort, module, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &TimeoutError{Command: command}
		}
		return "", &UnreachableError{Command: command, Err: err}
	}
	defer resp.Body.Close()

	var doc commandResponse
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", &RejectedError{Command: command, Detail: "unparsable response"}
	}
	if doc.ReturnValue != "0" {
		return "", &RejectedError{Command: command, Detail: "returnValue " + doc.ReturnValue}
	}
	return doc.raw(), nil
}

// Play starts playback of the item's resolved file at the given offset.
func (d *Device) Play(ctx context.Context, item *plex.Item, startSeconds int) error {
	_, err := d.SendCommand(ctx, "playback", "start_vod",
		item.Title, item.File, "show", formatTimestamp(startSeconds))
	return err
}

// InsertInQueue appends the item to the device's playback queue.
func (d *Device) InsertInQueue(ctx context.Context, item *plex.Item) error {
	_, err := d.SendCommand(ctx, "playback", "insert_vod_queue", item.Title, item.HTTPFile)
	return err
}

// NowPlaying reports the device's current playback state. A stopped device
// yields an empty path and state stopped.
func (d *Device) NowPlaying(ctx context.Context) (*PlayerState, error) {
	body, err := d.SendCommand(ctx, "playback", "get_current_vod_info")
	if err != nil {
		var rejected *RejectedError
		// The device rejects the query when nothing is playing.
		if errors.As(err, &rejected) {
			return &PlayerState{State: plex.StateStopped}, nil
		}
		return nil, err
	}

	var doc vodInfoResponse
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, &RejectedError{Command: "get_current_vod_info", Detail: "unparsable response"}
	}

	return &PlayerState{
		Path:     doc.Response.FullPath,
		Elapsed:  parseTimestamp(doc.Response.CurrentTime),
		Duration: parseTimestamp(doc.Response.TotalTime),
		State:    normalizeState(doc.Response.CurrentStatus),
	}, nil
}

// MacAddress returns the device's MAC address, used as the bridge's machine
// identifier.
func (d *Device) MacAddress(ctx context.Context) (string, error) {
	body, err := d.SendCommand(ctx, "system", "get_mac_address")
	if err != nil {
		return "", err
	}
	var doc valueResponse
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return "", &RejectedError{Command: "get_mac_address", Detail: "unparsable response"}
	}
	return strings.TrimSpace(doc.Response.Value), nil
}

// ConvertedPath maps a share URL (for example smb://host/share/) onto the
// device's own mount point for it.
func (d *Device) ConvertedPath(ctx context.Context, path string) (string, error) {
	body, err := d.SendCommand(ctx, "system", "get_file_system_path", path)
	if err != nil {
		return "", err
	}
	var doc valueResponse
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return "", &RejectedError{Command: "get_file_system_path", Detail: "unparsable response"}
	}
	converted := strings.TrimSpace(doc.Response.Value)
	if converted == "" {
		return "", &RejectedError{Command: "get_file_system_path", Detail: "no mapping for " + path}
	}
	return converted, nil
}

// response documents

type commandResponse struct {
	XMLName     xml.Name `xml:"theDavidBox"`
	ReturnValue string   `xml:"returnValue"`
	Inner       innerXML `xml:"response"`
}

type innerXML struct {
	Raw string `xml:",innerxml"`
}

// raw re-wraps the document so typed parsers can decode the response body.
func (r *commandResponse) raw() string {
	return "<theDavidBox><response>" + r.Inner.Raw + "</response><returnValue>" + r.ReturnValue + "</returnValue></theDavidBox>"
}

type vodInfoResponse struct {
	XMLName  xml.Name `xml:"theDavidBox"`
	Response struct {
		FullPath      string `xml:"fullPath"`
		CurrentTime   string `xml:"currentTime"`
		TotalTime     string `xml:"totalTime"`
		CurrentStatus string `xml:"currentStatus"`
	} `xml:"response"`
}

type valueResponse struct {
	XMLName  xml.Name `xml:"theDavidBox"`
	Response struct {
		Value string `xml:",chardata"`
	} `xml:"response"`
}

// formatTimestamp renders whole seconds as zero-padded HH:MM:SS. Hours are
// unbounded.
func formatTimestamp(offset int) string {
	seconds := offset % 60
	offset /= 60
	minutes := offset % 60
	hours := offset / 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// parseTimestamp reads HH:MM:SS (or MM:SS) into whole seconds.
func parseTimestamp(value string) int {
	total := 0
	for _, field := range strings.Split(strings.TrimSpace(value), ":") {
		n, err := strconv.Atoi(field)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

func normalizeState(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "play", "playing":
		return plex.StatePlaying
	case "pause", "paused":
		return plex.StatePaused
	case "buffer", "buffering":
		return plex.StateBuffering
	default:
		return plex.StateStopped
	}
}
