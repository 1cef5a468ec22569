package nmt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gfb107/plex-nmt-bridge/internal/plex"
)

// rewriteTransport redirects every request to the test server regardless of
// the host and port the device handle composed.
type rewriteTransport struct {
	target *url.URL
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func testDevice(t *testing.T, ts *httptest.Server) *Device {
	t.Helper()
	target, err := url.Parse(ts.URL)
	require.NoError(t, err)
	device := NewDevice("192.168.1.50", "Popcorn Hour", time.Second, nil)
	device.httpClient = &http.Client{Transport: &rewriteTransport{target: target}}
	return device
}

func TestSendCommand(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`<theDavidBox><response><value>ok</value></response><returnValue>0</returnValue></theDavidBox>`))
	}))
	defer ts.Close()
	device := testDevice(t, ts)

	body, err := device.SendCommand(context.Background(), "playback", "start_vod", "Title", "/path", "show", "00:01:00")
	require.NoError(t, err)
	require.Contains(t, body, "<value>ok</value>")

	require.Equal(t, "/playback", gotPath)
	require.Equal(t, "start_vod", gotQuery.Get("arg0"))
	require.Equal(t, "Title", gotQuery.Get("arg1"))
	require.Equal(t, "/path", gotQuery.Get("arg2"))
	require.Equal(t, "show", gotQuery.Get("arg3"))
	require.Equal(t, "00:01:00", gotQuery.Get("arg4"))
}

func TestSendCommandRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<theDavidBox><response/><returnValue>1</returnValue></theDavidBox>`))
	}))
	defer ts.Close()
	device := testDevice(t, ts)

	_, err := device.SendCommand(context.Background(), "playback", "send_key", "play")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, "send_key", rejected.Command)
}

func TestSendKeyUsesModule(t *testing.T) {
	var gotPath string
	var gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("arg1")
		_, _ = w.Write([]byte(`<theDavidBox><response/><returnValue>0</returnValue></theDavidBox>`))
	}))
	defer ts.Close()
	device := testDevice(t, ts)

	_, err := device.SendKey(context.Background(), "right", "flashlite")
	require.NoError(t, err)
	require.Equal(t, "/flashlite", gotPath)
	require.Equal(t, "right", gotKey)
}

func TestNowPlaying(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<theDavidBox><response>
<fullPath>/opt/sybhttpd/localhost.drives/NETWORK_SHARE/movies/a.mkv</fullPath>
<currentTime>00:12:34</currentTime>
<totalTime>01:30:00</totalTime>
<currentStatus>play</currentStatus>
</response><returnValue>0</returnValue></theDavidBox>`))
	}))
	defer ts.Close()
	device := testDevice(t, ts)

	state, err := device.NowPlaying(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/opt/sybhttpd/localhost.drives/NETWORK_SHARE/movies/a.mkv", state.Path)
	require.Equal(t, 754, state.Elapsed)
	require.Equal(t, 5400, state.Duration)
	require.Equal(t, plex.StatePlaying, state.State)
}

func TestNowPlayingIdleDevice(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<theDavidBox><response/><returnValue>2</returnValue></theDavidBox>`))
	}))
	defer ts.Close()
	device := testDevice(t, ts)

	state, err := device.NowPlaying(context.Background())
	require.NoError(t, err)
	require.Equal(t, plex.StateStopped, state.State)
	require.Empty(t, state.Path)
}

func TestPlaySendsStartCommand(t *testing.T) {
	var gotQuery url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`<theDavidBox><response/><returnValue>0</returnValue></theDavidBox>`))
	}))
	defer ts.Close()
	device := testDevice(t, ts)

	item := &plex.Item{Title: "A Movie", File: "smb://nas/movies/a.mkv"}
	require.NoError(t, device.Play(context.Background(), item, 125))

	require.Equal(t, "start_vod", gotQuery.Get("arg0"))
	require.Equal(t, "A Movie", gotQuery.Get("arg1"))
	require.Equal(t, "smb://nas/movies/a.mkv", gotQuery.Get("arg2"))
	require.Equal(t, "show", gotQuery.Get("arg3"))
	require.Equal(t, "00:02:05", gotQuery.Get("arg4"))
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{61, "00:01:01"},
		{3661, "01:01:01"},
		{360000, "100:00:00"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, formatTimestamp(tc.seconds))
	}
}

func TestParseTimestamp(t *testing.T) {
	require.Equal(t, 0, parseTimestamp(""))
	require.Equal(t, 75, parseTimestamp("01:15"))
	require.Equal(t, 3661, parseTimestamp("01:01:01"))
	require.Equal(t, 0, parseTimestamp("garbage"))
}

func TestNormalizeState(t *testing.T) {
	require.Equal(t, plex.StatePlaying, normalizeState("play"))
	require.Equal(t, plex.StatePlaying, normalizeState(" Playing "))
	require.Equal(t, plex.StatePaused, normalizeState("pause"))
	require.Equal(t, plex.StateBuffering, normalizeState("buffer"))
	require.Equal(t, plex.StateStopped, normalizeState("stop"))
	require.Equal(t, plex.StateStopped, normalizeState(""))
}
