package player

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/gfb107/plex-nmt-bridge/internal/plex"
	"github.com/gfb107/plex-nmt-bridge/internal/timeline"
)

type deviceCall struct {
	kind    string // "key", "command", "play", "insert"
	key     string
	module  string
	command string
	args    []string
	item    *plex.Item
	start   int
}

type fakeDevice struct {
	mu      sync.Mutex
	calls   []deviceCall
	keyBody string
	keyErr  error
	playErr error
}

func (d *fakeDevice) SendKey(ctx context.Context, key, module string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, deviceCall{kind: "key", key: key, module: module})
	return d.keyBody, d.keyErr
}

func (d *fakeDevice) SendCommand(ctx context.Context, module, command string, args ...string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, deviceCall{kind: "command", module: module, command: command, args: args})
	return "", nil
}

func (d *fakeDevice) Play(ctx context.Context, item *plex.Item, startSeconds int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, deviceCall{kind: "play", item: item, start: startSeconds})
	return d.playErr
}

func (d *fakeDevice) InsertInQueue(ctx context.Context, item *plex.Item) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, deviceCall{kind: "insert", item: item})
	return nil
}

func (d *fakeDevice) snapshot() []deviceCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]deviceCall(nil), d.calls...)
}

type fakeQueues struct {
	queue *plex.PlayQueue
	err   error
}

func (q *fakeQueues) GetPlayQueue(ctx context.Context, containerKey string) (*plex.PlayQueue, error) {
	return q.queue, q.err
}

type fakeVideos struct {
	items map[string]*plex.Item
}

func (v *fakeVideos) GetByKey(ctx context.Context, key string) (*plex.Item, error) {
	item, ok := v.items[key]
	if !ok {
		return nil, fmt.Errorf("no item for key %s", key)
	}
	return item, nil
}

type fakeTracks struct {
	mu    sync.Mutex
	items []*plex.Item
}

func (t *fakeTracks) Put(item *plex.Item) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, item)
}

type fakeUpdater struct{}

func (fakeUpdater) UpdateTimeline(ctx context.Context, item *plex.Item) error { return nil }

type fixture struct {
	device  *fakeDevice
	queues  *fakeQueues
	videos  *fakeVideos
	tracks  *fakeTracks
	service *Service
	router  chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		device: &fakeDevice{},
		queues: &fakeQueues{},
		videos: &fakeVideos{items: map[string]*plex.Item{}},
		tracks: &fakeTracks{},
	}
	registry := timeline.NewRegistry(fakeUpdater{}, nil)
	info := Info{
		MachineID: "machine-1",
		Name:      "Living Room",
		Product:   "PlexNMTHelper",
		Version:   "0.1",
		Address:   "192.168.1.20",
		Port:      32500,
	}
	f.service = NewService(f.device, f.queues, f.videos, f.tracks, registry, info, time.Second, nil)
	f.router = chi.NewRouter()
	RegisterRoutes(f.router, f.service)
	return f
}

func (f *fixture) get(t *testing.T, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "192.168.1.30:54321"
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestResources(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/resources", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `machineIdentifier="machine-1"`)
	require.Contains(t, string(body), `protocolCapabilities="timeline,playback,navigation"`)
	require.Contains(t, string(body), `deviceClass="stb"`)
	require.Contains(t, string(body), `title="Living Room"`)
}

func TestPlayMediaWeb(t *testing.T) {
	f := newFixture(t)
	f.videos.items["/library/metadata/42"] = &plex.Item{
		Type: plex.TypeVideo,
		Key:  "/library/metadata/42",
		File: "/media/movies/a.mkv",
	}

	rec := f.get(t, "/player/application/playMedia?viewOffset=5000&path=/library/metadata/42", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	calls := f.device.snapshot()
	require.Len(t, calls, 2)
	require.Equal(t, "key", calls[0].kind)
	require.Equal(t, "stop", calls[0].key)
	require.Equal(t, "playback", calls[0].module)
	require.Equal(t, "play", calls[1].kind)
	require.Equal(t, 5, calls[1].start)
	require.Equal(t, 5, calls[1].item.CurrentTime)
	require.Equal(t, "/media/movies/a.mkv", calls[1].item.File)
}

func TestPlayMediaWebMissingParams(t *testing.T) {
	f := newFixture(t)

	t.Run("missing viewOffset", func(t *testing.T) {
		rec := f.get(t, "/player/application/playMedia?path=/library/metadata/42", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing path", func(t *testing.T) {
		rec := f.get(t, "/player/application/playMedia?viewOffset=5000", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPlayMediaMobileVideo(t *testing.T) {
	f := newFixture(t)
	f.videos.items["/library/metadata/7"] = &plex.Item{
		Type: plex.TypeVideo,
		Key:  "/library/metadata/7",
	}

	rec := f.get(t, "/player/playback/playMedia?offset=30&key=/library/metadata/7&type=video", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	calls := f.device.snapshot()
	require.Len(t, calls, 2)
	require.Equal(t, "stop", calls[0].key)
	require.Equal(t, 30, calls[1].start)
}

func TestPlayMediaMobileMusic(t *testing.T) {
	f := newFixture(t)
	first := &plex.Item{Type: plex.TypeMusic, Key: "/library/metadata/1", Title: "One"}
	second := &plex.Item{Type: plex.TypeMusic, Key: "/library/metadata/2", Title: "Two"}
	third := &plex.Item{Type: plex.TypeMusic, Key: "/library/metadata/3", Title: "Three"}
	f.queues.queue = &plex.PlayQueue{
		ContainerKey: "/playQueues/9",
		Items:        []*plex.Item{first, second, third},
	}

	rec := f.get(t, "/player/playback/playMedia?offset=10&key=/library/metadata/3&type=music&containerKey=/playQueues/9", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	calls := f.device.snapshot()
	// stop, three inserts, then two next presses to reach the third track
	require.Len(t, calls, 6)
	require.Equal(t, "stop", calls[0].key)
	require.Equal(t, "insert", calls[1].kind)
	require.Equal(t, "One", calls[1].item.Title)
	require.Equal(t, "insert", calls[2].kind)
	require.Equal(t, "insert", calls[3].kind)
	require.Equal(t, "next", calls[4].key)
	require.Equal(t, "next", calls[5].key)

	require.Equal(t, 0, first.CurrentTime)
	require.Equal(t, 10, third.CurrentTime)
	require.Len(t, f.tracks.items, 3)
}

func TestPlayMediaMobileMusicRequiresContainerKey(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/player/playback/playMedia?offset=0&key=/library/metadata/3&type=music", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeekTo(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/player/playback/seekTo?offset=65000", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	calls := f.device.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, "command", calls[0].kind)
	require.Equal(t, "playback", calls[0].module)
	require.Equal(t, "set_time_seek_vod", calls[0].command)
	require.Equal(t, []string{"00:01:05"}, calls[0].args)
}

func TestPlaybackVerbs(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/player/playback/skipNext", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	calls := f.device.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, "next", calls[0].key)
	require.Equal(t, "playback", calls[0].module)
}

func TestPlaybackUnknownVerb(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/player/playback/wiggle", nil)
	require.Equal(t, http.StatusNotImplemented, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `status="Not Implemented"`)
	require.Contains(t, string(body), `code="501"`)
	require.Empty(t, f.device.snapshot())
}

func TestNavigationPassThrough(t *testing.T) {
	f := newFixture(t)
	f.device.keyBody = `<theDavidBoxResponse><returnValue>0</returnValue></theDavidBoxResponse>`

	rec := f.get(t, "/player/navigation/moveRight", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	calls := f.device.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, "right", calls[0].key)
	require.Equal(t, "flashlite", calls[0].module)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "theDavidBoxResponse")
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	f := newFixture(t)
	headers := map[string]string{"X-Plex-Client-Identifier": "client-abc"}

	rec := f.get(t, "/player/timeline/subscribe?port=32400&commandID=3", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, f.service.Registry().Count())

	sub := f.service.Registry().Get("client-abc")
	require.NotNil(t, sub)
	require.Equal(t, "3", sub.CommandID())

	rec = f.get(t, "/player/timeline/unsubscribe", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, f.service.Registry().Count())
}

func TestSubscribeRequiresIdentifierAndPort(t *testing.T) {
	f := newFixture(t)

	t.Run("missing identifier header", func(t *testing.T) {
		rec := f.get(t, "/player/timeline/subscribe?port=32400", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing port", func(t *testing.T) {
		rec := f.get(t, "/player/timeline/subscribe", map[string]string{"X-Plex-Client-Identifier": "client-abc"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUnknownPathNotImplemented(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/player/mirror/details", nil)
	require.Equal(t, http.StatusNotImplemented, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "Not Implemented"))
}
