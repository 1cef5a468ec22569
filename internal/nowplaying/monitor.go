// Package nowplaying polls the device's actual playback state and feeds
// changes into the timeline fan-out.
package nowplaying

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gfb107/plex-nmt-bridge/internal/media"
	"github.com/gfb107/plex-nmt-bridge/internal/nmt"
	"github.com/gfb107/plex-nmt-bridge/internal/plex"
)

// StateSource observes the device.
type StateSource interface {
	NowPlaying(ctx context.Context) (*nmt.PlayerState, error)
}

// ItemResolver maps a device-reported path back to a library item.
type ItemResolver interface {
	GetByPath(ctx context.Context, path string) (*plex.Item, error)
}

// Broadcaster is the push path into the subscription registry.
type Broadcaster interface {
	Broadcast(ctx context.Context, item *plex.Item, state string)
}

// Monitor polls on a fixed interval. A failed iteration logs and waits for
// the next tick; the loop only exits on Stop.
type Monitor struct {
	device      StateSource
	videos      ItemResolver
	tracks      ItemResolver
	broadcaster Broadcaster
	interval    time.Duration
	logger      *log.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	current *plex.Item
}

func NewMonitor(device StateSource, videos, tracks ItemResolver, broadcaster Broadcaster,
	interval time.Duration, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		device:      device,
		videos:      videos,
		tracks:      tracks,
		broadcaster: broadcaster,
		interval:    interval,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start launches the poll loop.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop halts the poll loop and waits for it to finish.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func (m *Monitor) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.poll()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval*4)
	defer cancel()

	state, err := m.device.NowPlaying(ctx)
	if err != nil {
		m.logger.Printf("nowplaying: poll failed: %v", err)
		return
	}

	if state.State == plex.StateStopped || state.Path == "" {
		// Report the end of the last observed item exactly once.
		if m.current != nil {
			m.broadcaster.Broadcast(ctx, m.current, plex.StateStopped)
			m.current = nil
		}
		return
	}

	item := m.resolve(ctx, state.Path)
	if item == nil {
		return
	}

	item.CurrentTime = state.Elapsed
	m.current = item
	m.broadcaster.Broadcast(ctx, item, state.State)
}

func (m *Monitor) resolve(ctx context.Context, path string) *plex.Item {
	if m.current != nil && (m.current.File == path || m.current.HTTPFile == path) {
		return m.current
	}

	for _, source := range []ItemResolver{m.tracks, m.videos} {
		item, err := source.GetByPath(ctx, path)
		if err == nil {
			return item
		}
		if !errors.Is(err, media.ErrNotFound) {
			m.logger.Printf("nowplaying: lookup for %s failed: %v", path, err)
			return nil
		}
	}
	m.logger.Printf("nowplaying: no library item for %s", path)
	return nil
}
