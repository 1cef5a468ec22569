package player

import (
	"context"
	"encoding/xml"
	"log"
	"sync"
	"time"

	"github.com/gfb107/plex-nmt-bridge/internal/plex"
	"github.com/gfb107/plex-nmt-bridge/internal/timeline"
)

// Device is the playback-device command surface the service drives.
type Device interface {
	SendKey(ctx context.Context, key, module string) (string, error)
	SendCommand(ctx context.Context, module, command string, args ...string) (string, error)
	Play(ctx context.Context, item *plex.Item, startSeconds int) error
	InsertInQueue(ctx context.Context, item *plex.Item) error
}

// QueueFetcher expands a container key into an ordered play queue.
type QueueFetcher interface {
	GetPlayQueue(ctx context.Context, containerKey string) (*plex.PlayQueue, error)
}

// VideoSource resolves video items by server key.
type VideoSource interface {
	GetByKey(ctx context.Context, key string) (*plex.Item, error)
}

// TrackStore caches track items produced during queue expansion.
type TrackStore interface {
	Put(item *plex.Item)
}

// Info is the bridge's own identity, stamped into the capability descriptor
// and subscriber payloads.
type Info struct {
	MachineID string
	Name      string
	Product   string
	Version   string
	Address   string
	Port      int
}

// Service implements the player control surface: verb translation, playback
// initiation, and subscriber bookkeeping.
type Service struct {
	device   Device
	queues   QueueFetcher
	videos   VideoSource
	tracks   TrackStore
	registry *timeline.Registry
	info     Info
	timeout  time.Duration
	logger   *log.Logger

	// playMu serializes playback initiation: stop-resolve-play must never
	// interleave between two requests for the one controlled device.
	playMu sync.Mutex
}

func NewService(device Device, queues QueueFetcher, videos VideoSource, tracks TrackStore,
	registry *timeline.Registry, info Info, timeout time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		device:   device,
		queues:   queues,
		videos:   videos,
		tracks:   tracks,
		registry: registry,
		info:     info,
		timeout:  timeout,
		logger:   logger,
	}
}

// Registry exposes the subscriber registry for the state poller's push path.
func (s *Service) Registry() *timeline.Registry {
	return s.registry
}

// resourcesContainer is the static capability descriptor document.
type resourcesContainer struct {
	XMLName xml.Name          `xml:"MediaContainer"`
	Players []resourcesPlayer `xml:"Player"`
}

type resourcesPlayer struct {
	PlatformVersion      string `xml:"platformVersion,attr"`
	Version              string `xml:"version,attr"`
	ProtocolVersion      string `xml:"protocolVersion,attr"`
	MachineIdentifier    string `xml:"machineIdentifier,attr"`
	ProtocolCapabilities string `xml:"protocolCapabilities,attr"`
	DeviceClass          string `xml:"deviceClass,attr"`
	Title                string `xml:"title,attr"`
	Product              string `xml:"product,attr"`
}

// Resources returns the capability descriptor. No side effects.
func (s *Service) Resources() any {
	return resourcesContainer{
		Players: []resourcesPlayer{{
			PlatformVersion:      "2.00",
			Version:              s.info.Version,
			ProtocolVersion:      "1",
			MachineIdentifier:    s.info.MachineID,
			ProtocolCapabilities: "timeline,playback,navigation",
			DeviceClass:          "stb",
			Title:                s.info.Name,
			Product:              s.info.Product,
		}},
	}
}

// Subscribe registers (or replaces) a subscriber for the client identifier.
func (s *Service) Subscribe(clientID, host string, port int, commandID string) {
	sub := timeline.NewSubscriber(clientID, host, port, commandID, timeline.BridgeIdentity{
		MachineID: s.info.MachineID,
		Name:      s.info.Name,
		Address:   s.info.Address,
		Port:      s.info.Port,
	}, s.timeout)
	s.registry.Register(clientID, sub)
	s.logger.Printf("player: subscribed %s at %s:%d", clientID, host, port)
}

// Unsubscribe removes the client's subscriber, if any.
func (s *Service) Unsubscribe(clientID string) {
	s.registry.Unregister(clientID)
}

// UpdateCommandID records a client's latest command identifier.
func (s *Service) UpdateCommandID(clientID, commandID string) {
	s.registry.UpdateCommandID(clientID, commandID)
}

// PlayMediaWeb is the web-client play entry point: the offset arrives in
// milliseconds and the key rides in the path parameter.
func (s *Service) PlayMediaWeb(ctx context.Context, viewOffsetMs int, key string) error {
	s.playMu.Lock()
	defer s.playMu.Unlock()

	if _, err := s.device.SendKey(ctx, "stop", contextPlayback); err != nil {
		s.logger.Printf("player: stop before play failed: %v", err)
	}
	return s.playVideo(ctx, viewOffsetMs/1000, key)
}

// PlayMediaMobile is the mobile-client play entry point: the offset is
// already whole seconds and the media type selects video or queue playback.
func (s *Service) PlayMediaMobile(ctx context.Context, mediaType plex.MediaType, offsetSeconds int, containerKey, key string) error {
	s.playMu.Lock()
	defer s.playMu.Unlock()

	if _, err := s.device.SendKey(ctx, "stop", contextPlayback); err != nil {
		s.logger.Printf("player: stop before play failed: %v", err)
	}

	switch mediaType {
	case plex.TypeMusic:
		return s.playAudio(ctx, offsetSeconds, containerKey, key)
	default:
		return s.playVideo(ctx, offsetSeconds, key)
	}
}

func (s *Service) playVideo(ctx context.Context, offsetSeconds int, key string) error {
	item, err := s.videos.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	item.CurrentTime = offsetSeconds
	return s.device.Play(ctx, item, offsetSeconds)
}

// playAudio expands the container into the device queue in arrival order,
// marks the selected track's start offset, then advances the device to it.
func (s *Service) playAudio(ctx context.Context, offsetSeconds int, containerKey, trackKey string) error {
	queue, err := s.queues.GetPlayQueue(ctx, containerKey)
	if err != nil {
		return err
	}

	trackIndex := -1
	for i, track := range queue.Items {
		if err := s.device.InsertInQueue(ctx, track); err != nil {
			return err
		}
		if track.Key == trackKey {
			track.CurrentTime = offsetSeconds
			trackIndex = i
		} else {
			track.CurrentTime = 0
		}
		s.tracks.Put(track)
	}

	for i := 0; i < trackIndex; i++ {
		if _, err := s.device.SendKey(ctx, "next", contextPlayback); err != nil {
			return err
		}
	}
	return nil
}

// Seek issues an absolute-timestamp seek for the given whole-second offset.
func (s *Service) Seek(ctx context.Context, offsetSeconds int) error {
	_, err := s.device.SendCommand(ctx, contextPlayback, seekCommand, FormatSeekOffset(offsetSeconds))
	return err
}

// Playback translates a transport verb and injects the device key.
func (s *Service) Playback(ctx context.Context, verb string) error {
	key, err := PlaybackKey(verb)
	if err != nil {
		return err
	}
	_, err = s.device.SendKey(ctx, key, contextPlayback)
	return err
}

// Navigate translates a navigation verb and injects the device key,
// returning the device's response body for verbatim pass-through.
func (s *Service) Navigate(ctx context.Context, verb string) (string, error) {
	key, err := NavigationKey(verb)
	if err != nil {
		return "", err
	}
	return s.device.SendKey(ctx, key, contextNavigation)
}
