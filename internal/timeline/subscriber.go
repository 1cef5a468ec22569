package timeline

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gfb107/plex-nmt-bridge/internal/plex"
)

// BridgeIdentity is stamped into every push payload so subscribers know who
// is reporting.
type BridgeIdentity struct {
	MachineID string
	Name      string
	Address   string
	Port      int
}

// Subscriber is one remote client registered for push timeline updates. It
// holds its own delivery address and the last command identifier it sent.
type Subscriber struct {
	clientID string
	host     string
	port     int
	identity BridgeIdentity

	httpClient *http.Client

	mu        sync.Mutex
	commandID string
}

func NewSubscriber(clientID, host string, port int, commandID string, identity BridgeIdentity, timeout time.Duration) *Subscriber {
	return &Subscriber{
		clientID:   clientID,
		host:       host,
		port:       port,
		identity:   identity,
		commandID:  commandID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ClientID returns the subscriber's client identifier.
func (s *Subscriber) ClientID() string {
	return s.clientID
}

// CommandID returns the last command identifier the client sent.
func (s *Subscriber) CommandID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commandID
}

// SetCommandID records the client's most recent command identifier.
func (s *Subscriber) SetCommandID(commandID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandID = commandID
}

// timelineContainer is the push payload document.
type timelineContainer struct {
	XMLName           xml.Name        `xml:"MediaContainer"`
	MachineIdentifier string          `xml:"machineIdentifier,attr"`
	CommandID         string          `xml:"commandID,attr,omitempty"`
	Timelines         []timelineEntry `xml:"Timeline"`
}

type timelineEntry struct {
	Type         string `xml:"type,attr"`
	State        string `xml:"state,attr"`
	Time         int    `xml:"time,attr,omitempty"`
	Duration     int    `xml:"duration,attr,omitempty"`
	Key          string `xml:"key,attr,omitempty"`
	RatingKey    string `xml:"ratingKey,attr,omitempty"`
	ContainerKey string `xml:"containerKey,attr,omitempty"`
	Address      string `xml:"address,attr,omitempty"`
	Port         int    `xml:"port,attr,omitempty"`
}

// UpdateTimeline pushes one timeline document to the subscriber. All three
// media classes are reported; only the active item's class carries state.
func (s *Subscriber) UpdateTimeline(ctx context.Context, item *plex.Item, state string) error {
	payload := timelineContainer{
		MachineIdentifier: s.identity.MachineID,
		CommandID:         s.CommandID(),
	}
	for _, class := range []string{"music", "photo", "video"} {
		entry := timelineEntry{Type: class, State: plex.StateStopped}
		if (class == "video" && item.Type == plex.TypeVideo) ||
			(class == "music" && item.Type == plex.TypeMusic) {
			entry.State = state
			entry.Time = item.CurrentTime * 1000
			entry.Duration = item.Duration
			entry.Key = item.Key
			entry.RatingKey = item.RatingKey
			entry.ContainerKey = item.ContainerKey
			entry.Address = s.identity.Address
			entry.Port = s.identity.Port
		}
		payload.Timelines = append(payload.Timelines, entry)
	}

	body, err := xml.Marshal(payload)
	if err != nil {
		return err
	}

	uri := fmt.Sprintf("http://%s:%d/:/timeline", s.host, s.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("X-Plex-Client-Identifier", s.identity.MachineID)
	req.Header.Set("X-Plex-Device-Name", s.identity.Name)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("subscriber %s responded %d", s.clientID, resp.StatusCode)
	}
	return nil
}
