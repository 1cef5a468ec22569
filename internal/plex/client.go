package plex

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Identity describes the bridge as a player-class client to the media
// server. Every outbound request is stamped with it.
type Identity struct {
	ClientID   string
	DeviceName string
	Product    string
	Version    string
}

// Client talks to one Plex media server.
type Client struct {
	address  string
	port     int
	identity Identity
	token    string
	logger   *log.Logger

	httpClient *http.Client
}

// NewClient creates a media-server client with the given timeout.
// Uses connection pooling for better performance when making multiple requests.
func NewClient(address string, port int, identity Identity, token string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		address:  address,
		port:     port,
		identity: identity,
		token:    token,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Address returns the server's address.
func (c *Client) Address() string {
	return c.address
}

// Prefix returns the server's HTTP base URL.
func (c *Client) Prefix() string {
	return fmt.Sprintf("http://%s:%d", c.address, c.port)
}

// SendCommand executes a GET against the server and classifies the response
// into a uniform Document: XML bodies are parsed as the root element, and
// anything else is synthesized from the HTTP status line and body text so
// callers always receive the same shape regardless of transport outcome.
func (c *Client) SendCommand(ctx context.Context, uri string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	c.logger.Printf("plex: GET %s", uri)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{URL: uri}
		}
		return nil, &UnreachableError{URL: uri, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnreachableError{URL: uri, Err: err}
	}

	if isXMLContentType(resp.Header.Get("Content-Type")) {
		doc := &Document{}
		if err := xml.Unmarshal(body, doc); err != nil {
			// Degrade an unparsable body into a status-bearing document
			// rather than propagating a parse failure.
			c.logger.Printf("plex: unparsable XML from %s: %v", uri, err)
			return &Document{
				XMLName: xml.Name{Local: "Response"},
				Code:    strconv.Itoa(resp.StatusCode),
				Status:  http.StatusText(resp.StatusCode),
				Content: string(body),
			}, nil
		}
		doc.Raw = body
		return doc, nil
	}

	return &Document{
		XMLName: xml.Name{Local: "Response"},
		Code:    strconv.Itoa(resp.StatusCode),
		Status:  http.StatusText(resp.StatusCode),
		Content: string(body),
	}, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Plex-Client-Identifier", c.identity.ClientID)
	req.Header.Set("X-Plex-Device", "stb")
	req.Header.Set("X-Plex-Device-Name", c.identity.DeviceName)
	req.Header.Set("X-Plex-Model", "Linux")
	req.Header.Set("X-Plex-Provides", "player")
	req.Header.Set("X-Plex-Product", c.identity.Product)
	req.Header.Set("X-Plex-Version", c.identity.Version)
	if c.token != "" {
		req.Header.Set("X-Plex-Token", c.token)
	}
}

func isXMLContentType(contentType string) bool {
	mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	return mediaType == "text/xml" || mediaType == "application/xml"
}

// UpdateTimeline reports one item's playback position and state to the
// server. The guid parameter is omitted for music.
func (c *Client) UpdateTimeline(ctx context.Context, item *Item) error {
	params := url.Values{}
	params.Set("containerKey", item.ContainerKey)
	params.Set("duration", strconv.Itoa(item.Duration))
	if item.Type == TypeVideo {
		params.Set("guid", item.GUID)
	}
	params.Set("key", item.Key)
	params.Set("ratingKey", item.RatingKey)
	params.Set("state", item.State)
	// CurrentTime is device-side whole seconds; the wire wants milliseconds.
	params.Set("time", strconv.Itoa(item.CurrentTime*1000))

	_, err := c.SendCommand(ctx, c.Prefix()+"/:/timeline?"+params.Encode())
	return err
}
