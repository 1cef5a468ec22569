package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// reserved play-queue parameter the server refuses to see reflected back
const ownParam = "own"

// GetPlayQueue fetches the play-queue document behind a container key and
// assembles the ordered item sequence. The container key's own query
// parameters are re-emitted on the request, minus the reserved own flag.
func (c *Client) GetPlayQueue(ctx context.Context, containerKey string) (*PlayQueue, error) {
	path := containerKey
	rawQuery := ""
	if idx := strings.Index(containerKey, "?"); idx >= 0 {
		path = containerKey[:idx]
		rawQuery = containerKey[idx+1:]
	}

	params := url.Values{}
	for _, pair := range strings.Split(rawQuery, "&") {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == ownParam {
			continue
		}
		params.Add(key, value)
	}

	uri := c.Prefix() + path
	if encoded := params.Encode(); encoded != "" {
		uri += "?" + encoded
	}

	doc, err := c.SendCommand(ctx, uri)
	if err != nil {
		return nil, err
	}
	if len(doc.Raw) == 0 {
		return nil, &MalformedResponseError{URL: uri, Err: fmt.Errorf("expected XML, got status %s", doc.Code)}
	}

	var parsed container
	if err := xml.Unmarshal(doc.Raw, &parsed); err != nil {
		return nil, &MalformedResponseError{URL: uri, Err: err}
	}

	queue := &PlayQueue{
		ContainerKey:       containerKey,
		SelectedItemOffset: parsed.SelectedItemOffset,
	}
	for i := range parsed.Children {
		row := &parsed.Children[i]
		switch row.Type {
		case "movie", "episode":
			queue.Items = append(queue.Items, c.videoFromRow(containerKey, row))
		case "track":
			queue.Items = append(queue.Items, c.trackFromRow(containerKey, row))
		}
	}
	return queue, nil
}

// GetItem fetches a single item's metadata document by key and constructs
// the first playable child.
func (c *Client) GetItem(ctx context.Context, key string) (*Item, error) {
	uri := c.Prefix() + key
	doc, err := c.SendCommand(ctx, uri)
	if err != nil {
		return nil, err
	}
	if len(doc.Raw) == 0 {
		return nil, &MalformedResponseError{URL: uri, Err: fmt.Errorf("expected XML, got status %s", doc.Code)}
	}

	var parsed container
	if err := xml.Unmarshal(doc.Raw, &parsed); err != nil {
		return nil, &MalformedResponseError{URL: uri, Err: err}
	}

	for i := range parsed.Children {
		row := &parsed.Children[i]
		switch row.Type {
		case "movie", "episode":
			return c.videoFromRow(key, row), nil
		case "track":
			return c.trackFromRow(key, row), nil
		}
	}
	return nil, &MalformedResponseError{URL: uri, Err: fmt.Errorf("no playable children")}
}

// videoFromRow builds a video item: File is the server-reported disk path,
// HTTPFile the part's streaming URL.
func (c *Client) videoFromRow(containerKey string, row *containerRow) *Item {
	item := &Item{
		Type:         TypeVideo,
		ContainerKey: containerKey,
		Key:          row.Key,
		RatingKey:    row.RatingKey,
		Title:        row.Title,
		GUID:         row.GUID,
		Duration:     row.Duration,
		State:        StateStopped,
	}
	if part := row.part(); part != nil {
		item.File = part.File
		item.HTTPFile = c.Prefix() + part.Key
	}
	return item
}

// trackFromRow builds a music item: tracks are always streamed, so File is
// the part key itself and HTTPFile the full URL.
func (c *Client) trackFromRow(containerKey string, row *containerRow) *Item {
	item := &Item{
		Type:         TypeMusic,
		ContainerKey: containerKey,
		Key:          row.Key,
		RatingKey:    row.RatingKey,
		Title:        row.Title,
		Duration:     row.Duration,
		State:        StateStopped,
	}
	if part := row.part(); part != nil {
		item.File = part.Key
		item.HTTPFile = c.Prefix() + part.Key
	}
	return item
}
