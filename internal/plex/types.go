package plex

import "encoding/xml"

// MediaType distinguishes the two playable media classes.
type MediaType string

const (
	TypeVideo MediaType = "video"
	TypeMusic MediaType = "music"
)

// Playback states as reported by the device. States are externally driven;
// the bridge never invents one locally.
const (
	StateStopped   = "stopped"
	StatePaused    = "paused"
	StatePlaying   = "playing"
	StateBuffering = "buffering"
)

// Item identifies one playable media element from the server's library.
// Duration is in milliseconds as reported by the server; CurrentTime is in
// whole seconds, matching what the device reports and accepts.
type Item struct {
	Type         MediaType
	ContainerKey string
	Key          string
	RatingKey    string
	Title        string
	GUID         string
	Duration     int
	CurrentTime  int
	State        string

	// File is the server-relative media path, rewritten in place once the
	// path resolution engine has run. HTTPFile is the streaming fallback URL.
	File     string
	HTTPFile string
}

// PlayQueue is an ordered sequence of items bound to one container key, with
// the initially selected entry marked. Immutable after construction except
// for item CurrentTime/State mutation during traversal.
type PlayQueue struct {
	ContainerKey       string
	SelectedItemOffset int
	Items              []*Item
}

// Document is the uniform response shape returned by SendCommand. XML
// responses carry the root element's code/status attributes plus the raw
// body for callers that need a typed unmarshal; non-XML responses are
// synthesized from the HTTP status line and body text.
type Document struct {
	XMLName xml.Name
	Code    string `xml:"code,attr"`
	Status  string `xml:"status,attr"`
	Content string `xml:"content,attr"`

	Raw []byte `xml:"-"`
}

// container mirrors the server's MediaContainer documents just far enough to
// walk play-queue children in document order.
type container struct {
	XMLName            xml.Name       `xml:"MediaContainer"`
	SelectedItemOffset int            `xml:"playQueueSelectedItemOffset,attr"`
	Children           []containerRow `xml:",any"`
}

// containerRow is one Video/Track child element.
type containerRow struct {
	XMLName   xml.Name
	Type      string     `xml:"type,attr"`
	Key       string     `xml:"key,attr"`
	RatingKey string     `xml:"ratingKey,attr"`
	Title     string     `xml:"title,attr"`
	GUID      string     `xml:"guid,attr"`
	Duration  int        `xml:"duration,attr"`
	Media     []mediaRow `xml:"Media"`
}

type mediaRow struct {
	Parts []partRow `xml:"Part"`
}

type partRow struct {
	Key  string `xml:"key,attr"`
	File string `xml:"file,attr"`
}

// part returns the first Media/Part child, or nil.
func (row *containerRow) part() *partRow {
	if len(row.Media) == 0 || len(row.Media[0].Parts) == 0 {
		return nil
	}
	return &row.Media[0].Parts[0]
}
