// Package media models the ordered gallery attached to a marker.
//
// A gallery entry is either an Image or a Video. Both satisfy Item; code that
// needs to branch on the concrete kind uses a type switch over the two.
package media

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// Kind discriminates gallery entries on the wire.
type Kind string

// Supported gallery entry kinds.
const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Item is one gallery entry.
type Item interface {
	Kind() Kind
	isItem()
}

// Image is a gallery picture referenced by a data URI or a hosted URL.
type Image struct {
	URL string
}

// Kind implements Item.
func (Image) Kind() Kind { return KindImage }
func (Image) isItem()    {}

// Video is a YouTube video.
type Video struct {
	SourceURL    string
	ExternalID   string
	ThumbnailURL string
}

// Kind implements Item.
func (Video) Kind() Kind { return KindVideo }
func (Video) isItem()    {}

// Items is an ordered gallery. Order is display order and survives storage unchanged.
type Items []Item

// wireItem is the JSON shape shared by both kinds.
type wireItem struct {
	Type      Kind   `json:"type"`
	URL       string `json:"url"`
	VideoID   string `json:"videoId,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// MarshalJSON encodes the gallery as an array of tagged objects. A nil gallery encodes as [].
func (items Items) MarshalJSON() ([]byte, error) {
	out := make([]wireItem, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case Image:
			out = append(out, wireItem{Type: KindImage, URL: v.URL})
		case Video:
			out = append(out, wireItem{Type: KindVideo, URL: v.SourceURL, VideoID: v.ExternalID, Thumbnail: v.ThumbnailURL})
		default:
			return nil, fmt.Errorf("media: item %d: unsupported type %T", i, item)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes stored gallery JSON. Stored data is trusted: video ids are not re-validated.
func (items *Items) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*items = Items{}
		return nil
	}
	var raw []wireItem
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("media: decode: %w", err)
	}
	out := make(Items, 0, len(raw))
	for i, w := range raw {
		switch Kind(strings.ToLower(string(w.Type))) {
		case KindImage:
			out = append(out, Image{URL: w.URL})
		case KindVideo:
			out = append(out, Video{SourceURL: w.URL, ExternalID: w.VideoID, ThumbnailURL: w.Thumbnail})
		default:
			return fmt.Errorf("media: item %d: unknown type %q", i, w.Type)
		}
	}
	*items = out
	return nil
}

// Decode parses stored gallery JSON.
func Decode(data []byte) (Items, error) {
	var items Items
	if err := items.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return items, nil
}

// Encode serialises a gallery for storage.
func Encode(items Items) ([]byte, error) {
	return items.MarshalJSON()
}

// Input is an untrusted gallery entry as submitted by a client.
type Input struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	VideoID   string `json:"videoId"`
	Thumbnail string `json:"thumbnail"`
}

// InputError reports which submitted entry was rejected.
type InputError struct {
	Index  int
	Reason string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("contentItems[%d]: %s", e.Index, e.Reason)
}

// FromInputs validates client entries and converts them into a gallery, preserving order.
func FromInputs(inputs []Input) (Items, error) {
	items := make(Items, 0, len(inputs))
	for i, in := range inputs {
		item, err := fromInput(in)
		if err != nil {
			return nil, &InputError{Index: i, Reason: err.Error()}
		}
		items = append(items, item)
	}
	return items, nil
}

func fromInput(in Input) (Item, error) {
	rawURL := strings.TrimSpace(in.URL)
	switch Kind(strings.ToLower(strings.TrimSpace(in.Type))) {
	case KindImage:
		if rawURL == "" {
			return nil, fmt.Errorf("image url is required")
		}
		return Image{URL: rawURL}, nil
	case KindVideo:
		return NewVideo(rawURL, strings.TrimSpace(in.VideoID), strings.TrimSpace(in.Thumbnail))
	case "":
		return nil, fmt.Errorf("type is required")
	default:
		return nil, fmt.Errorf("unsupported type %q", in.Type)
	}
}

// NewVideo builds a Video from a YouTube URL, an explicit id, or both. A URL must always be a
// YouTube link, and when both are given the id embedded in the URL must match videoID.
// The thumbnail defaults to the YouTube hosted preview.
func NewVideo(sourceURL, videoID, thumbnail string) (Video, error) {
	if sourceURL == "" && videoID == "" {
		return Video{}, fmt.Errorf("video url is required")
	}
	if videoID != "" && !IsValidVideoID(videoID) {
		return Video{}, fmt.Errorf("invalid YouTube video id %q", videoID)
	}
	id := videoID
	if sourceURL != "" {
		extracted, ok := ExtractVideoID(sourceURL)
		if !ok || !isWebURL(sourceURL) {
			return Video{}, fmt.Errorf("invalid YouTube URL")
		}
		if id != "" && id != extracted {
			return Video{}, fmt.Errorf("video id %q does not match url", id)
		}
		id = extracted
	}
	if sourceURL == "" {
		sourceURL = WatchURL(id)
	}
	if thumbnail == "" {
		thumbnail = ThumbnailURL(id)
	} else if !isWebURL(thumbnail) {
		return Video{}, fmt.Errorf("invalid thumbnail url")
	}
	return Video{SourceURL: sourceURL, ExternalID: id, ThumbnailURL: thumbnail}, nil
}

func isWebURL(raw string) bool {
	parsed, errParse := url.Parse(raw)
	if errParse != nil || parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}
