package media

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestExtractVideoID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=mZ7ENQR9J8k", "mZ7ENQR9J8k", true},
		{"https://youtube.com/watch?v=mZ7ENQR9J8k&t=42s", "mZ7ENQR9J8k", true},
		{"https://www.youtube.com/watch?feature=share&v=mZ7ENQR9J8k", "mZ7ENQR9J8k", true},
		{"https://youtu.be/mZ7ENQR9J8k", "mZ7ENQR9J8k", true},
		{"https://youtu.be/mZ7ENQR9J8k?si=abc", "mZ7ENQR9J8k", true},
		{"https://www.youtube.com/embed/mZ7ENQR9J8k", "mZ7ENQR9J8k", true},
		{"https://www.youtube.com/shorts/mZ7ENQR9J8k", "mZ7ENQR9J8k", true},
		{"https://www.youtube.com/v/mZ7ENQR9J8k", "mZ7ENQR9J8k", true},
		{"https://www.youtube.com/watch?v=short", "", false},
		{"https://www.youtube.com/watch?v=mZ7ENQR9J8kTooLong", "", false},
		{"https://vimeo.com/123456", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractVideoID(tc.url)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ExtractVideoID(%q) = (%q, %v), want (%q, %v)", tc.url, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFromInputsPreservesOrderAndDerivesVideoFields(t *testing.T) {
	t.Parallel()

	items, err := FromInputs([]Input{
		{Type: "video", URL: "https://youtu.be/mZ7ENQR9J8k"},
		{Type: "image", URL: "data:image/png;base64,AAAA"},
		{Type: "IMAGE", URL: " https://example.com/a.jpg "},
	})
	if err != nil {
		t.Fatalf("from inputs: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	video, ok := items[0].(Video)
	if !ok {
		t.Fatalf("expected first item to be a video, got %T", items[0])
	}
	if video.ExternalID != "mZ7ENQR9J8k" {
		t.Fatalf("unexpected video id %q", video.ExternalID)
	}
	if video.ThumbnailURL != "https://img.youtube.com/vi/mZ7ENQR9J8k/maxresdefault.jpg" {
		t.Fatalf("unexpected thumbnail %q", video.ThumbnailURL)
	}
	if img, ok := items[2].(Image); !ok || img.URL != "https://example.com/a.jpg" {
		t.Fatalf("unexpected third item %#v", items[2])
	}
}

func TestFromInputsRejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	cases := [][]Input{
		{{Type: "video", URL: "https://example.com/not-youtube"}},
		{{Type: "video", URL: "https://youtu.be/mZ7ENQR9J8k", VideoID: "bad"}},
		{{Type: "video", URL: "javascript:alert(1)", VideoID: "dQw4w9WgXcQ"}},
		{{Type: "video", URL: "https://youtu.be/aaaaaaaaaaa", VideoID: "dQw4w9WgXcQ"}},
		{{Type: "video", URL: "javascript:alert(1)//youtu.be/dQw4w9WgXcQ"}},
		{{Type: "video", URL: "https://youtu.be/dQw4w9WgXcQ", Thumbnail: "javascript:alert(1)"}},
		{{Type: "image", URL: "  "}},
		{{Type: "audio", URL: "https://example.com/a.mp3"}},
		{{URL: "https://example.com/a.jpg"}},
	}
	for _, inputs := range cases {
		_, err := FromInputs(inputs)
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("expected InputError for %+v, got %v", inputs, err)
		}
		if inputErr.Index != 0 {
			t.Fatalf("expected index 0, got %d", inputErr.Index)
		}
	}
}

func TestNewVideoAcceptsMatchingIDAndURL(t *testing.T) {
	t.Parallel()

	video, err := NewVideo("https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", "")
	if err != nil {
		t.Fatalf("new video: %v", err)
	}
	if video.ExternalID != "dQw4w9WgXcQ" || video.ThumbnailURL != ThumbnailURL("dQw4w9WgXcQ") {
		t.Fatalf("unexpected video %+v", video)
	}

	video, err = NewVideo("", "dQw4w9WgXcQ", "")
	if err != nil {
		t.Fatalf("id only: %v", err)
	}
	if video.SourceURL != WatchURL("dQw4w9WgXcQ") {
		t.Fatalf("expected watch url, got %q", video.SourceURL)
	}
}

func TestItemsJSONPreservesOrder(t *testing.T) {
	t.Parallel()

	items := Items{
		Image{URL: "https://example.com/3.jpg"},
		Video{SourceURL: "https://youtu.be/mZ7ENQR9J8k", ExternalID: "mZ7ENQR9J8k", ThumbnailURL: ThumbnailURL("mZ7ENQR9J8k")},
		Image{URL: "https://example.com/1.jpg"},
		Image{URL: "https://example.com/2.jpg"},
	}

	encoded, err := Encode(items)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(items) {
		t.Fatalf("expected %d items, got %d", len(items), len(decoded))
	}
	for i := range items {
		if decoded[i] != items[i] {
			t.Fatalf("item %d changed: %#v != %#v", i, decoded[i], items[i])
		}
	}

	var wire []map[string]string
	if err := json.Unmarshal(encoded, &wire); err != nil {
		t.Fatalf("unmarshal wire: %v", err)
	}
	if wire[1]["type"] != "video" || wire[1]["videoId"] != "mZ7ENQR9J8k" || wire[1]["url"] != "https://youtu.be/mZ7ENQR9J8k" {
		t.Fatalf("unexpected video wire shape: %v", wire[1])
	}
	if _, hasVideoID := wire[0]["videoId"]; hasVideoID {
		t.Fatalf("image entries must not carry videoId: %v", wire[0])
	}
}

func TestEncodeNilGalleryIsEmptyArray(t *testing.T) {
	t.Parallel()

	encoded, err := Encode(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(encoded) != "[]" {
		t.Fatalf("expected [], got %s", encoded)
	}
	decoded, err := Decode([]byte("null"))
	if err != nil || len(decoded) != 0 {
		t.Fatalf("expected empty gallery from null, got %v %v", decoded, err)
	}
}
