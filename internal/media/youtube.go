package media

import "regexp"

// videoIDLength is the fixed length of a YouTube video id.
const videoIDLength = 11

var (
	// youtubeURLPattern captures the id segment after any of the known YouTube URL prefixes.
	youtubeURLPattern = regexp.MustCompile(`^.*(youtu\.be/|v/|u/\w/|embed/|shorts/|watch\?v=|&v=)([^#&?/]*).*`)
	videoIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractVideoID returns the 11-character video id embedded in a YouTube URL.
func ExtractVideoID(rawURL string) (string, bool) {
	match := youtubeURLPattern.FindStringSubmatch(rawURL)
	if len(match) < 3 {
		return "", false
	}
	id := match[2]
	if len(id) != videoIDLength || !IsValidVideoID(id) {
		return "", false
	}
	return id, true
}

// IsValidVideoID reports whether id has the YouTube id shape.
func IsValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// ThumbnailURL returns the hosted preview image for a video id.
func ThumbnailURL(id string) string {
	return "https://img.youtube.com/vi/" + id + "/maxresdefault.jpg"
}

// WatchURL returns the canonical watch page for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// EmbedURL returns the iframe embed URL for a video id.
func EmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id
}
