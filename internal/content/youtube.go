package content

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	youtubeURLPattern = regexp.MustCompile(`(?i)^(https?://)?(www\.youtube\.com|youtu\.?be)/.+$`)
	youtubeIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// IsYouTubeURL reports whether s is a youtube.com or youtu.be link.
func IsYouTubeURL(s string) bool {
	return youtubeURLPattern.MatchString(s)
}

// YouTubeID extracts the 11 character video id from a YouTube link, looking
// at the v= query parameter first and then at the path.
func YouTubeID(s string) (string, bool) {
	if !IsYouTubeURL(s) {
		return "", false
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}

	if id := u.Query().Get("v"); youtubeIDPattern.MatchString(id) {
		return id, true
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	var candidate string
	switch {
	case strings.EqualFold(u.Hostname(), "youtu.be") || strings.EqualFold(u.Hostname(), "youtube"):
		candidate = segments[0]
	case len(segments) >= 2:
		switch segments[0] {
		case "embed", "v", "shorts", "live":
			candidate = segments[1]
		}
	}
	if youtubeIDPattern.MatchString(candidate) {
		return candidate, true
	}
	return "", false
}

// EmbedURL returns the iframe URL for a video id.
func EmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id
}
