package loader

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"mvdan.cc/xurls/v2"
)

var videoIDPatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // Compiled once.
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/v/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?youtube\.com/shorts/([a-zA-Z0-9_-]+)`),
}

var strictHTTPURLRe = sync.OnceValues(func() (*regexp.Regexp, error) { //nolint:gochecknoglobals // Lazy compile.
	return xurls.StrictMatchingScheme(`https?://`)
})

// ExtractVideoID returns the video ID of a YouTube URL or "" when the URL
// matches none of the known layouts.
func ExtractVideoID(raw string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(raw); len(m) > 1 {
			return m[1]
		}
	}

	return ""
}

// ValidateYouTubeURL returns the video ID of raw.
func ValidateYouTubeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	if !strings.Contains(raw, "youtube.com") && !strings.Contains(raw, "youtu.be") {
		return "", fmt.Errorf("%w: %q", ErrNotYouTubeURL, raw)
	}

	id := ExtractVideoID(raw)
	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrNoVideoID, raw)
	}

	return id, nil
}

// ValidateWebsiteURL accepts absolute http and https URLs only.
func ValidateWebsiteURL(raw string) error {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	re, err := strictHTTPURLRe()
	if err != nil {
		return fmt.Errorf("create regexp: %w", err)
	}

	if re.FindString(raw) != raw {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	return nil
}
