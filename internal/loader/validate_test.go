package loader_test

import (
	"errors"
	"testing"

	"docsum/internal/loader"
)

func TestExtractVideoID(t *testing.T) {
	tests := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":        "dQw4w9WgXcQ",
		"youtube.com/watch?v=abc_DEF-123&t=42":               "abc_DEF-123",
		"https://youtu.be/dQw4w9WgXcQ?si=share":              "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":          "dQw4w9WgXcQ",
		"http://youtube.com/v/dQw4w9WgXcQ":                   "dQw4w9WgXcQ",
		"https://m.youtube.com/shorts/dQw4w9WgXcQ":           "dQw4w9WgXcQ",
		"https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfn": "",
		"https://example.com/watch?v=dQw4w9WgXcQ":            "",
	}

	for raw, want := range tests {
		if got := loader.ExtractVideoID(raw); got != want {
			t.Fatalf("video id mismatch for %q: got %q want %q", raw, got, want)
		}
	}
}

func TestValidateYouTubeURL(t *testing.T) {
	id, err := loader.ValidateYouTubeURL("  https://youtu.be/dQw4w9WgXcQ ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected id %q", id)
	}

	if _, err = loader.ValidateYouTubeURL("https://vimeo.com/123"); !errors.Is(err, loader.ErrNotYouTubeURL) {
		t.Fatalf("expected ErrNotYouTubeURL, got %v", err)
	}

	if _, err = loader.ValidateYouTubeURL("https://www.youtube.com/feed/trending"); !errors.Is(err, loader.ErrNoVideoID) {
		t.Fatalf("expected ErrNoVideoID, got %v", err)
	}

	if _, err = loader.ValidateYouTubeURL(" "); !errors.Is(err, loader.ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestValidateWebsiteURL(t *testing.T) {
	valid := []string{
		"https://example.com",
		"http://example.com/path?q=1#frag",
		" https://blog.example.org/2024/01/post ",
	}
	for _, raw := range valid {
		if err := loader.ValidateWebsiteURL(raw); err != nil {
			t.Fatalf("expected %q to be valid: %v", raw, err)
		}
	}

	invalid := []string{
		"",
		"example.com",
		"ftp://example.com/file",
		"https://",
		"https://example.com/a b",
		"javascript:alert(1)",
	}
	for _, raw := range invalid {
		if err := loader.ValidateWebsiteURL(raw); !errors.Is(err, loader.ErrInvalidURL) {
			t.Fatalf("expected %q to be invalid, got %v", raw, err)
		}
	}
}
