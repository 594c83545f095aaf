package loader

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docsum/internal/domain"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fakeVideos struct {
	video       *youtube.Video
	videoErr    error
	transcripts map[string]youtube.VideoTranscript
	requested   []string
}

func (f *fakeVideos) GetVideoContext(_ context.Context, _ string) (*youtube.Video, error) {
	return f.video, f.videoErr
}

func (f *fakeVideos) GetTranscriptCtx(
	_ context.Context,
	_ *youtube.Video,
	lang string,
) (youtube.VideoTranscript, error) {
	f.requested = append(f.requested, lang)

	transcript, ok := f.transcripts[lang]
	if !ok {
		return nil, errors.New("transcript disabled")
	}

	return transcript, nil
}

func newTestYouTube(t *testing.T, videos videoClient, watchPage http.HandlerFunc) *YouTube {
	t.Helper()

	y := &YouTube{
		videos:     videos,
		httpClient: newHTTPClient(5*time.Second, false),
		languages:  []string{"en"},
		watchURL:   "http://127.0.0.1:1/watch?v=",
		log:        discardLogger(),
	}

	if watchPage != nil {
		srv := httptest.NewServer(watchPage)
		t.Cleanup(srv.Close)
		y.watchURL = srv.URL + "/watch?v="
	}

	return y
}

func TestYouTubeLoadPrefersTranscript(t *testing.T) {
	videos := &fakeVideos{
		video: &youtube.Video{
			Title:         "Talk",
			CaptionTracks: []youtube.CaptionTrack{{LanguageCode: "de"}, {LanguageCode: "en"}},
		},
		transcripts: map[string]youtube.VideoTranscript{
			"en": {{Text: "hello"}, {Text: " "}, {Text: "world"}},
		},
	}

	y := newTestYouTube(t, videos, nil)

	res, err := y.Load(context.Background(), domain.Source{Kind: domain.SourceYouTube, URL: testVideoURL})
	require.NoError(t, err)

	assert.Equal(t, domain.ContentTranscript, res.Info)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "hello world", res.Documents[0].PageContent)
	assert.Equal(t, []string{"en"}, videos.requested)
}

func TestYouTubeLoadUsesOtherCaptionTracks(t *testing.T) {
	videos := &fakeVideos{
		video: &youtube.Video{
			Title:         "Vortrag",
			CaptionTracks: []youtube.CaptionTrack{{LanguageCode: "de"}},
		},
		transcripts: map[string]youtube.VideoTranscript{
			"de": {{Text: "hallo welt"}},
		},
	}

	y := newTestYouTube(t, videos, nil)

	res, err := y.Load(context.Background(), domain.Source{Kind: domain.SourceYouTube, URL: testVideoURL})
	require.NoError(t, err)

	assert.Equal(t, "hallo welt", res.Documents[0].PageContent)
	assert.Equal(t, []string{"en", "de"}, videos.requested)
}

func TestYouTubeLoadFallsBackToVideoInfo(t *testing.T) {
	videos := &fakeVideos{
		video: &youtube.Video{Title: "Talk", Description: "About Go."},
	}

	y := newTestYouTube(t, videos, nil)

	res, err := y.Load(context.Background(), domain.Source{Kind: domain.SourceYouTube, URL: testVideoURL})
	require.NoError(t, err)

	assert.Equal(t, domain.ContentBasicInfo, res.Info)
	assert.Equal(t, "Title: Talk\n\nDescription: About Go.", res.Documents[0].PageContent)
}

func TestYouTubeLoadScrapesWatchPage(t *testing.T) {
	var gotPath string
	y := newTestYouTube(
		t,
		&fakeVideos{videoErr: errors.New("player response blocked")},
		func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.RequestURI()
			_, _ = io.WriteString(w, `<html><script>var x = {"title":"Café talk","shortDescription":"Line one\nLine two"};</script></html>`)
		},
	)

	res, err := y.Load(context.Background(), domain.Source{Kind: domain.SourceYouTube, URL: testVideoURL})
	require.NoError(t, err)

	assert.Equal(t, "/watch?v=dQw4w9WgXcQ", gotPath)
	assert.Equal(t, domain.ContentBasicInfo, res.Info)
	assert.Equal(t, "Title: Café talk\n\nDescription: Line one\nLine two", res.Documents[0].PageContent)
}

func TestYouTubeLoadWatchPageDefaults(t *testing.T) {
	y := newTestYouTube(
		t,
		&fakeVideos{videoErr: errors.New("unavailable")},
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `<html><head></head><body></body></html>`)
		},
	)

	res, err := y.Load(context.Background(), domain.Source{Kind: domain.SourceYouTube, URL: testVideoURL})
	require.NoError(t, err)

	assert.Equal(t,
		"Title: YouTube Video dQw4w9WgXcQ\n\nDescription: No description available.",
		res.Documents[0].PageContent)
}

func TestYouTubeLoadFailsWhenEverythingFails(t *testing.T) {
	y := newTestYouTube(
		t,
		&fakeVideos{videoErr: errors.New("unavailable")},
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)

	_, err := y.Load(context.Background(), domain.Source{Kind: domain.SourceYouTube, URL: testVideoURL})
	require.ErrorIs(t, err, ErrNoContent)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Contains(t, err.Error(), "429")
}

func TestYouTubeLoadRejectsForeignURL(t *testing.T) {
	y := newTestYouTube(t, &fakeVideos{}, nil)

	_, err := y.Load(context.Background(), domain.Source{Kind: domain.SourceYouTube, URL: "https://vimeo.com/1"})
	assert.ErrorIs(t, err, ErrNotYouTubeURL)
}
