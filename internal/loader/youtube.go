package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"docsum/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/kkdai/youtube/v2"
	"github.com/tmc/langchaingo/schema"
)

const (
	youTubeWatchURL       = "https://www.youtube.com/watch?v="
	youTubeWatchPageLimit = 4 << 20
	noDescription         = "No description available."
)

var (
	watchTitleRe       = regexp.MustCompile(`"title":"([^"]+)"`)
	watchDescriptionRe = regexp.MustCompile(`"shortDescription":"([^"]+)"`)
)

// videoClient is the part of the kkdai/youtube client the loader uses.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetTranscriptCtx(ctx context.Context, video *youtube.Video, lang string) (youtube.VideoTranscript, error)
}

type YouTube struct {
	videos     videoClient
	httpClient *http.Client
	languages  []string
	watchURL   string
	log        *slog.Logger
}

func NewYouTube(httpClient *http.Client, languages []string, log *slog.Logger) *YouTube {
	return &YouTube{
		videos:     &youtube.Client{HTTPClient: httpClient},
		httpClient: httpClient,
		languages:  languages,
		watchURL:   youTubeWatchURL,
		log:        log,
	}
}

// Load tries the transcript first and falls back to the video title and
// description. Every failed attempt is reported when nothing works.
func (y *YouTube) Load(ctx context.Context, src domain.Source) (Result, error) {
	id, err := ValidateYouTubeURL(src.URL)
	if err != nil {
		return Result{}, err
	}

	ref := src.Ref()
	var errs []error

	video, err := y.videos.GetVideoContext(ctx, id)
	if err != nil {
		errs = append(errs, fmt.Errorf("get video: %w", err))
	} else {
		text, transcriptErr := y.transcript(ctx, video)
		if transcriptErr == nil {
			return Result{
				Documents: []schema.Document{{
					PageContent: text,
					Metadata:    map[string]any{"source": ref, "title": video.Title},
				}},
				Info: domain.ContentTranscript,
			}, nil
		}
		errs = append(errs, transcriptErr)

		if strings.TrimSpace(video.Title) != "" {
			return basicInfoResult(ref, video.Title, video.Description), nil
		}
		errs = append(errs, errors.New("video info has no title"))
	}

	y.log.DebugContext(ctx, "Falling back to watch page",
		"videoID", id,
		"error", errors.Join(errs...))

	title, description, err := y.scrapeWatchPage(ctx, id)
	if err != nil {
		errs = append(errs, fmt.Errorf("scrape watch page: %w", err))

		return Result{}, fmt.Errorf("%w: %w", ErrNoContent, errors.Join(errs...))
	}

	return basicInfoResult(ref, title, description), nil
}

// transcript returns the first non-empty transcript, preferred languages
// first and any other caption track after them.
func (y *YouTube) transcript(ctx context.Context, video *youtube.Video) (string, error) {
	languages := slices.Clone(y.languages)
	for _, track := range video.CaptionTracks {
		if track.LanguageCode != "" && !slices.Contains(languages, track.LanguageCode) {
			languages = append(languages, track.LanguageCode)
		}
	}

	if len(languages) == 0 {
		return "", errors.New("no caption tracks")
	}

	var errs []error
	for _, lang := range languages {
		segments, err := y.videos.GetTranscriptCtx(ctx, video, lang)
		if err != nil {
			errs = append(errs, fmt.Errorf("get transcript %s: %w", lang, err))
			continue
		}

		parts := make([]string, 0, len(segments))
		for _, s := range segments {
			if t := strings.TrimSpace(s.Text); t != "" {
				parts = append(parts, t)
			}
		}

		if len(parts) == 0 {
			errs = append(errs, fmt.Errorf("get transcript %s: empty", lang))
			continue
		}

		return strings.Join(parts, " "), nil
	}

	return "", errors.Join(errs...)
}

func (y *YouTube) scrapeWatchPage(ctx context.Context, id string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.watchURL+id, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := y.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			y.log.Error("Failed to close watch page body", "error", closeErr)
		}
	}()

	if res.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, youTubeWatchPageLimit))
	if err != nil {
		return "", "", fmt.Errorf("read body: %w", err)
	}
	page := string(body)

	title := matchJSONString(watchTitleRe, page)
	if title == "" {
		title = ogTitle(page)
	}
	if title == "" {
		title = "YouTube Video " + id
	}

	description := matchJSONString(watchDescriptionRe, page)
	if description == "" {
		description = noDescription
	}

	return title, description, nil
}

func basicInfoResult(ref, title, description string) Result {
	if strings.TrimSpace(description) == "" {
		description = noDescription
	}

	return Result{
		Documents: []schema.Document{{
			PageContent: fmt.Sprintf("Title: %s\n\nDescription: %s", title, description),
			Metadata:    map[string]any{"source": ref, "title": title},
		}},
		Info: domain.ContentBasicInfo,
	}
}

// matchJSONString returns the first capture of re with JSON escapes decoded.
func matchJSONString(re *regexp.Regexp, page string) string {
	m := re.FindStringSubmatch(page)
	if len(m) < 2 { //nolint:mnd // Full match and one group.
		return ""
	}

	if unquoted, err := strconv.Unquote(`"` + m[1] + `"`); err == nil {
		return strings.TrimSpace(unquoted)
	}

	return strings.TrimSpace(m[1])
}

func ogTitle(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}

	if content, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		return strings.TrimSpace(content)
	}

	return ""
}
