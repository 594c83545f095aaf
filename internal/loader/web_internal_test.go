package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docsum/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
)

const articlePage = `<!doctype html>
<html>
<head>
  <title>Fallback title</title>
  <meta property="og:title" content="Go Summaries">
  <script>var tracking = "ignored";</script>
</head>
<body>
  <header>Site header</header>
  <nav>Home | About</nav>
  <article>
    <h1>Go Summaries</h1>
    <p>First   paragraph
       of the article.</p>
    <p>Second paragraph.</p>
  </article>
  <footer>Copyright</footer>
</body>
</html>`

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example feed</title>
  <link>https://example.com</link>
  <item>
    <title>First post</title>
    <link>https://example.com/1</link>
    <description>&lt;p&gt;Hello &lt;b&gt;world&lt;/b&gt;&lt;/p&gt;</description>
  </item>
  <item>
    <title>Second post</title>
    <link>https://example.com/2</link>
    <description>Plain text body</description>
  </item>
</channel>
</rss>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWeb(t *testing.T, handler http.HandlerFunc) (*Web, string) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := discardLogger()
	pdf := NewPDF(10000, 4000, 200, log)
	pdf.readPages = func(_ context.Context, _ []byte) ([]schema.Document, error) {
		return []schema.Document{{PageContent: "page one"}, {PageContent: "page two"}}, nil
	}

	return NewWeb(newHTTPClient(5*time.Second, false), pdf, log), srv.URL
}

func TestWebLoadExtractsArticleText(t *testing.T) {
	var gotUA string
	web, baseURL := newTestWeb(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, articlePage)
	})

	res, err := web.Load(context.Background(), domain.Source{Kind: domain.SourceWebsite, URL: baseURL + "/post"})
	require.NoError(t, err)

	assert.Equal(t, userAgent, gotUA)
	assert.Equal(t, domain.ContentArticle, res.Info)
	require.Len(t, res.Documents, 1)

	doc := res.Documents[0]
	assert.Equal(t, "Go Summaries\n\nFirst paragraph of the article.\n\nSecond paragraph.", doc.PageContent)
	assert.Equal(t, "Go Summaries", doc.Metadata["title"])
	assert.NotContains(t, doc.PageContent, "Copyright")
	assert.NotContains(t, doc.PageContent, "tracking")
}

func TestWebLoadFallsBackToBody(t *testing.T) {
	web, baseURL := newTestWeb(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><head><title> Plain </title></head><body><div>Just   some text</div></body></html>")
	})

	res, err := web.Load(context.Background(), domain.Source{Kind: domain.SourceWebsite, URL: baseURL})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "Just some text", res.Documents[0].PageContent)
	assert.Equal(t, "Plain", res.Documents[0].Metadata["title"])
}

func TestParseArticleKeepsTextOutsideParagraphs(t *testing.T) {
	page := `<html><body><article>
  <div>The central finding is that <span>quantum widgets</span> scale linearly.</div>
  <div>Second body paragraph<br>continues after a break.</div>
  <p>Photo: a widget.</p>
  <!-- ad slot -->
</article></body></html>`

	doc, err := parseArticle([]byte(page), "https://example.com/widgets")
	require.NoError(t, err)

	assert.Equal(t,
		"The central finding is that quantum widgets scale linearly.\n\n"+
			"Second body paragraph\n\ncontinues after a break.\n\n"+
			"Photo: a widget.",
		doc.PageContent)
	assert.NotContains(t, doc.PageContent, "ad slot")
}

func TestWebLoadParsesFeeds(t *testing.T) {
	web, baseURL := newTestWeb(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, rssFeed)
	})

	res, err := web.Load(context.Background(), domain.Source{Kind: domain.SourceWebsite, URL: baseURL + "/feed.xml"})
	require.NoError(t, err)

	assert.Equal(t, domain.ContentFeed, res.Info)
	require.Len(t, res.Documents, 2)
	assert.Equal(t, "First post\n\nHello world", res.Documents[0].PageContent)
	assert.Equal(t, "https://example.com/2", res.Documents[1].Metadata["link"])
}

func TestWebLoadDetectsFeedWithoutContentType(t *testing.T) {
	web, baseURL := newTestWeb(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, rssFeed)
	})

	res, err := web.Load(context.Background(), domain.Source{Kind: domain.SourceWebsite, URL: baseURL})
	require.NoError(t, err)
	assert.Equal(t, domain.ContentFeed, res.Info)
}

func TestWebLoadHandsPDFToPDFLoader(t *testing.T) {
	web, baseURL := newTestWeb(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.7 fake")
	})

	res, err := web.Load(context.Background(), domain.Source{Kind: domain.SourceWebsite, URL: baseURL + "/doc.pdf"})
	require.NoError(t, err)

	assert.Equal(t, domain.ContentPages, res.Info)
	require.Len(t, res.Documents, 2)
	assert.Equal(t, baseURL+"/doc.pdf", res.Documents[0].Metadata["source"])
}

func TestWebLoadRejectsNon200(t *testing.T) {
	web, baseURL := newTestWeb(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := web.Load(context.Background(), domain.Source{Kind: domain.SourceWebsite, URL: baseURL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestWebLoadEmptyPage(t *testing.T) {
	web, baseURL := newTestWeb(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><body><script>x()</script>  </body></html>")
	})

	_, err := web.Load(context.Background(), domain.Source{Kind: domain.SourceWebsite, URL: baseURL})
	assert.True(t, errors.Is(err, ErrNoContent), "got %v", err)
}

func TestWebLoadRejectsInvalidURL(t *testing.T) {
	web, _ := newTestWeb(t, func(http.ResponseWriter, *http.Request) {
		t.Fatalf("no request expected")
	})

	_, err := web.Load(context.Background(), domain.Source{Kind: domain.SourceWebsite, URL: "not a url"})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestSetLoadRoutesByKind(t *testing.T) {
	called := ""
	stub := func(name string) Loader {
		return loaderFunc(func(context.Context, domain.Source) (Result, error) {
			called = name
			return Result{Info: domain.ContentArticle}, nil
		})
	}

	set := NewSetFromLoaders(stub("youtube"), stub("website"), stub("pdf"))

	for _, kind := range domain.SourceKinds {
		_, err := set.Load(context.Background(), domain.Source{Kind: kind})
		require.NoError(t, err)
		assert.Equal(t, string(kind), called)
	}

	_, err := set.Load(context.Background(), domain.Source{Kind: "docx"})
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

type loaderFunc func(ctx context.Context, src domain.Source) (Result, error)

func (f loaderFunc) Load(ctx context.Context, src domain.Source) (Result, error) {
	return f(ctx, src)
}

func TestDocumentsText(t *testing.T) {
	docs := []schema.Document{{PageContent: "a"}, {PageContent: "b"}, {PageContent: "c"}}

	if got := documentsText(docs, "\n\n"); got != "a\n\nb\n\nc" {
		t.Fatalf("unexpected text %q", got)
	}

	if got := documentsText(nil, " "); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}
