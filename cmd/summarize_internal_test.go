package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"docsum/internal/domain"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCLISourceDetectsKind(t *testing.T) {
	src, err := cliSource("https://youtu.be/dQw4w9WgXcQ", "", "", 1<<20, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceYouTube, src.Kind)

	src, err = cliSource(" https://example.com/post ", "", "", 1<<20, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceWebsite, src.Kind)
	assert.Equal(t, "https://example.com/post", src.URL)

	src, err = cliSource("https://youtu.be/dQw4w9WgXcQ", "website", "", 1<<20, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceWebsite, src.Kind)
}

func TestCLISourceReadsPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 content"), 0o600))

	src, err := cliSource("", "", path, 1<<20, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, domain.SourcePDF, src.Kind)
	assert.Equal(t, "paper.pdf", src.FileName)
	assert.Equal(t, []byte("%PDF-1.7 content"), src.Data)

	src, err = cliSource("", "", path, 4, discardLogger())
	require.NoError(t, err)
	assert.Len(t, src.Data, 5)
}

func TestCLISourceRejectsMismatchedFlags(t *testing.T) {
	_, err := cliSource("", "youtube", "paper.pdf", 1<<20, discardLogger())
	require.Error(t, err)

	_, err = cliSource("", "pdf", "", 1<<20, discardLogger())
	require.Error(t, err)

	_, err = cliSource("https://example.com", "podcast", "", 1<<20, discardLogger())
	require.Error(t, err)

	_, err = cliSource("", "", filepath.Join(t.TempDir(), "missing.pdf"), 1<<20, discardLogger())
	require.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	printSummary(&out, &domain.Summary{
		Kind:          domain.SourcePDF,
		SourceRef:     "paper.pdf",
		Text:          "  The paper argues for testing.  ",
		DocumentCount: 3,
		SummaryWords:  5,
		SourceWords:   900,
		CreatedAt:     time.Now(),
	})

	got := out.String()
	assert.Contains(t, got, "📄 paper.pdf")
	assert.Contains(t, got, "\nThe paper argues for testing.\n")
	assert.Contains(t, got, "Pages: 3")
	assert.Contains(t, got, "Source Words: 900")
	assert.Contains(t, got, "Summary completed!")
}

func TestReadLimitedClosesQuietly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0o600))

	var logs bytes.Buffer
	data, err := readLimited(path, 1<<20, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-1.7"), data)
	assert.NotContains(t, logs.String(), "Failed to close pdf")
}
