package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

type SourceKind string

const (
	SourceYouTube SourceKind = "youtube"
	SourceWebsite SourceKind = "website"
	SourcePDF     SourceKind = "pdf"
)

// SourceKinds lists the kinds in the order the UI offers them.
var SourceKinds = []SourceKind{SourceYouTube, SourceWebsite, SourcePDF} //nolint:gochecknoglobals // Immutable list.

func ParseSourceKind(raw string) (SourceKind, error) {
	switch SourceKind(strings.ToLower(strings.TrimSpace(raw))) {
	case SourceYouTube:
		return SourceYouTube, nil
	case SourceWebsite:
		return SourceWebsite, nil
	case SourcePDF:
		return SourcePDF, nil
	default:
		return "", fmt.Errorf("unknown source kind: %q", raw)
	}
}

func (k SourceKind) Label() string {
	switch k {
	case SourceYouTube:
		return "YouTube Video"
	case SourceWebsite:
		return "Website/Article"
	case SourcePDF:
		return "PDF Document"
	default:
		return string(k)
	}
}

// ContentInfo tells how the source text was obtained.
type ContentInfo string

const (
	ContentTranscript ContentInfo = "transcript"
	ContentBasicInfo  ContentInfo = "basic_info"
	ContentArticle    ContentInfo = "article"
	ContentFeed       ContentInfo = "feed"
	ContentPages      ContentInfo = "pages"
)

// Source is a single user input: a URL for YouTube and websites, uploaded
// bytes for PDFs.
type Source struct {
	Kind     SourceKind
	URL      string
	FileName string
	Data     []byte
}

func (s Source) Ref() string {
	if s.Kind == SourcePDF {
		return strings.TrimSpace(s.FileName)
	}

	return strings.TrimSpace(s.URL)
}

// InputKey identifies equal inputs so that a repeated request is served
// without loading and summarizing again.
func (s Source) InputKey() string {
	if s.Kind == SourcePDF {
		if len(s.Data) == 0 {
			return ""
		}

		hash := sha256.Sum256(s.Data)

		return fmt.Sprintf("%s|%s|%d|%s", s.Kind, s.Ref(), len(s.Data), hex.EncodeToString(hash[:]))
	}

	ref := s.Ref()
	if ref == "" {
		return ""
	}

	return string(s.Kind) + "|" + ref
}

type Summary struct {
	ID            string      `json:"id"`
	Kind          SourceKind  `json:"kind"`
	SourceRef     string      `json:"source"`
	InputKey      string      `json:"-"`
	Text          string      `json:"summary"`
	ContentInfo   ContentInfo `json:"contentInfo"`
	DocumentCount int         `json:"documentCount"`
	SummaryWords  int         `json:"summaryWords"`
	SourceWords   int         `json:"sourceWords"`
	Model         string      `json:"model"`
	CreatedAt     time.Time   `json:"createdAt"`
	Cached        bool        `json:"cached"`
}

// DocumentCountLabel is "Pages" for PDFs and "Documents" otherwise.
func (s *Summary) DocumentCountLabel() string {
	if s.Kind == SourcePDF {
		return "Pages"
	}

	return "Documents"
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}
