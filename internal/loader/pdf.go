package loader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"docsum/internal/domain"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

const pdfMagic = "%PDF-"

const pageSeparator = "\n\n"

type pageReader func(ctx context.Context, data []byte) ([]schema.Document, error)

type PDF struct {
	threshold int
	splitter  textsplitter.TextSplitter
	readPages pageReader
	log       *slog.Logger
}

func NewPDF(threshold, chunkSize, chunkOverlap int, log *slog.Logger) *PDF {
	return &PDF{
		threshold: threshold,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		readPages: readPDFPages,
		log:       log,
	}
}

func (p *PDF) Load(ctx context.Context, src domain.Source) (Result, error) {
	docs, err := p.loadBytes(ctx, src.Data, src.Ref())
	if err != nil {
		return Result{}, err
	}

	return Result{Documents: docs, Info: domain.ContentPages}, nil
}

func (p *PDF) loadBytes(ctx context.Context, data []byte, ref string) ([]schema.Document, error) {
	if !bytes.HasPrefix(data, []byte(pdfMagic)) {
		return nil, ErrNotPDF
	}

	pages, err := p.readPages(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}

	return p.prepare(pages, ref)
}

// prepare drops blank pages and re-splits the rest when their joined text is
// longer than the threshold.
func (p *PDF) prepare(pages []schema.Document, ref string) ([]schema.Document, error) {
	docs := make([]schema.Document, 0, len(pages))
	for _, page := range pages {
		if strings.TrimSpace(page.PageContent) == "" {
			continue
		}

		if page.Metadata == nil {
			page.Metadata = map[string]any{}
		}
		page.Metadata["source"] = ref

		docs = append(docs, page)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: PDF has no readable text", ErrNoContent)
	}

	length := utf8.RuneCountInString(documentsText(docs, pageSeparator))
	if length <= p.threshold {
		return docs, nil
	}

	chunks, err := textsplitter.SplitDocuments(p.splitter, docs)
	if err != nil {
		return nil, fmt.Errorf("split documents: %w", err)
	}

	p.log.Debug("PDF text is split",
		"source", ref,
		"pages", len(docs),
		"chunks", len(chunks),
		"length", length)

	return chunks, nil
}

func readPDFPages(ctx context.Context, data []byte) (docs []schema.Document, err error) {
	// The PDF parser panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse PDF: %v", r)
		}
	}()

	return documentloaders.NewPDF(bytes.NewReader(data), int64(len(data))).Load(ctx)
}
