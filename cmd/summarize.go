package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"docsum/internal/domain"
	"docsum/internal/loader"
	"docsum/internal/pipeline"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const spinnerTick = 100 * time.Millisecond

var (
	summarizeKind string
	summarizePDF  string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [url]",
	Short: "Summarize a link or a local PDF once and print the result",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawURL := ""
		if len(args) > 0 {
			rawURL = args[0]
		}

		return runSummarize(cmd.Context(), cmd.OutOrStdout(), rawURL)
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeKind, "kind", "", "Source kind: youtube, website or pdf (detected when empty)")
	summarizeCmd.Flags().StringVar(&summarizePDF, "pdf", "", "Path to a local PDF document")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(parent context.Context, out io.Writer, rawURL string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Logs go to stderr so that stdout carries only the summary.
	log := newLoggerTo(os.Stderr, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := cliSource(rawURL, summarizeKind, summarizePDF, cfg.MaxUploadBytes, log)
	if err != nil {
		return err
	}

	s, err := initSummarizer(ctx, cfg, log)
	if err != nil {
		return err
	}

	svc := newService(cfg, s, nil, nil, log)

	var summary *domain.Summary
	withSpinner(fmt.Sprintf("%s Summarizing %s...", kindEmoji(src.Kind), strings.ToLower(src.Kind.Label())), func() {
		summary, err = svc.Summarize(ctx, src)
	})

	if err != nil {
		message, hint := pipeline.Failure(err)
		color.New(color.FgRed).Fprintf(out, "❌ %s\n", message)
		if hint != "" {
			color.New(color.FgCyan).Fprintf(out, "💡 %s\n", hint)
		}

		return fmt.Errorf("summarize: %w", err)
	}

	printSummary(out, summary)

	return nil
}

// cliSource builds a source from the command line. Without --kind a link is
// treated as YouTube when it looks like one and as a website otherwise.
func cliSource(rawURL, rawKind, pdfPath string, maxBytes int64, log *slog.Logger) (domain.Source, error) {
	if pdfPath != "" {
		if rawKind != "" && !strings.EqualFold(rawKind, string(domain.SourcePDF)) {
			return domain.Source{}, errors.New("--pdf can only be used with --kind pdf")
		}

		data, err := readLimited(pdfPath, maxBytes, log)
		if err != nil {
			return domain.Source{}, err
		}

		return domain.Source{Kind: domain.SourcePDF, FileName: filepath.Base(pdfPath), Data: data}, nil
	}

	rawURL = strings.TrimSpace(rawURL)

	if rawKind == "" {
		if _, err := loader.ValidateYouTubeURL(rawURL); err == nil {
			return domain.Source{Kind: domain.SourceYouTube, URL: rawURL}, nil
		}

		return domain.Source{Kind: domain.SourceWebsite, URL: rawURL}, nil
	}

	kind, err := domain.ParseSourceKind(rawKind)
	if err != nil {
		return domain.Source{}, err
	}
	if kind == domain.SourcePDF {
		return domain.Source{}, errors.New("--kind pdf needs --pdf <path>")
	}

	return domain.Source{Kind: kind, URL: rawURL}, nil
}

func readLimited(path string, maxBytes int64, log *slog.Logger) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error("Failed to close pdf",
				"error", err,
				"path", path)
		}
	}()

	// One byte past the limit lets validation report the oversize.
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	return data, nil
}

func printSummary(out io.Writer, s *domain.Summary) {
	color.New(color.FgGreen, color.Bold).Fprintln(out, "\n✨ AI-Generated Summary ✨")
	if s.SourceRef != "" {
		color.New(color.FgBlue).Fprintf(out, "%s %s\n", kindEmoji(s.Kind), s.SourceRef)
	}

	fmt.Fprintf(out, "\n%s\n\n", strings.TrimSpace(s.Text))

	stats := color.New(color.FgCyan).FprintfFunc()
	stats(out, "📄 %s: %d   📊 Summary Words: %d   📝 Source Words: %d\n",
		s.DocumentCountLabel(), s.DocumentCount, s.SummaryWords, s.SourceWords)

	color.New(color.FgGreen).Fprintln(out, "✅ Summary completed!")
}

func kindEmoji(kind domain.SourceKind) string {
	switch kind {
	case domain.SourceYouTube:
		return "🎥"
	case domain.SourcePDF:
		return "📄"
	default:
		return "🌐"
	}
}

// withSpinner animates a spinner on stderr while fn runs.
func withSpinner(description string, fn func()) {
	spinner := getSpinner(description)
	done := make(chan struct{})

	go func() {
		t := time.NewTicker(spinnerTick)
		defer t.Stop()

		for {
			select {
			case <-done:
				return
			case <-t.C:
				_ = spinner.Add(1)
			}
		}
	}()

	fn()
	close(done)

	_ = spinner.Finish()
	fmt.Fprint(os.Stderr, "\r")
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
