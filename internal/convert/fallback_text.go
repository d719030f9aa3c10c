package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/paperloom/paperloom/internal/document"
)

const basicTextDisclaimer = "> Note: the layout analysis engine was unavailable, so this document was " +
	"produced by plain text extraction. Tables, figures and formulas are not reconstructed."

// basicTextStrategy extracts plain text page by page and emits a flat
// Markdown document with page separators. No layout reconstruction.
type basicTextStrategy struct{}

func (s *basicTextStrategy) Name() string { return "basic-text" }

func (s *basicTextStrategy) Process(ctx context.Context, documentPath, outputDir string) (*Result, error) {
	reader, err := pdf.Open(documentPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	totalPages := reader.NumPage()
	var sb strings.Builder
	extracted := 0

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("plain text extraction failed for page", "page", pageNum, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		fmt.Fprintf(&sb, "--- Page %d ---\n\n%s\n\n", pageNum, text)
		extracted++
	}

	if extracted == 0 {
		return nil, fmt.Errorf("no extractable text in %s", filepath.Base(documentPath))
	}

	markdown := fmt.Sprintf("# %s\n\n%s\n\n%s", docStem(documentPath), basicTextDisclaimer, sb.String())
	if err := os.WriteFile(filepath.Join(outputDir, document.OutputFileName), []byte(markdown), 0o600); err != nil {
		return nil, fmt.Errorf("write markdown: %w", err)
	}

	stats := ExtractStats(nil, outputDir, markdown)
	if totalPages > 0 {
		stats.TotalPages = totalPages
	}

	return &Result{
		Markdown:  markdown,
		OutputDir: outputDir,
		Stats:     stats,
	}, nil
}
