package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	rpdf "rsc.io/pdf"

	"github.com/paperloom/paperloom/internal/document"
)

const plainTextDisclaimer = "> Note: only raw text could be recovered from this document."

// plainTextStrategy is the last resort: dump whatever text runs the parser
// yields, in document order, with no layout reconstruction at all.
type plainTextStrategy struct{}

func (s *plainTextStrategy) Name() string { return "plain-text" }

func (s *plainTextStrategy) Process(ctx context.Context, documentPath, outputDir string) (res *Result, err error) {
	// Content() panics on malformed content streams instead of returning
	// an error.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("plain text extraction panicked: %v", r)
		}
	}()

	reader, err := rpdf.Open(documentPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	totalPages := reader.NumPage()
	var sb strings.Builder
	extracted := false

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text := flattenPage(page.Content().Text)
		if text == "" {
			continue
		}

		fmt.Fprintf(&sb, "--- Page %d ---\n\n%s\n\n", pageNum, text)
		extracted = true
	}

	if !extracted {
		return nil, fmt.Errorf("no recoverable text in %s", filepath.Base(documentPath))
	}

	markdown := fmt.Sprintf("# %s\n\n%s\n\n%s", docStem(documentPath), plainTextDisclaimer, sb.String())
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

// flattenPage joins text runs in content order, starting a new line whenever
// the vertical position moves and padding horizontal gaps with a space.
func flattenPage(texts []rpdf.Text) string {
	var sb strings.Builder
	var prev *rpdf.Text

	for i := range texts {
		t := texts[i]
		if prev != nil {
			switch {
			case absDiff(prev.Y, t.Y) > rowTolerance:
				sb.WriteString("\n")
			case t.X-(prev.X+prev.W) > 0.3*maxF(prev.FontSize, 1):
				sb.WriteString(" ")
			}
		}
		sb.WriteString(t.S)
		prev = &texts[i]
	}

	return strings.TrimSpace(sb.String())
}
