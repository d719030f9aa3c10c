package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/paperloom/paperloom/internal/document"
)

const rasterDisclaimer = "> Note: this document was reconstructed from positioned text and embedded " +
	"images. Table and formula structure is approximate."

// rowTolerance groups glyph runs into text lines before the reading-order
// sorter sees them. Tighter than the sorter's band tolerance on purpose:
// a line is a typographic fact, a band is a layout guess.
const rowTolerance = 3.0

// rasterStrategy reconstructs layout from positioned text runs, sorts the
// resulting elements into reading order, and attaches any embedded images
// it can pull out of the document.
type rasterStrategy struct {
	sorter *document.Sorter
}

func newRasterStrategy(yTolerance float64) *rasterStrategy {
	return &rasterStrategy{sorter: document.NewSorter(yTolerance)}
}

func (s *rasterStrategy) Name() string { return "raster-extract" }

func (s *rasterStrategy) Process(ctx context.Context, documentPath, outputDir string) (res *Result, err error) {
	// The content-stream interpreter panics on malformed operators rather
	// than returning an error; a corrupt page must fail the tier, not the
	// process.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("raster extraction panicked: %v", r)
		}
	}()

	f, reader, err := lpdf.Open(documentPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	imagesDir := filepath.Join(outputDir, document.ImagesDirName)
	if err := os.MkdirAll(imagesDir, 0o750); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}

	// Embedded images are additive; extraction failure downgrades the
	// output rather than failing the tier.
	if err := api.ExtractImagesFile(documentPath, imagesDir, nil, nil); err != nil {
		slog.Debug("embedded image extraction failed", "error", err)
	}
	stem := docStem(documentPath)
	pageImages, err := imagesByPage(imagesDir, stem)
	if err != nil {
		return nil, err
	}

	totalPages := reader.NumPage()
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n%s\n\n", stem, rasterDisclaimer)

	extractedText := false
	figureCount := 0
	tableCount := 0

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		fmt.Fprintf(&sb, "## Page %d\n\n", pageNum)

		elements := s.pageElements(page, pageNum)
		ordered := s.sorter.SortReadingOrder(elements)
		paragraphs := s.sorter.MergeParagraphs(ordered)

		var pageText strings.Builder
		for _, p := range paragraphs {
			sb.WriteString(p.Content)
			sb.WriteString("\n\n")
			pageText.WriteString(p.Content)
			pageText.WriteString(" ")
			extractedText = true
		}

		// Without structural recognition, table presence is inferred
		// from caption keywords only.
		if hasTableKeyword(pageText.String()) {
			tableCount++
			fmt.Fprintf(&sb, "**Table %d**\n\n", tableCount)
		}

		for _, name := range pageImages[pageNum] {
			figureCount++
			fmt.Fprintf(&sb, "![Figure %d](%s/%s)\n\n", figureCount, document.ImagesDirName, name)
		}
	}

	if !extractedText && figureCount == 0 {
		return nil, fmt.Errorf("no text or images extracted from %s", filepath.Base(documentPath))
	}

	markdown := strings.TrimRight(sb.String(), "\n") + "\n"
	if err := os.WriteFile(filepath.Join(outputDir, document.OutputFileName), []byte(markdown), 0o600); err != nil {
		return nil, fmt.Errorf("write markdown: %w", err)
	}

	stats := ExtractStats(nil, outputDir, markdown)
	if totalPages > 0 {
		stats.TotalPages = totalPages
	}
	if tableCount > stats.Tables {
		stats.Tables = tableCount
	}

	return &Result{
		Markdown:  markdown,
		OutputDir: outputDir,
		Stats:     stats,
	}, nil
}

// pageElements turns the page's positioned text runs into line elements in
// page coordinates (origin top-left, as the sorter expects).
func (s *rasterStrategy) pageElements(page lpdf.Page, pageIndex int) []document.Element {
	texts := page.Content().Text
	if len(texts) == 0 {
		return nil
	}

	// PDF coordinates grow upward; flip against the page top so the
	// sorter's top-to-bottom ordering holds.
	pageTop := texts[0].Y
	for _, t := range texts {
		if t.Y > pageTop {
			pageTop = t.Y
		}
	}

	sort.SliceStable(texts, func(i, j int) bool {
		if absDiff(texts[i].Y, texts[j].Y) > rowTolerance {
			return texts[i].Y > texts[j].Y
		}
		return texts[i].X < texts[j].X
	})

	var elements []document.Element
	var line []lpdf.Text
	flush := func() {
		if len(line) == 0 {
			return
		}
		elements = append(elements, lineElement(line, pageTop, pageIndex))
		line = nil
	}

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" && len(line) == 0 {
			continue
		}
		if len(line) > 0 && absDiff(line[0].Y, t.Y) > rowTolerance {
			flush()
		}
		line = append(line, t)
	}
	flush()

	return elements
}

// lineElement joins a line's runs left to right, inserting spaces where the
// horizontal gap between runs exceeds a fraction of the font size.
func lineElement(line []lpdf.Text, pageTop float64, pageIndex int) document.Element {
	var content strings.Builder
	minX, maxX := line[0].X, line[0].X+line[0].W
	maxSize := line[0].FontSize

	for i, t := range line {
		if i > 0 {
			prev := line[i-1]
			gap := t.X - (prev.X + prev.W)
			if gap > 0.3*maxF(prev.FontSize, 1) && !strings.HasSuffix(content.String(), " ") {
				content.WriteString(" ")
			}
		}
		content.WriteString(t.S)

		if t.X < minX {
			minX = t.X
		}
		if t.X+t.W > maxX {
			maxX = t.X + t.W
		}
		if t.FontSize > maxSize {
			maxSize = t.FontSize
		}
	}

	y := line[0].Y
	return document.Element{
		Kind:      document.KindText,
		BBox:      document.NewBBox(minX, pageTop-y, maxX, pageTop-y+maxF(maxSize, 1)),
		PageIndex: pageIndex - 1,
		Content:   strings.TrimSpace(content.String()),
	}
}

// imagesByPage maps page numbers to extracted image filenames. pdfcpu names
// extracted images <docStem>_<pageNr>_<imgName>.<ext>, so the stem (which may
// itself contain underscores) must be stripped before the page number.
func imagesByPage(imagesDir, stem string) (map[int][]string, error) {
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[int][]string{}, nil
		}
		return nil, fmt.Errorf("read images dir: %w", err)
	}

	byPage := make(map[int][]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pageNum, err := pageFromImageName(entry.Name(), stem)
		if err != nil {
			continue
		}
		byPage[pageNum] = append(byPage[pageNum], entry.Name())
	}
	for _, names := range byPage {
		sort.Strings(names)
	}
	return byPage, nil
}

func pageFromImageName(filename, stem string) (int, error) {
	prefix := stem + "_"
	if !strings.HasPrefix(filename, prefix) {
		return 0, errors.New("not an extracted page image")
	}
	rest := strings.TrimPrefix(filename, prefix)
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid image filename")
	}
	pageNum, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}

func hasTableKeyword(text string) bool {
	return strings.Contains(text, "Table") || strings.Contains(text, "表")
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
