package document

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// OutputFileName is the canonical name of the rendered Markdown file.
const OutputFileName = "output.md"

// ImagesDirName is the subdirectory holding cropped region images.
const ImagesDirName = "images"

// Renderer converts an ordered element sequence into a Markdown document,
// cropping table/figure/unrecognized-formula regions from the page rasters
// into an images/ subdirectory next to the output file.
type Renderer struct {
	outputDir string
	imagesDir string

	tableCounter   int
	figureCounter  int
	formulaCounter int
}

// NewRenderer creates a renderer rooted at outputDir, creating the output and
// images directories if absent.
func NewRenderer(outputDir string) (*Renderer, error) {
	imagesDir := filepath.Join(outputDir, ImagesDirName)
	if err := os.MkdirAll(imagesDir, 0o750); err != nil {
		return nil, fmt.Errorf("create images directory: %w", err)
	}
	return &Renderer{outputDir: outputDir, imagesDir: imagesDir}, nil
}

// Render writes output.md and region crops for the given elements, which must
// already be in reading order. pageImages is indexed by Element.PageIndex; an
// element referencing a missing page is skipped for cropping and rendered as
// a caption only. Table, figure and formula counters are document-wide and
// reset per Render call. It returns the generated Markdown content.
func (r *Renderer) Render(ordered []Element, pageImages []image.Image) (string, error) {
	r.tableCounter = 0
	r.figureCounter = 0
	r.formulaCounter = 0

	var blocks []string
	for _, elem := range ordered {
		block, err := r.renderElement(elem, pageImages)
		if err != nil {
			return "", err
		}
		if block != "" {
			blocks = append(blocks, block)
		}
	}

	markdown := strings.Join(blocks, "\n\n")
	if len(markdown) > 0 {
		markdown += "\n"
	}

	mdPath := filepath.Join(r.outputDir, OutputFileName)
	if err := os.WriteFile(mdPath, []byte(markdown), 0o600); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	slog.Info("rendered document",
		"path", mdPath,
		"tables", r.tableCounter,
		"figures", r.figureCounter,
		"formulas", r.formulaCounter)
	return markdown, nil
}

func (r *Renderer) renderElement(elem Element, pageImages []image.Image) (string, error) {
	switch elem.Kind {
	case KindTitle:
		return "**" + elem.Content + "**", nil

	case KindText:
		return elem.Content, nil

	case KindFormula:
		if elem.LaTeX != "" {
			return "$$\n" + elem.LaTeX + "\n$$", nil
		}
		r.formulaCounter++
		ref, err := r.cropRegion(elem, pageImages, fmt.Sprintf("formula_%d.png", r.formulaCounter))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("![Formula %d](%s)", r.formulaCounter, ref), nil

	case KindTable:
		// Tables are never re-typeset, only captured as images.
		r.tableCounter++
		ref, err := r.cropRegion(elem, pageImages, fmt.Sprintf("table_%d.png", r.tableCounter))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("**Table %d**\n\n![Table %d](%s)", r.tableCounter, r.tableCounter, ref), nil

	case KindFigure:
		r.figureCounter++
		ref, err := r.cropRegion(elem, pageImages, fmt.Sprintf("figure_%d.png", r.figureCounter))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("**Figure %d**\n\n![Figure %d](%s)", r.figureCounter, r.figureCounter, ref), nil

	default:
		slog.Warn("skipping element of unknown kind", "kind", elem.Kind)
		return "", nil
	}
}

// cropRegion crops the element's bounding box from its page image and saves it
// under the images directory, returning the Markdown-relative path. Boxes are
// clamped to the page bounds before cropping.
func (r *Renderer) cropRegion(elem Element, pageImages []image.Image, filename string) (string, error) {
	rel := filepath.ToSlash(filepath.Join(ImagesDirName, filename))

	if elem.PageIndex < 0 || elem.PageIndex >= len(pageImages) || pageImages[elem.PageIndex] == nil {
		slog.Warn("no page image for element crop",
			"page", elem.PageIndex, "file", filename)
		return rel, nil
	}

	page := pageImages[elem.PageIndex]
	rect := clampToBounds(elem.BBox, page.Bounds())
	region := imaging.Crop(page, rect)

	path := filepath.Join(r.imagesDir, filename)
	if err := imaging.Save(region, path); err != nil {
		return "", fmt.Errorf("save region image %s: %w", filename, err)
	}
	return rel, nil
}

// clampToBounds converts a page-pixel BBox to an image.Rectangle clamped to
// the page bounds.
func clampToBounds(b BBox, bounds image.Rectangle) image.Rectangle {
	x1 := clampInt(int(math.Floor(b.X1)), bounds.Min.X, bounds.Max.X)
	y1 := clampInt(int(math.Floor(b.Y1)), bounds.Min.Y, bounds.Max.Y)
	x2 := clampInt(int(math.Ceil(b.X2)), bounds.Min.X, bounds.Max.X)
	y2 := clampInt(int(math.Ceil(b.Y2)), bounds.Min.Y, bounds.Max.Y)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return image.Rect(x1, y1, x2, y2)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
