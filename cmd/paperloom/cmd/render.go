package cmd

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/bmp"

	"github.com/paperloom/paperloom/internal/document"
)

// renderCmd represents the render command.
var renderCmd = &cobra.Command{
	Use:   "render [elements file]",
	Short: "Render detected layout elements to Markdown",
	Long: `Render a detection result to Markdown.

The elements file is a JSON array of layout elements with bounding boxes and
page indices, as produced by a layout analysis engine. Page images are
optional; when provided, table and figure regions are cropped from them into
the output's images/ directory.

Page image files are matched by the page number in their name, e.g.
page_1.png for the first page.

Examples:
  paperloom render elements.json -o out/
  paperloom render elements.json --pages pages/ -o out/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read elements file: %w", err)
		}

		var elements []document.Element
		if err := json.Unmarshal(data, &elements); err != nil {
			return fmt.Errorf("parse elements file: %w", err)
		}

		pagesDir, _ := cmd.Flags().GetString("pages")
		pageImages, err := loadPageImages(pagesDir)
		if err != nil {
			return err
		}

		outputDir, _ := cmd.Flags().GetString("output")
		if outputDir == "" {
			base := filepath.Base(args[0])
			outputDir = strings.TrimSuffix(base, filepath.Ext(base))
		}

		cfg := GetConfig()
		sorter := document.NewSorter(cfg.Sorter.YTolerance)
		ordered := orderAcrossPages(sorter, elements)

		renderer, err := document.NewRenderer(outputDir)
		if err != nil {
			return err
		}
		markdown, err := renderer.Render(ordered, pageImages)
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d elements -> %s (%d bytes)\n",
			len(ordered), filepath.Join(outputDir, document.OutputFileName), len(markdown))
		return nil
	},
}

// orderAcrossPages sorts each page's elements into reading order and
// concatenates the pages in ascending order.
func orderAcrossPages(sorter *document.Sorter, elements []document.Element) []document.Element {
	byPage := make(map[int][]document.Element)
	for _, el := range elements {
		byPage[el.PageIndex] = append(byPage[el.PageIndex], el)
	}

	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	ordered := make([]document.Element, 0, len(elements))
	for _, p := range pages {
		ordered = append(ordered, sorter.SortReadingOrder(byPage[p])...)
	}
	return ordered
}

// loadPageImages reads page images from dir, indexed by the page number in
// their filename (page_1.png is index 0). Missing pages stay nil so the
// renderer emits references without crops.
func loadPageImages(dir string) ([]image.Image, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pages directory: %w", err)
	}

	byIndex := make(map[int]image.Image)
	maxIndex := -1
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		idx, err := pageIndexFromName(entry.Name())
		if err != nil {
			continue
		}

		f, err := os.Open(filepath.Join(dir, entry.Name())) //nolint:gosec // G304: user-supplied directory listing
		if err != nil {
			return nil, fmt.Errorf("open page image %s: %w", entry.Name(), err)
		}
		img, _, err := image.Decode(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode page image %s: %w", entry.Name(), err)
		}

		byIndex[idx] = img
		if idx > maxIndex {
			maxIndex = idx
		}
	}

	images := make([]image.Image, maxIndex+1)
	for idx, img := range byIndex {
		images[idx] = img
	}
	return images, nil
}

// pageIndexFromName extracts the zero-based page index from names like
// page_3.png.
func pageIndexFromName(name string) (int, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	numStr, ok := strings.CutPrefix(stem, "page_")
	if !ok {
		return 0, fmt.Errorf("not a page image: %s", name)
	}
	num, err := strconv.Atoi(numStr)
	if err != nil || num < 1 {
		return 0, fmt.Errorf("invalid page number in %s", name)
	}
	return num - 1, nil
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("output", "o", "", "output directory (default: elements file name without extension)")
	renderCmd.Flags().String("pages", "", "directory of page images for cropping element regions")
}
