package document

import (
	"log/slog"
	"sort"
	"strings"
)

// DefaultYTolerance is the vertical tolerance in page pixels used to decide
// whether two elements belong to the same horizontal band.
const DefaultYTolerance = 20.0

// Sorter reconstructs left-to-right, top-to-bottom reading order from an
// unordered set of located elements.
type Sorter struct {
	yTolerance float64
}

// NewSorter creates a sorter with the given vertical tolerance. A tolerance
// of zero or less falls back to DefaultYTolerance.
func NewSorter(yTolerance float64) *Sorter {
	if yTolerance <= 0 {
		yTolerance = DefaultYTolerance
	}
	return &Sorter{yTolerance: yTolerance}
}

// YTolerance returns the configured vertical tolerance.
func (s *Sorter) YTolerance() float64 { return s.yTolerance }

// SortReadingOrder returns the elements in reading order: sorted by top
// coordinate, grouped into horizontal bands within the tolerance, and sorted
// left to right within each band. The input slice is not modified, and the
// output is always a permutation of the input.
func (s *Sorter) SortReadingOrder(elements []Element) []Element {
	if len(elements) == 0 {
		return nil
	}

	byY := make([]Element, len(elements))
	copy(byY, elements)
	sort.SliceStable(byY, func(i, j int) bool {
		return byY[i].BBox.Y1 < byY[j].BBox.Y1
	})

	lines := s.groupByLines(byY)

	sorted := make([]Element, 0, len(elements))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].BBox.X1 < line[j].BBox.X1
		})
		sorted = append(sorted, line...)
	}

	slog.Debug("sorted elements into reading order",
		"elements", len(sorted), "lines", len(lines))
	return sorted
}

// groupByLines partitions y-sorted elements into horizontal bands. A new band
// starts whenever an element's top coordinate deviates from the current band
// anchor by more than the tolerance.
func (s *Sorter) groupByLines(byY []Element) [][]Element {
	if len(byY) == 0 {
		return nil
	}

	var lines [][]Element
	current := []Element{byY[0]}
	anchorY := byY[0].BBox.Y1

	for _, elem := range byY[1:] {
		if absF(elem.BBox.Y1-anchorY) <= s.yTolerance {
			current = append(current, elem)
		} else {
			lines = append(lines, current)
			current = []Element{elem}
			anchorY = elem.BBox.Y1
		}
	}
	lines = append(lines, current)
	return lines
}

// MergeParagraphs coalesces consecutive text blocks whose top coordinates lie
// within the tolerance of their predecessor into single paragraphs. The merged
// bounding box is the union of the sources and contents are joined with a
// single space. This is deliberately a 1-D heuristic; it does not model
// multi-column layouts.
func (s *Sorter) MergeParagraphs(textBlocks []Element) []Element {
	if len(textBlocks) == 0 {
		return nil
	}

	merged := make([]Element, 0, len(textBlocks))
	var contents []string
	current := textBlocks[0]
	contents = append(contents, current.Content)

	for i := 1; i < len(textBlocks); i++ {
		block := textBlocks[i]
		prev := textBlocks[i-1]

		if absF(block.BBox.Y1-prev.BBox.Y1) <= s.yTolerance {
			contents = append(contents, block.Content)
			current.BBox = current.BBox.Union(block.BBox)
		} else {
			current.Kind = KindText
			current.Content = strings.Join(contents, " ")
			merged = append(merged, current)
			current = block
			contents = contents[:0]
			contents = append(contents, block.Content)
		}
	}

	current.Kind = KindText
	current.Content = strings.Join(contents, " ")
	merged = append(merged, current)
	return merged
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
