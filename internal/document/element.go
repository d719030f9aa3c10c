// Package document reconstructs reading order from spatially located page
// elements and renders them into a single Markdown document.
package document

// Kind identifies the type of a detected page element.
type Kind string

const (
	KindText    Kind = "text"
	KindTitle   Kind = "title"
	KindTable   Kind = "table"
	KindFigure  Kind = "figure"
	KindFormula Kind = "formula"
)

// BBox is an axis-aligned bounding box in page-pixel coordinates.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewBBox constructs a BBox ensuring coordinate ordering.
func NewBBox(x1, y1, x2, y2 float64) BBox {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Valid reports whether the box satisfies x1<=x2 and y1<=y2.
func (b BBox) Valid() bool {
	return b.X1 <= b.X2 && b.Y1 <= b.Y2
}

// Width returns the box width.
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the box height.
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Union returns the coordinate-wise min/max union of two boxes.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X1: minF(b.X1, o.X1),
		Y1: minF(b.Y1, o.Y1),
		X2: maxF(b.X2, o.X2),
		Y2: maxF(b.Y2, o.Y2),
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Element is a detected visual unit on a page. Content holds recognized text
// for text/title elements; LaTeX holds the recognized formula source when
// formula recognition succeeded. Tables and figures carry no content and are
// rendered as cropped images.
type Element struct {
	Kind       Kind    `json:"kind"`
	BBox       BBox    `json:"bbox"`
	PageIndex  int     `json:"page_index"`
	Confidence float64 `json:"confidence"`
	Content    string  `json:"content,omitempty"`
	LaTeX      string  `json:"latex,omitempty"`
}
