package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortReadingOrder_Empty(t *testing.T) {
	s := NewSorter(0)
	require.Empty(t, s.SortReadingOrder(nil))
	require.Empty(t, s.SortReadingOrder([]Element{}))
}

func TestSortReadingOrder_SingleElement(t *testing.T) {
	s := NewSorter(0)
	in := []Element{{Kind: KindText, BBox: NewBBox(10, 10, 50, 30), Content: "only"}}
	out := s.SortReadingOrder(in)
	require.Equal(t, in, out)
}

func TestSortReadingOrder_SharedBand(t *testing.T) {
	// Three elements within one 20px band: the x-sort breaks the tie.
	in := []Element{
		{Kind: KindTitle, BBox: NewBBox(0, 0, 100, 20), Content: "title"},
		{Kind: KindText, BBox: NewBBox(0, 25, 100, 40), Content: "left"},
		{Kind: KindText, BBox: NewBBox(110, 25, 200, 40), Content: "right"},
	}
	out := NewSorter(20).SortReadingOrder(in)

	require.Len(t, out, 3)
	require.Equal(t, KindTitle, out[0].Kind)
	require.Equal(t, "left", out[1].Content)
	require.Equal(t, "right", out[2].Content)
}

func TestSortReadingOrder_Bands(t *testing.T) {
	tests := []struct {
		name      string
		elements  []Element
		tolerance float64
		want      []string
	}{
		{
			name: "two rows sorted top to bottom",
			elements: []Element{
				{Kind: KindText, BBox: NewBBox(0, 100, 50, 120), Content: "second"},
				{Kind: KindText, BBox: NewBBox(0, 10, 50, 30), Content: "first"},
			},
			tolerance: 20,
			want:      []string{"first", "second"},
		},
		{
			name: "side-by-side columns in the same band sorted left to right",
			elements: []Element{
				{Kind: KindText, BBox: NewBBox(300, 12, 400, 30), Content: "right"},
				{Kind: KindText, BBox: NewBBox(10, 10, 100, 30), Content: "left"},
				{Kind: KindText, BBox: NewBBox(150, 15, 250, 30), Content: "middle"},
			},
			tolerance: 20,
			want:      []string{"left", "middle", "right"},
		},
		{
			name: "tolerance boundary separates bands",
			elements: []Element{
				{Kind: KindText, BBox: NewBBox(200, 0, 300, 20), Content: "top-right"},
				{Kind: KindText, BBox: NewBBox(0, 21, 100, 40), Content: "below"},
			},
			tolerance: 20,
			want:      []string{"top-right", "below"},
		},
		{
			name: "band anchor is the first element of the band",
			elements: []Element{
				// 0 and 15 share a band (|15-0|<=20); 35 starts a new one
				// because it is compared against the anchor 0, not 15.
				{Kind: KindText, BBox: NewBBox(500, 0, 600, 10), Content: "a"},
				{Kind: KindText, BBox: NewBBox(0, 15, 100, 25), Content: "b"},
				{Kind: KindText, BBox: NewBBox(0, 35, 100, 45), Content: "c"},
			},
			tolerance: 20,
			want:      []string{"b", "a", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewSorter(tt.tolerance).SortReadingOrder(tt.elements)
			require.Len(t, out, len(tt.want))
			got := make([]string, len(out))
			for i, e := range out {
				got[i] = e.Content
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSortReadingOrder_IdenticalYPreservesOrder(t *testing.T) {
	// Identical y1 and identical x1: the stable sorts must preserve the
	// original relative order.
	in := []Element{
		{Kind: KindText, BBox: NewBBox(10, 10, 50, 20), Content: "a"},
		{Kind: KindText, BBox: NewBBox(10, 10, 50, 20), Content: "b"},
		{Kind: KindText, BBox: NewBBox(10, 10, 50, 20), Content: "c"},
	}
	out := NewSorter(20).SortReadingOrder(in)
	require.Equal(t, "a", out[0].Content)
	require.Equal(t, "b", out[1].Content)
	require.Equal(t, "c", out[2].Content)
}

func TestSortReadingOrder_DoesNotMutateInput(t *testing.T) {
	in := []Element{
		{Kind: KindText, BBox: NewBBox(0, 100, 10, 110), Content: "z"},
		{Kind: KindText, BBox: NewBBox(0, 0, 10, 10), Content: "a"},
	}
	_ = NewSorter(20).SortReadingOrder(in)
	require.Equal(t, "z", in[0].Content)
	require.Equal(t, "a", in[1].Content)
}

func TestMergeParagraphs(t *testing.T) {
	tests := []struct {
		name   string
		blocks []Element
		want   []string
	}{
		{
			name:   "empty input",
			blocks: nil,
			want:   nil,
		},
		{
			name: "single block unchanged",
			blocks: []Element{
				{Kind: KindText, BBox: NewBBox(0, 0, 10, 10), Content: "alone"},
			},
			want: []string{"alone"},
		},
		{
			name: "adjacent blocks merged with single space",
			blocks: []Element{
				{Kind: KindText, BBox: NewBBox(0, 0, 10, 10), Content: "hello"},
				{Kind: KindText, BBox: NewBBox(12, 5, 30, 15), Content: "world"},
			},
			want: []string{"hello world"},
		},
		{
			name: "distant blocks kept separate",
			blocks: []Element{
				{Kind: KindText, BBox: NewBBox(0, 0, 10, 10), Content: "first"},
				{Kind: KindText, BBox: NewBBox(0, 100, 10, 110), Content: "second"},
			},
			want: []string{"first", "second"},
		},
		{
			name: "merge decision compares consecutive pairs",
			blocks: []Element{
				{Kind: KindText, BBox: NewBBox(0, 0, 10, 10), Content: "a"},
				{Kind: KindText, BBox: NewBBox(0, 15, 10, 25), Content: "b"},
				{Kind: KindText, BBox: NewBBox(0, 30, 10, 40), Content: "c"},
				{Kind: KindText, BBox: NewBBox(0, 100, 10, 110), Content: "d"},
			},
			// a-b, b-c are within tolerance of each other even though a-c is
			// not: the pairwise rule chains them into one paragraph.
			want: []string{"a b c", "d"},
		},
	}

	s := NewSorter(20)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.MergeParagraphs(tt.blocks)
			require.Len(t, out, len(tt.want))
			for i, want := range tt.want {
				require.Equal(t, want, out[i].Content)
				require.Equal(t, KindText, out[i].Kind)
			}
		})
	}
}

func TestMergeParagraphs_BBoxUnion(t *testing.T) {
	blocks := []Element{
		{Kind: KindText, BBox: NewBBox(10, 10, 50, 20), Content: "a"},
		{Kind: KindText, BBox: NewBBox(5, 15, 80, 30), Content: "b"},
	}
	out := NewSorter(20).MergeParagraphs(blocks)
	require.Len(t, out, 1)
	require.Equal(t, BBox{X1: 5, Y1: 10, X2: 80, Y2: 30}, out[0].BBox)
}

func TestBBoxUnion(t *testing.T) {
	a := NewBBox(0, 0, 10, 10)
	b := NewBBox(5, -5, 20, 8)
	u := a.Union(b)
	require.Equal(t, BBox{X1: 0, Y1: -5, X2: 20, Y2: 10}, u)
	require.True(t, u.Valid())
}
