package document

import (
	"sort"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genElement generates a random text element with a valid bounding box.
func genElement() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, 1000),
		gen.Float64Range(0, 1000),
		gen.Float64Range(1, 200),
		gen.Float64Range(1, 50),
		gen.AlphaString(),
	).Map(func(vals []interface{}) Element {
		x := vals[0].(float64)
		y := vals[1].(float64)
		w := vals[2].(float64)
		h := vals[3].(float64)
		return Element{
			Kind:    KindText,
			BBox:    NewBBox(x, y, x+w, y+h),
			Content: vals[4].(string),
		}
	})
}

func genElements(maxSize int) gopter.Gen {
	return gen.SliceOf(genElement()).SuchThat(func(v []Element) bool {
		return len(v) <= maxSize
	})
}

// contentMultiset returns a sorted view of element contents for permutation checks.
func contentMultiset(elements []Element) []string {
	out := make([]string, len(elements))
	for i, e := range elements {
		out[i] = e.Content
	}
	sort.Strings(out)
	return out
}

// TestSortReadingOrder_Permutation verifies no elements are created or dropped.
func TestSortReadingOrder_Permutation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("output is a permutation of input", prop.ForAll(
		func(elements []Element) bool {
			sorted := NewSorter(20).SortReadingOrder(elements)
			if len(sorted) != len(elements) {
				return false
			}
			in := contentMultiset(elements)
			out := contentMultiset(sorted)
			for i := range in {
				if in[i] != out[i] {
					return false
				}
			}
			return true
		},
		genElements(50),
	))

	properties.TestingRun(t)
}

// TestSortReadingOrder_Idempotent verifies sort(sort(x)) == sort(x).
func TestSortReadingOrder_Idempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("sorting twice equals sorting once", prop.ForAll(
		func(elements []Element) bool {
			s := NewSorter(20)
			once := s.SortReadingOrder(elements)
			twice := s.SortReadingOrder(once)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		genElements(50),
	))

	properties.TestingRun(t)
}

// TestMergeParagraphs_CharacterBound verifies the merged content never exceeds
// the sum of the inputs plus one separator per merge.
func TestMergeParagraphs_CharacterBound(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("merge adds at most one separator per merged block", prop.ForAll(
		func(elements []Element) bool {
			if len(elements) == 0 {
				return true
			}
			var inputChars int
			for _, e := range elements {
				inputChars += len(e.Content)
			}
			merged := NewSorter(20).MergeParagraphs(elements)
			var outputChars int
			for _, p := range merged {
				outputChars += len(p.Content)
			}
			mergeCount := len(elements) - len(merged)
			return outputChars <= inputChars+mergeCount
		},
		genElements(50),
	))

	properties.TestingRun(t)
}

// TestMergeParagraphs_ContentPreserved verifies every input word survives.
func TestMergeParagraphs_ContentPreserved(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("merged paragraphs contain all inputs in order", prop.ForAll(
		func(elements []Element) bool {
			merged := NewSorter(20).MergeParagraphs(elements)
			joined := make([]string, len(merged))
			for i, p := range merged {
				joined[i] = p.Content
			}
			all := strings.Join(joined, " ")
			pos := 0
			for _, e := range elements {
				idx := strings.Index(all[pos:], e.Content)
				if idx < 0 {
					return false
				}
				pos += idx
			}
			return true
		},
		genElements(30),
	))

	properties.TestingRun(t)
}
