package convert

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifestWith(blocks ...[]string) Manifest {
	m := make(Manifest, 0, len(blocks))
	for _, page := range blocks {
		var p ManifestPage
		for _, typ := range page {
			p.PreprocBlocks = append(p.PreprocBlocks, ManifestBlock{Type: typ})
		}
		m = append(m, p)
	}
	return m
}

func TestExtractStats_ManifestCounts(t *testing.T) {
	m := manifestWith(
		[]string{"text", "table", "image"},
		[]string{"equation", "inline_equation", "text"},
	)

	s := ExtractStats(m, "", "")
	assert.Equal(t, 2, s.TotalPages)
	assert.Equal(t, 6, s.TotalElements)
	assert.Equal(t, 1, s.Tables)
	assert.Equal(t, 1, s.Figures)
	assert.Equal(t, 2, s.Formulas)
}

func TestExtractStats_FigureBackfillFromDisk(t *testing.T) {
	outputDir := t.TempDir()
	imagesDir := filepath.Join(outputDir, "images")
	require.NoError(t, os.MkdirAll(imagesDir, 0o750))
	for _, name := range []string{"a.png", "b.jpg", "c.jpeg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(imagesDir, name), []byte("x"), 0o600))
	}

	s := ExtractStats(nil, outputDir, "")
	assert.Equal(t, 3, s.Figures, "only image extensions count")
}

func TestExtractStats_DiskCountSkippedWhenManifestHasFigures(t *testing.T) {
	outputDir := t.TempDir()
	imagesDir := filepath.Join(outputDir, "images")
	require.NoError(t, os.MkdirAll(imagesDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(imagesDir, "a.png"), []byte("x"), 0o600))

	m := manifestWith([]string{"image", "image"})
	s := ExtractStats(m, outputDir, "")
	assert.Equal(t, 2, s.Figures, "structured count wins over disk count")
}

func TestExtractStats_MarkdownRaisesButNeverLowers(t *testing.T) {
	md := "![a](images/a.png)\n![b](images/b.png)\n![c](images/c.png)\n"

	t.Run("raises", func(t *testing.T) {
		s := ExtractStats(manifestWith([]string{"image"}), "", md)
		assert.Equal(t, 3, s.Figures)
	})

	t.Run("never lowers", func(t *testing.T) {
		m := manifestWith([]string{"image", "image", "image", "image", "image"})
		s := ExtractStats(m, "", md)
		assert.Equal(t, 5, s.Figures)
	})
}

func TestExtractStats_MarkdownTableAndFormulaMarkers(t *testing.T) {
	md := strings.Join([]string{
		"| a | b |",
		"|---|---|",
		"| 1 | 2 |",
		"",
		"$$",
		"E = mc^2",
		"$$",
		"",
		"$$x$$",
	}, "\n")

	s := ExtractStats(nil, "", md)
	assert.Equal(t, 1, s.Tables)
	assert.Equal(t, 2, s.Formulas)
	assert.Positive(t, s.WordCount)
	assert.Equal(t, len(md), s.CharCount)
}

func TestExtractStats_PageEstimate(t *testing.T) {
	tests := []struct {
		name      string
		chars     int
		wantPages int
	}{
		{name: "short document still counts one page", chars: 10, wantPages: 1},
		{name: "two pages worth of text", chars: 1700, wantPages: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := strings.Repeat("a", tt.chars)
			s := ExtractStats(nil, "", md)
			assert.Equal(t, tt.wantPages, s.TotalPages)
		})
	}
}

func TestExtractStats_ManifestPagesNotOverridden(t *testing.T) {
	m := manifestWith([]string{"text"}, []string{"text"}, []string{"text"})
	md := strings.Repeat("a", 10_000)

	s := ExtractStats(m, "", md)
	assert.Equal(t, 3, s.TotalPages, "structured page count is never replaced by the estimate")
}

func TestExtractStats_EmptyEverything(t *testing.T) {
	s := ExtractStats(nil, "", "")
	assert.Equal(t, Stats{}, s)
}
