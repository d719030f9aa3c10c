package convert

import (
	"os"
	"path/filepath"
	"strings"
)

// charsPerPage is the coarse character count used to estimate page totals
// when no structured page information survived.
const charsPerPage = 800

// Stats summarizes a conversion result. All fields are non-negative and
// default to zero.
type Stats struct {
	TotalPages    int `json:"total_pages"`
	TotalElements int `json:"total_elements"`
	Tables        int `json:"tables"`
	Figures       int `json:"figures"`
	Formulas      int `json:"formulas"`
	WordCount     int `json:"word_count"`
	CharCount     int `json:"char_count"`
}

// ExtractStats derives element counts from heterogeneous, partially
// untrustworthy sources. It runs four backfill passes in priority order:
// structured manifest classification, on-disk image counting, Markdown
// cross-checks and a character-based page estimate. Later passes only ever
// raise counts, never lower them, so correct structured counts are preserved
// while an absent or undercounting manifest is tolerated.
func ExtractStats(manifest Manifest, outputDir, markdown string) Stats {
	var s Stats

	// Pass 1: structured manifest.
	for _, page := range manifest {
		s.TotalPages++
		for _, block := range page.PreprocBlocks {
			s.TotalElements++
			switch block.Type {
			case blockTypeTable:
				s.Tables++
			case blockTypeImage:
				s.Figures++
			case blockTypeEquation, blockTypeInlineEquation:
				s.Formulas++
			}
		}
	}

	// Pass 2: count produced image files when the manifest reported none.
	if s.Figures == 0 && outputDir != "" {
		s.Figures = countImageFiles(filepath.Join(outputDir, "images"))
	}

	// Pass 3: cross-check against the rendered document, raise-only.
	if markdown != "" {
		if refs := strings.Count(markdown, "!["); refs > s.Figures {
			s.Figures = refs
		}
		if tables := strings.Count(markdown, "|--"); tables > s.Tables {
			s.Tables = tables
		}
		if formulas := strings.Count(markdown, "$$") / 2; formulas > s.Formulas {
			s.Formulas = formulas
		}
		s.WordCount = len(strings.Fields(markdown))
		s.CharCount = len(markdown)
	}

	// Pass 4: estimate pages from document length as a last resort.
	if s.TotalPages == 0 && s.CharCount > 0 {
		s.TotalPages = max(1, s.CharCount/charsPerPage)
	}

	return s
}

// countImageFiles counts image files directly under and below dir by
// extension. A missing directory counts as zero.
func countImageFiles(dir string) int {
	count := 0
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil //nolint:nilerr // missing or unreadable entries count as zero
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png", ".jpg", ".jpeg":
			count++
		}
		return nil
	})
	return count
}
