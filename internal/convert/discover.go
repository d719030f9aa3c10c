package convert

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// OutputLayout is the discovered location of the engine's emitted artifacts.
// The engine's directory structure is not contractually fixed across versions,
// so the layout is resolved by probing rather than assumed.
type OutputLayout struct {
	MarkdownPath string
	ManifestPath string // empty when no structured manifest was emitted
	ImagesDir    string // empty when no image directory was emitted
}

// discoverLayout locates the engine's output under tempDir. An ordered list of
// candidate subdirectories is probed and the first that exists wins; if none
// exist, any Markdown file anywhere under tempDir selects tempDir itself as
// the search root. Within the root, the first Markdown file, the first
// *content_list.json manifest and the first images directory in traversal
// order are used; multiple matches are not an error.
func discoverLayout(tempDir, docStem string) (*OutputLayout, error) {
	candidates := []string{
		filepath.Join(tempDir, "auto"),
		filepath.Join(tempDir, docStem, "auto"),
		tempDir,
	}

	root := ""
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			root = c
			slog.Debug("found engine output directory", "dir", root)
			break
		}
	}
	if root == "" {
		if findFirst(tempDir, isMarkdown) == "" {
			return nil, ErrOutputNotFound
		}
		root = tempDir
	}

	mdPath := findFirst(root, isMarkdown)
	if mdPath == "" {
		return nil, ErrOutputNotFound
	}

	layout := &OutputLayout{
		MarkdownPath: mdPath,
		ManifestPath: findFirst(root, isManifest),
		ImagesDir:    findFirst(root, isImagesDir),
	}
	slog.Debug("discovered engine output layout",
		"markdown", layout.MarkdownPath,
		"manifest", layout.ManifestPath,
		"images", layout.ImagesDir)
	return layout, nil
}

// findFirst walks root and returns the first path matching the predicate in
// traversal order, or "" when nothing matches.
func findFirst(root string, match func(path string, d fs.DirEntry) bool) string {
	found := ""
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped, not fatal
		}
		if match(path, d) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func isMarkdown(path string, d fs.DirEntry) bool {
	return !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md")
}

func isManifest(path string, d fs.DirEntry) bool {
	return !d.IsDir() && strings.HasSuffix(d.Name(), "content_list.json")
}

func isImagesDir(path string, d fs.DirEntry) bool {
	return d.IsDir() && d.Name() == "images"
}
