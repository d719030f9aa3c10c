package convert

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOutput(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func TestDiscoverLayout_AutoDirectory(t *testing.T) {
	tempDir := t.TempDir()
	writeOutput(t, tempDir, map[string]string{
		"auto/paper.md":                "# paper",
		"auto/paper_content_list.json": "[]",
		"auto/images/fig.png":          "png",
	})

	layout, err := discoverLayout(tempDir, "paper")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "auto", "paper.md"), layout.MarkdownPath)
	assert.Equal(t, filepath.Join(tempDir, "auto", "paper_content_list.json"), layout.ManifestPath)
	assert.Equal(t, filepath.Join(tempDir, "auto", "images"), layout.ImagesDir)
}

func TestDiscoverLayout_StemSubdirectory(t *testing.T) {
	tempDir := t.TempDir()
	writeOutput(t, tempDir, map[string]string{
		"paper/auto/out.md": "# nested",
	})

	layout, err := discoverLayout(tempDir, "paper")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "paper", "auto", "out.md"), layout.MarkdownPath)
	assert.Empty(t, layout.ManifestPath)
	assert.Empty(t, layout.ImagesDir)
}

func TestDiscoverLayout_FlatRoot(t *testing.T) {
	tempDir := t.TempDir()
	writeOutput(t, tempDir, map[string]string{
		"result.md": "# flat",
	})

	layout, err := discoverLayout(tempDir, "paper")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "result.md"), layout.MarkdownPath)
}

func TestDiscoverLayout_AutoPreferredOverRoot(t *testing.T) {
	tempDir := t.TempDir()
	writeOutput(t, tempDir, map[string]string{
		"stray.md":     "# stray",
		"auto/real.md": "# real",
	})

	layout, err := discoverLayout(tempDir, "paper")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "auto", "real.md"), layout.MarkdownPath)
}

func TestDiscoverLayout_NoMarkdown(t *testing.T) {
	tempDir := t.TempDir()
	writeOutput(t, tempDir, map[string]string{
		"auto/log.txt": "nothing useful",
	})

	_, err := discoverLayout(tempDir, "paper")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputNotFound))
}

func TestDiscoverLayout_MarkdownExtensionCaseInsensitive(t *testing.T) {
	tempDir := t.TempDir()
	writeOutput(t, tempDir, map[string]string{
		"auto/OUT.MD": "# shouty",
	})

	layout, err := discoverLayout(tempDir, "paper")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "auto", "OUT.MD"), layout.MarkdownPath)
}
