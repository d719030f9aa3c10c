package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeEngineScript creates a stand-in engine executable. Every script
// answers the version probe; body handles a conversion invocation, where
// "$2" is the document path and "$4" the engine output directory.
func writeEngineScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub engine scripts require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "engine.sh")
	script := `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "stub-engine 1.2.3"
  exit 0
fi
` + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700))
	return path
}

func testConfig(binary string) Config {
	cfg := DefaultConfig()
	cfg.EngineBinary = binary
	cfg.EngineTimeout = 10 * time.Second
	cfg.ProbeTimeout = 5 * time.Second
	cfg.FallbackTimeout = 10 * time.Second
	return cfg
}

// bogusDocument writes a file that no extraction tier can parse, so the
// fallback chain deterministically exhausts.
func bogusDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o600))
	return path
}

func TestNew_ProbeSuccess(t *testing.T) {
	binary := writeEngineScript(t, "exit 0")

	o := New(testConfig(binary))
	assert.True(t, o.EngineAvailable())
	assert.Equal(t, "stub-engine 1.2.3", o.EngineVersion())
}

func TestNew_ProbeFailure(t *testing.T) {
	o := New(testConfig(filepath.Join(t.TempDir(), "no-such-engine")))
	assert.False(t, o.EngineAvailable())
	assert.Empty(t, o.EngineVersion())
}

func TestProcess_PrimarySuccess(t *testing.T) {
	binary := writeEngineScript(t, `
out="$4"
mkdir -p "$out/auto/images"
printf '# Converted\n\nBody text here.\n' > "$out/auto/result.md"
printf '[{"preproc_blocks": [{"type": "text"}, {"type": "table"}]}]' > "$out/auto/doc_content_list.json"
printf 'fake png bytes' > "$out/auto/images/fig_1.png"
`)

	o := New(testConfig(binary))
	require.True(t, o.EngineAvailable())

	outputDir := filepath.Join(t.TempDir(), "out")
	res, err := o.Process(context.Background(), bogusDocument(t), outputDir)
	require.NoError(t, err)

	assert.Equal(t, EnginePrimary, res.EngineUsed)
	assert.Contains(t, res.Markdown, "# Converted")
	assert.Positive(t, res.Elapsed)

	// Artifacts are normalized into the job output directory.
	persisted, err := os.ReadFile(filepath.Join(outputDir, "output.md"))
	require.NoError(t, err)
	assert.Equal(t, res.Markdown, string(persisted))
	assert.FileExists(t, filepath.Join(outputDir, "images", "fig_1.png"))

	// The engine working directory never outlives the attempt.
	assert.NoDirExists(t, filepath.Join(outputDir, engineTempDirName))

	assert.Equal(t, 1, res.Stats.TotalPages)
	assert.Equal(t, 2, res.Stats.TotalElements)
	assert.Equal(t, 1, res.Stats.Tables)
	assert.Equal(t, 1, res.Stats.Figures, "figure backfilled from the copied image file")
}

func TestProcess_ShiftJISOutputNormalized(t *testing.T) {
	// Shift-JIS bytes for 日本語, written verbatim by the stub engine.
	binary := writeEngineScript(t, `
mkdir -p "$4/auto"
printf '\223\372\226\173\214\352' > "$4/auto/result.md"
`)

	o := New(testConfig(binary))
	require.True(t, o.EngineAvailable())

	outputDir := filepath.Join(t.TempDir(), "out")
	res, err := o.Process(context.Background(), bogusDocument(t), outputDir)
	require.NoError(t, err)
	assert.Equal(t, "日本語", res.Markdown)

	persisted, err := os.ReadFile(filepath.Join(outputDir, "output.md"))
	require.NoError(t, err)
	assert.Equal(t, "日本語", string(persisted), "persisted copy is UTF-8")
}

func TestProcess_EngineExitFailureEntersFallbackChain(t *testing.T) {
	binary := writeEngineScript(t, `echo "model checkpoint missing" >&2; exit 3`)

	o := New(testConfig(binary))
	outputDir := filepath.Join(t.TempDir(), "out")
	_, err := o.Process(context.Background(), bogusDocument(t), outputDir)
	require.Error(t, err)

	var fbErr *FallbackError
	require.ErrorAs(t, err, &fbErr)

	var exitErr *ExitError
	require.ErrorAs(t, fbErr.PrimaryErr, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "model checkpoint missing")

	assert.Len(t, fbErr.Attempts, 3, "every fallback tier was attempted")
	assert.NoDirExists(t, filepath.Join(outputDir, engineTempDirName))
}

func TestProcess_EngineTimeout(t *testing.T) {
	binary := writeEngineScript(t, "sleep 5")

	cfg := testConfig(binary)
	cfg.EngineTimeout = 100 * time.Millisecond
	o := New(cfg)

	outputDir := filepath.Join(t.TempDir(), "out")
	_, err := o.Process(context.Background(), bogusDocument(t), outputDir)
	require.Error(t, err)

	var fbErr *FallbackError
	require.ErrorAs(t, err, &fbErr)

	var toErr *TimeoutError
	require.ErrorAs(t, fbErr.PrimaryErr, &toErr)
	assert.Equal(t, cfg.EngineTimeout, toErr.Timeout)
	assert.NoDirExists(t, filepath.Join(outputDir, engineTempDirName))
}

func TestProcess_EmptyEngineOutputEscalates(t *testing.T) {
	binary := writeEngineScript(t, `
mkdir -p "$4/auto"
printf '   \n' > "$4/auto/result.md"
`)

	o := New(testConfig(binary))
	_, err := o.Process(context.Background(), bogusDocument(t), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)

	var fbErr *FallbackError
	require.ErrorAs(t, err, &fbErr)
	assert.True(t, errors.Is(fbErr.PrimaryErr, ErrOutputNotFound))
}

func TestProcess_UnavailableEngineSkipsPrimary(t *testing.T) {
	o := New(testConfig(filepath.Join(t.TempDir(), "no-such-engine")))

	_, err := o.Process(context.Background(), bogusDocument(t), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)

	var fbErr *FallbackError
	require.ErrorAs(t, err, &fbErr)
	assert.True(t, errors.Is(fbErr.PrimaryErr, ErrEngineUnavailable))
}

func TestDocStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/uploads/paper.pdf", want: "paper"},
		{path: "report.final.pdf", want: "report.final"},
		{path: "noext", want: "noext"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, docStem(tt.path))
	}
}
