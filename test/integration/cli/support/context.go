// Package support provides the shared state and step definitions for the
// conversion service integration suite.
package support

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/paperloom/paperloom/internal/convert"
	"github.com/paperloom/paperloom/internal/jobs"
	"github.com/paperloom/paperloom/internal/server"
)

// stubEngineScript emulates the external layout engine: it answers the
// version probe and emits a small Markdown document plus manifest for any
// conversion request.
const stubEngineScript = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "stub-engine 1.0.0"
  exit 0
fi
out="$4"
mkdir -p "$out/auto/images"
printf '# Stub Document\n\nConverted body text.\n' > "$out/auto/result.md"
printf '[{"preproc_blocks": [{"type": "text"}]}]' > "$out/auto/doc_content_list.json"
printf 'png' > "$out/auto/images/fig_1.png"
`

// TestContext holds the state for one scenario.
type TestContext struct {
	TempDir      string
	EngineBinary string

	HTTPServer *httptest.Server
	Store      *jobs.MemoryStore

	JobID              string
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    http.Header
}

// NewTestContext prepares an isolated environment with a stub engine.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "paperloom-integration-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	enginePath := filepath.Join(tempDir, "engine.sh")
	if err := os.WriteFile(enginePath, []byte(stubEngineScript), 0o700); err != nil { //nolint:gosec // test stub must be executable
		return nil, fmt.Errorf("write stub engine: %w", err)
	}

	return &TestContext{
		TempDir:      tempDir,
		EngineBinary: enginePath,
	}, nil
}

// StartService builds the real orchestrator against the stub engine and
// serves the API over an httptest server.
func (testCtx *TestContext) StartService() error {
	if testCtx.HTTPServer != nil {
		return nil
	}

	cfg := convert.DefaultConfig()
	cfg.EngineBinary = testCtx.EngineBinary
	cfg.EngineTimeout = 30 * time.Second
	cfg.ProbeTimeout = 10 * time.Second
	orch := convert.New(cfg)

	testCtx.Store = jobs.NewMemoryStore()
	srv, err := server.NewServer(server.Config{
		CORSOrigin:  "*",
		MaxUploadMB: 10,
		UploadsDir:  filepath.Join(testCtx.TempDir, "uploads"),
		OutputsDir:  filepath.Join(testCtx.TempDir, "outputs"),
	}, orch, testCtx.Store)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	testCtx.HTTPServer = httptest.NewServer(mux)
	return nil
}

// Cleanup tears down the scenario state.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
	return os.RemoveAll(testCtx.TempDir)
}
