package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paperloom/paperloom/internal/document"
)

// Engine identifies which tier produced a conversion result.
type Engine string

const (
	EnginePrimary  Engine = "primary"
	EngineFallback Engine = "fallback"
)

// engineTempDirName is the working directory for a primary engine attempt,
// created under the job's output directory and removed before falling back.
const engineTempDirName = "engine_temp"

// Config holds orchestrator settings, resolved once at construction and
// passed by value into each job.
type Config struct {
	EngineBinary       string
	EngineBackend      string
	Language           string
	Device             string
	TableRecognition   bool // false: tables are captured as screenshots only
	FormulaRecognition bool
	EngineTimeout      time.Duration
	ProbeTimeout       time.Duration
	FallbackTimeout    time.Duration // bounds the whole fallback chain; 0 disables
	YTolerance         float64       // reading-order band tolerance for fallback extraction
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		EngineBinary:       "mineru",
		EngineBackend:      "pipeline",
		Language:           "en",
		Device:             "cpu",
		TableRecognition:   false,
		FormulaRecognition: true,
		EngineTimeout:      5 * time.Minute,
		ProbeTimeout:       10 * time.Second,
		FallbackTimeout:    2 * time.Minute,
		YTolerance:         document.DefaultYTolerance,
	}
}

// Result is the outcome of one conversion job. It is created once per job
// and owned by the caller afterwards, including cleanup of OutputDir.
type Result struct {
	Markdown   string        `json:"markdown"`
	OutputDir  string        `json:"output_dir"`
	Stats      Stats         `json:"stats"`
	EngineUsed Engine        `json:"engine_used"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Orchestrator drives the tiered conversion pipeline. Engine availability is
// resolved once at construction and holds for the orchestrator's lifetime.
type Orchestrator struct {
	cfg             Config
	engineAvailable bool
	engineVersion   string
	fallbacks       []fallbackStrategy
}

// New creates an orchestrator, probing the primary engine once.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{cfg: cfg}

	version, err := probeEngine(cfg.EngineBinary, cfg.ProbeTimeout)
	if err != nil {
		slog.Warn("primary engine unavailable, conversions will use the fallback chain",
			"binary", cfg.EngineBinary, "error", err)
	} else {
		o.engineAvailable = true
		o.engineVersion = version
		slog.Info("primary engine available",
			"binary", cfg.EngineBinary, "version", version, "device", cfg.Device)
	}

	o.fallbacks = []fallbackStrategy{
		&basicTextStrategy{},
		newRasterStrategy(cfg.YTolerance),
		&plainTextStrategy{},
	}
	return o
}

// EngineAvailable reports whether the primary engine probe succeeded.
func (o *Orchestrator) EngineAvailable() bool { return o.engineAvailable }

// EngineVersion returns the probed engine version string, if available.
func (o *Orchestrator) EngineVersion() string { return o.engineVersion }

// Process converts the document at documentPath into outputDir, producing
// output.md, an images/ directory and summary statistics. Primary engine
// failures of any kind are recovered by the fallback chain; only exhaustion
// of every strategy returns an error, as a *FallbackError.
func (o *Orchestrator) Process(ctx context.Context, documentPath, outputDir string) (*Result, error) {
	start := time.Now()

	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, &FallbackError{PrimaryErr: fmt.Errorf("create output directory: %w", err)}
	}

	var primaryErr error
	if o.engineAvailable {
		res, err := o.runPrimary(ctx, documentPath, outputDir)
		if err == nil {
			res.Elapsed = time.Since(start)
			slog.Info("conversion completed",
				"document", documentPath, "engine", res.EngineUsed, "elapsed", res.Elapsed)
			return res, nil
		}
		primaryErr = err
		slog.Warn("primary engine attempt failed, entering fallback chain",
			"document", documentPath, "error", err)
	} else {
		primaryErr = ErrEngineUnavailable
	}

	res, err := o.runFallbacks(ctx, documentPath, outputDir, primaryErr)
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	slog.Info("conversion completed",
		"document", documentPath, "engine", res.EngineUsed, "elapsed", res.Elapsed)
	return res, nil
}

// runPrimary executes one full primary-engine attempt: child process, output
// discovery, encoding normalization and stats extraction. The engine temp
// directory is removed on every failure path so partial state never
// accumulates across retries of the same job.
func (o *Orchestrator) runPrimary(ctx context.Context, documentPath, outputDir string) (*Result, error) {
	tempDir := filepath.Join(outputDir, engineTempDirName)
	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return nil, fmt.Errorf("create engine temp directory: %w", err)
	}

	if err := o.runEngine(ctx, documentPath, tempDir); err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, err
	}

	layout, err := discoverLayout(tempDir, docStem(documentPath))
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, err
	}

	markdown, manifest, err := o.normalizeOutput(layout, outputDir)
	_ = os.RemoveAll(tempDir)
	if err != nil {
		return nil, err
	}

	return &Result{
		Markdown:   markdown,
		OutputDir:  outputDir,
		Stats:      ExtractStats(manifest, outputDir, markdown),
		EngineUsed: EnginePrimary,
	}, nil
}

// normalizeOutput moves the discovered artifacts into their canonical
// locations: output.md re-persisted as UTF-8 and the image directory copied
// to images/. The manifest is best-effort; an unreadable manifest degrades to
// stats backfill, not to a failed conversion.
func (o *Orchestrator) normalizeOutput(layout *OutputLayout, outputDir string) (string, Manifest, error) {
	raw, err := os.ReadFile(layout.MarkdownPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrOutputNotFound, err)
	}

	markdown, err := decodeText(raw)
	if err != nil {
		// Decode exhaustion means the reported output is unusable.
		return "", nil, fmt.Errorf("%w: %v", ErrOutputNotFound, err)
	}
	if strings.TrimSpace(markdown) == "" {
		return "", nil, fmt.Errorf("%w: discovered markdown is empty", ErrOutputNotFound)
	}

	mdPath := filepath.Join(outputDir, document.OutputFileName)
	if err := os.WriteFile(mdPath, []byte(markdown), 0o600); err != nil {
		return "", nil, fmt.Errorf("write normalized markdown: %w", err)
	}

	if layout.ImagesDir != "" {
		dst := filepath.Join(outputDir, document.ImagesDirName)
		if err := copyDir(layout.ImagesDir, dst); err != nil {
			return "", nil, fmt.Errorf("copy images directory: %w", err)
		}
	}

	var manifest Manifest
	if layout.ManifestPath != "" {
		manifest, err = parseManifest(layout.ManifestPath)
		if err != nil {
			slog.Warn("ignoring unreadable engine manifest",
				"path", layout.ManifestPath, "error", err)
			manifest = nil
		}
	}
	return markdown, manifest, nil
}

// docStem returns the document filename without directory or extension.
func docStem(documentPath string) string {
	base := filepath.Base(documentPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// copyDir recursively copies src into dst, replacing dst if it exists.
func copyDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: paths come from output discovery
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) //nolint:gosec // G304: target is under the job output dir
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, in)
	return err
}
