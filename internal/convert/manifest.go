package convert

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest is the engine's structured per-page element listing, emitted
// alongside its Markdown output. Each entry describes one page.
type Manifest []ManifestPage

// ManifestPage lists the detected blocks of a single page.
type ManifestPage struct {
	PreprocBlocks []ManifestBlock `json:"preproc_blocks"`
}

// ManifestBlock is a single detected element. Only the declared type is used
// for statistics; geometry and content are not trusted beyond that.
type ManifestBlock struct {
	Type string `json:"type"`
}

// Manifest block types as declared by the engine.
const (
	blockTypeTable          = "table"
	blockTypeImage          = "image"
	blockTypeEquation       = "equation"
	blockTypeInlineEquation = "inline_equation"
)

// parseManifest reads and decodes a structured manifest file, applying the
// same encoding normalization as the Markdown output.
func parseManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path comes from output discovery
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	text, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
