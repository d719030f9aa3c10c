package convert

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paperloom/paperloom/internal/document"
)

// fallbackStrategy is one tier in the conversion fallback chain. A strategy
// either fully succeeds, leaving output.md (and possibly images/) under
// outputDir, or fails and is abandoned in favor of the next tier.
type fallbackStrategy interface {
	Name() string
	Process(ctx context.Context, documentPath, outputDir string) (*Result, error)
}

// runFallbacks tries each fallback strategy in order. The whole chain runs
// under the configured fallback timeout; the reference behavior had none,
// which let a hung extraction block its job indefinitely.
func (o *Orchestrator) runFallbacks(ctx context.Context, documentPath, outputDir string, primaryErr error) (*Result, error) {
	if o.cfg.FallbackTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.FallbackTimeout)
		defer cancel()
	}

	attempts := make([]Attempt, 0, len(o.fallbacks))
	for _, strat := range o.fallbacks {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Strategy: strat.Name(), Err: err})
			break
		}

		slog.Info("trying fallback strategy", "strategy", strat.Name(), "document", documentPath)
		res, err := strat.Process(ctx, documentPath, outputDir)
		if err == nil {
			res.EngineUsed = EngineFallback
			slog.Info("fallback strategy succeeded", "strategy", strat.Name())
			return res, nil
		}

		slog.Warn("fallback strategy failed", "strategy", strat.Name(), "error", err)
		attempts = append(attempts, Attempt{Strategy: strat.Name(), Err: err})

		// Stray images/ files from a failed tier would be counted as
		// figures by the next tier's disk-based stats pass.
		clearPartialOutput(outputDir)
	}

	return nil, &FallbackError{PrimaryErr: primaryErr, Attempts: attempts}
}

// clearPartialOutput drops whatever a failed strategy left under outputDir.
func clearPartialOutput(outputDir string) {
	_ = os.Remove(filepath.Join(outputDir, document.OutputFileName))
	_ = os.RemoveAll(filepath.Join(outputDir, document.ImagesDirName))
}
