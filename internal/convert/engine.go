package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// probeEngine checks the primary engine once by running its version command
// with a short timeout. A missing executable or non-zero result marks the
// engine unavailable; callers do not re-probe per request.
func probeEngine(binary string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// runEngine invokes the primary engine as a child process with a hard
// wall-clock timeout, writing its output under tempDir. The argument set
// selects backend mode, language, table handling, formula recognition and
// target device.
func (o *Orchestrator) runEngine(ctx context.Context, documentPath, tempDir string) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.EngineTimeout)
	defer cancel()

	args := []string{
		"-p", documentPath,
		"-o", tempDir,
		"-b", o.cfg.EngineBackend,
		"--lang", o.cfg.Language,
		"-t", strconv.FormatBool(o.cfg.TableRecognition),
		"-f", strconv.FormatBool(o.cfg.FormulaRecognition),
		"-d", o.cfg.Device,
	}

	slog.Info("invoking conversion engine",
		"binary", o.cfg.EngineBinary,
		"document", documentPath,
		"timeout", o.cfg.EngineTimeout)

	cmd := exec.CommandContext(ctx, o.cfg.EngineBinary, args...) //nolint:gosec // G204: binary comes from validated config
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Timeout: o.cfg.EngineTimeout}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return &ExitError{Code: exitErr.ExitCode(), Stderr: msg}
	}
	return fmt.Errorf("engine invocation: %w", err)
}
