package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paperloom/paperloom/internal/convert"
	"github.com/paperloom/paperloom/internal/jobs"
	"github.com/paperloom/paperloom/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP conversion service",
	Long: `Start an HTTP server exposing the conversion API.

Endpoints:
  POST   /convert/upload        - Upload a PDF document
  POST   /convert/process/{id}  - Start converting an uploaded document
  GET    /convert/status/{id}   - Job status
  GET    /convert/result/{id}   - Full conversion result
  GET    /convert/download/{id} - Download the converted Markdown
  GET    /convert/jobs          - List jobs
  DELETE /convert/{id}          - Delete a job and its files
  GET    /ws/status             - WebSocket job status feed
  GET    /health                - Health and engine availability
  GET    /metrics               - Prometheus metrics

Examples:
  paperloom serve
  paperloom serve --port 8000
  paperloom serve --host 0.0.0.0 --uploads-dir /var/lib/paperloom/uploads`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}
		maxUploadMB := cfg.Server.MaxUploadMB
		if cmd.Flags().Changed("max-upload-size") {
			maxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
		}
		shutdownTimeout := cfg.Server.ShutdownTimeoutSec
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}
		uploadsDir := cfg.Server.UploadsDir
		if cmd.Flags().Changed("uploads-dir") {
			uploadsDir, _ = cmd.Flags().GetString("uploads-dir")
		}
		outputsDir := cfg.Server.OutputsDir
		if cmd.Flags().Changed("outputs-dir") {
			outputsDir, _ = cmd.Flags().GetString("outputs-dir")
		}

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		orch := convert.New(cfg.ConvertConfig())
		srv, err := server.NewServer(server.Config{
			Host:        host,
			Port:        port,
			CORSOrigin:  corsOrigin,
			MaxUploadMB: int64(maxUploadMB),
			UploadsDir:  uploadsDir,
			OutputsDir:  outputsDir,
		}, orch, jobs.NewMemoryStore())
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		mux := http.NewServeMux()
		srv.SetupRoutes(mux)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			slog.Info("starting conversion server",
				"host", host, "port", port, "engine_available", orch.EngineAvailable())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("context cancelled, initiating shutdown")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8000, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 100, "maximum upload size in MB")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().String("uploads-dir", "uploads", "directory for uploaded documents")
	serveCmd.Flags().String("outputs-dir", "outputs", "directory for conversion outputs")
}
