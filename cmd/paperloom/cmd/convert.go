package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/paperloom/paperloom/internal/convert"
)

// convertCmd represents the convert command.
var convertCmd = &cobra.Command{
	Use:   "convert [pdf file]",
	Short: "Convert a PDF document to Markdown",
	Long: `Convert a PDF document to structured Markdown.

The conversion uses the configured layout analysis engine when available and
falls back to native extraction strategies otherwise. Output is written as
output.md plus an images/ directory.

Examples:
  paperloom convert paper.pdf
  paperloom convert paper.pdf -o results/ --stats
  paperloom convert paper.pdf --device cuda --language ja`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		info, err := os.Stat(input)
		if err != nil {
			return fmt.Errorf("input file not accessible: %w", err)
		}
		if info.IsDir() || !strings.EqualFold(filepath.Ext(input), ".pdf") {
			return fmt.Errorf("input must be a PDF file: %s", input)
		}

		cfg := GetConfig()
		if cmd.Flags().Changed("device") {
			cfg.Engine.Device, _ = cmd.Flags().GetString("device")
		}
		if cmd.Flags().Changed("language") {
			cfg.Engine.Language, _ = cmd.Flags().GetString("language")
		}
		if cmd.Flags().Changed("engine-timeout") {
			cfg.Engine.TimeoutSec, _ = cmd.Flags().GetInt("engine-timeout")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		outputDir, _ := cmd.Flags().GetString("output")
		if outputDir == "" {
			base := filepath.Base(input)
			outputDir = strings.TrimSuffix(base, filepath.Ext(base))
		}

		orch := convert.New(cfg.ConvertConfig())
		res, err := orch.Process(cmd.Context(), input, outputDir)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}

		if ok, _ := cmd.Flags().GetBool("stats"); ok {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.Stats)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Converted %s -> %s (engine: %s, pages: %d, elapsed: %s)\n",
			input, filepath.Join(outputDir, "output.md"), res.EngineUsed,
			res.Stats.TotalPages, res.Elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringP("output", "o", "", "output directory (default: document name without extension)")
	convertCmd.Flags().String("device", "", "engine inference device (cpu, cuda)")
	convertCmd.Flags().String("language", "", "document language hint for the engine")
	convertCmd.Flags().Int("engine-timeout", 0, "engine timeout in seconds")
	convertCmd.Flags().Bool("stats", false, "print conversion statistics as JSON instead of a summary line")
}
