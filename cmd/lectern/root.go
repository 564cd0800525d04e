package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/output"
	"github.com/jackzampolin/lectern/version"
)

var (
	cfgFile      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "LLM-powered analysis of large scanned documents",
	Long: `Lectern extracts structured data from scanned documents using
multimodal language models.

Large documents are analyzed in overlapping page windows and the
per-window answers are synthesized into one response. Model output is
validated against a JSON schema, with corrective retries when the model
returns malformed JSON.

Lectern also classifies document pages by visual similarity against a
labeled sample set, without any model calls at scoring time.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.lectern/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "json", "output format: json or yaml",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.SetFormat(outputFormat)

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(videoCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(classifyCmd)
}
