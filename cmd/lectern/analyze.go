package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/analysis"
	"github.com/jackzampolin/lectern/internal/output"
)

var (
	analyzeFile     string
	analyzeMessage  string
	analyzeSchema   string
	analyzePages    []int
	analyzeOverlap  int
	analyzeMode     string
	analyzeProvider string
	analyzeStream   bool
	analyzeTokens   int
	analyzeTemp     float64
	analyzeEntities []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a document with a multimodal model",
	Long: `Analyze sends document pages to a multimodal model and prints the
structured answer.

The schema flag accepts inline JSON or a path to a schema file. With
--overlap > 0 the whole document is processed in overlapping page windows
and the per-window answers are synthesized into one response.`,
	Example: `  lectern analyze -f invoice.pdf -m "Extract the line items" -s schema.json
  lectern analyze -f book.pdf -m "List every chapter" --overlap 2
  lectern analyze -f scan.pdf --mode summary
  lectern analyze -f scan.pdf -m "What is this?" --mode chat --stream
  lectern analyze -f form.pdf -m "Find the entities" --entities NAME,ADDRESS,SSN`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		client, err := app.modelClient(analyzeProvider)
		if err != nil {
			return err
		}

		schemaRaw, err := readSchemaFlag(analyzeSchema)
		if err != nil {
			return err
		}
		analyzer := app.analyzer(client)

		if len(analyzeEntities) > 0 {
			if analyzeStream {
				return fmt.Errorf("entity recognition does not support streaming")
			}
			if analyzeOverlap > 0 {
				slog.Warn("sliding windows are not supported for entity recognition, analyzing without windows")
			}
			res, err := analyzer.RunEntities(cmd.Context(), analyzeFile, &analysis.EntityRequest{
				Message:     analyzeMessage,
				Pages:       analyzePages,
				Entities:    analyzeEntities,
				MaxTokens:   analyzeTokens,
				Temperature: analyzeTemp,
			})
			if err != nil {
				return err
			}
			return output.Print(res)
		}

		req := &analysis.Request{
			Message:              analyzeMessage,
			Pages:                analyzePages,
			OutputSchema:         schemaRaw,
			SlidingWindowOverlap: analyzeOverlap,
			Mode:                 analysis.Mode(analyzeMode),
			MaxTokens:            analyzeTokens,
			Temperature:          analyzeTemp,
		}

		if analyzeStream {
			stream, err := analyzer.RunStream(cmd.Context(), analyzeFile, req)
			if err != nil {
				return err
			}
			defer stream.Close()
			for stream.Next() {
				fmt.Print(stream.Current())
			}
			fmt.Println()
			if err := stream.Err(); err != nil {
				return err
			}
			return output.Print(map[string]any{"token_usage": stream.Usage()})
		}

		res, err := analyzer.Run(cmd.Context(), analyzeFile, req)
		if err != nil {
			return err
		}
		return output.Print(res)
	},
}

var analyzeEntitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List the entity types available for --entities",
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Print(analysis.EntityTypes())
	},
}

func init() {
	analyzeCmd.AddCommand(analyzeEntitiesCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "document path (local or s3://)")
	analyzeCmd.Flags().StringVarP(&analyzeMessage, "message", "m", "", "question or instruction for the model")
	analyzeCmd.Flags().StringVarP(&analyzeSchema, "schema", "s", "", "JSON schema for the answer, inline or a file path")
	analyzeCmd.Flags().IntSliceVarP(&analyzePages, "pages", "p", nil, "pages to analyze (default: all)")
	analyzeCmd.Flags().IntVar(&analyzeOverlap, "overlap", 0, "sliding window overlap in pages; 0 disables windowing")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "extract", "analysis mode: extract, summary, or chat")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "", "model provider (default: from config)")
	analyzeCmd.Flags().BoolVar(&analyzeStream, "stream", false, "stream the response as it is generated")
	analyzeCmd.Flags().IntVar(&analyzeTokens, "max-tokens", 0, "max response tokens (default: from config)")
	analyzeCmd.Flags().Float64Var(&analyzeTemp, "temperature", 0, "sampling temperature")
	analyzeCmd.Flags().StringSliceVar(&analyzeEntities, "entities", nil, "entity types to recognize instead of answering a question")
	_ = analyzeCmd.MarkFlagRequired("file")
}

// readSchemaFlag accepts inline JSON or a path to a schema file.
func readSchemaFlag(value string) (json.RawMessage, error) {
	if value == "" {
		return nil, nil
	}
	if json.Valid([]byte(value)) {
		return json.RawMessage(value), nil
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", value, err)
	}
	return json.RawMessage(data), nil
}
