package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/analysis"
	"github.com/jackzampolin/lectern/internal/output"
)

var (
	schemaFile     string
	schemaMessage  string
	schemaPages    []int
	schemaRephrase bool
	schemaProvider string
)

var schemaCmd = &cobra.Command{
	Use:   "generate-schema",
	Short: "Generate an extraction schema from sample pages",
	Long: `Generate-schema shows the model sample pages of a document and asks it
to design a JSON schema for an extraction request. With --rephrase the
model also returns a self-contained rephrasing of the request, suited to
running the extraction later.`,
	Example: `  lectern generate-schema -f invoice.pdf -m "the vendor, date, and total"
  lectern generate-schema -f invoice.pdf -m "the totals" --rephrase`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		client, err := app.modelClient(schemaProvider)
		if err != nil {
			return err
		}

		res, err := app.analyzer(client).GenerateSchema(cmd.Context(), schemaFile, &analysis.SchemaRequest{
			Message:           schemaMessage,
			Pages:             schemaPages,
			AssistiveRephrase: schemaRephrase,
		})
		if err != nil {
			return err
		}
		return output.Print(res)
	},
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaFile, "file", "f", "", "document path (local or s3://)")
	schemaCmd.Flags().StringVarP(&schemaMessage, "message", "m", "", "what the extraction should capture")
	schemaCmd.Flags().IntSliceVarP(&schemaPages, "pages", "p", nil, "sample pages to show the model (default: all)")
	schemaCmd.Flags().BoolVar(&schemaRephrase, "rephrase", false, "also return a rephrased extraction request")
	schemaCmd.Flags().StringVar(&schemaProvider, "provider", "", "model provider (default: from config)")
	_ = schemaCmd.MarkFlagRequired("file")
	_ = schemaCmd.MarkFlagRequired("message")
}
