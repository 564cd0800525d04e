package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/classify"
	"github.com/jackzampolin/lectern/internal/output"
	"github.com/jackzampolin/lectern/internal/similarity"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify document pages by visual similarity",
	Long: `Classify scores document pages against a labeled sample set built from
example pages. Building the sample set embeds each example page once;
scoring new pages needs only embeddings, no model calls.`,
}

var (
	sampleManifest string
	sampleUpdateID string
)

var sampleCreateCmd = &cobra.Command{
	Use:   "sample",
	Short: "Create or update a classifier sample set",
	Long: `Sample embeds the pages listed in a CSV manifest and stores them as a
classifier sample set. The manifest has one row per example page:

  class,document_ref,page

Labels are [A-Za-z0-9_]+ and each class needs 1-10 example pages. With
--update the rows are appended to an existing sample set.`,
	Example: `  lectern classify sample --manifest samples.csv
  lectern classify sample --manifest more.csv --update rb_classifier_1718000000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(sampleManifest)
		if err != nil {
			return err
		}
		defer f.Close()
		entries, err := classify.ParseManifest(f)
		if err != nil {
			return err
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		sampler, err := app.sampler()
		if err != nil {
			return err
		}

		if sampleUpdateID != "" {
			if err := sampler.Update(cmd.Context(), sampleUpdateID, entries); err != nil {
				return err
			}
			return output.Print(map[string]string{"sample_id": sampleUpdateID})
		}
		id, err := sampler.Create(cmd.Context(), entries)
		if err != nil {
			return err
		}
		return output.Print(map[string]string{"sample_id": id})
	},
}

var viewSampleID string

var sampleViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the per-class record counts of a sample set",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		sampler, err := app.sampler()
		if err != nil {
			return err
		}
		counts, err := sampler.View(cmd.Context(), viewSampleID)
		if err != nil {
			return err
		}
		return output.Print(counts)
	},
}

var (
	runSampleID  string
	runFile      string
	runPages     []int
	runTopN      int
	runThreshold float64
	runMetric    string
)

var classifyRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify the pages of a document",
	Example: `  lectern classify run --sample-id rb_classifier_1718000000 -f scan.pdf
  lectern classify run --sample-id rb_classifier_1718000000 -f scan.pdf --metric l2 --top-n 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		engine, err := app.engine()
		if err != nil {
			return err
		}
		results, err := engine.Classify(cmd.Context(), runSampleID, runFile, pagesOrNil(runPages), classify.Options{
			TopN:             runTopN,
			UnknownThreshold: runThreshold,
			Metric:           similarity.Metric(runMetric),
		})
		if err != nil {
			return err
		}
		return output.Print(results)
	},
}

func pagesOrNil(pages []int) []int {
	if len(pages) == 0 {
		return nil
	}
	return pages
}

func init() {
	sampleCreateCmd.Flags().StringVar(&sampleManifest, "manifest", "", "CSV manifest of example pages")
	sampleCreateCmd.Flags().StringVar(&sampleUpdateID, "update", "", "append to this existing sample set")
	_ = sampleCreateCmd.MarkFlagRequired("manifest")

	sampleViewCmd.Flags().StringVar(&viewSampleID, "sample-id", "", "sample set to inspect")
	_ = sampleViewCmd.MarkFlagRequired("sample-id")

	classifyRunCmd.Flags().StringVar(&runSampleID, "sample-id", "", "sample set to score against")
	classifyRunCmd.Flags().StringVarP(&runFile, "file", "f", "", "document path (local or s3://)")
	classifyRunCmd.Flags().IntSliceVarP(&runPages, "pages", "p", nil, "pages to classify (default: all)")
	classifyRunCmd.Flags().IntVar(&runTopN, "top-n", 0, "ranked classes to report per page (default 1)")
	classifyRunCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "unknown threshold (default 0.8)")
	classifyRunCmd.Flags().StringVar(&runMetric, "metric", "cosine", "similarity metric: cosine or l2")
	_ = classifyRunCmd.MarkFlagRequired("sample-id")
	_ = classifyRunCmd.MarkFlagRequired("file")

	classifyCmd.AddCommand(sampleCreateCmd)
	classifyCmd.AddCommand(sampleViewCmd)
	classifyCmd.AddCommand(classifyRunCmd)
}
