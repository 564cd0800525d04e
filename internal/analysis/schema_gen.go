package analysis

import (
	"context"
	"encoding/json"

	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/extract"
	"github.com/jackzampolin/lectern/internal/prompts"
	"github.com/jackzampolin/lectern/internal/providers"
)

// SchemaRequest asks the model to design an extraction schema from sample
// pages of the target document.
type SchemaRequest struct {
	// Message is the extraction request the schema should serve.
	Message string

	// Pages selects the sample pages shown to the model. Empty or [0]
	// means every page.
	Pages []int

	// AssistiveRephrase also asks for a self-contained rephrasing of the
	// request, suited to running the extraction later.
	AssistiveRephrase bool

	MaxTokens   int
	Temperature float64
}

// SchemaResult is a generated extraction schema.
type SchemaResult struct {
	OutputSchema      json.RawMessage      `json:"output_schema"`
	RephrasedQuestion string               `json:"rephrased_question,omitempty"`
	Usage             providers.TokenUsage `json:"token_usage"`
}

// GenerateSchema designs a JSON schema for an extraction request against
// the document at docPath.
func (a *Analyzer) GenerateSchema(ctx context.Context, docPath string, req *SchemaRequest) (*SchemaResult, error) {
	doc, err := a.loadDocument(ctx, docPath)
	if err != nil {
		return nil, err
	}
	pages, err := resolvePages(req.Pages, doc.TotalPages, a.Config.MaxPagesPerCall)
	if err != nil {
		return nil, err
	}
	images, err := a.Raster.ToImages(ctx, doc, pages)
	if err != nil {
		return nil, err
	}

	key := prompts.KeySchemaGen
	if req.AssistiveRephrase {
		key = prompts.KeySchemaGenRephrase
	}
	system, err := a.Prompts.Render(key, nil)
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.Config.Defaults.MaxTokens
	}
	res, err := a.protocol().Invoke(ctx, &providers.InvokeRequest{
		System:      system,
		Messages:    []providers.Message{{Role: providers.RoleUser, Content: req.Message}},
		Pages:       images,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	parsed, err := extract.ParseModelJSON(res.Content)
	if err != nil {
		return nil, &errs.ModelInvocationError{
			Model:      a.Client.Name(),
			Attempts:   1,
			LastOutput: res.Content,
			Message:    "schema generation did not return JSON",
			Err:        err,
		}
	}

	if !req.AssistiveRephrase {
		return &SchemaResult{OutputSchema: parsed, Usage: res.Usage}, nil
	}

	var envelope struct {
		RephrasedQuestion string          `json:"rephrased_question"`
		OutputSchema      json.RawMessage `json:"output_schema"`
	}
	if err := json.Unmarshal(parsed, &envelope); err != nil || len(envelope.OutputSchema) == 0 {
		return nil, &errs.ModelInvocationError{
			Model:      a.Client.Name(),
			Attempts:   1,
			LastOutput: res.Content,
			Message:    "schema generation reply missing output_schema",
			Err:        err,
		}
	}
	return &SchemaResult{
		OutputSchema:      envelope.OutputSchema,
		RephrasedQuestion: envelope.RephrasedQuestion,
		Usage:             res.Usage,
	}, nil
}
