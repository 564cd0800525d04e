package extract

import (
	"context"
	"encoding/json"

	"github.com/jackzampolin/lectern/internal/prompts"
	"github.com/jackzampolin/lectern/internal/providers"
)

// SynthesisResult is the combined answer over all windows of a document.
type SynthesisResult struct {
	// Response is schema-valid JSON when a schema was given, otherwise a
	// JSON-encoded string.
	Response    json.RawMessage      `json:"synthesized_response"`
	RetriesUsed int                  `json:"retries_used"`
	Usage       providers.TokenUsage `json:"token_usage"`
}

// Synthesizer merges per-window extraction results into one answer with a
// final model call. A single window needs no synthesis and is passed
// through without spending tokens.
type Synthesizer struct {
	Protocol *Protocol
}

func (s *Synthesizer) Synthesize(ctx context.Context, question string, schemaRaw json.RawMessage, results []*WindowResult) (*SynthesisResult, error) {
	if len(results) == 1 {
		return &SynthesisResult{Response: results[0].Parsed}, nil
	}

	system, err := s.Protocol.Prompts.Render(prompts.KeySynthesizeSystem, map[string]any{
		"Schema": string(schemaRaw),
	})
	if err != nil {
		return nil, err
	}

	type windowOutput struct {
		Label  string
		Output string
	}
	outputs := make([]windowOutput, 0, len(results))
	for _, r := range results {
		label := "unknown"
		if r.Window != nil {
			label = r.Window.Label()
		}
		outputs = append(outputs, windowOutput{Label: label, Output: string(r.Parsed)})
	}
	message, err := s.Protocol.Prompts.Render(prompts.KeySynthesizeUser, map[string]any{
		"Question":    question,
		"WindowCount": len(results),
		"Results":     outputs,
	})
	if err != nil {
		return nil, err
	}

	res, err := s.Protocol.Extract(ctx, &Request{
		System:  system,
		Message: message,
		Schema:  schemaRaw,
	})
	if err != nil {
		return nil, err
	}
	return &SynthesisResult{
		Response:    res.Parsed,
		RetriesUsed: res.RetriesUsed,
		Usage:       res.Usage,
	}, nil
}
