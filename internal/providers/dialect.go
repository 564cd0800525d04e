package providers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Dialect names a Bedrock request/response body format. Different model
// families on Bedrock speak different native schemas.
type Dialect string

const (
	DialectClaude Dialect = "claude"
	DialectNova   Dialect = "nova"
)

// DialectForModel picks the body dialect from a Bedrock model identifier.
func DialectForModel(modelID string) Dialect {
	if strings.Contains(strings.ToLower(modelID), "nova") {
		return DialectNova
	}
	return DialectClaude
}

const anthropicVersion = "bedrock-2023-05-31"

// renderBody serializes an InvokeRequest into the native request body for
// the dialect. Page images are interleaved ahead of the first user message,
// each preceded by its page number so the model can cite pages.
func renderBody(d Dialect, req *InvokeRequest) ([]byte, error) {
	switch d {
	case DialectClaude:
		return renderClaudeBody(req)
	case DialectNova:
		return renderNovaBody(req)
	default:
		return nil, fmt.Errorf("unknown model dialect %q", d)
	}
}

func renderClaudeBody(req *InvokeRequest) ([]byte, error) {
	if req.Video != nil {
		return nil, fmt.Errorf("video analysis requires a nova model")
	}

	type content map[string]any
	type message struct {
		Role    string    `json:"role"`
		Content []content `json:"content"`
	}

	messages := make([]message, 0, len(req.Messages))
	for i, m := range req.Messages {
		var parts []content
		if i == 0 && m.Role == RoleUser {
			for _, pg := range req.Pages {
				parts = append(parts,
					content{"type": "text", "text": fmt.Sprintf("Page %d:", pg.Page)},
					content{"type": "image", "source": map[string]any{
						"type":       "base64",
						"media_type": "image/png",
						"data":       base64.StdEncoding.EncodeToString(pg.Data),
					}})
			}
		}
		parts = append(parts, content{"type": "text", "text": m.Content})
		messages = append(messages, message{Role: m.Role, Content: parts})
	}

	body := map[string]any{
		"anthropic_version": anthropicVersion,
		"max_tokens":        req.MaxTokens,
		"temperature":       req.Temperature,
		"messages":          messages,
	}
	if req.System != "" {
		body["system"] = req.System
	}
	return json.Marshal(body)
}

func renderNovaBody(req *InvokeRequest) ([]byte, error) {
	type content map[string]any
	type message struct {
		Role    string    `json:"role"`
		Content []content `json:"content"`
	}

	messages := make([]message, 0, len(req.Messages))
	for i, m := range req.Messages {
		var parts []content
		if i == 0 && m.Role == RoleUser {
			if v := req.Video; v != nil {
				loc := map[string]any{"uri": v.URI}
				if v.BucketOwner != "" {
					loc["bucketOwner"] = v.BucketOwner
				}
				parts = append(parts, content{"video": map[string]any{
					"format": v.Format,
					"source": map[string]any{"s3Location": loc},
				}})
			}
			for _, pg := range req.Pages {
				parts = append(parts,
					content{"text": fmt.Sprintf("Page %d:", pg.Page)},
					content{"image": map[string]any{
						"format": "png",
						"source": map[string]any{
							"bytes": base64.StdEncoding.EncodeToString(pg.Data),
						},
					}})
			}
		}
		parts = append(parts, content{"text": m.Content})
		messages = append(messages, message{Role: m.Role, Content: parts})
	}

	body := map[string]any{
		"schemaVersion": "messages-v1",
		"messages":      messages,
		"inferenceConfig": map[string]any{
			"maxTokens":   req.MaxTokens,
			"temperature": req.Temperature,
		},
	}
	if req.System != "" {
		body["system"] = []content{{"text": req.System}}
	}
	return json.Marshal(body)
}

// parseBody extracts the text content and token usage from a native
// response body.
func parseBody(d Dialect, body []byte) (*InvokeResult, error) {
	switch d {
	case DialectClaude:
		var resp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			StopReason string `json:"stop_reason"`
			Usage      struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding claude response: %w", err)
		}
		var text strings.Builder
		for _, c := range resp.Content {
			if c.Type == "text" {
				text.WriteString(c.Text)
			}
		}
		return &InvokeResult{
			Content:    text.String(),
			StopReason: resp.StopReason,
			Usage:      TokenUsage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens},
		}, nil

	case DialectNova:
		var resp struct {
			Output struct {
				Message struct {
					Content []struct {
						Text string `json:"text"`
					} `json:"content"`
				} `json:"message"`
			} `json:"output"`
			StopReason string `json:"stopReason"`
			Usage      struct {
				InputTokens  int `json:"inputTokens"`
				OutputTokens int `json:"outputTokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding nova response: %w", err)
		}
		var text strings.Builder
		for _, c := range resp.Output.Message.Content {
			text.WriteString(c.Text)
		}
		return &InvokeResult{
			Content:    text.String(),
			StopReason: resp.StopReason,
			Usage:      TokenUsage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens},
		}, nil

	default:
		return nil, fmt.Errorf("unknown model dialect %q", d)
	}
}

// parseStreamChunk extracts the text fragment and, when present, final
// usage from one streamed chunk payload. Either return may be empty.
func parseStreamChunk(d Dialect, payload []byte) (text string, usage *TokenUsage, err error) {
	switch d {
	case DialectClaude:
		var chunk struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
			Message struct {
				Usage struct {
					InputTokens int `json:"input_tokens"`
				} `json:"usage"`
			} `json:"message"`
			Metrics struct {
				InputTokenCount  int `json:"inputTokenCount"`
				OutputTokenCount int `json:"outputTokenCount"`
			} `json:"amazon-bedrock-invocationMetrics"`
		}
		if err := json.Unmarshal(payload, &chunk); err != nil {
			return "", nil, fmt.Errorf("decoding claude stream chunk: %w", err)
		}
		if chunk.Type == "content_block_delta" {
			return chunk.Delta.Text, nil, nil
		}
		if chunk.Metrics.InputTokenCount > 0 || chunk.Metrics.OutputTokenCount > 0 {
			return "", &TokenUsage{
				InputTokens:  chunk.Metrics.InputTokenCount,
				OutputTokens: chunk.Metrics.OutputTokenCount,
			}, nil
		}
		return "", nil, nil

	case DialectNova:
		var chunk struct {
			ContentBlockDelta struct {
				Delta struct {
					Text string `json:"text"`
				} `json:"delta"`
			} `json:"contentBlockDelta"`
			Metadata struct {
				Usage struct {
					InputTokens  int `json:"inputTokens"`
					OutputTokens int `json:"outputTokens"`
				} `json:"usage"`
			} `json:"metadata"`
			Metrics struct {
				InputTokenCount  int `json:"inputTokenCount"`
				OutputTokenCount int `json:"outputTokenCount"`
			} `json:"amazon-bedrock-invocationMetrics"`
		}
		if err := json.Unmarshal(payload, &chunk); err != nil {
			return "", nil, fmt.Errorf("decoding nova stream chunk: %w", err)
		}
		if chunk.ContentBlockDelta.Delta.Text != "" {
			return chunk.ContentBlockDelta.Delta.Text, nil, nil
		}
		if u := chunk.Metadata.Usage; u.InputTokens > 0 || u.OutputTokens > 0 {
			return "", &TokenUsage{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens}, nil
		}
		if chunk.Metrics.InputTokenCount > 0 || chunk.Metrics.OutputTokenCount > 0 {
			return "", &TokenUsage{
				InputTokens:  chunk.Metrics.InputTokenCount,
				OutputTokens: chunk.Metrics.OutputTokenCount,
			}, nil
		}
		return "", nil, nil

	default:
		return "", nil, fmt.Errorf("unknown model dialect %q", d)
	}
}
