// Package providers exposes the model backends used for document analysis:
// multimodal chat models and image embedding models. Clients normalize
// backend-specific request and response shapes so callers only see
// InvokeRequest and InvokeResult.
package providers

import (
	"context"

	"github.com/jackzampolin/lectern/internal/fileconv"
)

// Message roles in a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ModelClient is the interface for multimodal chat models.
type ModelClient interface {
	// Invoke sends a request and blocks for the full response.
	Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error)

	// InvokeStream sends a request and returns a pull iterator over
	// response fragments.
	InvokeStream(ctx context.Context, req *InvokeRequest) (ModelStream, error)

	// Name returns the client identifier (e.g., "bedrock").
	Name() string
}

// EmbeddingClient produces vector embeddings for page images.
type EmbeddingClient interface {
	// EmbedImage embeds a PNG page image.
	EmbedImage(ctx context.Context, image []byte) ([]float64, error)

	// Name returns the client identifier.
	Name() string
}

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// InvokeRequest is a request to a multimodal model. Pages are attached to
// the first user message; later messages carry retry or follow-up turns.
type InvokeRequest struct {
	System   string
	Messages []Message
	Pages    []fileconv.PageImage

	// Video, when set, attaches a video by S3 reference to the first user
	// message. Only Nova models accept video input.
	Video *VideoSource

	MaxTokens   int
	Temperature float64

	// Request tracking
	RequestID string
}

// VideoSource references a video stored in S3. The model reads it
// directly; the bytes never pass through this process.
type VideoSource struct {
	URI    string
	Format string

	// BucketOwner is the AWS account ID of the bucket owner, required for
	// cross-account S3 access.
	BucketOwner string
}

// TokenUsage counts tokens consumed by one or more model calls.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another call's usage.
func (u *TokenUsage) Add(o TokenUsage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// InvokeResult is the complete response from a model call.
type InvokeResult struct {
	Content    string     `json:"content"`
	StopReason string     `json:"stop_reason,omitempty"`
	Usage      TokenUsage `json:"usage"`
	ModelUsed  string     `json:"model_used"`
	RequestID  string     `json:"request_id,omitempty"`
}

// ModelStream is a pull iterator over streamed response fragments.
//
//	for stream.Next() {
//	    fmt.Print(stream.Current())
//	}
//	if err := stream.Err(); err != nil { ... }
//
// Usage is only complete after Next has returned false with a nil Err.
type ModelStream interface {
	Next() bool
	Current() string
	Usage() TokenUsage
	Err() error
	Close() error
}
