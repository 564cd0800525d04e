// Package extract runs schema-constrained model calls: it sends page
// images with a prompt, parses the fenced JSON reply, validates it against
// the caller's schema, and walks the model through corrective retries when
// the reply is malformed.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/jackzampolin/lectern/internal/config"
	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/fileconv"
	"github.com/jackzampolin/lectern/internal/prompts"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/schema"
	"github.com/jackzampolin/lectern/internal/window"
)

// Request is one extraction over a set of page images.
type Request struct {
	System  string
	Message string
	Pages   []fileconv.PageImage

	// Schema, when set, is validated against the parsed reply. The reply
	// must be JSON either way.
	Schema json.RawMessage

	// Window records which document window the pages came from, when the
	// caller is processing a large document.
	Window *window.Window

	MaxTokens   int
	Temperature float64
}

// WindowResult is the outcome of one extraction.
type WindowResult struct {
	Window      *window.Window       `json:"window,omitempty"`
	RawOutput   string               `json:"-"`
	Parsed      json.RawMessage      `json:"output"`
	RetriesUsed int                  `json:"retries_used"`
	Usage       providers.TokenUsage `json:"token_usage"`
}

// Protocol drives schema-constrained extraction against one model client.
type Protocol struct {
	Client  providers.ModelClient
	Config  *config.Config
	Prompts *prompts.Store
	Logger  *slog.Logger
}

func (p *Protocol) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Extract runs one extraction, including corrective retries for malformed
// JSON. RetriesUsed counts the corrective turns taken beyond the first, and
// Usage accumulates tokens across every turn including failed ones.
func (p *Protocol) Extract(ctx context.Context, req *Request) (*WindowResult, error) {
	var validator *schema.Validator
	if len(req.Schema) > 0 {
		var err error
		validator, err = schema.Compile(req.Schema)
		if err != nil {
			return nil, err
		}
	}

	attempts := p.Config.RetryForIncompleteJSON
	if attempts < 1 {
		attempts = 1
	}

	messages := []providers.Message{{Role: providers.RoleUser, Content: req.Message}}
	var usage providers.TokenUsage
	var lastRaw string

	requestID := uuid.NewString()
	for attempt := 0; attempt < attempts; attempt++ {
		res, err := p.Invoke(ctx, &providers.InvokeRequest{
			System:      req.System,
			Messages:    messages,
			Pages:       req.Pages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			RequestID:   requestID,
		})
		if err != nil {
			return nil, err
		}
		usage.Add(res.Usage)
		lastRaw = res.Content

		parsed, parseErr := ParseModelJSON(res.Content)
		if parseErr == nil && validator != nil {
			parseErr = validator.Validate(parsed)
		}
		if parseErr == nil {
			return &WindowResult{
				Window:      req.Window,
				RawOutput:   res.Content,
				Parsed:      parsed,
				RetriesUsed: attempt,
				Usage:       usage,
			}, nil
		}

		p.logger().Warn("model returned malformed JSON",
			"model", p.Client.Name(),
			"attempt", attempt+1,
			"attempts", attempts,
			"error", parseErr)

		corrective, err := p.Prompts.Render(prompts.KeyRetryJSON, map[string]any{"Error": parseErr.Error()})
		if err != nil {
			return nil, err
		}
		messages = append(messages,
			providers.Message{Role: providers.RoleAssistant, Content: res.Content},
			providers.Message{Role: providers.RoleUser, Content: corrective},
		)
	}

	return nil, &errs.ModelInvocationError{
		Model:      p.Client.Name(),
		Attempts:   attempts,
		LastOutput: lastRaw,
		Message:    "model never produced schema-valid JSON",
	}
}

// Invoke calls the model with exponential backoff on throttling. Other
// errors propagate immediately.
func (p *Protocol) Invoke(ctx context.Context, req *providers.InvokeRequest) (*providers.InvokeResult, error) {
	var res *providers.InvokeResult
	err := retry.Do(
		func() error {
			r, err := p.Client.Invoke(ctx, req)
			if err != nil {
				return err
			}
			res = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(p.Config.MaxRetries)),
		retry.Delay(p.Config.InitialBackoffDuration()),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(500*time.Millisecond),
		retry.RetryIf(func(err error) bool {
			_, ok := providers.IsRateLimitError(err)
			return ok
		}),
		retry.OnRetry(func(n uint, err error) {
			p.logger().Warn("model call throttled, backing off",
				"model", p.Client.Name(),
				"attempt", n+1,
				"max_attempts", p.Config.MaxRetries,
				"error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if _, ok := providers.IsRateLimitError(err); ok {
			return nil, &errs.ModelInvocationError{
				Model:    p.Client.Name(),
				Attempts: p.Config.MaxRetries,
				Message:  "throttled on every attempt",
				Err:      err,
			}
		}
		return nil, &errs.ModelInvocationError{
			Model:    p.Client.Name(),
			Attempts: 1,
			Message:  "model call failed",
			Err:      err,
		}
	}
	return res, nil
}
