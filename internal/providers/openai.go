package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIClientName   = "openai"
	openAIDefaultModel = openai.ChatModelGPT4o
)

// OpenAIConfig holds configuration for OpenAI and OpenAI-compatible
// endpoints.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // Optional, for compatible endpoints
	RateLimit  int    // Requests per minute, 0 disables local limiting
	MaxRetries int    // SDK transport retries
	Timeout    time.Duration
	HTTPClient *http.Client // Optional (tests)
	Logger     *slog.Logger
}

// OpenAIClient implements ModelClient using the official OpenAI SDK.
type OpenAIClient struct {
	client  openai.Client
	model   string
	limiter *RateLimiter
	logger  *slog.Logger
}

var _ ModelClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI chat client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	var limiter *RateLimiter
	if cfg.RateLimit > 0 {
		limiter = NewRateLimiter(cfg.RateLimit)
	}

	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		limiter: limiter,
		logger:  cfg.Logger.With("provider", OpenAIClientName),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIClientName
}

func (c *OpenAIClient) buildParams(req *InvokeRequest) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for i, m := range req.Messages {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
			continue
		}
		if i == 0 && len(req.Pages) > 0 {
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, 2*len(req.Pages)+1)
			for _, pg := range req.Pages {
				parts = append(parts,
					openai.TextContentPart(fmt.Sprintf("Page %d:", pg.Page)),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pg.Data),
					}))
			}
			parts = append(parts, openai.TextContentPart(m.Content))
			messages = append(messages, openai.UserMessage(parts))
			continue
		}
		messages = append(messages, openai.UserMessage(m.Content))
	}

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	params.Temperature = openai.Float(req.Temperature)
	return params
}

// Invoke sends a chat completion request and blocks for the full response.
func (c *OpenAIClient) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error) {
	if req.Video != nil {
		return nil, fmt.Errorf("video analysis requires a bedrock nova model")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model %s returned no choices", c.model)
	}

	result := &InvokeResult{
		Content:    resp.Choices[0].Message.Content,
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		ModelUsed: resp.Model,
		RequestID: req.RequestID,
	}

	c.logger.Debug("invoked model",
		"model", c.model,
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
		"duration", time.Since(start))
	return result, nil
}

// InvokeStream sends a chat completion request and streams the response.
func (c *OpenAIClient) InvokeStream(ctx context.Context, req *InvokeRequest) (ModelStream, error) {
	if req.Video != nil {
		return nil, fmt.Errorf("video analysis requires a bedrock nova model")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := c.buildParams(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}
	return &openaiStream{stream: c.client.Chat.Completions.NewStreaming(ctx, params), client: c}, nil
}

func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		var retryAfter time.Duration
		if apiErr.Response != nil {
			retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		if c.limiter != nil {
			c.limiter.Record429(retryAfter)
		}
		return &RateLimitError{
			Message:    apiErr.Message,
			RetryAfter: retryAfter,
			StatusCode: apiErr.StatusCode,
		}
	}
	return fmt.Errorf("openai invoke: %w", err)
}

// openaiStream adapts the SDK's SSE stream to ModelStream.
type openaiStream struct {
	stream interface {
		Next() bool
		Current() openai.ChatCompletionChunk
		Err() error
		Close() error
	}
	client  *OpenAIClient
	current string
	usage   TokenUsage
	err     error
}

func (s *openaiStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if chunk.Usage.TotalTokens > 0 {
			s.usage = TokenUsage{
				InputTokens:  int(chunk.Usage.PromptTokens),
				OutputTokens: int(chunk.Usage.CompletionTokens),
			}
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			s.current = chunk.Choices[0].Delta.Content
			return true
		}
	}
	if err := s.stream.Err(); err != nil {
		s.err = s.client.mapError(err)
	}
	return false
}

func (s *openaiStream) Current() string   { return s.current }
func (s *openaiStream) Usage() TokenUsage { return s.usage }
func (s *openaiStream) Err() error        { return s.err }
func (s *openaiStream) Close() error      { return s.stream.Close() }
