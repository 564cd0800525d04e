package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

const (
	BedrockClientName        = "bedrock"
	bedrockDefaultModel      = "anthropic.claude-3-sonnet-20240229-v1:0"
	bedrockDefaultEmbedModel = "amazon.titan-embed-image-v1"
	bedrockDefaultEmbedDims  = 1024
)

// BedrockConfig holds configuration for the Bedrock client.
type BedrockConfig struct {
	Region     string
	ModelID    string
	EmbedModel string
	EmbedDims  int // Titan output embedding length
	RateLimit  int // Requests per minute, 0 disables local limiting
	Logger     *slog.Logger
}

// BedrockClient implements ModelClient and EmbeddingClient against the
// Amazon Bedrock runtime.
type BedrockClient struct {
	client     *bedrockruntime.Client
	modelID    string
	embedModel string
	embedDims  int
	dialect    Dialect
	limiter    *RateLimiter
	logger     *slog.Logger
}

var (
	_ ModelClient     = (*BedrockClient)(nil)
	_ EmbeddingClient = (*BedrockClient)(nil)
)

// NewBedrockClient creates a Bedrock client using the default AWS
// credential chain.
func NewBedrockClient(ctx context.Context, cfg BedrockConfig) (*BedrockClient, error) {
	if cfg.ModelID == "" {
		cfg.ModelID = bedrockDefaultModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = bedrockDefaultEmbedModel
	}
	if cfg.EmbedDims == 0 {
		cfg.EmbedDims = bedrockDefaultEmbedDims
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var limiter *RateLimiter
	if cfg.RateLimit > 0 {
		limiter = NewRateLimiter(cfg.RateLimit)
	}

	return &BedrockClient{
		client:     bedrockruntime.NewFromConfig(awsCfg),
		modelID:    cfg.ModelID,
		embedModel: cfg.EmbedModel,
		embedDims:  cfg.EmbedDims,
		dialect:    DialectForModel(cfg.ModelID),
		limiter:    limiter,
		logger:     cfg.Logger.With("provider", BedrockClientName),
	}, nil
}

// Name returns the client identifier.
func (c *BedrockClient) Name() string {
	return BedrockClientName
}

// Invoke sends a request and blocks for the full response.
func (c *BedrockClient) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := renderBody(c.dialect, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	result, err := parseBody(c.dialect, out.Body)
	if err != nil {
		return nil, err
	}
	result.ModelUsed = c.modelID
	result.RequestID = req.RequestID

	c.logger.Debug("invoked model",
		"model", c.modelID,
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
		"duration", time.Since(start))
	return result, nil
}

// InvokeStream sends a request and streams the response.
func (c *BedrockClient) InvokeStream(ctx context.Context, req *InvokeRequest) (ModelStream, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := renderBody(c.dialect, req)
	if err != nil {
		return nil, err
	}

	out, err := c.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	return &bedrockStream{stream: out.GetStream(), dialect: c.dialect}, nil
}

// EmbedImage embeds a PNG page image with the Titan multimodal model.
func (c *BedrockClient) EmbedImage(ctx context.Context, image []byte) ([]float64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(map[string]any{
		"inputImage": base64.StdEncoding.EncodeToString(image),
		"embeddingConfig": map[string]any{
			"outputEmbeddingLength": c.embedDims,
		},
	})
	if err != nil {
		return nil, err
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.embedModel),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	var resp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("embedding model %s returned no vector", c.embedModel)
	}
	return resp.Embedding, nil
}

// mapError normalizes throttling responses into RateLimitError so the
// retry layer can tell them apart from hard failures.
func (c *BedrockClient) mapError(err error) error {
	var throttle *brtypes.ThrottlingException
	if errors.As(err, &throttle) {
		if c.limiter != nil {
			c.limiter.Record429(0)
		}
		return &RateLimitError{Message: aws.ToString(throttle.Message), StatusCode: 429}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
			if c.limiter != nil {
				c.limiter.Record429(0)
			}
			return &RateLimitError{Message: apiErr.ErrorMessage(), StatusCode: 429}
		}
	}
	return fmt.Errorf("bedrock invoke: %w", err)
}

// bedrockStream adapts the Bedrock event stream to ModelStream.
type bedrockStream struct {
	stream  *bedrockruntime.InvokeModelWithResponseStreamEventStream
	dialect Dialect
	current string
	usage   TokenUsage
	err     error
	done    bool
}

func (s *bedrockStream) Next() bool {
	if s.done {
		return false
	}
	for event := range s.stream.Events() {
		chunk, ok := event.(*brtypes.ResponseStreamMemberChunk)
		if !ok {
			continue
		}
		text, usage, err := parseStreamChunk(s.dialect, chunk.Value.Bytes)
		if err != nil {
			s.err = err
			s.done = true
			return false
		}
		if usage != nil {
			s.usage = *usage
		}
		if text != "" {
			s.current = text
			return true
		}
	}
	s.done = true
	s.err = s.stream.Err()
	return false
}

func (s *bedrockStream) Current() string   { return s.current }
func (s *bedrockStream) Usage() TokenUsage { return s.usage }
func (s *bedrockStream) Err() error        { return s.err }
func (s *bedrockStream) Close() error      { return s.stream.Close() }
