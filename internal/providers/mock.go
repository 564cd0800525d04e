package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const MockClientName = "mock"

// MockResponse scripts one reply from a MockClient.
type MockResponse struct {
	Content string
	Usage   TokenUsage
	Err     error
}

// MockClient is a scriptable ModelClient and EmbeddingClient for tests.
// Responses are consumed in order; the last one repeats once the script is
// exhausted.
type MockClient struct {
	mu        sync.Mutex
	responses []MockResponse
	requests  []*InvokeRequest

	// Embeddings maps an image payload (as string) to its vector. When
	// nil, EmbedImage returns a fixed vector.
	Embeddings map[string][]float64
}

var (
	_ ModelClient     = (*MockClient)(nil)
	_ EmbeddingClient = (*MockClient)(nil)
)

// NewMockClient creates a mock client that replies with the given script.
func NewMockClient(responses ...MockResponse) *MockClient {
	if len(responses) == 0 {
		responses = []MockResponse{{Content: "mock response", Usage: TokenUsage{InputTokens: 10, OutputTokens: 5}}}
	}
	return &MockClient{responses: responses}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

func (c *MockClient) next(req *InvokeRequest) MockResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	i := len(c.requests) - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return c.responses[i]
}

// CallCount returns the number of Invoke and InvokeStream calls made.
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// Requests returns the recorded requests in call order.
func (c *MockClient) Requests() []*InvokeRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*InvokeRequest(nil), c.requests...)
}

// Invoke replies with the next scripted response.
func (c *MockClient) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := c.next(req)
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &InvokeResult{
		Content:   resp.Content,
		Usage:     resp.Usage,
		ModelUsed: MockClientName,
		RequestID: req.RequestID,
	}, nil
}

// InvokeStream replies with the next scripted response split into
// word-level fragments.
func (c *MockClient) InvokeStream(ctx context.Context, req *InvokeRequest) (ModelStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := c.next(req)
	if resp.Err != nil {
		return nil, resp.Err
	}
	words := strings.SplitAfter(resp.Content, " ")
	return &mockStream{fragments: words, usage: resp.Usage}, nil
}

// EmbedImage returns the configured vector for the image.
func (c *MockClient) EmbedImage(ctx context.Context, image []byte) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Embeddings == nil {
		return []float64{1, 0, 0}, nil
	}
	vec, ok := c.Embeddings[string(image)]
	if !ok {
		return nil, fmt.Errorf("no embedding scripted for image of %d bytes", len(image))
	}
	return vec, nil
}

type mockStream struct {
	fragments []string
	pos       int
	usage     TokenUsage
}

func (s *mockStream) Next() bool {
	if s.pos >= len(s.fragments) {
		return false
	}
	s.pos++
	return true
}

func (s *mockStream) Current() string   { return s.fragments[s.pos-1] }
func (s *mockStream) Usage() TokenUsage { return s.usage }
func (s *mockStream) Err() error        { return nil }
func (s *mockStream) Close() error      { return nil }
