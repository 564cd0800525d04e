package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/lectern/internal/fileconv"
)

func TestDialectForModel(t *testing.T) {
	tests := []struct {
		model string
		want  Dialect
	}{
		{"anthropic.claude-3-sonnet-20240229-v1:0", DialectClaude},
		{"anthropic.claude-3-haiku-20240307-v1:0", DialectClaude},
		{"amazon.nova-pro-v1:0", DialectNova},
		{"us.amazon.nova-lite-v1:0", DialectNova},
		{"something-else", DialectClaude},
	}
	for _, tt := range tests {
		if got := DialectForModel(tt.model); got != tt.want {
			t.Errorf("DialectForModel(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

func TestRenderClaudeBody(t *testing.T) {
	req := &InvokeRequest{
		System: "You are a document analyst.",
		Messages: []Message{
			{Role: RoleUser, Content: "What is the invoice total?"},
			{Role: RoleAssistant, Content: "not json"},
			{Role: RoleUser, Content: "Reply with valid JSON."},
		},
		Pages:       []fileconv.PageImage{{Page: 3, Data: []byte{0x89, 0x50}}},
		MaxTokens:   1024,
		Temperature: 0,
	}
	body, err := renderBody(DialectClaude, req)
	if err != nil {
		t.Fatalf("renderBody: %v", err)
	}

	var decoded struct {
		AnthropicVersion string `json:"anthropic_version"`
		System           string `json:"system"`
		MaxTokens        int    `json:"max_tokens"`
		Messages         []struct {
			Role    string           `json:"role"`
			Content []map[string]any `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if decoded.AnthropicVersion != anthropicVersion {
		t.Errorf("anthropic_version = %q", decoded.AnthropicVersion)
	}
	if decoded.System != req.System {
		t.Errorf("system = %q", decoded.System)
	}
	if len(decoded.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(decoded.Messages))
	}
	// First user turn: page label, image, then the message text.
	first := decoded.Messages[0].Content
	if len(first) != 3 {
		t.Fatalf("first message has %d parts, want 3", len(first))
	}
	if first[0]["text"] != "Page 3:" {
		t.Errorf("page label = %v", first[0]["text"])
	}
	if first[1]["type"] != "image" {
		t.Errorf("second part type = %v", first[1]["type"])
	}
	// Retry turns carry no images.
	if len(decoded.Messages[2].Content) != 1 {
		t.Errorf("retry message has %d parts, want 1", len(decoded.Messages[2].Content))
	}
}

func TestRenderNovaBody(t *testing.T) {
	req := &InvokeRequest{
		System:      "analyst",
		Messages:    []Message{{Role: RoleUser, Content: "summarize"}},
		Pages:       []fileconv.PageImage{{Page: 1, Data: []byte{0x1}}},
		MaxTokens:   256,
		Temperature: 0.2,
	}
	body, err := renderBody(DialectNova, req)
	if err != nil {
		t.Fatalf("renderBody: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if _, ok := decoded["inferenceConfig"]; !ok {
		t.Error("nova body missing inferenceConfig")
	}
	if _, ok := decoded["anthropic_version"]; ok {
		t.Error("nova body should not carry anthropic_version")
	}
	if decoded["schemaVersion"] != "messages-v1" {
		t.Errorf("schemaVersion = %v", decoded["schemaVersion"])
	}
}

func TestRenderNovaBodyVideo(t *testing.T) {
	req := &InvokeRequest{
		System:   "analyst",
		Messages: []Message{{Role: RoleUser, Content: "describe the video"}},
		Video: &VideoSource{
			URI:         "s3://media/clip.mp4",
			Format:      "mp4",
			BucketOwner: "123456789012",
		},
		MaxTokens: 256,
	}
	body, err := renderBody(DialectNova, req)
	if err != nil {
		t.Fatalf("renderBody: %v", err)
	}
	text := string(body)
	for _, want := range []string{`"s3Location"`, `"uri":"s3://media/clip.mp4"`, `"format":"mp4"`, `"bucketOwner":"123456789012"`} {
		if !strings.Contains(text, want) {
			t.Errorf("nova body missing %s: %s", want, text)
		}
	}
}

func TestRenderClaudeBodyRejectsVideo(t *testing.T) {
	req := &InvokeRequest{
		Messages: []Message{{Role: RoleUser, Content: "describe the video"}},
		Video:    &VideoSource{URI: "s3://media/clip.mp4", Format: "mp4"},
	}
	if _, err := renderBody(DialectClaude, req); err == nil {
		t.Fatal("claude body accepted video input")
	}
}

func TestParseClaudeBody(t *testing.T) {
	body := []byte(`{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}],"stop_reason":"end_turn","usage":{"input_tokens":120,"output_tokens":8}}`)
	res, err := parseBody(DialectClaude, body)
	if err != nil {
		t.Fatalf("parseBody: %v", err)
	}
	if res.Content != "hello world" {
		t.Errorf("content = %q", res.Content)
	}
	if res.Usage.InputTokens != 120 || res.Usage.OutputTokens != 8 {
		t.Errorf("usage = %+v", res.Usage)
	}
}

func TestParseNovaBody(t *testing.T) {
	body := []byte(`{"output":{"message":{"content":[{"text":"answer"}]}},"stopReason":"end_turn","usage":{"inputTokens":50,"outputTokens":3}}`)
	res, err := parseBody(DialectNova, body)
	if err != nil {
		t.Fatalf("parseBody: %v", err)
	}
	if res.Content != "answer" {
		t.Errorf("content = %q", res.Content)
	}
	if res.Usage.Total() != 53 {
		t.Errorf("usage total = %d", res.Usage.Total())
	}
}

func TestParseStreamChunks(t *testing.T) {
	text, usage, err := parseStreamChunk(DialectClaude, []byte(`{"type":"content_block_delta","delta":{"type":"text_delta","text":"frag"}}`))
	if err != nil || text != "frag" || usage != nil {
		t.Errorf("claude delta: text=%q usage=%v err=%v", text, usage, err)
	}
	text, usage, err = parseStreamChunk(DialectClaude, []byte(`{"type":"message_stop","amazon-bedrock-invocationMetrics":{"inputTokenCount":11,"outputTokenCount":22}}`))
	if err != nil || text != "" || usage == nil || usage.InputTokens != 11 || usage.OutputTokens != 22 {
		t.Errorf("claude metrics: text=%q usage=%v err=%v", text, usage, err)
	}
	text, usage, err = parseStreamChunk(DialectNova, []byte(`{"contentBlockDelta":{"delta":{"text":"nova frag"}}}`))
	if err != nil || text != "nova frag" || usage != nil {
		t.Errorf("nova delta: text=%q usage=%v err=%v", text, usage, err)
	}
	_, usage, err = parseStreamChunk(DialectNova, []byte(`{"metadata":{"usage":{"inputTokens":5,"outputTokens":6}}}`))
	if err != nil || usage == nil || usage.Total() != 11 {
		t.Errorf("nova metadata: usage=%v err=%v", usage, err)
	}
}

func TestPageImagesBase64(t *testing.T) {
	raw := []byte{0x00, 0x01, 0xFF}
	req := &InvokeRequest{
		Messages: []Message{{Role: RoleUser, Content: "q"}},
		Pages:    []fileconv.PageImage{{Page: 1, Data: raw}},
	}
	body, err := renderBody(DialectClaude, req)
	if err != nil {
		t.Fatalf("renderBody: %v", err)
	}
	if !strings.Contains(string(body), base64.StdEncoding.EncodeToString(raw)) {
		t.Error("image bytes not base64 encoded into body")
	}
}

func TestRateLimitError(t *testing.T) {
	err := fmt.Errorf("call failed: %w", &RateLimitError{Message: "slow down", RetryAfter: 2 * time.Second, StatusCode: 429})
	rle, ok := IsRateLimitError(err)
	if !ok {
		t.Fatal("IsRateLimitError missed wrapped error")
	}
	if rle.RetryAfter != 2*time.Second {
		t.Errorf("RetryAfter = %v", rle.RetryAfter)
	}
	if _, ok := IsRateLimitError(errors.New("plain")); ok {
		t.Error("IsRateLimitError matched plain error")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Errorf("seconds form = %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("empty = %v", got)
	}
	future := time.Now().Add(90 * time.Second).UTC().Format(time.RFC1123)
	if got := parseRetryAfter(future); got < 80*time.Second || got > 90*time.Second {
		t.Errorf("http date form = %v", got)
	}
}

func TestMockClientScript(t *testing.T) {
	ctx := context.Background()
	client := NewMockClient(
		MockResponse{Content: "first", Usage: TokenUsage{InputTokens: 1, OutputTokens: 2}},
		MockResponse{Content: "second"},
	)

	res, err := client.Invoke(ctx, &InvokeRequest{Messages: []Message{{Role: RoleUser, Content: "a"}}})
	if err != nil || res.Content != "first" {
		t.Fatalf("first call: %v, %v", res, err)
	}
	res, _ = client.Invoke(ctx, &InvokeRequest{Messages: []Message{{Role: RoleUser, Content: "b"}}})
	if res.Content != "second" {
		t.Errorf("second call = %q", res.Content)
	}
	// Script exhausted: last response repeats.
	res, _ = client.Invoke(ctx, &InvokeRequest{Messages: []Message{{Role: RoleUser, Content: "c"}}})
	if res.Content != "second" {
		t.Errorf("third call = %q", res.Content)
	}
	if client.CallCount() != 3 {
		t.Errorf("CallCount = %d", client.CallCount())
	}
}

func TestMockClientStream(t *testing.T) {
	client := NewMockClient(MockResponse{Content: "one two three", Usage: TokenUsage{InputTokens: 4, OutputTokens: 3}})
	stream, err := client.InvokeStream(context.Background(), &InvokeRequest{Messages: []Message{{Role: RoleUser, Content: "q"}}})
	if err != nil {
		t.Fatalf("InvokeStream: %v", err)
	}
	var got strings.Builder
	for stream.Next() {
		got.WriteString(stream.Current())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream err: %v", err)
	}
	if got.String() != "one two three" {
		t.Errorf("reassembled = %q", got.String())
	}
	if stream.Usage().OutputTokens != 3 {
		t.Errorf("usage = %+v", stream.Usage())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	mock := NewMockClient()
	r.RegisterModel(mock)
	r.RegisterEmbedder(mock)

	if _, err := r.Model("mock"); err != nil {
		t.Errorf("Model(mock): %v", err)
	}
	if _, err := r.Model("nope"); err == nil {
		t.Error("unknown model should error")
	}
	if _, err := r.Embedder("mock"); err != nil {
		t.Errorf("Embedder(mock): %v", err)
	}
	if got := r.Models(); len(got) != 1 || got[0] != "mock" {
		t.Errorf("Models() = %v", got)
	}
}

func TestRateLimiterWait(t *testing.T) {
	limiter := NewRateLimiter(6000) // 100/sec so the test stays fast
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}

func TestRateLimiterCancel(t *testing.T) {
	limiter := NewRateLimiter(1)
	limiter.Record429(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait after drain = %v, want deadline exceeded", err)
	}
}
