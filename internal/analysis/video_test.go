package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/providers"
)

func TestRunVideo(t *testing.T) {
	ctx := context.Background()
	client := providers.NewMockClient(providers.MockResponse{
		Content: "A product demo with a pricing chart at 01:30.",
		Usage:   providers.TokenUsage{InputTokens: 900, OutputTokens: 50},
	})
	a, _ := testAnalyzer(t, "unused.png", pngBytes(t), 1, client)

	res, err := a.RunVideo(ctx, "s3://media/demo.mp4", &VideoRequest{
		Message:     "Summarize this video",
		BucketOwner: "123456789012",
	})
	if err != nil {
		t.Fatalf("RunVideo: %v", err)
	}

	if res.VideoPath != "s3://media/demo.mp4" {
		t.Errorf("video path = %q", res.VideoPath)
	}
	var text string
	if err := json.Unmarshal(res.Output, &text); err != nil {
		t.Fatalf("output is not a JSON string: %s", res.Output)
	}
	if !strings.Contains(text, "01:30") {
		t.Errorf("text = %q", text)
	}
	if res.Usage.Total() != 950 {
		t.Errorf("usage = %+v", res.Usage)
	}

	sent := client.Requests()[0]
	if sent.Video == nil {
		t.Fatal("request carries no video source")
	}
	if sent.Video.URI != "s3://media/demo.mp4" || sent.Video.Format != "mp4" {
		t.Errorf("video source = %+v", sent.Video)
	}
	if sent.Video.BucketOwner != "123456789012" {
		t.Errorf("bucket owner = %q", sent.Video.BucketOwner)
	}
	if !strings.Contains(sent.System, "video analysis assistant") {
		t.Errorf("system prompt = %q", sent.System)
	}
}

func TestRunVideoRejectsLocalPath(t *testing.T) {
	ctx := context.Background()
	client := providers.NewMockClient()
	a, _ := testAnalyzer(t, "unused.png", pngBytes(t), 1, client)

	_, err := a.RunVideo(ctx, "/tmp/demo.mp4", &VideoRequest{Message: "Summarize"})
	if !errs.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if client.CallCount() != 0 {
		t.Errorf("model was called %d times", client.CallCount())
	}
}

func TestRunVideoStream(t *testing.T) {
	ctx := context.Background()
	client := providers.NewMockClient(providers.MockResponse{
		Content: "The video opens on a title card.",
		Usage:   providers.TokenUsage{InputTokens: 900, OutputTokens: 9},
	})
	a, _ := testAnalyzer(t, "unused.png", pngBytes(t), 1, client)

	stream, err := a.RunVideoStream(ctx, "s3://media/demo.webm", &VideoRequest{Message: "Describe the opening"})
	if err != nil {
		t.Fatalf("RunVideoStream: %v", err)
	}
	defer stream.Close()

	var fragments []string
	for stream.Next() {
		fragments = append(fragments, stream.Current())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	body := strings.Join(fragments, "")
	if body != "The video opens on a title card." {
		t.Errorf("streamed body = %q", body)
	}
	for _, frag := range fragments {
		if frag == StreamStart || frag == StreamEnd {
			t.Errorf("video stream carries sentinel marker %q", frag)
		}
	}
	if stream.Usage().Total() != 909 {
		t.Errorf("usage = %+v", stream.Usage())
	}
	if got := client.Requests()[0].Video.Format; got != "webm" {
		t.Errorf("format = %q, want webm", got)
	}
}

func TestVideoFormat(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"s3://media/clip.mp4", "mp4"},
		{"s3://media/clip.MOV", "mov"},
		{"s3://media/clip.3gp", "three_gp"},
		{"s3://media/clip.mkv", "mkv"},
		{"s3://media/clip", "mp4"},
		{"s3://media/clip.xyz", "mp4"},
	}
	for _, tt := range tests {
		if got := videoFormat(tt.path); got != tt.want {
			t.Errorf("videoFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
