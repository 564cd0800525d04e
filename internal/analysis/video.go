package analysis

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/prompts"
	"github.com/jackzampolin/lectern/internal/providers"
)

// VideoRequest is one analysis of a video. The video stays in S3 and the
// model reads it by reference, so only s3:// paths are accepted. Video
// input requires a Nova model.
type VideoRequest struct {
	// Message is the user's question about the video.
	Message string

	// BucketOwner is the AWS account ID owning the bucket, required for
	// cross-account S3 access.
	BucketOwner string

	MaxTokens   int
	Temperature float64
}

// VideoResult is the outcome of one video analysis.
type VideoResult struct {
	VideoPath string               `json:"video_path"`
	Output    json.RawMessage      `json:"output"`
	Usage     providers.TokenUsage `json:"token_usage"`
}

// RunVideo analyzes the video at videoPath and blocks for the full
// response.
func (a *Analyzer) RunVideo(ctx context.Context, videoPath string, req *VideoRequest) (*VideoResult, error) {
	source, system, err := a.videoRequest(videoPath, req)
	if err != nil {
		return nil, err
	}

	res, err := a.protocol().Invoke(ctx, &providers.InvokeRequest{
		System:      system,
		Messages:    []providers.Message{{Role: providers.RoleUser, Content: req.Message}},
		Video:       source,
		MaxTokens:   a.maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	out, _ := json.Marshal(res.Content)
	return &VideoResult{VideoPath: videoPath, Output: out, Usage: res.Usage}, nil
}

// RunVideoStream analyzes the video and streams the response as it is
// generated. Unlike document streams, video streams carry no sentinel
// markers.
func (a *Analyzer) RunVideoStream(ctx context.Context, videoPath string, req *VideoRequest) (providers.ModelStream, error) {
	source, system, err := a.videoRequest(videoPath, req)
	if err != nil {
		return nil, err
	}

	return a.Client.InvokeStream(ctx, &providers.InvokeRequest{
		System:      system,
		Messages:    []providers.Message{{Role: providers.RoleUser, Content: req.Message}},
		Video:       source,
		MaxTokens:   a.maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
	})
}

func (a *Analyzer) videoRequest(videoPath string, req *VideoRequest) (*providers.VideoSource, string, error) {
	if !strings.HasPrefix(videoPath, "s3://") {
		return nil, "", &errs.ValidationError{
			Parameter: "video",
			Value:     videoPath,
			Message:   "video analysis requires an s3:// path; upload the video to S3 first",
		}
	}
	system, err := a.Prompts.Render(prompts.KeyVideo, nil)
	if err != nil {
		return nil, "", err
	}
	return &providers.VideoSource{
		URI:         videoPath,
		Format:      videoFormat(videoPath),
		BucketOwner: req.BucketOwner,
	}, system, nil
}

// videoFormat derives the container format from the file extension,
// falling back to mp4.
func videoFormat(videoPath string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(videoPath)), ".")
	switch ext {
	case "mov", "mkv", "webm", "flv", "mpeg", "mpg", "wmv":
		return ext
	case "3gp":
		return "three_gp"
	default:
		return "mp4"
	}
}
