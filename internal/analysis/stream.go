package analysis

import (
	"context"

	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/providers"
)

// Sentinel fragments framing a streamed response. Consumers can rely on
// StreamStart arriving before any content and StreamEnd after the last
// fragment of a stream that finished cleanly.
const (
	StreamStart = "<<stream_start>>"
	StreamEnd   = "<<stream_end>>"
)

// RunStream analyzes the document and streams the response as it is
// generated. The stream yields StreamStart, the content fragments, then
// StreamEnd; Usage is complete once the stream is drained. Sliding windows
// are not supported when streaming.
func (a *Analyzer) RunStream(ctx context.Context, docPath string, req *Request) (providers.ModelStream, error) {
	if req.SlidingWindowOverlap > 0 {
		return nil, &errs.ValidationError{Parameter: "sliding_window_overlap", Value: req.SlidingWindowOverlap, Message: "streaming does not support sliding windows"}
	}
	if len(req.History) > 0 && mode(req) != ModeChat {
		return nil, &errs.ValidationError{Parameter: "history", Message: "message history is only supported in chat mode"}
	}

	doc, err := a.loadDocument(ctx, docPath)
	if err != nil {
		return nil, err
	}
	pages, err := resolvePages(req.Pages, doc.TotalPages, a.Config.MaxPagesPerCall)
	if err != nil {
		return nil, err
	}
	images, err := a.Raster.ToImages(ctx, doc, pages)
	if err != nil {
		return nil, err
	}
	system, _, err := a.systemPrompt(req)
	if err != nil {
		return nil, err
	}

	messages := append(append([]providers.Message(nil), req.History...),
		providers.Message{Role: providers.RoleUser, Content: req.Message})
	inner, err := a.Client.InvokeStream(ctx, &providers.InvokeRequest{
		System:      system,
		Messages:    messages,
		Pages:       images,
		MaxTokens:   a.maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return &framedStream{inner: inner}, nil
}

// framedStream wraps a provider stream with the sentinel fragments.
type framedStream struct {
	inner   providers.ModelStream
	current string

	started bool
	ended   bool
	done    bool
}

var _ providers.ModelStream = (*framedStream)(nil)

func (s *framedStream) Next() bool {
	if s.done {
		return false
	}
	if !s.started {
		s.started = true
		s.current = StreamStart
		return true
	}
	if s.inner.Next() {
		s.current = s.inner.Current()
		return true
	}
	if s.inner.Err() != nil {
		// A broken stream gets no end marker.
		s.done = true
		return false
	}
	if !s.ended {
		s.ended = true
		s.current = StreamEnd
		return true
	}
	s.done = true
	return false
}

func (s *framedStream) Current() string {
	return s.current
}

func (s *framedStream) Usage() providers.TokenUsage {
	return s.inner.Usage()
}

func (s *framedStream) Err() error {
	return s.inner.Err()
}

func (s *framedStream) Close() error {
	return s.inner.Close()
}
