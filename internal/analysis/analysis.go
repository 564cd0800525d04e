// Package analysis is the caller-facing façade: it turns a document plus a
// question into model calls, carving large documents into overlapping page
// windows and merging the per-window answers back into one response.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/lectern/internal/config"
	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/extract"
	"github.com/jackzampolin/lectern/internal/fileconv"
	"github.com/jackzampolin/lectern/internal/objstore"
	"github.com/jackzampolin/lectern/internal/prompts"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/window"
)

// Mode selects the system prompt family for a request.
type Mode string

const (
	// ModeExtract answers the question as schema-constrained JSON. Without
	// an explicit schema the built-in per-page schema applies.
	ModeExtract Mode = "extract"
	// ModeSummary summarizes the document as {"summary": ...}.
	ModeSummary Mode = "summary"
	// ModeChat answers conversationally in plain text.
	ModeChat Mode = "chat"
)

// Request is one analysis of a document.
type Request struct {
	// Message is the user's question or instruction.
	Message string

	// Pages selects which pages to analyze. Empty or [0] means every
	// page; 0 cannot be combined with other page numbers.
	Pages []int

	// OutputSchema, when set, constrains the model's JSON reply. It is
	// passed through opaquely and only compiled for validation.
	OutputSchema json.RawMessage

	// SlidingWindowOverlap, when > 0, processes the whole document in
	// overlapping windows of MaxPagesPerCall pages and synthesizes the
	// per-window answers.
	SlidingWindowOverlap int

	// History carries the prior turns of a chat conversation. Only valid
	// in chat mode. Feed a Result's History back in to continue the
	// conversation.
	History []providers.Message

	Mode        Mode
	MaxTokens   int
	Temperature float64
}

// Result is the outcome of one analysis. Single-call and windowed
// requests share the envelope; only windowed ones carry Windows.
type Result struct {
	// Output is the final answer. For windowed requests this is the
	// synthesized response over all windows.
	Output json.RawMessage `json:"synthesized_response"`

	// Windows holds the per-window results of a windowed request, in page
	// order. Empty for single-call requests.
	Windows []*extract.WindowResult `json:"window_results,omitempty"`

	// History is the full conversation after a chat request, ending with
	// the assistant's reply. Empty for other modes.
	History []providers.Message `json:"message_history,omitempty"`

	RetriesUsed int                  `json:"retries_used"`
	Usage       providers.TokenUsage `json:"token_usage"`
}

// Analyzer runs document analysis against one model client.
type Analyzer struct {
	Client  providers.ModelClient
	Raster  fileconv.Rasterizer
	Objects objstore.Store
	Prompts *prompts.Store
	Config  *config.Config
	Logger  *slog.Logger

	// now is swappable for tests; prompts embed today's date.
	now func() time.Time
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Analyzer) date() string {
	if a.now != nil {
		return a.now().Format("2006-01-02")
	}
	return time.Now().Format("2006-01-02")
}

func (a *Analyzer) protocol() *extract.Protocol {
	return &extract.Protocol{
		Client:  a.Client,
		Config:  a.Config,
		Prompts: a.Prompts,
		Logger:  a.Logger,
	}
}

// Run analyzes the document at docPath and blocks for the full response.
func (a *Analyzer) Run(ctx context.Context, docPath string, req *Request) (*Result, error) {
	doc, err := a.loadDocument(ctx, docPath)
	if err != nil {
		return nil, err
	}
	if len(req.History) > 0 && mode(req) != ModeChat {
		return nil, &errs.ValidationError{Parameter: "history", Message: "message history is only supported in chat mode"}
	}

	if req.SlidingWindowOverlap > 0 {
		return a.runWindowed(ctx, doc, req)
	}

	pages, err := resolvePages(req.Pages, doc.TotalPages, a.Config.MaxPagesPerCall)
	if err != nil {
		return nil, err
	}
	images, err := a.Raster.ToImages(ctx, doc, pages)
	if err != nil {
		return nil, err
	}
	system, schemaRaw, err := a.systemPrompt(req)
	if err != nil {
		return nil, err
	}

	if mode(req) == ModeChat {
		messages := append(append([]providers.Message(nil), req.History...),
			providers.Message{Role: providers.RoleUser, Content: req.Message})
		res, err := a.protocol().Invoke(ctx, &providers.InvokeRequest{
			System:      system,
			Messages:    messages,
			Pages:       images,
			MaxTokens:   a.maxTokens(req.MaxTokens),
			Temperature: req.Temperature,
		})
		if err != nil {
			return nil, err
		}
		out, _ := json.Marshal(res.Content)
		history := append(messages, providers.Message{Role: providers.RoleAssistant, Content: res.Content})
		return &Result{Output: out, History: history, Usage: res.Usage}, nil
	}

	wr, err := a.protocol().Extract(ctx, &extract.Request{
		System:      system,
		Message:     req.Message,
		Pages:       images,
		Schema:      schemaRaw,
		MaxTokens:   a.maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Output: wr.Parsed, RetriesUsed: wr.RetriesUsed, Usage: wr.Usage}, nil
}

// runWindowed processes the whole document in overlapping windows,
// sequentially in page order, then synthesizes one answer. A failed window
// aborts the request.
func (a *Analyzer) runWindowed(ctx context.Context, doc *fileconv.Document, req *Request) (*Result, error) {
	if mode(req) == ModeChat {
		return nil, &errs.ValidationError{Parameter: "mode", Value: string(ModeChat), Message: "chat does not support sliding windows"}
	}
	if len(req.Pages) > 0 && !(len(req.Pages) == 1 && req.Pages[0] == 0) {
		return nil, &errs.ValidationError{Parameter: "pages", Message: "sliding windows cover the whole document; page selection is not allowed"}
	}

	plan, err := window.Plan(doc.TotalPages, a.Config.MaxPagesPerCall, req.SlidingWindowOverlap)
	if err != nil {
		return nil, err
	}
	system, schemaRaw, err := a.systemPrompt(req)
	if err != nil {
		return nil, err
	}

	proto := a.protocol()
	results := make([]*extract.WindowResult, 0, len(plan))
	var usage providers.TokenUsage
	for i := range plan {
		w := plan[i]
		images, err := a.Raster.ToImages(ctx, doc, w.Pages())
		if err != nil {
			return nil, err
		}
		message, err := a.Prompts.Render(prompts.KeyWindowUser, map[string]any{
			"Start":       w.Start,
			"End":         w.End,
			"TotalPages":  doc.TotalPages,
			"HasPrevious": w.HasPrevious,
			"HasNext":     w.HasNext,
			"Question":    req.Message,
		})
		if err != nil {
			return nil, err
		}

		a.logger().Debug("analyzing window",
			"window", w.Label(),
			"index", i+1,
			"windows", len(plan))
		wr, err := proto.Extract(ctx, &extract.Request{
			System:      system,
			Message:     message,
			Pages:       images,
			Schema:      schemaRaw,
			Window:      &w,
			MaxTokens:   a.maxTokens(req.MaxTokens),
			Temperature: req.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", w.Label(), err)
		}
		usage.Add(wr.Usage)
		results = append(results, wr)
	}

	synth := &extract.Synthesizer{Protocol: proto}
	res, err := synth.Synthesize(ctx, req.Message, schemaRaw, results)
	if err != nil {
		return nil, err
	}
	usage.Add(res.Usage)
	return &Result{
		Output:      res.Response,
		Windows:     results,
		RetriesUsed: res.RetriesUsed,
		Usage:       usage,
	}, nil
}

func (a *Analyzer) loadDocument(ctx context.Context, docPath string) (*fileconv.Document, error) {
	data, err := a.Objects.Read(ctx, docPath)
	if err != nil {
		return nil, err
	}
	return fileconv.NewDocument(docPath, data)
}

func (a *Analyzer) maxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	return a.Config.Defaults.MaxTokens
}

// systemPrompt renders the system prompt for the request's mode and
// returns it with the schema the reply must conform to, if any.
func (a *Analyzer) systemPrompt(req *Request) (string, json.RawMessage, error) {
	switch mode(req) {
	case ModeSummary:
		system, err := a.Prompts.Render(prompts.KeySummary, map[string]any{"Date": a.date()})
		return system, nil, err
	case ModeChat:
		system, err := a.Prompts.Render(prompts.KeyChat, map[string]any{"Date": a.date()})
		return system, nil, err
	default:
		schemaRaw := req.OutputSchema
		key := prompts.KeyExtract
		if len(schemaRaw) == 0 {
			schemaRaw = json.RawMessage(prompts.DefaultSchema())
			key = prompts.KeyDefault
		}
		system, err := a.Prompts.Render(key, map[string]any{
			"Date":   a.date(),
			"Schema": string(schemaRaw),
		})
		return system, schemaRaw, err
	}
}

func mode(req *Request) Mode {
	if req.Mode == "" {
		return ModeExtract
	}
	return req.Mode
}

// resolvePages expands and validates the request's page selection.
func resolvePages(pages []int, totalPages, maxPages int) ([]int, error) {
	if len(pages) == 0 || (len(pages) == 1 && pages[0] == 0) {
		if totalPages > maxPages {
			return nil, &errs.ValidationError{
				Parameter: "pages",
				Value:     totalPages,
				Message:   fmt.Sprintf("document exceeds %d pages per call; set a sliding window overlap", maxPages),
			}
		}
		all := make([]int, totalPages)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}
	for _, p := range pages {
		if p == 0 {
			return nil, &errs.ValidationError{Parameter: "pages", Value: 0, Message: "page 0 selects the whole document and cannot be combined with other pages"}
		}
		if p < 1 || p > totalPages {
			return nil, &errs.ValidationError{Parameter: "pages", Value: p, Message: fmt.Sprintf("page out of range 1-%d", totalPages)}
		}
	}
	if len(pages) > maxPages {
		return nil, &errs.ValidationError{Parameter: "pages", Value: len(pages), Message: fmt.Sprintf("at most %d pages per call", maxPages)}
	}
	return pages, nil
}
