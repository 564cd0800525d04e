// Package window plans sliding page windows for documents too large to send
// to a model in one call.
package window

import (
	"fmt"

	"github.com/jackzampolin/lectern/internal/errs"
)

// MaxOverlap bounds the sliding_window_overlap setting.
const MaxOverlap = 10

// Window is a contiguous, inclusive page range of a document.
type Window struct {
	Start       int  `json:"start"`
	End         int  `json:"end"`
	Size        int  `json:"size"`
	HasPrevious bool `json:"has_previous"`
	HasNext     bool `json:"has_next"`
}

// Pages expands the window into its page numbers.
func (w Window) Pages() []int {
	pages := make([]int, 0, w.Size)
	for p := w.Start; p <= w.End; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Label renders the window as "start-end" for prompts and logs.
func (w Window) Label() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

// Plan splits a document of totalPages into windows of at most capacity
// pages, where consecutive windows share overlap pages. The windows cover
// every page in order and the final window absorbs the remainder.
func Plan(totalPages, capacity, overlap int) ([]Window, error) {
	if totalPages < 1 {
		return nil, &errs.ValidationError{Parameter: "total_pages", Value: totalPages, Message: "document has no pages"}
	}
	if capacity < 1 {
		return nil, &errs.ConfigurationError{Key: "max_pages_per_call", Value: capacity, Message: "must be at least 1"}
	}
	if overlap < 0 || overlap > MaxOverlap {
		return nil, &errs.ConfigurationError{
			Key:     "sliding_window_overlap",
			Value:   overlap,
			Message: fmt.Sprintf("must be between 0 and %d", MaxOverlap),
		}
	}
	if overlap >= capacity {
		return nil, &errs.ConfigurationError{
			Key:     "sliding_window_overlap",
			Value:   overlap,
			Message: "must be smaller than the window capacity",
		}
	}

	if totalPages <= capacity {
		return []Window{{Start: 1, End: totalPages, Size: totalPages}}, nil
	}

	var windows []Window
	start := 1
	for {
		end := start + capacity - 1
		if end > totalPages {
			end = totalPages
		}
		windows = append(windows, Window{
			Start:       start,
			End:         end,
			Size:        end - start + 1,
			HasPrevious: start > 1,
			HasNext:     end < totalPages,
		})
		if end >= totalPages {
			return windows, nil
		}
		start = end - overlap + 1
	}
}
