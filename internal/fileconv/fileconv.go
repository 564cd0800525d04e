// Package fileconv handles source documents: format detection, page
// counting, and rasterization of pages into images for model calls.
package fileconv

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/lectern/internal/errs"
)

// Supported document media types.
const (
	MIMEPDF  = "application/pdf"
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMETIFF = "image/tiff"
)

// PageImage is a single rasterized page, PNG encoded.
type PageImage struct {
	Page int
	Data []byte
}

// Rasterizer converts selected pages of a document into page images.
type Rasterizer interface {
	ToImages(ctx context.Context, doc *Document, pages []int) ([]PageImage, error)
}

// Document is a loaded source file with its detected format and page count.
type Document struct {
	Path       string
	Data       []byte
	MIME       string
	TotalPages int
}

// NewDocument detects the format of data and counts its pages.
func NewDocument(path string, data []byte) (*Document, error) {
	mime := DetectMIME(data)
	switch mime {
	case MIMEPDF, MIMEPNG, MIMEJPEG, MIMETIFF:
	default:
		return nil, &errs.FileFormatError{Path: path, Detected: mime}
	}
	pages, err := PageCount(data, mime)
	if err != nil {
		return nil, err
	}
	return &Document{Path: path, Data: data, MIME: mime, TotalPages: pages}, nil
}

// DetectMIME sniffs the media type of a document from its leading bytes.
func DetectMIME(data []byte) string {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return MIMEPDF
	}
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return MIMETIFF
	}
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime
}

// PageCount returns the number of pages in a document. PNG and JPEG are
// single-page by definition; TIFF pages are counted by walking the IFD
// chain since image decoders only expose the first frame.
func PageCount(data []byte, mime string) (int, error) {
	switch mime {
	case MIMEPNG, MIMEJPEG:
		return 1, nil
	case MIMEPDF:
		n, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			return 0, fmt.Errorf("counting pdf pages: %w", err)
		}
		return n, nil
	case MIMETIFF:
		return tiffFrameCount(data)
	default:
		return 0, &errs.FileFormatError{Detected: mime}
	}
}
