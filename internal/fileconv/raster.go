package fileconv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"
)

// PopplerRasterizer renders PDF pages to PNG by shelling out to pdftoppm.
// Image documents are passed through without re-encoding.
type PopplerRasterizer struct {
	// Binary is the pdftoppm executable. Defaults to "pdftoppm" on PATH.
	Binary string
	// DPI controls render resolution. Defaults to 150.
	DPI    int
	Logger *slog.Logger
}

var _ Rasterizer = (*PopplerRasterizer)(nil)

func (r *PopplerRasterizer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// ToImages renders the requested pages of doc. Page numbers are 1-based and
// must exist in the document.
func (r *PopplerRasterizer) ToImages(ctx context.Context, doc *Document, pages []int) ([]PageImage, error) {
	for _, p := range pages {
		if p < 1 || p > doc.TotalPages {
			return nil, fmt.Errorf("page %d out of range 1-%d", p, doc.TotalPages)
		}
	}
	if doc.MIME == MIMEPNG || doc.MIME == MIMEJPEG {
		return []PageImage{{Page: 1, Data: doc.Data}}, nil
	}
	if doc.MIME != MIMEPDF {
		return nil, fmt.Errorf("cannot rasterize %s documents", doc.MIME)
	}

	tmp, err := os.MkdirTemp("", "lectern-raster-*")
	if err != nil {
		return nil, fmt.Errorf("creating raster workdir: %w", err)
	}
	defer os.RemoveAll(tmp)

	src := filepath.Join(tmp, "doc.pdf")
	if err := os.WriteFile(src, doc.Data, 0o600); err != nil {
		return nil, fmt.Errorf("writing raster input: %w", err)
	}

	bin := r.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	dpi := r.DPI
	if dpi == 0 {
		dpi = 150
	}

	start := time.Now()
	images := make([]PageImage, 0, len(pages))
	for _, p := range pages {
		out := filepath.Join(tmp, fmt.Sprintf("page-%d", p))
		cmd := exec.CommandContext(ctx, bin,
			"-png", "-r", fmt.Sprint(dpi),
			"-f", fmt.Sprint(p), "-l", fmt.Sprint(p),
			"-singlefile", src, out)
		if output, err := cmd.CombinedOutput(); err != nil {
			return nil, fmt.Errorf("rendering page %d: %w: %s", p, err, output)
		}
		data, err := os.ReadFile(out + ".png")
		if err != nil {
			return nil, fmt.Errorf("reading rendered page %d: %w", p, err)
		}
		images = append(images, PageImage{Page: p, Data: data})
	}

	sort.Slice(images, func(i, j int) bool { return images[i].Page < images[j].Page })
	r.logger().Debug("rasterized pages",
		"path", doc.Path,
		"pages", len(images),
		"duration", time.Since(start))
	return images, nil
}

// StaticRasterizer serves pre-rendered page images from memory. It backs
// tests and callers that already hold page images.
type StaticRasterizer struct {
	Images map[int][]byte
}

var _ Rasterizer = (*StaticRasterizer)(nil)

func (r *StaticRasterizer) ToImages(_ context.Context, _ *Document, pages []int) ([]PageImage, error) {
	images := make([]PageImage, 0, len(pages))
	for _, p := range pages {
		data, ok := r.Images[p]
		if !ok {
			return nil, fmt.Errorf("no image for page %d", p)
		}
		images = append(images, PageImage{Page: p, Data: data})
	}
	return images, nil
}
