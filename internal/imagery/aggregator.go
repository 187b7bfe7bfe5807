// Package imagery loads and packages the page images of one logical
// multi-page form set. All pages of a set travel in a single outgoing LLM
// request: the model must reason jointly across pages (a ballot-statistics
// page is only interpretable next to its tally pages), so per-page calls are
// not an option.
package imagery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	_ "image/jpeg"
	_ "image/png"

	// Scanned archives also arrive as TIFF and WebP; register those decoders
	// so format sniffing covers them.
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/internal/paths"
)

// Page is one loaded page image, ready to be embedded in a model request.
type Page struct {
	// Path is the locally resolved path the bytes were read from.
	Path string

	// Data is the raw encoded image.
	Data []byte

	// MIME is the sniffed media type, e.g. "image/jpeg".
	MIME string

	// Width and Height are the decoded pixel dimensions, 0 when the format
	// was not recognized.
	Width, Height int
}

// mimeByFormat maps image.DecodeConfig format names to media types.
var mimeByFormat = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// DefaultLoadTimeout bounds reading all pages of one form set. Dataset
// images may live on network mounts, and a hung read must not stall a
// worker.
const DefaultLoadTimeout = 30 * time.Second

// Aggregator resolves and reads all pages of a form set.
type Aggregator struct {
	resolver    *paths.Resolver
	logger      *slog.Logger
	loadTimeout time.Duration

	// readFile is injected by tests.
	readFile func(string) ([]byte, error)
}

// NewAggregator builds an aggregator using the given path resolver.
// A nil logger falls back to slog.Default.
func NewAggregator(resolver *paths.Resolver, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		resolver:    resolver,
		logger:      logger,
		loadTimeout: DefaultLoadTimeout,
		readFile:    os.ReadFile,
	}
}

// WithLoadTimeout overrides the page-load deadline. Returns the aggregator
// for chaining.
func (a *Aggregator) WithLoadTimeout(d time.Duration) *Aggregator {
	a.loadTimeout = d
	return a
}

// LoadPages loads every resolvable page of the input's form set, in the
// recorded page order. Unresolvable pages are logged and skipped; the model
// still sees the pages that were found. When zero pages resolve the form set
// cannot be extracted at all and a *domain.MissingResourceError carrying the
// full original path list is returned.
//
// Loading is bounded by the aggregator's load timeout on top of whatever
// deadline ctx already carries; a hung read aborts the whole load rather
// than blocking a worker.
func (a *Aggregator) LoadPages(ctx context.Context, input domain.FormInput) ([]Page, error) {
	ctx, cancel := context.WithTimeout(ctx, a.loadTimeout)
	defer cancel()

	pages := make([]Page, 0, len(input.PagePaths))

	for _, original := range input.PagePaths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loading pages for %q: %w", input.FormSetName, err)
		}

		resolved := a.resolver.Resolve(original)
		data, err := a.read(ctx, resolved)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("loading pages for %q: %w", input.FormSetName, ctx.Err())
			}
			a.logger.Warn("page image missing, skipping",
				"form_set", input.FormSetName,
				"original_path", original,
				"resolved_path", resolved,
				"error", err)
			continue
		}
		pages = append(pages, newPage(resolved, data))
	}

	if len(pages) == 0 {
		return nil, &domain.MissingResourceError{
			FormSetName: input.FormSetName,
			Paths:       append([]string(nil), input.PagePaths...),
		}
	}
	return pages, nil
}

// read performs one file read bounded by ctx. os.ReadFile has no
// cancellation of its own, so the read runs in a goroutine and the result is
// abandoned when the deadline expires first.
func (a *Aggregator) read(ctx context.Context, path string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := a.readFile(path)
		ch <- result{data: data, err: err}
	}()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// newPage sniffs format and dimensions from the encoded bytes. Unrecognized
// formats are still packaged: the provider may accept more than we decode.
func newPage(path string, data []byte) Page {
	p := Page{Path: path, Data: data, MIME: "application/octet-stream"}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		if mime, ok := mimeByFormat[format]; ok {
			p.MIME = mime
		}
		p.Width, p.Height = cfg.Width, cfg.Height
	}
	return p
}
