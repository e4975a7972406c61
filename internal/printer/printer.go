package printer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kiesman99/arcprint/internal/compose"
	"github.com/kiesman99/arcprint/internal/logging"
	"github.com/kiesman99/arcprint/internal/reader"
	"github.com/kiesman99/arcprint/pkg/transform"
)

// Request is one merged reader and the URL it will fetch.
type Request struct {
	Reader      *reader.Reader
	URL         *url.URL
	Transformer *transform.Transformer
}

// Result contains the printed page
type Result struct {
	Image     []byte
	Width     int
	Height    int
	Requests  int
	Documents []compose.Document
}

// Printer performs print jobs
type Printer struct {
	loader reader.Loader
}

// New creates a printer fetching through loader.
func New(loader reader.Loader) *Printer {
	return &Printer{loader: loader}
}

// Plan expands and merges the job layers and builds their request URLs,
// bottom layer first. Every request gets its own copy of the page
// transformer since building the URL consumes the rotation.
func (p *Printer) Plan(job *Job) ([]Request, *transform.Transformer, error) {
	page, err := job.Page()
	if err != nil {
		return nil, nil, err
	}
	tr, err := transform.New(page)
	if err != nil {
		return nil, nil, err
	}

	readers, err := job.Readers()
	if err != nil {
		return nil, nil, err
	}
	groups := reader.Merge(readers)

	requests := make([]Request, 0, len(groups))
	for i, g := range groups {
		t := tr.Clone()
		requests = append(requests, Request{
			Reader:      g,
			URL:         g.BuildURI(t, i == 0),
			Transformer: t,
		})
	}

	logging.Debug("planned print job", "layers", len(readers), "requests", len(requests))
	return requests, tr, nil
}

// URLs returns the request URLs of job without fetching them.
func (p *Printer) URLs(job *Job) ([]string, error) {
	requests, _, err := p.Plan(job)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(requests))
	for i, r := range requests {
		urls[i] = r.URL.String()
	}
	return urls, nil
}

// batchLoader fetches several URLs concurrently, keeping their order.
type batchLoader interface {
	FetchAll(ctx context.Context, uris []*url.URL) ([][]byte, error)
}

// prefetched serves bodies fetched ahead of drawing. Anything else goes to
// next.
type prefetched struct {
	bodies map[string][]byte
	next   reader.Loader
}

func (f prefetched) Fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	if data, ok := f.bodies[u.String()]; ok {
		return data, nil
	}
	return f.next.Fetch(ctx, u)
}

// prefetch downloads every request at once when the loader can batch.
// Drawing still happens group by group, bottom layer first.
func (p *Printer) prefetch(ctx context.Context, requests []Request) (reader.Loader, error) {
	batch, ok := p.loader.(batchLoader)
	if !ok || len(requests) == 0 {
		return p.loader, nil
	}

	uris := make([]*url.URL, len(requests))
	for i, req := range requests {
		uris[i] = req.URL
	}
	bodies, err := batch.FetchAll(ctx, uris)
	if err != nil {
		return nil, err
	}

	f := prefetched{bodies: make(map[string][]byte, len(uris)), next: p.loader}
	for i, u := range uris {
		f.bodies[u.String()] = bodies[i]
	}
	return f, nil
}

// Print fetches every request of job and draws the bitmap ones onto the
// page. Vector responses are returned untouched in Result.Documents.
func (p *Printer) Print(ctx context.Context, job *Job) (*Result, error) {
	requests, tr, err := p.Plan(job)
	if err != nil {
		return nil, err
	}

	loader, err := p.prefetch(ctx, requests)
	if err != nil {
		logging.Error("map requests failed", "requests", len(requests), "err", err)
		return nil, err
	}

	canvas := compose.NewCanvas(int(tr.BitmapW()), int(tr.BitmapH()))
	bitmap := &compose.BitmapRenderer{Canvas: canvas}
	var documents []compose.Document

	for _, req := range requests {
		var renderer reader.TileRenderer = bitmap
		var docs *compose.DocumentRenderer

		switch f := req.Reader.RenderFormat(); f {
		case reader.FormatSVG, reader.FormatPDF:
			docs = &compose.DocumentRenderer{Format: f}
			renderer = docs
		}

		if err := req.Reader.RenderTiles(ctx, renderer, req.Transformer, req.URL, loader); err != nil {
			logging.Error("map request failed", "layers", req.Reader.String(), "err", err)
			return nil, err
		}
		if docs != nil {
			documents = append(documents, docs.Documents...)
		}
	}

	image, err := canvas.PNG()
	if err != nil {
		return nil, fmt.Errorf("failed to encode output image: %w", err)
	}

	logging.Info("printed page", "requests", len(requests), "width", canvas.Bounds().Dx(), "height", canvas.Bounds().Dy())

	return &Result{
		Image:     image,
		Width:     canvas.Bounds().Dx(),
		Height:    canvas.Bounds().Dy(),
		Requests:  len(requests),
		Documents: documents,
	}, nil
}
