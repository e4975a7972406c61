package compose

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kiesman99/arcprint/internal/reader"
	"github.com/kiesman99/arcprint/pkg/transform"
)

// BitmapRenderer draws raster responses onto a Canvas.
type BitmapRenderer struct {
	Canvas *Canvas
}

// Render fetches each uri and draws it at its grid cell. The grid is
// centred on the canvas, so a rotated extent larger than the page is cropped
// evenly on both sides.
func (b *BitmapRenderer) Render(ctx context.Context, _ *transform.Transformer, uris []*url.URL, loader reader.Loader, opacity float64, grid reader.Grid) error {
	cols := max(grid.Columns, 1)
	bounds := b.Canvas.Bounds()
	x0 := (int64(bounds.Dx()) - int64(cols)*grid.TileW) / 2
	y0 := (int64(bounds.Dy()) - int64(max(grid.Rows, 1))*grid.TileH) / 2

	bodies, err := fetchAll(ctx, loader, uris)
	if err != nil {
		return err
	}

	for i, u := range uris {
		img, err := decodeImage(bodies[i])
		if err != nil {
			return fmt.Errorf("decode %s: %w", u.Redacted(), err)
		}

		col, row := int64(i%cols), int64(i/cols)
		xoff := x0 + grid.OffsetX + col*grid.TileW
		yoff := y0 + grid.OffsetY + row*grid.TileH
		b.Canvas.Draw(img, int(xoff), int(yoff), opacity)
	}
	return nil
}

// Document is a vector payload returned by a map server.
type Document struct {
	Format reader.RenderFormat
	URL    string
	Data   []byte
}

// DocumentRenderer keeps SVG and PDF responses as they are; the raster
// canvas cannot draw them.
type DocumentRenderer struct {
	Format    reader.RenderFormat
	Documents []Document
}

func (d *DocumentRenderer) Render(ctx context.Context, _ *transform.Transformer, uris []*url.URL, loader reader.Loader, _ float64, _ reader.Grid) error {
	bodies, err := fetchAll(ctx, loader, uris)
	if err != nil {
		return err
	}
	for i, u := range uris {
		d.Documents = append(d.Documents, Document{Format: d.Format, URL: u.Redacted(), Data: bodies[i]})
	}
	return nil
}

func fetchAll(ctx context.Context, loader reader.Loader, uris []*url.URL) ([][]byte, error) {
	bodies := make([][]byte, len(uris))
	for i, u := range uris {
		data, err := loader.Fetch(ctx, u)
		if err != nil {
			return nil, err
		}
		bodies[i] = data
	}
	return bodies, nil
}
