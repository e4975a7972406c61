package reader

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kiesman99/arcprint/pkg/transform"
)

// Loader fetches the body of one request URL.
type Loader interface {
	Fetch(ctx context.Context, u *url.URL) ([]byte, error)
}

// Grid places fetched tiles on the page, in pixels.
type Grid struct {
	Columns int
	Rows    int
	OffsetX int64
	OffsetY int64
	TileW   int64
	TileH   int64
}

// TileRenderer fetches uris (row major over grid) through loader and draws
// them onto the page.
type TileRenderer interface {
	Render(ctx context.Context, tr *transform.Transformer, uris []*url.URL, loader Loader, opacity float64, grid Grid) error
}

// RenderTiles draws r using a single request covering the whole map. Tiling
// is never used: export endpoints render any extent in one image.
func (r *Reader) RenderTiles(ctx context.Context, renderer TileRenderer, tr *transform.Transformer, commonURI *url.URL, loader Loader) error {
	grid := Grid{
		Columns: 1,
		Rows:    1,
		TileW:   tr.RotatedBitmapW(),
		TileH:   tr.RotatedBitmapH(),
	}
	if err := renderer.Render(ctx, tr, []*url.URL{commonURI}, loader, r.source.Opacity, grid); err != nil {
		return fmt.Errorf("render %s: %w", r, err)
	}
	return nil
}
