package reader

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/kiesman99/arcprint/pkg/transform"
)

// wmsParams builds a WMS 1.1.1 GetMap query. Rotation is sent as the ANGLE
// vendor parameter understood by MapServer and GeoServer.
func wmsParams(r *Reader, q url.Values, tr *transform.Transformer, srs string, first bool) {
	if rot := tr.TakeRotation(); rot != 0 {
		q.Set("ANGLE", formatDouble(-degrees(rot)))
	}

	w, h := tr.RotatedBitmapW(), tr.RotatedBitmapH()
	if r.RenderFormat() == FormatSVG {
		w, h = tr.RotatedSvgW(), tr.RotatedSvgH()
	}

	b := tr.RotatedBound()
	q.Set("SERVICE", "WMS")
	q.Set("REQUEST", "GetMap")
	q.Set("VERSION", "1.1.1")
	q.Set("STYLES", "")
	q.Set("LAYERS", strings.Join(r.layers, ","))
	q.Set("FORMAT", r.format)
	q.Set("SRS", srs)
	q.Set("WIDTH", strconv.FormatInt(w, 10))
	q.Set("HEIGHT", strconv.FormatInt(h, 10))
	q.Set("BBOX", strings.Join([]string{
		formatDouble(b.Min.X()), formatDouble(b.Min.Y()),
		formatDouble(b.Max.X()), formatDouble(b.Max.Y()),
	}, ","))
	if !first {
		q.Set("TRANSPARENT", "true")
	}
}
