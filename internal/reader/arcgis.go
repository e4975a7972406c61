package reader

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/kiesman99/arcprint/pkg/transform"
)

// arcgisSR is the ESRI id of spherical mercator; export requests are always
// made in it, whatever the page SRS.
const arcgisSR = "102113"

// arcgisParams builds the query of an ArcGIS Server MapServer/export request.
// The rotation goes to the server as map_angle, so the extents are read
// unrotated.
func arcgisParams(r *Reader, q url.Values, tr *transform.Transformer, _ string, first bool) {
	q.Set("map_angle", formatDouble(-degrees(tr.TakeRotation())))

	var w, h int64
	switch r.RenderFormat() {
	case FormatSVG:
		q.Set("FORMAT", "svg")
		w, h = tr.RotatedSvgW(), tr.RotatedSvgH()
	case FormatPDF:
		q.Set("FORMAT", "pdf")
		w, h = tr.RotatedBitmapW(), tr.RotatedBitmapH()
	default:
		q.Set("FORMAT", "png")
		w, h = tr.RotatedBitmapW(), tr.RotatedBitmapH()
	}

	b := tr.RotatedBound()
	q.Set("LAYERS", strings.Join(r.layers, " "))
	q.Set("F", "image")
	q.Set("BBOXSR", arcgisSR)
	q.Set("IMAGESR", arcgisSR)
	q.Set("SIZE", fmt.Sprintf("%d %d", w, h))
	q.Set("BBOX", strings.Join([]string{
		formatDouble(b.Min.X()), formatDouble(b.Min.Y()),
		formatDouble(b.Max.X()), formatDouble(b.Max.Y()),
	}, " "))
	q.Set("DPI", strconv.Itoa(tr.DPI()))
	if !first {
		q.Set("TRANSPARENT", "true")
	}
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// formatDouble prints the shortest decimal that round-trips, always with a
// fractional part: 10 -> "10.0", -30.5 -> "-30.5". Large magnitudes stay in
// plain decimal, 20037508.34 is never written as 2.003750834E7.
func formatDouble(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
