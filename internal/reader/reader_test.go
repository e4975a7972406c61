package reader

import (
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/arcprint/pkg/transform"
)

func testSource(t *testing.T) Source {
	t.Helper()
	u, err := url.Parse("https://maps.example.com/arcgis/rest/services/Base/MapServer/export")
	require.NoError(t, err)
	return Source{BaseURL: u, SRS: "EPSG:3857", Opacity: 1}
}

func testTransformer(t *testing.T, rotation float64) *transform.Transformer {
	t.Helper()
	tr, err := transform.New(transform.Page{
		Bound:    orb.Bound{Min: orb.Point{10, 20}, Max: orb.Point{110, 120}},
		Width:    384,
		Height:   288,
		DPI:      150,
		Rotation: rotation,
	})
	require.NoError(t, err)
	return tr
}

func TestResolveFormat(t *testing.T) {
	assert.Equal(t, FormatSVG, ResolveFormat("image/svg+xml"))
	assert.Equal(t, FormatPDF, ResolveFormat("application/x-pdf"))

	for _, mime := range []string{"image/png", "image/jpeg", "application/pdf", "IMAGE/SVG+XML", "", "garbage"} {
		assert.Equal(t, FormatBitmap, ResolveFormat(mime), mime)
	}
}

func TestTestMergeAppendsDonorLayers(t *testing.T) {
	src := testSource(t)
	a := New(ProtocolArcGIS, src, "image/png", "roads")
	b := New(ProtocolArcGIS, src, "image/png", "rivers")
	b.layers = append(b.layers, "lakes")

	require.True(t, a.TestMerge(b))
	assert.Equal(t, []string{"roads", "rivers", "lakes"}, a.Layers())
	assert.Equal(t, []string{"rivers", "lakes"}, b.Layers())
	assert.Equal(t, "roads, rivers, lakes", a.String())
}

func TestTestMergeRequiresSameDeclaredFormat(t *testing.T) {
	src := testSource(t)
	a := New(ProtocolArcGIS, src, "image/png", "roads")
	b := New(ProtocolArcGIS, src, "image/jpeg", "rivers")

	require.Equal(t, a.RenderFormat(), b.RenderFormat())
	assert.False(t, a.CanMerge(b))
	assert.False(t, a.TestMerge(b))
	assert.Equal(t, []string{"roads"}, a.Layers())
	assert.Equal(t, []string{"rivers"}, b.Layers())
}

func TestCanMergeChecksSourceAndProtocol(t *testing.T) {
	src := testSource(t)
	a := New(ProtocolArcGIS, src, "image/png", "roads")

	other := testSource(t)
	other.Opacity = 0.5
	assert.False(t, a.CanMerge(New(ProtocolArcGIS, other, "image/png", "x")))

	other = testSource(t)
	other.SRS = "EPSG:4326"
	assert.False(t, a.CanMerge(New(ProtocolArcGIS, other, "image/png", "x")))

	other = testSource(t)
	other.BaseURL, _ = url.Parse("https://other.example.com/MapServer/export")
	assert.False(t, a.CanMerge(New(ProtocolArcGIS, other, "image/png", "x")))

	other = testSource(t)
	other.CustomParams = map[string]string{"token": "abc"}
	assert.False(t, a.CanMerge(New(ProtocolArcGIS, other, "image/png", "x")))

	assert.False(t, a.CanMerge(New(ProtocolWMS, src, "image/png", "x")))
	assert.False(t, a.CanMerge(nil))
	assert.True(t, a.CanMerge(New(ProtocolArcGIS, testSource(t), "image/png", "x")))
}

func TestArcGISParamsKeepsFractionalBBox(t *testing.T) {
	for _, tc := range []struct {
		bound orb.Bound
		want  string
	}{
		{orb.Bound{Min: orb.Point{10.1, 20.3}, Max: orb.Point{110.7, 120.9}}, "10.1 20.3 110.7 120.9"},
		{orb.Bound{Min: orb.Point{-13627361.2, 4544761.7}, Max: orb.Point{-13608040.9, 4556452.3}}, "-13627361.2 4544761.7 -13608040.9 4556452.3"},
	} {
		tr, err := transform.New(transform.Page{
			Bound:  tc.bound,
			Width:  384,
			Height: 288,
			DPI:    150,
		})
		require.NoError(t, err)

		q := url.Values{}
		arcgisParams(New(ProtocolArcGIS, testSource(t), "image/png", "roads"), q, tr, "EPSG:3857", true)
		assert.Equal(t, tc.want, q.Get("BBOX"))
	}
}

func TestArcGISParamsPDF(t *testing.T) {
	tr := testTransformer(t, math.Pi/6)
	r := New(ProtocolArcGIS, testSource(t), "application/x-pdf", "roads")

	q := url.Values{}
	arcgisParams(r, q, tr, "EPSG:3857", true)

	angle, err := strconv.ParseFloat(q.Get("map_angle"), 64)
	require.NoError(t, err)
	assert.InDelta(t, -30.0, angle, 1e-9)
	assert.Equal(t, "pdf", q.Get("FORMAT"))
	assert.Equal(t, "roads", q.Get("LAYERS"))
	assert.Equal(t, "image", q.Get("F"))
	assert.Equal(t, "800 600", q.Get("SIZE"))
	assert.Equal(t, "10.0 20.0 110.0 120.0", q.Get("BBOX"))
	assert.Equal(t, "102113", q.Get("BBOXSR"))
	assert.Equal(t, "102113", q.Get("IMAGESR"))
	assert.Equal(t, "150", q.Get("DPI"))
	assert.NotContains(t, q, "TRANSPARENT")
	assert.Zero(t, tr.Rotation())
}

func TestArcGISParamsSVGUsesVectorSize(t *testing.T) {
	tr := testTransformer(t, 0)
	r := New(ProtocolArcGIS, testSource(t), "image/svg+xml", "roads")

	q := url.Values{}
	arcgisParams(r, q, tr, "", true)

	assert.Equal(t, "svg", q.Get("FORMAT"))
	assert.Equal(t, "384 288", q.Get("SIZE"))
	assert.Equal(t, "-0.0", q.Get("map_angle"))
}

func TestArcGISParamsOverlayIsTransparent(t *testing.T) {
	tr := testTransformer(t, 0)
	r := New(ProtocolArcGIS, testSource(t), "image/png", "roads")
	r.layers = append(r.layers, "rivers")

	q := url.Values{"FORMAT": {"jpg"}, "LAYERS": {"stale", "values"}}
	arcgisParams(r, q, tr, "", false)

	assert.Equal(t, []string{"png"}, q["FORMAT"])
	assert.Equal(t, []string{"roads rivers"}, q["LAYERS"])
	assert.Equal(t, "800 600", q.Get("SIZE"))
	assert.Equal(t, "true", q.Get("TRANSPARENT"))
}

func TestWMSParams(t *testing.T) {
	tr := testTransformer(t, math.Pi/2)
	r := New(ProtocolWMS, testSource(t), "image/png", "roads")
	r.layers = append(r.layers, "rivers")

	q := url.Values{}
	wmsParams(r, q, tr, "EPSG:3857", false)

	assert.Equal(t, "GetMap", q.Get("REQUEST"))
	assert.Equal(t, "roads,rivers", q.Get("LAYERS"))
	assert.Equal(t, "image/png", q.Get("FORMAT"))
	assert.Equal(t, "EPSG:3857", q.Get("SRS"))
	assert.Equal(t, "800", q.Get("WIDTH"))
	assert.Equal(t, "600", q.Get("HEIGHT"))
	assert.Equal(t, "10.0,20.0,110.0,120.0", q.Get("BBOX"))
	assert.Equal(t, "-90.0", q.Get("ANGLE"))
	assert.Equal(t, "true", q.Get("TRANSPARENT"))
	assert.Zero(t, tr.Rotation())
}

func TestBuildURI(t *testing.T) {
	src := testSource(t)
	src.BaseURL.RawQuery = "token=base&F=json"
	src.CustomParams = map[string]string{"token": "custom"}
	r := New(ProtocolArcGIS, src, "image/png", "roads")

	u := r.BuildURI(testTransformer(t, 0), true)
	q := u.Query()

	assert.Equal(t, "maps.example.com", u.Host)
	assert.Equal(t, "/arcgis/rest/services/Base/MapServer/export", u.Path)
	assert.Equal(t, "custom", q.Get("token"))
	assert.Equal(t, "image", q.Get("F"))
	assert.Equal(t, "roads", q.Get("LAYERS"))
	assert.Equal(t, "token=base&F=json", src.BaseURL.RawQuery)
}

func TestFormatDouble(t *testing.T) {
	assert.Equal(t, "10.0", formatDouble(10))
	assert.Equal(t, "-30.5", formatDouble(-30.5))
	assert.Equal(t, "0.1", formatDouble(0.1))
	assert.Equal(t, "10000000.0", formatDouble(1e7))
	assert.Equal(t, "20037508.34", formatDouble(20037508.34))
	assert.Equal(t, "-13608040.9", formatDouble(-13608040.9))
}
