package printer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/arcprint/internal/loader"
	"github.com/kiesman99/arcprint/internal/reader"
)

// fakeArcGIS answers export requests with a solid PNG of the requested SIZE.
type fakeArcGIS struct {
	mu      sync.Mutex
	queries []url.Values
}

func (f *fakeArcGIS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	size := strings.Fields(q.Get("SIZE"))
	if len(size) != 2 {
		w.Write([]byte(`{"error":{"code":400,"message":"Invalid size"}}`))
		return
	}
	width, _ := strconv.Atoi(size[0])
	height, _ := strconv.Atoi(size[1])

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	w.Header().Set("Content-Type", "image/png")
	png.Encode(w, img)
}

func testJob(baseURL string) *Job {
	job, _ := ParseJob([]byte(`
dpi: 150
width: 384
height: 288
rotation: 30
bbox: [10, 20, 110, 120]
layers:
  - type: arcgis
    baseURL: ` + baseURL + `
    format: image/png
    layers: [roads, rivers]
  - type: arcgis
    baseURL: ` + baseURL + `
    format: image/jpeg
    layers: [labels]
`))
	return job
}

func TestParseJobDefaults(t *testing.T) {
	job, err := ParseJob([]byte(`{"bbox":[0,0,1,1],"width":10,"height":10,"layers":[]}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultDPI, job.DPI)
	assert.Equal(t, DefaultSRS, job.SRS)

	_, err = job.Readers()
	assert.ErrorIs(t, err, ErrNoLayers)

	job.BBox = []float64{1, 2}
	_, err = job.Page()
	assert.ErrorIs(t, err, ErrBadBBox)
}

func TestURLsMergesCompatibleLayers(t *testing.T) {
	job := testJob("https://maps.example.com/MapServer/export")

	urls, err := New(nil).URLs(job)
	require.NoError(t, err)
	require.Len(t, urls, 2)

	first, err := url.Parse(urls[0])
	require.NoError(t, err)
	second, err := url.Parse(urls[1])
	require.NoError(t, err)

	assert.Equal(t, "roads rivers", first.Query().Get("LAYERS"))
	assert.Equal(t, "", first.Query().Get("TRANSPARENT"))
	assert.Equal(t, "labels", second.Query().Get("LAYERS"))
	assert.Equal(t, "true", second.Query().Get("TRANSPARENT"))

	for _, u := range []*url.URL{first, second} {
		angle, err := strconv.ParseFloat(u.Query().Get("map_angle"), 64)
		require.NoError(t, err)
		assert.InDelta(t, -30, angle, 1e-9)
		assert.Equal(t, "800 600", u.Query().Get("SIZE"))
	}
}

func TestPrintComposesPage(t *testing.T) {
	fake := &fakeArcGIS{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	p := New(loader.New(loader.Options{}))
	result, err := p.Print(context.Background(), testJob(srv.URL+"/MapServer/export"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Requests)
	assert.Equal(t, 800, result.Width)
	assert.Equal(t, 600, result.Height)
	assert.Len(t, fake.queries, 2)

	img, err := png.Decode(bytes.NewReader(result.Image))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, color.RGBAModel.Convert(img.At(400, 300)))
}

func TestPrintCollectsDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	job := testJob(srv.URL)
	job.Layers = job.Layers[:1]
	job.Layers[0].Format = "application/x-pdf"

	result, err := New(loader.New(loader.Options{})).Print(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, reader.FormatPDF, result.Documents[0].Format)
	assert.Equal(t, []byte("%PDF-1.4"), result.Documents[0].Data)
}

// recordingLoader serves a white PNG of the requested SIZE and records how
// it was called.
type recordingLoader struct {
	batches [][]string
	single  int
}

func (l *recordingLoader) Fetch(_ context.Context, u *url.URL) ([]byte, error) {
	l.single++
	return whitePNG(u)
}

func (l *recordingLoader) FetchAll(_ context.Context, uris []*url.URL) ([][]byte, error) {
	var batch []string
	out := make([][]byte, len(uris))
	for i, u := range uris {
		batch = append(batch, u.Query().Get("LAYERS"))
		data, err := whitePNG(u)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	l.batches = append(l.batches, batch)
	return out, nil
}

func whitePNG(u *url.URL) ([]byte, error) {
	size := strings.Fields(u.Query().Get("SIZE"))
	if len(size) != 2 {
		return nil, errors.New("no size")
	}
	width, _ := strconv.Atoi(size[0])
	height, _ := strconv.Atoi(size[1])
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	return buf.Bytes(), err
}

func TestPrintFetchesGroupsInOneBatch(t *testing.T) {
	l := &recordingLoader{}
	result, err := New(l).Print(context.Background(), testJob("https://maps.example.com/MapServer/export"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Requests)
	assert.Equal(t, [][]string{{"roads rivers", "labels"}}, l.batches)
	assert.Zero(t, l.single)
}

func TestPrintBatchErrorKeepsType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("LAYERS") == "labels" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		(&fakeArcGIS{}).ServeHTTP(w, r)
	}))
	defer srv.Close()

	_, err := New(loader.New(loader.Options{Concurrency: 2})).Print(context.Background(), testJob(srv.URL))

	var fe *loader.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestPageRejectsGeodeticOutOfRange(t *testing.T) {
	for _, bbox := range [][]float64{
		{10, 20, 30, 91},
		{-181, 20, 30, 40},
		{10, -90.5, 30, 40},
	} {
		job := testJob("https://maps.example.com")
		job.Geodetic = true
		job.BBox = bbox

		_, err := job.Page()
		assert.ErrorIs(t, err, ErrBadLatLon, "bbox %v", bbox)
	}

	job := testJob("https://maps.example.com")
	job.Geodetic = true
	job.BBox = []float64{-180, -85, 180, 85}
	_, err := job.Page()
	assert.NoError(t, err)
}

func TestPrintSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":500,"message":"Map service is down"}}`))
	}))
	defer srv.Close()

	_, err := New(loader.New(loader.Options{})).Print(context.Background(), testJob(srv.URL))

	var fe *loader.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Message, "Map service is down")
}
