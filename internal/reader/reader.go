// Package reader turns declared map layers into HTTP requests against map
// server export endpoints, merging compatible layers into one request.
package reader

import (
	"maps"
	"net/url"
	"strings"

	"github.com/kiesman99/arcprint/pkg/transform"
)

// Source is what every reader shares regardless of protocol: where the
// server is and how its result is drawn.
type Source struct {
	BaseURL      *url.URL
	SRS          string
	Opacity      float64
	CustomParams map[string]string
}

// CanMerge reports whether two sources can be served by the same request.
func (s Source) CanMerge(o Source) bool {
	if s.BaseURL == nil || o.BaseURL == nil {
		return false
	}
	return s.BaseURL.String() == o.BaseURL.String() &&
		s.SRS == o.SRS &&
		s.Opacity == o.Opacity &&
		maps.Equal(s.CustomParams, o.CustomParams)
}

// Reader is one request against a map server. It starts with a single layer
// and grows as compatible readers are merged into it.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	protocol Protocol
	source   Source
	format   string
	layers   []string
}

// New returns a reader for a single layer. format is the MIME type the
// server is asked for and never changes afterwards.
func New(p Protocol, src Source, format, layer string) *Reader {
	return &Reader{
		protocol: p,
		source:   src,
		format:   format,
		layers:   []string{layer},
	}
}

func (r *Reader) Protocol() Protocol { return r.protocol }

func (r *Reader) Source() Source { return r.source }

// Format is the declared MIME type.
func (r *Reader) Format() string { return r.format }

// RenderFormat is the declared MIME type resolved for the compositor.
func (r *Reader) RenderFormat() RenderFormat { return ResolveFormat(r.format) }

// Layers returns a copy of the layer names in drawing order.
func (r *Reader) Layers() []string {
	return append([]string(nil), r.layers...)
}

// CanMerge reports whether other can be fetched in the same request as r.
// Formats must be the same string: two MIME types resolving to the same
// RenderFormat still ask the server for different encodings.
func (r *Reader) CanMerge(other *Reader) bool {
	if other == nil || !r.source.CanMerge(other.source) {
		return false
	}
	return r.protocol == other.protocol && r.format == other.format
}

// TestMerge appends the layers of other to r if the two can be merged. other
// is left untouched but must not be rendered once merged. Merging the same
// reader twice duplicates its layers.
func (r *Reader) TestMerge(other *Reader) bool {
	if !r.CanMerge(other) {
		return false
	}
	r.layers = append(r.layers, other.layers...)
	return true
}

// BuildURI returns the request URL for r: the base URL's own query, then the
// custom parameters, then the protocol parameters, later ones winning.
// It consumes the rotation of tr, see transform.Transformer.TakeRotation.
func (r *Reader) BuildURI(tr *transform.Transformer, first bool) *url.URL {
	u := *r.source.BaseURL
	q := u.Query()
	for k, v := range r.source.CustomParams {
		q.Set(k, v)
	}
	if fn := r.protocol.params(); fn != nil {
		fn(r, q, tr, r.source.SRS, first)
	}
	u.RawQuery = q.Encode()
	return &u
}

func (r *Reader) String() string {
	return strings.Join(r.layers, ", ")
}
