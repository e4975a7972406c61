package reader

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrNoLayers   = errors.New("layer config has no layers")
	ErrNoBaseURL  = errors.New("layer config has no baseURL")
	ErrNoFormat   = errors.New("layer config has no format")
	ErrBadOpacity = errors.New("opacity must be between 0 and 1")
)

// LayerConfig is one entry of the layers list of a print job.
type LayerConfig struct {
	Type         string            `yaml:"type" json:"type"`
	BaseURL      string            `yaml:"baseURL" json:"baseURL"`
	Format       string            `yaml:"format" json:"format"`
	Layers       []string          `yaml:"layers" json:"layers"`
	Opacity      *float64          `yaml:"opacity,omitempty" json:"opacity,omitempty"`
	CustomParams map[string]string `yaml:"customParams,omitempty" json:"customParams,omitempty"`
}

// NewReaders expands a layer config into one reader per layer name.
func NewReaders(cfg LayerConfig, srs string) ([]*Reader, error) {
	p, err := ParseProtocol(cfg.Type)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Format == "" {
		return nil, ErrNoFormat
	}
	if len(cfg.Layers) == 0 {
		return nil, ErrNoLayers
	}

	opacity := 1.0
	if cfg.Opacity != nil {
		opacity = *cfg.Opacity
	}
	if opacity < 0 || opacity > 1 {
		return nil, fmt.Errorf("%w: %g", ErrBadOpacity, opacity)
	}

	src := Source{
		BaseURL:      base,
		SRS:          srs,
		Opacity:      opacity,
		CustomParams: cfg.CustomParams,
	}

	readers := make([]*Reader, 0, len(cfg.Layers))
	for _, layer := range cfg.Layers {
		readers = append(readers, New(p, src, cfg.Format, layer))
	}
	return readers, nil
}

// Merge folds each reader into the one before it when they are compatible.
// Only neighbours merge, so the drawing order is kept. The returned readers
// are the survivors; readers merged away must not be used again.
//
// Merge mutates its input and must not run concurrently with anything
// reading those readers.
func Merge(readers []*Reader) []*Reader {
	out := make([]*Reader, 0, len(readers))
	for _, r := range readers {
		if n := len(out); n > 0 && out[n-1].TestMerge(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}
