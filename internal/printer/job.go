// Package printer runs print jobs: it expands the declared layers into
// readers, merges them, and draws every request onto one page.
package printer

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/kiesman99/arcprint/internal/reader"
	"github.com/kiesman99/arcprint/pkg/transform"
)

const (
	DefaultDPI = 96
	DefaultSRS = "EPSG:3857"
)

var (
	ErrNoLayers  = errors.New("print job declares no layers")
	ErrBadBBox   = errors.New("bbox must be minX,minY,maxX,maxY")
	ErrBadLatLon = errors.New("geodetic bbox must lie within lon [-180,180] and lat [-90,90]")
)

// Job is a print job file. YAML and JSON are both accepted.
type Job struct {
	SRS string `yaml:"srs" json:"srs"`
	DPI int    `yaml:"dpi" json:"dpi"`
	// Width and Height of the map block, in points.
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
	// Rotation of the map, counter-clockwise, in degrees.
	Rotation float64   `yaml:"rotation" json:"rotation"`
	BBox     []float64 `yaml:"bbox" json:"bbox"`
	// Geodetic marks BBox as lon/lat; it is projected to spherical mercator.
	Geodetic bool                 `yaml:"geodetic" json:"geodetic"`
	Layers   []reader.LayerConfig `yaml:"layers" json:"layers"`
}

// LoadJob reads a job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	job, err := ParseJob(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

// ParseJob decodes a job and fills in defaults.
func ParseJob(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse job: %w", err)
	}
	job.applyDefaults()
	return &job, nil
}

func (j *Job) applyDefaults() {
	if j.DPI == 0 {
		j.DPI = DefaultDPI
	}
	if j.SRS == "" {
		j.SRS = DefaultSRS
	}
}

// Page converts the job geometry for the transformer.
func (j *Job) Page() (transform.Page, error) {
	if len(j.BBox) != 4 {
		return transform.Page{}, fmt.Errorf("%w: got %d values", ErrBadBBox, len(j.BBox))
	}
	bound := orb.Bound{
		Min: orb.Point{j.BBox[0], j.BBox[1]},
		Max: orb.Point{j.BBox[2], j.BBox[3]},
	}
	if j.Geodetic {
		for _, p := range []orb.Point{bound.Min, bound.Max} {
			if !(p.X() >= -180 && p.X() <= 180 && p.Y() >= -90 && p.Y() <= 90) {
				return transform.Page{}, fmt.Errorf("%w: %v", ErrBadLatLon, j.BBox)
			}
		}
		bound = transform.ProjectBound(bound)
	}

	return transform.Page{
		Bound:    bound,
		Width:    j.Width,
		Height:   j.Height,
		DPI:      j.DPI,
		Rotation: j.Rotation * math.Pi / 180,
	}, nil
}

// Readers expands every layer config, in declaration order.
func (j *Job) Readers() ([]*reader.Reader, error) {
	if len(j.Layers) == 0 {
		return nil, ErrNoLayers
	}
	var all []*reader.Reader
	for i, cfg := range j.Layers {
		readers, err := reader.NewReaders(cfg, j.SRS)
		if err != nil {
			return nil, fmt.Errorf("layers[%d]: %w", i, err)
		}
		all = append(all, readers...)
	}
	return all, nil
}
