// Package transform holds the per-page geometry a map request is built from.
package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// pointsPerInch is the PDF user space unit: page sizes are given in points.
const pointsPerInch = 72.0

// Page describes the map block of a printed page.
type Page struct {
	// Bound is the unrotated area to print, in map units of the request SRS.
	Bound orb.Bound
	// Width and Height are the size of the map block on paper, in points.
	Width  float64
	Height float64
	DPI    int
	// Rotation is counter-clockwise, in radians.
	Rotation float64
}

var (
	ErrEmptyBound  = errors.New("page bound is empty")
	ErrInvalidSize = errors.New("page size must be positive")
	ErrInvalidDPI  = errors.New("page dpi must be positive")

	ErrNonFiniteBound = errors.New("page bound is not finite")
)

// Transformer maps a page onto pixel and geographic extents. It is not safe
// for concurrent use: TakeRotation mutates it.
type Transformer struct {
	bound    orb.Bound
	paperW   float64
	paperH   float64
	dpi      int
	rotation float64
}

// New validates the page and returns its transformer.
func New(p Page) (*Transformer, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("%w: %gx%g", ErrInvalidSize, p.Width, p.Height)
	}
	if p.DPI <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDPI, p.DPI)
	}
	for _, v := range []float64{p.Bound.Min.X(), p.Bound.Min.Y(), p.Bound.Max.X(), p.Bound.Max.Y()} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %v", ErrNonFiniteBound, p.Bound)
		}
	}
	if p.Bound.Min.X() >= p.Bound.Max.X() || p.Bound.Min.Y() >= p.Bound.Max.Y() {
		return nil, ErrEmptyBound
	}

	return &Transformer{
		bound:    p.Bound,
		paperW:   p.Width,
		paperH:   p.Height,
		dpi:      p.DPI,
		rotation: p.Rotation,
	}, nil
}

// Clone returns an independent copy, rotation included.
func (t *Transformer) Clone() *Transformer {
	c := *t
	return &c
}

func (t *Transformer) DPI() int { return t.dpi }

func (t *Transformer) Rotation() float64 { return t.rotation }

// TakeRotation returns the rotation and resets it to zero. Callers that encode
// the rotation in the request (a server-side angle parameter) use it so the
// rotated extents read afterwards are the unrotated ones.
func (t *Transformer) TakeRotation() float64 {
	r := t.rotation
	t.rotation = 0
	return r
}

// BitmapW is the unrotated map width in pixels at the page DPI.
func (t *Transformer) BitmapW() int64 { return truncate(t.paperW * float64(t.dpi) / pointsPerInch) }

// BitmapH is the unrotated map height in pixels at the page DPI.
func (t *Transformer) BitmapH() int64 { return truncate(t.paperH * float64(t.dpi) / pointsPerInch) }

func (t *Transformer) RotatedBitmapW() int64 {
	w, _ := t.rotatedSize(t.paperW*float64(t.dpi)/pointsPerInch, t.paperH*float64(t.dpi)/pointsPerInch)
	return truncate(w)
}

func (t *Transformer) RotatedBitmapH() int64 {
	_, h := t.rotatedSize(t.paperW*float64(t.dpi)/pointsPerInch, t.paperH*float64(t.dpi)/pointsPerInch)
	return truncate(h)
}

// RotatedSvgW is the rotated map width in points, the unit vector output is laid out in.
func (t *Transformer) RotatedSvgW() int64 {
	w, _ := t.rotatedSize(t.paperW, t.paperH)
	return truncate(w)
}

func (t *Transformer) RotatedSvgH() int64 {
	_, h := t.rotatedSize(t.paperW, t.paperH)
	return truncate(h)
}

// Bound is the unrotated geographic extent.
func (t *Transformer) Bound() orb.Bound { return t.bound }

// RotatedBound is the envelope of the page bound rotated around its centre.
// Without rotation it is the page bound, bit for bit.
func (t *Transformer) RotatedBound() orb.Bound {
	w := t.bound.Max.X() - t.bound.Min.X()
	h := t.bound.Max.Y() - t.bound.Min.Y()
	rw, rh := t.rotatedSize(w, h)
	dx := (rw - w) / 2
	dy := (rh - h) / 2
	return orb.Bound{
		Min: orb.Point{t.bound.Min.X() - dx, t.bound.Min.Y() - dy},
		Max: orb.Point{t.bound.Max.X() + dx, t.bound.Max.Y() + dy},
	}
}

func (t *Transformer) rotatedSize(w, h float64) (float64, float64) {
	if t.rotation == 0 {
		return w, h
	}
	sin := math.Abs(math.Sin(t.rotation))
	cos := math.Abs(math.Cos(t.rotation))
	return w*cos + h*sin, w*sin + h*cos
}

// truncate drops the fraction, tolerating float noise just below an integer.
func truncate(v float64) int64 {
	return int64(math.Floor(v + 1e-9))
}
