// Package source defines what the imagers need from an artificial
// source: star positions and magnitudes on a pixel grid, plus an
// optional smooth (diffuse light) component. Population synthesis
// itself lives elsewhere; this package only carries its outputs.
package source

import (
	"fmt"

	"skysim/pkg/sersic"
	"skysim/pkg/units"
)

// A Profile is an analytic 2-D light profile with settable parameters,
// evaluated in pixel coordinates.
type Profile interface {
	Eval(x, y float64) float64
	SetParameter(name string, value float64) error
}

// A Source supplies the discrete stars of a mock observation.
type Source interface {
	// XY returns the star pixel coordinates. Sub-pixel positions are
	// truncated to pixel centers by rasterization.
	XY() (x, y []float64)
	// Magnitudes returns the per-star magnitudes in a bandpass.
	Magnitudes(bandpass string) ([]float64, error)
	// XYDim is the output grid shape (nx, ny), both odd.
	XYDim() [2]int
	// PixelScale is the angle subtended by one pixel.
	PixelScale() units.Quantity
}

// A SmoothSource additionally carries a smooth model. Sources without a
// smooth component simply do not implement this, or return a nil model;
// the imagers check the capability explicitly.
type SmoothSource interface {
	Source
	// SmoothModel returns the profile to inject, or nil.
	SmoothModel() Profile
	// IntegratedMag is the total integrated magnitude of the smooth
	// component in a bandpass, when known.
	IntegratedMag(bandpass string) (float64, bool)
	// MagToImageAmplitude inverts a total magnitude into the profile's
	// amplitude parameter at a zero point, returning the surface
	// brightness at the effective radius, the amplitude, and the name of
	// the parameter to set.
	MagToImageAmplitude(mag, zpt float64) (muE, amp float64, paramName string)
}

// CheckOdd errors if any of the values is even.
func CheckOdd(name string, vals ...int) error {
	for _, v := range vals {
		if v%2 == 0 {
			return fmt.Errorf("%s must be odd, got %d", name, v)
		}
	}
	return nil
}

// CheckXYDim validates a grid shape before anything is allocated with it.
func CheckXYDim(dim [2]int, forceOdd bool) error {
	if dim[0] < 1 || dim[1] < 1 {
		return fmt.Errorf("xy dimensions must be positive, got %v", dim)
	}
	if forceOdd {
		return CheckOdd("xy dimensions", dim[0], dim[1])
	}
	return nil
}

// A SmoothComponent describes the diffuse light of a Field: a Sersic
// profile plus the sky-frame parameters needed to invert a total
// magnitude into the profile amplitude.
type SmoothComponent struct {
	Profile   *sersic.Sersic2D
	REff      units.Quantity     // effective radius on the sky
	TotalMags map[string]float64 // integrated magnitude per bandpass
}

// A Field is a concrete in-memory Source: a list of stars, and
// optionally a smooth component, on a fixed grid.
type Field struct {
	x, y       []float64
	mags       map[string][]float64
	xyDim      [2]int
	pixelScale units.Quantity
	smooth     *SmoothComponent
}

// NewField builds a Field, validating the grid shape (odd dimensions,
// so smooth models have a center pixel) and array lengths.
func NewField(x, y []float64, mags map[string][]float64, xyDim [2]int,
	pixelScale units.Quantity, smooth *SmoothComponent) (*Field, error) {

	if err := CheckXYDim(xyDim, true); err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("x and y lengths differ: %d vs %d", len(x), len(y))
	}
	for band, m := range mags {
		if len(m) != len(x) {
			return nil, fmt.Errorf("band '%s' has %d magnitudes for %d stars", band, len(m), len(x))
		}
	}
	if smooth != nil && smooth.Profile == nil {
		return nil, fmt.Errorf("smooth component given without a profile")
	}
	return &Field{x: x, y: y, mags: mags, xyDim: xyDim, pixelScale: pixelScale, smooth: smooth}, nil
}

func (f *Field) XY() (x, y []float64)       { return f.x, f.y }
func (f *Field) XYDim() [2]int              { return f.xyDim }
func (f *Field) PixelScale() units.Quantity { return f.pixelScale }
func (f *Field) NumStars() int              { return len(f.x) }

func (f *Field) Magnitudes(bandpass string) ([]float64, error) {
	m, ok := f.mags[bandpass]
	if !ok {
		return nil, fmt.Errorf("source has no magnitudes in bandpass '%s'", bandpass)
	}
	return m, nil
}

func (f *Field) SmoothModel() Profile {
	if f.smooth == nil {
		return nil
	}
	return f.smooth.Profile
}

func (f *Field) IntegratedMag(bandpass string) (float64, bool) {
	if f.smooth == nil {
		return 0, false
	}
	m, ok := f.smooth.TotalMags[bandpass]
	return m, ok
}

func (f *Field) MagToImageAmplitude(mag, zpt float64) (float64, float64, string) {
	return sersic.MagToImageAmplitude(mag, f.smooth.REff, f.smooth.Profile.N,
		f.smooth.Profile.Ellip, zpt, f.pixelScale)
}
