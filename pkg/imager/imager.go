// Package imager turns artificial sources into mock observations. The
// IdealImager produces noise-free reference images; the ArtImager runs
// the full instrument chain: magnitudes to counts, rasterization, smooth
// model injection, PSF blur, sky, shot and read noise, calibration.
//
// Stars are injected in the center of pixels even if subpixel
// coordinates are given. If you need subpixel precision, create
// upsampled mock images and downsample to the desired resolution.
package imager

import (
	"fmt"
	"math"

	"skysim/pkg/grid"
	"skysim/pkg/source"
)

// ApplySeeing convolves a mock image with a PSF kernel. A nil psf
// returns the input image unchanged. The kernel is normalized before
// convolving; only the fill and wrap boundary policies are supported on
// the FFT path.
func ApplySeeing(img *grid.Grid, psf *grid.Grid, boundary grid.Boundary) (*grid.Grid, error) {
	if psf == nil {
		return img, nil
	}
	return grid.Convolve(img, psf, boundary)
}

func checkSource(src source.Source) error {
	if src == nil {
		return fmt.Errorf("nil source")
	}
	x, y := src.XY()
	if len(x) != len(y) {
		return fmt.Errorf("source x/y lengths differ: %d vs %d", len(x), len(y))
	}
	return nil
}

// smoothModelOf returns the smooth-model capability of a source, if it
// carries one.
func smoothModelOf(src source.Source) (source.SmoothSource, bool) {
	ss, ok := src.(source.SmoothSource)
	if !ok || ss.SmoothModel() == nil {
		return nil, false
	}
	return ss, true
}

// addProfile evaluates a profile over the grid (row index = y, column
// index = x) and adds it elementwise.
func addProfile(img *grid.Grid, p source.Profile) {
	for y := 0; y < img.Dy(); y++ {
		for x := 0; x < img.Dx(); x++ {
			img.Set(x, y, img.Get(x, y)+p.Eval(float64(x), float64(y)))
		}
	}
}

// integratedMag is the total magnitude of a source's smooth component in
// a bandpass, required for amplitude inversion.
func integratedMag(ss source.SmoothSource, bandpass string) (float64, error) {
	mag, ok := ss.IntegratedMag(bandpass)
	if !ok {
		return 0, fmt.Errorf("smooth component has no integrated magnitude in '%s'", bandpass)
	}
	return mag, nil
}

// IdealOptions tune an ideal observation. Zero-value fields get the
// defaults from DefaultIdealOptions.
type IdealOptions struct {
	PSF      *grid.Grid
	Boundary grid.Boundary
	Zpt      float64
	Mask     []bool
}

func DefaultIdealOptions() IdealOptions {
	return IdealOptions{Boundary: grid.BoundaryWrap, Zpt: 27}
}

// An IdealImager makes noise-free mock images: star fluxes at the zero
// point, the smooth model, PSF blur, and nothing else.
type IdealImager struct{}

// Observe makes an ideal observation of the source in one bandpass.
func (im IdealImager) Observe(src source.Source, bandpass string, opts IdealOptions) (*IdealObservation, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}
	mags, err := src.Magnitudes(bandpass)
	if err != nil {
		return nil, err
	}

	// Star weights are fluxes at the output zero point.
	flux := make([]float64, len(mags))
	for i, m := range mags {
		flux[i] = math.Pow(10, 0.4*(opts.Zpt-m))
	}

	x, y := src.XY()
	img, err := grid.InjectPoints(x, y, flux, src.XYDim(), opts.Mask)
	if err != nil {
		return nil, err
	}
	if img, err = im.injectSmoothModel(img, src, bandpass, opts.Zpt); err != nil {
		return nil, err
	}
	if img, err = ApplySeeing(img, opts.PSF, opts.Boundary); err != nil {
		return nil, err
	}
	return &IdealObservation{Image: img, Zpt: opts.Zpt, Bandpass: bandpass}, nil
}

// injectSmoothModel adds the source's smooth component, if any, with its
// amplitude expressed in flux units at the zero point.
func (im IdealImager) injectSmoothModel(img *grid.Grid, src source.Source, bandpass string, zpt float64) (*grid.Grid, error) {
	ss, ok := smoothModelOf(src)
	if !ok {
		return img, nil
	}
	mag, err := integratedMag(ss, bandpass)
	if err != nil {
		return nil, err
	}
	_, amp, name := ss.MagToImageAmplitude(mag, zpt)
	model := ss.SmoothModel()
	if err := model.SetParameter(name, amp); err != nil {
		return nil, err
	}
	addProfile(img, model)
	return img, nil
}
