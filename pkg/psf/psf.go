// Package psf builds simple point-spread-function kernels. The imagers
// accept any caller-supplied kernel; these are just the usual analytic
// shapes for tests and scripted scenarios.
package psf

import (
	"fmt"
	"math"

	"skysim/pkg/grid"
	"skysim/pkg/source"
)

// Gaussian returns a sum-normalized circular Gaussian kernel with the
// given full width at half maximum, in pixels, on an odd side x side grid.
func Gaussian(fwhm float64, side int) (*grid.Grid, error) {
	if err := checkKernelArgs(fwhm, side); err != nil {
		return nil, err
	}
	sigma := fwhm / (2 * math.Sqrt(2*math.Ln2))
	return fill(side, func(r float64) float64 {
		return math.Exp(-r * r / (2 * sigma * sigma))
	}), nil
}

// Moffat returns a sum-normalized Moffat kernel, the standard model for
// seeing-dominated PSFs. beta controls the wing strength; beta -> inf
// recovers a Gaussian.
func Moffat(fwhm, beta float64, side int) (*grid.Grid, error) {
	if err := checkKernelArgs(fwhm, side); err != nil {
		return nil, err
	}
	if beta <= 0 {
		return nil, fmt.Errorf("psf: beta must be positive, got %g", beta)
	}
	alpha := fwhm / (2 * math.Sqrt(math.Pow(2, 1/beta)-1))
	return fill(side, func(r float64) float64 {
		return math.Pow(1+(r*r)/(alpha*alpha), -beta)
	}), nil
}

func checkKernelArgs(fwhm float64, side int) error {
	if fwhm <= 0 {
		return fmt.Errorf("psf: fwhm must be positive, got %g", fwhm)
	}
	if side < 1 {
		return fmt.Errorf("psf: kernel side must be positive, got %d", side)
	}
	// An even kernel has no center pixel, which shifts the image by half
	// a pixel under convolution.
	return source.CheckOdd("psf kernel side", side)
}

// fill evaluates a radial profile about the kernel center and normalizes
// the result to unit sum.
func fill(side int, profile func(r float64) float64) *grid.Grid {
	g := grid.New(side, side)
	c := side / 2
	sum := 0.0
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			v := profile(math.Hypot(float64(x-c), float64(y-c)))
			g.Set(x, y, v)
			sum += v
		}
	}
	g.Scale(1 / sum)
	return g
}
