// Package sersic implements the Sersic light profile: evaluation on a
// pixel grid and the closed-form inversion from a total magnitude to the
// profile's amplitude parameter.
package sersic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"

	"skysim/pkg/units"
)

// AmplitudeParam is the name of the settable amplitude parameter on the
// Sersic2D profile.
const AmplitudeParam = "amplitude"

// BN is the Sersic normalization constant b_n, defined so that the
// effective radius encloses half the total flux: P(2n, b_n) = 1/2.
func BN(n float64) float64 {
	return mathext.GammaIncRegInv(2*n, 0.5)
}

// FN is the total-flux integral factor f_n = Gamma(2n) n e^{b_n} / b_n^{2n}.
func FN(n float64) float64 {
	bn := BN(n)
	return math.Gamma(2*n) * n * math.Exp(bn) / math.Pow(bn, 2*n)
}

// MagToImageAmplitude converts the total magnitude of a Sersic component
// into the amplitude parameter in image flux units. rEff is the
// (uncircularized) effective radius on the sky; pixelScale is the angle
// per pixel. Returns the surface brightness at the effective radius
// (mag/arcsec^2), the amplitude, and the parameter name to set.
//
// Degenerate inputs (n <= 0, ellip >= 1, rEff <= 0) are the caller's
// responsibility; they are not validated here.
func MagToImageAmplitude(mTot float64, rEff units.Quantity, n, ellip, zpt float64,
	pixelScale units.Quantity) (muE, amplitude float64, paramName string) {

	rCirc := rEff.Scale(math.Sqrt(1 - ellip))
	area := math.Pi * math.Pow(rCirc.MustIn(units.Arcsec(1)), 2)
	muE = mTot + 2.5*math.Log10(2*area) + 2.5*math.Log10(FN(n))
	scale := pixelScale.MustIn(units.Arcsec(1))
	amplitude = math.Pow(10, 0.4*(zpt-muE)) * scale * scale
	return muE, amplitude, AmplitudeParam
}

// Sersic2D is a two-dimensional Sersic surface-brightness profile, the
// smooth model injected under the point sources. Radii are in pixels,
// angles in radians; evaluation follows the standard elliptical form.
type Sersic2D struct {
	Amplitude float64 // surface brightness at REff, image flux units
	X0, Y0    float64 // center, pixels
	REff      float64 // effective (half-light) radius, pixels
	N         float64 // Sersic index
	Ellip     float64 // ellipticity, 0 = circular
	Theta     float64 // position angle, radians, CCW from +x
}

// Eval returns the profile surface brightness at pixel (x, y).
func (s *Sersic2D) Eval(x, y float64) float64 {
	bn := BN(s.N)
	cosT, sinT := math.Cos(s.Theta), math.Sin(s.Theta)
	a := s.REff
	b := (1 - s.Ellip) * s.REff
	xMaj := (x-s.X0)*cosT + (y-s.Y0)*sinT
	xMin := -(x-s.X0)*sinT + (y-s.Y0)*cosT
	z := math.Hypot(xMaj/a, xMin/b)
	return s.Amplitude * math.Exp(-bn*(math.Pow(z, 1/s.N)-1))
}

// SetParameter sets a named profile parameter, used by the injectors to
// set the amplitude returned by MagToImageAmplitude.
func (s *Sersic2D) SetParameter(name string, v float64) error {
	switch name {
	case AmplitudeParam:
		s.Amplitude = v
	case "x_0":
		s.X0 = v
	case "y_0":
		s.Y0 = v
	case "r_eff":
		s.REff = v
	case "n":
		s.N = v
	case "ellip":
		s.Ellip = v
	case "theta":
		s.Theta = v
	default:
		return fmt.Errorf("sersic: no parameter named '%s'", name)
	}
	return nil
}
