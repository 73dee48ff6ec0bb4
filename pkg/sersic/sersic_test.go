package sersic

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"skysim/pkg/units"
)

func TestBN(t *testing.T) {
	tests := []struct {
		n    float64
		want float64
		tol  float64
	}{
		// n = 0.5 solves 1 - e^{-b} = 1/2 exactly.
		{0.5, math.Ln2, 1e-12},
		{1, 1.6783469900166605, 1e-10},
		{4, 7.669249442500808, 1e-8},
	}
	for _, tt := range tests {
		if got := BN(tt.n); !scalar.EqualWithinAbs(got, tt.want, tt.tol) {
			t.Errorf("BN(%g) = %.15g, want %.15g", tt.n, got, tt.want)
		}
	}
}

func TestFN(t *testing.T) {
	// For n = 0.5: Gamma(1) * 0.5 * e^{ln 2} / ln 2 = 1/ln 2.
	if got := FN(0.5); !scalar.EqualWithinRel(got, 1/math.Ln2, 1e-12) {
		t.Errorf("FN(0.5) = %g, want %g", got, 1/math.Ln2)
	}
}

func TestMagToImageAmplitude(t *testing.T) {
	rEff := units.Arcsec(10)
	pixelScale := units.Arcsec(0.2)

	_, amp, param := MagToImageAmplitude(18, rEff, 1, 0, 27, pixelScale)
	if param != AmplitudeParam {
		t.Errorf("param = %s, want %s", param, AmplitudeParam)
	}
	if amp <= 0 {
		t.Fatalf("amplitude = %g, want > 0", amp)
	}

	// One magnitude brighter at fixed zpt scales the amplitude by 10^0.4.
	_, amp2, _ := MagToImageAmplitude(17, rEff, 1, 0, 27, pixelScale)
	if !scalar.EqualWithinRel(amp2/amp, math.Pow(10, 0.4), 1e-12) {
		t.Errorf("amplitude ratio = %g, want %g", amp2/amp, math.Pow(10, 0.4))
	}

	// Doubling the pixel scale quadruples the flux per pixel.
	_, amp4, _ := MagToImageAmplitude(18, rEff, 1, 0, 27, units.Arcsec(0.4))
	if !scalar.EqualWithinRel(amp4/amp, 4, 1e-12) {
		t.Errorf("pixel-scale ratio = %g, want 4", amp4/amp)
	}

	// An elliptical profile covers less sky, so mu_e is brighter (smaller).
	muRound, _, _ := MagToImageAmplitude(18, rEff, 1, 0, 27, pixelScale)
	muFlat, _, _ := MagToImageAmplitude(18, rEff, 1, 0.5, 27, pixelScale)
	if muFlat >= muRound {
		t.Errorf("mu_e(ellip=0.5) = %g should be brighter than mu_e(round) = %g", muFlat, muRound)
	}
}

func TestSersic2DEval(t *testing.T) {
	s := &Sersic2D{Amplitude: 3, X0: 50, Y0: 50, REff: 10, N: 1, Ellip: 0, Theta: 0}

	// At the effective radius the profile equals the amplitude.
	if got := s.Eval(60, 50); !scalar.EqualWithinRel(got, 3, 1e-12) {
		t.Errorf("Eval at r_eff = %g, want 3", got)
	}
	// Circular: same value at equal radius in any direction.
	if a, b := s.Eval(50, 60), s.Eval(50+10/math.Sqrt2, 50+10/math.Sqrt2); !scalar.EqualWithinRel(a, b, 1e-12) {
		t.Errorf("circular profile not isotropic: %g vs %g", a, b)
	}
	// Monotone decreasing outward.
	if s.Eval(55, 50) <= s.Eval(65, 50) {
		t.Error("profile should decrease with radius")
	}

	// Center of an exponential (n=1) profile is amplitude * e^{b_1}.
	want := 3 * math.Exp(BN(1))
	if got := s.Eval(50, 50); !scalar.EqualWithinRel(got, want, 1e-10) {
		t.Errorf("central value = %g, want %g", got, want)
	}
}

func TestSersic2DEllipticity(t *testing.T) {
	s := &Sersic2D{Amplitude: 1, X0: 0, Y0: 0, REff: 10, N: 2, Ellip: 0.5, Theta: math.Pi / 2}

	// With theta = pi/2 the major axis lies along y: the profile at
	// (0, 10) sits at the effective radius, while (10, 0) is further
	// out in scaled radius.
	if got := s.Eval(0, 10); !scalar.EqualWithinRel(got, 1, 1e-12) {
		t.Errorf("major-axis r_eff value = %g, want 1", got)
	}
	if s.Eval(10, 0) >= s.Eval(0, 10) {
		t.Error("minor axis should fall off faster than major axis")
	}
}

func TestSetParameter(t *testing.T) {
	s := &Sersic2D{}
	if err := s.SetParameter(AmplitudeParam, 7.5); err != nil {
		t.Fatalf("SetParameter: %v", err)
	}
	if s.Amplitude != 7.5 {
		t.Errorf("Amplitude = %g, want 7.5", s.Amplitude)
	}
	if err := s.SetParameter("bogus", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}
