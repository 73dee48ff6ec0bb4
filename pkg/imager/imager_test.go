package imager

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"skysim/pkg/grid"
	"skysim/pkg/psf"
	"skysim/pkg/sersic"
	"skysim/pkg/source"
	"skysim/pkg/units"
)

func starField(t *testing.T, x, y, mags []float64, dim [2]int) *source.Field {
	t.Helper()
	f, err := source.NewField(x, y, map[string][]float64{"g": mags}, dim,
		units.Arcsec(0.2), nil)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	return f
}

func TestIdealObserveSingleStar(t *testing.T) {
	src := starField(t, []float64{50}, []float64{50}, []float64{20}, [2]int{101, 101})

	opts := DefaultIdealOptions()
	obs, err := IdealImager{}.Observe(src, "g", opts)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	// The star lands in its pixel with flux 10^(0.4 (zpt - m)); every
	// other pixel is empty.
	want := math.Pow(10, 0.4*(27-20))
	if got := obs.Image.Get(50, 50); !scalar.EqualWithinRel(got, want, 1e-12) {
		t.Errorf("center pixel = %g, want %g", got, want)
	}
	if got := obs.Image.Sum(); !scalar.EqualWithinRel(got, want, 1e-12) {
		t.Errorf("total flux = %g, want %g", got, want)
	}
	if obs.Bandpass != "g" || obs.Zpt != 27 {
		t.Errorf("metadata = %s/%g", obs.Bandpass, obs.Zpt)
	}
}

func TestIdealObservePSFConservesFlux(t *testing.T) {
	src := starField(t, []float64{25}, []float64{25}, []float64{21}, [2]int{51, 51})

	kernel, err := psf.Gaussian(3, 15)
	if err != nil {
		t.Fatalf("Gaussian: %v", err)
	}
	opts := DefaultIdealOptions()
	opts.PSF = kernel

	obs, err := IdealImager{}.Observe(src, "g", opts)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	want := math.Pow(10, 0.4*(27-21))
	if !scalar.EqualWithinRel(obs.Image.Sum(), want, 1e-9) {
		t.Errorf("flux after seeing = %g, want %g", obs.Image.Sum(), want)
	}
	// The peak must have been spread out.
	if obs.Image.Get(25, 25) >= want {
		t.Error("PSF did not spread the star")
	}
}

func TestIdealObserveSmoothModel(t *testing.T) {
	profile := &sersic.Sersic2D{X0: 25, Y0: 25, REff: 10, N: 1}
	smooth := &source.SmoothComponent{
		Profile:   profile,
		REff:      units.Arcsec(2),
		TotalMags: map[string]float64{"g": 18},
	}
	src, err := source.NewField(nil, nil, map[string][]float64{"g": {}},
		[2]int{51, 51}, units.Arcsec(0.2), smooth)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	obs, err := IdealImager{}.Observe(src, "g", DefaultIdealOptions())
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	// The amplitude inversion sets the profile value at r_eff.
	_, amp, _ := src.MagToImageAmplitude(18, 27)
	if got := obs.Image.Get(35, 25); !scalar.EqualWithinRel(got, amp, 1e-10) {
		t.Errorf("pixel at r_eff = %g, want amplitude %g", got, amp)
	}
	if obs.Image.Get(25, 25) <= obs.Image.Get(35, 25) {
		t.Error("profile should peak at its center")
	}

	// The smooth component has no magnitude in this band.
	if _, err := (IdealImager{}).Observe(src, "r", DefaultIdealOptions()); err == nil {
		t.Error("expected error for band without magnitudes")
	}
}

func TestIdealObserveMask(t *testing.T) {
	src := starField(t, []float64{10, 40}, []float64{10, 40},
		[]float64{20, 20}, [2]int{51, 51})

	opts := DefaultIdealOptions()
	opts.Mask = []bool{true, false}
	obs, err := IdealImager{}.Observe(src, "g", opts)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if obs.Image.Get(40, 40) != 0 {
		t.Error("masked star was injected")
	}
	if obs.Image.Get(10, 10) == 0 {
		t.Error("unmasked star missing")
	}
}

func TestApplySeeingNilPSF(t *testing.T) {
	img := grid.New(11, 11)
	img.Set(5, 5, 3)
	out, err := ApplySeeing(img, nil, grid.BoundaryWrap)
	if err != nil {
		t.Fatalf("ApplySeeing: %v", err)
	}
	if out != img {
		t.Error("nil PSF should pass the image through unchanged")
	}
}

func TestIdealObserveErrors(t *testing.T) {
	if _, err := (IdealImager{}).Observe(nil, "g", DefaultIdealOptions()); err == nil {
		t.Error("expected error for nil source")
	}

	src := starField(t, []float64{5}, []float64{5}, []float64{20}, [2]int{11, 11})
	if _, err := (IdealImager{}).Observe(src, "nope", DefaultIdealOptions()); err == nil {
		t.Error("expected error for unknown bandpass")
	}
}

func TestObservationCopy(t *testing.T) {
	src := starField(t, []float64{5}, []float64{5}, []float64{20}, [2]int{11, 11})
	obs, err := IdealImager{}.Observe(src, "g", DefaultIdealOptions())
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	cp := obs.Copy()
	cp.Image.Set(0, 0, -99)
	if obs.Image.Get(0, 0) == -99 {
		t.Error("Copy shares pixel storage with the original")
	}
}
