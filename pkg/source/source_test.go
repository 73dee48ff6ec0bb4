package source

import (
	"testing"

	"skysim/pkg/sersic"
	"skysim/pkg/units"
)

func TestNewFieldValidation(t *testing.T) {
	x := []float64{10, 20}
	y := []float64{30, 40}
	mags := map[string][]float64{"g": {21, 22}}
	scale := units.Arcsec(0.2)

	tests := []struct {
		name string
		x, y []float64
		mags map[string][]float64
		dim  [2]int
	}{
		{"even nx", x, y, mags, [2]int{100, 101}},
		{"even ny", x, y, mags, [2]int{101, 100}},
		{"zero dim", x, y, mags, [2]int{0, 101}},
		{"xy length mismatch", x, y[:1], mags, [2]int{101, 101}},
		{"mag length mismatch", x, y, map[string][]float64{"g": {21}}, [2]int{101, 101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewField(tt.x, tt.y, tt.mags, tt.dim, scale, nil); err == nil {
				t.Error("expected construction to fail")
			}
		})
	}

	f, err := NewField(x, y, mags, [2]int{101, 101}, scale, nil)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	if f.NumStars() != 2 {
		t.Errorf("NumStars = %d, want 2", f.NumStars())
	}
}

func TestFieldMagnitudes(t *testing.T) {
	f, err := NewField([]float64{5}, []float64{5},
		map[string][]float64{"r": {19.5}}, [2]int{11, 11}, units.Arcsec(0.2), nil)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	m, err := f.Magnitudes("r")
	if err != nil {
		t.Fatalf("Magnitudes: %v", err)
	}
	if m[0] != 19.5 {
		t.Errorf("mag = %g, want 19.5", m[0])
	}
	if _, err := f.Magnitudes("z"); err == nil {
		t.Error("expected error for missing bandpass")
	}
}

func TestFieldSmoothComponent(t *testing.T) {
	profile := &sersic.Sersic2D{X0: 50, Y0: 50, REff: 25, N: 1}
	smooth := &SmoothComponent{
		Profile:   profile,
		REff:      units.Arcsec(5),
		TotalMags: map[string]float64{"i": 16},
	}
	f, err := NewField(nil, nil, nil, [2]int{101, 101}, units.Arcsec(0.2), smooth)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	// Field satisfies the smooth-source capability.
	var ss SmoothSource = f
	if ss.SmoothModel() == nil {
		t.Fatal("SmoothModel() = nil, want profile")
	}
	if m, ok := ss.IntegratedMag("i"); !ok || m != 16 {
		t.Errorf("IntegratedMag(i) = %g,%v, want 16,true", m, ok)
	}
	if _, ok := ss.IntegratedMag("u"); ok {
		t.Error("IntegratedMag for unknown band should report false")
	}
	if _, amp, param := ss.MagToImageAmplitude(16, 27); amp <= 0 || param != sersic.AmplitudeParam {
		t.Errorf("MagToImageAmplitude = %g,%s", amp, param)
	}

	// No smooth component: capability present but model is nil.
	bare, err := NewField(nil, nil, nil, [2]int{11, 11}, units.Arcsec(0.2), nil)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	if bare.SmoothModel() != nil {
		t.Error("bare field should have nil smooth model")
	}
	if _, ok := bare.IntegratedMag("i"); ok {
		t.Error("bare field should have no integrated magnitude")
	}

	if _, err := NewField(nil, nil, nil, [2]int{11, 11}, units.Arcsec(0.2),
		&SmoothComponent{}); err == nil {
		t.Error("expected error for smooth component without profile")
	}
}

func TestCheckOdd(t *testing.T) {
	if err := CheckOdd("side", 3, 41, 101); err != nil {
		t.Errorf("CheckOdd(odd): %v", err)
	}
	if err := CheckOdd("side", 3, 40); err == nil {
		t.Error("expected error for even value")
	}
}
