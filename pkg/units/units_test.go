package units

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestConstructorsScaleToSI(t *testing.T) {
	tests := []struct {
		name string
		q    Quantity
		want float64
	}{
		{"angstrom", Angstroms(1), 1e-10},
		{"centimeter", Centimeters(250), 2.5},
		{"erg", Ergs(1), 1e-7},
		{"cm2", SquareCentimeters(1), 1e-4},
		{"arcsec", Arcsec(3600 * 180), math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Value(); !scalar.EqualWithinRel(got, tt.want, 1e-12) {
				t.Errorf("Value() = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestDimensionAlgebra(t *testing.T) {
	// photon flux: fnu / h has dimensions 1 / (area * time)
	fnu := Ergs(1).Div(Seconds(1)).Div(Hertz(1)).Div(SquareCentimeters(1))
	flux := fnu.Div(PlanckH)
	counts := flux.Mul(SquareMeters(2)).Mul(Seconds(3))
	if !counts.IsDimensionless() {
		t.Errorf("flux * area * time should be dimensionless, got %v", counts)
	}

	if q := Meters(2).Mul(Meters(3)); !scalar.EqualWithinRel(q.MustIn(SquareMeters(1)), 6, 1e-14) {
		t.Errorf("m*m = %v, want 6 m^2", q)
	}
}

func TestInRejectsDimensionMismatch(t *testing.T) {
	if _, err := Meters(1).In(Seconds(1)); err == nil {
		t.Error("expected error converting meters to seconds")
	}
	v, err := Angstroms(5000).In(Centimeters(1))
	if err != nil {
		t.Fatalf("In() error: %v", err)
	}
	if !scalar.EqualWithinRel(v, 5e-5, 1e-12) {
		t.Errorf("5000 angstrom = %g cm, want 5e-5", v)
	}
}

func TestAddChecksDimensions(t *testing.T) {
	if _, err := Meters(1).Add(Seconds(1)); err == nil {
		t.Error("expected error adding meters to seconds")
	}
	q, err := Meters(1).Add(Centimeters(100))
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if !scalar.EqualWithinRel(q.Value(), 2, 1e-12) {
		t.Errorf("1m + 100cm = %g m, want 2", q.Value())
	}
}

func TestDimensionlessAccumulator(t *testing.T) {
	// A dimensionless starting value must accept dimensioned factors;
	// the radiometric conversions build products exactly this way.
	q := Dimensionless(2).Mul(Arcsec(3))
	if !scalar.EqualWithinRel(q.MustIn(Arcsec(1)), 6, 1e-12) {
		t.Errorf("1 * arcsec product = %v, want 6 arcsec", q)
	}
	if v := Dimensionless(8).Div(Seconds(2)).Mul(Seconds(1)).MustDimensionless("test"); v != 4 {
		t.Errorf("dimensionless/time*time = %g, want 4", v)
	}
}

func TestPow(t *testing.T) {
	q := Arcsec(2).Pow(2)
	want := Arcsec(2).Mul(Arcsec(2))
	if !scalar.EqualWithinRel(q.Value(), want.Value(), 1e-14) {
		t.Errorf("Pow(2) = %g, want %g", q.Value(), want.Value())
	}
	inv := Seconds(4).Pow(-1)
	if !scalar.EqualWithinRel(inv.Mul(Seconds(4)).MustDimensionless("test"), 1, 1e-14) {
		t.Errorf("s^-1 * s should be 1")
	}
}

func TestMustDimensionlessPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for dimensioned MustDimensionless")
		}
	}()
	Meters(1).MustDimensionless("test")
}

func TestEnsure(t *testing.T) {
	q, err := Ensure(2.5, Seconds)
	if err != nil {
		t.Fatalf("Ensure(float): %v", err)
	}
	if q.Value() != 2.5 {
		t.Errorf("Ensure(2.5, Seconds) = %g s", q.Value())
	}

	// Already-tagged values pass through untouched.
	q2, err := Ensure(Meters(3), Seconds)
	if err != nil {
		t.Fatalf("Ensure(Quantity): %v", err)
	}
	if _, err := q2.In(Meters(1)); err != nil {
		t.Errorf("tagged quantity was re-tagged: %v", err)
	}

	if _, err := Ensure("nope", Seconds); err == nil {
		t.Error("expected error for string input")
	}
}
