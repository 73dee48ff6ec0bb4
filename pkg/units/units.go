// Package units carries dimensions through the radiometric math, so a
// magnitude-to-counts conversion that doesn't cancel out to a pure number
// is caught as a bug rather than silently producing garbage.
package units

import (
	"fmt"

	"gonum.org/v1/gonum/unit"
)

// A Quantity is a float64 tagged with SI dimensions. The value is always
// held in SI base units; constructors fold in the conversion factor
// (e.g. Angstroms(1).Value() == 1e-10).
type Quantity struct {
	u *unit.Unit
}

func newQ(v float64, d unit.Dimensions) Quantity {
	return Quantity{u: unit.New(v, d)}
}

// Length
func Meters(v float64) Quantity      { return newQ(v, unit.Dimensions{unit.LengthDim: 1}) }
func Centimeters(v float64) Quantity { return Meters(v * 1e-2) }
func Angstroms(v float64) Quantity   { return Meters(v * 1e-10) }

// Area
func SquareMeters(v float64) Quantity      { return newQ(v, unit.Dimensions{unit.LengthDim: 2}) }
func SquareCentimeters(v float64) Quantity { return SquareMeters(v * 1e-4) }

// Time and frequency
func Seconds(v float64) Quantity { return newQ(v, unit.Dimensions{unit.TimeDim: 1}) }
func Hertz(v float64) Quantity   { return newQ(v, unit.Dimensions{unit.TimeDim: -1}) }

// Energy
func Joules(v float64) Quantity {
	return newQ(v, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2})
}
func Ergs(v float64) Quantity { return Joules(v * 1e-7) }

// Angle. Stored in radians.
func Radians(v float64) Quantity { return newQ(v, unit.Dimensions{unit.AngleDim: 1}) }
func Arcsec(v float64) Quantity  { return Radians(v * arcsecToRad) }

// Dimensionless carries a non-nil empty dimension map: gonum's Mul/Div
// write into the receiver's map, so a nil map would panic as soon as a
// dimensionless accumulator meets a dimensioned factor.
func Dimensionless(v float64) Quantity { return newQ(v, unit.Dimensions{}) }

const arcsecToRad = 3.14159265358979323846 / 180.0 / 3600.0

var (
	// PlanckH is Planck's constant, in J s.
	PlanckH = Joules(6.62607015e-34).Mul(Seconds(1))
	// LightSpeed is c, in m/s.
	LightSpeed = Meters(2.99792458e8).Div(Seconds(1))
)

func (q Quantity) clone() *unit.Unit {
	return unit.New(q.u.Value(), q.u.Dimensions())
}

// Value returns the magnitude in SI base units.
func (q Quantity) Value() float64 { return q.u.Value() }

func (q Quantity) Mul(r Quantity) Quantity { return Quantity{u: q.clone().Mul(r.u)} }
func (q Quantity) Div(r Quantity) Quantity { return Quantity{u: q.clone().Div(r.u)} }

// Scale multiplies by a bare number without touching the dimensions.
func (q Quantity) Scale(f float64) Quantity {
	return Quantity{u: unit.New(q.u.Value()*f, q.u.Dimensions())}
}

// Pow raises the quantity to an integer power.
func (q Quantity) Pow(n int) Quantity {
	base := Quantity{u: q.clone()}
	if n < 0 {
		base = Dimensionless(1).Div(q)
		n = -n
	}
	out := Dimensionless(1)
	for i := 0; i < n; i++ {
		out = out.Mul(base)
	}
	return out
}

// Add sums two quantities of matching dimension.
func (q Quantity) Add(r Quantity) (Quantity, error) {
	if !unit.DimensionsMatch(q.u, r.u) {
		return Quantity{}, fmt.Errorf("cannot add %v to %v", q.u, r.u)
	}
	return Quantity{u: q.clone().Add(r.u)}, nil
}

// In converts to the scale defined by ref, e.g. q.In(Centimeters(1)) gives
// the magnitude in cm. Errors if the dimensions differ.
func (q Quantity) In(ref Quantity) (float64, error) {
	if !unit.DimensionsMatch(q.u, ref.u) {
		return 0, fmt.Errorf("cannot express %v in units of %v", q.u, ref.u)
	}
	return q.u.Value() / ref.u.Value(), nil
}

// MustIn is In for conversions the caller knows are dimensionally sound.
func (q Quantity) MustIn(ref Quantity) float64 {
	v, err := q.In(ref)
	if err != nil {
		panic(err)
	}
	return v
}

// IsDimensionless reports whether all dimensions have cancelled.
func (q Quantity) IsDimensionless() bool {
	return unit.DimensionsMatch(q.u, unit.New(1, nil))
}

// MustDimensionless returns the bare value, panicking if any dimension
// survives. A failure here is a unit-algebra bug in the caller, not bad
// user input, so it is fatal rather than an error return.
func (q Quantity) MustDimensionless(context string) float64 {
	if !q.IsDimensionless() {
		panic(fmt.Sprintf("units: %s: expected dimensionless result, got %v", context, q.u))
	}
	return q.u.Value()
}

func (q Quantity) String() string { return fmt.Sprintf("%v", q.u) }

// Ensure tags a bare numeric value with a default unit; values that
// already carry units pass through untouched.
func Ensure(v interface{}, def func(float64) Quantity) (Quantity, error) {
	switch t := v.(type) {
	case Quantity:
		return t, nil
	case float64:
		return def(t), nil
	case float32:
		return def(float64(t)), nil
	case int:
		return def(float64(t)), nil
	}
	return Quantity{}, fmt.Errorf("units: cannot tag %T with a default unit", v)
}
