package grid

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func deltaKernel(side int) *Grid {
	k := New(side, side)
	k.Set(side/2, side/2, 1)
	return k
}

func gaussKernel(side int, sigma float64) *Grid {
	k := New(side, side)
	c := float64(side / 2)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			r2 := (float64(x)-c)*(float64(x)-c) + (float64(y)-c)*(float64(y)-c)
			k.Set(x, y, math.Exp(-r2/(2*sigma*sigma)))
		}
	}
	return k
}

func TestConvolveDeltaIsIdentity(t *testing.T) {
	img := New(11, 9)
	for y := 0; y < 9; y++ {
		for x := 0; x < 11; x++ {
			img.Set(x, y, float64(x*y)+0.25)
		}
	}

	for _, boundary := range []Boundary{BoundaryFill, BoundaryWrap} {
		t.Run(string(boundary), func(t *testing.T) {
			out, err := Convolve(img, deltaKernel(3), boundary)
			if err != nil {
				t.Fatalf("Convolve: %v", err)
			}
			for y := 0; y < 9; y++ {
				for x := 0; x < 11; x++ {
					if !scalar.EqualWithinAbs(out.Get(x, y), img.Get(x, y), 1e-10) {
						t.Fatalf("pixel (%d,%d) = %g, want %g", x, y, out.Get(x, y), img.Get(x, y))
					}
				}
			}
		})
	}
}

func TestConvolveWrapConservesFlux(t *testing.T) {
	img := New(16, 16)
	img.Set(8, 8, 100)
	img.Set(1, 14, 7)

	out, err := Convolve(img, gaussKernel(5, 1.2), BoundaryWrap)
	if err != nil {
		t.Fatalf("Convolve: %v", err)
	}
	if !scalar.EqualWithinRel(out.Sum(), img.Sum(), 1e-9) {
		t.Errorf("flux after wrap convolution = %g, want %g", out.Sum(), img.Sum())
	}
}

func TestConvolveFillLosesEdgeFlux(t *testing.T) {
	// A point at the corner bleeds part of its light past the edge under
	// the fill boundary; wrap would bring it back around.
	img := New(15, 15)
	img.Set(0, 0, 100)

	out, err := Convolve(img, gaussKernel(7, 2), BoundaryFill)
	if err != nil {
		t.Fatalf("Convolve: %v", err)
	}
	if out.Sum() >= img.Sum() {
		t.Errorf("corner flux should leak out under fill: got %g >= %g", out.Sum(), img.Sum())
	}
	if out.Sum() < img.Sum()/8 {
		t.Errorf("too much flux lost: %g", out.Sum())
	}
}

func TestConvolveSpreadsPointSource(t *testing.T) {
	img := New(21, 21)
	img.Set(10, 10, 1)

	out, err := Convolve(img, gaussKernel(9, 1.5), BoundaryWrap)
	if err != nil {
		t.Fatalf("Convolve: %v", err)
	}
	// The output is the (normalized) kernel centered at the source.
	k := gaussKernel(9, 1.5)
	norm := k.Sum()
	for dy := -4; dy <= 4; dy++ {
		for dx := -4; dx <= 4; dx++ {
			want := k.Get(dx+4, dy+4) / norm
			got := out.Get(10+dx, 10+dy)
			if !scalar.EqualWithinAbs(got, want, 1e-10) {
				t.Fatalf("pixel offset (%d,%d) = %g, want %g", dx, dy, got, want)
			}
		}
	}
}

func TestConvolveErrors(t *testing.T) {
	img := New(5, 5)
	img.Fill(1)

	big := New(7, 7)
	big.Fill(1)
	if _, err := Convolve(img, big, BoundaryWrap); err == nil {
		t.Error("expected error for kernel larger than image under wrap")
	}
	if _, err := Convolve(img, New(3, 3), BoundaryWrap); err == nil {
		t.Error("expected error for all-zero kernel")
	}
	if _, err := Convolve(img, deltaKernel(3), Boundary("extend")); err == nil {
		t.Error("expected error for unsupported boundary")
	}
}
