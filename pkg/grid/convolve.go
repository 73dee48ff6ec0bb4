package grid

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Boundary selects how Convolve treats pixels past the image edge.
type Boundary string

const (
	// BoundaryFill zero-pads the image out to the linear-convolution size.
	BoundaryFill Boundary = "fill"
	// BoundaryWrap treats the image as periodic.
	BoundaryWrap Boundary = "wrap"
)

// Convolve blurs an image with a centered kernel via 2-D FFT. The kernel
// is normalized to sum to 1 before convolving, so total flux is
// preserved. Only fill and wrap boundaries exist on the FFT path;
// extend-style boundaries are not supported.
func Convolve(img, kernel *Grid, boundary Boundary) (*Grid, error) {
	h, w := img.Dy(), img.Dx()
	kh, kw := kernel.Dy(), kernel.Dx()

	ksum := kernel.Sum()
	if ksum == 0 {
		return nil, fmt.Errorf("kernel sums to zero, cannot normalize")
	}

	var fh, fw int
	switch boundary {
	case BoundaryWrap:
		if kh > h || kw > w {
			return nil, fmt.Errorf("kernel %dx%d larger than image %dx%d", kw, kh, w, h)
		}
		fh, fw = h, w
	case BoundaryFill:
		fh, fw = h+kh-1, w+kw-1
	default:
		return nil, fmt.Errorf("unsupported boundary '%s' for FFT convolution", boundary)
	}

	// Image goes in at the top-left of the FFT grid; the padding (if any)
	// is zeros, which is the fill boundary.
	a := make([][]complex128, fh)
	b := make([][]complex128, fh)
	for y := 0; y < fh; y++ {
		a[y] = make([]complex128, fw)
		b[y] = make([]complex128, fw)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a[y][x] = complex(img.Get(x, y), 0)
		}
	}

	// The kernel is stored centered, so wrap it around the origin
	// (ifftshift) to avoid translating the output.
	cy, cx := kh/2, kw/2
	for y := 0; y < kh; y++ {
		for x := 0; x < kw; x++ {
			ty := ((y - cy) + fh) % fh
			tx := ((x - cx) + fw) % fw
			b[ty][tx] = complex(kernel.Get(x, y)/ksum, 0)
		}
	}

	fft2InPlace(a, true)
	fft2InPlace(b, true)
	for y := 0; y < fh; y++ {
		for x := 0; x < fw; x++ {
			a[y][x] *= b[y][x]
		}
	}
	fft2InPlace(a, false)

	// Gonum transforms are unnormalized: a forward+inverse pass scales
	// by fh*fw.
	scale := float64(fh * fw)
	out := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(x, y, real(a[y][x])/scale)
		}
	}
	return out, nil
}

// 2-D FFT as rows-then-columns 1-D transforms.
func fft2InPlace(a [][]complex128, forward bool) {
	h := len(a)
	w := len(a[0])

	rowFFT := fourier.NewCmplxFFT(w)
	colFFT := fourier.NewCmplxFFT(h)

	tmp := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(tmp, a[y])
		if forward {
			rowFFT.Coefficients(tmp, tmp)
		} else {
			rowFFT.Sequence(tmp, tmp)
		}
		copy(a[y], tmp)
	}

	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = a[y][x]
		}
		if forward {
			colFFT.Coefficients(col, col)
		} else {
			colFFT.Sequence(col, col)
		}
		for y := 0; y < h; y++ {
			a[y][x] = col[y]
		}
	}
}
