// Package grid holds the 2-D float images the imaging pipeline passes
// between stages, along with the operations the pipeline needs: point
// source rasterization, cutouts, elementwise arithmetic and FFT
// convolution.
package grid

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

// A Grid is a grid of floats. Storage is row-major: the first axis is
// rows (y), the second columns (x), so Get(x, y) == image[y][x].
type Grid struct {
	stride int
	values []float64
}

func New(w, h int) *Grid {
	return &Grid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewShape allocates a grid for an (nx, ny) pixel dimension pair.
func NewShape(dim [2]int) *Grid { return New(dim[0], dim[1]) }

func (g *Grid) Set(x, y int, v float64) { g.values[g.stride*y+x] = v }
func (g *Grid) Get(x, y int) float64    { return g.values[g.stride*y+x] }
func (g *Grid) Dx() int                 { return g.stride }
func (g *Grid) Dy() int                 { return len(g.values) / g.stride }
func (g *Grid) Shape() [2]int           { return [2]int{g.Dx(), g.Dy()} }
func (g *Grid) Values() []float64       { return g.values }

func (g *Grid) Clone() *Grid {
	out := &Grid{stride: g.stride, values: make([]float64, len(g.values))}
	copy(out.values, g.values)
	return out
}

// Add sums another grid into this one, elementwise.
func (g *Grid) Add(o *Grid) error {
	if g.stride != o.stride || len(g.values) != len(o.values) {
		return fmt.Errorf("grid shape mismatch: %v vs %v", g.Shape(), o.Shape())
	}
	for i := range g.values {
		g.values[i] += o.values[i]
	}
	return nil
}

func (g *Grid) AddScalar(v float64) {
	for i := range g.values {
		g.values[i] += v
	}
}

func (g *Grid) Scale(f float64) {
	for i := range g.values {
		g.values[i] *= f
	}
}

func (g *Grid) Fill(v float64) {
	for i := range g.values {
		g.values[i] = v
	}
}

// ClipNegative zeroes every negative pixel, in place.
func (g *Grid) ClipNegative() {
	for i := range g.values {
		if g.values[i] < 0 {
			g.values[i] = 0
		}
	}
}

func (g *Grid) Sum() float64 {
	s := 0.0
	for i := range g.values {
		s += g.values[i]
	}
	return s
}

func (g *Grid) MinMax() (float64, float64) {
	min := math.MaxFloat64
	max := -1.0 * min
	for i := range g.values {
		if g.values[i] > max {
			max = g.values[i]
		}
		if g.values[i] < min {
			min = g.values[i]
		}
	}
	return min, max
}

// Equal reports bit-identical contents and shape.
func (g *Grid) Equal(o *Grid) bool {
	if g.stride != o.stride || len(g.values) != len(o.values) {
		return false
	}
	for i := range g.values {
		if math.Float64bits(g.values[i]) != math.Float64bits(o.values[i]) {
			return false
		}
	}
	return true
}

func (g *Grid) Stats() string {
	min, max := g.MinMax()
	return fmt.Sprintf("grid[%dx%d, vals{%g,%g}, sum %g]", g.Dx(), g.Dy(), min, max, g.Sum())
}

// InjectPoints bins weighted points onto a fresh grid: a 2-D weighted
// histogram with exactly dim[0] x dim[1] bins over the pixel-index range
// [0, dim-1] per axis. Sub-pixel positions are binned, not interpolated;
// callers needing sub-pixel precision should render upsampled and
// downsample externally. Points outside the range are dropped. The first
// axis of the result is y, matching Grid's row-major convention.
func InjectPoints(x, y, weight []float64, dim [2]int, mask []bool) (*Grid, error) {
	if len(x) != len(y) || len(x) != len(weight) {
		return nil, fmt.Errorf("x/y/weight lengths differ: %d/%d/%d", len(x), len(y), len(weight))
	}
	if mask != nil && len(mask) != len(x) {
		return nil, fmt.Errorf("mask length %d does not match %d points", len(mask), len(x))
	}
	if dim[0] < 1 || dim[1] < 1 {
		return nil, fmt.Errorf("bad grid dimensions %v", dim)
	}

	g := NewShape(dim)
	for i := range x {
		if mask != nil && !mask[i] {
			continue
		}
		ix, ok := binIndex(x[i], dim[0])
		if !ok {
			continue
		}
		iy, ok := binIndex(y[i], dim[1])
		if !ok {
			continue
		}
		g.Set(ix, iy, g.Get(ix, iy)+weight[i])
	}
	return g, nil
}

// binIndex maps a coordinate onto one of n equal bins spanning [0, n-1].
// The top edge is inclusive, as in a standard histogram.
func binIndex(v float64, n int) (int, bool) {
	hi := float64(n - 1)
	if v < 0 || v > hi || math.IsNaN(v) {
		return 0, false
	}
	if n == 1 || v == hi {
		return n - 1, true
	}
	idx := int(v / hi * float64(n))
	if idx > n-1 {
		idx = n - 1
	}
	return idx, true
}

// Cutout copies a (rows=shape[1], cols=shape[0]) sub-grid whose top-left
// pixel sits at origin (row, col).
func (g *Grid) Cutout(origin [2]int, shape [2]int) (*Grid, error) {
	if origin[0] < 0 || origin[1] < 0 ||
		origin[0]+shape[1] > g.Dy() || origin[1]+shape[0] > g.Dx() {
		return nil, fmt.Errorf("cutout %v+%v outside grid %v", origin, shape, g.Shape())
	}
	out := NewShape(shape)
	for y := 0; y < shape[1]; y++ {
		for x := 0; x < shape[0]; x++ {
			out.Set(x, y, g.Get(origin[1]+x, origin[0]+y))
		}
	}
	return out, nil
}

// CenteredOrigin is the (row, col) origin that centers a shape-sized
// cutout within this grid.
func (g *Grid) CenteredOrigin(shape [2]int) [2]int {
	return [2]int{g.Dy()/2 - shape[1]/2, g.Dx()/2 - shape[0]/2}
}

// MarshalBinary serializes shape and pixel values, little-endian.
func (g *Grid) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 16+8*len(g.values))
	binary.LittleEndian.PutUint64(buf[0:], uint64(g.stride))
	binary.LittleEndian.PutUint64(buf[8:], uint64(len(g.values)))
	for i, v := range g.values {
		binary.LittleEndian.PutUint64(buf[16+8*i:], math.Float64bits(v))
	}
	return buf, nil
}

// GobEncode/GobDecode let observation records carry grids through
// encoding/gob without exposing the internals.
func (g *Grid) GobEncode() ([]byte, error) { return g.MarshalBinary() }
func (g *Grid) GobDecode(buf []byte) error { return g.UnmarshalBinary(buf) }

func (g *Grid) UnmarshalBinary(buf []byte) error {
	if len(buf) < 16 {
		return fmt.Errorf("grid blob too short: %d bytes", len(buf))
	}
	stride := int(binary.LittleEndian.Uint64(buf[0:]))
	n := int(binary.LittleEndian.Uint64(buf[8:]))
	if stride < 1 || n < stride || n%stride != 0 || len(buf) != 16+8*n {
		return fmt.Errorf("grid blob corrupt (stride %d, n %d, %d bytes)", stride, n, len(buf))
	}
	g.stride = stride
	g.values = make([]float64, n)
	for i := range g.values {
		g.values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[16+8*i:]))
	}
	return nil
}

// ToPNG saves a simple grayscale preview, stretching the value range and
// gamma-scaling so the result looks normal to human vision.
func (g *Grid) ToPNG(title, filename string) error {
	min, max := g.MinMax()
	span := max - min
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{g.Dx(), g.Dy()}})
	for x := 0; x < g.Dx(); x++ {
		for y := 0; y < g.Dy(); y++ {
			gray := gammaExpand((g.Get(x, y) - min) / span)
			c := uint16(gray * 65535.0)
			img.Set(x, y, color.RGBA64{c, c, c, 0xFFFF})
		}
	}

	dc := gg.NewContextForImage(img)
	if title != "" {
		dc.SetRGB(1, 1, 1)
		dc.DrawString(title, 20, 20)
	}
	return dc.SavePNG(filename)
}

// linear to sRGB, input in [0,1]
func gammaExpand(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055*math.Pow(f, 1.0/2.4) - 0.055
}
