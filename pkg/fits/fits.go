// Package fits reads and writes simple FITS images: one primary HDU,
// two axes, float or integer pixels. That covers observation products
// and background count files; it is not a general FITS library.
//
// Spec here:   https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html
package fits

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"skysim/pkg/grid"
)

const blockSize = 2880
const cardSize = 80

// A Card is one header keyword record.
type Card struct {
	Name    string
	Value   interface{}
	Comment string
}

// An Image is a single-HDU FITS image. Data is row-major with NAXIS1
// (x) varying fastest, matching grid.Grid's layout.
type Image struct {
	Naxisn []int // axis dimensions, x first
	Data   []float64
	Cards  []Card // extra header cards, written after the mandatory set
}

// FromGrid wraps a grid for writing. The grid is not copied.
func FromGrid(g *grid.Grid, cards ...Card) *Image {
	return &Image{Naxisn: []int{g.Dx(), g.Dy()}, Data: g.Values(), Cards: cards}
}

// Grid copies the pixel data into a grid.
func (img *Image) Grid() (*grid.Grid, error) {
	if len(img.Naxisn) != 2 {
		return nil, fmt.Errorf("fits: want a 2-D image, got %d axes", len(img.Naxisn))
	}
	g := grid.New(img.Naxisn[0], img.Naxisn[1])
	copy(g.Values(), img.Data)
	return g, nil
}

// Write emits the image as BITPIX -64 (IEEE float64).
func (img *Image) Write(w io.Writer) error {
	if len(img.Naxisn) != 2 {
		return fmt.Errorf("fits: want a 2-D image, got %d axes", len(img.Naxisn))
	}
	if len(img.Data) != img.Naxisn[0]*img.Naxisn[1] {
		return fmt.Errorf("fits: %d pixels for axes %v", len(img.Data), img.Naxisn)
	}

	cards := []Card{
		{"SIMPLE", true, "conforms to FITS standard"},
		{"BITPIX", -64, "IEEE double precision floats"},
		{"NAXIS", 2, ""},
		{"NAXIS1", img.Naxisn[0], ""},
		{"NAXIS2", img.Naxisn[1], ""},
	}
	cards = append(cards, img.Cards...)

	var hdr strings.Builder
	for _, c := range cards {
		hdr.WriteString(formatCard(c))
	}
	hdr.WriteString(fmt.Sprintf("%-80s", "END"))
	for hdr.Len()%blockSize != 0 {
		hdr.WriteString(strings.Repeat(" ", cardSize))
	}
	if _, err := io.WriteString(w, hdr.String()); err != nil {
		return fmt.Errorf("fits: write header: %v", err)
	}

	buf := make([]byte, 8*len(img.Data))
	for i, v := range img.Data {
		binary.BigEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	if pad := len(buf) % blockSize; pad != 0 {
		buf = append(buf, make([]byte, blockSize-pad)...)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("fits: write data: %v", err)
	}
	return nil
}

// WriteFile writes the image to a file. Refuses to clobber an existing
// file unless overwrite is set.
func WriteFile(path string, img *Image, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("fits: '%s' exists and overwrite is false", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fits: open+w '%s': %v", path, err)
	}
	defer f.Close()
	return img.Write(f)
}

func formatCard(c Card) string {
	var val string
	switch v := c.Value.(type) {
	case bool:
		t := "F"
		if v {
			t = "T"
		}
		val = fmt.Sprintf("%20s", t)
	case int:
		val = fmt.Sprintf("%20d", v)
	case float64:
		val = fmt.Sprintf("%20s", strconv.FormatFloat(v, 'G', -1, 64))
	case string:
		val = fmt.Sprintf("'%s'", v)
	default:
		val = fmt.Sprintf("%20v", v)
	}
	card := fmt.Sprintf("%-8s= %s", c.Name, val)
	if c.Comment != "" {
		card += " / " + c.Comment
	}
	if len(card) > cardSize {
		card = card[:cardSize]
	}
	return fmt.Sprintf("%-80s", card)
}

// Read parses a single-HDU FITS image. BITPIX 8, 16, 32, -32 and -64
// are accepted; BZERO/BSCALE are applied so Data holds true values.
func Read(r io.Reader) (*Image, error) {
	bitpix, naxisn, bzero, bscale, extra, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if len(naxisn) != 2 {
		return nil, fmt.Errorf("fits: want a 2-D image, got axes %v", naxisn)
	}

	n := naxisn[0] * naxisn[1]
	bytesPer := abs(bitpix) / 8
	raw := make([]byte, ((n*bytesPer+blockSize-1)/blockSize)*blockSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("fits: read %d data bytes: %v", len(raw), err)
	}

	data := make([]float64, n)
	for i := 0; i < n; i++ {
		b := raw[i*bytesPer:]
		var v float64
		switch bitpix {
		case 8:
			v = float64(b[0])
		case 16:
			v = float64(int16(binary.BigEndian.Uint16(b)))
		case 32:
			v = float64(int32(binary.BigEndian.Uint32(b)))
		case -32:
			v = float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
		case -64:
			v = math.Float64frombits(binary.BigEndian.Uint64(b))
		default:
			return nil, fmt.Errorf("fits: unsupported BITPIX %d", bitpix)
		}
		data[i] = bzero + bscale*v
	}
	return &Image{Naxisn: naxisn, Data: data, Cards: extra}, nil
}

// ReadFile reads a FITS image from a file.
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fits: open '%s': %v", path, err)
	}
	defer f.Close()
	img, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("fits: '%s': %v", path, err)
	}
	return img, nil
}

func readHeader(r io.Reader) (bitpix int, naxisn []int, bzero, bscale float64, extra []Card, err error) {
	bscale = 1
	dims := map[string]int{}
	naxis := -1

	block := make([]byte, blockSize)
	done := false
	first := true
	for !done {
		if _, err = io.ReadFull(r, block); err != nil {
			return 0, nil, 0, 0, nil, fmt.Errorf("fits: read header block: %v", err)
		}
		for i := 0; i < blockSize; i += cardSize {
			card := string(block[i : i+cardSize])
			name := strings.TrimSpace(card[:8])
			if first {
				if name != "SIMPLE" {
					return 0, nil, 0, 0, nil, fmt.Errorf("fits: not a FITS file (first card '%s')", name)
				}
				first = false
			}
			if name == "END" {
				done = true
				break
			}
			if name == "" || name == "COMMENT" || name == "HISTORY" || card[8] != '=' {
				continue
			}
			val := strings.TrimSpace(card[10:])
			if idx := strings.Index(val, "/"); idx >= 0 && !strings.HasPrefix(val, "'") {
				val = strings.TrimSpace(val[:idx])
			}
			switch name {
			case "BITPIX":
				bitpix, err = strconv.Atoi(val)
			case "NAXIS":
				naxis, err = strconv.Atoi(val)
			case "BZERO":
				bzero, err = strconv.ParseFloat(val, 64)
			case "BSCALE":
				bscale, err = strconv.ParseFloat(val, 64)
			default:
				if strings.HasPrefix(name, "NAXIS") {
					dims[name], err = strconv.Atoi(val)
				} else {
					// Strings keep only the quoted content, padding
					// trimmed, so a read value re-writes unchanged.
					if strings.HasPrefix(val, "'") {
						if end := strings.Index(val[1:], "'"); end >= 0 {
							val = strings.TrimRight(val[1:1+end], " ")
						}
					}
					extra = append(extra, Card{Name: name, Value: val})
				}
			}
			if err != nil {
				return 0, nil, 0, 0, nil, fmt.Errorf("fits: bad header card '%s': %v", strings.TrimSpace(card), err)
			}
		}
	}

	if naxis < 0 || bitpix == 0 {
		return 0, nil, 0, 0, nil, fmt.Errorf("fits: header missing NAXIS or BITPIX")
	}
	for i := 1; i <= naxis; i++ {
		d, ok := dims[fmt.Sprintf("NAXIS%d", i)]
		if !ok {
			return 0, nil, 0, 0, nil, fmt.Errorf("fits: header missing NAXIS%d", i)
		}
		naxisn = append(naxisn, d)
	}
	return bitpix, naxisn, bzero, bscale, extra, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
