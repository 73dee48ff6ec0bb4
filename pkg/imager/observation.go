package imager

import (
	"encoding/gob"
	"fmt"
	"os"

	"skysim/pkg/fits"
	"skysim/pkg/grid"
)

// An IdealObservation is the noise-free reference image: calibrated flux
// at the zero point, no detector statistics. Treat it as immutable once
// produced.
type IdealObservation struct {
	Image    *grid.Grid
	Zpt      float64
	Bandpass string
}

// An ArtObservation is a full artificial observation: the noisy raw
// detector counts, the pre-noise source counts, the sky level, the
// calibrated image and its variance, and the calibration bookkeeping.
// Treat it as immutable once produced.
type ArtObservation struct {
	RawCounts   *grid.Grid
	SrcCounts   *grid.Grid
	SkyCounts   float64 // counts per pixel
	Image       *grid.Grid
	VarImage    *grid.Grid
	Calibration float64
	Zpt         float64
	Bandpass    string
	ExpTimeSec  float64
	MagError    []float64 // per star; nil when no sky level was given
}

func (o *IdealObservation) Copy() *IdealObservation {
	out := *o
	out.Image = o.Image.Clone()
	return &out
}

func (o *ArtObservation) Copy() *ArtObservation {
	out := *o
	out.RawCounts = o.RawCounts.Clone()
	out.SrcCounts = o.SrcCounts.Clone()
	out.Image = o.Image.Clone()
	out.VarImage = o.VarImage.Clone()
	if o.MagError != nil {
		out.MagError = append([]float64(nil), o.MagError...)
	}
	return &out
}

// ToGob serializes the observation to a file; FromGob functions restore
// it. The round trip is identity.
func (o *IdealObservation) ToGob(fileName string) error { return writeGob(fileName, o) }
func (o *ArtObservation) ToGob(fileName string) error   { return writeGob(fileName, o) }

func IdealObservationFromGob(fileName string) (*IdealObservation, error) {
	var o IdealObservation
	if err := readGob(fileName, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func ArtObservationFromGob(fileName string) (*ArtObservation, error) {
	var o ArtObservation
	if err := readGob(fileName, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func writeGob(fileName string, v interface{}) error {
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", fileName, err)
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(v)
}

func readGob(fileName string, v interface{}) error {
	f, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("open '%s': %v", fileName, err)
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}

// ToFITS writes one of the observation's image attributes to a FITS
// file. Extra header cards pass through to the file.
func (o *IdealObservation) ToFITS(fileName, imageType string, overwrite bool, cards ...fits.Card) error {
	g, err := o.imageAttr(imageType)
	if err != nil {
		return err
	}
	cards = append(cards, obsCards(o.Bandpass, o.Zpt)...)
	return fits.WriteFile(fileName, fits.FromGrid(g, cards...), overwrite)
}

func (o *ArtObservation) ToFITS(fileName, imageType string, overwrite bool, cards ...fits.Card) error {
	g, err := o.imageAttr(imageType)
	if err != nil {
		return err
	}
	cards = append(cards, obsCards(o.Bandpass, o.Zpt)...)
	cards = append(cards, fits.Card{Name: "EXPTIME", Value: o.ExpTimeSec, Comment: "exposure time (s)"})
	return fits.WriteFile(fileName, fits.FromGrid(g, cards...), overwrite)
}

func (o *IdealObservation) imageAttr(name string) (*grid.Grid, error) {
	switch name {
	case "image":
		return o.Image, nil
	}
	return nil, fmt.Errorf("ideal observation has no image attribute '%s'", name)
}

func (o *ArtObservation) imageAttr(name string) (*grid.Grid, error) {
	switch name {
	case "image":
		return o.Image, nil
	case "raw_counts":
		return o.RawCounts, nil
	case "src_counts":
		return o.SrcCounts, nil
	case "var_image":
		return o.VarImage, nil
	}
	return nil, fmt.Errorf("artificial observation has no image attribute '%s'", name)
}

func obsCards(bandpass string, zpt float64) []fits.Card {
	return []fits.Card{
		{Name: "BANDPASS", Value: bandpass, Comment: "observation filter"},
		{Name: "ZPT", Value: zpt, Comment: "magnitude zero point"},
	}
}
