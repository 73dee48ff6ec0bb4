package main

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/exp/rand"
	"gopkg.in/yaml.v2"

	"skysim/pkg/imager"
	"skysim/pkg/sersic"
	"skysim/pkg/source"
	"skysim/pkg/units"
)

/* Example scenario file ...

instrument:
  phot_system: LSST
  diameter_m: 8.4
  gain: 3.0
  read_noise: 5.0
  transparency: 0.9
  seed: 42

source:
  xy_dim: [501, 501]
  pixel_scale_arcsec: 0.2
  stars:
    - {x: 250, y: 250, mags: {g: 20.0}}
  sprinkle:
    n: 2000
    mag: 24.5
    mag_spread: 2.0
  smooth:
    r_eff_arcsec: 30
    n: 0.8
    ellip: 0.3
    theta_deg: 45
    total_mags: {g: 14.2}

observation:
  type: artificial
  bandpass: g
  exptime_s: 300
  sky_sb: 21.5
  psf_fwhm_pixels: 3.5
  psf_side: 41
  zpt: 27

output:
  prefix: mock
  png: true

*/

type InstrumentConfig struct {
	PhotSystem   string             `yaml:"phot_system"`
	DLam         map[string]float64 `yaml:"dlam"`
	LamEff       map[string]float64 `yaml:"lam_eff"`
	ZptInst      map[string]float64 `yaml:"zpt_inst"`
	DiameterM    float64            `yaml:"diameter_m"`
	Gain         float64            `yaml:"gain"`
	ReadNoise    float64            `yaml:"read_noise"`
	Efficiency   map[string]float64 `yaml:"efficiency"`
	Transparency float64            `yaml:"transparency"`
	Seed         uint64             `yaml:"seed"`
}

type StarConfig struct {
	X    float64            `yaml:"x"`
	Y    float64            `yaml:"y"`
	Mags map[string]float64 `yaml:"mags"`
}

type SprinkleConfig struct {
	N         int     `yaml:"n"`
	Mag       float64 `yaml:"mag"`
	MagSpread float64 `yaml:"mag_spread"`
}

type SmoothConfig struct {
	REffArcsec float64            `yaml:"r_eff_arcsec"`
	N          float64            `yaml:"n"`
	Ellip      float64            `yaml:"ellip"`
	ThetaDeg   float64            `yaml:"theta_deg"`
	TotalMags  map[string]float64 `yaml:"total_mags"`
}

type SourceConfig struct {
	XYDim            []int           `yaml:"xy_dim"`
	PixelScaleArcsec float64         `yaml:"pixel_scale_arcsec"`
	Stars            []StarConfig    `yaml:"stars"`
	Sprinkle         *SprinkleConfig `yaml:"sprinkle"`
	Smooth           *SmoothConfig   `yaml:"smooth"`
}

type ObservationConfig struct {
	Type             string   `yaml:"type"` // ideal, artificial or background
	Bandpass         string   `yaml:"bandpass"`
	ExptimeS         float64  `yaml:"exptime_s"`
	SkySB            *float64 `yaml:"sky_sb"`
	PSFFwhmPixels    float64  `yaml:"psf_fwhm_pixels"`
	PSFSide          int      `yaml:"psf_side"`
	Boundary         string   `yaml:"boundary"`
	Zpt              float64  `yaml:"zpt"`
	BackgroundFile   string   `yaml:"background_file"`
	BackgroundOrigin []int    `yaml:"background_origin"`
}

type OutputConfig struct {
	Prefix string `yaml:"prefix"`
	PNG    bool   `yaml:"png"`
}

type Scenario struct {
	Instrument  InstrumentConfig  `yaml:"instrument"`
	Source      SourceConfig      `yaml:"source"`
	Observation ObservationConfig `yaml:"observation"`
	Output      OutputConfig      `yaml:"output"`
}

func LoadScenario(filename string) (Scenario, error) {
	s := Scenario{}

	contents, err := os.ReadFile(filename)
	if err != nil {
		return s, fmt.Errorf("read '%s': %v", filename, err)
	}
	if err := yaml.Unmarshal(contents, &s); err != nil {
		return s, fmt.Errorf("parse '%s': %v", filename, err)
	}

	return s, s.FinalizeScenario()
}

// FinalizeScenario does sanity checks and fills in defaults.
func (s *Scenario) FinalizeScenario() error {
	if s.Observation.Type == "" {
		s.Observation.Type = "artificial"
	}
	switch s.Observation.Type {
	case "ideal", "artificial", "background":
	default:
		return fmt.Errorf("no observation type named '%s'", s.Observation.Type)
	}
	if s.Observation.Bandpass == "" {
		return fmt.Errorf("observation needs a bandpass")
	}
	if s.Observation.Zpt == 0 {
		s.Observation.Zpt = 27
	}
	if s.Observation.Boundary == "" {
		s.Observation.Boundary = "wrap"
	}
	if s.Observation.PSFSide == 0 {
		s.Observation.PSFSide = 41
	}
	if len(s.Source.XYDim) == 1 {
		s.Source.XYDim = []int{s.Source.XYDim[0], s.Source.XYDim[0]}
	}
	if len(s.Source.XYDim) != 2 && s.Observation.Type != "background" {
		return fmt.Errorf("source xy_dim must be one or two integers, got %v", s.Source.XYDim)
	}
	if s.Source.PixelScaleArcsec == 0 {
		s.Source.PixelScaleArcsec = 0.2
	}
	if s.Output.Prefix == "" {
		s.Output.Prefix = "mock"
	}
	return nil
}

// BuildImager turns the instrument block into an ArtImager. A zero seed
// means a time-seeded generator.
func (s *Scenario) BuildImager() (*imager.ArtImager, error) {
	var rng *rand.Rand
	if s.Instrument.Seed != 0 {
		rng = imager.NewRNG(s.Instrument.Seed)
	}
	var diameter units.Quantity
	if s.Instrument.DiameterM != 0 {
		diameter = units.Meters(s.Instrument.DiameterM)
	}
	return imager.NewArtImager(imager.Config{
		PhotSystem:   s.Instrument.PhotSystem,
		DLam:         s.Instrument.DLam,
		LamEff:       s.Instrument.LamEff,
		ZptInst:      s.Instrument.ZptInst,
		Diameter:     diameter,
		ReadNoise:    s.Instrument.ReadNoise,
		Gain:         s.Instrument.Gain,
		Efficiency:   s.Instrument.Efficiency,
		Transparency: s.Instrument.Transparency,
	}, rng)
}

// BuildSource turns the source block into a Field. The sprinkle block
// scatters extra stars uniformly over the grid, seeded alongside the
// instrument so a scenario reproduces end to end.
func (s *Scenario) BuildSource() (*source.Field, error) {
	dim := [2]int{s.Source.XYDim[0], s.Source.XYDim[1]}
	pixelScale := units.Arcsec(s.Source.PixelScaleArcsec)

	var xs, ys []float64
	mags := map[string][]float64{}
	for _, st := range s.Source.Stars {
		xs = append(xs, st.X)
		ys = append(ys, st.Y)
		for band, m := range st.Mags {
			mags[band] = append(mags[band], m)
		}
	}

	if sp := s.Source.Sprinkle; sp != nil && sp.N > 0 {
		// Same seed policy as the instrument: 0 means time-seeded, so an
		// unseeded scenario gets a fresh sprinkle on every run.
		rng := imager.NewTimeRNG()
		if s.Instrument.Seed != 0 {
			rng = imager.NewRNG(s.Instrument.Seed + 1)
		}
		band := s.Observation.Bandpass
		for i := 0; i < sp.N; i++ {
			xs = append(xs, rng.Float64()*float64(dim[0]-1))
			ys = append(ys, rng.Float64()*float64(dim[1]-1))
			mags[band] = append(mags[band], sp.Mag+(rng.Float64()-0.5)*sp.MagSpread)
		}
	}

	var smooth *source.SmoothComponent
	if sm := s.Source.Smooth; sm != nil {
		smooth = &source.SmoothComponent{
			Profile: &sersic.Sersic2D{
				X0:    float64(dim[0] / 2),
				Y0:    float64(dim[1] / 2),
				REff:  sm.REffArcsec / s.Source.PixelScaleArcsec,
				N:     sm.N,
				Ellip: sm.Ellip,
				Theta: sm.ThetaDeg * math.Pi / 180,
			},
			REff:      units.Arcsec(sm.REffArcsec),
			TotalMags: sm.TotalMags,
		}
	}

	return source.NewField(xs, ys, mags, dim, pixelScale, smooth)
}
