package main

import (
	"flag"
	"fmt"

	"github.com/charmbracelet/log"

	"skysim/pkg/grid"
	"skysim/pkg/imager"
	"skysim/pkg/psf"
	"skysim/pkg/units"
)

var (
	fScenarioFile string
	fOutputPrefix string
	fSeed         uint64
	fIdealToo     bool
	fVerbose      bool
)

func init() {
	flag.StringVar(&fScenarioFile, "scenario", "scenario.yaml", "name of the YAML scenario file")
	flag.StringVar(&fOutputPrefix, "o", "", "output filename prefix (overrides scenario)")
	flag.Uint64Var(&fSeed, "seed", 0, "random seed (overrides scenario)")
	flag.BoolVar(&fIdealToo, "ideal", false, "also write the noise-free ideal image")
	flag.BoolVar(&fVerbose, "v", false, "debug logging")
}

func main() {
	flag.Parse()
	if fVerbose {
		log.SetLevel(log.DebugLevel)
	}

	s, err := LoadScenario(fScenarioFile)
	if err != nil {
		log.Fatal("could not load scenario", "err", err)
	}

	// Override the scenario file with command line args, if relevant
	if fOutputPrefix != "" {
		s.Output.Prefix = fOutputPrefix
	}
	if fSeed != 0 {
		s.Instrument.Seed = fSeed
	}

	if err := run(s); err != nil {
		log.Fatal("observation failed", "err", err)
	}
}

func run(s Scenario) error {
	art, err := s.BuildImager()
	if err != nil {
		return err
	}
	log.Info("instrument ready", "filters", art.Filters(),
		"area_m2", art.Area().Value(), "read_noise", art.ReadNoise)

	var kernel *grid.Grid
	if s.Observation.PSFFwhmPixels > 0 {
		kernel, err = psf.Moffat(s.Observation.PSFFwhmPixels, 4.765, s.Observation.PSFSide)
		if err != nil {
			return err
		}
		log.Debug("psf built", "fwhm_pix", s.Observation.PSFFwhmPixels, "side", s.Observation.PSFSide)
	}

	exptime := units.Seconds(s.Observation.ExptimeS)
	band := s.Observation.Bandpass

	if s.Observation.Type == "background" {
		opts := imager.DefaultArtOptions()
		opts.SkySB = s.Observation.SkySB
		opts.PSF = kernel
		opts.Boundary = grid.Boundary(s.Observation.Boundary)
		opts.Zpt = s.Observation.Zpt
		dim := [2]int{s.Source.XYDim[0], s.Source.XYDim[1]}
		obs, err := art.ObserveBackground(s.Observation.BackgroundFile, band, exptime,
			dim, units.Arcsec(s.Source.PixelScaleArcsec), opts)
		if err != nil {
			return err
		}
		return writeArtProducts(s, obs)
	}

	src, err := s.BuildSource()
	if err != nil {
		return err
	}
	log.Info("source built", "stars", src.NumStars(), "xy_dim", src.XYDim(),
		"smooth", src.SmoothModel() != nil)

	if fIdealToo || s.Observation.Type == "ideal" {
		opts := imager.DefaultIdealOptions()
		opts.PSF = kernel
		opts.Boundary = grid.Boundary(s.Observation.Boundary)
		opts.Zpt = s.Observation.Zpt
		obs, err := imager.IdealImager{}.Observe(src, band, opts)
		if err != nil {
			return err
		}
		name := s.Output.Prefix + "-ideal.fits"
		if err := obs.ToFITS(name, "image", true); err != nil {
			return err
		}
		log.Info("ideal image written", "file", name, "stats", obs.Image.Stats())
		if s.Observation.Type == "ideal" {
			return maybePNG(s, obs.Image, "ideal")
		}
	}

	opts := imager.DefaultArtOptions()
	opts.SkySB = s.Observation.SkySB
	opts.PSF = kernel
	opts.Boundary = grid.Boundary(s.Observation.Boundary)
	opts.Zpt = s.Observation.Zpt
	opts.BackgroundFile = s.Observation.BackgroundFile
	if len(s.Observation.BackgroundOrigin) == 2 {
		ori := [2]int{s.Observation.BackgroundOrigin[0], s.Observation.BackgroundOrigin[1]}
		opts.BackgroundOrigin = &ori
	}

	obs, err := art.Observe(src, band, exptime, opts)
	if err != nil {
		return err
	}
	return writeArtProducts(s, obs)
}

func writeArtProducts(s Scenario, obs *imager.ArtObservation) error {
	log.Info("observation synthesized", "bandpass", obs.Bandpass,
		"sky_counts", obs.SkyCounts, "calibration", obs.Calibration,
		"stats", obs.Image.Stats())

	for _, attr := range []string{"image", "var_image", "raw_counts"} {
		name := fmt.Sprintf("%s-%s.fits", s.Output.Prefix, attr)
		if err := obs.ToFITS(name, attr, true); err != nil {
			return err
		}
		log.Debug("fits written", "file", name)
	}
	if err := obs.ToGob(s.Output.Prefix + ".obs.gob"); err != nil {
		return err
	}
	return maybePNG(s, obs.Image, "image")
}

func maybePNG(s Scenario, g *grid.Grid, label string) error {
	if !s.Output.PNG {
		return nil
	}
	name := fmt.Sprintf("%s-%s.png", s.Output.Prefix, label)
	if err := g.ToPNG(s.Output.Prefix, name); err != nil {
		return err
	}
	log.Info("preview written", "file", name)
	return nil
}
