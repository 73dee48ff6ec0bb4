package imager

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"skysim/pkg/filters"
	"skysim/pkg/fits"
	"skysim/pkg/grid"
	"skysim/pkg/photom"
	"skysim/pkg/sersic"
	"skysim/pkg/source"
	"skysim/pkg/units"
)

// Config describes an artificial imager. Exactly one calibration mode
// must be given: a registered photometric system name, explicit filter
// widths and effective wavelengths, or per-band instrumental zero
// points. Mixing modes is a configuration error.
type Config struct {
	PhotSystem string             // registered photometric system
	DLam       map[string]float64 // filter widths, angstrom
	LamEff     map[string]float64 // effective wavelengths, angstrom
	ZptInst    map[string]float64 // instrumental zero points

	Diameter          units.Quantity     // aperture diameter; zero value means 10 m
	ReadNoise         float64            // rms read noise, e-
	Gain              float64            // e-/ADU; zero means 1.0
	Efficiency        map[string]float64 // per-band throughput
	UniformEfficiency float64            // used for all bands when Efficiency is nil; zero means 1.0
	Transparency      float64            // atmospheric transparency; zero means 1.0
	Sampling          SamplingPolicy     // zero value means DefaultSamplingPolicy
}

// An ArtImager makes fully artificial observations: counts, smooth
// models, optional background frames, PSF blur, sky, shot and read
// noise, and the calibration back to flux units.
//
// Each ArtImager owns its random generator; it is mutated in place by
// every noise draw.
type ArtImager struct {
	Conv      photom.Converter
	Diameter  units.Quantity
	ReadNoise float64
	Rng       *rand.Rand
	Policy    SamplingPolicy
}

// NewArtImager validates the configuration and builds an imager. A nil
// rng gets a fresh time-seeded generator (not reproducible across runs;
// pass NewRNG(seed) for reproducibility).
func NewArtImager(cfg Config, rng *rand.Rand) (*ArtImager, error) {
	mode, err := resolveMode(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Diameter == (units.Quantity{}) {
		cfg.Diameter = units.Meters(10)
	}
	if cfg.Gain == 0 {
		cfg.Gain = 1.0
	}
	if cfg.Transparency == 0 {
		cfg.Transparency = 1.0
	}
	if cfg.Sampling == (SamplingPolicy{}) {
		cfg.Sampling = DefaultSamplingPolicy()
	}
	eff := cfg.Efficiency
	if eff == nil {
		u := cfg.UniformEfficiency
		if u == 0 {
			u = 1.0
		}
		eff = map[string]float64{}
		for _, b := range mode.Bands() {
			eff[b] = u
		}
	}
	if rng == nil {
		rng = NewTimeRNG()
	}

	radius := cfg.Diameter.Scale(0.5)
	area := radius.Mul(radius).Scale(math.Pi)

	return &ArtImager{
		Conv: photom.Converter{
			Mode:         mode,
			Area:         area,
			Gain:         cfg.Gain,
			Efficiency:   eff,
			Transparency: cfg.Transparency,
		},
		Diameter:  cfg.Diameter,
		ReadNoise: cfg.ReadNoise,
		Rng:       rng,
		Policy:    cfg.Sampling,
	}, nil
}

func resolveMode(cfg Config) (photom.Mode, error) {
	given := 0
	if cfg.PhotSystem != "" {
		given++
	}
	if cfg.ZptInst != nil {
		given++
	}
	if cfg.DLam != nil || cfg.LamEff != nil {
		given++
	}
	if given != 1 {
		return nil, fmt.Errorf("give exactly one of phot_system, (dlam, lam_eff) or zpt_inst (got %d)", given)
	}

	switch {
	case cfg.PhotSystem != "":
		bands, err := filters.System(cfg.PhotSystem)
		if err != nil {
			return nil, err
		}
		m := photom.Radiometric{
			DLam:   map[string]units.Quantity{},
			LamEff: map[string]units.Quantity{},
		}
		for _, b := range bands {
			m.DLam[b.Name] = b.DLam
			m.LamEff[b.Name] = b.LamEff
		}
		return m, nil
	case cfg.ZptInst != nil:
		return photom.Empirical{ZptInst: cfg.ZptInst}, nil
	default:
		if cfg.DLam == nil || cfg.LamEff == nil {
			return nil, fmt.Errorf("must give both dlam and lam_eff")
		}
		m := photom.Radiometric{
			DLam:   map[string]units.Quantity{},
			LamEff: map[string]units.Quantity{},
		}
		for band, w := range cfg.DLam {
			le, ok := cfg.LamEff[band]
			if !ok {
				return nil, fmt.Errorf("dlam has band '%s' but lam_eff does not", band)
			}
			m.DLam[band] = units.Angstroms(w)
			m.LamEff[band] = units.Angstroms(le)
		}
		return m, nil
	}
}

// Filters is the set of legal bandpass names for this imager.
func (im *ArtImager) Filters() []string { return im.Conv.Mode.Bands() }

// Area is the aperture collecting area.
func (im *ArtImager) Area() units.Quantity { return im.Conv.Area }

// ArtOptions tune an artificial observation. SkySB is the constant sky
// surface brightness (mag/arcsec^2); nil means no sky, in which case
// negative source counts are clipped and no magnitude error is
// estimated. BackgroundFile names a FITS image of noise-free counts per
// second to composite under the sources; it is scaled by the exposure
// time and cropped to the source grid at BackgroundOrigin (row, col;
// nil means centered).
type ArtOptions struct {
	SkySB            *float64
	PSF              *grid.Grid
	Boundary         grid.Boundary
	Zpt              float64
	Mask             []bool
	BackgroundFile   string
	BackgroundOrigin *[2]int
}

func DefaultArtOptions() ArtOptions {
	return ArtOptions{Boundary: grid.BoundaryWrap, Zpt: 27}
}

// Observe makes an artificial observation of the source in one bandpass.
func (im *ArtImager) Observe(src source.Source, bandpass string, exptime units.Quantity,
	opts ArtOptions) (*ArtObservation, error) {

	if err := im.Conv.CheckBandpass(bandpass); err != nil {
		return nil, err
	}
	if err := checkSource(src); err != nil {
		return nil, err
	}

	mags, err := src.Magnitudes(bandpass)
	if err != nil {
		return nil, err
	}
	counts, err := im.Conv.MagsToCounts(mags, bandpass, exptime)
	if err != nil {
		return nil, err
	}

	x, y := src.XY()
	srcCounts, err := grid.InjectPoints(x, y, counts, src.XYDim(), opts.Mask)
	if err != nil {
		return nil, err
	}
	if srcCounts, err = im.injectSmoothModel(srcCounts, src, bandpass, exptime, opts.Zpt); err != nil {
		return nil, err
	}

	if opts.BackgroundFile != "" {
		cut, err := im.backgroundCutout(opts.BackgroundFile, exptime, src.XYDim(), opts.BackgroundOrigin)
		if err != nil {
			return nil, err
		}
		if err := srcCounts.Add(cut); err != nil {
			return nil, err
		}
	}

	if srcCounts, err = ApplySeeing(srcCounts, opts.PSF, opts.Boundary); err != nil {
		return nil, err
	}

	skyCounts := 0.0
	var magErr []float64
	if opts.SkySB != nil {
		skyCounts, err = im.Conv.SBToCountsPerPixel(*opts.SkySB, bandpass, exptime, src.PixelScale())
		if err != nil {
			return nil, err
		}
		magErr = MagErrors(counts, skyCounts, im.Conv.Gain, im.ReadNoise)
	} else {
		srcCounts.ClipNegative()
	}

	raw, variance := SynthesizeNoise(srcCounts, skyCounts, im.Conv.Gain, im.ReadNoise, im.Rng, im.Policy)

	cali, err := im.Conv.Calibration(bandpass, exptime, opts.Zpt)
	if err != nil {
		return nil, err
	}
	image := raw.Clone()
	image.AddScalar(-skyCounts)
	image.Scale(cali)

	return &ArtObservation{
		RawCounts:   raw,
		SrcCounts:   srcCounts,
		SkyCounts:   skyCounts,
		Image:       image,
		VarImage:    variance,
		Calibration: cali,
		Zpt:         opts.Zpt,
		Bandpass:    bandpass,
		ExpTimeSec:  exptime.MustIn(units.Seconds(1)),
		MagError:    magErr,
	}, nil
}

// ObserveBackground runs the noise and calibration tail on a
// background-only cutout: no point sources, no smooth model. The
// background file holds noise-free counts per second (a documented
// precondition, not validated here).
func (im *ArtImager) ObserveBackground(bkgFile, bandpass string, exptime units.Quantity,
	xyDim [2]int, pixelScale units.Quantity, opts ArtOptions) (*ArtObservation, error) {

	if err := im.Conv.CheckBandpass(bandpass); err != nil {
		return nil, err
	}
	srcCounts, err := im.backgroundCutout(bkgFile, exptime, xyDim, opts.BackgroundOrigin)
	if err != nil {
		return nil, err
	}
	if srcCounts, err = ApplySeeing(srcCounts, opts.PSF, opts.Boundary); err != nil {
		return nil, err
	}

	skyCounts := 0.0
	if opts.SkySB != nil {
		skyCounts, err = im.Conv.SBToCountsPerPixel(*opts.SkySB, bandpass, exptime, pixelScale)
		if err != nil {
			return nil, err
		}
	} else {
		srcCounts.ClipNegative()
	}

	raw, variance := SynthesizeNoise(srcCounts, skyCounts, im.Conv.Gain, im.ReadNoise, im.Rng, im.Policy)

	cali, err := im.Conv.Calibration(bandpass, exptime, opts.Zpt)
	if err != nil {
		return nil, err
	}
	image := raw.Clone()
	image.AddScalar(-skyCounts)
	image.Scale(cali)

	return &ArtObservation{
		RawCounts:   raw,
		SrcCounts:   srcCounts,
		SkyCounts:   skyCounts,
		Image:       image,
		VarImage:    variance,
		Calibration: cali,
		Zpt:         opts.Zpt,
		Bandpass:    bandpass,
		ExpTimeSec:  exptime.MustIn(units.Seconds(1)),
	}, nil
}

// backgroundCutout loads a background counts-per-second image, scales it
// by the exposure time, and crops it to the observation grid.
func (im *ArtImager) backgroundCutout(file string, exptime units.Quantity, dim [2]int,
	origin *[2]int) (*grid.Grid, error) {

	img, err := fits.ReadFile(file)
	if err != nil {
		return nil, err
	}
	bg, err := img.Grid()
	if err != nil {
		return nil, err
	}
	bg.Scale(exptime.MustIn(units.Seconds(1)))

	ori := bg.CenteredOrigin(dim)
	if origin != nil {
		ori = *origin
	}
	cut, err := bg.Cutout(ori, dim)
	if err != nil {
		return nil, fmt.Errorf("background '%s': %v", file, err)
	}
	return cut, nil
}

// injectSmoothModel adds the source's smooth component, if any, with its
// amplitude converted to counts per pixel for this instrument and
// exposure.
func (im *ArtImager) injectSmoothModel(img *grid.Grid, src source.Source, bandpass string,
	exptime units.Quantity, zpt float64) (*grid.Grid, error) {

	ss, ok := smoothModelOf(src)
	if !ok {
		return img, nil
	}
	mag, err := integratedMag(ss, bandpass)
	if err != nil {
		return nil, err
	}
	muE, _, name := ss.MagToImageAmplitude(mag, zpt)
	ampCounts, err := im.Conv.SBToCountsPerPixel(muE, bandpass, exptime, src.PixelScale())
	if err != nil {
		return nil, err
	}
	model := ss.SmoothModel()
	if err := model.SetParameter(name, ampCounts); err != nil {
		return nil, err
	}
	addProfile(img, model)
	return img, nil
}

// A Galaxy is one catalog entry for InjectGalaxies: a Sersic component
// at a pixel position with a total magnitude in the observed band.
type Galaxy struct {
	X, Y       float64 // center, pixels
	Mag        float64 // total magnitude
	REffArcsec float64 // effective radius on the sky
	N          float64 // Sersic index
	Ellip      float64
	Theta      float64 // position angle, radians
}

// InjectGalaxies adds a catalog of Sersic galaxies, in counts, to an
// image. A nil image allocates a fresh grid of shape dim.
func (im *ArtImager) InjectGalaxies(img *grid.Grid, objs []Galaxy, bandpass string,
	exptime units.Quantity, zpt float64, pixelScale units.Quantity, dim [2]int) (*grid.Grid, error) {

	if img == nil {
		img = grid.NewShape(dim)
	}
	scaleArcsec := pixelScale.MustIn(units.Arcsec(1))
	for _, obj := range objs {
		muE, _, _ := sersic.MagToImageAmplitude(obj.Mag, units.Arcsec(obj.REffArcsec),
			obj.N, obj.Ellip, zpt, pixelScale)
		ampCounts, err := im.Conv.SBToCountsPerPixel(muE, bandpass, exptime, pixelScale)
		if err != nil {
			return nil, err
		}
		model := sersic.Sersic2D{
			Amplitude: ampCounts,
			X0:        obj.X,
			Y0:        obj.Y,
			REff:      obj.REffArcsec / scaleArcsec,
			N:         obj.N,
			Ellip:     obj.Ellip,
			Theta:     obj.Theta,
		}
		addProfile(img, &model)
	}
	return img, nil
}
