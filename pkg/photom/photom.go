// Package photom converts between magnitudes, physical fluxes and
// detector counts. A Converter runs in exactly one of two calibration
// modes: radiometric (filter wavelengths + telescope throughput) or
// empirical (per-band instrumental zero points).
package photom

import (
	"fmt"
	"math"
	"sort"

	"skysim/pkg/units"
)

// ABZeroPoint is the AB magnitude system zero point (cgs).
const ABZeroPoint = 48.6

// FnuFromABMag converts an AB magnitude into flux density, in
// erg s^-1 Hz^-1 cm^-2.
func FnuFromABMag(mag float64) units.Quantity {
	fnu := math.Pow(10, (mag+ABZeroPoint)/(-2.5))
	return units.Ergs(fnu).Div(units.Seconds(1)).Div(units.Hertz(1)).Div(units.SquareCentimeters(1))
}

// Mode is the calibration mode tag. Exactly one mode is active per
// Converter; downstream methods dispatch on the tag rather than probing
// which optional fields were set.
type Mode interface {
	Bands() []string
	hasBand(bandpass string) bool
}

// Radiometric calibrates from first principles: filter effective
// wavelength and width, aperture area and throughput.
type Radiometric struct {
	DLam   map[string]units.Quantity // filter width per band
	LamEff map[string]units.Quantity // effective wavelength per band
}

func (r Radiometric) Bands() []string              { return sortedKeysQ(r.DLam) }
func (r Radiometric) hasBand(bandpass string) bool { _, ok := r.DLam[bandpass]; return ok }

// Empirical calibrates from measured instrumental zero points: the
// magnitude giving one count per second in each band.
type Empirical struct {
	ZptInst map[string]float64
}

func (e Empirical) Bands() []string              { return sortedKeysF(e.ZptInst) }
func (e Empirical) hasBand(bandpass string) bool { _, ok := e.ZptInst[bandpass]; return ok }

// A Converter holds the instrument state needed to turn magnitudes into
// ADU counts and back.
type Converter struct {
	Mode         Mode
	Area         units.Quantity     // aperture collecting area
	Gain         float64            // e- per ADU
	Efficiency   map[string]float64 // per-band throughput factor
	Transparency float64            // atmospheric transparency
}

func (c *Converter) CheckBandpass(bandpass string) error {
	if c.Mode == nil || !c.Mode.hasBand(bandpass) {
		return fmt.Errorf("'%s' filter properties were not provided", bandpass)
	}
	return nil
}

func (c *Converter) efficiency(bandpass string) float64 {
	if c.Efficiency == nil {
		return 1.0
	}
	if e, ok := c.Efficiency[bandpass]; ok {
		return e
	}
	return 1.0
}

// MagToCounts converts an AB magnitude into expected ADU counts over an
// exposure. Radiometric mode goes magnitude -> flux density -> photon
// flux -> photo-electrons -> ADU; every unit conversion is checked and a
// non-dimensionless count is a fatal internal error. Empirical mode is
// counts = 10^(0.4 (zptInst - mag)) * exptime.
func (c *Converter) MagToCounts(mag float64, bandpass string, exptime units.Quantity) (float64, error) {
	if err := c.CheckBandpass(bandpass); err != nil {
		return 0, err
	}
	switch m := c.Mode.(type) {
	case Radiometric:
		fnu := FnuFromABMag(mag)
		photonFlux := m.DLam[bandpass].Div(m.LamEff[bandpass]).Mul(fnu).Div(units.PlanckH)
		counts := photonFlux.Mul(c.Area).Mul(exptime).
			MustDimensionless("mag to counts")
		counts *= c.efficiency(bandpass) * c.Transparency // now in e-
		return counts / c.Gain, nil
	case Empirical:
		tSec := exptime.MustIn(units.Seconds(1))
		return math.Pow(10, 0.4*(m.ZptInst[bandpass]-mag)) * tSec, nil
	}
	return 0, fmt.Errorf("unknown calibration mode %T", c.Mode)
}

// MagsToCounts is MagToCounts over a per-star magnitude vector.
func (c *Converter) MagsToCounts(mags []float64, bandpass string, exptime units.Quantity) ([]float64, error) {
	if err := c.CheckBandpass(bandpass); err != nil {
		return nil, err
	}
	counts := make([]float64, len(mags))
	for i, m := range mags {
		v, err := c.MagToCounts(m, bandpass, exptime)
		if err != nil {
			return nil, err
		}
		counts[i] = v
	}
	return counts, nil
}

// SBToCountsPerPixel converts a constant surface brightness (AB mag per
// square arcsec) into ADU counts per pixel, given the pixel scale.
func (c *Converter) SBToCountsPerPixel(sb float64, bandpass string, exptime,
	pixelScale units.Quantity) (float64, error) {

	if err := c.CheckBandpass(bandpass); err != nil {
		return 0, err
	}
	switch m := c.Mode.(type) {
	case Radiometric:
		fnuPerSqArcsec := FnuFromABMag(sb).Div(units.Arcsec(1).Pow(2))
		lamEff := m.LamEff[bandpass]
		eLam := units.PlanckH.Mul(units.LightSpeed).Div(lamEff) // photon energy
		flamPerSqArcsec := fnuPerSqArcsec.Mul(units.LightSpeed).Div(lamEff.Pow(2))
		flamPerPixel := flamPerSqArcsec.Mul(pixelScale.Pow(2))
		photonFluxPerPixel := flamPerPixel.Mul(m.DLam[bandpass]).Div(eLam)
		counts := photonFluxPerPixel.Mul(exptime).Mul(c.Area).
			MustDimensionless("surface brightness to counts per pixel")
		counts *= c.efficiency(bandpass) * c.Transparency // now in e-
		return counts / c.Gain, nil
	case Empirical:
		tSec := exptime.MustIn(units.Seconds(1))
		return math.Pow(10, 0.4*(m.ZptInst[bandpass]-sb)) * tSec, nil
	}
	return 0, fmt.Errorf("unknown calibration mode %T", c.Mode)
}

// Calibration returns the multiplicative factor converting raw detector
// counts into the calibrated image at the output zero point zpt.
func (c *Converter) Calibration(bandpass string, exptime units.Quantity, zpt float64) (float64, error) {
	if err := c.CheckBandpass(bandpass); err != nil {
		return 0, err
	}
	tSec := exptime.MustIn(units.Seconds(1))
	switch m := c.Mode.(type) {
	case Radiometric:
		dlamOverLam := m.DLam[bandpass].Div(m.LamEff[bandpass]).
			MustDimensionless("filter width over effective wavelength")
		hErgS := units.PlanckH.MustIn(units.Ergs(1).Mul(units.Seconds(1)))
		areaCm2 := c.Area.MustIn(units.SquareCentimeters(1))
		cali := math.Pow(10, 0.4*zpt) * math.Pow(10, 0.4*ABZeroPoint) / (dlamOverLam / hErgS)
		cali /= tSec
		cali /= areaCm2
		cali /= c.efficiency(bandpass) * c.Transparency
		cali *= c.Gain
		return cali, nil
	case Empirical:
		return math.Pow(10, 0.4*(zpt-m.ZptInst[bandpass])) / tSec, nil
	}
	return 0, fmt.Errorf("unknown calibration mode %T", c.Mode)
}

func sortedKeysQ(m map[string]units.Quantity) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysF(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
