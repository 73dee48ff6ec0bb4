package imager

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"skysim/pkg/grid"
)

// SamplingPolicy decides when exact Poisson sampling gives way to a
// Normal approximation. Poisson samplers count events in an integer, so
// means near the integer-width limit are unreliable; above the threshold
// we draw Normal(mean, sqrt(mean)) instead, which at such means is
// indistinguishable. The approximation is a numeric-stability escape
// hatch, not the primary model.
type SamplingPolicy struct {
	NormalApproxAbove float64
}

// DefaultSamplingPolicy uses exact Poisson sampling everywhere the
// sampler's integer arithmetic is trustworthy.
func DefaultSamplingPolicy() SamplingPolicy {
	return SamplingPolicy{NormalApproxAbove: float64(math.MaxInt64) / 2}
}

func (p SamplingPolicy) draw(mean float64, rng *rand.Rand) float64 {
	if mean <= 0 {
		return 0
	}
	if mean > p.NormalApproxAbove {
		return distuv.Normal{Mu: mean, Sigma: math.Sqrt(mean), Src: rng}.Rand()
	}
	return distuv.Poisson{Lambda: mean, Src: rng}.Rand()
}

// SynthesizeNoise draws a noisy detector realization of a noise-free
// source-count image. The Poisson process happens at the electron level:
// expected electrons are (source + sky) * gain, the draw is divided by
// gain to return to ADU, and read noise (rms electrons) adds independent
// zero-mean Gaussian noise of sigma readNoise/gain. The variance image
// is rawCounts + (readNoise/gain)^2, using the noisy counts as the
// Poisson variance estimator.
func SynthesizeNoise(srcCounts *grid.Grid, skyPerPixel, gain, readNoise float64,
	rng *rand.Rand, policy SamplingPolicy) (raw, variance *grid.Grid) {

	raw = grid.New(srcCounts.Dx(), srcCounts.Dy())
	for y := 0; y < raw.Dy(); y++ {
		for x := 0; x < raw.Dx(); x++ {
			mean := (srcCounts.Get(x, y) + skyPerPixel) * gain
			raw.Set(x, y, policy.draw(mean, rng)/gain)
		}
	}

	if readNoise > 0 {
		rn := distuv.Normal{Mu: 0, Sigma: readNoise / gain, Src: rng}
		for y := 0; y < raw.Dy(); y++ {
			for x := 0; x < raw.Dx(); x++ {
				raw.Set(x, y, raw.Get(x, y)+rn.Rand())
			}
		}
	}

	variance = raw.Clone()
	variance.AddScalar(math.Pow(readNoise/gain, 2))
	return raw, variance
}

// MagErrors estimates the per-star magnitude error from the star's
// expected counts, the sky level and the detector noise terms. Only
// meaningful when the sky level is known.
func MagErrors(starCounts []float64, skyCounts, gain, readNoise float64) []float64 {
	out := make([]float64, len(starCounts))
	for i, c := range starCounts {
		ce := c * gain // electrons
		ns := math.Sqrt(readNoise*readNoise+skyCounts*gain+ce) / ce
		out[i] = 2.5 * math.Log10(1+ns)
	}
	return out
}
