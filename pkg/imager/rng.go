package imager

import (
	"time"

	"golang.org/x/exp/rand"
)

// NewRNG returns a generator seeded with seed. Every noise draw mutates
// the generator in place; callers wanting reproducible observations must
// build each run from the same seed.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewTimeRNG returns a time-seeded generator. Draws from it are not
// reproducible across process restarts.
func NewTimeRNG() *rand.Rand {
	return NewRNG(uint64(time.Now().UnixNano()))
}
