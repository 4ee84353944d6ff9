package match

import (
	"math"
	"math/rand/v2"

	"github.com/joergh/scubywasm/internal/model"
)

// deriveSeeds draws n 32-bit agent seeds from rng, in order. Called before
// any pose generation so that a match's full random sequence — agent seeds,
// then initial poses — is reproducible end to end from one master seed.
func deriveSeeds(rng *rand.Rand, n int) []uint32 {
	seeds := make([]uint32, n)
	for i := range seeds {
		// [1, 2^32) inclusive-exclusive, matching the reference's randint(1, 2^32).
		seeds[i] = uint32(1 + rng.Uint64N(uint64(1)<<32-1))
	}
	return seeds
}

// generatePoses lays n poses out on a jittered grid and shuffles them, all
// draws taken from rng in a fixed order so that a seed reproduces the whole
// initial configuration bit-for-bit.
func generatePoses(rng *rand.Rand, n int) []model.Pose {
	g := int(math.Ceil(math.Sqrt(float64(n))))
	all := make([]model.Pose, 0, g*g)
	for i := 0; i < g; i++ {
		for j := 0; j < g; j++ {
			x := (float64(i) + uniform(rng, 0.4, 0.6)) / float64(g)
			y := (float64(j) + uniform(rng, 0.4, 0.6)) / float64(g)
			heading := uniform(rng, 0, 360)
			all = append(all, model.Pose{X: float32(x), Y: float32(y), Heading: float32(heading)})
		}
	}
	shuffle(rng, all)
	return all[:n]
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// shuffle is a Fisher-Yates shuffle over rng, matching the draw order a
// random.shuffle call would make: for i from len-1 down to 1, swap with a
// uniformly chosen j in [0,i].
func shuffle(rng *rand.Rand, poses []model.Pose) {
	for i := len(poses) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		poses[i], poses[j] = poses[j], poses[i]
	}
}

// NewRNG constructs the single seeded generator a match uses for every
// random draw in construction: agent seed derivation followed by initial
// pose generation.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
