package queue

import (
	"math/rand"

	"github.com/osa030/harmony/internal/domain/track"
)

// Shuffle returns a uniformly random permutation of seq using Fisher-Yates.
// seq is not modified.
func Shuffle(seq []track.Track, rng *rand.Rand) []track.Track {
	out := make([]track.Track, len(seq))
	copy(out, seq)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
