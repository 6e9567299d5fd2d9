package delivery

import (
	"math"
	"slices"
	"time"
)

// Summarize computes mean, min, max and 90th percentile of latencies. An
// empty input yields a Summary whose HasData is false.
func Summarize(latencies []time.Duration) Summary {
	if len(latencies) == 0 {
		return Summary{}
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	var total float64
	for _, d := range sorted {
		total += float64(d)
	}

	return Summary{
		Count: len(sorted),
		Mean:  time.Duration(math.Round(total / float64(len(sorted)))),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P90:   Percentile(sorted, 90),
	}
}

// Percentile returns the p-th percentile (0..100) of sorted using linear
// interpolation between the two closest ranks. sorted must be ascending and
// non-empty.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	v := float64(sorted[lo]) + (float64(sorted[hi])-float64(sorted[lo]))*frac
	return time.Duration(math.Round(v))
}
