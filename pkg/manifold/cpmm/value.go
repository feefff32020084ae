package cpmm

import (
	"fmt"
	"math"
)

// Pseudo-numeric markets display a value between min and max but trade as a
// binary market. On a log scale the value is shifted so that min maps to 1:
//
//	prob = log10(value - min + 1) / log10(max - min + 1)

// ValueToProbability maps a resolution value of a pseudo-numeric market back
// to the probability reported when resolving it. Values outside [min, max]
// are rejected rather than clamped.
func ValueToProbability(value, min, max float64, isLogScale bool) (float64, error) {
	if err := checkBounds(min, max); err != nil {
		return 0, err
	}
	if math.IsNaN(value) {
		return 0, fmt.Errorf("%w: resolution value is NaN", ErrDomain)
	}

	if isLogScale {
		shifted := value - min + 1
		if shifted <= 0 {
			return 0, fmt.Errorf("%w: log-scale value %v shifts to non-positive %v", ErrDomain, value, shifted)
		}
		if value < min || value > max {
			return 0, fmt.Errorf("%w: value %v outside [%v, %v]", ErrDomain, value, min, max)
		}
		return math.Log10(shifted) / math.Log10(max-min+1), nil
	}

	if value < min || value > max {
		return 0, fmt.Errorf("%w: value %v outside [%v, %v]", ErrDomain, value, min, max)
	}
	return (value - min) / (max - min), nil
}

// ProbabilityToValue is the forward mapping used to display a pseudo-numeric
// market's probability as a value.
func ProbabilityToValue(prob, min, max float64, isLogScale bool) (float64, error) {
	if err := checkBounds(min, max); err != nil {
		return 0, err
	}
	if !(prob >= 0 && prob <= 1) {
		return 0, fmt.Errorf("%w: probability %v outside [0, 1]", ErrDomain, prob)
	}
	if isLogScale {
		return math.Pow(max-min+1, prob) + min - 1, nil
	}
	return min + prob*(max-min), nil
}

// SnapshotValueToProbability applies ValueToProbability with the bounds and
// scale recorded on the snapshot.
func SnapshotValueToProbability(s Snapshot, value float64) (float64, error) {
	lo, hi, err := s.Bounds()
	if err != nil {
		return 0, err
	}
	return ValueToProbability(value, lo, hi, s.IsLogScale)
}

func checkBounds(min, max float64) error {
	if math.IsNaN(min) || math.IsNaN(max) || min >= max {
		return fmt.Errorf("%w: bounds require min < max, got min=%v max=%v", ErrDomain, min, max)
	}
	return nil
}
