package journey

import (
	"math"
	"time"
)

// AttributionModel names one of spec §4.11's credit-assignment strategies.
type AttributionModel string

const (
	ModelLastTouch     AttributionModel = "last_touch"
	ModelFirstTouch    AttributionModel = "first_touch"
	ModelLinear        AttributionModel = "linear"
	ModelTimeDecay     AttributionModel = "time_decay"
	ModelPositionBased AttributionModel = "position_based"
)

const timeDecayHalfLife = 7 * 24 * time.Hour

// Credit pairs a touchpoint with its attributed share of conversion credit.
// Shares across one Attribute call sum to 1.
type Credit struct {
	Touchpoint Touchpoint
	Share      float64
}

// Attribute splits credit for a conversion at time T across touchpoints
// using the named model, per spec §4.11. touchpoints should already be
// windowed to T (see UserJourney.AttributedTouchpoints) and sorted by
// timestamp ascending.
func Attribute(touchpoints []Touchpoint, conversionAt time.Time, model AttributionModel) []Credit {
	if len(touchpoints) == 0 {
		return nil
	}
	switch model {
	case ModelLastTouch:
		return lastTouch(touchpoints)
	case ModelFirstTouch:
		return firstTouch(touchpoints)
	case ModelLinear:
		return linear(touchpoints)
	case ModelTimeDecay:
		return timeDecay(touchpoints, conversionAt)
	case ModelPositionBased:
		return positionBased(touchpoints)
	default:
		return linear(touchpoints)
	}
}

func lastTouch(touchpoints []Touchpoint) []Credit {
	out := make([]Credit, len(touchpoints))
	last := len(touchpoints) - 1
	for i, tp := range touchpoints {
		share := 0.0
		if i == last {
			share = 1.0
		}
		out[i] = Credit{Touchpoint: tp, Share: share}
	}
	return out
}

func firstTouch(touchpoints []Touchpoint) []Credit {
	out := make([]Credit, len(touchpoints))
	for i, tp := range touchpoints {
		share := 0.0
		if i == 0 {
			share = 1.0
		}
		out[i] = Credit{Touchpoint: tp, Share: share}
	}
	return out
}

func linear(touchpoints []Touchpoint) []Credit {
	out := make([]Credit, len(touchpoints))
	share := 1.0 / float64(len(touchpoints))
	for i, tp := range touchpoints {
		out[i] = Credit{Touchpoint: tp, Share: share}
	}
	return out
}

// timeDecay weights each touchpoint by exponential decay from the
// conversion time with a 7-day half-life, normalized to sum to 1, per
// spec §4.11: w_i = exp(-ln2 * (T - t_i) / halfLife).
func timeDecay(touchpoints []Touchpoint, conversionAt time.Time) []Credit {
	weights := make([]float64, len(touchpoints))
	var total float64
	for i, tp := range touchpoints {
		age := conversionAt.Sub(tp.Timestamp)
		if age < 0 {
			age = 0
		}
		w := math.Exp(-math.Ln2 * age.Hours() / timeDecayHalfLife.Hours())
		weights[i] = w
		total += w
	}
	out := make([]Credit, len(touchpoints))
	for i, tp := range touchpoints {
		share := 0.0
		if total > 0 {
			share = weights[i] / total
		}
		out[i] = Credit{Touchpoint: tp, Share: share}
	}
	return out
}

// positionBased splits 40% to the first touchpoint, 40% to the last, and
// the remaining 20% evenly across the middle, per spec §4.11. A single
// touchpoint takes 100%; exactly two split 50/50.
func positionBased(touchpoints []Touchpoint) []Credit {
	n := len(touchpoints)
	out := make([]Credit, n)
	switch n {
	case 1:
		out[0] = Credit{Touchpoint: touchpoints[0], Share: 1.0}
		return out
	case 2:
		out[0] = Credit{Touchpoint: touchpoints[0], Share: 0.5}
		out[1] = Credit{Touchpoint: touchpoints[1], Share: 0.5}
		return out
	}

	middleShare := 0.20 / float64(n-2)
	for i, tp := range touchpoints {
		var share float64
		switch i {
		case 0:
			share = 0.40
		case n - 1:
			share = 0.40
		default:
			share = middleShare
		}
		out[i] = Credit{Touchpoint: tp, Share: share}
	}
	return out
}
