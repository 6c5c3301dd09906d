package analysis

import (
	"math"

	"github.com/thinkwright/agent-trajectory/internal/oracle"
)

// Trend thresholds. A delta must exceed them strictly to leave "flat".
const (
	ImprovingThreshold = 0.2
	DecliningThreshold = -0.2
)

// Round3 rounds to three decimals, halves away from zero.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// CompositeScore is the mean of the four single-shot dimensions, rounded to
// three decimals. Confidence is not part of it.
func CompositeScore(e oracle.Evaluation) float64 {
	return Round3((e.Helpfulness + e.Correctness + e.Proactivity + e.UserSatisfaction) / 4)
}

// TrendDelta returns last minus first, rounded, or 0 with fewer than two values.
func TrendDelta(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
	}
	return Round3(scores[len(scores)-1] - scores[0])
}

// TrendLabel classifies a rounded delta.
func TrendLabel(delta float64) oracle.TrajectoryLabel {
	switch {
	case delta > ImprovingThreshold:
		return oracle.TrajectoryImproving
	case delta < DecliningThreshold:
		return oracle.TrajectoryDeclining
	default:
		return oracle.TrajectoryFlat
	}
}

// Mean returns the rounded arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Round3(sum / float64(len(values)))
}
