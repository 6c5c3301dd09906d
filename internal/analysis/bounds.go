package analysis

import (
	"fmt"
	"math"

	"github.com/thinkwright/agent-trajectory/internal/oracle"
)

// Range is a closed interval.
type Range struct {
	Min, Max float64
}

func (r Range) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

var (
	QualityRange     = Range{Min: 0, Max: 10}
	ImprovementRange = Range{Min: -5, Max: 5}
)

// ScoreOutOfBoundsError reports an oracle number outside its declared range.
type ScoreOutOfBoundsError struct {
	Field string
	Value float64
	Range Range
}

func (e *ScoreOutOfBoundsError) Error() string {
	return fmt.Sprintf("score %s = %g is outside %s", e.Field, e.Value, e.Range)
}

func check(field string, v float64, r Range) error {
	if !r.Contains(v) {
		return &ScoreOutOfBoundsError{Field: field, Value: v, Range: r}
	}
	return nil
}

// ValidateEvaluation checks every number of a single-shot evaluation.
// prefix is prepended to field paths.
func ValidateEvaluation(prefix string, e oracle.Evaluation) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"helpfulness", e.Helpfulness},
		{"correctness", e.Correctness},
		{"proactivity", e.Proactivity},
		{"user_satisfaction", e.UserSatisfaction},
		{"confidence", e.Confidence},
	}
	for _, f := range fields {
		if err := check(prefix+f.name, f.v, QualityRange); err != nil {
			return err
		}
	}
	return nil
}

// ValidateProgression checks the trajectory confidence and every entry of
// the breakdown, matched to a loaded conversation or not.
func ValidateProgression(p oracle.ProgressionEvaluation) error {
	if err := check("trajectory_confidence", p.TrajectoryConfidence, QualityRange); err != nil {
		return err
	}
	for i, cp := range p.PerConversation {
		prefix := fmt.Sprintf("per_conversation[%d].", i)
		if err := check(prefix+"overall_agent_quality", cp.OverallAgentQuality, QualityRange); err != nil {
			return err
		}
		if err := check(prefix+"improvement_vs_previous", cp.ImprovementVsPrevious, ImprovementRange); err != nil {
			return err
		}
		for j, turn := range cp.TurnDimensionScores {
			for _, d := range turn.Dimensions() {
				field := fmt.Sprintf("%sturn_dimension_scores[%d].%s.score", prefix, j, d.Name)
				if err := check(field, d.Score.Score, QualityRange); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
