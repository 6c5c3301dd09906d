package analysis

import (
	"fmt"

	"github.com/thinkwright/agent-trajectory/internal/loader"
	"github.com/thinkwright/agent-trajectory/internal/oracle"
)

// AggregateSingle builds a single-shot report. evals must line up with
// conversations, which must already be in timestamp order.
func AggregateSingle(conversations []loader.Conversation, evals []oracle.Evaluation) (*Report, error) {
	if len(evals) != len(conversations) {
		return nil, fmt.Errorf("got %d evaluations for %d conversations", len(evals), len(conversations))
	}

	rows := make([]ConversationReport, 0, len(conversations))
	scores := make([]float64, 0, len(conversations))
	for i, c := range conversations {
		eval := evals[i]
		if err := ValidateEvaluation(fmt.Sprintf("conversations[%s].", c.ConversationID), eval); err != nil {
			return nil, err
		}
		composite := CompositeScore(eval)
		scores = append(scores, composite)
		rows = append(rows, ConversationReport{
			ConversationID: c.ConversationID,
			Timestamp:      loader.FormatTimestamp(c.Timestamp),
			Metrics:        ComputeBasicMetrics(c),
			Evaluation:     &eval,
			CompositeScore: &composite,
		})
	}

	delta := TrendDelta(scores)
	return &Report{
		Mode:              ModeSingleShot,
		ConversationCount: len(conversations),
		Scores:            scores,
		AverageScore:      Mean(scores),
		TrendDelta:        delta,
		Trajectory: Trajectory{
			Label:   TrendLabel(delta),
			Summary: "Single-shot trend derived from first and last composite scores.",
		},
		Conversations: rows,
	}, nil
}

// AggregateProgression reconciles a progression judgment with the loaded
// conversations by id. A conversation the oracle left out gets a null
// progression entry.
func AggregateProgression(conversations []loader.Conversation, prog oracle.ProgressionEvaluation) (*Report, error) {
	if err := ValidateProgression(prog); err != nil {
		return nil, err
	}

	byID := make(map[string]oracle.ConversationProgress, len(prog.PerConversation))
	for _, cp := range prog.PerConversation {
		if _, seen := byID[cp.ConversationID]; !seen {
			byID[cp.ConversationID] = cp
		}
	}

	rows := make([]ConversationReport, 0, len(conversations))
	scores := make([]float64, 0, len(conversations))
	for _, c := range conversations {
		row := ConversationReport{
			ConversationID: c.ConversationID,
			Timestamp:      loader.FormatTimestamp(c.Timestamp),
			Metrics:        ComputeBasicMetrics(c),
		}
		if cp, ok := byID[c.ConversationID]; ok {
			row.Progression = &cp
			scores = append(scores, cp.OverallAgentQuality)
		}
		rows = append(rows, row)
	}

	confidence := prog.TrajectoryConfidence
	return &Report{
		Mode:              ModeProgression,
		ConversationCount: len(conversations),
		Scores:            scores,
		AverageScore:      Mean(scores),
		TrendDelta:        TrendDelta(scores),
		Trajectory: Trajectory{
			Label:      prog.TrajectoryLabel,
			Confidence: &confidence,
			Summary:    prog.OverallSummary,
		},
		Conversations: rows,
	}, nil
}

// EmptyReport is the result for an input with no conversations. The oracle
// is not consulted.
func EmptyReport(mode Mode) *Report {
	return &Report{
		Mode:          mode,
		Scores:        []float64{},
		Trajectory:    Trajectory{Label: oracle.TrajectoryFlat, Summary: "No conversations to evaluate."},
		Conversations: []ConversationReport{},
	}
}
