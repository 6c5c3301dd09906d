package oracle

import (
	"context"
	"fmt"

	"github.com/thinkwright/agent-trajectory/internal/loader"
)

// Oracle is the external judge that scores conversations. Implementations
// are treated as slow and authoritative; callers do not retry them.
type Oracle interface {
	// EvaluateSingle scores one conversation on four independent dimensions.
	EvaluateSingle(ctx context.Context, conversation loader.Conversation) (Evaluation, error)
	// EvaluateProgression judges a timestamp-ordered sequence as a whole.
	EvaluateProgression(ctx context.Context, conversations []loader.Conversation) (ProgressionEvaluation, error)
}

// TrajectoryLabel is the oracle's longitudinal verdict.
type TrajectoryLabel string

const (
	TrajectoryImproving TrajectoryLabel = "improving"
	TrajectoryFlat      TrajectoryLabel = "flat"
	TrajectoryDeclining TrajectoryLabel = "declining"
	TrajectoryMixed     TrajectoryLabel = "mixed"
)

// Evaluation is the single-shot judgment of one conversation. Scores are
// nominally 0-10.
type Evaluation struct {
	Helpfulness      float64 `json:"helpfulness"`
	Correctness      float64 `json:"correctness"`
	Proactivity      float64 `json:"proactivity"`
	UserSatisfaction float64 `json:"user_satisfaction"`
	Confidence       float64 `json:"confidence"`
	Notes            string  `json:"notes"`
}

// DimensionScore is one scored dimension of one turn.
type DimensionScore struct {
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
	ErrorFlag     *string `json:"error_flag,omitempty"`
}

// TurnDimensionEvaluation breaks a single turn down by dimension.
// HallucinationLikelihood runs the other way: 0 is low risk, 10 high risk.
type TurnDimensionEvaluation struct {
	TurnIndex               int            `json:"turn_index"`
	Role                    string         `json:"role"`
	Content                 string         `json:"content"`
	Helpfulness             DimensionScore `json:"helpfulness"`
	FactualAccuracy         DimensionScore `json:"factual_accuracy"`
	InstructionFollowing    DimensionScore `json:"instruction_following"`
	Coherence               DimensionScore `json:"coherence"`
	DepthOfReasoning        DimensionScore `json:"depth_of_reasoning"`
	SafetyAwareness         DimensionScore `json:"safety_awareness"`
	HallucinationLikelihood DimensionScore `json:"hallucination_likelihood"`
	Specificity             DimensionScore `json:"specificity"`
}

// Dimensions lists the turn's scores in a fixed order, keyed by wire name.
func (t TurnDimensionEvaluation) Dimensions() []NamedDimension {
	return []NamedDimension{
		{"helpfulness", t.Helpfulness},
		{"factual_accuracy", t.FactualAccuracy},
		{"instruction_following", t.InstructionFollowing},
		{"coherence", t.Coherence},
		{"depth_of_reasoning", t.DepthOfReasoning},
		{"safety_awareness", t.SafetyAwareness},
		{"hallucination_likelihood", t.HallucinationLikelihood},
		{"specificity", t.Specificity},
	}
}

// NamedDimension pairs a dimension score with its wire name.
type NamedDimension struct {
	Name  string
	Score DimensionScore
}

// ConversationProgress is the oracle's view of one conversation inside a
// progression judgment. Rank 1 is the weakest conversation in the sequence.
type ConversationProgress struct {
	ConversationID        string                    `json:"conversation_id"`
	Rank                  int                       `json:"rank"`
	OverallAgentQuality   float64                   `json:"overall_agent_quality"`
	ImprovementVsPrevious float64                   `json:"improvement_vs_previous"`
	Notes                 string                    `json:"notes"`
	TurnDimensionScores   []TurnDimensionEvaluation `json:"turn_dimension_scores,omitempty"`
}

// ProgressionEvaluation is the oracle's judgment over a whole sequence.
type ProgressionEvaluation struct {
	OverallSummary       string                 `json:"overall_summary"`
	TrajectoryLabel      TrajectoryLabel        `json:"trajectory_label"`
	TrajectoryConfidence float64                `json:"trajectory_confidence"`
	PerConversation      []ConversationProgress `json:"per_conversation"`
}

// FailureError reports that an oracle call did not produce a usable answer:
// the transport failed, the call timed out, or the reply was not the
// expected JSON.
type FailureError struct {
	Op             string // "evaluate_single" | "evaluate_progression"
	ConversationID string // set for single-conversation calls
	Err            error
}

func (e *FailureError) Error() string {
	if e.ConversationID != "" {
		return fmt.Sprintf("oracle %s failed for conversation %s: %v", e.Op, e.ConversationID, e.Err)
	}
	return fmt.Sprintf("oracle %s failed: %v", e.Op, e.Err)
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

const (
	OpEvaluateSingle      = "evaluate_single"
	OpEvaluateProgression = "evaluate_progression"
)
