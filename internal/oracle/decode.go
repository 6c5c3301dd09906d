package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// extractJSON pulls the JSON object out of a model reply, dropping Markdown
// code fences and any prose around the outermost braces.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl >= 0 {
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// DecodeEvaluation parses a single-shot reply.
func DecodeEvaluation(text string) (Evaluation, error) {
	data := []byte(extractJSON(text))
	if err := validateDocument(evaluationSchema, "evaluation schema", data); err != nil {
		return Evaluation{}, err
	}
	var eval Evaluation
	if err := json.Unmarshal(data, &eval); err != nil {
		return Evaluation{}, fmt.Errorf("decode evaluation: %w", err)
	}
	return eval, nil
}

type wireDimension struct {
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
	ErrorFlag     *string `json:"error_flag"`
}

type wireTurn struct {
	TurnIndex               float64       `json:"turn_index"`
	Role                    string        `json:"role"`
	Content                 string        `json:"content"`
	Helpfulness             wireDimension `json:"helpfulness"`
	FactualAccuracy         wireDimension `json:"factual_accuracy"`
	InstructionFollowing    wireDimension `json:"instruction_following"`
	Coherence               wireDimension `json:"coherence"`
	DepthOfReasoning        wireDimension `json:"depth_of_reasoning"`
	SafetyAwareness         wireDimension `json:"safety_awareness"`
	HallucinationLikelihood wireDimension `json:"hallucination_likelihood"`
	Specificity             wireDimension `json:"specificity"`
}

type wireProgress struct {
	ConversationID        string     `json:"conversation_id"`
	Rank                  float64    `json:"rank"`
	OverallAgentQuality   float64    `json:"overall_agent_quality"`
	ImprovementVsPrevious float64    `json:"improvement_vs_previous"`
	Notes                 string     `json:"notes"`
	TurnDimensionScores   []wireTurn `json:"turn_dimension_scores"`
}

type wireProgression struct {
	OverallSummary       string         `json:"overall_summary"`
	TrajectoryLabel      string         `json:"trajectory_label"`
	TrajectoryConfidence float64        `json:"trajectory_confidence"`
	PerConversation      []wireProgress `json:"per_conversation"`
}

// DecodeProgression parses a progression reply. Integral fields written as
// floats (2.0) are accepted.
func DecodeProgression(text string) (ProgressionEvaluation, error) {
	data := []byte(extractJSON(text))
	if err := validateDocument(progressionSchema, "progression schema", data); err != nil {
		return ProgressionEvaluation{}, err
	}
	var w wireProgression
	if err := json.Unmarshal(data, &w); err != nil {
		return ProgressionEvaluation{}, fmt.Errorf("decode progression: %w", err)
	}

	out := ProgressionEvaluation{
		OverallSummary:       w.OverallSummary,
		TrajectoryLabel:      TrajectoryLabel(w.TrajectoryLabel),
		TrajectoryConfidence: w.TrajectoryConfidence,
		PerConversation:      make([]ConversationProgress, 0, len(w.PerConversation)),
	}
	for _, p := range w.PerConversation {
		cp := ConversationProgress{
			ConversationID:        p.ConversationID,
			Rank:                  int(math.Round(p.Rank)),
			OverallAgentQuality:   p.OverallAgentQuality,
			ImprovementVsPrevious: p.ImprovementVsPrevious,
			Notes:                 p.Notes,
		}
		for _, t := range p.TurnDimensionScores {
			cp.TurnDimensionScores = append(cp.TurnDimensionScores, t.typed())
		}
		out.PerConversation = append(out.PerConversation, cp)
	}
	return out, nil
}

func (d wireDimension) typed() DimensionScore {
	ds := DimensionScore{Score: d.Score, Justification: d.Justification}
	if d.ErrorFlag != nil && strings.TrimSpace(*d.ErrorFlag) != "" {
		flag := *d.ErrorFlag
		ds.ErrorFlag = &flag
	}
	return ds
}

func (t wireTurn) typed() TurnDimensionEvaluation {
	return TurnDimensionEvaluation{
		TurnIndex:               int(math.Round(t.TurnIndex)),
		Role:                    t.Role,
		Content:                 t.Content,
		Helpfulness:             t.Helpfulness.typed(),
		FactualAccuracy:         t.FactualAccuracy.typed(),
		InstructionFollowing:    t.InstructionFollowing.typed(),
		Coherence:               t.Coherence.typed(),
		DepthOfReasoning:        t.DepthOfReasoning.typed(),
		SafetyAwareness:         t.SafetyAwareness.typed(),
		HallucinationLikelihood: t.HallucinationLikelihood.typed(),
		Specificity:             t.Specificity.typed(),
	}
}
