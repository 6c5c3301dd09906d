package analysis

import (
	"fmt"
	"strings"

	"github.com/thinkwright/agent-trajectory/internal/oracle"
)

// Mode selects how conversations are judged.
type Mode string

const (
	ModeSingleShot  Mode = "single-shot"
	ModeProgression Mode = "progression"
)

// ParseMode accepts "single", "single-shot" and "progression".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "single-shot":
		return ModeSingleShot, nil
	case "progression", "":
		return ModeProgression, nil
	}
	return "", fmt.Errorf("unknown mode %q (supported: progression, single)", s)
}

// Report is the canonical result of one run. Both output documents are
// derived from it.
type Report struct {
	Mode              Mode                 `json:"mode"`
	ConversationCount int                  `json:"conversation_count"`
	Scores            []float64            `json:"scores"`
	AverageScore      float64              `json:"average_score"`
	TrendDelta        float64              `json:"trend_delta_first_to_last"`
	Trajectory        Trajectory           `json:"trajectory"`
	Conversations     []ConversationReport `json:"conversations"`
}

// Trajectory is the overall verdict. Confidence is nil in single-shot mode.
type Trajectory struct {
	Label      oracle.TrajectoryLabel `json:"label"`
	Confidence *float64               `json:"confidence"`
	Summary    string                 `json:"summary"`
}

// ConversationReport is one conversation's row. Evaluation and
// CompositeScore are set in single-shot mode; Progression is set (or null)
// in progression mode.
type ConversationReport struct {
	ConversationID string                       `json:"conversation_id"`
	Timestamp      string                       `json:"timestamp"`
	Metrics        BasicMetrics                 `json:"basic_metrics"`
	Evaluation     *oracle.Evaluation           `json:"evaluation,omitempty"`
	CompositeScore *float64                     `json:"composite_score,omitempty"`
	Progression    *oracle.ConversationProgress `json:"progression"`
}
