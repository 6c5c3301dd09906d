package analysis

import "github.com/thinkwright/agent-trajectory/internal/loader"

// BasicMetrics are oracle-free counts over one conversation.
type BasicMetrics struct {
	AgentTurnCount int     `json:"agent_turn_count"`
	HumanTurnCount int     `json:"human_turn_count"`
	AvgAgentWords  float64 `json:"avg_agent_words"`
	TotalWords     int     `json:"total_words"`
}

// ComputeBasicMetrics counts turns and words. Turns with an unrecognized role
// contribute to TotalWords only.
func ComputeBasicMetrics(c loader.Conversation) BasicMetrics {
	var m BasicMetrics
	agentWords := 0
	for _, t := range c.Turns {
		words := t.WordCount()
		m.TotalWords += words
		switch t.Category() {
		case loader.RoleAgent:
			m.AgentTurnCount++
			agentWords += words
		case loader.RoleHuman:
			m.HumanTurnCount++
		}
	}
	if m.AgentTurnCount > 0 {
		m.AvgAgentWords = float64(agentWords) / float64(m.AgentTurnCount)
	}
	return m
}
