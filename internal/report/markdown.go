package report

import (
	"fmt"
	"strings"

	"github.com/thinkwright/agent-trajectory/internal/analysis"
	"github.com/thinkwright/agent-trajectory/internal/oracle"
)

const narrativeTitle = "Agent Improvement Report"

// FormatMarkdown produces the narrative report.
func FormatMarkdown(r *analysis.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", narrativeTitle)

	fmt.Fprintf(&b, "- Mode: **%s**\n", r.Mode)
	fmt.Fprintf(&b, "- Conversations analyzed: **%d**\n", r.ConversationCount)
	if r.Mode == analysis.ModeSingleShot {
		fmt.Fprintf(&b, "- Average composite score: **%s / 10**\n", num(r.AverageScore))
		fmt.Fprintf(&b, "- Trend: **%s** (delta %s)\n", r.Trajectory.Label, signed(r.TrendDelta))
	} else {
		fmt.Fprintf(&b, "- Average agent quality: **%s / 10**\n", num(r.AverageScore))
		fmt.Fprintf(&b, "- Trajectory: **%s** (first-to-last delta %s)\n", r.Trajectory.Label, signed(r.TrendDelta))
	}
	if r.Trajectory.Confidence != nil {
		fmt.Fprintf(&b, "- Trajectory confidence: %s / 10\n", num(*r.Trajectory.Confidence))
	}
	if s := oneLine(r.Trajectory.Summary); s != "" {
		fmt.Fprintf(&b, "- Summary: %s\n", s)
	}

	b.WriteString("\n## Conversation Breakdown\n")

	for _, c := range r.Conversations {
		fmt.Fprintf(&b, "\n### %s (%s)\n\n", oneLine(c.ConversationID), c.Timestamp)
		if c.Evaluation != nil {
			writeEvaluation(&b, c)
		} else if r.Mode == analysis.ModeProgression {
			writeProgression(&b, c.Progression)
		}
		m := c.Metrics
		fmt.Fprintf(&b, "- Turns: %d agent / %d human, %d words (avg agent words %s)\n",
			m.AgentTurnCount, m.HumanTurnCount, m.TotalWords, num(m.AvgAgentWords))
	}

	return b.String()
}

func writeEvaluation(b *strings.Builder, c analysis.ConversationReport) {
	ev := c.Evaluation
	if c.CompositeScore != nil {
		fmt.Fprintf(b, "- Composite: **%s**\n", num(*c.CompositeScore))
	}
	fmt.Fprintf(b, "- Scores: helpfulness %s, correctness %s, proactivity %s, user_satisfaction %s\n",
		num(ev.Helpfulness), num(ev.Correctness), num(ev.Proactivity), num(ev.UserSatisfaction))
	fmt.Fprintf(b, "- Confidence: %s\n", num(ev.Confidence))
	if notes := oneLine(ev.Notes); notes != "" {
		fmt.Fprintf(b, "- Notes: %s\n", notes)
	}
}

func writeProgression(b *strings.Builder, p *oracle.ConversationProgress) {
	if p == nil {
		b.WriteString("- Not covered by the progression judgment.\n")
		return
	}
	fmt.Fprintf(b, "- Rank: %d\n", p.Rank)
	fmt.Fprintf(b, "- Overall agent quality: **%s / 10**\n", num(p.OverallAgentQuality))
	fmt.Fprintf(b, "- Improvement vs previous: %s\n", signed(p.ImprovementVsPrevious))
	if n := len(p.TurnDimensionScores); n > 0 {
		flags := 0
		for _, t := range p.TurnDimensionScores {
			for _, d := range t.Dimensions() {
				if d.Score.ErrorFlag != nil {
					flags++
				}
			}
		}
		fmt.Fprintf(b, "- Turn dimension scores: %d turns, %d flagged dimensions\n", n, flags)
	}
	if notes := oneLine(p.Notes); notes != "" {
		fmt.Fprintf(b, "- Notes: %s\n", notes)
	}
}
