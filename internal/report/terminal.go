package report

import (
	"fmt"
	"strings"

	"github.com/thinkwright/agent-trajectory/internal/analysis"
	"github.com/thinkwright/agent-trajectory/internal/oracle"
)

// Muted 256-color palette
const (
	bold  = "\033[1m"
	dim   = "\033[2m"
	reset = "\033[0m"

	// Muted tones via 256-color
	rose  = "\033[38;5;174m" // soft red/pink
	amber = "\033[38;5;179m" // warm yellow
	sage  = "\033[38;5;108m" // muted green
	slate = "\033[38;5;110m" // muted blue
	lilac = "\033[38;5;139m" // soft purple
	stone = "\033[38;5;245m" // medium gray
	chalk = "\033[38;5;188m" // off-white
)

const ruler = "────────────────────────────────────────────────────────"

func sectionHeader(title string) string {
	return fmt.Sprintf("\n  %s%s%s\n  %s%s%s\n", bold+chalk, strings.ToUpper(title), reset, stone, ruler, reset)
}

// FormatTerminal produces human-readable terminal output.
func FormatTerminal(r *analysis.Report) string {
	var b strings.Builder

	// Header
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s%sagent-trajectory report%s  %s%s mode%s\n", bold, chalk, reset, stone, r.Mode, reset)
	fmt.Fprintf(&b, "  %s%s%s\n", stone, ruler, reset)

	// ── Trajectory ──────────────────────────────────────────
	b.WriteString(sectionHeader("Trajectory"))

	fmt.Fprintf(&b, "  %sconversations%s  %d\n", stone, reset, r.ConversationCount)
	fmt.Fprintf(&b, "  %saverage%s        %s  %s%s%s\n", stone, reset, colorBar(r.AverageScore/10), chalk, num(r.AverageScore), reset)
	fmt.Fprintf(&b, "  %sverdict%s        %s%s%s  %sdelta %s%s\n",
		stone, reset, labelColor(r.Trajectory.Label), r.Trajectory.Label, reset, stone, signed(r.TrendDelta), reset)
	if r.Trajectory.Confidence != nil {
		fmt.Fprintf(&b, "  %sconfidence%s     %s\n", stone, reset, num(*r.Trajectory.Confidence))
	}
	if r.Trajectory.Summary != "" {
		b.WriteString("\n")
		for _, line := range wordWrap(r.Trajectory.Summary, 70) {
			fmt.Fprintf(&b, "  %s%s%s\n", dim, line, reset)
		}
	}

	// ── Conversations ───────────────────────────────────────
	if len(r.Conversations) > 0 {
		b.WriteString(sectionHeader(fmt.Sprintf("Conversations (%d)", len(r.Conversations))))
	}

	for i, c := range r.Conversations {
		score, notes, ok := conversationScore(c)
		if ok {
			fmt.Fprintf(&b, "  %s  %s%s%s  %s%s%s\n",
				colorBar(score/10), chalk, num(score), reset, slate, c.ConversationID, reset)
		} else {
			fmt.Fprintf(&b, "  %s  %s --%s  %s%s%s  %s(not ranked)%s\n",
				colorBar(0), stone, reset, slate, c.ConversationID, reset, amber, reset)
		}
		fmt.Fprintf(&b, "    %s%s · %d agent / %d human turns · %d words%s\n",
			stone, c.Timestamp, c.Metrics.AgentTurnCount, c.Metrics.HumanTurnCount, c.Metrics.TotalWords, reset)
		if c.Progression != nil {
			fmt.Fprintf(&b, "    %srank %d · %s vs previous%s\n", lilac, c.Progression.Rank, signed(c.Progression.ImprovementVsPrevious), reset)
		}
		for _, line := range wordWrap(notes, 66) {
			if line != "" {
				fmt.Fprintf(&b, "    %s%s%s\n", dim, line, reset)
			}
		}
		if i < len(r.Conversations)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	return b.String()
}

func conversationScore(c analysis.ConversationReport) (score float64, notes string, ok bool) {
	switch {
	case c.CompositeScore != nil:
		n := ""
		if c.Evaluation != nil {
			n = c.Evaluation.Notes
		}
		return *c.CompositeScore, n, true
	case c.Progression != nil:
		return c.Progression.OverallAgentQuality, c.Progression.Notes, true
	}
	return 0, "", false
}

func labelColor(label oracle.TrajectoryLabel) string {
	switch label {
	case oracle.TrajectoryImproving:
		return bold + sage
	case oracle.TrajectoryDeclining:
		return bold + rose
	case oracle.TrajectoryMixed:
		return bold + amber
	}
	return bold + slate
}

func colorBar(score float64) string {
	width := 16
	filled := int(score * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var color string
	if score >= 0.7 {
		color = sage
	} else if score >= 0.5 {
		color = amber
	} else {
		color = rose
	}

	return color + strings.Repeat("█", filled) + stone + strings.Repeat("░", width-filled) + reset
}

// wordWrap breaks text into lines of at most maxWidth characters,
// splitting at word boundaries.
func wordWrap(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > maxWidth {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return lines
}
