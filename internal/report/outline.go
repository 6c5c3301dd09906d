package report

import (
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// headingCounts parses narrative and counts headings by level.
func headingCounts(narrative []byte) map[int]int {
	doc := markdown.Parser().Parse(text.NewReader(narrative))
	counts := make(map[int]int)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			counts[h.Level]++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return counts
}

// checkOutline verifies the narrative has one title and one section per
// conversation.
func checkOutline(narrative []byte, conversations int) error {
	counts := headingCounts(narrative)
	if counts[1] != 1 {
		return fmt.Errorf("narrative has %d top-level headings, want 1", counts[1])
	}
	if counts[3] != conversations {
		return fmt.Errorf("narrative has %d conversation sections, want %d", counts[3], conversations)
	}
	return nil
}
