package report

import (
	"fmt"

	"github.com/thinkwright/agent-trajectory/internal/analysis"
)

// Render produces both output documents. The narrative is built from the
// structured document, so it cannot show anything the JSON does not carry.
func Render(r *analysis.Report) (structured, narrative []byte, err error) {
	structured, err = FormatJSON(r)
	if err != nil {
		return nil, nil, err
	}
	decoded, err := ParseJSON(structured)
	if err != nil {
		return nil, nil, err
	}
	narrative = []byte(FormatMarkdown(decoded))
	if err := checkOutline(narrative, len(decoded.Conversations)); err != nil {
		return nil, nil, fmt.Errorf("render narrative: %w", err)
	}
	return structured, narrative, nil
}
