package report

import (
	"encoding/json"
	"fmt"

	"github.com/thinkwright/agent-trajectory/internal/analysis"
)

// FormatJSON produces the structured report document: two-space indented
// JSON with a trailing newline.
func FormatJSON(r *analysis.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// ParseJSON reads a structured report document back into a Report.
func ParseJSON(data []byte) (*analysis.Report, error) {
	var r analysis.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
