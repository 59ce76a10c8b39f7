package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeObject parses a reasoning response as JSON into out. Models
// sometimes wrap JSON in markdown code fences; those are stripped first.
func DecodeObject(output string, out any) error {
	cleaned := strings.TrimSpace(output)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("decode reasoning output: %w", err)
	}
	return nil
}
