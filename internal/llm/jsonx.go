package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractJSON pulls a JSON object out of a model response. Models frequently
// wrap their output in markdown fences or prepend prose, so we locate the
// outermost object rather than trusting the raw string.
func ExtractJSON(response string) string {
	trimmed := strings.TrimSpace(response)

	if idx := strings.Index(trimmed, "```json"); idx != -1 {
		trimmed = trimmed[idx+len("```json"):]
	} else if idx := strings.Index(trimmed, "```"); idx != -1 {
		trimmed = trimmed[idx+len("```"):]
	}
	if idx := strings.Index(trimmed, "```"); idx != -1 {
		trimmed = trimmed[:idx]
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}

	return strings.TrimSpace(trimmed[start : end+1])
}

// UnmarshalLenient decodes model JSON into target, repairing the payload when
// a straight parse fails. Truncated objects and trailing commas are the usual
// offenders. Returns whether a repair was needed.
func UnmarshalLenient(response string, target interface{}) (repaired bool, err error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return false, fmt.Errorf("no JSON object found in response")
	}

	if json.Unmarshal([]byte(jsonStr), target) == nil {
		return false, nil
	}

	fixed, repairErr := jsonrepair.JSONRepair(jsonStr)
	if repairErr != nil {
		return false, fmt.Errorf("JSON repair failed: %w", repairErr)
	}

	if err := json.Unmarshal([]byte(fixed), target); err != nil {
		return true, fmt.Errorf("repaired JSON still invalid: %w", err)
	}

	return true, nil
}
