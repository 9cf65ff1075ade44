package mcp

import (
	"encoding/json"
	"fmt"
)

const (
	// httpLogBodyLimit caps how many body bytes are buffered for debug logs.
	httpLogBodyLimit = 16 * 1024
	// logStringLimit caps the runes kept per JSON string in logged payloads.
	logStringLimit = 120
	// logArrayLimit caps the elements kept per JSON array in logged payloads.
	logArrayLimit = 5
)

// compactMCPBody shortens long strings and arrays in a JSON payload so that
// rendered article lists do not flood the logs. Non-JSON input is returned as is.
func compactMCPBody(raw string) string {
	if raw == "" {
		return raw
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return raw
	}
	out, err := json.Marshal(compactMCPValue(payload))
	if err != nil {
		return raw
	}
	return string(out)
}

// compactMCPValue recursively shortens nested payloads.
func compactMCPValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		output := make(map[string]any, len(v))
		for key, item := range v {
			output[key] = compactMCPValue(item)
		}
		return output
	case []any:
		kept := v
		if len(kept) > logArrayLimit {
			kept = kept[:logArrayLimit]
		}
		result := make([]any, 0, len(kept)+1)
		for _, item := range kept {
			result = append(result, compactMCPValue(item))
		}
		if len(v) > logArrayLimit {
			result = append(result, fmt.Sprintf("... %d more", len(v)-logArrayLimit))
		}
		return result
	case string:
		runes := []rune(v)
		if len(runes) <= logStringLimit {
			return v
		}
		return fmt.Sprintf("%s... (%d chars)", string(runes[:logStringLimit]), len(runes))
	default:
		return value
	}
}

// compactHookPayload renders a compacted JSON string for hook logging.
func compactHookPayload(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return compactMCPBody(string(data))
}
