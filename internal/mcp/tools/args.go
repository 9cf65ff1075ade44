package tools

import (
	"strconv"
	"strings"

	mcp "github.com/mark3labs/mcp-go/mcp"
)

// readStringArg extracts an optional string argument from the request.
func readStringArg(req mcp.CallToolRequest, key string) string {
	if req.Params.Arguments == nil {
		return ""
	}
	if raw, ok := req.Params.Arguments.(map[string]any); ok {
		if value, ok := raw[key].(string); ok {
			return value
		}
	}
	return ""
}

// readIntArgWithDefault extracts an optional int argument with a default fallback.
// MCP JSON numbers decode into float64; numeric strings are accepted too.
func readIntArgWithDefault(req mcp.CallToolRequest, key string, def int) int {
	if req.Params.Arguments == nil {
		return def
	}
	raw, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return def
	}

	switch value := raw[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return def
}
