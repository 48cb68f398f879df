package llm

import "strings"

// cleanJSONResponse strips code fences and any prose around the outermost
// JSON value delimited by open and close.
func cleanJSONResponse(content string, open, close string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around JSON.
	start := strings.Index(content, open)
	end := strings.LastIndex(content, close)
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

// CleanJSONArray extracts the outermost JSON array from an LLM reply.
func CleanJSONArray(content string) string {
	return cleanJSONResponse(content, "[", "]")
}

// CleanJSONObject extracts the outermost JSON object from an LLM reply.
func CleanJSONObject(content string) string {
	return cleanJSONResponse(content, "{", "}")
}
