package ai

import (
	"log"
	"strings"
)

// cleanJSONContent strips Markdown fences and any chatter around the first
// JSON object or array in a provider response.
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	originalLength := len(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if nl := strings.IndexByte(content, '\n'); nl >= 0 && !strings.ContainsAny(content[:nl], "{[") {
			content = content[nl+1:]
		}
		if end := strings.LastIndex(content, "```"); end >= 0 {
			content = content[:end]
		}
		content = strings.TrimSpace(content)
	}

	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return content
	}
	closer := byte('}')
	if content[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(content, closer)
	if end < start {
		return content[start:]
	}
	content = content[start : end+1]

	if len(content) != originalLength {
		log.Printf("[Caller] Content cleaning reduced size: %d -> %d bytes", originalLength, len(content))
	}
	return content
}
