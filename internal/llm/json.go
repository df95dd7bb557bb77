package llm

import (
	"encoding/json"
	"strings"
)

// StripCodeFence extracts the payload from a markdown code fence. Models
// sometimes wrap JSON replies in ```json ... ``` (or a bare ``` fence),
// occasionally with prose around it. A json-tagged fence wins over a plain
// one; without a closing fence the rest of the text is taken. Text with no
// fence is returned trimmed.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "```json")
	offset := len("```json")
	if start == -1 {
		start = strings.Index(text, "```")
		offset = len("```")
	}
	if start == -1 {
		return text
	}

	body := text[start+offset:]
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ParseJSONResponse parses a JSON object out of an LLM reply, stripping any
// markdown code fence first. Returns nil if the payload is not valid JSON;
// callers treat that as a degraded (not fatal) response.
func ParseJSONResponse(text string) map[string]any {
	payload := StripCodeFence(text)
	if payload == "" {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil
	}

	return result
}
