package generator

import (
	"encoding/json"
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// extractJSONObject 返回文本中第一个完整的JSON对象
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false

		for i := start; i < len(text); i++ {
			ch := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}

			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(text)
				}
			}
		}

		next := strings.Index(text[start+1:], "{")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// parseCandidate 解析模型回复；不是JSON时把整段文本作为 output，instruction 使用 fallback
func parseCandidate(content, fallbackInstruction string) Candidate {
	content = strings.TrimSpace(thinkBlock.ReplaceAllString(content, ""))

	if obj, ok := extractJSONObject(content); ok {
		var c Candidate
		if err := json.Unmarshal([]byte(obj), &c); err == nil && strings.TrimSpace(c.Output) != "" {
			c.Instruction = strings.TrimSpace(c.Instruction)
			if c.Instruction == "" {
				c.Instruction = fallbackInstruction
			}
			c.Output = strings.TrimSpace(c.Output)
			return c
		}
	}

	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return Candidate{Instruction: fallbackInstruction, Output: strings.TrimSpace(content)}
}
