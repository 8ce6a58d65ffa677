package oracle

import "strings"

// ExtractJSONText pulls the first plausible JSON object or array out of a
// raw model response. Models wrap output in prose or code fences often
// enough that strict parsing of the whole body is a losing game.
//
// Order of preference:
//  1. a fully fenced response, with the fence and language hint stripped
//  2. the first balanced {...} or [...] span, honoring quoted strings
//  3. a fenced block explicitly labeled json
//  4. the trimmed raw text
func ExtractJSONText(text string) string {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) > 6 {
		inner := strings.TrimSpace(s[3 : len(s)-3])
		if nl := strings.IndexByte(inner, '\n'); nl != -1 {
			switch strings.ToLower(strings.TrimSpace(inner[:nl])) {
			case "json", "javascript", "ts", "text":
				inner = inner[nl+1:]
			}
		}
		s = strings.TrimSpace(inner)
	}

	if span := balancedSpan(s); span != "" {
		return span
	}

	if i := strings.Index(s, "```json"); i != -1 {
		if j := strings.Index(s[i+7:], "```"); j != -1 {
			return strings.TrimSpace(s[i+7 : i+7+j])
		}
	}

	return s
}

func balancedSpan(s string) string {
	var (
		inString bool
		escape   bool
		depth    int
		start    = -1
		closer   byte
	)

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if start == -1 {
			switch ch {
			case '{':
				start, depth, closer = i, 1, '}'
			case '[':
				start, depth, closer = i, 1, ']'
			}
			continue
		}

		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch {
		case ch == '"':
			inString = true
		case ch == '{' && closer == '}':
			depth++
		case ch == '}' && closer == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		case ch == '[' && closer == ']':
			depth++
		case ch == ']' && closer == ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
