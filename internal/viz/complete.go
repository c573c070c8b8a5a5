package viz

import "strings"

// IsJSONComplete reports whether s is plausibly a finished JSON document.
// It is the cheap gate run after every streamed chunk, before the repair
// pipeline is allowed to touch a candidate payload.
//
// A balanced-bracket check alone would accept a truncated element list like
// `[1,2,]` mid-stream, so a trailing comma immediately before the final
// closer also counts as incomplete. Only the final closer is inspected;
// an interior trailing comma as in `{"a":[1,2,]}` is left for the repair
// passes.
func IsJSONComplete(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}

	last := trimmed[len(trimmed)-1]
	if last != '}' && last != ']' {
		return false
	}

	tokens := Tokenize(trimmed)

	braces, brackets := 0, 0
	for _, tok := range tokens {
		if tok.Type != TokenBracket {
			continue
		}
		switch tok.Value {
		case "{":
			braces++
		case "}":
			braces--
		case "[":
			brackets++
		case "]":
			brackets--
		}
		if braces < 0 || brackets < 0 {
			return false
		}
	}
	if braces != 0 || brackets != 0 {
		return false
	}

	// Balanced but truncated: `..., }` or `..., ]` right at the end.
	var lastTwo []Token
	for i := len(tokens) - 1; i >= 0 && len(lastTwo) < 2; i-- {
		if tokens[i].Type == TokenWhitespace {
			continue
		}
		lastTwo = append(lastTwo, tokens[i])
	}
	if len(lastTwo) == 2 {
		closer, prev := lastTwo[0], lastTwo[1]
		if closer.Type == TokenBracket && (closer.Value == "}" || closer.Value == "]") &&
			prev.Type == TokenPunctuation && prev.Value == "," {
			return false
		}
	}

	return true
}
