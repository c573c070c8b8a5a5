// Package viz extracts embedded visualization commands from LLM message
// text and repairs their frequently malformed JSON payloads.
//
// The engine is a set of pure functions over strings: nothing here holds
// state between invocations, so callers re-scan the whole accumulated
// message after every streamed chunk.
package viz

import "unicode"

// TokenType classifies one token produced by Tokenize.
type TokenType string

const (
	TokenBracket     TokenType = "bracket"     // { } [ ]
	TokenPunctuation TokenType = "punctuation" // , :
	TokenString      TokenType = "string"      // "..." including quotes, escape-aware
	TokenLiteral     TokenType = "literal"     // numbers, keywords, anything else
	TokenWhitespace  TokenType = "whitespace"
)

// Token is one span of input. Tokens cover the input with no gaps;
// Index is a rune offset into the tokenized string.
type Token struct {
	Type  TokenType
	Value string
	Index int
}

func isBracket(r rune) bool {
	return r == '{' || r == '}' || r == '[' || r == ']'
}

func isPunctuation(r rune) bool {
	return r == ',' || r == ':'
}

// Tokenize converts s into a gap-free token stream. String literals are
// scanned atomically with backslash-escape tracking, so brackets and
// punctuation inside them are never treated as structural. An unterminated
// trailing string is emitted as a single string token spanning to the end
// of input.
func Tokenize(s string) []Token {
	runes := []rune(s)
	tokens := make([]Token, 0, len(runes)/4+1)

	i := 0
	for i < len(runes) {
		r := runes[i]
		start := i

		switch {
		case isBracket(r):
			tokens = append(tokens, Token{Type: TokenBracket, Value: string(r), Index: start})
			i++

		case isPunctuation(r):
			tokens = append(tokens, Token{Type: TokenPunctuation, Value: string(r), Index: start})
			i++

		case r == '"':
			i++
			escaped := false
			for i < len(runes) {
				if escaped {
					escaped = false
				} else if runes[i] == '\\' {
					escaped = true
				} else if runes[i] == '"' {
					i++
					break
				}
				i++
			}
			tokens = append(tokens, Token{Type: TokenString, Value: string(runes[start:i]), Index: start})

		case unicode.IsSpace(r):
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
			tokens = append(tokens, Token{Type: TokenWhitespace, Value: string(runes[start:i]), Index: start})

		default:
			for i < len(runes) {
				c := runes[i]
				if isBracket(c) || isPunctuation(c) || c == '"' || unicode.IsSpace(c) {
					break
				}
				i++
			}
			tokens = append(tokens, Token{Type: TokenLiteral, Value: string(runes[start:i]), Index: start})
		}
	}

	return tokens
}
