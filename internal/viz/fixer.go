package viz

import (
	"fmt"
	"sort"
	"strconv"
)

// FixAction is the kind of edit a Fix performs.
type FixAction string

const (
	FixAdd     FixAction = "add"
	FixRemove  FixAction = "remove"
	FixReplace FixAction = "replace"
)

// Fix is a single text edit anchored to a rune offset in one specific
// generation of the string. Fixes collected by a pass are applied in one
// batch, strictly in descending index order, so earlier edits never shift
// the anchors of later ones. Indices from one pass are never reused
// against another pass's output.
type Fix struct {
	Index  int
	Action FixAction
	Char   string
	Length int // runes removed/replaced; defaults to 1
}

// FixResult is the outcome of the repair pipeline.
type FixResult struct {
	Fixed    string   `json:"fixed"`
	WasFixed bool     `json:"was_fixed"`
	Warnings []string `json:"warnings,omitempty"`
}

// fixPass is one deterministic, self-contained repair transformation.
// Passes run in a fixed global order; later passes assume earlier passes
// already normalized surrogates, commas, and brackets.
type fixPass struct {
	name  string
	apply func(in []rune, typeHint string) ([]rune, []string, error)
}

var fixPasses = []fixPass{
	{"surrogate-sanitize", sanitizeSurrogates},
	{"trailing-comma", removeTrailingCommas},
	{"duplicate-key", removeDuplicateKeys},
	{"bracket-balance", balanceBrackets},
	{"missing-comma", insertMissingCommas},
	{"schema-normalize", normalizeSchema},
}

// AutoFix runs the six repair passes over raw and returns the repaired
// payload. A failing pass is recorded as a warning and its input passes
// through unchanged; the pipeline itself never fails. Re-running AutoFix
// on its own output yields WasFixed=false and no warnings.
func AutoFix(raw, typeHint string) FixResult {
	current := []rune(raw)
	result := FixResult{}

	for _, pass := range fixPasses {
		out, warnings, err := runFixPass(pass, current, typeHint)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s pass failed: %v", pass.name, err))
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)
		if string(out) != string(current) {
			result.WasFixed = true
			current = out
		}
	}

	result.Fixed = string(current)
	return result
}

// runFixPass invokes one pass, converting a panic into an error so a
// broken pass never aborts the pipeline.
func runFixPass(pass fixPass, in []rune, typeHint string) (out []rune, warnings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, warnings, err = in, nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return pass.apply(in, typeHint)
}

// applyFixes applies a batch of edits in descending index order and
// returns the resulting string as a fresh rune slice.
func applyFixes(src []rune, fixes []Fix) []rune {
	if len(fixes) == 0 {
		return src
	}

	sort.SliceStable(fixes, func(i, j int) bool { return fixes[i].Index > fixes[j].Index })

	out := make([]rune, len(src))
	copy(out, src)

	for _, f := range fixes {
		idx := f.Index
		if idx < 0 {
			idx = 0
		}
		if idx > len(out) {
			idx = len(out)
		}
		n := f.Length
		if n <= 0 {
			n = 1
		}

		switch f.Action {
		case FixAdd:
			ins := []rune(f.Char)
			next := make([]rune, 0, len(out)+len(ins))
			next = append(next, out[:idx]...)
			next = append(next, ins...)
			next = append(next, out[idx:]...)
			out = next
		case FixRemove:
			end := idx + n
			if end > len(out) {
				end = len(out)
			}
			out = append(out[:idx], out[end:]...)
		case FixReplace:
			end := idx + n
			if end > len(out) {
				end = len(out)
			}
			rep := []rune(f.Char)
			next := make([]rune, 0, len(out)-(end-idx)+len(rep))
			next = append(next, out[:idx]...)
			next = append(next, rep...)
			next = append(next, out[end:]...)
			out = next
		}
	}

	return out
}

// --- Pass 1: surrogate sanitize ---

func isHighSurrogate(r rune) bool { return r >= 0xD800 && r <= 0xDBFF }
func isLowSurrogate(r rune) bool  { return r >= 0xDC00 && r <= 0xDFFF }
func isSurrogate(r rune) bool     { return r >= 0xD800 && r <= 0xDFFF }

// surrogateEscapeAt parses a `\uXXXX` escape starting at i and returns the
// code unit, or -1 when there is no such escape. The backslash must not
// itself be escaped.
func surrogateEscapeAt(runes []rune, i int) rune {
	if i+5 >= len(runes) || runes[i] != '\\' || runes[i+1] != 'u' {
		return -1
	}
	backslashes := 0
	for j := i - 1; j >= 0 && runes[j] == '\\'; j-- {
		backslashes++
	}
	if backslashes%2 == 1 {
		return -1
	}
	v, err := strconv.ParseUint(string(runes[i+2:i+6]), 16, 32)
	if err != nil {
		return -1
	}
	return rune(v)
}

// sanitizeSurrogates strips UTF-16 code units in the lone-surrogate range
// that lack a pairing partner. Token-by-token emission can split a
// surrogate pair across chunks, leaving the first half stranded. Both raw
// runes and textual `\uD800`-style escapes are covered.
func sanitizeSurrogates(in []rune, _ string) ([]rune, []string, error) {
	var fixes []Fix
	removed := 0

	for i := 0; i < len(in); i++ {
		if isSurrogate(in[i]) {
			// A raw surrogate rune never forms a valid pair in a rune
			// slice, so every one of them is lone.
			fixes = append(fixes, Fix{Index: i, Action: FixRemove})
			removed++
			continue
		}

		cu := surrogateEscapeAt(in, i)
		if cu < 0 || !isSurrogate(cu) {
			continue
		}
		if isHighSurrogate(cu) {
			next := surrogateEscapeAt(in, i+6)
			if next >= 0 && isLowSurrogate(next) {
				i += 11 // valid pair, skip both escapes
				continue
			}
		}
		fixes = append(fixes, Fix{Index: i, Action: FixRemove, Length: 6})
		removed++
		i += 5
	}

	if removed == 0 {
		return in, nil, nil
	}
	warning := fmt.Sprintf("removed %d lone surrogate(s)", removed)
	return applyFixes(in, fixes), []string{warning}, nil
}

// --- Pass 2: trailing-comma removal ---

// removeTrailingCommas deletes commas that immediately precede a closing
// brace or bracket, whitespace tolerated.
func removeTrailingCommas(in []rune, _ string) ([]rune, []string, error) {
	var fixes []Fix

	inString := false
	escaped := false
	for i := 0; i < len(in); i++ {
		c := in[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',':
			j := i + 1
			for j < len(in) && isSpaceRune(in[j]) {
				j++
			}
			if j < len(in) && (in[j] == '}' || in[j] == ']') {
				fixes = append(fixes, Fix{Index: i, Action: FixRemove})
			}
		}
	}

	if len(fixes) == 0 {
		return in, nil, nil
	}
	warning := fmt.Sprintf("removed %d trailing comma(s)", len(fixes))
	return applyFixes(in, fixes), []string{warning}, nil
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// --- Pass 3: duplicate-key removal ---

// keyEntry records where one "key": value pair sits, with the separators
// that would need to go with it.
type keyEntry struct {
	pairStart  int // rune offset of the key's opening quote
	pairEnd    int // rune offset just past the value
	commaAfter int // offset of a following comma, or -1
	commaPrev  int // offset of a preceding comma, or -1
}

// removeDuplicateKeys deletes earlier occurrences of a repeated key within
// the same object, keeping the last. A model that repeats a key is usually
// self-correcting, so last-write-wins; that is a heuristic about intent,
// not a proven semantic recovery.
func removeDuplicateKeys(in []rune, _ string) ([]rune, []string, error) {
	tokens := Tokenize(string(in))
	sig := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Type != TokenWhitespace {
			sig = append(sig, t)
		}
	}

	var fixes []Fix
	dupes := 0
	pos := 0

	tokenEnd := func(t Token) int { return t.Index + len([]rune(t.Value)) }

	var parseValue func() int
	var parseObject func() int
	var parseArray func() int

	// Each parse func consumes one value from sig and returns the rune
	// offset just past it.
	parseValue = func() int {
		if pos >= len(sig) {
			return len(in)
		}
		t := sig[pos]
		if t.Type == TokenBracket {
			switch t.Value {
			case "{":
				return parseObject()
			case "[":
				return parseArray()
			}
		}
		pos++
		return tokenEnd(t)
	}

	parseObject = func() int {
		end := tokenEnd(sig[pos])
		pos++ // consume "{"
		seen := map[string]keyEntry{}
		lastComma := -1

		for pos < len(sig) {
			t := sig[pos]
			if t.Type == TokenBracket && (t.Value == "}" || t.Value == "]") {
				pos++
				return tokenEnd(t)
			}
			if t.Type == TokenPunctuation && t.Value == "," {
				lastComma = t.Index
				pos++
				continue
			}
			if t.Type == TokenString && pos+1 < len(sig) &&
				sig[pos+1].Type == TokenPunctuation && sig[pos+1].Value == ":" {
				entry := keyEntry{pairStart: t.Index, commaAfter: -1, commaPrev: lastComma}
				pos += 2 // key and colon
				entry.pairEnd = parseValue()
				if pos < len(sig) && sig[pos].Type == TokenPunctuation && sig[pos].Value == "," {
					entry.commaAfter = sig[pos].Index
				}

				if prev, ok := seen[t.Value]; ok {
					fixes = append(fixes, removalFor(prev))
					dupes++
				}
				seen[t.Value] = entry
				continue
			}
			// Stray token inside an object; skip it and let later passes
			// deal with the structure.
			end = parseValue()
		}
		return end
	}

	parseArray = func() int {
		end := tokenEnd(sig[pos])
		pos++ // consume "["
		for pos < len(sig) {
			t := sig[pos]
			if t.Type == TokenBracket && (t.Value == "]" || t.Value == "}") {
				pos++
				return tokenEnd(t)
			}
			if t.Type == TokenPunctuation {
				pos++
				continue
			}
			end = parseValue()
		}
		return end
	}

	for pos < len(sig) {
		parseValue()
	}

	if len(fixes) == 0 {
		return in, nil, nil
	}
	warning := fmt.Sprintf("removed %d duplicate key(s), kept last occurrence", dupes)
	return applyFixes(in, fixes), []string{warning}, nil
}

// removalFor computes the edit that deletes one "key": value pair together
// with exactly one adjoining comma.
func removalFor(e keyEntry) Fix {
	start, end := e.pairStart, e.pairEnd
	if e.commaAfter >= 0 {
		end = e.commaAfter + 1
	} else if e.commaPrev >= 0 {
		start = e.commaPrev
	}
	return Fix{Index: start, Action: FixRemove, Length: end - start}
}

// --- Pass 4: bracket balancing ---

type openBracket struct {
	ch  rune
	idx int
}

func closerFor(open rune) string {
	if open == '{' {
		return "}"
	}
	return "]"
}

// balanceBrackets repairs stray, mismatched, and unclosed brackets in a
// single forward scan. An unexpected closer with an empty stack is
// removed; a type-mismatched closer is replaced with the correct one while
// the stack pops; residual open brackets get closers appended at the end.
// All edits are collected first and applied in one batch.
func balanceBrackets(in []rune, _ string) ([]rune, []string, error) {
	var fixes []Fix
	var stack []openBracket
	var warnings []string
	removedStray, corrected := 0, 0

	inString := false
	escaped := false
	for i := 0; i < len(in); i++ {
		c := in[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, openBracket{ch: c, idx: i})
		case '}', ']':
			if len(stack) == 0 {
				fixes = append(fixes, Fix{Index: i, Action: FixRemove})
				removedStray++
				continue
			}
			top := stack[len(stack)-1]
			want := closerFor(top.ch)
			if string(c) != want {
				fixes = append(fixes, Fix{Index: i, Action: FixReplace, Char: want})
				corrected++
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		closers := ""
		for i := len(stack) - 1; i >= 0; i-- {
			closers += closerFor(stack[i].ch)
		}
		fixes = append(fixes, Fix{Index: len(in), Action: FixAdd, Char: closers})
		warnings = append(warnings, fmt.Sprintf("appended %d missing closer(s)", len(stack)))
	}
	if removedStray > 0 {
		warnings = append(warnings, fmt.Sprintf("removed %d stray closer(s)", removedStray))
	}
	if corrected > 0 {
		warnings = append(warnings, fmt.Sprintf("corrected %d mismatched closer(s)", corrected))
	}

	if len(fixes) == 0 {
		return in, nil, nil
	}
	return applyFixes(in, fixes), warnings, nil
}

// --- Pass 5: missing-comma insertion ---

// insertMissingCommas inserts a comma where a string/object/array value
// ends and another begins with nothing but whitespace between them, the
// single most common defect from mid-generation self-correction. Only
// applies inside nonzero bracket depth.
func insertMissingCommas(in []rune, _ string) ([]rune, []string, error) {
	var fixes []Fix

	depth := 0
	var lastSig rune
	escaped := false

	i := 0
	for i < len(in) {
		c := in[i]

		if c == '"' {
			if depth > 0 && (lastSig == '"' || lastSig == '}' || lastSig == ']') {
				fixes = append(fixes, Fix{Index: i, Action: FixAdd, Char: ","})
			}
			// Consume the string atomically.
			i++
			escaped = false
			for i < len(in) {
				if escaped {
					escaped = false
				} else if in[i] == '\\' {
					escaped = true
				} else if in[i] == '"' {
					i++
					break
				}
				i++
			}
			lastSig = '"'
			continue
		}

		switch c {
		case '{', '[':
			if depth > 0 && (lastSig == '"' || lastSig == '}' || lastSig == ']') {
				fixes = append(fixes, Fix{Index: i, Action: FixAdd, Char: ","})
			}
			depth++
			lastSig = c
		case '}', ']':
			if depth > 0 {
				depth--
			}
			lastSig = c
		default:
			if !isSpaceRune(c) {
				lastSig = c
			}
		}
		i++
	}

	if len(fixes) == 0 {
		return in, nil, nil
	}
	warning := fmt.Sprintf("inserted %d missing comma(s)", len(fixes))
	return applyFixes(in, fixes), []string{warning}, nil
}
