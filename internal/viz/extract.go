package viz

import (
	"fmt"
	"strings"

	"github.com/4rankng/paper-trading-sub001/internal/models"
)

// markerPrefix opens the embedded micro-syntax ![viz:TYPE]({...}).
const markerPrefix = "![viz:"

// maxTypeLen bounds the TYPE part of a marker; anything longer is plain text.
const maxTypeLen = 16

// Candidate is a hypothesized payload span. Candidates are ephemeral,
// recomputed from scratch on every chunk; no state crosses chunks.
type Candidate struct {
	StartIndex int    // rune offset of the marker's '!'
	EndIndex   int    // one past the closing ')', or end of input
	RawText    string // payload between '(' and its matching ')'
	TypeHint   string
	Complete   bool
}

// ExtractCommands scans accumulated message text for visualization
// markers, repairs and validates each closed payload, and returns the
// message with command spans replaced by placeholders.
//
// While the stream is open (final=false) an unterminated marker is
// pending, not an error; a closed span whose payload fails IsJSONComplete
// is also held pending, so the repair pipeline only runs on payloads the
// cheap gate has passed or once the stream has ended. Once the stream has
// closed, an unterminated marker falls back to the last ')' in the
// remaining text and goes through the repair pipeline; it becomes an
// error only when repair still cannot produce a valid command, or when no
// ')' ever arrived.
func ExtractCommands(text string, final bool) *models.ExtractResult {
	runes := []rune(text)
	result := &models.ExtractResult{
		Commands: []models.VizCommand{},
		Segments: []models.Segment{},
	}

	var out strings.Builder
	cursor := 0

	for cursor < len(runes) {
		cand, ok := nextCandidate(runes, cursor, final)
		if !ok {
			break
		}
		if cand.Complete && !final && !IsJSONComplete(cand.RawText) {
			// The span closed but its payload still looks truncated;
			// defer repair until the stream ends.
			cand.Complete = false
		}

		if cand.StartIndex > cursor {
			literal := string(runes[cursor:cand.StartIndex])
			out.WriteString(literal)
			result.Segments = append(result.Segments, models.Segment{Text: literal})
		}

		if !cand.Complete {
			if final {
				cmdErr := models.CommandError{
					TypeHint: cand.TypeHint,
					Reason:   models.ErrReasonIncomplete,
					Detail:   "visualization was never closed before the stream ended",
					Raw:      cand.RawText,
				}
				result.Errors = append(result.Errors, cmdErr)
				placeholder := fmt.Sprintf("[[viz:%s:error]]", cand.TypeHint)
				out.WriteString(placeholder)
				result.Segments = append(result.Segments, models.Segment{Error: &cmdErr})
			} else {
				result.Pending++
				placeholder := fmt.Sprintf("[[viz:%s:pending]]", cand.TypeHint)
				out.WriteString(placeholder)
				result.Segments = append(result.Segments, models.Segment{Text: placeholder, Pending: true})
			}
			cursor = cand.EndIndex
			continue
		}

		fix := AutoFix(cand.RawText, cand.TypeHint)
		cmd, cmdErr := ParseCommand(fix.Fixed, cand.TypeHint)
		if cmdErr != nil {
			cmdErr.Raw = cand.RawText
			cmdErr.Warnings = fix.Warnings
			result.Errors = append(result.Errors, *cmdErr)
			result.Warnings = append(result.Warnings, fix.Warnings...)
			placeholder := fmt.Sprintf("[[viz:%s:error]]", cand.TypeHint)
			out.WriteString(placeholder)
			result.Segments = append(result.Segments, models.Segment{Error: cmdErr})
			cursor = cand.EndIndex
			continue
		}

		cmd.Raw = cand.RawText
		cmd.Fixed = fix.Fixed
		cmd.Warnings = fix.Warnings
		result.Warnings = append(result.Warnings, fix.Warnings...)
		result.Commands = append(result.Commands, *cmd)
		placeholder := fmt.Sprintf("[[viz:%s:%d]]", cmd.Type, len(result.Commands)-1)
		out.WriteString(placeholder)
		result.Segments = append(result.Segments, models.Segment{Command: cmd})
		cursor = cand.EndIndex
	}

	if cursor < len(runes) {
		literal := string(runes[cursor:])
		out.WriteString(literal)
		result.Segments = append(result.Segments, models.Segment{Text: literal})
	}

	result.Text = out.String()
	return result
}

// nextCandidate finds the next marker at or after from. ok is false when
// no further marker exists.
func nextCandidate(runes []rune, from int, final bool) (Candidate, bool) {
	search := from
	for search < len(runes) {
		start := indexOfMarker(runes, search)
		if start < 0 {
			return Candidate{}, false
		}

		typeHint, payloadStart, valid := parseMarkerHead(runes, start)
		if !valid {
			// Looked like a marker but is not one; keep it as plain text.
			search = start + 1
			continue
		}

		if payloadStart < 0 {
			// Header itself is still arriving (e.g. "![viz:cha").
			return Candidate{
				StartIndex: start,
				EndIndex:   len(runes),
				RawText:    "",
				TypeHint:   typeHint,
			}, true
		}

		end, found := scanToMatchingParen(runes, payloadStart)
		if found {
			return Candidate{
				StartIndex: start,
				EndIndex:   end + 1,
				RawText:    string(runes[payloadStart:end]),
				TypeHint:   typeHint,
				Complete:   true,
			}, true
		}

		if final {
			// Stream is closed; salvage up to the last ')' if one exists.
			if p := lastParenOutsideString(runes, payloadStart); p >= 0 {
				return Candidate{
					StartIndex: start,
					EndIndex:   p + 1,
					RawText:    string(runes[payloadStart:p]),
					TypeHint:   typeHint,
					Complete:   true,
				}, true
			}
		}

		return Candidate{
			StartIndex: start,
			EndIndex:   len(runes),
			RawText:    string(runes[payloadStart:]),
			TypeHint:   typeHint,
		}, true
	}
	return Candidate{}, false
}

// indexOfMarker returns the rune offset of the next markerPrefix at or
// after from, or -1.
func indexOfMarker(runes []rune, from int) int {
	prefix := []rune(markerPrefix)
	for i := from; i+len(prefix) <= len(runes); i++ {
		match := true
		for j, p := range prefix {
			if runes[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// parseMarkerHead reads TYPE out of "![viz:TYPE](" starting at the '!'.
// payloadStart is the offset just past the '(', or -1 when the header is
// truncated at end of input (still streaming). valid is false when the
// text cannot be a marker at all.
func parseMarkerHead(runes []rune, start int) (typeHint string, payloadStart int, valid bool) {
	i := start + len([]rune(markerPrefix))

	typeStart := i
	for i < len(runes) && runes[i] != ']' {
		c := runes[i]
		if c < 'a' || c > 'z' || i-typeStart >= maxTypeLen {
			return "", -1, false
		}
		i++
	}
	typeHint = string(runes[typeStart:i])

	if i >= len(runes) {
		return typeHint, -1, true // header truncated mid-stream
	}
	if typeHint == "" {
		return "", -1, false
	}

	i++ // ']'
	if i >= len(runes) {
		return typeHint, -1, true
	}
	if runes[i] != '(' {
		return "", -1, false
	}
	return typeHint, i + 1, true
}

// scanToMatchingParen scans forward from the payload start, string- and
// brace-aware, to the ')' that closes the marker: the first ')' outside a
// string literal at bracket depth zero. found is false when end of input
// arrives first.
func scanToMatchingParen(runes []rune, from int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := from; i < len(runes); i++ {
		c := runes[i]
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
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
			}
		case ')':
			if depth <= 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// lastParenOutsideString finds the last ')' outside a string literal at or
// after from, or -1. Used only once the stream has closed, to salvage a
// payload whose brackets never balanced.
func lastParenOutsideString(runes []rune, from int) int {
	last := -1
	inString := false
	escaped := false
	for i := from; i < len(runes); i++ {
		c := runes[i]
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
		case ')':
			last = i
		}
	}
	return last
}
