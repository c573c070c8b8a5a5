package viz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsJSONComplete(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		complete bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n ", false},
		{"complete object", `{"a":1}`, true},
		{"complete array", `[1,2,3]`, true},
		{"complete with whitespace", "  {\"a\": 1}\n", true},
		{"nested complete", `{"a":{"b":[1,{"c":2}]}}`, true},
		{"open object", `{"a":1`, false},
		{"open array", `[1,2`, false},
		{"open nested", `{"a":{"b":[1`, false},
		{"ends mid string", `{"a":"hel`, false},
		{"ends after colon", `{"a":`, false},
		{"trailing comma then close", `{"a":1,}`, false},
		{"trailing comma in array", `[1,2,]`, false},
		{"trailing comma with space", `{"a":1, }`, false},
		{"interior trailing comma passes", `{"a":[1,2,]}`, true},
		{"comma inside string is fine", `{"a":",}"}`, true},
		{"excess closer", `{"a":1}}`, false},
		{"excess array closer", `[1]]`, false},
		{"ends with non closer", `{"a":1} extra`, false},
		{"brackets in strings ignored", `{"a":"}{"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.complete, IsJSONComplete(tt.input))
		})
	}
}

// A span that reports complete must still report complete after more text
// arrives elsewhere in the stream: completeness is a property of the span
// itself, so re-checking the identical span must be stable.
func TestIsJSONComplete_Stable(t *testing.T) {
	span := `{"type":"chart","data":{"labels":["A"]}}`
	for i := 0; i < 3; i++ {
		assert.True(t, IsJSONComplete(span))
	}
}
