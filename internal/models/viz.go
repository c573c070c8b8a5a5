// Package models defines data structures for Papertrade
package models

import (
	"encoding/gob"
	"time"
)

func init() {
	gob.Register(VizCommand{})
	gob.Register(VizRecord{})
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}

// VizType identifies the kind of visualization a command renders.
type VizType string

const (
	VizChart VizType = "chart"
	VizTable VizType = "table"
	VizPie   VizType = "pie"
)

// Valid reports whether t is one of the three known visualization types.
func (t VizType) Valid() bool {
	return t == VizChart || t == VizTable || t == VizPie
}

// ChartDataset is one series in a chart command.
type ChartDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor,omitempty"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
}

// ChartData holds the axis labels and series of a chart command.
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartCommand is a validated chart instruction.
type ChartCommand struct {
	ChartType string                 `json:"chartType"` // "line", "bar", or "scatter"
	Data      ChartData              `json:"data"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

// TableOptions holds presentation options for a table command.
type TableOptions struct {
	Caption  string `json:"caption,omitempty"`
	Sortable bool   `json:"sortable,omitempty"`
}

// TableCommand is a validated table instruction. Rows may be positional
// arrays or column-keyed objects; both survive validation.
type TableCommand struct {
	Headers []string      `json:"headers"`
	Rows    []interface{} `json:"rows"`
	Options *TableOptions `json:"options,omitempty"`
}

// PieSlice is one labeled value in a pie command.
type PieSlice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// PieOptions holds presentation options for a pie command.
type PieOptions struct {
	Title      string `json:"title,omitempty"`
	ShowLegend bool   `json:"showLegend,omitempty"`
}

// PieCommand is a validated pie instruction.
type PieCommand struct {
	Data    []PieSlice  `json:"data"`
	Options *PieOptions `json:"options,omitempty"`
}

// VizCommand is the tagged union of validated visualization commands.
// Exactly one of Chart, Table, or Pie is non-nil, matching Type.
// A VizCommand is never mutated after creation; re-extraction replaces it.
type VizCommand struct {
	Type     VizType       `json:"type"`
	Chart    *ChartCommand `json:"chart,omitempty"`
	Table    *TableCommand `json:"table,omitempty"`
	Pie      *PieCommand   `json:"pie,omitempty"`
	Raw      string        `json:"raw,omitempty"`      // payload as it arrived
	Fixed    string        `json:"fixed,omitempty"`    // payload after repair
	Warnings []string      `json:"warnings,omitempty"` // repair diagnostics
}

// CommandError failure reasons.
const (
	ErrReasonIncomplete = "incomplete" // marker never closed before stream end
	ErrReasonParse      = "parse"      // repaired payload still not valid JSON
	ErrReasonValidate   = "validate"   // parsed but failed shape validation
)

// CommandError is a typed per-command failure. It is scoped to a single
// visualization and never propagates as a Go error out of extraction.
type CommandError struct {
	TypeHint string   `json:"type_hint"`
	Reason   string   `json:"reason"`
	Detail   string   `json:"detail"`
	Raw      string   `json:"raw,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Segment is one piece of a message in display order: literal text, a
// validated command, a failed command, or a still-pending marker.
type Segment struct {
	Text    string        `json:"text,omitempty"`
	Command *VizCommand   `json:"command,omitempty"`
	Error   *CommandError `json:"error,omitempty"`
	Pending bool          `json:"pending,omitempty"`
}

// ExtractResult is the outcome of scanning accumulated message text.
// It is recomputed wholesale on every chunk; nothing in it carries state
// between invocations.
type ExtractResult struct {
	Text     string         `json:"text"`     // message with command spans replaced by placeholders
	Segments []Segment      `json:"segments"` // ordered literal/command pieces
	Commands []VizCommand   `json:"commands"` // validated commands in text order
	Errors   []CommandError `json:"errors,omitempty"`
	Pending  int            `json:"pending"` // markers awaiting more stream text
	Warnings []string       `json:"warnings,omitempty"`
}

// VizRecord is a persisted extraction outcome kept for diagnostics.
type VizRecord struct {
	ID        string      `json:"id" badgerhold:"key"`
	SessionID string      `json:"session_id" badgerhold:"index"`
	CreatedAt time.Time   `json:"created_at" badgerhold:"index"`
	TypeHint  string      `json:"type_hint"`
	Raw       string      `json:"raw"`
	Fixed     string      `json:"fixed,omitempty"`
	Warnings  []string    `json:"warnings,omitempty"`
	Recovered bool        `json:"recovered"`
	Command   *VizCommand `json:"command,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// SessionSnapshot is a read-only view of a streaming chat session.
type SessionSnapshot struct {
	ID        string         `json:"id"`
	Closed    bool           `json:"closed"`
	Text      string         `json:"text"`
	Result    *ExtractResult `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
