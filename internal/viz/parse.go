package viz

import (
	"encoding/json"
	"fmt"

	"github.com/4rankng/paper-trading-sub001/internal/models"
)

// ParseCommand parses a repaired payload and validates it against exactly
// one of the three canonical shapes. Mismatches come back as a typed
// CommandError, never a renderable command.
func ParseCommand(payload, typeHint string) (*models.VizCommand, *models.CommandError) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return nil, &models.CommandError{
			TypeHint: typeHint,
			Reason:   models.ErrReasonParse,
			Detail:   fmt.Sprintf("invalid JSON after repair: %v", err),
			Raw:      payload,
		}
	}

	typ := models.VizType(probe.Type)
	if probe.Type == "" {
		typ = models.VizType(typeHint)
	}

	validateErr := func(detail string) *models.CommandError {
		return &models.CommandError{
			TypeHint: typeHint,
			Reason:   models.ErrReasonValidate,
			Detail:   detail,
			Raw:      payload,
		}
	}

	switch typ {
	case models.VizChart:
		var chart models.ChartCommand
		if err := json.Unmarshal([]byte(payload), &chart); err != nil {
			return nil, validateErr(fmt.Sprintf("chart payload shape mismatch: %v", err))
		}
		if chart.Data.Datasets == nil {
			return nil, validateErr("chart requires data.datasets array")
		}
		return &models.VizCommand{Type: models.VizChart, Chart: &chart}, nil

	case models.VizTable:
		var table models.TableCommand
		if err := json.Unmarshal([]byte(payload), &table); err != nil {
			return nil, validateErr(fmt.Sprintf("table payload shape mismatch: %v", err))
		}
		if table.Headers == nil {
			return nil, validateErr("table requires headers array")
		}
		if table.Rows == nil {
			return nil, validateErr("table requires rows array")
		}
		for i, row := range table.Rows {
			switch row.(type) {
			case []interface{}, map[string]interface{}:
			default:
				return nil, validateErr(fmt.Sprintf("table row %d must be an array or object", i))
			}
		}
		return &models.VizCommand{Type: models.VizTable, Table: &table}, nil

	case models.VizPie:
		var pie struct {
			Data []struct {
				Label *string  `json:"label"`
				Value *float64 `json:"value"`
				Color string   `json:"color"`
			} `json:"data"`
			Options *models.PieOptions `json:"options"`
		}
		if err := json.Unmarshal([]byte(payload), &pie); err != nil {
			return nil, validateErr(fmt.Sprintf("pie payload shape mismatch: %v", err))
		}
		if pie.Data == nil {
			return nil, validateErr("pie requires data array")
		}
		cmd := &models.PieCommand{Options: pie.Options}
		for i, slice := range pie.Data {
			if slice.Label == nil || slice.Value == nil {
				return nil, validateErr(fmt.Sprintf("pie slice %d requires label and value", i))
			}
			cmd.Data = append(cmd.Data, models.PieSlice{
				Label: *slice.Label,
				Value: *slice.Value,
				Color: slice.Color,
			})
		}
		return &models.VizCommand{Type: models.VizPie, Pie: cmd}, nil
	}

	return nil, validateErr(fmt.Sprintf("unknown visualization type %q", string(typ)))
}
