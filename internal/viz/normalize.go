package viz

import "encoding/json"

// normalizeSchema is the final fixer pass. It only runs once the payload
// is valid JSON, renaming and defaulting fields into the canonical
// chart/table/pie shapes. The document is re-serialized only when
// something actually changed, which keeps the pipeline idempotent.
func normalizeSchema(in []rune, typeHint string) ([]rune, []string, error) {
	src := string(in)
	if !json.Valid([]byte(src)) {
		return in, nil, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		// Valid JSON but not an object; nothing to normalize.
		return in, nil, nil
	}

	var warnings []string
	changed := false

	if typeHint == "chart" {
		if t, ok := doc["type"].(string); ok && (t == "line" || t == "bar" || t == "scatter") {
			if _, has := doc["chartType"]; !has {
				doc["chartType"] = t
			}
			doc["type"] = "chart"
			changed = true
			warnings = append(warnings, "renamed type:\""+t+"\" to chartType")
		}
	}

	if typeHint == "table" {
		if cols, ok := doc["columns"]; ok {
			if _, has := doc["headers"]; !has {
				doc["headers"] = cols
			}
			delete(doc, "columns")
			changed = true
			warnings = append(warnings, "renamed columns to headers")
		}
		if _, ok := doc["headers"]; !ok {
			doc["headers"] = []interface{}{}
			changed = true
			warnings = append(warnings, "defaulted missing headers to []")
		}
		if _, ok := doc["rows"]; !ok {
			doc["rows"] = []interface{}{}
			changed = true
			warnings = append(warnings, "defaulted missing rows to []")
		}
	}

	if _, ok := doc["type"]; !ok && typeHint != "" {
		doc["type"] = typeHint
		changed = true
		warnings = append(warnings, "defaulted missing type to \""+typeHint+"\"")
	}

	if t, _ := doc["type"].(string); t == "chart" {
		if _, ok := doc["chartType"]; !ok {
			doc["chartType"] = "bar"
			changed = true
			warnings = append(warnings, "defaulted missing chartType to \"bar\"")
		}
		if _, ok := doc["data"]; !ok {
			doc["data"] = map[string]interface{}{}
			changed = true
			warnings = append(warnings, "defaulted missing data to {}")
		}
	}

	if !changed {
		return in, nil, nil
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return in, nil, err
	}
	return []rune(string(out)), warnings, nil
}
