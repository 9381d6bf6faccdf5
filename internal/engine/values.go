package engine

import (
	"encoding/json"
	"strings"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/render"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// Values maps field keys to submitted values. Canonical shapes are string
// (text, alphanumeric, textarea, dropdown, radio, date, map), float64 or ""
// (numeric), []string (checkbox) and []types.FileRef (file_upload).
type Values map[string]any

// Clone returns a copy of v. Slice values are copied so callers cannot
// mutate engine state through the result.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		switch s := val.(type) {
		case []string:
			out[k] = append([]string(nil), s...)
		case []types.FileRef:
			out[k] = append([]types.FileRef(nil), s...)
		case []any:
			out[k] = append([]any(nil), s...)
		default:
			out[k] = val
		}
	}
	return out
}

// IsEmpty reports whether value counts as unanswered: nil, a blank string,
// or an empty array.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case []types.FileRef:
		return len(v) == 0
	}
	return false
}

// Normalize converts loosely typed values, such as decoded JSON, into the
// canonical shape for each field of tpl. Keys that name no field are
// dropped and returned.
func Normalize(tpl *formschema.FormTemplate, raw map[string]any) (Values, []string) {
	out := make(Values, len(raw))
	var unknown []string
	for k, v := range raw {
		f, ok := tpl.Field(k)
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		out[k] = normalizeValue(f, v)
	}
	return out, unknown
}

func normalizeValue(f formschema.FieldSchema, v any) any {
	if v == nil {
		return nil
	}
	switch f.Type {
	case formschema.FieldNumeric:
		if n, ok := render.Number(v); ok {
			return n
		}
		if s, ok := v.(string); ok {
			return render.NumericInput(s)
		}
		return v
	case formschema.FieldCheckbox:
		switch v.(type) {
		case []string, []any:
			return render.Selection(v)
		}
		return v
	case formschema.FieldFileUpload:
		return fileRefs(v)
	default:
		if _, ok := v.(string); ok {
			return v
		}
		if _, ok := render.Number(v); ok {
			return render.StringValue(v)
		}
		return v
	}
}

func fileRefs(v any) any {
	switch refs := v.(type) {
	case []types.FileRef:
		return refs
	case []any:
		b, err := json.Marshal(refs)
		if err != nil {
			return v
		}
		var out []types.FileRef
		if err := json.Unmarshal(b, &out); err != nil {
			return v
		}
		return out
	}
	return v
}

// defaults returns the default values of fields that have one.
func defaults(fields []formschema.FieldSchema) Values {
	out := make(Values)
	for _, f := range fields {
		if f.DefaultValue == nil {
			continue
		}
		dv := *f.DefaultValue
		switch f.Type {
		case formschema.FieldNumeric:
			out[f.Key] = render.NumericInput(dv)
		case formschema.FieldCheckbox:
			if dv != "" {
				out[f.Key] = []string{dv}
			}
		case formschema.FieldFileUpload:
		default:
			out[f.Key] = dv
		}
	}
	return out
}
