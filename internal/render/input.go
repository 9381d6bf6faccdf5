package render

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// StringValue presents value as a single string. nil and non-string values
// other than numbers render as "".
func StringValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	}
	if n, ok := Number(value); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

// Number reports value as a float64 when it is a finite number. NaN and
// infinities are not numbers to a form.
func Number(value any) (float64, bool) {
	n, ok := number(value)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// Selection returns value as a checkbox selection. A prior value that is not
// an array is an empty selection.
func Selection(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

// NumericInput maps raw numeric input to a stored value: "" when the user
// cleared the field, otherwise the parsed number. Input that does not parse
// is kept as-is so submit-time validation can flag it. "NaN" and "Inf" do not
// parse.
func NumericInput(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return raw
	}
	return n
}

// TextInput caps raw text input at the field's charLimit, counted in
// characters.
func TextInput(field formschema.FieldSchema, raw string) string {
	limit := field.Rules().CharLimit
	if limit == nil || *limit < 0 || utf8.RuneCountInString(raw) <= *limit {
		return raw
	}
	runes := []rune(raw)
	return string(runes[:*limit])
}

// ToggleOption adds option to the selection in current, or removes it if it
// is already selected. The result is a new slice.
func ToggleOption(current any, option string) []string {
	sel := Selection(current)
	out := make([]string, 0, len(sel)+1)
	removed := false
	for _, s := range sel {
		if s == option {
			removed = true
			continue
		}
		out = append(out, s)
	}
	if !removed {
		out = append(out, option)
	}
	return out
}

// SelectFiles maps a file-picker selection to a stored value. A selection
// replaces the previous set. Choosing zero files after a non-empty state is
// treated as a cancelled dialog: the previous set is kept and changed is
// false, so no value change should be emitted.
func SelectFiles(current any, files []types.FileRef) (value []types.FileRef, changed bool) {
	prev := Files(current)
	if len(files) == 0 {
		return prev, false
	}
	return append([]types.FileRef(nil), files...), true
}
