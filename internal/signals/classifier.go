package signals

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// Classification is the signal an activity entry maps to.
type Classification struct {
	Category     string
	Weight       string
	Polarity     string
	Description  string
	Registration *Registration
}

// Classify looks up the entry's event type in the registry and returns the
// matching classification. Registrations with a condition are tried first,
// matched against the entry payload; an unconditional registration is the
// fallback.
//
// Returns ok=false if no registration matches.
func Classify(entry types.ActivityEntry) (result Classification, ok bool) {
	registrations := Lookup(entry.EventType)
	if len(registrations) == 0 {
		return Classification{}, false
	}

	var payload map[string]any
	if len(entry.Payload) > 0 {
		_ = json.Unmarshal(entry.Payload, &payload)
	}

	var fallback *Registration
	for i := range registrations {
		reg := &registrations[i]
		if reg.Condition == "" {
			if fallback == nil {
				fallback = reg
			}
			continue
		}
		if matchCondition(reg.Condition, payload) {
			return classificationOf(reg), true
		}
	}
	if fallback != nil {
		return classificationOf(fallback), true
	}
	return Classification{}, false
}

func classificationOf(reg *Registration) Classification {
	return Classification{
		Category:     reg.Category,
		Weight:       reg.Weight,
		Polarity:     reg.Polarity,
		Description:  reg.Description,
		Registration: reg,
	}
}

// matchCondition performs simple condition matching against payload fields.
// Supports: "field == value", "field != value", "field > N", "field < N",
// "field <= N", "field >= N".
func matchCondition(condition string, payload map[string]any) bool {
	if payload == nil {
		return false
	}

	// Two-char operators before single-char.
	for _, op := range []string{"<=", ">=", "==", "!=", "<", ">"} {
		parts := strings.SplitN(condition, op, 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		expected := strings.TrimSpace(parts[1])
		actual, exists := payload[key]
		if !exists {
			return op == "!="
		}
		switch op {
		case "==":
			return valueEquals(actual, expected)
		case "!=":
			return !valueEquals(actual, expected)
		case "<=":
			return valueCompare(actual, expected) <= 0
		case ">=":
			return valueCompare(actual, expected) >= 0
		case "<":
			return valueCompare(actual, expected) < 0
		case ">":
			return valueCompare(actual, expected) > 0
		}
	}
	return false
}

func valueEquals(actual any, expected string) bool {
	switch v := actual.(type) {
	case string:
		return v == expected
	case float64:
		ev, err := strconv.ParseFloat(expected, 64)
		if err != nil {
			return strconv.FormatFloat(v, 'f', -1, 64) == expected
		}
		return v == ev
	case bool:
		return (v && expected == "true") || (!v && expected == "false")
	default:
		return false
	}
}

// valueCompare returns -1, 0, or 1 comparing actual to threshold numerically.
func valueCompare(actual any, threshold string) int {
	av, ok := actual.(float64)
	if !ok {
		return 0
	}
	tv, err := strconv.ParseFloat(threshold, 64)
	if err != nil {
		return 0
	}
	if av < tv {
		return -1
	}
	if av > tv {
		return 1
	}
	return 0
}
