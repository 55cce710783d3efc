package fieldspec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tbxark/healthagent/types"
)

var (
	bareNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

	taggedPatterns = map[types.FieldID]*regexp.Regexp{
		types.FieldSets:            regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*(?:세트|sets?\b)`),
		types.FieldReps:            regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*(?:회|번|reps?\b|times?\b)`),
		types.FieldWeightKg:        regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*(?:kg|킬로|키로)`),
		types.FieldDurationMinutes: regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*(?:분|min(?:ute)?s?\b)`),
	}
	hoursPattern = regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*(?:시간|hours?\b|h\b)`)

	taggedOrder = []types.FieldID{types.FieldSets, types.FieldReps, types.FieldWeightKg, types.FieldDurationMinutes}

	upperBounds = map[types.FieldID]float64{
		types.FieldSets:            100,
		types.FieldReps:            1000,
		types.FieldWeightKg:        1000,
		types.FieldDurationMinutes: 1440,
	}
)

// ParseReply reads a value for field out of a free-text reply.
// It fails with types.ErrInputParse when nothing usable is found and with
// types.ErrInvariantViolation when a number is found but out of range.
func ParseReply(field types.FieldID, text string) (any, error) {
	text = strings.TrimSpace(text)
	info, ok := Lookup(field)
	if !ok {
		return nil, fmt.Errorf("unknown field %q: %w", field, types.ErrInputParse)
	}
	if info.Numeric {
		return parseNumericReply(info, text)
	}
	if text == "" {
		return nil, fmt.Errorf("%s: empty reply: %w", field, types.ErrInputParse)
	}
	switch field {
	case types.FieldCategory:
		category, ok := ParseCategory(text)
		if !ok {
			return nil, fmt.Errorf("%s: %q is neither strength nor cardio: %w", field, text, types.ErrInputParse)
		}
		return string(category), nil
	case types.FieldTargetBodyPart:
		return NormalizeBodyPart(text), nil
	case types.FieldMealTime:
		if meal, ok := NormalizeMealTime(text); ok {
			return meal, nil
		}
		return text, nil
	case types.FieldAmount:
		return NormalizeAmount(text), nil
	default:
		return text, nil
	}
}

func parseNumericReply(info types.FieldInfo, text string) (any, error) {
	raw, found := taggedNumber(info.ID, text)
	if !found {
		if other, ok := otherTaggedField(info.ID, text); ok {
			return nil, fmt.Errorf("%s: %q is tagged as %s: %w", info.ID, text, other, types.ErrInputParse)
		}
		raw = bareNumber.FindString(text)
	}
	if raw == "" {
		return nil, fmt.Errorf("%s: no number in %q: %w", info.ID, text, types.ErrInputParse)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("%s: %q is not a number: %w", info.ID, raw, types.ErrInputParse)
	}
	return checkNumeric(info, value)
}

func checkNumeric(info types.FieldInfo, value float64) (any, error) {
	if value <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %v: %w", info.ID, value, types.ErrInvariantViolation)
	}
	if limit, ok := upperBounds[info.ID]; ok && value > limit {
		return nil, fmt.Errorf("%s must be at most %v, got %v: %w", info.ID, limit, value, types.ErrInvariantViolation)
	}
	if info.Integer {
		if value != math.Trunc(value) {
			return nil, fmt.Errorf("%s must be a whole number, got %v: %w", info.ID, value, types.ErrInvariantViolation)
		}
		return int(value), nil
	}
	return value, nil
}

// otherTaggedField reports a numeric field other than field whose unit tags
// a number in text.
func otherTaggedField(field types.FieldID, text string) (types.FieldID, bool) {
	for _, other := range taggedOrder {
		if other == field {
			continue
		}
		if _, ok := taggedNumber(other, text); ok {
			return other, true
		}
	}
	return "", false
}

func taggedNumber(field types.FieldID, text string) (string, bool) {
	if field == types.FieldDurationMinutes {
		if m := hoursPattern.FindStringSubmatch(text); m != nil {
			hours, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				return strconv.FormatFloat(hours*60, 'f', -1, 64), true
			}
		}
	}
	re, ok := taggedPatterns[field]
	if !ok {
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseTagged extracts every unit-tagged number ("3세트", "10회", "60kg", "30분")
// that passes the field's range checks.
func ParseTagged(text string) types.Partial {
	out := types.Partial{}
	for _, field := range taggedOrder {
		raw, ok := taggedNumber(field, text)
		if !ok {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		info, _ := Lookup(field)
		v, err := checkNumeric(info, value)
		if err != nil {
			continue
		}
		out[string(field)] = v
	}
	return out
}

// ParseCategory maps free text onto strength or cardio.
func ParseCategory(text string) (types.Category, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(t, "유산소"), strings.Contains(t, "cardio"), strings.Contains(t, "aerobic"):
		return types.CategoryCardio, true
	case strings.Contains(t, "근력"), strings.Contains(t, "strength"), strings.Contains(t, "웨이트"),
		strings.Contains(t, "weight"), strings.Contains(t, "무산소"):
		return types.CategoryStrength, true
	}
	return "", false
}
