// Package slots owns the one merge function every turn goes through.
package slots

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/tbxark/healthagent/fieldspec"
	"github.com/tbxark/healthagent/types"
)

// Merge overlays the present values of incoming onto current.
// A value is present when it is non-nil, not an empty string, and coerces to
// the field's type; anything else generates no operation and so can never
// erase what current already holds. Merge(s, nil) returns s unchanged.
func Merge(current types.SlotSet, incoming types.Partial) (types.SlotSet, error) {
	ops := Operations(incoming)
	if len(ops) == 0 {
		return current.Clone(), nil
	}
	merged, err := apply(current.Clone(), ops)
	if err != nil {
		return current, err
	}
	slog.Debug("slots merged", "ops", len(ops), "changed", Diff(current, merged))
	return merged, nil
}

// MergeSlots overlays every present field of incoming onto current.
func MergeSlots(current, incoming types.SlotSet) (types.SlotSet, error) {
	partial, err := ToPartial(incoming)
	if err != nil {
		return current, err
	}
	return Merge(current, partial)
}

// Operations turns the present values of a partial into RFC6902 add
// operations, in a stable key order.
func Operations(incoming types.Partial) []Operation {
	keys := make([]string, 0, len(incoming))
	for k := range incoming {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]Operation, 0, len(keys))
	for _, k := range keys {
		id := types.FieldID(k)
		info, ok := fieldspec.Lookup(id)
		if !ok {
			continue
		}
		value, ok := coerce(info, incoming[k])
		if !ok {
			continue
		}
		ops = append(ops, Operation{Op: OperationAdd, Path: id.Pointer(), Value: value})
	}
	return ops
}

// ToPartial converts a typed slot set into its wire form; absent fields are omitted.
func ToPartial(s types.SlotSet) (types.Partial, error) {
	raw, err := sonic.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal slots: %w", err)
	}
	var out types.Partial
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return out, nil
}

func coerce(info types.FieldInfo, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch {
	case info.ID == types.FieldNutrition:
		return coerceNutrition(v)
	case info.ID == types.FieldCategory:
		s, ok := coerceString(v)
		if !ok {
			return nil, false
		}
		c, ok := fieldspec.ParseCategory(s)
		return string(c), ok
	case info.Numeric:
		f, ok := coerceNumber(v)
		if !ok || f < 0 {
			return nil, false
		}
		if info.Integer {
			if f != math.Trunc(f) || f > math.MaxInt32 {
				return nil, false
			}
			return int(f), true
		}
		return f, true
	default:
		return coerceString(v)
	}
}

func coerceString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func coerceNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimSuffix(strings.ToLower(s), "kg")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var nutritionKeys = []string{"calories_kcal", "carbs_g", "protein_g", "fat_g"}

// coerceNutrition accepts an object with numeric nutrient keys; calories are
// mandatory, missing macros count as zero.
func coerceNutrition(v any) (any, bool) {
	var m map[string]any
	switch n := v.(type) {
	case map[string]any:
		m = n
	case types.Nutrition, *types.Nutrition:
		p, err := ToPartial(types.SlotSet{Nutrition: nutritionPtr(n)})
		if err != nil {
			return nil, false
		}
		m, _ = p[string(types.FieldNutrition)].(map[string]any)
	default:
		return nil, false
	}
	if m == nil {
		return nil, false
	}
	if _, ok := m["calories_kcal"]; !ok {
		return nil, false
	}
	out := make(map[string]any, len(nutritionKeys))
	for _, k := range nutritionKeys {
		raw, ok := m[k]
		if !ok || raw == nil {
			out[k] = 0.0
			continue
		}
		f, ok := coerceNumber(raw)
		if !ok || f < 0 {
			return nil, false
		}
		out[k] = f
	}
	return out, true
}

func nutritionPtr(v any) *types.Nutrition {
	switch n := v.(type) {
	case types.Nutrition:
		return &n
	case *types.Nutrition:
		return n
	}
	return nil
}

// Value returns the dereferenced value of a field and whether it is present.
func Value(s types.SlotSet, f types.FieldID) (any, bool) {
	if !s.Has(f) {
		return nil, false
	}
	switch f {
	case types.FieldExerciseName:
		return s.ExerciseName, true
	case types.FieldCategory:
		return s.Category, true
	case types.FieldTargetBodyPart:
		return s.TargetBodyPart, true
	case types.FieldSets:
		return *s.Sets, true
	case types.FieldReps:
		return *s.Reps, true
	case types.FieldWeightKg:
		return *s.WeightKg, true
	case types.FieldDurationMinutes:
		return *s.DurationMinutes, true
	case types.FieldFoodName:
		return s.FoodName, true
	case types.FieldAmount:
		return s.Amount, true
	case types.FieldMealTime:
		return s.MealTime, true
	case types.FieldNutrition:
		return *s.Nutrition, true
	}
	return nil, false
}

var allFields = []types.FieldID{
	types.FieldExerciseName, types.FieldCategory, types.FieldTargetBodyPart,
	types.FieldSets, types.FieldReps, types.FieldWeightKg, types.FieldDurationMinutes,
	types.FieldFoodName, types.FieldAmount, types.FieldMealTime, types.FieldNutrition,
}

// Diff lists the fields whose presence or value differs between a and b.
func Diff(a, b types.SlotSet) []types.FieldID {
	var changed []types.FieldID
	for _, f := range allFields {
		av, aok := Value(a, f)
		bv, bok := Value(b, f)
		if aok != bok || !reflect.DeepEqual(av, bv) {
			changed = append(changed, f)
		}
	}
	return changed
}
