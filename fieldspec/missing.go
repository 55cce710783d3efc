package fieldspec

import (
	"strings"

	"github.com/tbxark/healthagent/types"
)

var bodyweightKeywords = []string{
	"push-up", "pushup", "push up", "푸시업", "푸쉬업", "팔굽혀펴기",
	"pull-up", "pullup", "pull up", "풀업", "턱걸이",
	"plank", "플랭크",
	"crunch", "크런치",
	"sit-up", "situp", "sit up", "싯업", "윗몸일으키기",
	"burpee", "버피",
}

// IsBodyweight reports whether the exercise uses the body as its resistance.
func IsBodyweight(exerciseName string) bool {
	name := strings.ToLower(strings.TrimSpace(exerciseName))
	if name == "" {
		return false
	}
	for _, kw := range bodyweightKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// Missing lists the required fields still absent from slots, in fixed order.
// A category-less exercise only requires the name and the category itself until
// the category tells which branch applies.
func Missing(kind types.RecordKind, slots types.SlotSet) []types.FieldID {
	var required []types.FieldID
	switch kind {
	case types.RecordExercise:
		required = []types.FieldID{types.FieldExerciseName, types.FieldCategory}
		switch slots.Category {
		case types.CategoryStrength:
			required = append(required, types.FieldSets, types.FieldReps)
			if !IsBodyweight(slots.ExerciseName) {
				required = append(required, types.FieldWeightKg)
			}
		case types.CategoryCardio:
			required = append(required, types.FieldDurationMinutes)
		}
	case types.RecordDiet:
		required = []types.FieldID{types.FieldFoodName, types.FieldMealTime, types.FieldNutrition}
	}

	missing := make([]types.FieldID, 0, len(required))
	for _, f := range required {
		if !slots.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// NextAskable returns the first missing field the user can be asked for.
func NextAskable(missing []types.FieldID) (types.FieldID, bool) {
	for _, id := range missing {
		if info, ok := Lookup(id); ok && info.Askable {
			return id, true
		}
	}
	return "", false
}
