package types

import (
	"time"
)

type RecordKind string

const (
	RecordExercise RecordKind = "exercise"
	RecordDiet     RecordKind = "diet"
)

func (k RecordKind) Valid() bool {
	return k == RecordExercise || k == RecordDiet
}

type Category string

const (
	CategoryStrength Category = "strength"
	CategoryCardio   Category = "cardio"
)

// Stage is the dialogue stage. AwaitingField carries its field in Session.PendingField.
type Stage string

const (
	StageCollecting    Stage = "collecting"
	StageAwaitingField Stage = "awaiting_field"
	StageConfirming    Stage = "confirming"
	StageCommitted     Stage = "committed"
	StageCancelled     Stage = "cancelled"
)

func (s Stage) Terminal() bool {
	return s == StageCommitted || s == StageCancelled
}

// FieldID names a slot. It is also the JSON name of the SlotSet field.
type FieldID string

const (
	FieldExerciseName    FieldID = "exercise_name"
	FieldCategory        FieldID = "category"
	FieldTargetBodyPart  FieldID = "target_body_part"
	FieldSets            FieldID = "sets"
	FieldReps            FieldID = "reps"
	FieldWeightKg        FieldID = "weight_kg"
	FieldDurationMinutes FieldID = "duration_minutes"

	FieldFoodName  FieldID = "food_name"
	FieldAmount    FieldID = "amount"
	FieldMealTime  FieldID = "meal_time"
	FieldNutrition FieldID = "nutrition"
)

// Pointer returns the RFC6901 pointer of the field inside a SlotSet document.
func (f FieldID) Pointer() string {
	return "/" + string(f)
}

type FieldInfo struct {
	ID          FieldID `json:"id"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required"`
	Askable     bool    `json:"askable"`
	Numeric     bool    `json:"numeric,omitempty"`
	Integer     bool    `json:"integer,omitempty"`
}

type Nutrition struct {
	CaloriesKcal float64 `json:"calories_kcal" jsonschema:"description=Energy in kcal for the eaten amount"`
	CarbsG       float64 `json:"carbs_g" jsonschema:"description=Carbohydrates in grams"`
	ProteinG     float64 `json:"protein_g" jsonschema:"description=Protein in grams"`
	FatG         float64 `json:"fat_g" jsonschema:"description=Fat in grams"`
}

// SlotSet accumulates the structured record of one logging attempt.
// Empty strings and nil pointers mean "absent".
type SlotSet struct {
	ExerciseName    string   `json:"exercise_name,omitempty" jsonschema:"description=Exercise name as the user said it"`
	Category        Category `json:"category,omitempty" jsonschema:"enum=strength,enum=cardio,description=strength or cardio"`
	TargetBodyPart  string   `json:"target_body_part,omitempty" jsonschema:"description=chest/back/legs/shoulders/arms/abs"`
	Sets            *int     `json:"sets,omitempty" jsonschema:"description=Number of sets"`
	Reps            *int     `json:"reps,omitempty" jsonschema:"description=Repetitions per set"`
	WeightKg        *float64 `json:"weight_kg,omitempty" jsonschema:"description=Weight lifted in kg"`
	DurationMinutes *int     `json:"duration_minutes,omitempty" jsonschema:"description=Duration in minutes"`

	FoodName  string     `json:"food_name,omitempty" jsonschema:"description=Food name"`
	Amount    string     `json:"amount,omitempty" jsonschema:"description=Eaten amount such as 1그릇 or 200g"`
	MealTime  string     `json:"meal_time,omitempty" jsonschema:"description=Meal time: 아침/점심/저녁/간식/야식"`
	Nutrition *Nutrition `json:"nutrition,omitempty" jsonschema:"description=Nutrients for the eaten amount"`
}

func (s SlotSet) Has(f FieldID) bool {
	switch f {
	case FieldExerciseName:
		return s.ExerciseName != ""
	case FieldCategory:
		return s.Category != ""
	case FieldTargetBodyPart:
		return s.TargetBodyPart != ""
	case FieldSets:
		return s.Sets != nil
	case FieldReps:
		return s.Reps != nil
	case FieldWeightKg:
		return s.WeightKg != nil
	case FieldDurationMinutes:
		return s.DurationMinutes != nil
	case FieldFoodName:
		return s.FoodName != ""
	case FieldAmount:
		return s.Amount != ""
	case FieldMealTime:
		return s.MealTime != ""
	case FieldNutrition:
		return s.Nutrition != nil
	default:
		return false
	}
}

// Clone returns a deep copy so callers never share pointees.
func (s SlotSet) Clone() SlotSet {
	out := s
	out.Sets = clonePtr(s.Sets)
	out.Reps = clonePtr(s.Reps)
	out.WeightKg = clonePtr(s.WeightKg)
	out.DurationMinutes = clonePtr(s.DurationMinutes)
	out.Nutrition = clonePtr(s.Nutrition)
	return out
}

func clonePtr[V any](p *V) *V {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s SlotSet) IsEmpty() bool {
	return s == SlotSet{}
}

// Partial is the wire shape of a partial SlotSet, keyed by FieldID.
type Partial map[string]any

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

type MacroSummary struct {
	CaloriesKcal float64 `json:"calories_kcal"`
	CarbsG       float64 `json:"carbs_g"`
	ProteinG     float64 `json:"protein_g"`
	FatG         float64 `json:"fat_g"`
	CarbsPct     int     `json:"carbs_pct"`
	ProteinPct   int     `json:"protein_pct"`
	FatPct       int     `json:"fat_pct"`
}

type Derived struct {
	CaloriesBurned int           `json:"calories_burned,omitempty"`
	Macros         *MacroSummary `json:"macros,omitempty"`
}

// Record is the finalized payload handed to the commit collaborator.
type Record struct {
	ID          string     `json:"id,omitempty"`
	Kind        RecordKind `json:"kind"`
	Slots       SlotSet    `json:"slots"`
	Derived     Derived    `json:"derived"`
	Summary     string     `json:"summary"`
	ConfirmedAt time.Time  `json:"confirmed_at,omitempty"`
}
