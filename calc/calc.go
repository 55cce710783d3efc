// Package calc derives calorie and macro-nutrient totals from collected slots.
// Every function is total: missing or non-positive inputs yield zero.
package calc

import (
	"math"
	"strings"

	"github.com/tbxark/healthagent/fieldspec"
	"github.com/tbxark/healthagent/types"
)

// ReferenceBodyWeightKg stands in for the user's body weight in the bodyweight
// formula. No per-user weight is collected yet.
const ReferenceBodyWeightKg = 70.0

const (
	bodyweightFactor           = 0.03
	weightedFactor             = 0.045
	defaultCardioKcalPerMinute = 8
)

type cardioRate struct {
	keywords      []string
	kcalPerMinute int
}

// Checked in order; first match wins.
var cardioRates = []cardioRate{
	{[]string{"running", "jogging", "run", "jog", "달리기", "조깅", "런닝", "러닝"}, 11},
	{[]string{"walking", "walk", "걷기", "워킹", "산책"}, 5},
	{[]string{"swimming", "swim", "수영"}, 9},
	{[]string{"cycling", "bike", "bicycle", "자전거", "사이클"}, 7},
}

var bodyPartMultipliers = map[string]float64{
	"chest":     1.2,
	"back":      1.2,
	"legs":      1.2,
	"shoulders": 1.0,
	"arms":      1.0,
	"abs":       0.8,
}

// CardioKcalPerMinute returns the burn rate used for a cardio exercise name.
func CardioKcalPerMinute(exerciseName string) int {
	name := strings.ToLower(strings.TrimSpace(exerciseName))
	for _, r := range cardioRates {
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) {
				return r.kcalPerMinute
			}
		}
	}
	return defaultCardioKcalPerMinute
}

// BodyPartMultiplier weights large muscle groups up and the core down.
func BodyPartMultiplier(bodyPart string) float64 {
	if m, ok := bodyPartMultipliers[fieldspec.NormalizeBodyPart(bodyPart)]; ok {
		return m
	}
	return 1.0
}

// CaloriesBurned estimates the energy spent on an exercise record.
func CaloriesBurned(s types.SlotSet) int {
	switch s.Category {
	case types.CategoryCardio:
		minutes := deref(s.DurationMinutes)
		if minutes <= 0 {
			return 0
		}
		return minutes * CardioKcalPerMinute(s.ExerciseName)
	case types.CategoryStrength:
		sets, reps := deref(s.Sets), deref(s.Reps)
		if sets <= 0 || reps <= 0 {
			return 0
		}
		if fieldspec.IsBodyweight(s.ExerciseName) {
			return roundInt(float64(sets*reps) * ReferenceBodyWeightKg * bodyweightFactor)
		}
		weight := deref(s.WeightKg)
		if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return 0
		}
		return roundInt(weight * float64(sets*reps) * weightedFactor * BodyPartMultiplier(s.TargetBodyPart))
	default:
		return 0
	}
}

// Macros rounds nutrients to one decimal and splits energy between them at
// 4/4/9 kcal per gram of carbohydrate, protein and fat.
func Macros(n *types.Nutrition) *types.MacroSummary {
	if n == nil {
		return nil
	}
	out := &types.MacroSummary{
		CaloriesKcal: round1(n.CaloriesKcal),
		CarbsG:       round1(n.CarbsG),
		ProteinG:     round1(n.ProteinG),
		FatG:         round1(n.FatG),
	}
	carbs, protein, fat := positive(n.CarbsG)*4, positive(n.ProteinG)*4, positive(n.FatG)*9
	total := carbs + protein + fat
	if total > 0 {
		out.CarbsPct = roundInt(carbs / total * 100)
		out.ProteinPct = roundInt(protein / total * 100)
		out.FatPct = roundInt(fat / total * 100)
	}
	return out
}

// Derive computes the derived values shown at confirmation time.
func Derive(kind types.RecordKind, s types.SlotSet) types.Derived {
	switch kind {
	case types.RecordExercise:
		return types.Derived{CaloriesBurned: CaloriesBurned(s)}
	case types.RecordDiet:
		return types.Derived{Macros: Macros(s.Nutrition)}
	default:
		return types.Derived{}
	}
}

func deref[V int | float64](p *V) V {
	if p == nil {
		return 0
	}
	return *p
}

func positive(v float64) float64 {
	if v > 0 && !math.IsInf(v, 0) {
		return v
	}
	return 0
}

// roundInt rounds half away from zero.
func roundInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}

func round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10) / 10
}
