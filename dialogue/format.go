package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbxark/healthagent/fieldspec"
	"github.com/tbxark/healthagent/types"
)

// Format renders the confirmation summary of a record. It is pure and prints
// numbers exactly as stored in slots and derived; it never recomputes them.
func Format(kind types.RecordKind, s types.SlotSet, d types.Derived) string {
	var lines []string
	switch kind {
	case types.RecordExercise:
		lines = formatExercise(s, d)
	case types.RecordDiet:
		lines = formatDiet(s, d)
	}
	return strings.Join(lines, "\n")
}

func formatExercise(s types.SlotSet, d types.Derived) []string {
	var lines []string
	if s.ExerciseName != "" {
		lines = append(lines, "✅ 운동명: "+s.ExerciseName)
	}
	switch s.Category {
	case types.CategoryStrength:
		var tags []string
		if s.TargetBodyPart != "" {
			tags = append(tags, fieldspec.BodyPartLabel(s.TargetBodyPart))
		}
		if fieldspec.IsBodyweight(s.ExerciseName) {
			tags = append(tags, "맨몸")
		}
		label := "💪 분류: 근력운동"
		if len(tags) > 0 {
			label += " (" + strings.Join(tags, ", ") + ")"
		}
		lines = append(lines, label)
	case types.CategoryCardio:
		lines = append(lines, "🏃 분류: 유산소")
		if s.TargetBodyPart != "" {
			lines = append(lines, "🎯 부위: "+fieldspec.BodyPartLabel(s.TargetBodyPart))
		}
	}
	if s.WeightKg != nil {
		lines = append(lines, "🏋️ 무게: "+number(*s.WeightKg)+"kg")
	}
	if s.Sets != nil {
		lines = append(lines, fmt.Sprintf("🔢 세트: %d세트", *s.Sets))
	}
	if s.Reps != nil {
		lines = append(lines, fmt.Sprintf("🔄 횟수: %d회", *s.Reps))
	}
	if s.DurationMinutes != nil {
		lines = append(lines, fmt.Sprintf("⏱️ 운동시간: %d분", *s.DurationMinutes))
	}
	lines = append(lines, fmt.Sprintf("🔥 소모 칼로리: %dkcal", d.CaloriesBurned))
	return lines
}

func formatDiet(s types.SlotSet, d types.Derived) []string {
	var lines []string
	if s.FoodName != "" {
		lines = append(lines, "✅ 음식명: "+s.FoodName)
	}
	if s.Amount != "" {
		lines = append(lines, "📏 섭취량: "+s.Amount)
	}
	if s.MealTime != "" {
		lines = append(lines, "⏰ 식사시간: "+s.MealTime)
	}
	switch {
	case d.Macros != nil:
		m := d.Macros
		lines = append(lines,
			"🔥 칼로리: "+number(m.CaloriesKcal)+"kcal",
			fmt.Sprintf("🍚 탄수화물: %sg (%d%%)", number(m.CarbsG), m.CarbsPct),
			fmt.Sprintf("🥩 단백질: %sg (%d%%)", number(m.ProteinG), m.ProteinPct),
			fmt.Sprintf("🧈 지방: %sg (%d%%)", number(m.FatG), m.FatPct),
		)
	case s.Nutrition != nil:
		n := s.Nutrition
		lines = append(lines,
			"🔥 칼로리: "+number(n.CaloriesKcal)+"kcal",
			"🍚 탄수화물: "+number(n.CarbsG)+"g",
			"🥩 단백질: "+number(n.ProteinG)+"g",
			"🧈 지방: "+number(n.FatG)+"g",
		)
	}
	return lines
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ConfirmationPrompt appends the confirm/deny instruction to a summary.
func ConfirmationPrompt(summary string) string {
	return summary + "\n\n이 정보가 맞나요? 맞으면 '네' 또는 '저장', 아니면 '아니오'라고 해주세요! 😊"
}
