package dialogue

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tbxark/healthagent/calc"
	"github.com/tbxark/healthagent/types"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestFormatWeightedStrength(t *testing.T) {
	t.Parallel()
	s := types.SlotSet{
		ExerciseName: "벤치프레스", Category: types.CategoryStrength, TargetBodyPart: "chest",
		Sets: intPtr(3), Reps: intPtr(10), WeightKg: floatPtr(60),
	}
	got := Format(types.RecordExercise, s, calc.Derive(types.RecordExercise, s))
	want := strings.Join([]string{
		"✅ 운동명: 벤치프레스",
		"💪 분류: 근력운동 (가슴)",
		"🏋️ 무게: 60kg",
		"🔢 세트: 3세트",
		"🔄 횟수: 10회",
		"🔥 소모 칼로리: 97kcal",
	}, "\n")
	if got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatBodyweightAndCardio(t *testing.T) {
	t.Parallel()
	pushup := types.SlotSet{ExerciseName: "푸시업", Category: types.CategoryStrength, Sets: intPtr(3), Reps: intPtr(10)}
	got := Format(types.RecordExercise, pushup, calc.Derive(types.RecordExercise, pushup))
	if !strings.Contains(got, "근력운동 (맨몸)") || !strings.Contains(got, "63kcal") || strings.Contains(got, "무게") {
		t.Errorf("bodyweight summary:\n%s", got)
	}

	run := types.SlotSet{ExerciseName: "달리기", Category: types.CategoryCardio, DurationMinutes: intPtr(30)}
	got = Format(types.RecordExercise, run, calc.Derive(types.RecordExercise, run))
	if !strings.Contains(got, "🏃 분류: 유산소") || !strings.Contains(got, "⏱️ 운동시간: 30분") || !strings.Contains(got, "330kcal") {
		t.Errorf("cardio summary:\n%s", got)
	}
}

func TestFormatPrintsDerivedValuesVerbatim(t *testing.T) {
	t.Parallel()
	s := types.SlotSet{ExerciseName: "벤치프레스", Category: types.CategoryStrength, Sets: intPtr(1), Reps: intPtr(1), WeightKg: floatPtr(62.5)}
	got := Format(types.RecordExercise, s, types.Derived{CaloriesBurned: 12345})
	if !strings.Contains(got, "62.5kg") || !strings.Contains(got, "12345kcal") {
		t.Errorf("summary must not recompute values:\n%s", got)
	}
}

func TestFormatDiet(t *testing.T) {
	t.Parallel()
	s := types.SlotSet{
		FoodName: "김치찌개", Amount: "1그릇", MealTime: "점심",
		Nutrition: &types.Nutrition{CaloriesKcal: 452.26, CarbsG: 50, ProteinG: 25, FatG: 20},
	}
	got := Format(types.RecordDiet, s, calc.Derive(types.RecordDiet, s))
	for _, line := range []string{
		"✅ 음식명: 김치찌개",
		"📏 섭취량: 1그릇",
		"⏰ 식사시간: 점심",
		"🔥 칼로리: 452.3kcal",
		"🍚 탄수화물: 50g (42%)",
		"🥩 단백질: 25g (21%)",
		"🧈 지방: 20g (38%)",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("diet summary missing %q:\n%s", line, got)
		}
	}
}

func TestFormatPartialDoesNotPanic(t *testing.T) {
	t.Parallel()
	_ = Format(types.RecordExercise, types.SlotSet{}, types.Derived{})
	_ = Format(types.RecordDiet, types.SlotSet{FoodName: "사과"}, types.Derived{})
	_ = Format("unknown", types.SlotSet{}, types.Derived{})
}

func TestConfirmationPrompt(t *testing.T) {
	t.Parallel()
	got := ConfirmationPrompt("✅ 운동명: 스쿼트")
	if !strings.HasPrefix(got, "✅ 운동명: 스쿼트\n\n") || !strings.Contains(got, "'저장'") {
		t.Errorf("ConfirmationPrompt() = %q", got)
	}
}

func TestQuestionsAndCorrections(t *testing.T) {
	t.Parallel()
	if Question(types.FieldWeightKg) != "몇 kg으로 하셨나요? 💪" {
		t.Errorf("weight question = %q", Question(types.FieldWeightKg))
	}
	parse := Correction(types.FieldWeightKg, fmt.Errorf("x: %w", types.ErrInputParse))
	if !strings.Contains(parse, "확인하지 못했어요") || !strings.HasSuffix(parse, Question(types.FieldWeightKg)) {
		t.Errorf("parse correction = %q", parse)
	}
	invariant := Correction(types.FieldSets, fmt.Errorf("x: %w", types.ErrInvariantViolation))
	if !strings.Contains(invariant, "0보다 큰") {
		t.Errorf("invariant correction = %q", invariant)
	}
	if Committed(types.RecordExercise) != "운동 기록이 저장되었습니다! 다른 운동을 기록하시겠습니까?" {
		t.Errorf("exercise commit message = %q", Committed(types.RecordExercise))
	}
}
