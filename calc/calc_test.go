package calc

import (
	"testing"

	"github.com/tbxark/healthagent/types"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestCaloriesBurned(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		slots types.SlotSet
		want  int
	}{
		{
			name:  "push-ups use reference body weight",
			slots: types.SlotSet{ExerciseName: "푸시업", Category: types.CategoryStrength, Sets: intPtr(3), Reps: intPtr(10)},
			want:  63,
		},
		{
			name: "bench press on chest",
			slots: types.SlotSet{
				ExerciseName: "벤치프레스", Category: types.CategoryStrength, TargetBodyPart: "chest",
				Sets: intPtr(3), Reps: intPtr(10), WeightKg: floatPtr(60),
			},
			want: 97,
		},
		{
			name: "korean body part alias",
			slots: types.SlotSet{
				ExerciseName: "스쿼트", Category: types.CategoryStrength, TargetBodyPart: "하체",
				Sets: intPtr(5), Reps: intPtr(5), WeightKg: floatPtr(100),
			},
			want: 135,
		},
		{
			name: "abs multiplier",
			slots: types.SlotSet{
				ExerciseName: "케이블 트위스트", Category: types.CategoryStrength, TargetBodyPart: "abs",
				Sets: intPtr(3), Reps: intPtr(15), WeightKg: floatPtr(20),
			},
			want: 32,
		},
		{
			name: "unknown body part defaults to 1.0",
			slots: types.SlotSet{
				ExerciseName: "데드리프트", Category: types.CategoryStrength,
				Sets: intPtr(3), Reps: intPtr(5), WeightKg: floatPtr(100),
			},
			want: 68,
		},
		{
			name:  "running",
			slots: types.SlotSet{ExerciseName: "달리기", Category: types.CategoryCardio, DurationMinutes: intPtr(30)},
			want:  330,
		},
		{
			name:  "walking",
			slots: types.SlotSet{ExerciseName: "걷기", Category: types.CategoryCardio, DurationMinutes: intPtr(40)},
			want:  200,
		},
		{
			name:  "swimming",
			slots: types.SlotSet{ExerciseName: "Swimming", Category: types.CategoryCardio, DurationMinutes: intPtr(20)},
			want:  180,
		},
		{
			name:  "cycling",
			slots: types.SlotSet{ExerciseName: "자전거", Category: types.CategoryCardio, DurationMinutes: intPtr(60)},
			want:  420,
		},
		{
			name:  "unlisted cardio defaults to 8",
			slots: types.SlotSet{ExerciseName: "줄넘기", Category: types.CategoryCardio, DurationMinutes: intPtr(10)},
			want:  80,
		},
		{
			name:  "weighted without weight",
			slots: types.SlotSet{ExerciseName: "벤치프레스", Category: types.CategoryStrength, Sets: intPtr(3), Reps: intPtr(10)},
			want:  0,
		},
		{
			name:  "zero weight",
			slots: types.SlotSet{ExerciseName: "벤치프레스", Category: types.CategoryStrength, Sets: intPtr(3), Reps: intPtr(10), WeightKg: floatPtr(0)},
			want:  0,
		},
		{
			name:  "cardio without duration",
			slots: types.SlotSet{ExerciseName: "달리기", Category: types.CategoryCardio},
			want:  0,
		},
		{
			name:  "no category",
			slots: types.SlotSet{ExerciseName: "달리기", DurationMinutes: intPtr(30)},
			want:  0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CaloriesBurned(tc.slots); got != tc.want {
				t.Errorf("CaloriesBurned() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBodyPartMultiplier(t *testing.T) {
	t.Parallel()
	cases := map[string]float64{
		"가슴": 1.2,
		"하체": 1.2,
		"어깨": 1.0,
		"복근": 0.8,
		"복부": 0.8,
		"뱃살": 0.8,
		"코어": 0.8,
		"목":  1.0,
	}
	for part, want := range cases {
		if got := BodyPartMultiplier(part); got != want {
			t.Errorf("BodyPartMultiplier(%q) = %v, want %v", part, got, want)
		}
	}
}

func TestCardioFirstMatchWins(t *testing.T) {
	t.Parallel()
	// "러닝 후 걷기" names both; running is listed first.
	if got := CardioKcalPerMinute("러닝 후 걷기"); got != 11 {
		t.Errorf("CardioKcalPerMinute() = %d, want 11", got)
	}
}

func TestMacros(t *testing.T) {
	t.Parallel()
	if Macros(nil) != nil {
		t.Fatal("Macros(nil) should be nil")
	}
	got := Macros(&types.Nutrition{CaloriesKcal: 452.26, CarbsG: 50, ProteinG: 25, FatG: 20})
	if got.CaloriesKcal != 452.3 || got.CarbsG != 50 || got.FatG != 20 {
		t.Errorf("rounded nutrients = %+v", got)
	}
	// 200 + 100 + 180 = 480 kcal
	if got.CarbsPct != 42 || got.ProteinPct != 21 || got.FatPct != 38 {
		t.Errorf("percentages = %d/%d/%d", got.CarbsPct, got.ProteinPct, got.FatPct)
	}

	zero := Macros(&types.Nutrition{CaloriesKcal: 5})
	if zero.CarbsPct != 0 || zero.ProteinPct != 0 || zero.FatPct != 0 {
		t.Errorf("zero macros should give zero percentages, got %+v", zero)
	}
}

func TestDerive(t *testing.T) {
	t.Parallel()
	d := Derive(types.RecordExercise, types.SlotSet{ExerciseName: "달리기", Category: types.CategoryCardio, DurationMinutes: intPtr(30)})
	if d.CaloriesBurned != 330 || d.Macros != nil {
		t.Errorf("exercise Derive() = %+v", d)
	}
	d = Derive(types.RecordDiet, types.SlotSet{FoodName: "밥", Nutrition: &types.Nutrition{CaloriesKcal: 300, CarbsG: 65}})
	if d.Macros == nil || d.Macros.CarbsPct != 100 || d.CaloriesBurned != 0 {
		t.Errorf("diet Derive() = %+v", d)
	}
}
