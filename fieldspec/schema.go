// Package fieldspec declares which slots each record kind collects and in what order.
package fieldspec

import (
	"github.com/tbxark/healthagent/types"
)

var exerciseFields = []types.FieldInfo{
	{ID: types.FieldExerciseName, DisplayName: "운동명", Description: "어떤 운동을 하셨는지", Required: true, Askable: true},
	{ID: types.FieldCategory, DisplayName: "운동 종류", Description: "근력운동(strength) 또는 유산소(cardio)", Required: true, Askable: true},
	{ID: types.FieldTargetBodyPart, DisplayName: "운동 부위", Description: "가슴/등/하체/어깨/팔/복근", Askable: true},
	{ID: types.FieldSets, DisplayName: "세트", Description: "세트 수", Askable: true, Numeric: true, Integer: true},
	{ID: types.FieldReps, DisplayName: "횟수", Description: "한 세트당 반복 횟수", Askable: true, Numeric: true, Integer: true},
	{ID: types.FieldWeightKg, DisplayName: "무게", Description: "사용한 무게(kg)", Askable: true, Numeric: true},
	{ID: types.FieldDurationMinutes, DisplayName: "운동시간", Description: "운동한 시간(분)", Askable: true, Numeric: true, Integer: true},
}

var dietFields = []types.FieldInfo{
	{ID: types.FieldFoodName, DisplayName: "음식", Description: "드신 음식 이름", Required: true, Askable: true},
	{ID: types.FieldAmount, DisplayName: "섭취량", Description: "드신 양(예: 1그릇, 200g)", Askable: true},
	{ID: types.FieldMealTime, DisplayName: "식사 시간", Description: "아침/점심/저녁/간식/야식", Required: true, Askable: true},
	{ID: types.FieldNutrition, DisplayName: "영양 정보", Description: "칼로리와 탄수화물/단백질/지방", Required: true},
}

// Schema returns the declared fields of a record kind in declaration order.
func Schema(kind types.RecordKind) []types.FieldInfo {
	switch kind {
	case types.RecordExercise:
		return exerciseFields
	case types.RecordDiet:
		return dietFields
	default:
		return nil
	}
}

// Lookup finds a field declaration across both kinds.
func Lookup(id types.FieldID) (types.FieldInfo, bool) {
	for _, fields := range [][]types.FieldInfo{exerciseFields, dietFields} {
		for _, f := range fields {
			if f.ID == id {
				return f, true
			}
		}
	}
	return types.FieldInfo{}, false
}

// Infos resolves ids into their declarations, skipping unknown ids.
func Infos(ids []types.FieldID) []types.FieldInfo {
	out := make([]types.FieldInfo, 0, len(ids))
	for _, id := range ids {
		if info, ok := Lookup(id); ok {
			out = append(out, info)
		}
	}
	return out
}

func DisplayName(id types.FieldID) string {
	if info, ok := Lookup(id); ok {
		return info.DisplayName
	}
	return string(id)
}
