// Package dialogue holds every user-facing string the engine produces.
package dialogue

import (
	"errors"
	"fmt"

	"github.com/tbxark/healthagent/fieldspec"
	"github.com/tbxark/healthagent/types"
)

const (
	MsgCancelled        = "기록을 취소했습니다. 다시 입력해주세요."
	MsgCommitFailed     = "저장 중 오류가 발생했습니다. 다시 시도해주세요."
	MsgRetry            = "요청을 처리하지 못했어요. 잠시 후 다시 말씀해주세요."
	MsgConnectionFailed = "서버 연결에 실패했습니다. 잠시 후 다시 시도해주세요."
	MsgBusy             = "이전 요청을 처리하고 있어요. 잠시만 기다려주세요."
	MsgNutritionPending = "영양 정보를 계산하지 못했어요. 음식명과 양을 조금 더 구체적으로 알려주시겠어요? 🍽️"
)

var questions = map[types.FieldID]string{
	types.FieldExerciseName:    "어떤 운동을 하셨나요? 🏋️",
	types.FieldCategory:        "근력운동인가요, 유산소 운동인가요? 💪",
	types.FieldTargetBodyPart:  "어느 부위 운동이었나요? (가슴/등/하체/어깨/팔/복근) 🎯",
	types.FieldSets:            "몇 세트 하셨어요? 🔢",
	types.FieldReps:            "한 세트에 몇 회씩 하셨나요? 🔄",
	types.FieldWeightKg:        "몇 kg으로 하셨나요? 💪",
	types.FieldDurationMinutes: "몇 분 동안 운동하셨나요? ⏱️",
	types.FieldFoodName:        "어떤 음식을 드셨나요? 🍽️",
	types.FieldAmount:          "어느 정도 양을 드셨나요? (예: 1개, 1인분, 1공기) 📏",
	types.FieldMealTime:        "언제 드셨나요? (아침/점심/저녁/야식/간식) ⏰",
}

// Question asks for a single field.
func Question(field types.FieldID) string {
	if q, ok := questions[field]; ok {
		return q
	}
	return fmt.Sprintf("%s을(를) 알려주세요.", fieldspec.DisplayName(field))
}

// Correction re-asks a field after a reply could not be used.
func Correction(field types.FieldID, err error) string {
	name := fieldspec.DisplayName(field)
	if errors.Is(err, types.ErrInvariantViolation) {
		return fmt.Sprintf("%s 값이 올바른 범위가 아니에요. 0보다 큰 숫자로 알려주세요. %s", name, Question(field))
	}
	return fmt.Sprintf("%s 값을 확인하지 못했어요. %s", name, Question(field))
}

func Intro(kind types.RecordKind) string {
	switch kind {
	case types.RecordDiet:
		return "무엇을 드셨나요? 음식명과 양, 식사 시간을 알려주세요! 🍽️"
	default:
		return "오늘 어떤 운동을 하셨나요? 운동명과 세트, 횟수 또는 운동 시간을 알려주세요! 💪"
	}
}

func Committed(kind types.RecordKind) string {
	switch kind {
	case types.RecordDiet:
		return "식단 기록이 저장되었습니다! 다른 음식을 기록하시겠습니까?"
	default:
		return "운동 기록이 저장되었습니다! 다른 운동을 기록하시겠습니까?"
	}
}
