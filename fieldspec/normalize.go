package fieldspec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tbxark/healthagent/types"
)

const (
	MealBreakfast = "아침"
	MealLunch     = "점심"
	MealDinner    = "저녁"
	MealSnack     = "간식"
	MealLateNight = "야식"
)

var mealKeywords = []struct {
	keyword string
	meal    string
}{
	{"야식", MealLateNight},
	{"간식", MealSnack},
	{"아침", MealBreakfast},
	{"점심", MealLunch},
	{"저녁", MealDinner},
	{"breakfast", MealBreakfast},
	{"brunch", MealLunch},
	{"lunch", MealLunch},
	{"dinner", MealDinner},
	{"supper", MealDinner},
	{"snack", MealSnack},
	{"late night", MealLateNight},
}

var (
	clockPattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	hourPattern  = regexp.MustCompile(`(\d{1,2})\s*시`)
)

// NormalizeMealTime maps keywords and clock times onto one of the five meal
// labels. Times map by hour: 6-10 아침, 11-14 점심, 15-17 간식, 18-21 저녁,
// anything else 야식.
func NormalizeMealTime(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	for _, m := range mealKeywords {
		if strings.Contains(t, m.keyword) {
			return m.meal, true
		}
	}

	hour := -1
	if m := clockPattern.FindStringSubmatch(t); m != nil {
		hour, _ = strconv.Atoi(m[1])
	} else if m := hourPattern.FindStringSubmatch(t); m != nil {
		hour, _ = strconv.Atoi(m[1])
	}
	if hour >= 0 && hour <= 24 {
		switch {
		case strings.Contains(t, "오후"), strings.Contains(t, "pm"):
			if hour < 12 {
				hour += 12
			}
		case strings.Contains(t, "밤"):
			if hour >= 6 && hour < 12 {
				hour += 12
			}
		case strings.Contains(t, "새벽"), strings.Contains(t, "오전"), strings.Contains(t, "am"):
			if hour == 12 {
				hour = 0
			}
		}
		return mealForHour(hour), true
	}

	switch {
	case strings.Contains(t, "새벽"), strings.Contains(t, "밤"):
		return MealLateNight, true
	case strings.Contains(t, "오전"):
		return MealBreakfast, true
	case strings.Contains(t, "오후"):
		return MealSnack, true
	}
	return "", false
}

func mealForHour(hour int) string {
	switch {
	case hour >= 6 && hour <= 10:
		return MealBreakfast
	case hour >= 11 && hour <= 14:
		return MealLunch
	case hour >= 15 && hour <= 17:
		return MealSnack
	case hour >= 18 && hour <= 21:
		return MealDinner
	default:
		return MealLateNight
	}
}

var amountReplacer = strings.NewReplacer(
	"1뚝배기", "1그릇", "뚝배기", "그릇",
	"한 사발", "한 그릇", "한사발", "한 그릇", "1사발", "1그릇",
	"한 공기", "한 그릇", "한공기", "한 그릇", "1공기", "1그릇",
	"한토막", "한 조각", "1토막", "1조각", "한조각", "한 조각",
	"한 쪽", "한 조각", "1쪽", "1조각",
	"한덩이", "한 개", "1덩이", "1개",
	"한줌", "한 개", "1줌", "1개",
	"한모", "한 개", "1모", "1개",
	"한장", "한 개", "1장", "1개",
	"한입", "한 개", "1입", "1개",
	"한 알", "한 개", "1알", "1개",
	"한 봉지", "한 개", "1봉지", "1개",
	"한 캔", "한 개", "1캔", "1개",
	"한 병", "한 개", "1병", "1개",
	"한 판", "한 개", "1판", "1개",
	"한 줄", "한 개", "1줄", "1개",
	"한 잔", "한 컵", "1잔", "1컵",
	"한 스푼", "한 큰술", "1스푼", "1큰술",
	"한 숟가락", "한 큰술", "1숟가락", "1큰술",
)

// NormalizeAmount rewrites Korean serving words onto a small canonical set
// (그릇, 조각, 개, 컵, 큰술).
func NormalizeAmount(text string) string {
	return amountReplacer.Replace(strings.TrimSpace(text))
}

var bodyParts = []struct {
	key     string
	label   string
	aliases []string
}{
	{"chest", "가슴", []string{"chest", "pec", "가슴"}},
	{"back", "등", []string{"back", "lat", "등"}},
	{"legs", "하체", []string{"leg", "lower body", "glute", "하체", "다리", "허벅지", "엉덩이"}},
	{"shoulders", "어깨", []string{"shoulder", "delt", "어깨"}},
	{"arms", "팔", []string{"arm", "bicep", "tricep", "팔", "이두", "삼두"}},
	{"abs", "복근", []string{"abs", "core", "abdominal", "복근", "복부", "뱃살", "코어", "배"}},
}

// NormalizeBodyPart maps an alias onto its canonical English key
// (chest, back, legs, shoulders, arms, abs). Unknown text is returned trimmed.
func NormalizeBodyPart(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, bp := range bodyParts {
		if t == bp.key {
			return bp.key
		}
	}
	for _, bp := range bodyParts {
		for _, alias := range bp.aliases {
			if strings.Contains(t, alias) {
				return bp.key
			}
		}
	}
	return strings.TrimSpace(text)
}

// BodyPartLabel returns the Korean label of a canonical body part key.
func BodyPartLabel(key string) string {
	for _, bp := range bodyParts {
		if bp.key == key {
			return bp.label
		}
	}
	return key
}

// Normalize returns a copy of s with its free-text slots canonicalised.
func Normalize(s types.SlotSet) types.SlotSet {
	out := s.Clone()
	if out.MealTime != "" {
		if meal, ok := NormalizeMealTime(out.MealTime); ok {
			out.MealTime = meal
		}
	}
	if out.Amount != "" {
		out.Amount = NormalizeAmount(out.Amount)
	}
	if out.TargetBodyPart != "" {
		out.TargetBodyPart = NormalizeBodyPart(out.TargetBodyPart)
	}
	if out.Category != "" {
		if c, ok := ParseCategory(string(out.Category)); ok {
			out.Category = c
		}
	}
	out.ExerciseName = strings.TrimSpace(out.ExerciseName)
	out.FoodName = strings.TrimSpace(out.FoodName)
	return out
}
