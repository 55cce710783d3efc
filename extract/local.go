package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/tbxark/healthagent/fieldspec"
	"github.com/tbxark/healthagent/types"
)

type catalogueEntry struct {
	name     string
	category types.Category
	bodyPart string
	aliases  []string
}

var exerciseCatalogue = []catalogueEntry{
	{"벤치프레스", types.CategoryStrength, "chest", []string{"bench press", "benchpress", "벤치"}},
	{"인클라인벤치프레스", types.CategoryStrength, "chest", []string{"incline bench press", "인클라인벤치", "인클라인"}},
	{"푸시업", types.CategoryStrength, "chest", []string{"push-up", "pushup", "push up", "푸쉬업", "팔굽혀펴기"}},
	{"체스트프레스", types.CategoryStrength, "chest", []string{"chest press"}},
	{"딥스", types.CategoryStrength, "chest", []string{"dips", "dip"}},
	{"플라이", types.CategoryStrength, "chest", []string{"fly", "flye"}},
	{"케이블크로스오버", types.CategoryStrength, "chest", []string{"cable crossover", "크로스오버"}},
	{"펙덱플라이", types.CategoryStrength, "chest", []string{"pec deck", "펙덱"}},

	{"풀업", types.CategoryStrength, "back", []string{"pull-up", "pullup", "pull up", "턱걸이"}},
	{"철봉", types.CategoryStrength, "back", nil},
	{"랫풀다운", types.CategoryStrength, "back", []string{"lat pulldown", "lat pull down", "랫풀"}},
	{"바벨로우", types.CategoryStrength, "back", []string{"barbell row"}},
	{"시티드로우", types.CategoryStrength, "back", []string{"seated row"}},
	{"원암로우", types.CategoryStrength, "back", []string{"one arm row", "덤벨로우"}},
	{"티바로우", types.CategoryStrength, "back", []string{"t-bar row", "tbar row"}},
	{"데드리프트", types.CategoryStrength, "back", []string{"deadlift", "데드"}},
	{"슈러그", types.CategoryStrength, "back", []string{"shrug"}},

	{"스쿼트", types.CategoryStrength, "legs", []string{"squat"}},
	{"레그프레스", types.CategoryStrength, "legs", []string{"leg press"}},
	{"런지", types.CategoryStrength, "legs", []string{"lunge"}},
	{"레그컬", types.CategoryStrength, "legs", []string{"leg curl"}},
	{"레그익스텐션", types.CategoryStrength, "legs", []string{"leg extension"}},
	{"칼프레이즈", types.CategoryStrength, "legs", []string{"calf raise"}},
	{"힙쓰러스트", types.CategoryStrength, "legs", []string{"hip thrust"}},
	{"버피", types.CategoryStrength, "legs", []string{"burpee"}},

	{"숄더프레스", types.CategoryStrength, "shoulders", []string{"shoulder press", "오버헤드프레스", "ohp"}},
	{"사이드레이즈", types.CategoryStrength, "shoulders", []string{"side raise", "lateral raise", "사레레"}},
	{"프론트레이즈", types.CategoryStrength, "shoulders", []string{"front raise"}},
	{"리어델트플라이", types.CategoryStrength, "shoulders", []string{"rear delt fly", "리어델트"}},
	{"업라이트로우", types.CategoryStrength, "shoulders", []string{"upright row"}},
	{"아놀드프레스", types.CategoryStrength, "shoulders", []string{"arnold press"}},
	{"페이스풀", types.CategoryStrength, "shoulders", []string{"face pull"}},

	{"바이셉스컬", types.CategoryStrength, "arms", []string{"bicep curl", "biceps curl"}},
	{"이두컬", types.CategoryStrength, "arms", nil},
	{"해머컬", types.CategoryStrength, "arms", []string{"hammer curl"}},
	{"케이블컬", types.CategoryStrength, "arms", []string{"cable curl"}},
	{"트라이셉스", types.CategoryStrength, "arms", []string{"tricep", "triceps"}},
	{"삼두컬", types.CategoryStrength, "arms", nil},
	{"킥백", types.CategoryStrength, "arms", []string{"kickback"}},
	{"케이블푸쉬다운", types.CategoryStrength, "arms", []string{"pushdown", "push down", "푸쉬다운", "푸시다운"}},

	{"크런치", types.CategoryStrength, "abs", []string{"crunch"}},
	{"플랭크", types.CategoryStrength, "abs", []string{"plank"}},
	{"레그레이즈", types.CategoryStrength, "abs", []string{"leg raise"}},
	{"행잉레그레이즈", types.CategoryStrength, "abs", []string{"hanging leg raise"}},
	{"싯업", types.CategoryStrength, "abs", []string{"sit-up", "situp", "sit up", "윗몸일으키기"}},
	{"러시안트위스트", types.CategoryStrength, "abs", []string{"russian twist"}},

	{"달리기", types.CategoryCardio, "", []string{"running", "run", "러닝", "런닝"}},
	{"조깅", types.CategoryCardio, "", []string{"jogging", "jog"}},
	{"걷기", types.CategoryCardio, "", []string{"walking", "walk", "워킹", "산책"}},
	{"수영", types.CategoryCardio, "", []string{"swimming", "swim"}},
	{"자전거", types.CategoryCardio, "", []string{"cycling", "bike", "bicycle", "사이클링", "사이클"}},
	{"스피닝", types.CategoryCardio, "", []string{"spinning"}},
	{"줄넘기", types.CategoryCardio, "", []string{"jump rope"}},
	{"등산", types.CategoryCardio, "", []string{"hiking", "하이킹"}},
	{"트레드밀", types.CategoryCardio, "", []string{"treadmill", "런닝머신", "러닝머신"}},
	{"일립티컬", types.CategoryCardio, "", []string{"elliptical"}},
	{"스텝퍼", types.CategoryCardio, "", []string{"stepper", "천국의계단"}},
	{"에어로빅", types.CategoryCardio, "", []string{"aerobics"}},
	{"로잉머신", types.CategoryCardio, "", []string{"rowing machine", "rowing"}},
}

var (
	setsByRepsPattern = regexp.MustCompile(`(\d+)\s*[xX×]\s*(\d+)`)
	amountPattern     = regexp.MustCompile(`(?:\d+(?:\.\d+)?|한|두|세|네|반)\s*(?:그릇|공기|인분|조각|접시|봉지|그램|사발|뚝배기|토막|숟가락|스푼|큰술|개|잔|컵|병|캔|판|줄|장|쪽|알|g|ml)`)
	dietNoiseWords    = []string{"오늘", "어제", "방금", "아까", "에", "으로", "로", "하고", "랑"}
	dietVerbPrefixes  = []string{"먹", "마시", "마셨", "드셨", "했"}
	mealWordPattern   = regexp.MustCompile(`^(?:아침|점심|저녁|간식|야식|새벽|오전|오후|밤|\d{1,2}(?::\d{2})?(?:시|분|시반)?)(?:에|으로|로|엔)?$`)
)

// LocalExtractor fills slots from keyword tables and regular expressions.
// It never estimates nutrition.
type LocalExtractor struct{}

func NewLocalExtractor() *LocalExtractor {
	return &LocalExtractor{}
}

func (e *LocalExtractor) Extract(ctx context.Context, req *Request) (*Response, error) {
	var parsed types.Partial
	switch req.RecordKind {
	case types.RecordExercise:
		parsed = extractExercise(req.Text)
	case types.RecordDiet:
		parsed = extractDiet(req.Text)
	default:
		return &Response{Type: TypeError, Message: "알 수 없는 기록 종류입니다."}, nil
	}
	slog.Debug("Local extraction", "kind", req.RecordKind, "slots", parsed)
	if len(parsed) == 0 && req.CurrentSlots.IsEmpty() {
		resp := &Response{Type: TypeIncomplete}
		if req.RecordKind == types.RecordDiet {
			resp.Message = "어떤 음식을 드셨는지 알려주세요! 예: 점심에 김치찌개 1그릇 🍽️"
		} else {
			resp.Message = "어떤 운동을 하셨는지 알려주세요! 예: 벤치프레스 60kg 3세트 10회 💪"
			resp.Suggestions = []string{"벤치프레스 60kg 3세트 10회", "푸시업 3세트 15회", "달리기 30분"}
		}
		return resp, nil
	}
	return &Response{Type: TypeSuccess, ParsedSlots: parsed}, nil
}

func extractExercise(text string) types.Partial {
	out := fieldspec.ParseTagged(text)
	if m := setsByRepsPattern.FindStringSubmatch(text); m != nil {
		if _, ok := out[string(types.FieldSets)]; !ok {
			if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
				out[string(types.FieldSets)] = v
			}
		}
		if _, ok := out[string(types.FieldReps)]; !ok {
			if v, err := strconv.Atoi(m[2]); err == nil && v > 0 {
				out[string(types.FieldReps)] = v
			}
		}
	}
	if entry, ok := lookupExercise(text); ok {
		out[string(types.FieldExerciseName)] = entry.name
		out[string(types.FieldCategory)] = string(entry.category)
		if entry.bodyPart != "" {
			out[string(types.FieldTargetBodyPart)] = entry.bodyPart
		}
	} else if category, ok := fieldspec.ParseCategory(text); ok {
		out[string(types.FieldCategory)] = string(category)
	}
	return out
}

// lookupExercise picks the catalogue entry with the longest name or alias
// contained in text, ignoring case and spaces.
func lookupExercise(text string) (catalogueEntry, bool) {
	compact := compactLower(text)
	var best catalogueEntry
	bestLen := 0
	for _, entry := range exerciseCatalogue {
		for _, candidate := range append([]string{entry.name}, entry.aliases...) {
			c := compactLower(candidate)
			if len(c) > bestLen && strings.Contains(compact, c) {
				best, bestLen = entry, len(c)
			}
		}
	}
	return best, bestLen > 0
}

func compactLower(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func extractDiet(text string) types.Partial {
	out := types.Partial{}
	if meal, ok := fieldspec.NormalizeMealTime(text); ok {
		out[string(types.FieldMealTime)] = meal
	}
	amount := amountPattern.FindString(text)
	if amount != "" {
		out[string(types.FieldAmount)] = fieldspec.NormalizeAmount(amount)
	}
	if name := foodName(strings.Replace(text, amount, " ", 1)); name != "" {
		out[string(types.FieldFoodName)] = name
	}
	return out
}

func foodName(text string) string {
	var kept []string
	for _, token := range strings.Fields(text) {
		if isDietNoise(token) {
			continue
		}
		token = strings.TrimSuffix(strings.TrimSuffix(token, "를"), "을")
		if token != "" {
			kept = append(kept, token)
		}
	}
	return strings.Join(kept, " ")
}

func isDietNoise(token string) bool {
	t := strings.ToLower(strings.Trim(token, ".,!?~"))
	if t == "" || mealWordPattern.MatchString(t) {
		return true
	}
	for _, w := range dietNoiseWords {
		if t == w {
			return true
		}
	}
	for _, p := range dietVerbPrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}
