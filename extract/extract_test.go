package extract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/healthagent/types"
)

func TestLocalExtractorExercise(t *testing.T) {
	t.Parallel()
	cases := []struct {
		text string
		want types.Partial
	}{
		{"푸시업 3세트 10회", types.Partial{"exercise_name": "푸시업", "category": "strength", "target_body_part": "chest", "sets": 3, "reps": 10}},
		{"벤치프레스 60kg 3세트 10회", types.Partial{"exercise_name": "벤치프레스", "category": "strength", "target_body_part": "chest", "sets": 3, "reps": 10, "weight_kg": 60.0}},
		{"인클라인 벤치프레스 4x12", types.Partial{"exercise_name": "인클라인벤치프레스", "category": "strength", "target_body_part": "chest", "sets": 4, "reps": 12}},
		{"달리기 30분", types.Partial{"exercise_name": "달리기", "category": "cardio", "duration_minutes": 30}},
		{"Running 1시간", types.Partial{"exercise_name": "달리기", "category": "cardio", "duration_minutes": 60}},
		{"유산소 했어요", types.Partial{"category": "cardio"}},
	}
	e := NewLocalExtractor()
	for _, tc := range cases {
		resp, err := e.Extract(context.Background(), &Request{Text: tc.text, RecordKind: types.RecordExercise})
		if err != nil {
			t.Fatalf("%q: Extract() error: %v", tc.text, err)
		}
		if resp.Type != TypeSuccess {
			t.Fatalf("%q: type = %s", tc.text, resp.Type)
		}
		if len(resp.ParsedSlots) != len(tc.want) {
			t.Errorf("%q: slots = %v, want %v", tc.text, resp.ParsedSlots, tc.want)
			continue
		}
		for k, v := range tc.want {
			if resp.ParsedSlots[k] != v {
				t.Errorf("%q: %s = %v (%T), want %v (%T)", tc.text, k, resp.ParsedSlots[k], resp.ParsedSlots[k], v, v)
			}
		}
	}
}

func TestLocalExtractorDiet(t *testing.T) {
	t.Parallel()
	cases := []struct {
		text string
		want types.Partial
	}{
		{"점심에 김치찌개 1그릇 먹었어요", types.Partial{"food_name": "김치찌개", "amount": "1그릇", "meal_time": "점심"}},
		{"저녁으로 삼겹살 200g", types.Partial{"food_name": "삼겹살", "amount": "200g", "meal_time": "저녁"}},
		{"밥 한 공기", types.Partial{"food_name": "밥", "amount": "한 그릇"}},
		{"새벽 2시에 라면을 먹었다", types.Partial{"food_name": "라면", "meal_time": "야식"}},
	}
	e := NewLocalExtractor()
	for _, tc := range cases {
		resp, err := e.Extract(context.Background(), &Request{Text: tc.text, RecordKind: types.RecordDiet})
		if err != nil {
			t.Fatalf("%q: Extract() error: %v", tc.text, err)
		}
		if _, ok := resp.ParsedSlots["nutrition"]; ok {
			t.Errorf("%q: local extraction must not supply nutrition", tc.text)
		}
		for k, v := range tc.want {
			if resp.ParsedSlots[k] != v {
				t.Errorf("%q: %s = %v, want %v", tc.text, k, resp.ParsedSlots[k], v)
			}
		}
		if len(resp.ParsedSlots) != len(tc.want) {
			t.Errorf("%q: slots = %v, want %v", tc.text, resp.ParsedSlots, tc.want)
		}
	}
}

func TestLocalExtractorNothingFound(t *testing.T) {
	t.Parallel()
	e := NewLocalExtractor()
	resp, err := e.Extract(context.Background(), &Request{Text: "안녕하세요", RecordKind: types.RecordExercise})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if resp.Type != TypeIncomplete || resp.Message == "" {
		t.Errorf("expected an incomplete reply with a question, got %+v", resp)
	}

	resp, err = e.Extract(context.Background(), &Request{
		Text:         "안녕하세요",
		RecordKind:   types.RecordExercise,
		CurrentSlots: types.SlotSet{ExerciseName: "스쿼트"},
	})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if resp.Type != TypeSuccess || len(resp.ParsedSlots) != 0 {
		t.Errorf("with collected slots the reply should be an empty success, got %+v", resp)
	}
}

func TestResponseValidate(t *testing.T) {
	t.Parallel()
	var nilResp *Response
	if !errors.Is(nilResp.Validate(), types.ErrMalformedResponse) {
		t.Error("nil response must be malformed")
	}
	if !errors.Is((&Response{Type: "maybe"}).Validate(), types.ErrMalformedResponse) {
		t.Error("unknown type must be malformed")
	}
	if err := (&Response{Type: TypeIncomplete}).Validate(); err != nil {
		t.Errorf("incomplete should validate: %v", err)
	}
}

type stubExtractor struct {
	resp  *Response
	err   error
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, req *Request) (*Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestFailbackExtractor(t *testing.T) {
	t.Parallel()
	failing := &stubExtractor{err: types.ErrCollaboratorUnavailable}
	ok := &stubExtractor{resp: &Response{Type: TypeSuccess}}
	unused := &stubExtractor{resp: &Response{Type: TypeError}}

	resp, err := NewFailbackExtractor(failing, ok, unused).Extract(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if resp.Type != TypeSuccess || failing.calls != 1 || ok.calls != 1 || unused.calls != 0 {
		t.Errorf("unexpected chain behaviour: resp=%+v calls=%d/%d/%d", resp, failing.calls, ok.calls, unused.calls)
	}

	last := &stubExtractor{err: types.ErrMalformedResponse}
	if _, err := NewFailbackExtractor(failing, last).Extract(context.Background(), &Request{}); !errors.Is(err, types.ErrMalformedResponse) {
		t.Errorf("expected the last error, got %v", err)
	}
	if _, err := NewFailbackExtractor().Extract(context.Background(), &Request{}); !errors.Is(err, types.ErrCollaboratorUnavailable) {
		t.Errorf("empty chain error = %v", err)
	}
}

func TestFailbackExtractorStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	failing := &stubExtractor{err: context.Canceled}
	next := &stubExtractor{resp: &Response{Type: TypeSuccess}}
	if _, err := NewFailbackExtractor(failing, next).Extract(ctx, &Request{}); err == nil {
		t.Error("expected the cancellation error")
	}
	if next.calls != 0 {
		t.Error("a cancelled turn must not fall through to the next extractor")
	}
}

func TestFailbackExtractorStopsOnDeadlineAndMalformed(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()
	expired := &stubExtractor{err: context.DeadlineExceeded}
	local := NewLocalExtractor()
	if _, err := NewFailbackExtractor(expired, local).Extract(ctx, &Request{Text: "푸시업 3세트 10회", RecordKind: types.RecordExercise}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expired turn error = %v, want deadline exceeded", err)
	}

	malformed := &stubExtractor{err: types.ErrMalformedResponse}
	next := &stubExtractor{resp: &Response{Type: TypeSuccess}}
	if _, err := NewFailbackExtractor(malformed, next).Extract(context.Background(), &Request{}); !errors.Is(err, types.ErrMalformedResponse) {
		t.Errorf("malformed answer error = %v", err)
	}
	if next.calls != 0 {
		t.Error("a malformed answer must not fall through to the next extractor")
	}
}

func TestHTTPExtractor(t *testing.T) {
	t.Parallel()
	var got wireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &got); err != nil {
			t.Errorf("server decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"success","message":"","parsedSlots":{"exercise_name":"스쿼트","sets":"3"}}`))
	}))
	defer srv.Close()

	history := make([]types.Turn, 0, 8)
	for i := 0; i < 8; i++ {
		history = append(history, types.Turn{Speaker: types.SpeakerUser, Text: "turn"})
	}
	e := NewHTTPExtractor(srv.URL, time.Second)
	resp, err := e.Extract(context.Background(), &Request{
		Text:         "스쿼트 3세트",
		History:      history,
		RecordKind:   types.RecordExercise,
		CurrentSlots: types.SlotSet{Category: types.CategoryStrength},
	})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if resp.ParsedSlots["exercise_name"] != "스쿼트" {
		t.Errorf("parsed slots = %v", resp.ParsedSlots)
	}
	if got.RecordKind != "exercise" || got.Text != "스쿼트 3세트" || len(got.History) != defaultHistoryWindow {
		t.Errorf("wire request = %+v", got)
	}
	if got.History[0].Role != "user" || got.CurrentSlots["category"] != "strength" {
		t.Errorf("wire request = %+v", got)
	}
}

func TestHTTPExtractorFailures(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusBadGateway, `oops`, types.ErrCollaboratorUnavailable},
		{"garbage", http.StatusOK, `{"type":`, types.ErrMalformedResponse},
		{"unknown type", http.StatusOK, `{"type":"perhaps"}`, types.ErrMalformedResponse},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := NewHTTPExtractor(srv.URL, time.Second).Extract(context.Background(), &Request{RecordKind: types.RecordDiet})
		srv.Close()
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: error = %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

type fakeChatModel struct {
	args  string
	input []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.input = input
	options := model.GetCommonOptions(&model.Options{}, opts...)
	name := ""
	if len(options.Tools) > 0 {
		name = options.Tools[0].Name
	}
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call-1",
		Function: schema.FunctionCall{Name: name, Arguments: f.args},
	}}), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

func TestToolBasedExtractor(t *testing.T) {
	t.Parallel()
	fake := &fakeChatModel{args: `{"type":"success","message":"","slots":{"food_name":"김치찌개","meal_time":"점심","nutrition":{"calories_kcal":450,"carbs_g":50,"protein_g":25,"fat_g":20}}}`}
	e, err := NewToolBasedExtractor(fake, WithHistoryWindow(1))
	if err != nil {
		t.Fatalf("NewToolBasedExtractor() error: %v", err)
	}
	resp, err := e.Extract(context.Background(), &Request{
		Text:       "점심에 김치찌개",
		RecordKind: types.RecordDiet,
		History: []types.Turn{
			{Speaker: types.SpeakerUser, Text: "오래된 메시지"},
			{Speaker: types.SpeakerAssistant, Text: "최근 메시지"},
		},
		Missing: []types.FieldID{types.FieldFoodName, types.FieldMealTime, types.FieldNutrition},
	})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if resp.Type != TypeSuccess || resp.ParsedSlots["food_name"] != "김치찌개" {
		t.Errorf("response = %+v", resp)
	}
	nutrition, ok := resp.ParsedSlots["nutrition"].(map[string]any)
	if !ok || nutrition["calories_kcal"] != 450.0 {
		t.Errorf("nutrition = %#v", resp.ParsedSlots["nutrition"])
	}
	if _, ok := resp.ParsedSlots["exercise_name"]; ok {
		t.Error("diet extraction leaked an exercise field")
	}

	if len(fake.input) != 2 {
		t.Fatalf("prompt messages = %d", len(fake.input))
	}
	if !strings.Contains(fake.input[0].Content, extractDietToolName) {
		t.Error("system prompt should name the diet tool")
	}
	user := fake.input[1].Content
	if !strings.Contains(user, "최근 메시지") || strings.Contains(user, "오래된 메시지") {
		t.Errorf("history window not applied:\n%s", user)
	}
	if !strings.Contains(user, "점심에 김치찌개") || !strings.Contains(user, "food_name") {
		t.Errorf("prompt misses the turn:\n%s", user)
	}
}

func TestToolBasedExtractorMalformed(t *testing.T) {
	t.Parallel()
	e, err := NewToolBasedExtractor(&fakeChatModel{args: `{"type":"unsure","slots":{}}`})
	if err != nil {
		t.Fatalf("NewToolBasedExtractor() error: %v", err)
	}
	_, err = e.Extract(context.Background(), &Request{Text: "스쿼트", RecordKind: types.RecordExercise})
	if !errors.Is(err, types.ErrMalformedResponse) {
		t.Errorf("error = %v, want malformed", err)
	}
}
