package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/healthagent/fieldspec"
	"github.com/tbxark/healthagent/structured"
	"github.com/tbxark/healthagent/types"
)

const (
	extractExerciseToolName = "record_exercise_slots"
	extractDietToolName     = "record_diet_slots"
	extractToolDescription  = "Report the structured fields found in the user's latest message. Only include values the user actually stated or that follow directly from the exercise or food name."

	defaultHistoryWindow = 5
)

type exerciseSlots struct {
	ExerciseName    string   `json:"exercise_name,omitempty" jsonschema:"description=Exercise name as the user said it"`
	Category        string   `json:"category,omitempty" jsonschema:"enum=strength,enum=cardio,description=strength for resistance training or cardio for aerobic exercise"`
	TargetBodyPart  string   `json:"target_body_part,omitempty" jsonschema:"enum=chest,enum=back,enum=legs,enum=shoulders,enum=arms,enum=abs,description=Main muscle group of a strength exercise"`
	Sets            *int     `json:"sets,omitempty" jsonschema:"description=Number of sets; never 0"`
	Reps            *int     `json:"reps,omitempty" jsonschema:"description=Repetitions per set; never 0"`
	WeightKg        *float64 `json:"weight_kg,omitempty" jsonschema:"description=Weight in kg; omit for bodyweight exercises"`
	DurationMinutes *int     `json:"duration_minutes,omitempty" jsonschema:"description=Duration in minutes"`
}

type dietSlots struct {
	FoodName  string           `json:"food_name,omitempty" jsonschema:"description=Food name"`
	Amount    string           `json:"amount,omitempty" jsonschema:"description=Eaten amount such as 1그릇 or 2개 or 200g"`
	MealTime  string           `json:"meal_time,omitempty" jsonschema:"enum=아침,enum=점심,enum=저녁,enum=간식,enum=야식,description=Meal time"`
	Nutrition *types.Nutrition `json:"nutrition,omitempty" jsonschema:"description=Estimated nutrients for the eaten amount"`
}

type exerciseOutput struct {
	Type        ResponseType  `json:"type" jsonschema:"required,enum=success,enum=incomplete,enum=error,description=success when fields were extracted; incomplete when you need to ask the user something first; error when the message is unrelated"`
	Message     string        `json:"message" jsonschema:"description=Short Korean reply to show when type is incomplete or error"`
	Slots       exerciseSlots `json:"slots" jsonschema:"description=Extracted fields"`
	Suggestions []string      `json:"suggestions,omitempty" jsonschema:"description=Optional quick replies"`
}

type dietOutput struct {
	Type        ResponseType `json:"type" jsonschema:"required,enum=success,enum=incomplete,enum=error,description=success when fields were extracted; incomplete when you need to ask the user something first; error when the message is unrelated"`
	Message     string       `json:"message" jsonschema:"description=Short Korean reply to show when type is incomplete or error"`
	Slots       dietSlots    `json:"slots" jsonschema:"description=Extracted fields"`
	Suggestions []string     `json:"suggestions,omitempty" jsonschema:"description=Optional quick replies"`
}

const exerciseSystemPrompt = `You extract exercise log fields from Korean or English chat messages and call %s with the result.

Rules:
- category is strength for resistance training and cardio for 달리기, 조깅, 걷기, 수영, 자전거, 줄넘기, 등산 and similar.
- target_body_part for strength: chest (벤치프레스, 푸시업, 딥스, 플라이), back (풀업, 랫풀다운, 로우, 데드리프트), legs (스쿼트, 레그프레스, 런지), shoulders (숄더프레스, 레이즈), arms (컬, 트라이셉스, 킥백), abs (크런치, 플랭크, 싯업, 레그레이즈).
- Bodyweight exercises (푸시업, 풀업, 플랭크, 크런치, 싯업, 버피) have no weight_kg.
- Never invent numbers. Never send 0.
- Keep values already present in the collected slots unless the user corrects them.`

const dietSystemPrompt = `You extract meal log fields from Korean or English chat messages and call %s with the result.

Rules:
- meal_time is one of 아침, 점심, 저녁, 간식, 야식. Map clock times by hour: 6-10 아침, 11-14 점심, 15-17 간식, 18-21 저녁, otherwise 야식.
- amount: use the user's own serving words; if none were given assume 1인분.
- nutrition: once food_name is known, estimate calories_kcal, carbs_g, protein_g and fat_g for the eaten amount.
- Keep values already present in the collected slots unless the user corrects them.`

type extractorOptions struct {
	historyWindow  int
	exercisePrompt string
	dietPrompt     string
}

type Option func(*extractorOptions)

// WithHistoryWindow limits how many past turns are sent to the model.
func WithHistoryWindow(n int) Option {
	return func(o *extractorOptions) {
		o.historyWindow = n
	}
}

// WithSystemPrompts overrides the per-kind system prompts. Each may contain a
// single "%s" placeholder for the tool name.
func WithSystemPrompts(exercise, diet string) Option {
	return func(o *extractorOptions) {
		if exercise != "" {
			o.exercisePrompt = exercise
		}
		if diet != "" {
			o.dietPrompt = diet
		}
	}
}

type ToolBasedExtractor struct {
	exercise *structured.Chain[*Request, exerciseOutput]
	diet     *structured.Chain[*Request, dietOutput]
	options  extractorOptions
}

func NewToolBasedExtractor(chatModel model.ToolCallingChatModel, opts ...Option) (*ToolBasedExtractor, error) {
	options := extractorOptions{
		historyWindow:  defaultHistoryWindow,
		exercisePrompt: exerciseSystemPrompt,
		dietPrompt:     dietSystemPrompt,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	e := &ToolBasedExtractor{options: options}

	exercise, err := structured.NewChain[*Request, exerciseOutput](
		chatModel,
		e.promptBuilder(options.exercisePrompt, extractExerciseToolName),
		extractExerciseToolName,
		extractToolDescription,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exercise extraction chain: %w", err)
	}
	diet, err := structured.NewChain[*Request, dietOutput](
		chatModel,
		e.promptBuilder(options.dietPrompt, extractDietToolName),
		extractDietToolName,
		extractToolDescription,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create diet extraction chain: %w", err)
	}
	e.exercise, e.diet = exercise, diet
	return e, nil
}

func (e *ToolBasedExtractor) Extract(ctx context.Context, req *Request) (*Response, error) {
	switch req.RecordKind {
	case types.RecordExercise:
		out, err := e.exercise.Invoke(ctx, req)
		if err != nil {
			return nil, err
		}
		return toResponse(out.Type, out.Message, out.Slots, out.Suggestions)
	case types.RecordDiet:
		out, err := e.diet.Invoke(ctx, req)
		if err != nil {
			return nil, err
		}
		return toResponse(out.Type, out.Message, out.Slots, out.Suggestions)
	default:
		return nil, fmt.Errorf("unknown record kind %q", req.RecordKind)
	}
}

func toResponse(typ ResponseType, message string, slots any, suggestions []string) (*Response, error) {
	raw, err := sonic.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extracted slots: %w: %w", types.ErrMalformedResponse, err)
	}
	var parsed types.Partial
	if err := sonic.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode extracted slots: %w: %w", types.ErrMalformedResponse, err)
	}
	resp := &Response{Type: typ, Message: message, ParsedSlots: parsed, Suggestions: suggestions}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("Extracted slots", "type", typ, "slots", parsed)
	return resp, nil
}

func (e *ToolBasedExtractor) promptBuilder(systemTemplate, toolName string) structured.PromptBuilder[*Request] {
	return func(ctx context.Context, req *Request) ([]*schema.Message, error) {
		slotSchema, err := fieldspec.JSONSchema(req.RecordKind)
		if err != nil {
			return nil, err
		}
		userPrompt, err := types.FormatPromptInput(&types.PromptInput{
			Text:          req.Text,
			RecordKind:    req.RecordKind,
			CurrentSlots:  req.CurrentSlots,
			MissingFields: fieldspec.Infos(req.Missing),
			SlotSchema:    slotSchema,
			History:       lastTurns(req.History, e.options.historyWindow),
		})
		if err != nil {
			return nil, fmt.Errorf("convert to prompt message failed: %w", err)
		}
		return []*schema.Message{
			schema.SystemMessage(fmt.Sprintf(systemTemplate, toolName)),
			schema.UserMessage(userPrompt),
		}, nil
	}
}

func lastTurns(history []types.Turn, n int) []types.Turn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
