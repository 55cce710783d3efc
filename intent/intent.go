package intent

import (
	"context"
	"strings"
)

type Intent string

const (
	Affirmative Intent = "affirmative"
	Negative    Intent = "negative"
	Cancel      Intent = "cancel"
	Other       Intent = "other"
)

type Recognizer interface {
	Recognize(ctx context.Context, text string) (Intent, error)
}

// LocalRecognizer matches the whole trimmed, lower-cased reply against fixed
// token sets. Substrings never match: "네 근데 잠깐만" is Other.
type LocalRecognizer struct {
	AffirmativeKeywords []string
	NegativeKeywords    []string
	CancelKeywords      []string
}

func NewLocalRecognizer() *LocalRecognizer {
	return &LocalRecognizer{
		AffirmativeKeywords: []string{"네", "예", "yes", "저장", "저장해", "저장해줘"},
		NegativeKeywords:    []string{"아니오", "아니요", "아니", "no", "취소", "cancel"},
		CancelKeywords:      []string{"취소", "cancel", "그만"},
	}
}

var defaultRecognizer = NewLocalRecognizer()

// Classify decides a confirmation reply.
func (r *LocalRecognizer) Classify(text string) Intent {
	normalized := normalize(text)
	if matches(normalized, r.AffirmativeKeywords) {
		return Affirmative
	}
	if matches(normalized, r.NegativeKeywords) {
		return Negative
	}
	return Other
}

// IsCancel reports whether the reply abandons the current record outside
// the confirmation step.
func (r *LocalRecognizer) IsCancel(text string) bool {
	return matches(normalize(text), r.CancelKeywords)
}

// Recognize merges both checks: explicit cancel tokens win over the
// confirmation classes.
func (r *LocalRecognizer) Recognize(ctx context.Context, text string) (Intent, error) {
	if r.IsCancel(text) {
		return Cancel, nil
	}
	return r.Classify(text), nil
}

func Classify(text string) Intent {
	return defaultRecognizer.Classify(text)
}

func IsCancel(text string) bool {
	return defaultRecognizer.IsCancel(text)
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func matches(normalized string, keywords []string) bool {
	for _, keyword := range keywords {
		if normalized == keyword {
			return true
		}
	}
	return false
}

type FailbackRecognizer struct {
	recognizers []Recognizer
}

func NewFailbackRecognizer(recognizers ...Recognizer) *FailbackRecognizer {
	return &FailbackRecognizer{recognizers: recognizers}
}

func (f *FailbackRecognizer) Recognize(ctx context.Context, text string) (Intent, error) {
	var lastErr error
	for _, r := range f.recognizers {
		in, err := r.Recognize(ctx, text)
		if err == nil {
			return in, nil
		}
		lastErr = err
	}
	return Other, lastErr
}
