package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/tbxark/healthagent/calc"
	"github.com/tbxark/healthagent/dialogue"
	"github.com/tbxark/healthagent/extract"
	"github.com/tbxark/healthagent/fieldspec"
	"github.com/tbxark/healthagent/intent"
	"github.com/tbxark/healthagent/slots"
	"github.com/tbxark/healthagent/types"
)

const (
	DefaultExtractTimeout = 30 * time.Second
	DefaultCommitTimeout  = 10 * time.Second
	DefaultMaxFailures    = 3
	DefaultTurnLogLimit   = 50
)

// Committer persists a confirmed record. It is called at most once per
// affirmative confirmation and may fill in record.ID.
type Committer interface {
	Commit(ctx context.Context, record *types.Record) error
}

type CommitterFunc func(ctx context.Context, record *types.Record) error

func (f CommitterFunc) Commit(ctx context.Context, record *types.Record) error {
	return f(ctx, record)
}

type Response struct {
	Message     string            `json:"message"`
	Outcome     types.Stage       `json:"outcome"`
	Session     Session           `json:"session"`
	Record      *types.Record     `json:"record,omitempty"`
	Missing     []types.FieldID   `json:"missing,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type controllerOptions struct {
	extractTimeout time.Duration
	commitTimeout  time.Duration
	maxFailures    int
	recognizer     intent.Recognizer
	trimmer        Trimmer
	now            func() time.Time
}

type Option func(*controllerOptions)

func WithExtractTimeout(d time.Duration) Option {
	return func(o *controllerOptions) {
		if d > 0 {
			o.extractTimeout = d
		}
	}
}

func WithCommitTimeout(d time.Duration) Option {
	return func(o *controllerOptions) {
		if d > 0 {
			o.commitTimeout = d
		}
	}
}

// WithMaxFailures sets how many consecutive collaborator failures are
// answered with a retry message before the reply turns into "connection failed".
func WithMaxFailures(n int) Option {
	return func(o *controllerOptions) {
		if n > 0 {
			o.maxFailures = n
		}
	}
}

func WithRecognizer(r intent.Recognizer) Option {
	return func(o *controllerOptions) {
		if r != nil {
			o.recognizer = r
		}
	}
}

func WithTurnLogTrimmer(t Trimmer) Option {
	return func(o *controllerOptions) {
		o.trimmer = t
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *controllerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

type Controller struct {
	extractor extract.Extractor
	committer Committer
	options   controllerOptions
}

func NewController(extractor extract.Extractor, committer Committer, opts ...Option) (*Controller, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if committer == nil {
		return nil, errors.New("committer is required")
	}
	options := controllerOptions{
		extractTimeout: DefaultExtractTimeout,
		commitTimeout:  DefaultCommitTimeout,
		maxFailures:    DefaultMaxFailures,
		recognizer:     intent.NewLocalRecognizer(),
		trimmer:        KeepLastN{N: DefaultTurnLogLimit},
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Controller{extractor: extractor, committer: committer, options: options}, nil
}

// Reduce applies one user turn to s and returns the next session with the
// reply. Failures never escape as errors: they come back as a reply whose
// Metadata carries "error" and the session stays resumable.
func (c *Controller) Reduce(ctx context.Context, s Session, text string) (Session, *Response) {
	ctx = callbacks.EnsureRunInfo(ctx, "HealthAgent", "DialogueController")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"input":       text,
		"stage":       string(s.Stage),
		"record_kind": string(s.RecordKind),
		"slots":       s.Slots,
	})

	defer func() {
		if r := recover(); r != nil {
			callbacks.OnError(ctx, fmt.Errorf("panic in Controller.Reduce: %v", r))
			panic(r)
		}
	}()

	next, resp := c.reduce(ctx, s.Clone(), strings.TrimSpace(text))

	callbacks.OnEnd(ctx, map[string]any{
		"response": resp,
		"stage":    string(next.Stage),
		"outcome":  string(resp.Outcome),
	})
	return next, resp
}

func (c *Controller) reduce(ctx context.Context, s Session, text string) (Session, *Response) {
	if !s.RecordKind.Valid() {
		err := fmt.Errorf("unknown record kind %q: %w", s.RecordKind, types.ErrInvariantViolation)
		return s, &Response{
			Message:  dialogue.MsgRetry,
			Outcome:  s.Stage,
			Session:  s,
			Metadata: errorMetadata(err),
		}
	}
	if s.Stage == "" || s.Stage.Terminal() {
		s = NewSession(s.ID, s.RecordKind)
	}
	if text == "" {
		return c.prompt(s)
	}

	slog.Debug("Turn received", "session", s.ID, "stage", s.Stage, "pending_field", s.PendingField)
	switch s.Stage {
	case types.StageAwaitingField:
		return c.awaitField(ctx, s, text)
	case types.StageConfirming:
		return c.confirm(ctx, s, text)
	default:
		return c.collect(ctx, s, text)
	}
}

// prompt repeats the current question without consuming a turn.
func (c *Controller) prompt(s Session) (Session, *Response) {
	message := dialogue.Intro(s.RecordKind)
	switch s.Stage {
	case types.StageAwaitingField:
		message = dialogue.Question(s.PendingField)
	case types.StageConfirming:
		if s.Pending != nil {
			message = dialogue.ConfirmationPrompt(s.Pending.Summary)
		}
	}
	return s, c.respond(&s, "", message, s.Stage)
}

func (c *Controller) collect(ctx context.Context, s Session, text string) (Session, *Response) {
	if c.isCancel(ctx, text) {
		return c.cancel(s, text)
	}

	resp, err := c.callExtractor(ctx, s, text, fieldspec.Missing(s.RecordKind, s.Slots))
	if err != nil {
		return c.failure(s, text, err, "")
	}
	if resp.Type == extract.TypeError {
		err := fmt.Errorf("extractor reported an error %q: %w", resp.Message, types.ErrCollaboratorUnavailable)
		return c.failure(s, text, err, resp.Message)
	}

	merged, err := c.mergeExtracted(s, resp.ParsedSlots)
	if err != nil {
		return c.failure(s, text, err, "")
	}
	s.Slots = merged
	s.Failures = 0

	missing := fieldspec.Missing(s.RecordKind, s.Slots)
	if len(missing) > 0 && resp.Type == extract.TypeIncomplete && resp.Message != "" {
		s.Stage = types.StageCollecting
		s.PendingField = ""
		out := c.respond(&s, text, resp.Message, s.Stage)
		out.Suggestions = resp.Suggestions
		return s, out
	}
	next, out := c.advance(ctx, s, text, true)
	if len(out.Suggestions) == 0 {
		out.Suggestions = resp.Suggestions
	}
	return next, out
}

func (c *Controller) awaitField(ctx context.Context, s Session, text string) (Session, *Response) {
	if c.isCancel(ctx, text) {
		return c.cancel(s, text)
	}
	field := s.PendingField

	value, err := fieldspec.ParseReply(field, text)
	if err != nil {
		slog.Debug("Reply rejected", "field", field, "error", err)
		out := c.respond(&s, text, dialogue.Correction(field, err), s.Stage)
		out.Metadata = errorMetadata(err)
		return s, out
	}

	incoming := types.Partial{string(field): value}
	allowed := fieldspec.AllowedPaths(s.RecordKind)
	for k, v := range fieldspec.ParseTagged(text) {
		id := types.FieldID(k)
		if id != field && allowed[id.Pointer()] && !s.Slots.Has(id) {
			incoming[k] = v
		}
	}
	merged, err := slots.Merge(s.Slots, incoming)
	if err != nil {
		out := c.respond(&s, text, dialogue.Correction(field, err), s.Stage)
		out.Metadata = errorMetadata(err)
		return s, out
	}
	s.Slots = fieldspec.Normalize(merged)
	return c.advance(ctx, s, text, false)
}

// advance moves to the next question or to confirmation. extracted tells
// whether the extraction collaborator already ran during this turn.
func (c *Controller) advance(ctx context.Context, s Session, text string, extracted bool) (Session, *Response) {
	missing := fieldspec.Missing(s.RecordKind, s.Slots)
	slog.Debug("Missing fields", "session", s.ID, "missing", missing)
	if len(missing) == 0 {
		return c.toConfirming(s, text)
	}
	if field, ok := fieldspec.NextAskable(missing); ok {
		s.Stage = types.StageAwaitingField
		s.PendingField = field
		return s, c.respond(&s, text, dialogue.Question(field), s.Stage)
	}

	// Only collaborator-supplied fields such as nutrition are left.
	s.Stage = types.StageCollecting
	s.PendingField = ""
	if !extracted {
		merged, err := c.extractMissing(ctx, s, text, missing)
		if err != nil {
			return c.failure(s, text, err, "")
		}
		s.Slots = merged
		s.Failures = 0
		if len(fieldspec.Missing(s.RecordKind, s.Slots)) == 0 {
			return c.toConfirming(s, text)
		}
	}
	return s, c.respond(&s, text, dialogue.MsgNutritionPending, s.Stage)
}

func (c *Controller) extractMissing(ctx context.Context, s Session, text string, missing []types.FieldID) (types.SlotSet, error) {
	resp, err := c.callExtractor(ctx, s, text, missing)
	if err != nil {
		return s.Slots, err
	}
	if resp.Type == extract.TypeError {
		return s.Slots, fmt.Errorf("extractor reported an error %q: %w", resp.Message, types.ErrCollaboratorUnavailable)
	}
	return c.mergeExtracted(s, resp.ParsedSlots)
}

func (c *Controller) toConfirming(s Session, text string) (Session, *Response) {
	derived := calc.Derive(s.RecordKind, s.Slots)
	summary := dialogue.Format(s.RecordKind, s.Slots, derived)
	s.Stage = types.StageConfirming
	s.PendingField = ""
	s.Pending = &types.Record{
		Kind:    s.RecordKind,
		Slots:   s.Slots.Clone(),
		Derived: derived,
		Summary: summary,
	}
	slog.Debug("Confirming record", "session", s.ID, "derived", derived)
	return s, c.respond(&s, text, dialogue.ConfirmationPrompt(summary), s.Stage)
}

func (c *Controller) confirm(ctx context.Context, s Session, text string) (Session, *Response) {
	decision, err := c.options.recognizer.Recognize(ctx, text)
	if err != nil {
		return c.failure(s, text, fmt.Errorf("recognize confirmation: %w: %w", types.ErrCollaboratorUnavailable, err), "")
	}
	if decision != intent.Affirmative || s.Pending == nil {
		return c.cancel(s, text)
	}

	record := *s.Pending
	record.Slots = s.Pending.Slots.Clone()
	record.ConfirmedAt = c.options.now()

	commitCtx, cancel := context.WithTimeout(ctx, c.options.commitTimeout)
	defer cancel()
	if err := c.committer.Commit(commitCtx, &record); err != nil {
		if !errors.Is(err, types.ErrCollaboratorUnavailable) {
			err = fmt.Errorf("commit failed: %w: %w", types.ErrCollaboratorUnavailable, err)
		}
		return c.failure(s, text, err, dialogue.MsgCommitFailed)
	}

	slog.Info("Record committed", "session", s.ID, "kind", record.Kind, "record_id", record.ID)
	fresh := NewSession(s.ID, s.RecordKind)
	out := c.respond(&fresh, "", dialogue.Committed(s.RecordKind), types.StageCommitted)
	out.Record = &record
	return fresh, out
}

func (c *Controller) cancel(s Session, text string) (Session, *Response) {
	slog.Debug("Record cancelled", "session", s.ID, "stage", s.Stage)
	fresh := NewSession(s.ID, s.RecordKind)
	return fresh, c.respond(&fresh, "", dialogue.MsgCancelled, types.StageCancelled)
}

// failure keeps the stage and slots, counts the failure, and answers with a
// retry message that turns into "connection failed" after maxFailures.
func (c *Controller) failure(s Session, text string, err error, message string) (Session, *Response) {
	s.Failures++
	slog.Warn("Collaborator failed", "session", s.ID, "stage", s.Stage, "failures", s.Failures, "error", err)
	if message == "" {
		message = dialogue.MsgRetry
	}
	if s.Failures >= c.options.maxFailures {
		message = dialogue.MsgConnectionFailed
	}
	out := c.respond(&s, text, message, s.Stage)
	out.Metadata = errorMetadata(err)
	return s, out
}

func (c *Controller) respond(s *Session, userText, message string, outcome types.Stage) *Response {
	s.TurnLog = appendTurns(s.TurnLog,
		types.Turn{Speaker: types.SpeakerUser, Text: userText},
		types.Turn{Speaker: types.SpeakerAssistant, Text: message},
	)
	if c.options.trimmer != nil {
		s.TurnLog = c.options.trimmer.Trim(s.TurnLog)
	}
	return &Response{
		Message: message,
		Outcome: outcome,
		Session: s.Clone(),
		Missing: fieldspec.Missing(s.RecordKind, s.Slots),
	}
}

func (c *Controller) isCancel(ctx context.Context, text string) bool {
	decision, err := c.options.recognizer.Recognize(ctx, text)
	return err == nil && decision == intent.Cancel
}

func (c *Controller) callExtractor(ctx context.Context, s Session, text string, missing []types.FieldID) (*extract.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.options.extractTimeout)
	defer cancel()

	slog.Debug("Extraction request", "session", s.ID, "kind", s.RecordKind, "missing", missing)
	resp, err := c.extractor.Extract(ctx, &extract.Request{
		Text:         text,
		History:      append([]types.Turn{}, s.TurnLog...),
		RecordKind:   s.RecordKind,
		CurrentSlots: s.Slots.Clone(),
		Missing:      missing,
	})
	if err != nil {
		if !errors.Is(err, types.ErrCollaboratorUnavailable) && !errors.Is(err, types.ErrMalformedResponse) {
			err = fmt.Errorf("extraction failed: %w: %w", types.ErrCollaboratorUnavailable, err)
		}
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return resp, nil
}

// mergeExtracted rejects collaborator output naming fields outside the
// session's record kind, then merges and normalises it.
func (c *Controller) mergeExtracted(s Session, parsed types.Partial) (types.SlotSet, error) {
	if err := slots.Validate(parsed, fieldspec.AllowedPaths(s.RecordKind)); err != nil {
		return s.Slots, err
	}
	merged, err := slots.Merge(s.Slots, parsed)
	if err != nil {
		return s.Slots, fmt.Errorf("merge extracted slots: %w: %w", types.ErrMalformedResponse, err)
	}
	return fieldspec.Normalize(merged), nil
}

func errorMetadata(err error) map[string]string {
	return map[string]string{
		"error":      err.Error(),
		"error_kind": string(types.KindOf(err)),
	}
}
