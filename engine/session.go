// Package engine runs the logging dialogue: a pure per-turn reducer over a
// serialisable Session plus a concurrent-safe registry of live sessions.
package engine

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/tbxark/healthagent/fieldspec"
	"github.com/tbxark/healthagent/slots"
	"github.com/tbxark/healthagent/types"
)

// Session is one record-logging attempt. It is a plain value; Reduce never
// mutates the session it is given.
type Session struct {
	ID           string           `json:"id"`
	RecordKind   types.RecordKind `json:"record_kind"`
	Stage        types.Stage      `json:"stage"`
	PendingField types.FieldID    `json:"pending_field,omitempty"`
	Slots        types.SlotSet    `json:"slots"`
	TurnLog      []types.Turn     `json:"turn_log"`
	Pending      *types.Record    `json:"pending,omitempty"`
	Failures     int              `json:"failures,omitempty"`
}

func NewSession(id string, kind types.RecordKind) Session {
	return Session{
		ID:         id,
		RecordKind: kind,
		Stage:      types.StageCollecting,
		TurnLog:    []types.Turn{},
	}
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	out.Slots = s.Slots.Clone()
	out.TurnLog = append([]types.Turn{}, s.TurnLog...)
	if s.Pending != nil {
		record := *s.Pending
		record.Slots = s.Pending.Slots.Clone()
		if s.Pending.Derived.Macros != nil {
			macros := *s.Pending.Derived.Macros
			record.Derived.Macros = &macros
		}
		out.Pending = &record
	}
	return out
}

const checkpointVersion = 1

type checkpoint struct {
	Version int     `json:"version"`
	Session Session `json:"session"`
}

// MarshalCheckpoint serialises a session so an unconfirmed dialogue can be
// resumed by another process.
func MarshalCheckpoint(s Session) ([]byte, error) {
	data, err := sonic.Marshal(checkpoint{Version: checkpointVersion, Session: s})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return data, nil
}

func UnmarshalCheckpoint(data []byte) (Session, error) {
	var cp checkpoint
	if err := sonic.Unmarshal(data, &cp); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if cp.Version != checkpointVersion {
		return Session{}, fmt.Errorf("unsupported checkpoint version %d", cp.Version)
	}
	s := cp.Session
	if !s.RecordKind.Valid() {
		return Session{}, fmt.Errorf("checkpoint has unknown record kind %q", s.RecordKind)
	}
	switch s.Stage {
	case types.StageCollecting, types.StageConfirming:
	case types.StageAwaitingField:
		if !askable(s.RecordKind, s.PendingField) {
			return Session{}, fmt.Errorf("checkpoint awaits %q, not an askable %s field", s.PendingField, s.RecordKind)
		}
	default:
		return Session{}, fmt.Errorf("checkpoint has unresumable stage %q", s.Stage)
	}
	if s.Stage == types.StageConfirming && s.Pending == nil {
		return Session{}, fmt.Errorf("checkpoint is confirming without a pending record")
	}
	if err := checkKindSlots(s.RecordKind, s.Slots); err != nil {
		return Session{}, fmt.Errorf("checkpoint slots: %w", err)
	}
	if s.Pending != nil {
		if s.Pending.Kind != s.RecordKind {
			return Session{}, fmt.Errorf("checkpoint pending record is %q in a %q session", s.Pending.Kind, s.RecordKind)
		}
		if err := checkKindSlots(s.RecordKind, s.Pending.Slots); err != nil {
			return Session{}, fmt.Errorf("checkpoint pending record: %w", err)
		}
	}
	if s.TurnLog == nil {
		s.TurnLog = []types.Turn{}
	}
	return s, nil
}

func askable(kind types.RecordKind, field types.FieldID) bool {
	for _, info := range fieldspec.Schema(kind) {
		if info.ID == field {
			return info.Askable
		}
	}
	return false
}

// checkKindSlots rejects slots holding fields of another record kind.
func checkKindSlots(kind types.RecordKind, s types.SlotSet) error {
	partial, err := slots.ToPartial(s)
	if err != nil {
		return err
	}
	return slots.Validate(partial, fieldspec.AllowedPaths(kind))
}
