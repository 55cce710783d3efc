package extract

import (
	"context"
	"fmt"

	"github.com/tbxark/healthagent/types"
)

type ResponseType string

const (
	TypeSuccess    ResponseType = "success"
	TypeIncomplete ResponseType = "incomplete"
	TypeError      ResponseType = "error"
)

type Request struct {
	Text         string
	History      []types.Turn
	RecordKind   types.RecordKind
	CurrentSlots types.SlotSet
	Missing      []types.FieldID
}

type Response struct {
	Type        ResponseType  `json:"type"`
	Message     string        `json:"message"`
	ParsedSlots types.Partial `json:"parsedSlots,omitempty"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// Validate rejects responses the engine cannot act on.
func (r *Response) Validate() error {
	if r == nil {
		return fmt.Errorf("nil extraction response: %w", types.ErrMalformedResponse)
	}
	switch r.Type {
	case TypeSuccess, TypeIncomplete, TypeError:
		return nil
	default:
		return fmt.Errorf("unknown response type %q: %w", r.Type, types.ErrMalformedResponse)
	}
}

type Extractor interface {
	Extract(ctx context.Context, req *Request) (*Response, error)
}
