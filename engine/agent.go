package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/healthagent/types"
)

type sessionKeyContext struct{}

const defaultSessionKey = "default"

// WithSessionKey routes Agent turns to the session with this id.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyContext{}, key)
}

func SessionKeyFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(sessionKeyContext{})
	if value == nil {
		return "", false
	}
	key, ok := value.(string)
	return key, ok
}

func sessionKeyOrDefault(ctx context.Context) string {
	key, ok := SessionKeyFromContext(ctx)
	if ok && key != "" {
		return key
	}
	return defaultSessionKey
}

var _ adk.Agent = (*Agent)(nil)

// Agent exposes a Manager as an eino adk.Agent. Each run feeds the last input
// message to the session named by the context key, starting it on first use.
type Agent struct {
	name        string
	description string
	kind        types.RecordKind
	manager     *Manager
}

func NewAgent(name, description string, kind types.RecordKind, manager *Manager) *Agent {
	return &Agent{
		name:        name,
		description: description,
		kind:        kind,
		manager:     manager,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		if input == nil || len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("no messages in input"),
			})
			return
		}
		key := sessionKeyOrDefault(ctx)
		if _, err := a.manager.Get(key); errors.Is(err, types.ErrSessionNotFound) {
			if _, err := a.manager.Start(key, a.kind); err != nil {
				gen.Send(&adk.AgentEvent{Err: fmt.Errorf("start session failed: %w", err)})
				return
			}
		}
		resp, err := a.manager.Turn(ctx, key, input.Messages[len(input.Messages)-1].Content)
		if err != nil {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("turn failed: %w", err),
			})
			return
		}
		gen.Send(&adk.AgentEvent{
			AgentName: a.name,
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message: &schema.Message{
						Role:    schema.Assistant,
						Content: resp.Message,
					},
					Role: schema.Assistant,
				},
				CustomizedOutput: resp,
			},
		})
	}()
	return iter
}
