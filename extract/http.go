package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tbxark/healthagent/types"
)

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Text         string        `json:"text"`
	History      []wireMessage `json:"history"`
	RecordKind   string        `json:"recordKind"`
	CurrentSlots types.Partial `json:"currentSlots"`
}

// HTTPExtractor posts turns to a remote extraction service.
type HTTPExtractor struct {
	endpoint   string
	httpClient *http.Client
	history    int
}

func NewHTTPExtractor(endpoint string, timeout time.Duration, opts ...Option) *HTTPExtractor {
	options := extractorOptions{historyWindow: defaultHistoryWindow}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExtractor{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		history:    options.historyWindow,
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, req *Request) (*Response, error) {
	body, err := sonic.Marshal(toWireRequest(req, e.history))
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w: %w", types.ErrCollaboratorUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read extraction response: %w: %w", types.ErrCollaboratorUnavailable, err)
	}
	slog.Debug("Extraction service replied", "status", resp.StatusCode, "bytes", len(raw))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service status %d: %w", resp.StatusCode, types.ErrCollaboratorUnavailable)
	}

	var out Response
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w: %w", types.ErrMalformedResponse, err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func toWireRequest(req *Request, window int) wireRequest {
	history := lastTurns(req.History, window)
	wire := wireRequest{
		Text:       req.Text,
		History:    make([]wireMessage, 0, len(history)),
		RecordKind: string(req.RecordKind),
	}
	for _, turn := range history {
		wire.History = append(wire.History, wireMessage{Role: string(turn.Speaker), Content: turn.Text})
	}
	if raw, err := sonic.Marshal(req.CurrentSlots); err == nil {
		_ = sonic.Unmarshal(raw, &wire.CurrentSlots)
	}
	if wire.CurrentSlots == nil {
		wire.CurrentSlots = types.Partial{}
	}
	return wire
}
