package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tbxark/healthagent/types"
)

// FailbackExtractor tries each extractor in order and returns the first
// answer that arrives without an error. Only an unavailable extractor passes
// the turn on: a cancelled or expired context and a malformed answer end the
// chain with that error, so the caller reports them instead of a later
// extractor answering.
type FailbackExtractor struct {
	extractors []Extractor
}

func NewFailbackExtractor(extractors ...Extractor) *FailbackExtractor {
	return &FailbackExtractor{extractors: extractors}
}

func (f *FailbackExtractor) Extract(ctx context.Context, req *Request) (*Response, error) {
	lastErr := fmt.Errorf("no extractor configured: %w", types.ErrCollaboratorUnavailable)
	for i, extractor := range f.extractors {
		resp, err := extractor.Extract(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil || errors.Is(err, types.ErrMalformedResponse) {
			return nil, err
		}
		slog.Warn("Extractor failed, trying next", "index", i, "error", err)
		lastErr = err
	}
	return nil, lastErr
}
