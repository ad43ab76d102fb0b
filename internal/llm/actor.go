// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/reflexion-engine/internal/reflexion"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// Responder drafts the first structured answer. It implements
// reflexion.Responder.
type Responder struct {
	Backend Backend

	// MaxRetries is the number of extra attempts after a backend failure.
	// Malformed output is never retried.
	MaxRetries int

	Log zerolog.Logger
}

// Revisor rewrites the latest answer with citations. It implements
// reflexion.Revisor.
type Revisor struct {
	Backend    Backend
	MaxRetries int
	Log        zerolog.Logger
}

var (
	_ reflexion.Responder = (*Responder)(nil)
	_ reflexion.Revisor   = (*Revisor)(nil)
)

// NewResponder returns a Responder over backend with the retry budget from cfg.
func NewResponder(backend Backend, cfg types.AIConfig, log zerolog.Logger) *Responder {
	return &Responder{Backend: backend, MaxRetries: cfg.MaxRetries, Log: log}
}

// NewRevisor returns a Revisor over backend with the retry budget from cfg.
func NewRevisor(backend Backend, cfg types.AIConfig, log zerolog.Logger) *Revisor {
	return &Revisor{Backend: backend, MaxRetries: cfg.MaxRetries, Log: log}
}

// Respond asks the model for an AnswerQuestion tool call.
func (r *Responder) Respond(ctx context.Context, conversation []types.Message) (types.StructuredAnswer, error) {
	req, err := buildRequest(draftInstruction, conversation, AnswerTool)
	if err != nil {
		return types.StructuredAnswer{}, fmt.Errorf("rendering prompt: %w", err)
	}
	data, err := callWithRetry(ctx, r.Backend, req, r.MaxRetries, r.Log)
	if err != nil {
		return types.StructuredAnswer{}, err
	}
	return DecodeAnswer(data)
}

// Revise asks the model for a ReviseAnswer tool call.
func (r *Revisor) Revise(ctx context.Context, conversation []types.Message) (types.Revision, error) {
	req, err := buildRequest(reviseInstruction, conversation, RevisionTool)
	if err != nil {
		return types.Revision{}, fmt.Errorf("rendering prompt: %w", err)
	}
	data, err := callWithRetry(ctx, r.Backend, req, r.MaxRetries, r.Log)
	if err != nil {
		return types.Revision{}, err
	}
	return DecodeRevision(data)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry invokes the backend with exponential backoff between failed
// attempts. Malformed output and context errors end the attempts at once.
func callWithRetry(ctx context.Context, backend Backend, req Request, maxRetries int, log zerolog.Logger) (json.RawMessage, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: no language model backend", reflexion.ErrConfiguration)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			log.Debug().Str("tool", req.Tool.Name).Int("attempt", attempt+1).Dur("backoff", backoff).Err(lastErr).Msg("retrying model call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		data, err := backend.Invoke(ctx, req)
		if err == nil {
			log.Debug().
				Str("tool", req.Tool.Name).
				Int("messages", len(req.Messages)).
				Int("response_bytes", len(data)).
				Dur("elapsed", time.Since(start)).
				Msg("model call")
			return data, nil
		}
		if errors.Is(err, reflexion.ErrMalformedOutput) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	if maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
