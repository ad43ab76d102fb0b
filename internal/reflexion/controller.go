// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reflexion runs the bounded draft, research, and revise loop.
//
// A Controller drafts an answer with a Responder, resolves the answer's
// follow-up search queries with a QueryResolver, and rewrites the answer
// with a Revisor. Resolve and revise repeat until the configured number of
// revisions has completed. The three adapters are injected; the controller
// performs no retries and aborts the run on the first failing node.
package reflexion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// Responder produces the first structured answer from a conversation that
// carries the question.
type Responder interface {
	Respond(ctx context.Context, conversation []types.Message) (types.StructuredAnswer, error)
}

// Revisor rewrites an answer using the previous answer and retrieved results.
type Revisor interface {
	Revise(ctx context.Context, conversation []types.Message) (types.Revision, error)
}

// QueryResolver resolves a batch of search queries. The returned slice has
// one result per query, in query order.
type QueryResolver interface {
	Resolve(ctx context.Context, queries []string) ([]types.SearchResult, error)
}

// Observer is called after every completed node with the node that ran and
// a copy of the state it produced.
type Observer func(step Step, state LoopState)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for step events.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithObserver registers a callback for completed nodes.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// Controller owns the loop state machine for one question at a time.
type Controller struct {
	responder     Responder
	resolver      QueryResolver
	revisor       Revisor
	maxIterations int
	log           zerolog.Logger
	observer      Observer
}

// New validates cfg and returns a Controller wired to the given adapters.
func New(cfg types.LoopConfig, responder Responder, resolver QueryResolver, revisor Revisor, opts ...Option) (*Controller, error) {
	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("%w: max iterations must be positive, got %d", ErrConfiguration, cfg.MaxIterations)
	}
	if responder == nil || resolver == nil || revisor == nil {
		return nil, fmt.Errorf("%w: responder, resolver, and revisor are all required", ErrConfiguration)
	}

	c := &Controller{
		responder:     responder,
		resolver:      resolver,
		revisor:       revisor,
		maxIterations: cfg.MaxIterations,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MaxIterations returns the configured revise bound.
func (c *Controller) MaxIterations() int { return c.maxIterations }

// Run drives the loop for question until it terminates. On failure it
// returns the last successfully produced state together with a *StepError.
func (c *Controller) Run(ctx context.Context, question string) (LoopState, error) {
	if strings.TrimSpace(question) == "" {
		return LoopState{}, fmt.Errorf("%w: question is empty", ErrConfiguration)
	}

	state := NewLoopState(question)
	step := StepDraft

	for step != StepTerminated {
		start := time.Now()

		next, err := c.exec(ctx, step, state)
		if err != nil {
			c.log.Error().Err(err).
				Str("step", step.String()).
				Int("iterations", state.Iterations).
				Msg("step failed")
			return state, &StepError{Step: step, State: state, Err: err}
		}
		state = next

		c.log.Info().
			Str("step", step.String()).
			Int("iterations", state.Iterations).
			Dur("elapsed", time.Since(start)).
			Msg("step completed")

		if c.observer != nil {
			c.observer(step, state.Clone())
		}

		step = Next(step, state, c.maxIterations)
	}

	c.log.Info().Int("iterations", state.Iterations).Msg("loop terminated")
	return state, nil
}

func (c *Controller) exec(ctx context.Context, step Step, state LoopState) (LoopState, error) {
	switch step {
	case StepDraft:
		return c.Draft(ctx, state)
	case StepResolve:
		return c.Resolve(ctx, state)
	case StepRevise:
		return c.Revise(ctx, state)
	default:
		return state, fmt.Errorf("no node for step %s", step)
	}
}

// Draft asks the responder for a first answer to the question.
func (c *Controller) Draft(ctx context.Context, state LoopState) (LoopState, error) {
	answer, err := c.responder.Respond(ctx, DraftConversation(state.Question))
	if err != nil {
		return state, classify(err)
	}

	next := state.Clone()
	a := answer.Clone()
	next.CurrentAnswer = &a
	return next, nil
}

// Resolve runs the latest answer's search queries as one batch. Without an
// answer or without queries it returns state unchanged and calls nothing.
func (c *Controller) Resolve(ctx context.Context, state LoopState) (LoopState, error) {
	latest, ok := state.Latest()
	if !ok || len(latest.SearchQueries) == 0 {
		c.log.Debug().Msg("no search queries; skipping resolve")
		return state, nil
	}

	queries := make([]string, len(latest.SearchQueries))
	copy(queries, latest.SearchQueries)

	results, err := c.resolver.Resolve(ctx, queries)
	if err != nil {
		return state, classify(err)
	}
	if len(results) != len(queries) {
		return state, Malformed("resolver returned %d results for %d queries", len(results), len(queries))
	}

	next := state.Clone()
	next.SearchResults = types.CloneSearchResults(results)
	return next, nil
}

// Revise asks the revisor to rewrite the latest answer using the search
// results, then counts the completed iteration.
func (c *Controller) Revise(ctx context.Context, state LoopState) (LoopState, error) {
	if state.CurrentAnswer == nil {
		return state, ErrNoDraft
	}

	conversation, err := ReviseConversation(state)
	if err != nil {
		return state, err
	}

	revision, err := c.revisor.Revise(ctx, conversation)
	if err != nil {
		return state, classify(err)
	}

	next := state.Clone()
	r := revision.Clone()
	next.RevisedAnswer = &r
	next.Iterations++
	return next, nil
}
