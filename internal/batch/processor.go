// Package batch drives a rate-limited scheduler across a named set of
// categories and keeps resumable progress in a state store.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/alexanxin/ideaspire-sub000/internal/state"
)

// Scheduler is the part of ratelimit.Scheduler the processor needs.
type Scheduler interface {
	Submit(ctx context.Context, label string, call ratelimit.Call) <-chan ratelimit.Result
	Info() model.RateLimitInfo
}

// RequestBuilder turns a category into the call that processes it.
type RequestBuilder func(category string) ratelimit.Call

// Outcome is the final state of a run plus a snapshot of the scheduler.
type Outcome struct {
	State         *model.ProcessingState `json:"state"`
	Attempted     []string               `json:"attempted"`
	RateLimitInfo model.RateLimitInfo    `json:"rateLimitInfo"`
}

// Processor runs one batch at a time; a second ProcessAll waits for the
// first to finish and then resumes from the state it saved.
type Processor struct {
	mu        sync.Mutex
	scheduler Scheduler
	store     state.Store
	logger    *slog.Logger
}

func NewProcessor(scheduler Scheduler, store state.Store, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{scheduler: scheduler, store: store, logger: logger}
}

// ProcessAll runs every category not already completed in the persisted
// state. A failed category is recorded with success=false and still counts as
// completed; it is not retried until the state is reset. State is saved after
// each category.
//
// If ctx is cancelled, categories that did not finish stay in
// RemainingCategories and ctx.Err() is returned alongside the partial outcome.
// Categories dropped because the scheduler was disabled also stay remaining,
// and the returned error wraps ratelimit.ErrDisabled.
func (p *Processor) ProcessAll(ctx context.Context, categories []string, build RequestBuilder) (*Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.store.Load(ctx)
	if st == nil {
		st = model.NewProcessingState()
	}

	pending := pendingCategories(st, categories)
	if len(pending) == 0 {
		p.logger.Info("all categories already processed", "completed", len(st.CompletedCategories))
		return &Outcome{State: st, Attempted: []string{}, RateLimitInfo: p.scheduler.Info()}, nil
	}

	st.RemainingCategories = append([]string{}, pending...)
	p.save(ctx, st)

	p.logger.Info("processing categories", "pending", len(pending), "completed", len(st.CompletedCategories))

	results := make([]<-chan ratelimit.Result, len(pending))
	for i, category := range pending {
		results[i] = p.scheduler.Submit(ctx, category, build(category))
	}

	var succeeded, failed, dropped int
	for i, ch := range results {
		res := <-ch

		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(res.Err, ctxErr) {
			p.logger.Warn("category interrupted", "category", pending[i], "error", res.Err)
			continue
		}
		if errors.Is(res.Err, ratelimit.ErrDisabled) {
			dropped++
			p.logger.Warn("category not dispatched, scheduler disabled", "category", pending[i], "error", res.Err)
			continue
		}

		result := model.CategoryResult{
			Success:     res.Err == nil,
			Data:        res.Data,
			Category:    pending[i],
			CompletedAt: completedAt(res),
		}
		if res.Err != nil {
			result.Error = res.Err.Error()
			failed++
			p.logger.Error("category failed", "category", pending[i], "attempts", res.Attempts, "error", res.Err)
		} else {
			succeeded++
			p.logger.Info("category processed", "category", pending[i], "attempts", res.Attempts)
		}

		st.Complete(result)
		p.save(ctx, st)
	}

	p.logger.Info("batch complete", "succeeded", succeeded, "failed", failed, "dropped", dropped, "remaining", len(st.RemainingCategories))

	outcome := &Outcome{State: st, Attempted: pending, RateLimitInfo: p.scheduler.Info()}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}
	if dropped > 0 {
		return outcome, fmt.Errorf("%d categories left pending: %w", dropped, ratelimit.ErrDisabled)
	}
	return outcome, nil
}

// State returns the persisted state, or an empty one.
func (p *Processor) State(ctx context.Context) *model.ProcessingState {
	st := p.store.Load(ctx)
	if st == nil {
		return model.NewProcessingState()
	}
	return st
}

func (p *Processor) Info() model.RateLimitInfo {
	return p.scheduler.Info()
}

// Reset clears the persisted state so the next run starts over.
func (p *Processor) Reset(ctx context.Context) bool {
	return p.store.Clear(ctx)
}

func (p *Processor) save(ctx context.Context, st *model.ProcessingState) {
	// a cancelled request context must not lose the progress made so far
	if !p.store.Save(context.WithoutCancel(ctx), st) {
		p.logger.Warn("state not persisted", "store", p.store.Kind())
	}
}

func pendingCategories(st *model.ProcessingState, categories []string) []string {
	seen := make(map[string]bool, len(categories))
	pending := make([]string, 0, len(categories))
	for _, c := range categories {
		if c == "" || seen[c] || st.IsCompleted(c) {
			continue
		}
		seen[c] = true
		pending = append(pending, c)
	}
	return pending
}

func completedAt(res ratelimit.Result) time.Time {
	if res.CompletedAt.IsZero() {
		return time.Now().UTC()
	}
	return res.CompletedAt.UTC()
}
