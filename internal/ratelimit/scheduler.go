// Package ratelimit serialises calls to one external API through a FIFO
// queue, paces them under a sliding-window budget and retries rate-limited
// calls with exponential backoff.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Call is one deferred invocation of the wrapped client.
type Call func(ctx context.Context) (any, error)

// Result is the terminal outcome of an enqueued call.
type Result struct {
	Label       string
	Data        any
	Err         error
	Attempts    int
	CompletedAt time.Time
}

type request struct {
	id         string
	ctx        context.Context
	label      string
	call       Call
	enqueuedAt time.Time
	attempts   int
	backoff    *backoff.ExponentialBackOff
	done       chan Result
}

// Scheduler owns one queue and one processing loop. It is created once at
// startup and shared by every caller of the same provider; it holds no
// resources that need closing.
type Scheduler struct {
	cfg    Config
	clock  Clock
	logger *slog.Logger

	mu             sync.Mutex
	queue          []*request
	window         *Window
	lastDispatch   time.Time
	processing     bool
	disabled       bool
	disabledReason string
}

type Option func(*Scheduler)

func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func New(cfg Config, opts ...Option) *Scheduler {
	cfg = cfg.withDefaults()

	s := &Scheduler{
		cfg:    cfg,
		clock:  realClock{},
		logger: slog.Default(),
		window: NewWindow(cfg.Window, cfg.MaxRequests),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("scheduler", cfg.Name)

	return s
}

func (s *Scheduler) Name() string {
	return s.cfg.Name
}

// Submit appends call to the queue and returns a channel that receives its
// result exactly once. The processing loop is started if it is not running.
func (s *Scheduler) Submit(ctx context.Context, label string, call Call) <-chan Result {
	req := &request{
		id:    uuid.NewString(),
		ctx:   ctx,
		label: label,
		call:  call,
		done:  make(chan Result, 1),
	}

	s.mu.Lock()
	if s.disabled {
		reason := s.disabledReason
		s.mu.Unlock()
		req.finish(s.clock.Now(), nil, fmt.Errorf("%s: %w: %s", s.cfg.Name, ErrDisabled, reason))
		return req.done
	}

	req.enqueuedAt = s.clock.Now()
	s.queue = append(s.queue, req)
	start := !s.processing
	s.processing = true
	queued := len(s.queue)
	s.mu.Unlock()

	s.logger.Debug("request enqueued", "request_id", req.id, "label", label, "queue_length", queued)

	if start {
		go s.run()
	}

	return req.done
}

// Enqueue submits call and blocks until its result is available.
func (s *Scheduler) Enqueue(ctx context.Context, label string, call Call) Result {
	return <-s.Submit(ctx, label, call)
}

// Available reports whether the scheduler still accepts work.
func (s *Scheduler) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disabled
}

// Disable stops all further dispatches. Requests still queued resolve with
// ErrDisabled without being called.
func (s *Scheduler) Disable(reason string) {
	s.mu.Lock()
	if s.disabled {
		s.mu.Unlock()
		return
	}
	s.disabled = true
	s.disabledReason = reason
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()

	s.logger.Warn("scheduler disabled", "reason", reason, "dropped", len(pending))

	now := s.clock.Now()
	for _, req := range pending {
		req.finish(now, nil, fmt.Errorf("%s: %w: %s", s.cfg.Name, ErrDisabled, reason))
	}
}

// Info returns a snapshot of the window occupancy and queue.
func (s *Scheduler) Info() model.RateLimitInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	count := s.window.Count(now)

	return model.RateLimitInfo{
		CurrentRequests: count,
		MaxRequests:     s.cfg.MaxRequests,
		WindowMs:        s.cfg.Window.Milliseconds(),
		IsWithinLimit:   count < s.cfg.MaxRequests,
		QueueLength:     len(s.queue),
		Disabled:        s.disabled,
		DisabledReason:  s.disabledReason,
	}
}

func (s *Scheduler) run() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.processing = false
			s.mu.Unlock()
			return
		}
		req := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.process(req)
	}
}

func (s *Scheduler) process(req *request) {
	if err := req.ctx.Err(); err != nil {
		req.finish(s.clock.Now(), nil, err)
		return
	}

	if err := s.waitForSlot(req.ctx); err != nil {
		req.finish(s.clock.Now(), nil, err)
		return
	}

	s.mu.Lock()
	if s.disabled {
		reason := s.disabledReason
		s.mu.Unlock()
		req.finish(s.clock.Now(), nil, fmt.Errorf("%s: %w: %s", s.cfg.Name, ErrDisabled, reason))
		return
	}
	now := s.clock.Now()
	s.window.Record(now)
	s.lastDispatch = now
	s.mu.Unlock()

	req.attempts++
	data, err := req.call(req.ctx)
	if err == nil {
		req.finish(s.clock.Now(), data, nil)
		return
	}

	class, resetAt := s.cfg.Classifier(err)
	switch class {
	case ClassUsageCap:
		s.Disable(err.Error())
		req.finish(s.clock.Now(), nil, err)

	case ClassRateLimited:
		if req.attempts > s.cfg.MaxRetries {
			s.logger.Error("rate limit retries exhausted", "request_id", req.id, "label", req.label, "attempts", req.attempts, "error", err)
			req.finish(s.clock.Now(), nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, req.attempts, err))
			return
		}

		delay := s.retryDelay(req, resetAt)
		s.logger.Warn("rate limited, backing off", "request_id", req.id, "label", req.label, "attempt", req.attempts, "delay", delay)

		if err := s.clock.Sleep(req.ctx, delay); err != nil {
			req.finish(s.clock.Now(), nil, err)
			return
		}

		s.mu.Lock()
		s.queue = append([]*request{req}, s.queue...)
		s.mu.Unlock()

	default:
		req.finish(s.clock.Now(), nil, err)
	}
}

// waitForSlot sleeps until both the window and the minimum spacing admit a
// dispatch. Each iteration computes one exact wait and rechecks once.
func (s *Scheduler) waitForSlot(ctx context.Context) error {
	for {
		s.mu.Lock()
		now := s.clock.Now()
		wait := s.window.Wait(now)
		if wait > 0 {
			wait += s.cfg.SafetyBuffer
		} else if !s.lastDispatch.IsZero() {
			if since := now.Sub(s.lastDispatch); since < s.cfg.MinDelay {
				wait = s.cfg.MinDelay - since
			}
		}
		s.mu.Unlock()

		if wait <= 0 {
			return nil
		}

		if err := s.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// retryDelay prefers the provider's reset time over the generic
// BaseBackoff * 2^(attempt-1).
func (s *Scheduler) retryDelay(req *request, resetAt time.Time) time.Duration {
	if !resetAt.IsZero() {
		if until := resetAt.Sub(s.clock.Now()); until > 0 {
			return until + s.cfg.SafetyBuffer
		}
	}

	if req.backoff == nil {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = s.cfg.BaseBackoff
		b.Multiplier = 2
		b.RandomizationFactor = 0
		b.MaxInterval = s.cfg.MaxBackoff
		b.MaxElapsedTime = 0
		b.Reset()
		req.backoff = b
	}

	return req.backoff.NextBackOff()
}

func (r *request) finish(at time.Time, data any, err error) {
	r.done <- Result{
		Label:       r.label,
		Data:        data,
		Err:         err,
		Attempts:    r.attempts,
		CompletedAt: at,
	}
}
