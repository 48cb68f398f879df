// Package research collects trend strings for a topic from social sources
// and merges them into one list.
package research

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	MaxTrends = 30

	researchTimeout = 5 * time.Minute
)

// FallbackTrends is returned when no source produced anything.
var FallbackTrends = []string{
	"Too many tools that do not integrate with each other",
	"Manual repetitive tasks that waste hours every week",
	"Hard to find trustworthy local service providers",
	"Rising subscription costs for basic software",
	"Difficulty tracking personal and business finances",
	"Lack of time to keep up with learning new skills",
	"Poor customer support from large companies",
	"Struggling to find reliable information online",
}

// TrendSource is implemented by Collector.
type TrendSource interface {
	Name() string
	Available() bool
	Collect(ctx context.Context, topic string) ([]string, error)
}

type Sources struct {
	Reddit  bool `json:"reddit"`
	Twitter bool `json:"twitter"`
}

type Research struct {
	Success bool     `json:"success"`
	Trends  []string `json:"trends"`
	Sources Sources  `json:"sources"`
	Error   string   `json:"error,omitempty"`
}

type Aggregator struct {
	reddit  TrendSource
	twitter TrendSource
	logger  *slog.Logger
	group   singleflight.Group
}

// NewAggregator accepts nil for a source that is not wired at all.
func NewAggregator(reddit, twitter TrendSource, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{reddit: reddit, twitter: twitter, logger: logger}
}

type outcome struct {
	trends []string
	err    error
	ran    bool
}

// GetCombinedResearch runs every available source concurrently and waits for
// all of them. Concurrent calls for the same topic share one run, which is
// detached from the cancellation of whichever caller started it. A caller
// whose ctx ends first gets the fallback trends. Trends are never empty.
func (a *Aggregator) GetCombinedResearch(ctx context.Context, topic string) Research {
	key := strings.ToLower(strings.TrimSpace(topic))
	ch := a.group.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), researchTimeout)
		defer cancel()
		return a.research(runCtx, topic), nil
	})

	select {
	case r := <-ch:
		res := r.Val.(Research)
		res.Trends = append([]string(nil), res.Trends...)
		return res
	case <-ctx.Done():
		a.logger.Warn("research abandoned by caller", "topic", topic, "error", ctx.Err())
		return fallback([]string{ctx.Err().Error()})
	}
}

// Reddit and Twitter run a single source without merging.
func (a *Aggregator) Reddit(ctx context.Context, topic string) ([]string, error) {
	return collect(ctx, a.reddit, topic)
}

func (a *Aggregator) Twitter(ctx context.Context, topic string) ([]string, error) {
	return collect(ctx, a.twitter, topic)
}

func (a *Aggregator) TwitterAvailable() bool {
	return a.twitter != nil && a.twitter.Available()
}

func collect(ctx context.Context, src TrendSource, topic string) ([]string, error) {
	if src == nil {
		return nil, ErrNoTrends
	}
	return src.Collect(ctx, topic)
}

func (a *Aggregator) research(ctx context.Context, topic string) Research {
	sources := []TrendSource{a.reddit, a.twitter}
	outcomes := make([]outcome, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		if src == nil || !src.Available() {
			if src != nil {
				a.logger.Info("source unavailable, skipping", "source", src.Name())
			}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			trends, err := src.Collect(ctx, topic)
			outcomes[i] = outcome{trends: trends, err: err, ran: true}
		}()
	}
	wg.Wait()

	var res Research
	var errs []string
	for i, o := range outcomes {
		ok := o.ran && o.err == nil && len(o.trends) > 0
		if o.err != nil {
			a.logger.Warn("source failed", "source", sources[i].Name(), "topic", topic, "error", o.err)
			errs = append(errs, o.err.Error())
		}
		if i == 0 {
			res.Sources.Reddit = ok
		} else {
			res.Sources.Twitter = ok
		}
	}

	res.Trends = merge(outcomes[0].trends, outcomes[1].trends)
	res.Success = len(res.Trends) > 0
	if !res.Success {
		fb := fallback(errs)
		res.Trends, res.Error = fb.Trends, fb.Error
	}

	a.logger.Info("research complete",
		"topic", topic,
		"trends", len(res.Trends),
		"reddit", res.Sources.Reddit,
		"twitter", res.Sources.Twitter,
		"fallback", !res.Success,
	)
	return res
}

func fallback(errs []string) Research {
	res := Research{
		Trends: append([]string(nil), FallbackTrends...),
		Error:  "no trends collected, using fallback",
	}
	if len(errs) > 0 {
		res.Error += ": " + strings.Join(errs, "; ")
	}
	return res
}

func merge(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, t := range list {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
			if len(out) == MaxTrends {
				return out
			}
		}
	}
	return out
}
