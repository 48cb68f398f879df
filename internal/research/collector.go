package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/alexanxin/ideaspire-sub000/pkg/llm"
	"github.com/alexanxin/ideaspire-sub000/pkg/social"
)

var ErrNoTrends = errors.New("no trends extracted")

// Scheduler is the part of ratelimit.Scheduler a collector needs.
type Scheduler interface {
	Submit(ctx context.Context, label string, call ratelimit.Call) <-chan ratelimit.Result
	Available() bool
}

type CollectorConfig struct {
	// Queries may contain "{topic}"; otherwise the topic is prepended.
	Queries         []string
	Communities     []string
	PostsPerQuery   int
	CommentPosts    int
	CommentsPerPost int
	QueryDelay      time.Duration
	CommunityDelay  time.Duration
	// AcceptSentences lets sentence-split LLM output count as trends.
	AcceptSentences bool
}

func DefaultRedditCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Queries:         []string{"{topic} problem", "{topic} frustrated", "{topic} wish there was"},
		Communities:     []string{"Entrepreneur", "smallbusiness", "startups", "SaaS"},
		PostsPerQuery:   10,
		CommentPosts:    3,
		CommentsPerPost: 5,
		QueryDelay:      500 * time.Millisecond,
		CommunityDelay:  2 * time.Second,
		AcceptSentences: true,
	}
}

func DefaultTwitterCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Queries:         []string{"{topic} \"I wish\"", "{topic} frustrating"},
		Communities:     []string{""},
		PostsPerQuery:   25,
		CommentPosts:    2,
		CommentsPerPost: 5,
		QueryDelay:      time.Second,
		CommunityDelay:  0,
		AcceptSentences: false,
	}
}

// Collector runs a fixed search plan against one social source through its
// scheduler and asks the LLM to extract trends from what it found.
type Collector struct {
	source    social.Source
	scheduler Scheduler
	gen       llm.Generator
	cfg       CollectorConfig
	clock     ratelimit.Clock
	logger    *slog.Logger
}

func NewCollector(source social.Source, scheduler Scheduler, gen llm.Generator, cfg CollectorConfig, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		source:    source,
		scheduler: scheduler,
		gen:       gen,
		cfg:       cfg,
		clock:     ratelimit.SystemClock(),
		logger:    logger.With("source", source.Name()),
	}
}

func (c *Collector) Name() string {
	return c.source.Name()
}

// Available is false when credentials are missing, the LLM is missing or the
// scheduler was disabled by a usage cap.
func (c *Collector) Available() bool {
	return c.source.Capability().Available() && c.scheduler.Available() && c.gen != nil
}

func (c *Collector) unavailable() error {
	if capability := c.source.Capability(); !capability.Available() {
		return fmt.Errorf("%s: %w: %s", c.Name(), social.ErrNotConfigured, capability.Reason())
	}
	if c.gen == nil {
		return fmt.Errorf("%s: %w: no llm provider", c.Name(), social.ErrNotConfigured)
	}
	return fmt.Errorf("%s: %w", c.Name(), ratelimit.ErrDisabled)
}

// Collect returns the trends extracted for topic.
func (c *Collector) Collect(ctx context.Context, topic string) ([]string, error) {
	if !c.Available() {
		return nil, c.unavailable()
	}

	posts, err := c.gather(ctx, topic)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		if !c.Available() {
			return nil, c.unavailable()
		}
		return nil, fmt.Errorf("%s: no posts found for %q: %w", c.Name(), topic, ErrNoTrends)
	}

	c.attachComments(ctx, posts)

	texts := make([]string, len(posts))
	for i, p := range posts {
		texts[i] = p.Text()
	}

	system, user := llm.TrendPrompt(c.Name(), topic, texts)
	content, err := c.gen.Generate(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("%s: trend extraction failed: %w", c.Name(), err)
	}

	parsed := ParseTrends(content)
	c.logger.Info("trends parsed", "topic", topic, "posts", len(posts), "kind", parsed.Kind.String(), "trends", len(parsed.Trends))

	if parsed.Kind == Empty || (parsed.Kind == Sentences && !c.cfg.AcceptSentences) {
		return nil, fmt.Errorf("%s: %w from %s output", c.Name(), ErrNoTrends, parsed.Kind)
	}
	return parsed.Trends, nil
}

// gather runs the search plan. A scheduler disabled mid-run ends the plan
// early and keeps what was found.
func (c *Collector) gather(ctx context.Context, topic string) ([]social.Post, error) {
	seen := make(map[string]bool)
	var posts []social.Post

	for ci, community := range c.cfg.Communities {
		if ci > 0 {
			if err := c.clock.Sleep(ctx, c.cfg.CommunityDelay); err != nil {
				return posts, err
			}
		}

		for qi, q := range c.cfg.Queries {
			if qi > 0 {
				if err := c.clock.Sleep(ctx, c.cfg.QueryDelay); err != nil {
					return posts, err
				}
			}

			query := buildQuery(q, topic)
			label := strings.TrimSpace(community + " " + query)
			res := <-c.scheduler.Submit(ctx, label, func(ctx context.Context) (any, error) {
				return c.source.Search(ctx, community, query, c.cfg.PostsPerQuery)
			})

			if res.Err != nil {
				if ctx.Err() != nil {
					return posts, ctx.Err()
				}
				c.logger.Warn("search failed", "community", community, "query", query, "error", res.Err)
				if !c.scheduler.Available() {
					return posts, nil
				}
				continue
			}

			found, _ := res.Data.([]social.Post)
			for _, p := range found {
				if seen[p.ID] {
					continue
				}
				seen[p.ID] = true
				posts = append(posts, p)
			}
		}
	}
	return posts, nil
}

// attachComments fetches comments for the highest scoring posts. Failures
// only cost the comments.
func (c *Collector) attachComments(ctx context.Context, posts []social.Post) {
	if c.cfg.CommentPosts <= 0 || c.cfg.CommentsPerPost <= 0 {
		return
	}

	order := make([]int, len(posts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return posts[order[a]].Score > posts[order[b]].Score
	})

	for _, idx := range order[:min(c.cfg.CommentPosts, len(order))] {
		post := posts[idx]
		res := <-c.scheduler.Submit(ctx, "comments "+post.ID, func(ctx context.Context) (any, error) {
			return c.source.Comments(ctx, post, c.cfg.CommentsPerPost)
		})
		if res.Err != nil {
			c.logger.Warn("comments failed", "post_id", post.ID, "error", res.Err)
			if ctx.Err() != nil || !c.scheduler.Available() {
				return
			}
			continue
		}
		comments, _ := res.Data.([]string)
		posts[idx].Comments = comments
	}
}

func buildQuery(q, topic string) string {
	if strings.Contains(q, "{topic}") {
		return strings.TrimSpace(strings.ReplaceAll(q, "{topic}", topic))
	}
	return strings.TrimSpace(topic + " " + q)
}
