package research

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/alexanxin/ideaspire-sub000/pkg/social"
)

type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *sleepRecorder) Now() time.Time { return time.Now() }

func (c *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

type fakeSource struct {
	capability social.Capability
	posts      map[string][]social.Post
	searchErr  error
	searches   []string
	comments   int
}

func (f *fakeSource) Name() string                  { return "reddit" }
func (f *fakeSource) Capability() social.Capability { return f.capability }

func (f *fakeSource) Search(_ context.Context, community, query string, _ int) ([]social.Post, error) {
	f.searches = append(f.searches, community+"|"+query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.posts[community], nil
}

func (f *fakeSource) Comments(_ context.Context, post social.Post, _ int) ([]string, error) {
	f.comments++
	return []string{"me too on " + post.ID}, nil
}

type fakeLLM struct {
	reply string
	err   error
	user  string
	calls int
}

func (f *fakeLLM) Model() string { return "fake" }

func (f *fakeLLM) Generate(_ context.Context, _, user string) (string, error) {
	f.calls++
	f.user = user
	return f.reply, f.err
}

func testScheduler() *ratelimit.Scheduler {
	return ratelimit.New(ratelimit.Config{
		Name:        "test",
		Window:      time.Minute,
		MaxRequests: 1000,
		MaxRetries:  0,
	})
}

func testConfig() CollectorConfig {
	return CollectorConfig{
		Queries:         []string{"{topic} problem", "hate"},
		Communities:     []string{"smallbusiness", "startups"},
		PostsPerQuery:   10,
		CommentPosts:    1,
		CommentsPerPost: 3,
		QueryDelay:      500 * time.Millisecond,
		CommunityDelay:  2 * time.Second,
	}
}

func TestCollectorCollect(t *testing.T) {
	src := &fakeSource{
		capability: social.Available(),
		posts: map[string][]social.Post{
			"smallbusiness": {{ID: "p1", Title: "Invoices are a nightmare", Score: 3}},
			"startups":      {{ID: "p2", Title: "Hiring is slow", Score: 40}, {ID: "p1", Title: "Invoices are a nightmare", Score: 3}},
		},
	}
	gen := &fakeLLM{reply: `["late invoices", "slow hiring"]`}
	clock := &sleepRecorder{}

	c := NewCollector(src, testScheduler(), gen, testConfig(), nil)
	c.clock = clock

	trends, err := c.Collect(context.Background(), "payments")
	assert.Equal(t, err, nil)
	assert.Equal(t, trends, []string{"late invoices", "slow hiring"})

	assert.Equal(t, src.searches, []string{
		"smallbusiness|payments problem",
		"smallbusiness|payments hate",
		"startups|payments problem",
		"startups|payments hate",
	})
	assert.Equal(t, clock.sleeps, []time.Duration{
		500 * time.Millisecond,
		2 * time.Second,
		500 * time.Millisecond,
	})

	assert.Equal(t, src.comments, 1)
	assert.Equal(t, gen.calls, 1)
	assert.Equal(t, strings.Contains(gen.user, "Hiring is slow\n> me too on p2"), true)
	assert.Equal(t, strings.Count(gen.user, "Invoices are a nightmare"), 1)
}

func TestCollectorNotConfigured(t *testing.T) {
	src := &fakeSource{capability: social.Disabled("missing credentials")}
	gen := &fakeLLM{reply: "[]"}
	c := NewCollector(src, testScheduler(), gen, testConfig(), nil)

	assert.Equal(t, c.Available(), false)
	_, err := c.Collect(context.Background(), "x")
	assert.Equal(t, errors.Is(err, social.ErrNotConfigured), true)
	assert.Equal(t, len(src.searches), 0)
	assert.Equal(t, gen.calls, 0)
}

func TestCollectorUsageCapDisables(t *testing.T) {
	src := &fakeSource{
		capability: social.Available(),
		searchErr:  &ratelimit.APIError{Provider: "reddit", StatusCode: 429, Message: "cap", UsageCap: true},
	}
	gen := &fakeLLM{reply: "[]"}
	c := NewCollector(src, testScheduler(), gen, testConfig(), nil)
	c.clock = &sleepRecorder{}

	_, err := c.Collect(context.Background(), "x")
	assert.Equal(t, errors.Is(err, ratelimit.ErrDisabled), true)
	assert.Equal(t, len(src.searches), 1)
	assert.Equal(t, c.Available(), false)

	_, err = c.Collect(context.Background(), "x")
	assert.NotEqual(t, err, nil)
	assert.Equal(t, len(src.searches), 1)
	assert.Equal(t, gen.calls, 0)
}

func TestCollectorRejectsSentences(t *testing.T) {
	src := &fakeSource{
		capability: social.Available(),
		posts:      map[string][]social.Post{"smallbusiness": {{ID: "p1", Title: "t"}}},
	}
	gen := &fakeLLM{reply: "People struggle with invoices. Tools cost too much."}
	cfg := testConfig()
	cfg.Communities = []string{"smallbusiness"}

	c := NewCollector(src, testScheduler(), gen, cfg, nil)
	c.clock = &sleepRecorder{}
	_, err := c.Collect(context.Background(), "x")
	assert.Equal(t, errors.Is(err, ErrNoTrends), true)

	cfg.AcceptSentences = true
	c = NewCollector(src, testScheduler(), gen, cfg, nil)
	c.clock = &sleepRecorder{}
	trends, err := c.Collect(context.Background(), "x")
	assert.Equal(t, err, nil)
	assert.Equal(t, trends, []string{"People struggle with invoices", "Tools cost too much"})
}

func TestCollectorNoPosts(t *testing.T) {
	src := &fakeSource{capability: social.Available(), posts: map[string][]social.Post{}}
	gen := &fakeLLM{reply: "[]"}
	c := NewCollector(src, testScheduler(), gen, testConfig(), nil)
	c.clock = &sleepRecorder{}

	_, err := c.Collect(context.Background(), "x")
	assert.Equal(t, errors.Is(err, ErrNoTrends), true)
	assert.Equal(t, gen.calls, 0)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, buildQuery("{topic} problem", "pets"), "pets problem")
	assert.Equal(t, buildQuery("frustrated", "pets"), "pets frustrated")
}
