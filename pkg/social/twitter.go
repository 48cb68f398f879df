package social

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/go-resty/resty/v2"
)

const twitterAPIURL = "https://api.twitter.com/2"

type TwitterConfig struct {
	BearerToken string
	APIURL      string
}

// TwitterClient searches recent posts through the X API v2.
type TwitterClient struct {
	http       *resty.Client
	apiURL     string
	capability Capability
}

func NewTwitterClient(cfg TwitterConfig) *TwitterClient {
	if cfg.APIURL == "" {
		cfg.APIURL = twitterAPIURL
	}

	capability := Available()
	if cfg.BearerToken == "" {
		capability = Disabled("twitter bearer token not configured")
	}

	return &TwitterClient{
		http:       resty.New().SetTimeout(30 * time.Second).SetAuthToken(cfg.BearerToken),
		apiURL:     cfg.APIURL,
		capability: capability,
	}
}

func (c *TwitterClient) Name() string {
	return "twitter"
}

func (c *TwitterClient) Capability() Capability {
	return c.capability
}

// Search ignores community; X has no equivalent of a subreddit filter here.
func (c *TwitterClient) Search(ctx context.Context, community, query string, limit int) ([]Post, error) {
	if !c.capability.Available() {
		return nil, fmt.Errorf("twitter search: %w", ErrNotConfigured)
	}

	tweets, err := c.search(ctx, query+" -is:retweet lang:en", limit)
	if err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(tweets))
	for _, t := range tweets {
		posts = append(posts, Post{
			ID:        t.ID,
			Body:      t.Text,
			Author:    t.AuthorID,
			URL:       "https://x.com/i/web/status/" + t.ID,
			Score:     t.PublicMetrics.LikeCount + t.PublicMetrics.RetweetCount,
			CreatedAt: t.CreatedAt,
		})
	}
	return posts, nil
}

// Comments returns replies in the post's conversation.
func (c *TwitterClient) Comments(ctx context.Context, post Post, limit int) ([]string, error) {
	if !c.capability.Available() {
		return nil, fmt.Errorf("twitter replies: %w", ErrNotConfigured)
	}

	tweets, err := c.search(ctx, "conversation_id:"+post.ID, limit)
	if err != nil {
		return nil, err
	}

	replies := make([]string, 0, len(tweets))
	for _, t := range tweets {
		if t.ID == post.ID {
			continue
		}
		replies = append(replies, t.Text)
		if len(replies) == limit {
			break
		}
	}
	return replies, nil
}

func (c *TwitterClient) search(ctx context.Context, query string, limit int) ([]tweet, error) {
	// the endpoint accepts 10..100
	maxResults := limit
	if maxResults < 10 {
		maxResults = 10
	}
	if maxResults > 100 {
		maxResults = 100
	}

	var out struct {
		Data []tweet `json:"data"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":        query,
			"max_results":  strconv.Itoa(maxResults),
			"tweet.fields": "created_at,public_metrics,author_id,conversation_id",
		}).
		SetResult(&out).
		Get(c.apiURL + "/tweets/search/recent")
	if err != nil {
		return nil, fmt.Errorf("twitter search: %w", err)
	}
	if resp.IsError() {
		return nil, twitterError(resp)
	}

	if len(out.Data) > limit {
		out.Data = out.Data[:limit]
	}
	return out.Data, nil
}

// twitterError reads x-rate-limit-reset (unix seconds) and flags the
// account-level usage cap, which X reports as a 429 with a distinct problem
// type.
func twitterError(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	apiErr := &ratelimit.APIError{
		Provider:   "twitter",
		StatusCode: resp.StatusCode(),
		Message:    truncate(body, 300),
	}

	if strings.Contains(body, "UsageCapExceeded") || strings.Contains(body, "usage-capped") {
		apiErr.UsageCap = true
		return apiErr
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		if epoch, err := strconv.ParseInt(resp.Header().Get("X-Rate-Limit-Reset"), 10, 64); err == nil && epoch > 0 {
			apiErr.ResetAt = time.Unix(epoch, 0)
		}
	}

	return apiErr
}

// ClassifyTwitter adds 503 "over capacity" responses to the transient class.
func ClassifyTwitter(err error) (ratelimit.Class, time.Time) {
	class, resetAt := ratelimit.DefaultClassifier(err)
	if class != ratelimit.ClassFatal {
		return class, resetAt
	}

	if apiErr, ok := asAPIError(err); ok && apiErr.StatusCode == http.StatusServiceUnavailable {
		return ratelimit.ClassRateLimited, time.Time{}
	}
	return class, resetAt
}

type tweet struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	AuthorID      string    `json:"author_id"`
	CreatedAt     time.Time `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
}
