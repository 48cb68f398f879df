package social

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/go-resty/resty/v2"
)

const (
	redditAuthURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL  = "https://oauth.reddit.com"
)

type RedditConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	AuthURL      string
	APIURL       string
}

// RedditClient uses application-only OAuth against the Reddit API.
type RedditClient struct {
	http       *resty.Client
	cfg        RedditConfig
	capability Capability

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewRedditClient(cfg RedditConfig) *RedditClient {
	if cfg.AuthURL == "" {
		cfg.AuthURL = redditAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = redditAPIURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ideaspire-research/1.0"
	}

	capability := Available()
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		capability = Disabled("reddit credentials not configured")
	}

	return &RedditClient{
		http:       resty.New().SetTimeout(30 * time.Second).SetHeader("User-Agent", cfg.UserAgent),
		cfg:        cfg,
		capability: capability,
	}
}

func (c *RedditClient) Name() string {
	return "reddit"
}

func (c *RedditClient) Capability() Capability {
	return c.capability
}

func (c *RedditClient) Search(ctx context.Context, subreddit, query string, limit int) ([]Post, error) {
	if !c.capability.Available() {
		return nil, fmt.Errorf("reddit search: %w", ErrNotConfigured)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var listing redditListing
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"q":           query,
			"restrict_sr": "1",
			"sort":        "relevance",
			"t":           "month",
			"limit":       strconv.Itoa(limit),
		}).
		SetResult(&listing).
		Get(fmt.Sprintf("%s/r/%s/search", c.cfg.APIURL, subreddit))
	if err != nil {
		return nil, fmt.Errorf("reddit search: %w", err)
	}
	if resp.IsError() {
		return nil, redditError(resp)
	}

	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		posts = append(posts, Post{
			ID:        d.ID,
			Title:     d.Title,
			Body:      d.Selftext,
			Author:    d.Author,
			Community: d.Subreddit,
			URL:       "https://www.reddit.com" + d.Permalink,
			Score:     d.Score,
			CreatedAt: time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}

	return posts, nil
}

func (c *RedditClient) Comments(ctx context.Context, post Post, limit int) ([]string, error) {
	if !c.capability.Available() {
		return nil, fmt.Errorf("reddit comments: %w", ErrNotConfigured)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var listings []redditCommentListing
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"limit": strconv.Itoa(limit),
			"sort":  "top",
			"depth": "1",
		}).
		SetResult(&listings).
		Get(fmt.Sprintf("%s/r/%s/comments/%s", c.cfg.APIURL, post.Community, post.ID))
	if err != nil {
		return nil, fmt.Errorf("reddit comments: %w", err)
	}
	if resp.IsError() {
		return nil, redditError(resp)
	}

	// the first listing is the post itself
	if len(listings) < 2 {
		return []string{}, nil
	}

	comments := make([]string, 0, limit)
	for _, child := range listings[1].Data.Children {
		body := strings.TrimSpace(child.Data.Body)
		if body == "" || body == "[deleted]" || body == "[removed]" {
			continue
		}
		comments = append(comments, body)
		if len(comments) == limit {
			break
		}
	}

	return comments, nil
}

func (c *RedditClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&out).
		Post(c.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("reddit auth: %w", err)
	}
	if resp.IsError() {
		return "", redditError(resp)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("reddit auth: empty access token")
	}

	c.token = out.AccessToken
	// refresh a minute early
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

// redditError reads x-ratelimit-reset, which Reddit sends as seconds until
// the window resets.
func redditError(resp *resty.Response) error {
	apiErr := &ratelimit.APIError{
		Provider:   "reddit",
		StatusCode: resp.StatusCode(),
		Message:    truncate(strings.TrimSpace(resp.String()), 300),
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		if secs, err := strconv.ParseFloat(resp.Header().Get("X-Ratelimit-Reset"), 64); err == nil && secs > 0 {
			apiErr.ResetAt = time.Now().Add(time.Duration(secs * float64(time.Second)))
		}
	}

	return apiErr
}

// ClassifyReddit treats 429 and "rate limit" responses as transient. Reddit
// has no account-level usage cap.
func ClassifyReddit(err error) (ratelimit.Class, time.Time) {
	class, resetAt := ratelimit.DefaultClassifier(err)
	if class == ratelimit.ClassUsageCap {
		return ratelimit.ClassFatal, time.Time{}
	}
	return class, resetAt
}

// truncate keeps at most max bytes of s without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	Permalink  string  `json:"permalink"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

type redditCommentListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Body string `json:"body"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
