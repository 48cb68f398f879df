package social

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/go-playground/assert/v2"
)

func TestTwitterSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "10", r.URL.Query().Get("max_results"))
		assert.Equal(t, true, strings.HasPrefix(r.URL.Query().Get("query"), "I wish there was"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"id":         "1",
					"text":       "I wish there was an app to split rent fairly",
					"author_id":  "u1",
					"created_at": "2026-03-01T10:00:00.000Z",
					"public_metrics": map[string]interface{}{
						"like_count":    5,
						"retweet_count": 2,
					},
				},
				{"id": "2", "text": "second"},
			},
		})
	}))
	defer srv.Close()

	client := NewTwitterClient(TwitterConfig{BearerToken: "token", APIURL: srv.URL})

	posts, err := client.Search(context.Background(), "", "I wish there was", 1)

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(posts))
	assert.Equal(t, "1", posts[0].ID)
	assert.Equal(t, 7, posts[0].Score)
	assert.Equal(t, "I wish there was an app to split rent fairly", posts[0].Body)
	assert.Equal(t, 2026, posts[0].CreatedAt.Year())
}

func TestTwitterUsageCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"title":"UsageCapExceeded","detail":"Usage cap exceeded: Monthly product cap","type":"https://api.twitter.com/2/problems/usage-capped"}`))
	}))
	defer srv.Close()

	client := NewTwitterClient(TwitterConfig{BearerToken: "token", APIURL: srv.URL})

	_, err := client.Search(context.Background(), "", "anything", 10)

	var apiErr *ratelimit.APIError
	assert.Equal(t, true, errors.As(err, &apiErr))
	assert.Equal(t, true, apiErr.UsageCap)

	class, _ := ClassifyTwitter(err)
	assert.Equal(t, ratelimit.ClassUsageCap, class)
}

func TestTwitterRateLimitReset(t *testing.T) {
	reset := time.Now().Add(5 * time.Minute).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rate-Limit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"title":"Too Many Requests"}`))
	}))
	defer srv.Close()

	client := NewTwitterClient(TwitterConfig{BearerToken: "token", APIURL: srv.URL})

	_, err := client.Search(context.Background(), "", "anything", 10)

	class, resetAt := ClassifyTwitter(err)
	assert.Equal(t, ratelimit.ClassRateLimited, class)
	assert.Equal(t, reset, resetAt.Unix())
}

func TestClassifyTwitter_OverCapacity(t *testing.T) {
	class, _ := ClassifyTwitter(&ratelimit.APIError{Provider: "twitter", StatusCode: http.StatusServiceUnavailable})
	assert.Equal(t, ratelimit.ClassRateLimited, class)

	class, _ = ClassifyTwitter(&ratelimit.APIError{Provider: "twitter", StatusCode: http.StatusUnauthorized})
	assert.Equal(t, ratelimit.ClassFatal, class)
}

func TestTwitterNotConfigured(t *testing.T) {
	client := NewTwitterClient(TwitterConfig{})

	assert.Equal(t, false, client.Capability().Available())

	_, err := client.Comments(context.Background(), Post{ID: "1"}, 3)
	assert.Equal(t, true, errors.Is(err, ErrNotConfigured))
}
