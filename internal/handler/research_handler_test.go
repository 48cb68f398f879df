package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"github.com/alexanxin/ideaspire-sub000/internal/batch"
	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/alexanxin/ideaspire-sub000/internal/repository"
	"github.com/alexanxin/ideaspire-sub000/internal/research"
	"github.com/alexanxin/ideaspire-sub000/internal/state"
	"github.com/alexanxin/ideaspire-sub000/pkg/social"
)

type fakeResearcher struct {
	research     research.Research
	redditTrends []string
	redditErr    error
	topics       []string
}

func (f *fakeResearcher) GetCombinedResearch(_ context.Context, topic string) research.Research {
	f.topics = append(f.topics, topic)
	return f.research
}

func (f *fakeResearcher) Reddit(_ context.Context, topic string) ([]string, error) {
	f.topics = append(f.topics, topic)
	return f.redditTrends, f.redditErr
}

type fakeTweets struct {
	capability social.Capability
	failOn     string

	mu      sync.Mutex
	queries []string
}

func (f *fakeTweets) Name() string                  { return "twitter" }
func (f *fakeTweets) Capability() social.Capability { return f.capability }

func (f *fakeTweets) Search(_ context.Context, _, query string, _ int) ([]social.Post, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.failOn != "" && strings.Contains(query, f.failOn) {
		return nil, &ratelimit.APIError{Provider: "twitter", StatusCode: http.StatusForbidden, Message: "forbidden"}
	}
	return []social.Post{{ID: "1", Title: "complaint about " + query}}, nil
}

func (f *fakeTweets) Comments(_ context.Context, _ social.Post, _ int) ([]string, error) {
	return nil, nil
}

type fakeSnapshots struct {
	saved  []string
	latest *repository.Snapshot
	err    error
}

func (f *fakeSnapshots) SaveSnapshot(_ context.Context, topic string, res research.Research) (*repository.Snapshot, error) {
	f.saved = append(f.saved, topic)
	return &repository.Snapshot{Topic: topic, Research: res}, f.err
}

func (f *fakeSnapshots) LatestSnapshot(_ context.Context, _ string) (*repository.Snapshot, error) {
	return f.latest, f.err
}

func newTestResearchRouter(researcher Researcher, twitter social.Source, snapshots SnapshotStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	scheduler := ratelimit.New(ratelimit.Config{Name: "twitter", Window: time.Minute, MaxRequests: 100})
	processor := batch.NewProcessor(scheduler, state.NewMemoryStore(), nil)

	h := NewResearchHandler(researcher, processor, twitter, snapshots)
	r.GET("/research/twitter-batch", h.GetTwitterBatch)
	r.POST("/research/twitter-batch", h.PostTwitterBatch)
	r.DELETE("/research/twitter-batch", h.ResetTwitterBatch)
	r.GET("/research/test", h.GetTest)
	r.POST("/research/trends", h.PostTrends)
	r.GET("/research/trends/latest", h.GetLatestTrends)
	return r
}

func getPath(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestPostTwitterBatch_MissingCategories(t *testing.T) {
	tweets := &fakeTweets{capability: social.Available()}
	r := newTestResearchRouter(&fakeResearcher{}, tweets, nil)

	w := postJSON(r, "/research/twitter-batch", gin.H{"categories": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/research/twitter-batch", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, len(tweets.queries))
}

func TestPostTwitterBatch_BadTemplate(t *testing.T) {
	r := newTestResearchRouter(&fakeResearcher{}, &fakeTweets{capability: social.Available()}, nil)

	w := postJSON(r, "/research/twitter-batch", gin.H{"categories": []string{"tech"}, "searchQueryTemplate": "no placeholder"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostTwitterBatch_ProcessesAndResumes(t *testing.T) {
	tweets := &fakeTweets{capability: social.Available()}
	r := newTestResearchRouter(&fakeResearcher{}, tweets, nil)

	w := postJSON(r, "/research/twitter-batch", gin.H{
		"categories":          []string{"tech", "health"},
		"searchQueryTemplate": "{category} pain",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var res TwitterBatchResponse
	json.Unmarshal(w.Body.Bytes(), &res)

	assert.Equal(t, true, res.Success)
	assert.Equal(t, []string{"tech pain", "health pain"}, tweets.queries)
	assert.Equal(t, 2, len(res.Results))
	assert.Equal(t, true, res.Results["tech"].Success)
	assert.Equal(t, []string{"tech", "health"}, res.State.CompletedCategories)
	assert.Equal(t, 0, len(res.State.RemainingCategories))
	assert.Equal(t, 2, res.RateLimitInfo.CurrentRequests)

	w = postJSON(r, "/research/twitter-batch", gin.H{
		"categories":          []string{"tech", "health", "finance"},
		"searchQueryTemplate": "{category} pain",
	})
	json.Unmarshal(w.Body.Bytes(), &res)

	assert.Equal(t, []string{"finance"}, res.Attempted)
	assert.Equal(t, []string{"tech pain", "health pain", "finance pain"}, tweets.queries)
	assert.Equal(t, []string{"tech", "health", "finance"}, res.State.CompletedCategories)
}

func TestPostTwitterBatch_FailureIsolated(t *testing.T) {
	tweets := &fakeTweets{capability: social.Available(), failOn: "health"}
	r := newTestResearchRouter(&fakeResearcher{}, tweets, nil)

	w := postJSON(r, "/research/twitter-batch", gin.H{"categories": []string{"health", "tech"}})
	assert.Equal(t, http.StatusOK, w.Code)

	var res TwitterBatchResponse
	json.Unmarshal(w.Body.Bytes(), &res)

	assert.Equal(t, false, res.Results["health"].Success)
	assert.NotEqual(t, "", res.Results["health"].Error)
	assert.Equal(t, true, res.Results["tech"].Success)
	assert.Equal(t, 2, len(res.State.CompletedCategories))
}

func TestPostTwitterBatch_NotConfigured(t *testing.T) {
	tweets := &fakeTweets{capability: social.Disabled("TWITTER_BEARER_TOKEN not set")}
	r := newTestResearchRouter(&fakeResearcher{}, tweets, nil)

	w := postJSON(r, "/research/twitter-batch", gin.H{"categories": []string{"tech"}})
	assert.Equal(t, http.StatusOK, w.Code)

	var res TwitterBatchResponse
	json.Unmarshal(w.Body.Bytes(), &res)

	assert.Equal(t, false, res.Success)
	assert.Equal(t, true, strings.Contains(res.Error, "TWITTER_BEARER_TOKEN"))
	assert.Equal(t, 0, len(tweets.queries))
}

func TestTwitterBatch_StatusAndReset(t *testing.T) {
	tweets := &fakeTweets{capability: social.Available()}
	r := newTestResearchRouter(&fakeResearcher{}, tweets, nil)

	postJSON(r, "/research/twitter-batch", gin.H{"categories": []string{"tech"}})

	w := getPath(r, "GET", "/research/twitter-batch")
	assert.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Available bool `json:"available"`
		State     struct {
			CompletedCategories []string `json:"completedCategories"`
		} `json:"state"`
	}
	json.Unmarshal(w.Body.Bytes(), &status)
	assert.Equal(t, true, status.Available)
	assert.Equal(t, []string{"tech"}, status.State.CompletedCategories)

	w = getPath(r, "DELETE", "/research/twitter-batch")
	assert.Equal(t, http.StatusOK, w.Code)

	w = getPath(r, "GET", "/research/twitter-batch")
	json.Unmarshal(w.Body.Bytes(), &status)
	assert.Equal(t, 0, len(status.State.CompletedCategories))
}

func TestGetTest_Platforms(t *testing.T) {
	researcher := &fakeResearcher{
		redditTrends: []string{"slow support"},
		research:     research.Research{Success: true, Trends: []string{"a"}, Sources: research.Sources{Reddit: true}},
	}
	r := newTestResearchRouter(researcher, &fakeTweets{capability: social.Available()}, nil)

	w := getPath(r, "GET", "/research/test?platform=reddit&topic=pets")
	assert.Equal(t, http.StatusOK, w.Code)
	var reddit struct {
		Success bool     `json:"success"`
		Trends  []string `json:"trends"`
	}
	json.Unmarshal(w.Body.Bytes(), &reddit)
	assert.Equal(t, true, reddit.Success)
	assert.Equal(t, []string{"slow support"}, reddit.Trends)

	w = getPath(r, "GET", "/research/test?platform=twitter")
	assert.Equal(t, http.StatusOK, w.Code)
	var twitter map[string]any
	json.Unmarshal(w.Body.Bytes(), &twitter)
	assert.Equal(t, true, twitter["disabled"])

	w = getPath(r, "GET", "/research/test?platform=combined")
	assert.Equal(t, http.StatusOK, w.Code)

	w = getPath(r, "GET", "/research/test?platform=myspace")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, []string{"pets", defaultTestTopic}, researcher.topics)
}

func TestGetTest_RedditFailureIsNotFatal(t *testing.T) {
	researcher := &fakeResearcher{redditErr: errors.New("reddit down")}
	r := newTestResearchRouter(researcher, &fakeTweets{capability: social.Available()}, nil)

	w := getPath(r, "GET", "/research/test?platform=reddit")
	assert.Equal(t, http.StatusOK, w.Code)

	var res map[string]any
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, "reddit down", res["error"])
}

func TestPostTrends(t *testing.T) {
	researcher := &fakeResearcher{research: research.Research{
		Success: false,
		Trends:  research.FallbackTrends,
		Error:   "no trends collected, using fallback",
	}}
	snapshots := &fakeSnapshots{}
	r := newTestResearchRouter(researcher, &fakeTweets{capability: social.Disabled("off")}, snapshots)

	w := postJSON(r, "/research/trends", gin.H{"topic": "  gardening "})
	assert.Equal(t, http.StatusOK, w.Code)

	var res research.Research
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, false, res.Success)
	assert.Equal(t, len(research.FallbackTrends), len(res.Trends))
	assert.Equal(t, []string{"gardening"}, snapshots.saved)

	w = postJSON(r, "/research/trends", gin.H{"topic": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLatestTrends(t *testing.T) {
	snapshots := &fakeSnapshots{err: repository.ErrNotFound}
	r := newTestResearchRouter(&fakeResearcher{}, &fakeTweets{capability: social.Available()}, snapshots)

	w := getPath(r, "GET", "/research/trends/latest?topic=pets")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = getPath(r, "GET", "/research/trends/latest")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	snapshots.err = nil
	snapshots.latest = &repository.Snapshot{ID: 4, Topic: "pets", Research: research.Research{Success: true, Trends: []string{"vet bills"}}}
	w = getPath(r, "GET", "/research/trends/latest?topic=pets")
	assert.Equal(t, http.StatusOK, w.Code)

	var res repository.Snapshot
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, []string{"vet bills"}, res.Research.Trends)

	snapshots.err = errors.New("DB down")
	w = getPath(r, "GET", "/research/trends/latest?topic=pets")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
