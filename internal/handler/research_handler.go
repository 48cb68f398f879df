package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alexanxin/ideaspire-sub000/internal/batch"
	"github.com/alexanxin/ideaspire-sub000/internal/model"
	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
	"github.com/alexanxin/ideaspire-sub000/internal/repository"
	"github.com/alexanxin/ideaspire-sub000/internal/research"
	"github.com/alexanxin/ideaspire-sub000/pkg/social"
)

const (
	defaultQueryTemplate = "{category} problems"
	defaultTestTopic     = "technology"
	tweetsPerCategory    = 25
)

type Researcher interface {
	GetCombinedResearch(ctx context.Context, topic string) research.Research
	Reddit(ctx context.Context, topic string) ([]string, error)
}

type BatchRunner interface {
	ProcessAll(ctx context.Context, categories []string, build batch.RequestBuilder) (*batch.Outcome, error)
	State(ctx context.Context) *model.ProcessingState
	Info() model.RateLimitInfo
	Reset(ctx context.Context) bool
}

type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, topic string, res research.Research) (*repository.Snapshot, error)
	LatestSnapshot(ctx context.Context, topic string) (*repository.Snapshot, error)
}

type ResearchHandler struct {
	researcher Researcher
	batch      BatchRunner
	twitter    social.Source
	snapshots  SnapshotStore
}

// NewResearchHandler accepts a nil snapshots store; research results are then
// returned without being kept.
func NewResearchHandler(researcher Researcher, batch BatchRunner, twitter social.Source, snapshots SnapshotStore) *ResearchHandler {
	return &ResearchHandler{researcher: researcher, batch: batch, twitter: twitter, snapshots: snapshots}
}

func (h *ResearchHandler) twitterStatus() (bool, string) {
	if capability := h.twitter.Capability(); !capability.Available() {
		return false, capability.Reason()
	}
	if info := h.batch.Info(); info.Disabled {
		return false, info.DisabledReason
	}
	return true, ""
}

func (h *ResearchHandler) GetTwitterBatch(c *gin.Context) {
	available, reason := h.twitterStatus()
	c.JSON(http.StatusOK, gin.H{
		"endpoint":      "POST /research/twitter-batch",
		"description":   "Searches Twitter for each category through the shared rate limiter; progress is resumable",
		"body":          gin.H{"categories": "non-empty array of strings", "searchQueryTemplate": "optional, must contain {category}"},
		"available":     available,
		"reason":        reason,
		"state":         h.batch.State(c.Request.Context()),
		"rateLimitInfo": h.batch.Info(),
	})
}

func (h *ResearchHandler) PostTwitterBatch(c *gin.Context) {
	var req TwitterBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Categories) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "categories must be a non-empty array"})
		return
	}

	template := req.SearchQueryTemplate
	if template == "" {
		template = defaultQueryTemplate
	}
	if !strings.Contains(template, "{category}") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "searchQueryTemplate must contain {category}"})
		return
	}

	if available, reason := h.twitterStatus(); !available {
		c.JSON(http.StatusOK, TwitterBatchResponse{
			Success:       false,
			Results:       map[string]model.CategoryResult{},
			State:         h.batch.State(c.Request.Context()),
			Attempted:     []string{},
			RateLimitInfo: h.batch.Info(),
			Error:         "Twitter research unavailable: " + reason,
		})
		return
	}

	build := func(category string) ratelimit.Call {
		query := strings.ReplaceAll(template, "{category}", category)
		return func(ctx context.Context) (any, error) {
			posts, err := h.twitter.Search(ctx, "", query, tweetsPerCategory)
			if err != nil {
				return nil, err
			}
			return gin.H{"query": query, "count": len(posts), "posts": posts}, nil
		}
	}

	outcome, err := h.batch.ProcessAll(c.Request.Context(), req.Categories, build)

	res := TwitterBatchResponse{
		Success:       err == nil,
		Results:       outcome.State.Results,
		State:         outcome.State,
		Attempted:     outcome.Attempted,
		RateLimitInfo: outcome.RateLimitInfo,
	}
	if err != nil {
		slog.Warn("twitter batch interrupted", "error", err, "remaining", len(outcome.State.RemainingCategories))
		res.Error = err.Error()
	}
	c.JSON(http.StatusOK, res)
}

func (h *ResearchHandler) ResetTwitterBatch(c *gin.Context) {
	if !h.batch.Reset(c.Request.Context()) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "State could not be cleared"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ResearchHandler) GetTest(c *gin.Context) {
	platform := c.DefaultQuery("platform", "reddit")
	topic := c.DefaultQuery("topic", defaultTestTopic)
	ctx := c.Request.Context()

	switch platform {
	case "reddit":
		trends, err := h.researcher.Reddit(ctx, topic)
		if err != nil {
			slog.Warn("reddit test run failed", "topic", topic, "error", err)
			c.JSON(http.StatusOK, gin.H{"success": false, "platform": platform, "trends": []string{}, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "platform": platform, "trends": trends})

	case "twitter":
		c.JSON(http.StatusOK, gin.H{
			"success":  false,
			"platform": platform,
			"disabled": true,
			"message":  "Twitter research is disabled for test runs; use POST /research/twitter-batch",
		})

	case "combined":
		res := h.researcher.GetCombinedResearch(ctx, topic)
		c.JSON(http.StatusOK, gin.H{"success": res.Success, "platform": platform, "research": res})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "platform must be one of reddit, twitter, combined"})
	}
}

func (h *ResearchHandler) PostTrends(c *gin.Context) {
	var req TrendsRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}
	topic := strings.TrimSpace(req.Topic)

	res := h.researcher.GetCombinedResearch(c.Request.Context(), topic)

	if h.snapshots != nil {
		if _, err := h.snapshots.SaveSnapshot(c.Request.Context(), topic, res); err != nil {
			slog.Error("error saving research snapshot", "topic", topic, "error", err)
		}
	}

	c.JSON(http.StatusOK, res)
}

func (h *ResearchHandler) GetLatestTrends(c *gin.Context) {
	topic := strings.TrimSpace(c.Query("topic"))
	if topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}
	if h.snapshots == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No research available"})
		return
	}

	snapshot, err := h.snapshots.LatestSnapshot(c.Request.Context(), topic)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No research available"})
		return
	}
	if err != nil {
		slog.Error("error fetching research snapshot", "topic", topic, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
