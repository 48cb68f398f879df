package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
	"github.com/alexanxin/ideaspire-sub000/internal/similarity"
)

type DuplicateStore interface {
	ListIdeas(ctx context.Context) ([]model.IdeaRecord, error)
	GetIdeasByIDs(ctx context.Context, ids []string) ([]model.IdeaRecord, error)
	DeleteIdeas(ctx context.Context, ids []string) (int64, error)
}

type DuplicatesHandler struct {
	repository DuplicateStore
	threshold  float64
	weights    similarity.Weights
}

func NewDuplicatesHandler(repository DuplicateStore, threshold float64, weights similarity.Weights) *DuplicatesHandler {
	return &DuplicatesHandler{repository: repository, threshold: threshold, weights: weights}
}

func (h *DuplicatesHandler) GetUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"endpoint":    "POST /duplicates/remove",
		"description": "Finds similar business ideas and removes duplicates according to a retention strategy",
		"body": gin.H{
			"threshold":      "number in [0,1], default 0.7",
			"weights":        gin.H{"title": h.weights.Title, "description": h.weights.Description},
			"removeStrategy": similarity.Strategies,
			"specificPair":   "optional {id1, id2}; skips the similarity scan",
		},
		"auth": "Authorization: Bearer <ADMIN_API_TOKEN>",
	})
}

func (h *DuplicatesHandler) RemoveDuplicates(c *gin.Context) {
	var req RemoveDuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	threshold := h.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be between 0 and 1"})
		return
	}

	weights := h.weights
	if req.Weights != nil {
		weights = *req.Weights
	}

	if req.RemoveStrategy == "" {
		req.RemoveStrategy = string(similarity.KeepNewer)
	}
	strategy, err := similarity.ParseStrategy(req.RemoveStrategy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := RemoveDuplicatesResponse{
		Threshold:      threshold,
		Weights:        weights,
		RemoveStrategy: string(strategy),
		SpecificPair:   req.SpecificPair,
	}

	var pairs []similarity.Pair
	if req.SpecificPair != nil {
		pair, status, msg := h.specificPair(c.Request.Context(), *req.SpecificPair, weights)
		if status != http.StatusOK {
			c.JSON(status, gin.H{"error": msg})
			return
		}
		pairs = []similarity.Pair{pair}
	} else {
		ideas, err := h.repository.ListIdeas(c.Request.Context())
		if err != nil {
			slog.Error("error fetching ideas", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error", "details": err.Error()})
			return
		}
		pairs = similarity.FindDuplicatePairs(ideas, threshold, weights)
	}

	ids := similarity.RecordsToRemove(pairs, strategy)
	res.DuplicatePairs = toPairResponses(pairs)
	res.RemovedIDs = ids

	if len(ids) > 0 {
		n, err := h.repository.DeleteIdeas(c.Request.Context(), ids)
		if err != nil {
			slog.Error("error deleting duplicate ideas", "count", len(ids), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error", "details": err.Error()})
			return
		}
		res.RemovedCount = int(n)
	}

	slog.Info("duplicate removal complete",
		"strategy", strategy,
		"threshold", threshold,
		"pairs", len(pairs),
		"removed", res.RemovedCount,
	)

	res.Success = true
	c.JSON(http.StatusOK, res)
}

func (h *DuplicatesHandler) specificPair(ctx context.Context, req PairRequest, weights similarity.Weights) (similarity.Pair, int, string) {
	if req.ID1 == "" || req.ID2 == "" {
		return similarity.Pair{}, http.StatusBadRequest, "specificPair requires id1 and id2"
	}
	if req.ID1 == req.ID2 {
		return similarity.Pair{}, http.StatusBadRequest, "specificPair ids must differ"
	}

	ideas, err := h.repository.GetIdeasByIDs(ctx, []string{req.ID1, req.ID2})
	if err != nil {
		slog.Error("error fetching idea pair", "id1", req.ID1, "id2", req.ID2, "error", err)
		return similarity.Pair{}, http.StatusInternalServerError, "Database error: " + err.Error()
	}

	byID := make(map[string]model.IdeaRecord, len(ideas))
	for _, i := range ideas {
		byID[i.ID] = i
	}

	idea1, ok1 := byID[req.ID1]
	idea2, ok2 := byID[req.ID2]
	if !ok1 || !ok2 {
		return similarity.Pair{}, http.StatusNotFound, "One or both ideas not found"
	}

	return similarity.Pair{Idea1: idea1, Idea2: idea2, Similarity: similarity.Score(idea1, idea2, weights)}, http.StatusOK, ""
}
