package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexanxin/ideaspire-sub000/internal/ingest"
	"github.com/alexanxin/ideaspire-sub000/internal/model"
	"github.com/alexanxin/ideaspire-sub000/internal/similarity"
)

type IdeaStore interface {
	ListIdeas(ctx context.Context) ([]model.IdeaRecord, error)
	InsertIdeas(ctx context.Context, ideas []model.IdeaRecord) ([]model.IdeaRecord, error)
	Ping(ctx context.Context) error
}

type IdeaHandler struct {
	repository IdeaStore
	threshold  float64
	weights    similarity.Weights
}

func NewIdeaHandler(repository IdeaStore, threshold float64, weights similarity.Weights) *IdeaHandler {
	return &IdeaHandler{repository: repository, threshold: threshold, weights: weights}
}

func (h *IdeaHandler) BulkInsert(c *gin.Context) {
	var req BulkInsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(req.Ideas) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ideas must be a non-empty array"})
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

	gate := ingest.NewGate(h.repository, threshold, weights, slog.Default())
	report, err := gate.Ingest(c.Request.Context(), req.Ideas)
	if err != nil {
		slog.Error("error ingesting ideas", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, BulkInsertResponse{
		Success:       true,
		InsertedCount: len(report.Inserted),
		Inserted:      report.Inserted,
		Duplicates:    report.Duplicates,
	})
}

func (h *IdeaHandler) GetHealth(c *gin.Context) {
	if err := h.repository.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}
