package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
	"github.com/alexanxin/ideaspire-sub000/internal/similarity"
)

type fakeIdeaStore struct {
	ideas    []model.IdeaRecord
	inserted []model.IdeaRecord
	err      error
}

func (f *fakeIdeaStore) ListIdeas(_ context.Context) ([]model.IdeaRecord, error) {
	return f.ideas, f.err
}

func (f *fakeIdeaStore) InsertIdeas(_ context.Context, ideas []model.IdeaRecord) ([]model.IdeaRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range ideas {
		ideas[i].ID = fmt.Sprintf("id-%d", len(f.inserted)+1)
		ideas[i].CreatedAt = time.Now()
		f.inserted = append(f.inserted, ideas[i])
	}
	return ideas, nil
}

func (f *fakeIdeaStore) Ping(_ context.Context) error {
	return f.err
}

func newTestIdeaRouter(store IdeaStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewIdeaHandler(store, similarity.DefaultThreshold, similarity.DefaultWeights)
	r.POST("/ideas/bulk", h.BulkInsert)
	r.GET("/health", h.GetHealth)
	return r
}

func TestBulkInsert_SplitsDuplicates(t *testing.T) {
	store := &fakeIdeaStore{ideas: []model.IdeaRecord{
		{ID: "existing", Title: "AI Recipe Generator", Description: "Generates recipes from your pantry items"},
	}}
	r := newTestIdeaRouter(store)

	w := postJSON(r, "/ideas/bulk", gin.H{"ideas": []gin.H{
		{"title": "AI Recipe App", "description": "Generates recipes from ingredients"},
		{"title": "Freelancer invoice chaser", "description": "Automated payment reminders", "marketOpportunity": "2M freelancers", "painScore": 8},
	}})
	assert.Equal(t, http.StatusOK, w.Code)

	var res BulkInsertResponse
	json.Unmarshal(w.Body.Bytes(), &res)

	assert.Equal(t, 1, res.InsertedCount)
	assert.Equal(t, "Freelancer invoice chaser", res.Inserted[0].Title)
	assert.Equal(t, 1, len(res.Duplicates))
	assert.Equal(t, "existing", res.Duplicates[0].MatchedID)

	assert.Equal(t, 1, len(store.inserted))
	assert.Equal(t, "2M freelancers", store.inserted[0].MarketOpportunity)
	assert.Equal(t, model.OthersCategory, store.inserted[0].Category)
	assert.Equal(t, 8, *store.inserted[0].PainScore)
}

func TestBulkInsert_SnakeCaseResponse(t *testing.T) {
	store := &fakeIdeaStore{}
	r := newTestIdeaRouter(store)

	w := postJSON(r, "/ideas/bulk", gin.H{"ideas": []gin.H{
		{"title": "Pet sitter network", "description": "Neighbours watch pets", "targetAudience": "pet owners"},
	}})

	var res struct {
		Inserted []map[string]any `json:"inserted"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "pet owners", res.Inserted[0]["target_audience"])
}

func TestBulkInsert_EmptyIdeas(t *testing.T) {
	r := newTestIdeaRouter(&fakeIdeaStore{})

	w := postJSON(r, "/ideas/bulk", gin.H{"ideas": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkInsert_InvalidThreshold(t *testing.T) {
	r := newTestIdeaRouter(&fakeIdeaStore{})

	w := postJSON(r, "/ideas/bulk", gin.H{"threshold": -0.1, "ideas": []gin.H{{"title": "x"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkInsert_DBError(t *testing.T) {
	r := newTestIdeaRouter(&fakeIdeaStore{err: errors.New("DB down")})

	w := postJSON(r, "/ideas/bulk", gin.H{"ideas": []gin.H{{"title": "x"}}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetHealth_Healthy(t *testing.T) {
	r := newTestIdeaRouter(&fakeIdeaStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "healthy", res["status"])
}

func TestGetHealth_Unhealthy(t *testing.T) {
	r := newTestIdeaRouter(&fakeIdeaStore{err: errors.New("DB down")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "unhealthy", res["status"])
}
