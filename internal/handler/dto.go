package handler

import (
	"github.com/alexanxin/ideaspire-sub000/internal/ingest"
	"github.com/alexanxin/ideaspire-sub000/internal/model"
	"github.com/alexanxin/ideaspire-sub000/internal/similarity"
)

type PairRequest struct {
	ID1 string `json:"id1"`
	ID2 string `json:"id2"`
}

type RemoveDuplicatesRequest struct {
	Threshold      *float64            `json:"threshold"`
	Weights        *similarity.Weights `json:"weights"`
	RemoveStrategy string              `json:"removeStrategy"`
	SpecificPair   *PairRequest        `json:"specificPair"`
}

type PairResponse struct {
	ID1        string  `json:"id1"`
	Title1     string  `json:"title1"`
	ID2        string  `json:"id2"`
	Title2     string  `json:"title2"`
	Similarity float64 `json:"similarity"`
}

type RemoveDuplicatesResponse struct {
	Success        bool               `json:"success"`
	RemovedCount   int                `json:"removedCount"`
	RemovedIDs     []string           `json:"removedIds"`
	DuplicatePairs []PairResponse     `json:"duplicatePairs"`
	Threshold      float64            `json:"threshold"`
	Weights        similarity.Weights `json:"weights"`
	RemoveStrategy string             `json:"removeStrategy"`
	SpecificPair   *PairRequest       `json:"specificPair,omitempty"`
}

type BulkInsertRequest struct {
	Ideas     []model.IdeaInput   `json:"ideas"`
	Threshold *float64            `json:"threshold"`
	Weights   *similarity.Weights `json:"weights"`
}

type BulkInsertResponse struct {
	Success       bool                     `json:"success"`
	InsertedCount int                      `json:"insertedCount"`
	Inserted      []model.IdeaRecord       `json:"inserted"`
	Duplicates    []ingest.DuplicateReport `json:"duplicates"`
}

type TwitterBatchRequest struct {
	Categories          []string `json:"categories"`
	SearchQueryTemplate string   `json:"searchQueryTemplate"`
}

type TwitterBatchResponse struct {
	Success       bool                            `json:"success"`
	Results       map[string]model.CategoryResult `json:"results"`
	State         *model.ProcessingState          `json:"state"`
	Attempted     []string                        `json:"attempted"`
	RateLimitInfo model.RateLimitInfo             `json:"rateLimitInfo"`
	Error         string                          `json:"error,omitempty"`
}

type TrendsRequest struct {
	Topic string `json:"topic"`
}

func toPairResponses(pairs []similarity.Pair) []PairResponse {
	out := make([]PairResponse, len(pairs))
	for i, p := range pairs {
		out[i] = PairResponse{
			ID1:        p.Idea1.ID,
			Title1:     p.Idea1.Title,
			ID2:        p.Idea2.ID,
			Title2:     p.Idea2.Title,
			Similarity: p.Similarity,
		}
	}
	return out
}
