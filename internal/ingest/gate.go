// Package ingest screens candidate ideas against stored ones before they are
// persisted.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
	"github.com/alexanxin/ideaspire-sub000/internal/similarity"
)

type Verdict int

const (
	Pending Verdict = iota
	Unique
	Duplicate
)

func (v Verdict) String() string {
	switch v {
	case Unique:
		return "unique"
	case Duplicate:
		return "duplicate"
	default:
		return "pending"
	}
}

type IdeaStore interface {
	ListIdeas(ctx context.Context) ([]model.IdeaRecord, error)
	InsertIdeas(ctx context.Context, ideas []model.IdeaRecord) ([]model.IdeaRecord, error)
}

type DuplicateReport struct {
	Idea       model.IdeaInput `json:"idea"`
	MatchedID  string          `json:"matchedId,omitempty"`
	Similarity float64         `json:"similarity"`
}

type Report struct {
	Inserted   []model.IdeaRecord `json:"inserted"`
	Duplicates []DuplicateReport  `json:"duplicates"`
}

type Gate struct {
	store     IdeaStore
	threshold float64
	weights   similarity.Weights
	logger    *slog.Logger
}

func NewGate(store IdeaStore, threshold float64, weights similarity.Weights, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, threshold: threshold, weights: weights, logger: logger}
}

// Classify decides each candidate against the existing records and the
// candidates accepted before it in the same batch.
func (g *Gate) Classify(candidates []model.IdeaInput, existing []model.IdeaRecord) ([]Verdict, []similarity.Result) {
	verdicts := make([]Verdict, len(candidates))
	results := make([]similarity.Result, len(candidates))

	pool := make([]model.IdeaRecord, len(existing), len(existing)+len(candidates))
	copy(pool, existing)

	for i, in := range candidates {
		rec := in.ToRecord()
		res := similarity.FindSimilar(rec, pool, g.threshold, g.weights)
		results[i] = res
		if res.IsSimilar {
			verdicts[i] = Duplicate
			continue
		}
		verdicts[i] = Unique
		pool = append(pool, rec)
	}
	return verdicts, results
}

// Ingest inserts the unique candidates and reports the duplicates. Duplicates
// are never written.
func (g *Gate) Ingest(ctx context.Context, candidates []model.IdeaInput) (*Report, error) {
	existing, err := g.store.ListIdeas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing ideas: %w", err)
	}

	verdicts, results := g.Classify(candidates, existing)

	report := &Report{Inserted: []model.IdeaRecord{}, Duplicates: []DuplicateReport{}}
	var unique []model.IdeaRecord
	for i, v := range verdicts {
		if v == Unique {
			unique = append(unique, candidates[i].ToRecord())
			continue
		}
		d := DuplicateReport{Idea: candidates[i], Similarity: results[i].Score}
		if results[i].Match != nil {
			d.MatchedID = results[i].Match.ID
		}
		report.Duplicates = append(report.Duplicates, d)
	}

	if len(unique) > 0 {
		inserted, err := g.store.InsertIdeas(ctx, unique)
		if err != nil {
			return nil, fmt.Errorf("failed to insert ideas: %w", err)
		}
		report.Inserted = inserted
	}

	g.logger.Info("ingested ideas",
		"candidates", len(candidates),
		"inserted", len(report.Inserted),
		"duplicates", len(report.Duplicates),
	)
	return report, nil
}
