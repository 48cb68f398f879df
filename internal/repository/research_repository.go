package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/alexanxin/ideaspire-sub000/internal/research"
)

const snapshotsTable = "research_snapshots"

type Snapshot struct {
	ID        int64             `json:"id"`
	Topic     string            `json:"topic"`
	Research  research.Research `json:"research"`
	CreatedAt time.Time         `json:"created_at"`
}

// ResearchRepository keeps the trend lists produced by research runs.
type ResearchRepository struct {
	db *sql.DB
}

func NewResearchRepository(db *sql.DB) *ResearchRepository {
	return &ResearchRepository{db: db}
}

func (r *ResearchRepository) SaveSnapshot(ctx context.Context, topic string, res research.Research) (*Snapshot, error) {
	trends, err := json.Marshal(res.Trends)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Insert(snapshotsTable).
		Columns("topic", "trends", "reddit", "twitter", "success", "error").
		Values(topic, trends, res.Sources.Reddit, res.Sources.Twitter, res.Success, res.Error).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	s := &Snapshot{Topic: topic, Research: res}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// LatestSnapshot returns ErrNotFound when the topic was never researched.
func (r *ResearchRepository) LatestSnapshot(ctx context.Context, topic string) (*Snapshot, error) {
	query, args, err := psql.Select("id", "topic", "trends", "reddit", "twitter", "success", "COALESCE(error, '')", "created_at").
		From(snapshotsTable).
		Where("topic = ?", topic).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var s Snapshot
	var trends []byte
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.Topic, &trends,
		&s.Research.Sources.Reddit, &s.Research.Sources.Twitter, &s.Research.Success, &s.Research.Error, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(trends, &s.Research.Trends); err != nil {
		return nil, err
	}
	return &s, nil
}
