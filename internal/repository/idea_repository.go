package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
)

var ErrNotFound = errors.New("not found")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var ideaColumns = []string{
	"id",
	"title",
	"COALESCE(description, '')",
	"COALESCE(category, '')",
	"COALESCE(market_opportunity, '')",
	"COALESCE(target_audience, '')",
	"COALESCE(revenue_model, '')",
	"COALESCE(key_challenges, '')",
	"COALESCE(sentiment, '')",
	"COALESCE(emotion, '')",
	"pain_score",
	"created_at",
}

type IdeaRepository struct {
	db *sql.DB
}

func NewIdeaRepository(db *sql.DB) *IdeaRepository {
	return &IdeaRepository{db: db}
}

func (r *IdeaRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListIdeas returns every idea ordered by creation time, oldest first.
func (r *IdeaRepository) ListIdeas(ctx context.Context) ([]model.IdeaRecord, error) {
	query, args, err := psql.Select(ideaColumns...).
		From(model.IdeasTable).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryIdeas(ctx, query, args...)
}

func (r *IdeaRepository) GetIdeasByIDs(ctx context.Context, ids []string) ([]model.IdeaRecord, error) {
	query, args, err := psql.Select(ideaColumns...).
		From(model.IdeasTable).
		Where("id = ANY(?)", pq.Array(ids)).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryIdeas(ctx, query, args...)
}

func (r *IdeaRepository) queryIdeas(ctx context.Context, query string, args ...any) ([]model.IdeaRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ideas := []model.IdeaRecord{}
	for rows.Next() {
		var i model.IdeaRecord
		var pain sql.NullInt64
		err := rows.Scan(&i.ID, &i.Title, &i.Description, &i.Category, &i.MarketOpportunity, &i.TargetAudience,
			&i.RevenueModel, &i.KeyChallenges, &i.Sentiment, &i.Emotion, &pain, &i.CreatedAt)
		if err != nil {
			return nil, err
		}
		if pain.Valid {
			score := int(pain.Int64)
			i.PainScore = &score
		}
		ideas = append(ideas, i)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ideas, nil
}

// InsertIdeas writes all ideas in one transaction and returns them with the
// id and created_at assigned by the database.
func (r *IdeaRepository) InsertIdeas(ctx context.Context, ideas []model.IdeaRecord) ([]model.IdeaRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]model.IdeaRecord, 0, len(ideas))
	for _, idea := range ideas {
		var pain any
		if idea.PainScore != nil {
			pain = *idea.PainScore
		}

		query, args, err := psql.Insert(model.IdeasTable).
			Columns("title", "description", "category", "market_opportunity", "target_audience",
				"revenue_model", "key_challenges", "sentiment", "emotion", "pain_score").
			Values(idea.Title, idea.Description, idea.Category, idea.MarketOpportunity, idea.TargetAudience,
				idea.RevenueModel, idea.KeyChallenges, idea.Sentiment, idea.Emotion, pain).
			Suffix("RETURNING id, created_at").
			ToSql()
		if err != nil {
			return nil, err
		}

		if err := tx.QueryRowContext(ctx, query, args...).Scan(&idea.ID, &idea.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert %q: %w", idea.Title, err)
		}
		out = append(out, idea)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteIdeas removes the ideas and their user interactions in one
// transaction. It returns the number of ideas deleted.
func (r *IdeaRepository) DeleteIdeas(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query, args, err := psql.Delete(model.InteractionsTable).Where("idea_id = ANY(?)", pq.Array(ids)).ToSql()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("delete interactions: %w", err)
	}

	query, args, err = psql.Delete(model.IdeasTable).Where("id = ANY(?)", pq.Array(ids)).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete ideas: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return n, tx.Commit()
}
