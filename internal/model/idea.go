package model

import (
	"strings"
	"time"
)

const (
	IdeasTable        = "business_ideas"
	InteractionsTable = "user_interactions"
	OthersCategory    = "Others"
)

// IdeaRecord is a persisted business idea. Title and Description drive
// similarity; ID is what retention decisions act on.
type IdeaRecord struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	MarketOpportunity string    `json:"market_opportunity,omitempty"`
	TargetAudience    string    `json:"target_audience,omitempty"`
	RevenueModel      string    `json:"revenue_model,omitempty"`
	KeyChallenges     string    `json:"key_challenges,omitempty"`
	Sentiment         string    `json:"sentiment,omitempty"`
	Emotion           string    `json:"emotion,omitempty"`
	PainScore         *int      `json:"pain_score,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// IdeaInput is the external camelCase shape produced by the LLM and accepted
// by the bulk insert endpoint.
type IdeaInput struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	MarketOpportunity string `json:"marketOpportunity,omitempty"`
	TargetAudience    string `json:"targetAudience,omitempty"`
	RevenueModel      string `json:"revenueModel,omitempty"`
	KeyChallenges     string `json:"keyChallenges,omitempty"`
	Sentiment         string `json:"sentiment,omitempty"`
	Emotion           string `json:"emotion,omitempty"`
	PainScore         *int   `json:"painScore,omitempty"`
}

// ToRecord maps the input onto the storage shape. ID and CreatedAt are
// assigned by the store.
func (in IdeaInput) ToRecord() IdeaRecord {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = OthersCategory
	}

	return IdeaRecord{
		Title:             strings.TrimSpace(in.Title),
		Description:       strings.TrimSpace(in.Description),
		Category:          category,
		MarketOpportunity: in.MarketOpportunity,
		TargetAudience:    in.TargetAudience,
		RevenueModel:      in.RevenueModel,
		KeyChallenges:     in.KeyChallenges,
		Sentiment:         in.Sentiment,
		Emotion:           in.Emotion,
		PainScore:         in.PainScore,
	}
}
