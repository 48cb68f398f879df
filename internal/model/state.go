package model

import "time"

// CategoryResult is the terminal outcome of one queued category.
type CategoryResult struct {
	Success     bool      `json:"success"`
	Data        any       `json:"data,omitempty"`
	Error       string    `json:"error,omitempty"`
	Category    string    `json:"category"`
	CompletedAt time.Time `json:"completedAt"`
}

// ProcessingState is the resumable snapshot of a batch run. Every key of
// Results is also in CompletedCategories.
type ProcessingState struct {
	CompletedCategories []string                  `json:"completedCategories"`
	RemainingCategories []string                  `json:"remainingCategories"`
	Results             map[string]CategoryResult `json:"results"`
	LastProcessedAt     *time.Time                `json:"lastProcessedAt"`
	SavedAt             *time.Time                `json:"savedAt,omitempty"`
}

// NewProcessingState returns an empty state with its collections allocated.
func NewProcessingState() *ProcessingState {
	return &ProcessingState{
		CompletedCategories: []string{},
		RemainingCategories: []string{},
		Results:             map[string]CategoryResult{},
	}
}

// IsCompleted reports whether category already has a terminal result.
func (s *ProcessingState) IsCompleted(category string) bool {
	for _, c := range s.CompletedCategories {
		if c == category {
			return true
		}
	}
	return false
}

// Complete records result, moving its category from remaining to completed.
// Recording the same category twice replaces the result without duplicating
// the completed entry.
func (s *ProcessingState) Complete(result CategoryResult) {
	if s.Results == nil {
		s.Results = map[string]CategoryResult{}
	}

	if !s.IsCompleted(result.Category) {
		s.CompletedCategories = append(s.CompletedCategories, result.Category)
	}
	s.Results[result.Category] = result

	remaining := s.RemainingCategories[:0]
	for _, c := range s.RemainingCategories {
		if c != result.Category {
			remaining = append(remaining, c)
		}
	}
	s.RemainingCategories = remaining

	at := result.CompletedAt
	s.LastProcessedAt = &at
}

// RateLimitInfo is a point-in-time view of a scheduler's window.
type RateLimitInfo struct {
	CurrentRequests int    `json:"currentRequests"`
	MaxRequests     int    `json:"maxRequests"`
	WindowMs        int64  `json:"windowMs"`
	IsWithinLimit   bool   `json:"isWithinLimit"`
	QueueLength     int    `json:"queueLength"`
	Disabled        bool   `json:"disabled"`
	DisabledReason  string `json:"disabledReason,omitempty"`
}
