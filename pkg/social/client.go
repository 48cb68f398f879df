package social

import (
	"context"
	"errors"
	"time"

	"github.com/alexanxin/ideaspire-sub000/internal/ratelimit"
)

var ErrNotConfigured = errors.New("source not configured")

type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Author    string    `json:"author,omitempty"`
	Community string    `json:"community,omitempty"`
	URL       string    `json:"url,omitempty"`
	Score     int       `json:"score"`
	Comments  []string  `json:"comments,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Text joins title, body and comments for prompt building.
func (p Post) Text() string {
	text := p.Title
	if p.Body != "" {
		text += "\n" + p.Body
	}
	for _, c := range p.Comments {
		text += "\n> " + c
	}
	return text
}

// Capability is computed once when a client is built.
type Capability struct {
	disabled bool
	reason   string
}

func Available() Capability {
	return Capability{}
}

func Disabled(reason string) Capability {
	return Capability{disabled: true, reason: reason}
}

func (c Capability) Available() bool {
	return !c.disabled
}

func (c Capability) Reason() string {
	return c.reason
}

type Source interface {
	Name() string
	Capability() Capability
	Search(ctx context.Context, community, query string, limit int) ([]Post, error)
	Comments(ctx context.Context, post Post, limit int) ([]string, error)
}

func asAPIError(err error) (*ratelimit.APIError, bool) {
	var apiErr *ratelimit.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
