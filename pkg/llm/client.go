package llm

import "context"

// Generator sends one system + user prompt pair and returns the raw text of
// the reply.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
	Model() string
}
