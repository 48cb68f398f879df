package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
)

// IdeaGenerator turns a topic and its trends into candidate business ideas.
type IdeaGenerator struct {
	gen Generator
}

func NewIdeaGenerator(gen Generator) *IdeaGenerator {
	return &IdeaGenerator{gen: gen}
}

func (g *IdeaGenerator) Generate(ctx context.Context, topic string, trends []string) ([]model.IdeaInput, error) {
	if len(trends) == 0 {
		return nil, fmt.Errorf("no trends for topic %q", topic)
	}

	content, err := g.gen.Generate(ctx, ideaSystemPrompt, ideaPrompt(topic, trends))
	if err != nil {
		return nil, err
	}

	var ideas []model.IdeaInput
	if err := json.Unmarshal([]byte(CleanJSONArray(content)), &ideas); err != nil {
		return nil, fmt.Errorf("failed to parse %s idea response: %w", g.gen.Model(), err)
	}

	out := ideas[:0]
	for _, idea := range ideas {
		if strings.TrimSpace(idea.Title) == "" {
			continue
		}
		out = append(out, idea)
	}
	return out, nil
}
