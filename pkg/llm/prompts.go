package llm

import (
	"fmt"
	"strings"
)

const maxPostChars = 300

const trendSystemPrompt = `You are a market researcher. You will receive social media posts and comments collected for a topic.

Your task is to identify the recurring problems, frustrations and unmet needs people describe.

### Rules

- Each trend is a short phrase (at most 12 words)
- Prefer concrete pain points over generic sentiment
- Merge near-identical complaints into one trend
- Return between 5 and 15 trends

Output JSON only, no other text:
["trend 1", "trend 2", "trend 3"]`

const ideaSystemPrompt = `You are a startup analyst. You will receive a topic and a list of trending pain points gathered from social media.

Your task is to propose business ideas that address those pain points.

### Rules

- Each idea must address at least one listed trend
- Titles are short and specific, never generic
- painScore is an integer from 1 (mild annoyance) to 10 (urgent, costly problem)
- sentiment is one of "positive", "neutral", "negative"

Output JSON only, no other text:
[
  {
    "title": "short idea title",
    "description": "2-3 sentence description",
    "category": "category label",
    "marketOpportunity": "who pays and why now",
    "targetAudience": "primary customer",
    "revenueModel": "how it makes money",
    "keyChallenges": "biggest risks",
    "sentiment": "negative",
    "emotion": "frustration",
    "painScore": 7
  }
]`

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// TrendPrompt returns the system and user prompts for extracting trends from
// the given post and comment texts.
func TrendPrompt(platform, topic string, texts []string) (string, string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Platform: %s\nTopic: %s\n\n", platform, topic))
	for i, t := range texts {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i, truncate(strings.TrimSpace(t), maxPostChars)))
	}
	return trendSystemPrompt, sb.String()
}

func ideaPrompt(topic string, trends []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Topic: %s\n\nTrends:\n", topic))
	for _, t := range trends {
		sb.WriteString(fmt.Sprintf("- %s\n", t))
	}
	return sb.String()
}
