package research

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/alexanxin/ideaspire-sub000/pkg/llm"
)

type ParseKind int

const (
	Empty ParseKind = iota
	Structured
	BulletList
	Sentences
)

func (k ParseKind) String() string {
	switch k {
	case Structured:
		return "structured"
	case BulletList:
		return "bullet_list"
	case Sentences:
		return "sentences"
	default:
		return "empty"
	}
}

// ParseResult records which strategy recovered the trends so callers can
// decide how much to trust them.
type ParseResult struct {
	Kind   ParseKind
	Trends []string
}

const minSentenceLen = 8

var (
	bulletMarker  = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)])\s+`)
	sentenceBreak = regexp.MustCompile(`[.!?]+(?:\s+|$)|\n+`)
)

// ParseTrends tries a JSON array first, then a bullet or numbered list, then
// plain sentences.
func ParseTrends(content string) ParseResult {
	if trends := parseJSON(content); len(trends) > 0 {
		return ParseResult{Kind: Structured, Trends: trends}
	}
	if trends := parseBullets(content); len(trends) > 0 {
		return ParseResult{Kind: BulletList, Trends: trends}
	}
	if trends := parseSentences(content); len(trends) > 0 {
		return ParseResult{Kind: Sentences, Trends: trends}
	}
	return ParseResult{Kind: Empty}
}

func parseJSON(content string) []string {
	var list []string
	if err := json.Unmarshal([]byte(llm.CleanJSONArray(content)), &list); err == nil {
		return clean(list)
	}

	var wrapped struct {
		Trends []string `json:"trends"`
	}
	if err := json.Unmarshal([]byte(llm.CleanJSONObject(content)), &wrapped); err == nil {
		return clean(wrapped.Trends)
	}
	return nil
}

func parseBullets(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		loc := bulletMarker.FindStringIndex(line)
		if loc == nil {
			continue
		}
		out = append(out, line[loc[1]:])
	}
	return clean(out)
}

func parseSentences(content string) []string {
	var out []string
	for _, s := range sentenceBreak.Split(content, -1) {
		s = strings.TrimSpace(s)
		if len(s) < minSentenceLen {
			continue
		}
		out = append(out, s)
	}
	return clean(out)
}

func clean(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.Trim(strings.TrimSpace(s), `"'`)
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
