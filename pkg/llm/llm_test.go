package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

type fakeGenerator struct {
	replies []string
	errs    []error
	calls   int
	system  string
	user    string
}

func (f *fakeGenerator) Model() string { return "fake" }

func (f *fakeGenerator) Generate(_ context.Context, system, user string) (string, error) {
	i := f.calls
	f.calls++
	f.system, f.user = system, user
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return f.replies[len(f.replies)-1], nil
}

func TestRetryingRecovers(t *testing.T) {
	fake := &fakeGenerator{
		errs:    []error{errors.New("boom"), errors.New("boom")},
		replies: []string{"", "", "ok"},
	}
	r := NewRetrying(fake, 3, nil)
	r.initial = time.Millisecond

	out, err := r.Generate(context.Background(), "s", "u")
	assert.Equal(t, err, nil)
	assert.Equal(t, out, "ok")
	assert.Equal(t, fake.calls, 3)
}

func TestRetryingGivesUp(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeGenerator{errs: []error{boom, boom, boom, boom}, replies: []string{""}}
	r := NewRetrying(fake, 2, nil)
	r.initial = time.Millisecond

	_, err := r.Generate(context.Background(), "s", "u")
	assert.Equal(t, errors.Is(err, boom), true)
	assert.Equal(t, fake.calls, 2)
}

func TestIdeaGenerator(t *testing.T) {
	fake := &fakeGenerator{replies: []string{"```json\n" + `[
		{"title": "Invoice chaser", "description": "Automates reminders", "category": "Finance", "painScore": 8},
		{"title": "  ", "description": "no title"}
	]` + "\n```"}}
	gen := NewIdeaGenerator(fake)

	ideas, err := gen.Generate(context.Background(), "freelancing", []string{"late payments"})
	assert.Equal(t, err, nil)
	assert.Equal(t, len(ideas), 1)
	assert.Equal(t, ideas[0].Title, "Invoice chaser")
	assert.Equal(t, *ideas[0].PainScore, 8)
	assert.Equal(t, fake.system, ideaSystemPrompt)
	assert.Equal(t, fake.user, "Topic: freelancing\n\nTrends:\n- late payments\n")
}

func TestIdeaGeneratorRejectsProse(t *testing.T) {
	fake := &fakeGenerator{replies: []string{"I cannot help with that."}}
	_, err := NewIdeaGenerator(fake).Generate(context.Background(), "x", []string{"y"})
	assert.NotEqual(t, err, nil)
}

func TestIdeaGeneratorNeedsTrends(t *testing.T) {
	fake := &fakeGenerator{replies: []string{"[]"}}
	_, err := NewIdeaGenerator(fake).Generate(context.Background(), "x", nil)
	assert.NotEqual(t, err, nil)
	assert.Equal(t, fake.calls, 0)
}

func TestTrendPrompt(t *testing.T) {
	system, user := TrendPrompt("reddit", "pets", []string{"  vet bills are insane "})
	assert.Equal(t, system, trendSystemPrompt)
	assert.Equal(t, user, "Platform: reddit\nTopic: pets\n\n[0] vet bills are insane\n")
}
