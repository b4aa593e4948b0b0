package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClassifier_Verdicts(t *testing.T) {
	cases := []struct {
		answer string
		err    error
		want   bool
	}{
		{answer: "YES", want: true},
		{answer: "  yes\n", want: true},
		{answer: "Yes", want: true},
		{answer: "YES.", want: false},
		{answer: "YES, they did", want: false},
		{answer: "NO", want: false},
		{answer: "", want: false},
		{answer: "YES", err: errBoom, want: false},
	}

	for _, tc := range cases {
		llm := &mockLLM{answer: tc.answer, err: tc.err}
		uc := NewClassifierUsecase(llm, ClassifierConfig{PromptTemplate: "{{message}}"}, zap.NewNop(), nil)

		got := uc.Classify(context.Background(), "done for the week")
		assert.Equal(t, tc.want, got, "answer %q err %v", tc.answer, tc.err)
	}
}

func TestClassifier_Prompt(t *testing.T) {
	llm := &mockLLM{answer: "NO"}
	uc := NewClassifierUsecase(llm, ClassifierConfig{PromptTemplate: `Message: "{{message}}"`}, zap.NewNop(), nil)

	uc.Classify(context.Background(), "finished pilates")

	assert.Equal(t, []string{`Message: "finished pilates"`}, llm.lastPrompts)
}

func TestClassifier_Timeout(t *testing.T) {
	llm := &mockLLM{answer: "YES", block: make(chan struct{})}
	uc := NewClassifierUsecase(llm, ClassifierConfig{
		PromptTemplate: "{{message}}",
		Timeout:        10 * time.Millisecond,
	}, zap.NewNop(), nil)

	assert.False(t, uc.Classify(context.Background(), "done"))
}

func TestClassifier_RateLimitCancelled(t *testing.T) {
	llm := &mockLLM{answer: "YES"}
	uc := NewClassifierUsecase(llm, ClassifierConfig{
		PromptTemplate: "{{message}}",
		RatePerMinute:  1,
		Burst:          1,
	}, zap.NewNop(), nil)

	assert.True(t, uc.Classify(context.Background(), "done"))

	// The bucket is empty; a cancelled caller gives up without calling the model
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, uc.Classify(ctx, "done"))
	assert.Equal(t, 1, llm.classifyCalls())
}
