package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/chroniclehq/chronicle/internal/llm"
)

// fakeChat returns canned completions in order and records the requests it
// receives.
type fakeChat struct {
	responses []string
	err       error
	calls     []fakeChatCall
}

type fakeChatCall struct {
	messages    []llm.Message
	temperature float32
	maxTokens   int
}

func (f *fakeChat) Complete(_ context.Context, messages []llm.Message, temperature float32, maxTokens int) (string, error) {
	f.calls = append(f.calls, fakeChatCall{messages: messages, temperature: temperature, maxTokens: maxTokens})
	if f.err != nil {
		return "", f.err
	}
	idx := len(f.calls) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

func TestPlannerPlan(t *testing.T) {
	today := day(t, "2024-06-15")

	t.Run("extracts date scope topics and entities", func(t *testing.T) {
		chat := &fakeChat{responses: []string{`{
			"temporal_scope": {"type": "date", "date": "2024-06-14", "description": "yesterday"},
			"topics": ["standup", "planning"],
			"entities": ["Alice"],
			"subtasks": "Find notes from yesterday's standup"
		}`}}

		plan := NewPlanner(chat).Plan(context.Background(), "what happened in yesterday's standup?", today)

		assert.Equal(t, domain.ScopeDate, plan.Scope.Kind)
		assert.Equal(t, day(t, "2024-06-14"), plan.Scope.Date)
		assert.Equal(t, "yesterday", plan.Scope.Description)
		assert.Equal(t, []string{"standup", "planning"}, plan.Topics)
		assert.Equal(t, []string{"Alice"}, plan.Entities)
		assert.Equal(t, "Find notes from yesterday's standup", plan.Subtasks)

		require.Len(t, chat.calls, 1)
		assert.InDelta(t, 0.2, chat.calls[0].temperature, 0.001)
		assert.Equal(t, 500, chat.calls[0].maxTokens)
	})

	t.Run("prompt carries reference date", func(t *testing.T) {
		chat := &fakeChat{responses: []string{`{"topics": []}`}}
		NewPlanner(chat).Plan(context.Background(), "anything new?", today)

		require.Len(t, chat.calls, 1)
		prompt := chat.calls[0].messages[1].Content
		assert.Contains(t, prompt, "2024-06-15")
		assert.Contains(t, prompt, "Saturday, June 15, 2024")
	})

	t.Run("model failure yields default plan", func(t *testing.T) {
		chat := &fakeChat{err: errors.New("rate limited")}
		plan := NewPlanner(chat).Plan(context.Background(), "what did I do?", today)
		assert.Equal(t, domain.DefaultPlan(), plan)
	})

	t.Run("unparseable response yields default plan", func(t *testing.T) {
		chat := &fakeChat{responses: []string{"I cannot answer that."}}
		plan := NewPlanner(chat).Plan(context.Background(), "what did I do?", today)
		assert.Equal(t, domain.DefaultPlan(), plan)
	})

	t.Run("malformed date degrades to no scope", func(t *testing.T) {
		chat := &fakeChat{responses: []string{`{
			"temporal_scope": {"type": "date", "date": "June 14th"},
			"topics": ["work"]
		}`}}
		plan := NewPlanner(chat).Plan(context.Background(), "what happened?", today)

		assert.True(t, plan.Scope.IsNone())
		assert.Equal(t, []string{"work"}, plan.Topics)
	})

	t.Run("inverted range degrades to no scope", func(t *testing.T) {
		chat := &fakeChat{responses: []string{`{
			"temporal_scope": {"type": "range", "start_date": "2024-06-10", "end_date": "2024-06-01"}
		}`}}
		plan := NewPlanner(chat).Plan(context.Background(), "what happened?", today)
		assert.True(t, plan.Scope.IsNone())
	})

	t.Run("broad range is narrowed to the most recent week", func(t *testing.T) {
		chat := &fakeChat{responses: []string{`{
			"temporal_scope": {"type": "range", "start_date": "2024-01-01", "end_date": "2024-06-01", "description": "this year"}
		}`}}
		plan := NewPlanner(chat).Plan(context.Background(), "what have I worked on this year?", today)

		assert.Equal(t, domain.ScopeRange, plan.Scope.Kind)
		assert.Equal(t, day(t, "2024-05-25"), plan.Scope.Start)
		assert.Equal(t, day(t, "2024-06-01"), plan.Scope.End)
		assert.Equal(t, "Narrowed from broader range to most recent week", plan.Scope.Description)
	})

	t.Run("short range is kept as is", func(t *testing.T) {
		chat := &fakeChat{responses: []string{`{
			"temporal_scope": {"type": "range", "start_date": "2024-06-08", "end_date": "2024-06-14", "description": "last week"}
		}`}}
		plan := NewPlanner(chat).Plan(context.Background(), "what happened last week?", today)

		assert.Equal(t, day(t, "2024-06-08"), plan.Scope.Start)
		assert.Equal(t, day(t, "2024-06-14"), plan.Scope.End)
		assert.Equal(t, "last week", plan.Scope.Description)
	})

	t.Run("empty fields fall back to defaults", func(t *testing.T) {
		chat := &fakeChat{responses: []string{`{"temporal_scope": {"type": "none"}}`}}
		plan := NewPlanner(chat).Plan(context.Background(), "hello", today)

		assert.True(t, plan.Scope.IsNone())
		assert.Empty(t, plan.Topics)
		assert.Empty(t, plan.Entities)
		assert.Equal(t, domain.DefaultSubtasks, plan.Subtasks)
	})
}
