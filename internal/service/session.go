package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/chroniclehq/chronicle/internal/llm"
)

const (
	summaryTemperature  = 0.3
	summaryMaxTokens    = 300
	summaryInteractions = 10
)

const summarySystemPrompt = "You are an assistant summarizing a user's personal knowledge session."

// SessionService tracks per-day question/answer interactions and generates
// daily summaries over them.
type SessionService struct {
	interactions InteractionStore
	chat         llm.ChatClient
}

func NewSessionService(interactions InteractionStore, chat llm.ChatClient) *SessionService {
	return &SessionService{interactions: interactions, chat: chat}
}

// LogInteraction persists a question/answer pair for the day and, when the
// query was focused on a source, links that source to the session.
func (s *SessionService) LogInteraction(ctx context.Context, userID int64, question, answer string, sourceID *int64, day time.Time) error {
	interaction := &domain.Interaction{
		UserID:      userID,
		SourceID:    sourceID,
		Question:    question,
		Answer:      answer,
		SessionDate: day,
	}
	if _, err := s.interactions.Create(ctx, interaction); err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}

	if sourceID != nil {
		if err := s.interactions.EnsureSessionSource(ctx, userID, *sourceID, day); err != nil {
			return fmt.Errorf("ensure session source: %w", err)
		}
	}
	return nil
}

// ListInteractions returns the day's interaction log.
func (s *SessionService) ListInteractions(ctx context.Context, userID int64, day time.Time) ([]domain.Interaction, error) {
	return s.interactions.ListByDay(ctx, userID, day)
}

// GetSummary returns the stored daily summary, empty when none exists yet.
func (s *SessionService) GetSummary(ctx context.Context, userID int64, day time.Time) (string, error) {
	return s.interactions.GetSummary(ctx, userID, day)
}

// SummarizeDay generates and stores a summary of the user's interactions on
// the given day. A day without interactions stores nothing and returns empty.
func (s *SessionService) SummarizeDay(ctx context.Context, userID int64, day time.Time) (string, error) {
	interactions, err := s.interactions.ListByDay(ctx, userID, day)
	if err != nil {
		return "", fmt.Errorf("list interactions: %w", err)
	}
	if len(interactions) == 0 {
		return "", nil
	}

	summary, err := s.summarize(ctx, interactions)
	if err != nil {
		return "", fmt.Errorf("summarize interactions: %w", err)
	}

	if err := s.interactions.UpsertSummary(ctx, userID, day, summary); err != nil {
		return "", fmt.Errorf("store summary: %w", err)
	}
	return summary, nil
}

// UsersWithInteractions lists the users who asked anything on the given day.
func (s *SessionService) UsersWithInteractions(ctx context.Context, day time.Time) ([]int64, error) {
	return s.interactions.ListUsersForDay(ctx, day)
}

func (s *SessionService) summarize(ctx context.Context, interactions []domain.Interaction) (string, error) {
	recent := interactions
	if len(recent) > summaryInteractions {
		recent = recent[len(recent)-summaryInteractions:]
	}

	lines := []string{"Summarize the user's day based on these interactions:"}
	for _, in := range recent {
		lines = append(lines, "Q: "+in.Question, "A: "+in.Answer)
	}

	return s.chat.Complete(ctx, []llm.Message{
		llm.System(summarySystemPrompt),
		llm.User(strings.Join(lines, "\n")),
	}, summaryTemperature, summaryMaxTokens)
}
