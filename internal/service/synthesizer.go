package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/chroniclehq/chronicle/internal/llm"
)

const (
	draftTemperature = 0.7
	draftMaxTokens   = 500

	checkTemperature = 0.3
	checkMaxTokens   = 200

	regenTemperature = 0.7
	regenMaxTokens   = 600

	// DefaultConfidence is reported on every result until confidence is
	// derived from retrieval scores.
	DefaultConfidence = 0.85
)

const (
	draftSystemPrompt = "You are a knowledgeable AI assistant helping answer questions based on retrieved context from a personal knowledge base."
	checkSystemPrompt = "You are an evaluator checking answer quality."
	regenSystemPrompt = "You are a helpful AI assistant improving a previous answer based on feedback."
)

// selfCheckResponse is the evaluator model's verdict. Adequate is a pointer
// so a response that omits the field counts as adequate rather than
// triggering a rewrite.
type selfCheckResponse struct {
	Adequate *bool  `json:"adequate"`
	Feedback string `json:"feedback"`
}

// Synthesizer produces the final answer in two states: a draft from the
// merged context, then a self-check that can trigger at most one rewrite.
type Synthesizer struct {
	chat llm.ChatClient
}

func NewSynthesizer(chat llm.ChatClient) *Synthesizer {
	return &Synthesizer{chat: chat}
}

// Synthesize drafts, self-checks, and optionally rewrites an answer. Chunk
// lists pass through to the result unfiltered.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, plan domain.Plan, timelineChunks []domain.TimelineChunk, documentChunks []domain.DocumentChunk, alignment *domain.Alignment) (*domain.QueryResult, error) {
	draft, err := s.draft(ctx, question, plan, alignment)
	if err != nil {
		return nil, fmt.Errorf("draft answer: %w", err)
	}

	answer := draft
	if needsRewrite, feedback := s.selfCheck(ctx, question, draft, plan); needsRewrite {
		answer = s.regenerate(ctx, question, draft, feedback, alignment)
	}

	return &domain.QueryResult{
		Answer:         answer,
		TimelineChunks: timelineChunks,
		DocumentChunks: documentChunks,
		DatesUsed:      []time.Time{},
		Confidence:     DefaultConfidence,
	}, nil
}

func (s *Synthesizer) draft(ctx context.Context, question string, plan domain.Plan, alignment *domain.Alignment) (string, error) {
	prompt := fmt.Sprintf(`You are a helpful AI assistant with access to a user's personal knowledge base.

User's Question: %s

Retrieval Plan:
%s

Retrieved Context:
%s

Alignment Summary:
%s

Based on the above context, provide a clear, concise, and accurate answer to the user's question.
If the context doesn't contain enough information to fully answer the question, acknowledge this.
Cite specific dates or sources when relevant.`,
		question, plan.Subtasks, alignment.MergedContext, alignment.Summary)

	return s.chat.Complete(ctx, []llm.Message{
		llm.System(draftSystemPrompt),
		llm.User(prompt),
	}, draftTemperature, draftMaxTokens)
}

// selfCheck asks the model whether the draft is adequate. It never blocks
// the pipeline: a failed call or unparseable verdict counts as adequate.
func (s *Synthesizer) selfCheck(ctx context.Context, question, answer string, plan domain.Plan) (bool, string) {
	prompt := fmt.Sprintf(`Evaluate if the following answer adequately addresses the question.

Question: %s
Planned subtasks: %s

Answer: %s

Does this answer:
1. Directly address the question?
2. Cover the key subtasks identified?
3. Acknowledge gaps if information is missing?

Respond in JSON format:
{
  "adequate": true/false,
  "feedback": "brief feedback on what's missing or could be improved"
}`, question, plan.Subtasks, answer)

	response, err := s.chat.Complete(ctx, []llm.Message{
		llm.System(checkSystemPrompt),
		llm.User(prompt),
	}, checkTemperature, checkMaxTokens)
	if err != nil {
		log.Printf("synthesizer: self-check failed, keeping draft: %v", err)
		return false, ""
	}

	verdict, ok := decodeModelJSON[selfCheckResponse](response)
	if !ok {
		return false, ""
	}
	if verdict.Adequate == nil || *verdict.Adequate {
		return false, ""
	}
	return true, verdict.Feedback
}

// regenerate rewrites the draft once using the evaluator's feedback. A
// failed rewrite keeps the draft.
func (s *Synthesizer) regenerate(ctx context.Context, question, draft, feedback string, alignment *domain.Alignment) string {
	prompt := fmt.Sprintf(`You previously generated this answer:

%s

However, it had these issues:
%s

Using the same context, generate an improved answer that addresses these concerns.

Context:
%s

Question: %s

Improved Answer:`, draft, feedback, alignment.MergedContext, question)

	improved, err := s.chat.Complete(ctx, []llm.Message{
		llm.System(regenSystemPrompt),
		llm.User(prompt),
	}, regenTemperature, regenMaxTokens)
	if err != nil {
		log.Printf("synthesizer: regeneration failed, keeping draft: %v", err)
		return draft
	}
	return improved
}
