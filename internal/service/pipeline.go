package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
)

// DefaultTopK is the result size for each retrieval path.
const DefaultTopK = 10

// Pipeline runs a question through the five retrieval and synthesis stages
// in order: plan, timeline retrieval, document retrieval, alignment,
// synthesis. Stages run strictly sequentially; there is no shared state
// between concurrent queries.
type Pipeline struct {
	focus       *FocusResolver
	planner     *Planner
	timeline    *TimelineRetriever
	documents   *DocumentRetriever
	aligner     *Aligner
	synthesizer *Synthesizer
	session     *SessionService
	topK        int

	now func() time.Time
}

func NewPipeline(focus *FocusResolver, planner *Planner, timeline *TimelineRetriever, documents *DocumentRetriever, aligner *Aligner, synthesizer *Synthesizer, session *SessionService, topK int) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Pipeline{
		focus:       focus,
		planner:     planner,
		timeline:    timeline,
		documents:   documents,
		aligner:     aligner,
		synthesizer: synthesizer,
		session:     session,
		topK:        topK,
		now:         time.Now,
	}
}

// Answer resolves the optional source focus and runs the full pipeline for
// one question. The interaction is logged afterwards; a logging failure
// does not fail the query.
func (p *Pipeline) Answer(ctx context.Context, userID int64, question string, requestedSourceID *int64) (*domain.QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}

	focusSourceID, err := p.focus.Resolve(ctx, userID, requestedSourceID, question)
	if err != nil {
		return nil, err
	}

	today := p.now()

	plan := p.planner.Plan(ctx, question, today)

	timelineChunks, err := p.timeline.Retrieve(ctx, userID, question, plan, p.topK, focusSourceID)
	if err != nil {
		return nil, fmt.Errorf("timeline retrieval: %w", err)
	}

	documentChunks, err := p.documents.Retrieve(ctx, userID, question, timelineChunks, p.topK, focusSourceID)
	if err != nil {
		return nil, fmt.Errorf("document retrieval: %w", err)
	}

	alignment, err := p.aligner.Align(ctx, timelineChunks, documentChunks)
	if err != nil {
		return nil, fmt.Errorf("alignment: %w", err)
	}

	result, err := p.synthesizer.Synthesize(ctx, question, plan, timelineChunks, documentChunks, alignment)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	if err := p.session.LogInteraction(ctx, userID, question, result.Answer, focusSourceID, today); err != nil {
		log.Printf("pipeline: interaction log failed for user %d: %v", userID, err)
	}

	return result, nil
}
