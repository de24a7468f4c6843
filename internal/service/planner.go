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
	plannerTemperature = 0.2
	plannerMaxTokens   = 500

	// Ranges wider than refineMaxSpanDays are narrowed to the most recent
	// narrowedSpanDays of the same range.
	refineMaxSpanDays = 30
	narrowedSpanDays  = 7

	narrowedDescription = "Narrowed from broader range to most recent week"
)

const plannerSystemPrompt = "You are an expert at analyzing questions and extracting temporal information, topics, and entities. Always respond with valid JSON."

// plannerResponse is the typed shape of the planner model's JSON output.
// Every field is optional; missing or malformed fields degrade rather than
// fail.
type plannerResponse struct {
	TemporalScope *temporalScopeResponse `json:"temporal_scope"`
	Topics        []string               `json:"topics"`
	Entities      []string               `json:"entities"`
	Subtasks      string                 `json:"subtasks"`
}

type temporalScopeResponse struct {
	Type        string `json:"type"`
	Date        string `json:"date"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

// Planner extracts the temporal scope, topics, entities, and retrieval
// subtasks from a question. It never fails the caller: any model or parse
// error yields the default plan, which the rest of the pipeline can always
// work with.
type Planner struct {
	chat llm.ChatClient
}

func NewPlanner(chat llm.ChatClient) *Planner {
	return &Planner{chat: chat}
}

// Plan analyzes the question relative to referenceDate and returns a
// retrieval plan.
func (p *Planner) Plan(ctx context.Context, question string, referenceDate time.Time) domain.Plan {
	messages := []llm.Message{
		llm.System(plannerSystemPrompt),
		llm.User(planningPrompt(question, referenceDate)),
	}

	response, err := p.chat.Complete(ctx, messages, plannerTemperature, plannerMaxTokens)
	if err != nil {
		log.Printf("planner: model call failed, using default plan: %v", err)
		return domain.DefaultPlan()
	}

	parsed, ok := decodeModelJSON[plannerResponse](response)
	if !ok {
		log.Printf("planner: could not extract JSON from response, using default plan")
		return domain.DefaultPlan()
	}

	plan := domain.Plan{
		Scope:    refineScope(parseTemporalScope(parsed.TemporalScope)),
		Topics:   parsed.Topics,
		Entities: parsed.Entities,
		Subtasks: parsed.Subtasks,
	}
	if plan.Topics == nil {
		plan.Topics = []string{}
	}
	if plan.Entities == nil {
		plan.Entities = []string{}
	}
	if plan.Subtasks == "" {
		plan.Subtasks = domain.DefaultSubtasks
	}
	return plan
}

func planningPrompt(question string, referenceDate time.Time) string {
	return fmt.Sprintf(`Analyze the following question and extract structured information.
Today's date is %s (%s).

Question: %q

Extract the following:
1. Temporal scope: When is the user asking about?
   - If asking about a specific day (e.g., "yesterday", "last Tuesday", "June 15th"), return the specific date
   - If asking about a period (e.g., "last week", "this month"), return a date range
   - If no temporal reference, return null

2. Topics: Main themes or subjects (e.g., "machine learning", "project planning")

3. Entities: Specific names of people, organizations, projects, etc.

4. Subtasks: Brief description of what retrieval should focus on

Respond in JSON format:
{
  "temporal_scope": {
    "type": "date|range|none",
    "date": "YYYY-MM-DD",
    "start_date": "YYYY-MM-DD",
    "end_date": "YYYY-MM-DD",
    "description": "natural language description"
  },
  "topics": ["topic1", "topic2"],
  "entities": ["Entity 1", "Entity 2"],
  "subtasks": "Focus on X and find information about Y"
}`,
		referenceDate.Format("2006-01-02"),
		referenceDate.Format("Monday, January 2, 2006"),
		question,
	)
}

// parseTemporalScope normalizes the model's temporal scope. Malformed or
// missing fields degrade to the none scope; an inverted range degrades to
// none as well.
func parseTemporalScope(raw *temporalScopeResponse) domain.TemporalScope {
	if raw == nil {
		return domain.NoScope()
	}

	switch raw.Type {
	case "date":
		day, err := time.Parse("2006-01-02", raw.Date)
		if err != nil {
			return domain.NoScope()
		}
		return domain.DateScope(day, raw.Description)
	case "range":
		start, err := time.Parse("2006-01-02", raw.StartDate)
		if err != nil {
			return domain.NoScope()
		}
		end, err := time.Parse("2006-01-02", raw.EndDate)
		if err != nil {
			return domain.NoScope()
		}
		scope, err := domain.RangeScope(start, end, raw.Description)
		if err != nil {
			return domain.NoScope()
		}
		return scope
	default:
		return domain.NoScope()
	}
}

// refineScope narrows an overly broad range to the most recent week of that
// same range. Single dates and the none scope are never refined.
func refineScope(scope domain.TemporalScope) domain.TemporalScope {
	if scope.Kind != domain.ScopeRange {
		return scope
	}
	if scope.SpanDays() <= refineMaxSpanDays {
		return scope
	}

	narrowed, err := domain.RangeScope(
		scope.End.AddDate(0, 0, -narrowedSpanDays),
		scope.End,
		narrowedDescription,
	)
	if err != nil {
		return scope
	}
	return narrowed
}
