package domain

import "time"

// ScopeKind tags the variant of a TemporalScope.
type ScopeKind string

const (
	ScopeNone  ScopeKind = "none"
	ScopeDate  ScopeKind = "date"
	ScopeRange ScopeKind = "range"
)

// TemporalScope is the planner's inferred time window of interest for a
// question. Exactly one variant is active: none (no temporal reference),
// a single date, or an inclusive date range with Start <= End.
type TemporalScope struct {
	Kind        ScopeKind
	Date        time.Time
	Start       time.Time
	End         time.Time
	Description string
}

// NoScope returns the empty temporal scope.
func NoScope() TemporalScope {
	return TemporalScope{Kind: ScopeNone}
}

// DateScope returns a single-day scope.
func DateScope(day time.Time, description string) TemporalScope {
	return TemporalScope{Kind: ScopeDate, Date: day, Description: description}
}

// RangeScope returns an inclusive date-range scope. A range with start after
// end is invalid.
func RangeScope(start, end time.Time, description string) (TemporalScope, error) {
	if start.After(end) {
		return NoScope(), ErrInvalidDateRange
	}
	return TemporalScope{Kind: ScopeRange, Start: start, End: end, Description: description}, nil
}

// IsNone reports whether the scope carries no temporal constraint.
func (s TemporalScope) IsNone() bool {
	return s.Kind == ScopeNone || s.Kind == ""
}

// SpanDays returns the number of days covered by a range scope
// (end minus start). Zero for date and none scopes.
func (s TemporalScope) SpanDays() int {
	if s.Kind != ScopeRange {
		return 0
	}
	return int(s.End.Sub(s.Start).Hours() / 24)
}

// Plan is the planner's retrieval plan for one query: the temporal scope,
// topic and entity hints, and a free-text description of what retrieval
// should focus on. Created once per query and immutable thereafter.
type Plan struct {
	Scope    TemporalScope
	Topics   []string
	Entities []string
	Subtasks string
}

// DefaultSubtasks is the subtask description used when planning fails and
// the pipeline continues with an empty plan.
const DefaultSubtasks = "Retrieve relevant information and answer the question."

// DefaultPlan is the plan used when the planner cannot produce one. The rest
// of the pipeline relies on the planner always returning a usable value.
func DefaultPlan() Plan {
	return Plan{
		Scope:    NoScope(),
		Topics:   []string{},
		Entities: []string{},
		Subtasks: DefaultSubtasks,
	}
}
