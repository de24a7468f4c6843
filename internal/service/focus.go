package service

import (
	"context"
	"strings"

	"github.com/chroniclehq/chronicle/internal/domain"
)

// recencyTokens gate the focus heuristic: without one of these words the
// question is not about a particular recent source.
var recencyTokens = map[string]struct{}{
	"this": {}, "that": {}, "these": {}, "those": {},
	"recent": {}, "latest": {}, "just": {}, "new": {},
	"uploaded": {}, "ingested": {}, "added": {},
}

var focusTypeKeywords = []struct {
	words []string
	types []domain.EventType
}{
	{words: []string{"article", "webpage", "website", "page", "link"}, types: []domain.EventType{domain.EventTypeWebpage, domain.EventTypeDocument}},
	{words: []string{"document", "pdf", "paper", "file"}, types: []domain.EventType{domain.EventTypeDocument}},
	{words: []string{"audio", "recording", "meeting", "transcript", "call", "podcast"}, types: []domain.EventType{domain.EventTypeAudio}},
	{words: []string{"note", "text", "summary"}, types: []domain.EventType{domain.EventTypeText}},
}

// FocusResolver decides which source, if any, a query should be pinned to.
type FocusResolver struct {
	sources SourceStore
}

func NewFocusResolver(sources SourceStore) *FocusResolver {
	return &FocusResolver{sources: sources}
}

// Resolve returns the focus source id for a query, or nil when the query
// should run unfocused.
//
// An explicit id wins and must belong to the user. Otherwise the question is
// inspected: if it mentions something recently ingested ("this article",
// "the recording I just uploaded"), the newest source of the implied type is
// focused.
func (r *FocusResolver) Resolve(ctx context.Context, userID int64, requestedSourceID *int64, question string) (*int64, error) {
	if requestedSourceID != nil {
		source, err := r.sources.GetForUser(ctx, userID, *requestedSourceID)
		if err != nil {
			return nil, err
		}
		return &source.ID, nil
	}

	words := questionWords(question)
	if !containsRecencyToken(words) {
		return nil, nil
	}

	source, err := r.sources.LatestByTypes(ctx, userID, typePriority(words))
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, nil
	}
	return &source.ID, nil
}

func questionWords(question string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(question)) {
		words[strings.Trim(field, ".,!?;:\"'()")] = struct{}{}
	}
	return words
}

func containsRecencyToken(words map[string]struct{}) bool {
	for token := range recencyTokens {
		if _, ok := words[token]; ok {
			return true
		}
	}
	return false
}

// typePriority maps the question's vocabulary to source types, most specific
// mention first. An empty result means any type qualifies.
func typePriority(words map[string]struct{}) []domain.EventType {
	var types []domain.EventType
	seen := make(map[domain.EventType]struct{})
	for _, group := range focusTypeKeywords {
		matched := false
		for _, w := range group.words {
			if _, ok := words[w]; ok {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, t := range group.types {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			types = append(types, t)
		}
	}
	return types
}
