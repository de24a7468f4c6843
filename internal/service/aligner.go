package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/chroniclehq/chronicle/internal/embedding"
)

const (
	// AlignmentThreshold is the minimum cross-modal similarity for a
	// timeline/document pair to count as a connection.
	AlignmentThreshold = 0.6

	maxAlignedPairs    = 5
	maxSummaryItems    = 3
	maxContextEntries  = 5
	maxContextPairs    = 3
	contextTextRunes   = 300
	emptyAlignmentNote = "No relevant information found."
)

// Aligner relates timeline chunks to document chunks by pairwise embedding
// similarity and builds the merged context block the synthesizer consumes.
type Aligner struct {
	embeddings EmbeddingStore
	threshold  float64
}

func NewAligner(embeddings EmbeddingStore, threshold float64) *Aligner {
	if threshold <= 0 {
		threshold = AlignmentThreshold
	}
	return &Aligner{embeddings: embeddings, threshold: threshold}
}

// Align computes the aligned pairs, summary, and merged context for the two
// retrieval result sets. Both sets empty short-circuits to an empty result.
func (a *Aligner) Align(ctx context.Context, timelineChunks []domain.TimelineChunk, documentChunks []domain.DocumentChunk) (*domain.Alignment, error) {
	if len(timelineChunks) == 0 && len(documentChunks) == 0 {
		return &domain.Alignment{
			Pairs:   []domain.AlignedPair{},
			Summary: emptyAlignmentNote,
		}, nil
	}

	pairs, err := a.computePairs(ctx, timelineChunks, documentChunks)
	if err != nil {
		return nil, err
	}

	return &domain.Alignment{
		Pairs:         pairs,
		Summary:       buildSummary(pairs, timelineChunks, documentChunks),
		MergedContext: buildMergedContext(timelineChunks, documentChunks, pairs),
	}, nil
}

// computePairs scores every (timeline, document) combination whose
// embeddings are stored. Chunks with a missing embedding are skipped rather
// than failing the alignment.
func (a *Aligner) computePairs(ctx context.Context, timelineChunks []domain.TimelineChunk, documentChunks []domain.DocumentChunk) ([]domain.AlignedPair, error) {
	if len(timelineChunks) == 0 || len(documentChunks) == 0 {
		return []domain.AlignedPair{}, nil
	}

	ids := make([]int64, 0, len(timelineChunks)+len(documentChunks))
	for _, c := range timelineChunks {
		ids = append(ids, c.EventID)
	}
	for _, c := range documentChunks {
		ids = append(ids, c.EventID)
	}
	vectors, err := a.embeddings.GetByEventIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch alignment embeddings: %w", err)
	}

	pairs := make([]domain.AlignedPair, 0)
	for _, tc := range timelineChunks {
		tVec, ok := vectors[tc.EventID]
		if !ok {
			continue
		}
		for _, dc := range documentChunks {
			dVec, ok := vectors[dc.EventID]
			if !ok {
				continue
			}
			similarity := embedding.CosineSimilarity(tVec, dVec)
			if similarity > a.threshold {
				pairs = append(pairs, domain.AlignedPair{Timeline: tc, Document: dc, Similarity: similarity})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	if len(pairs) > maxAlignedPairs {
		pairs = pairs[:maxAlignedPairs]
	}
	return pairs, nil
}

func buildSummary(pairs []domain.AlignedPair, timelineChunks []domain.TimelineChunk, documentChunks []domain.DocumentChunk) string {
	var parts []string

	if len(timelineChunks) > 0 {
		dates := distinctDates(timelineChunks)
		if len(dates) > maxSummaryItems {
			dates = dates[:maxSummaryItems]
		}
		parts = append(parts, "Found timeline events from "+strings.Join(dates, ", "))
	}

	if len(documentChunks) > 0 {
		titles := distinctTitles(documentChunks)
		if len(titles) > maxSummaryItems {
			titles = titles[:maxSummaryItems]
		}
		parts = append(parts, "Found relevant documents: "+strings.Join(titles, ", "))
	}

	if len(pairs) > 0 {
		parts = append(parts, fmt.Sprintf("Identified %d strong connections between timeline and documents", len(pairs)))
	}

	return strings.Join(parts, ". ") + "."
}

func buildMergedContext(timelineChunks []domain.TimelineChunk, documentChunks []domain.DocumentChunk, pairs []domain.AlignedPair) string {
	var parts []string

	if len(timelineChunks) > 0 {
		parts = append(parts, "=== TIMELINE EVENTS ===")
		for _, c := range firstTimeline(timelineChunks, maxContextEntries) {
			parts = append(parts, fmt.Sprintf("[%s] %s", c.Date.Format("2006-01-02"), truncateRunes(c.Text, contextTextRunes)))
		}
	}

	if len(documentChunks) > 0 {
		parts = append(parts, "\n=== RELEVANT DOCUMENTS ===")
		for _, c := range firstDocuments(documentChunks, maxContextEntries) {
			parts = append(parts, fmt.Sprintf("[%s] %s", c.SourceTitle, truncateRunes(c.Text, contextTextRunes)))
		}
	}

	if len(pairs) > 0 {
		parts = append(parts, "\n=== KEY CONNECTIONS ===")
		capped := pairs
		if len(capped) > maxContextPairs {
			capped = capped[:maxContextPairs]
		}
		for _, p := range capped {
			parts = append(parts, fmt.Sprintf(
				"Timeline (%s) relates to Document (%s): similarity %.2f",
				p.Timeline.Date.Format("2006-01-02"), p.Document.SourceTitle, p.Similarity,
			))
		}
	}

	return strings.Join(parts, "\n\n")
}

// distinctDates returns the chunk dates, deduplicated by day and sorted
// chronologically, formatted as abbreviated month and day.
func distinctDates(chunks []domain.TimelineChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var keys []string
	for _, c := range chunks {
		key := c.Date.Format("2006-01-02")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	formatted := make([]string, len(keys))
	for i, key := range keys {
		day, _ := time.Parse("2006-01-02", key)
		formatted[i] = day.Format("Jan 02")
	}
	return formatted
}

// distinctTitles deduplicates source titles preserving relevance order.
func distinctTitles(chunks []domain.DocumentChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var titles []string
	for _, c := range chunks {
		if _, ok := seen[c.SourceTitle]; ok {
			continue
		}
		seen[c.SourceTitle] = struct{}{}
		titles = append(titles, c.SourceTitle)
	}
	return titles
}

func firstTimeline(chunks []domain.TimelineChunk, n int) []domain.TimelineChunk {
	if len(chunks) > n {
		return chunks[:n]
	}
	return chunks
}

func firstDocuments(chunks []domain.DocumentChunk, n int) []domain.DocumentChunk {
	if len(chunks) > n {
		return chunks[:n]
	}
	return chunks
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
