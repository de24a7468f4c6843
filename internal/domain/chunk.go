package domain

import "time"

// TimelineChunk is a retrieval-time projection of an event selected by the
// timeline path. Ephemeral; produced per query and never persisted.
type TimelineChunk struct {
	EventID   int64
	Text      string
	Date      time.Time
	Type      EventType
	Relevance float64
}

// DocumentChunk is a retrieval-time projection of a document or webpage
// event. Ephemeral; produced per query and never persisted.
type DocumentChunk struct {
	EventID     int64
	Text        string
	SourceTitle string
	Type        EventType
	Relevance   float64
}

// AlignedPair links a timeline chunk to a document chunk whose embeddings
// exceed the alignment similarity threshold.
type AlignedPair struct {
	Timeline   TimelineChunk
	Document   DocumentChunk
	Similarity float64
}

// Alignment is the aligner's output: the retained pairs, a one-line natural
// language summary, and the merged context block handed to the synthesizer.
type Alignment struct {
	Pairs         []AlignedPair
	Summary       string
	MergedContext string
}

// QueryResult is the final product of the query pipeline.
type QueryResult struct {
	Answer         string
	TimelineChunks []TimelineChunk
	DocumentChunks []DocumentChunk
	DatesUsed      []time.Time // reserved; currently always empty
	Confidence     float64
}
