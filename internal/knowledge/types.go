// Package knowledge stores coaching reference material in PostgreSQL with
// pgvector and assembles retrieval-derived context briefs for prompts.
package knowledge

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRetrieval indicates a vector search against the store failed.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrSummarization indicates the context summarization call failed.
	ErrSummarization = errors.New("summarization failed")
)

// Document is an indexed piece of reference material.
type Document struct {
	ID        string    // Unique identifier
	Content   string    // Document text content
	SourceID  string    // Originating source (file path, ingest label); may be empty
	CreatedAt time.Time // Creation timestamp
}

// Chunk is one retrieved piece of knowledge with its similarity score.
// Multiple chunks may share a SourceID.
type Chunk struct {
	Content    string
	SourceID   string // may be empty when the source is unknown
	Similarity float32
}

// Retriever is the search capability consumed by the context builder.
// Implementations may return an empty slice; that is not an error.
type Retriever interface {
	Search(ctx context.Context, query string) ([]Chunk, error)
}

// Bundle is the retrieval-derived brief injected into coach prompts.
// IsEmpty is true iff no chunks survived retrieval and deduplication;
// an empty bundle is never summarized.
type Bundle struct {
	Summary string
	Sources []string
	IsEmpty bool
}
