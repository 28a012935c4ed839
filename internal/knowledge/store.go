package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/liftwise/liftwise/internal/log"
)

// searchTimeout bounds a single vector search including query embedding.
const searchTimeout = 10 * time.Second

// DB is the subset of pgxpool.Pool the store needs.
// Defined by the consumer so tests can substitute a fake.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages knowledge documents with vector search.
// It handles embedding generation and similarity search using PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db       DB
	embedder ai.Embedder
	topK     int
	logger   log.Logger
}

// NewStore creates a Store. topK is the number of chunks returned per search.
func NewStore(db DB, embedder ai.Embedder, topK int, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	if topK < 1 {
		topK = 4
	}
	return &Store{
		db:       db,
		embedder: embedder,
		topK:     topK,
		logger:   logger,
	}
}

// Add embeds and upserts a document.
// Uses ON CONFLICT DO UPDATE so re-indexing the same ID is idempotent.
func (s *Store) Add(ctx context.Context, doc Document) error {
	vec, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (id, content, embedding, source_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			source_id = EXCLUDED.source_id`,
		doc.ID, doc.Content, vec, doc.SourceID, createdAt)
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "source", doc.SourceID, "content_length", len(doc.Content))
	return nil
}

// Search implements Retriever: cosine-similarity search over all documents.
// A bounded timeout prevents a slow vector scan from stalling the request.
func (s *Store) Search(ctx context.Context, query string) ([]Chunk, error) {
	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	vec, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: query embedding timeout: %v", ErrRetrieval, err)
		}
		return nil, fmt.Errorf("%w: embedding query: %v", ErrRetrieval, err)
	}

	rows, err := s.db.Query(queryCtx, `
		SELECT content, source_id, 1 - (embedding <=> $1) AS similarity
		FROM documents
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var similarity float64
		if err := rows.Scan(&c.Content, &c.SourceID, &similarity); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", ErrRetrieval, err)
		}
		c.Similarity = float32(similarity)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	return chunks, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	// Overflow protection for 32-bit platforms
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, docID); err != nil {
		return fmt.Errorf("deleting document %q: %w", docID, err)
	}
	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// DeleteBySource removes every chunk indexed from a source.
func (s *Store) DeleteBySource(ctx context.Context, sourceID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM documents WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("deleting documents for source %q: %w", sourceID, err)
	}
	return nil
}

// embed generates an embedding vector for one text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("empty embedding returned")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
