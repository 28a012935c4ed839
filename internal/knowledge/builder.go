package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/liftwise/liftwise/internal/log"
)

// querySuffixes widen recall around a raw question. Each produces one
// extra retrieval query aimed at a different slice of the corpus.
var querySuffixes = []string{
	"evidence-based guidelines",
	"programming principles: volume intensity frequency",
	"minimalist training and compound movements",
}

const (
	// summaryWordTarget is the instruction-level bound on summary length.
	summaryWordTarget = 300

	// truncationLimit caps the degraded-context fallback when
	// summarization fails.
	truncationLimit = 1500

	// summarizeTimeout bounds the summarization call.
	summarizeTimeout = 30 * time.Second

	// dedupKeyLength is how much chunk text participates in the
	// deduplication key.
	dedupKeyLength = 200
)

// Summarizer condenses retrieved text. Satisfied by provider.Handle.
type Summarizer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Builder assembles context bundles by fanning diversified queries out to
// a Retriever, deduplicating the results, and condensing them into a brief.
//
// Build never fails: every internal error degrades to a smaller or empty
// bundle instead of propagating.
type Builder struct {
	retriever  Retriever
	summarizer Summarizer
	maxQueries int
	maxChunks  int
	logger     log.Logger
}

// NewBuilder creates a Builder. retriever may be nil, in which case every
// Build returns an empty bundle. summarizer may be nil, in which case the
// brief is a truncation of the joined chunk texts.
func NewBuilder(retriever Retriever, summarizer Summarizer, maxQueries, maxChunks int, logger log.Logger) *Builder {
	if logger == nil {
		logger = log.NewNop()
	}
	if maxQueries < 1 {
		maxQueries = 8
	}
	if maxChunks < 1 {
		maxChunks = 12
	}
	return &Builder{
		retriever:  retriever,
		summarizer: summarizer,
		maxQueries: maxQueries,
		maxChunks:  maxChunks,
		logger:     logger,
	}
}

// Build assembles a context bundle for a user query. Seed queries let
// callers specialize retrieval (the weekly planner seeds with
// training-frequency queries).
func (b *Builder) Build(ctx context.Context, userQuery string, seeds ...string) Bundle {
	if b.retriever == nil {
		return Bundle{IsEmpty: true}
	}

	queries := b.diversify(userQuery, seeds)

	// Queries are independent: fan out, then join in submission order so
	// the final chunk ordering is deterministic regardless of completion
	// order.
	results := make([][]Chunk, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			chunks, err := b.retriever.Search(ctx, q)
			if err != nil {
				// A failed query shrinks the bundle, never the response.
				b.logger.Warn("retrieval query failed", "query", q, "error", err)
				return
			}
			results[i] = chunks
		}(i, q)
	}
	wg.Wait()

	chunks := b.dedup(results)
	if len(chunks) == 0 {
		return Bundle{IsEmpty: true}
	}

	texts := make([]string, len(chunks))
	var sources []string
	seenSource := make(map[string]bool)
	for i, c := range chunks {
		texts[i] = c.Content
		if c.SourceID != "" && !seenSource[c.SourceID] {
			seenSource[c.SourceID] = true
			sources = append(sources, c.SourceID)
		}
	}
	joined := strings.Join(texts, "\n\n")

	return Bundle{
		Summary: b.condense(ctx, userQuery, joined),
		Sources: sources,
	}
}

// diversify builds the deduplicated, capped query set: the raw query, the
// fixed reformulation suffixes, then caller seeds.
func (b *Builder) diversify(userQuery string, seeds []string) []string {
	candidates := make([]string, 0, 4+len(seeds))
	candidates = append(candidates, userQuery)
	for _, suffix := range querySuffixes {
		candidates = append(candidates, userQuery+" "+suffix)
	}
	candidates = append(candidates, seeds...)

	seen := make(map[string]bool, len(candidates))
	queries := make([]string, 0, len(candidates))
	for _, q := range candidates {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
		if len(queries) == b.maxQueries {
			break
		}
	}
	return queries
}

// dedup flattens per-query results in submission order, removing chunks
// whose (text prefix, source) key was already seen, capped at maxChunks.
func (b *Builder) dedup(results [][]Chunk) []Chunk {
	seen := make(map[string]bool)
	var out []Chunk
	for _, chunks := range results {
		for _, c := range chunks {
			key := dedupKey(c)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
			if len(out) == b.maxChunks {
				return out
			}
		}
	}
	return out
}

// dedupKey identifies a chunk by its leading text and source.
func dedupKey(c Chunk) string {
	text := c.Content
	if len(text) > dedupKeyLength {
		text = text[:dedupKeyLength]
	}
	source := c.SourceID
	if source == "" {
		source = "unknown"
	}
	return text + "\x00" + source
}

// condense summarizes the joined chunk texts; a summarization failure
// degrades to hard truncation rather than failing the build.
func (b *Builder) condense(ctx context.Context, userQuery, joined string) string {
	if b.summarizer == nil {
		return truncate(joined, truncationLimit)
	}

	sctx, cancel := context.WithTimeout(ctx, summarizeTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Condense the following training reference material into a brief of under %d words "+
			"for answering the question %q. Emphasize actionable principles and tradeoffs. "+
			"Do not add information that is not in the material.\n\n%s",
		summaryWordTarget, userQuery, joined)

	summary, err := b.summarizer.Generate(sctx, prompt)
	if err != nil || strings.TrimSpace(summary) == "" {
		b.logger.Warn("context summarization failed, truncating",
			"error", err, "joined_length", len(joined))
		return truncate(joined, truncationLimit)
	}
	return summary
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
