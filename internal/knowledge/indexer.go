package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/liftwise/liftwise/internal/log"
)

// supportedExtensions are the file types the indexer ingests.
// Coaching reference material is prose, not code.
var supportedExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

const (
	// maxChunkSize keeps each indexed chunk inside the embedder's
	// reliable input window (~2048 tokens).
	maxChunkSize = 8 * 1024

	// indexConcurrency bounds parallel embedding calls during a bulk index.
	indexConcurrency = 4
)

// DocumentAdder is the storage capability the indexer needs.
type DocumentAdder interface {
	Add(ctx context.Context, doc Document) error
}

// IndexResult summarizes one indexing run.
type IndexResult struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	ChunksAdded  int
	Duration     time.Duration
}

// Indexer walks a directory of reference material and adds its files to
// the store, split into embedder-sized chunks.
type Indexer struct {
	store  DocumentAdder
	logger log.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(store DocumentAdder, logger log.Logger) *Indexer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Indexer{store: store, logger: logger}
}

// IndexDir indexes every supported file under dir.
// A .gitignore in dir is honored. Individual file failures are counted,
// not fatal; the run fails only when the directory itself is unreadable.
func (ix *Indexer) IndexDir(ctx context.Context, dir string) (IndexResult, error) {
	start := time.Now()

	matcher := loadIgnoreMatcher(dir)

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return IndexResult{}, fmt.Errorf("walking %s: %w", dir, err)
	}

	type fileOutcome struct {
		added  bool
		chunks int
		err    error
	}
	outcomes := make([]fileOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexConcurrency)
	for i, path := range files {
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			outcomes[i] = fileOutcome{}
			continue
		}
		g.Go(func() error {
			n, err := ix.indexFile(gctx, dir, path)
			outcomes[i] = fileOutcome{added: err == nil, chunks: n, err: err}
			// File failures are recorded per outcome, not propagated,
			// so one bad file does not cancel the batch.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return IndexResult{}, err
	}

	var res IndexResult
	for i, path := range files {
		o := outcomes[i]
		switch {
		case o.err != nil:
			ix.logger.Warn("indexing file failed", "file", path, "error", o.err)
			res.FilesFailed++
		case o.added:
			res.FilesAdded++
			res.ChunksAdded += o.chunks
		default:
			res.FilesSkipped++
		}
	}
	res.Duration = time.Since(start)
	ix.logger.Info("indexing complete",
		"dir", dir,
		"added", res.FilesAdded,
		"skipped", res.FilesSkipped,
		"failed", res.FilesFailed,
		"chunks", res.ChunksAdded,
	)
	return res, nil
}

// indexFile reads, chunks and stores one file. Returns the chunk count.
func (ix *Indexer) indexFile(ctx context.Context, root, path string) (int, error) {
	// #nosec G304 -- path comes from walking the user-chosen index directory
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return 0, nil
	}

	sourceID, err := filepath.Rel(root, path)
	if err != nil {
		sourceID = path
	}

	chunks := splitChunks(text, maxChunkSize)
	for i, chunk := range chunks {
		doc := Document{
			ID:       chunkID(sourceID, i),
			Content:  chunk,
			SourceID: sourceID,
		}
		if err := ix.store.Add(ctx, doc); err != nil {
			return 0, fmt.Errorf("adding chunk %d: %w", i, err)
		}
	}
	return len(chunks), nil
}

// splitChunks splits text into chunks of at most max bytes, preferring
// blank-line boundaries so paragraphs stay intact.
func splitChunks(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		if current.Len() > 0 && current.Len()+len(p)+2 > max {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		// A single oversized paragraph is cut hard.
		for len(p) > max {
			head := truncate(p, max)
			chunks = append(chunks, strings.TrimSpace(head))
			p = p[len(head):]
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// chunkID derives a stable document ID from the source path and chunk index.
func chunkID(sourceID string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", sourceID, index)))
	return hex.EncodeToString(sum[:16])
}

// loadIgnoreMatcher compiles dir/.gitignore when present.
func loadIgnoreMatcher(dir string) *ignore.GitIgnore {
	matcher, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return nil
	}
	return matcher
}
