package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Index a directory of training documents into the knowledge base",
	Long: `Walks the directory, splits markdown and text files into chunks, and
stores them with embeddings for retrieval. Re-indexing an unchanged file
replaces its chunks in place. Respects .gitignore.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, cleanup, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	dir := a.Config.KnowledgeDir
	if len(args) > 0 {
		dir = args[0]
	}

	res, err := a.Indexer.IndexDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", dir, err)
	}

	fmt.Printf("Indexed %d files (%d chunks) in %s\n", res.FilesAdded, res.ChunksAdded, res.Duration.Round(time.Millisecond))
	if res.FilesSkipped > 0 {
		fmt.Printf("Skipped %d unsupported files\n", res.FilesSkipped)
	}
	if res.FilesFailed > 0 {
		fmt.Printf("Failed to index %d files (see logs)\n", res.FilesFailed)
	}

	total, err := a.Store.Count(ctx)
	if err == nil {
		fmt.Printf("Knowledge base now holds %d chunks\n", total)
	}
	return nil
}
