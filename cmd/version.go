package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liftwise/liftwise/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration",
	RunE: func(*cobra.Command, []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("Liftwise %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	fmt.Printf("  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Printf("  Ollama host: %s\n", cfg.OllamaHost)
	fmt.Printf("  Cache: %v\n", cfg.CacheEnabled)
	fmt.Printf("  Hevy integration: %v\n", cfg.Hevy.Enabled())

	for _, key := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY"} {
		if os.Getenv(key) != "" {
			fmt.Printf("  %s: configured\n", key)
		} else {
			fmt.Printf("  %s: not set\n", key)
		}
	}
	return nil
}
