package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liftwise/liftwise/internal/planner"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a weekly training plan interactively",
	Long: `Generates a weekly training plan from your recent workouts and the
knowledge base, then loops: review the draft, type feedback to revise it,
'accept' to save it to your training app, or 'cancel' to discard it.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, cleanup, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.Planner == nil {
		return fmt.Errorf("weekly planning needs the Hevy integration; set hevy.api_key in the config")
	}

	reader := bufio.NewScanner(os.Stdin)
	interact := func(plan string) (string, error) {
		fmt.Println(plan)
		fmt.Print("\nFeedback (accept / cancel / changes): ")
		if !reader.Scan() {
			if err := reader.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return strings.TrimSpace(reader.Text()), nil
	}

	result, err := a.Planner.Run(ctx, interact)
	if err != nil {
		return fmt.Errorf("plan workflow: %w", err)
	}

	switch result.Status {
	case planner.StatusApproved:
		fmt.Println("\nPlan approved and saved to your training app.")
	default:
		fmt.Println("\nPlan discarded.")
	}
	return nil
}
