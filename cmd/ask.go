package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liftwise/liftwise/internal/coach"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot coaching question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, cleanup, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	if a.Cache != nil {
		if answer, ok := a.Cache.Get(question); ok {
			fmt.Println(answer)
			return nil
		}
	}

	answer := a.Coach.Respond(ctx, question, nil)
	if a.Cache != nil && answer != coach.UnavailableMessage {
		a.Cache.Set(question, answer)
	}

	fmt.Println(answer)
	return nil
}
