package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sayCmd = &cobra.Command{
	Use:   "say <message...>",
	Short: "Add a product-manager message to the conversation",
	Long: `Appends a message from you to the current iteration's conversation log,
typically to answer a coach question. Human messages do not consume an
agent turn; the next run picks up the rotation where it left off.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSay,
}

var sayIterationID string

func init() {
	sayCmd.Flags().StringVar(&sayIterationID, "iteration", "", "iteration id (default: current)")
	rootCmd.AddCommand(sayCmd)
}

func runSay(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	iterID, err := resolveIterationID(s, sayIterationID)
	if err != nil {
		return err
	}
	if err := s.AppendHumanMessage(iterID, strings.Join(args, " ")); err != nil {
		return err
	}
	fmt.Println("message recorded")
	return nil
}
