package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var newMaxTurns int

var newCmd = &cobra.Command{
	Use:   "new [description]",
	Short: "Start a new iteration",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().IntVar(&newMaxTurns, "max-turns", 40, "maximum engine turns per multi-turn phase")
}

func runNew(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	description := strings.Join(args, " ")

	it, err := s.NewIteration(description, newMaxTurns)
	if err != nil {
		return err
	}
	fmt.Printf("Created iteration %s (phase: %s)\n", it.ID, it.Phase)
	fmt.Println("Run `quorum run` to begin refinement.")
	return nil
}
