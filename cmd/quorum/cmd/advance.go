package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var advanceCmd = &cobra.Command{
	Use:   "advance [iteration-id]",
	Short: "Advance the iteration past its current phase boundary",
	Long: `Invokes the phase-controller transition out of the current phase:
refinement -> planning and planning -> pre-code-review each run a one-shot
coach summarization/planning call; pre-code-review -> implementation
auto-assigns any unassigned tasks; code-review -> implementation (or done)
requires the layer's branches to already be merged via 'quorum merge'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdvance,
}

func init() {
	rootCmd.AddCommand(advanceCmd)
}

func runAdvance(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	iterID, err := resolveIterationID(s, firstArg(args))
	if err != nil {
		return err
	}

	phase, err := s.Advance(context.Background(), iterID)
	if err != nil {
		return err
	}
	fmt.Printf("advanced to phase: %s\n", phase)
	return nil
}
