package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect and restore iteration checkpoints",
}

var checkpointListCmd = &cobra.Command{
	Use:   "list [iteration-id]",
	Short: "List checkpoints for an iteration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheckpointList,
}

var checkpointRestoreCmd = &cobra.Command{
	Use:   "restore <number> [iteration-id]",
	Short: "Restore an iteration to a prior checkpoint",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCheckpointRestore,
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointListCmd, checkpointRestoreCmd)
}

func runCheckpointList(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	iterID, err := resolveIterationID(s, firstArg(args))
	if err != nil {
		return err
	}
	metas, err := s.ListCheckpoints(iterID)
	if err != nil {
		return err
	}
	for _, m := range metas {
		fmt.Printf("%d  %s  phase=%s  status=%s  trigger=%s\n", m.Number, m.Timestamp, m.Phase, m.Status, m.Trigger)
	}
	return nil
}

func runCheckpointRestore(_ *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid checkpoint number %q: %w", args[0], err)
	}
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	iterID, err := resolveIterationID(s, secondArg(args))
	if err != nil {
		return err
	}
	if err := s.RestoreCheckpoint(iterID, n); err != nil {
		return err
	}
	fmt.Printf("restored iteration %s to checkpoint %d\n", iterID, n)
	return nil
}

func secondArg(args []string) string {
	if len(args) < 2 {
		return ""
	}
	return args[1]
}
