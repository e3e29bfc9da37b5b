package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var approveListCmd = &cobra.Command{
	Use:   "approvals [iteration-id]",
	Short: "List writes awaiting approval",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runApprovalsList,
}

var approveCmd = &cobra.Command{
	Use:   "approve <approval-id> [iteration-id]",
	Short: "Approve a pending write and apply it",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runApprove,
}

var denyCmd = &cobra.Command{
	Use:   "deny <approval-id> <reason> [iteration-id]",
	Short: "Deny a pending write",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runDeny,
}

func init() {
	rootCmd.AddCommand(approveListCmd, approveCmd, denyCmd)
}

func runApprovalsList(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	iterID, err := resolveIterationID(s, firstArg(args))
	if err != nil {
		return err
	}
	reqs, err := s.PendingApprovals(iterID)
	if err != nil {
		return err
	}
	for _, r := range reqs {
		fmt.Printf("%s  agent=%s  path=%s  %d bytes\n", r.ID, r.Agent, r.Path, r.ContentSize)
	}
	return nil
}

func runApprove(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	iterID, err := resolveIterationID(s, secondArg(args))
	if err != nil {
		return err
	}
	if err := s.ApproveWrite(context.Background(), iterID, args[0]); err != nil {
		return err
	}
	fmt.Printf("approved and applied %s\n", args[0])
	return nil
}

func runDeny(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	var iterArg string
	if len(args) > 2 {
		iterArg = args[2]
	}
	iterID, err := resolveIterationID(s, iterArg)
	if err != nil {
		return err
	}
	if err := s.DenyWrite(iterID, args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("denied %s\n", args[0])
	return nil
}
