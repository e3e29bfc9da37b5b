package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:     "run [iteration-id]",
	Aliases: []string{"continue"},
	Short:   "Drive the current iteration's phase forward one session",
	Long: `Runs exactly one engine session (refinement, pre-code-review, or
code-review) or one implementation layer, then stops at the next natural
boundary: a session complete, an approval pause, or a layer complete. It
never advances the phase itself except for the mechanical implementation
-> code-review transition; use 'quorum advance' for every other phase
transition.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var runWatch bool

func init() {
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "on an approval pause, wait for every pending write to be decided in another terminal, then resume automatically")
	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	iterID, err := resolveIterationID(s, firstArg(args))
	if err != nil {
		return err
	}

	ctx := context.Background()
	for {
		out, err := s.Run(ctx, iterID)
		if err != nil {
			return err
		}

		fmt.Printf("phase: %s\n", out.Phase)
		if out.SessionTurns > 0 {
			fmt.Printf("agent turns this session: %d\n", out.SessionTurns)
		}
		if len(out.Blocked) > 0 {
			fmt.Printf("blocked tasks: %v\n", out.Blocked)
		}
		if out.LayerComplete {
			fmt.Println("implementation layer complete, advanced to code-review")
		}
		if out.PhaseComplete {
			fmt.Println("coach signaled the phase is complete; run `quorum advance` to transition")
			return nil
		}
		if q := out.PMQuestion; q != nil {
			fmt.Printf("coach asks (%s): %s\n", q.ResponseType, q.Question)
			for _, opt := range q.Options {
				fmt.Printf("  - %s\n", opt)
			}
			fmt.Println("answer with `quorum say <response>`, then `quorum run` to continue")
			return nil
		}
		if !out.PausedForApproval {
			return nil
		}

		fmt.Printf("paused for approval: %d pending write(s)\n", out.PendingCount)
		if !runWatch {
			return nil
		}
		fmt.Println("waiting for approvals; decide them with `quorum approve` / `quorum deny`")
		if err := s.WaitForApprovals(ctx, iterID); err != nil {
			return err
		}
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
