package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MBifolco/gotg-sub000/internal/vcs"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <branch>",
	Short: "Merge one layer branch into main",
	Args:  cobra.ExactArgs(1),
	RunE:  runMerge,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <path> <ours|theirs|ai> [iteration-id]",
	Short: "Resolve one conflicted file of an in-progress merge",
	Long: `Resolves one conflicted file with one of three strategies: keep our
side, keep their side, or ask the model to produce a merged version from
the base, ours, and theirs contents plus the layer's task context.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runResolve,
}

var abortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Abort an in-progress merge, restoring pre-merge state",
	Args:  cobra.NoArgs,
	RunE:  runAbort,
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Commit an in-progress merge once every conflict is resolved",
	Args:  cobra.NoArgs,
	RunE:  runFinalize,
}

func init() {
	rootCmd.AddCommand(mergeCmd, resolveCmd, finalizeCmd, abortCmd)
}

func runMerge(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	result, err := s.MergeBranch(context.Background(), args[0])
	if err != nil {
		return err
	}
	if result.Skipped {
		fmt.Printf("%s: skipped (%s)\n", result.Branch, result.SkipReason)
		return nil
	}
	if len(result.Conflicts) > 0 {
		fmt.Printf("%s: merge conflict in %d file(s):\n", result.Branch, len(result.Conflicts))
		for _, c := range result.Conflicts {
			fmt.Printf("  %s\n", c)
		}
		fmt.Println("resolve each with `quorum resolve <path> <ours|theirs>`, then `quorum finalize`")
		return nil
	}
	fmt.Printf("%s: merged\n", result.Branch)
	return nil
}

func runResolve(_ *cobra.Command, args []string) error {
	path, strategyArg := args[0], args[1]
	s, err := buildSupervisor()
	if err != nil {
		return err
	}

	var strategy vcs.ConflictStrategy
	switch strategyArg {
	case "ours":
		strategy = vcs.ConflictOurs
	case "theirs":
		strategy = vcs.ConflictTheirs
	case "ai":
		var iterArg string
		if len(args) > 2 {
			iterArg = args[2]
		}
		iterID, err := resolveIterationID(s, iterArg)
		if err != nil {
			return err
		}
		resolution, err := s.ResolveConflictAI(context.Background(), iterID, path)
		if err != nil {
			return err
		}
		fmt.Printf("resolved %s (ai): %s\n", path, resolution.Explanation)
		return nil
	default:
		return fmt.Errorf("unsupported strategy %q, use ours, theirs, or ai", strategyArg)
	}

	if err := s.ResolveConflict(context.Background(), path, strategy); err != nil {
		return err
	}
	fmt.Printf("resolved %s (%s)\n", path, strategyArg)
	return nil
}

func runAbort(_ *cobra.Command, _ []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	if err := s.AbortMerge(context.Background()); err != nil {
		return err
	}
	fmt.Println("merge aborted")
	return nil
}

func runFinalize(_ *cobra.Command, _ []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	sha, err := s.FinalizeMerge(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("merge commit: %s\n", sha)
	return nil
}
