package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <layer>",
	Short: "Show the per-agent branch diffs for one implementation layer",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(_ *cobra.Command, args []string) error {
	layer, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid layer %q: %w", args[0], err)
	}
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	diffs, err := s.DiffLayer(context.Background(), layer)
	if err != nil {
		return err
	}
	for _, d := range diffs {
		fmt.Printf("%s  +%d -%d  %d file(s)\n", d.Branch, d.Insertions, d.Deletions, len(d.Files))
		for _, f := range d.Files {
			fmt.Printf("  %s\n", f)
		}
	}
	return nil
}
