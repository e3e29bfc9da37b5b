package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MBifolco/gotg-sub000/internal/supervisor"
)

var groomCmd = &cobra.Command{
	Use:   "groom <topic>",
	Short: "Run an independent grooming session on a topic",
	Long: `Runs a standalone refinement conversation under .team/grooming/<slug>/,
using the same session engine and conversation log as a normal iteration
but with no phase machinery, task store, or write access. Use it to
explore future work without committing to an iteration.`,
	Args: cobra.ExactArgs(1),
	RunE: runGroom,
}

var groomListCmd = &cobra.Command{
	Use:   "grooming",
	Short: "List grooming sessions",
	Args:  cobra.NoArgs,
	RunE:  runGroomList,
}

var (
	groomSlug     string
	groomMaxTurns int
)

func init() {
	groomCmd.Flags().StringVar(&groomSlug, "slug", "", "continue an existing grooming session instead of starting a new one")
	groomCmd.Flags().IntVar(&groomMaxTurns, "max-turns", 6, "agent turns to run before stopping")
	rootCmd.AddCommand(groomCmd, groomListCmd)
}

func runGroom(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	slug := groomSlug
	if slug == "" {
		slug = supervisor.GroomingSlug(args[0])
	}
	out, err := s.RunGrooming(context.Background(), slug, args[0], groomMaxTurns)
	if err != nil {
		return err
	}
	fmt.Printf("grooming session %s: %d agent turn(s)\n", out.Slug, out.SessionTurns)
	return nil
}

func runGroomList(_ *cobra.Command, _ []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	slugs, err := s.ListGroomingSessions()
	if err != nil {
		return err
	}
	for _, slug := range slugs {
		fmt.Println(slug)
	}
	return nil
}
