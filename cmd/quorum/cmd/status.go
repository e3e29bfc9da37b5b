package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [iteration-id]",
	Short: "Show an iteration's phase and task progress",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(_ *cobra.Command, args []string) error {
	s, err := buildSupervisor()
	if err != nil {
		return err
	}
	iterID, err := resolveIterationID(s, firstArg(args))
	if err != nil {
		return err
	}

	st, err := s.StatusFor(iterID)
	if err != nil {
		return err
	}

	if statusJSON {
		return OutputJSON(st)
	}

	fmt.Printf("iteration: %s\n", st.Iteration.ID)
	fmt.Printf("phase:     %s\n", st.Iteration.Phase)
	fmt.Printf("status:    %s\n", st.Iteration.Status)
	if st.Iteration.CurrentLayer != nil {
		fmt.Printf("layer:     %d\n", *st.Iteration.CurrentLayer)
	}
	fmt.Printf("tasks:     %d pending, %d done, %d blocked\n", st.Pending, st.Done, st.Blocked)
	for _, t := range st.Tasks {
		fmt.Printf("  [%s] layer %d %-10s %-8s %s\n", t.ID, t.Layer, t.AssignedTo, t.Status, TruncateString(t.Description, 60))
	}
	return nil
}
