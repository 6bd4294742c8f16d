package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sketchiq/internal/attempts"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and manage diagram history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every committed diagram",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		w, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		st := w.store.State()
		if len(st.Entries) == 0 {
			fmt.Println("No diagrams yet.")
			return nil
		}
		for i, e := range st.Entries {
			marker := " "
			if e.Source == st.Source {
				marker = "*"
			}
			fmt.Printf("%s %3d  %s  %s\n", marker, i+1, e.CreatedAt.Local().Format("2006-01-02 15:04"), oneLine(e.Prompt, 60))
		}
		return nil
	},
}

var historySelectCmd = &cobra.Command{
	Use:   "select <n>",
	Short: "Make history entry n the current diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry number %q", args[0])
		}

		ctx := context.Background()
		w, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		entry, err := w.store.Select(ctx, n-1)
		if err != nil {
			return err
		}
		fmt.Printf("Selected %d: %s\n", n, oneLine(entry.Prompt, 60))
		return nil
	},
}

var historyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the conversation, history and current diagram",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			p := promptui.Prompt{Label: "Clear the whole session", IsConfirm: true}
			if _, err := p.Run(); err != nil {
				fmt.Println("Aborted.")
				return nil
			}
		}

		ctx := context.Background()
		w, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		if err := w.store.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("Session cleared.")
		return nil
	},
}

var historyAttemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Show the ledger of generation and fix attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")
		outcome, _ := cmd.Flags().GetString("outcome")
		since, _ := cmd.Flags().GetDuration("since")

		filter := attempts.QueryFilter{
			Kind:    attempts.Kind(kind),
			Outcome: attempts.Outcome(outcome),
			Limit:   limit,
		}
		if since > 0 {
			t := time.Now().Add(-since)
			filter.Since = &t
		}

		ctx := context.Background()
		w, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		ledger := attempts.NewStore(w.db)
		list, err := ledger.Query(ctx, filter)
		if err != nil {
			return err
		}
		for _, a := range list {
			fmt.Printf("%s  %-8s d%d  %-20s %6d/%-6d $%.4f  %s\n",
				a.Timestamp.Local().Format("2006-01-02 15:04:05"), a.Kind, a.Depth, a.Outcome,
				a.InputTokens, a.OutputTokens, a.CostUSD, oneLine(a.Instruction, 40))
			if verbose && a.Error != "" {
				fmt.Printf("    %s\n", oneLine(a.Error, 100))
			}
		}

		sum, err := ledger.Summarize(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\n%d attempts, estimated cost $%.4f\n", sum.Total, sum.CostUSD)
		for _, o := range []attempts.Outcome{
			attempts.OutcomeCommitted,
			attempts.OutcomeRenderFailed,
			attempts.OutcomeReverted,
			attempts.OutcomeMalformed,
			attempts.OutcomeTransportFailed,
			attempts.OutcomeRendererUnavailable,
			attempts.OutcomeCommitFailed,
		} {
			if n := sum.ByOutcome[o]; n > 0 {
				fmt.Printf("  %-20s %d\n", o, n)
			}
		}
		return nil
	},
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func init() {
	historyResetCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	historyAttemptsCmd.Flags().Int("limit", 20, "maximum number of attempts to show")
	historyAttemptsCmd.Flags().String("kind", "", "only show generate or fix attempts")
	historyAttemptsCmd.Flags().String("outcome", "", "only show attempts with this outcome")
	historyAttemptsCmd.Flags().Duration("since", 0, "only show attempts newer than this, e.g. 24h")

	historyCmd.AddCommand(historyListCmd, historySelectCmd, historyResetCmd, historyAttemptsCmd)
	rootCmd.AddCommand(historyCmd)
}
