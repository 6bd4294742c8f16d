package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sketchiq/internal/export"
	"github.com/ziadkadry99/sketchiq/internal/progress"
	"github.com/ziadkadry99/sketchiq/internal/studio"
)

var generateCmd = &cobra.Command{
	Use:   "generate <instruction>",
	Short: "Create or update the diagram from a description",
	Long: `Sends the description, together with the current diagram, to the model
and renders the result. When the result does not render you are asked
whether to let the model fix it or to keep the previous diagram.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("out", "o", "", "also write the rendered SVG to this file")
	generateCmd.Flags().String("on-failure", "ask", "what to do when the diagram does not render: ask, fix or revert")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	onFailure, _ := cmd.Flags().GetString("on-failure")
	switch onFailure {
	case "ask", "fix", "revert":
	default:
		return fmt.Errorf("invalid --on-failure %q: must be ask, fix or revert", onFailure)
	}
	outPath, _ := cmd.Flags().GetString("out")

	w, err := openStudio(ctx)
	if err != nil {
		return err
	}
	defer w.Close()
	w.ctrl.SetReporter(progress.NewReporter())

	res, err := w.ctrl.Generate(ctx, strings.Join(args, " "))
	for err == nil && res.Status == studio.StatusAwaitingChoice {
		rec := res.Recovery
		fmt.Fprintf(os.Stderr, "Render failed: %s\n", rec.Message)

		action, chooseErr := chooseAction(rec, onFailure, w.ctrl.MaxFixAttempts())
		if chooseErr != nil {
			return chooseErr
		}
		if action == studio.ActionRevert {
			if err := w.ctrl.Revert(ctx); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, studio.NoteReverted)
			return nil
		}
		res, err = w.ctrl.Fix(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Println(res.Source)
	if outPath != "" && res.Output != nil {
		path, err := export.WriteFile(outPath, res.Output)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "%s (%s)\n", studio.NoteCommitted, time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// chooseAction decides how to continue after a render failure. Fixing
// falls back to reverting once it is no longer offered.
func chooseAction(rec *studio.Recovery, mode string, maxFix int) (studio.Action, error) {
	if !rec.Allows(studio.ActionFix) {
		if mode == "ask" {
			fmt.Fprintf(os.Stderr, "Fix limit of %d reached.\n", maxFix)
		}
		return studio.ActionRevert, nil
	}
	switch mode {
	case "fix":
		return studio.ActionFix, nil
	case "revert":
		return studio.ActionRevert, nil
	}

	sel := promptui.Select{
		Label: fmt.Sprintf("The diagram did not render (fix %d of %d)", rec.Depth+1, maxFix),
		Items: []string{"Fix: ask the model to correct it", "Revert: keep the previous diagram"},
	}
	idx, _, err := sel.Run()
	if err != nil {
		return "", fmt.Errorf("choosing action: %w", err)
	}
	if idx == 0 {
		return studio.ActionFix, nil
	}
	return studio.ActionRevert, nil
}
