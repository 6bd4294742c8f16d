package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sketchiq/internal/attempts"
	"github.com/ziadkadry99/sketchiq/internal/config"
	"github.com/ziadkadry99/sketchiq/internal/diagram"
	"github.com/ziadkadry99/sketchiq/internal/llm"
	"github.com/ziadkadry99/sketchiq/internal/prompt"
)

// minOutputTokens is the floor used when guessing the size of a reply.
const minOutputTokens = 300

var costCmd = &cobra.Command{
	Use:   "cost <instruction>",
	Short: "Estimate what a generate call would cost",
	Long:  `Builds the prompt a generate call would send, estimates its tokens and cost without calling the model, and reports what the ledger has spent so far.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCost,
}

func init() {
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	w, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer w.Close()
	cfg := w.cfg

	lang, err := diagram.ParseLanguage(cfg.Language)
	if err != nil {
		return err
	}
	text, err := prompt.NewBuilder(lang.DisplayName()).Build(strings.Join(args, " "), w.store.Source())
	if err != nil {
		return err
	}

	in := llm.EstimateTokens(text)
	out := max(llm.EstimateTokens(w.store.Source()), minOutputTokens)

	fmt.Println("Cost Estimate")
	fmt.Println("=============")
	fmt.Printf("  Prompt tokens:       ~%d\n", in)
	fmt.Printf("  Reply tokens:        ~%d\n", out)
	fmt.Printf("  %s: $%.6f\n", cfg.Model, llm.EstimateCost(cfg.Model, in, out))
	fmt.Println()

	fmt.Println("  Provider Comparison:")
	for _, p := range []config.ProviderType{
		config.ProviderGoogle,
		config.ProviderOpenAI,
		config.ProviderAnthropic,
	} {
		model := config.PresetModel(p)
		marker := " "
		if model == cfg.Model {
			marker = "*"
		}
		fmt.Printf("  %s %-10s ~$%.6f  (model: %s)\n", marker, p, llm.EstimateCost(model, in, out), model)
	}
	fmt.Println()

	sum, err := attempts.NewStore(w.db).Summarize(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  Spent so far: $%.4f over %d attempts\n", sum.CostUSD, sum.Total)
	fmt.Println("  Note: actual costs may vary based on reply length and fix attempts.")
	return nil
}
