package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the API key used for generation",
}

var keySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the API key in the session database",
	Long:  `Stores the API key. Without an argument the key is read from a masked prompt so it does not end up in shell history.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			p := promptui.Prompt{Label: "API key", Mask: '*'}
			v, err := p.Run()
			if err != nil {
				return fmt.Errorf("reading key: %w", err)
			}
			key = v
		}

		ctx := context.Background()
		w, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		if err := w.store.SetCredential(ctx, key); err != nil {
			return err
		}
		fmt.Println("API key saved.")
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored API key, masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		w, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		key, err := w.store.Credential(ctx)
		if err != nil {
			return err
		}
		switch {
		case key != "":
			fmt.Println(maskKey(key))
		case w.cfg.EnvAPIKey() != "":
			fmt.Printf("%s (from environment)\n", maskKey(w.cfg.EnvAPIKey()))
		default:
			fmt.Println("No API key set. Run `sketchiq key set`.")
		}
		return nil
	},
}

// maskKey keeps the first four characters.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-4)
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyShowCmd)
	rootCmd.AddCommand(keyCmd)
}
