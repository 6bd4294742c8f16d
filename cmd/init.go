package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sketchiq/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sketchiq configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose a provider, model, diagram language and renderer, and generates a .sketchiq.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		if res.Credential == "" {
			return nil
		}

		w, err := openSessionWith(context.Background(), res.Config)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.store.SetCredential(context.Background(), res.Credential); err != nil {
			return fmt.Errorf("storing API key: %w", err)
		}
		fmt.Println("API key saved.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
