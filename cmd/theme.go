package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var themeCmd = &cobra.Command{
	Use:       "theme [dark|light]",
	Short:     "Show or set the diagram theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"dark", "light"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		w, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		if len(args) == 0 {
			dark, err := w.store.DarkMode(ctx)
			if err != nil {
				return err
			}
			if dark {
				fmt.Println("dark")
			} else {
				fmt.Println("light")
			}
			return nil
		}

		switch args[0] {
		case "dark":
			err = w.store.SetDarkMode(ctx, true)
		case "light":
			err = w.store.SetDarkMode(ctx, false)
		default:
			return fmt.Errorf("unknown theme %q: must be dark or light", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("Theme set to %s.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
}
