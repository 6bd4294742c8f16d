package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sketchiq",
	Short: "Turn plain-language descriptions into diagrams",
	Long: `sketchiq sends a description to a language model, renders the Mermaid or
Graphviz source it returns, and keeps a local history of every diagram.
When the source does not render you can ask the model to fix it or
revert to the previous diagram.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".sketchiq.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
