package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/sketchiq/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing diagram generation, fix, revert and history tools to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openStudio(context.Background())
		if err != nil {
			return err
		}
		defer w.Close()

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "sketchiq MCP server started on stdio (data=%s, history=%d)\n",
			w.cfg.DataDir, len(w.store.State().Entries))

		return mcpserver.NewServer(w.ctrl).Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
