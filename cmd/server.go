package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sketchiq/internal/dashboard"
	"github.com/ziadkadry99/sketchiq/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the web dashboard",
	Long:  `Starts the sketchiq web dashboard with its REST API and websocket chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openStudio(context.Background())
		if err != nil {
			return err
		}
		defer w.Close()

		port := w.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		// A fix runs one model call and one render, each bounded by the
		// request timeout.
		handlerTimeout := time.Duration(0)
		if w.cfg.RequestTimeout > 0 {
			handlerTimeout = 2*w.cfg.RequestTimeout + 30*time.Second
		}

		srv := server.New(server.Config{
			Port:           port,
			AllowAll:       w.cfg.Server.AllowAllOrigins,
			HandlerTimeout: handlerTimeout,
		})
		dashboard.New(w.ctrl).RegisterRoutes(srv.Router())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "sketchiq server %s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Provider: %s (%s)\n", w.cfg.Provider, w.cfg.Model)
		fmt.Fprintf(os.Stderr, "  Data: %s\n", w.cfg.DataDir)

		return srv.Start()
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
