package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/podmirror/internal/config"
	"github.com/michaelbrown/podmirror/internal/server"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the podmirror HTTP server",
	Long: `Start the podmirror HTTP API.

POST /api/run executes one request; GET /api/run/ws streams lifecycle
stages over a websocket. Requests run concurrently, each in its own
workspace and process.

Examples:
  podmirror serve
  podmirror serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	port := cfg.Server.Port
	if portFlag != 0 {
		port = portFlag
	}

	srv := server.New(cfg, buildOrchestrator(cfg))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("received %v", sig)
		return srv.Shutdown(context.Background())
	}
}
