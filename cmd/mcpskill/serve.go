package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dispatch HTTP server",
	Long: `Start the mcpskill HTTP server with REST API and WebSocket support.

API endpoints are under /api: servers, dispatch, call history, health
and the tool manifest.

Examples:
  mcpskill serve
  mcpskill serve --port 9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.File != "" {
		log.Printf("Config: %s", cfg.File)
	}

	c, err := openServices()
	if err != nil {
		return err
	}
	defer c.Close()

	srv := c.Server()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Health().Schedule(ctx, cfg.Probe.Schedule); err != nil {
		return err
	}

	// Determine port
	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
		srv.Shutdown(context.Background())
	}()

	if err := srv.Start(port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
