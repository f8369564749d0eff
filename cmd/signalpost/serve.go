package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signalpost/signalpost/internal/api"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflow over HTTP",
	Long: `Starts the HTTP API: start runs, list and inspect instances, and deliver
review decisions. Shuts down cleanly on SIGINT or SIGTERM.

Example:
  signalpost serve --listen :8090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from config, then :8090)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	listen := serveListen
	if listen == "" {
		listen = rt.cfg.Project.API.Listen
	}
	if listen == "" {
		listen = ":8090"
	}

	server := api.NewServer(rt.engine, rt.store, rt.logger)
	cmd.Printf("listening on %s\n", listen)
	return server.Start(ctx, listen)
}
