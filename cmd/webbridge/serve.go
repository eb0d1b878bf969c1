package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/caffeineduck/webbridge/executor"
	"github.com/caffeineduck/webbridge/host"
	"github.com/caffeineduck/webbridge/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <guest.wasm> [-- guest args...]",
	Short: "Serve the host page and run the guest",
	Long: `Start an HTTP server hosting the page and run the guest against it.

Endpoints:
  GET /          Host page (reloads on exit)
  GET /api/ws    Websocket relaying messages and notifications
  GET /health    Health check

A replay notification restarts the guest once it exits.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringSlice("allowed-origin", nil, "Allowed websocket origin (repeatable, default: any)")
	serveCmd.Flags().Int("send-buffer", 32, "Per-client websocket send buffer")
	serveCmd.Flags().String("mode", "release", "Router mode: release, debug")
	addGuestFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	g, err := executor.LoadGuest(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	page := newPage(cfg, log)

	replay := make(chan struct{}, 1)
	host.OnReplay(page, func(flag bool) {
		if !flag {
			return
		}
		select {
		case replay <- struct{}{}:
		default:
		}
	})

	exec, err := newBridgeExecutor(cmd, cfg, log, page, g)
	if err != nil {
		return err
	}
	defer exec.Close()

	srv := server.New(cfg, page, log)
	defer srv.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
		cancel()
	}()

	opts := runOptions(cmd, cfg, guestArgs(args))
	for ctx.Err() == nil {
		result := exec.Run(ctx, g, opts...)
		logResult(log, result)
		if result.Error != nil && ctx.Err() == nil {
			log.Error().Err(result.Error).Msg("guest failed")
		}

		select {
		case <-ctx.Done():
		case <-replay:
			log.Info().Msg("replaying guest")
		}
	}

	return <-errCh
}
