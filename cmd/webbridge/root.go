package main

import (
	"fmt"
	"os"
	"time"

	"github.com/caffeineduck/webbridge/executor"
	"github.com/caffeineduck/webbridge/host"
	"github.com/caffeineduck/webbridge/hostfunc"
	"github.com/caffeineduck/webbridge/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "webbridge",
	Short: "Host a WebAssembly game build and bridge it to a web page",
	Long: `webbridge - Run a WebAssembly (WASI) game build and relay what it sends
to its host page.

The guest calls three host functions: send_json forwards a JSON payload to
the page, send_exit raises the "exit" notification, and send_replay raises
"replay". The page reloads on exit.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./webbridge.yaml if present)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable compilation cache")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console, json")
	rootCmd.PersistentFlags().String("target-origin", "*", "Target origin for forwarded payloads")
	rootCmd.PersistentFlags().String("page-origin", "http://localhost:8080", "Origin of the host page")
}

func addGuestFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 0, "Guest execution timeout (0 = none)")
	cmd.Flags().String("memory", "256mb", "Memory limit: 1mb, 16mb, 64mb, 256mb, 1gb")
}

// setup loads config and builds the logger for cmd.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(file, cmd.Flags())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}

// newPage returns a page that logs everything the bridge delivers.
func newPage(cfg *config.Config, log zerolog.Logger) *host.Page {
	page := host.NewPage(host.WithOrigin(cfg.PageOrigin), host.WithLogger(log))
	page.OnMessage(func(m host.Message) {
		log.Info().Str("data", m.Data).Str("target_origin", m.TargetOrigin).Msg("message")
	})
	host.OnExit(page, func(flag bool) {
		log.Info().Bool("exit", flag).Msg("exit")
	})
	host.OnReplay(page, func(flag bool) {
		log.Info().Bool("replay", flag).Msg("replay")
	})
	return page
}

// newBridgeExecutor registers the bridge for page and returns an executor
// dispatching to it.
func newBridgeExecutor(cmd *cobra.Command, cfg *config.Config, log zerolog.Logger, page *host.Page, precompile ...executor.Guest) (*executor.Executor, error) {
	registry := hostfunc.NewRegistry()
	hostfunc.NewBridge(page,
		hostfunc.WithTargetOrigin(cfg.TargetOrigin),
		hostfunc.WithLogger(log),
	).Register(registry)

	noCache, _ := cmd.Flags().GetBool("no-cache")

	execOpts := []executor.ExecutorOption{executor.WithLogger(log)}
	if !noCache {
		execOpts = append(execOpts, executor.WithDiskCache())
	}
	if pages := executor.ParseMemoryLimit(cfg.Memory); pages > 0 {
		execOpts = append(execOpts, executor.WithMemoryLimit(pages))
	}
	if len(precompile) > 0 {
		execOpts = append(execOpts, executor.WithPrecompile(precompile...))
	}

	exec, err := executor.New(registry, execOpts...)
	if err != nil {
		return nil, fmt.Errorf("create executor: %w", err)
	}
	return exec, nil
}

func runOptions(cmd *cobra.Command, cfg *config.Config, guestArgs []string) []executor.Option {
	opts := []executor.Option{executor.WithOutput(cmd.OutOrStdout())}
	if cfg.Timeout > 0 {
		opts = append(opts, executor.WithTimeout(cfg.Timeout))
	}
	if len(guestArgs) > 0 {
		opts = append(opts, executor.WithArgs(guestArgs...))
	}
	return opts
}

func logResult(log zerolog.Logger, r executor.Result) {
	log.Info().
		Int("calls", r.Calls).
		Str("duration", r.Duration.Round(time.Millisecond).String()).
		Msg("guest exited")
}
