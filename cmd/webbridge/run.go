package main

import (
	"context"
	"path/filepath"

	"github.com/caffeineduck/webbridge/executor"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <guest.wasm> [-- guest args...]",
	Short: "Run a guest headless and log what it sends",
	Long: `Run a WASI guest without a browser. Every payload and notification the
guest sends through the bridge is logged. Guest stdout and stderr are
printed as-is.

  webbridge run build/game.wasm
  webbridge run build/game.wasm -- --level 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	addGuestFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	g, err := executor.LoadGuest(args[0])
	if err != nil {
		return err
	}

	page := newPage(cfg, log)
	exec, err := newBridgeExecutor(cmd, cfg, log, page)
	if err != nil {
		return err
	}
	defer exec.Close()

	result := exec.Run(context.Background(), g, runOptions(cmd, cfg, guestArgs(args))...)
	logResult(log, result)
	return result.Error
}

// guestArgs returns argv for the guest: the file's base name followed by
// anything after the guest path.
func guestArgs(args []string) []string {
	if len(args) <= 1 {
		return nil
	}
	return append([]string{filepath.Base(args[0])}, args[1:]...)
}
