package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/caffeineduck/webbridge/hostfunc"
	"github.com/caffeineduck/webbridge/internal/server"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Drive the bridge by hand",
	Long: `Start an interactive prompt that plays the part of the guest.

Commands:
  json <text>   Forward <text> as a JSON payload
  exit          Send the exit notification
  replay        Send the replay notification
  quit          Leave the console (or press Ctrl+D)

With --serve the host page is also served, so connected browsers see
every message and reload on exit.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().Bool("serve", false, "Also serve the host page")
	consoleCmd.Flags().IntP("port", "p", 8080, "Port to listen on with --serve")
	consoleCmd.Flags().String("history", "", "History file path (default: ~/.webbridge_history)")
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	serve, _ := cmd.Flags().GetBool("serve")
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".webbridge_history")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	page := newPage(cfg, log)
	bridge := hostfunc.NewBridge(page,
		hostfunc.WithTargetOrigin(cfg.TargetOrigin),
		hostfunc.WithLogger(log),
	)

	if serve {
		srv := server.New(cfg, page, log)
		defer srv.Close()
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("server stopped")
			}
		}()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "bridge> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("json"),
			readline.PcItem("exit"),
			readline.PcItem("replay"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "webbridge console (type 'quit' or Ctrl+D to leave)")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		quit, err := consoleExec(ctx, bridge, line)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if quit {
			return nil
		}
	}
}

// consoleExec runs one console line against b and reports whether the
// console should end.
func consoleExec(ctx context.Context, b *hostfunc.Bridge, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	name, rest, _ := strings.Cut(line, " ")

	switch name {
	case "json":
		b.SendPayload(ctx, strings.TrimSpace(rest))
	case "exit":
		b.SendExit(ctx)
	case "replay":
		b.SendReplay(ctx)
	case "quit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (json, exit, replay, quit)", name)
	}
	return false, nil
}
