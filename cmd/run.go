package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.olrik.dev/rekindle/internal/core"
	"go.olrik.dev/rekindle/internal/journal"
	"go.olrik.dev/rekindle/internal/notify"
	"go.olrik.dev/rekindle/internal/runloop"
)

func NewRunCommand() *cobra.Command {
	var dir string

	runCmd := &cobra.Command{
		Use:   "run -- COMMAND [ARG...]",
		Short: "Run a command and restart it whenever it exits",
		Long: `Run a build/run command in a loop, restarting it every time it exits.

Each exit is classified from the child's exit status and captured output:
externally terminated runs restart immediately after the base delay, while
compile errors back off linearly and pause for confirmation after too many
in a row. Intended as the counterpart to 'rekindle watch'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := core.Config
			command := strings.Join(args, " ")

			// PTY execution only makes sense when we actually have a terminal
			runCfg := cfg.Run
			runCfg.PTY = runCfg.PTY && term.IsTerminal(int(os.Stdout.Fd()))

			notifier := notify.New(cfg.Notifications)
			session, err := runloop.NewSession(command, dir, runCfg, cfg.Markers, notifier)
			if err != nil {
				return err
			}
			defer session.Cleanup()

			if cfg.Journal.Enabled {
				j, err := journal.Open(cfg.JournalPath())
				if err != nil {
					slog.Warn("Failed to open event journal", "error", err)
				} else {
					session.SetJournal(j)
					defer j.Close()
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session.Run(ctx)
			slog.Info("Shutting down")
			return nil
		},
	}
	runCmd.Flags().StringVarP(&dir, "dir", "d", "", "working directory for the command (default: current directory)")

	return runCmd
}
