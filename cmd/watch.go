package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go.olrik.dev/rekindle/internal/core"
	"go.olrik.dev/rekindle/internal/journal"
	"go.olrik.dev/rekindle/internal/watcher"
)

func NewWatchCommand() *cobra.Command {
	var dir string
	var timeout time.Duration

	watchCmd := &cobra.Command{
		Use:   "watch PORT",
		Short: "Watch a directory tree and reap the port's occupant on changes",
		Long: `Watch a directory tree recursively and, whenever anything under it
changes, terminate whichever process is currently listening on PORT.

Intended as the counterpart to 'rekindle run': killing the server is what
makes the run loop start the next build.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := parsePort(args[0])
			if err != nil {
				return err
			}

			cfg := core.Config
			watchCfg := cfg.Watch
			if cmd.Flags().Changed("timeout") {
				watchCfg.PollTimeout = timeout
			}

			reaper, err := watcher.New(port, dir, watchCfg)
			if err != nil {
				return err
			}
			defer reaper.Close()

			if cfg.Journal.Enabled {
				j, err := journal.Open(cfg.JournalPath())
				if err != nil {
					slog.Warn("Failed to open event journal", "error", err)
				} else {
					reaper.SetJournal(j)
					defer j.Close()
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return reaper.Run(ctx)
		},
	}
	watchCmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory tree to watch")
	watchCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "idle heartbeat timeout for a watch cycle")

	return watchCmd
}

// parsePort validates the port argument: any positive integer is accepted.
func parsePort(arg string) (uint32, error) {
	port, err := strconv.Atoi(arg)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("invalid port %q: must be a positive integer", arg)
	}
	return uint32(port), nil
}
