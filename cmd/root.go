package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"go.olrik.dev/rekindle/internal/core"
	"go.olrik.dev/rekindle/internal/logging"
)

func NewRootCommand() *cobra.Command {
	var configPath string
	var verbose int

	homeDir, _ := os.UserHomeDir()
	closeLogging := func() {}

	rootCmd := &cobra.Command{
		Use:   "rekindle",
		Short: "Rekindle - hot-reload supervisor",
		Long: `Rekindle keeps a development server restarting on source changes.

Run 'rekindle watch PORT' in one terminal to kill the port's occupant when
the tree changes, and 'rekindle run -- COMMAND' in another to restart the
command every time it exits. The two coordinate only through the operating
system: the watcher kills, the runner notices its child died.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := core.InitializeConfig(cmd); err != nil {
				return err
			}
			wd, _ := os.Getwd()
			closeLogging = logging.Setup(core.Config.Verbose, core.Config.LogFile, wd)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLogging()
		},
	}
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config-path", filepath.Join(homeDir, core.BaseDirName),
		"config path",
	)
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "more output, repeat for even more")

	rootCmd.AddCommand(
		NewRunCommand(),
		NewWatchCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}
