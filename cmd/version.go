package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.olrik.dev/rekindle/internal/core"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "rekindle %s\n", core.FormatVersion(core.Version))
		},
	}
}
