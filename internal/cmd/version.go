package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), internal.FullVersion())
			return nil
		},
	}
}
