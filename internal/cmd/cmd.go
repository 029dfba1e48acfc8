// Package cmd implements the originssl command line interface.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/logging"
)

// Run the main CLI command with the given args. The args should not contain
// the name of the binary (ex: os.Args[1:]).
func Run(ctx context.Context, args ...string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	var (
		verbosity int
		logFile   string
	)

	rootCmd := &cobra.Command{
		Use:           "originssl",
		Short:         "Provision TLS material for authenticated origin pulls",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logFile != "" {
				logging.UseFileLogger(logFile, verbosity)
				return
			}
			logging.Initialize(verbosity)
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "log-verbosity", "v", "Log verbosity, repeat for more detail")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to a rotated file instead of stderr")

	rootCmd.AddCommand(newProvisionCmd())
	rootCmd.AddCommand(newDHParamsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
