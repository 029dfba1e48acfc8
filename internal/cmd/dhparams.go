package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/certinstall"
)

func newDHParamsCmd() *cobra.Command {
	opts := struct {
		Path  string
		Bits  int
		Force bool
	}{}

	cmd := &cobra.Command{
		Use:   "dhparams",
		Short: "Generate the Diffie-Hellman parameter file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			installer := certinstall.NewInstaller(certinstall.InstalledState{
				DHParamsPath: opts.Path,
			})

			var (
				result certinstall.Result
				err    error
			)

			if opts.Force {
				result, err = installer.RegenerateDHParams(opts.Bits)
			} else {
				result, err = installer.EnsureDHParams(opts.Bits)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", opts.Path, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Path, "dh-params-path", "/etc/pki/tls/dhparams.pem", "Install path for DH parameters")
	cmd.Flags().IntVar(&opts.Bits, "bits", certinstall.MinDHParamBits, "Parameter strength in bits")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Regenerate even if sufficient parameters exist")

	return cmd
}
