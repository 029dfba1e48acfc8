package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/certinstall"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/cmd/cliopts"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/provision"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/pki"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/secrets"
)

const envPrefix = "ORIGINSSL"

type provisionOptions struct {
	provision.Request
	certinstall.InstalledState

	SecretStore          secrets.Config     `yaml:"secretStore" config:"secret-store"`
	OriginCA             pki.OriginCAConfig `yaml:"originCA" config:"origin-ca"`
	SelfSigned           bool               `yaml:"selfSigned" config:"self-signed"`
	ReloadCommand        []string           `yaml:"reloadCommand" config:"reload-command"`
	RefreshThresholdDays int                `yaml:"refreshThresholdDays" config:"refresh-threshold-days"`
}

func defaultProvisionOptions() provisionOptions {
	return provisionOptions{
		InstalledState: certinstall.InstalledState{
			CACertPath:     "/etc/pki/ca-trust/source/anchors/origin-pull-ca.pem",
			OriginCertPath: "/etc/pki/tls/certs/origin.pem",
			OriginKeyPath:  "/etc/pki/tls/private/origin.key",
			DHParamsPath:   "/etc/pki/tls/dhparams.pem",
		},
		SecretStore: secrets.Config{
			Kind:  "awssm",
			Vault: secrets.NewVaultConfig(),
		},
		ReloadCommand: []string{"systemctl", "reload", "nginx"},
	}
}

func newProvisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Obtain and install certificate material for this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadProvisionOptions(cmd)
			if err != nil {
				return err
			}
			return runProvision(cmd, opts)
		},
	}

	cmd.Flags().StringP("config-file", "f", "", "Provisioning configuration file")
	cmd.Flags().String("hostname", "", "Primary hostname for the certificate")
	cmd.Flags().StringSlice("alternative-hostnames", nil, "Additional hostnames to include in the certificate")
	cmd.Flags().String("mode", "", "Provisioning mode, one of generate or deploy")
	cmd.Flags().Bool("generate", false, "Shorthand for --mode generate")
	cmd.Flags().Bool("deploy", false, "Shorthand for --mode deploy")
	cmd.Flags().Int("validity-days", 0, "Requested certificate validity in days (generate mode)")
	cmd.Flags().Int("dh-param-bits", 0, "Diffie-Hellman parameter strength")
	cmd.Flags().String("ca-cert-path", "", "Install path for the origin pull CA certificate")
	cmd.Flags().String("origin-cert-path", "", "Install path for the origin certificate")
	cmd.Flags().String("origin-key-path", "", "Install path for the origin private key")
	cmd.Flags().String("dh-params-path", "", "Install path for DH parameters")
	cmd.Flags().StringSlice("reload-command", nil, "Command to reload the web server after changes")
	cmd.Flags().Bool("self-signed", false, "Use a local self-signed CA instead of the origin CA API")
	cmd.Flags().String("service-key", "", "Origin CA service key (secret)")

	return cmd
}

func loadProvisionOptions(cmd *cobra.Command) (provisionOptions, error) {
	opts := defaultProvisionOptions()

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return opts, err
	}

	err = cliopts.Load(&opts, cliopts.Options{
		Filename:  configFile,
		EnvPrefix: envPrefix,
		Flags:     cmd.Flags(),
	})
	if err != nil {
		return opts, err
	}

	// convenience mode flags; the request itself carries a single mode
	generate, _ := cmd.Flags().GetBool("generate")
	deploy, _ := cmd.Flags().GetBool("deploy")

	switch {
	case generate && deploy:
		return opts, provision.ValidationError{
			Field:  "mode",
			Reason: "--generate and --deploy are mutually exclusive",
		}
	case generate:
		opts.Mode = provision.ModeGenerateViaAPI
	case deploy:
		opts.Mode = provision.ModeDeployFromStore
	}

	if serviceKey, _ := cmd.Flags().GetString("service-key"); serviceKey != "" {
		opts.OriginCA.ServiceKey = serviceKey
	}

	return opts, nil
}

func runProvision(cmd *cobra.Command, opts provisionOptions) error {
	if err := opts.Request.Validate(); err != nil {
		return err
	}

	provisioner := &provision.Provisioner{
		State:            opts.InstalledState,
		RefreshThreshold: time.Duration(opts.RefreshThresholdDays) * 24 * time.Hour,
	}

	switch opts.Mode {
	case provision.ModeGenerateViaAPI:
		if opts.SelfSigned {
			issuer, err := pki.NewSelfSignedIssuer("", 0)
			if err != nil {
				return err
			}
			provisioner.Issuer = issuer
		} else {
			provisioner.Issuer = pki.NewOriginCAClient(opts.OriginCA)
		}

	case provision.ModeDeployFromStore:
		store, err := secrets.NewFromConfig(opts.SecretStore)
		if err != nil {
			return fmt.Errorf("configuring secret store: %w", err)
		}
		provisioner.Secrets = store
	}

	runner := &provision.Runner{
		Provisioner: provisioner,
		Installer:   certinstall.NewInstaller(opts.InstalledState),
		Reloader:    certinstall.ExecReloader{Command: opts.ReloadCommand},
	}

	changed, err := runner.Run(cmd.Context(), opts.Request)
	if err != nil {
		return err
	}

	if changed {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: changed\n", opts.Hostname)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: unchanged\n", opts.Hostname)
	}

	return nil
}
