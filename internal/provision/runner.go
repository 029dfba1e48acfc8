package provision

import (
	"context"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/certinstall"
	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/logging"
)

// Runner ties the provisioner, the installer, and the reload signal into one
// provisioning pass. The reload signal fires at most once per pass, and only
// after every file operation succeeded.
type Runner struct {
	Provisioner *Provisioner
	Installer   *certinstall.Installer
	Reloader    certinstall.Reloader
}

// Run executes one full provisioning pass and reports whether anything on
// disk changed.
func (r *Runner) Run(ctx context.Context, req Request) (bool, error) {
	bundle, err := r.Provisioner.Provision(ctx, req)
	if err != nil {
		return false, err
	}

	installed, err := r.Installer.Install(
		bundle.CACertificate(),
		bundle.OriginCertificate(),
		bundle.OriginPrivateKey(),
	)
	if err != nil {
		return false, err
	}

	dhResult, err := r.Installer.EnsureDHParams(req.EffectiveDHParamBits())
	if err != nil {
		return false, err
	}

	changed := installed == certinstall.Changed || dhResult == certinstall.Changed
	if !changed {
		logging.Infof("%s is up to date", req.Hostname)
		return false, nil
	}

	logging.Infof("installed %s bundle for %s (certificates %s, dh params %s)",
		bundle.Source(), req.Hostname, installed, dhResult)

	if r.Reloader != nil {
		if err := r.Reloader.NotifyReload(ctx); err != nil {
			return true, err
		}
	}

	return true, nil
}
