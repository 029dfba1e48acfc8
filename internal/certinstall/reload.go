package certinstall

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/desmith/desmith-ansible-role-cloudflare-ssl/internal/logging"
)

// Reloader signals the web server to pick up new certificate material. It is
// invoked at most once per provisioning run, and only when something
// changed.
type Reloader interface {
	NotifyReload(ctx context.Context) error
}

// ExecReloader runs a command, typically `systemctl reload nginx`.
type ExecReloader struct {
	Command []string
}

var _ Reloader = ExecReloader{}

func (r ExecReloader) NotifyReload(ctx context.Context) error {
	if len(r.Command) == 0 {
		return fmt.Errorf("no reload command configured")
	}

	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		// the full output can be long, keep it out of the returned error
		logging.Errorf("reload command %v output: %s", r.Command, out)
		return fmt.Errorf("reload command %v: %w", r.Command, err)
	}

	logging.Infof("reloaded web server with %v", r.Command)

	return nil
}
