package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenantry/internal/orgs"
)

type ReconcileCmd struct {
	DropOrphans bool `help:"Drop tenant collections no organization references, overriding TENANTRY_RECONCILE_DROP_ORPHANS."`
}

func (c *ReconcileCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.DropOrphans {
		cfg.Reconcile.DropOrphans = true
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report := runReconcile(ctx, a.reconciler())
	if report == nil {
		return fmt.Errorf("reconcile did not run")
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("reconcile finished with %d failure(s)", len(report.Failures))
	}
	return nil
}

// runReconcile performs one sweep and logs its outcome. It returns nil when
// the sweep could not start.
func runReconcile(ctx context.Context, rec *orgs.Reconciler) *orgs.Report {
	report, err := rec.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reconcile failed")
		return nil
	}

	evt := log.Info()
	if !report.Clean() {
		evt = log.Warn()
	}
	evt.Int("actions", len(report.Actions)).
		Int("deleted_admins", len(report.DeletedAdmins)).
		Int("orphans", len(report.Orphans)).
		Int("failures", len(report.Failures)).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("reconcile finished")
	return report
}
