package orgs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenantry/internal/domain"
)

// DefaultGracePeriod is how old a journal entry or dangling record must be
// before the reconciler treats it as abandoned.
const DefaultGracePeriod = 10 * time.Minute

// Notifier receives reconciliation reports.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Outcomes recorded for resolved journal entries.
const (
	OutcomeCompleted      = "completed"
	OutcomeLinkedAdmin    = "linked administrator"
	OutcomeDroppedTarget  = "dropped unreferenced target collection"
	OutcomeRolledForward  = "rolled rename forward"
	OutcomeFinishedDelete = "finished delete"
	OutcomeSkippedLocked  = "skipped, lease held"
)

// Action records what the reconciler did with one journal entry.
type Action struct {
	Operation    uuid.UUID
	Kind         domain.OperationKind
	Organization string
	Outcome      string
}

// Report summarises one reconciliation run.
type Report struct {
	StartedAt      time.Time
	FinishedAt     time.Time
	Actions        []Action
	DeletedAdmins  []uuid.UUID
	Orphans        []string
	DroppedOrphans []string
	Failures       []string
}

// Clean reports whether the run found nothing to repair.
func (r *Report) Clean() bool {
	return len(r.Actions) == 0 && len(r.DeletedAdmins) == 0 &&
		len(r.Orphans) == 0 && len(r.Failures) == 0
}

// Summary renders the report as plain text for notifications.
func (r *Report) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "journal entries: %d\n", len(r.Actions))
	for _, a := range r.Actions {
		fmt.Fprintf(&b, "  %s %q: %s\n", a.Kind, a.Organization, a.Outcome)
	}
	fmt.Fprintf(&b, "dangling administrators deleted: %d\n", len(r.DeletedAdmins))
	fmt.Fprintf(&b, "orphan collections: %d", len(r.Orphans))
	if len(r.Orphans) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(r.Orphans, ", "))
	}
	b.WriteString("\n")
	if len(r.DroppedOrphans) > 0 {
		fmt.Fprintf(&b, "dropped: %s\n", strings.Join(r.DroppedOrphans, ", "))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "failure: %s\n", f)
	}

	return strings.TrimRight(b.String(), "\n")
}

// ReconcilerOptions tune a Reconciler.
type ReconcilerOptions struct {
	GracePeriod time.Duration
	DropOrphans bool
	// Now overrides the clock; nil uses the wall clock.
	Now func() time.Time
}

// Reconciler repairs the state left behind by interrupted lifecycle
// sequences: pending journal entries, administrators without an organization
// and tenant collections no organization references.
type Reconciler struct {
	svc         *Service
	notifier    Notifier
	grace       time.Duration
	dropOrphans bool
	now         func() time.Time
}

// NewReconciler builds a Reconciler over the service's collaborators.
// notifier may be nil.
func NewReconciler(svc *Service, notifier Notifier, opts ReconcilerOptions) *Reconciler {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Reconciler{
		svc:         svc,
		notifier:    notifier,
		grace:       opts.GracePeriod,
		dropOrphans: opts.DropOrphans,
		now:         opts.Now,
	}
}

// Run performs one sweep. Individual repair failures are collected in the
// report; an error is returned only when the sweep could not run at all.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: r.now()}
	cutoff := report.StartedAt.Add(-r.grace)

	pending, err := r.svc.journal.ListPending(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("orgs.Reconciler.Run: list journal: %w", classify(err))
	}

	for _, op := range pending {
		outcome, err := r.resolve(ctx, op)
		if err != nil {
			report.Failures = append(report.Failures,
				fmt.Sprintf("%s %q (%s): %v", op.Kind, op.OrganizationName, op.ID, err))
			continue
		}
		report.Actions = append(report.Actions, Action{
			Operation:    op.ID,
			Kind:         op.Kind,
			Organization: op.OrganizationName,
			Outcome:      outcome,
		})
	}

	if err := r.sweepAdmins(ctx, cutoff, report); err != nil {
		report.Failures = append(report.Failures, err.Error())
	}

	if err := r.sweepCollections(ctx, report); err != nil {
		report.Failures = append(report.Failures, err.Error())
	}

	report.FinishedAt = r.now()
	r.publish(ctx, report)

	return report, nil
}

func (r *Reconciler) resolve(ctx context.Context, op *domain.PendingOperation) (string, error) {
	ctx, release, err := r.svc.lease(ctx, op.OrganizationName, op.TargetName)
	if errors.Is(err, domain.ErrLocked) {
		return OutcomeSkippedLocked, nil
	}
	if err != nil {
		return "", err
	}
	defer release()

	var outcome string
	switch op.Kind {
	case domain.OperationCreate:
		outcome, err = r.resolveCreate(ctx, op)
	case domain.OperationRename:
		outcome, err = r.resolveRename(ctx, op)
	case domain.OperationDelete:
		outcome, err = r.resolveDelete(ctx, op)
	default:
		err = fmt.Errorf("unknown operation kind %q", op.Kind)
	}
	if err != nil {
		return "", err
	}

	if err := r.svc.journal.Complete(ctx, op.ID); err != nil {
		return "", fmt.Errorf("complete: %w", classify(err))
	}

	log.Info().Str("operation", op.ID.String()).Str("kind", string(op.Kind)).
		Str("org", op.OrganizationName).Str("outcome", outcome).Msg("reconciled journal entry")

	return outcome, nil
}

// resolveCreate finishes the administrator back-link when the record was
// written, and otherwise discards the collection the create left behind.
func (r *Reconciler) resolveCreate(ctx context.Context, op *domain.PendingOperation) (string, error) {
	org, err := r.svc.orgs.FindByName(ctx, op.OrganizationName)
	if err != nil {
		return "", classify(err)
	}

	if org != nil && org.CollectionName == op.TargetCollection {
		admin, err := r.svc.admins.GetByID(ctx, org.AdminID)
		if err != nil {
			return "", classify(err)
		}
		if admin != nil && admin.OrganizationID == nil {
			if _, err := r.svc.admins.Update(ctx, admin.ID, domain.AdministratorUpdate{OrganizationID: &org.ID}); err != nil {
				return "", fmt.Errorf("link admin: %w", classify(err))
			}
			return OutcomeLinkedAdmin, nil
		}
		return OutcomeCompleted, nil
	}

	dropped, err := r.dropUnreferenced(ctx, op.TargetCollection)
	if err != nil {
		return "", err
	}
	if dropped {
		return OutcomeDroppedTarget, nil
	}
	return OutcomeCompleted, nil
}

// resolveRename decides which side of an interrupted rename is authoritative.
// While the source collection exists the record still points at it, so the
// partial target is discarded. Once the source is gone the target holds the
// only copy and the record is moved forward onto it.
func (r *Reconciler) resolveRename(ctx context.Context, op *domain.PendingOperation) (string, error) {
	renamed, err := r.svc.orgs.FindByName(ctx, op.TargetName)
	if err != nil {
		return "", classify(err)
	}
	if renamed != nil && renamed.CollectionName == op.TargetCollection {
		if op.SourceCollection != op.TargetCollection {
			if _, err := r.dropUnreferenced(ctx, op.SourceCollection); err != nil {
				return "", err
			}
		}
		return OutcomeCompleted, nil
	}

	org, err := r.svc.orgs.FindByName(ctx, op.OrganizationName)
	if err != nil {
		return "", classify(err)
	}
	if org == nil || org.CollectionName != op.SourceCollection || op.SourceCollection == op.TargetCollection {
		return OutcomeCompleted, nil
	}

	sourceExists, err := r.svc.tenants.Exists(ctx, op.SourceCollection)
	if err != nil {
		return "", classify(err)
	}
	if sourceExists {
		dropped, err := r.dropUnreferenced(ctx, op.TargetCollection)
		if err != nil {
			return "", err
		}
		if dropped {
			return OutcomeDroppedTarget, nil
		}
		return OutcomeCompleted, nil
	}

	targetExists, err := r.svc.tenants.Exists(ctx, op.TargetCollection)
	if err != nil {
		return "", classify(err)
	}
	if !targetExists {
		return "", fmt.Errorf("neither %s nor %s exists", op.SourceCollection, op.TargetCollection)
	}

	name, collection := op.TargetName, op.TargetCollection
	updated, err := r.svc.orgs.Update(ctx, org.Name, domain.OrganizationUpdate{
		Name:           &name,
		CollectionName: &collection,
	})
	if err != nil {
		return "", fmt.Errorf("roll forward: %w", classify(err))
	}
	if updated == nil {
		return "", fmt.Errorf("roll forward: %q: %w", org.Name, domain.ErrNotFound)
	}

	return OutcomeRolledForward, nil
}

// resolveDelete finishes a delete that stopped part way.
func (r *Reconciler) resolveDelete(ctx context.Context, op *domain.PendingOperation) (string, error) {
	org, err := r.svc.orgs.FindByName(ctx, op.OrganizationName)
	if err != nil {
		return "", classify(err)
	}

	if org != nil && org.CollectionName == op.SourceCollection {
		if err := r.svc.teardown(ctx, org); err != nil {
			return "", err
		}
		return OutcomeFinishedDelete, nil
	}

	if _, err := r.dropUnreferenced(ctx, op.SourceCollection); err != nil {
		return "", err
	}
	return OutcomeCompleted, nil
}

// dropUnreferenced drops collection unless an organization points at it.
func (r *Reconciler) dropUnreferenced(ctx context.Context, collection string) (bool, error) {
	if collection == "" {
		return false, nil
	}

	owner, err := r.svc.orgs.FindByCollection(ctx, collection)
	if err != nil {
		return false, classify(err)
	}
	if owner != nil {
		return false, nil
	}

	exists, err := r.svc.tenants.Exists(ctx, collection)
	if err != nil {
		return false, classify(err)
	}
	if !exists {
		return false, nil
	}

	if err := r.svc.tenants.DropCollection(ctx, collection); err != nil {
		return false, fmt.Errorf("drop %s: %w", collection, classify(err))
	}
	return true, nil
}

func (r *Reconciler) sweepAdmins(ctx context.Context, cutoff time.Time, report *Report) error {
	dangling, err := r.svc.admins.ListDangling(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list dangling admins: %w", classify(err))
	}

	for _, admin := range dangling {
		deleted, err := r.svc.admins.Delete(ctx, admin.ID)
		if err != nil {
			report.Failures = append(report.Failures,
				fmt.Sprintf("delete admin %s: %v", admin.ID, classify(err)))
			continue
		}
		if deleted {
			log.Info().Str("admin_id", admin.ID.String()).Str("email", admin.Email).Msg("deleted dangling administrator")
			report.DeletedAdmins = append(report.DeletedAdmins, admin.ID)
		}
	}
	return nil
}

// sweepCollections reports tenant collections that no organization and no
// unfinished journal entry refers to, dropping them when configured.
func (r *Reconciler) sweepCollections(ctx context.Context, report *Report) error {
	collections, err := r.svc.tenants.TenantCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", classify(err))
	}

	orgs, err := r.svc.orgs.List(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", classify(err))
	}

	pending, err := r.svc.journal.ListPending(ctx, r.now().Add(time.Second))
	if err != nil {
		return fmt.Errorf("list journal: %w", classify(err))
	}

	referenced := make(map[string]bool, len(orgs)+2*len(pending))
	for _, org := range orgs {
		referenced[org.CollectionName] = true
	}
	for _, op := range pending {
		referenced[op.SourceCollection] = true
		referenced[op.TargetCollection] = true
	}

	for _, collection := range collections {
		if referenced[collection] {
			continue
		}
		report.Orphans = append(report.Orphans, collection)

		if !r.dropOrphans {
			log.Warn().Str("collection", collection).Msg("orphan tenant collection")
			continue
		}

		dropped, err := r.dropOrphan(ctx, collection)
		if err != nil {
			report.Failures = append(report.Failures, fmt.Sprintf("drop orphan %s: %v", collection, err))
			continue
		}
		if dropped {
			log.Info().Str("collection", collection).Msg("dropped orphan tenant collection")
			report.DroppedOrphans = append(report.DroppedOrphans, collection)
		}
	}

	return nil
}

func (r *Reconciler) dropOrphan(ctx context.Context, collection string) (bool, error) {
	ctx, release, err := r.svc.acquire(ctx, LeaseKey(collection))
	if errors.Is(err, domain.ErrLocked) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer release()

	return r.dropUnreferenced(ctx, collection)
}

func (r *Reconciler) publish(ctx context.Context, report *Report) {
	evt := log.Info()
	if !report.Clean() {
		evt = log.Warn()
	}
	evt.Int("actions", len(report.Actions)).
		Int("deleted_admins", len(report.DeletedAdmins)).
		Int("orphans", len(report.Orphans)).
		Int("failures", len(report.Failures)).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("reconciliation finished")

	if r.notifier == nil || report.Clean() {
		return
	}
	if err := r.notifier.Notify(ctx, "tenantry reconciliation report", report.Summary()); err != nil {
		log.Warn().Err(err).Msg("failed to deliver reconciliation report")
	}
}
