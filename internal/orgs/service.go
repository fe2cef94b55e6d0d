// Package orgs orchestrates the organization lifecycle: it keeps the
// organization record, its administrator and its tenant collection consistent
// across create, rename, credential update and delete.
package orgs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenantry/internal/domain"
	"github.com/gosuda/tenantry/internal/tenant"
)

// DefaultLeaseTTL bounds how long a crashed holder can block a name.
const DefaultLeaseTTL = 5 * time.Minute

// Identity hashes and verifies administrator credentials and issues tokens.
type Identity interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, credential string) bool
	IssueToken(adminID, orgID uuid.UUID) (string, error)
}

// Deps are the collaborators a Service needs. Publisher may be nil.
type Deps struct {
	Organizations  domain.OrganizationRepository
	Administrators domain.AdministratorRepository
	Journal        domain.OperationJournal
	Tenants        *tenant.Manager
	Identity       Identity
	Locker         domain.Locker
	Publisher      Publisher
}

// Options tune a Service. The zero value is usable.
type Options struct {
	LeaseTTL time.Duration
	// NativeRename moves collections with the store's rename primitive and
	// falls back to copy and drop. When false every rename copies.
	NativeRename bool
	// EventChannel is where lifecycle events are published; empty disables them.
	EventChannel string
}

// Service implements the organization lifecycle operations.
type Service struct {
	orgs      domain.OrganizationRepository
	admins    domain.AdministratorRepository
	journal   domain.OperationJournal
	tenants   *tenant.Manager
	identity  Identity
	locker    domain.Locker
	publisher Publisher

	leaseTTL     time.Duration
	nativeRename bool
	eventChannel string
	now          func() time.Time
}

func NewService(deps Deps, opts Options) *Service {
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = DefaultLeaseTTL
	}

	return &Service{
		orgs:         deps.Organizations,
		admins:       deps.Administrators,
		journal:      deps.Journal,
		tenants:      deps.Tenants,
		identity:     deps.Identity,
		locker:       deps.Locker,
		publisher:    deps.Publisher,
		leaseTTL:     opts.LeaseTTL,
		nativeRename: opts.NativeRename,
		eventChannel: opts.EventChannel,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// UpdateParams lists the changes requested by Update. Nil or empty fields are
// left unchanged.
type UpdateParams struct {
	NewName  *string
	Email    *string
	Password *string
}

// classify marks unclassified failures as storage failures so callers can
// match them with errors.Is.
func classify(err error) error {
	if domain.IsKnown(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

// Create provisions a new organization: its collection with the
// initialization marker, its administrator and the organization record.
// A failure part way leaves the pending journal entry for the reconciler.
func (s *Service) Create(ctx context.Context, name, email, password string) (*domain.Organization, error) {
	name = strings.TrimSpace(name)
	collection := domain.ResolveCollectionName(name)

	ctx, release, err := s.lease(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: %w", err)
	}
	defer release()

	existing, err := s.orgs.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: find org: %w", classify(err))
	}
	if existing != nil {
		return nil, fmt.Errorf("orgs.Service.Create: %q: %w", name, domain.ErrAlreadyExists)
	}

	owner, err := s.orgs.FindByCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: find collection owner: %w", classify(err))
	}
	if owner != nil {
		return nil, fmt.Errorf("orgs.Service.Create: %s held by %q: %w", collection, owner.Name, domain.ErrCollectionConflict)
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: find admin: %w", classify(err))
	}
	if admin != nil {
		return nil, fmt.Errorf("orgs.Service.Create: email %s: %w", email, domain.ErrAlreadyExists)
	}

	if err := s.checkUnfinished(ctx, []string{name}, []string{collection}); err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: %w", err)
	}

	present, err := s.tenants.Exists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: %w", classify(err))
	}
	if present {
		return nil, fmt.Errorf("orgs.Service.Create: unowned collection %s exists: %w", collection, domain.ErrCollectionConflict)
	}

	op, err := s.begin(ctx, &domain.PendingOperation{
		Kind:             domain.OperationCreate,
		OrganizationName: name,
		TargetCollection: collection,
	})
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: %w", err)
	}

	if err := s.tenants.CreateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: create collection: %w", classify(err))
	}
	if err := s.tenants.Seed(ctx, collection); err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: seed collection: %w", classify(err))
	}

	hash, err := s.identity.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: hash password: %w", err)
	}

	admin, err = s.admins.Create(ctx, email, hash, nil)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: create admin: %w", classify(err))
	}

	org, err := s.orgs.Create(ctx, name, collection, admin.ID)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: create org: %w", classify(err))
	}

	if _, err := s.admins.Update(ctx, admin.ID, domain.AdministratorUpdate{OrganizationID: &org.ID}); err != nil {
		return nil, fmt.Errorf("orgs.Service.Create: link admin: %w", classify(err))
	}

	s.complete(ctx, op)

	log.Info().Str("org", org.Name).Str("collection", org.CollectionName).
		Str("admin_id", admin.ID.String()).Msg("organization created")
	s.publish(ctx, EventCreated, org.Name, org.CollectionName, "")

	return org, nil
}

// Get returns the organization named name or ErrNotFound.
func (s *Service) Get(ctx context.Context, name string) (*domain.Organization, error) {
	name = strings.TrimSpace(name)
	org, err := s.orgs.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Get: %w", classify(err))
	}
	if org == nil {
		return nil, fmt.Errorf("orgs.Service.Get: %q: %w", name, domain.ErrNotFound)
	}
	return org, nil
}

// Update renames the organization, changes its administrator's credentials,
// or both. The rename moves the tenant data before the record is rewritten,
// so until the record changes the old name and collection stay authoritative.
func (s *Service) Update(ctx context.Context, name string, params UpdateParams) (*domain.Organization, error) {
	name = strings.TrimSpace(name)
	newName := ""
	if params.NewName != nil {
		newName = strings.TrimSpace(*params.NewName)
	}
	renaming := newName != "" && newName != name

	leased := []string{name}
	if renaming {
		leased = append(leased, newName)
	}
	ctx, release, err := s.lease(ctx, leased...)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Update: %w", err)
	}
	defer release()

	org, err := s.orgs.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Update: find org: %w", classify(err))
	}
	if org == nil {
		return nil, fmt.Errorf("orgs.Service.Update: %q: %w", name, domain.ErrNotFound)
	}

	previous := ""
	if renaming {
		previous = org.Name
		org, err = s.rename(ctx, org, newName)
		if err != nil {
			return nil, fmt.Errorf("orgs.Service.Update: %w", withLeaseCause(ctx, err))
		}
	}

	if err := s.updateCredentials(ctx, org, params); err != nil {
		return nil, fmt.Errorf("orgs.Service.Update: %w", err)
	}

	s.publish(ctx, EventUpdated, org.Name, org.CollectionName, previous)

	return org, nil
}

func (s *Service) rename(ctx context.Context, org *domain.Organization, newName string) (*domain.Organization, error) {
	other, err := s.orgs.FindByName(ctx, newName)
	if err != nil {
		return nil, fmt.Errorf("rename: find target: %w", classify(err))
	}
	if other != nil && other.ID != org.ID {
		return nil, fmt.Errorf("rename: %q: %w", newName, domain.ErrNameConflict)
	}

	newCollection := domain.ResolveCollectionName(newName)
	moving := newCollection != org.CollectionName

	if moving {
		owner, err := s.orgs.FindByCollection(ctx, newCollection)
		if err != nil {
			return nil, fmt.Errorf("rename: find collection owner: %w", classify(err))
		}
		if owner != nil && owner.ID != org.ID {
			return nil, fmt.Errorf("rename: %s held by %q: %w", newCollection, owner.Name, domain.ErrCollectionConflict)
		}
	}

	err = s.checkUnfinished(ctx,
		[]string{org.Name, newName},
		[]string{org.CollectionName, newCollection},
	)
	if err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}

	op, err := s.begin(ctx, &domain.PendingOperation{
		Kind:             domain.OperationRename,
		OrganizationName: org.Name,
		TargetName:       newName,
		SourceCollection: org.CollectionName,
		TargetCollection: newCollection,
	})
	if err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}

	if moving {
		if s.nativeRename {
			err = s.tenants.RenameCollection(ctx, org.CollectionName, newCollection)
		} else {
			err = s.tenants.MigrateCollection(ctx, org.CollectionName, newCollection)
		}
		if err != nil {
			return nil, fmt.Errorf("rename: move collection: %w", classify(err))
		}
	}

	updated, err := s.orgs.Update(ctx, org.Name, domain.OrganizationUpdate{
		Name:           &newName,
		CollectionName: &newCollection,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, fmt.Errorf("rename: %q: %w", newName, domain.ErrNameConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("rename: persist: %w", classify(err))
	}
	if updated == nil {
		return nil, fmt.Errorf("rename: %q vanished: %w", org.Name, domain.ErrNotFound)
	}

	s.complete(ctx, op)

	log.Info().Str("org", updated.Name).Str("previous", org.Name).
		Str("collection", updated.CollectionName).Msg("organization renamed")

	return updated, nil
}

func (s *Service) updateCredentials(ctx context.Context, org *domain.Organization, params UpdateParams) error {
	var upd domain.AdministratorUpdate

	if params.Email != nil && *params.Email != "" {
		upd.Email = params.Email
	}
	if params.Password != nil && *params.Password != "" {
		hash, err := s.identity.HashPassword(*params.Password)
		if err != nil {
			return fmt.Errorf("credentials: hash password: %w", err)
		}
		upd.PasswordHash = &hash
	}
	if upd.Email == nil && upd.PasswordHash == nil {
		return nil
	}

	admin, err := s.admins.Update(ctx, org.AdminID, upd)
	if err != nil {
		return fmt.Errorf("credentials: %w", classify(err))
	}
	if admin == nil {
		return fmt.Errorf("credentials: admin %s: %w", org.AdminID, domain.ErrNotFound)
	}

	log.Info().Str("org", org.Name).Str("admin_id", admin.ID.String()).Msg("administrator credentials updated")
	return nil
}

// Delete removes the organization on behalf of requestingAdminID, which must
// be the organization's administrator. Data goes first, then the
// administrators, then the record.
func (s *Service) Delete(ctx context.Context, name string, requestingAdminID uuid.UUID) error {
	name = strings.TrimSpace(name)
	ctx, release, err := s.lease(ctx, name)
	if err != nil {
		return fmt.Errorf("orgs.Service.Delete: %w", err)
	}
	defer release()

	org, err := s.orgs.FindByName(ctx, name)
	if err != nil {
		return fmt.Errorf("orgs.Service.Delete: find org: %w", classify(err))
	}
	if org == nil {
		return fmt.Errorf("orgs.Service.Delete: %q: %w", name, domain.ErrNotFound)
	}
	if org.AdminID != requestingAdminID {
		return fmt.Errorf("orgs.Service.Delete: %q: %w", name, domain.ErrForbidden)
	}
	if err := s.checkUnfinished(ctx, []string{org.Name}, []string{org.CollectionName}); err != nil {
		return fmt.Errorf("orgs.Service.Delete: %w", err)
	}

	op, err := s.begin(ctx, &domain.PendingOperation{
		Kind:             domain.OperationDelete,
		OrganizationName: org.Name,
		SourceCollection: org.CollectionName,
	})
	if err != nil {
		return fmt.Errorf("orgs.Service.Delete: %w", err)
	}

	if err := s.teardown(ctx, org); err != nil {
		return fmt.Errorf("orgs.Service.Delete: %w", err)
	}

	s.complete(ctx, op)

	log.Info().Str("org", org.Name).Str("collection", org.CollectionName).Msg("organization deleted")
	s.publish(ctx, EventDeleted, org.Name, org.CollectionName, "")

	return nil
}

// teardown drops the collection, the administrators and the record, in that
// order. Every step tolerates a previous partial run.
func (s *Service) teardown(ctx context.Context, org *domain.Organization) error {
	if err := s.tenants.DropCollection(ctx, org.CollectionName); err != nil {
		return fmt.Errorf("drop collection: %w", classify(err))
	}

	n, err := s.admins.DeleteByOrganization(ctx, org.ID)
	if err != nil {
		return fmt.Errorf("delete admins: %w", classify(err))
	}
	if n != 1 {
		log.Warn().Str("org", org.Name).Int64("admins", n).Msg("unexpected administrator count on delete")
	}

	if _, err := s.orgs.Delete(ctx, org.Name); err != nil {
		return fmt.Errorf("delete org: %w", classify(err))
	}
	return nil
}

// Login verifies an administrator's credentials and returns an access token
// scoped to its organization.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("orgs.Service.Login: %w", classify(err))
	}
	if admin == nil || admin.OrganizationID == nil || !s.identity.VerifyPassword(password, admin.PasswordHash) {
		return "", fmt.Errorf("orgs.Service.Login: %w", domain.ErrInvalidCredentials)
	}

	token, err := s.identity.IssueToken(admin.ID, *admin.OrganizationID)
	if err != nil {
		return "", fmt.Errorf("orgs.Service.Login: issue token: %w", err)
	}
	return token, nil
}

// IssueToken returns a fresh token for the administrator's current state.
func (s *Service) IssueToken(ctx context.Context, adminID uuid.UUID) (string, error) {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return "", fmt.Errorf("orgs.Service.IssueToken: %w", classify(err))
	}
	if admin == nil || admin.OrganizationID == nil {
		return "", fmt.Errorf("orgs.Service.IssueToken: admin %s: %w", adminID, domain.ErrNotFound)
	}

	token, err := s.identity.IssueToken(admin.ID, *admin.OrganizationID)
	if err != nil {
		return "", fmt.Errorf("orgs.Service.IssueToken: %w", err)
	}
	return token, nil
}

// Administrator loads an administrator by id; nil when absent.
func (s *Service) Administrator(ctx context.Context, id uuid.UUID) (*domain.Administrator, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("orgs.Service.Administrator: %w", classify(err))
	}
	return admin, nil
}

func (s *Service) begin(ctx context.Context, op *domain.PendingOperation) (*domain.PendingOperation, error) {
	op.ID = uuid.New()
	op.StartedAt = s.now()

	if err := s.journal.Begin(ctx, op); err != nil {
		return nil, fmt.Errorf("journal %s: %w", op.Kind, classify(err))
	}
	return op, nil
}

// complete clears the journal entry. The sequence already succeeded, so a
// failure here only leaves work for the reconciler, which finds it done.
func (s *Service) complete(ctx context.Context, op *domain.PendingOperation) {
	if err := s.journal.Complete(context.WithoutCancel(ctx), op.ID); err != nil {
		log.Warn().Err(err).Str("operation", op.ID.String()).Str("kind", string(op.Kind)).
			Msg("failed to clear journal entry")
	}
}

// checkUnfinished fails with ErrLocked while a crashed sequence touching any
// of the names or collections awaits reconciliation. Callers hold the leases,
// so every entry found here belongs to a sequence that is no longer running.
func (s *Service) checkUnfinished(ctx context.Context, names, collections []string) error {
	pending, err := s.journal.ListPending(ctx, s.now().Add(time.Second))
	if err != nil {
		return fmt.Errorf("list journal: %w", classify(err))
	}

	touches := func(values []string, v string) bool {
		return v != "" && slices.Contains(values, v)
	}

	for _, op := range pending {
		if touches(names, op.OrganizationName) || touches(names, op.TargetName) ||
			touches(collections, op.SourceCollection) || touches(collections, op.TargetCollection) {
			return fmt.Errorf("unfinished %s of %q awaits reconciliation: %w", op.Kind, op.OrganizationName, domain.ErrLocked)
		}
	}
	return nil
}
