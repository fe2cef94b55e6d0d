package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/tenantry/internal/domain"
)

// OrganizationRepo is an in-memory domain.OrganizationRepository keyed by name.
type OrganizationRepo struct {
	mu   sync.RWMutex
	orgs map[string]*domain.Organization
}

func NewOrganizationRepo() *OrganizationRepo {
	return &OrganizationRepo{orgs: make(map[string]*domain.Organization)}
}

func (r *OrganizationRepo) FindByName(_ context.Context, name string) (*domain.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	org, ok := r.orgs[name]
	if !ok {
		return nil, nil
	}
	cp := *org
	return &cp, nil
}

func (r *OrganizationRepo) FindByCollection(_ context.Context, collection string) (*domain.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, org := range r.orgs {
		if org.CollectionName == collection {
			cp := *org
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *OrganizationRepo) Create(_ context.Context, name, collection string, adminID uuid.UUID) (*domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orgs[name]; exists {
		return nil, domain.ErrAlreadyExists
	}
	for _, org := range r.orgs {
		if org.CollectionName == collection {
			return nil, domain.ErrCollectionConflict
		}
	}

	now := time.Now().UTC()
	org := &domain.Organization{
		ID:             uuid.New(),
		Name:           name,
		CollectionName: collection,
		AdminID:        adminID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.orgs[name] = org

	cp := *org
	return &cp, nil
}

func (r *OrganizationRepo) Update(_ context.Context, name string, upd domain.OrganizationUpdate) (*domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	org, ok := r.orgs[name]
	if !ok {
		return nil, nil
	}

	next := *org
	if upd.Name != nil {
		next.Name = *upd.Name
	}
	if upd.CollectionName != nil {
		next.CollectionName = *upd.CollectionName
	}
	if upd.AdminID != nil {
		next.AdminID = *upd.AdminID
	}

	for key, other := range r.orgs {
		if key == name {
			continue
		}
		if other.Name == next.Name {
			return nil, domain.ErrAlreadyExists
		}
		if other.CollectionName == next.CollectionName {
			return nil, domain.ErrCollectionConflict
		}
	}

	next.UpdatedAt = time.Now().UTC()
	delete(r.orgs, name)
	r.orgs[next.Name] = &next

	cp := next
	return &cp, nil
}

func (r *OrganizationRepo) Delete(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orgs[name]; !ok {
		return false, nil
	}
	delete(r.orgs, name)
	return true, nil
}

func (r *OrganizationRepo) List(_ context.Context) ([]*domain.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Organization, 0, len(r.orgs))
	for _, org := range r.orgs {
		cp := *org
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ownedBy reports whether some organization names adminID as its owner.
func (r *OrganizationRepo) ownedBy(adminID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, org := range r.orgs {
		if org.AdminID == adminID {
			return true
		}
	}
	return false
}

func (r *OrganizationRepo) existsByID(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, org := range r.orgs {
		if org.ID == id {
			return true
		}
	}
	return false
}

// AdministratorRepo is an in-memory domain.AdministratorRepository.
type AdministratorRepo struct {
	mu     sync.RWMutex
	admins map[uuid.UUID]*domain.Administrator
	orgs   *OrganizationRepo
}

func NewAdministratorRepo(orgs *OrganizationRepo) *AdministratorRepo {
	return &AdministratorRepo{
		admins: make(map[uuid.UUID]*domain.Administrator),
		orgs:   orgs,
	}
}

func copyAdmin(a *domain.Administrator) *domain.Administrator {
	cp := *a
	if a.OrganizationID != nil {
		id := *a.OrganizationID
		cp.OrganizationID = &id
	}
	return &cp
}

func (r *AdministratorRepo) Create(_ context.Context, email, passwordHash string, orgID *uuid.UUID) (*domain.Administrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.admins {
		if a.Email == email {
			return nil, domain.ErrAlreadyExists
		}
	}

	now := time.Now().UTC()
	admin := &domain.Administrator{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if orgID != nil {
		id := *orgID
		admin.OrganizationID = &id
	}
	r.admins[admin.ID] = admin

	return copyAdmin(admin), nil
}

func (r *AdministratorRepo) FindByEmail(_ context.Context, email string) (*domain.Administrator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.admins {
		if a.Email == email {
			return copyAdmin(a), nil
		}
	}
	return nil, nil
}

func (r *AdministratorRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Administrator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.admins[id]
	if !ok {
		return nil, nil
	}
	return copyAdmin(a), nil
}

func (r *AdministratorRepo) Update(_ context.Context, id uuid.UUID, upd domain.AdministratorUpdate) (*domain.Administrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.admins[id]
	if !ok {
		return nil, nil
	}

	if upd.Email != nil && *upd.Email != a.Email {
		for _, other := range r.admins {
			if other.ID != id && other.Email == *upd.Email {
				return nil, domain.ErrAlreadyExists
			}
		}
		a.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		a.PasswordHash = *upd.PasswordHash
	}
	if upd.OrganizationID != nil {
		orgID := *upd.OrganizationID
		a.OrganizationID = &orgID
	}
	a.UpdatedAt = time.Now().UTC()

	return copyAdmin(a), nil
}

func (r *AdministratorRepo) DeleteByOrganization(_ context.Context, orgID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, a := range r.admins {
		if a.BelongsTo(orgID) {
			delete(r.admins, id)
			n++
		}
	}
	return n, nil
}

func (r *AdministratorRepo) ListDangling(_ context.Context, cutoff time.Time) ([]*domain.Administrator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Administrator
	for _, a := range r.admins {
		if !a.CreatedAt.Before(cutoff) || r.orgs.ownedBy(a.ID) {
			continue
		}
		if a.OrganizationID == nil || !r.orgs.existsByID(*a.OrganizationID) {
			out = append(out, copyAdmin(a))
		}
	}
	return out, nil
}

func (r *AdministratorRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admins[id]; !ok {
		return false, nil
	}
	delete(r.admins, id)
	return true, nil
}
