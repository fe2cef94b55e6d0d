// Package memory provides in-memory implementations of the master directory,
// operation journal, document store and locker for development and testing.
package memory

import (
	"github.com/gosuda/tenantry/internal/domain"
)

// Store bundles the in-memory repositories behind the same accessors as the
// postgres store.
type Store struct {
	orgs    *OrganizationRepo
	admins  *AdministratorRepo
	journal *Journal
	docs    *DocumentStore
}

func New() *Store {
	orgs := NewOrganizationRepo()
	return &Store{
		orgs:    orgs,
		admins:  NewAdministratorRepo(orgs),
		journal: NewJournal(),
		docs:    NewDocumentStore(),
	}
}

func (s *Store) Organizations() domain.OrganizationRepository   { return s.orgs }
func (s *Store) Administrators() domain.AdministratorRepository { return s.admins }
func (s *Store) Journal() domain.OperationJournal               { return s.journal }
func (s *Store) Documents() *DocumentStore                      { return s.docs }
