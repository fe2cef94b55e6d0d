package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationRename OperationKind = "rename"
	OperationDelete OperationKind = "delete"
)

// PendingOperation marks a multi-step lifecycle sequence that has started but
// not yet finished. It is written before the first step and removed after the
// last, so any entry that outlives its sequence points at a crash.
type PendingOperation struct {
	ID               uuid.UUID
	Kind             OperationKind
	OrganizationName string
	TargetName       string // rename only
	SourceCollection string // rename and delete
	TargetCollection string // create and rename
	StartedAt        time.Time
}

type OperationJournal interface {
	Begin(ctx context.Context, op *PendingOperation) error
	Complete(ctx context.Context, id uuid.UUID) error
	ListPending(ctx context.Context, startedBefore time.Time) ([]*PendingOperation, error)
}
