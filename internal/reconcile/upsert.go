package reconcile

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/dirsync/internal/directory"
)

// Outcome is the result of one idempotent upsert against the directory.
type Outcome int

const (
	Created Outcome = iota
	Updated
	AlreadySynced
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case AlreadySynced:
		return "already-synced"
	default:
		return "unknown"
	}
}

// Upsert runs the create-or-update protocol for a single entity. The
// directory has no native upsert, so the only observable way to detect
// "already exists" without a prior read is to create and inspect the
// rejection.
//
//  1. Create with the full payload.
//  2. On an existence conflict, update addressed by (owner, name).
//  3. If that update also fails, the entity is still treated as present
//     remotely: an existing-but-unmodifiable record is not an error.
//
// Any other create failure is returned to the caller, which decides whether
// it is a per-entity rejection or a phase-fatal connectivity loss.
func Upsert(ctx context.Context, log logrus.FieldLogger, kind, name string, create, update func(context.Context) error) (Outcome, error) {
	err := create(ctx)
	if err == nil {
		return Created, nil
	}
	if !directory.IsExistenceConflict(err) {
		return 0, err
	}

	if uerr := update(ctx); uerr != nil {
		log.WithFields(logrus.Fields{
			"kind": kind,
			"name": name,
		}).WithError(uerr).Warn("update after existence conflict failed, treating entity as synced")
		return AlreadySynced, nil
	}
	return Updated, nil
}
