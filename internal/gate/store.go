package gate

import (
	"context"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

// Identity is the caller identity handed in by the API layer.  The
// engine trusts Role and SocietyID as given; authentication happened
// upstream.
type Identity struct {
	UserID    uint64
	Role      string
	SocietyID uint64
}

// Store opens transactions against the persistent gate state.  The
// production implementation lives in the repository package on top of
// MySQL; tests supply an in-memory implementation.  All serialization
// lives behind this interface.  The engine itself holds no locks,
// because the store may be shared by multiple processes.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single transactional unit of gate work.  Implementations
// must guarantee that PassBySecret blocks concurrent transactions on
// the same pass row until Commit or Rollback (row lock or equivalent),
// and must return ErrTransient for lock timeouts and deadlocks.
type Tx interface {
	// PassBySecret loads a pass by its secret with the row locked for
	// the duration of the transaction.  Returns ErrPassNotFound when
	// the secret is unknown.
	PassBySecret(ctx context.Context, secret string) (*model.Pass, error)

	// UpdatePassUsage applies the usage transition only if the row
	// still matches the expected status and used count.  It reports
	// whether a row was updated; false means the guarded state moved
	// under us.
	UpdatePassUsage(ctx context.Context, passID uint64, expStatus string, expUsed uint32, newStatus string, newUsed uint32) (bool, error)

	// SetPassStatus unconditionally writes a status.  Used for the lazy
	// EXPIRED/USED flips discovered during validation.
	SetPassStatus(ctx context.Context, passID uint64, status string) error

	// InsertEntry records an admission and populates the entry ID.
	InsertEntry(ctx context.Context, e *model.Entry) error

	// ClaimExpectedDelivery marks the first unused auto-approvable
	// expected delivery for the flat, company and day as used.  It
	// reports whether a record was claimed.
	ClaimExpectedDelivery(ctx context.Context, flatID uint64, company string, day time.Time) (bool, error)

	// ActiveRulesByFlat returns the active auto-approve rules scoped to
	// the flat.
	ActiveRulesByFlat(ctx context.Context, flatID uint64) ([]model.AutoApproveRule, error)

	Commit() error
	Rollback() error
}
