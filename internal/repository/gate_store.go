package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/Agastya221/society-gate-backend/internal/gate"
	"github.com/Agastya221/society-gate-backend/internal/model"
)

// MySQL server error numbers the engine must treat as retryable.
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// GateStore adapts the MySQL repositories to the gate.Store interface.
// Each redemption or match runs in one *sql.Tx; the pass row lock taken
// by GetBySecretForUpdateTx is what serializes concurrent scans across
// processes.
type GateStore struct {
	db         *sql.DB
	passes     *PassRepo
	entries    *EntryRepo
	rules      *RuleRepo
	deliveries *DeliveryRepo
}

// NewGateStore wires the repositories into a gate.Store.
func NewGateStore(db *sql.DB, passes *PassRepo, entries *EntryRepo, rules *RuleRepo, deliveries *DeliveryRepo) *GateStore {
	return &GateStore{db: db, passes: passes, entries: entries, rules: rules, deliveries: deliveries}
}

// Begin opens a transaction for one unit of gate work.
func (s *GateStore) Begin(ctx context.Context) (gate.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &gateTx{tx: tx, store: s}, nil
}

type gateTx struct {
	tx    *sql.Tx
	store *GateStore
}

// classify maps storage errors to the gate taxonomy: missing rows to
// ErrPassNotFound, lock timeouts and deadlock victims to ErrTransient.
// Anything else passes through as a fatal storage failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return gate.ErrPassNotFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
			return fmt.Errorf("%w: %v", gate.ErrTransient, err)
		}
	}
	return err
}

func (t *gateTx) PassBySecret(ctx context.Context, secret string) (*model.Pass, error) {
	p, err := t.store.passes.GetBySecretForUpdateTx(ctx, t.tx, secret)
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

func (t *gateTx) UpdatePassUsage(ctx context.Context, passID uint64, expStatus string, expUsed uint32, newStatus string, newUsed uint32) (bool, error) {
	ok, err := t.store.passes.UpdateUsageTx(ctx, t.tx, passID, expStatus, expUsed, newStatus, newUsed)
	if err != nil {
		return false, classify(err)
	}
	return ok, nil
}

func (t *gateTx) SetPassStatus(ctx context.Context, passID uint64, status string) error {
	return classify(t.store.passes.SetStatusTx(ctx, t.tx, passID, status))
}

func (t *gateTx) InsertEntry(ctx context.Context, e *model.Entry) error {
	return classify(t.store.entries.CreateTx(ctx, t.tx, e))
}

func (t *gateTx) ClaimExpectedDelivery(ctx context.Context, flatID uint64, company string, day time.Time) (bool, error) {
	ok, err := t.store.deliveries.ClaimTx(ctx, t.tx, flatID, company, day)
	if err != nil {
		return false, classify(err)
	}
	return ok, nil
}

func (t *gateTx) ActiveRulesByFlat(ctx context.Context, flatID uint64) ([]model.AutoApproveRule, error) {
	rules, err := t.store.rules.ActiveByFlatTx(ctx, t.tx, flatID)
	if err != nil {
		return nil, classify(err)
	}
	return rules, nil
}

func (t *gateTx) Commit() error   { return classify(t.tx.Commit()) }
func (t *gateTx) Rollback() error { return t.tx.Rollback() }
