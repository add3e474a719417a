package repository

import (
	"context"
	"database/sql"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

// PassRepo provides CRUD operations for redeemable passes.  One table
// backs both pre-approval QR passes and gate passes; the kind column
// selects the lifecycle.  All timestamp fields are stored in UTC.
// Status and used_count are only ever written through the conditional
// UpdateUsageTx/SetStatusTx operations below or through Cancel/Review,
// never by plain updates.
type PassRepo struct {
	db *sql.DB
}

// NewPassRepo returns a new PassRepo bound to the given database.
func NewPassRepo(db *sql.DB) *PassRepo { return &PassRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *PassRepo) DB() *sql.DB { return r.db }

const passColumns = `id, kind, secret, status, flat_id, society_id, visitor_name, visitor_phone,
	purpose, max_uses, used_count, valid_from, valid_until, created_by, created_at, updated_at`

func scanPass(row *sql.Row) (*model.Pass, error) {
	var p model.Pass
	err := row.Scan(&p.ID, &p.Kind, &p.Secret, &p.Status, &p.FlatID, &p.SocietyID,
		&p.VisitorName, &p.VisitorPhone, &p.Purpose, &p.MaxUses, &p.UsedCount,
		&p.ValidFrom, &p.ValidUntil, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new pass and populates the generated ID.  The
// caller supplies kind, secret, status, scope, visitor fields, quota
// and validity window; timestamps default in the database.
func (r *PassRepo) Create(ctx context.Context, p *model.Pass) error {
	const q = `INSERT INTO passes
		(kind, secret, status, flat_id, society_id, visitor_name, visitor_phone, purpose,
		 max_uses, used_count, valid_from, valid_until, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.Kind, p.Secret, p.Status, p.FlatID, p.SocietyID,
		p.VisitorName, p.VisitorPhone, p.Purpose, p.MaxUses, p.UsedCount,
		p.ValidFrom.UTC(), p.ValidUntil.UTC(), p.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a pass by primary key.  Returns sql.ErrNoRows when
// it does not exist.
func (r *PassRepo) GetByID(ctx context.Context, id uint64) (*model.Pass, error) {
	return scanPass(r.db.QueryRowContext(ctx,
		`SELECT `+passColumns+` FROM passes WHERE id = ?`, id))
}

// GetBySecretForUpdateTx loads a pass by its secret with the row
// locked until the transaction ends.  This is the serialization point
// for concurrent redemptions: every scan of the same pass queues here.
func (r *PassRepo) GetBySecretForUpdateTx(ctx context.Context, tx *sql.Tx, secret string) (*model.Pass, error) {
	return scanPass(tx.QueryRowContext(ctx,
		`SELECT `+passColumns+` FROM passes WHERE secret = ? FOR UPDATE`, secret))
}

// UpdateUsageTx applies a usage transition only if the row still
// carries the expected status and used count.  It reports whether a
// row matched; false means the guarded state changed since it was
// read.
func (r *PassRepo) UpdateUsageTx(ctx context.Context, tx *sql.Tx, id uint64, expStatus string, expUsed uint32, newStatus string, newUsed uint32) (bool, error) {
	const q = `UPDATE passes SET status = ?, used_count = ?
		WHERE id = ? AND status = ? AND used_count = ?`
	res, err := tx.ExecContext(ctx, q, newStatus, newUsed, id, expStatus, expUsed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetStatusTx writes a status within the transaction.  Used for the
// lazy EXPIRED/USED flips discovered while validating a scan.
func (r *PassRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE passes SET status = ? WHERE id = ?`, status, id)
	return err
}

// ListByFlat returns all passes issued for a flat, newest first.
func (r *PassRepo) ListByFlat(ctx context.Context, flatID uint64) ([]model.Pass, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+passColumns+` FROM passes WHERE flat_id = ? ORDER BY created_at DESC`, flatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	passes := make([]model.Pass, 0)
	for rows.Next() {
		var p model.Pass
		if err := rows.Scan(&p.ID, &p.Kind, &p.Secret, &p.Status, &p.FlatID, &p.SocietyID,
			&p.VisitorName, &p.VisitorPhone, &p.Purpose, &p.MaxUses, &p.UsedCount,
			&p.ValidFrom, &p.ValidUntil, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return passes, nil
}

// ListPendingBySociety returns gate passes awaiting admin review for a
// society, oldest first so the queue drains in order.
func (r *PassRepo) ListPendingBySociety(ctx context.Context, societyID uint64) ([]model.Pass, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+passColumns+` FROM passes
		 WHERE society_id = ? AND kind = ? AND status = ?
		 ORDER BY created_at ASC`,
		societyID, model.PassKindGatePass, model.PassStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	passes := make([]model.Pass, 0)
	for rows.Next() {
		var p model.Pass
		if err := rows.Scan(&p.ID, &p.Kind, &p.Secret, &p.Status, &p.FlatID, &p.SocietyID,
			&p.VisitorName, &p.VisitorPhone, &p.Purpose, &p.MaxUses, &p.UsedCount,
			&p.ValidFrom, &p.ValidUntil, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return passes, nil
}

// Cancel marks a pass CANCELLED on behalf of its flat.  Cancellation
// is only permitted while the pass is not terminal, has quota left and
// has not passed its window.  Returns sql.ErrNoRows when the pass does
// not belong to the flat and ErrConflict when its state no longer
// allows cancellation.
func (r *PassRepo) Cancel(ctx context.Context, id, flatID uint64) error {
	const q = `UPDATE passes SET status = ?
		WHERE id = ? AND flat_id = ?
		  AND status IN (?, ?, ?)
		  AND used_count < max_uses
		  AND valid_until > UTC_TIMESTAMP()`
	res, err := r.db.ExecContext(ctx, q, model.PassStatusCancelled, id, flatID,
		model.PassStatusActive, model.PassStatusApproved, model.PassStatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists uint64
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM passes WHERE id = ? AND flat_id = ?`, id, flatID).Scan(&exists)
	if err != nil {
		return err // sql.ErrNoRows when the pass is not the flat's
	}
	return ErrConflict
}

// Review moves a pending gate pass to APPROVED or REJECTED within the
// admin's society.  Returns sql.ErrNoRows when no such pass exists in
// the society and ErrConflict when it is not pending anymore.
func (r *PassRepo) Review(ctx context.Context, id, societyID uint64, approve bool) error {
	status := model.PassStatusRejected
	if approve {
		status = model.PassStatusApproved
	}
	const q = `UPDATE passes SET status = ?
		WHERE id = ? AND society_id = ? AND kind = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, status,
		id, societyID, model.PassKindGatePass, model.PassStatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists uint64
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM passes WHERE id = ? AND society_id = ?`, id, societyID).Scan(&exists)
	if err != nil {
		return err
	}
	return ErrConflict
}
