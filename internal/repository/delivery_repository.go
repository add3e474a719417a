package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

// DeliveryRepo provides persistence for expected-delivery records.
// Claiming a record at the gate is a conditional one-shot update run
// inside the matcher's transaction; everything else is plain CRUD.
type DeliveryRepo struct {
	db *sql.DB
}

// NewDeliveryRepo returns a new DeliveryRepo bound to the given database.
func NewDeliveryRepo(db *sql.DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

// Create inserts an expected delivery and populates the generated ID.
func (r *DeliveryRepo) Create(ctx context.Context, d *model.ExpectedDelivery) error {
	const q = `INSERT INTO expected_deliveries
		(flat_id, company, expected_on, auto_approve, used)
		VALUES (?, ?, ?, ?, 0)`
	res, err := r.db.ExecContext(ctx, q, d.FlatID, d.Company,
		d.ExpectedOn.UTC().Format("2006-01-02"), d.AutoApprove)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// ClaimTx marks the first unused auto-approvable record for the flat,
// company and day as used, within the provided transaction.  The
// conditional `used = 0` guard makes concurrent claims from two gates
// settle to exactly one winner.  It reports whether a record was
// claimed.
func (r *DeliveryRepo) ClaimTx(ctx context.Context, tx *sql.Tx, flatID uint64, company string, day time.Time) (bool, error) {
	const q = `UPDATE expected_deliveries SET used = 1
		WHERE flat_id = ? AND company = ? AND expected_on = ?
		  AND auto_approve = 1 AND used = 0
		LIMIT 1`
	res, err := tx.ExecContext(ctx, q, flatID, company, day.UTC().Format("2006-01-02"))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListByFlat returns a flat's expected deliveries, newest first.
func (r *DeliveryRepo) ListByFlat(ctx context.Context, flatID uint64) ([]model.ExpectedDelivery, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, flat_id, company, expected_on, auto_approve, used, created_at
		 FROM expected_deliveries WHERE flat_id = ? ORDER BY created_at DESC`, flatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ExpectedDelivery, 0)
	for rows.Next() {
		var d model.ExpectedDelivery
		if err := rows.Scan(&d.ID, &d.FlatID, &d.Company, &d.ExpectedOn,
			&d.AutoApprove, &d.Used, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
