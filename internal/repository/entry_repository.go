package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

// EntryRepo provides persistence for gate entries.  Entries are
// created once (inside the redemption transaction for pass-based
// admissions) and afterwards only the status and checkout timestamp
// change; visitor fields and the pass link are immutable.
type EntryRepo struct {
	db *sql.DB
}

// NewEntryRepo returns a new EntryRepo bound to the given database.
func NewEntryRepo(db *sql.DB) *EntryRepo { return &EntryRepo{db: db} }

const entryColumns = `id, society_id, flat_id, pass_id, visitor_name, visitor_phone, purpose,
	status, guard_id, auto_approved, approval_reason, check_in_at, check_out_at`

// CreateTx inserts an entry within the scope of an existing
// transaction and populates the generated ID.  The caller must commit
// or roll back the transaction.
func (r *EntryRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.Entry) error {
	const q = `INSERT INTO entries
		(society_id, flat_id, pass_id, visitor_name, visitor_phone, purpose,
		 status, guard_id, auto_approved, approval_reason, check_in_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, e.SocietyID, e.FlatID, e.PassID,
		e.VisitorName, e.VisitorPhone, e.Purpose, e.Status, e.GuardID,
		e.AutoApproved, e.ApprovalReason, e.CheckInAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// Create inserts an entry outside a surrounding transaction.  Used for
// manual and matcher-approved entries where no pass row is touched.
func (r *EntryRepo) Create(ctx context.Context, e *model.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.CreateTx(ctx, tx, e); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanEntries(rows *sql.Rows) ([]model.Entry, error) {
	entries := make([]model.Entry, 0)
	for rows.Next() {
		var e model.Entry
		var passID sql.NullInt64
		var checkOut sql.NullTime
		if err := rows.Scan(&e.ID, &e.SocietyID, &e.FlatID, &passID,
			&e.VisitorName, &e.VisitorPhone, &e.Purpose, &e.Status, &e.GuardID,
			&e.AutoApproved, &e.ApprovalReason, &e.CheckInAt, &checkOut); err != nil {
			return nil, err
		}
		if passID.Valid {
			pid := uint64(passID.Int64)
			e.PassID = &pid
		}
		if checkOut.Valid {
			t := checkOut.Time
			e.CheckOutAt = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListBySociety returns entries for a society checked in since the
// given time, newest first.
func (r *EntryRepo) ListBySociety(ctx context.Context, societyID uint64, since time.Time) ([]model.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE society_id = ? AND check_in_at >= ?
		 ORDER BY check_in_at DESC`, societyID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListPendingByFlat returns entries awaiting the resident's decision.
func (r *EntryRepo) ListPendingByFlat(ctx context.Context, flatID uint64) ([]model.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE flat_id = ? AND status = ?
		 ORDER BY check_in_at ASC`, flatID, model.EntryStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Resolve moves a pending entry to ADMITTED or DENIED on behalf of
// the resident's flat.  Returns sql.ErrNoRows when the entry does not
// belong to the flat and ErrConflict when it is no longer pending.
func (r *EntryRepo) Resolve(ctx context.Context, id, flatID uint64, admit bool) error {
	status := model.EntryStatusDenied
	if admit {
		status = model.EntryStatusAdmitted
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET status = ? WHERE id = ? AND flat_id = ? AND status = ?`,
		status, id, flatID, model.EntryStatusPending)
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
		`SELECT id FROM entries WHERE id = ? AND flat_id = ?`, id, flatID).Scan(&exists)
	if err != nil {
		return err
	}
	return ErrConflict
}

// Checkout stamps the checkout time on an admitted entry in the
// guard's society.  Checkout never touches the originating pass.
// Returns sql.ErrNoRows when the entry does not exist in the society
// and ErrConflict when it was never admitted or already checked out.
func (r *EntryRepo) Checkout(ctx context.Context, id, societyID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET check_out_at = UTC_TIMESTAMP()
		 WHERE id = ? AND society_id = ? AND status = ? AND check_out_at IS NULL`,
		id, societyID, model.EntryStatusAdmitted)
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
		`SELECT id FROM entries WHERE id = ? AND society_id = ?`, id, societyID).Scan(&exists)
	if err != nil {
		return err
	}
	return ErrConflict
}
