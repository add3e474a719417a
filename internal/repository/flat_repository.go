package repository

import (
	"context"
	"database/sql"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

// FlatRepo resolves flats to their owning society.  This is the
// tenant-directory lookup used when passes are created; redemption
// never needs it because the pass row carries its society.
type FlatRepo struct {
	db *sql.DB
}

// NewFlatRepo returns a new FlatRepo bound to the given database.
func NewFlatRepo(db *sql.DB) *FlatRepo { return &FlatRepo{db: db} }

// GetByID fetches a flat by primary key.  Returns sql.ErrNoRows when
// it does not exist.
func (r *FlatRepo) GetByID(ctx context.Context, id uint64) (*model.Flat, error) {
	var f model.Flat
	err := r.db.QueryRowContext(ctx,
		`SELECT id, society_id, number, created_at FROM flats WHERE id = ?`, id).
		Scan(&f.ID, &f.SocietyID, &f.Number, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// SocietyOf returns the society a flat belongs to.  Returns
// sql.ErrNoRows when the flat does not exist.
func (r *FlatRepo) SocietyOf(ctx context.Context, flatID uint64) (uint64, error) {
	var societyID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT society_id FROM flats WHERE id = ?`, flatID).Scan(&societyID)
	if err != nil {
		return 0, err
	}
	return societyID, nil
}
