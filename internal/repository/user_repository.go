package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Agastya221/society-gate-backend/internal/model"
	"github.com/Agastya221/society-gate-backend/internal/utils"
)

// UserRepo persists application users.  Users carry their role and
// society binding; residents additionally reference a flat.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID.  FlatID may be nil for
// guards and admins.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, societyID uint64, flatID *uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, society_id, flat_id) VALUES (?,?,?,?,?)",
		email, hash, role, societyID, flatID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var flatID sql.NullInt64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.SocietyID,
		&flatID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if flatID.Valid {
		fid := uint64(flatID.Int64)
		u.FlatID = &fid
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,society_id,flat_id,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,society_id,flat_id,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id))
}
