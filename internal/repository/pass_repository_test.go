package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func passRows() *sqlmock.Rows {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "kind", "secret", "status", "flat_id", "society_id", "visitor_name",
		"visitor_phone", "purpose", "max_uses", "used_count", "valid_from",
		"valid_until", "created_by", "created_at", "updated_at",
	}).AddRow(1, model.PassKindPreApproval, "s3cret", model.PassStatusActive,
		7, 1, "Ravi Kumar", "9999", "guest", 3, 1,
		now.Add(-time.Hour), now.Add(time.Hour), 42, now, now)
}

func TestPassRepoCreateSetsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPassRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO passes")).
		WithArgs(model.PassKindPreApproval, "s3cret", model.PassStatusActive,
			uint64(7), uint64(1), "Ravi Kumar", "9999", "guest",
			uint32(3), uint32(0), sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(42)).
		WillReturnResult(sqlmock.NewResult(11, 1))

	p := &model.Pass{
		Kind: model.PassKindPreApproval, Secret: "s3cret", Status: model.PassStatusActive,
		FlatID: 7, SocietyID: 1, VisitorName: "Ravi Kumar", VisitorPhone: "9999",
		Purpose: "guest", MaxUses: 3,
		ValidFrom:  time.Now().UTC(),
		ValidUntil: time.Now().UTC().Add(time.Hour),
		CreatedBy:  42,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, uint64(11), p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRepoGetBySecretLocksRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPassRepo(db)

	mock.ExpectBegin()
	// The FOR UPDATE clause is what serializes concurrent scans; assert
	// it is part of the statement.
	mock.ExpectQuery(`SELECT .+ FROM passes WHERE secret = \? FOR UPDATE`).
		WithArgs("s3cret").
		WillReturnRows(passRows())
	mock.ExpectCommit()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	p, err := repo.GetBySecretForUpdateTx(context.Background(), tx, "s3cret")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, uint64(1), p.ID)
	assert.Equal(t, uint32(1), p.UsedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRepoUpdateUsageGuarded(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPassRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE passes SET status = ?, used_count = ?")).
		WithArgs(model.PassStatusUsed, uint32(3), uint64(1), model.PassStatusActive, uint32(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	ok, err := repo.UpdateUsageTx(context.Background(), tx, 1,
		model.PassStatusActive, 2, model.PassStatusUsed, 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPassRepoUpdateUsageStateMoved(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPassRepo(db)

	mock.ExpectBegin()
	// Guarded update matches no row when status/used_count changed.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE passes SET status = ?, used_count = ?")).
		WithArgs(model.PassStatusUsed, uint32(3), uint64(1), model.PassStatusActive, uint32(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	ok, err := repo.UpdateUsageTx(context.Background(), tx, 1,
		model.PassStatusActive, 2, model.PassStatusUsed, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPassRepoCancel(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPassRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE passes SET status = ?")).
		WithArgs(model.PassStatusCancelled, uint64(1), uint64(7),
			model.PassStatusActive, model.PassStatusApproved, model.PassStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Cancel(context.Background(), 1, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassRepoCancelNotCancellable(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPassRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE passes SET status = ?")).
		WithArgs(model.PassStatusCancelled, uint64(1), uint64(7),
			model.PassStatusActive, model.PassStatusApproved, model.PassStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM passes WHERE id = ? AND flat_id = ?")).
		WithArgs(uint64(1), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := repo.Cancel(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPassRepoCancelNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPassRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE passes SET status = ?")).
		WithArgs(model.PassStatusCancelled, uint64(1), uint64(7),
			model.PassStatusActive, model.PassStatusApproved, model.PassStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM passes WHERE id = ? AND flat_id = ?")).
		WithArgs(uint64(1), uint64(7)).
		WillReturnError(sql.ErrNoRows)

	err := repo.Cancel(context.Background(), 1, 7)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPassRepoReviewApprove(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPassRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE passes SET status = ?")).
		WithArgs(model.PassStatusApproved, uint64(1), uint64(3),
			model.PassKindGatePass, model.PassStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Review(context.Background(), 1, 3, true))
}

func TestPassRepoReviewAlreadyDecided(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPassRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE passes SET status = ?")).
		WithArgs(model.PassStatusRejected, uint64(1), uint64(3),
			model.PassKindGatePass, model.PassStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM passes WHERE id = ? AND society_id = ?")).
		WithArgs(uint64(1), uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := repo.Review(context.Background(), 1, 3, false)
	assert.ErrorIs(t, err, ErrConflict)
}
