package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cleft-care-backend/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func userRow(id uint64, email string) *sqlmock.Rows {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(strings.Split(userColumns, ",")).AddRow(
		id, email, nil, "$2a$hash", "Abebe", "Kebede", model.RoleUser, model.StatusActive,
		true, false, "0911", "Addis", "", "", "", "",
		12.5, 1, nil, now, now)
}

func TestUserRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("a@x.com", sql.NullString{}, sql.NullString{String: "h", Valid: true}, "A", "B",
			model.RoleUser, model.StatusActive, true, false, "", "", "").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := r.Create(context.Background(), model.User{Email: " A@x.com", PasswordHash: "h", FirstName: "A", LastName: "B", IsVerified: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := r.Create(context.Background(), model.User{Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE email=\? LIMIT 1`).
		WithArgs("a@x.com").
		WillReturnRows(userRow(3, "a@x.com"))
	mock.ExpectQuery(`SELECT .* FROM users WHERE email=\? LIMIT 1`).
		WithArgs("missing@x.com").
		WillReturnError(sql.ErrNoRows)

	u, err := r.GetByEmail(context.Background(), "A@X.COM")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)
	assert.Equal(t, "$2a$hash", u.PasswordHash)
	assert.Empty(t, u.GoogleID)
	assert.Nil(t, u.LastDonationAt)
	assert.Equal(t, 12.5, u.TotalDonated)

	_, err = r.GetByEmail(context.Background(), "missing@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_UpdatesReportMissingRows(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET password_hash=\? WHERE id=\?`).
		WithArgs("h", 9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE users SET role=\? WHERE id=\?`).
		WithArgs(model.RoleAdmin, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.ErrorIs(t, r.UpdatePassword(context.Background(), 9, "h"), ErrNotFound)
	assert.NoError(t, r.UpdateRole(context.Background(), 3, model.RoleAdmin))
}

func TestUserRepo_CompleteProfileConflict(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET phone_number=.* WHERE id=\? AND needs_profile_completion=1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.CompleteProfile(context.Background(), 3, model.ProfileCompletion{
		PhoneNumber: "1", Address: "a", City: "c", State: "s", ZipCode: "z",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDonationRepo_SummaryByUser(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewDonationRepo(db)
	last := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\),0\), COUNT\(\*\), MAX\(created_at\) FROM payments WHERE user_id=\? AND status=\?`).
		WithArgs(3, model.DonationSuccessful).
		WillReturnRows(sqlmock.NewRows([]string{"sum", "count", "max"}).AddRow(150.0, 2, last))
	mock.ExpectQuery(`FROM payments WHERE email=\? AND status=\?`).
		WithArgs("a@x.com", model.DonationSuccessful).
		WillReturnRows(sqlmock.NewRows([]string{"sum", "count", "max"}).AddRow(0.0, 0, nil))

	s, err := r.SummaryByUser(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 150.0, s.TotalDonated)
	assert.Equal(t, 2, s.DonationCount)
	require.NotNil(t, s.LastDonationDate)
	assert.True(t, last.Equal(*s.LastDonationDate))

	s, err = r.SummaryByEmail(context.Background(), "A@x.com")
	require.NoError(t, err)
	assert.Nil(t, s.LastDonationDate)
}

func TestDonationRepo_AssignAnonymous(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewDonationRepo(db)

	mock.ExpectExec(`UPDATE payments SET user_id=\? WHERE email=\? AND user_id IS NULL`).
		WithArgs(4, "a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := r.AssignAnonymous(context.Background(), "a@x.com", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
