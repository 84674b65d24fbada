package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cleft-care-backend/internal/model"
)

const userColumns = "id,email,google_id,password_hash,first_name,last_name,role,status,is_verified," +
	"needs_profile_completion,phone_number,address,city,state,zip_code,avatar_url," +
	"total_donated,donation_count,last_donation_at,created_at,updated_at"

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail lowercases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u        model.User
		googleID sql.NullString
		passHash sql.NullString
		lastDon  sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &googleID, &passHash, &u.FirstName, &u.LastName, &u.Role, &u.Status,
		&u.IsVerified, &u.NeedsProfileCompletion, &u.PhoneNumber, &u.Address, &u.City, &u.State, &u.ZipCode,
		&u.AvatarURL, &u.TotalDonated, &u.DonationCount, &lastDon, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.GoogleID = googleID.String
	u.PasswordHash = passHash.String
	if lastDon.Valid {
		t := lastDon.Time
		u.LastDonationAt = &t
	}
	return u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// Create inserts u and returns its ID.  PasswordHash must already be hashed.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.Status == "" {
		u.Status = model.StatusActive
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email,google_id,password_hash,first_name,last_name,role,status,is_verified,"+
			"needs_profile_completion,phone_number,address,avatar_url) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)",
		NormalizeEmail(u.Email), nullable(u.GoogleID), nullable(u.PasswordHash), u.FirstName, u.LastName,
		u.Role, u.Status, u.IsVerified, u.NeedsProfileCompletion, u.PhoneNumber, u.Address, u.AvatarURL)
	if err != nil {
		if isDuplicate(err) {
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

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// GetByGoogleIDOrEmail finds the account linked to a Google subject, falling
// back to the account registered under the same email.  A subject match wins
// when both exist.
func (r *UserRepo) GetByGoogleIDOrEmail(ctx context.Context, googleID, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE google_id=? OR email=? ORDER BY (google_id=?) DESC LIMIT 1",
		googleID, NormalizeEmail(email), googleID)
	return scanUser(row)
}

// List returns every user ordered by creation.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	return r.execOne(ctx, "UPDATE users SET password_hash=? WHERE id=?", passwordHash, id)
}

// UpdateContact sets address and phone number.
func (r *UserRepo) UpdateContact(ctx context.Context, id uint64, address, phone string) error {
	return r.execOne(ctx, "UPDATE users SET address=?, phone_number=? WHERE id=?", address, phone, id)
}

// CompleteProfile writes the required profile fields and clears the
// completion flag.  It only applies while the flag is still set; otherwise
// ErrConflict is returned.
func (r *UserRepo) CompleteProfile(ctx context.Context, id uint64, p model.ProfileCompletion) error {
	err := r.execOne(ctx,
		"UPDATE users SET phone_number=?, address=?, city=?, state=?, zip_code=?, needs_profile_completion=0 "+
			"WHERE id=? AND needs_profile_completion=1",
		p.PhoneNumber, p.Address, p.City, p.State, p.ZipCode, id)
	if errors.Is(err, ErrNotFound) {
		return ErrConflict
	}
	return err
}

// LinkGoogle fills in the Google subject and avatar where they are still
// empty and marks the account verified.
func (r *UserRepo) LinkGoogle(ctx context.Context, id uint64, googleID, avatarURL string) error {
	return r.execOne(ctx,
		"UPDATE users SET google_id=COALESCE(google_id, ?), "+
			"avatar_url=IF(avatar_url='', ?, avatar_url), is_verified=1 WHERE id=?",
		googleID, avatarURL, id)
}

// UpdateRole sets the role of a user.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	return r.execOne(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
}

// UpdateStatus sets the account status of a user.
func (r *UserRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	return r.execOne(ctx, "UPDATE users SET status=? WHERE id=?", status, id)
}

// UpdateDonationStats stores recomputed donation aggregates.
func (r *UserRepo) UpdateDonationStats(ctx context.Context, id uint64, s model.DonationSummary) error {
	var last sql.NullTime
	if s.LastDonationDate != nil {
		last = sql.NullTime{Time: *s.LastDonationDate, Valid: true}
	}
	return r.execOne(ctx,
		"UPDATE users SET total_donated=?, donation_count=?, last_donation_at=? WHERE id=?",
		s.TotalDonated, s.DonationCount, last, id)
}

// Delete removes a user.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return r.execOne(ctx, "DELETE FROM users WHERE id=?", id)
}
