package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cleft-care-backend/internal/model"
)

const donationColumns = "id,tx_ref,email,user_id,amount,currency,payment_type,status,created_at"

// DonationRepo reads the payments table and attaches anonymous donations to
// accounts.  Payment rows themselves are written by the gateway integration.
type DonationRepo struct{ DB *sql.DB }

func NewDonationRepo(db *sql.DB) *DonationRepo { return &DonationRepo{DB: db} }

// AssignAnonymous gives every ownerless payment made with email to userID and
// returns how many rows moved.
func (r *DonationRepo) AssignAnonymous(ctx context.Context, email string, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE payments SET user_id=? WHERE email=? AND user_id IS NULL",
		userID, NormalizeEmail(email))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SummaryByUser aggregates the successful donations owned by userID.
func (r *DonationRepo) SummaryByUser(ctx context.Context, userID uint64) (model.DonationSummary, error) {
	return r.summary(ctx, "user_id=?", userID)
}

// SummaryByEmail aggregates the successful donations made with email.
func (r *DonationRepo) SummaryByEmail(ctx context.Context, email string) (model.DonationSummary, error) {
	return r.summary(ctx, "email=?", NormalizeEmail(email))
}

func (r *DonationRepo) summary(ctx context.Context, where string, arg any) (model.DonationSummary, error) {
	var (
		s    model.DonationSummary
		last sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount),0), COUNT(*), MAX(created_at) FROM payments WHERE "+where+" AND status=?",
		arg, model.DonationSuccessful).Scan(&s.TotalDonated, &s.DonationCount, &last)
	if err != nil {
		return model.DonationSummary{}, err
	}
	if last.Valid {
		t := last.Time
		s.LastDonationDate = &t
	}
	return s, nil
}

// SuccessfulByUser lists the successful donations of userID, newest first.
func (r *DonationRepo) SuccessfulByUser(ctx context.Context, userID uint64) ([]model.Donation, error) {
	return r.list(ctx,
		"SELECT "+donationColumns+" FROM payments WHERE user_id=? AND status=? ORDER BY created_at DESC",
		userID, model.DonationSuccessful)
}

// ByEmail lists every donation made with email regardless of status, newest first.
func (r *DonationRepo) ByEmail(ctx context.Context, email string) ([]model.Donation, error) {
	return r.list(ctx,
		"SELECT "+donationColumns+" FROM payments WHERE email=? ORDER BY created_at DESC",
		NormalizeEmail(email))
}

func (r *DonationRepo) list(ctx context.Context, query string, args ...any) ([]model.Donation, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Donation{}
	for rows.Next() {
		var (
			d   model.Donation
			uid sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.TxRef, &d.Email, &uid, &d.Amount, &d.Currency, &d.PaymentType,
			&d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		if uid.Valid {
			v := uint64(uid.Int64)
			d.UserID = &v
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
