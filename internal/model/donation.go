package model

import "time"

// Donation status values from payments.status.
const (
	DonationPending    = "pending"
	DonationSuccessful = "successful"
	DonationFailed     = "failed"
)

// Donation mirrors a row of the `payments` table.  Rows are written by the
// payment gateway integration; this service only reads them and attaches
// anonymous rows to an account once its email is verified.
type Donation struct {
	ID          uint64    `json:"id"`
	TxRef       string    `json:"txRef"`
	Email       string    `json:"email"`
	UserID      *uint64   `json:"userId"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	PaymentType string    `json:"paymentType"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DonationSummary aggregates the successful donations of one account.
type DonationSummary struct {
	TotalDonated     float64    `json:"totalDonated"`
	DonationCount    int        `json:"donationCount"`
	LastDonationDate *time.Time `json:"lastDonationDate"`
}
