package model

import "time"

// Role values stored in users.role.  Authorization compares against these
// exact values.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account status values stored in users.status.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// User represents an account as stored in the `users` table.  PasswordHash
// is empty for accounts that only ever signed in through Google.  The json
// tags describe the public profile; the hash and the Google subject never
// leave the server.
type User struct {
	ID                     uint64     `json:"id"`
	Email                  string     `json:"email"`
	GoogleID               string     `json:"-"`
	PasswordHash           string     `json:"-"`
	FirstName              string     `json:"firstName"`
	LastName               string     `json:"lastName"`
	Role                   string     `json:"role"`
	Status                 string     `json:"status"`
	IsVerified             bool       `json:"isVerified"`
	NeedsProfileCompletion bool       `json:"needsProfileCompletion"`
	PhoneNumber            string     `json:"phoneNumber"`
	Address                string     `json:"address"`
	City                   string     `json:"city"`
	State                  string     `json:"state"`
	ZipCode                string     `json:"zipCode"`
	AvatarURL              string     `json:"profileImage"`
	TotalDonated           float64    `json:"totalDonated"`
	DonationCount          int        `json:"donationCount"`
	LastDonationAt         *time.Time `json:"lastDonationDate"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// IsSuspended reports whether the account has been suspended by an admin.
func (u User) IsSuspended() bool { return u.Status == StatusSuspended }

// HasPassword reports whether the account can sign in with a password.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// ValidRole reports whether r is one of the canonical role values.
func ValidRole(r string) bool { return r == RoleUser || r == RoleAdmin }

// ValidStatus reports whether s is one of the canonical status values.
func ValidStatus(s string) bool { return s == StatusActive || s == StatusSuspended }

// ProfileCompletion holds the fields a Google-provisioned account must
// supply before it is considered complete.
type ProfileCompletion struct {
	PhoneNumber string
	Address     string
	City        string
	State       string
	ZipCode     string
}

// Missing reports whether any required field is blank.
func (p ProfileCompletion) Missing() bool {
	return p.PhoneNumber == "" || p.Address == "" || p.City == "" || p.State == "" || p.ZipCode == ""
}
