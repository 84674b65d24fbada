package model

// PendingSignup is the profile a visitor submitted at signup, held in Redis
// until the emailed code is confirmed.  The password is already bcrypt
// hashed when the record is staged.
type PendingSignup struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PhoneNumber  string `json:"phoneNumber"`
	Address      string `json:"address"`
	PasswordHash string `json:"passwordHash"`
}

// Complete reports whether the record carries enough to create an account.
// Records staged by an OTP resend only hold the code.
func (p PendingSignup) Complete() bool { return p.PasswordHash != "" }
