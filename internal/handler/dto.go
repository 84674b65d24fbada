package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// otpDigits is the length of issued codes.  A code sent as a JSON number
// loses its leading zeros, so numbers are padded back to this width.
const otpDigits = 6

// flexString accepts a JSON string or number.  Clients send OTPs both ways.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("otp must be a string or number: %w", err)
	}
	s := n.String()
	if len(s) < otpDigits && strings.Trim(s, "0123456789") == "" {
		s = strings.Repeat("0", otpDigits-len(s)) + s
	}
	*f = flexString(s)
	return nil
}

type signupReq struct {
	Email       string `json:"email" validate:"required,email"`
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Address     string `json:"address" validate:"required"`
	Password    string `json:"password" validate:"required,min=6"`
}

type emailReq struct {
	Email string `json:"email" validate:"required,email"`
}

type otpReq struct {
	Email string     `json:"email" validate:"required,email"`
	OTP   flexString `json:"otp" validate:"required"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetCompleteReq struct {
	Email       string     `json:"email" validate:"required,email"`
	OTP         flexString `json:"otp" validate:"required"`
	NewPassword string     `json:"newPassword" validate:"required,min=6"`
}

type googleReq struct {
	IDToken string `json:"idToken"`
}

type completeProfileReq struct {
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zipCode"`
}

type updateProfileReq struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type updatePasswordReq struct {
	Email       string `json:"email"`
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newpassword" validate:"required,min=6"`
}

type roleReq struct {
	Role string `json:"role" validate:"required"`
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}
