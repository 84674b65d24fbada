// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/iliyamo/cleft-care-backend/internal/notify"

// OTPMailEvent asks the mail consumer to deliver a one-time code.
type OTPMailEvent struct {
	Email       string         `json:"email"`
	Code        string         `json:"code"`
	Purpose     notify.Purpose `json:"purpose"`
	RequestedAt string         `json:"requested_at"`
}
