// Package notify delivers one-time codes to email addresses.
package notify

import "fmt"

// Purpose tells the recipient why a code was sent.
type Purpose string

const (
	PurposeSignup        Purpose = "signup"
	PurposePasswordReset Purpose = "password_reset"
)

// Compose renders the subject and plain-text body for a code.
func Compose(appName, code string, purpose Purpose, validMinutes int) (subject, body string) {
	switch purpose {
	case PurposePasswordReset:
		subject = fmt.Sprintf("%s - Password Reset Code", appName)
		body = fmt.Sprintf("Hello,\n\n"+
			"We received a request to reset the password of your %s account. Use the code below to continue:\n\n"+
			"Reset Code: %s\n\n"+
			"This code will expire in %d minutes. If you did not request a reset you can ignore this email.\n\n"+
			"The %s Team", appName, code, validMinutes, appName)
	default:
		subject = fmt.Sprintf("%s - Verify your email", appName)
		body = fmt.Sprintf("Hello,\n\n"+
			"Thank you for signing up with %s! To complete your registration, use the verification code below:\n\n"+
			"Verification Code: %s\n\n"+
			"This code will expire in %d minutes.\n\n"+
			"The %s Team", appName, code, validMinutes, appName)
	}
	return subject, body
}
