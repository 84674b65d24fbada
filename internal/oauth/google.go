// Package oauth verifies identity tokens issued by external providers.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

var (
	// ErrInvalidToken is returned when the provider rejects the token.
	ErrInvalidToken = errors.New("identity token rejected")
	// ErrProviderUnavailable is returned when the token could not be checked
	// at all, e.g. Google's signing certificates could not be fetched.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Identity is what the server learns from a verified Google ID token.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// validateFunc matches idtoken.Validate.
type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleVerifier checks Google ID tokens against the configured client id.
type GoogleVerifier struct {
	clientID string
	validate validateFunc
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify validates the signature, audience and expiry of rawToken.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	if v.clientID == "" {
		return Identity{}, fmt.Errorf("oauth: google client id not configured")
	}
	p, err := v.validate(ctx, rawToken, v.clientID)
	if err != nil {
		if rejected(ctx, err) {
			return Identity{}, errors.Join(ErrInvalidToken, err)
		}
		return Identity{}, errors.Join(ErrProviderUnavailable, err)
	}
	return identityFromClaims(p.Subject, p.Claims), nil
}

// rejected reports whether err is a verdict on the token itself.  idtoken
// does not export typed errors: its checks of format, audience, expiry and
// signature all fail with an "idtoken:" message, while transport errors
// from the certificate fetch come back unprefixed.
func rejected(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "idtoken:") && !strings.Contains(msg, "unable to retrieve cert")
}

func identityFromClaims(sub string, claims map[string]any) Identity {
	id := Identity{Subject: sub}
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	id.Picture, _ = claims["picture"].(string)
	switch v := claims["email_verified"].(type) {
	case bool:
		id.EmailVerified = v
	case string:
		id.EmailVerified = v == "true"
	}
	return id
}
