// Package identity verifies third-party identity assertions. The only
// supported provider is Google: clients sign in on their side and hand the
// resulting ID token to the API, which checks it against Google's published
// signing keys.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// ErrInvalidAssertion is returned for any token that fails verification.
var ErrInvalidAssertion = errors.New("invalid identity assertion")

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// Identity is what a verified assertion tells us about the caller.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier validates Google ID tokens for one OAuth client. It is safe
// for concurrent use and meant to live for the whole process; the underlying
// validator caches Google's certificates for as long as their response allows.
type GoogleVerifier struct {
	clientID  string
	validator *idtoken.Validator
}

// NewGoogleVerifier returns a verifier accepting tokens whose audience is
// clientID. Certificates are fetched through client.
func NewGoogleVerifier(ctx context.Context, clientID string, client *http.Client) (*GoogleVerifier, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	validator, err := idtoken.NewValidator(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create google token validator: %w", err)
	}
	return &GoogleVerifier{clientID: clientID, validator: validator}, nil
}

// Verify checks the signature, issuer, audience and expiry of token and
// extracts the caller's identity.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	// An empty audience would make the validator skip the audience check.
	if v.clientID == "" {
		return nil, fmt.Errorf("%w: google client id is not configured", ErrInvalidAssertion)
	}

	payload, err := v.validator.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}
	if !validIssuer(payload.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidAssertion, payload.Issuer)
	}

	email, _ := payload.Claims["email"].(string)
	if payload.Subject == "" || email == "" {
		return nil, fmt.Errorf("%w: assertion carries no subject or email", ErrInvalidAssertion)
	}
	if explicitlyFalse(payload.Claims["email_verified"]) {
		return nil, fmt.Errorf("%w: email is not verified by the provider", ErrInvalidAssertion)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	name, _ := payload.Claims["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return &Identity{Subject: payload.Subject, Email: email, Name: name}, nil
}

func validIssuer(iss string) bool {
	for _, want := range googleIssuers {
		if iss == want {
			return true
		}
	}
	return false
}

// explicitlyFalse treats a missing email_verified claim as acceptable. Google
// has sent it both as a bool and as a string.
func explicitlyFalse(v any) bool {
	switch b := v.(type) {
	case bool:
		return !b
	case string:
		return strings.EqualFold(b, "false")
	}
	return false
}
