package auth

import (
	"context"
	"strings"

	"github.com/delordemm1/notes-api/internal/notification"
	"github.com/google/uuid"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validHandle reports whether s could be an id this service handed out.
func validHandle(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// deliver sends a code and waits at most deliveryTimeout. Failures are logged
// and never returned: the code is already stored and counts as issued.
func (s *service) deliver(ctx context.Context, to, name, code string, purpose notification.Purpose, ref string) {
	ctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()

	err := s.deliverer.DeliverCode(ctx, to, name, code, purpose)
	if err == nil {
		return
	}
	s.logger.Warn("code delivery failed", "purpose", purpose, "ref", ref, "error", err)
	if s.logFallback {
		s.logger.Warn("undelivered code", "purpose", purpose, "ref", ref, "email", to, "code", code)
	}
}

// issue mints a token for a and builds the result handed back to clients.
func (s *service) issue(a *Account) (*AuthResult, error) {
	token, err := s.tokens.Issue(a.ID)
	if err != nil {
		s.logger.Error("failed to issue token", "account_id", a.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return &AuthResult{Token: token, Account: a.Public()}, nil
}

// compareDummy spends roughly the time of a real hash comparison, so a
// missing account is not distinguishable from a wrong secret by timing.
func (s *service) compareDummy(secret string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-secret")
		if err != nil {
			s.logger.Error("failed to prepare dummy hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	if s.dummyHash != "" {
		s.hasher.Compare(secret, s.dummyHash)
	}
}
