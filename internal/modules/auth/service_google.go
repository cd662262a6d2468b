package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/delordemm1/notes-api/internal/identity"
)

func (s *service) GoogleLogin(ctx context.Context, assertion string) (*AuthResult, error) {
	if strings.TrimSpace(assertion) == "" {
		return nil, ErrInvalidAssertion
	}
	id, err := s.identity.Verify(ctx, assertion)
	if err != nil {
		s.logger.Warn("rejected google assertion", "error", err)
		return nil, ErrInvalidAssertion.WithCause(err)
	}

	account, err := s.resolveGoogleAccount(ctx, id)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrConflict
		}
		s.logger.Error("failed to resolve google account", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	s.logger.Info("google login", "account_id", account.ID)
	return s.issue(account)
}

// resolveGoogleAccount finds the account for id by subject or email, creating
// it when neither matches and linking the subject when the account has none.
func (s *service) resolveGoogleAccount(ctx context.Context, id *identity.Identity) (*Account, error) {
	account, err := s.repo.FindAccountBySubjectOrEmail(ctx, id.Subject, id.Email)
	if errors.Is(err, ErrNotFound) {
		account, err = s.createGoogleAccount(ctx, id)
		if errors.Is(err, ErrConflict) {
			// Lost a race with a concurrent first login or signup for this identity.
			account, err = s.repo.FindAccountBySubjectOrEmail(ctx, id.Subject, id.Email)
		}
	}
	if err != nil {
		return nil, err
	}

	if account.GoogleSubject == nil {
		err := s.repo.LinkGoogleSubject(ctx, account.ID, id.Subject)
		switch {
		case err == nil:
			subject := id.Subject
			account.GoogleSubject = &subject
			account.Verified = true
			s.logger.Info("linked google identity", "account_id", account.ID)
		case errors.Is(err, ErrNotFound):
			// Linked concurrently; the account still matched on email.
		default:
			return nil, err
		}
	}
	return account, nil
}

func (s *service) createGoogleAccount(ctx context.Context, id *identity.Identity) (*Account, error) {
	accountID, err := newID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	subject := id.Subject
	account := &Account{
		ID:            accountID,
		Email:         id.Email,
		Name:          id.Name,
		GoogleSubject: &subject,
		Verified:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Info("account created from google identity", "account_id", account.ID)
	return account, nil
}
