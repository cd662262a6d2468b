package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/delordemm1/notes-api/internal/notification"
	"github.com/delordemm1/notes-api/internal/validation"
)

type signupInput struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=2"`
}

// errPromotionConflict aborts the promotion transaction when the email is
// already taken, so the pending row can be removed outside of it.
var errPromotionConflict = ErrConflict.WithDetail("an account with this email was created while verifying")

func (s *service) Signup(ctx context.Context, email, name string) (string, error) {
	in := signupInput{Email: normalizeEmail(email), Name: strings.TrimSpace(name)}
	if err := validation.ValidateStruct(in); err != nil {
		return "", err
	}

	if _, err := s.repo.FindAccountByEmail(ctx, in.Email); err == nil {
		return "", ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		s.logger.Error("failed to look up account", "error", err)
		return "", ErrInternal.WithCause(err)
	}

	now := s.now()
	code, err := GenerateCode(now)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	id, err := newID()
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}

	pending := &PendingAccount{
		ID:            id,
		Email:         in.Email,
		Name:          in.Name,
		CodeHash:      hashCode(code.Value),
		CodeExpiresAt: code.ExpiresAt,
		CreatedAt:     now,
	}
	if err := s.repo.UpsertPendingAccount(ctx, pending); err != nil {
		s.logger.Error("failed to store pending account", "error", err)
		return "", ErrInternal.WithCause(err)
	}

	s.deliver(ctx, pending.Email, pending.Name, code.Value, notification.PurposeSignup, pending.ID)
	s.logger.Info("signup started", "pending_id", pending.ID)
	return pending.ID, nil
}

func (s *service) VerifySignup(ctx context.Context, pendingID, code string) (*AuthResult, error) {
	if !validHandle(pendingID) {
		return nil, errPendingNotFound
	}

	now := s.now()
	pending, err := s.repo.FindPendingAccountByID(ctx, pendingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errPendingNotFound
		}
		s.logger.Error("failed to look up pending account", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if !codeMatches(pending.CodeHash, pending.CodeExpiresAt, code, now) {
		return nil, ErrInvalidOrExpired
	}

	account := &Account{Verified: true, CreatedAt: now, UpdatedAt: now}
	if account.ID, err = newID(); err != nil {
		return nil, ErrInternal.WithCause(err)
	}

	err = s.repo.WithTx(ctx, func(tx Repository) error {
		consumed, err := tx.ConsumePendingAccount(ctx, pending.ID, hashCode(code), now)
		if err != nil {
			return err
		}
		if _, err := tx.FindAccountByEmail(ctx, consumed.Email); err == nil {
			return errPromotionConflict
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		account.Email = consumed.Email
		account.Name = consumed.Name
		return tx.CreateAccount(ctx, account)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrConflict):
		// Another request created the account first; the signup can never complete.
		if derr := s.repo.DeletePendingAccount(ctx, pending.ID); derr != nil {
			s.logger.Warn("failed to remove conflicting pending account", "pending_id", pending.ID, "error", derr)
		}
		return nil, ErrConflict
	case errors.Is(err, ErrNotFound):
		// Consumed by a concurrent verification.
		return nil, errPendingNotFound
	default:
		s.logger.Error("failed to promote pending account", "pending_id", pending.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	s.logger.Info("signup verified", "account_id", account.ID)
	return s.issue(account)
}
