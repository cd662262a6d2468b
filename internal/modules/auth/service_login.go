package auth

import (
	"context"
	"errors"

	"github.com/delordemm1/notes-api/internal/notification"
	"github.com/delordemm1/notes-api/internal/validation"
)

type loginInput struct {
	Email  string `json:"email" validate:"required"`
	Secret string `json:"password" validate:"required"`
}

type verifyLoginInput struct {
	SessionID string `json:"loginSession" validate:"required"`
	Code      string `json:"otp" validate:"required"`
}

func (s *service) Login(ctx context.Context, email, secret string) (*AuthResult, error) {
	in := loginInput{Email: normalizeEmail(email), Secret: secret}
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	account, err := s.repo.FindAccountByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.compareDummy(in.Secret)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to look up account", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if account.SecretHash == nil {
		s.compareDummy(in.Secret)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Compare(in.Secret, *account.SecretHash) {
		return nil, ErrInvalidCredentials
	}
	if !account.Verified {
		return nil, ErrNotVerified
	}

	s.logger.Info("password login", "account_id", account.ID)
	return s.issue(account)
}

func (s *service) RequestLoginCode(ctx context.Context, email string) (string, error) {
	account, err := s.repo.FindAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		s.logger.Error("failed to look up account", "error", err)
		return "", ErrInternal.WithCause(err)
	}
	if !account.Verified {
		return "", ErrNotVerified
	}

	code, err := GenerateCode(s.now())
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	challenge := LoginChallenge{CodeHash: hashCode(code.Value), ExpiresAt: code.ExpiresAt}
	if err := s.repo.SetLoginChallenge(ctx, account.ID, challenge); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		s.logger.Error("failed to store login code", "account_id", account.ID, "error", err)
		return "", ErrInternal.WithCause(err)
	}

	s.deliver(ctx, account.Email, account.Name, code.Value, notification.PurposeLogin, account.ID)
	return account.ID, nil
}

func (s *service) VerifyLoginCode(ctx context.Context, sessionID, code string) (*AuthResult, error) {
	if err := validation.ValidateStruct(verifyLoginInput{SessionID: sessionID, Code: code}); err != nil {
		return nil, err
	}
	if !validHandle(sessionID) {
		return nil, ErrNotFound
	}

	account, err := s.repo.FindAccountByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to look up account", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	now := s.now()
	if account.Login == nil || !codeMatches(account.Login.CodeHash, account.Login.ExpiresAt, code, now) {
		return nil, ErrInvalidOrExpired
	}
	if err := s.repo.ConsumeLoginChallenge(ctx, account.ID, hashCode(code), now); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidOrExpired
		}
		s.logger.Error("failed to consume login code", "account_id", account.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	account.Login = nil

	s.logger.Info("code login", "account_id", account.ID)
	return s.issue(account)
}
