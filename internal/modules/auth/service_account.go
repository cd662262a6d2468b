package auth

import (
	"context"
	"errors"

	"github.com/delordemm1/notes-api/internal/validation"
)

type setSecretInput struct {
	Secret string `json:"password" validate:"required,min=6"`
}

func (s *service) SetSecret(ctx context.Context, accountID, secret string) error {
	if err := validation.ValidateStruct(setSecretInput{Secret: secret}); err != nil {
		return err
	}
	// bcrypt ignores everything past 72 bytes; validator's max counts runes.
	if len(secret) > 72 {
		return validation.Field("password", "must be at most 72 bytes")
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		s.logger.Error("failed to hash secret", "error", err)
		return ErrInternal.WithCause(err)
	}
	if err := s.repo.UpdateSecretHash(ctx, accountID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.logger.Error("failed to store secret", "account_id", accountID, "error", err)
		return ErrInternal.WithCause(err)
	}

	s.logger.Info("secret updated", "account_id", accountID)
	return nil
}

func (s *service) Me(ctx context.Context, accountID string) (*PublicAccount, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to look up account", "account_id", accountID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	view := account.Public()
	return &view, nil
}
